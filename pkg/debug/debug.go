// Package debug provides conditional diagnostic logging for ganttree.
//
// Logging is enabled by setting the GANTTREE_DEBUG environment variable:
//
//	GANTTREE_DEBUG=1 ganttree tree --project group/app
//
// Messages go to stderr with timestamps. When disabled (the default) every
// function returns immediately. The hierarchy fallbacks, cycle exclusions and
// swallowed persistence failures all report here.
package debug

import (
	"io"
	"log"
	"os"
	"sync"
	"time"
)

const prefix = "[GANTTREE_DEBUG] "

var (
	mu      sync.RWMutex
	enabled bool
	logger  *log.Logger
)

func init() {
	if os.Getenv("GANTTREE_DEBUG") != "" {
		enabled = true
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// SetEnabled turns logging on or off, creating the stderr logger on first
// use.
func SetEnabled(e bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// SetOutput redirects debug output and enables logging. Passing nil restores
// stderr and disables it.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		enabled = false
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
		return
	}
	enabled = true
	logger = log.New(w, prefix, 0)
}

func current() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if !enabled {
		return nil
	}
	return logger
}

// Log writes a printf-style debug message.
func Log(format string, args ...any) {
	if l := current(); l != nil {
		l.Printf(format, args...)
	}
}

// LogEnterExit logs entry and exit with timing:
//
//	defer debug.LogEnterExit("enrich")()
func LogEnterExit(name string) func() {
	l := current()
	if l == nil {
		return func() {}
	}
	l.Printf("-> %s", name)
	start := time.Now()
	return func() {
		l.Printf("<- %s (%v)", name, time.Since(start))
	}
}

// Warn logs a swallowed error with the operation it came from. It is the
// single reporting point for fail-soft code paths.
func Warn(op string, err error) {
	if err == nil {
		return
	}
	Log("warning: %s: %v", op, err)
}
