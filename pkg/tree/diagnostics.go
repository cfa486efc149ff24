package tree

import (
	"sync"

	"github.com/vanderheijden86/ganttree/pkg/debug"
)

// DiagnosticKind classifies why a task was left out of the forest.
type DiagnosticKind string

const (
	DiagnosticCycle       DiagnosticKind = "cycle"
	DiagnosticOrphanChild DiagnosticKind = "orphan_child"
	DiagnosticDuplicateID DiagnosticKind = "duplicate_id"
	DiagnosticMissingID   DiagnosticKind = "missing_id"
)

// Diagnostic describes one task the builder could not place.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	TaskID  string         `json:"task_id,omitempty"`
	Message string         `json:"message"`
}

// DiagnosticSink receives build diagnostics.
type DiagnosticSink interface {
	Report(d Diagnostic)
}

// DiagnosticLog collects diagnostics in memory.
type DiagnosticLog struct {
	mu    sync.Mutex
	items []Diagnostic
}

// Report implements DiagnosticSink.
func (l *DiagnosticLog) Report(d Diagnostic) {
	l.mu.Lock()
	l.items = append(l.items, d)
	l.mu.Unlock()
}

// All returns a copy of the collected diagnostics in report order.
func (l *DiagnosticLog) All() []Diagnostic {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Diagnostic, len(l.items))
	copy(out, l.items)
	return out
}

// ByKind returns the collected diagnostics of one kind.
func (l *DiagnosticLog) ByKind(kind DiagnosticKind) []Diagnostic {
	var out []Diagnostic
	for _, d := range l.All() {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Reset drops everything collected so far.
func (l *DiagnosticLog) Reset() {
	l.mu.Lock()
	l.items = nil
	l.mu.Unlock()
}

type logSink struct{}

func (logSink) Report(d Diagnostic) {
	debug.Log("tree: %s %s: %s", d.Kind, d.TaskID, d.Message)
}

type teeSink []DiagnosticSink

func (t teeSink) Report(d Diagnostic) {
	for _, s := range t {
		s.Report(d)
	}
}
