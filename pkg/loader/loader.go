// Package loader reads and writes task snapshots as JSONL, one task per
// line. Snapshots let the tree be built offline and watched for changes.
package loader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/ganttree/pkg/model"
)

// DefaultMaxBufferSize is the default maximum line size (10MB).
const DefaultMaxBufferSize = 1024 * 1024 * 10

// ParseOptions configures ParseTasksWithOptions.
type ParseOptions struct {
	// WarningHandler is called with warning messages (e.g. malformed JSON).
	// If nil, warnings are printed to os.Stderr unless GANTTREE_QUIET=1.
	WarningHandler func(string)

	// BufferSize sets the maximum line size in bytes. Longer lines are
	// skipped with a warning. If 0, uses DefaultMaxBufferSize.
	BufferSize int

	// TaskFilter optionally filters parsed tasks. Return true to include.
	TaskFilter func(*model.Task) bool
}

// LoadTasksFromFile reads tasks from a JSONL file.
func LoadTasksFromFile(path string) ([]*model.Task, error) {
	return LoadTasksFromFileWithOptions(path, ParseOptions{})
}

// LoadTasksFromFileWithOptions reads tasks from a JSONL file with custom
// options.
func LoadTasksFromFileWithOptions(path string, opts ParseOptions) ([]*model.Task, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no task snapshot at %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open task snapshot: %w", err)
	}
	defer file.Close()
	return ParseTasksWithOptions(file, opts)
}

// ParseTasks parses JSONL content into tasks.
func ParseTasks(r io.Reader) ([]*model.Task, error) {
	return ParseTasksWithOptions(r, ParseOptions{})
}

// ParseTasksWithOptions parses JSONL content with custom options. Malformed
// and invalid lines are skipped with a warning; only read errors fail.
func ParseTasksWithOptions(r io.Reader, opts ParseOptions) ([]*model.Task, error) {
	maxCapacity := opts.BufferSize
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxBufferSize
	}
	reader := bufio.NewReaderSize(r, maxCapacity)

	warn := opts.WarningHandler
	if warn == nil {
		if os.Getenv("GANTTREE_QUIET") == "1" {
			warn = func(string) {}
		} else {
			warn = func(msg string) {
				fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
			}
		}
	}

	var tasks []*model.Task
	lineNum := 0
	for {
		lineNum++
		line, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading tasks at line %d: %w", lineNum, err)
		}

		if isPrefix {
			warn(fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxCapacity))
			for isPrefix {
				_, isPrefix, err = reader.ReadLine()
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, fmt.Errorf("error skipping long line at line %d: %w", lineNum, err)
				}
			}
			continue
		}

		if lineNum == 1 {
			line = stripBOM(line)
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		task := model.NewTask("", "")
		if err := json.Unmarshal(line, task); err != nil {
			warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
			continue
		}
		task.ID = strings.TrimSpace(task.ID)
		task.ParentID = strings.TrimSpace(task.ParentID)
		if err := task.Validate(); err != nil {
			warn(fmt.Sprintf("skipping invalid task on line %d: %v", lineNum, err))
			continue
		}
		if opts.TaskFilter != nil && !opts.TaskFilter(task) {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// WriteTasks writes tasks as JSONL.
func WriteTasks(w io.Writer, tasks []*model.Task) error {
	enc := json.NewEncoder(w)
	for _, t := range tasks {
		if t == nil {
			continue
		}
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("encoding task %s: %w", t.ID, err)
		}
	}
	return nil
}

// SaveTasksToFile writes tasks as JSONL to path, replacing it atomically.
func SaveTasksToFile(path string, tasks []*model.Task) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tasks-*.jsonl")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	w := bufio.NewWriter(tmp)
	if err := WriteTasks(w, tasks); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}
