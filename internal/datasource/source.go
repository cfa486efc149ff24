// Package datasource resolves where tasks come from and where expansion
// state is kept: a GitLab project, a JSONL snapshot file, or the SQLite
// snapshot cache for tasks; memory, a JSON file, or SQLite for state.
package datasource

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vanderheijden86/ganttree/pkg/expansion"
)

// SourceType identifies where tasks are loaded from.
type SourceType string

const (
	SourceTypeGitLab   SourceType = "gitlab"
	SourceTypeJSONL    SourceType = "jsonl"
	SourceTypeSnapshot SourceType = "snapshot"
)

// Source is a resolved task source.
type Source struct {
	Type SourceType `json:"type"`
	// Path is the JSONL file or SQLite database.
	Path string `json:"path,omitempty"`
	// Project is the GitLab project path, also the snapshot key.
	Project string    `json:"project,omitempty"`
	ModTime time.Time `json:"mod_time,omitempty"`
}

// String returns a human-readable description of the source.
func (s Source) String() string {
	switch s.Type {
	case SourceTypeGitLab:
		if assignee, ok := strings.CutPrefix(s.Project, "@"); ok {
			return fmt.Sprintf("gitlab issues assigned to %s", assignee)
		}
		return fmt.Sprintf("gitlab project %s", s.Project)
	case SourceTypeSnapshot:
		return fmt.Sprintf("snapshot of %s in %s", s.Project, s.Path)
	default:
		return fmt.Sprintf("%s (%s, mod=%s)", s.Path, s.Type, s.ModTime.Format(time.RFC3339))
	}
}

// ResolveSource decides the task source. A file argument wins; otherwise a
// project means GitLab, or its cached snapshot when offline is set.
func ResolveSource(file, project, statePath string, offline bool) (Source, error) {
	if file != "" {
		info, err := os.Stat(file)
		if err != nil {
			return Source{}, fmt.Errorf("task file: %w", err)
		}
		if info.IsDir() {
			return Source{}, fmt.Errorf("task file %s is a directory", file)
		}
		return Source{Type: SourceTypeJSONL, Path: file, ModTime: info.ModTime()}, nil
	}
	if project == "" {
		return Source{}, fmt.Errorf("no task source: pass a task file or configure source.project")
	}
	if offline {
		if statePath == "" {
			return Source{}, fmt.Errorf("offline mode needs a sqlite state path")
		}
		return Source{Type: SourceTypeSnapshot, Path: statePath, Project: project}, nil
	}
	return Source{Type: SourceTypeGitLab, Project: project}, nil
}

// StateBackend names where expansion state is persisted.
type StateBackend string

const (
	StateMemory StateBackend = "memory"
	StateFile   StateBackend = "file"
	StateSQLite StateBackend = "sqlite"
)

// ParseStateBackend validates a backend name. Empty means file.
func ParseStateBackend(s string) (StateBackend, error) {
	switch StateBackend(strings.ToLower(strings.TrimSpace(s))) {
	case "", StateFile:
		return StateFile, nil
	case StateMemory:
		return StateMemory, nil
	case StateSQLite:
		return StateSQLite, nil
	default:
		return "", fmt.Errorf("unknown state backend %q (want memory, file or sqlite)", s)
	}
}

// DefaultStatePath returns the default state location for backend inside
// dir.
func DefaultStatePath(backend StateBackend, dir string) string {
	switch backend {
	case StateSQLite:
		return filepath.Join(dir, "ganttree.db")
	case StateFile:
		return filepath.Join(dir, expansion.StateFileName)
	default:
		return ""
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenState opens the KV for backend. namespace separates state of
// different projects in shared backends. The returned closer must be
// closed when done.
func OpenState(backend StateBackend, path, namespace string) (expansion.KV, io.Closer, error) {
	switch backend {
	case StateMemory:
		return expansion.NewMemoryKV(), nopCloser{}, nil
	case StateFile:
		if path == "" {
			return nil, nil, fmt.Errorf("file state backend needs a path")
		}
		return expansion.NewFileKV(path), nopCloser{}, nil
	case StateSQLite:
		if path == "" {
			return nil, nil, fmt.Errorf("sqlite state backend needs a path")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating state directory: %w", err)
		}
		db, err := OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return db.KV(namespace), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", backend)
	}
}
