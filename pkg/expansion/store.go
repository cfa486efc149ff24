// Package expansion keeps the set of expanded task ids and persists it to a
// key-value store after every change.
//
// The in-memory set is authoritative. Persistence failures are logged and
// otherwise ignored, so a broken backend never interrupts a session.
//
// Stored format (JSON, under StateKey):
//
//	{"version": 1, "expandedIds": ["12", "40"]}
//
// A document without a version is read as version 1.
package expansion

import (
	"fmt"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/ganttree/pkg/debug"
	"github.com/vanderheijden86/ganttree/pkg/model"
)

// StateKey is the key the expansion state is stored under.
const StateKey = "issueTreeState"

// StateVersion is the current schema version.
const StateVersion = 1

// State is the persisted document.
type State struct {
	Version     int      `json:"version"`
	ExpandedIDs []string `json:"expandedIds"`
}

// KV is the persistence backend. Both calls may fail; Get reports a missing
// key with ok=false and a nil error.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Store is the expansion state of one session. It is safe for concurrent
// use.
type Store struct {
	kv  KV
	key string

	mu       sync.RWMutex
	expanded map[string]bool
}

// New returns a store backed by kv, loading any state already saved there.
// A nil kv keeps state in memory only.
func New(kv KV) *Store {
	return NewWithKey(kv, StateKey)
}

// NewWithKey is New with a custom storage key.
func NewWithKey(kv KV, key string) *Store {
	s := &Store{kv: kv, key: key, expanded: make(map[string]bool)}
	s.load()
	return s
}

func (s *Store) load() {
	if s.kv == nil {
		return
	}
	raw, ok, err := s.kv.Get(s.key)
	if err != nil {
		debug.Warn("load expansion state", err)
		return
	}
	if !ok || raw == "" {
		return
	}
	state, err := Decode(raw)
	if err != nil {
		debug.Warn("decode expansion state", err)
		return
	}
	for _, id := range state.ExpandedIDs {
		if id != "" {
			s.expanded[id] = true
		}
	}
}

// Decode parses a stored state document.
func Decode(raw string) (State, error) {
	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return State{}, fmt.Errorf("parsing expansion state: %w", err)
	}
	if state.Version == 0 {
		state.Version = StateVersion
	}
	if state.Version > StateVersion {
		return State{}, fmt.Errorf("expansion state version %d is newer than supported %d", state.Version, StateVersion)
	}
	return state, nil
}

// Encode renders ids as a state document with sorted ids.
func Encode(ids []string) (string, error) {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	data, err := json.Marshal(State{Version: StateVersion, ExpandedIDs: sorted})
	if err != nil {
		return "", fmt.Errorf("encoding expansion state: %w", err)
	}
	return string(data), nil
}

// persist must be called with s.mu held.
func (s *Store) persist() {
	if s.kv == nil {
		return
	}
	raw, err := Encode(s.idsLocked())
	if err != nil {
		debug.Warn("encode expansion state", err)
		return
	}
	if err := s.kv.Set(s.key, raw); err != nil {
		debug.Warn("save expansion state", err)
	}
}

func (s *Store) idsLocked() []string {
	ids := make([]string, 0, len(s.expanded))
	for id := range s.expanded {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsExpanded reports whether id is expanded.
func (s *Store) IsExpanded(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expanded[id]
}

// Toggle flips id and returns its new state.
func (s *Store) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := !s.expanded[id]
	if now {
		s.expanded[id] = true
	} else {
		delete(s.expanded, id)
	}
	s.persist()
	return now
}

// Expand marks id expanded.
func (s *Store) Expand(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expanded[id] = true
	s.persist()
}

// ExpandIDs marks every id expanded and persists once.
func (s *Store) ExpandIDs(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for _, id := range ids {
		if id != "" && !s.expanded[id] {
			s.expanded[id] = true
			changed = true
		}
	}
	if changed {
		s.persist()
	}
}

// Collapse marks id collapsed.
func (s *Store) Collapse(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expanded, id)
	s.persist()
}

// ExpandAll expands every task that has children, either attached or hinted
// by the source.
func (s *Store) ExpandAll(tasks []*model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tasks {
		if t != nil && (t.HasChildren || t.HasChildrenHint) {
			s.expanded[t.ID] = true
		}
	}
	s.persist()
}

// CollapseAll collapses every given task.
func (s *Store) CollapseAll(tasks []*model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tasks {
		if t != nil {
			delete(s.expanded, t.ID)
		}
	}
	s.persist()
}

// Clear collapses everything.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expanded = make(map[string]bool)
	s.persist()
}

// ExpandedIDs returns the expanded ids in sorted order.
func (s *Store) ExpandedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idsLocked()
}

// Len returns the number of expanded ids.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.expanded)
}
