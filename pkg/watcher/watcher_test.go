package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var callCount atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() { callCount.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	if count := callCount.Load(); count != 1 {
		t.Errorf("expected 1 callback invocation, got %d", count)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	var called atomic.Bool
	d.Trigger(func() { called.Store(true) })
	d.Cancel()
	time.Sleep(100 * time.Millisecond)
	if called.Load() {
		t.Error("callback should not have been invoked after cancel")
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	if d := NewDebouncer(0); d.Duration() != DefaultDebounceDuration {
		t.Errorf("expected default duration %v, got %v", DefaultDebounceDuration, d.Duration())
	}
}

func waitChanged(t *testing.T, w *Watcher, timeout time.Duration) bool {
	t.Helper()
	select {
	case <-w.Changed():
		return true
	case <-time.After(timeout):
		return false
	}
}

func testWatcher(t *testing.T, poll bool) (*Watcher, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.jsonl")
	if err := os.WriteFile(path, []byte(`{"id":"1","title":"a"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := New(path,
		WithDebounceDuration(30*time.Millisecond),
		WithPollInterval(20*time.Millisecond),
		WithForcePoll(poll),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w, path
}

func TestWatcher_DetectsFileChange(t *testing.T) {
	w, path := testWatcher(t, false)
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte(`{"id":"2","title":"b"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !waitChanged(t, w, 2*time.Second) {
		t.Error("expected change to be detected")
	}
}

func TestWatcher_DetectsAtomicReplace(t *testing.T) {
	w, path := testWatcher(t, false)
	time.Sleep(50 * time.Millisecond)

	tmp := filepath.Join(filepath.Dir(path), ".tasks.tmp")
	if err := os.WriteFile(tmp, []byte(`{"id":"3","title":"c"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	if !waitChanged(t, w, 2*time.Second) {
		t.Error("expected rename onto the file to be detected")
	}
}

func TestWatcher_PollingFallback(t *testing.T) {
	w, path := testWatcher(t, true)
	if !w.IsPolling() {
		t.Fatal("expected polling mode")
	}
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte(`{"id":"1","title":"a longer title"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !waitChanged(t, w, 2*time.Second) {
		t.Error("expected polling to detect the change")
	}
}

func TestWatcher_StartTwice(t *testing.T) {
	w, _ := testWatcher(t, true)
	if err := w.Start(context.Background()); err != ErrAlreadyStarted {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestWatcher_StopSilences(t *testing.T) {
	w, path := testWatcher(t, true)
	w.Stop()
	if err := os.WriteFile(path, []byte("changed after stop, longer\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if waitChanged(t, w, 200*time.Millisecond) {
		t.Error("no change should be reported after Stop")
	}
}
