package datasource

import (
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/ganttree/pkg/testutil"
)

func TestResolveSource(t *testing.T) {
	file := testutil.WriteTasksFile(t, "tasks.jsonl", testutil.QuickChain(2))

	src, err := ResolveSource(file, "group/app", "", false)
	if err != nil || src.Type != SourceTypeJSONL {
		t.Fatalf("expected jsonl source, got %+v err=%v", src, err)
	}

	src, err = ResolveSource("", "group/app", "", false)
	if err != nil || src.Type != SourceTypeGitLab || src.Project != "group/app" {
		t.Fatalf("expected gitlab source, got %+v err=%v", src, err)
	}

	src, err = ResolveSource("", "group/app", "/tmp/x.db", true)
	if err != nil || src.Type != SourceTypeSnapshot {
		t.Fatalf("expected snapshot source, got %+v err=%v", src, err)
	}

	if _, err := ResolveSource("", "", "", false); err == nil {
		t.Error("expected error without file or project")
	}
	if _, err := ResolveSource(filepath.Join(t.TempDir(), "nope.jsonl"), "", "", false); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseStateBackend(t *testing.T) {
	for in, want := range map[string]StateBackend{"": StateFile, "SQLite": StateSQLite, "memory": StateMemory} {
		got, err := ParseStateBackend(in)
		if err != nil || got != want {
			t.Errorf("ParseStateBackend(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseStateBackend("redis"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestOpenStateBackends(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []StateBackend{StateMemory, StateFile, StateSQLite} {
		kv, closer, err := OpenState(backend, DefaultStatePath(backend, filepath.Join(dir, string(backend))), "ns")
		if err != nil {
			t.Fatalf("%s: %v", backend, err)
		}
		if err := kv.Set("k", "v"); err != nil {
			t.Errorf("%s: set: %v", backend, err)
		}
		if v, ok, err := kv.Get("k"); err != nil || !ok || v != "v" {
			t.Errorf("%s: get = %q %v %v", backend, v, ok, err)
		}
		if err := closer.Close(); err != nil {
			t.Errorf("%s: close: %v", backend, err)
		}
	}
}

func TestLoadLocal(t *testing.T) {
	file := testutil.WriteTasksFile(t, "tasks.jsonl", testutil.QuickTree(1, 3))
	tasks, err := LoadLocal(Source{Type: SourceTypeJSONL, Path: file})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertTaskCount(t, tasks, 4)

	dbPath := filepath.Join(t.TempDir(), "cache.db")
	db, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveSnapshot("p", tasks); err != nil {
		t.Fatal(err)
	}
	db.Close()

	cached, err := LoadLocal(Source{Type: SourceTypeSnapshot, Path: dbPath, Project: "p"})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertTaskCount(t, cached, 4)

	if _, err := LoadLocal(Source{Type: SourceTypeGitLab, Project: "p"}); err == nil {
		t.Error("expected error loading a remote source locally")
	}
}
