package datasource

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/ganttree/pkg/debug"
	"github.com/vanderheijden86/ganttree/pkg/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (namespace, key)
);
CREATE TABLE IF NOT EXISTS snapshots (
	project    TEXT PRIMARY KEY,
	tasks      TEXT NOT NULL,
	fetched_at TEXT NOT NULL
);
`

// SQLiteDB is the local state database: expansion state per namespace and
// the last fetched task snapshot per project.
type SQLiteDB struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the state database at path.
func OpenSQLite(path string) (*SQLiteDB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	// Writes are serialized through one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema in %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA temp_store = MEMORY",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			debug.Log("sqlite: %s failed: %v", pragma, err)
		}
	}
	return &SQLiteDB{db: db, path: path}, nil
}

// Path returns the database file.
func (s *SQLiteDB) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// KV returns an expansion.KV view of one namespace.
func (s *SQLiteDB) KV(namespace string) *SQLiteKV {
	return &SQLiteKV{db: s.db, namespace: namespace}
}

// SQLiteKV stores values in the kv table under a fixed namespace.
type SQLiteKV struct {
	db        *sql.DB
	namespace string
}

// Get implements expansion.KV.
func (k *SQLiteKV) Get(key string) (string, bool, error) {
	var value string
	err := k.db.QueryRow(
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`, k.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s/%s: %w", k.namespace, key, err)
	}
	return value, true, nil
}

// Set implements expansion.KV.
func (k *SQLiteKV) Set(key, value string) error {
	_, err := k.db.Exec(`
		INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		k.namespace, key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing %s/%s: %w", k.namespace, key, err)
	}
	return nil
}

// SaveSnapshot replaces the stored task list of project.
func (s *SQLiteDB) SaveSnapshot(project string, tasks []*model.Task) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO snapshots (project, tasks, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT (project) DO UPDATE SET tasks = excluded.tasks, fetched_at = excluded.fetched_at`,
		project, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot for %s: %w", project, err)
	}
	return nil
}

// ErrNoSnapshot is returned when no snapshot is stored for a project.
var ErrNoSnapshot = errors.New("no snapshot")

// LoadSnapshot returns the stored task list of project and when it was
// fetched.
func (s *SQLiteDB) LoadSnapshot(project string) ([]*model.Task, time.Time, error) {
	var raw, fetched string
	err := s.db.QueryRow(
		`SELECT tasks, fetched_at FROM snapshots WHERE project = ?`, project,
	).Scan(&raw, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, fmt.Errorf("%w for %s", ErrNoSnapshot, project)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading snapshot for %s: %w", project, err)
	}

	var tasks []*model.Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		return nil, time.Time{}, fmt.Errorf("decoding snapshot for %s: %w", project, err)
	}
	at, err := time.Parse(time.RFC3339Nano, fetched)
	if err != nil {
		debug.Log("sqlite: bad fetched_at %q for %s: %v", fetched, project, err)
	}
	return tasks, at, nil
}

// Projects lists the projects that have a stored snapshot, most recent first.
func (s *SQLiteDB) Projects() ([]string, error) {
	rows, err := s.db.Query(`SELECT project FROM snapshots ORDER BY fetched_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
