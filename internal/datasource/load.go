package datasource

import (
	"fmt"

	"github.com/vanderheijden86/ganttree/pkg/loader"
	"github.com/vanderheijden86/ganttree/pkg/model"
)

// LoadLocal loads tasks from a source that needs no network: a JSONL file or
// a cached snapshot.
func LoadLocal(source Source) ([]*model.Task, error) {
	switch source.Type {
	case SourceTypeJSONL:
		return loader.LoadTasksFromFile(source.Path)

	case SourceTypeSnapshot:
		db, err := OpenSQLite(source.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot cache %s: %w", source.Path, err)
		}
		defer db.Close()
		tasks, _, err := db.LoadSnapshot(source.Project)
		return tasks, err

	case SourceTypeGitLab:
		return nil, fmt.Errorf("%s is remote", source)

	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}
