package status

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
)

const statusFileName = "status.json"

// FileRepository implements Repository using a JSON file next to the
// settings storage.
type FileRepository struct {
	dir string
}

// NewFileRepository creates a FileRepository writing into dir.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

// Load retrieves the last saved status. A missing file yields an empty
// status and no error.
func (r *FileRepository) Load(ctx context.Context) (Status, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return Status{}, nil
		}
		return Status{}, err
	}

	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return Status{}, err
	}
	return st, nil
}

// Save persists the status atomically via a temp file and rename.
func (r *FileRepository) Save(ctx context.Context, st Status) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	tmp := r.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, r.Path())
}

// Path returns the full path to the status file.
func (r *FileRepository) Path() string {
	return filepath.Join(r.dir, statusFileName)
}
