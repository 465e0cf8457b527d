package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/closestfriend/replicate-predictions-downloader/pkg/domain"
)

const DefaultStateFile = ".replicate-downloader-state.json"

type fileStateRepository struct {
	path string
}

func NewFileStateRepository(path string) *fileStateRepository {
	if path == "" {
		path = DefaultStateFile
	}
	return &fileStateRepository{path: path}
}

func (f *fileStateRepository) Path() string {
	return f.path
}

func (f *fileStateRepository) Load(_ context.Context) (domain.RunState, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.RunState{}, domain.ErrNotFound
		}
		return domain.RunState{}, fmt.Errorf("reading state file: %w", err)
	}

	var st domain.RunState
	if err := json.Unmarshal(data, &st); err != nil {
		return domain.RunState{}, fmt.Errorf("parsing state file: %w", err)
	}
	return st, nil
}

// Save writes to a sibling temp file and renames it over the state file so an
// interrupted write never leaves a truncated document behind.
func (f *fileStateRepository) Save(_ context.Context, st domain.RunState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating state directory: %w", err)
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming temp state file: %w", err)
	}
	return nil
}
