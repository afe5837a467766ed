package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// FSStore implements Store with one JSON file per record:
// <baseDir>/jobs/<id>/solution.json. The optimizer trace of a run, if any,
// lives next to it.
//
// Writes go to a temp file that is renamed into place, so readers never see
// a partial record and no locks are needed.
type FSStore struct {
	baseDir string
}

// NewFSStore creates a new filesystem-based store.
// The baseDir will be created if it doesn't exist.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

// BaseDir returns the store's root directory.
func (fs *FSStore) BaseDir() string {
	return fs.baseDir
}

func (fs *FSStore) jobDir(id string) string {
	return filepath.Join(fs.baseDir, "jobs", id)
}

func (fs *FSStore) solutionPath(id string) string {
	return filepath.Join(fs.jobDir(id), "solution.json")
}

// SaveSolution validates rec and writes it atomically.
func (fs *FSStore) SaveSolution(id string, rec *Record) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	jobDir := fs.jobDir(id)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return fmt.Errorf("failed to create job directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize solution: %w", err)
	}

	finalPath := fs.solutionPath(id)
	tempPath := finalPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp solution file: %w", err)
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename solution file: %w", err)
	}

	slog.Debug("Solution saved", "id", id, "path", finalPath)
	return nil
}

// LoadSolution retrieves the record for the given id.
func (fs *FSStore) LoadSolution(id string) (*Record, error) {
	if id == "" {
		return nil, fmt.Errorf("id cannot be empty")
	}

	path := fs.solutionPath(id)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{ID: id}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read solution file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to deserialize solution: %w", err)
	}

	slog.Debug("Solution loaded", "id", id, "path", path)
	return &rec, nil
}

// ListSolutions returns metadata for all stored records, newest first.
// Unreadable records are skipped with a warning.
func (fs *FSStore) ListSolutions() ([]Info, error) {
	jobsDir := filepath.Join(fs.baseDir, "jobs")

	entries, err := os.ReadDir(jobsDir)
	if os.IsNotExist(err) {
		return []Info{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read jobs directory: %w", err)
	}

	infos := []Info{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		id := entry.Name()
		if _, err := os.Stat(fs.solutionPath(id)); os.IsNotExist(err) {
			continue // trace only, or an unfinished job
		}

		rec, err := fs.LoadSolution(id)
		if err != nil {
			slog.Warn("Failed to load solution for listing", "id", id, "error", err)
			continue
		}
		infos = append(infos, rec.ToInfo())
	}

	sortNewestFirst(infos)
	slog.Debug("Listed solutions", "count", len(infos))
	return infos, nil
}

// DeleteSolution removes the job directory with the record and its trace.
func (fs *FSStore) DeleteSolution(id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}

	jobDir := fs.jobDir(id)
	if _, err := os.Stat(jobDir); os.IsNotExist(err) {
		return &NotFoundError{ID: id}
	} else if err != nil {
		return fmt.Errorf("failed to stat job directory: %w", err)
	}

	if err := os.RemoveAll(jobDir); err != nil {
		return fmt.Errorf("failed to remove job directory: %w", err)
	}

	slog.Debug("Solution deleted", "id", id, "path", jobDir)
	return nil
}

func sortNewestFirst(infos []Info) {
	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].Timestamp.After(infos[j].Timestamp)
	})
}
