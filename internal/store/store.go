package store

import (
	"fmt"

	"github.com/cwbudde/recipefit/internal/config"
)

// Store persists solved recipes. Implementations must be safe for concurrent
// use.
//
// Error conventions:
//   - ErrNotFound (match with errors.Is) when a record does not exist
//   - *ValidationError when a record is rejected before writing
//   - other failures are wrapped with context
type Store interface {
	// SaveSolution writes the record for id, replacing any previous one.
	SaveSolution(id string, rec *Record) error

	// LoadSolution returns the record stored for id.
	LoadSolution(id string) (*Record, error)

	// ListSolutions returns metadata for every stored record, newest first.
	ListSolutions() ([]Info, error)

	// DeleteSolution removes the record for id and everything stored with
	// it (the optimizer trace for the filesystem store).
	DeleteSolution(id string) error
}

// ErrNotFound is returned when a requested record does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing record.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return "solution not found: " + e.ID
	}
	return "solution not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// Open creates the store selected by cfg.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Store {
	case config.StoreFS, "":
		return NewFSStore(cfg.DataDir)
	case config.StoreSQLite, config.StorePostgres:
		return OpenSQL(cfg.Store, sqlDSN(cfg))
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store)
	}
}

var (
	_ Store = (*FSStore)(nil)
	_ Store = (*SQLStore)(nil)
)
