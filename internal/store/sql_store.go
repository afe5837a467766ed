package store

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/cwbudde/recipefit/internal/config"
	"github.com/cwbudde/recipefit/internal/recipe"
)

// Floats is a float slice stored as a JSON text column.
type Floats []float64

// Value implements the driver.Valuer interface
func (f Floats) Value() (driver.Value, error) {
	if len(f) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(f)
	return string(b), err
}

// Scan implements the sql.Scanner interface
func (f *Floats) Scan(value interface{}) error {
	return scanJSON(value, f)
}

// Document is a recipe document stored as a JSON text column.
type Document recipe.Document

// Value implements the driver.Valuer interface
func (d Document) Value() (driver.Value, error) {
	b, err := json.Marshal(recipe.Document(d))
	return string(b), err
}

// Scan implements the sql.Scanner interface
func (d *Document) Scan(value interface{}) error {
	var doc recipe.Document
	if err := scanJSON(value, &doc); err != nil {
		return err
	}
	*d = Document(doc)
	return nil
}

func scanJSON(value interface{}, dst any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported column type %T", value)
	}
	return json.Unmarshal(data, dst)
}

// solutionRow is the table layout of a Record.
type solutionRow struct {
	ID               string    `gorm:"primaryKey;size:64"`
	RecipeName       string    `gorm:"size:255"`
	Solver           string    `gorm:"size:32;not null"`
	State            string    `gorm:"size:32;not null"`
	Servings         Floats    `gorm:"type:text;not null"`
	Quantities       Floats    `gorm:"type:text;not null"`
	TotalCost        float64   `gorm:"not null"`
	Objective        float64   `gorm:"not null"`
	InitialObjective float64   `gorm:"not null"`
	Iterations       int       `gorm:"not null"`
	Timestamp        time.Time `gorm:"index;not null"`
	Input            Document  `gorm:"type:text;not null"`
}

func (solutionRow) TableName() string { return "solutions" }

func rowFromRecord(id string, r *Record) *solutionRow {
	return &solutionRow{
		ID:               id,
		RecipeName:       r.RecipeName,
		Solver:           r.Solver,
		State:            r.State,
		Servings:         Floats(r.Servings),
		Quantities:       Floats(r.Quantities),
		TotalCost:        r.TotalCost,
		Objective:        r.Objective,
		InitialObjective: r.InitialObjective,
		Iterations:       r.Iterations,
		Timestamp:        r.Timestamp,
		Input:            Document(r.Input),
	}
}

func (row *solutionRow) record() *Record {
	return &Record{
		ID:               row.ID,
		RecipeName:       row.RecipeName,
		Solver:           row.Solver,
		State:            row.State,
		Servings:         []float64(row.Servings),
		Quantities:       []float64(row.Quantities),
		TotalCost:        row.TotalCost,
		Objective:        row.Objective,
		InitialObjective: row.InitialObjective,
		Iterations:       row.Iterations,
		Timestamp:        row.Timestamp,
		Input:            recipe.Document(row.Input),
	}
}

// SQLStore implements Store on a relational database through gorm.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQL connects to a "sqlite" or "postgres" database and migrates the
// solutions table.
func OpenSQL(backend, dsn string) (*SQLStore, error) {
	var dialector gorm.Dialector
	switch backend {
	case config.StoreSQLite:
		dialector = sqlite.Open(dsn)
	case config.StorePostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql backend: %s", backend)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", backend, err)
	}

	if backend == config.StoreSQLite {
		// sqlite serializes writers anyway; one connection avoids SQLITE_BUSY
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&solutionRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate solutions table: %w", err)
	}

	slog.Debug("SQL store opened", "backend", backend)
	return &SQLStore{db: db}, nil
}

// NewSQLStore wraps an existing gorm connection. The solutions table must
// already exist (see OpenSQL).
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// SaveSolution validates rec and inserts or replaces its row.
func (s *SQLStore) SaveSolution(id string, rec *Record) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	row := rowFromRecord(id, rec)
	err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to save solution: %w", err)
	}

	slog.Debug("Solution saved", "id", id, "backend", s.db.Dialector.Name())
	return nil
}

// LoadSolution retrieves the record for the given id.
func (s *SQLStore) LoadSolution(id string) (*Record, error) {
	if id == "" {
		return nil, fmt.Errorf("id cannot be empty")
	}

	var row solutionRow
	err := s.db.First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{ID: id}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load solution: %w", err)
	}
	return row.record(), nil
}

// ListSolutions returns metadata for all stored records, newest first.
func (s *SQLStore) ListSolutions() ([]Info, error) {
	var rows []solutionRow
	err := s.db.
		Select("id", "recipe_name", "solver", "state", "servings", "total_cost", "objective", "iterations", "timestamp").
		Order("timestamp desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list solutions: %w", err)
	}

	infos := make([]Info, len(rows))
	for i := range rows {
		infos[i] = rows[i].record().ToInfo()
	}
	return infos, nil
}

// DeleteSolution removes the row for id.
func (s *SQLStore) DeleteSolution(id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}

	res := s.db.Delete(&solutionRow{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete solution: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}

// Close releases the database connection.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// sqlDSN defaults the sqlite database to a file in the data directory.
func sqlDSN(cfg *config.Config) string {
	if cfg.DSN != "" || cfg.Store != config.StoreSQLite {
		return cfg.DSN
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		slog.Warn("Failed to create data directory", "dir", cfg.DataDir, "error", err)
	}
	return filepath.Join(cfg.DataDir, "recipefit.db")
}
