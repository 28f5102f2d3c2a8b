/*
Package sqlite provides the SQLite-backed reservation row store.

PURPOSE:
  Implements mealplan.RowStore on a single meal_plan table. The same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

TABLE:
  meal_plan: one row per (user_name, meal_date, meal_type). The composite
  primary key makes every write an idempotent upsert; there is no surrogate
  id and no secondary uniqueness constraint, so renames create a new
  identity going forward rather than rewriting history.

CONCURRENCY:
  Opened in WAL mode with a single connection (SetMaxOpenConns(1)).
  Batch upserts still fan out per row to honor the RowStore contract of
  per-row failure reporting; the connection pool serializes the statements.

USAGE:
  store, err := sqlite.New("./data/mealboard.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - mealplan/store.go:        interface definition and contracts
  - mealplan/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/shenglong/mealboard/mealplan"
	"github.com/shenglong/mealboard/metrics"
)

// Store implements mealplan.RowStore on SQLite.
type Store struct {
	db *sqlx.DB
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single writer; avoids SQLITE_BUSY under concurrent batch writes.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meal_plan (
		user_name      TEXT NOT NULL,
		meal_date      TEXT NOT NULL,
		meal_type      TEXT NOT NULL,
		meal_count     INTEGER NOT NULL,
		owner_identity TEXT NOT NULL DEFAULT '',
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL,
		PRIMARY KEY (user_name, meal_date, meal_type)
	);

	-- Range loads by week are the hot path
	CREATE INDEX IF NOT EXISTS idx_meal_plan_date
		ON meal_plan(meal_date);

	-- Full-history deletes by person
	CREATE INDEX IF NOT EXISTS idx_meal_plan_person
		ON meal_plan(user_name);
	`
	_, err := s.db.Exec(schema)
	return err
}

// LoadRange returns all rows with meal_date in [start, end].
func (s *Store) LoadRange(ctx context.Context, start, end string) ([]mealplan.Row, error) {
	query := `
		SELECT user_name, meal_date, meal_type, meal_count, owner_identity
		FROM meal_plan
		WHERE meal_date BETWEEN ? AND ?
	`

	var rows []mealplan.Row
	err := s.db.SelectContext(ctx, &rows, query, start, end)
	metrics.ObserveStoreOp("load_range", err)
	if err != nil {
		return nil, fmt.Errorf("failed to load rows in [%s, %s]: %w", start, end, err)
	}
	return rows, nil
}

// Upsert writes one row, replacing any row with the same key.
func (s *Store) Upsert(ctx context.Context, row mealplan.Row) error {
	query := `
		INSERT INTO meal_plan (
			user_name, meal_date, meal_type, meal_count, owner_identity,
			created_at, updated_at
		) VALUES (
			:user_name, :meal_date, :meal_type, :meal_count, :owner_identity,
			:now, :now
		)
		ON CONFLICT (user_name, meal_date, meal_type) DO UPDATE SET
			meal_count     = excluded.meal_count,
			owner_identity = excluded.owner_identity,
			updated_at     = excluded.updated_at
	`

	_, err := s.db.NamedExecContext(ctx, query, map[string]interface{}{
		"user_name":      row.PersonName,
		"meal_date":      row.MealDate,
		"meal_type":      string(row.Slot),
		"meal_count":     row.Count,
		"owner_identity": row.Owner,
		"now":            time.Now().UTC().Format(time.RFC3339),
	})
	metrics.ObserveStoreOp("upsert", err)
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", row.Key(), err)
	}
	return nil
}

// UpsertBatch issues the rows concurrently and awaits them jointly. Partial
// failures are reported per row; a batch that fails entirely is reported as
// a single store failure.
func (s *Store) UpsertBatch(ctx context.Context, rows []mealplan.Row) error {
	if len(rows) == 0 {
		return nil
	}

	failures := make([]error, len(rows))
	var wg sync.WaitGroup
	for i, row := range rows {
		wg.Add(1)
		go func(i int, row mealplan.Row) {
			defer wg.Done()
			failures[i] = s.Upsert(ctx, row)
		}(i, row)
	}
	wg.Wait()

	var failed []mealplan.RowFailure
	for i, err := range failures {
		if err != nil {
			failed = append(failed, mealplan.RowFailure{Key: rows[i].Key(), Err: err})
		}
	}
	switch {
	case len(failed) == 0:
		return nil
	case len(failed) == len(rows):
		return &mealplan.StoreError{Op: "upsert batch", Err: failed[0].Err}
	default:
		return &mealplan.PartialBatchError{Op: "upsert batch", Total: len(rows), Failed: failed}
	}
}

// DeleteByKey removes at most one row; absent keys are a no-op.
func (s *Store) DeleteByKey(ctx context.Context, key mealplan.RowKey) error {
	query := `DELETE FROM meal_plan WHERE user_name = ? AND meal_date = ? AND meal_type = ?`

	_, err := s.db.ExecContext(ctx, query, key.PersonName, key.MealDate, string(key.Slot))
	metrics.ObserveStoreOp("delete_key", err)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// DeleteByPerson removes every row for the person across all dates. This is
// the destructive full-history cascade; callers confirm before invoking.
func (s *Store) DeleteByPerson(ctx context.Context, personName string) error {
	query := `DELETE FROM meal_plan WHERE user_name = ?`

	_, err := s.db.ExecContext(ctx, query, personName)
	metrics.ObserveStoreOp("delete_person", err)
	if err != nil {
		return fmt.Errorf("failed to delete rows for %q: %w", personName, err)
	}
	return nil
}
