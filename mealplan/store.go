/*
store.go - Persistence interface for reservation rows

PURPOSE:
  Defines the boundary between the board and the remote row table. The table
  is keyed by (person, date, slot); writes are idempotent upserts and
  deletes, reads are date-range queries. Implementations translate these
  calls to whatever backend holds the table.

KEY CONTRACTS:
  - Upsert with an existing key overwrites; there is no secondary uniqueness
    constraint. Renaming a person therefore never rewrites historical rows.
  - LoadRange gives no ordering guarantee; callers must not depend on order.
  - UpsertBatch issues its rows concurrently and awaits them jointly. When
    only some rows fail it returns *PartialBatchError naming them; when the
    whole batch fails it returns *StoreError.
  - DeleteByPerson removes the person's rows for ALL dates, not only the
    visible week. It is destructive and non-reversible; confirming with the
    user is the caller's job, the store performs no confirmation.

IMPLEMENTATIONS:
  - store/sqlite:        production SQLite table
  - mealplan/store:      in-memory table for tests and dev mode
*/
package mealplan

import "context"

// RowStore is the remote reservation table.
type RowStore interface {
	// LoadRange returns all rows with meal_date in [start, end], both in
	// DateFormat. Row order is unspecified.
	LoadRange(ctx context.Context, start, end string) ([]Row, error)

	// Upsert writes one row, replacing any row with the same key.
	Upsert(ctx context.Context, row Row) error

	// UpsertBatch writes rows concurrently and awaits them jointly.
	UpsertBatch(ctx context.Context, rows []Row) error

	// DeleteByKey removes at most one row; absent keys are a no-op.
	DeleteByKey(ctx context.Context, key RowKey) error

	// DeleteByPerson removes every row for the person across all dates.
	DeleteByPerson(ctx context.Context, personName string) error
}

// IdentityProvider yields the acting identity for permission checks and
// owner stamping. The second return is false when no identity is known, in
// which case the board runs in open-edit mode.
type IdentityProvider interface {
	CurrentIdentity(ctx context.Context) (string, bool)
}
