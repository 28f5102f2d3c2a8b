/*
Package mealplan implements the weekly meal reservation board.

PURPOSE:
  This package contains the board's domain model and the logic that keeps it
  consistent with the remote row store: loading a week of reservation rows,
  grouping them per person, inferring headcounts, carrying a roster forward
  into empty weeks, and applying validated mutations.

KEY CONCEPTS IN THIS FILE (types.go):
  - Slot: one of the three daily meal periods (早/中/晚)
  - Row: the persisted unit, one row per person per date per slot
  - SlotKey: the composite (date, slot) key of an in-memory reservation
  - Person: the aggregate root, a person's reservation set for one week

DESIGN PRINCIPLES:
  1. Rows are identified by (person, date, slot); upserting the same key
     overwrites. There is no hidden surrogate identity.
  2. Aggregate totals are always recomputed from headcounts, never read back
     from stored counts, so drifted rows cannot skew the board.
  3. The in-memory model only advances after the store confirms a write.

SEE ALSO:
  - calendar.go: week windows and slot cut-off times
  - engine.go:   load/group/infer/carry-over reconciliation
  - controller.go: validated mutations and week navigation
*/
package mealplan

import (
	"fmt"
	"time"
)

// DateFormat is the wire and storage format for meal dates.
const DateFormat = "2006-01-02"

// =============================================================================
// SLOT - One of the three daily meal periods
// =============================================================================

// Slot identifies a meal period. The values are the labels used in the
// persisted rows, so they are part of the storage contract.
type Slot string

const (
	SlotMorning Slot = "早"
	SlotNoon    Slot = "中"
	SlotEvening Slot = "晚"
)

// Slots returns all slots in board order (morning, noon, evening).
func Slots() []Slot {
	return []Slot{SlotMorning, SlotNoon, SlotEvening}
}

// Valid reports whether s is one of the three known slots.
func (s Slot) Valid() bool {
	return s == SlotMorning || s == SlotNoon || s == SlotEvening
}

// =============================================================================
// ROW - The persisted unit (one person, one date, one slot)
// =============================================================================

// Row is a single persisted reservation record.
// Row identity is (PersonName, MealDate, Slot); Count is the number of meals
// reserved at write time and Owner is the identity string that wrote it
// (empty in open-edit deployments).
type Row struct {
	PersonName string `db:"user_name" json:"user_name"`
	MealDate   string `db:"meal_date" json:"meal_date"` // DateFormat
	Slot       Slot   `db:"meal_type" json:"meal_type"`
	Count      int    `db:"meal_count" json:"meal_count"`
	Owner      string `db:"owner_identity" json:"owner_identity,omitempty"`
}

// RowKey is the natural key of a Row.
type RowKey struct {
	PersonName string
	MealDate   string
	Slot       Slot
}

func (r Row) Key() RowKey {
	return RowKey{PersonName: r.PersonName, MealDate: r.MealDate, Slot: r.Slot}
}

func (k RowKey) String() string {
	return k.PersonName + "/" + k.MealDate + "-" + string(k.Slot)
}

// =============================================================================
// SLOT KEY - In-memory reservation key, "YYYY-MM-DD-<slot>"
// =============================================================================

// SlotKey is the composite (date, slot) key of a reservation within a week.
// The string form matches the original table's convention, e.g. "2024-06-04-早".
type SlotKey string

// NewSlotKey builds the key for a date and slot.
func NewSlotKey(date time.Time, slot Slot) SlotKey {
	return SlotKey(date.Format(DateFormat) + "-" + string(slot))
}

// ParseSlotKey splits a key back into its date string and slot.
func ParseSlotKey(k SlotKey) (mealDate string, slot Slot, err error) {
	s := string(k)
	if len(s) <= len(DateFormat)+1 || s[len(DateFormat)] != '-' {
		return "", "", fmt.Errorf("malformed slot key %q", s)
	}
	mealDate, slot = s[:len(DateFormat)], Slot(s[len(DateFormat)+1:])
	if _, perr := time.Parse(DateFormat, mealDate); perr != nil {
		return "", "", fmt.Errorf("malformed slot key %q: %w", s, perr)
	}
	if !slot.Valid() {
		return "", "", fmt.Errorf("malformed slot key %q: unknown slot %q", s, slot)
	}
	return mealDate, slot, nil
}

// MealDate returns the date part of the key without validation.
func (k SlotKey) MealDate() string {
	if len(k) < len(DateFormat) {
		return ""
	}
	return string(k[:len(DateFormat)])
}

// Slot returns the slot part of the key without validation.
func (k SlotKey) Slot() Slot {
	if len(k) <= len(DateFormat)+1 {
		return ""
	}
	return Slot(k[len(DateFormat)+1:])
}

// =============================================================================
// PERSON - Aggregate root: one person's reservation set for the active week
// =============================================================================

// Person is one row of the board: a named person, their per-slot headcount,
// and the set of (date, slot) keys they have reserved in the active week.
//
// Reservations maps a SlotKey to the count that was stored for it. Presence
// of a key means reserved; the stored value is retained for reference but
// totals are always computed from Headcount (types.go header, principle 2).
type Person struct {
	Name         string
	Headcount    int
	Owner        string
	Reservations map[SlotKey]int
}

// NewPerson creates a person with an empty reservation set.
func NewPerson(name string, headcount int, owner string) *Person {
	return &Person{
		Name:         name,
		Headcount:    headcount,
		Owner:        owner,
		Reservations: make(map[SlotKey]int),
	}
}

// Reserved reports whether the person has the given (date, slot) reserved.
func (p *Person) Reserved(key SlotKey) bool {
	_, ok := p.Reservations[key]
	return ok
}

// Rows materializes the person's reservation set as store rows, all carrying
// the person's current headcount and owner.
func (p *Person) Rows() []Row {
	rows := make([]Row, 0, len(p.Reservations))
	for key := range p.Reservations {
		rows = append(rows, Row{
			PersonName: p.Name,
			MealDate:   key.MealDate(),
			Slot:       key.Slot(),
			Count:      p.Headcount,
			Owner:      p.Owner,
		})
	}
	return rows
}

// Clone returns a deep copy, used when publishing the model across the API
// boundary so readers cannot race with later mutations.
func (p *Person) Clone() *Person {
	cp := &Person{
		Name:         p.Name,
		Headcount:    p.Headcount,
		Owner:        p.Owner,
		Reservations: make(map[SlotKey]int, len(p.Reservations)),
	}
	for k, v := range p.Reservations {
		cp.Reservations[k] = v
	}
	return cp
}
