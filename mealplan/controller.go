/*
controller.go - Validated mutations against the board

PURPOSE:
  Applies user intents (toggle a slot, rename, change headcount, add or
  remove a person, bulk-edit a week, navigate weeks) to the model, in that
  order: validate, persist, then update the in-memory model. The model only
  becomes the new source of truth after the store confirms the write, so the
  board never shows state the store did not persist.

CONCURRENCY CONTRACT:
  Operations serialize behind a single mutex and run to completion,
  including their store round-trip, before the next intent is accepted.
  Batch writes inside one mutation fan out to the store concurrently and
  are jointly awaited (see RowStore.UpsertBatch). Across separate board
  instances the row level is last-write-wins; no lock is taken.

OWNERSHIP:
  Write-only gating. Reads are never filtered by owner. A mutation on a
  person whose tracked owner differs from a known acting identity is
  denied; when the acting identity is unknown the decision is surfaced as
  RequiresConfirmation for the presentation layer to interpret.
*/
package mealplan

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Controller owns all mutations of the board model.
type Controller struct {
	mu     sync.Mutex
	engine *Engine
	store  RowStore
	cal    *Calendar
	ident  IdentityProvider
	log    *slog.Logger
}

// NewController wires a controller around an engine. ident may be nil for
// open-edit deployments.
func NewController(engine *Engine, store RowStore, cal *Calendar, ident IdentityProvider, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{engine: engine, store: store, cal: cal, ident: ident, log: log}
}

// =============================================================================
// READ SIDE
// =============================================================================

// Week returns the currently loaded window.
func (c *Controller) Week() WeekWindow {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Week()
}

// People returns a deep copy of the published model.
func (c *Controller) People() []*Person {
	c.mu.Lock()
	defer c.mu.Unlock()
	people := make([]*Person, len(c.engine.People()))
	for i, p := range c.engine.People() {
		people[i] = p.Clone()
	}
	return people
}

// Total returns the aggregate meal count for (date, slot).
func (c *Controller) Total(date time.Time, slot Slot) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Total(date, slot)
}

// BoardSnapshot is a consistent copy of the published model, taken under
// the controller lock so week and people always belong together.
type BoardSnapshot struct {
	Week   WeekWindow
	People []*Person
}

// Snapshot returns a consistent deep copy of week and model for rendering.
func (c *Controller) Snapshot() BoardSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	people := make([]*Person, len(c.engine.People()))
	for i, p := range c.engine.People() {
		people[i] = p.Clone()
	}
	return BoardSnapshot{Week: c.engine.Week(), People: people}
}

// Total computes the aggregate for (date, slot) over a snapshot: the sum of
// headcounts of people holding that key.
func (s BoardSnapshot) Total(date time.Time, slot Slot) int {
	key := NewSlotKey(date, slot)
	total := 0
	for _, p := range s.People {
		if p.Reserved(key) {
			total += p.Headcount
		}
	}
	return total
}

// Authorize runs the ownership check for the named person without mutating
// anything. The presentation layer uses it to drive confirmation prompts.
func (c *Controller) Authorize(ctx context.Context, personName string) (Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.engine.find(personName)
	if p == nil {
		return Deny, fmt.Errorf("%q: %w", personName, ErrPersonNotFound)
	}
	return c.decide(ctx, p), nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// ToggleSlot flips the person's reservation for (date, slot). A newly
// reserved slot is persisted with the person's current headcount; an
// unreserved one has its row deleted.
func (c *Controller) ToggleSlot(ctx context.Context, personName string, date time.Time, slot Slot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.engine.find(personName)
	if p == nil {
		return fmt.Errorf("%q: %w", personName, ErrPersonNotFound)
	}
	if p.Name == "" {
		return fmt.Errorf("toggle on placeholder entry: %w", ErrEmptyName)
	}
	if err := c.authorize(ctx, p); err != nil {
		return err
	}
	if !slot.Valid() {
		return fmt.Errorf("unknown slot %q", slot)
	}
	if !c.engine.Week().Contains(date) {
		return fmt.Errorf("%s not in %s: %w", date.Format(DateFormat), c.engine.Week(), ErrOutsideWeek)
	}
	if !c.cal.IsEditable(date, slot) {
		return &CutoffError{
			MealDate: date.Format(DateFormat),
			Slot:     slot,
			Cutoff:   c.cal.CutoffInstant(date, slot),
		}
	}

	key := NewSlotKey(date, slot)
	if p.Reserved(key) {
		rowKey := RowKey{PersonName: p.Name, MealDate: key.MealDate(), Slot: slot}
		if err := c.store.DeleteByKey(ctx, rowKey); err != nil {
			return &StoreError{Op: "delete " + rowKey.String(), Err: err}
		}
		delete(p.Reservations, key)
		c.log.Debug("slot released", "person", p.Name, "key", string(key))
		return nil
	}

	row := Row{
		PersonName: p.Name,
		MealDate:   key.MealDate(),
		Slot:       slot,
		Count:      p.Headcount,
		Owner:      p.Owner,
	}
	if err := c.store.Upsert(ctx, row); err != nil {
		return &StoreError{Op: "upsert " + row.Key().String(), Err: err}
	}
	p.Reservations[key] = p.Headcount
	c.log.Debug("slot reserved", "person", p.Name, "key", string(key), "count", p.Headcount)
	return nil
}

// SetHeadcount changes the person's per-slot meal count and re-upserts every
// reserved row of the current week with the new count. Past weeks' rows are
// not touched.
func (c *Controller) SetHeadcount(ctx context.Context, personName string, newCount int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if newCount <= 0 {
		return fmt.Errorf("headcount %d: %w", newCount, ErrInvalidCount)
	}
	p := c.engine.find(personName)
	if p == nil {
		return fmt.Errorf("%q: %w", personName, ErrPersonNotFound)
	}
	if err := c.authorize(ctx, p); err != nil {
		return err
	}

	if len(p.Reservations) > 0 {
		rows := make([]Row, 0, len(p.Reservations))
		for key := range p.Reservations {
			rows = append(rows, Row{
				PersonName: p.Name,
				MealDate:   key.MealDate(),
				Slot:       key.Slot(),
				Count:      newCount,
				Owner:      p.Owner,
			})
		}
		if err := c.store.UpsertBatch(ctx, rows); err != nil {
			return err
		}
	}

	p.Headcount = newCount
	for key := range p.Reservations {
		p.Reservations[key] = newCount
	}
	c.log.Info("headcount changed", "person", p.Name, "headcount", newCount)
	return nil
}

// Rename changes the person's display identity. The current week's reserved
// rows are rewritten under the new name and the old-name rows of this week
// deleted; rows stored in past weeks are left alone, so history stays with
// the old identity.
func (c *Controller) Rename(ctx context.Context, personName, newName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if newName == "" {
		return fmt.Errorf("rename: %w", ErrEmptyName)
	}
	p := c.engine.find(personName)
	if p == nil {
		return fmt.Errorf("%q: %w", personName, ErrPersonNotFound)
	}
	if newName == p.Name {
		return nil
	}
	if c.engine.find(newName) != nil {
		return fmt.Errorf("%q: %w", newName, ErrDuplicateName)
	}
	if err := c.authorize(ctx, p); err != nil {
		return err
	}

	if len(p.Reservations) > 0 {
		rows := make([]Row, 0, len(p.Reservations))
		oldKeys := make([]RowKey, 0, len(p.Reservations))
		for key := range p.Reservations {
			rows = append(rows, Row{
				PersonName: newName,
				MealDate:   key.MealDate(),
				Slot:       key.Slot(),
				Count:      p.Headcount,
				Owner:      p.Owner,
			})
			oldKeys = append(oldKeys, RowKey{PersonName: p.Name, MealDate: key.MealDate(), Slot: key.Slot()})
		}
		if err := c.store.UpsertBatch(ctx, rows); err != nil {
			return err
		}
		if err := c.deleteAll(ctx, oldKeys); err != nil {
			return err
		}
	}

	c.engine.renameInRoster(p.Name, newName)
	c.log.Info("person renamed", "from", p.Name, "to", newName)
	p.Name = newName
	return nil
}

// AddPerson appends a new person to the active week with an empty
// reservation set. The headcount is carried over from the roster when the
// name is known there, otherwise DefaultHeadcount. Rows are only written on
// the first toggle.
func (c *Controller) AddPerson(ctx context.Context, name string) (*Person, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if name == "" {
		return nil, fmt.Errorf("add person: %w", ErrEmptyName)
	}
	if c.engine.find(name) != nil {
		return nil, fmt.Errorf("%q: %w", name, ErrDuplicateName)
	}

	headcount := DefaultHeadcount
	if carried, ok := c.engine.rosterHeadcount(name); ok {
		headcount = carried
	}
	owner := ""
	if actor, ok := c.actor(ctx); ok {
		owner = actor
	}

	p := NewPerson(name, headcount, owner)
	c.engine.people = append(c.engine.people, p)
	c.log.Info("person added", "person", name, "headcount", headcount)
	return p.Clone(), nil
}

// DeletePerson removes the person from the board and cascades a delete of
// ALL their rows across all dates, not just the active week. Confirmation
// is the presentation layer's responsibility; by the time this is called
// the decision has been made.
func (c *Controller) DeletePerson(ctx context.Context, personName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.engine.find(personName)
	if p == nil {
		return fmt.Errorf("%q: %w", personName, ErrPersonNotFound)
	}
	if err := c.authorize(ctx, p); err != nil {
		return err
	}

	if err := c.store.DeleteByPerson(ctx, p.Name); err != nil {
		return &StoreError{Op: "delete person " + p.Name, Err: err}
	}
	// The carry-over roster is left untouched: re-adding the name inherits
	// its last-known headcount.
	c.engine.remove(p.Name)
	c.log.Info("person deleted", "person", personName)
	return nil
}

// BulkEditWeek atomically replaces the person's headcount and entire
// reservation set for the active week: keys added against the current set
// are upserted, removed keys deleted, and every kept key rewritten with the
// new count. Dates outside the active window are rejected, not touched.
func (c *Controller) BulkEditWeek(ctx context.Context, personName string, newCount int, newKeys []SlotKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if newCount <= 0 {
		return fmt.Errorf("headcount %d: %w", newCount, ErrInvalidCount)
	}
	p := c.engine.find(personName)
	if p == nil {
		return fmt.Errorf("%q: %w", personName, ErrPersonNotFound)
	}
	if err := c.authorize(ctx, p); err != nil {
		return err
	}

	week := c.engine.Week()
	next := make(map[SlotKey]int, len(newKeys))
	rows := make([]Row, 0, len(newKeys))
	for _, key := range newKeys {
		mealDate, slot, err := ParseSlotKey(key)
		if err != nil {
			return err
		}
		date, _ := c.cal.ParseDate(mealDate)
		if !week.Contains(date) {
			return fmt.Errorf("%s not in %s: %w", mealDate, week, ErrOutsideWeek)
		}
		if _, dup := next[key]; dup {
			continue
		}
		next[key] = newCount
		rows = append(rows, Row{
			PersonName: p.Name,
			MealDate:   mealDate,
			Slot:       slot,
			Count:      newCount,
			Owner:      p.Owner,
		})
	}

	var removed []RowKey
	for key := range p.Reservations {
		if _, keep := next[key]; !keep {
			removed = append(removed, RowKey{PersonName: p.Name, MealDate: key.MealDate(), Slot: key.Slot()})
		}
	}

	if len(rows) > 0 {
		if err := c.store.UpsertBatch(ctx, rows); err != nil {
			return err
		}
	}
	if err := c.deleteAll(ctx, removed); err != nil {
		return err
	}

	p.Headcount = newCount
	p.Reservations = next
	c.log.Info("week edited", "person", p.Name, "headcount", newCount, "slots", len(next))
	return nil
}

// ChangeWeek flushes every person with a non-empty reservation set to the
// store, then navigates direction weeks (negative for past) and reloads.
// A failed flush aborts the navigation and keeps the current week loaded.
func (c *Controller) ChangeWeek(ctx context.Context, direction int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.engine.People() {
		if p.Name == "" || len(p.Reservations) == 0 {
			continue
		}
		if err := c.store.UpsertBatch(ctx, p.Rows()); err != nil {
			return fmt.Errorf("flush %q before week change: %w", p.Name, err)
		}
	}

	anchor := c.engine.Week().Start.AddDate(0, 0, 7*direction)
	return c.engine.Load(ctx, anchor)
}

// LoadWeek loads the week containing anchor without flushing; it is the
// initial-load path, not the navigation path.
func (c *Controller) LoadWeek(ctx context.Context, anchor time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Load(ctx, anchor)
}

// =============================================================================
// OWNERSHIP
// =============================================================================

func (c *Controller) actor(ctx context.Context) (string, bool) {
	if c.ident == nil {
		return "", false
	}
	return c.ident.CurrentIdentity(ctx)
}

// decide implements the ownership decision table: untracked owners are
// open; a tracked owner with a known, different actor is denied; a tracked
// owner with no known actor needs user confirmation.
func (c *Controller) decide(ctx context.Context, p *Person) Decision {
	if p.Owner == "" {
		return Allow
	}
	actor, ok := c.actor(ctx)
	if !ok {
		return RequiresConfirmation
	}
	if actor == p.Owner {
		return Allow
	}
	return Deny
}

// authorize hard-blocks only Deny; RequiresConfirmation is handled by the
// presentation layer before the mutation is issued.
func (c *Controller) authorize(ctx context.Context, p *Person) error {
	if c.decide(ctx, p) == Deny {
		actor, _ := c.actor(ctx)
		return &PermissionError{PersonName: p.Name, Owner: p.Owner, Actor: actor}
	}
	return nil
}

// =============================================================================
// BATCH DELETE
// =============================================================================

// deleteAll issues key deletes concurrently and awaits them jointly,
// mirroring the UpsertBatch contract.
func (c *Controller) deleteAll(ctx context.Context, keys []RowKey) error {
	if len(keys) == 0 {
		return nil
	}

	type result struct {
		key RowKey
		err error
	}
	results := make(chan result, len(keys))
	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func(key RowKey) {
			defer wg.Done()
			results <- result{key: key, err: c.store.DeleteByKey(ctx, key)}
		}(key)
	}
	wg.Wait()
	close(results)

	var failed []RowFailure
	for r := range results {
		if r.err != nil {
			failed = append(failed, RowFailure{Key: r.key, Err: r.err})
		}
	}
	if len(failed) == 0 {
		return nil
	}
	if len(failed) == len(keys) {
		return &StoreError{Op: "delete batch", Err: failed[0].Err}
	}
	return &PartialBatchError{Op: "delete batch", Total: len(keys), Failed: failed}
}
