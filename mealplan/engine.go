/*
engine.go - Reconciliation of the in-memory board with the row store

PURPOSE:
  Turns a week's worth of raw rows into the board model. On every week
  change the engine loads the window's rows, groups them per person,
  infers each person's headcount from the stored counts, and publishes
  the resulting list. When the window is completely empty it falls back
  to the carry-over roster: the names and last-known headcounts from the
  most recently loaded non-empty week, with nothing yet reserved.

CARRY-OVER RULES:
  - Only a fully empty window triggers carry-over. A window with rows for
    some people but not others is a normal load.
  - Every non-empty load replaces the roster wholesale. The roster then
    survives week navigation until the next non-empty load supersedes it.

HEADCOUNT INFERENCE:
  headcount = round(mean of the person's stored counts in this window),
  computed in decimal to keep the rounding exact. A person with no rows
  (carry-over or newly added) defaults to 1.

SEE ALSO:
  - controller.go: mutations on the published model
  - store.go:      the RowStore the engine loads from
*/
package mealplan

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shenglong/mealboard/metrics"
)

// DefaultHeadcount is used when no stored rows exist to infer from.
const DefaultHeadcount = 1

// Engine reconciles the in-memory model with the row store, one week at a
// time. It is not safe for concurrent use; the Controller serializes access.
type Engine struct {
	store RowStore
	cal   *Calendar
	log   *slog.Logger

	week   WeekWindow
	people []*Person

	// roster is the carry-over map: name -> last-known headcount from the
	// most recently loaded non-empty week. Exposed only through Load.
	roster map[string]int
}

// NewEngine creates an engine with an empty model and roster.
func NewEngine(store RowStore, cal *Calendar, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:  store,
		cal:    cal,
		log:    log,
		roster: make(map[string]int),
	}
}

// Week returns the currently loaded window.
func (e *Engine) Week() WeekWindow { return e.week }

// People returns the published model. Callers must not retain the slice
// across mutations; the Controller hands out clones at the API boundary.
func (e *Engine) People() []*Person { return e.people }

// Load fetches and reconciles the week containing anchor. On store failure
// the previous model and window are retained unchanged.
func (e *Engine) Load(ctx context.Context, anchor time.Time) error {
	week := e.cal.WeekWindow(anchor)

	rows, err := e.store.LoadRange(ctx, week.Start.Format(DateFormat), week.End.Format(DateFormat))
	if err != nil {
		return &StoreError{Op: "load " + week.String(), Err: err}
	}

	people := groupRows(rows)

	if len(people) == 0 && len(e.roster) > 0 {
		// Carry-over: prior roster with empty reservation maps.
		for name, count := range e.roster {
			people = append(people, NewPerson(name, count, ""))
		}
		sortPeople(people)
		e.week = week
		e.people = people
		metrics.WeekLoadsTotal.WithLabelValues("carryover").Inc()
		e.log.Info("week loaded from carry-over roster",
			"week", week.String(), "people", len(people))
		return nil
	}

	mode := "empty"
	if len(people) > 0 {
		mode = "rows"
		roster := make(map[string]int, len(people))
		for _, p := range people {
			roster[p.Name] = p.Headcount
		}
		e.roster = roster
	}

	e.week = week
	e.people = people
	metrics.WeekLoadsTotal.WithLabelValues(mode).Inc()
	e.log.Info("week loaded", "week", week.String(), "rows", len(rows), "people", len(people))
	return nil
}

// Total returns the aggregate meal count for (date, slot): the sum of
// headcounts over people whose reservation set contains that key. Always
// recomputed, never cached.
func (e *Engine) Total(date time.Time, slot Slot) int {
	key := NewSlotKey(date, slot)
	total := 0
	for _, p := range e.people {
		if p.Reserved(key) {
			total += p.Headcount
		}
	}
	return total
}

func (e *Engine) find(name string) *Person {
	for _, p := range e.people {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (e *Engine) remove(name string) {
	for i, p := range e.people {
		if p.Name == name {
			e.people = append(e.people[:i], e.people[i+1:]...)
			return
		}
	}
}

// rosterHeadcount returns the carried-over headcount for name, if any.
func (e *Engine) rosterHeadcount(name string) (int, bool) {
	count, ok := e.roster[name]
	return count, ok
}

// renameInRoster moves a carry-over entry to the person's new name so the
// rename survives navigation into an empty week.
func (e *Engine) renameInRoster(oldName, newName string) {
	if count, ok := e.roster[oldName]; ok {
		delete(e.roster, oldName)
		e.roster[newName] = count
	}
}

// =============================================================================
// GROUPING
// =============================================================================

// groupRows partitions rows by person name and infers headcounts. Row order
// is irrelevant; the result is sorted by name.
func groupRows(rows []Row) []*Person {
	byName := make(map[string]*Person)
	counts := make(map[string][]decimal.Decimal)

	for _, row := range rows {
		p, ok := byName[row.PersonName]
		if !ok {
			p = NewPerson(row.PersonName, DefaultHeadcount, row.Owner)
			byName[row.PersonName] = p
		}
		if p.Owner == "" && row.Owner != "" {
			p.Owner = row.Owner
		}
		p.Reservations[SlotKey(row.MealDate+"-"+string(row.Slot))] = row.Count
		counts[row.PersonName] = append(counts[row.PersonName], decimal.NewFromInt(int64(row.Count)))
	}

	people := make([]*Person, 0, len(byName))
	for name, p := range byName {
		p.Headcount = inferHeadcount(counts[name])
		people = append(people, p)
	}
	sortPeople(people)
	return people
}

// inferHeadcount is round(mean) of the stored counts, or DefaultHeadcount
// when there is nothing to infer from.
func inferHeadcount(counts []decimal.Decimal) int {
	if len(counts) == 0 {
		return DefaultHeadcount
	}
	return int(decimal.Avg(counts[0], counts[1:]...).Round(0).IntPart())
}

func sortPeople(people []*Person) {
	sort.Slice(people, func(i, j int) bool { return people[i].Name < people[j].Name })
}
