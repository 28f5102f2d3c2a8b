package mealplan

import "time"

// =============================================================================
// WEEK WINDOW - Monday through Sunday, inclusive
// =============================================================================

// WeekWindow is the 7-day span the board displays. Start is the Monday at
// midnight in the board's location, End is the following Sunday at midnight.
type WeekWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the date falls inside the window. Only the
// calendar day matters; the time of day is ignored.
func (w WeekWindow) Contains(date time.Time) bool {
	d := date.Format(DateFormat)
	return d >= w.Start.Format(DateFormat) && d <= w.End.Format(DateFormat)
}

// Days returns the seven days of the window in order.
func (w WeekWindow) Days() []time.Time {
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = w.Start.AddDate(0, 0, i)
	}
	return days
}

func (w WeekWindow) String() string {
	return "[" + w.Start.Format(DateFormat) + ", " + w.End.Format(DateFormat) + "]"
}

// =============================================================================
// CUT-OFF HOURS - Latest local hour a slot may still be changed
// =============================================================================

// CutoffHours maps each slot to the local hour of day after which
// reservations for that slot on a given date become read-only.
type CutoffHours map[Slot]int

// DefaultCutoffs returns the kitchen's standing cut-offs:
// morning 06:00, noon 09:00, evening 14:00.
func DefaultCutoffs() CutoffHours {
	return CutoffHours{SlotMorning: 6, SlotNoon: 9, SlotEvening: 14}
}

// =============================================================================
// CALENDAR - Pure date arithmetic for the board
// =============================================================================

// Calendar computes week windows and cut-off instants in the board's local
// time. Now is injectable so editability checks are testable; it defaults to
// time.Now and is re-evaluated on every call, never cached.
type Calendar struct {
	Location *time.Location
	Cutoffs  CutoffHours
	Now      func() time.Time
}

// NewCalendar creates a calendar with the default cut-offs in loc.
func NewCalendar(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{Location: loc, Cutoffs: DefaultCutoffs(), Now: time.Now}
}

// WeekWindow returns the Monday-start week containing anchor.
func (c *Calendar) WeekWindow(anchor time.Time) WeekWindow {
	a := anchor.In(c.Location)
	day := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, c.Location)
	// Monday=0 ... Sunday=6
	back := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -back)
	return WeekWindow{Start: start, End: start.AddDate(0, 0, 6)}
}

// CutoffInstant returns the moment reservations for (date, slot) close:
// the slot's configured hour, minute zero, on that date.
func (c *Calendar) CutoffInstant(date time.Time, slot Slot) time.Time {
	d := date.In(c.Location)
	return time.Date(d.Year(), d.Month(), d.Day(), c.Cutoffs[slot], 0, 0, 0, c.Location)
}

// IsEditable reports whether reservations for (date, slot) may still be
// created or modified, i.e. now is strictly before the cut-off instant.
func (c *Calendar) IsEditable(date time.Time, slot Slot) bool {
	now := c.Now
	if now == nil {
		now = time.Now
	}
	return now().Before(c.CutoffInstant(date, slot))
}

// ParseDate parses a DateFormat string as midnight in the board's location.
func (c *Calendar) ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateFormat, s, c.Location)
}
