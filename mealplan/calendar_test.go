package mealplan_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shenglong/mealboard/mealplan"
)

// Plant-local time for calendar tests; a fixed zone avoids depending on the
// host's tzdata.
var plantTZ = time.FixedZone("CST", 8*3600)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, plantTZ)
}

func TestWeekWindow_RoundsDownToMonday(t *testing.T) {
	cal := mealplan.NewCalendar(plantTZ)

	tests := []struct {
		name   string
		anchor time.Time
		start  time.Time
	}{
		{"monday anchor stays", date(2024, time.June, 3), date(2024, time.June, 3)},
		{"midweek rounds back", date(2024, time.June, 5), date(2024, time.June, 3)},
		{"sunday belongs to the running week", date(2024, time.June, 9), date(2024, time.June, 3)},
		{"next monday starts a new week", date(2024, time.June, 10), date(2024, time.June, 10)},
		{"time of day is irrelevant", date(2024, time.June, 5).Add(23 * time.Hour), date(2024, time.June, 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := cal.WeekWindow(tt.anchor)
			assert.True(t, w.Start.Equal(tt.start), "start: want %v, got %v", tt.start, w.Start)
			assert.True(t, w.End.Equal(tt.start.AddDate(0, 0, 6)), "end: want %v, got %v", tt.start.AddDate(0, 0, 6), w.End)
		})
	}
}

func TestWeekWindow_DaysAndContains(t *testing.T) {
	cal := mealplan.NewCalendar(plantTZ)
	w := cal.WeekWindow(date(2024, time.June, 3))

	days := w.Days()
	assert.Len(t, days, 7)
	assert.Equal(t, "2024-06-03", days[0].Format(mealplan.DateFormat))
	assert.Equal(t, "2024-06-09", days[6].Format(mealplan.DateFormat))

	assert.True(t, w.Contains(date(2024, time.June, 3)))
	assert.True(t, w.Contains(date(2024, time.June, 9)))
	assert.False(t, w.Contains(date(2024, time.June, 2)))
	assert.False(t, w.Contains(date(2024, time.June, 10)))
}

func TestCutoffInstant_UsesConfiguredHours(t *testing.T) {
	cal := mealplan.NewCalendar(plantTZ)
	day := date(2024, time.June, 4)

	assert.Equal(t, 6, cal.CutoffInstant(day, mealplan.SlotMorning).Hour())
	assert.Equal(t, 9, cal.CutoffInstant(day, mealplan.SlotNoon).Hour())
	assert.Equal(t, 14, cal.CutoffInstant(day, mealplan.SlotEvening).Hour())
	assert.Equal(t, 0, cal.CutoffInstant(day, mealplan.SlotMorning).Minute())
}

func TestIsEditable_CutoffBoundary(t *testing.T) {
	// GIVEN: each slot's cut-off on 2024-06-04
	// WHEN: checking editability one second before and one second after
	// THEN: the slot flips from editable to read-only at the cut-off

	cal := mealplan.NewCalendar(plantTZ)
	day := date(2024, time.June, 4)

	for _, slot := range mealplan.Slots() {
		cutoff := cal.CutoffInstant(day, slot)

		cal.Now = func() time.Time { return cutoff.Add(-time.Second) }
		assert.True(t, cal.IsEditable(day, slot), "slot %s one second before cut-off", slot)

		cal.Now = func() time.Time { return cutoff }
		assert.False(t, cal.IsEditable(day, slot), "slot %s exactly at cut-off", slot)

		cal.Now = func() time.Time { return cutoff.Add(time.Second) }
		assert.False(t, cal.IsEditable(day, slot), "slot %s one second after cut-off", slot)
	}
}

func TestIsEditable_ReevaluatesNowPerCall(t *testing.T) {
	cal := mealplan.NewCalendar(plantTZ)
	day := date(2024, time.June, 4)
	cutoff := cal.CutoffInstant(day, mealplan.SlotMorning)

	now := cutoff.Add(-time.Minute)
	cal.Now = func() time.Time { return now }
	assert.True(t, cal.IsEditable(day, mealplan.SlotMorning))

	// Time advances past the cut-off; the same calendar must notice.
	now = cutoff.Add(time.Minute)
	assert.False(t, cal.IsEditable(day, mealplan.SlotMorning))
}

func TestSlotKey_RoundTrip(t *testing.T) {
	key := mealplan.NewSlotKey(date(2024, time.June, 4), mealplan.SlotMorning)
	assert.Equal(t, mealplan.SlotKey("2024-06-04-早"), key)

	mealDate, slot, err := mealplan.ParseSlotKey(key)
	assert.NoError(t, err)
	assert.Equal(t, "2024-06-04", mealDate)
	assert.Equal(t, mealplan.SlotMorning, slot)
}

func TestSlotKey_Malformed(t *testing.T) {
	for _, bad := range []mealplan.SlotKey{"", "2024-06-04", "2024-06-04-", "2024-06-04-午", "junk-data-早"} {
		_, _, err := mealplan.ParseSlotKey(bad)
		assert.Error(t, err, "key %q should be rejected", bad)
	}
}
