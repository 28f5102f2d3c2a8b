/*
dto.go - Request and response shapes for the board API

PURPOSE:
  JSON structures exchanged with the presentation layer. DTOs are kept
  separate from domain types so the wire format can evolve without
  touching the core model.
*/
package api

// =============================================================================
// RESPONSES
// =============================================================================

// BoardDTO is the rendered week: the window, its seven days with per-slot
// totals and editability, and the people with their reservation sets.
type BoardDTO struct {
	WeekStart string      `json:"week_start"`
	WeekEnd   string      `json:"week_end"`
	Days      []DayDTO    `json:"days"`
	People    []PersonDTO `json:"people"`
}

type DayDTO struct {
	Date  string        `json:"date"`
	Slots []SlotCellDTO `json:"slots"`
}

// SlotCellDTO is one (day, slot) cell: the kitchen's aggregate meal count
// and whether the cell may still be edited (cut-off not yet passed).
type SlotCellDTO struct {
	Slot     string `json:"slot"`
	Total    int    `json:"total"`
	Editable bool   `json:"editable"`
}

type PersonDTO struct {
	Name         string   `json:"name"`
	Headcount    int      `json:"headcount"`
	Owner        string   `json:"owner,omitempty"`
	Reservations []string `json:"reservations"`
}

// DecisionDTO tells the presentation layer a mutation needs the user's
// explicit go-ahead before it will be applied.
type DecisionDTO struct {
	Decision string `json:"decision"`
	Person   string `json:"person"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// ErrorResponse is the uniform error payload. FailedRows is only set for
// partial batch failures, naming the rows that did not persist.
type ErrorResponse struct {
	Error      string   `json:"error"`
	Detail     string   `json:"detail,omitempty"`
	FailedRows []string `json:"failed_rows,omitempty"`
}

// =============================================================================
// REQUESTS
// =============================================================================

type AddPersonRequest struct {
	Name string `json:"name"`
}

type RenameRequest struct {
	NewName   string `json:"new_name"`
	Confirmed bool   `json:"confirmed,omitempty"`
}

type HeadcountRequest struct {
	Headcount int  `json:"headcount"`
	Confirmed bool `json:"confirmed,omitempty"`
}

type ToggleRequest struct {
	Date      string `json:"date"` // YYYY-MM-DD
	Slot      string `json:"slot"` // 早, 中 or 晚
	Confirmed bool   `json:"confirmed,omitempty"`
}

// BulkEditRequest replaces a person's whole week in one action: the new
// headcount and the complete set of reserved keys ("YYYY-MM-DD-<slot>").
type BulkEditRequest struct {
	Headcount int      `json:"headcount"`
	Slots     []string `json:"slots"`
	Confirmed bool     `json:"confirmed,omitempty"`
}

type ChangeWeekRequest struct {
	Direction int `json:"direction"` // +1 next week, -1 previous week
}

type TokenRequest struct {
	User string `json:"user"`
}
