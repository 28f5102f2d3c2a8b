/*
handlers.go - HTTP handlers for the reservation board

PURPOSE:
  Exposes the board over REST. Handlers parse and validate the request,
  run the ownership gate, delegate to the mutation controller, and
  serialize the result. All board logic lives in mealplan; this layer is
  translation only.

ENDPOINTS:
  Board:
    GET    /api/board                  Render the current (or anchored) week
    POST   /api/board/week             Navigate weeks (flushes first)

  People:
    POST   /api/people                 Add a person to the active week
    DELETE /api/people/{name}          Delete person + full row history
    POST   /api/people/{name}/rename   Change display identity
    PUT    /api/people/{name}/headcount Change per-slot meal count
    POST   /api/people/{name}/toggle   Flip one (date, slot) reservation
    PUT    /api/people/{name}/week     Replace the whole week in one action
    GET    /api/people/{name}/authorize Ownership decision for the caller

  Auth:
    POST   /api/auth/token             Issue an identity token

CONFIRMATION FLOW:
  When the ownership decision is "confirm_required" and the request does
  not carry confirmed=true, the mutation is not applied and the decision
  is returned with 409; the client asks the user and repeats the call
  with confirmed=true. Deleting a person always needs ?confirm=true.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 403: Permission denied
  - 404: Person not found
  - 409: Duplicate name, cut-off passed, confirmation required
  - 500: Partial batch failure (failed rows listed), internal errors
  - 503: Store unavailable

SEE ALSO:
  - dto.go:    request/response shapes
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/shenglong/mealboard/identity"
	"github.com/shenglong/mealboard/mealplan"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ctrl   *mealplan.Controller
	Cal    *mealplan.Calendar
	Issuer *identity.TokenIssuer // nil = open-edit, no tokens
	Log    *slog.Logger
}

// NewHandler creates a handler around the controller.
func NewHandler(ctrl *mealplan.Controller, cal *mealplan.Calendar, issuer *identity.TokenIssuer) *Handler {
	return &Handler{Ctrl: ctrl, Cal: cal, Issuer: issuer, Log: slog.Default()}
}

// =============================================================================
// BOARD HANDLERS
// =============================================================================

// GetBoard renders the active week. With ?week=YYYY-MM-DD the week
// containing that date is loaded first.
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	if anchor := r.URL.Query().Get("week"); anchor != "" {
		date, err := h.Cal.ParseDate(anchor)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid week anchor (use YYYY-MM-DD)", err)
			return
		}
		if err := h.Ctrl.LoadWeek(r.Context(), date); err != nil {
			writeError(w, statusFor(err), "Failed to load week", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.board())
}

// ChangeWeek flushes unsaved reservations and navigates one week.
func (h *Handler) ChangeWeek(w http.ResponseWriter, r *http.Request) {
	var req ChangeWeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Direction != 1 && req.Direction != -1 {
		writeError(w, http.StatusBadRequest, "Direction must be 1 or -1", nil)
		return
	}

	if err := h.Ctrl.ChangeWeek(r.Context(), req.Direction); err != nil {
		writeError(w, statusFor(err), "Failed to change week", err)
		return
	}
	writeJSON(w, http.StatusOK, h.board())
}

func (h *Handler) board() BoardDTO {
	snap := h.Ctrl.Snapshot()

	days := make([]DayDTO, 0, 7)
	for _, day := range snap.Week.Days() {
		cells := make([]SlotCellDTO, 0, 3)
		for _, slot := range mealplan.Slots() {
			cells = append(cells, SlotCellDTO{
				Slot:     string(slot),
				Total:    snap.Total(day, slot),
				Editable: h.Cal.IsEditable(day, slot),
			})
		}
		days = append(days, DayDTO{Date: day.Format(mealplan.DateFormat), Slots: cells})
	}

	people := make([]PersonDTO, 0, len(snap.People))
	for _, p := range snap.People {
		keys := make([]string, 0, len(p.Reservations))
		for key := range p.Reservations {
			keys = append(keys, string(key))
		}
		sort.Strings(keys)
		people = append(people, PersonDTO{
			Name:         p.Name,
			Headcount:    p.Headcount,
			Owner:        p.Owner,
			Reservations: keys,
		})
	}

	return BoardDTO{
		WeekStart: snap.Week.Start.Format(mealplan.DateFormat),
		WeekEnd:   snap.Week.End.Format(mealplan.DateFormat),
		Days:      days,
		People:    people,
	}
}

// =============================================================================
// PERSON HANDLERS
// =============================================================================

// AddPerson adds a person to the active week.
func (h *Handler) AddPerson(w http.ResponseWriter, r *http.Request) {
	var req AddPersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := h.Ctrl.AddPerson(r.Context(), req.Name)
	if err != nil {
		writeError(w, statusFor(err), "Failed to add person", err)
		return
	}
	writeJSON(w, http.StatusCreated, PersonDTO{
		Name:         p.Name,
		Headcount:    p.Headcount,
		Owner:        p.Owner,
		Reservations: []string{},
	})
}

// DeletePerson removes the person and ALL their stored rows, past weeks
// included. The ?confirm=true query parameter is mandatory.
func (h *Handler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	name := personName(r)
	if r.URL.Query().Get("confirm") != "true" {
		writeJSON(w, http.StatusConflict, DecisionDTO{
			Decision: mealplan.RequiresConfirmation.String(),
			Person:   name,
		})
		return
	}

	if err := h.Ctrl.DeletePerson(r.Context(), name); err != nil {
		writeError(w, statusFor(err), "Failed to delete person", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenamePerson changes the person's display identity going forward.
func (h *Handler) RenamePerson(w http.ResponseWriter, r *http.Request) {
	name := personName(r)
	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !h.confirmGate(w, r, name, req.Confirmed) {
		return
	}

	if err := h.Ctrl.Rename(r.Context(), name, req.NewName); err != nil {
		writeError(w, statusFor(err), "Failed to rename person", err)
		return
	}
	writeJSON(w, http.StatusOK, h.board())
}

// SetHeadcount changes the person's per-slot meal count.
func (h *Handler) SetHeadcount(w http.ResponseWriter, r *http.Request) {
	name := personName(r)
	var req HeadcountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !h.confirmGate(w, r, name, req.Confirmed) {
		return
	}

	if err := h.Ctrl.SetHeadcount(r.Context(), name, req.Headcount); err != nil {
		writeError(w, statusFor(err), "Failed to set headcount", err)
		return
	}
	writeJSON(w, http.StatusOK, h.board())
}

// ToggleSlot flips one (date, slot) reservation.
func (h *Handler) ToggleSlot(w http.ResponseWriter, r *http.Request) {
	name := personName(r)
	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := h.Cal.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	slot := mealplan.Slot(req.Slot)
	if !slot.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown slot (use 早, 中 or 晚)", nil)
		return
	}
	if !h.confirmGate(w, r, name, req.Confirmed) {
		return
	}

	if err := h.Ctrl.ToggleSlot(r.Context(), name, date, slot); err != nil {
		writeError(w, statusFor(err), "Failed to toggle slot", err)
		return
	}
	writeJSON(w, http.StatusOK, h.board())
}

// BulkEditWeek replaces the person's whole week in one action (the edit
// dialog flow).
func (h *Handler) BulkEditWeek(w http.ResponseWriter, r *http.Request) {
	name := personName(r)
	var req BulkEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !h.confirmGate(w, r, name, req.Confirmed) {
		return
	}

	keys := make([]mealplan.SlotKey, len(req.Slots))
	for i, s := range req.Slots {
		keys[i] = mealplan.SlotKey(s)
	}

	if err := h.Ctrl.BulkEditWeek(r.Context(), name, req.Headcount, keys); err != nil {
		writeError(w, statusFor(err), "Failed to edit week", err)
		return
	}
	writeJSON(w, http.StatusOK, h.board())
}

// AuthorizePerson returns the ownership decision for the acting identity,
// so the presentation can decide whether to prompt before mutating.
func (h *Handler) AuthorizePerson(w http.ResponseWriter, r *http.Request) {
	name := personName(r)
	decision, err := h.Ctrl.Authorize(r.Context(), name)
	if err != nil {
		writeError(w, statusFor(err), "Failed to authorize", err)
		return
	}
	writeJSON(w, http.StatusOK, DecisionDTO{Decision: decision.String(), Person: name})
}

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// IssueToken issues an identity token for the given user string.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	if h.Issuer == nil {
		writeError(w, http.StatusNotImplemented, "Identity is disabled on this board", nil)
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.User == "" {
		writeError(w, http.StatusBadRequest, "User must not be empty", nil)
		return
	}

	token, err := h.Issuer.Issue(req.User)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// =============================================================================
// HELPERS
// =============================================================================

// confirmGate runs the ownership check and handles the confirmation
// handshake. Returns true when the mutation may proceed.
func (h *Handler) confirmGate(w http.ResponseWriter, r *http.Request, name string, confirmed bool) bool {
	decision, err := h.Ctrl.Authorize(r.Context(), name)
	if err != nil {
		writeError(w, statusFor(err), "Failed to authorize", err)
		return false
	}
	switch decision {
	case mealplan.Deny:
		writeError(w, http.StatusForbidden, "You may not edit this person's plan",
			&mealplan.PermissionError{PersonName: name})
		return false
	case mealplan.RequiresConfirmation:
		if !confirmed {
			writeJSON(w, http.StatusConflict, DecisionDTO{Decision: decision.String(), Person: name})
			return false
		}
	}
	return true
}

func personName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		return unescaped
	}
	return raw
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, mealplan.ErrPersonNotFound):
		return http.StatusNotFound
	case errors.Is(err, mealplan.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, mealplan.ErrDuplicateName),
		errors.Is(err, mealplan.ErrCutoffPassed):
		return http.StatusConflict
	case errors.Is(err, mealplan.ErrEmptyName),
		errors.Is(err, mealplan.ErrInvalidCount),
		errors.Is(err, mealplan.ErrOutsideWeek):
		return http.StatusBadRequest
	case errors.Is(err, mealplan.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, mealplan.ErrPartialBatch):
		// Some rows persisted, some did not; writeError lists the failures.
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Detail = err.Error()
		var partial *mealplan.PartialBatchError
		if errors.As(err, &partial) {
			for _, key := range partial.FailedRows() {
				resp.FailedRows = append(resp.FailedRows, key.String())
			}
		}
	}
	writeJSON(w, status, resp)
}
