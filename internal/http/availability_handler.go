package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/session-scheduler/internal/application"
)

const defaultOccurrenceWindow = 28 * 24 * time.Hour

type availabilityService interface {
	Validate(ctx context.Context, principal application.Principal, input application.AvailabilityInput) (application.Availability, error)
	CreateAvailability(ctx context.Context, params application.CreateAvailabilityParams) (application.Availability, error)
	ListAvailabilities(ctx context.Context, params application.ListAvailabilitiesParams) ([]application.Availability, error)
	ListAvailabilitiesWithOwners(ctx context.Context, principal application.Principal) ([]application.AvailabilityWithOwner, error)
	UpdateAvailability(ctx context.Context, params application.UpdateAvailabilityParams) (application.Availability, error)
	DeleteAvailability(ctx context.Context, principal application.Principal, availabilityID string) error
	Occurrences(ctx context.Context, principal application.Principal, availabilityID string, from, to time.Time) ([]application.Occurrence, error)
}

type AvailabilityHandler struct {
	service   availabilityService
	location  *time.Location
	now       func() time.Time
	responder responder
	logger    *slog.Logger
}

// NewAvailabilityHandler builds the availability endpoints. Bare dates in
// query strings are interpreted in loc.
func NewAvailabilityHandler(service availabilityService, loc *time.Location, logger *slog.Logger) *AvailabilityHandler {
	base := defaultLogger(logger)
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityHandler{service: service, location: loc, now: time.Now, responder: newResponder(base), logger: base}
}

func (h *AvailabilityHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AvailabilityHandler", operation, attrs...)
}

func (h *AvailabilityHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	ownOnly, err := queryBool(r.URL.Query(), "user")
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, invalidParameter("user"))
		return
	}

	logger := h.log(r.Context(), "List", "principal_id", principal.UserID, "own_only", ownOnly)
	availabilities, err := h.service.ListAvailabilities(r.Context(), application.ListAvailabilitiesParams{
		Principal: principal,
		OwnOnly:   ownOnly,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "availability list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(availabilities)).InfoContext(r.Context(), "availabilities listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAvailabilitiesResponse{Availabilities: toAvailabilityDTOs(availabilities)})
}

// ListWithOwners returns every availability decorated with its owner. GM and admin only.
func (h *AvailabilityHandler) ListWithOwners(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ListWithOwners", "principal_id", principal.UserID)

	rows, err := h.service.ListAvailabilitiesWithOwners(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "player availability list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, playerAvailabilityResponse{PlayerAvailability: toPlayerAvailabilityDTOs(rows)})
}

func (h *AvailabilityHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req application.AvailabilityInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode availability", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)
	availability, err := h.service.CreateAvailability(r.Context(), application.CreateAvailabilityParams{
		Principal: principal,
		Input:     req,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "availability creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("availability_id", availability.ID).InfoContext(r.Context(), "availability created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, availabilityResponse{Availability: toAvailabilityDTO(availability)})
}

// Validate runs the creation checks without persisting anything.
func (h *AvailabilityHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req application.AvailabilityInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Validate", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode availability", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	availability, err := h.service.Validate(r.Context(), principal, req)
	if err != nil {
		h.log(r.Context(), "Validate", "principal_id", principal.UserID).InfoContext(r.Context(), "availability rejected", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, validateAvailabilityResponse{
		Message:      "Availability is valid.",
		Availability: toAvailabilityDTO(availability),
	})
}

func (h *AvailabilityHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	availabilityID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(availabilityID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing availability id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req availabilityPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "availability_id", availabilityID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode availability update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "availability_id", availabilityID)
	availability, err := h.service.UpdateAvailability(r.Context(), application.UpdateAvailabilityParams{
		Principal:      principal,
		AvailabilityID: availabilityID,
		Patch:          req.toPatch(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "availability update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "availability updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{Availability: toAvailabilityDTO(availability)})
}

func (h *AvailabilityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	availabilityID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(availabilityID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing availability id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "availability_id", availabilityID)
	if err := h.service.DeleteAvailability(r.Context(), principal, availabilityID); err != nil {
		logger.ErrorContext(r.Context(), "availability delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "availability deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Occurrences expands one availability for the requested window, four weeks
// from today by default.
func (h *AvailabilityHandler) Occurrences(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	availabilityID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(availabilityID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	query := r.URL.Query()
	start, err := optionalDate(query, "start_date", h.location)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, invalidParameter("start_date"))
		return
	}
	end, err := optionalDate(query, "end_date", h.location)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, invalidParameter("end_date"))
		return
	}

	if start == nil {
		now := h.now().In(h.location)
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.location)
		start = &today
	}
	if end == nil {
		defaultEnd := start.Add(defaultOccurrenceWindow)
		end = &defaultEnd
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Occurrences", "principal_id", principal.UserID, "availability_id", availabilityID)

	occurrences, err := h.service.Occurrences(r.Context(), principal, availabilityID, *start, *end)
	if err != nil {
		logger.ErrorContext(r.Context(), "occurrence expansion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, occurrencesResponse{
		Occurrences: toOccurrenceDTOs(occurrences),
		Range:       rangeDTO{Start: formatTime(*start), End: formatTime(*end)},
	})
}

type availabilityPatchRequest struct {
	Name         *string  `json:"name"`
	SelectedDays []string `json:"selected_days"`
	TimeOption   *string  `json:"time_option"`
	StartTime    *string  `json:"start_time"`
	EndTime      *string  `json:"end_time"`
	RepeatOption *string  `json:"repeat_option"`
	RepeatWeeks  *int     `json:"repeat_weeks"`
}

func (r availabilityPatchRequest) toPatch() application.AvailabilityPatch {
	return application.AvailabilityPatch{
		Name:         r.Name,
		SelectedDays: r.SelectedDays,
		TimeOption:   r.TimeOption,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		RepeatOption: r.RepeatOption,
		RepeatWeeks:  r.RepeatWeeks,
	}
}

type availabilityResponse struct {
	Availability availabilityDTO `json:"availability"`
}

type validateAvailabilityResponse struct {
	Message      string          `json:"message"`
	Availability availabilityDTO `json:"availability"`
}

type listAvailabilitiesResponse struct {
	Availabilities []availabilityDTO `json:"availabilities"`
}

type playerAvailabilityResponse struct {
	PlayerAvailability []playerAvailabilityDTO `json:"player_availability"`
}

type occurrencesResponse struct {
	Occurrences []occurrenceDTO `json:"occurrences"`
	Range       rangeDTO        `json:"range"`
}

type availabilityDTO struct {
	ID           string   `json:"id"`
	UserID       string   `json:"user_id"`
	Name         string   `json:"name"`
	SelectedDays []string `json:"selected_days"`
	TimeOption   string   `json:"time_option"`
	StartTime    *string  `json:"start_time"`
	EndTime      *string  `json:"end_time"`
	RepeatOption string   `json:"repeat_option"`
	RepeatWeeks  *int     `json:"repeat_weeks"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

type playerAvailabilityDTO struct {
	availabilityDTO
	OwnerName  string `json:"user_name"`
	OwnerEmail string `json:"user_email"`
}

type occurrenceDTO struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	AllDay bool   `json:"all_day"`
}

type rangeDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func toAvailabilityDTO(a application.Availability) availabilityDTO {
	days := make([]string, 0, len(a.SelectedDays))
	for _, day := range a.SelectedDays {
		days = append(days, day.String())
	}
	return availabilityDTO{
		ID:           a.ID,
		UserID:       a.UserID,
		Name:         a.Name,
		SelectedDays: days,
		TimeOption:   string(a.TimeOption),
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
		RepeatOption: string(a.RepeatOption),
		RepeatWeeks:  a.RepeatWeeks,
		CreatedAt:    formatTime(a.CreatedAt),
		UpdatedAt:    formatTime(a.UpdatedAt),
	}
}

func toAvailabilityDTOs(availabilities []application.Availability) []availabilityDTO {
	out := make([]availabilityDTO, 0, len(availabilities))
	for _, a := range availabilities {
		out = append(out, toAvailabilityDTO(a))
	}
	return out
}

func toPlayerAvailabilityDTOs(rows []application.AvailabilityWithOwner) []playerAvailabilityDTO {
	out := make([]playerAvailabilityDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, playerAvailabilityDTO{
			availabilityDTO: toAvailabilityDTO(row.Availability),
			OwnerName:       row.OwnerName,
			OwnerEmail:      row.OwnerEmail,
		})
	}
	return out
}

func toOccurrenceDTOs(occurrences []application.Occurrence) []occurrenceDTO {
	out := make([]occurrenceDTO, 0, len(occurrences))
	for _, occ := range occurrences {
		out = append(out, occurrenceDTO{Start: formatTime(occ.Start), End: formatTime(occ.End), AllDay: occ.AllDay})
	}
	return out
}
