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

type sessionService interface {
	CreateSession(ctx context.Context, params application.CreateSessionParams) (application.Session, error)
	ListSessions(ctx context.Context, params application.ListSessionsParams) ([]application.Session, error)
	GetSession(ctx context.Context, principal application.Principal, sessionID string) (application.Session, error)
	NextSession(ctx context.Context, principal application.Principal) (*application.Session, error)
	UpdateSession(ctx context.Context, params application.UpdateSessionParams) (application.Session, error)
	DeleteSession(ctx context.Context, principal application.Principal, sessionID string) error
	AvailablePlayers(ctx context.Context, principal application.Principal, sessionID string) ([]application.AvailabilityWithOwner, error)
}

type SessionHandler struct {
	service   sessionService
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

func NewSessionHandler(service sessionService, loc *time.Location, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	if loc == nil {
		loc = time.UTC
	}
	return &SessionHandler{service: service, location: loc, responder: newResponder(base), logger: base}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params, err := h.listParams(r, principal)
	if err != nil {
		h.log(r.Context(), "List", "principal_id", principal.UserID, "error_kind", "bad_request").InfoContext(r.Context(), "invalid session filters", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)
	sessions, err := h.service.ListSessions(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "session list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(sessions)).InfoContext(r.Context(), "sessions listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSessionsResponse{Sessions: toSessionDTOs(sessions)})
}

func (h *SessionHandler) listParams(r *http.Request, principal application.Principal) (application.ListSessionsParams, error) {
	query := r.URL.Query()
	params := application.ListSessionsParams{
		Principal: principal,
		GMID:      strings.TrimSpace(query.Get("user_id")),
	}

	var err error
	if params.Upcoming, err = queryBool(query, "upcoming"); err != nil {
		return params, invalidParameter("upcoming")
	}
	if params.StartDate, err = optionalDate(query, "start_date", h.location); err != nil {
		return params, invalidParameter("start_date")
	}
	if params.EndDate, err = optionalDate(query, "end_date", h.location); err != nil {
		return params, invalidParameter("end_date")
	}
	if params.Limit, err = queryInt(query, "limit"); err != nil {
		return params, invalidParameter("limit")
	}
	return params, nil
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode session", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput(h.location)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)
	session, err := h.service.CreateSession(r.Context(), application.CreateSessionParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "session creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("session_id", session.ID).InfoContext(r.Context(), "session created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	session, err := h.service.GetSession(r.Context(), principal, sessionID)
	if err != nil {
		h.log(r.Context(), "Get", "principal_id", principal.UserID, "session_id", sessionID).ErrorContext(r.Context(), "session lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

// Next returns the earliest upcoming session, or null when none is scheduled.
func (h *SessionHandler) Next(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	next, err := h.service.NextSession(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "Next", "principal_id", principal.UserID).ErrorContext(r.Context(), "next session lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := nextSessionResponse{}
	if next != nil {
		dto := toSessionDTO(*next)
		resp.NextSession = &dto
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing session id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "session_id", sessionID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode session update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	patch, err := req.toPatch(h.location)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "session_id", sessionID)
	session, err := h.service.UpdateSession(r.Context(), application.UpdateSessionParams{
		Principal: principal,
		SessionID: sessionID,
		Patch:     patch,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "session update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "session updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing session id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "session_id", sessionID)
	if err := h.service.DeleteSession(r.Context(), principal, sessionID); err != nil {
		logger.ErrorContext(r.Context(), "session delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "session deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// AvailablePlayers lists the availabilities that cover the session start.
func (h *SessionHandler) AvailablePlayers(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "AvailablePlayers", "principal_id", principal.UserID, "session_id", sessionID)

	rows, err := h.service.AvailablePlayers(r.Context(), principal, sessionID)
	if err != nil {
		logger.ErrorContext(r.Context(), "available player lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(rows)).InfoContext(r.Context(), "available players listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, playerAvailabilityResponse{PlayerAvailability: toPlayerAvailabilityDTOs(rows)})
}

// sessionRequest accepts the session date under either "date" or
// "session_date"; "date" wins when both are present.
type sessionRequest struct {
	Title       *string `json:"title"`
	Date        *string `json:"date"`
	SessionDate *string `json:"session_date"`
	Duration    *int    `json:"duration"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
	MaxPlayers  *int    `json:"max_players"`
}

func (r sessionRequest) date(loc *time.Location) (*time.Time, error) {
	raw := r.Date
	if raw == nil || strings.TrimSpace(*raw) == "" {
		raw = r.SessionDate
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := parseDate(*raw, loc)
	if err != nil {
		return nil, invalidParameter("date")
	}
	return &parsed, nil
}

func (r sessionRequest) toInput(loc *time.Location) (application.SessionInput, error) {
	date, err := r.date(loc)
	if err != nil {
		return application.SessionInput{}, err
	}
	input := application.SessionInput{
		Duration:    r.Duration,
		Location:    r.Location,
		Description: r.Description,
		MaxPlayers:  r.MaxPlayers,
	}
	if r.Title != nil {
		input.Title = *r.Title
	}
	if date != nil {
		input.Date = *date
	}
	return input, nil
}

func (r sessionRequest) toPatch(loc *time.Location) (application.SessionPatch, error) {
	date, err := r.date(loc)
	if err != nil {
		return application.SessionPatch{}, err
	}
	return application.SessionPatch{
		Title:       r.Title,
		Date:        date,
		Duration:    r.Duration,
		Location:    r.Location,
		Description: r.Description,
		MaxPlayers:  r.MaxPlayers,
	}, nil
}

type sessionResponse struct {
	Session sessionDTO `json:"session"`
}

type listSessionsResponse struct {
	Sessions []sessionDTO `json:"sessions"`
}

type nextSessionResponse struct {
	NextSession *sessionDTO `json:"next_session"`
}

type sessionDTO struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Date        string  `json:"date"`
	SessionDate string  `json:"session_date"`
	GMID        string  `json:"gm_id"`
	Duration    *int    `json:"duration"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
	MaxPlayers  *int    `json:"max_players"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toSessionDTO(session application.Session) sessionDTO {
	date := formatTime(session.Date)
	return sessionDTO{
		ID:          session.ID,
		Title:       session.Title,
		Date:        date,
		SessionDate: date,
		GMID:        session.GMID,
		Duration:    session.Duration,
		Location:    session.Location,
		Description: session.Description,
		MaxPlayers:  session.MaxPlayers,
		CreatedAt:   formatTime(session.CreatedAt),
		UpdatedAt:   formatTime(session.UpdatedAt),
	}
}

func toSessionDTOs(sessions []application.Session) []sessionDTO {
	out := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionDTO(session))
	}
	return out
}
