package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/session-scheduler/internal/application"
)

type calendarService interface {
	Events(ctx context.Context, params application.CalendarParams) (application.CalendarView, error)
}

type CalendarHandler struct {
	service   calendarService
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

func NewCalendarHandler(service calendarService, loc *time.Location, logger *slog.Logger) *CalendarHandler {
	base := defaultLogger(logger)
	if loc == nil {
		loc = time.UTC
	}
	return &CalendarHandler{service: service, location: loc, responder: newResponder(base), logger: base}
}

func (h *CalendarHandler) Events(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
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

	principal, _ := PrincipalFromContext(r.Context())
	logger := handlerLogger(r.Context(), h.logger, "CalendarHandler", "Events", "principal_id", principal.UserID)

	view, err := h.service.Events(r.Context(), application.CalendarParams{
		Principal: principal,
		Start:     start,
		End:       end,
		GMID:      strings.TrimSpace(query.Get("user_id")),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "calendar feed failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	events := make([]calendarEventDTO, 0, len(view.Events))
	for _, event := range view.Events {
		events = append(events, calendarEventDTO{
			ID:      event.Session.ID,
			Title:   event.Session.Title,
			Start:   formatTime(event.Start),
			End:     formatTime(event.End),
			Session: toSessionDTO(event.Session),
		})
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, calendarResponse{
		Events:    events,
		Range:     rangeDTO{Start: formatTime(view.Start), End: formatTime(view.End)},
		CanCreate: view.CanCreate,
	})
}

type calendarResponse struct {
	Events    []calendarEventDTO `json:"events"`
	Range     rangeDTO           `json:"range"`
	CanCreate bool               `json:"can_create"`
}

type calendarEventDTO struct {
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Start   string     `json:"start"`
	End     string     `json:"end"`
	Session sessionDTO `json:"resource"`
}
