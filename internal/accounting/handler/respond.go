// Package handler serves the accountant's endpoints: dashboard, payments,
// expenses and the period report with its export.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/juju/loggo"
	"github.com/restopos/api/internal/middleware"
	"github.com/restopos/api/internal/service"
)

var logger = loggo.GetLogger("restopos.accounting")

const (
	dateLayout      = "2006-01-02"
	defaultPageSize = 50
	maxPageSize     = 500
)

// Publisher pushes live events to websocket subscribers.
// Satisfied by *ws.Hub.
type Publisher interface {
	Publish(channel, eventType string, payload any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, string, any) {}

// --- Helper functions ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("failed to encode JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeServiceError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch service.KindOf(err) {
	case service.KindValidation:
		status = http.StatusBadRequest
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindPermission:
		status = http.StatusForbidden
	case service.KindState, service.KindIntegrity:
		status = http.StatusConflict
	default:
		logger.Errorf("%s: %v", op, err)
	}
	writeError(w, status, service.Message(err))
}

func actorFromRequest(r *http.Request) (service.Actor, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		return service.Actor{}, false
	}
	return service.ActorFromClaims(claims), true
}

// parsePeriod reads start_date/end_date (inclusive, YYYY-MM-DD) in loc.
func parsePeriod(r *http.Request, loc *time.Location, now time.Time) (service.Period, error) {
	q := r.URL.Query()
	return service.ParsePeriod(q.Get("start_date"), q.Get("end_date"), loc, now)
}

func parsePagination(r *http.Request) (int32, int32) {
	limit := defaultPageSize
	offset := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		offset = v
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return int32(limit), int32(offset)
}
