package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/juju/loggo"
	"github.com/restopos/api/internal/service"
	"github.com/restopos/api/internal/ws"
)

var logger = loggo.GetLogger("restopos.handler")

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Publisher pushes live events to websocket subscribers.
// Satisfied by *ws.Hub. Handlers publish only after the service committed.
type Publisher interface {
	Publish(channel, eventType string, payload any)
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(string, string, any) {}

func publisherOrNop(p Publisher) Publisher {
	if p == nil {
		return NopPublisher{}
	}
	return p
}

// mutationResponse wraps the result of every write endpoint.
type mutationResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

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

func writeMutation(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, mutationResponse{Message: message, Data: data})
}

// writeServiceError maps a service error to its HTTP status. Internal errors
// are logged with op and answered with a generic message.
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

// internalError answers a store failure. Database errors the service layer
// can classify, such as a value overflowing its column, keep their status.
func internalError(w http.ResponseWriter, op string, err error) {
	if service.KindOf(err) != service.KindInternal {
		writeServiceError(w, op, err)
		return
	}
	logger.Errorf("%s: %v", op, err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// parsePagination reads limit/offset, defaulting to 20 and capping at 100.
func parsePagination(r *http.Request) (int32, int32) {
	limit := defaultPageSize
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	return int32(limit), int32(offset)
}

// publishTable announces a table's state to the floor and to the table itself.
func publishTable(p Publisher, table tableEvent) {
	p.Publish(ws.ChannelFloor, ws.EventTableState, table)
	p.Publish(ws.TableChannel(table.ID), ws.EventTableState, table)
}

type tableEvent struct {
	ID          uuid.UUID `json:"id"`
	TableNumber string    `json:"table_number"`
	State       string    `json:"state"`
}
