package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/juju/loggo"
	"github.com/restopos/api/internal/access"
)

var logger = loggo.GetLogger("restopos.ws")

// Channels a client can be subscribed to.
const (
	ChannelKitchen = "kitchen"
	ChannelFloor   = "floor"
	ChannelFinance = "finance"
)

// Event types published by the API.
const (
	EventOrderCreated     = "order.created"
	EventOrderStatus      = "order.status_changed"
	EventTableState       = "table.state_changed"
	EventPaymentValidated = "payment.validated"
	EventExpenseRecorded  = "expense.recorded"
	EventDishAvailability = "dish.availability_changed"
)

// TableChannel is the channel of a single table's own devices.
func TableChannel(tableID uuid.UUID) string {
	return "table:" + tableID.String()
}

// ChannelsFor returns the channels a caller is subscribed to on connect.
// Staff get one channel per area they can act on; a table only hears
// about itself.
func ChannelsFor(role string, tableID uuid.UUID) []string {
	policy := access.For(role)
	var channels []string
	if policy.Can(access.AdvanceKitchen) {
		channels = append(channels, ChannelKitchen)
	}
	if policy.Can(access.ServeTables) {
		channels = append(channels, ChannelFloor)
	}
	if policy.Can(access.ViewFinance) {
		channels = append(channels, ChannelFinance)
	}
	if tableID != uuid.Nil {
		channels = append(channels, TableChannel(tableID))
	}
	return channels
}

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// roomEvent routes an event to one channel.
type roomEvent struct {
	Channel string
	Event   Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by channel
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	broadcast chan *roomEvent

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			for _, ch := range client.channels {
				if h.rooms[ch] == nil {
					h.rooms[ch] = make(map[*Client]bool)
				}
				h.rooms[ch][client] = true
			}
			h.mu.Unlock()
			logger.Debugf("client subscribed to %v", client.channels)

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				logger.Errorf("marshal %s event: %v", event.Event.Type, err)
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.Channel] {
				select {
				case client.send <- message:
				default:
					// Send buffer full: the client is too slow, drop it.
					logger.Warningf("dropping slow client on %s", event.Channel)
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes a client from every room and closes its send channel once.
// Caller holds h.mu.
func (h *Hub) drop(client *Client) {
	removed := false
	for _, ch := range client.channels {
		clients, ok := h.rooms[ch]
		if !ok || !clients[client] {
			continue
		}
		delete(clients, client)
		removed = true
		if len(clients) == 0 {
			delete(h.rooms, ch)
		}
	}
	if removed {
		close(client.send)
	}
}

// Publish marshals payload and queues it for every client on channel.
// It never blocks the caller on slow clients.
func (h *Hub) Publish(channel, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Errorf("marshal %s payload: %v", eventType, err)
		return
	}
	select {
	case h.broadcast <- &roomEvent{Channel: channel, Event: Event{Type: eventType, Payload: raw}}:
	default:
		logger.Warningf("broadcast queue full, %s event for %s dropped", eventType, channel)
	}
}
