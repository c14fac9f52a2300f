package ws

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, channels ...string) *Client {
	return &Client{
		hub:      hub,
		channels: channels,
		send:     make(chan []byte, 256),
	}
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case msg := <-c.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		return received
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client did not receive message")
	}
	return Event{}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case <-c.send:
		t.Fatal("client should not have received a message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub, ChannelKitchen, ChannelFloor)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for _, ch := range []string{ChannelKitchen, ChannelFloor} {
		if !hub.rooms[ch][client] {
			t.Fatalf("client not registered in %s room", ch)
		}
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub, ChannelKitchen, ChannelFloor)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if len(hub.rooms) != 0 {
		t.Fatalf("rooms not cleaned up after last client unregistered: %v", hub.rooms)
	}
	if _, ok := <-client.send; ok {
		t.Fatal("send channel should be closed")
	}
}

func TestPublishToSingleChannel(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	cook := mockClient(hub, ChannelKitchen)
	server := mockClient(hub, ChannelFloor)
	hub.register <- cook
	hub.register <- server
	time.Sleep(10 * time.Millisecond)

	hub.Publish(ChannelKitchen, EventOrderCreated, map[string]any{"order_number": 7})

	received := receive(t, cook)
	if received.Type != EventOrderCreated {
		t.Errorf("expected type %q, got %q", EventOrderCreated, received.Type)
	}
	if string(received.Payload) != `{"order_number":7}` {
		t.Errorf("unexpected payload %s", received.Payload)
	}
	expectNothing(t, server)
}

func TestPublishToMultipleClientsOnChannel(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	clients := []*Client{
		mockClient(hub, ChannelFloor),
		mockClient(hub, ChannelFloor),
		mockClient(hub, ChannelKitchen, ChannelFloor),
	}
	for _, c := range clients {
		hub.register <- c
	}
	time.Sleep(10 * time.Millisecond)

	hub.Publish(ChannelFloor, EventTableState, map[string]string{"state": "SERVED"})

	for i, c := range clients {
		if got := receive(t, c).Type; got != EventTableState {
			t.Errorf("client%d: expected type %q, got %q", i+1, EventTableState, got)
		}
	}
}

func TestTableChannelIsolation(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	t1, t2 := uuid.New(), uuid.New()
	table1 := mockClient(hub, TableChannel(t1))
	table2 := mockClient(hub, TableChannel(t2))
	hub.register <- table1
	hub.register <- table2
	time.Sleep(10 * time.Millisecond)

	hub.Publish(TableChannel(t2), EventOrderStatus, map[string]string{"status": "READY"})

	expectNothing(t, table1)
	if got := receive(t, table2).Type; got != EventOrderStatus {
		t.Fatalf("expected %q, got %q", EventOrderStatus, got)
	}
}

func TestPublishToEmptyChannel(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	cook := mockClient(hub, ChannelKitchen)
	hub.register <- cook
	time.Sleep(10 * time.Millisecond)

	hub.Publish(ChannelFinance, EventExpenseRecorded, map[string]string{"amount": "1000.00"})
	expectNothing(t, cook)
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	slow := &Client{hub: hub, channels: []string{ChannelKitchen, ChannelFloor}, send: make(chan []byte, 1)}
	hub.register <- slow
	time.Sleep(10 * time.Millisecond)

	hub.Publish(ChannelKitchen, EventOrderCreated, 1)
	hub.Publish(ChannelKitchen, EventOrderCreated, 2)
	time.Sleep(20 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if len(hub.rooms) != 0 {
		t.Fatalf("slow client still registered: %v", hub.rooms)
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client1 := mockClient(hub, ChannelFloor)
	client2 := mockClient(hub, ChannelFloor)
	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[ChannelFloor]) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(hub.rooms[ChannelFloor]))
	}
	hub.mu.RUnlock()

	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[ChannelFloor]) != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", len(hub.rooms[ChannelFloor]))
	}
	hub.mu.RUnlock()

	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if hub.rooms[ChannelFloor] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
	hub.mu.RUnlock()
}

func TestChannelsFor(t *testing.T) {
	tableID := uuid.New()
	tests := []struct {
		role    string
		tableID uuid.UUID
		want    []string
	}{
		{"COOK", uuid.Nil, []string{ChannelKitchen}},
		{"SERVER", uuid.Nil, []string{ChannelFloor}},
		{"ACCOUNTANT", uuid.Nil, []string{ChannelFinance}},
		{"ADMIN", uuid.Nil, []string{ChannelKitchen, ChannelFloor, ChannelFinance}},
		{"TABLE", tableID, []string{TableChannel(tableID)}},
		{"GHOST", uuid.Nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			if got := ChannelsFor(tt.role, tt.tableID); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}
