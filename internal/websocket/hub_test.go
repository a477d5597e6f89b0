package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, familyID int64) *Client {
	return &Client{
		hub:      hub,
		conn:     nil,
		familyID: familyID,
		send:     make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 1)

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(1); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)

	if got := hub.ClientCount(1); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)

	if got := hub.ClientCount(1); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(1); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcastFamilyScoped(t *testing.T) {
	hub := NewHub(slog.Default())

	sameFamily := mockClient(hub, 1)
	otherFamily := mockClient(hub, 2)
	hub.Register(sameFamily)
	hub.Register(otherFamily)

	hub.BroadcastFamily(1, Message{Type: EventGoalCompleted, MemberID: 7, GoalID: 42})

	select {
	case data := <-sameFamily.send:
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Type != EventGoalCompleted {
			t.Errorf("type = %s, want %s", got.Type, EventGoalCompleted)
		}
		if got.GoalID != 42 {
			t.Errorf("goal id = %d, want 42", got.GoalID)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}

	select {
	case <-otherFamily.send:
		t.Error("other family should not receive the message")
	default:
	}

	hub.Unregister(sameFamily)
	hub.Unregister(otherFamily)
}

func TestBroadcastNoFamily(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)

	hub.BroadcastFamily(0, Message{Type: EventRankChanged})

	select {
	case <-c.send:
		t.Error("family-less broadcast should go nowhere")
	default:
	}
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.BroadcastFamily(1, Message{Type: EventRewardGranted})
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, 1)
	hub.Register(c)

	// Fill the send buffer
	for i := 0; i < sendBufferSize; i++ {
		hub.BroadcastFamily(1, Message{Type: EventTaskCompleted, GoalID: int64(i)})
	}

	// This should drop the message, not panic or block
	hub.BroadcastFamily(1, Message{Type: EventTaskCompleted, GoalID: 999})

	// Drain to verify buffer was full
	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	// Spawn goroutines that register, broadcast, and unregister concurrently
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub, 1)
			hub.Register(c)
			hub.BroadcastFamily(1, Message{Type: EventRankChanged})
			// Drain any messages
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(1); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func TestBroadcastAllCrossesFamilies(t *testing.T) {
	hub := NewHub(slog.Default())
	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 2)
	hub.Register(c1)
	hub.Register(c2)

	hub.BroadcastAll(Message{Type: EventCounterReset, Extra: map[string]any{"period": "daily"}})

	for i, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if msg.Type != EventCounterReset {
				t.Errorf("client %d: type = %q, want %q", i+1, msg.Type, EventCounterReset)
			}
		case <-time.After(time.Second):
			t.Fatalf("client %d received nothing", i+1)
		}
	}
}
