package realtime

import (
	"encoding/json"
	"fmt"
	"testing"
)

func drain(t *testing.T, sub *Subscription) Envelope {
	t.Helper()
	select {
	case data := <-sub.C():
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		return env
	default:
		t.Fatal("no event buffered")
	}
	return Envelope{}
}

func TestPublishReachesRoomMembersOnly(t *testing.T) {
	h := NewHub()
	inRoom := h.Subscribe([]string{RestaurantRoom("r1")})
	other := h.Subscribe([]string{RestaurantRoom("r2")})

	h.Publish(RestaurantRoom("r1"), EventItemAdded, map[string]string{"itemId": "t-1"})

	env := drain(t, inRoom)
	if env.Event != EventItemAdded {
		t.Fatalf("event = %s", env.Event)
	}
	select {
	case <-other.C():
		t.Fatal("event leaked into another room")
	default:
	}
}

func TestPublishPreservesOrderPerRoom(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe([]string{RestaurantRoom("r1")})

	for i := 0; i < 10; i++ {
		h.Publish(RestaurantRoom("r1"), EventItemUpdated, map[string]int{"seq": i})
	}
	for i := 0; i < 10; i++ {
		env := drain(t, sub)
		payload := env.Payload.(map[string]interface{})
		if int(payload["seq"].(float64)) != i {
			t.Fatalf("event %d arrived out of order: %v", i, payload)
		}
	}
}

func TestSlowConsumerDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe([]string{RestaurantRoom("r1")})

	// Overfill the buffer; the publisher must never block.
	for i := 0; i < subscriberBuffer+10; i++ {
		h.Publish(RestaurantRoom("r1"), EventItemUpdated, map[string]int{"seq": i})
	}
	if got := len(sub.C()); got != subscriberBuffer {
		t.Fatalf("buffered %d events, want %d", got, subscriberBuffer)
	}
	// The retained prefix is still in order.
	env := drain(t, sub)
	if int(env.Payload.(map[string]interface{})["seq"].(float64)) != 0 {
		t.Fatal("oldest event was not retained first")
	}
}

func TestSubscribeMultipleRooms(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe([]string{RestaurantRoom("r1"), CustomerRoom("c1")})

	h.Publish(RestaurantRoom("r1"), EventItemAdded, nil)
	h.Publish(CustomerRoom("c1"), EventBookingStatusChanged, nil)

	if got := drain(t, sub).Event; got != EventItemAdded {
		t.Fatalf("first event = %s", got)
	}
	if got := drain(t, sub).Event; got != EventBookingStatusChanged {
		t.Fatalf("second event = %s", got)
	}
}

func TestJoinExpandsSubscription(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe(nil)

	sub.Join([]string{RestaurantRoom("r1")})
	if h.RoomSize(RestaurantRoom("r1")) != 1 {
		t.Fatal("join did not register membership")
	}
	h.Publish(RestaurantRoom("r1"), EventItemAdded, nil)
	if got := drain(t, sub).Event; got != EventItemAdded {
		t.Fatalf("event = %s", got)
	}

	// Joining the same room twice keeps a single membership.
	sub.Join([]string{RestaurantRoom("r1")})
	if h.RoomSize(RestaurantRoom("r1")) != 1 {
		t.Fatal("duplicate join doubled the membership")
	}

	sub.Close()
	sub.Join([]string{RestaurantRoom("r1")})
	if h.RoomSize(RestaurantRoom("r1")) != 0 {
		t.Fatal("closed subscription rejoined a room")
	}
}

func TestCloseRemovesMembership(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe([]string{RestaurantRoom("r1")})
	if h.RoomSize(RestaurantRoom("r1")) != 1 {
		t.Fatal("subscription not registered")
	}

	sub.Close()
	if h.RoomSize(RestaurantRoom("r1")) != 0 {
		t.Fatal("subscription survived Close")
	}

	h.Publish(RestaurantRoom("r1"), EventItemAdded, nil)
	select {
	case <-sub.C():
		t.Fatal("closed subscription still receives events")
	default:
	}

	// Close is idempotent.
	sub.Close()
}

func TestPublishForwardsToBridge(t *testing.T) {
	h := NewHub()
	var bridged []string
	h.SetBridge(func(room string, data []byte) {
		bridged = append(bridged, fmt.Sprintf("%s:%s", room, mustEvent(data)))
	})
	sub := h.Subscribe([]string{RestaurantRoom("r1")})

	h.Publish(RestaurantRoom("r1"), EventTableReserved, nil)

	if len(bridged) != 1 || bridged[0] != RestaurantRoom("r1")+":"+EventTableReserved {
		t.Fatalf("bridged = %v", bridged)
	}
	// Local delivery still happens alongside the bridge.
	if got := drain(t, sub).Event; got != EventTableReserved {
		t.Fatalf("local event = %s", got)
	}
}

func mustEvent(data []byte) string {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "?"
	}
	return env.Event
}
