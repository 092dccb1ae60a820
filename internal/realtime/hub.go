package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// subscriber is one delivery endpoint: a buffered channel of marshalled
// envelopes. The websocket layer drains it into the socket; tests drain it
// directly.
type subscriber struct {
	ch    chan []byte
	rooms map[string]struct{}
}

// Hub is the in-process event router. It keeps a registry of subscribers
// per room and copies each published event into every member's buffer. A
// subscriber that cannot keep up has its event dropped rather than blocking
// the publisher; clients treat the stream as lossy anyway.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*subscriber]struct{}

	// bridge, when set, re-publishes local events to other instances.
	bridge func(room string, data []byte)
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*subscriber]struct{})}
}

// SetBridge installs a cross-instance relay invoked for every locally
// published event. Must be called before the hub starts serving.
func (h *Hub) SetBridge(fn func(room string, data []byte)) { h.bridge = fn }

// Subscription is a live membership of one client in a set of rooms.
type Subscription struct {
	hub    *Hub
	sub    *subscriber
	closed bool
}

// C returns the channel events are delivered on.
func (s *Subscription) C() <-chan []byte { return s.sub.ch }

// Join adds the subscription to more rooms. Rooms already joined and
// subscriptions already closed are no-ops.
func (s *Subscription) Join(rooms []string) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if s.closed {
		return
	}
	for _, room := range rooms {
		if _, ok := s.sub.rooms[room]; ok {
			continue
		}
		s.sub.rooms[room] = struct{}{}
		members, ok := s.hub.rooms[room]
		if !ok {
			members = make(map[*subscriber]struct{})
			s.hub.rooms[room] = members
		}
		members[s.sub] = struct{}{}
	}
}

// Close removes the subscription from every room and releases its buffer.
// Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.closed = true
	for room := range s.sub.rooms {
		members, ok := s.hub.rooms[room]
		if !ok {
			continue
		}
		delete(members, s.sub)
		if len(members) == 0 {
			delete(s.hub.rooms, room)
		}
	}
	s.sub.rooms = map[string]struct{}{}
}

// subscriberBuffer is how many undelivered events one subscription may hold
// before further events are dropped for it.
const subscriberBuffer = 64

// Subscribe registers a new subscription joined to the given rooms.
func (h *Hub) Subscribe(rooms []string) *Subscription {
	sub := &subscriber{
		ch:    make(chan []byte, subscriberBuffer),
		rooms: make(map[string]struct{}, len(rooms)),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range rooms {
		sub.rooms[room] = struct{}{}
		members, ok := h.rooms[room]
		if !ok {
			members = make(map[*subscriber]struct{})
			h.rooms[room] = members
		}
		members[sub] = struct{}{}
	}
	return &Subscription{hub: h, sub: sub}
}

// Publish marshals the event once and delivers it to every member of the
// room, then hands it to the bridge for other instances.
func (h *Hub) Publish(room, event string, payload interface{}) {
	data, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		log.Printf("realtime: marshal %s: %v", event, err)
		return
	}
	h.deliver(room, data)
	if h.bridge != nil {
		h.bridge(room, data)
	}
}

// deliver fans a marshalled envelope out to the room's local members.
func (h *Hub) deliver(room string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.rooms[room] {
		select {
		case sub.ch <- data:
		default:
			// Slow consumer: drop this event for it.
		}
	}
}

// RoomSize reports how many subscriptions a room currently has.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
