// Package presence tracks which memberships are considered active per
// room. The tracked set is adjusted by domain events (join, leave),
// the live websocket connections are merged in on every read via the
// ConnectionSource. Both sources are merged, not alternatives: a
// membership may be active by policy before its socket connects, and
// the connection table is the source of truth once connected.
package presence

import (
	"sync"
	"time"
)

// ConnectionSource reports the membership ids with a live connection
// in a room. Implemented by the websocket hub set.
type ConnectionSource interface {
	ConnectedMembers(roomId string) []string
}

// Tracker keeps the explicit per-room active sets. It is the only
// in-process mutable shared state, guarded by one RWMutex (contention
// is low, connect/disconnect rates are human-scale).
type Tracker struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]time.Time // roomId -> memberId -> tracked since
	source ConnectionSource
}

func NewTracker(source ConnectionSource) *Tracker {
	return &Tracker{
		rooms:  make(map[string]map[string]time.Time),
		source: source,
	}
}

// SetSource replaces the connection source. Used at startup when the
// hub set is created after the tracker, and in tests.
func (t *Tracker) SetSource(source ConnectionSource) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.source = source
}

// TrackActive marks the membership active regardless of any socket.
func (t *Tracker) TrackActive(roomId, memberId string) {
	if roomId == "" || memberId == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	room := t.rooms[roomId]
	if room == nil {
		room = make(map[string]time.Time)
		t.rooms[roomId] = room
	}
	if _, ok := room[memberId]; !ok {
		room[memberId] = time.Now()
	}
}

// ClearActive removes the membership from the tracked set. Missing
// rooms or memberships are not an error, absence is a valid "not
// active" answer.
func (t *Tracker) ClearActive(roomId, memberId string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	room := t.rooms[roomId]
	if room == nil {
		return
	}
	delete(room, memberId)
	if len(room) == 0 {
		delete(t.rooms, roomId)
	}
}

// ClearRoom drops the whole tracked set of a room (room deleted or
// expired).
func (t *Tracker) ClearRoom(roomId string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rooms, roomId)
}

// Reset empties the tracker. Used on shutdown and between tests.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rooms = make(map[string]map[string]time.Time)
}

// ListActive returns the union of the tracked set and the live
// connections of a room.
func (t *Tracker) ListActive(roomId string) map[string]struct{} {
	active := make(map[string]struct{})
	t.mu.RLock()
	for memberId := range t.rooms[roomId] {
		active[memberId] = struct{}{}
	}
	source := t.source
	t.mu.RUnlock()
	if source != nil {
		for _, memberId := range source.ConnectedMembers(roomId) {
			active[memberId] = struct{}{}
		}
	}
	return active
}

// IsActive reports whether one membership is currently active.
func (t *Tracker) IsActive(roomId, memberId string) bool {
	_, ok := t.ListActive(roomId)[memberId]
	return ok
}
