// Package engine holds the room, offer/desire and claim business
// rules: round gating, ownership checks and the claim decision
// protocol. The persister below it is a plain store, the api layer
// above it only translates HTTP; every invariant is enforced here.
package engine

import (
	"errors"
	"time"

	"github.com/tcriess/gift-circle/config"
	"github.com/tcriess/gift-circle/globals"
	"github.com/tcriess/gift-circle/persistence"
	"github.com/tcriess/gift-circle/presence"
	"github.com/tcriess/gift-circle/types"
)

// EventSink receives the events of a successful mutation for
// fan-out. Publishing is fire-and-forget, a sink must never block the
// caller for long and its errors never fail the mutation.
type EventSink interface {
	PublishEvents(roomId string, events []*types.Event)
}

type Engine struct {
	persister persistence.Persister
	tracker   *presence.Tracker
	cfg       *config.Config
	sink      EventSink
}

func New(persister persistence.Persister, tracker *presence.Tracker, cfg *config.Config) *Engine {
	return &Engine{
		persister: persister,
		tracker:   tracker,
		cfg:       cfg,
	}
}

// SetSink attaches the realtime fan-out. A nil sink (admin CLI, tests)
// only skips broadcasting, events are still persisted to the history.
func (e *Engine) SetSink(sink EventSink) {
	e.sink = sink
}

func (e *Engine) Tracker() *presence.Tracker { return e.tracker }

// publish persists the events of one mutation and hands them to the
// sink. The store write of the mutation itself has already happened;
// everything here is a signal to refetch and must not fail the caller.
func (e *Engine) publish(roomId string, events ...*types.Event) {
	if len(events) == 0 {
		return
	}
	if err := e.persister.StoreEvents(roomId, events); err != nil {
		globals.AppLogger.Error("could not persist events", "room", roomId, "error", err)
	}
	if e.sink != nil {
		e.sink.PublishEvents(roomId, events)
	}
}

// room loads a room and applies the lazy TTL: an expired room is
// deleted (with all dependent rows) before the read is answered, the
// caller sees a plain not-found.
func (e *Engine) room(roomId string) (*types.Room, error) {
	room := &types.Room{Id: roomId}
	err := e.persister.GetRoom(room)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if room.Expired(time.Now()) {
		globals.AppLogger.Info("room expired, deleting", "room", roomId)
		if err := e.persister.DeleteRoom(room); err != nil {
			globals.AppLogger.Error("could not delete expired room", "room", roomId, "error", err)
		}
		e.tracker.ClearRoom(roomId)
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// member resolves the caller's membership in a room.
func (e *Engine) member(roomId, userId string) (*types.Member, error) {
	member, err := e.persister.GetMemberByUser(roomId, userId)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	return member, nil
}

// Membership resolves the caller's membership in a live room. Used by
// the websocket endpoint, which only admits room members.
func (e *Engine) Membership(roomId, userId string) (*types.Member, error) {
	if _, err := e.room(roomId); err != nil {
		return nil, err
	}
	return e.member(roomId, userId)
}

// touch extends the room TTL after a successful mutation.
func (e *Engine) touch(room *types.Room) {
	room.ExpiresAt = time.Now().Add(time.Duration(e.cfg.RoomConfig.TTLHours) * time.Hour)
	if err := e.persister.StoreRoom(*room); err != nil {
		globals.AppLogger.Error("could not extend room ttl", "room", room.Id, "error", err)
	}
}

func presenceTags(memberId, reason string) map[string]string {
	return map[string]string{
		"membership_id": memberId,
		"reason":        reason,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	}
}
