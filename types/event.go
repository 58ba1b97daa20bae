package types

import (
	"fmt"
	"time"

	"github.com/mitchellh/hashstructure/v2"
)

// Room-domain event names. Events are a signal to refetch the
// canonical snapshot, never an authoritative delta.
const (
	EventOfferCreated       = "offer:created"
	EventOfferUpdated       = "offer:updated"
	EventOfferDeleted       = "offer:deleted"
	EventDesireCreated      = "desire:created"
	EventDesireUpdated      = "desire:updated"
	EventDesireDeleted      = "desire:deleted"
	EventClaimCreated       = "claim:created"
	EventClaimUpdated       = "claim:updated"
	EventRoundChanged       = "round:changed"
	EventRoomUpdated        = "room:updated"
	EventPresenceRefresh    = "presence:refresh"
	EventMemberConnected    = "member:connected"
	EventMemberDisconnected = "member:disconnected"
)

// Event is a single room-domain event as broadcast to the room channel
// and kept in the history. Tags carries the event payload (entity ids,
// changed fields) as a flat string map. TargetFilter optionally
// restricts delivery to clients matching the expression.
type Event struct {
	Id           string        `json:"id" gorm:"primaryKey"`
	RoomId       string        `json:"room_id" gorm:"index;not null"`
	MemberId     string        `json:"member_id"` // originating membership, may be empty
	Name         string        `json:"name" gorm:"not null"`
	Tags         JSONStringMap `json:"tags"`
	TargetFilter string        `json:"target_filter"`
	Created      time.Time     `json:"created" gorm:"index"`
	Sent         time.Time     `json:"sent"`
}

func (Event) TableName() string { return "events" }

func NewEvent(roomId, memberId, targetFilter, name string, tags map[string]string) *Event {
	e := &Event{
		RoomId:       roomId,
		MemberId:     memberId,
		Name:         name,
		Tags:         tags,
		TargetFilter: targetFilter,
		Created:      time.Now(),
	}
	_ = e.CreateId()
	return e
}

// CreateId sets the event id to a content hash, so replayed events can
// be deduplicated by clients.
func (e *Event) CreateId() error {
	hash, err := hashstructure.Hash(e, hashstructure.FormatV2, nil)
	if err != nil {
		return err
	}
	e.Id = fmt.Sprintf("%016x", hash)
	return nil
}
