package types

import (
	"time"
)

// Room is a bounded, code-addressable session grouping participants
// through the fixed round sequence. It is identified with one hub on
// the realtime side, the persisted row here is the source of truth.
type Room struct {
	Id           string        `json:"id" gorm:"primaryKey"`
	Code         string        `json:"code" gorm:"uniqueIndex;size:32;not null"`
	Title        string        `json:"title"`
	HostId       string        `json:"host_id"` // user id of the current host
	CurrentRound Round         `json:"current_round" gorm:"size:16;not null"`
	Tags         JSONStringMap `json:"tags"`
	ExpiresAt    time.Time     `json:"expires_at" gorm:"index"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"-"`
}

func (Room) TableName() string { return "rooms" }

// Expired reports whether the room's lazy TTL has passed at t.
func (r *Room) Expired(t time.Time) bool {
	return !r.ExpiresAt.IsZero() && t.After(r.ExpiresAt)
}
