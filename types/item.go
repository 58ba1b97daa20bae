package types

import "time"

// Status lifecycle shared by offers and desires.
const (
	ItemStatusOpen      = "OPEN"
	ItemStatusFulfilled = "FULFILLED"
	ItemStatusWithdrawn = "WITHDRAWN"
)

// Offer is a participant-authored entry representing something offered
// to the circle. Created during the OFFERS round only, mutable only by
// its author while the room remains in that round.
type Offer struct {
	Id        string    `json:"id" gorm:"primaryKey"`
	RoomId    string    `json:"room_id" gorm:"index;not null"`
	AuthorId  string    `json:"author_id" gorm:"index;not null"` // membership id
	Title     string    `json:"title" gorm:"not null"`
	Details   string    `json:"details"`
	Status    string    `json:"status" gorm:"size:16;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"-"`
}

func (Offer) TableName() string { return "offers" }

// Desire is the mirror entry representing something wanted. Same
// lifecycle as Offer, bound to the DESIRES round.
type Desire struct {
	Id        string    `json:"id" gorm:"primaryKey"`
	RoomId    string    `json:"room_id" gorm:"index;not null"`
	AuthorId  string    `json:"author_id" gorm:"index;not null"` // membership id
	Title     string    `json:"title" gorm:"not null"`
	Details   string    `json:"details"`
	Status    string    `json:"status" gorm:"size:16;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"-"`
}

func (Desire) TableName() string { return "desires" }
