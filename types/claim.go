package types

import "time"

// Claim statuses. PENDING is the only non-terminal state, every other
// state is terminal and no transition is ever reversible.
const (
	ClaimStatusPending   = "PENDING"
	ClaimStatusAccepted  = "ACCEPTED"
	ClaimStatusDeclined  = "DECLINED"
	ClaimStatusWithdrawn = "WITHDRAWN"
)

// Claim is a request by one membership to receive an Offer or fulfill
// a Desire authored by another. Exactly one of OfferId/DesireId is
// set, never both, never neither.
type Claim struct {
	Id        string    `json:"id" gorm:"primaryKey"`
	RoomId    string    `json:"room_id" gorm:"index;not null"`
	ClaimerId string    `json:"claimer_id" gorm:"index;not null"` // membership id
	OfferId   string    `json:"offer_id,omitempty" gorm:"index"`
	DesireId  string    `json:"desire_id,omitempty" gorm:"index"`
	Note      string    `json:"note"`
	Status    string    `json:"status" gorm:"size:16;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"-"`
}

func (Claim) TableName() string { return "claims" }

// Terminal reports whether the claim can no longer transition.
func (c *Claim) Terminal() bool {
	return c.Status != ClaimStatusPending
}
