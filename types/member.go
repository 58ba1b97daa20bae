package types

import "time"

// Member roles. There is exactly one host membership per room at any
// time; the host role is transferred by reassigning the UserId of the
// existing host membership, never by creating a second one.
const (
	RoleHost        = "HOST"
	RoleParticipant = "PARTICIPANT"
)

// Member is a user's participation record in one room (a membership).
// At most one membership exists per (room, user) pair.
type Member struct {
	Id        string    `json:"id" gorm:"primaryKey"`
	RoomId    string    `json:"room_id" gorm:"index:idx_members_room_user,unique;not null"`
	UserId    string    `json:"user_id" gorm:"index:idx_members_room_user,unique;not null"`
	Role      string    `json:"role" gorm:"size:16;not null"`
	Nick      string    `json:"nick"`
	CreatedAt time.Time `json:"joined_at"`
	UpdatedAt time.Time `json:"-"`
}

func (Member) TableName() string { return "members" }
