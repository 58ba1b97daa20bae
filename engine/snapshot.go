package engine

import (
	"sort"

	"github.com/tcriess/gift-circle/types"
)

// SnapshotMember is a membership with its live activity flag.
type SnapshotMember struct {
	*types.Member
	IsActive bool `json:"is_active"`
}

// Snapshot is the composed, point-in-time view of a room's full state
// as returned to clients after every mutation and on refresh.
type Snapshot struct {
	Room    *types.Room      `json:"room"`
	Members []SnapshotMember `json:"members"`
	Offers  []*types.Offer   `json:"offers"`
	Desires []*types.Desire  `json:"desires"`
	Claims  []*types.Claim   `json:"claims"`
}

// Snapshot composes persisted state with live presence. Member order
// is a stable UI contract: HOST first, then active before inactive,
// then join time ascending.
func (e *Engine) Snapshot(roomId string) (*Snapshot, error) {
	room, err := e.room(roomId)
	if err != nil {
		return nil, err
	}
	members, err := e.persister.GetMembers(roomId)
	if err != nil {
		return nil, err
	}
	offers, err := e.persister.GetOffers(roomId)
	if err != nil {
		return nil, err
	}
	desires, err := e.persister.GetDesires(roomId)
	if err != nil {
		return nil, err
	}
	claims, err := e.persister.GetClaims(roomId)
	if err != nil {
		return nil, err
	}
	active := e.tracker.ListActive(roomId)
	snapMembers := make([]SnapshotMember, 0, len(members))
	for _, m := range members {
		_, isActive := active[m.Id]
		snapMembers = append(snapMembers, SnapshotMember{Member: m, IsActive: isActive})
	}
	sort.SliceStable(snapMembers, func(i, j int) bool {
		a, b := snapMembers[i], snapMembers[j]
		if (a.Role == types.RoleHost) != (b.Role == types.RoleHost) {
			return a.Role == types.RoleHost
		}
		if a.IsActive != b.IsActive {
			return a.IsActive
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return &Snapshot{
		Room:    room,
		Members: snapMembers,
		Offers:  offers,
		Desires: desires,
		Claims:  claims,
	}, nil
}
