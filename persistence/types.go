package persistence

import (
	"errors"
	"fmt"
	"time"

	"github.com/tcriess/gift-circle/config"
	"github.com/tcriess/gift-circle/types"
)

// ErrNotFound is returned by all persisters when the requested row does
// not exist. Backends normalize their own not-found errors to this.
var ErrNotFound = errors.New("not found")

// Persister is the persistence boundary. It performs no authorization
// and no round gating, it is a thin store; all policy lives in the
// engine package. The CompareAndSwap* operations are the atomic
// conditional writes the engine relies on for race-free decisions.
type Persister interface {
	StoreRoom(types.Room) error
	GetRoom(*types.Room) error
	GetRoomByCode(code string) (*types.Room, error)
	GetRooms() ([]*types.Room, error)
	// DeleteRoom removes the room and all dependent rows (members,
	// offers, desires, claims, events).
	DeleteRoom(*types.Room) error
	// CompareAndSwapRound advances the room round only if the current
	// round still equals from. Returns false (and no error) if the
	// guard fails.
	CompareAndSwapRound(roomId string, from, to types.Round) (bool, error)

	StoreMember(types.Member) error
	GetMember(*types.Member) error
	GetMemberByUser(roomId, userId string) (*types.Member, error)
	GetMembers(roomId string) ([]*types.Member, error) // join time ascending
	// DeleteMember removes the membership only. Authored offers,
	// desires and claims are kept (orphaned by foreign key).
	DeleteMember(*types.Member) error
	// SwapMemberUsers exchanges the owning users of the two
	// memberships in one atomic step, so the swap never violates the
	// (room, user) uniqueness. ErrNotFound if either membership is
	// missing.
	SwapMemberUsers(roomId, userIdA, userIdB string) error

	StoreOffer(types.Offer) error
	GetOffer(*types.Offer) error
	GetOffers(roomId string) ([]*types.Offer, error) // creation time ascending
	DeleteOffer(*types.Offer) error

	StoreDesire(types.Desire) error
	GetDesire(*types.Desire) error
	GetDesires(roomId string) ([]*types.Desire, error) // creation time ascending
	DeleteDesire(*types.Desire) error

	StoreClaim(types.Claim) error
	GetClaim(*types.Claim) error
	GetClaims(roomId string) ([]*types.Claim, error) // creation time ascending
	// CompareAndSwapClaimStatus transitions the claim status only if
	// the current status still equals expected, atomically relative to
	// that claim row. Returns false (and no error) if the guard fails.
	CompareAndSwapClaimStatus(claimId string, expected, next string) (bool, error)

	StoreEvents(roomId string, events []*types.Event) error
	GetEventHistory(roomId string, fromTs, toTs time.Time, fromIdx, maxCount int) ([]*types.Event, error)

	Close() error
}

// NewPersister picks the backend according to the configuration. An
// empty type yields a nil persister without error; since the room
// state has to live somewhere, callers should reject a nil result.
func NewPersister(cfg *config.Config) (Persister, error) {
	switch cfg.PersistenceConfig.Type {
	case "postgres", "sqlite":
		return NewGormPersister(cfg)
	case "buntdb":
		return NewBuntPersister(cfg)
	case "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown persistence type %q", cfg.PersistenceConfig.Type)
}
