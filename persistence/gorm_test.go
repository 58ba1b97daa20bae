package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tcriess/gift-circle/config"
	"github.com/tcriess/gift-circle/types"
)

func newSqlite(t *testing.T) Persister {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "gift-circle.db")
	cfg := &config.Config{PersistenceConfig: config.PersistenceConfig{Type: "sqlite", DSN: dsn}}
	p, err := NewPersister(cfg)
	require.NoError(t, err)
	require.NotNil(t, p)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestGormRoomCRUD(t *testing.T) {
	p := newSqlite(t)
	room := types.Room{Id: "r1", Code: "ABC234", Title: "Circle", HostId: "u1", CurrentRound: types.RoundWaiting, CreatedAt: time.Now()}
	require.NoError(t, p.StoreRoom(room))

	got := types.Room{Id: "r1"}
	require.NoError(t, p.GetRoom(&got))
	assert.Equal(t, "Circle", got.Title)
	assert.Equal(t, types.RoundWaiting, got.CurrentRound)

	room.Title = "Renamed"
	require.NoError(t, p.StoreRoom(room))
	got = types.Room{Id: "r1"}
	require.NoError(t, p.GetRoom(&got))
	assert.Equal(t, "Renamed", got.Title)

	byCode, err := p.GetRoomByCode("ABC234")
	require.NoError(t, err)
	assert.Equal(t, "r1", byCode.Id)

	_, err = p.GetRoomByCode("NOPE42")
	assert.ErrorIs(t, err, ErrNotFound)

	missing := types.Room{Id: "nope"}
	assert.ErrorIs(t, p.GetRoom(&missing), ErrNotFound)

	rooms, err := p.GetRooms()
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
}

func TestGormMemberOrderingAndLookup(t *testing.T) {
	p := newSqlite(t)
	base := time.Now()
	require.NoError(t, p.StoreMember(types.Member{Id: "m2", RoomId: "r1", UserId: "u2", Role: types.RoleParticipant, CreatedAt: base.Add(time.Second)}))
	require.NoError(t, p.StoreMember(types.Member{Id: "m1", RoomId: "r1", UserId: "u1", Role: types.RoleHost, CreatedAt: base}))
	// same user in another room is fine, the uniqueness is per room
	require.NoError(t, p.StoreMember(types.Member{Id: "m3", RoomId: "r2", UserId: "u1", Role: types.RoleHost, CreatedAt: base}))

	members, err := p.GetMembers("r1")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "m1", members[0].Id)
	assert.Equal(t, "m2", members[1].Id)

	byUser, err := p.GetMemberByUser("r1", "u2")
	require.NoError(t, err)
	assert.Equal(t, "m2", byUser.Id)

	_, err = p.GetMemberByUser("r1", "u9")
	assert.ErrorIs(t, err, ErrNotFound)
}

// the two rows trip the (room, user) unique index when they are stored
// one after the other, the swap has to go through in one step
func TestGormSwapMemberUsers(t *testing.T) {
	p := newSqlite(t)
	require.NoError(t, p.StoreMember(types.Member{Id: "m1", RoomId: "r1", UserId: "u1", Role: types.RoleHost}))
	require.NoError(t, p.StoreMember(types.Member{Id: "m2", RoomId: "r1", UserId: "u2", Role: types.RoleParticipant}))

	require.NoError(t, p.SwapMemberUsers("r1", "u1", "u2"))

	host, err := p.GetMemberByUser("r1", "u2")
	require.NoError(t, err)
	assert.Equal(t, "m1", host.Id)
	assert.Equal(t, types.RoleHost, host.Role)
	participant, err := p.GetMemberByUser("r1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "m2", participant.Id)

	members, err := p.GetMembers("r1")
	require.NoError(t, err)
	assert.Len(t, members, 2)

	assert.ErrorIs(t, p.SwapMemberUsers("r1", "u1", "u9"), ErrNotFound)
}

func TestGormOfferOrdering(t *testing.T) {
	p := newSqlite(t)
	base := time.Now()
	require.NoError(t, p.StoreOffer(types.Offer{Id: "o2", RoomId: "r1", AuthorId: "m1", Title: "B", Status: types.ItemStatusOpen, CreatedAt: base.Add(time.Second)}))
	require.NoError(t, p.StoreOffer(types.Offer{Id: "o1", RoomId: "r1", AuthorId: "m1", Title: "A", Status: types.ItemStatusOpen, CreatedAt: base}))

	offers, err := p.GetOffers("r1")
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, "o1", offers[0].Id)
	assert.Equal(t, "o2", offers[1].Id)

	require.NoError(t, p.DeleteOffer(offers[0]))
	offers, err = p.GetOffers("r1")
	require.NoError(t, err)
	assert.Len(t, offers, 1)
}

func TestGormClaimCAS(t *testing.T) {
	p := newSqlite(t)
	claim := types.Claim{Id: "c1", RoomId: "r1", ClaimerId: "m2", OfferId: "o1", Status: types.ClaimStatusPending, CreatedAt: time.Now()}
	require.NoError(t, p.StoreClaim(claim))

	swapped, err := p.CompareAndSwapClaimStatus("c1", types.ClaimStatusPending, types.ClaimStatusAccepted)
	require.NoError(t, err)
	assert.True(t, swapped)

	swapped, err = p.CompareAndSwapClaimStatus("c1", types.ClaimStatusPending, types.ClaimStatusDeclined)
	require.NoError(t, err)
	assert.False(t, swapped)

	got := types.Claim{Id: "c1", RoomId: "r1"}
	require.NoError(t, p.GetClaim(&got))
	assert.Equal(t, types.ClaimStatusAccepted, got.Status)

	_, err = p.CompareAndSwapClaimStatus("missing", types.ClaimStatusPending, types.ClaimStatusAccepted)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRoundCAS(t *testing.T) {
	p := newSqlite(t)
	require.NoError(t, p.StoreRoom(types.Room{Id: "r1", Code: "ABC234", CurrentRound: types.RoundWaiting}))

	swapped, err := p.CompareAndSwapRound("r1", types.RoundWaiting, types.RoundOffers)
	require.NoError(t, err)
	assert.True(t, swapped)

	swapped, err = p.CompareAndSwapRound("r1", types.RoundWaiting, types.RoundOffers)
	require.NoError(t, err)
	assert.False(t, swapped)

	got := types.Room{Id: "r1"}
	require.NoError(t, p.GetRoom(&got))
	assert.Equal(t, types.RoundOffers, got.CurrentRound)
}

func TestGormDeleteRoomCascade(t *testing.T) {
	p := newSqlite(t)
	room := types.Room{Id: "r1", Code: "ABC234"}
	require.NoError(t, p.StoreRoom(room))
	require.NoError(t, p.StoreMember(types.Member{Id: "m1", RoomId: "r1", UserId: "u1"}))
	require.NoError(t, p.StoreOffer(types.Offer{Id: "o1", RoomId: "r1"}))
	require.NoError(t, p.StoreDesire(types.Desire{Id: "d1", RoomId: "r1"}))
	require.NoError(t, p.StoreClaim(types.Claim{Id: "c1", RoomId: "r1"}))
	require.NoError(t, p.StoreEvents("r1", []*types.Event{{Id: "e1", RoomId: "r1", Name: "round:changed", Created: time.Now()}}))
	require.NoError(t, p.StoreOffer(types.Offer{Id: "o9", RoomId: "r2"}))

	require.NoError(t, p.DeleteRoom(&room))

	assert.ErrorIs(t, p.GetRoom(&types.Room{Id: "r1"}), ErrNotFound)
	members, _ := p.GetMembers("r1")
	assert.Empty(t, members)
	offers, _ := p.GetOffers("r1")
	assert.Empty(t, offers)
	desires, _ := p.GetDesires("r1")
	assert.Empty(t, desires)
	claims, _ := p.GetClaims("r1")
	assert.Empty(t, claims)

	others, err := p.GetOffers("r2")
	require.NoError(t, err)
	assert.Len(t, others, 1)
}

func TestGormEventHistory(t *testing.T) {
	p := newSqlite(t)
	base := time.Now()
	events := []*types.Event{
		{Id: "e1", RoomId: "r1", Name: "offer:created", Created: base},
		{Id: "e2", RoomId: "r1", Name: "offer:updated", Created: base.Add(time.Second)},
		{Id: "e3", RoomId: "r1", Name: "round:changed", Created: base.Add(2 * time.Second)},
	}
	require.NoError(t, p.StoreEvents("r1", events))

	// newest first
	history, err := p.GetEventHistory("r1", base.Add(-time.Minute), base.Add(time.Minute), 0, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "e3", history[0].Id)
	assert.Equal(t, "e1", history[2].Id)

	// pagination
	history, err = p.GetEventHistory("r1", base.Add(-time.Minute), base.Add(time.Minute), 1, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "e2", history[0].Id)

	// ts window
	history, err = p.GetEventHistory("r1", base.Add(time.Second), base.Add(time.Minute), 0, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
