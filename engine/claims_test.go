package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tcriess/gift-circle/types"
)

// circleFixture walks a room through the item rounds: the host offers a
// ladder, participant a desires piano lessons, then the room sits in
// CONNECTIONS.
type circleFixture struct {
	room   *types.Room
	host   *types.Member
	partA  *types.Member
	partB  *types.Member
	offer  *types.Offer
	desire *types.Desire
}

func setupCircle(t *testing.T, e *Engine) circleFixture {
	t.Helper()
	room, members := setupRoom(t, e, 2)
	f := circleFixture{room: room, host: members[0], partA: members[1], partB: members[2]}

	advanceTo(t, e, room, types.RoundOffers)
	offer, err := e.CreateOffer(room.Id, f.host.UserId, "Ladder", "3m, aluminium")
	require.NoError(t, err)
	f.offer = offer

	advanceTo(t, e, room, types.RoundDesires)
	desire, err := e.CreateDesire(room.Id, f.partA.UserId, "Piano lessons", "beginner")
	require.NoError(t, err)
	f.desire = desire

	advanceTo(t, e, room, types.RoundConnections)
	return f
}

func TestCreateClaim(t *testing.T) {
	e := newTestEngine(t)
	f := setupCircle(t, e)

	claim, err := e.CreateClaim(f.room.Id, f.partA.UserId, f.offer.Id, "", "weekends only")
	require.NoError(t, err)
	assert.Equal(t, types.ClaimStatusPending, claim.Status)
	assert.Equal(t, f.partA.Id, claim.ClaimerId)
	assert.Equal(t, "weekends only", claim.Note)

	// several pending claims on the same entry are fine
	_, err = e.CreateClaim(f.room.Id, f.partB.UserId, f.offer.Id, "", "")
	assert.NoError(t, err)
}

func TestCreateClaimExclusivity(t *testing.T) {
	e := newTestEngine(t)
	f := setupCircle(t, e)

	_, err := e.CreateClaim(f.room.Id, f.partA.UserId, "", "", "")
	assert.ErrorIs(t, err, ErrExactlyOneTarget)

	_, err = e.CreateClaim(f.room.Id, f.partA.UserId, f.offer.Id, f.desire.Id, "")
	assert.ErrorIs(t, err, ErrExactlyOneTarget)
}

func TestCreateClaimSelf(t *testing.T) {
	e := newTestEngine(t)
	f := setupCircle(t, e)

	_, err := e.CreateClaim(f.room.Id, f.host.UserId, f.offer.Id, "", "")
	assert.ErrorIs(t, err, ErrSelfClaim)
}

func TestCreateClaimTargetNotOpen(t *testing.T) {
	e := newTestEngine(t)
	f := setupCircle(t, e)

	withdrawn := *f.offer
	withdrawn.Status = types.ItemStatusWithdrawn
	require.NoError(t, e.persister.StoreOffer(withdrawn))

	_, err := e.CreateClaim(f.room.Id, f.partA.UserId, f.offer.Id, "", "")
	assert.ErrorIs(t, err, ErrTargetNotOpen)
}

func TestCreateClaimRoundGating(t *testing.T) {
	e := newTestEngine(t)
	room, members := setupRoom(t, e, 1)
	advanceTo(t, e, room, types.RoundOffers)
	offer, err := e.CreateOffer(room.Id, room.HostId, "Ladder", "")
	require.NoError(t, err)

	// target exists and is open, but claims only happen in CONNECTIONS
	_, err = e.CreateClaim(room.Id, members[1].UserId, offer.Id, "", "")
	assert.ErrorIs(t, err, ErrWrongRound)

	_, err = e.CreateClaim(room.Id, members[1].UserId, "no-such-offer", "", "")
	assert.ErrorIs(t, err, ErrOfferNotFound)
}

// entry ids from another room must read as missing, also on the SQL
// backend where entries are fetched by primary key alone
func TestCreateClaimCrossRoom(t *testing.T) {
	for name, newEngine := range map[string]func(*testing.T) *Engine{
		"buntdb": newTestEngine,
		"sqlite": newSqliteEngine,
	} {
		t.Run(name, func(t *testing.T) {
			e := newEngine(t)
			f := setupCircle(t, e)

			other, _, err := e.CreateRoom("outsider", "Otto", "Other circle")
			require.NoError(t, err)
			advanceTo(t, e, other, types.RoundConnections)

			_, err = e.CreateClaim(other.Id, "outsider", f.offer.Id, "", "")
			assert.ErrorIs(t, err, ErrOfferNotFound)
			_, err = e.CreateClaim(other.Id, "outsider", "", f.desire.Id, "")
			assert.ErrorIs(t, err, ErrDesireNotFound)

			claims, err := e.ListClaims(other.Id)
			require.NoError(t, err)
			assert.Empty(t, claims)
		})
	}
}

func TestWithdrawClaim(t *testing.T) {
	e := newTestEngine(t)
	f := setupCircle(t, e)

	claim, err := e.CreateClaim(f.room.Id, f.partA.UserId, f.offer.Id, "", "")
	require.NoError(t, err)

	_, err = e.WithdrawClaim(f.room.Id, f.partB.UserId, claim.Id)
	assert.ErrorIs(t, err, ErrNotClaimer)

	withdrawn, err := e.WithdrawClaim(f.room.Id, f.partA.UserId, claim.Id)
	require.NoError(t, err)
	assert.Equal(t, types.ClaimStatusWithdrawn, withdrawn.Status)

	// terminal states never transition again
	_, err = e.WithdrawClaim(f.room.Id, f.partA.UserId, claim.Id)
	assert.ErrorIs(t, err, ErrClaimNotPending)
}

func TestWithdrawClaimRoundGating(t *testing.T) {
	e := newTestEngine(t)
	f := setupCircle(t, e)

	claim, err := e.CreateClaim(f.room.Id, f.partA.UserId, f.offer.Id, "", "")
	require.NoError(t, err)

	advanceTo(t, e, f.room, types.RoundDecisions)
	_, err = e.WithdrawClaim(f.room.Id, f.partA.UserId, claim.Id)
	assert.ErrorIs(t, err, ErrWrongRound)
}

func TestDecideClaim(t *testing.T) {
	e := newTestEngine(t)
	f := setupCircle(t, e)

	claim, err := e.CreateClaim(f.room.Id, f.partA.UserId, f.offer.Id, "", "")
	require.NoError(t, err)

	// deciding only happens in DECISIONS
	_, err = e.DecideClaim(f.room.Id, f.host.UserId, claim.Id, types.ClaimStatusAccepted)
	assert.ErrorIs(t, err, ErrWrongRound)

	advanceTo(t, e, f.room, types.RoundDecisions)

	_, err = e.DecideClaim(f.room.Id, f.host.UserId, claim.Id, "MAYBE")
	assert.ErrorIs(t, err, ErrBadDecision)

	// only the author of the claimed entry decides
	_, err = e.DecideClaim(f.room.Id, f.partB.UserId, claim.Id, types.ClaimStatusAccepted)
	assert.ErrorIs(t, err, ErrNotAuthor)
	_, err = e.DecideClaim(f.room.Id, f.partA.UserId, claim.Id, types.ClaimStatusAccepted)
	assert.ErrorIs(t, err, ErrNotAuthor)

	decided, err := e.DecideClaim(f.room.Id, f.host.UserId, claim.Id, types.ClaimStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, types.ClaimStatusAccepted, decided.Status)

	// the first decision wins, the second observes a conflict
	_, err = e.DecideClaim(f.room.Id, f.host.UserId, claim.Id, types.ClaimStatusDeclined)
	assert.ErrorIs(t, err, ErrClaimNotPending)

	// accepting a claim leaves the target entry untouched
	offers, err := e.ListOffers(f.room.Id)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, types.ItemStatusOpen, offers[0].Status)
}

func TestDecideDesireClaim(t *testing.T) {
	e := newTestEngine(t)
	f := setupCircle(t, e)

	// partB offers to fulfill partA's desire
	claim, err := e.CreateClaim(f.room.Id, f.partB.UserId, "", f.desire.Id, "tuesdays")
	require.NoError(t, err)

	advanceTo(t, e, f.room, types.RoundDecisions)
	decided, err := e.DecideClaim(f.room.Id, f.partA.UserId, claim.Id, types.ClaimStatusDeclined)
	require.NoError(t, err)
	assert.Equal(t, types.ClaimStatusDeclined, decided.Status)
}

func TestClaimUnknownRoom(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.CreateClaim("no-such-room", "u", "o", "", "")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	_, err = e.WithdrawClaim("no-such-room", "u", "c")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
