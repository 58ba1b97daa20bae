package engine

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tcriess/gift-circle/persistence"
	"github.com/tcriess/gift-circle/types"
)

// claimTarget resolves the offer or desire a claim points at and
// returns its author membership id and status.
func (e *Engine) claimTarget(claim *types.Claim) (authorId, status string, err error) {
	switch {
	case claim.OfferId != "":
		offer := &types.Offer{Id: claim.OfferId, RoomId: claim.RoomId}
		if err := e.persister.GetOffer(offer); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return "", "", ErrOfferNotFound
			}
			return "", "", err
		}
		if offer.RoomId != claim.RoomId {
			return "", "", ErrOfferNotFound
		}
		return offer.AuthorId, offer.Status, nil

	case claim.DesireId != "":
		desire := &types.Desire{Id: claim.DesireId, RoomId: claim.RoomId}
		if err := e.persister.GetDesire(desire); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return "", "", ErrDesireNotFound
			}
			return "", "", err
		}
		if desire.RoomId != claim.RoomId {
			return "", "", ErrDesireNotFound
		}
		return desire.AuthorId, desire.Status, nil
	}
	return "", "", ErrExactlyOneTarget
}

// CreateClaim creates a PENDING claim against exactly one offer or
// desire. CONNECTIONS round only; the target must be OPEN and must not
// be authored by the claimer. Any failed check aborts with no partial
// state change.
func (e *Engine) CreateClaim(roomId, userId, offerId, desireId, note string) (*types.Claim, error) {
	if (offerId == "") == (desireId == "") {
		return nil, ErrExactlyOneTarget
	}
	room, err := e.room(roomId)
	if err != nil {
		return nil, err
	}
	member, err := e.member(roomId, userId)
	if err != nil {
		return nil, err
	}
	claim := types.Claim{
		Id:        uuid.New().String(),
		RoomId:    roomId,
		ClaimerId: member.Id,
		OfferId:   offerId,
		DesireId:  desireId,
		Note:      note,
		Status:    types.ClaimStatusPending,
		CreatedAt: time.Now(),
	}
	authorId, status, err := e.claimTarget(&claim)
	if err != nil {
		return nil, err
	}
	if authorId == member.Id {
		return nil, ErrSelfClaim
	}
	// claiming a non-open entry is a conflict in any round, so this is
	// checked before the round
	if status != types.ItemStatusOpen {
		return nil, ErrTargetNotOpen
	}
	if room.CurrentRound != types.RoundConnections {
		return nil, ErrWrongRound
	}
	if err := e.persister.StoreClaim(claim); err != nil {
		return nil, err
	}
	e.touch(room)
	e.publish(roomId, types.NewEvent(roomId, member.Id, "", types.EventClaimCreated, map[string]string{"claim_id": claim.Id}))
	return &claim, nil
}

// WithdrawClaim transitions PENDING -> WITHDRAWN. Claimer only,
// CONNECTIONS round only. The status swap is conditional, a claim that
// is no longer pending yields a conflict, never a silent overwrite.
func (e *Engine) WithdrawClaim(roomId, userId, claimId string) (*types.Claim, error) {
	room, err := e.room(roomId)
	if err != nil {
		return nil, err
	}
	member, err := e.member(roomId, userId)
	if err != nil {
		return nil, err
	}
	claim := &types.Claim{Id: claimId, RoomId: roomId}
	if err := e.persister.GetClaim(claim); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}
	if claim.RoomId != roomId {
		return nil, ErrClaimNotFound
	}
	if claim.ClaimerId != member.Id {
		return nil, ErrNotClaimer
	}
	if room.CurrentRound != types.RoundConnections {
		return nil, ErrWrongRound
	}
	swapped, err := e.persister.CompareAndSwapClaimStatus(claim.Id, types.ClaimStatusPending, types.ClaimStatusWithdrawn)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, ErrClaimNotPending
	}
	claim.Status = types.ClaimStatusWithdrawn
	e.touch(room)
	e.publish(roomId, types.NewEvent(roomId, member.Id, "", types.EventClaimUpdated, map[string]string{"claim_id": claim.Id, "status": claim.Status}))
	return claim, nil
}

// DecideClaim transitions PENDING -> ACCEPTED|DECLINED. Only the
// author of the claim's target may decide, DECISIONS round only.
// Concurrent decide attempts are serialized by the conditional status
// swap: the first wins, the second observes a conflict. Accepting a
// claim does not change the target entry's own status, the commitments
// view is computed from accepted claims alone.
func (e *Engine) DecideClaim(roomId, userId, claimId, decision string) (*types.Claim, error) {
	if decision != types.ClaimStatusAccepted && decision != types.ClaimStatusDeclined {
		return nil, ErrBadDecision
	}
	room, err := e.room(roomId)
	if err != nil {
		return nil, err
	}
	member, err := e.member(roomId, userId)
	if err != nil {
		return nil, err
	}
	claim := &types.Claim{Id: claimId, RoomId: roomId}
	if err := e.persister.GetClaim(claim); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}
	if claim.RoomId != roomId {
		return nil, ErrClaimNotFound
	}
	authorId, _, err := e.claimTarget(claim)
	if err != nil {
		return nil, err
	}
	if authorId != member.Id {
		return nil, ErrNotAuthor
	}
	if room.CurrentRound != types.RoundDecisions {
		return nil, ErrWrongRound
	}
	swapped, err := e.persister.CompareAndSwapClaimStatus(claim.Id, types.ClaimStatusPending, decision)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, ErrClaimNotPending
	}
	claim.Status = decision
	e.touch(room)
	e.publish(roomId, types.NewEvent(roomId, member.Id, "", types.EventClaimUpdated, map[string]string{"claim_id": claim.Id, "status": claim.Status}))
	return claim, nil
}

// ListClaims returns a room's claims in creation order.
func (e *Engine) ListClaims(roomId string) ([]*types.Claim, error) {
	if _, err := e.room(roomId); err != nil {
		return nil, err
	}
	return e.persister.GetClaims(roomId)
}
