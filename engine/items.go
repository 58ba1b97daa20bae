package engine

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tcriess/gift-circle/persistence"
	"github.com/tcriess/gift-circle/types"
)

// ItemUpdate is a partial update of an offer or desire. Nil fields are
// left untouched.
type ItemUpdate struct {
	Title   *string
	Details *string
	Status  *string
}

func (u ItemUpdate) validate() error {
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return ErrTitleRequired
	}
	if u.Status != nil {
		switch *u.Status {
		case types.ItemStatusOpen, types.ItemStatusFulfilled, types.ItemStatusWithdrawn:
		default:
			return ErrBadStatus
		}
	}
	return nil
}

// CreateOffer creates an offer. OFFERS round only.
func (e *Engine) CreateOffer(roomId, userId, title, details string) (*types.Offer, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrTitleRequired
	}
	room, err := e.room(roomId)
	if err != nil {
		return nil, err
	}
	member, err := e.member(roomId, userId)
	if err != nil {
		return nil, err
	}
	if room.CurrentRound != types.RoundOffers {
		return nil, ErrWrongRound
	}
	offer := types.Offer{
		Id:        uuid.New().String(),
		RoomId:    roomId,
		AuthorId:  member.Id,
		Title:     strings.TrimSpace(title),
		Details:   details,
		Status:    types.ItemStatusOpen,
		CreatedAt: time.Now(),
	}
	if err := e.persister.StoreOffer(offer); err != nil {
		return nil, err
	}
	e.touch(room)
	e.publish(roomId, types.NewEvent(roomId, member.Id, "", types.EventOfferCreated, map[string]string{"offer_id": offer.Id}))
	return &offer, nil
}

// UpdateOffer applies a partial update. Author only, OFFERS round only.
func (e *Engine) UpdateOffer(roomId, userId, offerId string, update ItemUpdate) (*types.Offer, error) {
	if err := update.validate(); err != nil {
		return nil, err
	}
	room, err := e.room(roomId)
	if err != nil {
		return nil, err
	}
	member, err := e.member(roomId, userId)
	if err != nil {
		return nil, err
	}
	offer := &types.Offer{Id: offerId, RoomId: roomId}
	if err := e.persister.GetOffer(offer); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}
	if offer.RoomId != roomId {
		return nil, ErrOfferNotFound
	}
	if offer.AuthorId != member.Id {
		return nil, ErrNotAuthor
	}
	if room.CurrentRound != types.RoundOffers {
		return nil, ErrWrongRound
	}
	if update.Title != nil {
		offer.Title = strings.TrimSpace(*update.Title)
	}
	if update.Details != nil {
		offer.Details = *update.Details
	}
	if update.Status != nil {
		offer.Status = *update.Status
	}
	if err := e.persister.StoreOffer(*offer); err != nil {
		return nil, err
	}
	e.touch(room)
	e.publish(roomId, types.NewEvent(roomId, member.Id, "", types.EventOfferUpdated, map[string]string{"offer_id": offer.Id}))
	return offer, nil
}

// DeleteOffer removes an offer. Author only, OFFERS round only.
func (e *Engine) DeleteOffer(roomId, userId, offerId string) error {
	room, err := e.room(roomId)
	if err != nil {
		return err
	}
	member, err := e.member(roomId, userId)
	if err != nil {
		return err
	}
	offer := &types.Offer{Id: offerId, RoomId: roomId}
	if err := e.persister.GetOffer(offer); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrOfferNotFound
		}
		return err
	}
	if offer.RoomId != roomId {
		return ErrOfferNotFound
	}
	if offer.AuthorId != member.Id {
		return ErrNotAuthor
	}
	if room.CurrentRound != types.RoundOffers {
		return ErrWrongRound
	}
	if err := e.persister.DeleteOffer(offer); err != nil {
		return err
	}
	e.touch(room)
	e.publish(roomId, types.NewEvent(roomId, member.Id, "", types.EventOfferDeleted, map[string]string{"offer_id": offer.Id}))
	return nil
}

// ListOffers returns a room's offers in creation order.
func (e *Engine) ListOffers(roomId string) ([]*types.Offer, error) {
	if _, err := e.room(roomId); err != nil {
		return nil, err
	}
	return e.persister.GetOffers(roomId)
}

// CreateDesire creates a desire. DESIRES round only.
func (e *Engine) CreateDesire(roomId, userId, title, details string) (*types.Desire, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrTitleRequired
	}
	room, err := e.room(roomId)
	if err != nil {
		return nil, err
	}
	member, err := e.member(roomId, userId)
	if err != nil {
		return nil, err
	}
	if room.CurrentRound != types.RoundDesires {
		return nil, ErrWrongRound
	}
	desire := types.Desire{
		Id:        uuid.New().String(),
		RoomId:    roomId,
		AuthorId:  member.Id,
		Title:     strings.TrimSpace(title),
		Details:   details,
		Status:    types.ItemStatusOpen,
		CreatedAt: time.Now(),
	}
	if err := e.persister.StoreDesire(desire); err != nil {
		return nil, err
	}
	e.touch(room)
	e.publish(roomId, types.NewEvent(roomId, member.Id, "", types.EventDesireCreated, map[string]string{"desire_id": desire.Id}))
	return &desire, nil
}

// UpdateDesire applies a partial update. Author only, DESIRES round only.
func (e *Engine) UpdateDesire(roomId, userId, desireId string, update ItemUpdate) (*types.Desire, error) {
	if err := update.validate(); err != nil {
		return nil, err
	}
	room, err := e.room(roomId)
	if err != nil {
		return nil, err
	}
	member, err := e.member(roomId, userId)
	if err != nil {
		return nil, err
	}
	desire := &types.Desire{Id: desireId, RoomId: roomId}
	if err := e.persister.GetDesire(desire); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrDesireNotFound
		}
		return nil, err
	}
	if desire.RoomId != roomId {
		return nil, ErrDesireNotFound
	}
	if desire.AuthorId != member.Id {
		return nil, ErrNotAuthor
	}
	if room.CurrentRound != types.RoundDesires {
		return nil, ErrWrongRound
	}
	if update.Title != nil {
		desire.Title = strings.TrimSpace(*update.Title)
	}
	if update.Details != nil {
		desire.Details = *update.Details
	}
	if update.Status != nil {
		desire.Status = *update.Status
	}
	if err := e.persister.StoreDesire(*desire); err != nil {
		return nil, err
	}
	e.touch(room)
	e.publish(roomId, types.NewEvent(roomId, member.Id, "", types.EventDesireUpdated, map[string]string{"desire_id": desire.Id}))
	return desire, nil
}

// DeleteDesire removes a desire. Author only, DESIRES round only.
func (e *Engine) DeleteDesire(roomId, userId, desireId string) error {
	room, err := e.room(roomId)
	if err != nil {
		return err
	}
	member, err := e.member(roomId, userId)
	if err != nil {
		return err
	}
	desire := &types.Desire{Id: desireId, RoomId: roomId}
	if err := e.persister.GetDesire(desire); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrDesireNotFound
		}
		return err
	}
	if desire.RoomId != roomId {
		return ErrDesireNotFound
	}
	if desire.AuthorId != member.Id {
		return ErrNotAuthor
	}
	if room.CurrentRound != types.RoundDesires {
		return ErrWrongRound
	}
	if err := e.persister.DeleteDesire(desire); err != nil {
		return err
	}
	e.touch(room)
	e.publish(roomId, types.NewEvent(roomId, member.Id, "", types.EventDesireDeleted, map[string]string{"desire_id": desire.Id}))
	return nil
}

// ListDesires returns a room's desires in creation order.
func (e *Engine) ListDesires(roomId string) ([]*types.Desire, error) {
	if _, err := e.room(roomId); err != nil {
		return nil, err
	}
	return e.persister.GetDesires(roomId)
}
