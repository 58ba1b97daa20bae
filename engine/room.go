package engine

import (
	"crypto/rand"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tcriess/gift-circle/persistence"
	"github.com/tcriess/gift-circle/round"
	"github.com/tcriess/gift-circle/types"
)

// join codes avoid ambiguous characters (0/O, 1/I/L)
const codeCharset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const maxNickLen = 64

// CreateRoom creates a room in the WAITING round together with its
// HOST membership for the calling user.
func (e *Engine) CreateRoom(userId, nick, title string) (*types.Room, *types.Member, error) {
	if strings.TrimSpace(title) == "" {
		return nil, nil, ErrTitleRequired
	}
	if len(nick) > maxNickLen {
		return nil, nil, ErrNicknameTooLong
	}
	code, err := e.generateCode()
	if err != nil {
		return nil, nil, err
	}
	now := time.Now()
	room := types.Room{
		Id:           uuid.New().String(),
		Code:         code,
		Title:        strings.TrimSpace(title),
		HostId:       userId,
		CurrentRound: types.RoundWaiting,
		Tags:         map[string]string{},
		ExpiresAt:    now.Add(time.Duration(e.cfg.RoomConfig.TTLHours) * time.Hour),
		CreatedAt:    now,
	}
	if err := e.persister.StoreRoom(room); err != nil {
		return nil, nil, err
	}
	member := types.Member{
		Id:        uuid.New().String(),
		RoomId:    room.Id,
		UserId:    userId,
		Role:      types.RoleHost,
		Nick:      nick,
		CreatedAt: now,
	}
	if err := e.persister.StoreMember(member); err != nil {
		return nil, nil, err
	}
	e.tracker.TrackActive(room.Id, member.Id)
	return &room, &member, nil
}

// generateCode draws random join codes until one is free, giving up
// after the configured number of attempts.
func (e *Engine) generateCode() (string, error) {
	length := e.cfg.RoomConfig.CodeLength
	attempts := e.cfg.RoomConfig.MaxCodeAttempts
	for i := 0; i < attempts; i++ {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for j := range buf {
			buf[j] = codeCharset[int(buf[j])%len(codeCharset)]
		}
		code := string(buf)
		_, err := e.persister.GetRoomByCode(code)
		if errors.Is(err, persistence.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", ErrCodeExhausted
}

// JoinRoom joins a room by code. Joining a room the user is already a
// member of returns the existing membership unchanged.
func (e *Engine) JoinRoom(code, userId, nick string) (*types.Room, *types.Member, error) {
	if len(nick) > maxNickLen {
		return nil, nil, ErrNicknameTooLong
	}
	found, err := e.persister.GetRoomByCode(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil, ErrRoomNotFound
		}
		return nil, nil, err
	}
	room, err := e.room(found.Id) // lazy expiry check
	if err != nil {
		return nil, nil, err
	}
	if existing, err := e.persister.GetMemberByUser(room.Id, userId); err == nil {
		e.tracker.TrackActive(room.Id, existing.Id)
		return room, existing, nil
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return nil, nil, err
	}
	member := types.Member{
		Id:        uuid.New().String(),
		RoomId:    room.Id,
		UserId:    userId,
		Role:      types.RoleParticipant,
		Nick:      nick,
		CreatedAt: time.Now(),
	}
	if err := e.persister.StoreMember(member); err != nil {
		return nil, nil, err
	}
	e.tracker.TrackActive(room.Id, member.Id)
	e.touch(room)
	e.publish(room.Id, types.NewEvent(room.Id, member.Id, "", types.EventPresenceRefresh, presenceTags(member.Id, "created")))
	return room, &member, nil
}

// UpdateTitle changes the room title. Host only, WAITING round only.
func (e *Engine) UpdateTitle(roomId, userId, title string) (*types.Room, error) {
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
	if member.Role != types.RoleHost {
		return nil, ErrNotHost
	}
	if room.CurrentRound != types.RoundWaiting {
		return nil, ErrWrongRound
	}
	room.Title = strings.TrimSpace(title)
	room.ExpiresAt = time.Now().Add(time.Duration(e.cfg.RoomConfig.TTLHours) * time.Hour)
	if err := e.persister.StoreRoom(*room); err != nil {
		return nil, err
	}
	e.publish(room.Id, types.NewEvent(room.Id, member.Id, "", types.EventRoomUpdated, map[string]string{"title": room.Title}))
	return room, nil
}

// AdvanceRound moves a room to the next round. Host only; concurrent
// advances are serialized by the conditional round swap, the loser
// observes a conflict.
func (e *Engine) AdvanceRound(roomId, userId string) (*types.Room, error) {
	room, err := e.room(roomId)
	if err != nil {
		return nil, err
	}
	member, err := e.member(roomId, userId)
	if err != nil {
		return nil, err
	}
	if member.Role != types.RoleHost {
		return nil, ErrNotHost
	}
	next, ok := round.Next(room.CurrentRound)
	if !ok {
		return nil, ErrFinalRound
	}
	swapped, err := e.persister.CompareAndSwapRound(room.Id, room.CurrentRound, next)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, ErrWrongRound
	}
	room.CurrentRound = next
	e.touch(room)
	e.publish(room.Id, types.NewEvent(room.Id, member.Id, "", types.EventRoundChanged, map[string]string{"round": string(next)}))
	return room, nil
}

// TransferHost reassigns the owning user of the existing HOST
// membership. If the new host already holds a participant membership,
// the two memberships swap users so the (room, user) uniqueness and
// all authored entries stay intact.
func (e *Engine) TransferHost(roomId, userId, newUserId string) (*types.Room, error) {
	room, err := e.room(roomId)
	if err != nil {
		return nil, err
	}
	host, err := e.member(roomId, userId)
	if err != nil {
		return nil, err
	}
	if host.Role != types.RoleHost {
		return nil, ErrNotHost
	}
	if newUserId == userId {
		return room, nil
	}
	_, err = e.persister.GetMemberByUser(roomId, newUserId)
	switch {
	case err == nil:
		// storing the rows one by one would collide on the (room, user)
		// uniqueness, the persister swaps them in one step
		if err := e.persister.SwapMemberUsers(roomId, userId, newUserId); err != nil {
			return nil, err
		}
	case errors.Is(err, persistence.ErrNotFound):
		host.UserId = newUserId
		if err := e.persister.StoreMember(*host); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	room.HostId = newUserId
	room.ExpiresAt = time.Now().Add(time.Duration(e.cfg.RoomConfig.TTLHours) * time.Hour)
	if err := e.persister.StoreRoom(*room); err != nil {
		return nil, err
	}
	e.publish(room.Id, types.NewEvent(room.Id, host.Id, "", types.EventPresenceRefresh, presenceTags(host.Id, "reassigned")))
	return room, nil
}

// LeaveRoom deletes the caller's membership. The host has to transfer
// the room first. Authored offers, desires and claims are kept.
func (e *Engine) LeaveRoom(roomId, userId string) error {
	room, err := e.room(roomId)
	if err != nil {
		return err
	}
	member, err := e.member(roomId, userId)
	if err != nil {
		return err
	}
	if member.Role == types.RoleHost {
		return ErrHostCannotLeave
	}
	if err := e.persister.DeleteMember(member); err != nil {
		return err
	}
	e.tracker.ClearActive(roomId, member.Id)
	e.publish(room.Id, types.NewEvent(room.Id, member.Id, "", types.EventPresenceRefresh, presenceTags(member.Id, "deleted")))
	return nil
}

// DeleteRoom removes a room with all dependent rows. Host only.
func (e *Engine) DeleteRoom(roomId, userId string) error {
	room, err := e.room(roomId)
	if err != nil {
		return err
	}
	member, err := e.member(roomId, userId)
	if err != nil {
		return err
	}
	if member.Role != types.RoleHost {
		return ErrNotHost
	}
	if err := e.persister.DeleteRoom(room); err != nil {
		return err
	}
	e.tracker.ClearRoom(roomId)
	return nil
}
