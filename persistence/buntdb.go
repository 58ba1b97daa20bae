package persistence

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/tcriess/gift-circle/config"
	"github.com/tcriess/gift-circle/types"
	"github.com/tidwall/buntdb"
)

// BuntDBPersist is the file (or :memory:) backed persister. All rows
// are stored as JSON values; per-room rows are keyed
// "<kind>:<roomId>:<id>" so one room can be iterated with a key prefix.
type BuntDBPersist struct {
	db *buntdb.DB
}

func NewBuntPersister(cfg *config.Config) (Persister, error) {
	db, err := setupBuntDB(cfg)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, nil // no or wrong configuration, ignore the persister
	}
	return &BuntDBPersist{db}, nil
}

func setupBuntDB(cfg *config.Config) (*buntdb.DB, error) {
	if cfg.PersistenceConfig.DSN == "" {
		return nil, nil
	}
	db, err := buntdb.Open(cfg.PersistenceConfig.DSN)
	if err != nil {
		return nil, err
	}
	err = db.CreateIndex("eventsts", "event:*", buntdb.IndexJSON("created"))
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func buntErr(err error) error {
	if err == buntdb.ErrNotFound {
		return ErrNotFound
	}
	return err
}

func (p *BuntDBPersist) setJSON(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, string(raw), nil)
		return err
	})
}

func (p *BuntDBPersist) getJSON(key string, v interface{}) error {
	err := p.db.View(func(tx *buntdb.Tx) error {
		raw, err := tx.Get(key)
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(raw), v)
	})
	return buntErr(err)
}

func (p *BuntDBPersist) deleteKey(key string) error {
	err := p.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(key)
		return err
	})
	if err == buntdb.ErrNotFound {
		return nil
	}
	return err
}

// collectPrefix returns the raw JSON values of all keys with the given
// prefix.
func (p *BuntDBPersist) collectPrefix(prefix string) ([]string, error) {
	raws := make([]string, 0)
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(prefix+"*", func(key, value string) bool {
			raws = append(raws, value)
			return true
		})
	})
	return raws, err
}

func (p *BuntDBPersist) StoreRoom(room types.Room) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		if _, _, err := tx.Set("room:"+room.Id, string(raw), nil); err != nil {
			return err
		}
		_, _, err := tx.Set("roomcode:"+room.Code, room.Id, nil)
		return err
	})
}

func (p *BuntDBPersist) GetRoom(room *types.Room) error {
	if room.Id == "" {
		return fmt.Errorf("no room id")
	}
	return p.getJSON("room:"+room.Id, room)
}

func (p *BuntDBPersist) GetRoomByCode(code string) (*types.Room, error) {
	room := types.Room{}
	err := p.db.View(func(tx *buntdb.Tx) error {
		id, err := tx.Get("roomcode:" + code)
		if err != nil {
			return err
		}
		raw, err := tx.Get("room:" + id)
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(raw), &room)
	})
	if err != nil {
		return nil, buntErr(err)
	}
	return &room, nil
}

func (p *BuntDBPersist) GetRooms() ([]*types.Room, error) {
	raws, err := p.collectPrefix("room:")
	if err != nil {
		return nil, err
	}
	rooms := make([]*types.Room, 0, len(raws))
	for _, raw := range raws {
		room := types.Room{}
		if err := json.Unmarshal([]byte(raw), &room); err != nil {
			return nil, err
		}
		rooms = append(rooms, &room)
	}
	return rooms, nil
}

func (p *BuntDBPersist) DeleteRoom(room *types.Room) error {
	return p.db.Update(func(tx *buntdb.Tx) error {
		drop := make([]string, 0)
		for _, prefix := range []string{
			"member:" + room.Id + ":",
			"offer:" + room.Id + ":",
			"desire:" + room.Id + ":",
			"claim:" + room.Id + ":",
			"event:" + room.Id + ":",
		} {
			err := tx.AscendKeys(prefix+"*", func(key, value string) bool {
				drop = append(drop, key)
				return true
			})
			if err != nil {
				return err
			}
		}
		drop = append(drop, "room:"+room.Id, "roomcode:"+room.Code)
		for _, key := range drop {
			if _, err := tx.Delete(key); err != nil && err != buntdb.ErrNotFound {
				return err
			}
		}
		return nil
	})
}

func (p *BuntDBPersist) CompareAndSwapRound(roomId string, from, to types.Round) (bool, error) {
	swapped := false
	err := p.db.Update(func(tx *buntdb.Tx) error {
		raw, err := tx.Get("room:" + roomId)
		if err != nil {
			return err
		}
		room := types.Room{}
		if err := json.Unmarshal([]byte(raw), &room); err != nil {
			return err
		}
		if room.CurrentRound != from {
			return nil
		}
		room.CurrentRound = to
		room.UpdatedAt = time.Now()
		out, err := json.Marshal(room)
		if err != nil {
			return err
		}
		if _, _, err := tx.Set("room:"+roomId, string(out), nil); err != nil {
			return err
		}
		swapped = true
		return nil
	})
	return swapped, buntErr(err)
}

func (p *BuntDBPersist) StoreMember(member types.Member) error {
	return p.setJSON("member:"+member.RoomId+":"+member.Id, member)
}

func (p *BuntDBPersist) GetMember(member *types.Member) error {
	if member.Id == "" || member.RoomId == "" {
		return fmt.Errorf("no member id")
	}
	return p.getJSON("member:"+member.RoomId+":"+member.Id, member)
}

func (p *BuntDBPersist) GetMemberByUser(roomId, userId string) (*types.Member, error) {
	members, err := p.GetMembers(roomId)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.UserId == userId {
			return m, nil
		}
	}
	return nil, ErrNotFound
}

func (p *BuntDBPersist) GetMembers(roomId string) ([]*types.Member, error) {
	raws, err := p.collectPrefix("member:" + roomId + ":")
	if err != nil {
		return nil, err
	}
	members := make([]*types.Member, 0, len(raws))
	for _, raw := range raws {
		m := types.Member{}
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, err
		}
		members = append(members, &m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].CreatedAt.Before(members[j].CreatedAt) })
	return members, nil
}

func (p *BuntDBPersist) DeleteMember(member *types.Member) error {
	return p.deleteKey("member:" + member.RoomId + ":" + member.Id)
}

func (p *BuntDBPersist) SwapMemberUsers(roomId, userIdA, userIdB string) error {
	err := p.db.Update(func(tx *buntdb.Tx) error {
		var a, b *types.Member
		err := tx.AscendKeys("member:"+roomId+":*", func(key, value string) bool {
			m := types.Member{}
			if err := json.Unmarshal([]byte(value), &m); err != nil {
				return true
			}
			switch m.UserId {
			case userIdA:
				a = &m
			case userIdB:
				b = &m
			}
			return a == nil || b == nil
		})
		if err != nil {
			return err
		}
		if a == nil || b == nil {
			return buntdb.ErrNotFound
		}
		a.UserId, b.UserId = userIdB, userIdA
		for _, m := range []*types.Member{a, b} {
			raw, err := json.Marshal(m)
			if err != nil {
				return err
			}
			if _, _, err := tx.Set("member:"+roomId+":"+m.Id, string(raw), nil); err != nil {
				return err
			}
		}
		return nil
	})
	return buntErr(err)
}

func (p *BuntDBPersist) StoreOffer(offer types.Offer) error {
	return p.setJSON("offer:"+offer.RoomId+":"+offer.Id, offer)
}

func (p *BuntDBPersist) GetOffer(offer *types.Offer) error {
	if offer.Id == "" || offer.RoomId == "" {
		return fmt.Errorf("no offer id")
	}
	return p.getJSON("offer:"+offer.RoomId+":"+offer.Id, offer)
}

func (p *BuntDBPersist) GetOffers(roomId string) ([]*types.Offer, error) {
	raws, err := p.collectPrefix("offer:" + roomId + ":")
	if err != nil {
		return nil, err
	}
	offers := make([]*types.Offer, 0, len(raws))
	for _, raw := range raws {
		o := types.Offer{}
		if err := json.Unmarshal([]byte(raw), &o); err != nil {
			return nil, err
		}
		offers = append(offers, &o)
	}
	sort.Slice(offers, func(i, j int) bool { return offers[i].CreatedAt.Before(offers[j].CreatedAt) })
	return offers, nil
}

func (p *BuntDBPersist) DeleteOffer(offer *types.Offer) error {
	return p.deleteKey("offer:" + offer.RoomId + ":" + offer.Id)
}

func (p *BuntDBPersist) StoreDesire(desire types.Desire) error {
	return p.setJSON("desire:"+desire.RoomId+":"+desire.Id, desire)
}

func (p *BuntDBPersist) GetDesire(desire *types.Desire) error {
	if desire.Id == "" || desire.RoomId == "" {
		return fmt.Errorf("no desire id")
	}
	return p.getJSON("desire:"+desire.RoomId+":"+desire.Id, desire)
}

func (p *BuntDBPersist) GetDesires(roomId string) ([]*types.Desire, error) {
	raws, err := p.collectPrefix("desire:" + roomId + ":")
	if err != nil {
		return nil, err
	}
	desires := make([]*types.Desire, 0, len(raws))
	for _, raw := range raws {
		d := types.Desire{}
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, err
		}
		desires = append(desires, &d)
	}
	sort.Slice(desires, func(i, j int) bool { return desires[i].CreatedAt.Before(desires[j].CreatedAt) })
	return desires, nil
}

func (p *BuntDBPersist) DeleteDesire(desire *types.Desire) error {
	return p.deleteKey("desire:" + desire.RoomId + ":" + desire.Id)
}

func (p *BuntDBPersist) StoreClaim(claim types.Claim) error {
	return p.setJSON("claim:"+claim.RoomId+":"+claim.Id, claim)
}

func (p *BuntDBPersist) GetClaim(claim *types.Claim) error {
	if claim.Id == "" || claim.RoomId == "" {
		return fmt.Errorf("no claim id")
	}
	return p.getJSON("claim:"+claim.RoomId+":"+claim.Id, claim)
}

func (p *BuntDBPersist) GetClaims(roomId string) ([]*types.Claim, error) {
	raws, err := p.collectPrefix("claim:" + roomId + ":")
	if err != nil {
		return nil, err
	}
	claims := make([]*types.Claim, 0, len(raws))
	for _, raw := range raws {
		c := types.Claim{}
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, err
		}
		claims = append(claims, &c)
	}
	sort.Slice(claims, func(i, j int) bool { return claims[i].CreatedAt.Before(claims[j].CreatedAt) })
	return claims, nil
}

func (p *BuntDBPersist) CompareAndSwapClaimStatus(claimId string, expected, next string) (bool, error) {
	swapped := false
	err := p.db.Update(func(tx *buntdb.Tx) error {
		var key, raw string
		err := tx.AscendKeys("claim:*:"+claimId, func(k, v string) bool {
			key, raw = k, v
			return false
		})
		if err != nil {
			return err
		}
		if key == "" {
			return buntdb.ErrNotFound
		}
		claim := types.Claim{}
		if err := json.Unmarshal([]byte(raw), &claim); err != nil {
			return err
		}
		if claim.Status != expected {
			return nil
		}
		claim.Status = next
		claim.UpdatedAt = time.Now()
		out, err := json.Marshal(claim)
		if err != nil {
			return err
		}
		if _, _, err := tx.Set(key, string(out), nil); err != nil {
			return err
		}
		swapped = true
		return nil
	})
	return swapped, buntErr(err)
}

func (p *BuntDBPersist) StoreEvents(roomId string, events []*types.Event) error {
	return p.db.Update(func(tx *buntdb.Tx) error {
		for _, event := range events {
			raw, err := json.Marshal(event)
			if err != nil {
				return err
			}
			if _, _, err := tx.Set("event:"+roomId+":"+event.Id, string(raw), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *BuntDBPersist) GetEventHistory(roomId string, fromTs, toTs time.Time, fromIdx, maxCount int) ([]*types.Event, error) {
	raws, err := p.collectPrefix("event:" + roomId + ":")
	if err != nil {
		return nil, err
	}
	events := make([]*types.Event, 0, len(raws))
	for _, raw := range raws {
		e := types.Event{}
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, err
		}
		if e.Created.Before(fromTs) || e.Created.After(toTs) {
			continue
		}
		events = append(events, &e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Created.After(events[j].Created) })
	if fromIdx >= len(events) {
		return []*types.Event{}, nil
	}
	events = events[fromIdx:]
	if maxCount > 0 && len(events) > maxCount {
		events = events[:maxCount]
	}
	return events, nil
}

func (p *BuntDBPersist) Close() error {
	return p.db.Close()
}
