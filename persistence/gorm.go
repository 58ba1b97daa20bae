package persistence

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tcriess/gift-circle/config"
	"github.com/tcriess/gift-circle/types"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormPersist struct {
	db *gorm.DB
}

func NewGormPersister(cfg *config.Config) (Persister, error) {
	db, err := setupGormDB(cfg)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, nil // no or wrong configuration, ignore the persister
	}
	p := GormPersist{db: db}
	return &p, nil
}

func setupGormDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.PersistenceConfig.DSN == "" {
		return nil, nil
	}
	var dial gorm.Dialector
	switch cfg.PersistenceConfig.Type {
	case "postgres":
		dial = postgres.Open(cfg.PersistenceConfig.DSN)

	case "sqlite":
		dial = sqlite.Open(cfg.PersistenceConfig.DSN)

	default:
		return nil, fmt.Errorf("invalid gorm configuration")
	}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	err = db.Migrator().AutoMigrate(&types.Room{}, &types.Member{}, &types.Offer{}, &types.Desire{}, &types.Claim{}, &types.Event{})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func gormErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (p *GormPersist) StoreRoom(room types.Room) error {
	return p.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&room).Error
}

func (p *GormPersist) GetRoom(room *types.Room) error {
	return gormErr(p.db.First(room).Error)
}

func (p *GormPersist) GetRoomByCode(code string) (*types.Room, error) {
	room := types.Room{}
	err := p.db.Where("code = ?", code).First(&room).Error
	if err != nil {
		return nil, gormErr(err)
	}
	return &room, nil
}

func (p *GormPersist) GetRooms() ([]*types.Room, error) {
	rooms := make([]*types.Room, 0)
	err := p.db.Find(&rooms).Error
	return rooms, err
}

func (p *GormPersist) DeleteRoom(room *types.Room) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&types.Claim{}, &types.Offer{}, &types.Desire{}, &types.Member{}, &types.Event{}} {
			if err := tx.Where("room_id = ?", room.Id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(room).Error
	})
}

func (p *GormPersist) CompareAndSwapRound(roomId string, from, to types.Round) (bool, error) {
	res := p.db.Model(&types.Room{}).Where("id = ? AND current_round = ?", roomId, from).Update("current_round", to)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		// a failed guard and a missing row both affect no rows
		return false, p.exists(&types.Room{}, roomId)
	}
	return true, nil
}

// exists distinguishes a failed conditional write from a missing row.
func (p *GormPersist) exists(model interface{}, id string) error {
	var count int64
	if err := p.db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *GormPersist) StoreMember(member types.Member) error {
	return p.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&member).Error
}

func (p *GormPersist) GetMember(member *types.Member) error {
	return gormErr(p.db.First(member).Error)
}

func (p *GormPersist) GetMemberByUser(roomId, userId string) (*types.Member, error) {
	member := types.Member{}
	err := p.db.Where("room_id = ? AND user_id = ?", roomId, userId).First(&member).Error
	if err != nil {
		return nil, gormErr(err)
	}
	return &member, nil
}

func (p *GormPersist) GetMembers(roomId string) ([]*types.Member, error) {
	members := make([]*types.Member, 0)
	err := p.db.Where("room_id = ?", roomId).Order("created_at ASC").Find(&members).Error
	return members, err
}

func (p *GormPersist) DeleteMember(member *types.Member) error {
	return p.db.Delete(member).Error
}

func (p *GormPersist) SwapMemberUsers(roomId, userIdA, userIdB string) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		a := types.Member{}
		if err := tx.Where("room_id = ? AND user_id = ?", roomId, userIdA).First(&a).Error; err != nil {
			return gormErr(err)
		}
		b := types.Member{}
		if err := tx.Where("room_id = ? AND user_id = ?", roomId, userIdB).First(&b).Error; err != nil {
			return gormErr(err)
		}
		// sqlite checks the unique index per statement, so one row is
		// parked on a placeholder user while the other moves
		placeholder := "\x00swap:" + uuid.New().String()
		if err := tx.Model(&types.Member{}).Where("id = ?", a.Id).Update("user_id", placeholder).Error; err != nil {
			return err
		}
		if err := tx.Model(&types.Member{}).Where("id = ?", b.Id).Update("user_id", userIdA).Error; err != nil {
			return err
		}
		return tx.Model(&types.Member{}).Where("id = ?", a.Id).Update("user_id", userIdB).Error
	})
}

func (p *GormPersist) StoreOffer(offer types.Offer) error {
	return p.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&offer).Error
}

func (p *GormPersist) GetOffer(offer *types.Offer) error {
	return gormErr(p.db.First(offer).Error)
}

func (p *GormPersist) GetOffers(roomId string) ([]*types.Offer, error) {
	offers := make([]*types.Offer, 0)
	err := p.db.Where("room_id = ?", roomId).Order("created_at ASC").Find(&offers).Error
	return offers, err
}

func (p *GormPersist) DeleteOffer(offer *types.Offer) error {
	return p.db.Delete(offer).Error
}

func (p *GormPersist) StoreDesire(desire types.Desire) error {
	return p.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&desire).Error
}

func (p *GormPersist) GetDesire(desire *types.Desire) error {
	return gormErr(p.db.First(desire).Error)
}

func (p *GormPersist) GetDesires(roomId string) ([]*types.Desire, error) {
	desires := make([]*types.Desire, 0)
	err := p.db.Where("room_id = ?", roomId).Order("created_at ASC").Find(&desires).Error
	return desires, err
}

func (p *GormPersist) DeleteDesire(desire *types.Desire) error {
	return p.db.Delete(desire).Error
}

func (p *GormPersist) StoreClaim(claim types.Claim) error {
	return p.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&claim).Error
}

func (p *GormPersist) GetClaim(claim *types.Claim) error {
	return gormErr(p.db.First(claim).Error)
}

func (p *GormPersist) GetClaims(roomId string) ([]*types.Claim, error) {
	claims := make([]*types.Claim, 0)
	err := p.db.Where("room_id = ?", roomId).Order("created_at ASC").Find(&claims).Error
	return claims, err
}

func (p *GormPersist) CompareAndSwapClaimStatus(claimId string, expected, next string) (bool, error) {
	res := p.db.Model(&types.Claim{}).Where("id = ? AND status = ?", claimId, expected).Update("status", next)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, p.exists(&types.Claim{}, claimId)
	}
	return true, nil
}

func (p *GormPersist) StoreEvents(_ string, events []*types.Event) error {
	if len(events) == 0 {
		return nil
	}
	return p.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&events).Error
}

func (p *GormPersist) GetEventHistory(roomId string, fromTs, toTs time.Time, fromIdx, maxCount int) ([]*types.Event, error) {
	if maxCount <= 0 {
		maxCount = -1 // no limit
	}
	events := make([]*types.Event, 0)
	err := p.db.Where("room_id = ? AND created BETWEEN ? AND ?", roomId, fromTs, toTs).Order("created DESC").Limit(maxCount).Offset(fromIdx).Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (p *GormPersist) Close() error {
	return nil
}
