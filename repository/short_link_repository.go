package repository

import (
	"context"
	"errors"

	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/utils"
	"gorm.io/gorm"
)

// ShortLinkRepositoryImpl implements ShortLinkRepository
type ShortLinkRepositoryImpl struct {
	*BaseRepository[models.ShortLink, models.ShortLinkFilter]
}

func NewShortLinkRepository(db *gorm.DB) ShortLinkRepository {
	return &ShortLinkRepositoryImpl{BaseRepository: NewBaseRepository[models.ShortLink, models.ShortLinkFilter](db)}
}

func (r *ShortLinkRepositoryImpl) ByID(ctx context.Context, id uint) (*models.ShortLink, error) {
	db := r.getDB(ctx)
	var row models.ShortLink
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *ShortLinkRepositoryImpl) ByCode(ctx context.Context, code string) (*models.ShortLink, error) {
	filter := models.ShortLinkFilter{Code: &code}
	rows, err := r.ByFilter(ctx, filter, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *ShortLinkRepositoryImpl) applyFilter(db *gorm.DB, f models.ShortLinkFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.Code != nil {
		db = db.Where("code = ?", *f.Code)
	}
	if f.CustomerID != nil {
		db = db.Where("customer_id = ?", *f.CustomerID)
	}
	if f.IsCustom != nil {
		db = db.Where("is_custom = ?", *f.IsCustom)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *ShortLinkRepositoryImpl) ByFilter(ctx context.Context, filter models.ShortLinkFilter, orderBy string, limit, offset int) ([]*models.ShortLink, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ShortLink{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.ShortLink
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ShortLinkRepositoryImpl) Count(ctx context.Context, filter models.ShortLinkFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ShortLink{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ShortLinkRepositoryImpl) Exists(ctx context.Context, filter models.ShortLinkFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func (r *ShortLinkRepositoryImpl) ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.ShortLink, error) {
	return r.ByFilter(ctx, models.ShortLinkFilter{CustomerID: &customerID}, "created_at DESC", limit, offset)
}

func (r *ShortLinkRepositoryImpl) CountByCustomer(ctx context.Context, customerID uint) (int64, error) {
	return r.Count(ctx, models.ShortLinkFilter{CustomerID: &customerID})
}

func (r *ShortLinkRepositoryImpl) UpdateDestination(ctx context.Context, id uint, destination string) error {
	db := r.getDB(ctx)
	return db.Model(&models.ShortLink{}).
		Where("id = ?", id).
		Updates(map[string]any{"destination": destination, "updated_at": utils.UTCNow()}).Error
}

func (r *ShortLinkRepositoryImpl) UpdateCode(ctx context.Context, id uint, code string) error {
	db := r.getDB(ctx)
	return db.Model(&models.ShortLink{}).
		Where("id = ?", id).
		Updates(map[string]any{"code": code, "is_custom": true, "updated_at": utils.UTCNow()}).Error
}

func (r *ShortLinkRepositoryImpl) IncrementClicks(ctx context.Context, id uint) error {
	db := r.getDB(ctx)
	return db.Model(&models.ShortLink{}).
		Where("id = ?", id).
		UpdateColumn("clicks", gorm.Expr("clicks + 1")).Error
}

// DeleteWithClicks removes a link and its click history in one transaction
func (r *ShortLinkRepositoryImpl) DeleteWithClicks(ctx context.Context, id uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	if err = db.Where("short_link_id = ?", id).Delete(&models.ShortLinkClick{}).Error; err != nil {
		return err
	}
	if err = db.Delete(&models.ShortLink{}, id).Error; err != nil {
		return err
	}
	return nil
}
