package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amirphl/Kusanagi/models"
	"gorm.io/gorm"
)

// ShortLinkClickRepositoryImpl implements ShortLinkClickRepository
type ShortLinkClickRepositoryImpl struct {
	*BaseRepository[models.ShortLinkClick, models.ShortLinkClickFilter]
}

func NewShortLinkClickRepository(db *gorm.DB) ShortLinkClickRepository {
	return &ShortLinkClickRepositoryImpl{BaseRepository: NewBaseRepository[models.ShortLinkClick, models.ShortLinkClickFilter](db)}
}

func (r *ShortLinkClickRepositoryImpl) ByID(ctx context.Context, id uint) (*models.ShortLinkClick, error) {
	db := r.getDB(ctx)
	var row models.ShortLinkClick
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *ShortLinkClickRepositoryImpl) applyFilter(db *gorm.DB, f models.ShortLinkClickFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.ShortLinkID != nil {
		db = db.Where("short_link_id = ?", *f.ShortLinkID)
	}
	if f.Code != nil {
		db = db.Where("code = ?", *f.Code)
	}
	if f.DeviceType != nil {
		db = db.Where("device_type = ?", *f.DeviceType)
	}
	if f.Country != nil {
		db = db.Where("country = ?", *f.Country)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *ShortLinkClickRepositoryImpl) ByFilter(ctx context.Context, filter models.ShortLinkClickFilter, orderBy string, limit, offset int) ([]*models.ShortLinkClick, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ShortLinkClick{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.ShortLinkClick
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ShortLinkClickRepositoryImpl) Count(ctx context.Context, filter models.ShortLinkClickFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ShortLinkClick{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ShortLinkClickRepositoryImpl) Exists(ctx context.Context, filter models.ShortLinkClickFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func (r *ShortLinkClickRepositoryImpl) ListByShortLink(ctx context.Context, shortLinkID uint, limit, offset int) ([]*models.ShortLinkClick, error) {
	return r.ByFilter(ctx, models.ShortLinkClickFilter{ShortLinkID: &shortLinkID}, "created_at DESC", limit, offset)
}

func (r *ShortLinkClickRepositoryImpl) CountSince(ctx context.Context, shortLinkID uint, since time.Time) (int64, error) {
	return r.Count(ctx, models.ShortLinkClickFilter{ShortLinkID: &shortLinkID, CreatedAfter: &since})
}

// TopValues groups clicks of a link by the given column and returns the most
// frequent values. NULLs are folded into "Unknown". The column name comes from
// a fixed set in the analytics flow, never from user input.
func (r *ShortLinkClickRepositoryImpl) TopValues(ctx context.Context, shortLinkID uint, column string, limit int) ([]ValueCount, error) {
	db := r.getDB(ctx)
	var rows []ValueCount
	err := db.Model(&models.ShortLinkClick{}).
		Select("COALESCE("+column+", 'Unknown') AS value, COUNT(*) AS count").
		Where("short_link_id = ?", shortLinkID).
		Group("value").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// HourlyHistogram buckets a link's clicks by hour of day (UTC, 0..23)
func (r *ShortLinkClickRepositoryImpl) HourlyHistogram(ctx context.Context, shortLinkID uint) ([]HourCount, error) {
	db := r.getDB(ctx)
	var rows []HourCount
	err := db.Model(&models.ShortLinkClick{}).
		Select("EXTRACT(HOUR FROM created_at)::int AS hour, COUNT(*) AS count").
		Where("short_link_id = ?", shortLinkID).
		Group("hour").
		Order("hour ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
