package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hypnotizedent/printshop-os-sub010/models"
	"gorm.io/gorm"
)

// GarmentRepositoryImpl implements GarmentRepository
type GarmentRepositoryImpl struct {
	*BaseRepository[models.Garment, models.GarmentFilter]
}

// NewGarmentRepository creates a new garment catalog repository
func NewGarmentRepository(db *gorm.DB) GarmentRepository {
	return &GarmentRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Garment, models.GarmentFilter](db),
	}
}

// ByGarmentID retrieves an active garment by SKU.
func (r *GarmentRepositoryImpl) ByGarmentID(ctx context.Context, garmentID string) (*models.Garment, error) {
	db := r.getDB(ctx)

	var g models.Garment
	err := db.Where("garment_id = ? AND is_active = ?", garmentID, true).First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find garment %s: %w", garmentID, err)
	}
	return &g, nil
}

func (r *GarmentRepositoryImpl) applyFilter(db *gorm.DB, filter models.GarmentFilter) *gorm.DB {
	if filter.GarmentID != nil {
		db = db.Where("garment_id = ?", *filter.GarmentID)
	}
	if filter.Supplier != nil {
		db = db.Where("supplier = ?", *filter.Supplier)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	return db
}

func (r *GarmentRepositoryImpl) ByFilter(ctx context.Context, filter models.GarmentFilter, orderBy string, limit, offset int) ([]*models.Garment, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Garment{}), filter)

	if orderBy == "" {
		orderBy = "garment_id ASC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Garment
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find garments: %w", err)
	}
	return rows, nil
}

func (r *GarmentRepositoryImpl) Count(ctx context.Context, filter models.GarmentFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Garment{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count garments: %w", err)
	}
	return count, nil
}

func (r *GarmentRepositoryImpl) Exists(ctx context.Context, filter models.GarmentFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
