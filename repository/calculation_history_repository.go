package repository

import (
	"context"
	"fmt"

	"github.com/hypnotizedent/printshop-os-sub010/models"
	"gorm.io/gorm"
)

// CalculationHistoryRepositoryImpl implements CalculationHistoryRepository
type CalculationHistoryRepositoryImpl struct {
	*BaseRepository[models.CalculationHistory, models.CalculationHistoryFilter]
}

// NewCalculationHistoryRepository creates a new calculation history repository
func NewCalculationHistoryRepository(db *gorm.DB) CalculationHistoryRepository {
	return &CalculationHistoryRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CalculationHistory, models.CalculationHistoryFilter](db),
	}
}

func (r *CalculationHistoryRepositoryImpl) applyFilter(db *gorm.DB, filter models.CalculationHistoryFilter) *gorm.DB {
	if filter.GarmentID != nil {
		db = db.Where("garment_id = ?", *filter.GarmentID)
	}
	if filter.CustomerType != nil {
		db = db.Where("customer_type = ?", *filter.CustomerType)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}

// ByFilter retrieves history records, newest first by default.
func (r *CalculationHistoryRepositoryImpl) ByFilter(ctx context.Context, filter models.CalculationHistoryFilter, orderBy string, limit, offset int) ([]*models.CalculationHistory, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CalculationHistory{}), filter)

	if orderBy == "" {
		orderBy = "created_at DESC, id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.CalculationHistory
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find calculation history: %w", err)
	}
	return rows, nil
}

func (r *CalculationHistoryRepositoryImpl) Count(ctx context.Context, filter models.CalculationHistoryFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CalculationHistory{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count calculation history: %w", err)
	}
	return count, nil
}

func (r *CalculationHistoryRepositoryImpl) Exists(ctx context.Context, filter models.CalculationHistoryFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
