package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hypnotizedent/printshop-os-sub010/models"
	"gorm.io/gorm"
)

// RuleSetVersionRepositoryImpl implements RuleSetVersionRepository on a single-row table
type RuleSetVersionRepositoryImpl struct {
	*BaseRepository[models.RuleSetVersion, struct{}]
}

// NewRuleSetVersionRepository creates a new rule set version repository
func NewRuleSetVersionRepository(db *gorm.DB) RuleSetVersionRepository {
	return &RuleSetVersionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.RuleSetVersion, struct{}](db),
	}
}

// Current returns the version, 0 before the first mutation.
func (r *RuleSetVersionRepositoryImpl) Current(ctx context.Context) (int64, error) {
	db := r.getDB(ctx)

	var row models.RuleSetVersion
	err := db.Where("id = ?", models.RuleSetVersionRowID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read rule set version: %w", err)
	}
	return row.Version, nil
}

// Bump increments the version and returns the new value. Call it inside the transaction that
// mutates the rules so readers never see new rules under an old version.
func (r *RuleSetVersionRepositoryImpl) Bump(ctx context.Context) (version int64, err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
	}
	defer finish(db, shouldCommit, &err)

	err = db.Raw(`
		INSERT INTO rule_set_versions (id, version, updated_at)
		VALUES (?, 1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET version = rule_set_versions.version + 1, updated_at = NOW()
		RETURNING version
	`, models.RuleSetVersionRowID).Scan(&version).Error
	if err != nil {
		return 0, fmt.Errorf("failed to bump rule set version: %w", err)
	}
	return version, nil
}
