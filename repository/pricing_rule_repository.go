package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hypnotizedent/printshop-os-sub010/models"
	"gorm.io/gorm"
)

// PricingRuleRepositoryImpl implements PricingRuleRepository
type PricingRuleRepositoryImpl struct {
	*BaseRepository[models.PricingRule, models.PricingRuleFilter]
}

// NewPricingRuleRepository creates a new repository for pricing rules
func NewPricingRuleRepository(db *gorm.DB) PricingRuleRepository {
	return &PricingRuleRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PricingRule, models.PricingRuleFilter](db),
	}
}

// ByRuleID retrieves a rule by its public identifier.
func (r *PricingRuleRepositoryImpl) ByRuleID(ctx context.Context, ruleID string) (*models.PricingRule, error) {
	db := r.getDB(ctx)

	var rule models.PricingRule
	err := db.Where("rule_id = ?", ruleID).First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find pricing rule %s: %w", ruleID, err)
	}
	return &rule, nil
}

// ListAll returns every stored rule ordered by priority and id.
func (r *PricingRuleRepositoryImpl) ListAll(ctx context.Context) ([]models.PricingRule, error) {
	db := r.getDB(ctx)

	var rules []models.PricingRule
	if err := db.Order("priority DESC, rule_id ASC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to list pricing rules: %w", err)
	}
	return rules, nil
}

// Update overwrites every column of an existing rule.
func (r *PricingRuleRepositoryImpl) Update(ctx context.Context, rule *models.PricingRule) (err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	defer finish(db, shouldCommit, &err)

	if err = db.Save(rule).Error; err != nil {
		return fmt.Errorf("failed to update pricing rule %s: %w", rule.RuleID, err)
	}
	return nil
}

// DeleteByRuleID removes a rule and reports whether it existed.
func (r *PricingRuleRepositoryImpl) DeleteByRuleID(ctx context.Context, ruleID string) (deleted bool, err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
	}
	defer finish(db, shouldCommit, &err)

	res := db.Where("rule_id = ?", ruleID).Delete(&models.PricingRule{})
	if err = res.Error; err != nil {
		return false, fmt.Errorf("failed to delete pricing rule %s: %w", ruleID, err)
	}
	return res.RowsAffected > 0, nil
}

// DeleteAll removes every rule; used by replacing imports.
func (r *PricingRuleRepositoryImpl) DeleteAll(ctx context.Context) (n int64, err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
	}
	defer finish(db, shouldCommit, &err)

	res := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.PricingRule{})
	if err = res.Error; err != nil {
		return 0, fmt.Errorf("failed to delete pricing rules: %w", err)
	}
	return res.RowsAffected, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *PricingRuleRepositoryImpl) applyFilter(db *gorm.DB, filter models.PricingRuleFilter) *gorm.DB {
	if filter.RuleID != nil {
		db = db.Where("rule_id = ?", *filter.RuleID)
	}
	if len(filter.RuleIDs) > 0 {
		db = db.Where("rule_id IN ?", filter.RuleIDs)
	}
	if filter.Enabled != nil {
		db = db.Where("enabled = ?", *filter.Enabled)
	}
	if filter.ActiveAt != nil {
		db = db.Where("enabled = ? AND effective_date <= ? AND (expiry_date IS NULL OR expiry_date > ?)",
			true, *filter.ActiveAt, *filter.ActiveAt)
	}
	return db
}

// ByFilter retrieves pricing rules based on filter criteria.
func (r *PricingRuleRepositoryImpl) ByFilter(ctx context.Context, filter models.PricingRuleFilter, orderBy string, limit, offset int) ([]*models.PricingRule, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.PricingRule{}), filter)

	if orderBy == "" {
		orderBy = "priority DESC, rule_id ASC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.PricingRule
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find pricing rules: %w", err)
	}
	return rows, nil
}

// Count returns the number of pricing rules matching the filter.
func (r *PricingRuleRepositoryImpl) Count(ctx context.Context, filter models.PricingRuleFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.PricingRule{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count pricing rules: %w", err)
	}
	return count, nil
}

// Exists checks if any pricing rule matching the filter exists.
func (r *PricingRuleRepositoryImpl) Exists(ctx context.Context, filter models.PricingRuleFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
