// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/hypnotizedent/printshop-os-sub010/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// PricingRuleRepository defines operations for pricing rules
type PricingRuleRepository interface {
	Repository[models.PricingRule, models.PricingRuleFilter]
	ByRuleID(ctx context.Context, ruleID string) (*models.PricingRule, error)
	ListAll(ctx context.Context) ([]models.PricingRule, error)
	Update(ctx context.Context, rule *models.PricingRule) error
	DeleteByRuleID(ctx context.Context, ruleID string) (bool, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// RuleSetVersionRepository tracks the version counter of the rule set
type RuleSetVersionRepository interface {
	Current(ctx context.Context) (int64, error)
	Bump(ctx context.Context) (int64, error)
}

// CalculationHistoryRepository defines operations for calculation history (append only)
type CalculationHistoryRepository interface {
	Repository[models.CalculationHistory, models.CalculationHistoryFilter]
}

// GarmentRepository defines operations for the garment catalog
type GarmentRepository interface {
	Repository[models.Garment, models.GarmentFilter]
	ByGarmentID(ctx context.Context, garmentID string) (*models.Garment, error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByRuleID(ctx context.Context, ruleID string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
