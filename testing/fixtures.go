package testing

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/hypnotizedent/printshop-os-sub010/models"
	"github.com/hypnotizedent/printshop-os-sub010/utils"
	"gorm.io/datatypes"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// RuleOption tweaks a fixture rule before it is stored
type RuleOption func(*models.PricingRule)

func WithPriority(p int) RuleOption {
	return func(r *models.PricingRule) { r.Priority = p }
}

func WithDisabled() RuleOption {
	return func(r *models.PricingRule) { r.Enabled = false }
}

func WithWindow(effective time.Time, expiry *time.Time) RuleOption {
	return func(r *models.PricingRule) {
		r.EffectiveDate = effective
		r.ExpiryDate = expiry
	}
}

func WithDiscount(pct float64) RuleOption {
	return func(r *models.PricingRule) {
		r.Calculations = datatypes.NewJSONType(models.RuleCalculations{DiscountPct: &pct})
	}
}

// CreateTestRule stores an enabled rule effective since 2020 with the given id
func (tf *TestFixtures) CreateTestRule(ruleID string, opts ...RuleOption) (*models.PricingRule, error) {
	minQty := 1
	rule := &models.PricingRule{
		RuleID:        ruleID,
		Description:   "fixture rule " + ruleID,
		Version:       1,
		EffectiveDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Conditions:    datatypes.NewJSONType(models.RuleConditions{QuantityMin: &minQty}),
		Calculations:  datatypes.NewJSONType(models.RuleCalculations{}),
		Enabled:       true,
	}
	for _, opt := range opts {
		opt(rule)
	}

	if err := tf.DB.DB.Create(rule).Error; err != nil {
		return nil, fmt.Errorf("failed to create test rule: %w", err)
	}
	return rule, nil
}

// CreateTestGarment stores an active catalog garment with two price breaks
func (tf *TestFixtures) CreateTestGarment(garmentID string, basePrice float64) (*models.Garment, error) {
	g := &models.Garment{
		GarmentID:   garmentID,
		Name:        "Core Cotton Tee",
		Brand:       "Port & Company",
		Supplier:    "sanmar",
		GarmentType: "t-shirt",
		BasePrice:   basePrice,
		PriceBreaks: datatypes.NewJSONType([]models.PriceBreak{
			{Quantity: 72, Price: basePrice * 0.9},
			{Quantity: 144, Price: basePrice * 0.8},
		}),
		IsActive: utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(g).Error; err != nil {
		return nil, fmt.Errorf("failed to create test garment: %w", err)
	}
	return g, nil
}

// CreateTestHistory stores a calculation history record created at ts
func (tf *TestFixtures) CreateTestHistory(garmentID string, customerType *string, ts time.Time) (*models.CalculationHistory, error) {
	qty := rand.Intn(500) + 1
	input, _ := json.Marshal(map[string]any{"garment_id": garmentID, "quantity": qty})
	output, _ := json.Marshal(map[string]any{"total_price": float64(qty) * 5})

	h := &models.CalculationHistory{
		CorrelationID: uuid.New(),
		GarmentID:     garmentID,
		CustomerType:  customerType,
		Service:       "screen",
		Quantity:      qty,
		TotalPrice:    float64(qty) * 5,
		Input:         datatypes.JSON(input),
		Output:        datatypes.JSON(output),
		CreatedAt:     ts.UTC(),
	}

	if err := tf.DB.DB.Create(h).Error; err != nil {
		return nil, fmt.Errorf("failed to create test history: %w", err)
	}
	return h, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(ruleID *string, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test audit log for action: %s", action)
	auditLog := &models.AuditLog{
		Action:      action,
		RuleID:      ruleID,
		Description: &description,
		Success:     utils.ToPtr(success),
		RequestID:   utils.ToPtr(uuid.NewString()),
	}
	if !success {
		auditLog.ErrorMessage = utils.ToPtr("fixture failure")
	}

	if err := tf.DB.DB.Create(auditLog).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}
	return auditLog, nil
}
