package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CalculationHistory is an append-only record of a non dry-run quote calculation.
// Table: calculation_history
type CalculationHistory struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CorrelationID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_calculation_history_correlation_id" json:"correlation_id"`
	GarmentID     string         `gorm:"size:128;not null;index:idx_calculation_history_garment_id" json:"garment_id"`
	CustomerType  *string        `gorm:"size:64;index:idx_calculation_history_customer_type" json:"customer_type,omitempty"`
	Service       string         `gorm:"size:64;not null" json:"service"`
	Quantity      int            `gorm:"not null" json:"quantity"`
	TotalPrice    float64        `gorm:"type:numeric(14,2);not null" json:"total_price"`
	CacheHit      bool           `gorm:"not null;default:false" json:"cache_hit"`
	Input         datatypes.JSON `gorm:"type:jsonb;not null" json:"input"`
	Output        datatypes.JSON `gorm:"type:jsonb;not null" json:"output"`
	CreatedAt     time.Time      `gorm:"not null;index:idx_calculation_history_created_at" json:"created_at"`
}

func (CalculationHistory) TableName() string {
	return "calculation_history"
}

// CalculationHistoryFilter represents filter criteria for calculation history queries
type CalculationHistoryFilter struct {
	GarmentID     *string
	CustomerType  *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
