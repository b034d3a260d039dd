package models

import (
	"time"

	"gorm.io/datatypes"
)

// PriceBreak is a supplier unit price that starts at Quantity pieces.
type PriceBreak struct {
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Garment is a blank garment in the supplier catalog.
// Table: garments
type Garment struct {
	ID          uint                             `gorm:"primaryKey" json:"id"`
	GarmentID   string                           `gorm:"size:128;not null;uniqueIndex:uk_garments_garment_id" json:"garment_id"`
	Name        string                           `gorm:"size:255;not null" json:"name"`
	Brand       string                           `gorm:"size:255" json:"brand"`
	Supplier    string                           `gorm:"size:64;index:idx_garments_supplier" json:"supplier"`
	GarmentType string                           `gorm:"size:64" json:"garment_type"`
	BasePrice   float64                          `gorm:"type:numeric(10,4);not null" json:"base_price"`
	PriceBreaks datatypes.JSONType[[]PriceBreak] `gorm:"type:jsonb" json:"price_breaks"`
	IsActive    *bool                            `gorm:"default:true;index:idx_garments_is_active" json:"is_active"`
	CreatedAt   time.Time                        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time                        `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Garment) TableName() string {
	return "garments"
}

// GarmentFilter represents filter criteria for garment queries
type GarmentFilter struct {
	GarmentID *string
	Supplier  *string
	IsActive  *bool
}
