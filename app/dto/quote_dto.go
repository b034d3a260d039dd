package dto

import (
	"strings"

	"github.com/hypnotizedent/printshop-os-sub010/pricing"
)

// CalculateQuoteRequest represents the request body for a quote calculation
type CalculateQuoteRequest struct {
	GarmentID      string   `json:"garment_id" validate:"required,max=128"`
	Service        string   `json:"service" validate:"required,max=64"`
	Quantity       int      `json:"quantity" validate:"gte=0"`
	PrintLocations []string `json:"print_locations,omitempty" validate:"omitempty,dive,required,max=64"`
	ColorCount     int      `json:"color_count,omitempty" validate:"gte=0"`
	StitchCount    int      `json:"stitch_count,omitempty" validate:"gte=0"`
	CustomerType   string   `json:"customer_type,omitempty" validate:"max=64"`
	GarmentType    string   `json:"garment_type,omitempty" validate:"max=64"`
	Supplier       string   `json:"supplier,omitempty" validate:"max=64"`
	IsRush         bool     `json:"is_rush,omitempty"`

	DryRun   bool    `json:"dry_run,omitempty"`
	UseCache *bool   `json:"use_cache,omitempty"`
	AsOf     *string `json:"as_of,omitempty"`
}

// ToInput extracts the pricing input from the request
func (r CalculateQuoteRequest) ToInput() pricing.Input {
	return pricing.Input{
		GarmentID:      strings.TrimSpace(r.GarmentID),
		Service:        r.Service,
		Quantity:       r.Quantity,
		PrintLocations: r.PrintLocations,
		ColorCount:     r.ColorCount,
		StitchCount:    r.StitchCount,
		CustomerType:   r.CustomerType,
		GarmentType:    r.GarmentType,
		Supplier:       r.Supplier,
		IsRush:         r.IsRush,
	}
}

// CalculateQuoteResponse represents the response for a quote calculation
type CalculateQuoteResponse struct {
	Message       string              `json:"message"`
	Quote         pricing.QuoteResult `json:"quote"`
	CacheHit      bool                `json:"cache_hit"`
	DryRun        bool                `json:"dry_run"`
	CorrelationID string              `json:"correlation_id,omitempty"`
}
