package dto

import (
	"encoding/json"
)

// ListCalculationHistoryRequest represents query parameters for history listing
type ListCalculationHistoryRequest struct {
	GarmentID     *string `query:"garment_id" validate:"omitempty,max=128"`
	CustomerType  *string `query:"customer_type" validate:"omitempty,max=64"`
	CreatedAfter  *string `query:"created_after"`
	CreatedBefore *string `query:"created_before"`
	Page          int     `query:"page"`
	PageSize      int     `query:"page_size"`
}

// CalculationHistoryItem is one recorded calculation
type CalculationHistoryItem struct {
	CorrelationID string          `json:"correlation_id"`
	GarmentID     string          `json:"garment_id"`
	CustomerType  *string         `json:"customer_type,omitempty"`
	Service       string          `json:"service"`
	Quantity      int             `json:"quantity"`
	TotalPrice    float64         `json:"total_price"`
	CacheHit      bool            `json:"cache_hit"`
	Input         json.RawMessage `json:"input"`
	Output        json.RawMessage `json:"output"`
	CreatedAt     string          `json:"created_at"`
}

// PaginationInfo describes the page returned by list endpoints
type PaginationInfo struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// ListCalculationHistoryResponse represents a page of history records
type ListCalculationHistoryResponse struct {
	Message    string                   `json:"message"`
	Items      []CalculationHistoryItem `json:"items"`
	Pagination PaginationInfo           `json:"pagination"`
}
