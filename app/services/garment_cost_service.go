package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/hypnotizedent/printshop-os-sub010/config"
	"github.com/hypnotizedent/printshop-os-sub010/models"
	"github.com/hypnotizedent/printshop-os-sub010/pricing"
	"github.com/hypnotizedent/printshop-os-sub010/repository"
)

// Garment cost error constants
var (
	ErrGarmentNotFound        = errors.New("garment not found")
	ErrGarmentCostUnavailable = errors.New("garment cost unavailable")
)

// GarmentCostProvider resolves the unit cost of a blank garment for an order quantity
type GarmentCostProvider interface {
	BaseCost(ctx context.Context, garmentID string, quantity int) (float64, error)
}

// unitCostFromBreaks picks the price of the quantity break that applies to quantity.
func unitCostFromBreaks(quantity int, breaks []models.PriceBreak) (float64, error) {
	if len(breaks) == 0 {
		return 0, pricing.ErrNoQuantityBreaks
	}
	quantities := make([]int, 0, len(breaks))
	prices := make(map[int]float64, len(breaks))
	for _, b := range breaks {
		if _, dup := prices[b.Quantity]; !dup {
			quantities = append(quantities, b.Quantity)
		}
		prices[b.Quantity] = b.Price
	}
	q, err := pricing.SelectQuantityBreak(quantity, quantities)
	if err != nil {
		return 0, err
	}
	return prices[q], nil
}

// CatalogGarmentCostProvider reads garment costs from the local catalog table
type CatalogGarmentCostProvider struct {
	garmentRepo repository.GarmentRepository
}

func NewCatalogGarmentCostProvider(garmentRepo repository.GarmentRepository) *CatalogGarmentCostProvider {
	return &CatalogGarmentCostProvider{garmentRepo: garmentRepo}
}

// BaseCost prefers the catalog price breaks and falls back to the list price.
func (p *CatalogGarmentCostProvider) BaseCost(ctx context.Context, garmentID string, quantity int) (float64, error) {
	g, err := p.garmentRepo.ByGarmentID(ctx, garmentID)
	if err != nil {
		return 0, fmt.Errorf("catalog lookup failed: %w", err)
	}
	if g == nil {
		return 0, fmt.Errorf("%w: %s", ErrGarmentNotFound, garmentID)
	}

	if cost, err := unitCostFromBreaks(quantity, g.PriceBreaks.Data()); err == nil {
		return cost, nil
	}
	if g.BasePrice > 0 {
		return g.BasePrice, nil
	}
	return 0, fmt.Errorf("%w: %s has no price", ErrGarmentCostUnavailable, garmentID)
}

// SupplierGarmentCostProvider queries the supplier pricing API behind a circuit breaker
type SupplierGarmentCostProvider struct {
	config  *config.SupplierConfig
	client  *http.Client
	breaker *CircuitBreaker
}

// SupplierPriceBreak is one entry of the supplier pricing response
type SupplierPriceBreak struct {
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

func NewSupplierGarmentCostProvider(cfg *config.SupplierConfig) *SupplierGarmentCostProvider {
	return &SupplierGarmentCostProvider{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		breaker: NewCircuitBreaker(CircuitBreakerConfig{
			FailureThreshold: cfg.BreakerFailures,
			SuccessThreshold: cfg.BreakerSuccesses,
			OpenTimeout:      cfg.BreakerOpenTimeout,
		}),
	}
}

// BreakerState exposes the breaker state for health reporting
func (p *SupplierGarmentCostProvider) BreakerState() BreakerState {
	return p.breaker.State()
}

func (p *SupplierGarmentCostProvider) BaseCost(ctx context.Context, garmentID string, quantity int) (float64, error) {
	var breaks []models.PriceBreak
	var notFound error
	err := p.breaker.Execute(func() error {
		var err error
		breaks, err = p.fetchPriceBreaks(ctx, garmentID)
		if errors.Is(err, ErrGarmentNotFound) {
			// an unknown SKU says nothing about supplier health
			notFound = err
			return nil
		}
		return err
	})
	if err == nil {
		err = notFound
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrGarmentCostUnavailable, err)
	}

	cost, err := unitCostFromBreaks(quantity, breaks)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrGarmentCostUnavailable, err)
	}
	return cost, nil
}

func (p *SupplierGarmentCostProvider) fetchPriceBreaks(ctx context.Context, garmentID string) ([]models.PriceBreak, error) {
	endpoint := fmt.Sprintf("%s/v2/products/%s/pricing", strings.TrimRight(p.config.APIURL, "/"), url.PathEscape(garmentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.config.APIKey != "" {
		req.Header.Set("x-api-key", p.config.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call supplier pricing API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrGarmentNotFound, garmentID)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("supplier pricing API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload []SupplierPriceBreak
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode supplier pricing response: %w", err)
	}

	breaks := make([]models.PriceBreak, 0, len(payload))
	for _, b := range payload {
		if b.Quantity < 0 || b.Price < 0 {
			continue
		}
		breaks = append(breaks, models.PriceBreak{Quantity: b.Quantity, Price: b.Price})
	}
	return breaks, nil
}

// ChainGarmentCostProvider asks each provider in order and returns the first cost found
type ChainGarmentCostProvider struct {
	providers []GarmentCostProvider
}

func NewChainGarmentCostProvider(providers ...GarmentCostProvider) *ChainGarmentCostProvider {
	return &ChainGarmentCostProvider{providers: providers}
}

func (c *ChainGarmentCostProvider) BaseCost(ctx context.Context, garmentID string, quantity int) (float64, error) {
	if len(c.providers) == 0 {
		return 0, fmt.Errorf("%w: no providers configured", ErrGarmentCostUnavailable)
	}

	var errs []error
	for _, p := range c.providers {
		cost, err := p.BaseCost(ctx, garmentID, quantity)
		if err == nil {
			return cost, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		log.Printf("garment cost: provider %T failed for %s: %v", p, garmentID, err)
		errs = append(errs, err)
	}
	return 0, fmt.Errorf("%w: %w", ErrGarmentCostUnavailable, errors.Join(errs...))
}

// MockGarmentCostProvider implements GarmentCostProvider for testing
type MockGarmentCostProvider struct {
	Costs map[string]float64
	Err   error
}

func NewMockGarmentCostProvider(costs map[string]float64) *MockGarmentCostProvider {
	return &MockGarmentCostProvider{Costs: costs}
}

func (m *MockGarmentCostProvider) BaseCost(ctx context.Context, garmentID string, quantity int) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	cost, ok := m.Costs[garmentID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrGarmentNotFound, garmentID)
	}
	return cost, nil
}
