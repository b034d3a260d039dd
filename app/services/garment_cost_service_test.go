package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hypnotizedent/printshop-os-sub010/config"
	"github.com/hypnotizedent/printshop-os-sub010/models"
	"github.com/hypnotizedent/printshop-os-sub010/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fakeGarmentRepo struct {
	repository.GarmentRepository
	garments map[string]*models.Garment
	err      error
}

func (f *fakeGarmentRepo) ByGarmentID(ctx context.Context, garmentID string) (*models.Garment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.garments[garmentID], nil
}

func TestUnitCostFromBreaks(t *testing.T) {
	breaks := []models.PriceBreak{
		{Quantity: 1, Price: 4.50},
		{Quantity: 72, Price: 3.90},
		{Quantity: 144, Price: 3.25},
	}

	tests := []struct {
		name     string
		quantity int
		want     float64
	}{
		{"below smallest break", 0, 4.50},
		{"exact break", 72, 3.90},
		{"between breaks", 100, 3.90},
		{"above largest break", 5000, 3.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := unitCostFromBreaks(tt.quantity, breaks)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := unitCostFromBreaks(10, nil)
	assert.Error(t, err)
}

func TestCatalogGarmentCostProvider(t *testing.T) {
	repo := &fakeGarmentRepo{garments: map[string]*models.Garment{
		"G500": {
			GarmentID: "G500",
			BasePrice: 5.00,
			PriceBreaks: datatypes.NewJSONType([]models.PriceBreak{
				{Quantity: 1, Price: 4.25},
				{Quantity: 100, Price: 3.75},
			}),
		},
		"PC61": {GarmentID: "PC61", BasePrice: 6.10},
		"FREE": {GarmentID: "FREE"},
	}}
	p := NewCatalogGarmentCostProvider(repo)
	ctx := context.Background()

	cost, err := p.BaseCost(ctx, "G500", 150)
	require.NoError(t, err)
	assert.Equal(t, 3.75, cost)

	cost, err = p.BaseCost(ctx, "PC61", 10)
	require.NoError(t, err)
	assert.Equal(t, 6.10, cost)

	_, err = p.BaseCost(ctx, "FREE", 10)
	assert.ErrorIs(t, err, ErrGarmentCostUnavailable)

	_, err = p.BaseCost(ctx, "MISSING", 10)
	assert.ErrorIs(t, err, ErrGarmentNotFound)

	repo.err = errors.New("connection refused")
	_, err = p.BaseCost(ctx, "G500", 10)
	assert.Error(t, err)
}

func newSupplierConfig(url string) *config.SupplierConfig {
	return &config.SupplierConfig{
		APIURL:             url,
		APIKey:             "supplier-key",
		Timeout:            2 * time.Second,
		BreakerFailures:    2,
		BreakerSuccesses:   1,
		BreakerOpenTimeout: time.Minute,
	}
}

func TestSupplierGarmentCostProvider(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "supplier-key", r.Header.Get("x-api-key"))
		switch r.URL.Path {
		case "/v2/products/G500/pricing":
			_ = json.NewEncoder(w).Encode([]SupplierPriceBreak{
				{Quantity: 1, Price: 4.10},
				{Quantity: 48, Price: 3.60},
			})
		case "/v2/products/BROKEN/pricing":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	t.Run("price break lookup", func(t *testing.T) {
		p := NewSupplierGarmentCostProvider(newSupplierConfig(srv.URL + "/"))
		cost, err := p.BaseCost(context.Background(), "G500", 60)
		require.NoError(t, err)
		assert.Equal(t, 3.60, cost)
	})

	t.Run("unknown garment does not trip the breaker", func(t *testing.T) {
		p := NewSupplierGarmentCostProvider(newSupplierConfig(srv.URL))
		for i := 0; i < 3; i++ {
			_, err := p.BaseCost(context.Background(), "NOPE", 1)
			assert.ErrorIs(t, err, ErrGarmentNotFound)
		}
		assert.Equal(t, BreakerClosed, p.BreakerState())
	})

	t.Run("breaker opens on upstream errors", func(t *testing.T) {
		p := NewSupplierGarmentCostProvider(newSupplierConfig(srv.URL))
		for i := 0; i < 2; i++ {
			_, err := p.BaseCost(context.Background(), "BROKEN", 1)
			assert.ErrorIs(t, err, ErrGarmentCostUnavailable)
		}
		require.Equal(t, BreakerOpen, p.BreakerState())

		before := calls.Load()
		_, err := p.BaseCost(context.Background(), "G500", 1)
		assert.ErrorIs(t, err, ErrCircuitOpen)
		assert.Equal(t, before, calls.Load())
	})
}

func TestChainGarmentCostProvider(t *testing.T) {
	ctx := context.Background()
	failing := &MockGarmentCostProvider{Err: errors.New("down")}
	catalog := NewMockGarmentCostProvider(map[string]float64{"G500": 4.00})

	chain := NewChainGarmentCostProvider(failing, catalog)
	cost, err := chain.BaseCost(ctx, "G500", 10)
	require.NoError(t, err)
	assert.Equal(t, 4.00, cost)

	_, err = chain.BaseCost(ctx, "MISSING", 10)
	assert.ErrorIs(t, err, ErrGarmentCostUnavailable)
	assert.ErrorIs(t, err, ErrGarmentNotFound)

	_, err = NewChainGarmentCostProvider().BaseCost(ctx, "G500", 1)
	assert.ErrorIs(t, err, ErrGarmentCostUnavailable)
}
