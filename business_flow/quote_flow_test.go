package businessflow

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hypnotizedent/printshop-os-sub010/app/dto"
	"github.com/hypnotizedent/printshop-os-sub010/app/services"
	"github.com/hypnotizedent/printshop-os-sub010/cache"
	"github.com/hypnotizedent/printshop-os-sub010/models"
	"github.com/hypnotizedent/printshop-os-sub010/pricing"
	"github.com/hypnotizedent/printshop-os-sub010/utils"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var quoteNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeRuleSource struct {
	rs    pricing.RuleSet
	err   error
	calls atomic.Int32
}

func (s *fakeRuleSource) ActiveRuleSet(context.Context) (pricing.RuleSet, error) {
	s.calls.Add(1)
	return s.rs, s.err
}

type quoteFixture struct {
	flow    *QuoteFlowImpl
	rules   *fakeRuleSource
	costs   *services.MockGarmentCostProvider
	cache   *cache.MemoryQuoteCache
	history *fakeHistoryRepo
}

func newQuoteFixture(t *testing.T, cacheDryRuns bool) *quoteFixture {
	t.Helper()
	discount := 10.0
	minQty := 100
	rules := &fakeRuleSource{rs: pricing.RuleSet{
		Version: 3,
		Rules: []models.PricingRule{{
			RuleID:        "bulk",
			Version:       1,
			EffectiveDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Conditions:    datatypes.NewJSONType(models.RuleConditions{QuantityMin: &minQty}),
			Calculations:  datatypes.NewJSONType(models.RuleCalculations{DiscountPct: &discount}),
			Priority:      10,
			Enabled:       true,
		}},
	}}
	costs := services.NewMockGarmentCostProvider(map[string]float64{"PC61": 4.5})
	qc := cache.NewMemoryQuoteCache(time.Minute, 0)
	t.Cleanup(qc.Close)
	history := &fakeHistoryRepo{}

	flow := &QuoteFlowImpl{
		rules:   rules,
		costs:   costs,
		cache:   qc,
		history: NewCalculationHistoryFlow(history),
		settings: QuoteSettings{
			Defaults:        pricing.DefaultDefaults(),
			DefaultUnitCost: 5,
			CacheDryRuns:    cacheDryRuns,
		},
		now: func() time.Time { return quoteNow },
	}
	return &quoteFixture{flow: flow, rules: rules, costs: costs, cache: qc, history: history}
}

func sampleInput() pricing.Input {
	return pricing.Input{
		GarmentID:      "PC61",
		Service:        "Screen",
		Quantity:       150,
		PrintLocations: []string{"front", "back"},
		ColorCount:     2,
	}
}

func TestQuoteCalculate(t *testing.T) {
	t.Run("prices with the stored rules and records history", func(t *testing.T) {
		fx := newQuoteFixture(t, true)
		ctx := context.Background()

		resp, err := fx.flow.Calculate(ctx, sampleInput(), CalculateOptions{UseCache: true})
		require.NoError(t, err)

		want := pricing.Calculate(sampleInput(), fx.rules.rs.Rules, 4.5, quoteNow, pricing.DefaultDefaults())
		assert.Equal(t, want.TotalPrice, resp.Quote.TotalPrice)
		assert.Equal(t, []string{"bulk"}, resp.Quote.RulesApplied)
		assert.False(t, resp.CacheHit)
		assert.False(t, resp.Quote.BaseCostFallback)
		assert.NotEmpty(t, resp.CorrelationID)

		require.Equal(t, 1, fx.history.count())
		row := fx.history.rows[0]
		assert.Equal(t, "screen", row.Service)
		assert.Equal(t, want.TotalPrice, row.TotalPrice)
		assert.Equal(t, quoteNow, row.CreatedAt)
	})

	t.Run("second identical request is a cache hit", func(t *testing.T) {
		fx := newQuoteFixture(t, true)
		ctx := context.Background()

		first, err := fx.flow.Calculate(ctx, sampleInput(), CalculateOptions{UseCache: true})
		require.NoError(t, err)
		in := sampleInput()
		in.PrintLocations = []string{"BACK", "front"}
		second, err := fx.flow.Calculate(ctx, in, CalculateOptions{UseCache: true})
		require.NoError(t, err)

		assert.True(t, second.CacheHit)
		assert.Equal(t, first.Quote.TotalPrice, second.Quote.TotalPrice)
		require.Equal(t, 2, fx.history.count())
		assert.True(t, fx.history.rows[1].CacheHit)
	})

	t.Run("cache bypass", func(t *testing.T) {
		fx := newQuoteFixture(t, true)
		ctx := context.Background()

		for i := 0; i < 2; i++ {
			resp, err := fx.flow.Calculate(ctx, sampleInput(), CalculateOptions{UseCache: false})
			require.NoError(t, err)
			assert.False(t, resp.CacheHit)
		}
		st, err := fx.cache.Stats(ctx)
		require.NoError(t, err)
		assert.Zero(t, st.Size)
		assert.Zero(t, st.Hits+st.Misses)
	})

	t.Run("dry runs are idempotent and leave no history", func(t *testing.T) {
		fx := newQuoteFixture(t, true)
		ctx := context.Background()

		a, err := fx.flow.Calculate(ctx, sampleInput(), CalculateOptions{DryRun: true, UseCache: true})
		require.NoError(t, err)
		b, err := fx.flow.Calculate(ctx, sampleInput(), CalculateOptions{DryRun: true, UseCache: true})
		require.NoError(t, err)

		assert.Equal(t, a.Quote.TotalPrice, b.Quote.TotalPrice)
		assert.Equal(t, a.Quote.LineItems, b.Quote.LineItems)
		assert.True(t, b.CacheHit)
		assert.True(t, b.DryRun)
		assert.Empty(t, b.CorrelationID)
		assert.Zero(t, fx.history.count())
	})

	t.Run("dry runs skip the cache when configured", func(t *testing.T) {
		fx := newQuoteFixture(t, false)
		ctx := context.Background()

		_, err := fx.flow.Calculate(ctx, sampleInput(), CalculateOptions{DryRun: true, UseCache: true})
		require.NoError(t, err)
		st, _ := fx.cache.Stats(ctx)
		assert.Zero(t, st.Size)
	})

	t.Run("unavailable garment cost falls back and is not cached", func(t *testing.T) {
		fx := newQuoteFixture(t, true)
		fx.costs.Err = services.ErrGarmentCostUnavailable
		ctx := context.Background()

		resp, err := fx.flow.Calculate(ctx, sampleInput(), CalculateOptions{UseCache: true})
		require.NoError(t, err)
		assert.True(t, resp.Quote.BaseCostFallback)
		want := pricing.Calculate(sampleInput(), fx.rules.rs.Rules, 5, quoteNow, pricing.DefaultDefaults())
		assert.Equal(t, want.TotalPrice, resp.Quote.TotalPrice)

		st, _ := fx.cache.Stats(ctx)
		assert.Zero(t, st.Size)
	})

	t.Run("provider failure is reported as upstream unavailable", func(t *testing.T) {
		fx := newQuoteFixture(t, true)
		fx.costs.Err = services.ErrCircuitOpen

		_, err := fx.flow.garmentBaseCost(context.Background(), sampleInput())
		require.Error(t, err)
		assert.True(t, IsUpstreamUnavailable(err))
		assert.ErrorIs(t, err, services.ErrCircuitOpen)
		assert.Equal(t, "GARMENT_COST_UNAVAILABLE", ErrorCode(err))

		resp, err := fx.flow.Calculate(context.Background(), sampleInput(), CalculateOptions{UseCache: true})
		require.NoError(t, err)
		assert.True(t, resp.Quote.BaseCostFallback)
	})

	t.Run("fallback counter ignores cache hits", func(t *testing.T) {
		fx := newQuoteFixture(t, true)
		ctx := context.Background()

		_, err := fx.flow.Calculate(ctx, sampleInput(), CalculateOptions{UseCache: true})
		require.NoError(t, err)

		fx.costs.Err = services.ErrGarmentCostUnavailable
		before := testutil.ToFloat64(garmentCostFallbacks)
		resp, err := fx.flow.Calculate(ctx, sampleInput(), CalculateOptions{UseCache: true})
		require.NoError(t, err)
		assert.True(t, resp.CacheHit)
		assert.False(t, resp.Quote.BaseCostFallback)
		assert.Equal(t, before, testutil.ToFloat64(garmentCostFallbacks))

		in := sampleInput()
		in.Quantity = 250
		resp, err = fx.flow.Calculate(ctx, in, CalculateOptions{UseCache: true})
		require.NoError(t, err)
		assert.False(t, resp.CacheHit)
		assert.True(t, resp.Quote.BaseCostFallback)
		assert.Equal(t, before+1, testutil.ToFloat64(garmentCostFallbacks))
	})

	t.Run("pinned as_of drops expired rules", func(t *testing.T) {
		fx := newQuoteFixture(t, true)
		expiry := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		fx.rules.rs.Rules[0].ExpiryDate = &expiry

		before := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		resp, err := fx.flow.Calculate(context.Background(), sampleInput(), CalculateOptions{UseCache: true, AsOf: &before})
		require.NoError(t, err)
		assert.Equal(t, []string{"bulk"}, resp.Quote.RulesApplied)

		resp, err = fx.flow.Calculate(context.Background(), sampleInput(), CalculateOptions{UseCache: true})
		require.NoError(t, err)
		assert.Empty(t, resp.Quote.RulesApplied)
		assert.False(t, resp.CacheHit)
	})

	t.Run("invalid input", func(t *testing.T) {
		fx := newQuoteFixture(t, true)
		in := sampleInput()
		in.Quantity = -1

		_, err := fx.flow.Calculate(context.Background(), in, CalculateOptions{UseCache: true})
		require.Error(t, err)
		assert.True(t, IsQuoteInputInvalid(err))
		assert.ErrorIs(t, err, pricing.ErrInvalidInput)
		assert.Zero(t, fx.rules.calls.Load())
	})

	t.Run("rule store failure", func(t *testing.T) {
		fx := newQuoteFixture(t, true)
		fx.rules.err = errStorage

		_, err := fx.flow.Calculate(context.Background(), sampleInput(), CalculateOptions{UseCache: true})
		require.Error(t, err)
		assert.ErrorIs(t, err, errStorage)
		assert.Equal(t, "RULE_SET_LOAD_FAILED", ErrorCode(err))
	})

	t.Run("history failure does not fail the quote", func(t *testing.T) {
		fx := newQuoteFixture(t, true)
		fx.history.saveErr = errStorage

		resp, err := fx.flow.Calculate(context.Background(), sampleInput(), CalculateOptions{UseCache: true})
		require.NoError(t, err)
		assert.Empty(t, resp.CorrelationID)
	})

	t.Run("zero quantity", func(t *testing.T) {
		fx := newQuoteFixture(t, true)
		in := sampleInput()
		in.Quantity = 0

		resp, err := fx.flow.Calculate(context.Background(), in, CalculateOptions{UseCache: true})
		require.NoError(t, err)
		assert.Zero(t, resp.Quote.TotalPrice)
	})
}

func TestQuoteCalculateRequest(t *testing.T) {
	fx := newQuoteFixture(t, true)
	ctx := context.Background()

	req := &dto.CalculateQuoteRequest{
		GarmentID: "PC61",
		Service:   "screen",
		Quantity:  10,
		UseCache:  utils.ToPtr(false),
		AsOf:      utils.ToPtr("2024-06-01"),
	}
	resp, err := fx.flow.CalculateRequest(ctx, req)
	require.NoError(t, err)
	assert.False(t, resp.CacheHit)

	req.AsOf = utils.ToPtr("yesterday")
	_, err = fx.flow.CalculateRequest(ctx, req)
	require.Error(t, err)
	assert.True(t, IsInvalidAsOf(err))
	assert.True(t, IsClientError(err))
}
