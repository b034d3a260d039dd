package businessflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hypnotizedent/printshop-os-sub010/app/dto"
	"github.com/hypnotizedent/printshop-os-sub010/app/services"
	"github.com/hypnotizedent/printshop-os-sub010/cache"
	"github.com/hypnotizedent/printshop-os-sub010/pricing"
	"github.com/hypnotizedent/printshop-os-sub010/utils"
	"golang.org/x/sync/errgroup"
)

// CalculateOptions controls one quote calculation
type CalculateOptions struct {
	DryRun   bool
	UseCache bool
	// AsOf pins the evaluation time; nil means now
	AsOf *time.Time
}

// QuoteSettings are the pricing knobs the quote flow needs from configuration
type QuoteSettings struct {
	Defaults        pricing.Defaults
	DefaultUnitCost float64
	CacheDryRuns    bool
}

// RuleSetSource supplies a consistent snapshot of the stored rules
type RuleSetSource interface {
	ActiveRuleSet(ctx context.Context) (pricing.RuleSet, error)
}

// QuoteFlow calculates quotes
type QuoteFlow interface {
	Calculate(ctx context.Context, in pricing.Input, opts CalculateOptions) (*dto.CalculateQuoteResponse, error)
	CalculateRequest(ctx context.Context, req *dto.CalculateQuoteRequest) (*dto.CalculateQuoteResponse, error)
}

// QuoteFlowImpl implements QuoteFlow
type QuoteFlowImpl struct {
	rules    RuleSetSource
	costs    services.GarmentCostProvider
	cache    cache.QuoteCache
	history  CalculationHistoryFlow
	settings QuoteSettings
	now      func() time.Time
}

func NewQuoteFlow(
	rules RuleSetSource,
	costs services.GarmentCostProvider,
	quoteCache cache.QuoteCache,
	history CalculationHistoryFlow,
	settings QuoteSettings,
) QuoteFlow {
	return &QuoteFlowImpl{
		rules:    rules,
		costs:    costs,
		cache:    quoteCache,
		history:  history,
		settings: settings,
		now:      utils.UTCNow,
	}
}

// CalculateRequest unpacks the HTTP request options and calculates
func (f *QuoteFlowImpl) CalculateRequest(ctx context.Context, req *dto.CalculateQuoteRequest) (*dto.CalculateQuoteResponse, error) {
	opts := CalculateOptions{DryRun: req.DryRun, UseCache: true}
	if req.UseCache != nil {
		opts.UseCache = *req.UseCache
	}
	if req.AsOf != nil && strings.TrimSpace(*req.AsOf) != "" {
		t, err := utils.ParseTimestamp(strings.TrimSpace(*req.AsOf))
		if err != nil {
			return nil, NewBusinessErrorf("INVALID_AS_OF", "as_of %q is not a valid date", ErrInvalidAsOf, *req.AsOf)
		}
		opts.AsOf = &t
	}
	return f.Calculate(ctx, req.ToInput(), opts)
}

// Calculate prices one request. Only invalid input and an unreadable rule store are errors;
// an unavailable garment cost falls back to the configured default unit cost.
func (f *QuoteFlowImpl) Calculate(ctx context.Context, in pricing.Input, opts CalculateOptions) (*dto.CalculateQuoteResponse, error) {
	start := time.Now()

	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, NewBusinessError("QUOTE_INPUT_INVALID", "Quote request is invalid", fmt.Errorf("%w: %w", ErrQuoteInputInvalid, err))
	}

	asOf := f.now()
	pinned := opts.AsOf != nil
	if pinned {
		asOf = opts.AsOf.UTC()
	}

	var (
		rs       pricing.RuleSet
		baseCost float64
		fallback bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rs, err = f.rules.ActiveRuleSet(gctx)
		return err
	})
	g.Go(func() error {
		cost, err := f.garmentBaseCost(gctx, in)
		if IsUpstreamUnavailable(err) {
			if !errors.Is(err, context.Canceled) {
				log.Printf("quote: %v; using default unit cost", err)
			}
			fallback = true
			baseCost = f.settings.DefaultUnitCost
			return nil
		}
		baseCost = cost
		return err
	})
	if err := g.Wait(); err != nil {
		var be *BusinessError
		if errors.As(err, &be) {
			return nil, err
		}
		return nil, NewBusinessError("RULE_SET_LOAD_FAILED", "Failed to load pricing rules", err)
	}

	compute := func(context.Context) (pricing.QuoteResult, bool, error) {
		res := pricing.Calculate(in, rs.Rules, baseCost, asOf, f.settings.Defaults)
		res.BaseCostFallback = fallback
		return res, !fallback, nil
	}

	var (
		quote    pricing.QuoteResult
		cacheHit bool
		outcome  = cacheOutcomeBypass
	)
	if f.cache != nil && opts.UseCache && (!opts.DryRun || f.settings.CacheDryRuns) {
		var err error
		quote, cacheHit, err = f.cache.GetOrCompute(ctx, rs.CacheKey(in, asOf, pinned), compute)
		if err != nil {
			return nil, NewBusinessError("QUOTE_FAILED", "Failed to calculate quote", err)
		}
		outcome = cacheOutcomeMiss
		if cacheHit {
			outcome = cacheOutcomeHit
		}
	} else {
		quote, _, _ = compute(ctx)
	}

	if quote.BaseCostFallback {
		garmentCostFallbacks.Inc()
	}
	quotesTotal.WithLabelValues(outcome, boolLabel(quote.BaseCostFallback), boolLabel(opts.DryRun)).Inc()
	quoteDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	resp := &dto.CalculateQuoteResponse{
		Message:  "Quote calculated successfully",
		Quote:    quote,
		CacheHit: cacheHit,
		DryRun:   opts.DryRun,
	}

	if !opts.DryRun && f.history != nil {
		id, err := f.history.Record(ctx, in, quote, cacheHit, f.now())
		if err != nil {
			historyWriteFailures.Inc()
			log.Printf("quote: failed to record calculation history for %s: %v", in.GarmentID, err)
		} else {
			resp.CorrelationID = id.String()
		}
	}

	return resp, nil
}

// garmentBaseCost wraps every provider failure in ErrUpstreamUnavailable
func (f *QuoteFlowImpl) garmentBaseCost(ctx context.Context, in pricing.Input) (float64, error) {
	cost, err := f.costs.BaseCost(ctx, in.GarmentID, in.Quantity)
	if err != nil {
		return 0, NewBusinessErrorf("GARMENT_COST_UNAVAILABLE", "garment cost for %s unavailable", fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err), in.GarmentID)
	}
	return cost, nil
}
