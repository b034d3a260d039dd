package businessflow

import (
	"context"

	"github.com/hypnotizedent/printshop-os-sub010/app/dto"
	"github.com/hypnotizedent/printshop-os-sub010/cache"
	"github.com/hypnotizedent/printshop-os-sub010/models"
	"github.com/hypnotizedent/printshop-os-sub010/repository"
)

// CacheAdminFlow exposes the quote cache to administrators
type CacheAdminFlow interface {
	Stats(ctx context.Context) (*dto.CacheStatsResponse, error)
	Invalidate(ctx context.Context) (*dto.InvalidateCacheResponse, error)
}

const cacheDisabled = "disabled"

type CacheAdminFlowImpl struct {
	quoteCache cache.QuoteCache
	auditRepo  repository.AuditLogRepository
}

func NewCacheAdminFlow(quoteCache cache.QuoteCache, auditRepo repository.AuditLogRepository) CacheAdminFlow {
	return &CacheAdminFlowImpl{quoteCache: quoteCache, auditRepo: auditRepo}
}

func (f *CacheAdminFlowImpl) Stats(ctx context.Context) (*dto.CacheStatsResponse, error) {
	if f.quoteCache == nil {
		return &dto.CacheStatsResponse{Message: "Quote cache is disabled", Provider: cacheDisabled}, nil
	}
	st, err := f.quoteCache.Stats(ctx)
	if err != nil {
		return nil, NewBusinessError("CACHE_STATS_FAILED", "Failed to read cache statistics", err)
	}
	return &dto.CacheStatsResponse{
		Message:  "Cache statistics retrieved successfully",
		Provider: st.Provider,
		Size:     st.Size,
		Hits:     st.Hits,
		Misses:   st.Misses,
		HitRate:  st.HitRate,
	}, nil
}

func (f *CacheAdminFlowImpl) Invalidate(ctx context.Context) (*dto.InvalidateCacheResponse, error) {
	if f.quoteCache == nil {
		return &dto.InvalidateCacheResponse{Message: "Quote cache is disabled"}, nil
	}
	if err := f.quoteCache.InvalidateAll(ctx); err != nil {
		msg := err.Error()
		createAuditLog(ctx, f.auditRepo, auditEntry{
			action:      models.AuditActionCacheInvalidated,
			description: "Quote cache invalidation failed",
			success:     false,
			errorMsg:    &msg,
		})
		return nil, NewBusinessError("CACHE_INVALIDATE_FAILED", "Failed to invalidate quote cache", err)
	}

	createAuditLog(ctx, f.auditRepo, auditEntry{
		action:      models.AuditActionCacheInvalidated,
		description: "Quote cache invalidated",
		success:     true,
	})
	return &dto.InvalidateCacheResponse{Message: "Quote cache invalidated successfully"}, nil
}
