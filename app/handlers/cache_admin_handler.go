package handlers

import (
	"github.com/gofiber/fiber/v3"
	businessflow "github.com/hypnotizedent/printshop-os-sub010/business_flow"
)

// CacheAdminHandlerInterface defines admin endpoints for the quote cache
type CacheAdminHandlerInterface interface {
	Stats(c fiber.Ctx) error
	Invalidate(c fiber.Ctx) error
}

type CacheAdminHandler struct {
	responder
	flow businessflow.CacheAdminFlow
}

func NewCacheAdminHandler(flow businessflow.CacheAdminFlow) CacheAdminHandlerInterface {
	return &CacheAdminHandler{flow: flow}
}

// Stats reports quote cache effectiveness.
// @Summary Quote Cache Stats (Admin)
// @Tags Admin Cache
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.CacheStatsResponse}
// @Router /api/v1/admin/cache/stats [get]
func (h *CacheAdminHandler) Stats(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/cache/stats")
	defer cancel()

	res, err := h.flow.Stats(ctx)
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Cache stats")
	}
	return h.SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// Invalidate drops every cached quote.
// @Summary Invalidate Quote Cache (Admin)
// @Tags Admin Cache
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.InvalidateCacheResponse}
// @Router /api/v1/admin/cache/invalidate [post]
func (h *CacheAdminHandler) Invalidate(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/cache/invalidate")
	defer cancel()

	res, err := h.flow.Invalidate(ctx)
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Cache invalidation")
	}
	return h.SuccessResponse(c, fiber.StatusOK, res.Message, res)
}
