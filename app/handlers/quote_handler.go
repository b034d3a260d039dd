package handlers

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/hypnotizedent/printshop-os-sub010/app/dto"
	businessflow "github.com/hypnotizedent/printshop-os-sub010/business_flow"
	"github.com/hypnotizedent/printshop-os-sub010/utils"
)

// QuoteHandlerInterface defines the quote endpoints
type QuoteHandlerInterface interface {
	CalculateQuote(c fiber.Ctx) error
	ListHistory(c fiber.Ctx) error
	ExportHistory(c fiber.Ctx) error
}

// QuoteHandler handles quote calculation and history requests
type QuoteHandler struct {
	responder
	quoteFlow   businessflow.QuoteFlow
	historyFlow businessflow.CalculationHistoryFlow
	validator   *validator.Validate
}

func NewQuoteHandler(quoteFlow businessflow.QuoteFlow, historyFlow businessflow.CalculationHistoryFlow) QuoteHandlerInterface {
	return &QuoteHandler{
		quoteFlow:   quoteFlow,
		historyFlow: historyFlow,
		validator:   validator.New(),
	}
}

// CalculateQuote prices a request against the active rules.
// @Summary Calculate Quote
// @Description Price a garment decoration request. dry_run skips history; use_cache=false bypasses the quote cache
// @Tags Quotes
// @Accept json
// @Produce json
// @Param request body dto.CalculateQuoteRequest true "Quote request"
// @Success 200 {object} dto.APIResponse{data=dto.CalculateQuoteResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Calculation failed"
// @Router /api/v1/quotes [post]
func (h *QuoteHandler) CalculateQuote(c fiber.Ctx) error {
	var req dto.CalculateQuoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/quotes")
	defer cancel()

	res, err := h.quoteFlow.CalculateRequest(ctx, &req)
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Quote calculation")
	}
	return h.SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// ListHistory returns recorded calculations, newest first.
// @Summary List Calculation History
// @Tags Quotes
// @Produce json
// @Param garment_id query string false "Garment SKU"
// @Param customer_type query string false "Customer type"
// @Param created_after query string false "Date or RFC 3339 timestamp"
// @Param created_before query string false "Date or RFC 3339 timestamp"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} dto.APIResponse{data=dto.ListCalculationHistoryResponse}
// @Failure 400 {object} dto.APIResponse "Invalid filter"
// @Router /api/v1/quotes/history [get]
func (h *QuoteHandler) ListHistory(c fiber.Ctx) error {
	var req dto.ListCalculationHistoryRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/quotes/history")
	defer cancel()

	res, err := h.historyFlow.Query(ctx, &req)
	if err != nil {
		return h.BusinessErrorResponse(c, err, "List calculation history")
	}
	return h.SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// ExportHistory downloads the filtered history as an xlsx workbook.
// @Summary Export Calculation History
// @Tags Quotes
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Failure 400 {object} dto.APIResponse "Invalid filter"
// @Router /api/v1/quotes/history/export [get]
func (h *QuoteHandler) ExportHistory(c fiber.Ctx) error {
	var req dto.ListCalculationHistoryRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/quotes/history/export")
	defer cancel()

	buf, err := h.historyFlow.ExportExcel(ctx, &req)
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Export calculation history")
	}

	filename := "calculation_history_" + strconv.FormatInt(utils.UTCNow().Unix(), 10) + ".xlsx"
	c.Set("Content-Type", utils.ContentTypeXLSX)
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(buf.Bytes())
}
