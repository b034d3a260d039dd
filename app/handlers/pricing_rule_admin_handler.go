package handlers

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/hypnotizedent/printshop-os-sub010/app/dto"
	businessflow "github.com/hypnotizedent/printshop-os-sub010/business_flow"
	"github.com/hypnotizedent/printshop-os-sub010/pricing"
	"github.com/hypnotizedent/printshop-os-sub010/utils"
)

// PricingRuleAdminHandlerInterface defines admin endpoints for pricing rules
type PricingRuleAdminHandlerInterface interface {
	ListRules(c fiber.Ctx) error
	GetRule(c fiber.Ctx) error
	CreateRule(c fiber.Ctx) error
	UpdateRule(c fiber.Ctx) error
	DeleteRule(c fiber.Ctx) error
	ValidateRule(c fiber.Ctx) error
	ImportRules(c fiber.Ctx) error
	ExportRules(c fiber.Ctx) error
}

// PricingRuleAdminHandler implements admin endpoints for pricing rules
type PricingRuleAdminHandler struct {
	responder
	flow      businessflow.PricingRuleFlow
	validator *validator.Validate
}

func NewPricingRuleAdminHandler(flow businessflow.PricingRuleFlow) PricingRuleAdminHandlerInterface {
	return &PricingRuleAdminHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// ListRules returns every stored rule.
// @Summary List Pricing Rules (Admin)
// @Tags Admin Pricing Rules
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ListPricingRulesResponse}
// @Failure 500 {object} dto.APIResponse "List failed"
// @Router /api/v1/admin/pricing-rules [get]
func (h *PricingRuleAdminHandler) ListRules(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/pricing-rules")
	defer cancel()

	res, err := h.flow.ListRules(ctx)
	if err != nil {
		return h.BusinessErrorResponse(c, err, "List pricing rules")
	}
	return h.SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// GetRule returns one rule by id.
// @Summary Get Pricing Rule (Admin)
// @Tags Admin Pricing Rules
// @Produce json
// @Param id path string true "Rule id"
// @Success 200 {object} dto.APIResponse{data=dto.PricingRuleResponse}
// @Failure 404 {object} dto.APIResponse "Rule not found"
// @Router /api/v1/admin/pricing-rules/{id} [get]
func (h *PricingRuleAdminHandler) GetRule(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/pricing-rules/:id")
	defer cancel()

	res, err := h.flow.GetRule(ctx, c.Params("id"))
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Get pricing rule")
	}
	return h.SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// CreateRule stores a new rule.
// @Summary Create Pricing Rule (Admin)
// @Tags Admin Pricing Rules
// @Accept json
// @Produce json
// @Param request body pricing.RuleDraft true "Pricing rule"
// @Success 201 {object} dto.APIResponse{data=dto.PricingRuleResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Duplicate id"
// @Router /api/v1/admin/pricing-rules [post]
func (h *PricingRuleAdminHandler) CreateRule(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/pricing-rules")
	defer cancel()

	res, err := h.flow.CreateRule(ctx, c.Body())
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Create pricing rule")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, res.Message, res)
}

// UpdateRule applies a JSON merge patch (RFC 7386) to a stored rule.
// @Summary Update Pricing Rule (Admin)
// @Tags Admin Pricing Rules
// @Accept application/merge-patch+json
// @Produce json
// @Param id path string true "Rule id"
// @Success 200 {object} dto.APIResponse{data=dto.PricingRuleResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Rule not found"
// @Router /api/v1/admin/pricing-rules/{id} [patch]
func (h *PricingRuleAdminHandler) UpdateRule(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/pricing-rules/:id")
	defer cancel()

	res, err := h.flow.UpdateRule(ctx, c.Params("id"), c.Body())
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Update pricing rule")
	}
	return h.SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// DeleteRule removes a rule. Unknown ids answer deleted=false.
// @Summary Delete Pricing Rule (Admin)
// @Tags Admin Pricing Rules
// @Produce json
// @Param id path string true "Rule id"
// @Success 200 {object} dto.APIResponse{data=dto.DeletePricingRuleResponse}
// @Router /api/v1/admin/pricing-rules/{id} [delete]
func (h *PricingRuleAdminHandler) DeleteRule(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/pricing-rules/:id")
	defer cancel()

	res, err := h.flow.DeleteRule(ctx, c.Params("id"))
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Delete pricing rule")
	}
	return h.SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// ValidateRule checks a rule without storing it.
// @Summary Validate Pricing Rule (Admin)
// @Tags Admin Pricing Rules
// @Accept json
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ValidatePricingRuleResponse}
// @Router /api/v1/admin/pricing-rules/validate [post]
func (h *PricingRuleAdminHandler) ValidateRule(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/pricing-rules/validate")
	defer cancel()

	res, err := h.flow.ValidateRule(ctx, c.Body())
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Validate pricing rule")
	}
	return h.SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// ImportRules loads a JSON or YAML rule file from the request body.
// @Summary Import Pricing Rules (Admin)
// @Tags Admin Pricing Rules
// @Accept json,application/yaml
// @Produce json
// @Param format query string false "json or yaml (defaults to the Content-Type)"
// @Param replace query bool false "Remove rules missing from the file"
// @Success 200 {object} dto.APIResponse{data=dto.ImportPricingRulesResponse}
// @Failure 400 {object} dto.APIResponse "Invalid rule file"
// @Failure 413 {object} dto.APIResponse "File too large"
// @Router /api/v1/admin/pricing-rules/import [post]
func (h *PricingRuleAdminHandler) ImportRules(c fiber.Ctx) error {
	var req dto.ImportPricingRulesRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	body := c.Body()
	if len(body) > utils.MaxRuleFileSize {
		return h.ErrorResponse(c, fiber.StatusRequestEntityTooLarge, "Rule file is too large", "RULE_FILE_TOO_LARGE", nil)
	}

	format := req.Format
	if format == "" {
		format = formatFromContentType(c.Get("Content-Type"))
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/pricing-rules/import")
	defer cancel()

	res, err := h.flow.ImportRules(ctx, body, format, req.Replace)
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Import pricing rules")
	}
	return h.SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// ExportRules downloads every stored rule as a rule file.
// @Summary Export Pricing Rules (Admin)
// @Tags Admin Pricing Rules
// @Produce json,application/yaml
// @Param format query string false "json (default) or yaml"
// @Success 200 {file} file
// @Router /api/v1/admin/pricing-rules/export [get]
func (h *PricingRuleAdminHandler) ExportRules(c fiber.Ctx) error {
	var req dto.ExportPricingRulesRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/pricing-rules/export")
	defer cancel()

	filename, content, err := h.flow.ExportRules(ctx, req.Format)
	if err != nil {
		return h.BusinessErrorResponse(c, err, "Export pricing rules")
	}

	contentType := utils.ContentTypeJSON
	if strings.HasSuffix(filename, "."+pricing.FormatYAML) {
		contentType = utils.ContentTypeYAML
	}
	c.Set("Content-Type", contentType)
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(content)
}

func formatFromContentType(contentType string) string {
	ct := strings.ToLower(contentType)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(ct)
	if strings.Contains(ct, "yaml") {
		return pricing.FormatYAML
	}
	return pricing.FormatJSON
}
