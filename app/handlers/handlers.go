// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/hypnotizedent/printshop-os-sub010/app/dto"
	businessflow "github.com/hypnotizedent/printshop-os-sub010/business_flow"
	"github.com/hypnotizedent/printshop-os-sub010/utils"
)

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// validationMessages flattens validator output into readable messages
func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, getValidationErrorMessage(e))
	}
	return out
}

// responder holds the response and request-context helpers every handler shares
type responder struct{}

func (responder) ErrorResponse(c fiber.Ctx, status int, message, code string, details any) error {
	return c.Status(status).JSON(dto.APIResponse{Success: false, Message: message, Error: dto.ErrorDetail{Code: code, Details: details}})
}

func (responder) SuccessResponse(c fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(dto.APIResponse{Success: true, Message: message, Data: data})
}

// BusinessErrorResponse maps a flow error onto an HTTP status
func (h responder) BusinessErrorResponse(c fiber.Ctx, err error, operation string) error {
	code := businessflow.ErrorCode(err)
	message := operation + " failed"
	var be *businessflow.BusinessError
	if errors.As(err, &be) {
		message = be.Message
	}

	var details any
	if problems := businessflow.ValidationErrors(err); len(problems) > 0 {
		details = problems
	}

	switch {
	case businessflow.IsPricingRuleNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, message, code, nil)
	case businessflow.IsPricingRuleDuplicateID(err):
		return h.ErrorResponse(c, fiber.StatusConflict, message, code, nil)
	case businessflow.IsClientError(err):
		if details == nil && be != nil && be.Err != nil {
			details = be.Err.Error()
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, message, code, details)
	}

	if code == "" {
		code = "INTERNAL_ERROR"
	}
	log.Printf("%s failed: %v", operation, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}

// createRequestContext copies request metadata into a context with the default timeout
func (responder) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	return createRequestContextWithTimeout(c, endpoint, utils.DefaultRequestTimeout)
}

func createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	requestID := c.Get("X-Request-ID")
	if requestID == "" {
		if v, ok := c.Locals("requestid").(string); ok {
			requestID = v
		}
	}
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestID)
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx, cancel
}
