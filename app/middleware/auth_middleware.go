// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/hypnotizedent/printshop-os-sub010/app/dto"
	"github.com/hypnotizedent/printshop-os-sub010/app/services"
)

// AuthMiddleware guards the admin API with bearer tokens
type AuthMiddleware struct {
	tokenService services.AdminTokenService
}

// NewAuthMiddleware creates a new authentication middleware. A nil token service disables the check.
func NewAuthMiddleware(tokenService services.AdminTokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

func unauthorized(c fiber.Ctx, status int, message, code string) error {
	return c.Status(status).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}

// AdminAuthenticate validates the bearer token and stores the admin subject in locals
func (m *AuthMiddleware) AdminAuthenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		if m.tokenService == nil {
			return c.Next()
		}

		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader == "" {
			return unauthorized(c, fiber.StatusUnauthorized, "Authorization header is required", "MISSING_AUTHORIZATION_HEADER")
		}
		// fasthttp trims trailing spaces, so "Bearer " arrives as a bare scheme
		if authHeader == "Bearer" {
			return unauthorized(c, fiber.StatusUnauthorized, "Access token is required", "MISSING_ACCESS_TOKEN")
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, fiber.StatusUnauthorized, "Invalid authorization header format. Expected 'Bearer <token>'", "INVALID_AUTHORIZATION_FORMAT")
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return unauthorized(c, fiber.StatusUnauthorized, "Access token is required", "MISSING_ACCESS_TOKEN")
		}

		claims, err := m.tokenService.ValidateAdminToken(token)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTokenExpired):
				return unauthorized(c, fiber.StatusUnauthorized, "Access token has expired", "TOKEN_EXPIRED")
			case errors.Is(err, services.ErrTokenForbidden):
				return unauthorized(c, fiber.StatusForbidden, "Admin role required", "FORBIDDEN")
			case errors.Is(err, services.ErrTokenInvalid):
				return unauthorized(c, fiber.StatusUnauthorized, "Invalid access token", "TOKEN_INVALID")
			default:
				return unauthorized(c, fiber.StatusUnauthorized, "Token validation failed", "TOKEN_VALIDATION_FAILED")
			}
		}

		c.Locals("admin_subject", claims.Subject)
		c.Locals("token_id", claims.TokenID)
		c.Locals("token_claims", claims)

		return c.Next()
	}
}
