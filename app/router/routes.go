// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/hypnotizedent/printshop-os-sub010/app/dto"
	"github.com/hypnotizedent/printshop-os-sub010/app/handlers"
	"github.com/hypnotizedent/printshop-os-sub010/app/middleware"
	"github.com/hypnotizedent/printshop-os-sub010/config"
	"github.com/hypnotizedent/printshop-os-sub010/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// Handlers groups the endpoint implementations the router mounts
type Handlers struct {
	Quote       handlers.QuoteHandlerInterface
	PricingRule handlers.PricingRuleAdminHandlerInterface
	CacheAdmin  handlers.CacheAdminHandlerInterface
	Health      *handlers.HealthHandler
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app            *fiber.App
	handlers       Handlers
	authMiddleware *middleware.AuthMiddleware
	server         config.ServerConfig
	metrics        config.MetricsConfig
	accessLog      io.Writer
}

// NewFiberRouter creates a new Fiber router. accessLog receives the JSON access log; nil disables it.
func NewFiberRouter(
	h Handlers,
	authMiddleware *middleware.AuthMiddleware,
	server config.ServerConfig,
	metrics config.MetricsConfig,
	accessLog io.Writer,
) *FiberRouter {
	bodyLimit := server.BodyLimit
	if bodyLimit < utils.MaxRuleFileSize {
		bodyLimit = utils.MaxRuleFileSize + 1024
	}

	app := fiber.New(fiber.Config{
		AppName:      "Print Shop Pricing API",
		ServerHeader: "printshop-pricing",
		ErrorHandler: errorHandler,
		BodyLimit:    bodyLimit,
		ReadTimeout:  server.ReadTimeout,
		WriteTimeout: server.WriteTimeout,
		IdleTimeout:  server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:            app,
		handlers:       h,
		authMiddleware: authMiddleware,
		server:         server,
		metrics:        metrics,
		accessLog:      accessLog,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	r.app.Get("/health", r.handlers.Health.Health)
	if r.metrics.Enabled {
		r.app.Get(r.metricsPath(), adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")
	api.Get("/health", r.handlers.Health.Health)

	api.Use(limiter.New(limiter.Config{
		Max:        2000,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	// Quotes
	quotes := api.Group("/quotes")
	quotes.Post("/", r.handlers.Quote.CalculateQuote)
	quotes.Get("/history", r.handlers.Quote.ListHistory)
	quotes.Get("/history/export", r.handlers.Quote.ExportHistory)

	// Admin
	admin := api.Group("/admin", r.authMiddleware.AdminAuthenticate())

	rules := admin.Group("/pricing-rules")
	rules.Get("/", r.handlers.PricingRule.ListRules)
	rules.Post("/", r.handlers.PricingRule.CreateRule)
	rules.Post("/validate", r.handlers.PricingRule.ValidateRule)
	rules.Post("/import", r.handlers.PricingRule.ImportRules)
	rules.Get("/export", r.handlers.PricingRule.ExportRules)
	rules.Get("/:id", r.handlers.PricingRule.GetRule)
	rules.Patch("/:id", r.handlers.PricingRule.UpdateRule)
	rules.Delete("/:id", r.handlers.PricingRule.DeleteRule)

	cacheAdmin := admin.Group("/cache")
	cacheAdmin.Get("/stats", r.handlers.CacheAdmin.Stats)
	cacheAdmin.Post("/invalidate", r.handlers.CacheAdmin.Invalidate)

	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

func (r *FiberRouter) metricsPath() string {
	if r.metrics.PrometheusPath == "" {
		return "/metrics"
	}
	return r.metrics.PrometheusPath
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return uuid.NewString()
		},
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				requestid.FromContext(c),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))

	if r.metrics.Enabled {
		r.app.Use(middleware.Metrics(r.metricsPath()))
	}

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	if len(r.server.AllowedOrigins) > 0 {
		r.app.Use(cors.New(cors.Config{
			AllowOrigins: r.server.AllowedOrigins,
			AllowMethods: []string{
				"GET", "POST", "PATCH", "DELETE", "HEAD", "OPTIONS",
			},
			AllowHeaders: []string{
				"Origin",
				"Content-Type",
				"Accept",
				"Authorization",
				"X-Request-ID",
			},
			ExposeHeaders: []string{
				"X-Request-ID",
				"Content-Disposition",
			},
			MaxAge: utils.CORSMaxAge,
		}))
	}

	if r.server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
		}))
	}

	if r.accessLog != nil {
		r.app.Use(logger.New(logger.Config{
			Format:     `{"time":"${time}","pid":"${pid}","request_id":"${respHeader:X-Request-ID}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Stream:     r.accessLog,
			Next: func(c fiber.Ctx) bool {
				return c.Path() == "/health" || c.Path() == "/api/v1/health" || c.Path() == r.metricsPath()
			},
		}))
	}
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errCode := "INTERNAL_ERROR"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		if code < fiber.StatusInternalServerError {
			message = e.Message
			errCode = strings.ToUpper(strings.ReplaceAll(http.StatusText(code), " ", "_"))
		}
	}

	log.Printf("Error %d: %v", code, err)

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}
