package utils

import (
	"time"
)

type contextKey string

// Request-scoped context keys set by handlers and read by flows for audit logging
const (
	RequestIDKey  contextKey = "request_id"
	UserAgentKey  contextKey = "user_agent"
	IPAddressKey  contextKey = "ip_address"
	EndpointKey   contextKey = "endpoint"
	TimeoutKey    contextKey = "timeout"
	CancelFuncKey contextKey = "cancel_func"
)

// Request handling constants
const (
	// DefaultRequestTimeout bounds every request context created by handlers
	DefaultRequestTimeout = 30 * time.Second

	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400

	// MaxRuleFileSize caps rule import payloads (5 MiB)
	MaxRuleFileSize = 5 << 20
)

// Pagination constants
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Content types used by export endpoints
const (
	ContentTypeJSON = "application/json"
	ContentTypeYAML = "application/yaml"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// AdminTokenTTL is the lifetime of generated admin tokens (12 hours)
const AdminTokenTTL = 12 * time.Hour
