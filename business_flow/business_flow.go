// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hypnotizedent/printshop-os-sub010/models"
	"github.com/hypnotizedent/printshop-os-sub010/repository"
	"github.com/hypnotizedent/printshop-os-sub010/utils"
	"gorm.io/gorm"
)

// ClientMetadata holds client information for audit logging
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// clientMetadataFromContext collects the request values handlers store in the context
func clientMetadataFromContext(ctx context.Context) *ClientMetadata {
	md := &ClientMetadata{}
	if v := utils.ContextString(ctx, utils.IPAddressKey); v != nil {
		md.IPAddress = *v
	}
	if v := utils.ContextString(ctx, utils.UserAgentKey); v != nil {
		md.UserAgent = *v
	}
	if v := utils.ContextString(ctx, utils.RequestIDKey); v != nil {
		md.RequestID = *v
	}
	return md
}

// transactor runs a function with a transaction carried in its context
type transactor interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
	WithReadSnapshot(ctx context.Context, fn func(context.Context) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

func (t gormTransactor) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	return repository.WithTransaction(ctx, t.db, fn)
}

func (t gormTransactor) WithReadSnapshot(ctx context.Context, fn func(context.Context) error) error {
	return repository.WithReadSnapshot(ctx, t.db, fn)
}

// auditEntry describes one audit log row
type auditEntry struct {
	action      string
	ruleID      *string
	description string
	success     bool
	errorMsg    *string
	metadata    any
}

// createAuditLog writes an audit entry. Failures are logged and never fail the caller.
func createAuditLog(ctx context.Context, auditRepo repository.AuditLogRepository, entry auditEntry) {
	if auditRepo == nil {
		return
	}

	md := clientMetadataFromContext(ctx)
	description := entry.description
	audit := &models.AuditLog{
		Action:       entry.action,
		RuleID:       entry.ruleID,
		Description:  &description,
		Success:      utils.ToPtr(entry.success),
		ErrorMessage: entry.errorMsg,
	}
	if md.IPAddress != "" {
		audit.IPAddress = &md.IPAddress
	}
	if md.UserAgent != "" {
		audit.UserAgent = &md.UserAgent
	}
	if md.RequestID != "" {
		audit.RequestID = &md.RequestID
	}
	if entry.metadata != nil {
		switch m := entry.metadata.(type) {
		case json.RawMessage:
			audit.Metadata = m
		default:
			if b, err := json.Marshal(m); err == nil {
				audit.Metadata = b
			}
		}
	}

	// Detach from the request transaction so a rolled back mutation still leaves a trace
	ctx = context.WithValue(ctx, repository.TxContextKey, nil)
	if err := auditRepo.Save(ctx, audit); err != nil {
		log.Printf("audit: failed to record %s: %v", entry.action, err)
	}
}
