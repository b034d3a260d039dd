package models

import (
	"encoding/json"
	"time"
)

// AuditLog records administrative changes to the rule set.
type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Action       string          `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	RuleID       *string         `gorm:"size:128;index:idx_audit_rule_id" json:"rule_id,omitempty"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"size:64;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionRuleCreated      = "rule_created"
	AuditActionRuleUpdated      = "rule_updated"
	AuditActionRuleDeleted      = "rule_deleted"
	AuditActionRulesImported    = "rules_imported"
	AuditActionCacheInvalidated = "cache_invalidated"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	Action        *string
	RuleID        *string
	Success       *bool
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}

// IsRuleMutation reports whether the entry describes a change to the rule set.
func (a *AuditLog) IsRuleMutation() bool {
	switch a.Action {
	case AuditActionRuleCreated, AuditActionRuleUpdated, AuditActionRuleDeleted, AuditActionRulesImported:
		return true
	default:
		return false
	}
}
