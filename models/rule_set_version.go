package models

import "time"

// RuleSetVersionRowID is the id of the single row holding the rule-set version.
const RuleSetVersionRowID = 1

// RuleSetVersion is a monotonically increasing counter bumped by every rule mutation.
// Table: rule_set_versions
type RuleSetVersion struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Version   int64     `gorm:"not null;default:0" json:"version"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (RuleSetVersion) TableName() string {
	return "rule_set_versions"
}
