package pricing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"github.com/hypnotizedent/printshop-os-sub010/models"
)

// RuleSet is an immutable snapshot of the stored rules together with the version they were read at.
type RuleSet struct {
	Rules   []models.PricingRule
	Version int64
}

// Fingerprint identifies the rules in effect at asOf. Two snapshots with the same version and the
// same active rules share a fingerprint.
func (rs RuleSet) Fingerprint(asOf time.Time) string {
	h := sha256.New()
	h.Write([]byte("v" + strconv.FormatInt(rs.Version, 10) + ";"))
	for _, r := range ActiveRules(rs.Rules, asOf) {
		b, err := json.Marshal(fingerprintView(r))
		if err != nil {
			continue
		}
		h.Write(b)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type ruleFingerprint struct {
	ID           string                  `json:"id"`
	Version      int                     `json:"version"`
	Priority     int                     `json:"priority"`
	Effective    time.Time               `json:"effective"`
	Expiry       *time.Time              `json:"expiry,omitempty"`
	Conditions   models.RuleConditions   `json:"conditions"`
	Calculations models.RuleCalculations `json:"calculations"`
}

func fingerprintView(r models.PricingRule) ruleFingerprint {
	return ruleFingerprint{
		ID:           r.RuleID,
		Version:      r.Version,
		Priority:     r.Priority,
		Effective:    r.EffectiveDate.UTC(),
		Expiry:       r.ExpiryDate,
		Conditions:   r.Cond(),
		Calculations: r.Calc(),
	}
}

// CacheKey derives the quote cache key for an input against this snapshot.
// asOf is part of the key only when the caller pinned it.
func (rs RuleSet) CacheKey(in Input, asOf time.Time, pinned bool) string {
	payload := struct {
		Input       Input  `json:"input"`
		AsOf        string `json:"as_of,omitempty"`
		Fingerprint string `json:"fingerprint"`
	}{
		Input:       in.Normalize(),
		Fingerprint: rs.Fingerprint(asOf),
	}
	if pinned {
		payload.AsOf = asOf.UTC().Format(time.RFC3339Nano)
	}
	b, _ := json.Marshal(payload)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
