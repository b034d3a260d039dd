package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hypnotizedent/printshop-os-sub010/models"
	"gorm.io/datatypes"
)

const dateLayout = "2006-01-02"

var ErrInvalidRule = errors.New("invalid pricing rule")

// RuleDraft is a pricing rule as submitted by an administrator or read from a rule file.
// Dates stay as text until validation so malformed values are reported, not rejected at decode.
type RuleDraft struct {
	ID            string                  `json:"id" validate:"required"`
	Description   string                  `json:"description"`
	Version       int                     `json:"version" validate:"gte=1"`
	EffectiveDate string                  `json:"effective_date" validate:"required"`
	ExpiryDate    *string                 `json:"expiry_date,omitempty"`
	Conditions    models.RuleConditions   `json:"conditions"`
	Calculations  models.RuleCalculations `json:"calculations"`
	Priority      int                     `json:"priority"`
	Enabled       *bool                   `json:"enabled,omitempty"`
	Notes         *string                 `json:"notes,omitempty"`

	unknownKeys []string
}

// ValidationResult is the outcome of ValidateRule. Warnings never make a rule invalid.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

type ruleDraftAlias RuleDraft

// UnmarshalJSON decodes the draft and remembers keys the rule shape does not define.
func (d *RuleDraft) UnmarshalJSON(data []byte) error {
	var alias ruleDraftAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var unknown []string
	unknown = append(unknown, unknownKeys("", raw, reflect.TypeOf(RuleDraft{}))...)
	if nested, ok := subObject(raw, "conditions"); ok {
		unknown = append(unknown, unknownKeys("conditions.", nested, reflect.TypeOf(models.RuleConditions{}))...)
	}
	if nested, ok := subObject(raw, "calculations"); ok {
		unknown = append(unknown, unknownKeys("calculations.", nested, reflect.TypeOf(models.RuleCalculations{}))...)
	}
	sort.Strings(unknown)

	*d = RuleDraft(alias)
	d.unknownKeys = unknown
	return nil
}

// UnknownKeys returns the keys ignored while decoding, prefixed with their parent object.
func (d RuleDraft) UnknownKeys() []string {
	return d.unknownKeys
}

func subObject(raw map[string]json.RawMessage, key string) (map[string]json.RawMessage, bool) {
	v, ok := raw[key]
	if !ok {
		return nil, false
	}
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(v, &nested); err != nil {
		return nil, false
	}
	return nested, true
}

func unknownKeys(prefix string, raw map[string]json.RawMessage, t reflect.Type) []string {
	known := jsonFieldNames(t)
	var out []string
	for k := range raw {
		if !known[k] {
			out = append(out, prefix+k)
		}
	}
	return out
}

func jsonFieldNames(t reflect.Type) map[string]bool {
	names := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		name := strings.Split(tag, ",")[0]
		if name != "" && name != "-" {
			names[name] = true
		}
	}
	return names
}

var ruleValidator = newRuleValidator()

func newRuleValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.Split(fld.Tag.Get("json"), ",")[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateRule checks a draft without touching storage.
func ValidateRule(d RuleDraft) ValidationResult {
	res := ValidationResult{Errors: []string{}, Warnings: []string{}}

	if err := ruleValidator.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				res.Errors = append(res.Errors, fieldErrorMessage(fe))
			}
		} else {
			res.Errors = append(res.Errors, err.Error())
		}
	}

	if strings.TrimSpace(d.ID) != d.ID {
		res.Errors = append(res.Errors, "id must not have leading or trailing whitespace")
	}

	var effective time.Time
	if d.EffectiveDate != "" {
		t, err := ParseRuleDate(d.EffectiveDate)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("effective_date %q is not a valid date", d.EffectiveDate))
		} else {
			effective = t
		}
	}
	if d.ExpiryDate != nil {
		t, err := ParseRuleDate(*d.ExpiryDate)
		switch {
		case err != nil:
			res.Errors = append(res.Errors, fmt.Sprintf("expiry_date %q is not a valid date", *d.ExpiryDate))
		case !effective.IsZero() && !t.After(effective):
			res.Errors = append(res.Errors, "expiry_date must be after effective_date")
		}
	}

	c := d.Conditions
	if c.QuantityMin != nil && c.QuantityMax != nil && *c.QuantityMin > *c.QuantityMax {
		res.Errors = append(res.Errors, "conditions.quantity_min must not exceed conditions.quantity_max")
	}
	if c.ColorsMin != nil && c.ColorsMax != nil && *c.ColorsMin > *c.ColorsMax {
		res.Errors = append(res.Errors, "conditions.colors_min must not exceed conditions.colors_max")
	}
	if len(c.Expression) > 0 && !validExpression(c.Expression) {
		res.Errors = append(res.Errors, "conditions.expression is not a valid JSON-logic rule")
	}

	keys := make([]string, 0, len(d.Calculations.ColorMultiplier))
	for k := range d.Calculations.ColorMultiplier {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || n < 1 {
			res.Errors = append(res.Errors, fmt.Sprintf("calculations.color_multiplier key %q must be a color count >= 1", k))
		}
	}

	for _, k := range d.unknownKeys {
		res.Warnings = append(res.Warnings, fmt.Sprintf("unknown key %q ignored", k))
	}

	res.Valid = len(res.Errors) == 0
	return res
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be > %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// ParseRuleDate accepts a calendar date or an RFC 3339 timestamp. Calendar dates are midnight UTC.
func ParseRuleDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatRuleDate renders midnight UTC as a calendar date and anything else as RFC 3339.
func FormatRuleDate(t time.Time) string {
	t = t.UTC()
	if t.Equal(t.Truncate(24 * time.Hour)) {
		return t.Format(dateLayout)
	}
	return t.Format(time.RFC3339)
}

// ToModel validates the draft and converts it into a normalized persisted rule.
func (d RuleDraft) ToModel() (*models.PricingRule, error) {
	res := ValidateRule(d)
	if !res.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRule, strings.Join(res.Errors, "; "))
	}

	effective, _ := ParseRuleDate(d.EffectiveDate)
	var expiry *time.Time
	if d.ExpiryDate != nil {
		t, _ := ParseRuleDate(*d.ExpiryDate)
		expiry = &t
	}

	enabled := true
	if d.Enabled != nil {
		enabled = *d.Enabled
	}

	return &models.PricingRule{
		RuleID:        d.ID,
		Description:   d.Description,
		Version:       d.Version,
		EffectiveDate: effective,
		ExpiryDate:    expiry,
		Conditions:    datatypes.NewJSONType(normalizeConditions(d.Conditions)),
		Calculations:  datatypes.NewJSONType(normalizeCalculations(d.Calculations)),
		Priority:      d.Priority,
		Enabled:       enabled,
		Notes:         d.Notes,
	}, nil
}

// DraftFromModel converts a stored rule back into its interchange form.
func DraftFromModel(r models.PricingRule) RuleDraft {
	enabled := r.Enabled
	d := RuleDraft{
		ID:            r.RuleID,
		Description:   r.Description,
		Version:       r.Version,
		EffectiveDate: FormatRuleDate(r.EffectiveDate),
		Conditions:    r.Cond(),
		Calculations:  r.Calc(),
		Priority:      r.Priority,
		Enabled:       &enabled,
		Notes:         r.Notes,
	}
	if r.ExpiryDate != nil {
		s := FormatRuleDate(*r.ExpiryDate)
		d.ExpiryDate = &s
	}
	return d
}

func normalizeConditions(c models.RuleConditions) models.RuleConditions {
	c.Service = normSet(c.Service)
	c.Location = normSet(c.Location)
	c.CustomerType = normSet(c.CustomerType)
	c.GarmentType = normSet(c.GarmentType)
	c.Supplier = normSet(c.Supplier)
	return c
}

func normalizeCalculations(c models.RuleCalculations) models.RuleCalculations {
	if len(c.LocationSurcharge) > 0 {
		m := make(map[string]float64, len(c.LocationSurcharge))
		for k, v := range c.LocationSurcharge {
			m[normTag(k)] = v
		}
		c.LocationSurcharge = m
	}
	if len(c.ColorMultiplier) > 0 {
		m := make(map[string]float64, len(c.ColorMultiplier))
		for k, v := range c.ColorMultiplier {
			n, err := strconv.Atoi(strings.TrimSpace(k))
			if err != nil {
				continue
			}
			m[strconv.Itoa(n)] = v
		}
		c.ColorMultiplier = m
	}
	return c
}
