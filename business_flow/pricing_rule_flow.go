package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/hypnotizedent/printshop-os-sub010/app/dto"
	"github.com/hypnotizedent/printshop-os-sub010/cache"
	"github.com/hypnotizedent/printshop-os-sub010/models"
	"github.com/hypnotizedent/printshop-os-sub010/pricing"
	"github.com/hypnotizedent/printshop-os-sub010/repository"
	"gorm.io/gorm"
)

// PricingRuleFlow is the administration contract of the rule store
type PricingRuleFlow interface {
	ListRules(ctx context.Context) (*dto.ListPricingRulesResponse, error)
	GetRule(ctx context.Context, ruleID string) (*dto.PricingRuleResponse, error)
	CreateRule(ctx context.Context, payload []byte) (*dto.PricingRuleResponse, error)
	UpdateRule(ctx context.Context, ruleID string, mergePatch []byte) (*dto.PricingRuleResponse, error)
	DeleteRule(ctx context.Context, ruleID string) (*dto.DeletePricingRuleResponse, error)
	ValidateRule(ctx context.Context, payload []byte) (*dto.ValidatePricingRuleResponse, error)
	ImportRules(ctx context.Context, payload []byte, format string, replace bool) (*dto.ImportPricingRulesResponse, error)
	ExportRules(ctx context.Context, format string) (filename string, content []byte, err error)
	ActiveRuleSet(ctx context.Context) (pricing.RuleSet, error)
}

// PricingRuleFlowImpl implements PricingRuleFlow
type PricingRuleFlowImpl struct {
	ruleRepo    repository.PricingRuleRepository
	versionRepo repository.RuleSetVersionRepository
	auditRepo   repository.AuditLogRepository
	quoteCache  cache.QuoteCache
	tx          transactor
}

func NewPricingRuleFlow(
	ruleRepo repository.PricingRuleRepository,
	versionRepo repository.RuleSetVersionRepository,
	auditRepo repository.AuditLogRepository,
	quoteCache cache.QuoteCache,
	db *gorm.DB,
) PricingRuleFlow {
	return &PricingRuleFlowImpl{
		ruleRepo:    ruleRepo,
		versionRepo: versionRepo,
		auditRepo:   auditRepo,
		quoteCache:  quoteCache,
		tx:          gormTransactor{db: db},
	}
}

// ActiveRuleSet reads the rules and the version in one snapshot so the pair is consistent
func (f *PricingRuleFlowImpl) ActiveRuleSet(ctx context.Context) (pricing.RuleSet, error) {
	var rs pricing.RuleSet
	err := f.tx.WithReadSnapshot(ctx, func(txCtx context.Context) error {
		rules, err := f.ruleRepo.ListAll(txCtx)
		if err != nil {
			return err
		}
		version, err := f.versionRepo.Current(txCtx)
		if err != nil {
			return err
		}
		rs = pricing.RuleSet{Rules: rules, Version: version}
		return nil
	})
	if err != nil {
		return pricing.RuleSet{}, NewBusinessError("RULE_SET_LOAD_FAILED", "Failed to load pricing rules", err)
	}
	return rs, nil
}

func (f *PricingRuleFlowImpl) ListRules(ctx context.Context) (*dto.ListPricingRulesResponse, error) {
	rs, err := f.ActiveRuleSet(ctx)
	if err != nil {
		return nil, err
	}

	drafts := make([]pricing.RuleDraft, 0, len(rs.Rules))
	for _, r := range rs.Rules {
		drafts = append(drafts, pricing.DraftFromModel(r))
	}

	return &dto.ListPricingRulesResponse{
		Message: "Pricing rules retrieved successfully",
		Version: rs.Version,
		Rules:   drafts,
	}, nil
}

func (f *PricingRuleFlowImpl) GetRule(ctx context.Context, ruleID string) (*dto.PricingRuleResponse, error) {
	rule, err := f.ruleRepo.ByRuleID(ctx, strings.TrimSpace(ruleID))
	if err != nil {
		return nil, NewBusinessError("RULE_FETCH_FAILED", "Failed to fetch pricing rule", err)
	}
	if rule == nil {
		return nil, NewBusinessErrorf("PRICING_RULE_NOT_FOUND", "Pricing rule %s not found", ErrPricingRuleNotFound, ruleID)
	}

	return &dto.PricingRuleResponse{
		Message: "Pricing rule retrieved successfully",
		Rule:    pricing.DraftFromModel(*rule),
	}, nil
}

// CreateRule validates and stores a new rule, then invalidates cached quotes
func (f *PricingRuleFlowImpl) CreateRule(ctx context.Context, payload []byte) (*dto.PricingRuleResponse, error) {
	draft, err := pricing.DecodeRuleDraft(payload)
	if err != nil {
		return nil, NewBusinessError("RULE_VALIDATION_FAILED", "Pricing rule payload is malformed", &RuleValidationError{Errors: []string{err.Error()}})
	}

	res := pricing.ValidateRule(draft)
	if !res.Valid {
		return nil, NewBusinessError("RULE_VALIDATION_FAILED", "Pricing rule is invalid", &RuleValidationError{Errors: res.Errors})
	}

	rule, err := draft.ToModel()
	if err != nil {
		return nil, NewBusinessError("RULE_VALIDATION_FAILED", "Pricing rule is invalid", &RuleValidationError{Errors: []string{err.Error()}})
	}

	var version int64
	err = f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := f.ruleRepo.ByRuleID(txCtx, rule.RuleID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrPricingRuleDuplicateID
		}
		if err := f.ruleRepo.Save(txCtx, rule); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrPricingRuleDuplicateID
			}
			return err
		}
		version, err = f.versionRepo.Bump(txCtx)
		return err
	})
	if err != nil {
		f.auditFailure(ctx, models.AuditActionRuleCreated, rule.RuleID, err)
		if errors.Is(err, ErrPricingRuleDuplicateID) {
			return nil, NewBusinessErrorf("PRICING_RULE_DUPLICATE_ID", "Pricing rule %s already exists", ErrPricingRuleDuplicateID, rule.RuleID)
		}
		return nil, NewBusinessError("RULE_CREATE_FAILED", "Failed to create pricing rule", err)
	}

	f.afterMutation(ctx, auditEntry{
		action:      models.AuditActionRuleCreated,
		ruleID:      &rule.RuleID,
		description: fmt.Sprintf("Pricing rule %s created", rule.RuleID),
		success:     true,
		metadata:    map[string]any{"version": version, "priority": rule.Priority},
	})
	ruleMutationsTotal.WithLabelValues(models.AuditActionRuleCreated).Inc()

	return &dto.PricingRuleResponse{
		Message:  "Pricing rule created successfully",
		Rule:     pricing.DraftFromModel(*rule),
		Warnings: res.Warnings,
	}, nil
}

// UpdateRule applies an RFC 7386 merge patch to the stored rule
func (f *PricingRuleFlowImpl) UpdateRule(ctx context.Context, ruleID string, mergePatch []byte) (*dto.PricingRuleResponse, error) {
	ruleID = strings.TrimSpace(ruleID)

	var (
		updated  *models.PricingRule
		warnings []string
		diff     json.RawMessage
		version  int64
	)
	err := f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := f.ruleRepo.ByRuleID(txCtx, ruleID)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrPricingRuleNotFound
		}

		original, err := json.Marshal(pricing.DraftFromModel(*existing))
		if err != nil {
			return err
		}
		merged, err := jsonpatch.MergePatch(original, mergePatch)
		if err != nil {
			return &RuleValidationError{Errors: []string{fmt.Sprintf("merge patch is invalid: %v", err)}}
		}

		draft, err := pricing.DecodeRuleDraft(merged)
		if err != nil {
			return &RuleValidationError{Errors: []string{err.Error()}}
		}
		if draft.ID != existing.RuleID {
			return ErrRuleIDMismatch
		}
		res := pricing.ValidateRule(draft)
		if !res.Valid {
			return &RuleValidationError{Errors: res.Errors}
		}
		warnings = res.Warnings

		rule, err := draft.ToModel()
		if err != nil {
			return &RuleValidationError{Errors: []string{err.Error()}}
		}
		rule.ID = existing.ID
		rule.CreatedAt = existing.CreatedAt
		if err := f.ruleRepo.Update(txCtx, rule); err != nil {
			return err
		}
		if version, err = f.versionRepo.Bump(txCtx); err != nil {
			return err
		}

		next, err := json.Marshal(pricing.DraftFromModel(*rule))
		if err != nil {
			return err
		}
		if diff, err = jsonpatch.CreateMergePatch(original, next); err != nil {
			return err
		}
		updated = rule
		return nil
	})
	if err != nil {
		f.auditFailure(ctx, models.AuditActionRuleUpdated, ruleID, err)
		switch {
		case errors.Is(err, ErrPricingRuleNotFound):
			return nil, NewBusinessErrorf("PRICING_RULE_NOT_FOUND", "Pricing rule %s not found", err, ruleID)
		case errors.Is(err, ErrRuleIDMismatch):
			return nil, NewBusinessError("RULE_ID_MISMATCH", "Rule id cannot be changed", err)
		case errors.Is(err, ErrRuleValidationFailed):
			return nil, NewBusinessError("RULE_VALIDATION_FAILED", "Pricing rule is invalid", err)
		}
		return nil, NewBusinessError("RULE_UPDATE_FAILED", "Failed to update pricing rule", err)
	}

	f.afterMutation(ctx, auditEntry{
		action:      models.AuditActionRuleUpdated,
		ruleID:      &updated.RuleID,
		description: fmt.Sprintf("Pricing rule %s updated", updated.RuleID),
		success:     true,
		metadata:    map[string]any{"version": version, "changes": diff},
	})
	ruleMutationsTotal.WithLabelValues(models.AuditActionRuleUpdated).Inc()

	return &dto.PricingRuleResponse{
		Message:  "Pricing rule updated successfully",
		Rule:     pricing.DraftFromModel(*updated),
		Warnings: warnings,
	}, nil
}

// DeleteRule removes a rule. Deleting an unknown id is not an error.
func (f *PricingRuleFlowImpl) DeleteRule(ctx context.Context, ruleID string) (*dto.DeletePricingRuleResponse, error) {
	ruleID = strings.TrimSpace(ruleID)

	var (
		deleted bool
		version int64
	)
	err := f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		deleted, err = f.ruleRepo.DeleteByRuleID(txCtx, ruleID)
		if err != nil || !deleted {
			return err
		}
		version, err = f.versionRepo.Bump(txCtx)
		return err
	})
	if err != nil {
		f.auditFailure(ctx, models.AuditActionRuleDeleted, ruleID, err)
		return nil, NewBusinessError("RULE_DELETE_FAILED", "Failed to delete pricing rule", err)
	}

	if !deleted {
		return &dto.DeletePricingRuleResponse{Message: "Pricing rule did not exist", Deleted: false}, nil
	}

	f.afterMutation(ctx, auditEntry{
		action:      models.AuditActionRuleDeleted,
		ruleID:      &ruleID,
		description: fmt.Sprintf("Pricing rule %s deleted", ruleID),
		success:     true,
		metadata:    map[string]any{"version": version},
	})
	ruleMutationsTotal.WithLabelValues(models.AuditActionRuleDeleted).Inc()

	return &dto.DeletePricingRuleResponse{Message: "Pricing rule deleted successfully", Deleted: true}, nil
}

// ValidateRule checks a payload without storing it
func (f *PricingRuleFlowImpl) ValidateRule(ctx context.Context, payload []byte) (*dto.ValidatePricingRuleResponse, error) {
	draft, err := pricing.DecodeRuleDraft(payload)
	if err != nil {
		return &dto.ValidatePricingRuleResponse{
			Message: "Pricing rule is invalid",
			Result:  pricing.ValidationResult{Valid: false, Errors: []string{err.Error()}, Warnings: []string{}},
		}, nil
	}

	res := pricing.ValidateRule(draft)
	msg := "Pricing rule is valid"
	if !res.Valid {
		msg = "Pricing rule is invalid"
	}
	return &dto.ValidatePricingRuleResponse{Message: msg, Result: res}, nil
}

// ImportRules loads a rule file. With replace the stored rules are removed first, otherwise
// rules are upserted by id. The whole file is rejected when any rule is invalid.
func (f *PricingRuleFlowImpl) ImportRules(ctx context.Context, payload []byte, format string, replace bool) (*dto.ImportPricingRulesResponse, error) {
	normalized, err := pricing.NormalizeFormat(format)
	if err != nil {
		return nil, NewBusinessError("UNSUPPORTED_RULE_FORMAT", "Unsupported rule file format", fmt.Errorf("%w: %v", ErrUnsupportedRuleFormat, err))
	}

	drafts, err := pricing.DecodeRuleFile(payload, normalized)
	if err != nil {
		return nil, NewBusinessError("RULE_FILE_INVALID", "Rule file could not be parsed", fmt.Errorf("%w: %v", ErrRuleFileInvalid, err))
	}

	rules, warnings, problems := prepareImport(drafts)
	if len(problems) > 0 {
		return nil, NewBusinessError("RULE_VALIDATION_FAILED", "Rule file contains invalid rules", &RuleValidationError{Errors: problems})
	}

	var (
		removed int64
		version int64
	)
	err = f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if replace {
			if removed, err = f.ruleRepo.DeleteAll(txCtx); err != nil {
				return err
			}
		}
		for _, rule := range rules {
			existing, err := f.ruleRepo.ByRuleID(txCtx, rule.RuleID)
			if err != nil {
				return err
			}
			if existing == nil {
				if err := f.ruleRepo.Save(txCtx, rule); err != nil {
					return err
				}
				continue
			}
			rule.ID = existing.ID
			rule.CreatedAt = existing.CreatedAt
			if err := f.ruleRepo.Update(txCtx, rule); err != nil {
				return err
			}
		}
		version, err = f.versionRepo.Bump(txCtx)
		return err
	})
	if err != nil {
		f.auditFailure(ctx, models.AuditActionRulesImported, "", err)
		return nil, NewBusinessError("RULE_IMPORT_FAILED", "Failed to import pricing rules", err)
	}

	f.afterMutation(ctx, auditEntry{
		action:      models.AuditActionRulesImported,
		description: fmt.Sprintf("Imported %d pricing rules", len(rules)),
		success:     true,
		metadata: map[string]any{
			"version":  version,
			"imported": len(rules),
			"removed":  removed,
			"replace":  replace,
			"format":   normalized,
		},
	})
	ruleMutationsTotal.WithLabelValues(models.AuditActionRulesImported).Inc()

	return &dto.ImportPricingRulesResponse{
		Message:  "Pricing rules imported successfully",
		Imported: len(rules),
		Removed:  removed,
		Version:  version,
		Warnings: warnings,
	}, nil
}

// prepareImport validates every draft of a rule file and rejects duplicate ids.
func prepareImport(drafts []pricing.RuleDraft) ([]*models.PricingRule, map[string][]string, []string) {
	rules := make([]*models.PricingRule, 0, len(drafts))
	warnings := make(map[string][]string)
	var problems []string
	seen := make(map[string]int, len(drafts))

	for i, d := range drafts {
		label := fmt.Sprintf("rules[%d]", i)
		if d.ID != "" {
			label = fmt.Sprintf("rules[%d] (%s)", i, d.ID)
		}

		res := pricing.ValidateRule(d)
		if !res.Valid {
			for _, e := range res.Errors {
				problems = append(problems, label+": "+e)
			}
			continue
		}
		if first, dup := seen[d.ID]; dup {
			problems = append(problems, fmt.Sprintf("%s: duplicate id, first defined at rules[%d]", label, first))
			continue
		}
		seen[d.ID] = i

		rule, err := d.ToModel()
		if err != nil {
			problems = append(problems, label+": "+err.Error())
			continue
		}
		if len(res.Warnings) > 0 {
			warnings[d.ID] = res.Warnings
		}
		rules = append(rules, rule)
	}
	if len(warnings) == 0 {
		warnings = nil
	}
	return rules, warnings, problems
}

// ExportRules renders every stored rule as a rule file
func (f *PricingRuleFlowImpl) ExportRules(ctx context.Context, format string) (string, []byte, error) {
	normalized, err := pricing.NormalizeFormat(format)
	if err != nil {
		return "", nil, NewBusinessError("UNSUPPORTED_RULE_FORMAT", "Unsupported rule file format", fmt.Errorf("%w: %v", ErrUnsupportedRuleFormat, err))
	}

	rules, err := f.ruleRepo.ListAll(ctx)
	if err != nil {
		return "", nil, NewBusinessError("RULE_FETCH_FAILED", "Failed to fetch pricing rules", err)
	}

	drafts := make([]pricing.RuleDraft, 0, len(rules))
	for _, r := range rules {
		drafts = append(drafts, pricing.DraftFromModel(r))
	}

	content, err := pricing.EncodeRuleFile(drafts, normalized)
	if err != nil {
		return "", nil, NewBusinessError("RULE_EXPORT_FAILED", "Failed to encode pricing rules", err)
	}
	return "pricing_rules." + normalized, content, nil
}

// afterMutation runs once a rule mutation committed. Cached quotes are already unreachable
// through the bumped version, so a failed invalidation only delays memory reclamation.
func (f *PricingRuleFlowImpl) afterMutation(ctx context.Context, entry auditEntry) {
	if f.quoteCache != nil {
		if err := f.quoteCache.InvalidateAll(ctx); err != nil {
			log.Printf("pricing rules: cache invalidation after %s failed: %v", entry.action, err)
		}
	}
	createAuditLog(ctx, f.auditRepo, entry)
}

func (f *PricingRuleFlowImpl) auditFailure(ctx context.Context, action, ruleID string, cause error) {
	msg := cause.Error()
	entry := auditEntry{
		action:      action,
		description: "Pricing rule mutation rejected",
		success:     false,
		errorMsg:    &msg,
	}
	if ruleID != "" {
		entry.ruleID = &ruleID
	}
	createAuditLog(ctx, f.auditRepo, entry)
}
