package businessflow

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/hypnotizedent/printshop-os-sub010/models"
	"github.com/hypnotizedent/printshop-os-sub010/repository"
)

// fakeStore backs the rule and version repositories so fakeTx can roll both back together
type fakeStore struct {
	mu      sync.Mutex
	rules   map[string]models.PricingRule
	nextID  uint
	version int64
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rules: map[string]models.PricingRule{}}
}

func (s *fakeStore) snapshot() (map[string]models.PricingRule, uint, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(map[string]models.PricingRule, len(s.rules))
	for k, v := range s.rules {
		cp[k] = v
	}
	return cp, s.nextID, s.version
}

func (s *fakeStore) restore(rules map[string]models.PricingRule, nextID uint, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules, s.nextID, s.version = rules, nextID, version
}

type fakeTx struct {
	store *fakeStore
}

func (t fakeTx) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	rules, nextID, version := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(rules, nextID, version)
		return err
	}
	return nil
}

func (t fakeTx) WithReadSnapshot(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type fakeRuleRepo struct {
	repository.PricingRuleRepository
	store *fakeStore
}

func (r *fakeRuleRepo) ByRuleID(_ context.Context, ruleID string) (*models.PricingRule, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rule, ok := r.store.rules[ruleID]
	if !ok {
		return nil, nil
	}
	return &rule, nil
}

func (r *fakeRuleRepo) ListAll(_ context.Context) ([]models.PricingRule, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]models.PricingRule, 0, len(r.store.rules))
	for _, rule := range r.store.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].RuleID < out[j].RuleID
	})
	return out, nil
}

func (r *fakeRuleRepo) Save(_ context.Context, rule *models.PricingRule) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.saveErr != nil {
		return r.store.saveErr
	}
	r.store.nextID++
	rule.ID = r.store.nextID
	r.store.rules[rule.RuleID] = *rule
	return nil
}

func (r *fakeRuleRepo) Update(_ context.Context, rule *models.PricingRule) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.saveErr != nil {
		return r.store.saveErr
	}
	r.store.rules[rule.RuleID] = *rule
	return nil
}

func (r *fakeRuleRepo) DeleteByRuleID(_ context.Context, ruleID string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	_, ok := r.store.rules[ruleID]
	delete(r.store.rules, ruleID)
	return ok, nil
}

func (r *fakeRuleRepo) DeleteAll(_ context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n := int64(len(r.store.rules))
	r.store.rules = map[string]models.PricingRule{}
	return n, nil
}

type fakeVersionRepo struct {
	store *fakeStore
}

func (r *fakeVersionRepo) Current(_ context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.version, nil
}

func (r *fakeVersionRepo) Bump(_ context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.version++
	return r.store.version, nil
}

type fakeAuditRepo struct {
	repository.AuditLogRepository
	mu      sync.Mutex
	entries []models.AuditLog
	err     error
}

func (r *fakeAuditRepo) Save(_ context.Context, entry *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

func (r *fakeAuditRepo) last() models.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[len(r.entries)-1]
}

type fakeHistoryRepo struct {
	repository.CalculationHistoryRepository
	mu      sync.Mutex
	rows    []*models.CalculationHistory
	saveErr error

	lastFilter models.CalculationHistoryFilter
	lastLimit  int
	lastOffset int
}

func (r *fakeHistoryRepo) Save(_ context.Context, row *models.CalculationHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	row.ID = uint(len(r.rows) + 1)
	r.rows = append(r.rows, row)
	return nil
}

func (r *fakeHistoryRepo) matching(filter models.CalculationHistoryFilter) []*models.CalculationHistory {
	var out []*models.CalculationHistory
	for i := len(r.rows) - 1; i >= 0; i-- {
		row := r.rows[i]
		if filter.GarmentID != nil && row.GarmentID != *filter.GarmentID {
			continue
		}
		if filter.CustomerType != nil && (row.CustomerType == nil || *row.CustomerType != *filter.CustomerType) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func (r *fakeHistoryRepo) ByFilter(_ context.Context, filter models.CalculationHistoryFilter, _ string, limit, offset int) ([]*models.CalculationHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter, r.lastLimit, r.lastOffset = filter, limit, offset
	rows := r.matching(filter)
	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

func (r *fakeHistoryRepo) Count(_ context.Context, filter models.CalculationHistoryFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.matching(filter))), nil
}

func (r *fakeHistoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

var errStorage = errors.New("storage unavailable")
