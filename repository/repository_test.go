package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hypnotizedent/printshop-os-sub010/models"
	"github.com/hypnotizedent/printshop-os-sub010/repository"
	testingutil "github.com/hypnotizedent/printshop-os-sub010/testing"
	"github.com/hypnotizedent/printshop-os-sub010/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func runWithDB(t *testing.T, fn func(testDB *testingutil.TestDB)) {
	t.Helper()
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fn(testDB)
		return nil
	})
	if errors.Is(err, testingutil.ErrDatabaseUnavailable) {
		t.Skipf("skipping: %v", err)
	}
	require.NoError(t, err)
}

func TestPricingRuleRepository(t *testing.T) {
	runWithDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewPricingRuleRepository(testDB.DB)
		ctx := context.Background()

		t.Run("ByRuleID", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			created, err := fixtures.CreateTestRule("screen-base", testingutil.WithDiscount(10))
			require.NoError(t, err)

			got, err := repo.ByRuleID(ctx, "screen-base")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, created.ID, got.ID)
			require.NotNil(t, got.Calc().DiscountPct)
			assert.InDelta(t, 10, *got.Calc().DiscountPct, 1e-9)

			missing, err := repo.ByRuleID(ctx, "nope")
			require.NoError(t, err)
			assert.Nil(t, missing)
		})

		t.Run("ListAllOrdersByPriorityThenID", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			for _, r := range []struct {
				id       string
				priority int
			}{{"b", 1}, {"a", 1}, {"z", 9}} {
				_, err := fixtures.CreateTestRule(r.id, testingutil.WithPriority(r.priority))
				require.NoError(t, err)
			}

			rules, err := repo.ListAll(ctx)
			require.NoError(t, err)
			ids := make([]string, 0, len(rules))
			for _, r := range rules {
				ids = append(ids, r.RuleID)
			}
			assert.Equal(t, []string{"z", "a", "b"}, ids)
		})

		t.Run("DuplicateRuleIDIsTranslated", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			_, err := fixtures.CreateTestRule("dup")
			require.NoError(t, err)

			rule := &models.PricingRule{RuleID: "dup", Version: 1, EffectiveDate: time.Now().UTC(), Enabled: true}
			err = repo.Save(ctx, rule)
			require.Error(t, err)
			assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
		})

		t.Run("UpdateAndDelete", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			rule, err := fixtures.CreateTestRule("update-me")
			require.NoError(t, err)

			rule.Priority = 42
			rule.Notes = utils.ToPtr("bumped")
			require.NoError(t, repo.Update(ctx, rule))

			got, err := repo.ByRuleID(ctx, "update-me")
			require.NoError(t, err)
			assert.Equal(t, 42, got.Priority)
			assert.Equal(t, "bumped", *got.Notes)

			deleted, err := repo.DeleteByRuleID(ctx, "update-me")
			require.NoError(t, err)
			assert.True(t, deleted)

			deleted, err = repo.DeleteByRuleID(ctx, "update-me")
			require.NoError(t, err)
			assert.False(t, deleted)
		})

		t.Run("ActiveAtFilter", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
			feb := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
			_, err := fixtures.CreateTestRule("always")
			require.NoError(t, err)
			_, err = fixtures.CreateTestRule("january", testingutil.WithWindow(jan, &feb))
			require.NoError(t, err)
			_, err = fixtures.CreateTestRule("off", testingutil.WithDisabled())
			require.NoError(t, err)

			at := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
			count, err := repo.Count(ctx, models.PricingRuleFilter{ActiveAt: &at})
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)

			// expiry is exclusive
			count, err = repo.Count(ctx, models.PricingRuleFilter{ActiveAt: &feb})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)

			exists, err := repo.Exists(ctx, models.PricingRuleFilter{Enabled: utils.ToPtr(false)})
			require.NoError(t, err)
			assert.True(t, exists)
		})

		t.Run("DeleteAllInsideRolledBackTransaction", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			_, err := fixtures.CreateTestRule("keep-1")
			require.NoError(t, err)
			_, err = fixtures.CreateTestRule("keep-2")
			require.NoError(t, err)

			boom := errors.New("abort")
			err = repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				n, err := repo.DeleteAll(txCtx)
				require.NoError(t, err)
				assert.Equal(t, int64(2), n)
				return boom
			})
			assert.ErrorIs(t, err, boom)

			count, err := repo.Count(ctx, models.PricingRuleFilter{})
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)
		})
	})
}

func TestRuleSetVersionRepository(t *testing.T) {
	runWithDB(t, func(testDB *testingutil.TestDB) {
		repo := repository.NewRuleSetVersionRepository(testDB.DB)
		ctx := context.Background()

		v, err := repo.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), v)

		v, err = repo.Bump(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)

		v, err = repo.Bump(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), v)

		// a bump inside a rolled back transaction leaves the version untouched
		_ = repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
			_, err := repo.Bump(txCtx)
			require.NoError(t, err)
			return errors.New("rollback")
		})

		v, err = repo.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), v)

		err = repository.WithReadSnapshot(ctx, testDB.DB, func(txCtx context.Context) error {
			v, err = repo.Current(txCtx)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), v)
	})
}

func TestCalculationHistoryRepository(t *testing.T) {
	runWithDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewCalculationHistoryRepository(testDB.DB)
		ctx := context.Background()

		base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		vip := utils.ToPtr("vip")
		for i := 0; i < 5; i++ {
			ct := (*string)(nil)
			if i%2 == 0 {
				ct = vip
			}
			_, err := fixtures.CreateTestHistory("PC61", ct, base.Add(time.Duration(i)*time.Hour))
			require.NoError(t, err)
		}
		_, err := fixtures.CreateTestHistory("G500", nil, base.Add(-24*time.Hour))
		require.NoError(t, err)

		t.Run("NewestFirst", func(t *testing.T) {
			rows, err := repo.ByFilter(ctx, models.CalculationHistoryFilter{}, "", 3, 0)
			require.NoError(t, err)
			require.Len(t, rows, 3)
			assert.True(t, rows[0].CreatedAt.After(rows[1].CreatedAt))
			assert.True(t, rows[1].CreatedAt.After(rows[2].CreatedAt))
		})

		t.Run("Filters", func(t *testing.T) {
			count, err := repo.Count(ctx, models.CalculationHistoryFilter{GarmentID: utils.ToPtr("PC61"), CustomerType: vip})
			require.NoError(t, err)
			assert.Equal(t, int64(3), count)

			after := base
			count, err = repo.Count(ctx, models.CalculationHistoryFilter{CreatedAfter: &after})
			require.NoError(t, err)
			assert.Equal(t, int64(5), count)

			before := base.Add(-time.Hour)
			rows, err := repo.ByFilter(ctx, models.CalculationHistoryFilter{CreatedBefore: &before}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, "G500", rows[0].GarmentID)
		})

		t.Run("Paging", func(t *testing.T) {
			page2, err := repo.ByFilter(ctx, models.CalculationHistoryFilter{}, "", 2, 2)
			require.NoError(t, err)
			require.Len(t, page2, 2)
			assert.Equal(t, base.Add(2*time.Hour), page2[0].CreatedAt.UTC())
		})
	})
}

func TestGarmentRepository(t *testing.T) {
	runWithDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewGarmentRepository(testDB.DB)
		ctx := context.Background()

		_, err := fixtures.CreateTestGarment("PC61", 3.5)
		require.NoError(t, err)
		retired, err := fixtures.CreateTestGarment("OLD1", 2)
		require.NoError(t, err)
		require.NoError(t, testDB.DB.Model(retired).Update("is_active", false).Error)

		g, err := repo.ByGarmentID(ctx, "PC61")
		require.NoError(t, err)
		require.NotNil(t, g)
		assert.InDelta(t, 3.5, g.BasePrice, 1e-9)
		require.Len(t, g.PriceBreaks.Data(), 2)

		g, err = repo.ByGarmentID(ctx, "OLD1")
		require.NoError(t, err)
		assert.Nil(t, g)

		count, err := repo.Count(ctx, models.GarmentFilter{Supplier: utils.ToPtr("sanmar"), IsActive: utils.ToPtr(true)})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestAuditLogRepository(t *testing.T) {
	runWithDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewAuditLogRepository(testDB.DB)
		ctx := context.Background()

		ruleID := utils.ToPtr("screen-base")
		_, err := fixtures.CreateTestAuditLog(ruleID, models.AuditActionRuleCreated, true)
		require.NoError(t, err)
		_, err = fixtures.CreateTestAuditLog(ruleID, models.AuditActionRuleUpdated, false)
		require.NoError(t, err)
		_, err = fixtures.CreateTestAuditLog(nil, models.AuditActionCacheInvalidated, true)
		require.NoError(t, err)

		logs, err := repo.ListByRuleID(ctx, "screen-base", 10, 0)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		for _, l := range logs {
			assert.True(t, l.IsRuleMutation())
		}

		failed, err := repo.ListFailedActions(ctx, 10, 0)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.True(t, failed[0].IsFailed())
		assert.Equal(t, models.AuditActionRuleUpdated, failed[0].Action)

		count, err := repo.Count(ctx, models.AuditLogFilter{Action: utils.ToPtr(models.AuditActionCacheInvalidated)})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}
