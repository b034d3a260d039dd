package businessflow

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/hypnotizedent/printshop-os-sub010/app/dto"
	"github.com/hypnotizedent/printshop-os-sub010/pricing"
	"github.com/hypnotizedent/printshop-os-sub010/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func seedHistory(t *testing.T, flow CalculationHistoryFlow, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		in := pricing.Input{GarmentID: "PC61", Service: "screen", Quantity: 10 + i}
		if i%2 == 0 {
			in.CustomerType = "vip"
		}
		out := pricing.QuoteResult{TotalPrice: float64(100 + i), UnitPrice: 10, RulesApplied: []string{"bulk"}}
		_, err := flow.Record(context.Background(), in, out, false, quoteNow.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}
}

func TestHistoryQuery(t *testing.T) {
	repo := &fakeHistoryRepo{}
	flow := NewCalculationHistoryFlow(repo)
	seedHistory(t, flow, 5)

	t.Run("defaults and newest first", func(t *testing.T) {
		resp, err := flow.Query(context.Background(), &dto.ListCalculationHistoryRequest{})
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Pagination.Page)
		assert.Equal(t, utils.DefaultPageSize, resp.Pagination.PageSize)
		assert.Equal(t, int64(5), resp.Pagination.Total)
		require.Len(t, resp.Items, 5)
		assert.Equal(t, 104.0, resp.Items[0].TotalPrice)
	})

	t.Run("paging", func(t *testing.T) {
		resp, err := flow.Query(context.Background(), &dto.ListCalculationHistoryRequest{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, resp.Pagination.TotalPages)
		assert.Len(t, resp.Items, 2)
		assert.Equal(t, 2, repo.lastOffset)
	})

	t.Run("customer type filter is normalized", func(t *testing.T) {
		resp, err := flow.Query(context.Background(), &dto.ListCalculationHistoryRequest{CustomerType: utils.ToPtr(" VIP ")})
		require.NoError(t, err)
		assert.Equal(t, int64(3), resp.Pagination.Total)
	})

	t.Run("date filters", func(t *testing.T) {
		_, err := flow.Query(context.Background(), &dto.ListCalculationHistoryRequest{
			CreatedAfter:  utils.ToPtr("2025-06-01"),
			CreatedBefore: utils.ToPtr("2025-06-02T00:00:00Z"),
		})
		require.NoError(t, err)
		require.NotNil(t, repo.lastFilter.CreatedAfter)
		assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), *repo.lastFilter.CreatedAfter)
	})

	cases := []struct {
		name  string
		req   dto.ListCalculationHistoryRequest
		check func(error) bool
	}{
		{"negative page", dto.ListCalculationHistoryRequest{Page: -1}, IsInvalidPage},
		{"page size too large", dto.ListCalculationHistoryRequest{PageSize: 101}, IsInvalidPageSize},
		{"negative page size", dto.ListCalculationHistoryRequest{PageSize: -5}, IsInvalidPageSize},
		{"bad date", dto.ListCalculationHistoryRequest{CreatedAfter: utils.ToPtr("last week")}, IsInvalidDateFilter},
		{"reversed range", dto.ListCalculationHistoryRequest{
			CreatedAfter:  utils.ToPtr("2025-06-02"),
			CreatedBefore: utils.ToPtr("2025-06-01"),
		}, IsStartDateAfterEndDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := flow.Query(context.Background(), &tc.req)
			require.Error(t, err)
			assert.True(t, tc.check(err))
			assert.True(t, IsClientError(err))
		})
	}
}

func TestHistoryExportExcel(t *testing.T) {
	repo := &fakeHistoryRepo{}
	flow := NewCalculationHistoryFlow(repo)
	seedHistory(t, flow, 3)

	buf, err := flow.ExportExcel(context.Background(), &dto.ListCalculationHistoryRequest{})
	require.NoError(t, err)

	xl, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = xl.Close() }()

	rows, err := xl.GetRows("History")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Correlation ID", rows[0][0])
	assert.Equal(t, "PC61", rows[1][2])
	assert.Equal(t, "bulk", rows[1][9])
	assert.Equal(t, maxExportRows, repo.lastLimit)
}
