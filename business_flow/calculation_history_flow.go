package businessflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hypnotizedent/printshop-os-sub010/app/dto"
	"github.com/hypnotizedent/printshop-os-sub010/models"
	"github.com/hypnotizedent/printshop-os-sub010/pricing"
	"github.com/hypnotizedent/printshop-os-sub010/repository"
	"github.com/hypnotizedent/printshop-os-sub010/utils"
	"github.com/xuri/excelize/v2"
)

// maxExportRows caps a history export
const maxExportRows = 10000

// CalculationHistoryFlow records and reads the calculation history
type CalculationHistoryFlow interface {
	Record(ctx context.Context, in pricing.Input, out pricing.QuoteResult, cacheHit bool, ts time.Time) (uuid.UUID, error)
	Query(ctx context.Context, req *dto.ListCalculationHistoryRequest) (*dto.ListCalculationHistoryResponse, error)
	ExportExcel(ctx context.Context, req *dto.ListCalculationHistoryRequest) (*bytes.Buffer, error)
}

// CalculationHistoryFlowImpl implements CalculationHistoryFlow
type CalculationHistoryFlowImpl struct {
	historyRepo repository.CalculationHistoryRepository
}

func NewCalculationHistoryFlow(historyRepo repository.CalculationHistoryRepository) CalculationHistoryFlow {
	return &CalculationHistoryFlowImpl{historyRepo: historyRepo}
}

// Record appends one calculation and returns its correlation id
func (f *CalculationHistoryFlowImpl) Record(ctx context.Context, in pricing.Input, out pricing.QuoteResult, cacheHit bool, ts time.Time) (uuid.UUID, error) {
	input, err := json.Marshal(in)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode history input: %w", err)
	}
	output, err := json.Marshal(out)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode history output: %w", err)
	}

	row := &models.CalculationHistory{
		CorrelationID: uuid.New(),
		GarmentID:     in.GarmentID,
		Service:       in.Service,
		Quantity:      in.Quantity,
		TotalPrice:    out.TotalPrice,
		CacheHit:      cacheHit,
		Input:         input,
		Output:        output,
		CreatedAt:     ts.UTC(),
	}
	if in.CustomerType != "" {
		row.CustomerType = utils.ToPtr(in.CustomerType)
	}

	if err := f.historyRepo.Save(ctx, row); err != nil {
		return uuid.Nil, err
	}
	return row.CorrelationID, nil
}

func (f *CalculationHistoryFlowImpl) Query(ctx context.Context, req *dto.ListCalculationHistoryRequest) (*dto.ListCalculationHistoryResponse, error) {
	filter, page, pageSize, err := historyFilter(req)
	if err != nil {
		return nil, err
	}

	total, err := f.historyRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("HISTORY_QUERY_FAILED", "Failed to count calculation history", err)
	}
	rows, err := f.historyRepo.ByFilter(ctx, filter, "", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("HISTORY_QUERY_FAILED", "Failed to list calculation history", err)
	}

	items := make([]dto.CalculationHistoryItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, historyItem(r))
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &dto.ListCalculationHistoryResponse{
		Message: "Calculation history retrieved successfully",
		Items:   items,
		Pagination: dto.PaginationInfo{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// ExportExcel renders the filtered history, newest first, as an xlsx workbook
func (f *CalculationHistoryFlowImpl) ExportExcel(ctx context.Context, req *dto.ListCalculationHistoryRequest) (*bytes.Buffer, error) {
	filter, _, _, err := historyFilter(req)
	if err != nil {
		return nil, err
	}

	rows, err := f.historyRepo.ByFilter(ctx, filter, "", maxExportRows, 0)
	if err != nil {
		return nil, NewBusinessError("HISTORY_EXPORT_FAILED", "Failed to list calculation history", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "History"
	if err := xl.SetSheetName(xl.GetSheetName(0), sheet); err != nil {
		return nil, NewBusinessError("HISTORY_EXPORT_FAILED", "Failed to prepare workbook", err)
	}

	header := []any{
		"Correlation ID", "Created At", "Garment ID", "Customer Type", "Service",
		"Quantity", "Total Price", "Unit Price", "Cache Hit", "Rules Applied",
	}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for i, r := range rows {
		var out pricing.QuoteResult
		_ = json.Unmarshal(r.Output, &out)

		customerType := ""
		if r.CustomerType != nil {
			customerType = *r.CustomerType
		}
		record := []any{
			r.CorrelationID.String(),
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.GarmentID,
			customerType,
			r.Service,
			r.Quantity,
			r.TotalPrice,
			out.UnitPrice,
			strconv.FormatBool(r.CacheHit),
			strings.Join(out.RulesApplied, ", "),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = xl.SetSheetRow(sheet, cell, &record)
	}
	_ = xl.SetColWidth(sheet, "A", "A", 38)
	_ = xl.SetColWidth(sheet, "B", "B", 22)
	_ = xl.SetColWidth(sheet, "J", "J", 40)

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, NewBusinessError("HISTORY_EXPORT_FAILED", "Failed to write workbook", err)
	}
	return buf, nil
}

// historyFilter checks paging and converts the query into a repository filter
func historyFilter(req *dto.ListCalculationHistoryRequest) (models.CalculationHistoryFilter, int, int, error) {
	var filter models.CalculationHistoryFilter
	if req == nil {
		req = &dto.ListCalculationHistoryRequest{}
	}

	page := req.Page
	if page == 0 {
		page = 1
	}
	if page < 0 {
		return filter, 0, 0, NewBusinessError("INVALID_PAGE", "Page must be at least 1", ErrInvalidPage)
	}
	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = utils.DefaultPageSize
	}
	if pageSize < 0 || pageSize > utils.MaxPageSize {
		return filter, 0, 0, NewBusinessError("INVALID_PAGE_SIZE", "Page size must be between 1 and 100", ErrInvalidPageSize)
	}

	if v := trimmed(req.GarmentID); v != nil {
		filter.GarmentID = v
	}
	if v := trimmed(req.CustomerType); v != nil {
		filter.CustomerType = utils.ToPtr(strings.ToLower(*v))
	}
	if v := trimmed(req.CreatedAfter); v != nil {
		t, err := utils.ParseTimestamp(*v)
		if err != nil {
			return filter, 0, 0, NewBusinessErrorf("INVALID_DATE_FILTER", "created_after %q is not a valid date", ErrInvalidDateFilter, *v)
		}
		filter.CreatedAfter = &t
	}
	if v := trimmed(req.CreatedBefore); v != nil {
		t, err := utils.ParseTimestamp(*v)
		if err != nil {
			return filter, 0, 0, NewBusinessErrorf("INVALID_DATE_FILTER", "created_before %q is not a valid date", ErrInvalidDateFilter, *v)
		}
		filter.CreatedBefore = &t
	}
	if filter.CreatedAfter != nil && filter.CreatedBefore != nil && filter.CreatedAfter.After(*filter.CreatedBefore) {
		return filter, 0, 0, NewBusinessError("START_DATE_AFTER_END_DATE", "created_after cannot be after created_before", ErrStartDateAfterEndDate)
	}
	return filter, page, pageSize, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func historyItem(r *models.CalculationHistory) dto.CalculationHistoryItem {
	return dto.CalculationHistoryItem{
		CorrelationID: r.CorrelationID.String(),
		GarmentID:     r.GarmentID,
		CustomerType:  r.CustomerType,
		Service:       r.Service,
		Quantity:      r.Quantity,
		TotalPrice:    r.TotalPrice,
		CacheHit:      r.CacheHit,
		Input:         json.RawMessage(r.Input),
		Output:        json.RawMessage(r.Output),
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
	}
}
