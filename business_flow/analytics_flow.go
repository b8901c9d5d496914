package businessflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/config"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/xuri/excelize/v2"
)

const topValuesLimit = 5

// AnalyticsFlow aggregates click analytics for a customer's own links
type AnalyticsFlow interface {
	Summary(ctx context.Context, linkID uint, customerID uint) (*dto.AnalyticsSummaryResponse, error)
	ExportClicks(ctx context.Context, linkID uint, customerID uint) (string, []byte, error)
}

// AnalyticsFlowImpl implements the analytics business flow
type AnalyticsFlowImpl struct {
	linkRepo  repository.ShortLinkRepository
	clickRepo repository.ShortLinkClickRepository
	cfg       config.ShortenerConfig
}

// NewAnalyticsFlow creates a new analytics flow instance
func NewAnalyticsFlow(
	linkRepo repository.ShortLinkRepository,
	clickRepo repository.ShortLinkClickRepository,
	cfg config.ShortenerConfig,
) AnalyticsFlow {
	return &AnalyticsFlowImpl{
		linkRepo:  linkRepo,
		clickRepo: clickRepo,
		cfg:       cfg,
	}
}

// Summary returns totals, recency windows, top groupings and the hourly histogram
func (af *AnalyticsFlowImpl) Summary(ctx context.Context, linkID uint, customerID uint) (*dto.AnalyticsSummaryResponse, error) {
	link, err := af.ownedLink(ctx, linkID, customerID)
	if err != nil {
		return nil, mapLinkManagementError(err)
	}

	total, err := af.clickRepo.Count(ctx, models.ShortLinkClickFilter{ShortLinkID: &link.ID})
	if err != nil {
		return nil, NewBusinessError(ErrCodeBackendError, "Failed to count clicks", err)
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	clicksToday, err := af.clickRepo.CountSince(ctx, link.ID, today)
	if err != nil {
		return nil, NewBusinessError(ErrCodeBackendError, "Failed to count clicks", err)
	}
	clicksWeek, err := af.clickRepo.CountSince(ctx, link.ID, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, NewBusinessError(ErrCodeBackendError, "Failed to count clicks", err)
	}
	clicksMonth, err := af.clickRepo.CountSince(ctx, link.ID, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, NewBusinessError(ErrCodeBackendError, "Failed to count clicks", err)
	}

	topCountries, err := af.topValues(ctx, link.ID, "country")
	if err != nil {
		return nil, err
	}
	topDevices, err := af.topValues(ctx, link.ID, "device_type")
	if err != nil {
		return nil, err
	}
	topBrowsers, err := af.topValues(ctx, link.ID, "browser")
	if err != nil {
		return nil, err
	}

	histogram, err := af.clickRepo.HourlyHistogram(ctx, link.ID)
	if err != nil {
		return nil, NewBusinessError(ErrCodeBackendError, "Failed to build hourly histogram", err)
	}

	// Always 24 buckets, missing hours filled with zero
	hourly := make([]dto.HourlyBucketDTO, 24)
	for i := range hourly {
		hourly[i] = dto.HourlyBucketDTO{Hour: i}
	}
	for _, bucket := range histogram {
		if bucket.Hour >= 0 && bucket.Hour < 24 {
			hourly[bucket.Hour].Count = bucket.Count
		}
	}

	return &dto.AnalyticsSummaryResponse{
		Link:         ToShortLinkDTO(*link, af.cfg.PublicBaseURL),
		TotalClicks:  total,
		ClicksToday:  clicksToday,
		ClicksWeek:   clicksWeek,
		ClicksMonth:  clicksMonth,
		TopCountries: topCountries,
		TopDevices:   topDevices,
		TopBrowsers:  topBrowsers,
		Hourly:       hourly,
	}, nil
}

// ExportClicks builds an Excel workbook with the link's raw click rows
func (af *AnalyticsFlowImpl) ExportClicks(ctx context.Context, linkID uint, customerID uint) (string, []byte, error) {
	link, err := af.ownedLink(ctx, linkID, customerID)
	if err != nil {
		return "", nil, mapLinkManagementError(err)
	}

	rows, err := af.clickRepo.ListByShortLink(ctx, link.ID, 0, 0)
	if err != nil {
		return "", nil, NewBusinessError(ErrCodeBackendError, "Failed to fetch clicks", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := xl.GetSheetName(0)
	header := []string{"id", "device_type", "browser", "os", "referrer", "country", "city", "created_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for ri, row := range rows {
		record := []string{
			strconv.FormatUint(uint64(row.ID), 10),
			utils.Deref(row.DeviceType),
			utils.Deref(row.Browser),
			utils.Deref(row.OS),
			utils.Deref(row.Referrer),
			utils.Deref(row.Country),
			utils.Deref(row.City),
			row.CreatedAt.UTC().Format(time.RFC3339),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	filename := fmt.Sprintf("clicks_%s.xlsx", link.Code)
	return filename, buf.Bytes(), nil
}

func (af *AnalyticsFlowImpl) topValues(ctx context.Context, linkID uint, column string) ([]dto.ValueCountDTO, error) {
	rows, err := af.clickRepo.TopValues(ctx, linkID, column, topValuesLimit)
	if err != nil {
		return nil, NewBusinessError(ErrCodeBackendError, "Failed to aggregate clicks", err)
	}
	out := make([]dto.ValueCountDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.ValueCountDTO{Value: row.Value, Count: row.Count})
	}
	return out, nil
}

func (af *AnalyticsFlowImpl) ownedLink(ctx context.Context, linkID, customerID uint) (*models.ShortLink, error) {
	link, err := af.linkRepo.ByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}
	if link.CustomerID == nil || *link.CustomerID != customerID {
		return nil, ErrLinkAccessDenied
	}
	return link, nil
}
