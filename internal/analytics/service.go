// Package analytics aggregates invoice figures for the tenant dashboard.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultTrendMonths is the trend window when none is requested.
const DefaultTrendMonths = 12

// MaxTrendMonths bounds the trend window.
const MaxTrendMonths = 36

// Summary holds the dashboard KPI cards. Credit notes reduce the signed
// figures. Drafts and cancelled documents never count, except that overdue
// follows the invoice list and includes unsent drafts past their due date.
type Summary struct {
	Invoiced      decimal.Decimal `json:"invoiced"`
	Collected     decimal.Decimal `json:"collected"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	OverdueCount  int             `json:"overdue_count"`
	OverdueAmount decimal.Decimal `json:"overdue_amount"`
	VATCollected  decimal.Decimal `json:"vat_collected"`
	CreditNotes   decimal.Decimal `json:"credit_notes"`
}

// TrendPoint is one month of issued revenue.
type TrendPoint struct {
	Period   string          `json:"period"`
	Invoiced decimal.Decimal `json:"invoiced"`
	VAT      decimal.Decimal `json:"vat"`
}

// Repository runs the aggregate queries.
type Repository interface {
	Summary(ctx context.Context, tenantID uuid.UUID, today time.Time) (Summary, error)
	MonthlyRevenue(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]TrendPoint, error)
}

// Service coordinates analytics queries with the cache layer.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger, now: time.Now}
}

// WithClock overrides the clock used for "today".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) today() time.Time {
	y, m, d := s.now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Summary returns the KPI cards for tenantID.
func (s *Service) Summary(ctx context.Context, tenantID uuid.UUID) (Summary, error) {
	today := s.today()
	key, err := s.cache.BuildKey(ctx, tenantID, "kpi", today.Format("2006-01-02"))
	if err != nil {
		return Summary{}, fmt.Errorf("analytics: cache key: %w", err)
	}
	return FetchJSON(ctx, s.cache, key, func(ctx context.Context) (Summary, error) {
		return s.repo.Summary(ctx, tenantID, today)
	})
}

// Trend returns monthly revenue for the trailing months, oldest first. Months
// without documents are reported as zero.
func (s *Service) Trend(ctx context.Context, tenantID uuid.UUID, months int) ([]TrendPoint, error) {
	if months <= 0 {
		months = DefaultTrendMonths
	}
	if months > MaxTrendMonths {
		months = MaxTrendMonths
	}
	today := s.today()
	to := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	from := to.AddDate(0, -months, 0)

	key, err := s.cache.BuildKey(ctx, tenantID, "trend", from.Format("2006-01"), strconv.Itoa(months))
	if err != nil {
		return nil, fmt.Errorf("analytics: cache key: %w", err)
	}
	return FetchJSON(ctx, s.cache, key, func(ctx context.Context) ([]TrendPoint, error) {
		rows, err := s.repo.MonthlyRevenue(ctx, tenantID, from, to)
		if err != nil {
			return nil, err
		}
		return fillMonths(rows, from, months), nil
	})
}

func fillMonths(rows []TrendPoint, from time.Time, months int) []TrendPoint {
	byPeriod := make(map[string]TrendPoint, len(rows))
	for _, row := range rows {
		byPeriod[row.Period] = row
	}
	points := make([]TrendPoint, 0, months)
	for i := 0; i < months; i++ {
		period := from.AddDate(0, i, 0).Format("2006-01")
		p, ok := byPeriod[period]
		if !ok {
			p = TrendPoint{Period: period, Invoiced: decimal.Zero, VAT: decimal.Zero}
		}
		points = append(points, p)
	}
	return points
}

// Invalidate drops every cached figure of tenantID. Invoice mutations call it.
func (s *Service) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	if err := s.cache.Bump(ctx, tenantID); err != nil {
		return fmt.Errorf("analytics: bump: %w", err)
	}
	return nil
}

// Warm precomputes the summary and the default trend for tenantID.
func (s *Service) Warm(ctx context.Context, tenantID uuid.UUID) error {
	if _, err := s.Summary(ctx, tenantID); err != nil {
		return err
	}
	if _, err := s.Trend(ctx, tenantID, DefaultTrendMonths); err != nil {
		return err
	}
	s.logger.Debug("analytics warmed", slog.String("tenant_id", tenantID.String()))
	return nil
}
