// Package analytics derives the rolling weekly report and response statistics
// from stored email records. Nothing is cached; every call recomputes.
package analytics

import (
	"context"
	"fmt"
	"time"

	"mailtriage/internal/models"

	"github.com/rs/zerolog"
)

// Report names accepted by Service.Report
const (
	PeriodWeekly = "weekly"
	PeriodStats  = "stats"
)

const (
	day          = 24 * time.Hour
	reportWindow = 7 * day
	statsWindow  = 30 * day
	dailyBuckets = 7
	dateLayout   = "2006-01-02"
)

// RecordSource lists records received at or after a point in time
type RecordSource interface {
	ListSince(ctx context.Context, since time.Time) ([]models.EmailRecord, error)
}

// Service handles analytics retrieval
type Service struct {
	source RecordSource
	now    func() time.Time
	logger zerolog.Logger
}

// NewService creates a new analytics service
func NewService(source RecordSource, logger zerolog.Logger) *Service {
	return &Service{
		source: source,
		now:    time.Now,
		logger: logger.With().Str("component", "analytics").Logger(),
	}
}

// WeeklyReport builds the rolling 7-day report
func (s *Service) WeeklyReport(ctx context.Context) (*models.WeeklyReport, error) {
	now := s.now()
	records, err := s.source.ListSince(ctx, now.Add(-reportWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to load weekly records: %w", err)
	}

	report := BuildWeeklyReport(records, now)
	s.logger.Debug().Int("total_emails", report.TotalEmails).Msg("Weekly report generated")
	return report, nil
}

// ResponseStatistics builds the rolling 30-day statistics
func (s *Service) ResponseStatistics(ctx context.Context) (*models.ResponseStatistics, error) {
	now := s.now()
	records, err := s.source.ListSince(ctx, now.Add(-statsWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to load statistics records: %w", err)
	}

	stats := BuildResponseStatistics(records, now)
	s.logger.Debug().Int("total_responses", stats.TotalResponses).Msg("Response statistics generated")
	return stats, nil
}

// Report returns the named view
func (s *Service) Report(ctx context.Context, period string) (interface{}, error) {
	switch period {
	case PeriodWeekly:
		return s.WeeklyReport(ctx)
	case PeriodStats:
		return s.ResponseStatistics(ctx)
	default:
		return nil, fmt.Errorf("%w: unknown report %q (want %s or %s)", models.ErrValidation, period, PeriodWeekly, PeriodStats)
	}
}

// BuildWeeklyReport aggregates the records received in the 7 days before now
func BuildWeeklyReport(records []models.EmailRecord, now time.Time) *models.WeeklyReport {
	start := now.Add(-reportWindow)

	report := &models.WeeklyReport{
		Period: models.ReportPeriod{
			Start: start.Format(dateLayout),
			End:   now.Format(dateLayout),
		},
		Categories: map[models.Category]int{},
		Sentiments: map[models.Sentiment]int{},
		Priorities: map[int]int{},
		Languages:  map[string]int{},
		ByCategory: map[models.Category]models.CategoryProgress{},
	}
	for _, s := range models.Sentiments() {
		report.Sentiments[s] = 0
	}
	for p := models.MinPriority; p <= models.MaxPriority; p++ {
		report.Priorities[p] = 0
	}
	for _, c := range models.Categories() {
		report.ByCategory[c] = models.CategoryProgress{}
	}

	var hours []float64
	for _, rec := range records {
		if rec.ReceivedAt.Before(start) {
			continue
		}

		report.TotalEmails++
		report.Categories[rec.Category]++
		report.Sentiments[rec.Sentiment]++
		report.Priorities[rec.Priority]++
		report.Languages[rec.Language]++

		if h, ok := responseHours(rec); ok {
			hours = append(hours, h)
		}

		progress := report.ByCategory[rec.Category]
		switch rec.Status {
		case models.StatusResolved:
			progress.Completed++
		case models.StatusPending, models.StatusInProgress:
			progress.Pending++
		}
		progress.Total = progress.Completed + progress.Pending
		report.ByCategory[rec.Category] = progress
	}

	report.ResponseMetrics.AvgResponseTime = average(hours)
	return report
}

// BuildResponseStatistics aggregates the records received in the 30 days before now
func BuildResponseStatistics(records []models.EmailRecord, now time.Time) *models.ResponseStatistics {
	statsStart := now.Add(-statsWindow)
	weekStart := now.Add(-reportWindow)

	stats := &models.ResponseStatistics{
		DailyCounts:      make([]models.DailyCount, dailyBuckets),
		Categories:       map[models.Category]int{},
		Priorities:       map[int]int{},
		AvgResponseTimes: map[models.Category]float64{},
	}
	for i := range stats.DailyCounts {
		stats.DailyCounts[i].Date = now.Add(-time.Duration(i+1) * day).Format(dateLayout)
	}
	for _, c := range models.Categories() {
		stats.Categories[c] = 0
	}
	for p := models.MinPriority; p <= models.MaxPriority; p++ {
		stats.Priorities[p] = 0
	}

	hoursByCategory := map[models.Category][]float64{}
	for _, rec := range records {
		if rec.ReceivedAt.Before(statsStart) {
			continue
		}

		if i, ok := dailyBucket(rec.ReceivedAt, now); ok {
			stats.DailyCounts[i].Count++
		}
		if _, known := stats.Categories[rec.Category]; known {
			stats.Categories[rec.Category]++
		}
		if _, known := stats.Priorities[rec.Priority]; known {
			stats.Priorities[rec.Priority]++
		}
		if h, ok := responseHours(rec); ok {
			hoursByCategory[rec.Category] = append(hoursByCategory[rec.Category], h)
		}
		if rec.Status == models.StatusResolved && !rec.ReceivedAt.Before(weekStart) {
			stats.TotalResponses++
		}
	}

	for _, c := range models.Categories() {
		stats.AvgResponseTimes[c] = average(hoursByCategory[c])
	}
	return stats
}

// dailyBucket places t in the trailing window [now-(i+1)d, now-i d)
func dailyBucket(t, now time.Time) (int, bool) {
	if !t.Before(now) {
		return 0, false
	}
	i := int((now.Sub(t) - 1) / day)
	if i >= dailyBuckets {
		return 0, false
	}
	return i, true
}

// responseHours is the resolution latency of a resolved record
func responseHours(rec models.EmailRecord) (float64, bool) {
	if rec.Status != models.StatusResolved || rec.ResponseTime == nil {
		return 0, false
	}
	return rec.ResponseTime.Sub(rec.ReceivedAt).Hours(), true
}

// average returns 0 for an empty slice
func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
