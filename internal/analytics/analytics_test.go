package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"mailtriage/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)

func record(category models.Category, age time.Duration, status models.Status, resolveAfter time.Duration) models.EmailRecord {
	rec := models.EmailRecord{
		ID:         string(category) + age.String(),
		ReceivedAt: now.Add(-age),
		Category:   category,
		Sentiment:  models.SentimentNeutral,
		Priority:   3,
		Language:   "en",
		Status:     status,
	}
	if resolveAfter > 0 {
		rt := rec.ReceivedAt.Add(resolveAfter)
		rec.ResponseTime = &rt
	}
	return rec
}

type fakeSource struct {
	records []models.EmailRecord
	since   time.Time
	err     error
}

func (f *fakeSource) ListSince(ctx context.Context, since time.Time) ([]models.EmailRecord, error) {
	f.since = since
	return f.records, f.err
}

func TestBuildWeeklyReport_Empty(t *testing.T) {
	report := BuildWeeklyReport(nil, now)

	assert.Equal(t, "2026-04-08", report.Period.Start)
	assert.Equal(t, "2026-04-15", report.Period.End)
	assert.Equal(t, 0, report.TotalEmails)
	assert.Equal(t, 0.0, report.ResponseMetrics.AvgResponseTime)
	assert.Len(t, report.Sentiments, 4)
	assert.Len(t, report.Priorities, 5)
	assert.Len(t, report.ByCategory, len(models.Categories()))
	assert.Empty(t, report.Categories)
}

func TestBuildWeeklyReport(t *testing.T) {
	records := []models.EmailRecord{
		record(models.CategoryTechnical, 2*time.Hour, models.StatusResolved, 2*time.Hour),
		record(models.CategoryTechnical, 3*day, models.StatusResolved, 4*time.Hour),
		record(models.CategoryTechnical, day, models.StatusInProgress, 0),
		record(models.CategoryBilling, 5*day, models.StatusPending, 0),
		record(models.CategoryBilling, 6*day, models.StatusClosed, 0),
		record(models.CategoryComplaint, 8*day, models.StatusResolved, time.Hour), // outside the window
	}
	records[3].Sentiment = models.SentimentVeryNegative
	records[3].Priority = 5
	records[3].Language = "es"

	report := BuildWeeklyReport(records, now)

	assert.Equal(t, 5, report.TotalEmails)
	assert.Equal(t, 3, report.Categories[models.CategoryTechnical])
	assert.Equal(t, 2, report.Categories[models.CategoryBilling])
	assert.Equal(t, 0, report.Categories[models.CategoryComplaint])
	assert.Equal(t, 4, report.Sentiments[models.SentimentNeutral])
	assert.Equal(t, 1, report.Sentiments[models.SentimentVeryNegative])
	assert.Equal(t, 4, report.Priorities[3])
	assert.Equal(t, 1, report.Priorities[5])
	assert.Equal(t, map[string]int{"en": 4, "es": 1}, report.Languages)
	assert.InDelta(t, 3.0, report.ResponseMetrics.AvgResponseTime, 0.0001)

	assert.Equal(t, models.CategoryProgress{Total: 3, Completed: 2, Pending: 1}, report.ByCategory[models.CategoryTechnical])
	// Closed records are neither completed nor pending
	assert.Equal(t, models.CategoryProgress{Total: 1, Completed: 0, Pending: 1}, report.ByCategory[models.CategoryBilling])
	assert.Equal(t, models.CategoryProgress{}, report.ByCategory[models.CategoryComplaint])
}

func TestBuildWeeklyReport_ResolvedWithoutTimestamp(t *testing.T) {
	records := []models.EmailRecord{
		record(models.CategoryBilling, time.Hour, models.StatusResolved, 0),
	}

	report := BuildWeeklyReport(records, now)
	assert.Equal(t, 0.0, report.ResponseMetrics.AvgResponseTime)
	assert.Equal(t, 1, report.ByCategory[models.CategoryBilling].Completed)
}

func TestBuildResponseStatistics_DailyWindows(t *testing.T) {
	records := []models.EmailRecord{
		record(models.CategoryTechnical, time.Minute, models.StatusPending, 0),
		record(models.CategoryTechnical, day, models.StatusPending, 0), // exactly on the boundary belongs to bucket 0
		record(models.CategoryTechnical, day+time.Minute, models.StatusPending, 0),
		record(models.CategoryTechnical, 7*day, models.StatusPending, 0),
		record(models.CategoryTechnical, 7*day+time.Minute, models.StatusPending, 0), // older than the 7 buckets
	}

	stats := BuildResponseStatistics(records, now)

	require.Len(t, stats.DailyCounts, 7)
	assert.Equal(t, models.DailyCount{Date: "2026-04-14", Count: 2}, stats.DailyCounts[0])
	assert.Equal(t, models.DailyCount{Date: "2026-04-13", Count: 1}, stats.DailyCounts[1])
	assert.Equal(t, models.DailyCount{Date: "2026-04-08", Count: 1}, stats.DailyCounts[6])

	total := 0
	for _, dc := range stats.DailyCounts {
		total += dc.Count
	}
	assert.Equal(t, 4, total)
	assert.Equal(t, 5, stats.Categories[models.CategoryTechnical])
}

func TestBuildResponseStatistics(t *testing.T) {
	records := []models.EmailRecord{
		record(models.CategoryBilling, 2*day, models.StatusResolved, 6*time.Hour),
		record(models.CategoryBilling, 20*day, models.StatusResolved, 2*time.Hour),
		record(models.CategoryComplaint, 10*day, models.StatusPending, 0),
		record(models.CategoryTechnical, 40*day, models.StatusResolved, time.Hour), // outside 30 days
	}
	records[2].Priority = 1

	stats := BuildResponseStatistics(records, now)

	assert.Len(t, stats.Categories, len(models.Categories()))
	assert.Equal(t, 2, stats.Categories[models.CategoryBilling])
	assert.Equal(t, 1, stats.Categories[models.CategoryComplaint])
	assert.Equal(t, 0, stats.Categories[models.CategoryTechnical])

	assert.Len(t, stats.Priorities, 5)
	assert.Equal(t, 2, stats.Priorities[3])
	assert.Equal(t, 1, stats.Priorities[1])

	assert.InDelta(t, 4.0, stats.AvgResponseTimes[models.CategoryBilling], 0.0001)
	assert.Equal(t, 0.0, stats.AvgResponseTimes[models.CategoryTechnical])
	assert.Equal(t, 0.0, stats.AvgResponseTimes[models.CategoryUnclassified])
	assert.Len(t, stats.AvgResponseTimes, len(models.Categories()))

	// Only the billing record from two days ago falls within the 7-day window
	assert.Equal(t, 1, stats.TotalResponses)
}

func TestAverage(t *testing.T) {
	assert.Equal(t, 0.0, average(nil))
	assert.Equal(t, 0.0, average([]float64{}))
	assert.Equal(t, 2.5, average([]float64{2, 3}))
}

func TestService(t *testing.T) {
	source := &fakeSource{records: []models.EmailRecord{
		record(models.CategoryTechnical, time.Hour, models.StatusResolved, time.Hour),
	}}
	svc := NewService(source, zerolog.Nop())
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	report, err := svc.WeeklyReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalEmails)
	assert.Equal(t, now.Add(-7*day), source.since)

	stats, err := svc.ResponseStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalResponses)
	assert.Equal(t, now.Add(-30*day), source.since)

	out, err := svc.Report(ctx, PeriodWeekly)
	require.NoError(t, err)
	assert.IsType(t, &models.WeeklyReport{}, out)

	_, err = svc.Report(ctx, "monthly")
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestService_SourceFailure(t *testing.T) {
	svc := NewService(&fakeSource{err: models.ErrStorage}, zerolog.Nop())

	_, err := svc.WeeklyReport(context.Background())
	assert.True(t, errors.Is(err, models.ErrStorage))

	_, err = svc.ResponseStatistics(context.Background())
	assert.True(t, errors.Is(err, models.ErrStorage))
}
