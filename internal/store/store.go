// Package store persists triaged email records and their replies
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"mailtriage/internal/database"
	"mailtriage/internal/models"
)

// Store is the record store used by the triage service, poller and analytics
type Store interface {
	InsertEmail(ctx context.Context, rec *models.EmailRecord) error
	InsertResponse(ctx context.Context, resp *models.ResponseRecord) error
	GetEmail(ctx context.Context, id string) (*models.EmailRecord, error)
	// ListEmails returns every record, newest first
	ListEmails(ctx context.Context) ([]models.EmailRecord, error)
	// ListByCategory groups records by category; every category key is present
	ListByCategory(ctx context.Context) (map[models.Category][]models.EmailRecord, error)
	// ResponsesFor returns replies sent to recipient whose subject contains subject
	// (case-insensitive), oldest first
	ResponsesFor(ctx context.Context, recipient, subject string) ([]models.ResponseRecord, error)
	// UpdateStatus sets the status; the first transition into resolved stamps
	// response_time with now, later updates never clear or move it
	UpdateStatus(ctx context.Context, id string, status models.Status, now time.Time) error
	UpdateCategory(ctx context.Context, id string, category models.Category) error
	SetForwardedTo(ctx context.Context, id, to string) error
	// ListSince returns records received at or after since, newest first
	ListSince(ctx context.Context, since time.Time) ([]models.EmailRecord, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open returns a SQLStore for databaseURL, or a MemoryStore when it is empty
func Open(ctx context.Context, databaseURL string) (Store, error) {
	if databaseURL == "" {
		return NewMemoryStore(), nil
	}

	db, err := database.New(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}

	s, err := NewSQLStore(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// GroupByCategory buckets records by category, preserving their order
func GroupByCategory(records []models.EmailRecord) map[models.Category][]models.EmailRecord {
	grouped := make(map[models.Category][]models.EmailRecord, len(models.Categories()))
	for _, c := range models.Categories() {
		grouped[c] = []models.EmailRecord{}
	}
	for _, rec := range records {
		grouped[rec.Category] = append(grouped[rec.Category], rec)
	}
	return grouped
}

// matchResponses keeps replies whose subject contains subject, ignoring case
func matchResponses(responses []models.ResponseRecord, subject string) []models.ResponseRecord {
	needle := strings.ToLower(subject)
	matched := make([]models.ResponseRecord, 0, len(responses))
	for _, r := range responses {
		if strings.Contains(strings.ToLower(r.Subject), needle) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return matched
}

func sortNewestFirst(records []models.EmailRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ReceivedAt.After(records[j].ReceivedAt)
	})
}
