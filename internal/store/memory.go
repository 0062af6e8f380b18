package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mailtriage/internal/models"
)

// MemoryStore keeps records in process memory. Used when no DATABASE_URL is configured.
type MemoryStore struct {
	mu        sync.RWMutex
	emails    map[string]models.EmailRecord
	responses []models.ResponseRecord
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		emails: make(map[string]models.EmailRecord),
	}
}

func (s *MemoryStore) InsertEmail(ctx context.Context, rec *models.EmailRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("%w: email record requires an id", models.ErrStorage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.emails[rec.ID]; exists {
		return fmt.Errorf("%w: duplicate email id %s", models.ErrStorage, rec.ID)
	}
	s.emails[rec.ID] = copyRecord(*rec)
	return nil
}

func (s *MemoryStore) InsertResponse(ctx context.Context, resp *models.ResponseRecord) error {
	if resp == nil || resp.ID == "" {
		return fmt.Errorf("%w: response record requires an id", models.ErrStorage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.responses = append(s.responses, *resp)
	return nil
}

func (s *MemoryStore) GetEmail(ctx context.Context, id string) (*models.EmailRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.emails[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	out := copyRecord(rec)
	return &out, nil
}

func (s *MemoryStore) ListEmails(ctx context.Context) ([]models.EmailRecord, error) {
	return s.list(func(models.EmailRecord) bool { return true }), nil
}

func (s *MemoryStore) ListByCategory(ctx context.Context) (map[models.Category][]models.EmailRecord, error) {
	records, err := s.ListEmails(ctx)
	if err != nil {
		return nil, err
	}
	return GroupByCategory(records), nil
}

func (s *MemoryStore) ListSince(ctx context.Context, since time.Time) ([]models.EmailRecord, error) {
	return s.list(func(rec models.EmailRecord) bool {
		return !rec.ReceivedAt.Before(since)
	}), nil
}

func (s *MemoryStore) ResponsesFor(ctx context.Context, recipient, subject string) ([]models.ResponseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]models.ResponseRecord, 0)
	for _, r := range s.responses {
		if r.Recipient == recipient {
			candidates = append(candidates, r)
		}
	}
	return matchResponses(candidates, subject), nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, status models.Status, now time.Time) error {
	return s.update(id, func(rec *models.EmailRecord) {
		rec.Status = status
		if status == models.StatusResolved && rec.ResponseTime == nil {
			stamped := now
			rec.ResponseTime = &stamped
		}
	})
}

func (s *MemoryStore) UpdateCategory(ctx context.Context, id string, category models.Category) error {
	return s.update(id, func(rec *models.EmailRecord) {
		rec.Category = category
	})
}

func (s *MemoryStore) SetForwardedTo(ctx context.Context, id, to string) error {
	return s.update(id, func(rec *models.EmailRecord) {
		forwarded := to
		rec.ForwardedTo = &forwarded
	})
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) update(id string, mutate func(rec *models.EmailRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.emails[id]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	mutate(&rec)
	s.emails[id] = rec
	return nil
}

func (s *MemoryStore) list(keep func(models.EmailRecord) bool) []models.EmailRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]models.EmailRecord, 0, len(s.emails))
	for _, rec := range s.emails {
		if keep(rec) {
			records = append(records, copyRecord(rec))
		}
	}
	sortNewestFirst(records)
	return records
}

// copyRecord detaches the pointer fields so callers cannot mutate stored state
func copyRecord(rec models.EmailRecord) models.EmailRecord {
	if rec.CustomerID != nil {
		v := *rec.CustomerID
		rec.CustomerID = &v
	}
	if rec.ForwardedTo != nil {
		v := *rec.ForwardedTo
		rec.ForwardedTo = &v
	}
	if rec.ResponseTime != nil {
		v := *rec.ResponseTime
		rec.ResponseTime = &v
	}
	return rec
}
