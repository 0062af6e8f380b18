// Package triage exposes the operations behind the API and the CLI:
// enrich-and-forward, record lookups, lifecycle updates, reassignment and replies.
package triage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mailtriage/internal/email"
	"mailtriage/internal/metrics"
	"mailtriage/internal/models"
	"mailtriage/internal/router"
	"mailtriage/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Enricher derives the enrichment fields for one message
type Enricher interface {
	Enrich(ctx context.Context, subject, body, sender string) models.Enrichment
}

// Forwarder delivers records to department mailboxes
type Forwarder interface {
	Mailbox(category models.Category) (string, bool)
	Resolve(category models.Category) string
	Forward(ctx context.Context, rec *models.EmailRecord, to string) error
	Dispatch(ctx context.Context, rec *models.EmailRecord, to string) error
	SendReply(ctx context.Context, rec *models.EmailRecord, text string) error
}

// Reporter produces the analytics views
type Reporter interface {
	WeeklyReport(ctx context.Context) (*models.WeeklyReport, error)
	ResponseStatistics(ctx context.Context) (*models.ResponseStatistics, error)
}

// Outcome reports what happened to a record during a forward
type Outcome struct {
	Record     *models.EmailRecord
	Forwarded  bool
	ForwardErr error
}

// Service wires enrichment, routing and storage together
type Service struct {
	store    store.Store
	enricher Enricher
	router   Forwarder
	drafter  router.Drafter
	reports  Reporter
	now      func() time.Time
	logger   zerolog.Logger
}

// NewService creates a new triage service
func NewService(st store.Store, enricher Enricher, fwd Forwarder, drafter router.Drafter, reports Reporter, logger zerolog.Logger) *Service {
	return &Service{
		store:    st,
		enricher: enricher,
		router:   fwd,
		drafter:  drafter,
		reports:  reports,
		now:      time.Now,
		logger:   logger.With().Str("component", "triage").Logger(),
	}
}

// EnrichAndForward validates a manually submitted email and runs it through the pipeline
func (s *Service) EnrichAndForward(ctx context.Context, in models.InboundEmail) (*Outcome, error) {
	in.Sender = strings.TrimSpace(in.Sender)
	if err := email.ValidateEmail(in.Sender); err != nil {
		return nil, fmt.Errorf("%w: invalid sender: %v", models.ErrValidation, err)
	}
	if strings.TrimSpace(in.Subject) == "" && strings.TrimSpace(in.Body) == "" {
		return nil, fmt.Errorf("%w: subject or body is required", models.ErrValidation)
	}
	return s.ProcessInbound(ctx, in)
}

// ProcessInbound enriches, forwards and stores one message. Forward failures are
// reported in the Outcome; only a storage failure is returned as an error.
func (s *Service) ProcessInbound(ctx context.Context, in models.InboundEmail) (*Outcome, error) {
	receivedAt := in.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.now()
	}

	rec := &models.EmailRecord{
		ID:         uuid.NewString(),
		Sender:     in.Sender,
		Subject:    in.Subject,
		Body:       in.Body,
		ReceivedAt: receivedAt,
		Status:     models.StatusPending,
	}
	rec.Apply(s.enricher.Enrich(ctx, in.Subject, in.Body, in.Sender))

	log := s.logger.With().
		Str("record_id", rec.ID).
		Str("message_id", in.MessageID).
		Str("category", string(rec.Category)).
		Int("priority", rec.Priority).
		Logger()

	to := s.router.Resolve(rec.Category)
	rec.ForwardedTo = &to

	outcome := &Outcome{Record: rec}
	if err := s.router.Dispatch(ctx, rec, to); err != nil {
		outcome.ForwardErr = err
		log.Warn().Err(err).Str("to", to).Msg("Forward failed, storing record anyway")
	} else {
		outcome.Forwarded = true
	}

	if err := s.store.InsertEmail(ctx, rec); err != nil {
		metrics.IncrementEmailProcessed("store_failed")
		log.Error().Err(err).Msg("Failed to store email record")
		return outcome, fmt.Errorf("failed to store email: %w", err)
	}

	if outcome.Forwarded {
		metrics.IncrementEmailProcessed("forwarded")
	} else {
		metrics.IncrementEmailProcessed("forward_failed")
	}
	log.Info().Bool("forwarded", outcome.Forwarded).Msg("Email processed")
	return outcome, nil
}

// ListByCategory returns every record grouped by category, newest first
func (s *Service) ListByCategory(ctx context.Context) (map[models.Category][]models.EmailRecord, error) {
	return s.store.ListByCategory(ctx)
}

// GetRecord returns a record with the replies associated to it
func (s *Service) GetRecord(ctx context.Context, id string) (*models.EmailDetails, error) {
	rec, err := s.store.GetEmail(ctx, id)
	if err != nil {
		return nil, err
	}

	responses, err := s.store.ResponsesFor(ctx, rec.Sender, rec.Subject)
	if err != nil {
		return nil, err
	}

	return &models.EmailDetails{EmailRecord: *rec, Responses: responses}, nil
}

// UpdateStatus validates and applies a status change
func (s *Service) UpdateStatus(ctx context.Context, id, status string) error {
	st, err := models.ParseStatus(status)
	if err != nil {
		return err
	}
	if err := s.store.UpdateStatus(ctx, id, st, s.now()); err != nil {
		return err
	}

	s.logger.Info().Str("record_id", id).Str("status", string(st)).Msg("Status updated")
	return nil
}

// ReassignCategory moves a record to another category and re-forwards it once
// when the new department mailbox differs from where it was last sent
func (s *Service) ReassignCategory(ctx context.Context, id, category string) (*Outcome, error) {
	cat, err := models.ParseCategory(category)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.GetEmail(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateCategory(ctx, id, cat); err != nil {
		return nil, err
	}
	rec.Category = cat

	log := s.logger.With().Str("record_id", id).Str("category", string(cat)).Logger()
	outcome := &Outcome{Record: rec}

	to, ok := s.router.Mailbox(cat)
	if !ok || (rec.ForwardedTo != nil && *rec.ForwardedTo == to) {
		log.Info().Msg("Category reassigned, no re-forward needed")
		return outcome, nil
	}

	if err := s.router.Forward(ctx, rec, to); err != nil {
		outcome.ForwardErr = err
		log.Warn().Err(err).Str("to", to).Msg("Re-forward after reassignment failed")
		return outcome, nil
	}
	outcome.Forwarded = true

	if err := s.store.SetForwardedTo(ctx, id, to); err != nil {
		return outcome, err
	}
	rec.ForwardedTo = &to

	log.Info().Str("to", to).Msg("Category reassigned and re-forwarded")
	return outcome, nil
}

// GenerateDraftResponse drafts a reply for an operator to review
func (s *Service) GenerateDraftResponse(ctx context.Context, id string) (string, error) {
	rec, err := s.store.GetEmail(ctx, id)
	if err != nil {
		return "", err
	}

	draft, err := s.drafter.DraftResponse(ctx, rec.Body, rec.Category, rec.Sentiment, rec.Language)
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	return draft, nil
}

// SubmitManualResponse records an operator reply, resolves the record and
// optionally mails the reply to the customer. It reports whether a copy was sent.
func (s *Service) SubmitManualResponse(ctx context.Context, id, text string, sendCopy bool) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, fmt.Errorf("%w: response text is required", models.ErrValidation)
	}

	rec, err := s.store.GetEmail(ctx, id)
	if err != nil {
		return false, err
	}

	now := s.now()
	if err := s.store.UpdateStatus(ctx, id, models.StatusResolved, now); err != nil {
		return false, err
	}

	resp := &models.ResponseRecord{
		ID:        uuid.NewString(),
		Recipient: rec.Sender,
		Subject:   router.ReplySubject(rec.Subject),
		Text:      text,
		Category:  rec.Category,
		IsAuto:    false,
		CreatedAt: now,
	}
	if err := s.store.InsertResponse(ctx, resp); err != nil {
		return false, err
	}

	log := s.logger.With().Str("record_id", id).Logger()
	if !sendCopy || rec.Sender == "" {
		log.Info().Msg("Manual response stored")
		return false, nil
	}

	if err := s.router.SendReply(ctx, rec, text); err != nil {
		log.Warn().Err(err).Msg("Manual response stored but sending the copy failed")
		return false, nil
	}

	log.Info().Str("to", rec.Sender).Msg("Manual response stored and sent")
	return true, nil
}

// WeeklyReport returns the rolling 7-day report
func (s *Service) WeeklyReport(ctx context.Context) (*models.WeeklyReport, error) {
	return s.reports.WeeklyReport(ctx)
}

// ResponseStatistics returns the rolling 30-day statistics
func (s *Service) ResponseStatistics(ctx context.Context) (*models.ResponseStatistics, error) {
	return s.reports.ResponseStatistics(ctx)
}
