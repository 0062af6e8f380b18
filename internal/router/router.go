// Package router resolves department mailboxes, forwards enriched emails and
// sends the automated acknowledgment back to the customer.
package router

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"mailtriage/internal/config"
	"mailtriage/internal/email"
	"mailtriage/internal/metrics"
	"mailtriage/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Drafter writes a customer-facing reply
type Drafter interface {
	DraftResponse(ctx context.Context, body string, category models.Category, sentiment models.Sentiment, lang string) (string, error)
}

// ResponseStore persists reply drafts
type ResponseStore interface {
	InsertResponse(ctx context.Context, resp *models.ResponseRecord) error
}

// autoReplyPriority is the highest priority that still gets an automated reply
// regardless of category
const autoReplyPriority = 3

// Router forwards records and handles auto-responses
type Router struct {
	departments map[models.Category]string
	general     string
	from        string
	sender      email.Sender
	drafter     Drafter
	responses   ResponseStore
	now         func() time.Time
	logger      zerolog.Logger
}

// New creates a new router from the department table in cfg
func New(cfg *config.Config, sender email.Sender, drafter Drafter, responses ResponseStore, logger zerolog.Logger) *Router {
	departments := make(map[models.Category]string)
	for name, mailbox := range cfg.Departments() {
		category, err := models.ParseCategory(name)
		if err != nil {
			logger.Warn().Str("category", name).Msg("Ignoring mailbox for unknown category")
			continue
		}
		departments[category] = mailbox
	}

	return &Router{
		departments: departments,
		general:     cfg.GeneralMailbox(),
		from:        cfg.EmailUser,
		sender:      sender,
		drafter:     drafter,
		responses:   responses,
		now:         time.Now,
		logger:      logger.With().Str("component", "router").Logger(),
	}
}

// Mailbox returns the configured department mailbox for category, if any
func (r *Router) Mailbox(category models.Category) (string, bool) {
	mailbox, ok := r.departments[category]
	return mailbox, ok
}

// Resolve returns the destination for category, falling back to the general mailbox
func (r *Router) Resolve(category models.Category) string {
	if mailbox, ok := r.departments[category]; ok {
		return mailbox
	}
	r.logger.Warn().Str("category", string(category)).Str("to", r.general).Msg("No mailbox configured for category, using general mailbox")
	return r.general
}

// Render builds the plain text and HTML forward bodies for rec
func (r *Router) Render(rec *models.EmailRecord) (string, string, error) {
	view := forwardView{
		Subject:       rec.Subject,
		Sender:        rec.Sender,
		Category:      string(rec.Category),
		Priority:      rec.Priority,
		PriorityLabel: priorityLabels[rec.Priority],
		Sentiment:     string(rec.Sentiment),
		Language:      rec.Language,
		Body:          rec.Body,
		Date:          r.now().Format("January 02, 2006"),
	}
	if rec.Summary != "" && rec.Summary != rec.Body {
		view.Summary = rec.Summary
	}
	if rec.CustomerID != nil {
		view.CustomerID = *rec.CustomerID
	}

	var plain, html bytes.Buffer
	if err := forwardText.Execute(&plain, view); err != nil {
		return "", "", fmt.Errorf("failed to render text body: %w", err)
	}
	if err := forwardHTML.Execute(&html, view); err != nil {
		return "", "", fmt.Errorf("failed to render html body: %w", err)
	}
	return plain.String(), html.String(), nil
}

// ForwardSubject is the subject line department mailboxes receive
func ForwardSubject(rec *models.EmailRecord) string {
	return fmt.Sprintf("[%s][P%d] %s", rec.Category, rec.Priority, rec.Subject)
}

// AutoResponseSubject is the subject line of the automated acknowledgment
func AutoResponseSubject(subject string) string {
	return fmt.Sprintf("RE: %s [Automated Acknowledgment]", subject)
}

// ReplySubject is the subject line of an operator reply
func ReplySubject(subject string) string {
	return "RE: " + subject
}

// ShouldSendAutoResponse reports whether the customer gets the acknowledgment by mail.
// Self-service categories always do; others only at low or medium priority.
func ShouldSendAutoResponse(category models.Category, priority int) bool {
	return category == models.CategoryGeneralInquiry ||
		category == models.CategoryTechnical ||
		priority <= autoReplyPriority
}

// Forward sends rec to the department mailbox with Reply-To set to the customer
func (r *Router) Forward(ctx context.Context, rec *models.EmailRecord, to string) error {
	plain, html, err := r.Render(rec)
	if err != nil {
		return err
	}

	msg := email.Message{
		To:        to,
		From:      r.from,
		Subject:   ForwardSubject(rec),
		PlainBody: plain,
		HTMLBody:  html,
	}
	// A malformed sender must not block delivery to the department
	if email.ValidateEmail(rec.Sender) == nil {
		msg.ReplyTo = rec.Sender
	}

	if err := r.sender.Send(ctx, msg); err != nil {
		metrics.IncrementForward("failed")
		r.logger.Error().Err(err).Str("record_id", rec.ID).Str("to", to).Msg("Failed to forward email")
		return fmt.Errorf("forward to %s: %w", to, err)
	}

	metrics.IncrementForward("sent")
	r.logger.Info().Str("record_id", rec.ID).Str("to", to).Str("category", string(rec.Category)).Msg("Email forwarded")
	return nil
}

// Dispatch forwards rec and, when that succeeds, runs the auto-response.
// Auto-response problems are logged and never turn a forward into a failure.
func (r *Router) Dispatch(ctx context.Context, rec *models.EmailRecord, to string) error {
	if err := r.Forward(ctx, rec, to); err != nil {
		return err
	}
	r.AutoRespond(ctx, rec)
	return nil
}

// AutoRespond drafts an acknowledgment, stores it and mails it when policy allows
func (r *Router) AutoRespond(ctx context.Context, rec *models.EmailRecord) {
	log := r.logger.With().Str("record_id", rec.ID).Logger()

	draft, err := r.drafter.DraftResponse(ctx, rec.Body, rec.Category, rec.Sentiment, rec.Language)
	if err != nil {
		metrics.IncrementAutoResponse("failed")
		log.Warn().Err(err).Msg("Auto-response draft failed")
		return
	}

	resp := &models.ResponseRecord{
		ID:        uuid.NewString(),
		Recipient: rec.Sender,
		Subject:   rec.Subject,
		Text:      draft,
		Category:  rec.Category,
		IsAuto:    true,
		CreatedAt: r.now(),
	}
	if err := r.responses.InsertResponse(ctx, resp); err != nil {
		log.Error().Err(err).Msg("Failed to store auto-response")
	} else {
		metrics.IncrementAutoResponse("stored")
	}

	if !ShouldSendAutoResponse(rec.Category, rec.Priority) {
		log.Debug().Int("priority", rec.Priority).Msg("Auto-response kept for human follow-up")
		return
	}

	err = r.sendReply(ctx, rec.Sender, AutoResponseSubject(rec.Subject), replyView{
		Heading:  "Thank you for your message",
		Greeting: "Dear Valued Customer,",
		Text:     draft,
		Closing:  "Best regards,\nCustomer Support Team",
		Footer:   "This is an automated response. Please do not reply directly to this email.",
	})
	if err != nil {
		metrics.IncrementAutoResponse("failed")
		log.Warn().Err(err).Msg("Failed to send auto-response")
		return
	}

	metrics.IncrementAutoResponse("sent")
	log.Info().Str("to", rec.Sender).Msg("Auto-response sent")
}

// SendReply mails an operator-written reply to the customer
func (r *Router) SendReply(ctx context.Context, rec *models.EmailRecord, text string) error {
	return r.sendReply(ctx, rec.Sender, ReplySubject(rec.Subject), replyView{
		Heading:  "Response to Your Inquiry",
		Greeting: "Dear Customer,",
		Text:     text,
		Closing:  "Best regards,\nCustomer Support Team",
	})
}

func (r *Router) sendReply(ctx context.Context, to, subject string, view replyView) error {
	var plain, html bytes.Buffer
	if err := replyText.Execute(&plain, view); err != nil {
		return fmt.Errorf("failed to render text reply: %w", err)
	}
	if err := replyHTML.Execute(&html, view); err != nil {
		return fmt.Errorf("failed to render html reply: %w", err)
	}

	return r.sender.Send(ctx, email.Message{
		To:        to,
		From:      r.from,
		Subject:   subject,
		PlainBody: plain.String(),
		HTMLBody:  html.String(),
	})
}
