// Package email delivers outbound notifications and replies over SMTP or SendGrid
package email

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"mailtriage/internal/config"
	"mailtriage/internal/models"

	gomail "github.com/emersion/go-message/mail"
)

// Message is one outbound email with plain text and HTML alternatives
type Message struct {
	To        string
	From      string
	ReplyTo   string // optional
	Subject   string
	PlainBody string
	HTMLBody  string // optional
}

// Sender delivers a message using one authenticated session per call
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// NewSender selects the outbound provider from configuration
func NewSender(cfg *config.Config) (Sender, error) {
	switch cfg.MailProvider {
	case "", "smtp":
		return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailUser, cfg.EmailPass), nil
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("SendGrid API key not configured")
		}
		return NewSendGridSender(cfg.SendGridAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown email provider: %s (supported: smtp, sendgrid)", cfg.MailProvider)
	}
}

// ValidateEmail checks for injection characters and RFC 5322 compliance
func ValidateEmail(email string) error {
	if strings.ContainsAny(email, "\r\n,;") {
		return fmt.Errorf("email contains invalid characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	return nil
}

func validateMessage(msg Message) error {
	if err := ValidateEmail(msg.From); err != nil {
		return fmt.Errorf("%w: invalid sender: %v", models.ErrValidation, err)
	}
	if err := ValidateEmail(msg.To); err != nil {
		return fmt.Errorf("%w: invalid recipient: %v", models.ErrValidation, err)
	}
	if msg.ReplyTo != "" {
		if err := ValidateEmail(msg.ReplyTo); err != nil {
			return fmt.Errorf("%w: invalid reply-to: %v", models.ErrValidation, err)
		}
	}
	// Reject headers with CRLF to prevent injection
	if strings.ContainsAny(msg.Subject, "\r\n") {
		return fmt.Errorf("%w: subject contains invalid characters", models.ErrValidation)
	}
	return nil
}

// BuildMIME renders msg as a multipart/alternative RFC 5322 message
func BuildMIME(msg Message, now time.Time) ([]byte, error) {
	var h gomail.Header
	h.SetDate(now)
	h.SetSubject(msg.Subject)
	h.SetAddressList("From", []*gomail.Address{{Address: msg.From}})
	h.SetAddressList("To", []*gomail.Address{{Address: msg.To}})
	if msg.ReplyTo != "" {
		h.SetAddressList("Reply-To", []*gomail.Address{{Address: msg.ReplyTo}})
	}
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	var buf bytes.Buffer
	mw, err := gomail.CreateInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}

	if err := writePart(mw, "text/plain", msg.PlainBody); err != nil {
		return nil, err
	}
	if msg.HTMLBody != "" {
		if err := writePart(mw, "text/html", msg.HTMLBody); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message: %w", err)
	}
	return buf.Bytes(), nil
}

func writePart(mw *gomail.InlineWriter, contentType, body string) error {
	var ph gomail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})

	w, err := mw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}
	return w.Close()
}
