package email

import (
	"context"
	"fmt"

	"mailtriage/internal/models"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridSender delivers mail through the SendGrid v3 API
type SendGridSender struct {
	apiKey  string
	baseURL string // overrides the API endpoint when set
}

// NewSendGridSender creates a new SendGrid sender
func NewSendGridSender(apiKey string) *SendGridSender {
	return &SendGridSender{apiKey: apiKey}
}

func (s *SendGridSender) Name() string { return "sendgrid" }

// Send posts one message to the mail send endpoint
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}

	from := mail.NewEmail("", msg.From)
	to := mail.NewEmail("", msg.To)

	html := msg.HTMLBody
	if html == "" {
		html = msg.PlainBody
	}
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.PlainBody, html)
	if msg.ReplyTo != "" {
		message.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}

	client := sendgrid.NewSendClient(s.apiKey)
	if s.baseURL != "" {
		client.BaseURL = s.baseURL
	}

	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("%w: failed to send email: %v", models.ErrTransport, err)
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("%w: SendGrid API error: status %d, body: %s", models.ErrTransport, response.StatusCode, response.Body)
	}

	return nil
}
