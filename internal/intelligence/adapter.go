// Package intelligence turns raw email text into labels, summaries and reply
// drafts using a language model. Every call is a single stateless prompt.
package intelligence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mailtriage/internal/metrics"
	"mailtriage/internal/models"
	"mailtriage/internal/utils"
)

// maxExtractionInput bounds the body sent for customer ID extraction
const maxExtractionInput = 1000

// Generator sends one prompt to a language model and returns its reply text
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Adapter builds constrained prompts and validates model output
type Adapter struct {
	gen Generator
}

// NewAdapter creates a new adapter backed by gen
func NewAdapter(gen Generator) *Adapter {
	return &Adapter{gen: gen}
}

// Classify asks for one of the four department categories
func (a *Adapter) Classify(ctx context.Context, body string) (models.Category, error) {
	prompt := fmt.Sprintf(`Classify the issue below into one of these categories:
- Technical
- Billing
- Complaint
- General Inquiry

Message: "%s"
Only return the category.`, body)

	out, err := a.call(ctx, "classify", prompt)
	if err != nil {
		return "", err
	}

	label := cleanLabel(out)
	for _, c := range []models.Category{
		models.CategoryTechnical,
		models.CategoryBilling,
		models.CategoryComplaint,
		models.CategoryGeneralInquiry,
	} {
		if strings.EqualFold(label, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unexpected category %q", models.ErrAdapter, out)
}

// AnalyzeSentiment asks for one of the four sentiment labels
func (a *Adapter) AnalyzeSentiment(ctx context.Context, body string) (models.Sentiment, error) {
	prompt := fmt.Sprintf(`Analyze the sentiment of this message and classify it as one of:
- Positive
- Neutral
- Negative
- Very Negative

Message: "%s"

Only return the sentiment category.`, body)

	out, err := a.call(ctx, "sentiment", prompt)
	if err != nil {
		return "", err
	}

	s, err := models.ParseSentiment(cleanLabel(out))
	if err != nil {
		return "", fmt.Errorf("%w: unexpected sentiment %q", models.ErrAdapter, out)
	}
	return s, nil
}

// Summarize asks for a 2-3 sentence summary
func (a *Adapter) Summarize(ctx context.Context, body string) (string, error) {
	prompt := fmt.Sprintf(`Summarize this email in 2-3 sentences while preserving the key points and any specific requests:

"%s"

Only return the summary, nothing else.`, body)

	return a.call(ctx, "summarize", prompt)
}

// DraftResponse asks for a short customer-facing acknowledgment in the customer's language
func (a *Adapter) DraftResponse(ctx context.Context, body string, category models.Category, sentiment models.Sentiment, lang string) (string, error) {
	prompt := fmt.Sprintf(`Generate a professional, helpful email response to this customer inquiry.

Category: %s
Customer sentiment: %s
Customer message: "%s"

The response should:
1. Acknowledge their inquiry
2. Provide helpful initial information
3. Set expectations for follow-up if needed
4. Be concise (3-5 sentences maximum)
5. Have a professional but warm tone

%s
Only return the response text, nothing else.`, category, sentiment, body, utils.GetLanguageInstruction(lang))

	return a.call(ctx, "draft_response", prompt)
}

// ExtractCustomerID asks for a bare customer/account identifier or "None".
// The raw reply is returned; callers validate its shape.
func (a *Adapter) ExtractCustomerID(ctx context.Context, body string) (string, error) {
	prompt := fmt.Sprintf(`Extract the customer ID or account number from this email if present.
Only respond with the ID/number itself, nothing else.
If no customer ID is found, respond with "None".

Email: "%s"`, utils.TruncateRunes(body, maxExtractionInput))

	return a.call(ctx, "extract_customer_id", prompt)
}

func (a *Adapter) call(ctx context.Context, operation, prompt string) (string, error) {
	start := time.Now()
	out, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		metrics.RecordAdapterCall(operation, "error", time.Since(start))
		return "", fmt.Errorf("%w: %s: %v", models.ErrAdapter, operation, err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		metrics.RecordAdapterCall(operation, "empty", time.Since(start))
		return "", fmt.Errorf("%w: %s: empty response", models.ErrAdapter, operation)
	}

	metrics.RecordAdapterCall(operation, "ok", time.Since(start))
	return out, nil
}

// cleanLabel strips quotes, markdown emphasis and a trailing period from a one-word answer
func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`*")
	s = strings.TrimSuffix(s, ".")
	return strings.TrimSpace(s)
}
