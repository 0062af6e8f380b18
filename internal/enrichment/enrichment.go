// Package enrichment derives category, sentiment, priority, language, summary and
// customer ID for an inbound email. Each step fails independently onto a fixed fallback.
package enrichment

import (
	"context"
	"fmt"

	"mailtriage/internal/metrics"
	"mailtriage/internal/models"
	"mailtriage/internal/utils"

	"github.com/rs/zerolog"
)

// Fallbacks are the values used when a step cannot produce a result
var Fallbacks = struct {
	Category        models.Category
	Sentiment       models.Sentiment
	Language        string
	SummaryLimit    int
	SummaryEllipsis string
	CustomerID      *string
}{
	Category:        models.CategoryUnclassified,
	Sentiment:       models.SentimentNeutral,
	Language:        utils.LangEnglish,
	SummaryLimit:    300,
	SummaryEllipsis: "...",
	CustomerID:      nil,
}

// summaryMinWords is the body length below which the body is its own summary
const summaryMinWords = 100

// TextIntelligence is the language model surface used for enrichment
type TextIntelligence interface {
	Classify(ctx context.Context, body string) (models.Category, error)
	AnalyzeSentiment(ctx context.Context, body string) (models.Sentiment, error)
	Summarize(ctx context.Context, body string) (string, error)
}

// IDExtractor finds a customer ID in a body
type IDExtractor interface {
	Extract(ctx context.Context, body string) (*string, error)
}

// Enricher runs every enrichment step for one message
type Enricher struct {
	ai     TextIntelligence
	ids    IDExtractor
	logger zerolog.Logger
}

// NewEnricher creates a new enricher
func NewEnricher(ai TextIntelligence, ids IDExtractor, logger zerolog.Logger) *Enricher {
	return &Enricher{
		ai:     ai,
		ids:    ids,
		logger: logger.With().Str("component", "enrichment").Logger(),
	}
}

// Enrich never fails. A step that errors (or panics) takes its fallback value and
// the remaining steps still run.
func (e *Enricher) Enrich(ctx context.Context, subject, body, sender string) models.Enrichment {
	log := e.logger.With().Str("sender", sender).Logger()

	result := models.Enrichment{
		Category:   Fallbacks.Category,
		Sentiment:  Fallbacks.Sentiment,
		Language:   Fallbacks.Language,
		CustomerID: Fallbacks.CustomerID,
	}

	if err := step(func() error {
		category, err := e.ai.Classify(ctx, body)
		if err == nil {
			result.Category = category
		}
		return err
	}); err != nil {
		metrics.IncrementFallback("classify")
		log.Warn().Err(err).Msg("Classification failed, using fallback")
	}

	if err := step(func() error {
		sentiment, err := e.ai.AnalyzeSentiment(ctx, body)
		if err == nil {
			result.Sentiment = sentiment
		}
		return err
	}); err != nil {
		metrics.IncrementFallback("sentiment")
		log.Warn().Err(err).Msg("Sentiment analysis failed, using fallback")
	}

	result.Priority = ScorePriority(subject, body, result.Sentiment)

	if err := step(func() error {
		result.Language = utils.DetectLanguageCode(body)
		return nil
	}); err != nil {
		result.Language = Fallbacks.Language
		log.Warn().Err(err).Msg("Language detection failed, using fallback")
	}

	result.Summary = e.summarize(ctx, body, log)

	if err := step(func() error {
		id, err := e.ids.Extract(ctx, body)
		if err == nil {
			result.CustomerID = id
		}
		return err
	}); err != nil {
		metrics.IncrementFallback("customer_id")
		log.Warn().Err(err).Msg("Customer ID extraction failed")
	}

	log.Debug().
		Str("category", string(result.Category)).
		Str("sentiment", string(result.Sentiment)).
		Int("priority", result.Priority).
		Str("language", result.Language).
		Msg("Email enriched")

	return result
}

func (e *Enricher) summarize(ctx context.Context, body string, log zerolog.Logger) string {
	if utils.CountWords(body) < summaryMinWords {
		return body
	}

	var summary string
	if err := step(func() error {
		s, err := e.ai.Summarize(ctx, body)
		summary = s
		return err
	}); err != nil {
		metrics.IncrementFallback("summary")
		log.Warn().Err(err).Msg("Summarization failed, truncating body")
		return TruncateSummary(body)
	}
	return summary
}

// TruncateSummary is the summary used when the model cannot produce one
func TruncateSummary(body string) string {
	if len([]rune(body)) <= Fallbacks.SummaryLimit {
		return body
	}
	return utils.TruncateRunes(body, Fallbacks.SummaryLimit) + Fallbacks.SummaryEllipsis
}

// step runs fn and turns a panic into an error
func step(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", models.ErrAdapter, r)
		}
	}()
	return fn()
}
