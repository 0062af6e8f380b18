package enrichment

import (
	"testing"

	"mailtriage/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestScorePriority(t *testing.T) {
	tests := []struct {
		name      string
		subject   string
		body      string
		sentiment models.Sentiment
		expected  int
	}{
		{"baseline", "Question", "How do I export data?", models.SentimentNeutral, 3},
		{"urgent subject with negative", "URGENT: account locked", "I cannot log in", models.SentimentNegative, 4},
		{"urgent with very negative", "Need this asap", "This is unacceptable", models.SentimentVeryNegative, 5},
		{"very negative only", "Bad service", "Terrible", models.SentimentVeryNegative, 4},
		{"negative only truncates", "Issue", "Not great", models.SentimentNegative, 3},
		{"positive only truncates", "Thanks", "Love the product", models.SentimentPositive, 2},
		{"urgent with positive", "Quick thanks", "Great job", models.SentimentPositive, 3},
		{"keyword in body", "Hello", "There is a DEADLINE tomorrow", models.SentimentNeutral, 4},
		{"several keywords count once", "URGENT CRITICAL EMERGENCY", "asap rush", models.SentimentNeutral, 4},
		{"substring keyword", "Hi", "please respond quickly", models.SentimentNeutral, 4},
		{"unknown sentiment is neutral", "Hi", "body", models.Sentiment("Confused"), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ScorePriority(tt.subject, tt.body, tt.sentiment))
		})
	}
}

func TestScorePriority_AlwaysInRange(t *testing.T) {
	subjects := []string{"", "urgent", "hello"}
	for _, subject := range subjects {
		for _, sentiment := range models.Sentiments() {
			p := ScorePriority(subject, "emergency rush", sentiment)
			assert.GreaterOrEqual(t, p, models.MinPriority)
			assert.LessOrEqual(t, p, models.MaxPriority)
		}
	}
}
