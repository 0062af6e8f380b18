package enrichment

import (
	"mailtriage/internal/models"
	"mailtriage/internal/utils"
)

// UrgentKeywords raise priority when found anywhere in subject or body
var UrgentKeywords = []string{
	"urgent", "asap", "immediately", "emergency", "critical",
	"important", "deadline", "quick", "expedite", "rush",
}

// ScorePriority computes the 1-5 priority of a message. It starts at 3, adds 1 when any
// urgent keyword appears, then adjusts by sentiment in half steps and truncates toward zero.
func ScorePriority(subject, body string, sentiment models.Sentiment) int {
	// Half steps, so 6 == priority 3
	score := 6

	if _, ok := utils.FirstKeyword(UrgentKeywords, subject, body); ok {
		score += 2
	}

	switch sentiment {
	case models.SentimentVeryNegative:
		score += 2
	case models.SentimentNegative:
		score++
	case models.SentimentPositive:
		score--
	}

	priority := score / 2
	if priority < models.MinPriority {
		return models.MinPriority
	}
	if priority > models.MaxPriority {
		return models.MaxPriority
	}
	return priority
}
