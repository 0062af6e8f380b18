package models

import (
	"fmt"
	"strings"
	"time"
)

// Category is the department bucket an email is routed to
type Category string

const (
	CategoryTechnical      Category = "Technical"
	CategoryBilling        Category = "Billing"
	CategoryComplaint      Category = "Complaint"
	CategoryGeneralInquiry Category = "General Inquiry"
	CategoryUnclassified   Category = "Unclassified"
)

// Categories returns every category in display order
func Categories() []Category {
	return []Category{
		CategoryTechnical,
		CategoryBilling,
		CategoryComplaint,
		CategoryGeneralInquiry,
		CategoryUnclassified,
	}
}

// ParseCategory matches a category label case-insensitively
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories() {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// Sentiment is the tone detected in an email body
type Sentiment string

const (
	SentimentPositive     Sentiment = "Positive"
	SentimentNeutral      Sentiment = "Neutral"
	SentimentNegative     Sentiment = "Negative"
	SentimentVeryNegative Sentiment = "Very Negative"
)

// Sentiments returns every sentiment label
func Sentiments() []Sentiment {
	return []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative, SentimentVeryNegative}
}

// ParseSentiment matches a sentiment label case-insensitively
func ParseSentiment(s string) (Sentiment, error) {
	s = strings.TrimSpace(s)
	for _, v := range Sentiments() {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: unknown sentiment %q", ErrValidation, s)
}

// Status is the lifecycle state of an email record.
// Any status may be set from any other status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Statuses returns every lifecycle status
func Statuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusResolved, StatusClosed}
}

// ParseStatus validates a status value
func ParseStatus(s string) (Status, error) {
	for _, v := range Statuses() {
		if s == string(v) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Priority bounds
const (
	MinPriority = 1
	MaxPriority = 5
)

// InboundEmail is a decoded message before enrichment
type InboundEmail struct {
	MessageID  string    `json:"message_id,omitempty"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// Enrichment holds the fields derived from message content
type Enrichment struct {
	Category   Category  `json:"category"`
	Sentiment  Sentiment `json:"sentiment"`
	Priority   int       `json:"priority"`
	Language   string    `json:"language"`
	Summary    string    `json:"summary"`
	CustomerID *string   `json:"customer_id,omitempty"`
}

// EmailRecord represents one triaged inbound email
type EmailRecord struct {
	ID           string     `db:"id" json:"id"`
	Sender       string     `db:"sender" json:"sender"`
	Subject      string     `db:"subject" json:"subject"`
	Body         string     `db:"body" json:"body"`
	ReceivedAt   time.Time  `db:"received_at" json:"timestamp"`
	Category     Category   `db:"category" json:"category"`
	Sentiment    Sentiment  `db:"sentiment" json:"sentiment"`
	Priority     int        `db:"priority" json:"priority"`
	Language     string     `db:"language" json:"language"`
	Summary      string     `db:"summary" json:"summary"`
	CustomerID   *string    `db:"customer_id" json:"customer_id,omitempty"`
	ForwardedTo  *string    `db:"forwarded_to" json:"forwarded_to,omitempty"`
	Status       Status     `db:"status" json:"status"`
	ResponseTime *time.Time `db:"response_time" json:"response_time,omitempty"`
}

// Apply copies enrichment results onto the record
func (r *EmailRecord) Apply(e Enrichment) {
	r.Category = e.Category
	r.Sentiment = e.Sentiment
	r.Priority = e.Priority
	r.Language = e.Language
	r.Summary = e.Summary
	r.CustomerID = e.CustomerID
}

// ResponseRecord is a generated or operator-authored reply
type ResponseRecord struct {
	ID        string    `db:"id" json:"id"`
	Recipient string    `db:"recipient" json:"recipient"`
	Subject   string    `db:"subject" json:"subject"`
	Text      string    `db:"response_text" json:"response_text"`
	Category  Category  `db:"category" json:"category"`
	IsAuto    bool      `db:"is_auto" json:"is_auto"`
	CreatedAt time.Time `db:"created_at" json:"timestamp"`
}

// EmailDetails is a record together with its associated responses
type EmailDetails struct {
	EmailRecord
	Responses []ResponseRecord `json:"responses"`
}
