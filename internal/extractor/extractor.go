// Package extractor finds customer and account identifiers in free-form email text
package extractor

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// noneSentinel is what the model answers when the text carries no identifier
const noneSentinel = "none"

// token is the shape every accepted identifier must have
const token = `([A-Z0-9]{4,15})`

// rules are tried in order; the first match wins. Labels match case-insensitively,
// the captured identifier does not.
var rules = []*regexp.Regexp{
	// Explicit labels
	regexp.MustCompile(`(?i:customer)\s*(?i:id|number|#|no)[:.\s]*` + token),
	regexp.MustCompile(`(?i:account)\s*(?i:id|number|#|no)[:.\s]*` + token),
	regexp.MustCompile(`(?i:client)\s*(?i:id|number|#|no)[:.\s]*` + token),
	regexp.MustCompile(`(?i:user)\s*(?i:id|number|#|no)[:.\s]*` + token),

	// Reference and order labels
	regexp.MustCompile(`(?i:ref(?:erence)?)\s*(?i:id|number|#|no)?[:.\s]*` + token),
	regexp.MustCompile(`(?i:order)\s*(?i:id|number|#|no)[:.\s]*` + token),

	// Generic markers
	regexp.MustCompile(`(?i:id|#|no)[:.\s]*` + token),
	regexp.MustCompile(`#\s*` + token),

	// Known prefixes
	regexp.MustCompile(`\b(CUS[A-Z0-9]{5,12})\b`),
	regexp.MustCompile(`\b(ACC[A-Z0-9]{5,12})\b`),
	regexp.MustCompile(`\b(ID[A-Z0-9]{5,12})\b`),

	// Phrasing
	regexp.MustCompile(`(?i:my (?:customer|account|client|reference)? ?(?:id|number) is)[:\s]+` + token),
	regexp.MustCompile(`(?i:using (?:customer|account|client|reference)? ?(?:id|number))[:\s]+` + token),
}

var validID = regexp.MustCompile(`^[A-Z0-9]{4,15}$`)

// Fallback extracts an identifier with a language model
type Fallback interface {
	ExtractCustomerID(ctx context.Context, body string) (string, error)
}

// Extractor runs the pattern rules and then the optional fallback
type Extractor struct {
	fallback Fallback
}

// New creates an extractor. fallback may be nil.
func New(fallback Fallback) *Extractor {
	return &Extractor{fallback: fallback}
}

// Match runs only the pattern rules
func Match(body string) (string, bool) {
	for _, re := range rules {
		m := re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		id := strings.TrimRight(strings.TrimSpace(m[1]), ".,:;)]}")
		if id != "" {
			return id, true
		}
	}
	return "", false
}

// Extract returns the customer ID found in body, or nil when there is none.
// An error is returned only when the fallback call itself failed.
func (e *Extractor) Extract(ctx context.Context, body string) (*string, error) {
	if id, ok := Match(body); ok {
		return &id, nil
	}

	if e.fallback == nil {
		return nil, nil
	}

	out, err := e.fallback.ExtractCustomerID(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("customer id fallback: %w", err)
	}

	out = strings.TrimSpace(out)
	if strings.EqualFold(out, noneSentinel) || !validID.MatchString(out) {
		return nil, nil
	}
	return &out, nil
}
