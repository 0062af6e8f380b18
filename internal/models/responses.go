package models

import "time"

// HealthResponse represents a basic health check response
type HealthResponse struct {
	Status    string    `json:"status" example:"healthy"`
	Timestamp time.Time `json:"timestamp" example:"2023-01-01T00:00:00Z"`
	Version   string    `json:"version" example:"1.0.0"`
}

// DBHealthResponse represents a record store health check response
type DBHealthResponse struct {
	Status    string        `json:"status" example:"healthy"`
	Timestamp time.Time     `json:"timestamp" example:"2023-01-01T00:00:00Z"`
	Connected bool          `json:"connected" example:"true"`
	Latency   time.Duration `json:"latency" example:"1ms"`
	Error     string        `json:"error,omitempty" example:""`
}

// SubmitEmailRequest is the body for manual enrich-and-forward
type SubmitEmailRequest struct {
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SubmitEmailResponse reports the outcome of enrich-and-forward
type SubmitEmailResponse struct {
	Success   bool         `json:"success"`
	Forwarded bool         `json:"forwarded"`
	Record    *EmailRecord `json:"record,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// ChangeStatusRequest is the body for a status update
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// ReassignCategoryRequest is the body for a category reassignment
type ReassignCategoryRequest struct {
	Category string `json:"category"`
}

// ManualResponseRequest is the body for an operator reply
type ManualResponseRequest struct {
	Response string `json:"response"`
	SendCopy bool   `json:"send_copy"`
}

// DraftResponse carries a generated reply draft
type DraftResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// PollingRequest toggles the background poller
type PollingRequest struct {
	Active bool `json:"active"`
}

// PollingResponse reports the poller state
type PollingResponse struct {
	Success bool   `json:"success"`
	Active  bool   `json:"active"`
	Error   string `json:"error,omitempty"`
}

// ActionResponse is the generic success/error envelope
type ActionResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// EmailDetailsResponse wraps a single record lookup
type EmailDetailsResponse struct {
	Success bool          `json:"success"`
	Email   *EmailDetails `json:"email,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// EmailListResponse wraps the grouped record listing
type EmailListResponse struct {
	Success bool                       `json:"success"`
	Emails  map[Category][]EmailRecord `json:"emails"`
	Polling bool                       `json:"polling_active"`
	Error   string                     `json:"error,omitempty"`
}

// ReassignCategoryResponse reports a reassignment and any re-forward attempt
type ReassignCategoryResponse struct {
	Success      bool         `json:"success"`
	Forwarded    bool         `json:"forwarded"`
	ForwardError string       `json:"forward_error,omitempty"`
	Record       *EmailRecord `json:"record,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// ManualResponseResult reports whether the operator reply was mailed out
type ManualResponseResult struct {
	Success bool   `json:"success"`
	Sent    bool   `json:"sent"`
	Error   string `json:"error,omitempty"`
}
