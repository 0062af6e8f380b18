package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mailtriage/internal/analytics"
	"mailtriage/internal/models"
	"mailtriage/internal/store"
	"mailtriage/internal/triage"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEnricher struct{}

func (stubEnricher) Enrich(ctx context.Context, subject, body, sender string) models.Enrichment {
	return models.Enrichment{
		Category:  models.CategoryBilling,
		Sentiment: models.SentimentNeutral,
		Priority:  3,
		Language:  "en",
		Summary:   "Refund request",
	}
}

type stubForwarder struct {
	forwardErr error
	replies    int
}

func (f *stubForwarder) Mailbox(category models.Category) (string, bool) {
	switch category {
	case models.CategoryBilling:
		return "billing@example.com", true
	case models.CategoryTechnical:
		return "tech@example.com", true
	}
	return "", false
}

func (f *stubForwarder) Resolve(category models.Category) string {
	if to, ok := f.Mailbox(category); ok {
		return to
	}
	return "support@example.com"
}

func (f *stubForwarder) Forward(ctx context.Context, rec *models.EmailRecord, to string) error {
	return f.forwardErr
}

func (f *stubForwarder) Dispatch(ctx context.Context, rec *models.EmailRecord, to string) error {
	return f.forwardErr
}

func (f *stubForwarder) SendReply(ctx context.Context, rec *models.EmailRecord, text string) error {
	f.replies++
	return nil
}

type stubDrafter struct {
	err error
}

func (d stubDrafter) DraftResponse(ctx context.Context, body string, category models.Category, sentiment models.Sentiment, lang string) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	return "We have issued your refund.", nil
}

type stubPolling struct {
	active bool
}

func (p *stubPolling) Active() bool          { return p.active }
func (p *stubPolling) SetActive(active bool) { p.active = active }

type apiFixture struct {
	echo      *echo.Echo
	store     *store.MemoryStore
	forwarder *stubForwarder
	polling   *stubPolling
}

func newAPIFixture(drafter stubDrafter) *apiFixture {
	logger := zerolog.Nop()
	st := store.NewMemoryStore()
	fwd := &stubForwarder{}
	polling := &stubPolling{}
	svc := triage.NewService(st, stubEnricher{}, fwd, drafter, analytics.NewService(st, logger), logger)

	e := echo.New()
	api := e.Group("/api")
	api.GET("/emails", ListEmailsHandler(svc, polling, logger))
	api.POST("/emails", SubmitEmailHandler(svc, logger))
	api.GET("/emails/:id", GetEmailHandler(svc))
	api.POST("/emails/:id/status", UpdateStatusHandler(svc))
	api.POST("/emails/:id/category", ReassignCategoryHandler(svc))
	api.POST("/emails/:id/draft", DraftResponseHandler(svc, logger))
	api.POST("/emails/:id/responses", ManualResponseHandler(svc))
	api.GET("/polling", GetPollingHandler(polling))
	api.POST("/polling", SetPollingHandler(polling))
	api.GET("/weekly-report", WeeklyReportHandler(svc, logger))
	api.GET("/response-stats", ResponseStatsHandler(svc, logger))

	return &apiFixture{echo: e, store: st, forwarder: fwd, polling: polling}
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) seed(t *testing.T) *models.EmailRecord {
	t.Helper()
	to := "billing@example.com"
	rec := &models.EmailRecord{
		ID:          "rec-1",
		Sender:      "customer@example.com",
		Subject:     "Refund for order 1234",
		Body:        "Please refund my order.",
		ReceivedAt:  time.Now().Add(-time.Hour),
		Category:    models.CategoryBilling,
		Sentiment:   models.SentimentNeutral,
		Priority:    3,
		Language:    "en",
		ForwardedTo: &to,
		Status:      models.StatusPending,
	}
	require.NoError(t, f.store.InsertEmail(context.Background(), rec))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSubmitEmailHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		forwardErr     error
		expectedStatus int
		check          func(t *testing.T, resp models.SubmitEmailResponse)
	}{
		{
			name:           "enriches and forwards",
			body:           `{"sender":"customer@example.com","subject":"Refund","body":"Please refund order 1234"}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, resp models.SubmitEmailResponse) {
				assert.True(t, resp.Success)
				assert.True(t, resp.Forwarded)
				require.NotNil(t, resp.Record)
				assert.Equal(t, models.CategoryBilling, resp.Record.Category)
				assert.Equal(t, models.StatusPending, resp.Record.Status)
			},
		},
		{
			name:           "forward failure still stores the record",
			body:           `{"sender":"customer@example.com","subject":"Refund","body":"Please refund"}`,
			forwardErr:     models.ErrTransport,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, resp models.SubmitEmailResponse) {
				assert.True(t, resp.Success)
				assert.False(t, resp.Forwarded)
			},
		},
		{
			name:           "invalid sender",
			body:           `{"sender":"not-an-address","subject":"Refund","body":"Please refund"}`,
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, resp models.SubmitEmailResponse) {
				assert.False(t, resp.Success)
				assert.Contains(t, resp.Error, "invalid sender")
			},
		},
		{
			name:           "malformed body",
			body:           `{"sender":`,
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, resp models.SubmitEmailResponse) {
				assert.Equal(t, "Invalid request body", resp.Error)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(stubDrafter{})
			f.forwarder.forwardErr = tt.forwardErr

			rec := f.do(t, http.MethodPost, "/api/emails", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			tt.check(t, decode[models.SubmitEmailResponse](t, rec))
		})
	}
}

func TestListEmailsHandler(t *testing.T) {
	f := newAPIFixture(stubDrafter{})
	f.seed(t)
	f.polling.active = true

	rec := f.do(t, http.MethodGet, "/api/emails", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[models.EmailListResponse](t, rec)
	assert.True(t, resp.Success)
	assert.True(t, resp.Polling)
	assert.Len(t, resp.Emails, len(models.Categories()))
	require.Len(t, resp.Emails[models.CategoryBilling], 1)
	assert.Equal(t, "rec-1", resp.Emails[models.CategoryBilling][0].ID)
	assert.Empty(t, resp.Emails[models.CategoryTechnical])
}

func TestGetEmailHandler(t *testing.T) {
	f := newAPIFixture(stubDrafter{})
	f.seed(t)

	rec := f.do(t, http.MethodGet, "/api/emails/rec-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.EmailDetailsResponse](t, rec)
	require.NotNil(t, resp.Email)
	assert.Equal(t, "Refund for order 1234", resp.Email.Subject)
	assert.Empty(t, resp.Email.Responses)

	rec = f.do(t, http.MethodGet, "/api/emails/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decode[models.EmailDetailsResponse](t, rec).Success)
}

func TestUpdateStatusHandler(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		body           string
		expectedStatus int
	}{
		{name: "resolves record", id: "rec-1", body: `{"status":"resolved"}`, expectedStatus: http.StatusOK},
		{name: "unknown status", id: "rec-1", body: `{"status":"archived"}`, expectedStatus: http.StatusBadRequest},
		{name: "missing record", id: "nope", body: `{"status":"closed"}`, expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(stubDrafter{})
			f.seed(t)

			rec := f.do(t, http.MethodPost, "/api/emails/"+tt.id+"/status", tt.body)
			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}

	f := newAPIFixture(stubDrafter{})
	f.seed(t)
	f.do(t, http.MethodPost, "/api/emails/rec-1/status", `{"status":"resolved"}`)

	stored, err := f.store.GetEmail(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, stored.Status)
	assert.NotNil(t, stored.ResponseTime)
}

func TestReassignCategoryHandler(t *testing.T) {
	f := newAPIFixture(stubDrafter{})
	f.seed(t)

	rec := f.do(t, http.MethodPost, "/api/emails/rec-1/category", `{"category":"Technical"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.ReassignCategoryResponse](t, rec)
	assert.True(t, resp.Success)
	assert.True(t, resp.Forwarded)
	require.NotNil(t, resp.Record)
	assert.Equal(t, models.CategoryTechnical, resp.Record.Category)
	require.NotNil(t, resp.Record.ForwardedTo)
	assert.Equal(t, "tech@example.com", *resp.Record.ForwardedTo)

	rec = f.do(t, http.MethodPost, "/api/emails/rec-1/category", `{"category":"Spam"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReassignCategoryHandler_ForwardFailure(t *testing.T) {
	f := newAPIFixture(stubDrafter{})
	f.seed(t)
	f.forwarder.forwardErr = errors.New("smtp down")

	rec := f.do(t, http.MethodPost, "/api/emails/rec-1/category", `{"category":"Technical"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[models.ReassignCategoryResponse](t, rec)
	assert.True(t, resp.Success)
	assert.False(t, resp.Forwarded)
	assert.Equal(t, "smtp down", resp.ForwardError)
}

func TestDraftResponseHandler(t *testing.T) {
	f := newAPIFixture(stubDrafter{})
	f.seed(t)

	rec := f.do(t, http.MethodPost, "/api/emails/rec-1/draft", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "We have issued your refund.", decode[models.DraftResponse](t, rec).Response)

	failing := newAPIFixture(stubDrafter{err: models.ErrAdapter})
	failing.seed(t)
	rec = failing.do(t, http.MethodPost, "/api/emails/rec-1/draft", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decode[models.DraftResponse](t, rec).Error, "failed to generate response")
}

func TestManualResponseHandler(t *testing.T) {
	f := newAPIFixture(stubDrafter{})
	f.seed(t)

	rec := f.do(t, http.MethodPost, "/api/emails/rec-1/responses", `{"response":"Refund issued.","send_copy":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.ManualResponseResult](t, rec)
	assert.True(t, resp.Success)
	assert.True(t, resp.Sent)
	assert.Equal(t, 1, f.forwarder.replies)

	rec = f.do(t, http.MethodGet, "/api/emails/rec-1", "")
	details := decode[models.EmailDetailsResponse](t, rec).Email
	require.NotNil(t, details)
	assert.Equal(t, models.StatusResolved, details.Status)
	require.Len(t, details.Responses, 1)
	assert.Equal(t, "RE: Refund for order 1234", details.Responses[0].Subject)
	assert.False(t, details.Responses[0].IsAuto)

	rec = f.do(t, http.MethodPost, "/api/emails/rec-1/responses", `{"response":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPollingHandlers(t *testing.T) {
	f := newAPIFixture(stubDrafter{})

	rec := f.do(t, http.MethodGet, "/api/polling", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[models.PollingResponse](t, rec).Active)

	rec = f.do(t, http.MethodPost, "/api/polling", `{"active":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.PollingResponse](t, rec).Active)
	assert.True(t, f.polling.active)

	rec = f.do(t, http.MethodPost, "/api/polling", `{"active":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, f.polling.active)
}

func TestAnalyticsHandlers(t *testing.T) {
	f := newAPIFixture(stubDrafter{})
	f.seed(t)

	rec := f.do(t, http.MethodGet, "/api/weekly-report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[models.AnalyticsResponse](t, rec)
	require.NotNil(t, report.Report)
	assert.Equal(t, 1, report.Report.TotalEmails)
	assert.Equal(t, 1, report.Report.ByCategory[models.CategoryBilling].Pending)

	rec = f.do(t, http.MethodGet, "/api/response-stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[models.AnalyticsResponse](t, rec)
	require.NotNil(t, stats.Statistics)
	assert.Len(t, stats.Statistics.DailyCounts, 7)
	assert.Equal(t, 1, stats.Statistics.Categories[models.CategoryBilling])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(models.ErrNotFound))
	assert.Equal(t, http.StatusBadRequest, statusFor(models.ErrInvalidStatus))
	assert.Equal(t, http.StatusBadGateway, statusFor(models.ErrAdapter))
	assert.Equal(t, http.StatusInternalServerError, statusFor(models.ErrStorage))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
