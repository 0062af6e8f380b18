package handlers

import (
	"net/http"

	"mailtriage/internal/models"
	"mailtriage/internal/triage"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// PollingControl reads and toggles the background poller
type PollingControl interface {
	Active() bool
	SetActive(active bool)
}

// ListEmailsHandler returns every record grouped by category, newest first
func ListEmailsHandler(svc *triage.Service, polling PollingControl, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		grouped, err := svc.ListByCategory(c.Request().Context())
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list emails")
			return c.JSON(statusFor(err), models.EmailListResponse{
				Success: false,
				Error:   err.Error(),
			})
		}

		return c.JSON(http.StatusOK, models.EmailListResponse{
			Success: true,
			Emails:  grouped,
			Polling: polling.Active(),
		})
	}
}

// GetEmailHandler returns one record with its associated replies
func GetEmailHandler(svc *triage.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		details, err := svc.GetRecord(c.Request().Context(), c.Param("id"))
		if err != nil {
			return c.JSON(statusFor(err), models.EmailDetailsResponse{
				Success: false,
				Error:   err.Error(),
			})
		}

		return c.JSON(http.StatusOK, models.EmailDetailsResponse{
			Success: true,
			Email:   details,
		})
	}
}

// SubmitEmailHandler runs a manually submitted email through enrich-and-forward
func SubmitEmailHandler(svc *triage.Service, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.SubmitEmailRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.SubmitEmailResponse{
				Success: false,
				Error:   "Invalid request body",
			})
		}

		outcome, err := svc.EnrichAndForward(c.Request().Context(), models.InboundEmail{
			Sender:  req.Sender,
			Subject: req.Subject,
			Body:    req.Body,
		})
		if err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				logger.Error().Err(err).Str("sender", req.Sender).Msg("Enrich and forward failed")
			}
			return c.JSON(status, models.SubmitEmailResponse{
				Success: false,
				Error:   err.Error(),
			})
		}

		return c.JSON(http.StatusOK, models.SubmitEmailResponse{
			Success:   true,
			Forwarded: outcome.Forwarded,
			Record:    outcome.Record,
		})
	}
}

// UpdateStatusHandler changes the lifecycle status of a record
func UpdateStatusHandler(svc *triage.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.ChangeStatusRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ActionResponse{
				Success: false,
				Error:   "Invalid request body",
			})
		}

		if err := svc.UpdateStatus(c.Request().Context(), c.Param("id"), req.Status); err != nil {
			return c.JSON(statusFor(err), models.ActionResponse{
				Success: false,
				Error:   err.Error(),
			})
		}

		return c.JSON(http.StatusOK, models.ActionResponse{Success: true})
	}
}

// ReassignCategoryHandler moves a record to another category
func ReassignCategoryHandler(svc *triage.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.ReassignCategoryRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ReassignCategoryResponse{
				Success: false,
				Error:   "Invalid request body",
			})
		}

		outcome, err := svc.ReassignCategory(c.Request().Context(), c.Param("id"), req.Category)
		if err != nil {
			return c.JSON(statusFor(err), models.ReassignCategoryResponse{
				Success: false,
				Error:   err.Error(),
			})
		}

		response := models.ReassignCategoryResponse{
			Success:   true,
			Forwarded: outcome.Forwarded,
			Record:    outcome.Record,
		}
		if outcome.ForwardErr != nil {
			response.ForwardError = outcome.ForwardErr.Error()
		}
		return c.JSON(http.StatusOK, response)
	}
}

// DraftResponseHandler generates a reply draft for operator review
func DraftResponseHandler(svc *triage.Service, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		draft, err := svc.GenerateDraftResponse(c.Request().Context(), c.Param("id"))
		if err != nil {
			logger.Warn().Err(err).Str("record_id", c.Param("id")).Msg("Draft generation failed")
			return c.JSON(statusFor(err), models.DraftResponse{
				Success: false,
				Error:   err.Error(),
			})
		}

		return c.JSON(http.StatusOK, models.DraftResponse{
			Success:  true,
			Response: draft,
		})
	}
}

// ManualResponseHandler stores an operator reply and resolves the record
func ManualResponseHandler(svc *triage.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.ManualResponseRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ManualResponseResult{
				Success: false,
				Error:   "Invalid request body",
			})
		}

		sent, err := svc.SubmitManualResponse(c.Request().Context(), c.Param("id"), req.Response, req.SendCopy)
		if err != nil {
			return c.JSON(statusFor(err), models.ManualResponseResult{
				Success: false,
				Error:   err.Error(),
			})
		}

		return c.JSON(http.StatusOK, models.ManualResponseResult{
			Success: true,
			Sent:    sent,
		})
	}
}

// GetPollingHandler reports whether background polling is active
func GetPollingHandler(polling PollingControl) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.PollingResponse{
			Success: true,
			Active:  polling.Active(),
		})
	}
}

// SetPollingHandler toggles background polling
func SetPollingHandler(polling PollingControl) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.PollingRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.PollingResponse{
				Success: false,
				Active:  polling.Active(),
				Error:   "Invalid request body",
			})
		}

		polling.SetActive(req.Active)
		return c.JSON(http.StatusOK, models.PollingResponse{
			Success: true,
			Active:  polling.Active(),
		})
	}
}
