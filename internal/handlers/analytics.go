package handlers

import (
	"fmt"
	"net/http"

	"mailtriage/internal/models"
	"mailtriage/internal/triage"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// WeeklyReportHandler returns the rolling 7-day report
func WeeklyReportHandler(svc *triage.Service, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		report, err := svc.WeeklyReport(c.Request().Context())
		if err != nil {
			logger.Error().Err(err).Msg("Failed to build weekly report")
			return c.JSON(statusFor(err), models.AnalyticsResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to build weekly report: %v", err),
			})
		}

		return c.JSON(http.StatusOK, models.AnalyticsResponse{
			Success: true,
			Report:  report,
		})
	}
}

// ResponseStatsHandler returns the rolling 30-day response statistics
func ResponseStatsHandler(svc *triage.Service, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		stats, err := svc.ResponseStatistics(c.Request().Context())
		if err != nil {
			logger.Error().Err(err).Msg("Failed to build response statistics")
			return c.JSON(statusFor(err), models.AnalyticsResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to build response statistics: %v", err),
			})
		}

		return c.JSON(http.StatusOK, models.AnalyticsResponse{
			Success:    true,
			Statistics: stats,
		})
	}
}
