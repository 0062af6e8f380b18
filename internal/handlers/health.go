package handlers

import (
	"context"
	"net/http"
	"time"

	"mailtriage/internal/models"

	"github.com/labstack/echo/v4"
)

// Pinger checks that the record store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles basic health check requests
func HealthHandler(version string) echo.HandlerFunc {
	return func(c echo.Context) error {
		response := models.HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Version:   version,
		}

		return c.JSON(http.StatusOK, response)
	}
}

// DBHealthHandler handles record store health check requests
func DBHealthHandler(store Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		response := models.DBHealthResponse{
			Status:    "unknown",
			Timestamp: time.Now().UTC(),
			Connected: false,
			Latency:   0,
		}

		if store == nil {
			response.Status = "unhealthy"
			response.Error = "Record store not initialized"
			return c.JSON(http.StatusServiceUnavailable, response)
		}

		// Measure ping latency
		start := time.Now()
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		err := store.Ping(ctx)
		response.Latency = time.Since(start)

		if err != nil {
			response.Status = "unhealthy"
			response.Error = err.Error()
			return c.JSON(http.StatusServiceUnavailable, response)
		}

		response.Status = "healthy"
		response.Connected = true

		return c.JSON(http.StatusOK, response)
	}
}

// RootHandler handles requests to the root endpoint
func RootHandler(version string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "Mail Triage API",
			"version": version,
			"status":  "running",
		})
	}
}
