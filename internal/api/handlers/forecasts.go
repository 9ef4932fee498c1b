// Package handlers contains the HTTP handler implementations for the Kynex
// API: customer forecasts, admin training, and model inspection.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kynex/internal/core"
	"kynex/internal/forecast"
	"kynex/internal/types"
)

// ForecastServiceInterface defines the service contract for the forecast
// handler. Defined locally to avoid tight coupling per the handler injection
// pattern.
type ForecastServiceInterface interface {
	Interval(ctx context.Context, customer *types.CustomerProfile, horizon types.ForecastHorizon) (*forecast.IntervalForecast, error)
	Month(ctx context.Context, customer *types.CustomerProfile) (*types.MonthlyForecast, error)
}

// ForecastHandler maps HTTP requests to forecast service methods.
type ForecastHandler struct {
	service   ForecastServiceInterface
	customers types.CustomerRepository
	logger    *slog.Logger
}

// NewForecastHandler creates a ForecastHandler.
func NewForecastHandler(svc ForecastServiceInterface, customers types.CustomerRepository, logger *slog.Logger) *ForecastHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForecastHandler{service: svc, customers: customers, logger: logger}
}

// RegisterRoutes mounts the forecast endpoints under /v1/customers.
func (h *ForecastHandler) RegisterRoutes(r chi.Router) {
	r.Get("/customers/{customerID}/forecast", h.HandleInterval)
	r.Get("/customers/{customerID}/forecast/month", h.HandleMonth)
}

// HandleInterval handles GET /v1/customers/{customerID}/forecast.
// Query param horizon selects day (default) or week.
func (h *ForecastHandler) HandleInterval(w http.ResponseWriter, r *http.Request) {
	customer, err := h.customers.GetByID(r.Context(), chi.URLParam(r, "customerID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	horizon := types.ForecastHorizon(r.URL.Query().Get("horizon"))
	if horizon == "" {
		horizon = types.HorizonDay
	}
	if horizon != types.HorizonDay && horizon != types.HorizonWeek {
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidHorizon,
			"horizon must be either day or week",
			nil,
			map[string]any{"horizon": string(horizon)},
		))
		return
	}

	result, err := h.service.Interval(r.Context(), customer, horizon)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: result})
}

// HandleMonth handles GET /v1/customers/{customerID}/forecast/month.
func (h *ForecastHandler) HandleMonth(w http.ResponseWriter, r *http.Request) {
	customer, err := h.customers.GetByID(r.Context(), chi.URLParam(r, "customerID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	result, err := h.service.Month(r.Context(), customer)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: result})
}
