package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kynex/internal/core"
	"kynex/internal/types"
)

// CustomerHandler serves customer profiles and per-customer power
// recommendations.
type CustomerHandler struct {
	customers types.CustomerRepository
	advisor   PowerAdvisorInterface
	logger    *slog.Logger
}

// NewCustomerHandler creates a CustomerHandler.
func NewCustomerHandler(customers types.CustomerRepository, advisor PowerAdvisorInterface, logger *slog.Logger) *CustomerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CustomerHandler{customers: customers, advisor: advisor, logger: logger}
}

// RegisterRoutes mounts the customer endpoints.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/customers", h.HandleList)
	r.Get("/customers/{customerID}", h.HandleGet)
	r.Get("/customers/{customerID}/power", h.HandlePowerRecommendation)
}

// HandleList handles GET /v1/customers.
func (h *CustomerHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	customers, err := h.customers.List(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: customers})
}

// HandleGet handles GET /v1/customers/{customerID}.
func (h *CustomerHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	customer, err := h.customers.GetByID(r.Context(), chi.URLParam(r, "customerID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: customer})
}

// HandlePowerRecommendation handles GET /v1/customers/{customerID}/power,
// scoring the customer against the active contracted-power model.
func (h *CustomerHandler) HandlePowerRecommendation(w http.ResponseWriter, r *http.Request) {
	customer, err := h.customers.GetByID(r.Context(), chi.URLParam(r, "customerID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	recommendation, err := h.advisor.Recommend(r.Context(), customer.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: recommendation})
}
