package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kynex/internal/core"
	"kynex/internal/power"
	"kynex/internal/training"
	"kynex/internal/types"
)

// TrainerInterface is the training service contract used by the admin
// handler.
type TrainerInterface interface {
	Train(ctx context.Context, req training.TrainRequest) (*training.TrainResult, error)
}

// PowerAdvisorInterface is the contracted-power advisor contract.
type PowerAdvisorInterface interface {
	Train(ctx context.Context, l2 float64) (*power.TrainResult, error)
	Recommend(ctx context.Context, customerID string) (*types.PowerRecommendation, error)
}

// AdminHandler exposes the operational endpoints: manual training runs and
// active model inspection.
type AdminHandler struct {
	trainer   TrainerInterface
	advisor   PowerAdvisorInterface
	models    types.ModelRepository
	validator *core.Validator
	logger    *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(trainer TrainerInterface, advisor PowerAdvisorInterface, models types.ModelRepository, validator *core.Validator, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = core.NewValidator(logger)
	}
	return &AdminHandler{trainer: trainer, advisor: advisor, models: models, validator: validator, logger: logger}
}

// RegisterRoutes mounts the admin and model endpoints.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Post("/admin/train", h.HandleTrain)
	r.Post("/admin/train-power", h.HandleTrainPower)
	r.Get("/models/active", h.HandleActiveModel)
}

// trainResponse summarizes a completed training run. The full weight vectors
// stay server-side; clients get identity and quality only.
type trainResponse struct {
	ModelID     string         `json:"model_id"`
	Variant     string         `json:"variant"`
	SampleCount int            `json:"sample_count"`
	TrainCount  int            `json:"train_count"`
	TestCount   int            `json:"test_count"`
	Metrics     *types.Metrics `json:"metrics,omitempty"`
}

// HandleTrain handles POST /v1/admin/train. The body is optional; omitted
// fields use the configured training defaults. A concurrent run returns 409.
func (h *AdminHandler) HandleTrain(w http.ResponseWriter, r *http.Request) {
	var req training.TrainRequest
	if r.ContentLength != 0 {
		if err := core.DecodeJSON(w, r, &req); err != nil {
			core.Error(w, r, err)
			return
		}
		if err := h.validator.ValidateStruct(req); err != nil {
			core.Error(w, r, err)
			return
		}
	}

	result, err := h.trainer.Train(r.Context(), req)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	resp := trainResponse{
		ModelID:     result.Artifact.ID,
		Variant:     result.Artifact.Variant(),
		SampleCount: result.SampleCount,
		TrainCount:  result.TrainCount,
		TestCount:   result.TestCount,
	}
	if result.Artifact.Ridge != nil {
		resp.Metrics = &result.Artifact.Ridge.Metrics
	}
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: resp})
}

// trainPowerRequest is the optional body for POST /v1/admin/train-power.
type trainPowerRequest struct {
	L2 *float64 `json:"l2,omitempty" validate:"omitempty,gt=0"`
}

// HandleTrainPower handles POST /v1/admin/train-power, fitting the
// contracted-power advisor over the current fleet.
func (h *AdminHandler) HandleTrainPower(w http.ResponseWriter, r *http.Request) {
	var req trainPowerRequest
	if r.ContentLength != 0 {
		if err := core.DecodeJSON(w, r, &req); err != nil {
			core.Error(w, r, err)
			return
		}
		if err := h.validator.ValidateStruct(req); err != nil {
			core.Error(w, r, err)
			return
		}
	}
	l2 := power.DefaultL2
	if req.L2 != nil {
		l2 = *req.L2
	}

	result, err := h.advisor.Train(r.Context(), l2)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: map[string]any{
		"model_id":        result.Artifact.ID,
		"customer_count":  result.CustomerCount,
		"recommendations": result.Recommendations,
	}})
}

// activeModelResponse describes the active artifact without its payload.
type activeModelResponse struct {
	ModelID   string          `json:"model_id"`
	Kind      types.ModelKind `json:"kind"`
	Variant   string          `json:"variant"`
	CreatedAt string          `json:"created_at"`
	Metrics   *types.Metrics  `json:"metrics,omitempty"`
}

// HandleActiveModel handles GET /v1/models/active. The kind query param
// defaults to the interval model.
func (h *AdminHandler) HandleActiveModel(w http.ResponseWriter, r *http.Request) {
	kind := types.ModelKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = types.ModelKindInterval
	}
	if kind != types.ModelKindInterval && kind != types.ModelKindPowerAdvisor {
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidParams,
			"unknown model kind",
			nil,
			map[string]any{"kind": string(kind)},
		))
		return
	}

	artifact, err := h.models.GetActive(r.Context(), kind)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	resp := activeModelResponse{
		ModelID:   artifact.ID,
		Kind:      artifact.Kind,
		Variant:   artifact.Variant(),
		CreatedAt: artifact.CreatedAt.UTC().Format(time.RFC3339),
	}
	if artifact.Ridge != nil {
		resp.Metrics = &artifact.Ridge.Metrics
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: resp})
}
