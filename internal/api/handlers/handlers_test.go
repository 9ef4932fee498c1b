package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"kynex/internal/forecast"
	"kynex/internal/power"
	"kynex/internal/training"
	"kynex/internal/types"
)

// Shared test doubles for the handler package. Each mock records the last
// call so tests can assert on what the handler passed through.

type mockCustomerRepo struct {
	customers map[string]*types.CustomerProfile
	listErr   error
}

func (m *mockCustomerRepo) GetByID(_ context.Context, id string) (*types.CustomerProfile, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundCustomer, "customer not found", nil)
	}
	return c, nil
}

func (m *mockCustomerRepo) List(_ context.Context) ([]types.CustomerProfile, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]types.CustomerProfile, 0, len(m.customers))
	for _, c := range m.customers {
		out = append(out, *c)
	}
	return out, nil
}

type mockForecastService struct {
	intervalResult *forecast.IntervalForecast
	intervalErr    error
	monthResult    *types.MonthlyForecast
	monthErr       error

	gotHorizon  types.ForecastHorizon
	gotCustomer string
}

func (m *mockForecastService) Interval(_ context.Context, customer *types.CustomerProfile, horizon types.ForecastHorizon) (*forecast.IntervalForecast, error) {
	m.gotCustomer = customer.ID
	m.gotHorizon = horizon
	return m.intervalResult, m.intervalErr
}

func (m *mockForecastService) Month(_ context.Context, customer *types.CustomerProfile) (*types.MonthlyForecast, error) {
	m.gotCustomer = customer.ID
	return m.monthResult, m.monthErr
}

type mockTrainer struct {
	result *training.TrainResult
	err    error
	gotReq training.TrainRequest
	calls  int
}

func (m *mockTrainer) Train(_ context.Context, req training.TrainRequest) (*training.TrainResult, error) {
	m.calls++
	m.gotReq = req
	return m.result, m.err
}

type mockAdvisor struct {
	trainResult *power.TrainResult
	trainErr    error
	gotL2       float64

	recommendation *types.PowerRecommendation
	recommendErr   error
}

func (m *mockAdvisor) Train(_ context.Context, l2 float64) (*power.TrainResult, error) {
	m.gotL2 = l2
	return m.trainResult, m.trainErr
}

func (m *mockAdvisor) Recommend(_ context.Context, customerID string) (*types.PowerRecommendation, error) {
	if m.recommendErr != nil {
		return nil, m.recommendErr
	}
	return m.recommendation, nil
}

type mockModelRepo struct {
	artifact *types.ModelArtifact
	err      error
	gotKind  types.ModelKind
}

func (m *mockModelRepo) SaveAndActivate(_ context.Context, _ *types.ModelArtifact) error {
	return nil
}

func (m *mockModelRepo) GetActive(_ context.Context, kind types.ModelKind) (*types.ModelArtifact, error) {
	m.gotKind = kind
	return m.artifact, m.err
}

func testCustomer() *types.CustomerProfile {
	return &types.CustomerProfile{
		ID:                 "cust-1",
		Name:               "Ana Ferreira",
		Segment:            types.SegmentResidential,
		City:               "Lisboa",
		ContractedPowerKVA: 6.9,
		Tariff:             types.TariffSimples,
	}
}

// newTestRouter mounts the given registrars under /v1 the way the server
// does, without the full middleware stack.
func newTestRouter(registrars ...func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		for _, register := range registrars {
			register(r)
		}
	})
	return r
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// decodeData unmarshals the "data" field of the response envelope into out.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

// decodeErrorCode extracts error.code from an error response.
func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error.Code
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func ridgeTestArtifact() *types.ModelArtifact {
	return &types.ModelArtifact{
		ID:        "model-42",
		Kind:      types.ModelKindInterval,
		CreatedAt: time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC),
		Ridge: &types.RidgeModel{
			Version:         1,
			TrainedAt:       time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC),
			IntervalMinutes: 15,
			L2:              2.0,
			FeatureNames:    []string{"lag_1"},
			Mean:            []float64{500},
			Std:             []float64{120},
			Weights:         []float64{0.9},
			Bias:            480,
			Metrics:         types.Metrics{MAE: 38.2, RMSE: 55.1, R2: 0.87},
		},
	}
}
