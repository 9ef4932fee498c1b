package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kynex/internal/types"
)

func newRequest(t *testing.T, method, target string, body string) *http.Request {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, target, reader)
	return req.WithContext(types.WithRequestID(context.Background(), "req-123"))
}

func TestJSONWritesEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, newRequest(t, http.MethodGet, "/v1/x", ""), http.StatusOK, APIResponse{Data: map[string]int{"n": 1}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"n":1}}`, w.Body.String())
}

func TestErrorWithAppError(t *testing.T) {
	w := httptest.NewRecorder()
	appErr := types.NewAppErrorWithDetails(types.ErrCodeTrainingInsufficientData,
		"not enough training data", nil, map[string]any{"sample_count": 50})

	Error(w, newRequest(t, http.MethodPost, "/v1/admin/train", ""), appErr)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "training_insufficient_data", resp.Error.Code)
	assert.Equal(t, "req-123", resp.Error.RequestID)
	assert.EqualValues(t, 50, resp.Error.Details["sample_count"])
}

func TestErrorWithWrappedAppError(t *testing.T) {
	w := httptest.NewRecorder()
	appErr := types.NewAppError(types.ErrCodeNotFoundModel, "no active model", nil)
	wrapped := fmt.Errorf("loading model: %w", appErr)

	Error(w, newRequest(t, http.MethodGet, "/v1/models/active", ""), wrapped)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestErrorGenericHidesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, newRequest(t, http.MethodGet, "/v1/x", ""), errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	assert.Contains(t, w.Body.String(), "internal_unexpected_error")
}

func TestDecodeJSONValid(t *testing.T) {
	var dst struct {
		DaysBack int `json:"days_back"`
	}
	w := httptest.NewRecorder()
	req := newRequest(t, http.MethodPost, "/v1/admin/train", `{"days_back": 7}`)

	require.NoError(t, DecodeJSON(w, req, &dst))
	assert.Equal(t, 7, dst.DaysBack)
}

func TestDecodeJSONRejections(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"malformed", `{"days_back":`},
		{"unknown field", `{"bogus": 1}`},
		{"wrong type", `{"days_back": "seven"}`},
		{"multiple values", `{"days_back": 1}{"days_back": 2}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var dst struct {
				DaysBack int `json:"days_back"`
			}
			w := httptest.NewRecorder()
			req := newRequest(t, http.MethodPost, "/v1/admin/train", tc.body)

			err := DecodeJSON(w, req, &dst)
			var appErr *types.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, types.ErrCodeValidationInvalidJSON, appErr.Code)
			assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus())
		})
	}
}

func TestDecodeJSONBodyTooLarge(t *testing.T) {
	var dst struct {
		Blob string `json:"blob"`
	}
	huge := `{"blob": "` + strings.Repeat("x", maxRequestBodySize+1) + `"}`
	w := httptest.NewRecorder()
	req := newRequest(t, http.MethodPost, "/v1/admin/train", huge)

	err := DecodeJSON(w, req, &dst)
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeValidationInvalidJSON, appErr.Code)
}
