package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/xalekter/charts-edit/internal/errors"
)

type pointRequest struct {
	X         float64 `json:"x" validate:"finite"`
	Y         float64 `json:"y" validate:"finite"`
	Direction int     `json:"direction" validate:"oneof=-1 1"`
	Color     string  `json:"color" validate:"omitempty,hexcolor"`
}

func TestValidator_DecodeJSON(t *testing.T) {
	v := NewValidator(nil)

	tests := []struct {
		name      string
		body      string
		wantCode  string
		wantField string
	}{
		{"valid", `{"x":1,"y":2,"direction":1,"color":"#d62728"}`, "", ""},
		{"empty body", ``, apierrors.CodeInvalidRequest, ""},
		{"malformed", `{"x":`, apierrors.CodeInvalidRequest, ""},
		{"bad direction", `{"x":1,"y":2,"direction":3}`, apierrors.CodeValidationFailed, "direction"},
		{"bad color", `{"direction":-1,"color":"red"}`, apierrors.CodeValidationFailed, "color"},
		{"infinite", `{"x":1e999,"direction":1}`, apierrors.CodeInvalidRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst pointRequest
			err := v.DecodeJSON(req, &dst)

			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, 1.0, dst.X)
				return
			}
			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantCode, apiErr.ErrorCode)
			if tt.wantField != "" {
				details, ok := apiErr.Details.(apierrors.ValidationErrors)
				require.True(t, ok)
				require.Len(t, details.Errors, 1)
				assert.Equal(t, tt.wantField, details.Errors[0].Field)
			}
		})
	}
}

func TestValidator_DecodeJSONPassesThroughBodyLimit(t *testing.T) {
	v := NewValidator(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"x":1,"y":2,"direction":1}`))
	req.Body = http.MaxBytesReader(rec, req.Body, 4)

	err := v.DecodeJSON(req, &pointRequest{})
	var maxBytes *http.MaxBytesError
	assert.ErrorAs(t, err, &maxBytes)
}

func TestQueryParamValidator(t *testing.T) {
	q := NewQueryParamValidator(apierrors.NewErrorHandler(nil, false))

	rec := httptest.NewRecorder()
	n, ok := q.ValidateInt(rec, httptest.NewRequest(http.MethodGet, "/?limit=5", nil), "limit", 1, 100, 20)
	assert.True(t, ok)
	assert.Equal(t, 5, n)

	n, ok = q.ValidateInt(rec, httptest.NewRequest(http.MethodGet, "/", nil), "limit", 1, 100, 20)
	assert.True(t, ok)
	assert.Equal(t, 20, n)

	rec = httptest.NewRecorder()
	_, ok = q.ValidateInt(rec, httptest.NewRequest(http.MethodGet, "/?limit=500", nil), "limit", 1, 100, 20)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	_, ok = q.ValidateEnum(rec, httptest.NewRequest(http.MethodGet, "/?format=pdf", nil), "format", []string{"tsv", "xlsx"}, "tsv")
	assert.False(t, ok)
	assert.Contains(t, rec.Body.String(), "tsv, xlsx")
}
