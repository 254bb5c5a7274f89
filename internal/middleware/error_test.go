package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

// Property: every error response carries code, message and an RFC3339 timestamp
func TestProperty_ErrorsHaveConsistentStructure(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("all error responses have consistent structure", prop.ForAll(
		func(message string, statusCode int) bool {
			w := httptest.NewRecorder()
			RespondWithError(w, statusCode, message)

			if w.Code != statusCode || w.Header().Get("Content-Type") != "application/json" {
				return false
			}

			var response ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				return false
			}
			if response.Error.Code != http.StatusText(statusCode) || response.Error.Message != message {
				return false
			}
			_, err := time.Parse(time.RFC3339, response.Error.Timestamp)
			return err == nil
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 }),
		gen.OneConstOf(
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
		),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property: each domain error kind maps to one status, however deeply wrapped
func TestProperty_DomainKindsMapToStatus(t *testing.T) {
	kinds := map[int]error{
		0: domain.ErrNotFound,
		1: domain.ErrValidation,
		2: domain.ErrPermissionDenied,
		3: domain.ErrUnauthenticated,
		4: domain.ErrConflict,
	}
	want := map[int]int{
		0: http.StatusNotFound,
		1: http.StatusBadRequest,
		2: http.StatusForbidden,
		3: http.StatusUnauthorized,
		4: http.StatusConflict,
	}

	properties := gopter.NewProperties(nil)

	properties.Property("kind decides the status code", prop.ForAll(
		func(kind int, depth int, message string) bool {
			var err error = domain.NewError(kinds[kind], message)
			for i := 0; i < depth; i++ {
				err = fmt.Errorf("layer %d: %w", i, err)
			}
			return StatusForError(err) == want[kind]
		},
		gen.IntRange(0, 4),
		gen.IntRange(0, 3),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRespondWithAppError(t *testing.T) {
	t.Run("domain error keeps its message", func(t *testing.T) {
		w := httptest.NewRecorder()
		RespondWithAppError(w, zap.NewNop(), fmt.Errorf("checkout: %w", domain.ErrInsufficientStock))

		assert.Equal(t, http.StatusConflict, w.Code)
		response := decodeError(t, w)
		assert.Equal(t, "Conflict", response.Error.Code)
		assert.Equal(t, "insufficient stock", response.Error.Message)
	})

	t.Run("explicit code overrides status text", func(t *testing.T) {
		w := httptest.NewRecorder()
		RespondWithAppError(w, zap.NewNop(), domain.ErrInvalidImage)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_image", decodeError(t, w).Error.Code)
	})

	t.Run("unknown error is hidden and logged", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		w := httptest.NewRecorder()
		RespondWithAppError(w, zap.New(core), errors.New("pq: connection reset by peer"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		response := decodeError(t, w)
		assert.Equal(t, "internal server error", response.Error.Message)
		assert.NotContains(t, w.Body.String(), "connection reset")
		assert.Equal(t, 1, logs.Len())
	})
}

func TestRespondWithValidationErrors(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithValidationErrors(w, []ValidationError{{Field: "Price", Message: "This field is required"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	response := decodeError(t, w)
	assert.Equal(t, "validation failed", response.Error.Message)
	require.Contains(t, response.Error.Details, "validation_errors")
}

func TestErrorHandlingMiddleware_RecoversPanics(t *testing.T) {
	handler := ErrorHandlingMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decodeError(t, w).Error.Message)
}

func TestRespondWithMessage(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithMessage(w, http.StatusCreated, "product created", map[string]string{"id": "1"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"message":"product created","data":{"id":"1"}}`, w.Body.String())
}
