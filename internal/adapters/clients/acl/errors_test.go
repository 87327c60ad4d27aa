package acl

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebox/internal/adapters/clients"
	"github.com/jsamuelsen/quotebox/internal/domain"
)

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestMapHTTPError_Status(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
		text   string
	}{
		{"bad request", http.StatusBadRequest, `{"error":"no file"}`, domain.IsValidation, "no file"},
		{"unsupported media", http.StatusUnsupportedMediaType, "", domain.IsValidation, "transcribe failed with status 415"},
		{"unprocessable", http.StatusUnprocessableEntity, `{"message":"too short"}`, domain.IsValidation, "too short"},
		{"rate limited", http.StatusTooManyRequests, "", domain.IsUnavailable, "server busy"},
		{"not found", http.StatusNotFound, "", domain.IsUnavailable, "status 404"},
		{"server error", http.StatusInternalServerError, "boom", domain.IsUnavailable, "boom"},
		{"bad gateway", http.StatusBadGateway, "", domain.IsUnavailable, "status 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(response(tt.status, tt.body), nil, WhisperServiceName, "transcribe")

			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error type: %v", err)
			assert.Contains(t, err.Error(), tt.text)
		})
	}
}

func TestMapHTTPError_SuccessReturnsNil(t *testing.T) {
	assert.NoError(t, MapHTTPError(response(http.StatusOK, ""), nil, WhisperServiceName, "transcribe"))
}

func TestMapHTTPError_NilResponse(t *testing.T) {
	err := MapHTTPError(nil, nil, WhisperServiceName, "transcribe")

	assert.True(t, domain.IsUnavailable(err))
	assert.Contains(t, err.Error(), "no response received")
}

func TestMapHTTPError_ClientErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		text string
	}{
		{"circuit open", clients.ErrCircuitOpen, "circuit breaker open during transcribe"},
		{"retries exhausted", errors.Join(clients.ErrMaxRetriesExceeded, errors.New("refused")), "max retries exceeded during transcribe"},
		{"other", errors.New("dial tcp: refused"), "transcribe failed: dial tcp: refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(nil, tt.err, WhisperServiceName, "transcribe")

			assert.True(t, domain.IsUnavailable(err))
			assert.Contains(t, err.Error(), tt.text)
		})
	}
}

func TestParseErrorResponse(t *testing.T) {
	tests := []struct {
		name string
		body io.Reader
		want *ErrorResponse
	}{
		{"error field", strings.NewReader(`{"error":"bad wav"}`), &ErrorResponse{Error: "bad wav"}},
		{"message field", strings.NewReader(`{"message":"nope"}`), &ErrorResponse{Message: "nope"}},
		{"plain text", strings.NewReader("  model not loaded \n"), &ErrorResponse{Message: "model not loaded"}},
		{"empty json", strings.NewReader(`{}`), nil},
		{"broken json", strings.NewReader(`{"error":`), nil},
		{"empty", strings.NewReader(""), nil},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseErrorResponse(tt.body))
		})
	}
}
