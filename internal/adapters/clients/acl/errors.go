package acl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jsamuelsen/quotebox/internal/adapters/clients"
	"github.com/jsamuelsen/quotebox/internal/domain"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 4 << 10

// ErrorResponse is the error body of a whisper.cpp server.
// Older builds answer {"error": "..."}; some proxies answer {"message": "..."}.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Text returns whichever message field is set.
func (e *ErrorResponse) Text() string {
	if e.Error != "" {
		return e.Error
	}

	return e.Message
}

// ParseErrorResponse reads an error body.
// JSON bodies are decoded; anything else is used verbatim as the message.
// Returns nil if the body is empty.
func ParseErrorResponse(body io.Reader) *ErrorResponse {
	if body == nil {
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return nil
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Text() != "" {
		return &errResp
	}

	if strings.HasPrefix(text, "{") {
		return nil
	}

	return &ErrorResponse{Message: text}
}

// MapHTTPError turns a failed exchange with the server into a domain error:
// a rejected upload is a validation error on "audio", everything else means
// the server cannot transcribe right now. Pass clientErr when no response
// arrived. A 2xx response maps to nil.
func MapHTTPError(resp *http.Response, clientErr error, serviceName, operation string) error {
	switch {
	case clientErr != nil:
		return domain.NewUnavailableError(serviceName, clientReason(clientErr, operation))
	case resp == nil:
		return domain.NewUnavailableError(serviceName, "no response received")
	case resp.StatusCode/100 == 2:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewUnavailableError(serviceName, "server busy")
	}

	message := fmt.Sprintf("%s failed with status %d", operation, resp.StatusCode)
	if parsed := ParseErrorResponse(resp.Body); parsed != nil {
		message = parsed.Text()
	}

	if rejectedUpload(resp.StatusCode) {
		return domain.NewValidationError("audio", message)
	}

	return domain.NewUnavailableError(serviceName, message)
}

// rejectedUpload reports statuses whisper.cpp uses for audio it cannot decode.
func rejectedUpload(status int) bool {
	return status == http.StatusBadRequest ||
		status == http.StatusUnsupportedMediaType ||
		status == http.StatusUnprocessableEntity
}

func clientReason(err error, operation string) string {
	if errors.Is(err, clients.ErrCircuitOpen) {
		return "circuit breaker open during " + operation
	}
	if errors.Is(err, clients.ErrMaxRetriesExceeded) {
		return "max retries exceeded during " + operation
	}

	return fmt.Sprintf("%s failed: %v", operation, err)
}
