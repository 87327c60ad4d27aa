package acl

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"

	"github.com/jsamuelsen/quotebox/internal/adapters/clients"
	"github.com/jsamuelsen/quotebox/internal/domain"
	"github.com/jsamuelsen/quotebox/internal/platform/logging"
)

const (
	// WhisperServiceName names the server in errors and health checks.
	WhisperServiceName = "whisper-server"

	inferencePath = "/inference"
	responseJSON  = "verbose_json"
)

// WhisperClientConfig configures a WhisperClient.
type WhisperClientConfig struct {
	// Client must have its BaseURL pointing at the server root.
	Client *clients.Client

	// Logger defaults to slog.Default() if nil.
	Logger *slog.Logger
}

// WhisperClient talks to the /inference endpoint of a whisper.cpp server.
type WhisperClient struct {
	BaseAdapter
	logger *slog.Logger
}

// NewWhisperClient creates a client. Panics if Client is nil.
func NewWhisperClient(cfg WhisperClientConfig) *WhisperClient {
	if cfg.Client == nil {
		panic("WhisperClient: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &WhisperClient{
		BaseAdapter: NewBaseAdapter(cfg.Client, WhisperServiceName),
		logger:      logger,
	}
}

// InferenceRequest is one utterance to transcribe.
type InferenceRequest struct {
	// WAV is a complete 16 kHz mono WAV file.
	WAV []byte

	// Language is a base language code such as "en". Empty lets the server detect it.
	Language string

	// Prompt biases decoding towards expected phrases.
	Prompt string
}

// inferenceResponse is the verbose_json body. Servers that ignore
// response_format answer with only "text".
type inferenceResponse struct {
	Text     string             `json:"text"`
	Language string             `json:"language"`
	Segments []inferenceSegment `json:"segments"`
}

type inferenceSegment struct {
	Text string `json:"text"`
}

// Transcribe uploads one utterance and returns its transcript segments in order.
func (c *WhisperClient) Transcribe(ctx context.Context, in InferenceRequest) ([]string, error) {
	payload, contentType, err := encodeInference(in)
	if err != nil {
		return nil, fmt.Errorf("encoding inference request: %w", err)
	}

	c.logger.Log(ctx, logging.LevelTrace, "starting request",
		slog.String("path", inferencePath),
		slog.Int("bytes", len(payload)),
	)

	body, err := c.PostBytes(ctx, inferencePath, contentType, payload, "transcribe")
	if err != nil {
		return nil, err
	}

	resp, err := DecodeResponse[inferenceResponse](body)
	if err != nil {
		return nil, domain.NewUnavailableError(c.ServiceName(), err.Error())
	}

	segments := translateInference(resp)

	c.logger.DebugContext(ctx, "transcribed",
		slog.Int("segments", len(segments)),
		slog.String("language", resp.Language),
	)

	return segments, nil
}

// translateInference returns non-blank segment texts, falling back to the
// top-level text when the server sent no segments.
func translateInference(resp *inferenceResponse) []string {
	keep := func(s *inferenceSegment) (string, bool) {
		text := strings.TrimSpace(s.Text)
		return text, text != ""
	}

	if len(resp.Segments) > 0 {
		return TranslateSlice(resp.Segments, keep)
	}

	return TranslateSlice([]inferenceSegment{{Text: resp.Text}}, keep)
}

func encodeInference(in InferenceRequest) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return nil, "", err
	}

	if _, err := part.Write(in.WAV); err != nil {
		return nil, "", err
	}

	fields := []struct{ name, value string }{
		{"response_format", responseJSON},
		{"temperature", "0.0"},
		{"language", in.Language},
		{"prompt", in.Prompt},
	}

	for _, f := range fields {
		if f.value == "" {
			continue
		}

		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

// Name implements ports.HealthChecker.
func (c *WhisperClient) Name() string {
	return WhisperServiceName
}

// Check implements ports.HealthChecker. The server's root page answers
// any GET once the model has loaded.
func (c *WhisperClient) Check(ctx context.Context) error {
	body, err := c.Get(ctx, "/", "health check")
	if err != nil {
		return err
	}

	return body.Close()
}
