// Package whisper runs speech recognition in-process with the whisper.cpp
// Go bindings. It links against libwhisper, so it is kept apart from the
// rest of the speech adapters.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	goaudio "github.com/go-audio/audio"

	"github.com/jsamuelsen/quotebox/internal/adapters/speech"
	"github.com/jsamuelsen/quotebox/internal/domain"
	"github.com/jsamuelsen/quotebox/internal/platform/logging"
)

// Transcriber implements ports.Transcriber with a local whisper model.
type Transcriber struct {
	model    whisper.Model
	recorder speech.Recorder
	language string
}

// Open loads the model at path. Close releases it.
func Open(path string, recorder speech.Recorder, language string) (*Transcriber, error) {
	model, err := whisper.New(path)
	if err != nil {
		return nil, domain.NewUnavailableError("whisper", fmt.Sprintf("loading %s: %v", path, err))
	}

	return &Transcriber{model: model, recorder: recorder, language: language}, nil
}

// Close releases the model.
func (t *Transcriber) Close() error {
	return t.model.Close()
}

// Transcribe implements ports.Transcriber. The bindings take no prompt, so
// hints are only logged.
func (t *Transcriber) Transcribe(ctx context.Context, hints []string) (string, error) {
	buf, err := t.recorder.Record(ctx)
	if err != nil {
		return "", err
	}

	if len(buf.Data) == 0 {
		return "", nil
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return "", domain.NewUnavailableError("whisper", err.Error())
	}

	if t.language != "" && t.model.IsMultilingual() {
		if err := wctx.SetLanguage(t.language); err != nil {
			logging.FromContext(ctx).WarnContext(ctx, "unsupported language, detecting instead",
				slog.String("language", t.language),
				slog.Any("error", err),
			)
		}
	}

	if err := wctx.Process(normalize(buf), nil); err != nil {
		return "", fmt.Errorf("running model: %w", err)
	}

	segments, err := collect(wctx)
	if err != nil {
		return "", err
	}

	text := speech.JoinSegments(segments)

	logging.FromContext(ctx).DebugContext(ctx, "recognized",
		slog.String("text", text),
		slog.Int("hints", len(hints)),
	)

	return text, nil
}

// Name implements ports.HealthChecker.
func (t *Transcriber) Name() string { return "whisper" }

// Check verifies a decoding context can be created.
func (t *Transcriber) Check(_ context.Context) error {
	if _, err := t.model.NewContext(); err != nil {
		return domain.NewUnavailableError("whisper", err.Error())
	}

	return nil
}

func collect(wctx whisper.Context) ([]string, error) {
	var texts []string

	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			return texts, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading segments: %w", err)
		}

		texts = append(texts, segment.Text)
	}
}

// normalize scales 16-bit PCM into the [-1, 1) range whisper expects.
func normalize(buf *goaudio.IntBuffer) []float32 {
	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float32(v) / 32768
	}

	return out
}
