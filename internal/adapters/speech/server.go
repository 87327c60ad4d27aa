package speech

import (
	"context"
	"fmt"
	"log/slog"

	goaudio "github.com/go-audio/audio"
	"github.com/spf13/afero"

	"github.com/jsamuelsen/quotebox/internal/adapters/audio"
	"github.com/jsamuelsen/quotebox/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotebox/internal/platform/logging"
)

// Inferencer sends one encoded utterance to a recognition server.
type Inferencer interface {
	Transcribe(ctx context.Context, in acl.InferenceRequest) ([]string, error)
}

// ServerTranscriber records locally and transcribes on a whisper.cpp server.
type ServerTranscriber struct {
	recorder Recorder
	server   Inferencer
	language string
}

// NewServerTranscriber creates a transcriber. language is a base code such
// as "en"; empty lets the server detect it.
func NewServerTranscriber(recorder Recorder, server Inferencer, language string) *ServerTranscriber {
	return &ServerTranscriber{recorder: recorder, server: server, language: language}
}

// Transcribe implements ports.Transcriber.
func (t *ServerTranscriber) Transcribe(ctx context.Context, hints []string) (string, error) {
	buf, err := t.recorder.Record(ctx)
	if err != nil {
		return "", err
	}

	if len(buf.Data) == 0 {
		logging.FromContext(ctx).DebugContext(ctx, "nothing heard")
		return "", nil
	}

	wav, err := encodeInMemory(buf)
	if err != nil {
		return "", err
	}

	segments, err := t.server.Transcribe(ctx, acl.InferenceRequest{
		WAV:      wav,
		Language: t.language,
		Prompt:   PromptFromHints(hints),
	})
	if err != nil {
		return "", err
	}

	text := JoinSegments(segments)

	logging.FromContext(ctx).DebugContext(ctx, "recognized",
		slog.String("text", text),
		slog.Int("segments", len(segments)),
	)

	return text, nil
}

// encodeInMemory renders buf as a WAV file without touching the disk.
// The WAV encoder seeks back to patch sizes, so it needs a file, not a buffer.
func encodeInMemory(buf *goaudio.IntBuffer) ([]byte, error) {
	fs := afero.NewMemMapFs()

	f, err := fs.Create("utterance.wav")
	if err != nil {
		return nil, fmt.Errorf("creating in-memory wav: %w", err)
	}

	if err := audio.EncodeWAV(f, buf); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing in-memory wav: %w", err)
	}

	return afero.ReadFile(fs, "utterance.wav")
}
