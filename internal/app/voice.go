// Package app contains the application layer: the interaction protocol that
// turns button presses and utterances into quote store operations.
//
// Application Layer Responsibilities:
//   - Orchestrate use cases (random quote, identify, add, forget)
//   - Coordinate between the domain store and speech/storage ports
//   - Handle cross-cutting concerns (logging, spans, metrics)
//
// What does NOT belong here:
//   - Audio capture, synthesis, GPIO (that's adapters)
//   - File formats (that's the storage adapter)
//   - Quote invariants (that's the domain layer)
package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jsamuelsen/quotebox/internal/platform/logging"
	"github.com/jsamuelsen/quotebox/internal/platform/telemetry"
	"github.com/jsamuelsen/quotebox/internal/ports"
)

// Voice pairs a Speaker with a Transcriber.
// Speech failures never escape: a failed transcription is an empty utterance
// and a failed playback is logged, so no single command can stop the loop.
type Voice struct {
	speaker     ports.Speaker
	transcriber ports.Transcriber
	hints       []string
	metrics     *telemetry.Metrics
}

// NewVoice creates a Voice that biases recognition towards Hints().
func NewVoice(speaker ports.Speaker, transcriber ports.Transcriber, metrics *telemetry.Metrics) *Voice {
	if speaker == nil {
		panic("app: speaker is required")
	}

	if transcriber == nil {
		panic("app: transcriber is required")
	}

	return &Voice{
		speaker:     speaker,
		transcriber: transcriber,
		hints:       Hints(),
		metrics:     metrics,
	}
}

// Say speaks message and blocks until playback completes.
// The error is returned for callers that must know the user actually heard it.
func (v *Voice) Say(ctx context.Context, message string) error {
	logger := logging.FromContext(ctx)
	logger.DebugContext(ctx, "saying", slog.String("message", message))

	if err := v.speaker.Speak(ctx, message); err != nil {
		logger.WarnContext(ctx, "speaking failed", slog.String("message", message), slog.Any("error", err))
		return err
	}

	return nil
}

// Listen speaks prompt, if any, then transcribes one utterance.
// The result is trimmed and lower-cased; failures and silence yield "".
func (v *Voice) Listen(ctx context.Context, prompt string) string {
	logger := logging.FromContext(ctx)
	logger.DebugContext(ctx, "listening", slog.String("prompt", prompt))

	if prompt != "" {
		_ = v.Say(ctx, prompt) // listen anyway; Say already logged
	}

	heard, err := v.transcriber.Transcribe(ctx, v.hints)
	if err != nil {
		if ctx.Err() == nil {
			v.metrics.RecognitionFailed()
			logger.WarnContext(ctx, "transcription failed", slog.Any("error", err))
		}
		heard = ""
	}

	heard = strings.ToLower(strings.TrimSpace(heard))
	logger.DebugContext(ctx, "heard", slog.String("utterance", heard))

	return heard
}
