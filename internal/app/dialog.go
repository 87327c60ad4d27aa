package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jsamuelsen/quotebox/internal/domain"
	"github.com/jsamuelsen/quotebox/internal/platform/logging"
	"github.com/jsamuelsen/quotebox/internal/platform/telemetry"
)

// verifyPrompt repeats a dictated answer back for confirmation.
const verifyPrompt = "I heard %s. Is that correct? You can say yes, no, or " + PhraseAbort + "."

// affirmative is the only reply that confirms an answer.
const affirmative = "yes"

// DialogConfig configures a confirmation Dialog.
type DialogConfig struct {
	// MaxRounds bounds how many times the question is asked.
	// Zero keeps asking until the user confirms or aborts.
	MaxRounds int
}

// Dialog asks a question, repeats the answer back and waits for yes, no
// or the abort phrase.
//
// States: asking -> verifying -> confirmed | aborted | asking.
// It never returns an unconfirmed answer.
type Dialog struct {
	voice     *Voice
	maxRounds int
	metrics   *telemetry.Metrics
}

// NewDialog creates a confirmation dialog speaking through voice.
func NewDialog(voice *Voice, cfg DialogConfig, metrics *telemetry.Metrics) *Dialog {
	return &Dialog{
		voice:     voice,
		maxRounds: max(cfg.MaxRounds, 0),
		metrics:   metrics,
	}
}

// Confirm runs the dialog for question and returns the confirmed answer.
//
// Returns domain.ErrAborted as soon as a verification reply contains the
// abort phrase, domain.ErrDialogExhausted when MaxRounds is exceeded, or
// ctx.Err() if the context ends between steps.
func (d *Dialog) Confirm(ctx context.Context, question string) (string, error) {
	logger := logging.FromContext(ctx).With(slog.String("question", question))

	for round := 1; ; round++ {
		if d.maxRounds > 0 && round > d.maxRounds {
			d.metrics.DialogFinished(round - 1)
			logger.InfoContext(ctx, "giving up on question", slog.Int("rounds", round-1))

			return "", domain.ErrDialogExhausted
		}

		if err := ctx.Err(); err != nil {
			return "", err
		}

		answer := d.voice.Listen(ctx, question)

		if err := ctx.Err(); err != nil {
			return "", err
		}

		reply := d.voice.Listen(ctx, fmt.Sprintf(verifyPrompt, answer))

		if strings.Contains(reply, PhraseAbort) {
			d.metrics.DialogFinished(round)
			logger.DebugContext(ctx, "received abort", slog.Int("round", round))

			return "", domain.ErrAborted
		}

		if isAffirmative(reply) {
			d.metrics.DialogFinished(round)
			logger.DebugContext(ctx, "verified answer", slog.String("answer", answer), slog.Int("round", round))

			return answer, nil
		}

		logger.DebugContext(ctx, "answer refuted, asking again",
			slog.String("answer", answer),
			slog.String("reply", reply),
		)
	}
}

// isAffirmative reports whether reply is exactly "yes", ignoring the
// punctuation recognizers like to append.
func isAffirmative(reply string) bool {
	return strings.Trim(reply, " \t.,!?") == affirmative
}
