package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/quotebox/internal/domain"
	"github.com/jsamuelsen/quotebox/internal/platform/logging"
)

// Dictation commits user-dictated data in four steps:
//
//	dictate     run the confirmation dialogs; nothing is stored yet
//	check       validate the confirmed fields against domain rules
//	commit      mutate the store, only after a successful check
//	acknowledge tell the user what was stored
//
// A failure at any step skips the rest, so an aborted or invalid dictation
// never reaches the store.

// Step names a dictation step.
type Step string

const (
	StepDictate     Step = "dictate"
	StepCheck       Step = "check"
	StepCommit      Step = "commit"
	StepAcknowledge Step = "acknowledge"
)

// StepError records which step of a dictation failed.
type StepError struct {
	Step  Step
	Cause error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Cause)
}

func (e *StepError) Unwrap() error {
	return e.Cause
}

// FailedStep returns the step at which err occurred, if it came from Execute.
func FailedStep(err error) (Step, bool) {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step, true
	}

	return "", false
}

// Dictation describes one data-entry command. D is the dictated draft and
// R is what the commit produced.
type Dictation[D, R any] struct {
	// Name identifies the command in logs.
	Name string

	Dictate     func(ctx context.Context) (D, error)
	Check       func(ctx context.Context, draft D) error
	Commit      func(ctx context.Context, draft D) (R, error)
	Acknowledge func(ctx context.Context, result R) error
}

// Executor runs dictations with step logging.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates an executor. A nil logger means slog.Default().
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger}
}

// Execute runs d. Dictate and Commit are required; Check and Acknowledge
// may be nil. The committed result is returned even if Acknowledge fails.
func Execute[D, R any](ctx context.Context, exec *Executor, d Dictation[D, R]) (R, error) {
	var zero R

	if d.Dictate == nil || d.Commit == nil {
		return zero, domain.NewValidationError("dictation", "dictate and commit are required")
	}

	logger := logging.FromContextOr(ctx, exec.logger).With(slog.String("dictation", d.Name))

	start := time.Now()

	draft, err := d.Dictate(ctx)
	if err != nil {
		return zero, fail(ctx, logger, StepDictate, err)
	}

	if d.Check != nil {
		if err := d.Check(ctx, draft); err != nil {
			return zero, fail(ctx, logger, StepCheck, err)
		}
	}

	result, err := d.Commit(ctx, draft)
	if err != nil {
		return zero, fail(ctx, logger, StepCommit, err)
	}

	logger.DebugContext(ctx, "dictation committed")

	if d.Acknowledge != nil {
		if err := d.Acknowledge(ctx, result); err != nil {
			return result, fail(ctx, logger, StepAcknowledge, err)
		}
	}

	logger.InfoContext(ctx, "dictation complete", slog.Duration("duration", time.Since(start)))

	return result, nil
}

func fail(ctx context.Context, logger *slog.Logger, step Step, err error) error {
	logger.Log(ctx, failureLevel(err), "dictation stopped",
		slog.String("step", string(step)),
		slog.Any("error", err),
	)

	return &StepError{Step: step, Cause: err}
}

// failureLevel keeps user-driven outcomes (abort, bad dictation, shutdown)
// out of the error log.
func failureLevel(err error) slog.Level {
	switch {
	case domain.IsAborted(err),
		errors.Is(err, domain.ErrDialogExhausted),
		domain.IsValidation(err),
		errors.Is(err, context.Canceled):
		return slog.LevelInfo
	default:
		return slog.LevelError
	}
}
