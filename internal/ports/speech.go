// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete speech hardware or storage.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation
//   - Return domain types, never audio buffers or file handles
//   - Error returns use domain error types (ErrNotFound, ErrUnavailable, etc.)
//   - Keep interfaces small and focused (Interface Segregation Principle)
package ports

import (
	"context"
)

// TriggerSource signals that the user wants to speak.
// The appliance uses a push button; development builds use the keyboard.
type TriggerSource interface {
	// WaitForTrigger blocks until the user signals intent to speak.
	// A returned error other than ctx.Err() means the trigger hardware is gone
	// and the session loop cannot continue.
	WaitForTrigger(ctx context.Context) error
}

// Transcriber converts one spoken utterance into text.
type Transcriber interface {
	// Transcribe listens for a single utterance and returns its best-effort text.
	// Hints are phrases the caller expects, used by engines that support biasing.
	// An empty string with a nil error means silence or nothing recognized.
	Transcribe(ctx context.Context, hints []string) (string, error)
}

// Speaker reads text aloud.
type Speaker interface {
	// Speak synthesizes text and blocks until playback completes.
	Speak(ctx context.Context, text string) error
}
