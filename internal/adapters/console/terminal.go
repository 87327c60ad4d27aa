// Package console lets the appliance run at a desk: Enter stands in for the
// button, typed lines for speech, and printed lines for the voice.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/jsamuelsen/quotebox/internal/domain"
)

// ErrClosed is returned once the input stream has ended cleanly.
var ErrClosed = errors.New("console input closed")

// Terminal owns the input stream. A single reader goroutine feeds lines to
// whichever of the trigger or transcriber is waiting.
type Terminal struct {
	out   io.Writer
	lines chan string
	done  chan struct{}
	once  sync.Once
	in    io.Reader
	err   error // read failure, set before done is closed

	voice  *color.Color
	prompt *color.Color
}

// NewTerminal creates a terminal reading in and writing out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:     in,
		out:    out,
		lines:  make(chan string),
		done:   make(chan struct{}),
		voice:  color.New(color.FgCyan, color.Bold),
		prompt: color.New(color.Faint),
	}
}

func (t *Terminal) start() {
	t.once.Do(func() {
		go func() {
			defer close(t.done)

			scanner := bufio.NewScanner(t.in)
			for scanner.Scan() {
				t.lines <- scanner.Text()
			}
			t.err = scanner.Err()
		}()
	})
}

// ReadLine blocks for the next input line.
func (t *Terminal) ReadLine(ctx context.Context) (string, error) {
	t.start()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-t.done:
		if t.err != nil {
			return "", fmt.Errorf("reading console input: %w", t.err)
		}
		return "", ErrClosed
	case line := <-t.lines:
		return line, nil
	}
}

// WaitForTrigger implements ports.TriggerSource.
func (t *Terminal) WaitForTrigger(ctx context.Context) error {
	_, _ = t.prompt.Fprintln(t.out, "[press enter to talk]")

	_, err := t.ReadLine(ctx)

	return err
}

// Transcribe implements ports.Transcriber. Hints are shown as a reminder.
func (t *Terminal) Transcribe(ctx context.Context, hints []string) (string, error) {
	if len(hints) > 0 {
		_, _ = t.prompt.Fprintf(t.out, "(%s)\n", strings.Join(hints, " | "))
	}

	_, _ = fmt.Fprint(t.out, "> ")

	line, err := t.ReadLine(ctx)
	if errors.Is(err, ErrClosed) {
		return "", domain.NewUnavailableError("console", "input closed")
	}
	if err != nil && ctx.Err() == nil {
		return "", domain.NewUnavailableError("console", err.Error())
	}

	return line, err
}

// Speak implements ports.Speaker.
func (t *Terminal) Speak(_ context.Context, text string) error {
	_, err := t.voice.Fprintln(t.out, text)

	return err
}
