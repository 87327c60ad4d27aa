// Package gpio reads the appliance's push button through the Linux GPIO
// character device.
package gpio

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/jsamuelsen/quotebox/internal/domain"
)

// ErrButtonClosed is returned by WaitForTrigger after Close.
var ErrButtonClosed = errors.New("button closed")

// ButtonConfig identifies the button line.
type ButtonConfig struct {
	Chip     string
	Line     int
	Debounce time.Duration
	Logger   *slog.Logger
}

// Button implements ports.TriggerSource for a momentary switch wired between
// a GPIO line and ground. The line is pulled up, so a press is a falling edge.
type Button struct {
	line    *gpiocdev.Line
	presses chan struct{}
	closed  chan struct{}
	logger  *slog.Logger
}

// OpenButton requests the line and starts watching for presses.
func OpenButton(cfg ButtonConfig) (*Button, error) {
	b := newButton(cfg.Logger)

	line, err := gpiocdev.RequestLine(cfg.Chip, cfg.Line,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithDebounce(cfg.Debounce),
		gpiocdev.WithConsumer("quotebox"),
		gpiocdev.WithEventHandler(b.handle),
	)
	if err != nil {
		return nil, domain.NewUnavailableError("button", err.Error())
	}

	b.line = line

	return b, nil
}

func newButton(logger *slog.Logger) *Button {
	if logger == nil {
		logger = slog.Default()
	}

	return &Button{
		presses: make(chan struct{}, 1),
		closed:  make(chan struct{}),
		logger:  logger,
	}
}

// handle runs on the gpiocdev event goroutine. Presses are coalesced so the
// handler never blocks.
func (b *Button) handle(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventFallingEdge {
		return
	}

	select {
	case b.presses <- struct{}{}:
	default:
	}
}

// WaitForTrigger implements ports.TriggerSource. Presses made while the
// appliance was busy speaking are discarded.
func (b *Button) WaitForTrigger(ctx context.Context) error {
	select {
	case <-b.presses:
		b.logger.DebugContext(ctx, "discarding press made while busy")
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.closed:
		return ErrButtonClosed
	case <-b.presses:
		return nil
	}
}

// Close releases the line.
func (b *Button) Close() error {
	select {
	case <-b.closed:
		return nil
	default:
		close(b.closed)
	}

	if b.line == nil {
		return nil
	}

	return b.line.Close()
}
