package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestTee_Enabled(t *testing.T) {
	var a, b bytes.Buffer
	h := tee{
		slog.NewJSONHandler(&a, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}

	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, h.Enabled(context.Background(), LevelTrace))
}

func TestTee_HandleRespectsEachLevel(t *testing.T) {
	var terminal, file bytes.Buffer
	logger := slog.New(tee{
		slog.NewJSONHandler(&terminal, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})

	logger.Debug("heard utterance")

	assert.Empty(t, terminal.String())
	assert.Contains(t, file.String(), "heard utterance")
}

func TestTee_OneFailureDoesNotStopTheOther(t *testing.T) {
	var buf bytes.Buffer
	h := tee{
		failingHandler{slog.NewJSONHandler(&bytes.Buffer{}, nil)},
		slog.NewJSONHandler(&buf, nil),
	}

	err := h.Handle(context.Background(), slog.NewRecord(testTime, slog.LevelInfo, "saved quotes", 0))

	assert.EqualError(t, err, "disk full")
	assert.Contains(t, buf.String(), "saved quotes")
}

func TestTee_AttrsAndGroupsReachEveryHandler(t *testing.T) {
	var a, b bytes.Buffer
	logger := slog.New(tee{slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil)})

	logger.With(slog.String("cycle_id", "c1")).WithGroup("quote").Info("added", slog.String("id", "4"))

	for _, out := range []string{a.String(), b.String()} {
		assert.Contains(t, out, `"cycle_id":"c1"`)
		assert.Contains(t, out, `"quote":{"id":"4"}`)
	}
}
