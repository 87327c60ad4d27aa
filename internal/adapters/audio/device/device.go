// Package device captures utterances from the default microphone and plays
// synthesized speech through the default output, both via PortAudio.
package device

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/gordonklaus/portaudio"

	"github.com/jsamuelsen/quotebox/internal/adapters/audio"
	"github.com/jsamuelsen/quotebox/internal/domain"
	"github.com/jsamuelsen/quotebox/internal/platform/logging"
)

// DefaultFrameSize is the number of samples read per PortAudio callback.
const DefaultFrameSize = 1024

// Initialize starts PortAudio. Calls nest; each must be paired with a call to
// the returned terminate function.
func Initialize() (func() error, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, domain.NewUnavailableError("audio", err.Error())
	}

	return portaudio.Terminate, nil
}

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	SampleRate   int
	FrameSize    int
	QuietPeriod  time.Duration
	MaxUtterance time.Duration
}

// Recorder captures a single utterance from the default input device.
type Recorder struct {
	cfg RecorderConfig
}

// NewRecorder creates a recorder. Zero FrameSize means DefaultFrameSize.
func NewRecorder(cfg RecorderConfig) *Recorder {
	if cfg.FrameSize == 0 {
		cfg.FrameSize = DefaultFrameSize
	}

	return &Recorder{cfg: cfg}
}

// Record opens the microphone and blocks until an utterance ends, the
// maximum length is reached, or ctx is cancelled.
func (r *Recorder) Record(ctx context.Context) (*goaudio.IntBuffer, error) {
	in := make([]int16, r.cfg.FrameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(r.cfg.SampleRate), len(in), in)
	if err != nil {
		return nil, domain.NewUnavailableError("microphone", err.Error())
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, domain.NewUnavailableError("microphone", err.Error())
	}
	defer func() { _ = stream.Stop() }()

	seg := audio.NewSegmenter(audio.SegmenterConfig{
		SampleRate:   r.cfg.SampleRate,
		FrameSize:    r.cfg.FrameSize,
		QuietPeriod:  r.cfg.QuietPeriod,
		MaxUtterance: r.cfg.MaxUtterance,
	})

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("reading microphone: %w", err)
		}

		if seg.Push(in) {
			break
		}
	}

	buf := seg.Buffer()

	logging.FromContext(ctx).Log(ctx, logging.LevelTrace, "utterance captured",
		slog.Bool("heard", seg.Heard()),
		slog.Int("samples", len(buf.Data)),
	)

	return buf, nil
}

// Check opens and closes the input device.
func (r *Recorder) Check(_ context.Context) error {
	in := make([]int16, r.cfg.FrameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(r.cfg.SampleRate), len(in), in)
	if err != nil {
		return domain.NewUnavailableError("microphone", err.Error())
	}

	return stream.Close()
}

// Name implements ports.HealthChecker.
func (r *Recorder) Name() string { return "microphone" }

// Player plays PCM buffers on the default output device.
type Player struct {
	frameSize int
}

// NewPlayer creates a player.
func NewPlayer() *Player {
	return &Player{frameSize: DefaultFrameSize}
}

// Play blocks until buf has been played or ctx is cancelled.
func (p *Player) Play(ctx context.Context, buf *goaudio.IntBuffer) error {
	channels := buf.Format.NumChannels
	if channels == 0 {
		channels = 1
	}

	samples := audio.ToInt16(buf)
	out := make([]int16, p.frameSize*channels)

	stream, err := portaudio.OpenDefaultStream(0, channels, float64(buf.Format.SampleRate), p.frameSize, out)
	if err != nil {
		return domain.NewUnavailableError("speaker", err.Error())
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return domain.NewUnavailableError("speaker", err.Error())
	}
	defer func() { _ = stream.Stop() }()

	for offset := 0; offset < len(samples); offset += len(out) {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := copy(out, samples[offset:])
		clear(out[n:])

		if err := stream.Write(); err != nil {
			return fmt.Errorf("writing to speaker: %w", err)
		}
	}

	return nil
}
