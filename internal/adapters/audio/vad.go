package audio

import (
	"math/cmplx"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// DefaultFluxRatio is how sharply spectral flux must rise to count as speech
// onset, and fall to count as quiet.
const DefaultFluxRatio = 1.75

// FluxDetector computes spectral flux between consecutive frames.
type FluxDetector struct {
	window []float64
	prev   []float64
}

// NewFluxDetector creates a detector for frames of frameSize samples.
func NewFluxDetector(frameSize int) *FluxDetector {
	return &FluxDetector{window: window.Hann(frameSize)}
}

// Flux returns the summed positive change in magnitude spectrum since the
// previous frame.
func (d *FluxDetector) Flux(frame []int16) float64 {
	x := make([]float64, len(d.window))
	for i := range x {
		if i < len(frame) {
			x[i] = float64(frame[i]) * d.window[i]
		}
	}

	spectrum := fft.FFTReal(x)
	bins := len(spectrum)/2 + 1
	mags := make([]float64, bins)

	var flux float64
	for i := range bins {
		mags[i] = cmplx.Abs(spectrum[i])

		var prev float64
		if d.prev != nil {
			prev = d.prev[i]
		}

		if diff := mags[i] - prev; diff > 0 {
			flux += diff
		}
	}

	d.prev = mags

	return flux
}

// SegmenterConfig tunes utterance segmentation.
type SegmenterConfig struct {
	SampleRate   int
	FrameSize    int
	QuietPeriod  time.Duration
	MaxUtterance time.Duration
	Ratio        float64
}

// Segmenter turns a stream of fixed-size frames into one utterance.
// Time is measured in frames, not wall clock, so it behaves the same on a
// slow device and in tests.
type Segmenter struct {
	cfg      SegmenterConfig
	frameDur time.Duration
	detector *FluxDetector
	preroll  *RingBuffer

	heard    bool
	quiet    bool
	quietFor time.Duration
	elapsed  time.Duration
	lastFlux float64
	samples  []int
}

// NewSegmenter creates a segmenter. Zero Ratio means DefaultFluxRatio.
func NewSegmenter(cfg SegmenterConfig) *Segmenter {
	if cfg.Ratio == 0 {
		cfg.Ratio = DefaultFluxRatio
	}

	return &Segmenter{
		cfg:      cfg,
		frameDur: time.Duration(cfg.FrameSize) * time.Second / time.Duration(cfg.SampleRate),
		detector: NewFluxDetector(cfg.FrameSize),
		preroll:  NewRingBuffer(cfg.FrameSize * 2),
	}
}

// Push feeds one frame and reports whether the utterance is complete.
// It completes after QuietPeriod of quiet following speech, or once
// MaxUtterance has passed whether or not anything was heard.
func (s *Segmenter) Push(frame []int16) bool {
	s.elapsed += s.frameDur

	if !s.heard {
		s.preroll.Add(frame)
	} else {
		s.append(frame)
	}

	if s.cfg.MaxUtterance > 0 && s.elapsed >= s.cfg.MaxUtterance {
		return true
	}

	flux := s.detector.Flux(frame)

	if s.lastFlux == 0 {
		s.lastFlux = flux
		return false
	}

	if !s.heard {
		if flux >= s.lastFlux*s.cfg.Ratio {
			s.heard = true
			s.append(s.preroll.Read())
			s.preroll.Clear()
		}

		s.lastFlux = flux

		return false
	}

	if flux*s.cfg.Ratio <= s.lastFlux {
		if s.quiet {
			s.quietFor += s.frameDur
		}

		s.quiet = true

		return s.quietFor > s.cfg.QuietPeriod
	}

	s.quiet = false
	s.quietFor = 0
	s.lastFlux = flux

	return false
}

// Heard reports whether speech onset was detected.
func (s *Segmenter) Heard() bool { return s.heard }

// Buffer returns the captured utterance as mono PCM.
func (s *Segmenter) Buffer() *goaudio.IntBuffer {
	return &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: s.cfg.SampleRate},
		Data:           s.samples,
		SourceBitDepth: 16,
	}
}

func (s *Segmenter) append(frame []int16) {
	for _, v := range frame {
		s.samples = append(s.samples, int(v))
	}
}
