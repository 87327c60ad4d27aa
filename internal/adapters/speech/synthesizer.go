package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/spf13/afero"

	"github.com/jsamuelsen/quotebox/internal/adapters/audio"
	"github.com/jsamuelsen/quotebox/internal/domain"
	"github.com/jsamuelsen/quotebox/internal/platform/config"
	"github.com/jsamuelsen/quotebox/internal/platform/logging"
)

// Runner runs an external program to completion.
type Runner func(ctx context.Context, name string, args ...string) error

// ExecRunner runs the program with os/exec and folds its output into the error.
func ExecRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, bytes.TrimSpace(out))
	}

	return nil
}

// SynthesizerConfig configures a Synthesizer.
type SynthesizerConfig struct {
	// Template is the command line, e.g. "pico2wave --lang={lang} --wave={out} {text}".
	// It is split on whitespace before placeholders are filled, so the
	// spoken text always arrives as a single argument.
	Template string

	// Language fills {lang}, e.g. "en-US".
	Language string

	// ScratchDir holds the WAV file between synthesis and playback.
	ScratchDir string

	// Fs must be the filesystem the external program writes to.
	Fs afero.Fs

	Player Player

	// Run defaults to ExecRunner.
	Run Runner
}

// Synthesizer implements ports.Speaker with an offline text-to-speech program.
type Synthesizer struct {
	args    []string
	lang    string
	scratch string
	fs      afero.Fs
	player  Player
	run     Runner
}

// NewSynthesizer validates the template and creates a Synthesizer.
func NewSynthesizer(cfg SynthesizerConfig) (*Synthesizer, error) {
	args := strings.Fields(cfg.Template)
	if len(args) == 0 {
		return nil, domain.NewValidationError("speech.synthesizer", "is empty")
	}

	if !strings.Contains(cfg.Template, config.PlaceholderOut) || !strings.Contains(cfg.Template, config.PlaceholderText) {
		return nil, domain.NewValidationErrorWithValue("speech.synthesizer",
			"must contain "+config.PlaceholderOut+" and "+config.PlaceholderText, cfg.Template)
	}

	if cfg.Fs == nil || cfg.Player == nil {
		return nil, errors.New("synthesizer: Fs and Player are required")
	}

	run := cfg.Run
	if run == nil {
		run = ExecRunner
	}

	return &Synthesizer{
		args:    args,
		lang:    cfg.Language,
		scratch: cfg.ScratchDir,
		fs:      cfg.Fs,
		player:  cfg.Player,
		run:     run,
	}, nil
}

// Speak implements ports.Speaker.
func (s *Synthesizer) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	logging.FromContext(ctx).DebugContext(ctx, "saying", slog.String("text", text))

	if err := s.fs.MkdirAll(s.scratch, 0o755); err != nil {
		return fmt.Errorf("creating scratch dir: %w", err)
	}

	f, err := afero.TempFile(s.fs, s.scratch, "say-*.wav")
	if err != nil {
		return fmt.Errorf("creating scratch file: %w", err)
	}

	out := f.Name()
	_ = f.Close()

	defer func() { _ = s.fs.Remove(out) }()

	args := s.expand(out, text)
	if err := s.run(ctx, args[0], args[1:]...); err != nil {
		return domain.NewUnavailableError("synthesizer", err.Error())
	}

	wav, err := s.fs.Open(out)
	if err != nil {
		return fmt.Errorf("opening synthesized speech: %w", err)
	}
	defer wav.Close()

	buf, err := audio.DecodeWAV(wav)
	if err != nil {
		return fmt.Errorf("reading synthesized speech: %w", err)
	}

	return s.player.Play(ctx, buf)
}

func (s *Synthesizer) expand(out, text string) []string {
	r := strings.NewReplacer(
		config.PlaceholderOut, out,
		config.PlaceholderText, text,
		config.PlaceholderLang, s.lang,
	)

	args := make([]string, len(s.args))
	for i, a := range s.args {
		args[i] = r.Replace(a)
	}

	return args
}

// Name implements ports.HealthChecker.
func (s *Synthesizer) Name() string { return "synthesizer" }

// Check verifies the synthesizer program is installed.
func (s *Synthesizer) Check(_ context.Context) error {
	if _, err := exec.LookPath(s.args[0]); err != nil {
		return domain.NewUnavailableError("synthesizer", err.Error())
	}

	return nil
}
