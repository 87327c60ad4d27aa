package speech

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebox/internal/adapters/audio"
	"github.com/jsamuelsen/quotebox/internal/domain"
)

const testTemplate = "tts --lang={lang} --wave={out} {text}"

// fakeTTS records invocations and writes a short WAV to the --wave path.
type fakeTTS struct {
	fs    afero.Fs
	calls [][]string
	err   error
}

func (f *fakeTTS) run(_ context.Context, name string, args ...string) error {
	f.calls = append(f.calls, append([]string{name}, args...))

	if f.err != nil {
		return f.err
	}

	for _, a := range args {
		if out, ok := strings.CutPrefix(a, "--wave="); ok {
			w, err := f.fs.Create(out)
			if err != nil {
				return err
			}
			defer w.Close()

			return audio.EncodeWAV(w, pcm(10, 20, 30))
		}
	}

	return errors.New("no --wave argument")
}

func newTestSynthesizer(t *testing.T) (*Synthesizer, *fakeTTS, *recordingPlayer, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	tts := &fakeTTS{fs: fs}
	player := &recordingPlayer{}

	s, err := NewSynthesizer(SynthesizerConfig{
		Template:   testTemplate,
		Language:   "en-US",
		ScratchDir: "/tmp/quotebox",
		Fs:         fs,
		Player:     player,
		Run:        tts.run,
	})
	require.NoError(t, err)

	return s, tts, player, fs
}

func TestSynthesizer_Speak(t *testing.T) {
	s, tts, player, fs := newTestSynthesizer(t)

	err := s.Speak(context.Background(), "Stay hungry, stay foolish. By steve jobs.")
	require.NoError(t, err)

	require.Len(t, tts.calls, 1)
	call := tts.calls[0]
	require.Len(t, call, 4)
	assert.Equal(t, "tts", call[0])
	assert.Equal(t, "--lang=en-US", call[1])
	assert.True(t, strings.HasPrefix(call[2], "--wave=/tmp/quotebox/say-"))
	assert.True(t, strings.HasSuffix(call[2], ".wav"))
	assert.Equal(t, "Stay hungry, stay foolish. By steve jobs.", call[3])

	require.Len(t, player.played, 1)
	assert.Equal(t, []int{10, 20, 30}, player.played[0].Data)

	entries, err := afero.ReadDir(fs, "/tmp/quotebox")
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch file should be removed")
}

func TestSynthesizer_EmptyTextIsSilent(t *testing.T) {
	s, tts, player, _ := newTestSynthesizer(t)

	require.NoError(t, s.Speak(context.Background(), "   "))

	assert.Empty(t, tts.calls)
	assert.Empty(t, player.played)
}

func TestSynthesizer_ProgramFailure(t *testing.T) {
	s, tts, player, fs := newTestSynthesizer(t)
	tts.err = errors.New("exit status 1")

	err := s.Speak(context.Background(), "hello")

	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))
	assert.Empty(t, player.played)

	entries, err := afero.ReadDir(fs, "/tmp/quotebox")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSynthesizer_PlayerFailure(t *testing.T) {
	s, _, player, _ := newTestSynthesizer(t)
	player.err = errors.New("device busy")

	err := s.Speak(context.Background(), "hello")

	assert.EqualError(t, err, "device busy")
}

func TestNewSynthesizer_Validation(t *testing.T) {
	fs := afero.NewMemMapFs()
	player := &recordingPlayer{}

	tests := []struct {
		name     string
		template string
		fs       afero.Fs
		player   Player
	}{
		{name: "empty template", template: "  ", fs: fs, player: player},
		{name: "missing out", template: "tts {text}", fs: fs, player: player},
		{name: "missing text", template: "tts --wave={out}", fs: fs, player: player},
		{name: "missing fs", template: testTemplate, player: player},
		{name: "missing player", template: testTemplate, fs: fs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSynthesizer(SynthesizerConfig{Template: tt.template, Fs: tt.fs, Player: tt.player})
			assert.Error(t, err)
		})
	}
}

func TestSynthesizer_CheckMissingProgram(t *testing.T) {
	s, err := NewSynthesizer(SynthesizerConfig{
		Template: "definitely-not-installed-tts --wave={out} {text}",
		Fs:       afero.NewMemMapFs(),
		Player:   &recordingPlayer{},
	})
	require.NoError(t, err)

	assert.Equal(t, "synthesizer", s.Name())
	assert.True(t, domain.IsUnavailable(s.Check(context.Background())))
}
