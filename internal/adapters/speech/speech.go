// Package speech turns captured audio into text and text into played audio.
//
// Recognition runs either on a whisper.cpp server (ServerTranscriber) or
// in-process (package whisper). Synthesis shells out to an offline TTS
// program and plays the resulting WAV file (Synthesizer).
package speech

import (
	"context"
	"strings"

	goaudio "github.com/go-audio/audio"
)

// Recorder captures one utterance.
type Recorder interface {
	Record(ctx context.Context) (*goaudio.IntBuffer, error)
}

// Player plays a PCM buffer and blocks until it has finished.
type Player interface {
	Play(ctx context.Context, buf *goaudio.IntBuffer) error
}

// JoinSegments merges recognizer segments into one utterance.
// Non-speech annotations such as "[BLANK_AUDIO]" or "(wind blowing)" and
// repeated segments are dropped.
func JoinSegments(segments []string) string {
	seen := make(map[string]bool, len(segments))
	kept := make([]string, 0, len(segments))

	for _, s := range segments {
		s = strings.TrimSpace(s)
		if s == "" || isAnnotation(s) || seen[s] {
			continue
		}

		seen[s] = true
		kept = append(kept, s)
	}

	return strings.Join(kept, " ")
}

func isAnnotation(s string) bool {
	first, last := s[0], s[len(s)-1]

	return first == '(' || first == '[' || last == ')' || last == ']'
}

// PromptFromHints builds the decoder prompt from the expected phrases.
func PromptFromHints(hints []string) string {
	return strings.Join(hints, ", ")
}
