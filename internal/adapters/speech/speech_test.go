package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinSegments(t *testing.T) {
	tests := []struct {
		name     string
		segments []string
		want     string
	}{
		{name: "nothing", segments: nil, want: ""},
		{name: "single", segments: []string{" inspire me"}, want: "inspire me"},
		{name: "joined", segments: []string{" forget", "twelve "}, want: "forget twelve"},
		{name: "blank audio", segments: []string{"[BLANK_AUDIO]"}, want: ""},
		{name: "sound effects", segments: []string{"(wind blowing)", " add a quote"}, want: "add a quote"},
		{name: "trailing bracket", segments: []string{"music]", "yes"}, want: "yes"},
		{name: "repeats", segments: []string{"yes", " yes", "no"}, want: "yes no"},
		{name: "whitespace only", segments: []string{"  ", "\n"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JoinSegments(tt.segments))
		})
	}
}

func TestPromptFromHints(t *testing.T) {
	assert.Equal(t, "inspire me, never mind", PromptFromHints([]string{"inspire me", "never mind"}))
	assert.Empty(t, PromptFromHints(nil))
}
