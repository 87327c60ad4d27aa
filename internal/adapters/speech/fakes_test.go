package speech

import (
	"context"

	goaudio "github.com/go-audio/audio"

	"github.com/jsamuelsen/quotebox/internal/adapters/clients/acl"
)

type stubRecorder struct {
	buf *goaudio.IntBuffer
	err error
}

func (r *stubRecorder) Record(context.Context) (*goaudio.IntBuffer, error) {
	return r.buf, r.err
}

func pcm(samples ...int) *goaudio.IntBuffer {
	return &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           samples,
		SourceBitDepth: 16,
	}
}

type stubServer struct {
	got      []acl.InferenceRequest
	segments []string
	err      error
}

func (s *stubServer) Transcribe(_ context.Context, in acl.InferenceRequest) ([]string, error) {
	s.got = append(s.got, in)
	return s.segments, s.err
}

type recordingPlayer struct {
	played []*goaudio.IntBuffer
	err    error
}

func (p *recordingPlayer) Play(_ context.Context, buf *goaudio.IntBuffer) error {
	p.played = append(p.played, buf)
	return p.err
}
