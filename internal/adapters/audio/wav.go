package audio

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const pcmFormat = 1

// ErrInvalidWAV is returned when a stream is not a RIFF/WAVE file.
var ErrInvalidWAV = errors.New("not a valid wav file")

// EncodeWAV writes buf as a 16-bit PCM WAV file.
func EncodeWAV(w io.WriteSeeker, buf *goaudio.IntBuffer) error {
	enc := wav.NewEncoder(w, buf.Format.SampleRate, 16, buf.Format.NumChannels, pcmFormat)

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding wav: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finishing wav: %w", err)
	}

	return nil
}

// DecodeWAV reads a whole WAV file into memory.
func DecodeWAV(r io.ReadSeeker) (*goaudio.IntBuffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding wav: %w", err)
	}

	return buf, nil
}

// ToInt16 converts samples of any source bit depth to 16-bit.
func ToInt16(buf *goaudio.IntBuffer) []int16 {
	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = 16
	}

	out := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		switch {
		case depth == 8:
			// 8-bit WAV is unsigned.
			out[i] = int16((v - 128) << 8)
		case depth > 16:
			out[i] = int16(v >> (depth - 16))
		default:
			out[i] = int16(v)
		}
	}

	return out
}
