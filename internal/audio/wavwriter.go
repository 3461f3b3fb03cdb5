package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WavRecorder captures the emulator's sample stream to a WAV file alongside
// normal playback.
type WavRecorder struct {
	file    *os.File
	encoder *wav.Encoder
	format  *goaudio.Format
}

// NewWavRecorder creates the capture file.
func NewWavRecorder(path string, sampleRate int) (*WavRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create wav file: %w", err)
	}
	return &WavRecorder{
		file:    f,
		encoder: wav.NewEncoder(f, sampleRate, 16, 2, 1),
		format:  &goaudio.Format{NumChannels: 2, SampleRate: sampleRate},
	}, nil
}

// Write appends interleaved stereo samples.
func (r *WavRecorder) Write(samples []int16) error {
	if len(samples) == 0 {
		return nil
	}
	buf := &goaudio.IntBuffer{Format: r.format, SourceBitDepth: 16, Data: make([]int, len(samples))}
	for i, s := range samples {
		buf.Data[i] = int(s)
	}
	if err := r.encoder.Write(buf); err != nil {
		return fmt.Errorf("failed to write wav data: %w", err)
	}
	return nil
}

// Close finalizes the WAV header.
func (r *WavRecorder) Close() error {
	if err := r.encoder.Close(); err != nil {
		r.file.Close()
		return fmt.Errorf("failed to finalize wav file: %w", err)
	}
	return r.file.Close()
}
