package audio

import (
	"fmt"

	"github.com/ebitengine/oto/v3"

	"tetra-core/internal/debug"
)

// Sink drains the sample queue into the host audio device. Underruns are
// padded with silence and logged; emulation never blocks on audio.
type Sink struct {
	ctx    *oto.Context
	player *oto.Player
}

// queueReader adapts the queue to the byte stream the driver consumes.
type queueReader struct {
	queue *Queue
	log   *debug.Logger
}

func (r *queueReader) Read(p []byte) (int, error) {
	frames := len(p) / 2
	samples := make([]int16, frames)
	got := r.queue.Pop(samples)
	if got < frames && r.log != nil {
		r.log.Logf(debug.ComponentAudio, debug.LogLevelDebug, "underrun: %d samples short", frames-got)
	}
	for i := 0; i < frames; i++ {
		var s int16
		if i < got {
			s = samples[i]
		}
		p[2*i] = byte(s)
		p[2*i+1] = byte(uint16(s) >> 8)
	}
	return frames * 2, nil
}

// NewSink opens the host audio device at the given sample rate and starts
// draining the queue.
func NewSink(sampleRate int, queue *Queue, logger *debug.Logger) (*Sink, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}
	<-ready

	player := ctx.NewPlayer(&queueReader{queue: queue, log: logger})
	player.Play()
	return &Sink{ctx: ctx, player: player}, nil
}

// Close stops playback.
func (s *Sink) Close() error {
	return s.player.Close()
}
