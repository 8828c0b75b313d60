package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// Source fills dst with interleaved stereo float32 frames.
type Source interface {
	Process(dst []float32)
}

// StreamReader adapts a Source to the little-endian float32 byte stream
// ebiten's F32 players consume. It never ends on its own.
type StreamReader struct {
	mu     sync.Mutex
	source Source
	buf    []float32
	tap    func([]float32)
}

func NewStreamReader(source Source) *StreamReader {
	return &StreamReader{source: source}
}

// SetTap installs a callback invoked on the audio thread with each rendered
// buffer. The slice is reused between calls.
func (r *StreamReader) SetTap(tap func([]float32)) {
	r.mu.Lock()
	r.tap = tap
	r.mu.Unlock()
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	if r.tap != nil {
		r.tap(r.buf)
	}
	for i, s := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return frames * 8, nil
}

func (r *StreamReader) Close() error { return nil }

// Output is a running ebiten player pulling from a Source.
type Output struct {
	player *ebitaudio.Player
	reader *StreamReader
}

var (
	contextOnce       sync.Once
	context           *ebitaudio.Context
	contextSampleRate int
)

// sharedContext returns the process-wide audio context. ebiten allows only
// one, so a second rate is an error.
func sharedContext(sampleRate int) (*ebitaudio.Context, error) {
	contextOnce.Do(func() {
		contextSampleRate = sampleRate
		context = ebitaudio.NewContext(sampleRate)
	})
	if contextSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", contextSampleRate, sampleRate)
	}
	return context, nil
}

// NewOutput opens a player for source at sampleRate. Call Play to start it.
func NewOutput(sampleRate int, source Source) (*Output, error) {
	ctx, err := sharedContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	pl.SetBufferSize(40 * time.Millisecond)
	return &Output{player: pl, reader: reader}, nil
}

func (o *Output) Play()           { o.player.Play() }
func (o *Output) Pause()          { o.player.Pause() }
func (o *Output) IsPlaying() bool { return o.player.IsPlaying() }

// SetTap forwards rendered buffers to tap, e.g. for a level meter.
func (o *Output) SetTap(tap func([]float32)) { o.reader.SetTap(tap) }

func (o *Output) Close() error {
	o.player.Pause()
	if err := o.player.Close(); err != nil {
		return err
	}
	return o.reader.Close()
}

var _ io.ReadCloser = (*StreamReader)(nil)
