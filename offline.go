package pianoroll

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/cbegin/pianoroll-go/internal/script"
	"github.com/cbegin/pianoroll-go/internal/synth"
	"github.com/cbegin/pianoroll-go/internal/transport"
)

// RenderOptions controls offline rendering. A zero SampleRate, BPM or Volume
// takes the value from DefaultRenderOptions.
type RenderOptions struct {
	SampleRate int
	BPM        float64
	Waveform   string
	Volume     float64
	LeadIn     bool    // include the live transport's start delay
	TailSec    float64 // silence after the last note-off for release tails
}

func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		SampleRate: 48000,
		BPM:        transport.DefaultConfig().BPM,
		Waveform:   "triangle",
		Volume:     0.8,
		TailSec:    0.5,
	}
}

type renderEvent struct {
	frame int
	on    bool
	pitch int
	order int
}

// RenderSamples plays notes through a fresh synth engine and returns the
// interleaved stereo result. Timing follows the live scheduler's beat to
// wall clock mapping. An unknown waveform falls back to the engine default.
func RenderSamples(notes []script.NoteEvent, opts RenderOptions) []float32 {
	def := DefaultRenderOptions()
	if opts.SampleRate <= 0 {
		opts.SampleRate = def.SampleRate
	}
	if opts.BPM <= 0 {
		opts.BPM = def.BPM
	}
	if opts.Volume <= 0 {
		opts.Volume = def.Volume
	}
	if opts.TailSec < 0 {
		opts.TailSec = 0
	}
	tc := transport.DefaultConfig()
	lead := 0.0
	if opts.LeadIn {
		lead = tc.StartDelay
	}
	params := synth.DefaultParams()
	params.Volume = opts.Volume
	engine := synth.New(opts.SampleRate, params)
	if opts.Waveform != "" {
		_ = engine.SetWaveform(opts.Waveform)
	}

	toFrame := func(beat float64) int {
		d := transport.BeatsToDuration(beat+lead, opts.BPM, tc.ReferenceBPM)
		return int(math.Round(d.Seconds() * float64(opts.SampleRate)))
	}
	events := make([]renderEvent, 0, len(notes)*2)
	last := 0
	for i, n := range notes {
		on, off := toFrame(n.Start), toFrame(n.End)
		events = append(events,
			renderEvent{frame: on, on: true, pitch: n.Pitch, order: 2*i + 1},
			renderEvent{frame: off, pitch: n.Pitch, order: 2 * i},
		)
		if off > last {
			last = off
		}
	}
	// Offs before ons at the same frame so a repeated pitch retriggers.
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.frame != b.frame {
			return a.frame < b.frame
		}
		if a.on != b.on {
			return !a.on
		}
		return a.order < b.order
	})

	total := last + int(opts.TailSec*float64(opts.SampleRate))
	out := make([]float32, total*2)
	pos := 0
	for _, ev := range events {
		if ev.frame > pos {
			engine.Process(out[pos*2 : ev.frame*2])
			pos = ev.frame
		}
		if ev.on {
			engine.PlayNote(ev.pitch, tc.Velocity)
		} else {
			engine.StopNote(ev.pitch)
		}
	}
	if pos < total {
		engine.Process(out[pos*2:])
	}
	return out
}

func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
