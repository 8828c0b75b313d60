package transport

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/cbegin/pianoroll-go/internal/roll"
	"github.com/cbegin/pianoroll-go/internal/script"
)

func notesFromPitches(pitches []int) []script.NoteEvent {
	notes := make([]script.NoteEvent, len(pitches))
	for i, p := range pitches {
		notes[i] = script.NoteEvent{Pitch: 48 + p, Start: float64(i) * 0.25, End: float64(i+1) * 0.25}
	}
	return notes
}

func TestProperty_NoTriggerAfterStop(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("stop is final regardless of when the queue is drained", prop.ForAll(
		func(pitches []int, stopAfterMs int, drainBeforeStop bool) bool {
			f := newFixture(DefaultConfig())
			notes := notesFromPitches(pitches)
			f.sched.Play(notes, roll.ComputeRange(notes, nil))
			f.clk.Add(time.Duration(stopAfterMs) * time.Millisecond)
			if drainBeforeStop {
				f.queue.RunDue()
			}
			before := len(f.audio.calls)
			f.sched.Stop()
			f.advance(time.Hour)
			return len(f.audio.calls) == before && !f.sched.Playing() && f.queue.Len() == 0
		},
		gen.SliceOfN(12, gen.IntRange(0, 36)),
		gen.IntRange(0, 5000),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestProperty_EveryNoteOnHasNoteOff(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("uninterrupted playback balances on and off per pitch", prop.ForAll(
		func(pitches []int, bpm int) bool {
			cfg := DefaultConfig()
			cfg.BPM = float64(bpm)
			f := newFixture(cfg)
			notes := notesFromPitches(pitches)
			if !f.sched.Play(notes, roll.ComputeRange(notes, nil)) {
				return len(notes) == 0
			}
			f.advance(time.Hour)
			return len(f.audio.calls) == 2*len(notes) && !f.sched.Playing()
		},
		gen.SliceOf(gen.IntRange(0, 36)),
		gen.IntRange(30, 300),
	))

	properties.TestingRun(t)
}
