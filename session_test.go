package pianoroll

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/cbegin/pianoroll-go/internal/bus"
	"github.com/cbegin/pianoroll-go/internal/logger"
	"github.com/cbegin/pianoroll-go/internal/roll"
	"github.com/cbegin/pianoroll-go/internal/script"
	"github.com/cbegin/pianoroll-go/internal/synth"
)

type countingAudio struct {
	calls    []string
	stopAll  int
	waveform string
	volume   float64
}

func (a *countingAudio) PlayNote(pitch int, velocity float64) {
	a.calls = append(a.calls, fmt.Sprintf("on %d", pitch))
}
func (a *countingAudio) StopNote(pitch int)  { a.calls = append(a.calls, fmt.Sprintf("off %d", pitch)) }
func (a *countingAudio) StopAll()            { a.stopAll++ }
func (a *countingAudio) SetVolume(v float64) { a.volume = v }
func (a *countingAudio) SetWaveform(name string) error {
	if _, err := synth.ParseWaveform(name); err != nil {
		return err
	}
	a.waveform = name
	return nil
}

type recordingRenderer struct {
	rolls, anims int
	last         roll.Frame
}

func (r *recordingRenderer) DrawRoll(f roll.Frame)      { r.rolls++; r.last = f }
func (r *recordingRenderer) DrawAnimation(f roll.Frame) { r.anims++; r.last = f }

func newTestSession(opts ...SessionOption) (*Session, *countingAudio, *clock.Mock) {
	a := &countingAudio{}
	clk := clock.NewMock()
	opts = append([]SessionOption{WithClock(clk), WithLogger(logger.Discard())}, opts...)
	return NewSession(a, opts...), a, clk
}

func TestSessionEndToEnd(t *testing.T) {
	s, a, clk := newTestSession()
	s.SetScript("step 1\nC\nrest\nE")

	r := s.Range()
	if !r.Defined || r.Lowest != 60 || r.Highest != 64 || r.TotalDuration != 3 {
		t.Fatalf("unexpected range %+v", r)
	}
	if !s.Play() {
		t.Fatalf("play should start")
	}
	for i := 0; i < 40; i++ {
		clk.Add(100 * time.Millisecond)
		s.Update()
	}
	want := "[on 60 off 60 on 64 off 64]"
	if got := fmt.Sprint(a.calls); got != want {
		t.Fatalf("calls = %s, want %s", got, want)
	}
	if s.Playing() {
		t.Fatalf("playback should have ended on its own")
	}
}

func TestSessionInvalidScriptClearsMelody(t *testing.T) {
	s, _, _ := newTestSession()
	s.SetScript("C\nD")
	s.SetScript("C\nH\nD")
	if len(s.Notes()) != 0 || s.Range().Defined {
		t.Fatalf("invalid text should leave an empty melody, got %v", s.Notes())
	}
	if s.Play() {
		t.Fatalf("empty melody must not play")
	}
	if s.Script() != "C\nH\nD" {
		t.Fatalf("script text should be kept for editing")
	}
}

func TestSessionRenderUndefinedRange(t *testing.T) {
	s, _, _ := newTestSession()
	var r recordingRenderer
	if s.Render(&r) {
		t.Fatalf("render with no notes should report false")
	}
	if r.rolls != 0 || r.anims != 0 {
		t.Fatalf("nothing should be drawn")
	}
}

func TestSessionRenderDispatch(t *testing.T) {
	s, _, clk := newTestSession()
	s.SetScript("C\nE")
	var r recordingRenderer
	if !s.Render(&r) || r.rolls != 1 {
		t.Fatalf("stopped session should draw the static roll")
	}
	s.Play()
	clk.Add(250 * time.Millisecond)
	s.Update()
	if !s.Render(&r) || r.anims != 1 {
		t.Fatalf("playing session should draw the animation")
	}
	if r.last.Playhead != -0.25 {
		t.Fatalf("playhead = %v, want -0.25", r.last.Playhead)
	}
}

func TestSessionGhostWidensRangeAndStrikes(t *testing.T) {
	s, _, _ := newTestSession()
	s.SetScript("C\nE")
	s.SetGhostScript("octave 3\nC\nE\nG")
	r := s.Range()
	if r.Lowest != 48 || r.Highest != 64 || r.TotalDuration != 0.75 {
		t.Fatalf("range = %+v", r)
	}
	f := s.Frame()
	if len(f.Struck) != 3 {
		t.Fatalf("struck flags = %v", f.Struck)
	}
	for i, st := range f.Struck {
		if st {
			t.Fatalf("ghost %d has no matching pitch and should not be struck", i)
		}
	}
	s.SetGhostScript("C\nD")
	if got := fmt.Sprint(s.Frame().Struck); got != "[true false]" {
		t.Fatalf("struck = %s", got)
	}
}

func TestSessionNotesChangedEvents(t *testing.T) {
	s, _, _ := newTestSession()
	changes := 0
	unsub := s.Subscribe(bus.KindNotesChanged, func(bus.Event) { changes++ })
	s.SetScript("C")
	s.SetGhostNotes([]script.NoteEvent{{Pitch: 60, Start: 0, End: 1}})
	unsub()
	s.SetScript("D")
	if changes != 2 {
		t.Fatalf("changes = %d, want 2", changes)
	}
}

func TestSessionSetNotesCopies(t *testing.T) {
	s, _, _ := newTestSession()
	notes := []script.NoteEvent{{Pitch: 60, Start: 0, End: 1}}
	s.SetNotes(notes)
	notes[0].Pitch = 90
	if s.Notes()[0].Pitch != 60 || s.Range().Highest != 60 {
		t.Fatalf("session must own its copy of the melody")
	}
}

func TestSessionStopIsFinal(t *testing.T) {
	s, a, clk := newTestSession()
	s.SetScript("C\nD\nE\nF")
	s.Play()
	clk.Add(time.Hour)
	s.Stop()
	s.Update()
	if len(a.calls) != 0 || a.stopAll != 1 {
		t.Fatalf("calls=%v stopAll=%d", a.calls, a.stopAll)
	}
}

func TestSessionPlayStop(t *testing.T) {
	s, _, _ := newTestSession()
	s.SetScript("C")
	if !s.PlayStop() || !s.Playing() {
		t.Fatalf("toggle should start")
	}
	if s.Play() {
		t.Fatalf("re-entrant play should be refused")
	}
	if s.PlayStop() || s.Playing() {
		t.Fatalf("toggle should stop")
	}
}

func TestSessionLiveInputIndependentOfPlayback(t *testing.T) {
	s, a, clk := newTestSession()
	s.SetScript("step 1\nC")
	var live []string
	s.Subscribe(bus.KindNoteOn, func(ev bus.Event) { live = append(live, ev.Label) })

	s.NoteOn(67, 0.5, bus.SourceKeyboard)
	s.Play()
	clk.Add(500 * time.Millisecond)
	s.Update()
	s.HandleEvent(bus.Event{Kind: bus.KindNoteOn, Pitch: 72, Velocity: 1, Source: bus.SourceMIDI})
	s.HandleEvent(bus.Event{Kind: bus.KindNoteOff, Pitch: 67, Source: bus.SourceMIDI})

	if got := fmt.Sprint(a.calls); got != "[on 67 on 60 on 72 off 67]" {
		t.Fatalf("calls = %s", got)
	}
	if got := fmt.Sprint(s.Frame().Pressed); got != "[72]" {
		t.Fatalf("pressed = %s", got)
	}
	if fmt.Sprint(live) != "[G4 C5]" {
		t.Fatalf("live labels = %v", live)
	}
	if !s.Playing() {
		t.Fatalf("live input must not disturb playback")
	}
}

func TestSessionZeroVelocityIsNoteOff(t *testing.T) {
	s, a, _ := newTestSession()
	s.NoteOn(60, 1, bus.SourcePointer)
	s.NoteOn(60, 0, bus.SourcePointer)
	if fmt.Sprint(a.calls) != "[on 60 off 60]" || s.Keyboard().Pressed(60) {
		t.Fatalf("calls = %v", a.calls)
	}
}

func TestSessionReleaseAll(t *testing.T) {
	s, a, _ := newTestSession()
	s.NoteOn(60, 1, bus.SourceKeyboard)
	s.NoteOn(64, 1, bus.SourceKeyboard)
	s.ReleaseAll(bus.SourceKeyboard)
	if len(s.Keyboard().Held()) != 0 {
		t.Fatalf("keys still held")
	}
	if fmt.Sprint(a.calls) != "[on 60 on 64 off 60 off 64]" {
		t.Fatalf("calls = %v", a.calls)
	}
}

func TestSessionMonstersShuffledPerPlay(t *testing.T) {
	symbols := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	s, _, _ := newTestSession(WithMonsters(symbols), WithRand(rand.New(rand.NewPCG(1, 2))))
	s.SetScript("C")
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		s.Play()
		got := s.Monsters()
		if len(got) != len(symbols) {
			t.Fatalf("monster count changed: %v", got)
		}
		set := map[string]bool{}
		for _, m := range got {
			set[m] = true
		}
		if len(set) != len(symbols) {
			t.Fatalf("not a permutation: %v", got)
		}
		seen[fmt.Sprint(got)] = true
		s.Stop()
	}
	if len(seen) < 2 {
		t.Fatalf("monsters never reshuffled")
	}
	if symbols[0] != "a" {
		t.Fatalf("caller's slice must not be shuffled")
	}
}

func TestSessionTempoAndLength(t *testing.T) {
	s, _, _ := newTestSession(WithBPM(60))
	s.SetScript("step 1\nC\nD")
	if s.BPM() != 60 {
		t.Fatalf("bpm = %v", s.BPM())
	}
	if got := s.Length(); got != 5*time.Second {
		t.Fatalf("length = %v, want 5s", got)
	}
	if err := s.SetBPM(120); err != nil {
		t.Fatalf("set bpm: %v", err)
	}
	if got := s.Length(); got != 2500*time.Millisecond {
		t.Fatalf("length = %v, want 2.5s", got)
	}
	if s.SetBPM(-1) == nil {
		t.Fatalf("negative bpm should be rejected")
	}
}

func TestSessionWaveformAndVolume(t *testing.T) {
	s, a, _ := newTestSession()
	if err := s.SetWaveform("square"); err != nil || a.waveform != "square" {
		t.Fatalf("set waveform: %v (%q)", err, a.waveform)
	}
	if s.SetWaveform("kazoo") == nil {
		t.Fatalf("unknown waveform should fail")
	}
	s.SetVolume(0.3)
	if a.volume != 0.3 {
		t.Fatalf("volume = %v", a.volume)
	}
}

func TestSessionEmptyLength(t *testing.T) {
	s, _, _ := newTestSession()
	if s.Length() != 0 {
		t.Fatalf("empty session should have zero length")
	}
}
