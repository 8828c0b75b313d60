package transport

import (
	"errors"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/cbegin/pianoroll-go/internal/bus"
	"github.com/cbegin/pianoroll-go/internal/logger"
	"github.com/cbegin/pianoroll-go/internal/roll"
	"github.com/cbegin/pianoroll-go/internal/script"
	"github.com/cbegin/pianoroll-go/internal/timer"
)

var ErrInvalidBPM = errors.New("bpm must be positive")

// Audio is the part of the tone generator playback drives.
type Audio interface {
	PlayNote(pitch int, velocity float64)
	StopNote(pitch int)
	StopAll()
}

type Config struct {
	BPM          float64
	ReferenceBPM float64 // tempo at which one beat lasts one second
	StartDelay   float64 // lead-in beats before the first note sounds
	Velocity     float64
}

func DefaultConfig() Config {
	return Config{
		BPM:          120,
		ReferenceBPM: 120,
		StartDelay:   0.5,
		Velocity:     1,
	}
}

// BeatsToDuration converts beats to wall clock: beats*1000*(ref/bpm) ms.
func BeatsToDuration(beats, bpm, ref float64) time.Duration {
	return time.Duration(beats * (ref / bpm) * float64(time.Second))
}

// DurationToBeats is the inverse of BeatsToDuration.
func DurationToBeats(d time.Duration, bpm, ref float64) float64 {
	return d.Seconds() * (bpm / ref)
}

// Scheduler is the Stopped/Playing transport. Play turns a note snapshot into
// timer tasks; Stop cancels every one of them. All methods must be called
// from the goroutine that drains the timer queue.
type Scheduler struct {
	queue   *timer.Queue
	clk     clock.Clock
	audio   Audio
	bus     *bus.Bus
	cfg     Config
	log     *slog.Logger
	playing bool
	started time.Time
	pending map[timer.Handle]struct{}
	swing   bool
	marker  float64
	endBeat float64
	playBPM float64 // tempo the running playback was scheduled with
}

func New(q *timer.Queue, a Audio, b *bus.Bus, cfg Config) *Scheduler {
	def := DefaultConfig()
	if cfg.BPM <= 0 {
		cfg.BPM = def.BPM
	}
	if cfg.ReferenceBPM <= 0 {
		cfg.ReferenceBPM = def.ReferenceBPM
	}
	if cfg.StartDelay < 0 {
		cfg.StartDelay = 0
	}
	if cfg.Velocity <= 0 {
		cfg.Velocity = def.Velocity
	}
	if b == nil {
		b = bus.New()
	}
	return &Scheduler{
		queue:   q,
		clk:     q.Clock(),
		audio:   a,
		bus:     b,
		cfg:     cfg,
		log:     logger.Get(),
		pending: make(map[timer.Handle]struct{}),
	}
}

// SetLogger replaces the logger transport transitions are reported to.
func (s *Scheduler) SetLogger(l *slog.Logger) {
	if l != nil {
		s.log = l
	}
}

// Play schedules note-on and note-off tasks for every note, measured from
// now plus the lead-in. It is a no-op returning false when notes is empty or
// playback is already running. The notes are copied; later edits by the
// caller do not reach tasks already scheduled.
func (s *Scheduler) Play(notes []script.NoteEvent, r roll.PitchRange) bool {
	if len(notes) == 0 || s.playing {
		return false
	}
	snapshot := append([]script.NoteEvent(nil), notes...)
	bpm, ref := s.cfg.BPM, s.cfg.ReferenceBPM
	s.started = s.clk.Now()
	s.swing = false
	s.marker = 0
	s.endBeat = 0
	for _, n := range snapshot {
		onAt := BeatsToDuration(n.Start+s.cfg.StartDelay, bpm, ref)
		offAt := BeatsToDuration(n.End+s.cfg.StartDelay, bpm, ref)
		s.track(onAt, func() { s.noteOn(n, r) })
		s.track(offAt, func() { s.noteOff(n) })
		if n.End > s.endBeat {
			s.endBeat = n.End
		}
	}
	// Registered last so it runs after note-offs sharing its deadline.
	s.track(BeatsToDuration(s.endBeat+s.cfg.StartDelay, bpm, ref), s.finish)
	s.playBPM = bpm
	s.playing = true
	s.log.Debug("playback started", "notes", len(snapshot), "bpm", bpm, "triggers", len(s.pending))
	s.bus.Publish(bus.Event{Kind: bus.KindPlaybackStarted, Source: bus.SourceScheduler})
	return true
}

func (s *Scheduler) track(delay time.Duration, fn func()) {
	var h timer.Handle
	h = s.queue.Schedule(delay, func() {
		delete(s.pending, h)
		fn()
	})
	s.pending[h] = struct{}{}
}

func (s *Scheduler) noteOn(n script.NoteEvent, r roll.PitchRange) {
	s.audio.PlayNote(n.Pitch, s.cfg.Velocity)
	s.swing = !s.swing
	if frac, ok := roll.RowFraction(r, n.Pitch); ok {
		s.marker = frac
	}
	s.bus.Publish(bus.Event{
		Kind:     bus.KindTriggerOn,
		Pitch:    n.Pitch,
		Label:    n.Label,
		Velocity: s.cfg.Velocity,
		Source:   bus.SourceScheduler,
	})
}

// noteOff stops the pitch unconditionally, even if live input is holding the
// same pitch.
func (s *Scheduler) noteOff(n script.NoteEvent) {
	s.audio.StopNote(n.Pitch)
	s.bus.Publish(bus.Event{
		Kind:   bus.KindTriggerOff,
		Pitch:  n.Pitch,
		Label:  n.Label,
		Source: bus.SourceScheduler,
	})
}

func (s *Scheduler) finish() {
	s.cancelPending()
	s.playing = false
	s.log.Debug("playback ended")
	s.bus.Publish(bus.Event{Kind: bus.KindPlaybackEnded, Source: bus.SourceScheduler})
}

func (s *Scheduler) cancelPending() {
	for h := range s.pending {
		s.queue.Cancel(h)
	}
	clear(s.pending)
}

// Stop cancels every pending trigger before returning, silences all audio,
// and returns to Stopped. Stopping while stopped still silences audio.
func (s *Scheduler) Stop() {
	s.cancelPending()
	s.audio.StopAll()
	if !s.playing {
		return
	}
	s.playing = false
	s.log.Debug("playback stopped")
	s.bus.Publish(bus.Event{Kind: bus.KindPlaybackStopped, Source: bus.SourceScheduler})
}

// PlayStop toggles the transport. It reports whether playback is running
// afterwards.
func (s *Scheduler) PlayStop(notes []script.NoteEvent, r roll.PitchRange) bool {
	if s.playing {
		s.Stop()
		return false
	}
	return s.Play(notes, r)
}

func (s *Scheduler) Playing() bool { return s.playing }

// StartedAt is the wall clock time of the last Play.
func (s *Scheduler) StartedAt() time.Time { return s.started }

// Elapsed is the wall clock time since Play, or 0 while stopped.
func (s *Scheduler) Elapsed() time.Duration {
	if !s.playing {
		return 0
	}
	return s.clk.Now().Sub(s.started)
}

// Playhead is the beat currently under the hit line; it runs from
// -StartDelay up to the last note's end.
func (s *Scheduler) Playhead() float64 {
	if !s.playing {
		return 0
	}
	return DurationToBeats(s.Elapsed(), s.playBPM, s.cfg.ReferenceBPM) - s.cfg.StartDelay
}

func (s *Scheduler) Swing() bool     { return s.swing }
func (s *Scheduler) Marker() float64 { return s.marker }
func (s *Scheduler) Pending() int    { return len(s.pending) }
func (s *Scheduler) BPM() float64    { return s.cfg.BPM }
func (s *Scheduler) Config() Config  { return s.cfg }

// SetBPM changes the tempo used by the next Play. Running playback keeps the
// tempo it was scheduled with.
func (s *Scheduler) SetBPM(bpm float64) error {
	if bpm <= 0 {
		return ErrInvalidBPM
	}
	if s.playing {
		s.log.Debug("tempo change deferred until next play", "bpm", bpm)
	}
	s.cfg.BPM = bpm
	return nil
}

// Length is the wall clock duration of playing totalBeats at the current
// tempo, lead-in included.
func (s *Scheduler) Length(totalBeats float64) time.Duration {
	return BeatsToDuration(totalBeats+s.cfg.StartDelay, s.cfg.BPM, s.cfg.ReferenceBPM)
}
