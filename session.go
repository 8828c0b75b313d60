package pianoroll

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/cbegin/pianoroll-go/internal/bus"
	"github.com/cbegin/pianoroll-go/internal/logger"
	"github.com/cbegin/pianoroll-go/internal/piano"
	"github.com/cbegin/pianoroll-go/internal/roll"
	"github.com/cbegin/pianoroll-go/internal/script"
	"github.com/cbegin/pianoroll-go/internal/timer"
	"github.com/cbegin/pianoroll-go/internal/transport"
)

// Audio is the tone generator a session drives. *synth.Engine implements it.
type Audio interface {
	PlayNote(pitch int, velocity float64)
	StopNote(pitch int)
	StopAll()
	SetWaveform(name string) error
	SetVolume(v float64)
}

type SessionOption func(*sessionConfig)

type sessionConfig struct {
	clock     clock.Clock
	transport transport.Config
	log       *slog.Logger
	shuffle   func(n int, swap func(i, j int))
	monsters  []string
	parser    script.ParserConfig
	low, high int
}

func defaultSessionConfig() sessionConfig {
	return sessionConfig{
		transport: transport.DefaultConfig(),
		shuffle:   rand.Shuffle,
		monsters:  roll.DefaultMonsters(),
		parser:    script.DefaultParserConfig(),
		low:       piano.DefaultLow,
		high:      piano.DefaultHigh,
	}
}

// WithClock sets the time source; tests pass clock.NewMock().
func WithClock(c clock.Clock) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.clock = c
	}
}

func WithBPM(bpm float64) SessionOption {
	return func(cfg *sessionConfig) {
		if bpm > 0 {
			cfg.transport.BPM = bpm
		}
	}
}

func WithTransportConfig(tc transport.Config) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.transport = tc
	}
}

func WithLogger(l *slog.Logger) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.log = l
	}
}

// WithRand makes the monster shuffle reproducible.
func WithRand(r *rand.Rand) SessionOption {
	return func(cfg *sessionConfig) {
		if r != nil {
			cfg.shuffle = r.Shuffle
		}
	}
}

// WithMonsters replaces the sprite symbols assigned to roll rows.
func WithMonsters(symbols []string) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.monsters = append([]string(nil), symbols...)
	}
}

func WithParserConfig(pc script.ParserConfig) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.parser = pc
	}
}

// WithKeyboardRange sets the pitches shown on the on-screen piano.
func WithKeyboardRange(low, high int) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.low, cfg.high = low, high
	}
}

// Session is the game: a primary melody edited as script text, an optional
// ghost melody to play against, a transport, and the live keyboard. It is
// single-threaded; the host calls Update once per frame from the same
// goroutine that calls everything else.
type Session struct {
	cfg    sessionConfig
	audio  Audio
	log    *slog.Logger
	queue  *timer.Queue
	bus    *bus.Bus
	sched  *transport.Scheduler
	parser *script.Parser
	keys   *piano.Keyboard

	text      string
	ghostText string
	notes     []script.NoteEvent
	ghost     []script.NoteEvent
	rng       roll.PitchRange
	window    roll.Window
	struck    []bool
	monsters  []string
}

func NewSession(a Audio, opts ...SessionOption) *Session {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.log == nil {
		cfg.log = logger.Get()
	}
	q := timer.New(cfg.clock)
	b := bus.New()
	sched := transport.New(q, a, b, cfg.transport)
	sched.SetLogger(cfg.log)
	s := &Session{
		cfg:      cfg,
		audio:    a,
		log:      cfg.log,
		queue:    q,
		bus:      b,
		sched:    sched,
		parser:   script.NewParser(cfg.parser).WithLogger(cfg.log),
		keys:     piano.New(cfg.low, cfg.high),
		monsters: append([]string(nil), cfg.monsters...),
	}
	s.recompute()
	return s
}

// SetScript replaces the primary melody with text. Text that does not parse
// yields an empty melody; nothing is reported to the caller.
func (s *Session) SetScript(text string) {
	s.text = text
	s.setNotes(s.parser.Compile(text))
}

// SetNotes replaces the primary melody directly.
func (s *Session) SetNotes(notes []script.NoteEvent) {
	s.text = ""
	s.setNotes(append([]script.NoteEvent(nil), notes...))
}

func (s *Session) setNotes(notes []script.NoteEvent) {
	s.notes = notes
	s.recompute()
	s.bus.Publish(bus.Event{Kind: bus.KindNotesChanged})
}

func (s *Session) SetGhostScript(text string) {
	s.ghostText = text
	s.setGhost(s.parser.Compile(text))
}

func (s *Session) SetGhostNotes(notes []script.NoteEvent) {
	s.ghostText = ""
	s.setGhost(append([]script.NoteEvent(nil), notes...))
}

func (s *Session) setGhost(notes []script.NoteEvent) {
	s.ghost = notes
	s.recompute()
	s.bus.Publish(bus.Event{Kind: bus.KindNotesChanged})
}

func (s *Session) recompute() {
	s.rng = roll.ComputeRange(s.notes, s.ghost)
	s.window = roll.NewWindow(s.rng)
	s.struck = roll.Struck(s.ghost, s.notes)
}

func (s *Session) Script() string                  { return s.text }
func (s *Session) GhostScript() string             { return s.ghostText }
func (s *Session) Notes() []script.NoteEvent       { return s.notes }
func (s *Session) Ghost() []script.NoteEvent       { return s.ghost }
func (s *Session) Range() roll.PitchRange          { return s.rng }
func (s *Session) Window() roll.Window             { return s.window }
func (s *Session) Keyboard() *piano.Keyboard       { return s.keys }
func (s *Session) Clock() clock.Clock              { return s.queue.Clock() }
func (s *Session) Scheduler() *transport.Scheduler { return s.sched }

// Play starts the primary melody. It reports false, changing nothing, when
// the melody is empty or already playing. Each run reshuffles the monsters.
func (s *Session) Play() bool {
	if s.sched.Playing() || len(s.notes) == 0 {
		return false
	}
	s.shuffleMonsters()
	s.log.Debug("session play", "notes", len(s.notes), "ghost", len(s.ghost), "bpm", s.sched.BPM())
	return s.sched.Play(s.notes, s.rng)
}

func (s *Session) Stop() { s.sched.Stop() }

// PlayStop toggles playback and reports whether it is running afterwards.
func (s *Session) PlayStop() bool {
	if s.sched.Playing() {
		s.sched.Stop()
		return false
	}
	return s.Play()
}

func (s *Session) Playing() bool { return s.sched.Playing() }

func (s *Session) shuffleMonsters() {
	if len(s.monsters) < 2 {
		return
	}
	s.cfg.shuffle(len(s.monsters), func(i, j int) {
		s.monsters[i], s.monsters[j] = s.monsters[j], s.monsters[i]
	})
}

func (s *Session) Monsters() []string { return append([]string(nil), s.monsters...) }

// SetBPM applies from the next Play.
func (s *Session) SetBPM(bpm float64) error { return s.sched.SetBPM(bpm) }
func (s *Session) BPM() float64             { return s.sched.BPM() }

func (s *Session) SetWaveform(name string) error { return s.audio.SetWaveform(name) }
func (s *Session) SetVolume(v float64)           { s.audio.SetVolume(v) }

// Update runs every trigger whose time has come and returns how many ran.
func (s *Session) Update() int { return s.queue.RunDue() }

// Length is how long the melody plays at the current tempo, lead-in
// included.
func (s *Session) Length() time.Duration {
	if !s.rng.Defined {
		return 0
	}
	return s.sched.Length(s.rng.TotalDuration)
}

// Frame snapshots the render model.
func (s *Session) Frame() roll.Frame {
	return roll.Frame{
		Notes:    s.notes,
		Ghost:    s.ghost,
		Struck:   s.struck,
		Range:    s.rng,
		Window:   s.window,
		Playing:  s.sched.Playing(),
		Elapsed:  s.sched.Elapsed(),
		Playhead: s.sched.Playhead(),
		Swing:    s.sched.Swing(),
		Marker:   s.sched.Marker(),
		Monsters: s.monsters,
		Pressed:  s.keys.Held(),
		BPM:      s.sched.BPM(),
	}
}

// Render draws the current frame. It returns false without drawing when
// there is nothing to lay out.
func (s *Session) Render(r roll.Renderer) bool {
	return roll.Render(r, s.Frame())
}

// NoteOn sounds pitch from live input. It works whether or not the melody
// is playing.
func (s *Session) NoteOn(pitch int, velocity float64, src bus.Source) {
	if velocity <= 0 {
		s.NoteOff(pitch, src)
		return
	}
	s.audio.PlayNote(pitch, velocity)
	s.keys.Press(pitch)
	s.bus.Publish(bus.Event{
		Kind:     bus.KindNoteOn,
		Pitch:    pitch,
		Label:    script.PitchLabel(pitch),
		Velocity: velocity,
		Source:   src,
	})
}

func (s *Session) NoteOff(pitch int, src bus.Source) {
	s.audio.StopNote(pitch)
	s.keys.Release(pitch)
	s.bus.Publish(bus.Event{
		Kind:   bus.KindNoteOff,
		Pitch:  pitch,
		Label:  script.PitchLabel(pitch),
		Source: src,
	})
}

// ReleaseAll lets go of every held live key.
func (s *Session) ReleaseAll(src bus.Source) {
	for _, p := range s.keys.Held() {
		s.NoteOff(p, src)
	}
}

// HandleEvent applies a live note event, such as one translated from MIDI.
// Other kinds are ignored.
func (s *Session) HandleEvent(ev bus.Event) {
	switch ev.Kind {
	case bus.KindNoteOn:
		s.NoteOn(ev.Pitch, ev.Velocity, ev.Source)
	case bus.KindNoteOff:
		s.NoteOff(ev.Pitch, ev.Source)
	}
}

// Subscribe registers fn for events of kind. The returned function removes
// the subscription.
func (s *Session) Subscribe(kind bus.Kind, fn func(bus.Event)) func() {
	return s.bus.Subscribe(kind, fn)
}
