package synth

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
)

const twoPi = math.Pi * 2

var ErrUnknownWaveform = errors.New("unknown waveform")

type Waveform int

const (
	WaveSine Waveform = iota
	WaveSquare
	WaveSawtooth
	WaveTriangle
)

var waveformNames = map[string]Waveform{
	"sine":     WaveSine,
	"square":   WaveSquare,
	"sawtooth": WaveSawtooth,
	"triangle": WaveTriangle,
}

func (w Waveform) String() string {
	for name, v := range waveformNames {
		if v == w {
			return name
		}
	}
	return "unknown"
}

// ParseWaveform accepts sine, square, sawtooth (or saw) and triangle.
func ParseWaveform(name string) (Waveform, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "saw" {
		n = "sawtooth"
	}
	w, ok := waveformNames[n]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownWaveform, name)
	}
	return w, nil
}

type Params struct {
	Voices     int
	Volume     float64 // 0..1
	Waveform   Waveform
	AttackSec  float64
	DecaySec   float64
	SustainLvl float64
	ReleaseSec float64
	Headroom   float64 // per-voice gain so a full chord stays under clipping
}

func DefaultParams() Params {
	return Params{
		Voices:     16,
		Volume:     0.8,
		Waveform:   WaveTriangle,
		AttackSec:  0.005,
		DecaySec:   0.12,
		SustainLvl: 0.7,
		ReleaseSec: 0.15,
		Headroom:   0.25,
	}
}

type envState int

const (
	envAttack envState = iota
	envDecay
	envSustain
	envRelease
	envOff
)

type voice struct {
	active   bool
	pitch    int
	age      int
	wave     Waveform
	freq     float64
	phase    float64
	velocity float64
	env      float64
	envState envState
}

// Engine is a small polyphonic oscillator bank. It holds at most one voice
// per pitch: playing a sounding pitch again restarts its envelope. Control
// calls may come from any goroutine; Process runs on the audio thread.
type Engine struct {
	mu         sync.Mutex
	sampleRate float64
	params     Params
	voices     []voice
	dcPrevIn   float64
	dcPrevOut  float64
}

func New(sampleRate int, params Params) *Engine {
	if params.Voices <= 0 {
		params.Voices = DefaultParams().Voices
	}
	if params.Headroom <= 0 {
		params.Headroom = DefaultParams().Headroom
	}
	params.Volume = clamp(params.Volume, 0, 1)
	return &Engine{
		sampleRate: float64(sampleRate),
		params:     params,
		voices:     make([]voice, params.Voices),
	}
}

func (e *Engine) SampleRate() int { return int(e.sampleRate) }

// PlayNote starts pitch at velocity (0..1).
func (e *Engine) PlayNote(pitch int, velocity float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	slot := e.findVoice(pitch)
	if slot < 0 {
		slot = e.stealVoice()
	}
	v := &e.voices[slot]
	phase := 0.0
	if v.active && v.pitch == pitch {
		phase = v.phase
	}
	*v = voice{
		active:   true,
		pitch:    pitch,
		wave:     e.params.Waveform,
		freq:     midiToFreq(pitch),
		phase:    phase,
		velocity: clamp(velocity, 0, 1),
		envState: envAttack,
	}
}

// StopNote releases pitch. Unknown pitches are ignored.
func (e *Engine) StopNote(pitch int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.findVoice(pitch); i >= 0 && e.voices[i].envState != envRelease {
		e.voices[i].envState = envRelease
	}
}

// StopAll releases every sounding pitch.
func (e *Engine) StopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.voices {
		if e.voices[i].active {
			e.voices[i].envState = envRelease
		}
	}
}

// SetWaveform changes the oscillator shape for notes started afterwards.
func (e *Engine) SetWaveform(name string) error {
	w, err := ParseWaveform(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.params.Waveform = w
	e.mu.Unlock()
	return nil
}

func (e *Engine) Waveform() Waveform {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params.Waveform
}

// SetVolume sets the master volume, clamped to 0..1.
func (e *Engine) SetVolume(v float64) {
	e.mu.Lock()
	e.params.Volume = clamp(v, 0, 1)
	e.mu.Unlock()
}

func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params.Volume
}

// ActiveVoices counts voices still sounding, release tails included.
func (e *Engine) ActiveVoices() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for i := range e.voices {
		if e.voices[i].active {
			n++
		}
	}
	return n
}

// Sounding reports whether pitch has a voice that is not yet releasing.
func (e *Engine) Sounding(pitch int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.findVoice(pitch)
	return i >= 0 && e.voices[i].envState != envRelease
}

// Process fills dst with interleaved stereo frames.
func (e *Engine) Process(dst []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := 0; i+1 < len(dst); i += 2 {
		s := float32(e.renderFrame())
		dst[i], dst[i+1] = s, s
	}
}

func (e *Engine) renderFrame() float64 {
	var out float64
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			continue
		}
		v.age++
		env := e.advanceEnv(v)
		if !v.active {
			continue
		}
		out += e.renderWave(v) * env * v.velocity * e.params.Headroom
	}
	out = e.dcBlock(out * e.params.Volume)
	return clamp(out, -1, 1)
}

func (e *Engine) dcBlock(x float64) float64 {
	const r = 0.995
	y := x - e.dcPrevIn + r*e.dcPrevOut
	e.dcPrevIn = x
	e.dcPrevOut = y
	return y
}

// polyBLEP reduces aliasing at waveform discontinuities.
// t is the phase position [0,1), dt is the phase increment per sample.
func polyBLEP(t, dt float64) float64 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

func (e *Engine) renderWave(v *voice) float64 {
	dt := v.freq / e.sampleRate
	v.phase += dt
	if v.phase >= 1 {
		v.phase -= 1
	}
	switch v.wave {
	case WaveSine:
		return math.Sin(twoPi * v.phase)
	case WaveSquare:
		out := -1.0
		if v.phase < 0.5 {
			out = 1
		}
		out += polyBLEP(v.phase, dt)
		out -= polyBLEP(math.Mod(v.phase+0.5, 1), dt)
		return out
	case WaveSawtooth:
		return 2*v.phase - 1 - polyBLEP(v.phase, dt)
	case WaveTriangle:
		return 2*math.Abs(2*v.phase-1) - 1
	default:
		return 0
	}
}

func (e *Engine) findVoice(pitch int) int {
	for i := range e.voices {
		if e.voices[i].active && e.voices[i].pitch == pitch {
			return i
		}
	}
	return -1
}

func (e *Engine) stealVoice() int {
	for i := range e.voices {
		if !e.voices[i].active {
			return i
		}
	}
	// Oldest releasing voice first, then the oldest of all.
	oldestRelease, oldestReleaseAge := -1, -1
	oldestActive, oldestActiveAge := 0, -1
	for i := range e.voices {
		v := &e.voices[i]
		if v.envState == envRelease && v.age > oldestReleaseAge {
			oldestRelease, oldestReleaseAge = i, v.age
		}
		if v.age > oldestActiveAge {
			oldestActive, oldestActiveAge = i, v.age
		}
	}
	if oldestRelease >= 0 {
		return oldestRelease
	}
	return oldestActive
}

func (e *Engine) advanceEnv(v *voice) float64 {
	switch v.envState {
	case envAttack:
		v.env += rate(1, e.params.AttackSec, e.sampleRate)
		if v.env >= 1 {
			v.env = 1
			v.envState = envDecay
		}
	case envDecay:
		v.env -= rate(1-e.params.SustainLvl, e.params.DecaySec, e.sampleRate)
		if v.env <= e.params.SustainLvl {
			v.env = e.params.SustainLvl
			v.envState = envSustain
		}
	case envSustain:
	case envRelease:
		v.env -= rate(math.Max(e.params.SustainLvl, 0.01), e.params.ReleaseSec, e.sampleRate)
		if v.env <= 0.0001 {
			v.env = 0
			v.envState = envOff
			v.active = false
		}
	case envOff:
		v.active = false
		v.env = 0
	}
	return v.env
}

// rate is the per-sample step that covers span in sec seconds.
func rate(span, sec, sampleRate float64) float64 {
	if sec <= 0 || sampleRate <= 0 {
		return 1
	}
	return span / (sec * sampleRate)
}

func midiToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
