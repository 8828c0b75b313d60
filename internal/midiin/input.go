package midiin

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/cbegin/pianoroll-go/internal/bus"
	"github.com/cbegin/pianoroll-go/internal/logger"
)

const defaultBuffer = 256

var ErrNoPort = errors.New("no matching midi input")

// Translate maps a MIDI message to a live note event. A note-on with
// velocity 0 is a note-off. Other messages report false.
func Translate(msg midi.Message) (bus.Event, bool) {
	var ch, key, vel uint8
	if msg.GetNoteStart(&ch, &key, &vel) {
		return bus.Event{
			Kind:     bus.KindNoteOn,
			Pitch:    int(key),
			Velocity: float64(vel) / 127,
			Source:   bus.SourceMIDI,
		}, true
	}
	if msg.GetNoteEnd(&ch, &key) {
		return bus.Event{Kind: bus.KindNoteOff, Pitch: int(key), Source: bus.SourceMIDI}, true
	}
	return bus.Event{}, false
}

// Input listens to one MIDI port on the driver's goroutine and hands note
// events to the host loop through a buffered channel.
type Input struct {
	mu     sync.Mutex
	port   drivers.In
	stop   func()
	events chan bus.Event
	log    *slog.Logger
}

// Open starts listening on port, opening it first if needed.
func Open(port drivers.In) (*Input, error) {
	if port == nil {
		return nil, ErrNoPort
	}
	if !port.IsOpen() {
		if err := port.Open(); err != nil {
			return nil, fmt.Errorf("open %q: %w", port.String(), err)
		}
	}
	in := newInput(logger.Get())
	in.port = port
	name := port.String()
	stop, err := midi.ListenTo(port, func(msg midi.Message, _ int32) {
		in.handle(msg)
	}, midi.HandleError(func(err error) {
		in.log.Warn("midi: listener error", "device", name, "err", err)
	}))
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("listen %q: %w", name, err)
	}
	in.stop = stop
	in.log.Info("midi: connected", "device", name)
	return in, nil
}

// OpenByName opens the first input of drv whose name contains name,
// ignoring case. An empty name picks the first input.
func OpenByName(drv drivers.Driver, name string) (*Input, error) {
	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list inputs: %w", err)
	}
	for _, p := range ins {
		if name == "" || containsCI(p.String(), name) {
			return Open(p)
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoPort, name)
}

// Ports lists the input names drv reports.
func Ports(drv drivers.Driver) ([]string, error) {
	ins, err := drv.Ins()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ins))
	for _, p := range ins {
		names = append(names, p.String())
	}
	return names, nil
}

func newInput(log *slog.Logger) *Input {
	return &Input{events: make(chan bus.Event, defaultBuffer), log: log}
}

// handle runs on the driver goroutine. Events that do not fit in the buffer
// are dropped.
func (in *Input) handle(msg midi.Message) {
	ev, ok := Translate(msg)
	if !ok {
		in.log.Debug("midi: unhandled message", "msg", msg.String())
		return
	}
	select {
	case in.events <- ev:
	default:
		in.log.Warn("midi: event dropped", "kind", ev.Kind.String(), "pitch", ev.Pitch)
	}
}

// Drain passes every buffered event to fn without blocking and returns how
// many it delivered. Call it from the host loop.
func (in *Input) Drain(fn func(bus.Event)) int {
	n := 0
	for {
		select {
		case ev := <-in.events:
			fn(ev)
			n++
		default:
			return n
		}
	}
}

func (in *Input) Name() string {
	if in.port == nil {
		return ""
	}
	return in.port.String()
}

// Close stops listening and closes the port. It is safe to call twice.
func (in *Input) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.stop != nil {
		in.stop()
		in.stop = nil
	}
	if in.port == nil {
		return nil
	}
	err := in.port.Close()
	in.port = nil
	return err
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
