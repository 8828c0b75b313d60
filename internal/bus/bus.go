package bus

// Kind identifies what happened.
type Kind int

const (
	KindNoteOn Kind = iota + 1 // live input pressed a note
	KindNoteOff
	KindTriggerOn // scheduled playback started a note
	KindTriggerOff
	KindPlaybackStarted
	KindPlaybackStopped
	KindPlaybackEnded
	KindNotesChanged
)

func (k Kind) String() string {
	switch k {
	case KindNoteOn:
		return "noteon"
	case KindNoteOff:
		return "noteoff"
	case KindTriggerOn:
		return "trigger-on"
	case KindTriggerOff:
		return "trigger-off"
	case KindPlaybackStarted:
		return "playback-started"
	case KindPlaybackStopped:
		return "playback-stopped"
	case KindPlaybackEnded:
		return "playback-ended"
	case KindNotesChanged:
		return "notes-changed"
	}
	return "unknown"
}

type Source int

const (
	SourceScheduler Source = iota
	SourceMIDI
	SourceKeyboard
	SourcePointer
)

type Event struct {
	Kind     Kind
	Pitch    int
	Label    string
	Velocity float64 // 0..1
	Source   Source
}

type subscriber struct {
	id int
	fn func(Event)
}

// Bus delivers events synchronously, in subscription order, on the
// publisher's goroutine. It is meant for a single event loop and is not safe
// for concurrent use.
type Bus struct {
	subs   map[Kind][]subscriber
	nextID int
}

func New() *Bus {
	return &Bus{subs: make(map[Kind][]subscriber)}
}

// Subscribe registers fn for kind and returns a function that removes it.
func (b *Bus) Subscribe(kind Kind, fn func(Event)) (unsubscribe func()) {
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscriber{id: id, fn: fn})
	return func() {
		list := b.subs[kind]
		for i, s := range list {
			if s.id == id {
				b.subs[kind] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Publish hands ev to every subscriber of ev.Kind. Handlers subscribed or
// removed during delivery take effect from the next Publish.
func (b *Bus) Publish(ev Event) {
	for _, s := range b.subs[ev.Kind] {
		s.fn(ev)
	}
}
