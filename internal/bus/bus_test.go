package bus

import "testing"

func TestPublishDeliversInOrderByKind(t *testing.T) {
	b := New()
	var got []string
	b.Subscribe(KindNoteOn, func(ev Event) { got = append(got, "first") })
	b.Subscribe(KindNoteOn, func(ev Event) { got = append(got, "second") })
	b.Subscribe(KindNoteOff, func(ev Event) { got = append(got, "off") })

	b.Publish(Event{Kind: KindNoteOn, Pitch: 60})
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("unexpected delivery %v", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	count := 0
	unsub := b.Subscribe(KindTriggerOn, func(Event) { count++ })
	b.Publish(Event{Kind: KindTriggerOn})
	unsub()
	unsub()
	b.Publish(Event{Kind: KindTriggerOn})
	if count != 1 {
		t.Fatalf("expected 1 delivery, got %d", count)
	}
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	b := New()
	var order []int
	var unsubSecond func()
	b.Subscribe(KindPlaybackEnded, func(Event) {
		order = append(order, 1)
		unsubSecond()
	})
	unsubSecond = b.Subscribe(KindPlaybackEnded, func(Event) { order = append(order, 2) })

	b.Publish(Event{Kind: KindPlaybackEnded})
	b.Publish(Event{Kind: KindPlaybackEnded})
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 1 {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestKindString(t *testing.T) {
	if KindNoteOn.String() != "noteon" || KindNoteOff.String() != "noteoff" {
		t.Fatalf("MIDI-style kinds should keep their noteon/noteoff names")
	}
	if Kind(99).String() != "unknown" {
		t.Fatalf("unexpected name for unknown kind")
	}
}
