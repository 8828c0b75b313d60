package piano

import (
	"fmt"
	"testing"
)

func TestPressRelease(t *testing.T) {
	k := New(48, 72)
	if !k.Press(60) {
		t.Fatalf("first press should register")
	}
	if k.Press(60) {
		t.Fatalf("second press of a held key should not register")
	}
	if k.Press(90) {
		t.Fatalf("out of range press should not register")
	}
	if !k.Pressed(60) {
		t.Fatalf("60 should be held")
	}
	if !k.Release(60) || k.Release(60) {
		t.Fatalf("release should report only the first time")
	}
}

func TestReleaseAll(t *testing.T) {
	k := New(DefaultLow, DefaultHigh)
	for _, p := range []int{64, 60, 67} {
		k.Press(p)
	}
	if got := fmt.Sprint(k.ReleaseAll()); got != "[60 64 67]" {
		t.Fatalf("ReleaseAll = %s", got)
	}
	if len(k.Held()) != 0 {
		t.Fatalf("keys still held after ReleaseAll")
	}
}

func TestNewSwapsInvertedRange(t *testing.T) {
	k := New(72, 60)
	if k.Low() != 60 || k.High() != 72 {
		t.Fatalf("range = %d..%d", k.Low(), k.High())
	}
}

func TestIsBlack(t *testing.T) {
	var got []bool
	for p := 60; p < 72; p++ {
		got = append(got, IsBlack(p))
	}
	want := "[false true false true false false true false true false true false]"
	if fmt.Sprint(got) != want {
		t.Fatalf("IsBlack over an octave = %v", got)
	}
}

func TestKeysLayout(t *testing.T) {
	k := New(60, 71)
	keys := k.Keys(700, 100)
	if len(keys) != 12 {
		t.Fatalf("expected 12 keys, got %d", len(keys))
	}
	for i := 0; i < 7; i++ {
		if keys[i].Black {
			t.Fatalf("white keys must come first")
		}
		if keys[i].Rect.W != 100 || keys[i].Rect.X != float64(i)*100 {
			t.Fatalf("white key %d rect %+v", i, keys[i].Rect)
		}
	}
	cs := keys[7]
	if cs.Pitch != 61 || !cs.Black {
		t.Fatalf("first black key = %+v", cs)
	}
	if cs.Rect.X != 70 || cs.Rect.W != 60 || cs.Rect.H != 62 {
		t.Fatalf("C# rect = %+v", cs.Rect)
	}
	if k.Keys(0, 100) != nil {
		t.Fatalf("zero width should give no keys")
	}
}

func TestHitTestBlackWins(t *testing.T) {
	keys := New(60, 71).Keys(700, 100)
	cases := []struct {
		x, y  float64
		pitch int
		ok    bool
	}{
		{50, 90, 60, true},  // C, below the black keys
		{95, 30, 61, true},  // overlap of C and C#
		{95, 80, 60, true},  // same x, below C#
		{110, 30, 61, true}, // right half of C#
		{650, 50, 71, true},
		{701, 50, 0, false},
		{50, 101, 0, false},
	}
	for _, tc := range cases {
		p, ok := HitTest(keys, tc.x, tc.y)
		if ok != tc.ok || p != tc.pitch {
			t.Fatalf("HitTest(%v,%v) = %d,%v want %d,%v", tc.x, tc.y, p, ok, tc.pitch, tc.ok)
		}
	}
}

func TestKeyPitch(t *testing.T) {
	cases := []struct {
		name   string
		octave int
		want   int
		ok     bool
	}{
		{"A", 4, 60, true},
		{"w", 4, 61, true},
		{"K", 4, 72, true},
		{"A", 3, 48, true},
		{"J", 5, 83, true},
		{"Q", 4, 0, false},
	}
	for _, tc := range cases {
		got, ok := KeyPitch(tc.name, tc.octave)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("KeyPitch(%q,%d) = %d,%v", tc.name, tc.octave, got, ok)
		}
	}
	for _, n := range KeyNames() {
		if _, ok := KeyPitch(n, 4); !ok {
			t.Fatalf("listed key %q is not mapped", n)
		}
	}
}
