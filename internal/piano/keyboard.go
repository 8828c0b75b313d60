// Package piano models the on-screen keyboard: which keys are held, where
// each key is drawn, and how computer keys map to pitches.
package piano

import (
	"sort"
	"strings"

	"github.com/cbegin/pianoroll-go/internal/roll"
)

const (
	DefaultLow  = 48 // C3
	DefaultHigh = 83 // B5

	blackWidth  = 0.6
	blackHeight = 0.62
)

// Keyboard tracks held keys over a fixed pitch range.
type Keyboard struct {
	low, high int
	pressed   map[int]bool
}

func New(low, high int) *Keyboard {
	if high < low {
		low, high = high, low
	}
	return &Keyboard{low: low, high: high, pressed: make(map[int]bool)}
}

func (k *Keyboard) Low() int  { return k.low }
func (k *Keyboard) High() int { return k.high }

func (k *Keyboard) InRange(pitch int) bool { return pitch >= k.low && pitch <= k.high }

// Press marks pitch as held. It reports false when the pitch is outside the
// keyboard or already held.
func (k *Keyboard) Press(pitch int) bool {
	if !k.InRange(pitch) || k.pressed[pitch] {
		return false
	}
	k.pressed[pitch] = true
	return true
}

// Release reports whether pitch was held.
func (k *Keyboard) Release(pitch int) bool {
	if !k.pressed[pitch] {
		return false
	}
	delete(k.pressed, pitch)
	return true
}

func (k *Keyboard) Pressed(pitch int) bool { return k.pressed[pitch] }

// Held returns the held pitches in ascending order.
func (k *Keyboard) Held() []int {
	out := make([]int, 0, len(k.pressed))
	for p := range k.pressed {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// ReleaseAll clears every held key and returns what was held.
func (k *Keyboard) ReleaseAll() []int {
	held := k.Held()
	clear(k.pressed)
	return held
}

// IsBlack reports whether pitch falls on a black key.
func IsBlack(pitch int) bool {
	switch ((pitch % 12) + 12) % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

type Key struct {
	Pitch int
	Black bool
	Rect  roll.Rect
}

// Keys lays the keyboard out in a width x height box. White keys share the
// width evenly; black keys straddle the boundary after their white key.
// White keys come first in the result.
func (k *Keyboard) Keys(width, height float64) []Key {
	whites := 0
	for p := k.low; p <= k.high; p++ {
		if !IsBlack(p) {
			whites++
		}
	}
	if whites == 0 || width <= 0 || height <= 0 {
		return nil
	}
	ww := width / float64(whites)
	keys := make([]Key, 0, k.high-k.low+1)
	var blacks []Key
	x := 0.0
	for p := k.low; p <= k.high; p++ {
		if IsBlack(p) {
			bw := ww * blackWidth
			blacks = append(blacks, Key{
				Pitch: p,
				Black: true,
				Rect:  roll.Rect{X: x - bw/2, Y: 0, W: bw, H: height * blackHeight},
			})
			continue
		}
		keys = append(keys, Key{Pitch: p, Rect: roll.Rect{X: x, Y: 0, W: ww, H: height}})
		x += ww
	}
	return append(keys, blacks...)
}

// HitTest finds the key under (x, y). Black keys sit on top of white keys
// and win when both contain the point.
func HitTest(keys []Key, x, y float64) (int, bool) {
	for _, k := range keys {
		if k.Black && contains(k.Rect, x, y) {
			return k.Pitch, true
		}
	}
	for _, k := range keys {
		if !k.Black && contains(k.Rect, x, y) {
			return k.Pitch, true
		}
	}
	return 0, false
}

func contains(r roll.Rect, x, y float64) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// tracker-style home row: one octave plus the next C
var keyOffsets = map[string]int{
	"a": 0, "w": 1, "s": 2, "e": 3, "d": 4, "f": 5, "t": 6,
	"g": 7, "y": 8, "h": 9, "u": 10, "j": 11, "k": 12,
}

// KeyNames lists the mapped computer keys from lowest to highest pitch.
func KeyNames() []string {
	return []string{"A", "W", "S", "E", "D", "F", "T", "G", "Y", "H", "U", "J", "K"}
}

// KeyPitch maps a computer key name to a pitch, with A on C of baseOctave
// (octave 4 puts A on middle C, 60).
func KeyPitch(name string, baseOctave int) (int, bool) {
	off, ok := keyOffsets[strings.ToLower(name)]
	if !ok {
		return 0, false
	}
	return (baseOctave+1)*12 + off, true
}
