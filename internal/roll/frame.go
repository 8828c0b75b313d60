package roll

import (
	"time"

	"github.com/cbegin/pianoroll-go/internal/script"
)

// Frame is everything a renderer needs for one display refresh.
type Frame struct {
	Notes   []script.NoteEvent
	Ghost   []script.NoteEvent
	Struck  []bool // parallel to Ghost
	Range   PitchRange
	Window  Window
	Playing bool
	Elapsed time.Duration // wall clock since play started
	// Playhead is the beat under the hit line. It is negative during the
	// lead-in before the first note.
	Playhead float64
	Swing    bool
	Marker   float64 // row fraction of the last triggered note
	Monsters []string
	Pressed  []int // pitches held on the live keyboard
	BPM      float64
}

// DefaultMonsters is the sprite symbol set rows draw from.
func DefaultMonsters() []string {
	return []string{"👾", "👻", "🐙", "🦑", "🐸", "🦀", "🐌", "🐛", "🦇", "🐍", "🦂", "🐞"}
}

// Monster returns the sprite symbol for a pitch row.
func (f Frame) Monster(pitch int) string {
	if len(f.Monsters) == 0 || !f.Range.Defined {
		return ""
	}
	row := f.Range.Highest - pitch
	if row < 0 {
		row = -row
	}
	return f.Monsters[row%len(f.Monsters)]
}

// Renderer draws frames. DrawRoll is used while stopped and must place notes
// from their beat times alone; DrawAnimation is used while playing.
type Renderer interface {
	DrawRoll(f Frame)
	DrawAnimation(f Frame)
}

// Render dispatches f to the right draw call. It draws nothing and returns
// false when the range is undefined.
func Render(r Renderer, f Frame) bool {
	if !f.Range.Defined {
		return false
	}
	if f.Playing {
		r.DrawAnimation(f)
	} else {
		r.DrawRoll(f)
	}
	return true
}
