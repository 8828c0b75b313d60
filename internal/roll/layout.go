package roll

import (
	"math"

	"github.com/cbegin/pianoroll-go/internal/script"
)

// StrikeEpsilon is how close (in beats) a primary note must start to a ghost
// note of the same pitch for the ghost to count as struck.
const StrikeEpsilon = 0.001

type Rect struct {
	X, Y, W, H float64
}

// Layout maps beats and pitches onto a drawing surface of the given size.
type Layout struct {
	Width  float64
	Height float64
}

// RowHeight is the height of one pitch row, or 0 for an undefined range.
func (l Layout) RowHeight(r PitchRange) float64 {
	if !r.Defined {
		return 0
	}
	return l.Height / float64(r.Span()+1)
}

// NoteRect positions n on the static roll. It reports false when the range or
// window cannot be laid out.
func (l Layout) NoteRect(r PitchRange, w Window, n script.NoteEvent) (Rect, bool) {
	frac, ok := RowFraction(r, n.Pitch)
	if !ok || w.Length() <= 0 {
		return Rect{}, false
	}
	scale := l.Width / w.Length()
	return Rect{
		X: (n.Start - w.Start) * scale,
		Y: frac * l.Height,
		W: n.Duration() * scale,
		H: l.RowHeight(r),
	}, true
}

// SpriteX is the horizontal position of a note sprite during playback: notes
// travel right to left and reach hitX when the playhead reaches their start.
func SpriteX(n script.NoteEvent, playhead, pxPerBeat, hitX float64) float64 {
	return hitX + (n.Start-playhead)*pxPerBeat
}

// Struck flags, for each ghost note, whether some primary note has the same
// pitch and starts within StrikeEpsilon of it.
func Struck(ghost, notes []script.NoteEvent) []bool {
	out := make([]bool, len(ghost))
	if len(ghost) == 0 || len(notes) == 0 {
		return out
	}
	byPitch := make(map[int][]float64, len(notes))
	for _, n := range notes {
		byPitch[n.Pitch] = append(byPitch[n.Pitch], n.Start)
	}
	for i, g := range ghost {
		for _, s := range byPitch[g.Pitch] {
			if math.Abs(s-g.Start) < StrikeEpsilon {
				out[i] = true
				break
			}
		}
	}
	return out
}
