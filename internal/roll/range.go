package roll

import "github.com/cbegin/pianoroll-go/internal/script"

// PitchRange spans every note of the primary and ghost sequences. Defined is
// false when both are empty; the other fields are then zero and must not be
// used as layout denominators.
type PitchRange struct {
	Lowest        int
	Highest       int
	LowestLabel   string
	HighestLabel  string
	TotalDuration float64
	Defined       bool
}

// Span is Highest - Lowest. Rows on the roll number Span()+1.
func (r PitchRange) Span() int { return r.Highest - r.Lowest }

// Rows is the number of pitch rows the range occupies.
func (r PitchRange) Rows() int {
	if !r.Defined {
		return 0
	}
	return r.Span() + 1
}

// ComputeRange folds both sequences into one range. It compares the actual
// extreme pitches of the union, so a ghost melody wider than the primary one
// in either direction widens the range.
func ComputeRange(notes, ghost []script.NoteEvent) PitchRange {
	var r PitchRange
	for _, seq := range [][]script.NoteEvent{notes, ghost} {
		for _, n := range seq {
			if !r.Defined {
				r.Lowest, r.Highest = n.Pitch, n.Pitch
				r.LowestLabel, r.HighestLabel = n.Label, n.Label
				r.Defined = true
			}
			if n.Pitch < r.Lowest {
				r.Lowest, r.LowestLabel = n.Pitch, n.Label
			}
			if n.Pitch > r.Highest {
				r.Highest, r.HighestLabel = n.Pitch, n.Label
			}
			if n.End > r.TotalDuration {
				r.TotalDuration = n.End
			}
		}
	}
	if r.Defined {
		if r.LowestLabel == "" {
			r.LowestLabel = script.PitchLabel(r.Lowest)
		}
		if r.HighestLabel == "" {
			r.HighestLabel = script.PitchLabel(r.Highest)
		}
	}
	return r
}

// Window is the visible stretch of the beat timeline.
type Window struct {
	Start float64
	End   float64
}

func (w Window) Length() float64 { return w.End - w.Start }

// NewWindow covers the whole range from beat 0.
func NewWindow(r PitchRange) Window {
	return Window{Start: 0, End: r.TotalDuration}
}

// RowFraction is the vertical position of pitch as a fraction of the roll
// height, 0 at the top row (Highest).
func RowFraction(r PitchRange, pitch int) (float64, bool) {
	if !r.Defined {
		return 0, false
	}
	return float64(r.Highest-pitch) / float64(r.Span()+1), true
}
