package script

import (
	"math"
	"strconv"
	"strings"
)

const formatEpsilon = 1e-9

// Format writes notes back out as script text using the default parser
// configuration. Gaps between notes become rest lines; a gap that is not a
// whole number of current steps gets its own step line first. Overlapping
// notes cannot be expressed and are written back to back.
func Format(notes []NoteEvent) string {
	cfg := DefaultParserConfig()
	var b strings.Builder
	step := cfg.DefaultStep
	octave := cfg.ReferenceOctave
	cursor := 0.0
	setStep := func(d float64) {
		if math.Abs(d-step) < formatEpsilon {
			return
		}
		step = d
		b.WriteString("step ")
		b.WriteString(strconv.FormatFloat(d, 'g', -1, 64))
		b.WriteByte('\n')
	}
	for _, n := range notes {
		if gap := n.Start - cursor; gap > formatEpsilon {
			k := math.Round(gap / step)
			if k < 1 || math.Abs(k*step-gap) > formatEpsilon {
				setStep(gap)
				k = 1
			}
			for i := 0; i < int(k); i++ {
				b.WriteString("rest\n")
				cursor += step
			}
		}
		setStep(n.End - n.Start)
		rel := n.Pitch - cfg.ReferencePitch
		if o := cfg.ReferenceOctave + floorDiv(rel, 12); o != octave {
			octave = o
			b.WriteString("octave ")
			b.WriteString(strconv.Itoa(o))
			b.WriteByte('\n')
		}
		b.WriteString(pitchNames[mod(rel, 12)])
		b.WriteByte('\n')
		cursor += step
	}
	return b.String()
}
