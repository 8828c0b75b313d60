package script

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// scriptLines is the vocabulary the generators draw from; each generated int
// picks one line.
var scriptLines = []string{
	"C", "c#", "D", "D#", "e", "F", "F#", "G", "g#", "A", "A#", "b",
	"rest", "step 1/8", "step 0.5", "step 1", "step 1/3", "step banana",
	"octave 3", "octave 5", "octave 4", "octave x", "octave2", "", "   ",
}

const firstDirective = 12 // scriptLines[:12] are pitch names

func buildScript(picks []int) string {
	lines := make([]string, len(picks))
	for i, p := range picks {
		lines[i] = scriptLines[p]
	}
	return strings.Join(lines, "\n")
}

func TestProperty_ParseIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("same text yields identical notes", prop.ForAll(
		func(picks []int) bool {
			src := buildScript(picks)
			a, errA := newTestParser().Parse(src)
			b, errB := newTestParser().Parse(src)
			return errA == nil && errB == nil && reflect.DeepEqual(a, b)
		},
		gen.SliceOf(gen.IntRange(0, len(scriptLines)-1)),
	))

	properties.TestingRun(t)
}

func TestProperty_NotesWithoutRestsAreContiguous(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("each end equals the next start when no rest intervenes", prop.ForAll(
		func(picks []int) bool {
			filtered := picks[:0:0]
			for _, p := range picks {
				if scriptLines[p] != "rest" {
					filtered = append(filtered, p)
				}
			}
			notes, err := newTestParser().Parse(buildScript(filtered))
			if err != nil {
				return false
			}
			for i, n := range notes {
				if n.End <= n.Start {
					return false
				}
				if i > 0 && notes[i-1].End != n.Start {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(scriptLines)-1)),
	))

	properties.TestingRun(t)
}

func TestProperty_UnknownTokenDiscardsEverything(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("a bad token anywhere empties Compile's result", prop.ForAll(
		func(picks []int, at int) bool {
			lines := strings.Split(buildScript(picks), "\n")
			at = at % (len(lines) + 1)
			lines = append(lines[:at], append([]string{"H"}, lines[at:]...)...)
			return len(newTestParser().Compile(strings.Join(lines, "\n"))) == 0
		},
		gen.SliceOf(gen.IntRange(0, firstDirective-1)),
		gen.IntRange(0, 64),
	))

	properties.TestingRun(t)
}

func TestProperty_FormatRoundTrips(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 150
	properties := gopter.NewProperties(parameters)

	properties.Property("Parse(Format(notes)) reproduces notes", prop.ForAll(
		func(picks []int) bool {
			p := newTestParser()
			first, err := p.Parse(buildScript(picks))
			if err != nil {
				return false
			}
			second, err := p.Parse(Format(first))
			if err != nil || len(first) != len(second) {
				return false
			}
			for i := range first {
				if first[i].Pitch != second[i].Pitch ||
					math.Abs(first[i].Start-second[i].Start) > 1e-6 ||
					math.Abs(first[i].End-second[i].End) > 1e-6 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(scriptLines)-1)),
	))

	properties.TestingRun(t)
}
