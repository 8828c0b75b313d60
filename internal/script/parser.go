package script

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/cbegin/pianoroll-go/internal/logger"
)

var pitchNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var pitchOffsets = map[string]int{
	"c": 0, "c#": 1, "d": 2, "d#": 3, "e": 4, "f": 5,
	"f#": 6, "g": 7, "g#": 8, "a": 9, "a#": 10, "b": 11,
}

type Parser struct {
	cfg ParserConfig
	log *slog.Logger
}

func NewParser(cfg ParserConfig) *Parser {
	if cfg.DefaultStep <= 0 {
		cfg.DefaultStep = DefaultParserConfig().DefaultStep
	}
	return &Parser{cfg: cfg}
}

// WithLogger sets the logger Compile reports rejected scripts to.
func (p *Parser) WithLogger(l *slog.Logger) *Parser {
	p.log = l
	return p
}

type state struct {
	octave int // offset from the reference octave
	step   float64
	cursor float64
}

// Parse compiles script text into notes. The first unknown pitch token fails
// the whole parse with a *ParseError; malformed octave and step arguments keep
// the previous value.
func (p *Parser) Parse(input string) ([]NoteEvent, error) {
	st := state{step: p.cfg.DefaultStep}
	notes := make([]NoteEvent, 0, 64)
	for i, raw := range strings.Split(input, "\n") {
		line := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "octave"):
			if arg, ok := directiveArg(line, "octave"); ok {
				if n, err := strconv.Atoi(arg); err == nil {
					st.octave = n - p.cfg.ReferenceOctave
				}
			}
		case strings.HasPrefix(line, "step"):
			if arg, ok := directiveArg(line, "step"); ok {
				if d, ok := parseStep(arg); ok {
					st.step = d
				}
			}
		case line == "rest":
			st.cursor += st.step
		default:
			offset, ok := pitchOffsets[line]
			if !ok {
				return nil, &ParseError{Line: i + 1, Token: strings.TrimSpace(raw)}
			}
			pitch := p.cfg.ReferencePitch + offset + st.octave*12
			end := st.cursor + st.step
			notes = append(notes, NoteEvent{
				Pitch: pitch,
				Label: p.label(pitch),
				Start: st.cursor,
				End:   end,
			})
			st.cursor = end
		}
	}
	return notes, nil
}

// Compile is the forgiving entry point used while a script is being typed:
// any parse failure is logged and yields an empty sequence.
func (p *Parser) Compile(input string) []NoteEvent {
	notes, err := p.Parse(input)
	if err != nil {
		l := p.log
		if l == nil {
			l = logger.Get()
		}
		l.Debug("script rejected", "err", err)
		return []NoteEvent{}
	}
	return notes
}

func (p *Parser) label(pitch int) string {
	return labelFor(pitch, p.cfg.ReferencePitch, p.cfg.ReferenceOctave)
}

// directiveArg returns the text after "<name> ". A directive not followed by
// whitespace is ignored.
func directiveArg(line, name string) (string, bool) {
	rest := line[len(name):]
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// parseStep accepts a decimal beat length or a note fraction A/B, which means
// 1/(B/A) beats: "1/8" is 0.125.
func parseStep(arg string) (float64, bool) {
	var d float64
	if num, den, ok := strings.Cut(arg, "/"); ok {
		a, errA := strconv.ParseFloat(strings.TrimSpace(num), 64)
		b, errB := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if errA != nil || errB != nil {
			return 0, false
		}
		d = 1 / (b / a)
	} else {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return 0, false
		}
		d = v
	}
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return 0, false
	}
	return d, true
}

// PitchLabel names a pitch with the default reference (60 = "C4").
func PitchLabel(pitch int) string {
	cfg := DefaultParserConfig()
	return labelFor(pitch, cfg.ReferencePitch, cfg.ReferenceOctave)
}

func labelFor(pitch, refPitch, refOctave int) string {
	rel := pitch - refPitch
	return pitchNames[mod(rel, 12)] + strconv.Itoa(refOctave+floorDiv(rel, 12))
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

func floorDiv(a, n int) int {
	q := a / n
	if a%n != 0 && (a < 0) != (n < 0) {
		q--
	}
	return q
}
