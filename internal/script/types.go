package script

import "fmt"

// NoteEvent is one sounding note on the beat timeline. Start and End are in
// beats; End is always greater than Start.
type NoteEvent struct {
	Pitch int
	Label string
	Start float64
	End   float64
}

// Duration returns End - Start.
func (n NoteEvent) Duration() float64 { return n.End - n.Start }

type ParserConfig struct {
	ReferencePitch  int     // pitch of C at the reference octave
	ReferenceOctave int     // octave number that leaves pitches unshifted
	DefaultStep     float64 // beats per note/rest before any step line
}

func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		ReferencePitch:  60,
		ReferenceOctave: 4,
		DefaultStep:     0.25,
	}
}

// ParseError reports the first line that is neither a directive nor a known
// pitch name.
type ParseError struct {
	Line  int
	Token string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: unknown pitch %q", e.Line, e.Token)
}
