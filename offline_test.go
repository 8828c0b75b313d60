package pianoroll

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/cbegin/pianoroll-go/internal/script"
)

func parseNotes(t *testing.T, src string) []script.NoteEvent {
	t.Helper()
	notes, err := script.NewParser(script.DefaultParserConfig()).Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return notes
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func TestRenderSamplesLength(t *testing.T) {
	notes := parseNotes(t, "step 1\nC\nD")
	out := RenderSamples(notes, RenderOptions{SampleRate: 8000, TailSec: 0.25})
	// two beats at 120 bpm is 2s, plus a 0.25s tail
	if want := (16000 + 2000) * 2; len(out) != want {
		t.Fatalf("len = %d, want %d", len(out), want)
	}

	lead := RenderSamples(notes, RenderOptions{SampleRate: 8000, LeadIn: true})
	if want := (20000) * 2; len(lead) != want {
		t.Fatalf("lead-in len = %d, want %d", len(lead), want)
	}
}

func TestRenderSamplesTempo(t *testing.T) {
	notes := parseNotes(t, "step 1\nC")
	slow := RenderSamples(notes, RenderOptions{SampleRate: 8000, BPM: 60})
	fast := RenderSamples(notes, RenderOptions{SampleRate: 8000, BPM: 240})
	if len(slow) != 4*len(fast) {
		t.Fatalf("slow=%d fast=%d", len(slow), len(fast))
	}
}

func TestRenderSamplesSilenceInRests(t *testing.T) {
	notes := parseNotes(t, "step 1\nC\nrest\nrest\nE")
	out := RenderSamples(notes, RenderOptions{SampleRate: 8000, Waveform: "sine"})
	frame := func(sec float64) int { return int(sec*8000) * 2 }
	if rms(out[frame(0.1):frame(0.9)]) < 0.01 {
		t.Fatalf("first note should be audible")
	}
	if rms(out[frame(1.8):frame(2.8)]) > 0.001 {
		t.Fatalf("rest should be silent after the release tail")
	}
	if rms(out[frame(3.1):frame(3.9)]) < 0.01 {
		t.Fatalf("last note should be audible")
	}
}

func TestRenderSamplesEmpty(t *testing.T) {
	if out := RenderSamples(nil, RenderOptions{SampleRate: 8000}); len(out) != 0 {
		t.Fatalf("empty melody should render nothing, got %d samples", len(out))
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	samples := []float32{0.5, -0.5, 0.25, -0.25}
	wav := EncodeWAVFloat32LE(samples, 44100, 2)
	if len(wav) != 44+16 {
		t.Fatalf("wav size = %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Fatalf("bad chunk ids")
	}
	if binary.LittleEndian.Uint16(wav[20:]) != 3 {
		t.Fatalf("format should be IEEE float")
	}
	if binary.LittleEndian.Uint32(wav[24:]) != 44100 {
		t.Fatalf("sample rate not written")
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(wav[44:])); got != 0.5 {
		t.Fatalf("first sample = %v", got)
	}
}
