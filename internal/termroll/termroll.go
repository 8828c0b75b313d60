// Package termroll draws piano roll frames as terminal text.
package termroll

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cbegin/pianoroll-go/internal/roll"
	"github.com/cbegin/pianoroll-go/internal/script"
)

const (
	glyphEmpty  = '·'
	glyphNote   = '█'
	glyphGhost  = '░'
	glyphStruck = '▓'
	glyphHit    = '│'
	glyphMarker = '▶'

	DefaultCellsPerBeat = 8
)

type cell int

const (
	cellEmpty cell = iota
	cellGhost
	cellStruck
	cellNote
	cellHit
)

// Renderer implements roll.Renderer and keeps the last drawn frame as text.
type Renderer struct {
	Cols         int
	CellsPerBeat float64 // animation scroll speed

	label  lipgloss.Style
	styles [5]lipgloss.Style
	header lipgloss.Style
	out    string
}

// New returns a renderer drawing Cols cells per row. A nil lr uses the
// default lipgloss renderer.
func New(cols int, lr *lipgloss.Renderer) *Renderer {
	if lr == nil {
		lr = lipgloss.DefaultRenderer()
	}
	if cols < 8 {
		cols = 8
	}
	r := &Renderer{Cols: cols, CellsPerBeat: DefaultCellsPerBeat}
	r.label = lr.NewStyle().Foreground(lipgloss.Color("#888")).Width(4)
	r.header = lr.NewStyle().Foreground(lipgloss.Color("#fff")).Bold(true)
	r.styles[cellEmpty] = lr.NewStyle().Foreground(lipgloss.Color("#444"))
	r.styles[cellGhost] = lr.NewStyle().Foreground(lipgloss.Color("#666"))
	r.styles[cellStruck] = lr.NewStyle().Foreground(lipgloss.Color("#5f5"))
	r.styles[cellNote] = lr.NewStyle().Foreground(lipgloss.Color("#5af"))
	r.styles[cellHit] = lr.NewStyle().Foreground(lipgloss.Color("#f55"))
	return r
}

// String is the last frame drawn.
func (r *Renderer) String() string { return r.out }

func (r *Renderer) DrawRoll(f roll.Frame) {
	grid := r.grid(f.Range)
	length := f.Window.Length()
	if length > 0 {
		scale := float64(r.Cols) / length
		place := func(n script.NoteEvent, c cell) {
			from := int(math.Floor((n.Start - f.Window.Start) * scale))
			to := int(math.Round((n.End - f.Window.Start) * scale))
			r.fill(grid, f.Range, n.Pitch, from, to, c)
		}
		for i, g := range f.Ghost {
			place(g, ghostCell(f.Struck, i))
		}
		for _, n := range f.Notes {
			place(n, cellNote)
		}
	}
	head := fmt.Sprintf("%s..%s  %g beats  %g bpm", f.Range.LowestLabel, f.Range.HighestLabel, f.Range.TotalDuration, f.BPM)
	r.out = r.compose(head, f, grid, -1, false)
}

func (r *Renderer) DrawAnimation(f roll.Frame) {
	grid := r.grid(f.Range)
	hit := r.Cols / 4
	place := func(n script.NoteEvent, c cell) {
		x := roll.SpriteX(n, f.Playhead, r.CellsPerBeat, float64(hit))
		from := int(math.Floor(x))
		to := int(math.Floor(x + n.Duration()*r.CellsPerBeat))
		r.fill(grid, f.Range, n.Pitch, from, to, c)
	}
	for i, g := range f.Ghost {
		place(g, ghostCell(f.Struck, i))
	}
	for _, n := range f.Notes {
		place(n, cellNote)
	}
	for _, row := range grid {
		if row[hit] == cellEmpty {
			row[hit] = cellHit
		}
	}
	marker := -1
	if f.Range.Defined {
		marker = int(math.Round(f.Marker * float64(f.Range.Rows())))
	}
	beat := '♪'
	if f.Swing {
		beat = '♫'
	}
	head := fmt.Sprintf("%c %s  %g bpm", beat, roll.FormatDuration(f.Elapsed), f.BPM)
	r.out = r.compose(head, f, grid, marker, true)
}

func ghostCell(struck []bool, i int) cell {
	if i < len(struck) && struck[i] {
		return cellStruck
	}
	return cellGhost
}

func (r *Renderer) grid(pr roll.PitchRange) [][]cell {
	grid := make([][]cell, pr.Rows())
	for i := range grid {
		grid[i] = make([]cell, r.Cols)
	}
	return grid
}

// fill marks [from, to) on pitch's row, clipped to the grid. Every note
// covers at least one cell when its start is visible.
func (r *Renderer) fill(grid [][]cell, pr roll.PitchRange, pitch, from, to int, c cell) {
	row := pr.Highest - pitch
	if row < 0 || row >= len(grid) {
		return
	}
	if to <= from {
		to = from + 1
	}
	for x := max(from, 0); x < min(to, r.Cols); x++ {
		grid[row][x] = c
	}
}

func (r *Renderer) compose(head string, f roll.Frame, grid [][]cell, marker int, monsters bool) string {
	var b strings.Builder
	b.WriteString(r.header.Render(head))
	for i, row := range grid {
		pitch := f.Range.Highest - i
		b.WriteByte('\n')
		if i == marker {
			b.WriteRune(glyphMarker)
		} else {
			b.WriteByte(' ')
		}
		b.WriteString(r.label.Render(script.PitchLabel(pitch)))
		if monsters {
			if m := f.Monster(pitch); m != "" {
				b.WriteString(m)
				b.WriteByte(' ')
			}
		}
		r.writeRow(&b, row)
	}
	return b.String()
}

// writeRow styles runs of equal cells together.
func (r *Renderer) writeRow(b *strings.Builder, row []cell) {
	start := 0
	for i := 1; i <= len(row); i++ {
		if i < len(row) && row[i] == row[start] {
			continue
		}
		run := strings.Repeat(string(glyph(row[start])), i-start)
		b.WriteString(r.styles[row[start]].Render(run))
		start = i
	}
}

func glyph(c cell) rune {
	switch c {
	case cellNote:
		return glyphNote
	case cellGhost:
		return glyphGhost
	case cellStruck:
		return glyphStruck
	case cellHit:
		return glyphHit
	}
	return glyphEmpty
}

var _ roll.Renderer = (*Renderer)(nil)
