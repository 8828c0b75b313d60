// Package canvas draws piano roll frames and the on-screen piano onto ebiten
// images.
package canvas

import (
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/cbegin/pianoroll-go/internal/piano"
	"github.com/cbegin/pianoroll-go/internal/roll"
	"github.com/cbegin/pianoroll-go/internal/script"
)

var (
	rollBgColor    = color.RGBA{24, 24, 32, 255}
	rowAltColor    = color.RGBA{30, 30, 40, 255}
	noteColor      = color.RGBA{80, 170, 255, 255}
	ghostColor     = color.RGBA{90, 90, 110, 255}
	struckColor    = color.RGBA{90, 220, 120, 255}
	hitLineColor   = color.RGBA{255, 80, 80, 255}
	markerColor    = color.RGBA{255, 220, 0, 255}
	whiteKeyColor  = color.RGBA{240, 240, 240, 255}
	blackKeyColor  = color.RGBA{20, 20, 20, 255}
	pressedColor   = color.RGBA{80, 170, 255, 255}
	keyBorderColor = color.RGBA{64, 64, 64, 255}

	// One sprite tint per monster slot.
	monsterPalette = []color.RGBA{
		{255, 120, 120, 255}, {255, 180, 80, 255}, {240, 240, 100, 255}, {120, 230, 120, 255},
		{100, 220, 220, 255}, {120, 160, 255, 255}, {190, 130, 255, 255}, {255, 130, 210, 255},
	}
)

// HitFraction places the hit line this far across the roll during playback.
const HitFraction = 0.2

type spriteKind int

const (
	spriteNote spriteKind = iota
	spriteGhost
	spriteStruck
)

type sprite struct {
	rect  roll.Rect
	kind  spriteKind
	tint  int // monster palette slot, -1 for none
	pitch int
}

// Canvas implements roll.Renderer by drawing into Target inside Bounds.
// Set Target before each roll.Render call.
type Canvas struct {
	Target    *ebiten.Image
	Bounds    image.Rectangle
	BeatWidth float64 // pixels per beat while animating
}

func New(bounds image.Rectangle) *Canvas {
	return &Canvas{Bounds: bounds, BeatWidth: 160}
}

func (c *Canvas) layout() roll.Layout {
	return roll.Layout{Width: float64(c.Bounds.Dx()), Height: float64(c.Bounds.Dy())}
}

func (c *Canvas) DrawRoll(f roll.Frame) {
	c.background(f)
	for _, s := range c.rollSprites(f) {
		c.fill(s.rect, spriteColor(s))
	}
}

func (c *Canvas) DrawAnimation(f roll.Frame) {
	c.background(f)
	hitX := c.hitX()
	for _, s := range c.animationSprites(f) {
		c.fill(s.rect, spriteColor(s))
	}
	c.fill(roll.Rect{X: hitX - 1, Y: 0, W: 2, H: float64(c.Bounds.Dy())}, hitLineColor)
	if frac, ok := c.markerY(f); ok {
		rh := c.layout().RowHeight(f.Range)
		size := math.Min(rh, 10)
		x := hitX - size - 4
		if f.Swing {
			x = hitX + 4
		}
		c.fill(roll.Rect{X: x, Y: frac + (rh-size)/2, W: size, H: size}, markerColor)
	}
}

func (c *Canvas) hitX() float64 { return float64(c.Bounds.Dx()) * HitFraction }

func (c *Canvas) markerY(f roll.Frame) (float64, bool) {
	if !f.Range.Defined {
		return 0, false
	}
	return f.Marker * float64(c.Bounds.Dy()), true
}

// rollSprites lays notes out across the whole window, ghosts underneath.
func (c *Canvas) rollSprites(f roll.Frame) []sprite {
	l := c.layout()
	out := make([]sprite, 0, len(f.Ghost)+len(f.Notes))
	for i, g := range f.Ghost {
		if r, ok := l.NoteRect(f.Range, f.Window, g); ok {
			out = append(out, sprite{rect: r, kind: ghostKind(f.Struck, i), tint: -1, pitch: g.Pitch})
		}
	}
	for _, n := range f.Notes {
		if r, ok := l.NoteRect(f.Range, f.Window, n); ok {
			out = append(out, sprite{rect: r, kind: spriteNote, tint: -1, pitch: n.Pitch})
		}
	}
	return out
}

// animationSprites scrolls notes right to left past the hit line. Sprites
// wholly outside the bounds are dropped.
func (c *Canvas) animationSprites(f roll.Frame) []sprite {
	l := c.layout()
	rh := l.RowHeight(f.Range)
	hitX := c.hitX()
	width := float64(c.Bounds.Dx())
	var out []sprite
	add := func(n script.NoteEvent, kind spriteKind, tint int) {
		frac, ok := roll.RowFraction(f.Range, n.Pitch)
		if !ok {
			return
		}
		x := roll.SpriteX(n, f.Playhead, c.BeatWidth, hitX)
		w := n.Duration() * c.BeatWidth
		if x+w < 0 || x > width {
			return
		}
		out = append(out, sprite{
			rect:  roll.Rect{X: x, Y: frac * l.Height, W: w, H: rh},
			kind:  kind,
			tint:  tint,
			pitch: n.Pitch,
		})
	}
	for i, g := range f.Ghost {
		add(g, ghostKind(f.Struck, i), -1)
	}
	for _, n := range f.Notes {
		add(n, spriteNote, monsterSlot(f, n.Pitch))
	}
	return out
}

func monsterSlot(f roll.Frame, pitch int) int {
	m := f.Monster(pitch)
	if m == "" {
		return -1
	}
	for i, s := range f.Monsters {
		if s == m {
			return i % len(monsterPalette)
		}
	}
	return -1
}

func ghostKind(struck []bool, i int) spriteKind {
	if i < len(struck) && struck[i] {
		return spriteStruck
	}
	return spriteGhost
}

func spriteColor(s sprite) color.Color {
	switch s.kind {
	case spriteGhost:
		return ghostColor
	case spriteStruck:
		return struckColor
	}
	if s.tint >= 0 {
		return monsterPalette[s.tint]
	}
	return noteColor
}

func (c *Canvas) background(f roll.Frame) {
	b := c.Bounds
	ebitenutil.DrawRect(c.Target, float64(b.Min.X), float64(b.Min.Y), float64(b.Dx()), float64(b.Dy()), rollBgColor)
	rh := c.layout().RowHeight(f.Range)
	for row := 0; row < f.Range.Rows(); row++ {
		if piano.IsBlack(f.Range.Highest - row) {
			c.fill(roll.Rect{X: 0, Y: float64(row) * rh, W: float64(b.Dx()), H: rh}, rowAltColor)
		}
	}
}

// fill draws r, given in roll coordinates, clipped to Bounds.
func (c *Canvas) fill(r roll.Rect, clr color.Color) {
	x0 := math.Max(r.X, 0)
	x1 := math.Min(r.X+r.W, float64(c.Bounds.Dx()))
	y0 := math.Max(r.Y, 0)
	y1 := math.Min(r.Y+r.H, float64(c.Bounds.Dy()))
	if x1 <= x0 || y1 <= y0 || c.Target == nil {
		return
	}
	ebitenutil.DrawRect(c.Target, float64(c.Bounds.Min.X)+x0, float64(c.Bounds.Min.Y)+y0, x1-x0, y1-y0, clr)
}

var _ roll.Renderer = (*Canvas)(nil)
