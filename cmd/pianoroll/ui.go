package main

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	textScale = 2
	charW     = 7 * textScale
	lineH     = 14 * textScale

	textCacheMax = 3000
)

var (
	bgColor        = color.RGBA{192, 192, 192, 255}
	panelColor     = color.RGBA{192, 192, 192, 255}
	borderColor    = color.RGBA{128, 128, 128, 255}
	highlightColor = color.RGBA{0, 0, 128, 255}

	bevelLight  = color.RGBA{255, 255, 255, 255}
	bevelDarker = color.RGBA{64, 64, 64, 255}

	sunkenBgColor   = color.RGBA{24, 24, 32, 255}
	sliderFillColor = color.RGBA{0, 0, 128, 255}
	cursorColor     = color.RGBA{255, 255, 255, 255}
)

type uiLayout struct {
	nav, editor, roll, piano   image.Rectangle
	play, wave, slower, faster image.Rectangle
	tempo, volume, status      image.Rectangle
}

func (g *game) layoutRects() uiLayout {
	w := max(g.viewW, minWindowW)
	h := max(g.viewH, minWindowH)

	pad := 20
	rowH := 44
	statusH := 40
	pianoH := 110

	statusTop := h - pad - statusH
	controlsTop := statusTop - 8 - rowH
	pianoTop := controlsTop - 12 - pianoH

	navW := 260
	contentBottom := pianoTop - 12
	navRect := image.Rect(pad, pad, pad+navW, contentBottom)

	rightX := navRect.Max.X + 12
	rightW := max(w-rightX-pad, 320)
	editorH := max(120, (contentBottom-pad)/3)
	editorRect := image.Rect(rightX, pad, rightX+rightW, pad+editorH)
	rollRect := image.Rect(rightX, editorRect.Max.Y+12, rightX+rightW, contentBottom)

	pianoRect := image.Rect(pad, pianoTop, w-pad, pianoTop+pianoH)

	playRect := image.Rect(pad, controlsTop, pad+130, controlsTop+rowH)
	waveRect := image.Rect(pad+142, controlsTop, pad+400, controlsTop+rowH)
	slowerRect := image.Rect(pad+412, controlsTop, pad+456, controlsTop+rowH)
	tempoRect := image.Rect(pad+462, controlsTop, pad+608, controlsTop+rowH)
	fasterRect := image.Rect(pad+614, controlsTop, pad+658, controlsTop+rowH)
	volRight := min(pad+670+300, w-pad)
	volumeRect := image.Rect(pad+670, controlsTop, volRight, controlsTop+rowH)

	statusRect := image.Rect(pad, statusTop, w-pad, statusTop+statusH)

	return uiLayout{
		nav: navRect, editor: editorRect, roll: rollRect, piano: pianoRect,
		play: playRect, wave: waveRect, slower: slowerRect, faster: fasterRect,
		tempo: tempoRect, volume: volumeRect, status: statusRect,
	}
}

func (g *game) drawNavigator(screen *ebiten.Image, rect image.Rectangle) {
	maxChars := max(8, (rect.Dx()-16)/charW)
	g.drawText(screen, "Songs", rect.Min.X+8, rect.Min.Y+8)

	top := rect.Min.Y + 12 + lineH
	maxLines := max(1, (rect.Dy()-lineH-18)/lineH)
	if g.navScroll > len(g.names)-1 {
		g.navScroll = max(0, len(g.names)-1)
	}
	for i := 0; i < maxLines; i++ {
		idx := g.navScroll + i
		if idx >= len(g.names) {
			break
		}
		y := top + i*lineH
		if idx == g.songIdx {
			ebitenutil.DrawRect(screen, float64(rect.Min.X+6), float64(y-2), float64(rect.Dx()-12), float64(lineH+2), highlightColor)
		}
		g.drawText(screen, shortenEnd(g.names[idx], maxChars-1), rect.Min.X+10, y)
	}
}

func (g *game) drawEditor(screen *ebiten.Image, rect image.Rectangle) {
	if g.focus == focusEditor {
		inner := rect.Inset(2)
		ebitenutil.DrawRect(screen, float64(inner.Min.X), float64(inner.Min.Y), float64(inner.Dx()), 2, highlightColor)
	}
	top := rect.Min.Y + 10
	maxLines := max(1, (rect.Dy()-20)/lineH)
	maxChars := max(8, (rect.Dx()-16)/charW)

	text := string(g.editor)
	if text == "" && g.focus != focusEditor {
		g.drawText(screen, shortenEnd(editorPlaceholder, maxChars), rect.Min.X+8, top)
		return
	}
	lines := strings.Split(text, "\n")
	// keep the line being typed on screen
	first := max(0, len(lines)-maxLines)
	for i, line := range lines[first:] {
		g.drawText(screen, shortenEnd(line, maxChars), rect.Min.X+8, top+i*lineH)
	}
	if g.focus == focusEditor && (g.frameTick/30)%2 == 0 {
		last := []rune(lines[len(lines)-1])
		x := rect.Min.X + 8 + min(len(last), maxChars)*charW
		y := top + (len(lines)-1-first)*lineH
		ebitenutil.DrawRect(screen, float64(x), float64(y), 2, float64(lineH-4), cursorColor)
	}
}

func (g *game) drawTempo(screen *ebiten.Image, rect image.Rectangle) {
	g.drawSunkenPanel(screen, rect)
	label := fmt.Sprintf("%g bpm", g.session.BPM())
	x := rect.Min.X + (rect.Dx()-len(label)*charW)/2
	g.drawText(screen, label, x, rect.Min.Y+(rect.Dy()-lineH)/2)
}

func (g *game) drawStatus(screen *ebiten.Image, rect image.Rectangle) {
	msg := "Status: " + g.status
	if g.statusErr {
		msg = "Status: ERROR - " + g.status
	}
	maxChars := max(8, (rect.Dx()-16)/charW)
	g.drawText(screen, shortenEnd(msg, maxChars), rect.Min.X+8, rect.Min.Y+6)
}

func (g *game) drawVolumeSlider(screen *ebiten.Image, rect image.Rectangle) {
	g.drawPanel(screen, rect)
	g.drawText(screen, fmt.Sprintf("Vol %d%%", int(g.volume*100+0.5)), rect.Min.X+8, rect.Min.Y+8)

	trackX := rect.Min.X + 130
	trackW := rect.Dx() - 146
	trackY := rect.Min.Y + rect.Dy()/2 - 4
	if trackW < 20 {
		return
	}
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(trackW), 8, bevelDarker)
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(trackW-1), 1, borderColor)
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), 1, 7, borderColor)
	fillW := int(float64(trackW) * clamp(g.volume, 0, 1))
	if fillW > 2 {
		ebitenutil.DrawRect(screen, float64(trackX+1), float64(trackY+1), float64(fillW-1), 6, sliderFillColor)
	}
	knobX := min(max(trackX+fillW-5, trackX-5), trackX+trackW-5)
	knobRect := image.Rect(knobX, trackY-4, knobX+10, trackY+12)
	ebitenutil.DrawRect(screen, float64(knobRect.Min.X), float64(knobRect.Min.Y), float64(knobRect.Dx()), float64(knobRect.Dy()), panelColor)
	drawBorder(screen, knobRect)
}

func (g *game) drawPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), panelColor)
	drawBorder(screen, rect)
}

func (g *game) drawSunkenPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), sunkenBgColor)
	drawSunkenBorder(screen, rect)
}

func (g *game) drawDarkPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), color.RGBA{0, 0, 0, 255})
	drawSunkenBorder(screen, rect)
}

func (g *game) drawButton(screen *ebiten.Image, rect image.Rectangle, label string) {
	g.drawPanel(screen, rect)
	labelW := len([]rune(label)) * charW
	x := rect.Min.X + (rect.Dx()-labelW)/2
	y := rect.Min.Y + (rect.Dy()-lineH)/2
	g.drawText(screen, label, x, y)
}

func drawBorder(screen *ebiten.Image, rect image.Rectangle)       { drawBevel(screen, rect, true) }
func drawSunkenBorder(screen *ebiten.Image, rect image.Rectangle) { drawBevel(screen, rect, false) }

// drawBevel draws a two-pixel 3D edge. Raised edges are lit top/left;
// sunken ones are lit bottom/right with an inner shadow on top/left.
func drawBevel(dst *ebiten.Image, rect image.Rectangle, raised bool) {
	x, y := float32(rect.Min.X), float32(rect.Min.Y)
	w, h := float32(rect.Dx()), float32(rect.Dy())
	lit, shade := color.Color(bevelLight), color.Color(bevelDarker)
	if !raised {
		lit, shade = borderColor, bevelLight
	}
	line := func(x0, y0, lw, lh float32, c color.Color) {
		vector.DrawFilledRect(dst, x0, y0, lw, lh, c, false)
	}
	line(x, y, w-1, 1, lit)
	line(x, y+1, 1, h-2, lit)
	line(x, y+h-1, w, 1, shade)
	line(x+w-1, y, 1, h, shade)
	if raised {
		line(x+1, y+h-2, w-3, 1, borderColor)
		line(x+w-2, y+1, 1, h-3, borderColor)
		return
	}
	line(x+1, y+1, w-3, 1, bevelDarker)
	line(x+1, y+2, 1, h-4, bevelDarker)
}

// drawText prints msg at the debug font scaled up, over a one-step drop
// shadow. Rendered strings are cached until the cache grows past textCacheMax.
func (g *game) drawText(screen *ebiten.Image, msg string, x int, y int) {
	if msg == "" {
		return
	}
	img, ok := g.textCache[msg]
	if !ok {
		img = ebiten.NewImage(max(1, len([]rune(msg))*7), 14)
		ebitenutil.DebugPrintAt(img, msg, 0, 0)
		if len(g.textCache) >= textCacheMax {
			clear(g.textCache)
		}
		g.textCache[msg] = img
	}
	for _, shadow := range []bool{true, false} {
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(textScale, textScale)
		off := 0
		if shadow {
			off = 2
			op.ColorScale.Scale(0, 0, 0, 1)
		}
		op.GeoM.Translate(float64(x+off), float64(y+off))
		screen.DrawImage(img, op)
	}
}

func shortenEnd(s string, maxChars int) string {
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	if maxChars <= 3 {
		return string(r[:max(0, maxChars)])
	}
	return string(r[:maxChars-3]) + "..."
}

func clamp(v, minV, maxV float64) float64 {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func pointInRect(x, y int, rect image.Rectangle) bool {
	return x >= rect.Min.X && x < rect.Max.X && y >= rect.Min.Y && y < rect.Max.Y
}
