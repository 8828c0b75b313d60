package canvas

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/cbegin/pianoroll-go/internal/piano"
)

// DrawPiano draws keys (from piano.Keyboard.Keys) offset to bounds,
// highlighting held pitches.
func DrawPiano(dst *ebiten.Image, bounds image.Rectangle, keys []piano.Key, kb *piano.Keyboard) {
	ox, oy := float64(bounds.Min.X), float64(bounds.Min.Y)
	for _, k := range keys {
		fill := whiteKeyColor
		if k.Black {
			fill = blackKeyColor
		}
		if kb != nil && kb.Pressed(k.Pitch) {
			fill = pressedColor
		}
		x, y := ox+k.Rect.X, oy+k.Rect.Y
		ebitenutil.DrawRect(dst, x, y, k.Rect.W, k.Rect.H, keyBorderColor)
		ebitenutil.DrawRect(dst, x+1, y, k.Rect.W-2, k.Rect.H-1, fill)
	}
}
