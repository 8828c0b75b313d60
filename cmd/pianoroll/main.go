package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"golang.org/x/time/rate"

	"github.com/cbegin/pianoroll-go"
	"github.com/cbegin/pianoroll-go/internal/audio"
	"github.com/cbegin/pianoroll-go/internal/bus"
	"github.com/cbegin/pianoroll-go/internal/canvas"
	"github.com/cbegin/pianoroll-go/internal/config"
	"github.com/cbegin/pianoroll-go/internal/logger"
	"github.com/cbegin/pianoroll-go/internal/midiin"
	"github.com/cbegin/pianoroll-go/internal/piano"
	"github.com/cbegin/pianoroll-go/internal/roll"
	"github.com/cbegin/pianoroll-go/internal/songs"
	"github.com/cbegin/pianoroll-go/internal/synth"
)

const (
	windowW    = 1100
	windowH    = 760
	minWindowW = 980
	minWindowH = 680

	editorPlaceholder = "Type a melody: C D E, rest, step 1/8, octave 5"
	doubleClickTicks  = 18
)

var (
	waveforms = []string{"triangle", "square", "sawtooth", "sine"}

	// trackpads report many small wheel deltas per gesture
	wheelLimiter = rate.NewLimiter(rate.Every(60*time.Millisecond), 1)
)

type focus int

const (
	focusPiano focus = iota
	focusEditor
)

type game struct {
	session *pianoroll.Session
	output  *audio.Output
	midi    *midiin.Input
	lib     *songs.Library
	names   []string
	roll    *canvas.Canvas

	songIdx   int
	waveIdx   int
	volume    float64
	octave    int
	focus     focus
	editor    []rune
	navScroll int

	// pitch held by the mouse on the on-screen piano, -1 for none
	mousePitch int
	// computer keys currently down, by ebiten key
	keyPitches map[ebiten.Key]int
	dragVolume bool

	status    string
	statusErr bool

	frameTick        int
	lastNavIdx       int
	lastNavClickTick int

	textCache map[string]*ebiten.Image
	viewW     int
	viewH     int
}

func newGame(cfg *config.Config, lib *songs.Library, initialText string) (*game, error) {
	params := synth.DefaultParams()
	params.Volume = cfg.VolumeOrDefault()
	engine := synth.New(cfg.SampleRate, params)
	if err := engine.SetWaveform(cfg.Waveform); err != nil {
		return nil, err
	}
	out, err := audio.NewOutput(cfg.SampleRate, engine)
	if err != nil {
		return nil, err
	}
	out.Play()

	g := &game{
		session: pianoroll.NewSession(engine,
			pianoroll.WithBPM(cfg.BPM),
			pianoroll.WithMonsters(cfg.Monsters),
			pianoroll.WithLogger(logger.Get()),
		),
		output:     out,
		lib:        lib,
		names:      lib.Names(),
		roll:       canvas.New(image.Rectangle{}),
		volume:     cfg.VolumeOrDefault(),
		octave:     4,
		mousePitch: -1,
		keyPitches: make(map[ebiten.Key]int),
		lastNavIdx: -1,
		status:     "Ready",
		textCache:  make(map[string]*ebiten.Image, 1024),
		viewW:      windowW,
		viewH:      windowH,
	}
	for i, w := range waveforms {
		if w == cfg.Waveform {
			g.waveIdx = i
		}
	}
	g.session.Subscribe(bus.KindPlaybackEnded, func(bus.Event) { g.setStatus("Playback ended") })
	if initialText != "" {
		g.setEditor(initialText)
	} else if len(g.names) > 0 {
		g.loadSong(0)
	}
	g.openMIDI(cfg.MIDIPort)
	return g, nil
}

func (g *game) openMIDI(port string) {
	drv, err := rtmididrv.New()
	if err != nil {
		logger.Get().Warn("midi: driver unavailable", "err", err)
		return
	}
	in, err := midiin.OpenByName(drv, port)
	if err != nil {
		logger.Get().Info("midi: no input", "port", port, "err", err)
		return
	}
	g.midi = in
	g.setStatus("MIDI: " + in.Name())
}

func (g *game) Update() error {
	g.frameTick++
	if g.midi != nil {
		g.midi.Drain(g.session.HandleEvent)
	}
	g.handleKeyboard()
	g.handleMouse()
	g.session.Update()
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	l := g.layoutRects()

	g.drawSunkenPanel(screen, l.nav)
	g.drawSunkenPanel(screen, l.editor)
	g.drawDarkPanel(screen, l.roll)
	g.drawButton(screen, l.play, g.playButtonLabel())
	g.drawButton(screen, l.wave, "Wave: "+waveforms[g.waveIdx])
	g.drawButton(screen, l.slower, "-")
	g.drawButton(screen, l.faster, "+")
	g.drawTempo(screen, l.tempo)
	g.drawVolumeSlider(screen, l.volume)
	g.drawSunkenPanel(screen, l.status)

	g.drawNavigator(screen, l.nav)
	g.drawEditor(screen, l.editor)
	g.drawRoll(screen, l.roll)
	g.drawPiano(screen, l.piano)
	g.drawStatus(screen, l.status)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	g.viewW = max(outsideW, minWindowW)
	g.viewH = max(outsideH, minWindowH)
	return g.viewW, g.viewH
}

func (g *game) Close() {
	g.session.Stop()
	if g.midi != nil {
		_ = g.midi.Close()
	}
	_ = g.output.Close()
}

func (g *game) drawRoll(screen *ebiten.Image, rect image.Rectangle) {
	inner := rect.Inset(4)
	g.roll.Target = screen
	g.roll.Bounds = inner
	if !g.session.Render(g.roll) {
		g.drawText(screen, "Nothing to show", inner.Min.X+8, inner.Min.Y+8)
		return
	}
	f := g.session.Frame()
	r := f.Range
	g.drawText(screen, r.HighestLabel, inner.Min.X+4, inner.Min.Y+4)
	g.drawText(screen, r.LowestLabel, inner.Min.X+4, inner.Max.Y-lineH-4)
	if f.Playing {
		g.drawText(screen, roll.FormatDuration(f.Elapsed), inner.Max.X-10*charW, inner.Min.Y+4)
	}
}

func (g *game) drawPiano(screen *ebiten.Image, rect image.Rectangle) {
	kb := g.session.Keyboard()
	canvas.DrawPiano(screen, rect, kb.Keys(float64(rect.Dx()), float64(rect.Dy())), kb)
}

func (g *game) handleKeyboard() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		g.focus = focusPiano
	case inpututil.IsKeyJustPressed(ebiten.KeyF5):
		g.togglePlay()
		return
	}
	if g.focus == focusEditor {
		g.editText()
		return
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.togglePlay()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) {
		g.octave = min(g.octave+1, 7)
		g.setStatus(fmt.Sprintf("Keyboard octave %d", g.octave))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		g.octave = max(g.octave-1, 1)
		g.setStatus(fmt.Sprintf("Keyboard octave %d", g.octave))
	}
	for _, name := range piano.KeyNames() {
		key, ok := keyByName(name)
		if !ok {
			continue
		}
		if inpututil.IsKeyJustPressed(key) {
			if pitch, ok := piano.KeyPitch(name, g.octave); ok {
				g.keyPitches[key] = pitch
				g.session.NoteOn(pitch, 0.9, bus.SourceKeyboard)
			}
		}
		if inpututil.IsKeyJustReleased(key) {
			if pitch, ok := g.keyPitches[key]; ok {
				delete(g.keyPitches, key)
				g.session.NoteOff(pitch, bus.SourceKeyboard)
			}
		}
	}
}

var pianoKeys = map[string]ebiten.Key{
	"A": ebiten.KeyA, "W": ebiten.KeyW, "S": ebiten.KeyS, "E": ebiten.KeyE,
	"D": ebiten.KeyD, "F": ebiten.KeyF, "T": ebiten.KeyT, "G": ebiten.KeyG,
	"Y": ebiten.KeyY, "H": ebiten.KeyH, "U": ebiten.KeyU, "J": ebiten.KeyJ,
	"K": ebiten.KeyK,
}

func keyByName(name string) (ebiten.Key, bool) {
	k, ok := pianoKeys[name]
	return k, ok
}

func (g *game) editText() {
	changed := false
	if chars := ebiten.AppendInputChars(nil); len(chars) > 0 {
		g.editor = append(g.editor, chars...)
		changed = true
	}
	if repeatPressed(ebiten.KeyEnter) || repeatPressed(ebiten.KeyNumpadEnter) {
		g.editor = append(g.editor, '\n')
		changed = true
	}
	if repeatPressed(ebiten.KeyBackspace) && len(g.editor) > 0 {
		g.editor = g.editor[:len(g.editor)-1]
		changed = true
	}
	if changed {
		g.session.SetScript(string(g.editor))
		if len(g.session.Notes()) == 0 && strings.TrimSpace(string(g.editor)) != "" {
			g.setError("No playable notes")
		} else {
			g.setStatus(fmt.Sprintf("%d notes, %s", len(g.session.Notes()), roll.FormatDuration(g.session.Length())))
		}
	}
}

func repeatPressed(key ebiten.Key) bool {
	d := inpututil.KeyPressDuration(key)
	return d == 1 || (d > 30 && d%3 == 0)
}

func (g *game) handleMouse() {
	mx, my := ebiten.CursorPosition()
	l := g.layoutRects()

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		switch {
		case pointInRect(mx, my, l.play):
			g.togglePlay()
		case pointInRect(mx, my, l.wave):
			g.cycleWaveform()
		case pointInRect(mx, my, l.slower):
			g.changeTempo(-5)
		case pointInRect(mx, my, l.faster):
			g.changeTempo(5)
		case pointInRect(mx, my, l.volume):
			g.dragVolume = true
		case pointInRect(mx, my, l.nav):
			g.clickNavigator(my, l.nav)
		case pointInRect(mx, my, l.editor):
			g.focus = focusEditor
		case pointInRect(mx, my, l.piano):
			g.focus = focusPiano
			g.pressPianoAt(mx, my, l.piano)
		default:
			g.focus = focusPiano
		}
	}
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.dragVolume = false
		if g.mousePitch >= 0 {
			g.session.NoteOff(g.mousePitch, bus.SourcePointer)
			g.mousePitch = -1
		}
	} else if g.mousePitch >= 0 && pointInRect(mx, my, l.piano) {
		// glissando: follow the pointer across keys
		g.pressPianoAt(mx, my, l.piano)
	}
	if g.dragVolume {
		g.updateVolumeFromMouse(mx, l.volume)
	}

	_, wy := ebiten.Wheel()
	if wy != 0 && pointInRect(mx, my, l.nav) && wheelLimiter.Allow() {
		g.navScroll = max(0, g.navScroll-int(wy*2))
	}
}

func (g *game) pressPianoAt(mx, my int, rect image.Rectangle) {
	kb := g.session.Keyboard()
	keys := kb.Keys(float64(rect.Dx()), float64(rect.Dy()))
	pitch, ok := piano.HitTest(keys, float64(mx-rect.Min.X), float64(my-rect.Min.Y))
	if !ok || pitch == g.mousePitch {
		return
	}
	if g.mousePitch >= 0 {
		g.session.NoteOff(g.mousePitch, bus.SourcePointer)
	}
	g.mousePitch = pitch
	g.session.NoteOn(pitch, 0.9, bus.SourcePointer)
}

func (g *game) clickNavigator(my int, rect image.Rectangle) {
	top := rect.Min.Y + 12 + lineH
	row := (my - top) / lineH
	if my < top || row < 0 {
		return
	}
	idx := g.navScroll + row
	if idx >= len(g.names) {
		return
	}
	doubleClick := idx == g.lastNavIdx && (g.frameTick-g.lastNavClickTick) <= doubleClickTicks
	g.lastNavIdx = idx
	g.lastNavClickTick = g.frameTick
	g.loadSong(idx)
	if doubleClick {
		g.session.Play()
		g.setStatus("Playing " + g.names[idx])
	}
}

func (g *game) loadSong(idx int) {
	s, ok := g.lib.Get(g.names[idx])
	if !ok {
		return
	}
	g.songIdx = idx
	g.session.Stop()
	g.session.SetGhostScript(s.Ghost)
	g.setEditor(s.Script)
	g.setStatus(fmt.Sprintf("Loaded %s (%s)", s.Name, roll.FormatDuration(g.session.Length())))
}

func (g *game) setEditor(text string) {
	g.editor = []rune(text)
	g.session.SetScript(text)
}

func (g *game) togglePlay() {
	if g.session.PlayStop() {
		g.setStatus("Playing")
		return
	}
	if len(g.session.Notes()) == 0 {
		g.setError("Nothing to play")
		return
	}
	g.setStatus("Stopped")
}

func (g *game) cycleWaveform() {
	g.waveIdx = (g.waveIdx + 1) % len(waveforms)
	if err := g.session.SetWaveform(waveforms[g.waveIdx]); err != nil {
		g.setError(err.Error())
		return
	}
	g.setStatus("Waveform: " + waveforms[g.waveIdx])
}

func (g *game) changeTempo(delta float64) {
	if err := g.session.SetBPM(g.session.BPM() + delta); err != nil {
		g.setError(err.Error())
		return
	}
	msg := fmt.Sprintf("Tempo %g bpm", g.session.BPM())
	if g.session.Playing() {
		msg += " (from next play)"
	}
	g.setStatus(msg)
}

func (g *game) updateVolumeFromMouse(mx int, rect image.Rectangle) {
	trackX := rect.Min.X + 130
	trackW := rect.Dx() - 146
	if trackW <= 0 {
		return
	}
	g.volume = clamp(float64(mx-trackX)/float64(trackW), 0, 1)
	g.session.SetVolume(g.volume)
	g.setStatus(fmt.Sprintf("Volume: %d%%", int(g.volume*100+0.5)))
}

func (g *game) playButtonLabel() string {
	if g.session.Playing() {
		return "Stop"
	}
	return "Play"
}

func (g *game) setError(msg string) {
	g.status = msg
	g.statusErr = true
}

func (g *game) setStatus(msg string) {
	g.status = msg
	g.statusErr = false
}

func main() {
	var (
		configPath = flag.String("config", "", "config file (default ~/.config/pianoroll/config.json)")
		midiPort   = flag.String("midi", "", "MIDI input name to match (overrides config)")
		logLevel   = flag.String("log-level", "", "debug|info|warn|error (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *midiPort != "" {
		cfg.MIDIPort = *midiPort
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatal(err)
	}

	lib, err := songs.Bundled()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.SongDir != "" {
		if err := lib.LoadDir(cfg.SongDir); err != nil {
			logger.Get().Warn("song directory skipped", "err", err)
		}
	}

	var initialText string
	if flag.NArg() > 0 {
		p, err := filepath.Abs(flag.Arg(0))
		if err != nil {
			log.Fatalf("resolve %q: %v", flag.Arg(0), err)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			log.Fatalf("read %q: %v", p, err)
		}
		initialText = string(data)
	}

	g, err := newGame(cfg, lib, initialText)
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("pianoroll")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
