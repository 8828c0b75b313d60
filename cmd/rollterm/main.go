package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cbegin/pianoroll-go"
	"github.com/cbegin/pianoroll-go/internal/audio"
	"github.com/cbegin/pianoroll-go/internal/bus"
	"github.com/cbegin/pianoroll-go/internal/config"
	"github.com/cbegin/pianoroll-go/internal/logger"
	"github.com/cbegin/pianoroll-go/internal/piano"
	"github.com/cbegin/pianoroll-go/internal/roll"
	"github.com/cbegin/pianoroll-go/internal/script"
	"github.com/cbegin/pianoroll-go/internal/songs"
	"github.com/cbegin/pianoroll-go/internal/synth"
	"github.com/cbegin/pianoroll-go/internal/termroll"
)

const (
	frameInterval = 16 * time.Millisecond
	keyHold       = 220 * time.Millisecond // terminals report no key-up
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#fff")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
	recStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f55")).Bold(true)

	waveforms = []string{"triangle", "square", "sawtooth", "sine"}
)

type tickMsg time.Time

type releaseMsg struct {
	pitch int
	seq   int
}

type model struct {
	session  *pianoroll.Session
	view     *termroll.Renderer
	lib      *songs.Library
	names    []string
	songIdx  int
	waveIdx  int
	octave   int
	status   string
	quitting bool

	// live key holds, keyed by pitch; seq tells stale releases apart
	holds   map[int]int
	holdSeq int

	recording bool
	recorded  []script.NoteEvent
	recCursor float64
	dump      string
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *model) Init() tea.Cmd { return tick() }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.session.Update()
		return m, tick()

	case releaseMsg:
		if m.holds[msg.pitch] == msg.seq {
			delete(m.holds, msg.pitch)
			m.session.NoteOff(msg.pitch, bus.SourceKeyboard)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.view.Cols = max(16, msg.Width-10)
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg.String())
	}
	return m, nil
}

func (m *model) handleKey(key string) tea.Cmd {
	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		m.session.Stop()
		return tea.Quit
	case " ":
		if m.session.PlayStop() {
			m.status = "playing"
		} else {
			m.status = "stopped"
		}
	case "+", "=":
		m.setBPM(m.session.BPM() + 5)
	case "-", "_":
		m.setBPM(m.session.BPM() - 5)
	case "tab":
		m.waveIdx = (m.waveIdx + 1) % len(waveforms)
		if err := m.session.SetWaveform(waveforms[m.waveIdx]); err != nil {
			m.status = err.Error()
		}
	case "right", "n":
		m.loadSong(m.songIdx + 1)
	case "left", "p":
		m.loadSong(m.songIdx - 1)
	case "up":
		m.octave = min(m.octave+1, 7)
	case "down":
		m.octave = max(m.octave-1, 1)
	case "r":
		m.toggleRecording()
	default:
		if pitch, ok := piano.KeyPitch(key, m.octave); ok {
			return m.press(pitch)
		}
	}
	return nil
}

func (m *model) setBPM(bpm float64) {
	if err := m.session.SetBPM(bpm); err != nil {
		m.status = err.Error()
		return
	}
	m.status = fmt.Sprintf("tempo %g (applies on next play)", bpm)
}

func (m *model) press(pitch int) tea.Cmd {
	m.holdSeq++
	m.holds[pitch] = m.holdSeq
	m.session.NoteOn(pitch, 0.9, bus.SourceKeyboard)
	if m.recording {
		step := script.DefaultParserConfig().DefaultStep
		m.recorded = append(m.recorded, script.NoteEvent{
			Pitch: pitch,
			Label: script.PitchLabel(pitch),
			Start: m.recCursor,
			End:   m.recCursor + step,
		})
		m.recCursor += step
	}
	seq := m.holdSeq
	return tea.Tick(keyHold, func(time.Time) tea.Msg { return releaseMsg{pitch: pitch, seq: seq} })
}

func (m *model) toggleRecording() {
	if !m.recording {
		m.session.Stop()
		m.recording = true
		m.recorded = nil
		m.recCursor = 0
		m.dump = ""
		m.status = "recording: play keys, r to finish"
		return
	}
	m.recording = false
	if len(m.recorded) == 0 {
		m.status = "nothing recorded"
		return
	}
	m.session.SetNotes(m.recorded)
	m.dump = script.Format(m.recorded)
	m.status = fmt.Sprintf("recorded %d notes", len(m.recorded))
}

func (m *model) loadSong(idx int) {
	if len(m.names) == 0 {
		return
	}
	idx = (idx%len(m.names) + len(m.names)) % len(m.names)
	m.songIdx = idx
	s, _ := m.lib.Get(m.names[idx])
	m.session.Stop()
	m.session.SetScript(s.Script)
	m.session.SetGhostScript(s.Ghost)
	m.dump = ""
	m.status = fmt.Sprintf("%s (%s)", s.Name, roll.FormatDuration(m.session.Length()))
}

func (m *model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	title := "pianoroll"
	if len(m.names) > 0 {
		title += "  " + m.names[m.songIdx]
	}
	b.WriteString(titleStyle.Render(title))
	if m.recording {
		b.WriteString("  " + recStyle.Render("● REC"))
	}
	b.WriteString("\n\n")
	if m.session.Render(m.view) {
		b.WriteString(m.view.String())
	} else {
		b.WriteString(dimStyle.Render("(empty melody)"))
	}
	b.WriteString("\n\n")
	b.WriteString(statusStyle.Render(fmt.Sprintf("%s  |  %s  |  octave %d  |  %g bpm",
		m.status, waveforms[m.waveIdx], m.octave, m.session.BPM())))
	if m.dump != "" {
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render(strings.ReplaceAll(strings.TrimSpace(m.dump), "\n", "  ")))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("space:play/stop  n/p:song  +/-:tempo  tab:wave  " +
		strings.ToLower(strings.Join(piano.KeyNames(), "")) + ":keys  up/down:octave  r:record  q:quit"))
	return b.String()
}

func main() {
	var (
		configPath = flag.String("config", "", "config file")
		scriptPath = flag.String("file", "", "open a melody script instead of the library")
		logPath    = flag.String("log", "", "write logs to this file (the terminal is in use)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *logPath != "" {
		f, err := os.Create(*logPath)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		if err := logger.InitWriter(f, cfg.LogLevel); err != nil {
			log.Fatal(err)
		}
	} else if err := logger.InitWriter(io.Discard, cfg.LogLevel); err != nil {
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

	params := synth.DefaultParams()
	params.Volume = cfg.VolumeOrDefault()
	engine := synth.New(cfg.SampleRate, params)
	if err := engine.SetWaveform(cfg.Waveform); err != nil {
		log.Fatal(err)
	}
	out, err := audio.NewOutput(cfg.SampleRate, engine)
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()
	out.Play()

	m := &model{
		session: pianoroll.NewSession(engine,
			pianoroll.WithBPM(cfg.BPM),
			pianoroll.WithMonsters(cfg.Monsters),
			pianoroll.WithLogger(logger.Get()),
		),
		view:   termroll.New(64, nil),
		lib:    lib,
		names:  lib.Names(),
		octave: 4,
		status: "ready",
		holds:  make(map[int]int),
	}
	for i, w := range waveforms {
		if w == cfg.Waveform {
			m.waveIdx = i
		}
	}
	if *scriptPath != "" {
		data, err := os.ReadFile(*scriptPath)
		if err != nil {
			log.Fatal(err)
		}
		m.session.SetScript(string(data))
		m.names = nil
		m.status = *scriptPath
	} else {
		m.loadSong(0)
	}

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}
