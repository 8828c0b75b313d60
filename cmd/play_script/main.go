package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cbegin/pianoroll-go"
	"github.com/cbegin/pianoroll-go/internal/audio"
	"github.com/cbegin/pianoroll-go/internal/bus"
	"github.com/cbegin/pianoroll-go/internal/config"
	"github.com/cbegin/pianoroll-go/internal/logger"
	"github.com/cbegin/pianoroll-go/internal/roll"
	"github.com/cbegin/pianoroll-go/internal/script"
	"github.com/cbegin/pianoroll-go/internal/songs"
	"github.com/cbegin/pianoroll-go/internal/synth"
)

const defaultScript = "step 1/4\nC\nE\nG\noctave 5\nC"

func main() {
	var (
		configPath = flag.String("config", "", "config file (default ~/.config/pianoroll/config.json)")
		scriptPath = flag.String("file", "", "path to a melody script")
		inline     = flag.String("script", "", "inline melody script; use \\n between lines")
		songName   = flag.String("song", "", "play a song from the library")
		list       = flag.Bool("list", false, "list library songs and exit")
		bpm        = flag.Float64("bpm", 0, "tempo (overrides config)")
		waveform   = flag.String("waveform", "", "sine|square|sawtooth|triangle (overrides config)")
		volume     = flag.Float64("volume", -1, "master volume 0..1 (overrides config)")
		wavPath    = flag.String("wav", "", "render to this WAV file instead of playing")
		logLevel   = flag.String("log-level", "", "debug|info|warn|error (overrides config)")
		quiet      = flag.Bool("quiet", false, "do not print triggers")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	applyFlags(cfg, *bpm, *waveform, *volume, *logLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
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
	if *list {
		for _, name := range lib.Names() {
			fmt.Println(name)
		}
		return
	}

	text, ghost, err := resolveInput(lib, *scriptPath, *inline, *songName)
	if err != nil {
		log.Fatal(err)
	}
	// strict: Compile would swallow the error
	notes, err := script.NewParser(script.DefaultParserConfig()).Parse(text)
	if err != nil {
		log.Fatal(err)
	}

	if *wavPath != "" {
		samples := pianoroll.RenderSamples(notes, pianoroll.RenderOptions{
			SampleRate: cfg.SampleRate,
			BPM:        cfg.BPM,
			Waveform:   cfg.Waveform,
			Volume:     cfg.VolumeOrDefault(),
			TailSec:    0.5,
		})
		wav := pianoroll.EncodeWAVFloat32LE(samples, cfg.SampleRate, 2)
		if err := os.WriteFile(*wavPath, wav, 0644); err != nil {
			log.Fatal(err)
		}
		length := time.Duration(len(samples)/2) * time.Second / time.Duration(cfg.SampleRate)
		fmt.Printf("wrote %s (%s, %s)\n", *wavPath, roll.FormatDuration(length), humanize.Bytes(uint64(len(wav))))
		return
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

	session := pianoroll.NewSession(engine,
		pianoroll.WithBPM(cfg.BPM),
		pianoroll.WithMonsters(cfg.Monsters),
		pianoroll.WithLogger(logger.Get()),
	)
	session.SetNotes(notes)
	if ghost != "" {
		session.SetGhostScript(ghost)
	}

	done := false
	session.Subscribe(bus.KindPlaybackEnded, func(bus.Event) { done = true })
	if !*quiet {
		session.Subscribe(bus.KindTriggerOn, func(ev bus.Event) {
			fmt.Printf("%-4s %3d\n", ev.Label, ev.Pitch)
		})
	}

	fmt.Printf("%d notes, %s at %g bpm\n", len(notes), roll.FormatDuration(session.Length()), session.BPM())
	if !session.Play() {
		fmt.Println("nothing to play")
		return
	}
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		session.Update()
		if done {
			break
		}
	}
	// let the last release tail sound
	time.Sleep(300 * time.Millisecond)
	fmt.Println("playback completed")
}

func applyFlags(cfg *config.Config, bpm float64, waveform string, volume float64, level string) {
	if bpm > 0 {
		cfg.BPM = bpm
	}
	if waveform != "" {
		cfg.Waveform = waveform
	}
	if volume >= 0 {
		cfg.Volume = &volume
	}
	if level != "" {
		cfg.LogLevel = level
	}
}

func resolveInput(lib *songs.Library, path, inline, song string) (string, string, error) {
	if strings.TrimSpace(inline) != "" {
		return strings.ReplaceAll(inline, `\n`, "\n"), "", nil
	}
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", "", err
		}
		return string(data), "", nil
	}
	if song != "" {
		s, ok := lib.Get(song)
		if !ok {
			return "", "", fmt.Errorf("unknown song %q (try -list)", song)
		}
		return s.Script, s.Ghost, nil
	}
	return defaultScript, "", nil
}
