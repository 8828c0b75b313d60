package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cbegin/pianoroll-go/internal/logger"
	"github.com/cbegin/pianoroll-go/internal/roll"
	"github.com/cbegin/pianoroll-go/internal/synth"
)

var ErrInvalid = errors.New("invalid config")

// Config holds user preferences. Zero-valued fields in a file fall back to
// the defaults.
type Config struct {
	BPM        float64  `json:"bpm,omitempty"`
	Waveform   string   `json:"waveform,omitempty"`
	Volume     *float64 `json:"volume,omitempty"`
	SampleRate int      `json:"sampleRate,omitempty"`
	SongDir    string   `json:"songDir,omitempty"`
	MIDIPort   string   `json:"midiPort,omitempty"`
	LogLevel   string   `json:"logLevel,omitempty"`
	Monsters   []string `json:"monsters,omitempty"`
}

// DefaultConfig returns the settings used when no file is present.
func DefaultConfig() *Config {
	vol := 0.8
	return &Config{
		BPM:        120,
		Waveform:   "triangle",
		Volume:     &vol,
		SampleRate: 48000,
		LogLevel:   "info",
		Monsters:   roll.DefaultMonsters(),
	}
}

// Dir returns the config directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pianoroll"), nil
}

// Path returns the full path to config.json.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads path, or the default location when path is empty. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = p
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.fill()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) fill() {
	def := DefaultConfig()
	if c.BPM == 0 {
		c.BPM = def.BPM
	}
	if c.Waveform == "" {
		c.Waveform = def.Waveform
	}
	if c.Volume == nil {
		c.Volume = def.Volume
	}
	if c.SampleRate == 0 {
		c.SampleRate = def.SampleRate
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if len(c.Monsters) == 0 {
		c.Monsters = def.Monsters
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.BPM <= 0 {
		return fmt.Errorf("%w: bpm %v must be positive", ErrInvalid, c.BPM)
	}
	if _, err := synth.ParseWaveform(c.Waveform); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if v := c.VolumeOrDefault(); v < 0 || v > 1 {
		return fmt.Errorf("%w: volume %v outside 0..1", ErrInvalid, v)
	}
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalid, c.SampleRate)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func (c *Config) VolumeOrDefault() float64 {
	if c.Volume == nil {
		return *DefaultConfig().Volume
	}
	return *c.Volume
}

// Save writes the config to path, or the default location when path is
// empty.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
