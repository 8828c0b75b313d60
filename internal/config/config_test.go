package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BPM != 120 || cfg.Waveform != "triangle" || cfg.SampleRate != 48000 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.VolumeOrDefault() != 0.8 {
		t.Fatalf("volume = %v", cfg.VolumeOrDefault())
	}
}

func TestLoadFillsUnsetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"bpm": 90, "volume": 0, "midiPort": "Keystation"}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BPM != 90 || cfg.MIDIPort != "Keystation" {
		t.Fatalf("file values lost: %+v", cfg)
	}
	if cfg.VolumeOrDefault() != 0 {
		t.Fatalf("explicit zero volume must be kept, got %v", cfg.VolumeOrDefault())
	}
	if cfg.Waveform != "triangle" || len(cfg.Monsters) == 0 {
		t.Fatalf("unset fields should take defaults: %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"negative bpm": `{"bpm": -1}`,
		"waveform":     `{"waveform": "organ"}`,
		"volume":       `{"volume": 2}`,
		"sample rate":  `{"sampleRate": 10}`,
		"log level":    `{"logLevel": "loud"}`,
	}
	for name, body := range cases {
		path := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		_, err := Load(path)
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", name, err)
		}
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{bpm`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.BPM = 150
	cfg.SongDir = "/tmp/songs"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.BPM != 150 || got.SongDir != "/tmp/songs" {
		t.Fatalf("round trip lost values: %+v", got)
	}
}
