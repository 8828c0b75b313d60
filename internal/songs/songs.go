// Package songs is the read-only song library: scripts bundled into the
// binary plus any found in a user directory.
package songs

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

//go:embed data/*.txt
var bundled embed.FS

const (
	scriptExt = ".txt"
	ghostExt  = ".ghost.txt"
)

// Song is a melody script and an optional ghost script it is played against.
type Song struct {
	Name   string
	Script string
	Ghost  string
	Source string // "bundled" or the directory it was read from
}

type Library struct {
	songs map[string]Song
}

func NewLibrary() *Library {
	return &Library{songs: make(map[string]Song)}
}

// Bundled returns a library holding the songs compiled into the binary.
func Bundled() (*Library, error) {
	lib := NewLibrary()
	sub, err := fs.Sub(bundled, "data")
	if err != nil {
		return nil, err
	}
	if err := lib.load(sub, "bundled"); err != nil {
		return nil, err
	}
	return lib, nil
}

// LoadDir adds every script in dir, replacing songs of the same name.
func (l *Library) LoadDir(dir string) error {
	if err := l.load(os.DirFS(dir), dir); err != nil {
		return fmt.Errorf("load songs from %s: %w", dir, err)
	}
	return nil
}

func (l *Library) load(fsys fs.FS, source string) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return err
	}
	ghosts := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), scriptExt) {
			continue
		}
		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return err
		}
		if name, ok := strings.CutSuffix(e.Name(), ghostExt); ok {
			ghosts[name] = string(data)
			continue
		}
		name := strings.TrimSuffix(path.Base(e.Name()), scriptExt)
		l.songs[name] = Song{Name: name, Script: string(data), Source: source}
	}
	for name, ghost := range ghosts {
		s, ok := l.songs[name]
		if !ok {
			continue
		}
		s.Ghost = ghost
		l.songs[name] = s
	}
	return nil
}

// Names returns song names in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.songs))
	for n := range l.songs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (l *Library) Get(name string) (Song, bool) {
	s, ok := l.songs[name]
	return s, ok
}

func (l *Library) Len() int { return len(l.songs) }
