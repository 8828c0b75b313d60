package songs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cbegin/pianoroll-go/internal/script"
)

func TestBundledSongsParse(t *testing.T) {
	lib, err := Bundled()
	if err != nil {
		t.Fatalf("bundled: %v", err)
	}
	if lib.Len() == 0 {
		t.Fatalf("no bundled songs")
	}
	p := script.NewParser(script.DefaultParserConfig())
	for _, name := range lib.Names() {
		s, _ := lib.Get(name)
		notes, err := p.Parse(s.Script)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(notes) == 0 {
			t.Fatalf("%s: no notes", name)
		}
		if s.Ghost != "" {
			if _, err := p.Parse(s.Ghost); err != nil {
				t.Fatalf("%s ghost: %v", name, err)
			}
		}
	}
}

func TestGhostIsNotASong(t *testing.T) {
	lib, err := Bundled()
	if err != nil {
		t.Fatalf("bundled: %v", err)
	}
	for _, n := range lib.Names() {
		if filepath.Ext(n) == ".ghost" {
			t.Fatalf("ghost file listed as song %q", n)
		}
	}
	s, ok := lib.Get("twinkle")
	if !ok || s.Ghost == "" || s.Source != "bundled" {
		t.Fatalf("twinkle = %+v, %v", s, ok)
	}
}

func TestLoadDirOverrides(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("twinkle.txt", "C\nD")
	write("mine.txt", "E")
	write("mine.ghost.txt", "E\nE")
	write("orphan.ghost.txt", "C")
	write("notes.md", "ignored")

	lib, err := Bundled()
	if err != nil {
		t.Fatalf("bundled: %v", err)
	}
	if err := lib.LoadDir(dir); err != nil {
		t.Fatalf("load dir: %v", err)
	}
	tw, _ := lib.Get("twinkle")
	if tw.Script != "C\nD" || tw.Source != dir {
		t.Fatalf("directory song should replace bundled one, got %+v", tw)
	}
	mine, ok := lib.Get("mine")
	if !ok || mine.Ghost != "E\nE" {
		t.Fatalf("mine = %+v, %v", mine, ok)
	}
	if _, ok := lib.Get("orphan"); ok {
		t.Fatalf("a ghost without a script is not a song")
	}
	if _, ok := lib.Get("notes"); ok {
		t.Fatalf("non-script files must be ignored")
	}
}

func TestLoadDirMissing(t *testing.T) {
	if err := NewLibrary().LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestNamesSorted(t *testing.T) {
	lib := NewLibrary()
	lib.songs["b"] = Song{Name: "b"}
	lib.songs["a"] = Song{Name: "a"}
	if got := lib.Names(); len(got) != 2 || got[0] != "a" {
		t.Fatalf("names = %v", got)
	}
}
