// Package prompts resolves named prompt profiles to their text.
//
// A profile is a file named <name>.md or <name>.txt. Profiles found in the
// configured directory take precedence over the embedded defaults.
package prompts

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

//go:embed profiles/*.md
var embedded embed.FS

// ErrProfileNotFound is returned when no profile matches a name.
var ErrProfileNotFound = errors.New("prompt profile not found")

var extensions = []string{".md", ".txt"}

// Store resolves profile names against an ordered list of file systems.
type Store struct {
	layers []fs.FS
}

// NewStore returns a store that reads dir first (when non-empty) and then
// falls back to the built-in profiles.
func NewStore(dir string) *Store {
	builtin, _ := fs.Sub(embedded, "profiles")
	var layers []fs.FS
	if dir != "" {
		layers = append(layers, os.DirFS(dir))
	}
	return &Store{layers: append(layers, builtin)}
}

// NewStoreFS builds a store over the given file systems, highest precedence
// first.
func NewStoreFS(layers ...fs.FS) *Store {
	return &Store{layers: layers}
}

// Resolve returns the trimmed text of the named profile. An empty file
// resolves to an empty string; a missing one yields ErrProfileNotFound.
func (s *Store) Resolve(name string) (string, error) {
	if !validName(name) {
		return "", fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	for _, layer := range s.layers {
		for _, ext := range extensions {
			data, err := fs.ReadFile(layer, name+ext)
			if err == nil {
				return strings.TrimSpace(string(data)), nil
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("reading profile %s: %w", name, err)
			}
		}
	}
	return "", fmt.Errorf("%w: %q", ErrProfileNotFound, name)
}

// Names lists every resolvable profile name, sorted.
func (s *Store) Names() []string {
	seen := make(map[string]bool)
	for _, layer := range s.layers {
		entries, err := fs.ReadDir(layer, ".")
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := path.Ext(e.Name())
			for _, want := range extensions {
				if ext == want {
					seen[strings.TrimSuffix(e.Name(), ext)] = true
				}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
