// Package overlay presents the ranked .cat/.dat archive layers of a game
// installation as one logical, priority-merged file tree. Discovery reads
// only directory tables; payload bytes are fetched lazily per request.
package overlay

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	billy "github.com/go-git/go-billy/v5"

	"github.com/x4tools/projector/internal/catdat"
)

// Source is the read-only file access contract consumed by the definition
// loaders. Both the archive overlay and the plain-directory variant satisfy
// it, so callers never care whether the game is packed or extracted.
type Source interface {
	// Open returns the full content of one game file.
	Open(path string) ([]byte, error)
	// Exists reports whether the path resolves to a file.
	Exists(path string) bool
	// List returns the paths of files directly under a game directory.
	List(dir string) ([]string, error)
	// Paths returns every known file path, sorted. Drives glob-based
	// definition document discovery.
	Paths() []string
	// Extensions returns the names of installed extensions, sorted.
	Extensions() []string
}

// FSSource serves an already-extracted game tree. Used when the user has
// unpacked the archives with an external cat tool; the folder hierarchy must
// be preserved.
type FSSource struct {
	fs billy.Filesystem
}

// NewFSSource wraps a filesystem rooted at the extracted game tree.
func NewFSSource(fs billy.Filesystem) *FSSource {
	return &FSSource{fs: fs}
}

func (s *FSSource) Open(path string) ([]byte, error) {
	f, err := s.fs.Open(catdat.NormalizePath(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

func (s *FSSource) Exists(path string) bool {
	info, err := s.fs.Stat(catdat.NormalizePath(path))
	return err == nil && !info.IsDir()
}

func (s *FSSource) List(dir string) ([]string, error) {
	dir = catdat.NormalizePath(dir)
	infos, err := s.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var out []string
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		out = append(out, dir+"/"+strings.ToLower(info.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func (s *FSSource) Paths() []string {
	var out []string
	s.walk("", &out)
	sort.Strings(out)
	return out
}

func (s *FSSource) walk(dir string, out *[]string) {
	infos, err := s.fs.ReadDir(dir)
	if err != nil {
		return
	}
	for _, info := range infos {
		p := strings.ToLower(info.Name())
		if dir != "" {
			p = dir + "/" + p
		}
		if info.IsDir() {
			s.walk(p, out)
			continue
		}
		*out = append(*out, p)
	}
}

func (s *FSSource) Extensions() []string {
	infos, err := s.fs.ReadDir("extensions")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return nil
	}
	var names []string
	for _, info := range infos {
		if info.IsDir() {
			names = append(names, strings.ToLower(info.Name()))
		}
	}
	sort.Strings(names)
	return names
}
