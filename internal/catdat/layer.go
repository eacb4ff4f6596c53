package catdat

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"

	billy "github.com/go-git/go-billy/v5"
)

// ErrCorruptPayload is returned when a payload read does not match the
// checksum recorded in the index.
var ErrCorruptPayload = errors.New("corrupt payload")

// Layer is one ranked archive pair: the parsed index plus a handle to its
// payload file. Immutable after Open. Higher ranks shadow lower ranks for
// the same path.
type Layer struct {
	Rank    int
	CatPath string
	DatPath string

	fs      billy.Filesystem
	entries map[string]Entry
	order   []string // paths in table order
}

// Open parses the .cat table at catPath and binds the layer to its .dat
// payload file. Only the index is read; payload bytes stay untouched until
// ReadEntry.
func Open(fs billy.Filesystem, catPath, datPath string, rank int) (*Layer, error) {
	f, err := fs.Open(catPath)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", catPath, err)
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", catPath, err)
	}

	parsed, err := ParseIndex(data, rank)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", catPath, err)
	}

	l := &Layer{
		Rank:    rank,
		CatPath: catPath,
		DatPath: datPath,
		fs:      fs,
		entries: make(map[string]Entry, len(parsed)),
		order:   make([]string, 0, len(parsed)),
	}
	for _, e := range parsed {
		l.entries[e.Path] = e
		l.order = append(l.order, e.Path)
	}
	return l, nil
}

// Remount returns a copy of the layer with every entry path prefixed by
// dir. Extension archives list paths relative to the extension root, so
// they are remounted under extensions/<name>/ before joining the overlay.
func (l *Layer) Remount(dir string) *Layer {
	prefix := NormalizePath(dir)
	if prefix == "" {
		return l
	}
	out := &Layer{
		Rank:    l.Rank,
		CatPath: l.CatPath,
		DatPath: l.DatPath,
		fs:      l.fs,
		entries: make(map[string]Entry, len(l.entries)),
		order:   make([]string, 0, len(l.order)),
	}
	for _, p := range l.order {
		e := l.entries[p]
		e.Path = prefix + "/" + p
		out.entries[e.Path] = e
		out.order = append(out.order, e.Path)
	}
	return out
}

// Entry looks up a normalized path within this layer only.
func (l *Layer) Entry(path string) (Entry, bool) {
	e, ok := l.entries[NormalizePath(path)]
	return e, ok
}

// Paths returns all paths in this layer, sorted.
func (l *Layer) Paths() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	sort.Strings(out)
	return out
}

// Len returns the number of entries in the layer.
func (l *Layer) Len() int { return len(l.entries) }

// ReadEntry reads exactly the entry's byte range out of the .dat file and
// verifies the checksum when the entry carries one. This is the only method
// on the layer that touches payload bytes.
func (l *Layer) ReadEntry(e Entry) ([]byte, error) {
	f, err := l.fs.Open(l.DatPath)
	if err != nil {
		return nil, fmt.Errorf("open payload %s: %w", l.DatPath, err)
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, e.Size)
	if _, err := io.ReadFull(io.NewSectionReader(f, e.Offset, e.Size), buf); err != nil {
		return nil, fmt.Errorf("%w: %s in %s: short read: %v",
			ErrCorruptPayload, e.Path, l.DatPath, err)
	}

	if e.Verified() {
		sum := md5.Sum(buf)
		if got := hex.EncodeToString(sum[:]); got != e.Hash {
			return nil, fmt.Errorf("%w: %s in %s: md5 %s, index says %s",
				ErrCorruptPayload, e.Path, l.DatPath, got, e.Hash)
		}
	}
	return buf, nil
}
