package overlay

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"
	billy "github.com/go-git/go-billy/v5"

	"github.com/x4tools/projector/internal/catdat"
)

// ErrNoLayers is returned by Discover when the game root holds no 01.cat;
// without the first rank there is nothing to overlay.
var ErrNoLayers = errors.New("no archive layers found")

// ErrNotFound is returned for paths absent from every layer.
var ErrNotFound = errors.New("path not found in overlay")

// maxRank is the highest numbered archive pair the game ever ships.
const maxRank = 99

// Handle is a resolved path: the winning entry plus the layer that owns it.
// Obtained from Resolve, redeemed with Read.
type Handle struct {
	entry catdat.Entry
	layer *catdat.Layer
}

func (h Handle) Path() string { return h.entry.Path }
func (h Handle) Size() int64  { return h.entry.Size }
func (h Handle) Rank() int    { return h.entry.Rank }

// Overlay is the union view over all discovered layers. The winning entry
// per path is computed once at discovery time; Resolve never re-derives it.
type Overlay struct {
	layers []*catdat.Layer
	view   map[string]Handle
	// ranks records, per path, the set of layer ranks defining it. Lets the
	// layers command show what shadows what without touching payloads.
	ranks  map[string]*roaring.Bitmap
	logger *slog.Logger
}

// Discover probes root for 01.cat/01.dat .. 99.cat/99.dat, stopping at the
// first missing pair, then probes extensions/<name>/ext_01.cat the same way.
// Extension layers rank above every base layer, in lexical extension order.
// Only index tables are read here.
func Discover(fs billy.Filesystem, logger *slog.Logger) (*Overlay, error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Overlay{
		view:   make(map[string]Handle),
		ranks:  make(map[string]*roaring.Bitmap),
		logger: logger,
	}

	n, err := o.probe(fs, "", "%02d.cat", "%02d.dat", 0)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: no 01.cat under game root", ErrNoLayers)
	}

	rank := o.layers[len(o.layers)-1].Rank
	for _, ext := range listExtensionDirs(fs) {
		extDir := "extensions/" + ext
		added, err := o.probe(fs, extDir, "ext_%02d.cat", "ext_%02d.dat", rank)
		if err != nil {
			return nil, fmt.Errorf("extension %s: %w", ext, err)
		}
		rank += added
		logger.Debug("loaded extension archives", "extension", ext, "layers", added)
	}

	o.buildView()
	logger.Debug("overlay ready", "layers", len(o.layers), "paths", len(o.view))
	return o, nil
}

// probe loads sequentially numbered pairs under dir until the first gap.
// rankBase offsets the assigned ranks so extensions sort above the base game.
// Returns the number of layers added.
func (o *Overlay) probe(fs billy.Filesystem, dir, catFmt, datFmt string, rankBase int) (int, error) {
	added := 0
	for i := 1; i <= maxRank; i++ {
		catPath := path.Join(dir, fmt.Sprintf(catFmt, i))
		datPath := path.Join(dir, fmt.Sprintf(datFmt, i))
		if !fileExists(fs, catPath) || !fileExists(fs, datPath) {
			break
		}

		layer, err := catdat.Open(fs, catPath, datPath, rankBase+i)
		if err != nil {
			return added, err
		}
		if dir != "" {
			layer = layer.Remount(dir)
		}
		o.layers = append(o.layers, layer)
		o.logger.Debug("loaded archive layer",
			"cat", catPath, "rank", layer.Rank, "entries", layer.Len())
		added++
	}
	return added, nil
}

// buildView computes the union-by-path mapping, highest rank winning.
// Layers are walked in ascending rank so later writes shadow earlier ones.
func (o *Overlay) buildView() {
	sort.Slice(o.layers, func(i, j int) bool { return o.layers[i].Rank < o.layers[j].Rank })
	for _, layer := range o.layers {
		for _, p := range layer.Paths() {
			e, _ := layer.Entry(p)
			o.view[p] = Handle{entry: e, layer: layer}

			bm, ok := o.ranks[p]
			if !ok {
				bm = roaring.New()
				o.ranks[p] = bm
			}
			bm.Add(uint32(layer.Rank))
		}
	}
}

// Resolve returns the winning handle for a path, from the highest-ranked
// layer defining it. O(1) against the precomputed view.
func (o *Overlay) Resolve(p string) (Handle, bool) {
	h, ok := o.view[catdat.NormalizePath(p)]
	return h, ok
}

// Read performs the payload read for exactly the winning layer's entry.
// Shadowed lower-rank copies are never touched.
func (o *Overlay) Read(h Handle) ([]byte, error) {
	return h.layer.ReadEntry(h.entry)
}

// Open resolves and reads in one step.
func (o *Overlay) Open(p string) ([]byte, error) {
	h, ok := o.Resolve(p)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return o.Read(h)
}

// Exists implements Source.
func (o *Overlay) Exists(p string) bool {
	_, ok := o.Resolve(p)
	return ok
}

// List returns the union view's file paths directly under dir, sorted.
func (o *Overlay) List(dir string) ([]string, error) {
	prefix := catdat.NormalizePath(dir)
	if prefix != "" {
		prefix += "/"
	}
	var out []string
	for p := range o.view {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		if strings.Contains(p[len(prefix):], "/") {
			continue // only direct children
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
	}
	sort.Strings(out)
	return out, nil
}

// Extensions implements Source: extension names are the directories the
// overlay found ext archives under.
func (o *Overlay) Extensions() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, l := range o.layers {
		p := catdat.NormalizePath(l.CatPath)
		if !strings.HasPrefix(p, "extensions/") {
			continue
		}
		name := strings.SplitN(p, "/", 3)[1]
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Paths returns every path in the union view, sorted. Used by glob-driven
// definition discovery.
func (o *Overlay) Paths() []string {
	out := make([]string, 0, len(o.view))
	for p := range o.view {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Shadowed returns the ranks of all layers defining a path, ascending.
// The last element is the winner.
func (o *Overlay) Shadowed(p string) []int {
	bm, ok := o.ranks[catdat.NormalizePath(p)]
	if !ok {
		return nil
	}
	arr := bm.ToArray()
	out := make([]int, len(arr))
	for i, r := range arr {
		out[i] = int(r)
	}
	return out
}

// Layers returns the discovered layers in ascending rank order.
func (o *Overlay) Layers() []*catdat.Layer {
	out := make([]*catdat.Layer, len(o.layers))
	copy(out, o.layers)
	return out
}

func fileExists(fs billy.Filesystem, p string) bool {
	info, err := fs.Stat(p)
	return err == nil && !info.IsDir()
}

func listExtensionDirs(fs billy.Filesystem) []string {
	infos, err := fs.ReadDir("extensions")
	if err != nil {
		return nil
	}
	var names []string
	for _, info := range infos {
		if info.IsDir() {
			names = append(names, info.Name())
		}
	}
	sort.Strings(names)
	return names
}
