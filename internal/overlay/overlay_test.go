package overlay

import (
	"fmt"
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const noHash = "00000000000000000000000000000000"

// writeLayer writes a cat/dat pair where each file's content is given in
// files, in iteration-stable slice order.
func writeLayer(t *testing.T, fs billy.Filesystem, catPath, datPath string, files [][2]string) {
	t.Helper()
	var cat, dat string
	for _, f := range files {
		cat += fmt.Sprintf("%s %d 1600000000 %s\n", f[0], len(f[1]), noHash)
		dat += f[1]
	}
	require.NoError(t, util.WriteFile(fs, catPath, []byte(cat), 0o644))
	require.NoError(t, util.WriteFile(fs, datPath, []byte(dat), 0o644))
}

func TestDiscoverNoLayers(t *testing.T) {
	fs := memfs.New()
	_, err := Discover(fs, nil)
	assert.ErrorIs(t, err, ErrNoLayers)

	// A leading gap is fatal even when 02.cat exists.
	writeLayer(t, fs, "02.cat", "02.dat", [][2]string{{"a/x.xml", "two"}})
	_, err = Discover(fs, nil)
	assert.ErrorIs(t, err, ErrNoLayers)
}

func TestOverlayLastWriterWins(t *testing.T) {
	fs := memfs.New()
	writeLayer(t, fs, "01.cat", "01.dat", [][2]string{
		{"a/x.xml", "rank-one"},
		{"a/only_in_one.xml", "base"},
	})
	writeLayer(t, fs, "02.cat", "02.dat", [][2]string{{"A/X.xml", "rank-two"}})
	writeLayer(t, fs, "03.cat", "03.dat", [][2]string{{"a/x.xml", "rank-three"}})

	o, err := Discover(fs, nil)
	require.NoError(t, err)
	require.Len(t, o.Layers(), 3)

	t.Run("resolve picks the maximum rank", func(t *testing.T) {
		h, ok := o.Resolve("a/x.xml")
		require.True(t, ok)
		assert.Equal(t, 3, h.Rank())

		data, err := o.Read(h)
		require.NoError(t, err)
		assert.Equal(t, []byte("rank-three"), data)
	})

	t.Run("lookups are case-insensitive", func(t *testing.T) {
		h, ok := o.Resolve(`A\x.XML`)
		require.True(t, ok)
		assert.Equal(t, 3, h.Rank())
	})

	t.Run("unshadowed paths fall through to their only layer", func(t *testing.T) {
		data, err := o.Open("a/only_in_one.xml")
		require.NoError(t, err)
		assert.Equal(t, []byte("base"), data)
	})

	t.Run("shadowed ranks are reported ascending", func(t *testing.T) {
		assert.Equal(t, []int{1, 2, 3}, o.Shadowed("a/x.xml"))
		assert.Equal(t, []int{1}, o.Shadowed("a/only_in_one.xml"))
	})

	t.Run("missing path resolves to nothing", func(t *testing.T) {
		_, ok := o.Resolve("a/absent.xml")
		assert.False(t, ok)
		_, err := o.Open("a/absent.xml")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestOverlayGapStopsProbing(t *testing.T) {
	fs := memfs.New()
	writeLayer(t, fs, "01.cat", "01.dat", [][2]string{{"a/x.xml", "one"}})
	// 02 missing; 03 must be ignored.
	writeLayer(t, fs, "03.cat", "03.dat", [][2]string{{"a/x.xml", "three"}})

	o, err := Discover(fs, nil)
	require.NoError(t, err)
	assert.Len(t, o.Layers(), 1)

	data, err := o.Open("a/x.xml")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), data)
}

func TestOverlayExtensions(t *testing.T) {
	fs := memfs.New()
	writeLayer(t, fs, "01.cat", "01.dat", [][2]string{
		{"a/x.xml", "base"},
		{"a/base_only.xml", "keep"},
	})
	writeLayer(t, fs, "extensions/ego_dlc_split/ext_01.cat", "extensions/ego_dlc_split/ext_01.dat",
		[][2]string{{"a/x.xml", "dlc-wins"}, {"b/new.xml", "added"}})

	o, err := Discover(fs, nil)
	require.NoError(t, err)

	t.Run("extension files live under their own subtree", func(t *testing.T) {
		// Extension archive paths are relative to the extension root and are
		// remounted under extensions/<name>/; they never shadow base paths.
		data, err := o.Open("a/x.xml")
		require.NoError(t, err)
		assert.Equal(t, []byte("base"), data)

		data, err = o.Open("extensions/ego_dlc_split/a/x.xml")
		require.NoError(t, err)
		assert.Equal(t, []byte("dlc-wins"), data)

		assert.True(t, o.Exists("extensions/ego_dlc_split/b/new.xml"))
		assert.False(t, o.Exists("b/new.xml"))
	})

	t.Run("extension names are discovered", func(t *testing.T) {
		assert.Equal(t, []string{"ego_dlc_split"}, o.Extensions())
	})
}

func TestOverlayList(t *testing.T) {
	fs := memfs.New()
	writeLayer(t, fs, "01.cat", "01.dat", [][2]string{
		{"assets/props/engines/macros/engine_a_macro.xml", "<macros/>"},
		{"assets/props/engines/macros/engine_b_macro.xml", "<macros/>"},
		{"assets/props/engines/textures/skip.gz", "zz"},
	})

	o, err := Discover(fs, nil)
	require.NoError(t, err)

	paths, err := o.List("assets/props/Engines/macros")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"assets/props/engines/macros/engine_a_macro.xml",
		"assets/props/engines/macros/engine_b_macro.xml",
	}, paths)

	_, err = o.List("assets/nothing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFSSource(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "libraries/wares.xml", []byte("<wares/>"), 0o644))
	require.NoError(t, util.WriteFile(fs, "t/0001-l044.xml", []byte("<language/>"), 0o644))

	src := NewFSSource(fs)

	data, err := src.Open("libraries/wares.xml")
	require.NoError(t, err)
	assert.Equal(t, []byte("<wares/>"), data)

	assert.True(t, src.Exists("libraries/wares.xml"))
	assert.False(t, src.Exists("libraries"))
	assert.False(t, src.Exists("libraries/missing.xml"))

	paths, err := src.List("libraries")
	require.NoError(t, err)
	assert.Equal(t, []string{"libraries/wares.xml"}, paths)

	assert.Equal(t, []string{"libraries/wares.xml", "t/0001-l044.xml"}, src.Paths())

	assert.Empty(t, src.Extensions())
}
