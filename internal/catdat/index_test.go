package catdat

import (
	"crypto/md5"
	"encoding/hex"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIndex(t *testing.T) {
	cat := "assets/units/size_s/ship_a.xml 10 1600000000 00000000000000000000000000000000\n" +
		"assets/props/Engines/macros/engine with space.xml 25 1600000001 0123456789abcdef0123456789abcdef\n" +
		"t/0001-L044.xml 5 1600000002 00000000000000000000000000000000\n"

	entries, err := ParseIndex([]byte(cat), 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	t.Run("offsets accumulate in table order", func(t *testing.T) {
		assert.Equal(t, int64(0), entries[0].Offset)
		assert.Equal(t, int64(10), entries[1].Offset)
		assert.Equal(t, int64(35), entries[2].Offset)
	})

	t.Run("paths are case-normalized", func(t *testing.T) {
		assert.Equal(t, "assets/props/engines/macros/engine with space.xml", entries[1].Path)
	})

	t.Run("zero hash means unverified", func(t *testing.T) {
		assert.False(t, entries[0].Verified())
		assert.True(t, entries[1].Verified())
	})

	t.Run("rank is stamped on every entry", func(t *testing.T) {
		for _, e := range entries {
			assert.Equal(t, 3, e.Rank)
		}
	})
}

func TestParseIndexMalformed(t *testing.T) {
	cases := map[string]string{
		"too few fields":  "just_a_path.xml 10 1600000000\n",
		"bad size":        "a.xml ten 1600000000 00000000000000000000000000000000\n",
		"negative size":   "a.xml -5 1600000000 00000000000000000000000000000000\n",
		"bad hash":        "a.xml 5 1600000000 nothex\n",
		"empty game path": "// 5 1600000000 00000000000000000000000000000000\n",
		"duplicate path": "a.xml 5 1600000000 00000000000000000000000000000000\n" +
			"A.XML 5 1600000000 00000000000000000000000000000000\n",
	}
	for name, cat := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseIndex([]byte(cat), 1)
			assert.ErrorIs(t, err, ErrMalformedIndex)
		})
	}
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "assets/units/ship.xml", NormalizePath(`Assets\Units//ship.XML`))
	assert.Equal(t, "a/b", NormalizePath("/a/./b/"))
	assert.Equal(t, "", NormalizePath("//"))
}

func TestLayerReadEntry(t *testing.T) {
	fs := memfs.New()
	payload := []byte("helloworld") // two files: hello + world
	sum := md5.Sum([]byte("world"))

	cat := "a/hello.txt 5 1600000000 00000000000000000000000000000000\n" +
		"a/world.txt 5 1600000000 " + hex.EncodeToString(sum[:]) + "\n"
	require.NoError(t, util.WriteFile(fs, "01.cat", []byte(cat), 0o644))
	require.NoError(t, util.WriteFile(fs, "01.dat", payload, 0o644))

	layer, err := Open(fs, "01.cat", "01.dat", 1)
	require.NoError(t, err)
	require.Equal(t, 2, layer.Len())

	t.Run("reads exactly the entry byte range", func(t *testing.T) {
		e, ok := layer.Entry("a/hello.txt")
		require.True(t, ok)
		data, err := layer.ReadEntry(e)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("checksum verified when present", func(t *testing.T) {
		e, ok := layer.Entry("a/world.txt")
		require.True(t, ok)
		data, err := layer.ReadEntry(e)
		require.NoError(t, err)
		assert.Equal(t, []byte("world"), data)
	})

	t.Run("mismatched checksum fails with ErrCorruptPayload", func(t *testing.T) {
		e, ok := layer.Entry("a/world.txt")
		require.True(t, ok)
		e.Hash = "deadbeefdeadbeefdeadbeefdeadbeef"
		_, err := layer.ReadEntry(e)
		assert.ErrorIs(t, err, ErrCorruptPayload)
	})

	t.Run("truncated payload fails with ErrCorruptPayload", func(t *testing.T) {
		e, ok := layer.Entry("a/world.txt")
		require.True(t, ok)
		e.Size = 50 // past EOF
		_, err := layer.ReadEntry(e)
		assert.ErrorIs(t, err, ErrCorruptPayload)
	})

	t.Run("remount prefixes every path", func(t *testing.T) {
		re := layer.Remount("extensions/split")
		e, ok := re.Entry("extensions/split/a/hello.txt")
		require.True(t, ok)
		data, err := re.ReadEntry(e)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})
}
