package lang

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const langFile = `<?xml version="1.0" encoding="utf-8"?>
<language id="44">
  <page id="20101">
    <t id="30302">Nemesis Vanguard</t>
    <t id="30303">Nemesis Sentinel</t>
    <t id="40001">{20101,30302} (comment for translators)</t>
    <t id="40002">Escaped \(not a comment\)</t>
  </page>
</language>`

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := Load("en", []byte(langFile))
	require.NoError(t, err)
	return r
}

func TestResolve(t *testing.T) {
	r := newResolver(t)

	t.Run("plain substitution", func(t *testing.T) {
		assert.Equal(t, "This ship is Nemesis Vanguard",
			r.Resolve("This ship is {20101,30302}"))
	})

	t.Run("whitespace inside placeholder", func(t *testing.T) {
		assert.Equal(t, "Nemesis Sentinel", r.Resolve("{ 20101 , 30303 }"))
	})

	t.Run("nested references resolve to a fixpoint", func(t *testing.T) {
		assert.Equal(t, "Nemesis Vanguard ", r.Resolve("{20101,40001}"))
	})

	t.Run("translator comments are stripped, escaped parens kept", func(t *testing.T) {
		assert.Equal(t, "Escaped (not a comment)", r.Resolve("{20101,40002}"))
	})

	t.Run("unresolved placeholders stay verbatim and are reported", func(t *testing.T) {
		got := r.Resolve("Missing {99999,1}")
		assert.Equal(t, "Missing {99999,1}", got)
		assert.Contains(t, r.Unresolved(), "{99999,1}")
	})

	t.Run("empty template passes through", func(t *testing.T) {
		assert.Equal(t, "", r.Resolve(""))
	})

	t.Run("stripped variant trims padding", func(t *testing.T) {
		assert.Equal(t, "Nemesis Vanguard", r.ResolveStripped(" {20101,30302} "))
	})
}

func TestResolveConcurrent(t *testing.T) {
	r := newResolver(t)

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.Equal(t, "Nemesis Vanguard", r.Resolve("{20101,30302}"))
			r.Resolve(fmt.Sprintf("{99999,%d}", i))
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.Unresolved(), workers)
}

func TestFileForLocale(t *testing.T) {
	p, ok := FileForLocale("EN")
	require.True(t, ok)
	assert.Equal(t, "t/0001-l044.xml", p)

	p, ok = FileForLocale("german")
	require.True(t, ok)
	assert.Equal(t, "t/0001-l049.xml", p)

	_, ok = FileForLocale("klingon")
	assert.False(t, ok)
}

func TestLoadMalformed(t *testing.T) {
	_, err := Load("en", []byte("<language><page"))
	assert.Error(t, err)
}
