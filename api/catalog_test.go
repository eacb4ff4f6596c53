package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	t.Run("kind names", func(t *testing.T) {
		assert.Equal(t,
			[]string{"engines", "missilelaunchers", "shields", "ships", "weapons"},
			c.Names())
	})

	t.Run("ship documents match by size directory", func(t *testing.T) {
		ships, ok := c.Kind("ships")
		require.True(t, ok)
		assert.True(t, ships.Matches("assets/units/size_xl/macros/ship_par_xl_carrier_01_macro.xml"))
		assert.False(t, ships.Matches("assets/units/size_xl/ship_par_xl_carrier_01.xml"), "non-macro doc")
		assert.True(t, ships.HasClass("ship_s"))
		assert.False(t, ships.HasClass("engine"))
	})

	t.Run("engine prefix filter admits thrusters", func(t *testing.T) {
		engines, ok := c.Kind("engines")
		require.True(t, ok)
		assert.True(t, engines.Matches("assets/props/engines/macros/engine_arg_s_travel_01_mk1_macro.xml"))
		assert.True(t, engines.Matches("assets/props/engines/macros/thruster_gen_s_01_mk1_macro.xml"))
		assert.False(t, engines.Matches("assets/props/engines/macros/generic_engine_macro.xml"))
	})

	t.Run("auxiliary classes are connection-only", func(t *testing.T) {
		assert.True(t, c.IsAuxiliary("dockingbay"))
		assert.False(t, c.IsAuxiliary("engine"))
	})
}

func TestLoadHCL(t *testing.T) {
	src := `
auxiliary = ["storage"]

kind "engines" {
  classes  = ["engine"]
  globs    = ["assets/props/engines/macros/*.xml"]
  prefixes = ["engine_"]
}
`
	c, err := Load("catalog.hcl", []byte(src))
	require.NoError(t, err)
	require.Len(t, c.Kinds, 1)

	engines, ok := c.Kind("engines")
	require.True(t, ok)
	assert.True(t, engines.Matches("assets/props/engines/macros/engine_a_macro.xml"))
	assert.False(t, engines.Matches("assets/props/engines/macros/thruster_a_macro.xml"))
	assert.True(t, c.IsAuxiliary("storage"))
}

func TestLoadHCLBadGlob(t *testing.T) {
	src := `
kind "broken" {
  classes = ["x"]
  globs   = ["assets/[oops"]
}
`
	_, err := Load("catalog.hcl", []byte(src))
	assert.Error(t, err)
}
