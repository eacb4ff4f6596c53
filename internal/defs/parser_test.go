package defs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const engineDoc = `<?xml version="1.0" encoding="utf-8"?>
<macros>
  <macro name="engine_arg_s_travel_01_mk1_macro" class="engine">
    <component ref="engine_arg_s_travel_01_mk1" />
    <properties>
      <identification name="{20107,1204}" makerrace="argon" description="{20107,1202}" />
      <thrust forward="528" reverse="411" />
      <travel charge="0" thrust="8.5" attack="60" release="10" />
      <boost duration="5" thrust="5.5" />
      <physics mass="2.4">
        <inertia pitch="0.4" yaw="0.4" roll="0.3" />
      </physics>
      <hull max="520" threshold="0.5" />
    </properties>
  </macro>
  <macro name="engine_arg_s_travel_02_mk1_macro" class="engine" extends="engine_arg_s_travel_01_mk1_macro">
    <properties>
      <thrust forward="600" />
    </properties>
  </macro>
</macros>`

func TestParseMacros(t *testing.T) {
	nodes, err := ParseMacros("assets/props/engines/macros/engine_arg.xml", []byte(engineDoc))
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	base, child := nodes[0], nodes[1]

	t.Run("identity and component reference", func(t *testing.T) {
		assert.Equal(t, "engine_arg_s_travel_01_mk1_macro", base.Name)
		assert.Equal(t, "engine", base.Kind)
		assert.Equal(t, "engine_arg_s_travel_01_mk1", base.Component)
		assert.Empty(t, base.Extends)
	})

	t.Run("properties flatten to dotted raw strings", func(t *testing.T) {
		assert.Equal(t, "528", base.Properties["thrust.forward"])
		assert.Equal(t, "8.5", base.Properties["travel.thrust"])
		assert.Equal(t, "2.4", base.Properties["physics.mass"])
		assert.Equal(t, "0.4", base.Properties["physics.inertia.pitch"])
		assert.Equal(t, "{20107,1204}", base.Properties["identification.name"])
	})

	t.Run("extends is recorded by name only", func(t *testing.T) {
		assert.Equal(t, "engine_arg_s_travel_01_mk1_macro", child.Extends)
		assert.Equal(t, "600", child.Properties["thrust.forward"])
		_, declared := child.Properties["travel.thrust"]
		assert.False(t, declared, "child must not inherit at parse time")
	})
}

func TestParseMacrosConnections(t *testing.T) {
	doc := `<macros>
  <macro name="ship_arg_s_fighter_01_macro" class="ship_s">
    <connections>
      <connection ref="con_engine_01"><macro ref="engine_arg_s_travel_01_mk1_macro" /></connection>
      <connection ref="con_engine_02"><macro ref="engine_arg_s_travel_01_mk1_macro" /></connection>
      <connection ref="con_shield_01"><macro ref="shield_arg_s_standard_01_mk1_macro" /></connection>
    </connections>
  </macro>
</macros>`
	nodes, err := ParseMacros("assets/units/size_s/macros/ship_arg.xml", []byte(doc))
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	// Repeated targets on different mount points are legitimate and must be
	// preserved in document order.
	assert.Equal(t, []Connection{
		{Role: "con_engine_01", Target: "engine_arg_s_travel_01_mk1_macro"},
		{Role: "con_engine_02", Target: "engine_arg_s_travel_01_mk1_macro"},
		{Role: "con_shield_01", Target: "shield_arg_s_standard_01_mk1_macro"},
	}, nodes[0].Connections)
}

func TestParseMacrosMalformed(t *testing.T) {
	t.Run("unterminated element", func(t *testing.T) {
		_, err := ParseMacros("x.xml", []byte(`<macros><macro name="a" class="engine">`))
		assert.ErrorIs(t, err, ErrMalformedDefinition)
	})

	t.Run("duplicate macro name in one document", func(t *testing.T) {
		doc := `<macros>
  <macro name="a_macro" class="engine" />
  <macro name="a_macro" class="engine" />
</macros>`
		_, err := ParseMacros("x.xml", []byte(doc))
		assert.ErrorIs(t, err, ErrMalformedDefinition)
	})

	t.Run("unexpected root element", func(t *testing.T) {
		_, err := ParseMacros("x.xml", []byte(`<wares />`))
		assert.ErrorIs(t, err, ErrMalformedDefinition)
	})

	t.Run("unnamed macro stubs are skipped, not fatal", func(t *testing.T) {
		nodes, err := ParseMacros("x.xml", []byte(`<macros><macro /></macros>`))
		require.NoError(t, err)
		assert.Empty(t, nodes)
	})
}

func TestParseComponents(t *testing.T) {
	doc := `<components>
  <component name="engine_arg_s_travel_01_mk1" class="engine ">
    <connections>
      <connection name="con_1" tags="engine small platformcollision" />
      <connection name="con_2" tags="part" />
    </connections>
  </component>
</components>`
	comps, err := ParseComponents("assets/props/engines/engine_arg.xml", []byte(doc))
	require.NoError(t, err)
	require.Len(t, comps, 1)

	// A pesky component ships a trailing space in its class.
	assert.Equal(t, "engine", comps[0].Kind)
	assert.Equal(t, []string{"engine small platformcollision", "part"}, comps[0].ConnectionTags)
}

func TestParseIndex(t *testing.T) {
	doc := `<index>
  <entry name="engine_arg_s_travel_01_mk1_macro" value="assets\props\Engines\macros\engine_arg_s_travel_01_mk1_macro" />
  <entry name="bad_entry" value="" />
</index>`
	idx, err := ParseIndex("index/macros.xml", []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"engine_arg_s_travel_01_mk1_macro": "assets/props/engines/macros/engine_arg_s_travel_01_mk1_macro.xml",
	}, idx)
}
