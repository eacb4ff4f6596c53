package wares

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x4tools/projector/internal/lang"
	"github.com/x4tools/projector/internal/overlay"
)

const baseWares = `<wares>
  <ware id="energycells" name="{20201,101}" transport="container" volume="1" tags="economy stationbuilding">
    <price min="10" average="16" max="22"/>
    <production time="60" amount="175" method="default" name="{20206,101}">
      <primary/>
    </production>
    <owner faction="argon"/>
    <owner faction="teladi"/>
  </ware>
  <ware id="spaceweed" name="{20201,701}" transport="container" volume="3" tags="economy" illegal="argon antigone">
    <price min="396" average="622" max="848"/>
    <restriction licence="generaluseable"/>
    <production time="600" amount="76" method="default" name="{20206,701}">
      <primary>
        <ware ware="energycells" amount="40"/>
        <ware ware="water" amount="120"/>
      </primary>
    </production>
    <owner faction="teladi"/>
  </ware>
</wares>`

const extWares = `<wares>
  <ware id="energycells" name="{20201,101}" transport="container" volume="2" tags="economy">
    <price min="12" average="18" max="24"/>
  </ware>
</wares>`

const langFile = `<language id="44">
  <page id="20201">
    <t id="101">Energy Cells</t>
    <t id="701">Spaceweed (illegal)</t>
  </page>
  <page id="20206">
    <t id="101">Energy Cell Production</t>
    <t id="701">Spaceweed Farming</t>
  </page>
</language>`

func TestLoad(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "libraries/wares.xml", []byte(baseWares), 0o644))

	lr, err := lang.Load("en", []byte(langFile))
	require.NoError(t, err)

	records, err := Load(overlay.NewFSSource(fs), lr, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)

	energy := records[0]
	assert.Equal(t, "energycells", energy.ID)
	assert.Equal(t, "ware", energy.Class)
	assert.Equal(t, "Energy Cells", energy.Attr("name"))
	assert.Equal(t, "container", energy.Attr("group"))
	assert.Equal(t, 1, energy.Attr("volume"))
	assert.Equal(t, 16, energy.Attr("price_avg"))
	assert.Equal(t, []string{"argon", "teladi"}, energy.Attr("owners"))

	weed := records[1]
	assert.Equal(t, "spaceweed", weed.ID)
	assert.Equal(t, "generaluseable", weed.Attr("licence"))
	assert.Equal(t, "argon antigone", weed.Attr("illegal"))

	prods, ok := weed.Attr("production").([]Production)
	require.True(t, ok)
	require.Len(t, prods, 1)
	assert.Equal(t, "Spaceweed Farming", prods[0].Name)
	assert.Equal(t, 600.0, prods[0].Time)
	assert.Equal(t, 76, prods[0].Amount)
	assert.Equal(t, map[string]int{"energycells": 40, "water": 120}, prods[0].Consumption)
}

func TestLoadWithoutLanguage(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "libraries/wares.xml", []byte(baseWares), 0o644))

	records, err := Load(overlay.NewFSSource(fs), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "{20201,101}", records[0].Attr("name"))
}

func TestLoadExtensionOverride(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "libraries/wares.xml", []byte(baseWares), 0o644))
	require.NoError(t, util.WriteFile(fs, "extensions/ego_dlc_split/libraries/wares.xml", []byte(extWares), 0o644))

	records, err := Load(overlay.NewFSSource(fs), nil, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, records[0].Attr("volume"))
	assert.Equal(t, 18, records[0].Attr("price_avg"))
}

func TestLoadMissingLibrary(t *testing.T) {
	_, err := Load(overlay.NewFSSource(memfs.New()), nil, nil)
	assert.Error(t, err)
}

func TestLoadPatchDocumentSkipped(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "libraries/wares.xml", []byte(baseWares), 0o644))
	require.NoError(t, util.WriteFile(fs, "extensions/ego_dlc_terran/libraries/wares.xml",
		[]byte(`<diff><add sel="/wares"/></diff>`), 0o644))

	records, err := Load(overlay.NewFSSource(fs), nil, nil)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
