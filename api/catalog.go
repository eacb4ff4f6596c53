// Package api defines the kind catalog: the exported configuration surface
// that tells the resolver, per object kind, where its definition documents
// live in the game tree and which macro classes belong to it.
package api

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Kind describes one exportable object kind.
type Kind struct {
	// Name is the user-facing kind name ("ships", "engines", ...).
	Name string `hcl:"name,label"`
	// Classes lists the macro classes materialized as top-level records.
	Classes []string `hcl:"classes"`
	// Globs locate the kind's definition documents in the logical tree.
	Globs []string `hcl:"globs"`
	// Prefixes optionally filter matched documents by file-name prefix.
	Prefixes []string `hcl:"prefixes,optional"`

	compiled []glob.Glob
}

// Catalog is the full kind table plus the auxiliary macro classes that are
// only ever reached through connections and never exported on their own.
type Catalog struct {
	// Auxiliary classes resolve silently as connection targets; any other
	// unlisted class raises an UnknownKind diagnostic.
	Auxiliary []string `hcl:"auxiliary,optional"`
	Kinds     []Kind   `hcl:"kind,block"`
}

// Load decodes a catalog from HCL and compiles its globs.
func Load(filename string, src []byte) (*Catalog, error) {
	var c Catalog
	if err := hclsimple.Decode(filename, src, nil, &c); err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", filename, err)
	}
	if err := c.compile(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", filename, err)
	}
	return &c, nil
}

// LoadFile decodes a catalog from an HCL file on disk.
func LoadFile(path string) (*Catalog, error) {
	var c Catalog
	if err := hclsimple.DecodeFile(path, nil, &c); err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	if err := c.compile(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &c, nil
}

func (c *Catalog) compile() error {
	for i := range c.Kinds {
		k := &c.Kinds[i]
		k.compiled = k.compiled[:0]
		for _, pattern := range k.Globs {
			g, err := glob.Compile(strings.ToLower(pattern), '/')
			if err != nil {
				return fmt.Errorf("kind %s: glob %q: %w", k.Name, pattern, err)
			}
			k.compiled = append(k.compiled, g)
		}
	}
	return nil
}

// Kind returns the named kind.
func (c *Catalog) Kind(name string) (*Kind, bool) {
	for i := range c.Kinds {
		if c.Kinds[i].Name == name {
			return &c.Kinds[i], true
		}
	}
	return nil, false
}

// Names returns all kind names, sorted.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.Kinds))
	for i := range c.Kinds {
		out = append(out, c.Kinds[i].Name)
	}
	sort.Strings(out)
	return out
}

// IsAuxiliary reports whether a macro class is a known connection-only class.
func (c *Catalog) IsAuxiliary(class string) bool {
	for _, a := range c.Auxiliary {
		if a == class {
			return true
		}
	}
	return false
}

// HasClass reports whether a macro class produces top-level records for
// this kind.
func (k *Kind) HasClass(class string) bool {
	for _, c := range k.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// Matches reports whether a logical document path belongs to this kind:
// one of the globs matches and, when prefixes are set, the base file name
// starts with one of them.
func (k *Kind) Matches(path string) bool {
	matched := false
	for _, g := range k.compiled {
		if g.Match(path) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	if len(k.Prefixes) == 0 {
		return true
	}
	base := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		base = path[i+1:]
	}
	for _, p := range k.Prefixes {
		if strings.HasPrefix(base, p) {
			return true
		}
	}
	return false
}

// Default returns the built-in catalog for the base game's asset layout.
func Default() *Catalog {
	c := &Catalog{
		Auxiliary: []string{
			"cockpit", "storage", "dockingbay", "dockarea", "buildmodule",
			"buildprocessor", "destructible", "spacesuit",
		},
		Kinds: []Kind{
			{
				Name:    "ships",
				Classes: []string{"ship_xs", "ship_s", "ship_m", "ship_l", "ship_xl"},
				Globs:   []string{"assets/units/size_*/macros/*.xml"},
			},
			{
				Name:     "engines",
				Classes:  []string{"engine"},
				Globs:    []string{"assets/props/engines/macros/*.xml"},
				Prefixes: []string{"engine_", "thruster_"},
			},
			{
				Name:     "shields",
				Classes:  []string{"shieldgenerator"},
				Globs:    []string{"assets/props/surfaceelements/macros/*.xml"},
				Prefixes: []string{"shield_"},
			},
			{
				Name:    "weapons",
				Classes: []string{"weapon", "turret", "bomblauncher", "bullet"},
				Globs: []string{
					"assets/props/weaponsystems/*/macros/*.xml",
					"assets/fx/weaponfx/macros/*.xml",
				},
				Prefixes: []string{
					"weapon_", "turret_", "bullet_",
					"spacesuit_gen_laser_", "spacesuit_gen_repairweapon_",
				},
			},
			{
				Name:    "missilelaunchers",
				Classes: []string{"missilelauncher", "missileturret", "missile", "bomb"},
				Globs: []string{
					"assets/props/weaponsystems/*/macros/*.xml",
					"assets/fx/weaponfx/macros/*.xml",
				},
				Prefixes: []string{
					"weapon_", "turret_", "missile_", "bomb_",
					"spacesuit_gen_bomblauncher_",
				},
			},
		},
	}
	if err := c.compile(); err != nil {
		// The built-in globs are constants; a compile failure is a bug.
		panic(err)
	}
	return c
}
