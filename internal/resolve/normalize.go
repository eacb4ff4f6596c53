package resolve

import (
	"strconv"
	"strings"

	"github.com/x4tools/projector/internal/defs"
)

// Raw macro properties arrive as dotted string keys ("thrust.forward").
// Normalization maps the keys each class is known to carry onto stable,
// typed attribute names; raw keys no rule consumes are passed through
// verbatim so new game attributes survive export unmodified.

type attrType int

const (
	attrString attrType = iota
	attrText // language template, resolved and stripped
	attrInt
	attrFloat
)

type attrSpec struct {
	out string // normalized attribute name
	in  string // raw dotted property key
	alt string // fallback raw key when in is absent
	typ attrType
	def any // value when neither key is present
}

var identSpecs = []attrSpec{
	{out: "name", in: "identification.name", typ: attrText, def: ""},
	{out: "makerrace", in: "identification.makerrace", typ: attrString, def: ""},
	{out: "description", in: "identification.description", typ: attrText, def: ""},
}

var hullSpecs = []attrSpec{
	{out: "hull", in: "hull.max", typ: attrInt, def: -1},
	{out: "hull_integrated", in: "hull.integrated", typ: attrInt, def: 0},
	{out: "hull_threshold", in: "hull.threshold", typ: attrFloat, def: 0.0},
}

var physicsSpecs = []attrSpec{
	{out: "mass", in: "physics.mass", typ: attrFloat, def: 0.0},
	{out: "inertia_pitch", in: "physics.inertia.pitch", typ: attrFloat, def: 0.0},
	{out: "inertia_yaw", in: "physics.inertia.yaw", typ: attrFloat, def: 0.0},
	{out: "inertia_roll", in: "physics.inertia.roll", typ: attrFloat, def: 0.0},
	{out: "drag_forward", in: "physics.drag.forward", typ: attrFloat, def: 0.0},
	{out: "drag_reverse", in: "physics.drag.reverse", typ: attrFloat, def: 0.0},
	{out: "drag_horizontal", in: "physics.drag.horizontal", typ: attrFloat, def: 0.0},
	{out: "drag_vertical", in: "physics.drag.vertical", typ: attrFloat, def: 0.0},
	{out: "drag_pitch", in: "physics.drag.pitch", typ: attrFloat, def: 0.0},
	{out: "drag_yaw", in: "physics.drag.yaw", typ: attrFloat, def: 0.0},
	{out: "drag_roll", in: "physics.drag.roll", typ: attrFloat, def: 0.0},
}

var shipSpecs = join(
	[]attrSpec{
		{out: "name", in: "identification.name", typ: attrText, def: ""},
		{out: "missile_storage", in: "storage.missile", typ: attrInt, def: 0},
		{out: "hull", in: "hull.max", typ: attrInt, def: 0},
		{out: "purpose", in: "purpose.primary", typ: attrString, def: ""},
		{out: "type", in: "ship.type", typ: attrString, def: ""},
		{out: "people", in: "people.capacity", typ: attrInt, def: 0},
		{out: "gas_gatherrate", in: "gatherrate.gas", typ: attrInt, def: 0},
	},
	physicsSpecs,
)

var engineSpecs = join(
	identSpecs,
	[]attrSpec{
		{out: "boost_duration", in: "boost.duration", typ: attrFloat, def: 0.0},
		{out: "boost_thrust", in: "boost.thrust", typ: attrFloat, def: 0.0},
		{out: "boost_release", in: "boost.release", typ: attrFloat, def: 0.0},
		{out: "boost_attack", in: "boost.attack", typ: attrFloat, def: 0.0},
		{out: "travel_charge", in: "travel.charge", typ: attrFloat, def: 0.0},
		{out: "travel_attack", in: "travel.attack", typ: attrFloat, def: 0.0},
		{out: "travel_thrust", in: "travel.thrust", typ: attrFloat, def: 0.0},
		{out: "travel_release", in: "travel.release", typ: attrFloat, def: 0.0},
		{out: "thrust_forward", in: "thrust.forward", typ: attrFloat, def: 0.0},
		{out: "thrust_reverse", in: "thrust.reverse", typ: attrFloat, def: 0.0},
		{out: "thrust_strafe", in: "thrust.strafe", typ: attrFloat, def: 0.0},
		{out: "thrust_pitch", in: "thrust.pitch", typ: attrFloat, def: 0.0},
		{out: "thrust_yaw", in: "thrust.yaw", typ: attrFloat, def: 0.0},
		{out: "thrust_roll", in: "thrust.roll", typ: attrFloat, def: 0.0},
		{out: "angular_pitch", in: "angular.pitch", typ: attrFloat, def: 0.0},
		{out: "angular_roll", in: "angular.roll", typ: attrFloat, def: 0.0},
	},
	hullSpecs,
)

var shieldSpecs = join(
	identSpecs,
	[]attrSpec{
		{out: "capacity", in: "recharge.max", typ: attrInt, def: 0},
		{out: "recharge_rate", in: "recharge.rate", typ: attrFloat, def: 0.0},
		{out: "recharge_delay", in: "recharge.delay", typ: attrFloat, def: 0.0},
	},
	hullSpecs,
)

var weaponSpecs = join(
	identSpecs,
	[]attrSpec{
		{out: "bullet_class", in: "bullet.class", typ: attrString, def: ""},
		{out: "heat_overhead", in: "heat.overheat", typ: attrInt, def: 0},
		{out: "heat_cooldelay", in: "heat.cooldelay", typ: attrFloat, def: 0.0},
		{out: "heat_coolrate", in: "heat.coolrate", typ: attrInt, def: 0},
		{out: "heat_reenable", in: "heat.reenable", typ: attrInt, def: 0},
		{out: "rotation_speed", in: "rotationspeed.max", typ: attrFloat, def: 0.0},
		{out: "rotation_accel", in: "rotationacceleration.max", typ: attrFloat, def: 0.0},
		{out: "reload_rate", in: "reload.rate", typ: attrFloat, def: 0.0},
		{out: "reload_time", in: "reload.time", typ: attrFloat, def: 0.0},
		{out: "zoom_factor", in: "zoom.factor", typ: attrFloat, def: 0.0},
		{out: "zoom_time", in: "zoom.time", typ: attrFloat, def: 0.0},
		{out: "zoom_delay", in: "zoom.delay", typ: attrFloat, def: 0.0},
	},
	hullSpecs,
	[]attrSpec{
		{out: "hull_hittable", in: "hull.hittable", typ: attrInt, def: 1},
	},
)

var bulletSpecs = []attrSpec{
	{out: "speed", in: "bullet.speed", typ: attrInt, def: 0},
	{out: "lifetime", in: "bullet.lifetime", typ: attrFloat, def: 0.0},
	{out: "range", in: "bullet.range", typ: attrInt, def: 0},
	{out: "amount", in: "bullet.amount", typ: attrInt, def: 0},
	{out: "barrelamount", in: "bullet.barrelamount", typ: attrInt, def: 0},
	{out: "timediff", in: "bullet.timediff", typ: attrFloat, def: 0.0},
	{out: "angle", in: "bullet.angle", typ: attrFloat, def: 0.0},
	{out: "maxhits", in: "bullet.maxhits", typ: attrInt, def: 0},
	{out: "ricochet", in: "bullet.ricochet", typ: attrFloat, def: 0.0},
	{out: "restitution", in: "bullet.restitution", typ: attrFloat, def: 0.0},
	{out: "scale", in: "bullet.scale", typ: attrInt, def: 0},
	{out: "attach", in: "bullet.attach", typ: attrInt, def: 0},
	{out: "chargetime", in: "bullet.chargetime", typ: attrFloat, def: 0.0},
	{out: "heat", in: "heat.value", typ: attrInt, def: 0},
	{out: "heat_initial", in: "heat.initial", typ: attrInt, def: 0},
	{out: "reload_rate", in: "reload.rate", typ: attrFloat, def: 0.0},
	{out: "reload_time", in: "reload.time", typ: attrFloat, def: 0.0},
	{out: "dmg_hull", in: "damage.hull", alt: "damage.value", typ: attrInt, def: 0},
	{out: "dmg_shields", in: "damage.shield", alt: "damage.value", typ: attrInt, def: 0},
	{out: "dmg_min", in: "damage.min", typ: attrInt, def: -1},
	{out: "dmg_max", in: "damage.max", typ: attrInt, def: -1},
	{out: "dmg_repair", in: "damage.repair", typ: attrInt, def: 0},
	{out: "dmg_delay", in: "damage.delay", typ: attrInt, def: 0},
	{out: "dmg_mining_mult", in: "damage.multiplier.mining", typ: attrInt, def: 1},
}

var missileLauncherSpecs = join(
	identSpecs,
	[]attrSpec{
		{out: "bullet_class", in: "bullet.class", typ: attrString, def: ""},
		{out: "rotation_speed", in: "rotationspeed.max", typ: attrFloat, def: 0.0},
		{out: "capacity", in: "storage.capacity", typ: attrInt, def: 0},
		{out: "ammunition", in: "ammunition.tags", typ: attrString, def: ""},
	},
	hullSpecs,
	[]attrSpec{
		{out: "hull_hittable", in: "hull.hittable", typ: attrInt, def: 1},
	},
)

var missileSpecs = join(
	identSpecs,
	[]attrSpec{
		{out: "amount", in: "missile.amount", typ: attrInt, def: 1},
		{out: "barrelamount", in: "missile.barrelamount", typ: attrInt, def: 1},
		{out: "lifetime", in: "missile.lifetime", typ: attrFloat, def: 0.0},
		{out: "range", in: "missile.range", typ: attrInt, def: 0},
		{out: "retarget", in: "missile.retarget", typ: attrInt, def: 0},
		{out: "guided", in: "missile.guided", typ: attrInt, def: 0},
		{out: "distribute", in: "missile.distribute", typ: attrInt, def: 0},
		{out: "damage_hull", in: "explosiondamage.hull", alt: "explosiondamage.value", typ: attrInt, def: 0},
		{out: "damage_shield", in: "explosiondamage.shield", alt: "explosiondamage.value", typ: attrInt, def: 0},
		{out: "reload_time", in: "reload.time", typ: attrFloat, def: 0.0},
		{out: "hull", in: "hull.max", typ: attrInt, def: 0},
		{out: "countermeasure_resilience", in: "countermeasure.resilience", typ: attrFloat, def: -1.0},
		{out: "lock_time", in: "lock.time", typ: attrInt, def: 0},
		{out: "lock_range", in: "lock.range", typ: attrInt, def: -1},
		{out: "lock_angle", in: "lock.angle", typ: attrFloat, def: -1.0},
	},
	physicsSpecs,
)

var spacesuitSpecs = []attrSpec{
	{out: "name", in: "identification.name", typ: attrText, def: ""},
	{out: "hull", in: "hull.max", typ: attrInt, def: 0},
	{out: "mass", in: "physics.mass", typ: attrFloat, def: 0.0},
	{out: "oxygen_maxtime", in: "oxygen.maxtime", typ: attrInt, def: 0},
	{out: "oxygen_warningtime", in: "oxygen.warningtime", typ: attrInt, def: 0},
}

var storageSpecs = []attrSpec{
	{out: "cargobay", in: "cargo.max", typ: attrInt, def: 0},
	{out: "storage_type", in: "cargo.tags", typ: attrString, def: ""},
}

var dockingBaySpecs = []attrSpec{
	{out: "name", in: "identification.name", typ: attrText, def: ""},
	{out: "description", in: "identification.description", typ: attrText, def: ""},
	{out: "docksize", in: "docksize.tags", typ: attrString, def: ""},
	{out: "dock_external", in: "dock.external", typ: attrInt, def: 0},
	{out: "dock_capacity", in: "dock.capacity", typ: attrInt, def: 1},
	{out: "dock_allow", in: "dock.allow", typ: attrInt, def: 1},
	{out: "dock_storage", in: "dock.storage", typ: attrInt, def: 0},
}

var dockAreaSpecs = []attrSpec{
	{out: "name", in: "identification.name", typ: attrText, def: ""},
	{out: "description", in: "identification.description", typ: attrText, def: ""},
}

// classRules maps a macro class to its attribute table. Classes mapped to an
// empty table are recognized structural elements carrying nothing of export
// interest; classes absent entirely get an UnknownKind diagnostic.
var classRules = map[string][]attrSpec{
	"ship":            shipSpecs, // every ship_<size> class
	"spacesuit":       spacesuitSpecs,
	"storage":         storageSpecs,
	"engine":          engineSpecs,
	"shieldgenerator": shieldSpecs,
	"weapon":          weaponSpecs,
	"turret":          weaponSpecs,
	"bomblauncher":    weaponSpecs,
	"bullet":          bulletSpecs,
	"missilelauncher": missileLauncherSpecs,
	"missileturret":   missileLauncherSpecs,
	"missile":         missileSpecs,
	"bomb":            missileSpecs,
	"dockingbay":      dockingBaySpecs,
	"dockarea":        dockAreaSpecs,
	"cockpit":         {},
	"buildmodule":     {},
	"buildprocessor":  {},
	"destructible":    {},
}

func join(tables ...[]attrSpec) []attrSpec {
	var out []attrSpec
	for _, t := range tables {
		out = append(out, t...)
	}
	return out
}

func ruleKey(class string) string {
	if strings.HasPrefix(class, "ship_") {
		return "ship"
	}
	return class
}

// normalize applies the class attribute table to a raw overlaid property
// map. An unrecognized class is diagnosed and yields passthrough raw
// attributes only.
func (s *Session) normalize(name, class string, raw map[string]string) map[string]any {
	out := make(map[string]any, len(raw))

	specs, known := classRules[ruleKey(class)]
	if !known {
		s.addDiag(Diagnostic{
			Kind: DiagUnknownKind, Node: name,
			Message: "no attribute rules for class " + class,
		})
		for k, v := range raw {
			out[k] = v
		}
		return out
	}

	consumed := make(map[string]struct{}, len(specs))
	for _, sp := range specs {
		consumed[sp.in] = struct{}{}
		v, ok := raw[sp.in]
		if !ok && sp.alt != "" {
			consumed[sp.alt] = struct{}{}
			v, ok = raw[sp.alt]
		}
		if !ok || v == "" {
			out[sp.out] = sp.def
			continue
		}
		switch sp.typ {
		case attrInt:
			out[sp.out] = coerceInt(v, sp.def)
		case attrFloat:
			out[sp.out] = coerceFloat(v, sp.def)
		case attrText:
			out[sp.out] = s.resolveText(v)
		default:
			out[sp.out] = v
		}
	}

	for k, v := range raw {
		if _, used := consumed[k]; !used {
			out[k] = v
		}
	}

	if strings.HasPrefix(class, "ship_") {
		out["class"] = strings.TrimPrefix(class, "ship_")
	}
	return out
}

func (s *Session) resolveText(v string) string {
	if s.lr == nil {
		return v
	}
	return s.lr.ResolveStripped(v)
}

func coerceInt(v string, def any) int {
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return int(f)
	}
	if n, ok := def.(int); ok {
		return n
	}
	return 0
}

func coerceFloat(v string, def any) float64 {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if f, ok := def.(float64); ok {
		return f
	}
	return 0
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	default:
		return 0
	}
}

func toInt(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case float64:
		return int(x)
	case string:
		return coerceInt(x, 0)
	default:
		return 0
	}
}

// augmentFromComponent merges the attributes a macro cannot state itself:
// geometric mount counts and the physical size class both live on the
// referenced component's connection nodes. A macro without its own component
// reference uses the nearest ancestor's.
func (s *Session) augmentFromComponent(rec *Record, node *defs.DefinitionNode) {
	name := s.componentName(node)
	if name == "" {
		return
	}
	comp := s.component(name)
	if comp == nil {
		return
	}

	class := node.Kind
	switch {
	case strings.HasPrefix(class, "ship_"):
		rec.Attrs["num_engines"] = countTag(comp.ConnectionTags, "engine")
		rec.Attrs["num_shields"] = countTag(comp.ConnectionTags, "shield")
		rec.Attrs["num_weapons"] = countTag(comp.ConnectionTags, "weapon")
		rec.Attrs["num_turrets"] = countTag(comp.ConnectionTags, "turret")
		rec.Attrs["num_countermeasures"] = countTag(comp.ConnectionTags, "countermeasures")
	case class == "shieldgenerator":
		rec.Attrs["size"] = componentSize(comp.ConnectionTags, "shield")
	case class == "engine":
		switch {
		case strings.HasPrefix(comp.Name, "engine_"):
			rec.Attrs["size"] = componentSize(comp.ConnectionTags, "engine")
		case strings.HasPrefix(comp.Name, "thruster_"):
			rec.Attrs["size"] = componentSize(comp.ConnectionTags, "thruster")
		}
	case class == "weapon" || class == "bomblauncher":
		rec.Attrs["size"] = componentSize(comp.ConnectionTags, "weapon")
	case class == "turret":
		rec.Attrs["size"] = componentSize(comp.ConnectionTags, "turret")
	case class == "missilelauncher" || class == "missileturret":
		rec.Attrs["size"] = componentSize(comp.ConnectionTags, "missile")
	}
}

// componentName walks the extends chain until a node declares a component
// reference. Bounded; cycle members never get this far.
func (s *Session) componentName(node *defs.DefinitionNode) string {
	for depth := 0; node != nil && depth < 32; depth++ {
		if node.Component != "" {
			return node.Component
		}
		if node.Extends == "" {
			return ""
		}
		node = s.nodes[node.Extends]
	}
	return ""
}

func hasTag(tags, want string) bool {
	for _, t := range strings.Fields(tags) {
		if t == want {
			return true
		}
	}
	return false
}

func countTag(conns []string, want string) int {
	n := 0
	for _, tags := range conns {
		if hasTag(tags, want) {
			n++
		}
	}
	return n
}

// componentSize returns the size class found on the first connection node
// carrying the wanted tag, empty when none does.
func componentSize(conns []string, want string) string {
	for _, tags := range conns {
		if !hasTag(tags, want) {
			continue
		}
		if size := sizeFromTags(tags); size != "" {
			return size
		}
	}
	return ""
}
