// Package export renders resolved records into interchange formats. Tabular
// formats (CSV, SQLite) use fixed per-kind column tables so downstream
// spreadsheets keep stable headers across game versions; structured formats
// (JSON, YAML) carry every attribute and slot.
package export

import (
	"errors"
	"fmt"
	"sort"

	"github.com/x4tools/projector/internal/resolve"
)

// Format names an output format.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatSQLite Format = "sqlite"
)

// ErrUnknownFormat is returned for format names ParseFormat does not know.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatCSV, FormatJSON, FormatYAML, FormatSQLite:
		return Format(name), nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	if f == FormatSQLite {
		return "db"
	}
	return string(f)
}

// columnTables lists, per kind, the attributes exposed to tabular formats.
// The id column is implicit and always first. Kinds without a table fall
// back to the sorted union of scalar attribute names.
var columnTables = map[string][]string{
	"ships": {
		"name", "class", "type", "purpose", "hull", "people",
		"cargobay", "storage", "missile_storage", "drone_storage",
		"num_engines", "num_shields", "num_weapons", "num_turrets",
		"num_countermeasures",
		"s_docks", "m_docks", "shipstorage_s", "shipstorage_m",
		"launchtubes_s", "launchtubes_m",
		"mass",
		"drag_forward", "drag_reverse", "drag_horizontal", "drag_vertical",
		"drag_pitch", "drag_yaw", "drag_roll",
		"inertia_pitch", "inertia_yaw", "inertia_roll",
	},
	"engines": {
		"name", "makerrace", "size", "hull",
		"thrust_forward", "thrust_reverse", "thrust_strafe",
		"thrust_pitch", "thrust_yaw", "thrust_roll",
		"boost_duration", "boost_thrust", "boost_thrust_abs",
		"boost_attack", "boost_release",
		"travel_charge", "travel_attack", "travel_thrust",
		"travel_thrust_abs", "travel_release",
		"angular_pitch", "angular_roll",
	},
	"shields": {
		"name", "makerrace", "size",
		"capacity", "recharge_rate", "recharge_delay",
		"hull", "hull_integrated", "hull_threshold",
	},
	"weapons": {
		"name", "makerrace", "size", "bullet_class",
		"rotation_speed", "rotation_accel",
		"reload_rate", "reload_time",
		"heat_overhead", "heat_coolrate", "heat_cooldelay", "heat_reenable",
		"hull", "hull_integrated",
	},
	"missilelaunchers": {
		"name", "makerrace", "size", "bullet_class",
		"capacity", "ammunition", "rotation_speed",
		"hull", "hull_integrated",
	},
	"wares": {
		"name", "factoryname", "group", "tags",
		"volume", "price_min", "price_avg", "price_max", "licence",
	},
}

// columns returns the tabular column set for a kind.
func columns(kind string, records []*resolve.Record) []string {
	if cols, ok := columnTables[kind]; ok {
		return cols
	}

	seen := map[string]struct{}{}
	for _, rec := range records {
		for name, v := range rec.Attrs {
			switch v.(type) {
			case string, int, float64, bool:
				seen[name] = struct{}{}
			}
		}
	}
	cols := make([]string, 0, len(seen))
	for name := range seen {
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols
}

// view flattens one record for structured formats: attributes plus the
// record's class and its slots.
func view(rec *resolve.Record) map[string]any {
	out := make(map[string]any, len(rec.Attrs)+2)
	for k, v := range rec.Attrs {
		out[k] = v
	}
	if _, ok := out["class"]; !ok {
		out["class"] = rec.Class
	}
	if len(rec.Slots) > 0 {
		out["slots"] = rec.Slots
	}
	return out
}

// structuredView builds the id-keyed document structured formats emit.
func structuredView(records []*resolve.Record) map[string]any {
	out := make(map[string]any, len(records))
	for _, rec := range records {
		out[rec.ID] = view(rec)
	}
	return out
}
