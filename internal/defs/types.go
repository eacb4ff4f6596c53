// Package defs parses X4 definition documents (macros, components, indexes)
// into in-memory nodes. Cross-document references are recorded by name only;
// resolving them is the resolver's job, so documents load in any order.
package defs

// Connection is a typed reference from a container macro to a contained
// macro at a named attachment point, e.g. an engine mount on a ship.
type Connection struct {
	Role   string // the connection node's ref attribute (attachment point)
	Target string // referenced macro name
}

// DefinitionNode is one parsed macro definition. Property values stay raw
// strings; type coercion happens per-attribute in the resolver because
// expected types vary by attribute and some stay opaque (tags, licences).
type DefinitionNode struct {
	Name        string
	Kind        string // macro class: engine, shieldgenerator, ship_s, ...
	Extends     string // parent macro name, "" when the macro stands alone
	Component   string // referenced component name, "" when absent
	Properties  map[string]string
	Connections []Connection
	SourcePath  string // document the node was parsed from
}

// ComponentDef is a parsed component definition. Components contribute
// structural data to macros that reference them: extra properties and the
// tag sets of their connection points (used for size classification and
// mount counting).
type ComponentDef struct {
	Name       string
	Kind       string
	Properties map[string]string
	// ConnectionTags holds the tags attribute of each connection point,
	// in document order. Space-separated tag strings, kept raw.
	ConnectionTags []string
	SourcePath     string
}
