package defs

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedDefinition is wrapped by all definition parse failures:
// structurally invalid markup or duplicate identifiers within one document.
var ErrMalformedDefinition = errors.New("malformed definition document")

// element is a generic XML element tree. The game's definition documents
// carry everything in attributes; text content is ignored.
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []element  `xml:",any"`
}

func (e *element) attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (e *element) children(name string) []*element {
	var out []*element
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			out = append(out, &e.Children[i])
		}
	}
	return out
}

func (e *element) child(name string) *element {
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			return &e.Children[i]
		}
	}
	return nil
}

func decode(path string, data []byte) (*element, error) {
	var root element
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedDefinition, path, err)
	}
	return &root, nil
}

// ParseMacros parses one macro document into DefinitionNodes, preserving raw
// property values. The document root is <macros> holding any number of
// <macro> elements; a bare <macro> root is accepted too.
func ParseMacros(path string, data []byte) ([]DefinitionNode, error) {
	root, err := decode(path, data)
	if err != nil {
		return nil, err
	}

	var macroEls []*element
	switch root.XMLName.Local {
	case "macros", "diff":
		macroEls = root.children("macro")
	case "macro":
		macroEls = []*element{root}
	default:
		return nil, fmt.Errorf("%w: %s: unexpected root element <%s>",
			ErrMalformedDefinition, path, root.XMLName.Local)
	}

	seen := make(map[string]struct{}, len(macroEls))
	var nodes []DefinitionNode
	for _, m := range macroEls {
		name := m.attr("name")
		kind := strings.TrimSpace(m.attr("class"))
		if name == "" || kind == "" {
			// Unnamed macro stubs occur in patch documents; skip them.
			continue
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate macro %q", ErrMalformedDefinition, path, name)
		}
		seen[name] = struct{}{}

		node := DefinitionNode{
			Name:       name,
			Kind:       kind,
			Extends:    m.attr("extends"),
			Properties: map[string]string{},
			SourcePath: path,
		}
		if comp := m.child("component"); comp != nil {
			node.Component = comp.attr("ref")
		}
		if props := m.child("properties"); props != nil {
			flattenProperties(props, "", node.Properties)
		}
		if conns := m.child("connections"); conns != nil {
			for _, conn := range conns.children("connection") {
				role := conn.attr("ref")
				for _, ref := range conn.children("macro") {
					if target := ref.attr("ref"); target != "" {
						node.Connections = append(node.Connections, Connection{Role: role, Target: target})
					}
				}
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// ParseComponents parses one component document.
func ParseComponents(path string, data []byte) ([]ComponentDef, error) {
	root, err := decode(path, data)
	if err != nil {
		return nil, err
	}

	var compEls []*element
	switch root.XMLName.Local {
	case "components", "diff":
		compEls = root.children("component")
	case "component":
		compEls = []*element{root}
	default:
		return nil, fmt.Errorf("%w: %s: unexpected root element <%s>",
			ErrMalformedDefinition, path, root.XMLName.Local)
	}

	seen := make(map[string]struct{}, len(compEls))
	var comps []ComponentDef
	for _, c := range compEls {
		name := c.attr("name")
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate component %q", ErrMalformedDefinition, path, name)
		}
		seen[name] = struct{}{}

		comp := ComponentDef{
			Name:       name,
			Kind:       strings.TrimSpace(c.attr("class")),
			Properties: map[string]string{},
			SourcePath: path,
		}
		if props := c.child("properties"); props != nil {
			flattenProperties(props, "", comp.Properties)
		}
		if conns := c.child("connections"); conns != nil {
			for _, conn := range conns.children("connection") {
				if tags := conn.attr("tags"); tags != "" {
					comp.ConnectionTags = append(comp.ConnectionTags, tags)
				}
			}
		}
		comps = append(comps, comp)
	}
	return comps, nil
}

// ParseIndex parses index/macros.xml or index/components.xml into a
// name → document path mapping. Index values use backslashes and omit the
// .xml suffix; both are normalized here.
func ParseIndex(path string, data []byte) (map[string]string, error) {
	root, err := decode(path, data)
	if err != nil {
		return nil, err
	}
	if root.XMLName.Local != "index" {
		return nil, fmt.Errorf("%w: %s: unexpected root element <%s>",
			ErrMalformedDefinition, path, root.XMLName.Local)
	}

	out := make(map[string]string)
	for _, entry := range root.children("entry") {
		name, value := entry.attr("name"), entry.attr("value")
		if name == "" || value == "" {
			continue
		}
		out[name] = strings.ToLower(strings.ReplaceAll(value, `\`, "/")) + ".xml"
	}
	return out, nil
}

// flattenProperties walks the element tree under <properties> and records
// every attribute under a dotted key: <physics><inertia pitch="1"/></physics>
// becomes "physics.inertia.pitch". Raw values, no coercion.
func flattenProperties(el *element, prefix string, out map[string]string) {
	for i := range el.Children {
		child := &el.Children[i]
		key := child.XMLName.Local
		if prefix != "" {
			key = prefix + "." + key
		}
		for _, a := range child.Attrs {
			out[key+"."+a.Name.Local] = a.Value
		}
		flattenProperties(child, key, out)
	}
}
