package resolve

import (
	"errors"
	"strings"

	"github.com/x4tools/projector/internal/defs"
)

// Connection walking: a container macro (ship, spacesuit) references
// equipment macros through connection points, possibly the same target on
// several mounts. The walk descends through structural elements (cockpits,
// dock areas, build modules) to reach the equipment nested inside them,
// embedding a per-slot attribute summary rather than a full record so
// equipment rows are never duplicated at the top level.

// structuralClasses carry no slot data of their own; the walk recurses
// through them.
var structuralClasses = map[string]struct{}{
	"cockpit":        {},
	"dockarea":       {},
	"buildmodule":    {},
	"buildprocessor": {},
	"destructible":   {},
}

// summaryClasses produce an embedded attribute summary per slot.
var summaryClasses = map[string]struct{}{
	"engine":          {},
	"shieldgenerator": {},
	"weapon":          {},
	"turret":          {},
	"bomblauncher":    {},
	"missilelauncher": {},
	"missileturret":   {},
}

// shipAggregates are the connection-derived ship attributes, seeded to zero
// so every ship row carries the full column set.
var shipAggregates = []string{
	"s_docks", "m_docks", "drone_storage",
	"shipstorage_s", "shipstorage_m",
	"launchtubes_s", "launchtubes_m",
}

func (s *Session) buildSlots(rec *Record, node *defs.DefinitionNode) {
	isShip := strings.HasPrefix(node.Kind, "ship_")
	if isShip {
		rec.Attrs["cargobay"] = 0
		rec.Attrs["storage"] = ""
		for _, key := range shipAggregates {
			rec.Attrs[key] = 0
		}
	}
	if len(node.Connections) == 0 {
		return
	}

	visited := map[string]struct{}{node.Name: {}}
	s.walkConnections(rec, node, visited)
}

func (s *Session) walkConnections(rec *Record, node *defs.DefinitionNode, visited map[string]struct{}) {
	for _, conn := range node.Connections {
		target, ok := s.nodes[conn.Target]
		if !ok {
			s.addDiag(Diagnostic{
				Kind: DiagUnresolvedReference, Node: rec.ID, Ref: conn.Target,
				Message: "connection target not loaded",
			})
			rec.Slots = append(rec.Slots, Slot{Role: conn.Role, Target: conn.Target})
			continue
		}

		// Repeated targets keep their slots; only the descent is deduplicated.
		_, seen := visited[target.Name]
		visited[target.Name] = struct{}{}

		if _, structural := structuralClasses[target.Kind]; !structural {
			switch target.Kind {
			case "storage":
				attrs := s.summaryAttrs(rec, target)
				rec.Attrs["cargobay"] = toInt(attrs["cargobay"])
				rec.Attrs["storage"] = attrs["storage_type"]
				rec.Slots = append(rec.Slots, Slot{Role: conn.Role, Target: conn.Target, Summary: attrs})
			case "dockingbay":
				attrs := s.summaryAttrs(rec, target)
				s.applyDockAggregates(rec, target.Name, attrs)
				rec.Slots = append(rec.Slots, Slot{Role: conn.Role, Target: conn.Target, Summary: attrs})
			default:
				if _, summarized := summaryClasses[target.Kind]; summarized {
					rec.Slots = append(rec.Slots, Slot{Role: conn.Role, Target: conn.Target, Summary: s.summaryAttrs(rec, target)})
				} else {
					s.addDiag(Diagnostic{
						Kind: DiagUnknownKind, Node: rec.ID, Ref: target.Name,
						Message: "no slot rule for class " + target.Kind,
					})
				}
			}
		}

		if !seen && len(target.Connections) > 0 {
			s.walkConnections(rec, target, visited)
		}
	}
}

// applyDockAggregates folds one docking bay into the container's dock
// capacity columns. Sizes are tags on the bay's docksize attribute; which
// columns a bay feeds depends on whether it stores ships and on the bay
// family (dockingbay vs launchtube).
func (s *Session) applyDockAggregates(rec *Record, bayName string, bay map[string]any) {
	docksize, _ := bay["docksize"].(string)
	capacity := toInt(bay["dock_capacity"])

	if toInt(bay["dock_storage"]) != 0 {
		if hasTag(docksize, "dock_xs") {
			addInt(rec.Attrs, "drone_storage", capacity)
		}
		if hasTag(docksize, "dock_s") {
			addInt(rec.Attrs, "shipstorage_s", capacity)
		}
		if hasTag(docksize, "dock_m") {
			addInt(rec.Attrs, "shipstorage_m", capacity)
		}
	}

	if strings.HasPrefix(bayName, "dockingbay") {
		if hasTag(docksize, "dock_s") {
			addInt(rec.Attrs, "s_docks", capacity)
		}
		if hasTag(docksize, "dock_m") {
			addInt(rec.Attrs, "m_docks", capacity)
		}
	}

	if strings.HasPrefix(bayName, "launchtube") {
		if hasTag(docksize, "dock_s") {
			addInt(rec.Attrs, "launchtubes_s", capacity)
		}
		if hasTag(docksize, "dock_m") {
			addInt(rec.Attrs, "launchtubes_m", capacity)
		}
	}
}

// summaryAttrs produces the embedded attribute map for a slot target:
// normalized own+inherited attributes plus the class tag, without slots or
// derivations. Built from the attribute overlay directly so a slot target
// can never re-enter record materialization.
func (s *Session) summaryAttrs(rec *Record, target *defs.DefinitionNode) map[string]any {
	raw, err := s.resolveAttrs(target.Name)
	if err != nil {
		var cerr *CycleError
		if errors.As(err, &cerr) {
			s.addDiag(Diagnostic{
				Kind: DiagInheritanceCycle, Node: rec.ID, Ref: target.Name,
				Message: cerr.Error(),
			})
		}
		return nil
	}
	attrs := s.normalize(target.Name, target.Kind, raw)
	attrs["class"] = target.Kind
	return attrs
}

func addInt(attrs map[string]any, key string, delta int) {
	attrs[key] = toInt(attrs[key]) + delta
}
