package resolve

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dominikbraun/graph"
)

// buildCycles indexes every extends cycle in the session, once. The
// inheritance graph is held in a directed graph (edges parent -> child) and
// cycles fall out of its strongly connected components; members are barred
// from resolution up front so materialization never recurses into a loop,
// however long the cycle.
func (s *Session) buildCycles() {
	s.cycleOnce.Do(func() {
		s.cycles = make(map[string][]string)

		g := graph.New(graph.StringHash, graph.Directed())
		for name := range s.nodes {
			_ = g.AddVertex(name)
		}
		for name, node := range s.nodes {
			if node.Extends == "" {
				continue
			}
			if node.Extends == name {
				s.cycles[name] = []string{name, name}
				continue
			}
			if _, ok := s.nodes[node.Extends]; !ok {
				continue // dangling parent, diagnosed at materialization
			}
			_ = g.AddEdge(node.Extends, name)
		}

		sccs, err := graph.StronglyConnectedComponents(g)
		if err != nil {
			return
		}
		for _, scc := range sccs {
			if len(scc) < 2 {
				continue
			}
			sort.Strings(scc)
			cycle := append(append([]string{}, scc...), scc[0])
			for _, member := range scc {
				s.cycles[member] = cycle
			}
		}
	})
}

// resolveAttrs collapses a node's extends chain into one raw attribute map:
// the parent's resolved attributes overlaid with the node's own declared
// properties, child values winning. Memoized; each node is collapsed at
// most once per session regardless of visitation order.
func (s *Session) resolveAttrs(name string) (map[string]string, error) {
	s.buildCycles()

	if cycle, bad := s.cycles[name]; bad {
		return nil, &CycleError{Cycle: cycle}
	}

	s.mu.Lock()
	if attrs, ok := s.resolved[name]; ok {
		s.mu.Unlock()
		return attrs, nil
	}
	s.mu.Unlock()

	node, ok := s.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMacro, name)
	}

	attrs := make(map[string]string, len(node.Properties))
	if node.Extends != "" {
		parent, err := s.resolveAttrs(node.Extends)
		if err != nil {
			if _, isCycle := s.cycles[node.Extends]; isCycle {
				// The parent sits on a cycle this node is not part of;
				// resolve what we can from the node's own properties.
				s.addDiag(Diagnostic{
					Kind: DiagInheritanceCycle, Node: name, Ref: node.Extends,
					Message: "parent macro is on an inheritance cycle",
				})
			} else {
				s.addDiag(Diagnostic{
					Kind: DiagUnresolvedReference, Node: name, Ref: node.Extends,
					Message: "extends target not loaded",
				})
			}
		} else {
			for k, v := range parent {
				attrs[k] = v
			}
		}
	}
	for k, v := range node.Properties {
		attrs[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prior, ok := s.resolved[name]; ok {
		return prior, nil
	}
	s.resolved[name] = attrs
	return attrs, nil
}

// Resolve materializes one macro into its record. Memoized: resolving the
// same node twice in a session returns the identical record.
func (s *Session) Resolve(name string) (*Record, error) {
	s.buildCycles()

	if cycle, bad := s.cycles[name]; bad {
		return nil, &CycleError{Cycle: cycle}
	}

	s.mu.Lock()
	if rec, ok := s.memo[name]; ok {
		s.mu.Unlock()
		return rec, nil
	}
	s.mu.Unlock()

	node, ok := s.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMacro, name)
	}

	raw, err := s.resolveAttrs(name)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		ID:    name,
		Class: node.Kind,
		Attrs: s.normalize(name, node.Kind, raw),
	}
	s.augmentFromComponent(rec, node)
	s.buildSlots(rec, node)
	s.derive(rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	if prior, ok := s.memo[name]; ok {
		return prior, nil
	}
	s.memo[name] = rec
	return rec, nil
}

// ResolveKind materializes every loaded macro of one catalog kind, sorted
// by macro name. Cycle members and unknown classes are diagnosed and
// skipped, never fatal for their siblings.
func (s *Session) ResolveKind(name string) ([]*Record, error) {
	kind, ok := s.catalog.Kind(name)
	if !ok {
		s.addDiag(Diagnostic{
			Kind: DiagUnknownKind, Node: name,
			Message: "kind not present in catalog",
		})
		return nil, nil
	}

	var names []string
	for _, class := range kind.Classes {
		names = append(names, s.NamesByClass(class)...)
	}
	sort.Strings(names)

	records := make([]*Record, 0, len(names))
	for _, macro := range names {
		rec, err := s.Resolve(macro)
		if err != nil {
			var cerr *CycleError
			if errors.As(err, &cerr) {
				s.addDiag(Diagnostic{
					Kind: DiagInheritanceCycle, Node: macro,
					Message: cerr.Error(),
				})
				continue
			}
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// ResolveAll fans out one worker per requested kind over the shared,
// fully-loaded node set and joins before returning. Kind-level resolution
// only reads shared state; the memo map is the single guarded structure.
func (s *Session) ResolveAll(ctx context.Context, kinds []string) (map[string][]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string][]*Record, len(kinds))
	errs := make([]error, len(kinds))

	var (
		wg      sync.WaitGroup
		outLock sync.Mutex
	)
	for i, kind := range kinds {
		wg.Add(1)
		go func(i int, kind string) {
			defer wg.Done()
			records, err := s.ResolveKind(kind)
			if err != nil {
				errs[i] = fmt.Errorf("resolve %s: %w", kind, err)
				return
			}
			outLock.Lock()
			out[kind] = records
			outLock.Unlock()
		}(i, kind)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// sizeFromTags extracts the size class from a component connection tag set.
func sizeFromTags(tags string) string {
	for _, t := range strings.Fields(tags) {
		switch t {
		case "spacesuit", "extrasmall", "small", "medium", "large", "extralarge":
			return t
		}
	}
	return ""
}
