package resolve

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/x4tools/projector/api"
	"github.com/x4tools/projector/internal/defs"
	"github.com/x4tools/projector/internal/lang"
	"github.com/x4tools/projector/internal/overlay"
)

// Session owns all definition nodes loaded for one export run. Loading is
// single-threaded; once loaded, the node set is read-only and per-kind
// materialization may fan out (see ResolveAll).
type Session struct {
	src     overlay.Source
	catalog *api.Catalog
	lr      *lang.Resolver
	logger  *slog.Logger

	nodes      map[string]*defs.DefinitionNode
	comps      map[string]*defs.ComponentDef
	byClass    map[string][]string
	loadedDocs map[string]struct{}
	macroIndex map[string]string
	compIndex  map[string]string
	pending    map[string]struct{}

	// mu guards memo, resolved and diags during per-kind fan-out; kinds
	// share component macros, so the cache cannot be partitioned per kind.
	mu       sync.Mutex
	resolved map[string]map[string]string // memoized inheritance overlay
	memo     map[string]*Record
	diags    []Diagnostic

	cycleOnce sync.Once
	cycles    map[string][]string // macro -> the cycle it sits on
}

// Option configures a Session.
type Option func(*Session)

// WithLanguage resolves {page,text} templates in name/description
// attributes through the given resolver.
func WithLanguage(lr *lang.Resolver) Option {
	return func(s *Session) { s.lr = lr }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// NewSession loads the macro and component indexes and returns an empty
// session ready for LoadKind calls.
func NewSession(src overlay.Source, catalog *api.Catalog, opts ...Option) (*Session, error) {
	s := &Session{
		src:        src,
		catalog:    catalog,
		logger:     slog.Default(),
		nodes:      make(map[string]*defs.DefinitionNode),
		comps:      make(map[string]*defs.ComponentDef),
		byClass:    make(map[string][]string),
		loadedDocs: make(map[string]struct{}),
		pending:    make(map[string]struct{}),
		resolved:   make(map[string]map[string]string),
		memo:       make(map[string]*Record),
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.macroIndex, err = s.loadIndex("index/macros.xml"); err != nil {
		return nil, err
	}
	if s.compIndex, err = s.loadIndex("index/components.xml"); err != nil {
		return nil, err
	}

	// The shipped component index omits this entry; patch it the way the
	// game itself appears to.
	if _, ok := s.compIndex["cockpit_invisible_escapepod"]; !ok {
		s.compIndex["cockpit_invisible_escapepod"] = "assets/units/size_s/cockpit_invisible_escapepod.xml"
	}

	return s, nil
}

func (s *Session) loadIndex(path string) (map[string]string, error) {
	data, err := s.src.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	idx, err := defs.ParseIndex(path, data)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// LoadKind discovers and parses every definition document of one catalog
// kind, in the base game and all extensions, then chases connection and
// extends dependencies until the set stops shrinking. A kind name absent
// from the catalog is an UnknownKind diagnostic, not an error.
func (s *Session) LoadKind(name string) error {
	kind, ok := s.catalog.Kind(name)
	if !ok {
		s.addDiag(Diagnostic{
			Kind: DiagUnknownKind, Node: name,
			Message: "kind not present in catalog",
		})
		return nil
	}

	for _, p := range s.src.Paths() {
		if !kind.Matches(stripExtensionPrefix(p)) {
			continue
		}
		if err := s.loadMacroDoc(p); err != nil {
			return err
		}
	}
	return s.resolveDependencies()
}

// stripExtensionPrefix maps extensions/<name>/assets/... back to assets/...
// so catalog globs written for the base layout also cover extension docs.
func stripExtensionPrefix(p string) string {
	if !strings.HasPrefix(p, "extensions/") {
		return p
	}
	rest := p[len("extensions/"):]
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[i+1:]
	}
	return p
}

// loadMacroDoc parses one macro document into the session. Structurally
// invalid documents abort the load; the installation is broken and the
// caller needs the path to say so.
func (s *Session) loadMacroDoc(path string) error {
	if _, done := s.loadedDocs[path]; done {
		return nil
	}
	s.loadedDocs[path] = struct{}{}

	data, err := s.src.Open(path)
	if err != nil {
		return fmt.Errorf("load definition %s: %w", path, err)
	}
	nodes, err := defs.ParseMacros(path, data)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		s.logger.Debug("no macros in document", "path", path)
		return nil
	}

	for i := range nodes {
		node := &nodes[i]
		if _, dup := s.nodes[node.Name]; !dup {
			s.byClass[node.Kind] = append(s.byClass[node.Kind], node.Name)
		}
		s.nodes[node.Name] = node
		delete(s.pending, node.Name)

		if node.Extends != "" {
			s.noteDependency(node.Extends)
		}
		for _, conn := range node.Connections {
			s.noteDependency(conn.Target)
		}
	}
	return nil
}

func (s *Session) noteDependency(name string) {
	if _, loaded := s.nodes[name]; !loaded {
		s.pending[name] = struct{}{}
	}
}

// resolveDependencies loads macros referenced by loaded macros until every
// reference is satisfied or the pending set stops changing. References the
// index cannot place stay pending; they surface later as
// UnresolvedReference diagnostics on the records that need them.
func (s *Session) resolveDependencies() error {
	for len(s.pending) > 0 {
		names := make([]string, 0, len(s.pending))
		for name := range s.pending {
			names = append(names, name)
		}
		sort.Strings(names)

		progress := false
		for _, name := range names {
			path, ok := s.macroIndex[name]
			if !ok || !s.src.Exists(path) {
				continue
			}
			if err := s.loadMacroDoc(path); err != nil {
				return err
			}
			if _, still := s.pending[name]; !still {
				progress = true
			}
		}
		if !progress {
			s.logger.Debug("unresolvable macro references remain", "count", len(s.pending))
			return nil
		}
	}
	return nil
}

// component returns the parsed component definition for a name, loading its
// document on first use. Missing components are nil, not fatal. Safe for
// concurrent use during fan-out; a racing double parse is benign, first
// stored wins.
func (s *Session) component(name string) *defs.ComponentDef {
	s.mu.Lock()
	if c, ok := s.comps[name]; ok {
		s.mu.Unlock()
		return c
	}
	path, indexed := s.compIndex[name]
	s.mu.Unlock()

	var parsed []defs.ComponentDef
	if indexed && s.src.Exists(path) {
		if data, err := s.src.Open(path); err == nil {
			if parsed, err = defs.ParseComponents(path, data); err != nil {
				s.logger.Debug("component document unreadable", "path", path, "err", err)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range parsed {
		c := &parsed[i]
		if _, ok := s.comps[c.Name]; !ok {
			s.comps[c.Name] = c
		}
	}
	if c, ok := s.comps[name]; ok {
		return c
	}
	s.comps[name] = nil
	return nil
}

// Node returns a loaded definition node by name.
func (s *Session) Node(name string) (*defs.DefinitionNode, bool) {
	n, ok := s.nodes[name]
	return n, ok
}

// NamesByClass returns the loaded macro names of one class, sorted.
func (s *Session) NamesByClass(class string) []string {
	out := make([]string, len(s.byClass[class]))
	copy(out, s.byClass[class])
	sort.Strings(out)
	return out
}

// Diagnostics returns the accumulated diagnostics, in order.
func (s *Session) Diagnostics() []Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Diagnostic, len(s.diags))
	copy(out, s.diags)
	return out
}

func (s *Session) addDiag(d Diagnostic) {
	s.mu.Lock()
	s.diags = append(s.diags, d)
	s.mu.Unlock()
}
