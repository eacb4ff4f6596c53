// Package resolve materializes loaded definition nodes into flat, exportable
// records: inheritance chains are collapsed, connection references embedded,
// and per-kind derived attributes computed.
package resolve

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInheritanceCycle marks extends chains that loop back on themselves.
// Fatal for every macro on the cycle; siblings keep resolving.
var ErrInheritanceCycle = errors.New("inheritance cycle")

// CycleError names the macros forming one extends cycle.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("inheritance cycle: %s", strings.Join(e.Cycle, " -> "))
}

func (e *CycleError) Is(target error) bool { return target == ErrInheritanceCycle }

// ErrUnknownMacro is returned by Resolve for names absent from the session.
var ErrUnknownMacro = errors.New("unknown macro")

// Slot is one resolved connection on a record: an attachment point and the
// macro mounted there. Summary is nil when the target macro could not be
// found; the slot itself is kept as a placeholder so mount counts stay
// truthful.
type Slot struct {
	Role    string         `json:"role"`
	Target  string         `json:"target"`
	Summary map[string]any `json:"summary,omitempty"`
}

// Record is the flattened output for one exportable object. Immutable once
// produced; attribute names per class are stable and documented in the
// export package's column tables.
type Record struct {
	ID    string         `json:"id"`
	Class string         `json:"class"`
	Attrs map[string]any `json:"attrs"`
	Slots []Slot         `json:"slots,omitempty"`
}

// Attr returns an attribute value, nil when absent.
func (r *Record) Attr(name string) any {
	return r.Attrs[name]
}

// DiagKind classifies a non-fatal resolution diagnostic.
type DiagKind string

const (
	// DiagUnresolvedReference: a connection names a macro no loaded document
	// defines. The slot is kept with a nil summary.
	DiagUnresolvedReference DiagKind = "unresolved_reference"
	// DiagUnknownKind: a macro class no rule covers. The macro is skipped.
	DiagUnknownKind DiagKind = "unknown_kind"
	// DiagInheritanceCycle: the macro sits on an extends cycle and produced
	// no record.
	DiagInheritanceCycle DiagKind = "inheritance_cycle"
)

// Diagnostic is accumulated alongside successful output and reported with
// it; partial game data is common (beta content, conditional DLC objects)
// and must not fail the whole run.
type Diagnostic struct {
	Kind    DiagKind
	Node    string // macro the diagnostic is attached to
	Ref     string // referenced name, where applicable
	Message string
}

func (d Diagnostic) String() string {
	if d.Ref != "" {
		return fmt.Sprintf("%s: %s -> %s: %s", d.Kind, d.Node, d.Ref, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Kind, d.Node, d.Message)
}
