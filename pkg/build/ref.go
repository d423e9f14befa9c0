package build

import "github.com/conduitml/conduit/pkg/models"

type refKind int

const (
	refBound refKind = iota
	refVariable
	refFile
)

// Ref is the argument to a recorded call: either a concrete value bound at
// build time, or an unbound reference to a graph variable or file that will
// carry a value at run time.
type Ref struct {
	kind     refKind
	value    any
	variable *models.Variable
	file     *models.File
}

// Bind wraps a concrete value. The value is recorded as a constant input of
// the node.
func Bind(value any) Ref {
	return Ref{kind: refBound, value: value}
}

// Use references a graph variable.
func Use(v *models.Variable) Ref {
	return Ref{kind: refVariable, variable: v}
}

// UseFile references a graph file.
func UseFile(f *models.File) Ref {
	return Ref{kind: refFile, file: f}
}

// Bound reports whether the ref carries a concrete value.
func (r Ref) Bound() bool {
	return r.kind == refBound
}
