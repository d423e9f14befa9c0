package models

import "github.com/google/uuid"

// GraphItem is anything that can be declared on a graph: a Variable or a File.
type GraphItem interface {
	ItemID() string
}

// Variable is a typed named slot in a pipeline graph. It is either a
// declared input, a node-produced intermediate, or a designated output.
type Variable struct {
	ID         string  `json:"id"`
	Name       string  `json:"name,omitempty"`
	Type       TypeTag `json:"type"       validate:"required"`
	IsInput    bool    `json:"is_input"`
	IsOutput   bool    `json:"is_output"`
	HasDefault bool    `json:"has_default,omitempty"`
	Default    any     `json:"default,omitempty"`
}

// VariableOption configures a Variable at construction.
type VariableOption func(*Variable)

// WithName assigns a stable name, used for keyword binding at run time.
func WithName(name string) VariableOption {
	return func(v *Variable) { v.Name = name }
}

// AsInput marks the variable as a declared graph input.
func AsInput() VariableOption {
	return func(v *Variable) { v.IsInput = true }
}

// AsOutput marks the variable as a designated graph output.
func AsOutput() VariableOption {
	return func(v *Variable) { v.IsOutput = true }
}

// WithDefault attaches a default value used when no binding is supplied.
func WithDefault(value any) VariableOption {
	return func(v *Variable) {
		v.HasDefault = true
		v.Default = value
	}
}

// NewVariable creates a variable with a generated identity.
func NewVariable(t TypeTag, opts ...VariableOption) *Variable {
	v := &Variable{
		ID:   uuid.New().String(),
		Type: t,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// ItemID implements GraphItem.
func (v *Variable) ItemID() string {
	return v.ID
}
