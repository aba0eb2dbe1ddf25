package typeset

// ValueKind classifies values relevant to introspection.
type ValueKind uint8

const (
	ValueOther ValueKind = iota
	ValueModule
	ValueFunc
	ValueType
)

// Value is an introspected value. Only the fields relevant to its kind are
// set.
type Value struct {
	Kind ValueKind
	// Name of a module, function or type. Anonymous functions have none.
	Name string
	// TypeName is the short name of the value's type.
	TypeName string
	// Params lists parameter names of a function.
	Params []string
	// Scope holds the members of a module, type or function.
	Scope *Scope
	// Docs is the documentation markup of a function or type.
	Docs string
}

// HasParam reports whether a function value declares the named parameter.
func (v Value) HasParam(name string) bool {
	if v.Kind != ValueFunc {
		return false
	}
	for _, p := range v.Params {
		if p == name {
			return true
		}
	}
	return false
}

// Binding is a scope entry. Category is the documentation section the
// binding belongs to ("layout", "visualize").
type Binding struct {
	Value    Value
	Category string
}

// Scope is a set of named bindings. A nil *Scope is empty.
type Scope struct {
	bindings map[string]Binding
	order    []string
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{bindings: make(map[string]Binding)}
}

// Define binds name, replacing an existing binding.
func (s *Scope) Define(name string, v Value, category string) {
	if _, ok := s.bindings[name]; !ok {
		s.order = append(s.order, name)
	}
	s.bindings[name] = Binding{Value: v, Category: category}
}

// Get looks up name.
func (s *Scope) Get(name string) (Binding, bool) {
	if s == nil {
		return Binding{}, false
	}
	b, ok := s.bindings[name]
	return b, ok
}

// Names returns the bound names in definition order.
func (s *Scope) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
