// Package descriptor defines the structural snapshot of a scanned codebase.
// Scanners produce descriptors; the classifier, rule predicates and report
// generator consume them. Descriptors are read-only after scanning.
package descriptor

// Category is the tactical-pattern bucket a type is classified into.
// It determines which rules apply to the type.
type Category string

const (
	CategoryEntity        Category = "entity"
	CategoryValueObject   Category = "value-object"
	CategoryAggregateRoot Category = "aggregate-root"
	CategoryRepository    Category = "repository"
	CategoryDomainService Category = "domain-service"
	CategoryDomainEvent   Category = "domain-event"
	CategoryUnknown       Category = "unknown"
)

// EqualityBasis summarizes how a type implements equality.
type EqualityBasis string

const (
	// EqualityIdentity means equality compares the identity field only.
	EqualityIdentity EqualityBasis = "identity"
	// EqualityAttributes means equality compares all attributes.
	EqualityAttributes EqualityBasis = "attributes"
	// EqualityMixed means equality references the identity field plus others.
	EqualityMixed EqualityBasis = "mixed"
	// EqualityDefault means the type declares no equality of its own.
	EqualityDefault EqualityBasis = "default"
)

// Field is one declared field of a type.
type Field struct {
	Name string
	Type string
	// Mutable reports whether the field is writable after construction
	// (non-frozen dataclass field, exported Go struct field with a setter,
	// and so on; the scanner decides per language).
	Mutable bool
	// Identity marks the field the scanner considers a persistent identifier
	// (id, <type>ID, sid and similar).
	Identity bool
}

// Method is one declared method of a type.
type Method struct {
	Name string
	// Accessor reports whether the body only reads or assigns a field
	// (getter/setter shape). Methods with validation, computation or state
	// transitions beyond a bare assignment are not accessors.
	Accessor bool
	// Constructor marks factory/constructor functions (create, New*,
	// __init__/__post_init__).
	Constructor bool
	// Validates reports whether the body performs a validation check
	// (raises/returns an error on bad input).
	Validates bool
}

// TypeDescriptor is the structural snapshot of one declared type.
type TypeDescriptor struct {
	Name    string
	Package string
	File    string
	Line    int

	Fields  []Field
	Methods []Method

	Equality EqualityBasis

	// Abstract marks interface types and ABCs. Repository ports are
	// abstract; their TargetType names the aggregate they load and save.
	Abstract   bool
	TargetType string

	// Implements lists declared capabilities (embedded interfaces, base
	// classes) by name.
	Implements []string
}

// IdentityField returns the identity field and true if the type declares one.
func (t *TypeDescriptor) IdentityField() (Field, bool) {
	for _, f := range t.Fields {
		if f.Identity {
			return f, true
		}
	}
	return Field{}, false
}

// HasMutableField reports whether any field is writable after construction.
func (t *TypeDescriptor) HasMutableField() bool {
	for _, f := range t.Fields {
		if f.Mutable {
			return true
		}
	}
	return false
}

// BehaviorMethods returns the methods that are neither accessors nor
// constructors.
func (t *TypeDescriptor) BehaviorMethods() []Method {
	var out []Method
	for _, m := range t.Methods {
		if !m.Accessor && !m.Constructor {
			out = append(out, m)
		}
	}
	return out
}

// Cluster is one aggregate cluster: the set of types that form a single
// consistency boundary. The scanner partitions types into clusters (by
// package directory); the core never computes the partition itself.
type Cluster struct {
	Name string
	// Types lists member type names in discovery order.
	Types []string
	// Root names the aggregate root, when the scanner identified one.
	Root string
	// ExternallyReferenced lists member types that are reachable from
	// outside the cluster (constructed or returned by code in other
	// clusters).
	ExternallyReferenced []string
}

// Snapshot is the complete structural input to one analysis run.
type Snapshot struct {
	// Types in discovery order. Discovery order is part of the report's
	// deterministic tie-break, so scanners must emit a stable order.
	Types []TypeDescriptor
	// Clusters is the aggregate partition. May be empty, in which case
	// cluster-level rules do not apply.
	Clusters []Cluster
}

// TypeByName returns the descriptor with the given name, if present.
func (s *Snapshot) TypeByName(name string) (*TypeDescriptor, bool) {
	for i := range s.Types {
		if s.Types[i].Name == name {
			return &s.Types[i], true
		}
	}
	return nil, false
}
