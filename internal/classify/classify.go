// Package classify assigns each scanned type to a tactical-pattern category.
// Classification is a pure function of the type and the snapshot it belongs
// to: calling it twice on identical input yields identical output.
package classify

import (
	"strings"

	"github.com/pedromsantos/dddlint/internal/descriptor"
)

// eventCapabilities are base classes / embedded interfaces that mark a type
// as a domain event regardless of its name.
var eventCapabilities = []string{"DomainEvent", "Event"}

// Classifier classifies types against one snapshot. The snapshot supplies
// the cluster partition used to recognize aggregate roots; it is read-only.
type Classifier struct {
	snapshot *descriptor.Snapshot
}

// New builds a classifier for the given snapshot.
func New(snapshot *descriptor.Snapshot) *Classifier {
	return &Classifier{snapshot: snapshot}
}

// Classify assigns exactly one category to the type, or CategoryUnknown when
// no heuristic matches. It is total: it never fails.
//
// Precedence, most specific first:
//  1. repository shape (Repository suffix, or abstract port with a target)
//  2. domain service (Service suffix)
//  3. domain event (event capability or Event suffix)
//  4. aggregate root (designated root of a cluster)
//  5. entity (declares an identity field)
//  6. value object (fields all immutable, no identity field)
//
// A type with both an identity field and otherwise immutable fields is an
// entity, never a value object: persistent identity wins over immutability.
func (c *Classifier) Classify(t *descriptor.TypeDescriptor) descriptor.Category {
	if t == nil {
		return descriptor.CategoryUnknown
	}

	if strings.HasSuffix(t.Name, "Repository") {
		return descriptor.CategoryRepository
	}
	if t.Abstract && t.TargetType != "" {
		return descriptor.CategoryRepository
	}

	if strings.HasSuffix(t.Name, "Service") {
		return descriptor.CategoryDomainService
	}

	if c.isEvent(t) {
		return descriptor.CategoryDomainEvent
	}

	if c.isRoot(t) {
		return descriptor.CategoryAggregateRoot
	}

	// Identity beats immutability: see the entity/value-object tie-break in
	// the classifier tests.
	if _, ok := t.IdentityField(); ok {
		return descriptor.CategoryEntity
	}

	if len(t.Fields) > 0 && !t.HasMutableField() && !t.Abstract {
		return descriptor.CategoryValueObject
	}

	return descriptor.CategoryUnknown
}

// isRoot reports whether t is a designated cluster root. Clusters are named
// after their package, so a same-named type in another package does not
// inherit root status.
func (c *Classifier) isRoot(t *descriptor.TypeDescriptor) bool {
	if c.snapshot == nil {
		return false
	}
	for i := range c.snapshot.Clusters {
		cluster := &c.snapshot.Clusters[i]
		if cluster.Root != t.Name {
			continue
		}
		if t.Package == "" || cluster.Name == t.Package {
			return true
		}
	}
	return false
}

func (c *Classifier) isEvent(t *descriptor.TypeDescriptor) bool {
	for _, capability := range t.Implements {
		for _, marker := range eventCapabilities {
			if capability == marker {
				return true
			}
		}
	}
	return strings.HasSuffix(t.Name, "Event")
}
