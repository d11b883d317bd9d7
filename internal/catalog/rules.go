package catalog

import (
	"fmt"
	"strings"

	"github.com/pedromsantos/dddlint/internal/descriptor"
)

// irregularPastTense lists verbs whose past tense carries no -ed/-en marker.
// The past-tense naming check is a heuristic; this list only reduces its
// false positives, it cannot eliminate them.
var irregularPastTense = []string{
	"Sent", "Sold", "Paid", "Held", "Made", "Met", "Set", "Put", "Won",
	"Lost", "Left", "Kept", "Built", "Bought", "Caught", "Found", "Told",
	"Spent", "Begun", "Done", "Gone", "Run", "Became", "Withdrawn",
}

// technicalSuffixes are naming-convention smells: they describe mechanics,
// not the ubiquitous language.
var technicalSuffixes = []string{"Impl", "Data", "Info", "Helper", "Manager", "Util", "Utils"}

// Default returns the builtin rule set. Declaration order here is the stable
// rule order used throughout reporting.
func Default() *Catalog {
	return MustNew(builtinRules())
}

func builtinRules() []Rule {
	return []Rule{
		// --- entity ---
		{
			ID:       "ENT001",
			Category: descriptor.CategoryEntity,
			Severity: SeverityCritical,
			Summary:  "entity must declare a persistent identity field",
			Fix:      "add an identity field (e.g. an ID value object) to %s",
			Check:    checkHasIdentity,
		},
		{
			ID:       "ENT002",
			Category: descriptor.CategoryEntity,
			Severity: SeverityCritical,
			Summary:  "entity equality must be keyed on identity only",
			Fix:      "restrict %s's equality to its identity field",
			Check:    checkIdentityEquality,
		},
		{
			ID:       "ENT003",
			Category: descriptor.CategoryEntity,
			Severity: SeverityHigh,
			Summary:  "entity must carry behavior, not only accessors",
			Fix:      "move the operations that change %s into methods on it",
			Check:    checkNotAnemic,
		},

		// --- value object ---
		{
			ID:       "VO001",
			Category: descriptor.CategoryValueObject,
			Severity: SeverityCritical,
			Summary:  "value object must be immutable after construction",
			Fix:      "freeze %s: remove setters and make all fields read-only",
			Check:    checkImmutable,
		},
		{
			ID:       "VO002",
			Category: descriptor.CategoryValueObject,
			Severity: SeverityMedium,
			Summary:  "value object equality must compare all attributes",
			Fix:      "compare every attribute of %s in its equality",
			Check:    checkAttributeEquality,
		},
		{
			ID:       "VO003",
			Category: descriptor.CategoryValueObject,
			Severity: SeverityMedium,
			Summary:  "value object must validate its invariants at construction",
			Fix:      "reject invalid values in %s's constructor",
			Check:    checkConstructorValidates,
		},

		// --- aggregate root ---
		{
			ID:       "AGG001",
			Category: descriptor.CategoryAggregateRoot,
			Severity: SeverityCritical,
			Summary:  "aggregate must expose a single root to the outside",
			Fix:      "route external access to the %s cluster through its root",
			Check:    checkSingleRoot,
		},
		{
			ID:       "AGG002",
			Category: descriptor.CategoryAggregateRoot,
			Severity: SeverityHigh,
			Summary:  "aggregate root must declare a persistent identity field",
			Fix:      "add an identity field (e.g. an ID value object) to %s",
			Check:    checkHasIdentity,
		},

		// --- repository ---
		{
			ID:       "REP001",
			Category: descriptor.CategoryRepository,
			Severity: SeverityHigh,
			Summary:  "repositories must map 1:1 to aggregate roots",
			Fix:      "collapse the extra repositories or target %s at an aggregate root",
			Check:    checkRepositoryOneToOne,
		},
		{
			ID:       "REP002",
			Category: descriptor.CategoryRepository,
			Severity: SeverityMedium,
			Summary:  "repository must be declared as an abstract port",
			Fix:      "declare %s as an interface and implement it in infrastructure",
			Check:    checkAbstractPort,
		},

		// --- domain service ---
		{
			ID:       "SVC001",
			Category: descriptor.CategoryDomainService,
			Severity: SeverityMedium,
			Summary:  "domain service must be stateless",
			Fix:      "move %s's mutable state into the aggregates it operates on",
			Check:    checkStateless,
		},

		// --- domain event ---
		{
			ID:        "EVT001",
			Category:  descriptor.CategoryDomainEvent,
			Severity:  SeverityMedium,
			Summary:   "domain event name should read as past tense",
			Fix:       "rename %s to the past tense of the fact it records",
			Heuristic: true,
			Check:     checkPastTenseName,
		},
		{
			ID:       "EVT002",
			Category: descriptor.CategoryDomainEvent,
			Severity: SeverityHigh,
			Summary:  "domain event must be immutable",
			Fix:      "freeze %s: events record facts that already happened",
			Check:    checkImmutable,
		},

		// --- naming (applies to every classified type) ---
		{
			ID:       "NAM001",
			Category: CategoryNaming,
			Severity: SeverityLow,
			Summary:  "type name should come from the ubiquitous language",
			Fix:      "rename %s after the domain concept it models",
			Check:    checkNoTechnicalSuffix,
		},
	}
}

func checkHasIdentity(_ *Context, t *descriptor.TypeDescriptor) Result {
	if _, ok := t.IdentityField(); ok {
		return Pass()
	}
	return Fail(t.Name)
}

// checkIdentityEquality fails when equality references any field beyond the
// identity field.
func checkIdentityEquality(_ *Context, t *descriptor.TypeDescriptor) Result {
	id, ok := t.IdentityField()
	if !ok {
		return NotApplicable("no identity field to key equality on")
	}
	switch t.Equality {
	case descriptor.EqualityIdentity:
		return Pass()
	case descriptor.EqualityDefault:
		return NotApplicable("type declares no equality of its own")
	case descriptor.EqualityMixed, descriptor.EqualityAttributes:
		return Fail(id.Name)
	default:
		return NotApplicable(fmt.Sprintf("unrecognized equality basis %q", t.Equality))
	}
}

// checkNotAnemic fails when every method is a pure getter/setter: no method
// performs a computation, validation or state transition beyond assignment.
func checkNotAnemic(_ *Context, t *descriptor.TypeDescriptor) Result {
	if len(t.Methods) == 0 {
		return Fail(t.Name)
	}
	if len(t.BehaviorMethods()) > 0 {
		return Pass()
	}
	var accessors []string
	for _, m := range t.Methods {
		if m.Accessor {
			accessors = append(accessors, m.Name)
		}
	}
	return Fail(accessors...)
}

func checkImmutable(_ *Context, t *descriptor.TypeDescriptor) Result {
	var mutable []string
	for _, f := range t.Fields {
		if f.Mutable {
			mutable = append(mutable, f.Name)
		}
	}
	if len(mutable) > 0 {
		return Fail(mutable...)
	}
	return Pass()
}

func checkAttributeEquality(_ *Context, t *descriptor.TypeDescriptor) Result {
	switch t.Equality {
	case descriptor.EqualityAttributes:
		return Pass()
	case descriptor.EqualityDefault:
		// Frozen value types commonly inherit structural equality.
		return Pass()
	default:
		return Fail(string(t.Equality))
	}
}

func checkConstructorValidates(_ *Context, t *descriptor.TypeDescriptor) Result {
	sawConstructor := false
	for _, m := range t.Methods {
		if !m.Constructor {
			continue
		}
		sawConstructor = true
		if m.Validates {
			return Pass()
		}
	}
	if !sawConstructor {
		return NotApplicable("no constructor recorded for this type")
	}
	return Fail(t.Name)
}

// checkSingleRoot fails when more than one type in the root's cluster is
// reachable from outside the cluster.
func checkSingleRoot(rc *Context, t *descriptor.TypeDescriptor) Result {
	cluster, ok := rc.ClusterOf(t)
	if !ok {
		return NotApplicable("type belongs to no known aggregate cluster")
	}
	if len(cluster.ExternallyReferenced) > 1 {
		return Fail(cluster.ExternallyReferenced...)
	}
	return Pass()
}

// checkRepositoryOneToOne fails when the repository count exceeds the
// aggregate-root count, or when this repository's target type is not an
// aggregate root.
func checkRepositoryOneToOne(rc *Context, t *descriptor.TypeDescriptor) Result {
	if len(rc.Repositories) > len(rc.AggregateRoots) {
		return Fail(rc.Repositories...)
	}
	if t.TargetType == "" {
		return NotApplicable("repository declares no target type")
	}
	if rc.CategoryOf(t.TargetType, t) != descriptor.CategoryAggregateRoot {
		return Fail(t.TargetType)
	}
	return Pass()
}

func checkAbstractPort(_ *Context, t *descriptor.TypeDescriptor) Result {
	if t.Abstract {
		return Pass()
	}
	return Fail(t.Name)
}

func checkStateless(_ *Context, t *descriptor.TypeDescriptor) Result {
	var mutable []string
	for _, f := range t.Fields {
		if f.Mutable {
			mutable = append(mutable, f.Name)
		}
	}
	if len(mutable) > 0 {
		return Fail(mutable...)
	}
	return Pass()
}

// checkPastTenseName applies the past-tense morphology heuristic: the name
// ends in -ed/-en, or its final camel-case word is a known irregular past
// tense.
func checkPastTenseName(_ *Context, t *descriptor.TypeDescriptor) Result {
	name := strings.TrimSuffix(t.Name, "Event")
	if name == "" {
		return NotApplicable("name carries no verb to inspect")
	}
	if strings.HasSuffix(name, "ed") || strings.HasSuffix(name, "en") {
		return Pass()
	}
	last := lastCamelWord(name)
	for _, irregular := range irregularPastTense {
		if last == irregular {
			return Pass()
		}
	}
	return Fail(t.Name)
}

func checkNoTechnicalSuffix(_ *Context, t *descriptor.TypeDescriptor) Result {
	for _, suffix := range technicalSuffixes {
		if strings.HasSuffix(t.Name, suffix) && t.Name != suffix {
			return Fail(suffix)
		}
	}
	return Pass()
}

// lastCamelWord returns the final upper-case-delimited word of a name,
// e.g. "UserEmailChanged" -> "Changed".
func lastCamelWord(name string) string {
	last := 0
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			last = i
		}
	}
	return name[last:]
}
