// Package catalog holds the rule table for DDD tactical-pattern analysis.
// The catalog is constructed once, validated at load time, and never mutated
// afterwards. It is passed explicitly to the analyzer; there is no ambient
// global rule state.
package catalog

import (
	"fmt"

	"github.com/pedromsantos/dddlint/internal/descriptor"
)

// Severity ranks how serious a rule violation is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Weight returns the sort weight of the severity. Higher is more severe.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Status is the outcome of evaluating one rule against one type.
type Status string

const (
	StatusPass          Status = "pass"
	StatusFail          Status = "fail"
	StatusNotApplicable Status = "not-applicable"
)

// CategoryNaming is the rule-only category for naming conventions. Types are
// never classified into it; the analyzer applies naming rules to every
// classified type in addition to its own category's rules.
const CategoryNaming descriptor.Category = "naming"

// Context carries the run-wide facts a predicate may need beyond the type
// itself: the full snapshot, the cluster partition and the classification
// results. It is read-only during evaluation.
type Context struct {
	Snapshot *descriptor.Snapshot

	// Categories holds each type's classification, indexed like
	// Snapshot.Types. Indexing by position keeps same-named types in
	// different packages distinct.
	Categories []descriptor.Category

	// AggregateRoots and Repositories list the names of types classified
	// into those categories, in discovery order.
	AggregateRoots []string
	Repositories   []string
}

// CategoryOf resolves a by-name type reference, e.g. a repository's target.
// A type in the referrer's own package wins; otherwise the first discovered
// type with that name does.
func (c *Context) CategoryOf(name string, from *descriptor.TypeDescriptor) descriptor.Category {
	if c.Snapshot == nil || name == "" {
		return descriptor.CategoryUnknown
	}
	match := -1
	for i := range c.Snapshot.Types {
		if c.Snapshot.Types[i].Name != name {
			continue
		}
		if from != nil && c.Snapshot.Types[i].Package == from.Package {
			match = i
			break
		}
		if match < 0 {
			match = i
		}
	}
	if match < 0 || match >= len(c.Categories) {
		return descriptor.CategoryUnknown
	}
	return c.Categories[match]
}

// ClusterOf returns the cluster containing the type, if any. Clusters are
// named after their package, so a type carrying package information resolves
// to its own package's cluster; without it membership is scanned by name.
func (c *Context) ClusterOf(t *descriptor.TypeDescriptor) (*descriptor.Cluster, bool) {
	if c.Snapshot == nil {
		return nil, false
	}
	if t.Package != "" {
		for i := range c.Snapshot.Clusters {
			if c.Snapshot.Clusters[i].Name == t.Package {
				return &c.Snapshot.Clusters[i], true
			}
		}
	}
	for i := range c.Snapshot.Clusters {
		for _, member := range c.Snapshot.Clusters[i].Types {
			if member == t.Name {
				return &c.Snapshot.Clusters[i], true
			}
		}
	}
	return nil, false
}

// Result is what a rule predicate returns.
type Result struct {
	Status Status
	// Evidence names the fields, methods or types implicated in a failure.
	Evidence []string
	// Note carries extra explanation, e.g. why a rule was not applicable.
	Note string
}

// Pass, Fail and NotApplicable are predicate result constructors.
func Pass() Result { return Result{Status: StatusPass} }

func Fail(evidence ...string) Result { return Result{Status: StatusFail, Evidence: evidence} }

func NotApplicable(note string) Result {
	return Result{Status: StatusNotApplicable, Note: note}
}

// Rule is one structural rule. Check is a pure predicate over the descriptor
// and the run context; it must not mutate either.
type Rule struct {
	ID       string
	Category descriptor.Category
	Severity Severity
	Summary  string
	// Fix is a short suggestion template shown on failure.
	Fix string
	// Heuristic marks rules that can produce false positives (e.g. the
	// past-tense naming check). Their verdicts carry the flag through to
	// the report.
	Heuristic bool
	Check     func(rc *Context, t *descriptor.TypeDescriptor) Result
}

// Verdict is the outcome of one (rule, type) evaluation.
type Verdict struct {
	RuleID   string
	Severity Severity
	Category descriptor.Category
	// RuleIndex is the rule's declaration position in the catalog;
	// TypeIndex is the type's discovery position in the snapshot. Both feed
	// the report's deterministic ordering.
	RuleIndex int
	TypeIndex int

	TypeName string
	File     string
	Line     int

	Status    Status
	Evidence  []string
	Note      string
	Heuristic bool
	Summary   string
	Fix       string
}

// Catalog is the immutable, validated rule table.
type Catalog struct {
	rules      []Rule
	byCategory map[descriptor.Category][]Rule
	index      map[string]int
}

// LoadError reports a catalog that failed validation. An inconsistent catalog
// invalidates all results, so loading fails before any type is evaluated.
type LoadError struct {
	Reason string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("catalog load failed: %s", e.Reason)
}

// New builds and validates a catalog from the given rules. Rule order is
// preserved as declaration order and is never re-sorted.
func New(rules []Rule) (*Catalog, error) {
	c := &Catalog{
		byCategory: make(map[descriptor.Category][]Rule),
		index:      make(map[string]int),
	}
	for i, r := range rules {
		if r.ID == "" {
			return nil, &LoadError{Reason: fmt.Sprintf("rule at position %d has empty ID", i)}
		}
		if r.Check == nil {
			return nil, &LoadError{Reason: fmt.Sprintf("rule %s has no predicate", r.ID)}
		}
		if _, dup := c.index[r.ID]; dup {
			return nil, &LoadError{Reason: fmt.Sprintf("duplicate rule ID %s", r.ID)}
		}
		c.index[r.ID] = i
		c.rules = append(c.rules, r)
		c.byCategory[r.Category] = append(c.byCategory[r.Category], r)
	}
	return c, nil
}

// MustNew is New for catalogs known to be valid, such as the builtin set.
func MustNew(rules []Rule) *Catalog {
	c, err := New(rules)
	if err != nil {
		panic(err)
	}
	return c
}

// RulesFor returns the rules for the given category in declaration order.
// Unknown categories yield an empty slice: a category may legitimately have
// no rules yet.
func (c *Catalog) RulesFor(cat descriptor.Category) []Rule {
	return c.byCategory[cat]
}

// All returns the full catalog in declaration order.
func (c *Catalog) All() []Rule {
	return c.rules
}

// Len returns the number of rules in the catalog.
func (c *Catalog) Len() int {
	return len(c.rules)
}

// IndexOf returns the declaration position of the rule with the given ID.
func (c *Catalog) IndexOf(id string) (int, bool) {
	i, ok := c.index[id]
	return i, ok
}
