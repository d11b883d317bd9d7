// Package analyze evaluates the rule catalog against a scanned snapshot.
// Evaluation of each type is independent and stateless against the read-only
// catalog, so the analyzer can fan evaluation out across workers; result
// ordering is re-established by the report, never by arrival order.
package analyze

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pedromsantos/dddlint/internal/catalog"
	"github.com/pedromsantos/dddlint/internal/classify"
	"github.com/pedromsantos/dddlint/internal/descriptor"
	"github.com/pedromsantos/dddlint/internal/logging"
)

// CoverageGap is a type no heuristic could classify. Gaps surface in the
// report as missing coverage, not as rule violations.
type CoverageGap struct {
	TypeName string
	File     string
	Line     int
}

// ResultSet is the complete outcome of one analysis run.
type ResultSet struct {
	Verdicts []catalog.Verdict
	Gaps     []CoverageGap
	// Categories records the classification of every type, indexed like the
	// snapshot's Types. Same-named types in different packages stay distinct.
	Categories []descriptor.Category
}

// Analyzer evaluates one snapshot at a time against a fixed catalog.
type Analyzer struct {
	catalog *catalog.Catalog
	workers int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithWorkers sets the evaluation fan-out. Values below 1 mean sequential.
func WithWorkers(n int) Option {
	return func(a *Analyzer) { a.workers = n }
}

// New creates an analyzer over the given catalog. The catalog is borrowed,
// not copied; it must not change during a run (catalogs are immutable after
// load, so this holds by construction).
func New(cat *catalog.Catalog, opts ...Option) *Analyzer {
	a := &Analyzer{catalog: cat, workers: 1}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run classifies every type in the snapshot and evaluates the applicable
// rules. Per-type problems never abort the run: a panicking predicate
// becomes a not-applicable verdict, an unclassifiable type becomes a
// coverage gap. The only hard failures are a nil snapshot and context
// cancellation.
func (a *Analyzer) Run(ctx context.Context, snapshot *descriptor.Snapshot) (*ResultSet, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("analyze: nil snapshot")
	}

	classifier := classify.New(snapshot)
	rc := &catalog.Context{
		Snapshot:   snapshot,
		Categories: make([]descriptor.Category, len(snapshot.Types)),
	}

	// Classification pass first: cluster-level predicates (repository 1:1,
	// single root) need every classification before any rule runs.
	for i := range snapshot.Types {
		t := &snapshot.Types[i]
		cat := classifier.Classify(t)
		rc.Categories[i] = cat
		switch cat {
		case descriptor.CategoryAggregateRoot:
			rc.AggregateRoots = append(rc.AggregateRoots, t.Name)
		case descriptor.CategoryRepository:
			rc.Repositories = append(rc.Repositories, t.Name)
		}
	}

	results := make([][]catalog.Verdict, len(snapshot.Types))
	var gaps []CoverageGap

	evalOne := func(i int) {
		t := &snapshot.Types[i]
		results[i] = a.evaluateType(rc, t, i)
	}

	if a.workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.workers)
		for i := range snapshot.Types {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				evalOne(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range snapshot.Types {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			evalOne(i)
		}
	}

	set := &ResultSet{Categories: rc.Categories}
	for i := range snapshot.Types {
		t := &snapshot.Types[i]
		if rc.Categories[i] == descriptor.CategoryUnknown {
			gaps = append(gaps, CoverageGap{TypeName: t.Name, File: t.File, Line: t.Line})
			continue
		}
		set.Verdicts = append(set.Verdicts, results[i]...)
	}
	set.Gaps = gaps

	logging.Rules("Evaluated %d types: %d verdicts, %d coverage gaps",
		len(snapshot.Types), len(set.Verdicts), len(set.Gaps))
	return set, nil
}

// evaluateType runs every applicable rule against one type. Unknown types
// get no verdicts; they are reported as coverage gaps by Run.
func (a *Analyzer) evaluateType(rc *catalog.Context, t *descriptor.TypeDescriptor, typeIndex int) []catalog.Verdict {
	cat := rc.Categories[typeIndex]
	if cat == descriptor.CategoryUnknown {
		return nil
	}

	rules := a.catalog.RulesFor(cat)
	// Naming rules apply to every classified type on top of its own
	// category's rules.
	rules = append(rules[:len(rules):len(rules)], a.catalog.RulesFor(catalog.CategoryNaming)...)

	verdicts := make([]catalog.Verdict, 0, len(rules))
	for _, rule := range rules {
		ruleIndex, _ := a.catalog.IndexOf(rule.ID)
		v := catalog.Verdict{
			RuleID:    rule.ID,
			Severity:  rule.Severity,
			Category:  cat,
			RuleIndex: ruleIndex,
			TypeIndex: typeIndex,
			TypeName:  t.Name,
			File:      t.File,
			Line:      t.Line,
			Heuristic: rule.Heuristic,
			Summary:   rule.Summary,
			Fix:       rule.Fix,
		}
		res := a.check(rule, rc, t)
		v.Status = res.Status
		v.Evidence = res.Evidence
		v.Note = res.Note
		verdicts = append(verdicts, v)
	}
	return verdicts
}

// check isolates predicate panics: a predicate tripping over a malformed
// descriptor yields a not-applicable verdict instead of aborting the run.
func (a *Analyzer) check(rule catalog.Rule, rc *catalog.Context, t *descriptor.TypeDescriptor) (res catalog.Result) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryRules).Warn(
				"rule %s panicked on type %s: %v", rule.ID, t.Name, r)
			res = catalog.NotApplicable(fmt.Sprintf("malformed type descriptor: %v", r))
		}
	}()
	return rule.Check(rc, t)
}
