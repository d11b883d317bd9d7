// Package report turns the analyzer's verdicts into an ordered compliance
// report. The ordering is a total function of severity, rule declaration
// order and type discovery order, never of evaluation order, so repeated
// runs on identical input produce byte-identical reports.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pedromsantos/dddlint/internal/analyze"
	"github.com/pedromsantos/dddlint/internal/catalog"
	"github.com/pedromsantos/dddlint/internal/descriptor"
	"github.com/pedromsantos/dddlint/internal/logging"
)

// categoryOrder fixes the display order of category groups.
var categoryOrder = []descriptor.Category{
	descriptor.CategoryEntity,
	descriptor.CategoryValueObject,
	descriptor.CategoryAggregateRoot,
	descriptor.CategoryRepository,
	descriptor.CategoryDomainService,
	descriptor.CategoryDomainEvent,
}

// Summary holds the run-wide counts.
type Summary struct {
	Types         int `json:"types"`
	Evaluated     int `json:"evaluated"`
	Passed        int `json:"passed"`
	Failed        int `json:"failed"`
	NotApplicable int `json:"not_applicable"`
	CoverageGaps  int `json:"coverage_gaps"`

	FailedCritical int `json:"failed_critical"`
	FailedHigh     int `json:"failed_high"`
	FailedMedium   int `json:"failed_medium"`
	FailedLow      int `json:"failed_low"`
}

// CategoryGroup holds the verdicts for one category, ordered by type
// discovery order then rule declaration order.
type CategoryGroup struct {
	Category      descriptor.Category `json:"category"`
	Verdicts      []catalog.Verdict   `json:"verdicts"`
	Passed        int                 `json:"passed"`
	Failed        int                 `json:"failed"`
	NotApplicable int                 `json:"not_applicable"`
}

// Action is one prioritized item on the fix list.
type Action struct {
	RuleID    string            `json:"rule_id"`
	Severity  catalog.Severity  `json:"severity"`
	TypeName  string            `json:"type"`
	File      string            `json:"file,omitempty"`
	Line      int               `json:"line,omitempty"`
	Summary   string            `json:"summary"`
	Fix       string            `json:"fix,omitempty"`
	Evidence  []string          `json:"evidence,omitempty"`
	Heuristic bool              `json:"heuristic,omitempty"`

	ruleIndex int
	typeIndex int
}

// Gap is an unclassifiable type surfaced as missing coverage.
type Gap struct {
	TypeName string `json:"type"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
}

// Report is the immutable result of one analysis run.
type Report struct {
	Summary    Summary         `json:"summary"`
	Categories []CategoryGroup `json:"categories"`
	Actions    []Action        `json:"actions"`
	Gaps       []Gap           `json:"coverage_gaps,omitempty"`
}

// Generate builds the report from a result set. An empty result set yields a
// report with zero counts; Generate never fails.
func Generate(set *analyze.ResultSet) *Report {
	timer := logging.StartTimer(logging.CategoryReport, "Generate")
	defer timer.Stop()

	r := &Report{}
	if set == nil {
		return r
	}

	r.Summary.Types = len(set.Categories)
	r.Summary.CoverageGaps = len(set.Gaps)
	r.Summary.Evaluated = len(set.Categories) - len(set.Gaps)

	groups := make(map[descriptor.Category]*CategoryGroup)
	for _, v := range set.Verdicts {
		g, ok := groups[v.Category]
		if !ok {
			g = &CategoryGroup{Category: v.Category}
			groups[v.Category] = g
		}
		g.Verdicts = append(g.Verdicts, v)
		switch v.Status {
		case catalog.StatusPass:
			g.Passed++
			r.Summary.Passed++
		case catalog.StatusFail:
			g.Failed++
			r.Summary.Failed++
			r.countFailure(v.Severity)
			r.Actions = append(r.Actions, actionFor(v))
		case catalog.StatusNotApplicable:
			g.NotApplicable++
			r.Summary.NotApplicable++
		}
	}

	for _, cat := range categoryOrder {
		g, ok := groups[cat]
		if !ok {
			continue
		}
		sort.SliceStable(g.Verdicts, func(i, j int) bool {
			a, b := g.Verdicts[i], g.Verdicts[j]
			if a.TypeIndex != b.TypeIndex {
				return a.TypeIndex < b.TypeIndex
			}
			return a.RuleIndex < b.RuleIndex
		})
		r.Categories = append(r.Categories, *g)
	}

	// Prioritized action list: severity descending, rule declaration order,
	// then type discovery order. Fully deterministic regardless of how the
	// verdicts arrived.
	sort.SliceStable(r.Actions, func(i, j int) bool {
		a, b := r.Actions[i], r.Actions[j]
		if a.Severity.Weight() != b.Severity.Weight() {
			return a.Severity.Weight() > b.Severity.Weight()
		}
		if a.ruleIndex != b.ruleIndex {
			return a.ruleIndex < b.ruleIndex
		}
		return a.typeIndex < b.typeIndex
	})

	for _, gap := range set.Gaps {
		r.Gaps = append(r.Gaps, Gap{TypeName: gap.TypeName, File: gap.File, Line: gap.Line})
	}
	sort.SliceStable(r.Gaps, func(i, j int) bool {
		return r.Gaps[i].TypeName < r.Gaps[j].TypeName
	})

	return r
}

func (r *Report) countFailure(s catalog.Severity) {
	switch s {
	case catalog.SeverityCritical:
		r.Summary.FailedCritical++
	case catalog.SeverityHigh:
		r.Summary.FailedHigh++
	case catalog.SeverityMedium:
		r.Summary.FailedMedium++
	case catalog.SeverityLow:
		r.Summary.FailedLow++
	}
}

func actionFor(v catalog.Verdict) Action {
	fix := v.Fix
	if strings.Contains(fix, "%s") {
		fix = fmt.Sprintf(fix, v.TypeName)
	}
	return Action{
		RuleID:    v.RuleID,
		Severity:  v.Severity,
		TypeName:  v.TypeName,
		File:      v.File,
		Line:      v.Line,
		Summary:   v.Summary,
		Fix:       fix,
		Evidence:  v.Evidence,
		Heuristic: v.Heuristic,
		ruleIndex: v.RuleIndex,
		typeIndex: v.TypeIndex,
	}
}

// Clean reports whether the run found no failures.
func (r *Report) Clean() bool {
	return r.Summary.Failed == 0
}

// FailuresAtOrAbove counts failures at the given severity or higher.
func (r *Report) FailuresAtOrAbove(s catalog.Severity) int {
	n := 0
	for _, a := range r.Actions {
		if a.Severity.Weight() >= s.Weight() {
			n++
		}
	}
	return n
}
