package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pedromsantos/dddlint/internal/catalog"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	naStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	ruleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	heurStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
)

func severityStyle(s catalog.Severity) lipgloss.Style {
	switch s {
	case catalog.SeverityCritical:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	case catalog.SeverityHigh:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	case catalog.SeverityMedium:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	default:
		return dimStyle
	}
}

// RenderJSON writes the report as indented JSON.
func RenderJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// RenderText writes a styled terminal report.
func RenderText(w io.Writer, r *Report) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render("DDD tactical-pattern compliance"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("%d types discovered, %d evaluated, %d coverage gaps\n",
		r.Summary.Types, r.Summary.Evaluated, r.Summary.CoverageGaps))
	b.WriteString(fmt.Sprintf("%s  %s  %s\n\n",
		passStyle.Render(fmt.Sprintf("%d pass", r.Summary.Passed)),
		failStyle.Render(fmt.Sprintf("%d fail", r.Summary.Failed)),
		naStyle.Render(fmt.Sprintf("%d n/a", r.Summary.NotApplicable))))

	for _, g := range r.Categories {
		b.WriteString(headerStyle.Render(string(g.Category)))
		b.WriteString(dimStyle.Render(fmt.Sprintf("  (%d pass, %d fail, %d n/a)", g.Passed, g.Failed, g.NotApplicable)))
		b.WriteString("\n")
		for _, v := range g.Verdicts {
			b.WriteString(renderVerdict(v))
		}
		b.WriteString("\n")
	}

	if len(r.Gaps) > 0 {
		b.WriteString(headerStyle.Render("coverage gaps"))
		b.WriteString("\n")
		for _, gap := range r.Gaps {
			b.WriteString(naStyle.Render(fmt.Sprintf("  ? %s", gap.TypeName)))
			if gap.File != "" {
				b.WriteString(dimStyle.Render(fmt.Sprintf("  %s:%d", gap.File, gap.Line)))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(r.Actions) > 0 {
		b.WriteString(headerStyle.Render("action items"))
		b.WriteString("\n")
		for i, a := range r.Actions {
			b.WriteString(fmt.Sprintf("  %2d. %s %s %s: %s\n",
				i+1,
				severityStyle(a.Severity).Render(strings.ToUpper(string(a.Severity))),
				ruleStyle.Render(a.RuleID),
				a.TypeName,
				a.Summary))
			if a.Fix != "" {
				b.WriteString(dimStyle.Render(fmt.Sprintf("      fix: %s", a.Fix)))
				b.WriteString("\n")
			}
			if len(a.Evidence) > 0 {
				b.WriteString(dimStyle.Render(fmt.Sprintf("      evidence: %s", strings.Join(a.Evidence, ", "))))
				b.WriteString("\n")
			}
			if a.Heuristic {
				b.WriteString(heurStyle.Render("      heuristic: may be a false positive"))
				b.WriteString("\n")
			}
		}
	} else {
		b.WriteString(passStyle.Render("no action items"))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderVerdict(v catalog.Verdict) string {
	mark := passStyle.Render("✓")
	switch v.Status {
	case catalog.StatusFail:
		mark = failStyle.Render("✗")
	case catalog.StatusNotApplicable:
		mark = naStyle.Render("-")
	}
	line := fmt.Sprintf("  %s %s %s", mark, ruleStyle.Render(v.RuleID), v.TypeName)
	if v.Status == catalog.StatusNotApplicable && v.Note != "" {
		line += dimStyle.Render(fmt.Sprintf("  (%s)", v.Note))
	}
	return line + "\n"
}
