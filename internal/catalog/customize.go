package catalog

import "fmt"

// Customized builds a catalog from the builtin rule set with the given rules
// disabled and severities overridden. Unknown rule IDs fail the load: a
// config naming a nonexistent rule is a config error, not a no-op.
func Customized(disabled []string, severities map[string]string) (*Catalog, error) {
	rules := builtinRules()

	known := make(map[string]bool, len(rules))
	for _, r := range rules {
		known[r.ID] = true
	}
	for _, id := range disabled {
		if !known[id] {
			return nil, &LoadError{Reason: fmt.Sprintf("cannot disable unknown rule %s", id)}
		}
	}
	for id := range severities {
		if !known[id] {
			return nil, &LoadError{Reason: fmt.Sprintf("cannot override severity of unknown rule %s", id)}
		}
	}

	off := make(map[string]bool, len(disabled))
	for _, id := range disabled {
		off[id] = true
	}

	var kept []Rule
	for _, r := range rules {
		if off[r.ID] {
			continue
		}
		if s, ok := severities[r.ID]; ok {
			sev := Severity(s)
			if sev.Weight() == 0 {
				return nil, &LoadError{Reason: fmt.Sprintf("unknown severity %q for rule %s", s, r.ID)}
			}
			r.Severity = sev
		}
		kept = append(kept, r)
	}
	return New(kept)
}
