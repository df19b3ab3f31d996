package command

import "strings"

// UsageHeader opens the help text.
const UsageHeader = "今回のクエストの報酬わぁ、おいくら万円？\n"

// Usage renders the help text: a header line, then one "- usage" line per documented binding.
func (r *Registry) Usage() string {
	lines := []string{UsageHeader}
	for _, binding := range r.bindings {
		if binding.Usage == "" {
			continue
		}
		lines = append(lines, "- "+binding.Usage)
	}
	return strings.Join(lines, "\n")
}
