// Package assemble joins prioritized response sections under an estimated
// token budget.
package assemble

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// CharsPerToken is the assumed character/token ratio for mixed Danish and
// English text.
const CharsPerToken = 4

// MustIncludePriority is the floor above which a section is truncated to fit
// rather than dropped when the budget runs out.
const MustIncludePriority = 8

// Ellipsis marks a truncated section.
const Ellipsis = "..."

// Section is one candidate piece of a response.
type Section struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	Priority int    `json:"priority"`
}

// EstimateTokens returns the token estimate for a string, rounding up.
func EstimateTokens(s string) int {
	return (len(s) + CharsPerToken - 1) / CharsPerToken
}

// sectionSeparator joins included sections; its token cost counts against the
// budget like any content.
const sectionSeparator = "\n\n"

// Assemble sorts sections by descending priority (stable, ties keep input
// order) and joins them with blank lines. With maxTokens > 0 it walks the
// sorted sections accumulating token cost, separators included: a section
// that no longer fits is skipped when its priority is below the must-include
// floor, so a later, shorter section may still fit; a must-include section is
// truncated to the remaining budget with an ellipsis appended and assembly
// stops there. The estimated token count of the returned string never
// exceeds maxTokens. maxTokens <= 0 includes everything.
func Assemble(sections []Section, maxTokens int) string {
	ordered := make([]Section, len(sections))
	copy(ordered, sections)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	var (
		parts []string
		used  int
	)
	for _, section := range ordered {
		sep := 0
		if len(parts) > 0 {
			sep = EstimateTokens(sectionSeparator)
		}
		cost := sep + EstimateTokens(section.Content)
		if maxTokens > 0 && used+cost > maxTokens {
			if section.Priority < MustIncludePriority {
				continue
			}
			// Reserve the separator and the ellipsis before computing how
			// many content characters still fit.
			limit := (maxTokens-used-sep)*CharsPerToken - len(Ellipsis)
			if limit > 0 {
				if limit > len(section.Content) {
					limit = len(section.Content)
				}
				for limit > 0 && limit < len(section.Content) && !utf8.RuneStart(section.Content[limit]) {
					limit--
				}
				parts = append(parts, strings.TrimSpace(section.Content[:limit])+Ellipsis)
			}
			break
		}
		parts = append(parts, section.Content)
		used += cost
	}

	return strings.TrimRight(strings.Join(parts, sectionSeparator), " \t\n")
}
