package quotecheck

// RepairResult carries the outcome of a deterministic text repair.
type RepairResult struct {
	Fixed   string `json:"fixed"`
	Changed bool   `json:"changed"`
	Warning string `json:"warning,omitempty"`
}

// RepairOvertimeClause rewrites any "+2 timer" through "+5 timer" phrasing to
// the single correct "+1 time" clause. It reports, but never fabricates, a
// missing crew-size phrase: inventing a number of workers is not a repair.
func RepairOvertimeClause(text string) RepairResult {
	fixed := wrongOvertimeRegex.ReplaceAllString(text, "+1 time")

	result := RepairResult{Fixed: fixed, Changed: fixed != text}
	if !crewRegex.MatchString(fixed) {
		result.Warning = "svaret nævner ikke antal medarbejdere"
	}
	return result
}
