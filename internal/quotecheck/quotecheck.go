// Package quotecheck validates customer-facing quote text against the
// business rules every outgoing quote must satisfy, and deterministically
// repairs the known failure modes. Generated text is never trusted to be
// compliant; it passes through here before any send.
package quotecheck

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/TekupDK/tekup-sub017/internal/leads"
	"github.com/TekupDK/tekup-sub017/internal/policy"
)

// Check names appended verbatim to Result.Missing.
const (
	CheckPropertySize = "boligstørrelse"
	CheckCrewSize     = "antal medarbejdere"
	CheckHours        = "timeestimat"
	CheckHourlyRate   = "timepris"
	CheckSlots        = "ledige tidspunkter"
	CheckActualTime   = "faktisk tidsforbrug"
	CheckOvertime     = "overtidsklausul (+1 time)"
)

// Result is the outcome of validating one piece of quote text. Valid is true
// iff Missing is empty; Warnings never affect Valid.
type Result struct {
	Valid    bool     `json:"valid"`
	Missing  []string `json:"missing"`
	Warnings []string `json:"warnings"`
}

var (
	sizeRegex     = regexp.MustCompile(`(?i)\d+\s*(?:m²|m2|kvm|kvadratmeter)`)
	crewRegex     = regexp.MustCompile(`(?i)(\d+)\s*(?:personer|person|pers\b|medarbejdere|medarbejder)`)
	hoursRegex    = regexp.MustCompile(`(?i)\d+(?:\s*-\s*\d+)?\s*(?:arbejdstimer|arbejdstime|timers?|time)\b`)
	overtimeRegex = regexp.MustCompile(`\+\s*1\s*time\b`)

	wrongOvertimeRegex = regexp.MustCompile(`\+\s*([2-5])\s*timer`)
	wrongRateRegex     = regexp.MustCompile(`299\s*(?:kr|,-)`)
)

// Checker validates and templates quote text against one configured hourly
// rate, the same rate the pricing engine quotes with.
type Checker struct {
	rate      int
	rateRegex *regexp.Regexp
}

// NewChecker builds a checker for the given hourly rate. A non-positive rate
// falls back to the standard rate.
func NewChecker(hourlyRate int) *Checker {
	if hourlyRate <= 0 {
		hourlyRate = policy.DefaultHourlyRate
	}
	return &Checker{
		rate:      hourlyRate,
		rateRegex: regexp.MustCompile(strconv.Itoa(hourlyRate) + `\s*(?:kr|,-)`),
	}
}

// requiredChecks pairs each rule name with its presence test, in report order.
var requiredChecks = []struct {
	name    string
	present func(c *Checker, text string) bool
}{
	{CheckPropertySize, func(_ *Checker, text string) bool { return sizeRegex.MatchString(text) }},
	{CheckCrewSize, func(_ *Checker, text string) bool { return crewRegex.MatchString(text) }},
	{CheckHours, func(_ *Checker, text string) bool { return hoursRegex.MatchString(text) }},
	{CheckHourlyRate, func(c *Checker, text string) bool { return c.rateRegex.MatchString(text) }},
	{CheckSlots, func(_ *Checker, text string) bool {
		lowered := strings.ToLower(text)
		return strings.Contains(lowered, "ledige tidspunkter") || strings.Contains(lowered, "ledige tider")
	}},
	{CheckActualTime, func(_ *Checker, text string) bool {
		return strings.Contains(strings.ToLower(text), "faktisk tidsforbrug")
	}},
	{CheckOvertime, func(_ *Checker, text string) bool { return overtimeRegex.MatchString(text) }},
}

// Validate runs every required-content and forbidden-pattern check against
// the full text. The lead, when given, only sharpens warnings; it never
// changes which checks run.
func (c *Checker) Validate(text string, lead *leads.Lead) Result {
	result := Result{Missing: []string{}, Warnings: []string{}}

	for _, check := range requiredChecks {
		if !check.present(c, text) {
			result.Missing = append(result.Missing, check.name)
		}
	}

	if m := wrongOvertimeRegex.FindStringSubmatch(text); m != nil {
		result.Warnings = append(result.Warnings, "overtidsklausul siger +"+m[1]+" timer, skal være +1 time")
	}
	if c.rate != 299 && wrongRateRegex.MatchString(text) {
		result.Warnings = append(result.Warnings, "forældet timepris 299 kr, gældende pris er "+strconv.Itoa(c.rate)+" kr")
	}
	if lead != nil && lead.Price != nil && !strings.Contains(text, strconv.Itoa(lead.Price.MinPrice)) {
		result.Warnings = append(result.Warnings, "totalpris matcher ikke det beregnede estimat "+lead.Price.Formatted())
	}

	result.Valid = len(result.Missing) == 0
	return result
}
