// Package extract pulls structured lead fields out of free-form email text.
//
// Every extractor is a total function: unparsable input yields the field's
// empty value, never an error. Each field is driven by an ordered rule list
// evaluated in sequence with first-success-wins semantics, so individual
// rules can be exercised in isolation by tests.
package extract

import (
	"regexp"
	"strings"

	"github.com/TekupDK/tekup-sub017/platform/phone"
)

// UnknownCustomer is the sentinel name when no rule recovers a customer name.
const UnknownCustomer = "Ukendt kunde"

// subjectNameRegex matches broker subjects like
// "Rene Fly Jensen fra Rengøring.nu - Nettbureau AS", with an optional "Re: ".
var subjectNameRegex = regexp.MustCompile(`(?i)^(?:re:\s*)?(.+?)\s+fra\s+rengøring`)

// nameLabelRegexes are tried in order against each body line.
var nameLabelRegexes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^kundenavn\s*[:\s]\s*(.+)$`),
	regexp.MustCompile(`(?i)^navn\s*[:\s]\s*(.+)$`),
	regexp.MustCompile(`(?i)^(?:customer\s+)?name\s*[:\s]\s*(.+)$`),
}

// Name recovers the customer name. Rules, in order: broker-formatted subject
// line, a labeled body line, then the first short body line that is not an
// email address. No merging across rules; the first hit wins.
func Name(subject, body string) string {
	if m := subjectNameRegex.FindStringSubmatch(subject); m != nil {
		return strings.TrimSpace(m[1])
	}

	for _, line := range lines(body) {
		for _, re := range nameLabelRegexes {
			if m := re.FindStringSubmatch(line); m != nil {
				return strings.TrimSpace(m[1])
			}
		}
	}

	if first := lines(body); len(first) > 0 {
		if line := first[0]; len(line) < 100 && !strings.Contains(line, "@") {
			return line
		}
	}

	return UnknownCustomer
}

var (
	emailLabelRegex = regexp.MustCompile(`(?i)(?:e-?mail|mail)\s*[:\s]+([^\s]+@[^\s]+)`)
	emailTokenRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// Email recovers the customer email: labeled line first, then any RFC-shaped
// token in the body, then the From header. Candidates on one of the business's
// own domains are rejected and scanning continues with the next candidate.
func Email(body, fromHeader string, ownDomains []string) string {
	if m := emailLabelRegex.FindStringSubmatch(body); m != nil {
		candidate := strings.Trim(m[1], ".,;")
		if !isOwnAddress(candidate, ownDomains) {
			return candidate
		}
	}

	for _, candidate := range emailTokenRegex.FindAllString(body, -1) {
		if !isOwnAddress(candidate, ownDomains) {
			return candidate
		}
	}

	if m := emailTokenRegex.FindString(fromHeader); m != "" && !isOwnAddress(m, ownDomains) {
		return m
	}

	return ""
}

func isOwnAddress(addr string, ownDomains []string) bool {
	lowered := strings.ToLower(addr)
	for _, domain := range ownDomains {
		if domain != "" && strings.Contains(lowered, strings.ToLower(domain)) {
			return true
		}
	}
	return false
}

// phoneRules are tried in order: labeled line, Danish grouped-pair format,
// then any standalone 8-10 digit run.
var phoneRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:telefonnummer|telefon|tlf|mobil|phone)\s*[:\s]+([0-9\s+\-()]+)`),
	regexp.MustCompile(`(\+?\d{2}[\s-]?\d{2}[\s-]?\d{2}[\s-]?\d{2}[\s-]?\d{2})`),
	regexp.MustCompile(`(\d{8,10})`),
}

var phoneSeparatorRegex = regexp.MustCompile(`[\s\-()]`)

// Phone recovers a phone number as a separator-free digit string (a leading
// "+" survives). Candidates shorter than 8 digits or implausible as Danish
// numbers are postal codes or fragments and are rejected; the next rule then
// gets its chance.
func Phone(body string) string {
	for _, re := range phoneRules {
		m := re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		candidate := phoneSeparatorRegex.ReplaceAllString(m[1], "")
		if len(strings.TrimPrefix(candidate, "+")) < 8 {
			continue
		}
		if !phone.IsPlausible(candidate) {
			continue
		}
		return candidate
	}
	return ""
}

// lines splits a body into trimmed, non-empty lines.
func lines(body string) []string {
	raw := strings.Split(body, "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
