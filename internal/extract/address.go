package extract

import (
	"regexp"
	"strings"
)

var (
	addressLabelRegexes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)adresse\s*:\s*([^\n\r]+)`),
		regexp.MustCompile(`(?i)address\s*:\s*([^\n\r]+)`),
	}

	// streetRegex requires a Danish street keyword so "51 13 01 49, 8000 Aarhus"
	// style phone fragments never pass as addresses.
	streetRegex = regexp.MustCompile(`(?i)([A-Za-zæøåÆØÅ]+(?:vej|gade|stræde|plads|alle|allé|boulevard|torv|park|skov|strand)\s*\d+[A-Za-z]?),?\s*(\d{4})\s+([A-Za-zæøåÆØÅ]+)`)

	// looseAddressRegex is the last resort: any word+number, 4-digit postal
	// code and city. The street portion must still contain real letters.
	looseAddressRegex = regexp.MustCompile(`([A-Za-zæøåÆØÅ\s]+\d+[A-Za-z]?),?\s*(\d{4})\s+([A-Za-zæøåÆØÅ]+)`)

	lettersRunRegex       = regexp.MustCompile(`[A-Za-zæøåÆØÅ]{3,}`)
	domainOnlyRegex       = regexp.MustCompile(`(?i)^[a-z0-9]+\.(com|dk|net|no)$`)
	emailFragmentRegex    = regexp.MustCompile(`(?i)@[^\s]+`)
	tldFragmentRegex      = regexp.MustCompile(`(?i)\.(com|dk|net|no)[\s]*`)
	leadingNoiseRegex     = regexp.MustCompile(`^[\d\s]+`)
	leadingTokenNoiseRe   = regexp.MustCompile(`(?i)^[a-z0-9@.]+[\s]+`)
	phoneShapeStrictRegex = regexp.MustCompile(`^\+?\d{2}[\s-]?\d{2}[\s-]?\d{2}[\s-]?\d{2}[\s-]?\d{2}$`)
	nonDigitRegex         = regexp.MustCompile(`[\s\-+()]`)
)

// Address recovers a street address. Rules, in order: a labeled address line
// (cleaned of email noise and accepted only when something street-like
// remains), a street-keyword pattern, then a loose number+postal+city pattern
// that rejects phone-shaped street portions. Nothing passing the acceptance
// gate yields "", since an empty address beats a false positive.
func Address(body string) string {
	for _, re := range addressLabelRegexes {
		m := re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		if addr := cleanLabeledAddress(m[1]); addr != "" {
			return addr
		}
	}

	if m := streetRegex.FindStringSubmatch(body); len(m) == 4 {
		return strings.TrimSpace(strings.TrimSpace(m[1]) + ", " + m[2] + " " + strings.TrimSpace(m[3]))
	}

	if m := looseAddressRegex.FindStringSubmatch(body); len(m) == 4 {
		street := strings.TrimSpace(m[1])
		if !isPhoneShaped(street) && lettersRunRegex.MatchString(street) {
			return strings.TrimSpace(street + ", " + m[2] + " " + strings.TrimSpace(m[3]))
		}
	}

	return ""
}

func cleanLabeledAddress(raw string) string {
	addr := strings.TrimSpace(raw)
	hadEmail := strings.Contains(addr, "@")
	addr = emailFragmentRegex.ReplaceAllString(addr, "")
	addr = tldFragmentRegex.ReplaceAllString(addr, "")
	addr = strings.TrimSpace(addr)

	if addr == "" || isPhoneShaped(addr) || len(addr) <= 5 || domainOnlyRegex.MatchString(addr) {
		return ""
	}

	addr = leadingNoiseRegex.ReplaceAllString(addr, "")
	if hadEmail {
		// The local part of a stripped email address can survive as a bare
		// leading token ("jane Ahornvej 1"). Drop it.
		addr = leadingTokenNoiseRe.ReplaceAllString(addr, "")
	}
	addr = strings.TrimSpace(addr)
	if len(addr) <= 5 {
		return ""
	}
	return addr
}

// isPhoneShaped reports whether text is digit-dominant enough to be a phone
// number rather than a street.
func isPhoneShaped(text string) bool {
	digitsOnly := nonDigitRegex.ReplaceAllString(text, "")
	if len(digitsOnly) >= 8 && isAllDigits(digitsOnly) {
		return true
	}
	return phoneShapeStrictRegex.MatchString(strings.TrimSpace(text))
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
