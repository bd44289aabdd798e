package extract

import (
	"regexp"
	"strings"
)

// priceRules: labeled price line first, then any bare amount with a currency
// unit ("2.500 kr", "2.094-2.792 kr").
var priceRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:pris|price)\s*[:\s]+([\d.,\-\s]+)\s*kr`),
	regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?(?:[-–]\d+(?:[.,]\d+)?)?)\s*kr`),
}

// PriceHint recovers verbatim price text from the thread, if any. The hint is
// informational only; pricing is always recomputed by the policy engine.
func PriceHint(body string) string {
	for _, re := range priceRules {
		if m := re.FindStringSubmatch(body); m != nil {
			return strings.TrimSpace(m[1]) + " kr"
		}
	}
	return ""
}
