package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// areaRules: labeled size line first, then any bare number with an area unit.
var areaRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:bolig|størrelse|areal|size)\s*[:\s]+(\d+)\s*(?:m²|m2|kvm|kvadratmeter)`),
	regexp.MustCompile(`(?i)(\d+)\s*(?:m²|m2|kvm|kvadratmeter)`),
}

// AreaSqm recovers the property size in square meters; absence yields 0.
func AreaSqm(body string) int {
	for _, re := range areaRules {
		if m := re.FindStringSubmatch(body); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				return n
			}
		}
	}
	return 0
}

// propertyTypeRules maps a keyword pattern to the canonical property type.
// Order matters: "rækkehus" must be checked before the bare "hus" pattern it
// contains.
var propertyTypeRules = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`(?i)villa`), "Villa"},
	{regexp.MustCompile(`(?i)lejlighed|apartment`), "Lejlighed"},
	{regexp.MustCompile(`(?i)rækkehus|townhouse`), "Rækkehus"},
	{regexp.MustCompile(`(?i)hus|house`), "Hus"},
}

// PropertyType recovers the dwelling type keyword; absence yields "Ukendt".
func PropertyType(body string) string {
	for _, rule := range propertyTypeRules {
		if rule.re.MatchString(body) {
			return rule.label
		}
	}
	return "Ukendt"
}

var roomsRegex = regexp.MustCompile(`(?i)(\d+)\s*(?:rum|værelser|rooms)`)

// Rooms recovers the room count; absence yields nil.
func Rooms(body string) *int {
	if m := roomsRegex.FindStringSubmatch(body); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return &n
		}
	}
	return nil
}

// serviceTypeRules is the cascade that classifies the requested service.
// Order is significant: recurring terms are checked before move terms, so a
// body mentioning both "ugentlig" and "flytning" classifies as recurring.
var serviceTypeRules = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`(?i)fast rengøring|ugentlig|hver uge|weekly`), "Fast"},
	{regexp.MustCompile(`(?i)flytterengøring|flytter|flytning|move`), "Flytterengøring"},
	{regexp.MustCompile(`(?i)hovedrengøring|grundig|deep clean`), "Hovedrengøring"},
}

// ServiceType classifies the requested service; anything unmatched is a
// one-off job ("Engangsopgave").
func ServiceType(body string) string {
	lowered := strings.ToLower(body)
	for _, rule := range serviceTypeRules {
		if rule.re.MatchString(lowered) {
			return rule.label
		}
	}
	return "Engangsopgave"
}
