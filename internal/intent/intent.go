// Package intent classifies inbound chat messages into coarse intents. The
// intent only scopes which rule subset a turn loads; it never gates or
// bypasses quote compliance validation.
package intent

import "strings"

type Intent string

const (
	LeadProcessing     Intent = "LeadProcessing"
	Booking            Intent = "Booking"
	QuoteGeneration    Intent = "QuoteGeneration"
	ConflictResolution Intent = "ConflictResolution"
	FollowUp           Intent = "FollowUp"
	CalendarQuery      Intent = "CalendarQuery"
	General            Intent = "General"
	Unknown            Intent = "Unknown"
)

// Result is the classification outcome for one message.
type Result struct {
	Intent          Intent   `json:"intent"`
	Confidence      float64  `json:"confidence"`
	MatchedKeywords []string `json:"matchedKeywords"`
}

var (
	leadKeywords     = []string{"lead", "ny kunde", "henvendelse", "kundeemne", "new customer"}
	bookingKeywords  = []string{"book", "booking", "aftale", "appointment", "planlæg", "schedule"}
	quoteKeywords    = []string{"tilbud", "pris", "koster", "quote", "price", "estimat"}
	conflictKeywords = []string{"klage", "utilfreds", "problem", "fejl", "complaint", "refund"}
	followUpKeywords = []string{"opfølgning", "follow up", "status på", "rykker", "reminder"}
	calendarKeywords = []string{"kalender", "ledig", "calendar", "availability", "optaget"}
)

// Classify runs a keyword vote over the message. When several groups match,
// the winner follows a fixed business-priority order: a message about both a
// lead and a price means "generate a quote", not "process a lead". The
// returned keywords are the union from the groups behind the decision.
func Classify(message string) Result {
	lowered := strings.ToLower(message)

	lead := matchedIn(lowered, leadKeywords)
	booking := matchedIn(lowered, bookingKeywords)
	quote := matchedIn(lowered, quoteKeywords)
	conflict := matchedIn(lowered, conflictKeywords)
	followUp := matchedIn(lowered, followUpKeywords)
	calendar := matchedIn(lowered, calendarKeywords)

	switch {
	case len(lead) > 0 && len(quote) > 0:
		return Result{Intent: QuoteGeneration, Confidence: 0.9, MatchedKeywords: union(lead, quote)}
	case len(quote) > 0:
		return Result{Intent: QuoteGeneration, Confidence: 0.85, MatchedKeywords: union(quote)}
	case len(booking) > 0:
		return Result{Intent: Booking, Confidence: 0.8, MatchedKeywords: union(booking)}
	case len(conflict) > 0:
		return Result{Intent: ConflictResolution, Confidence: 0.75, MatchedKeywords: union(conflict)}
	case len(followUp) > 0:
		return Result{Intent: FollowUp, Confidence: 0.7, MatchedKeywords: union(followUp)}
	case len(lead) > 0:
		return Result{Intent: LeadProcessing, Confidence: 0.65, MatchedKeywords: union(lead)}
	case len(calendar) > 0:
		return Result{Intent: CalendarQuery, Confidence: 0.6, MatchedKeywords: union(calendar)}
	default:
		return Result{Intent: General, Confidence: 0.5, MatchedKeywords: []string{}}
	}
}

func matchedIn(lowered string, keywords []string) []string {
	var hits []string
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}

// union concatenates keyword lists preserving order, dropping duplicates.
func union(groups ...[]string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, group := range groups {
		for _, kw := range group {
			if _, ok := seen[kw]; ok {
				continue
			}
			seen[kw] = struct{}{}
			out = append(out, kw)
		}
	}
	return out
}
