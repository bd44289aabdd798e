package intent

import (
	"reflect"
	"testing"
)

func TestClassify_PriorityOrder(t *testing.T) {
	cases := []struct {
		name    string
		message string
		want    Intent
	}{
		{"quote beats booking", "Can you book a viewing and also send a quote?", QuoteGeneration},
		{"lead plus quote is quote", "Ny kunde spørger hvad det koster", QuoteGeneration},
		{"booking alone", "Jeg vil gerne booke en aftale", Booking},
		{"conflict before follow-up", "Jeg har en klage og venter stadig på opfølgning", ConflictResolution},
		{"follow-up", "Hvad er status på min henven... opfølgning tak", FollowUp},
		{"lead alone", "Der er kommet en ny kunde ind", LeadProcessing},
		{"calendar", "Er I ledig på tirsdag?", CalendarQuery},
		{"default", "Hej, tak for sidst", General},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.message)
			if got.Intent != tc.want {
				t.Fatalf("Classify(%q) = %q, want %q", tc.message, got.Intent, tc.want)
			}
		})
	}
}

func TestClassify_Confidence(t *testing.T) {
	if got := Classify("ny kunde vil have et tilbud"); got.Confidence != 0.9 {
		t.Fatalf("lead+quote confidence = %v, want 0.9", got.Confidence)
	}
	if got := Classify("hej med dig"); got.Confidence != 0.5 {
		t.Fatalf("default confidence = %v, want 0.5", got.Confidence)
	}
}

func TestClassify_MatchedKeywordsUnion(t *testing.T) {
	got := Classify("Ny kunde, et lead faktisk, vil vide hvad prisen koster")

	if got.Intent != QuoteGeneration {
		t.Fatalf("Intent = %q, want QuoteGeneration", got.Intent)
	}
	want := []string{"lead", "ny kunde", "pris", "koster"}
	if !reflect.DeepEqual(got.MatchedKeywords, want) {
		t.Fatalf("MatchedKeywords = %v, want %v", got.MatchedKeywords, want)
	}
}

func TestClassify_GeneralHasNoKeywords(t *testing.T) {
	got := Classify("god weekend")
	if len(got.MatchedKeywords) != 0 {
		t.Fatalf("MatchedKeywords = %v, want empty", got.MatchedKeywords)
	}
}
