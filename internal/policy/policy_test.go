package policy

import (
	"testing"

	"github.com/TekupDK/tekup-sub017/internal/leads"
)

func TestStrategy(t *testing.T) {
	engine := NewEngine(0)
	contact := leads.Contact{Name: "Jane Doe", Email: "jane@x.dk"}

	cases := []struct {
		source      leads.Source
		wantMode    leads.ReplyMode
		wantReplyTo string
	}{
		{leads.SourceRengoringNu, leads.ReplyNewThreadToCustomer, "jane@x.dk"},
		{leads.SourceAdHelp, leads.ReplyDirectToCustomer, "jane@x.dk"},
		{leads.SourceRengoringAarhus, leads.ReplyInThread, ""},
		{leads.SourceUnknown, leads.ReplyInThread, ""},
	}
	for _, tc := range cases {
		got := engine.Strategy(tc.source, contact)
		if got.Mode != tc.wantMode {
			t.Fatalf("Strategy(%q).Mode = %q, want %q", tc.source, got.Mode, tc.wantMode)
		}
		if got.ReplyTo != tc.wantReplyTo {
			t.Fatalf("Strategy(%q).ReplyTo = %q, want %q", tc.source, got.ReplyTo, tc.wantReplyTo)
		}
	}
}

func TestStrategy_NeverTheBrokerAddress(t *testing.T) {
	// The routing table only ever uses the customer's own address or stays
	// in-thread. A broker relay address has no way in.
	engine := NewEngine(0)
	got := engine.Strategy(leads.SourceRengoringNu, leads.Contact{Email: "jane@x.dk"})
	if got.ReplyTo != "jane@x.dk" {
		t.Fatalf("ReplyTo = %q, want the customer address", got.ReplyTo)
	}
}

func TestPrice_Bands(t *testing.T) {
	engine := NewEngine(349)

	cases := []struct {
		areaSqm   int
		wantHours int
		wantCrew  int
		wantMin   int
		wantMax   int
	}{
		{0, 2, 1, 698, 1047},
		{80, 2, 1, 698, 1047},
		{120, 3, 1, 1047, 1396},
		{150, 4, 1, 1396, 1745},
		{180, 4, 2, 2792, 3490},
		{250, 5, 2, 3490, 4188},
		{300, 6, 2, 4188, 4886},
	}
	for _, tc := range cases {
		got := engine.Price(tc.areaSqm)
		if got.EstimatedHours != tc.wantHours {
			t.Fatalf("Price(%d).EstimatedHours = %d, want %d", tc.areaSqm, got.EstimatedHours, tc.wantHours)
		}
		if got.CrewSize != tc.wantCrew {
			t.Fatalf("Price(%d).CrewSize = %d, want %d", tc.areaSqm, got.CrewSize, tc.wantCrew)
		}
		if got.MinPrice != tc.wantMin || got.MaxPrice != tc.wantMax {
			t.Fatalf("Price(%d) = %d-%d kr, want %d-%d kr", tc.areaSqm, got.MinPrice, got.MaxPrice, tc.wantMin, tc.wantMax)
		}
	}
}

func TestPrice_MinNeverExceedsMax(t *testing.T) {
	engine := NewEngine(349)
	for area := 0; area <= 600; area += 10 {
		got := engine.Price(area)
		if got.MinPrice > got.MaxPrice {
			t.Fatalf("Price(%d): min %d > max %d", area, got.MinPrice, got.MaxPrice)
		}
	}
}

func TestPrice_CrewRule(t *testing.T) {
	engine := NewEngine(349)
	if got := engine.Price(150); got.CrewSize != 1 {
		t.Fatalf("150 m² crew = %d, want 1", got.CrewSize)
	}
	if got := engine.Price(151); got.CrewSize != 2 {
		t.Fatalf("151 m² crew = %d, want 2", got.CrewSize)
	}
}

func TestApply(t *testing.T) {
	engine := NewEngine(349)
	lead := leads.Lead{
		Source:   leads.SourceRengoringNu,
		Contact:  leads.Contact{Name: "Jane Doe", Email: "jane@x.dk"},
		Property: leads.Property{AreaSqm: 180},
	}

	got := engine.Apply(lead)

	if got.Reply == nil || got.Reply.Mode != leads.ReplyNewThreadToCustomer {
		t.Fatalf("Apply did not set the reply strategy: %+v", got.Reply)
	}
	if got.Price == nil || got.Price.CrewSize != 2 {
		t.Fatalf("Apply did not set the price estimate: %+v", got.Price)
	}
	if got.Price.Formatted() != "2792-3490 kr (2 pers, 4-5t)" {
		t.Fatalf("Formatted = %q", got.Price.Formatted())
	}
}
