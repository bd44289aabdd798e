package leads

import "testing"

func TestDetectSource(t *testing.T) {
	cases := []struct {
		name   string
		sender string
		body   string
		want   Source
	}{
		{"leadmail sender", "noreply@leadmail.no", "", SourceRengoringNu},
		{"leadmail subdomain", "kunde@leadmail.example", "", SourceRengoringNu},
		{"body marker", "ukendt@relay.example", "Dette lead kommer fra Rengøring.nu", SourceRengoringNu},
		{"leadpoint", "system@leadpoint.dk", "", SourceRengoringAarhus},
		{"adhelp", "leads@adhelp.dk", "", SourceAdHelp},
		{"customer direct", "jane@x.dk", "hej, jeg vil gerne have rengøring", SourceUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectSource(tc.sender, tc.body); got != tc.want {
				t.Fatalf("DetectSource(%q, %q) = %q, want %q", tc.sender, tc.body, got, tc.want)
			}
		})
	}
}
