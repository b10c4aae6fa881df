package phone

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, region, want string
	}{
		{"(650) 253-0000", "US", "+16502530000"},
		{"  +31 20 794 0000 ", "US", "+31207940000"},
		{"call after 5pm", "US", "call after 5pm"},
		{"   ", "US", ""},
		{"020 794 0000", "NL", "+31207940000"},
	}
	for _, tc := range cases {
		if got := normalize(tc.in, tc.region); got != tc.want {
			t.Errorf("normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeE164UsesDefaultRegion(t *testing.T) {
	if got := NormalizeE164("(650) 253-0000"); got != "+16502530000" {
		t.Fatalf("expected US default region, got %q", got)
	}
}
