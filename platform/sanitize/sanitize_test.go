package sanitize

import "testing"

func TestText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  called back  ", "called back"},
		{"<b>hot</b> lead", "hot lead"},
		{"&lt;script&gt;alert(1)&lt;/script&gt;ok", "alert(1)ok"},
		{"fish &amp; chips", "fish & chips"},
		{"2 < 3", "2 < 3"},
	}
	for _, tc := range cases {
		if got := Text(tc.in); got != tc.want {
			t.Errorf("Text(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestOptional(t *testing.T) {
	if Optional(nil) != nil {
		t.Fatal("expected nil for nil input")
	}
	blank := " <br/> "
	if Optional(&blank) != nil {
		t.Fatal("expected nil when nothing is left")
	}
	note := " <i>follow up</i> "
	got := Optional(&note)
	if got == nil || *got != "follow up" {
		t.Fatalf("unexpected result %v", got)
	}
}
