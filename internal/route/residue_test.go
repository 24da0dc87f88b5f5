package route

import "testing"

func TestStripAuthResidue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    string
		changed bool
	}{
		{"both", "http://h/settings?code=abc&state=xyz", "http://h/settings", true},
		{"keeps others in order", "http://h/?z=1&code=abc&a=2&state=xyz&m=%20", "http://h/?z=1&a=2&m=%20", true},
		{"only code", "http://h/?code=abc&x=1", "http://h/?code=abc&x=1", false},
		{"only state", "http://h/?state=xyz", "http://h/?state=xyz", false},
		{"neither", "http://h/?x=1", "http://h/?x=1", false},
		{"no query", "http://h/", "http://h/", false},
		{"escaped keys", "http://h/?c%6Fde=1&st%61te=2&k=v", "http://h/?k=v", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := StripAuthResidue(mustParse(t, tt.raw))
			if got.String() != tt.want {
				t.Errorf("StripAuthResidue(%q) = %q, want %q", tt.raw, got.String(), tt.want)
			}
			if changed != tt.changed {
				t.Errorf("changed = %v, want %v", changed, tt.changed)
			}
		})
	}
}

func TestStripAuthResidue_Idempotent(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"http://h/settings?code=abc&state=xyz&keep=1",
		"http://h/?code=abc",
		"http://h/",
	} {
		once, _ := StripAuthResidue(mustParse(t, raw))
		twice, changed := StripAuthResidue(once)
		if once.String() != twice.String() {
			t.Errorf("%q: once=%q twice=%q", raw, once, twice)
		}
		if changed {
			t.Errorf("%q: second pass reported a change", raw)
		}
	}
}

func TestStripAuthResidue_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	u := mustParse(t, "http://h/?code=abc&state=xyz")
	StripAuthResidue(u)
	if u.RawQuery != "code=abc&state=xyz" {
		t.Fatalf("input mutated: %q", u.RawQuery)
	}
}
