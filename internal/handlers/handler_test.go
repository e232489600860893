package handlers

import "testing"

func TestSanitizeUsername(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  alice  ", "alice"},
		{"bob\x00smith", "bobsmith"},
		{"tab\there", "tabhere"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := sanitizeUsername(tc.in); got != tc.want {
			t.Errorf("sanitizeUsername(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	if got := sanitizeUsername(string(long)); len(got) != 80 {
		t.Errorf("expected 80-char cap, got %d chars", len(got))
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "user.name+tag@example.com", "x_y@sub.domain.org"}
	for _, e := range valid {
		if !isValidEmail(e) {
			t.Errorf("expected %q to be valid", e)
		}
	}

	invalid := []string{"", "plain", "@no-local.com", "no-domain@", "a@b", "spaces in@example.com"}
	for _, e := range invalid {
		if isValidEmail(e) {
			t.Errorf("expected %q to be invalid", e)
		}
	}
}
