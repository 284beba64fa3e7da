package types

import "testing"

func TestValidPhone(t *testing.T) {
	cases := map[string]bool{
		"+1 (555) 010-2030": true,
		"0801234567":        true,
		"555-0102":          false,
		"":                  false,
		"0801234567x":       false,
		"08+01234567":       false,
	}
	for input, want := range cases {
		if got := ValidPhone(input); got != want {
			t.Fatalf("ValidPhone(%q) = %v, want %v", input, got, want)
		}
	}
	if n := PhoneDigits("+44 20 7946 0958"); n != 12 {
		t.Fatalf("expected 12 digits, got %d", n)
	}
}
