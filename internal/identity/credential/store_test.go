package credential

import "testing"

func TestNormalizeEmail(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{"ana@example.com", "ana@example.com"},
		{"  Ana@Example.COM ", "ana@example.com"},
		{"", ""},
	}
	for _, tc := range testCases {
		if got := NormalizeEmail(tc.in); got != tc.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	testCases := []struct {
		email string
		ok    bool
	}{
		{"ana@example.com", true},
		{"a.b+tag@sub.example.co", true},
		{"", false},
		{"not-an-email", false},
		{"ana@localhost", false},
		{"ana@@example.com", false},
	}
	for _, tc := range testCases {
		err := ValidateEmail(tc.email)
		if (err == nil) != tc.ok {
			t.Errorf("ValidateEmail(%q) err = %v, want ok=%v", tc.email, err, tc.ok)
		}
	}
}
