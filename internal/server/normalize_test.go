package server

import "testing"

func TestNormalizeTarget(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"AlreadyAbsolute", "https://example.com/a", "https://example.com/a"},
		{"CollapsedScheme", "https:/example.com/a", "https://example.com/a"},
		{"CollapsedHTTP", "http:/example.com/a", "http://example.com/a"},
		{"ProtocolRelative", "//example.com/a", "https://example.com/a"},
		{"SchemeLess", "example.com/a", "https://example.com/a"},
		{"WhitespaceTrimmed", "  https://example.com/a ", "https://example.com/a"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeTarget(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("NormalizeTarget(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}

	t.Run("EmptyRejected", func(t *testing.T) {
		if _, err := NormalizeTarget("   "); err == nil {
			t.Fatal("expected error for empty target")
		}
	})
}
