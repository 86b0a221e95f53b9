package core

import (
	"net/url"
	"testing"
	"time"
)

func TestSegments(t *testing.T) {
	t.Run("NewSegmentsHasGlobalSlot", func(t *testing.T) {
		s := NewSegments()
		if _, ok := s[GlobalSlot]; !ok {
			t.Fatal("expected global slot to be present")
		}
		if !s.Empty() {
			t.Error("new segments should be empty")
		}
	})

	t.Run("EmptyIgnoresSlotCount", func(t *testing.T) {
		s := Segments{GlobalSlot: {}, "slot-1": {}}
		if !s.Empty() {
			t.Error("segments with only empty slots should report empty")
		}

		s["slot-1"] = []string{"IAB1"}
		if s.Empty() {
			t.Error("segments with a label should not report empty")
		}
	})

	t.Run("NormalizeRestoresGlobal", func(t *testing.T) {
		s := Segments{"slot-1": {"IAB2"}}.Normalize()
		if _, ok := s[GlobalSlot]; !ok {
			t.Error("normalize should add the global slot")
		}

		var nilSegs Segments
		if got := nilSegs.Normalize(); got == nil || !got.Empty() {
			t.Error("normalizing nil should yield empty segments with global slot")
		}
	})
}

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want CanonicalURL
	}{
		{"StripsQuery", "https://example.com/page?utm=1&x=2", "https://example.com/page"},
		{"StripsFragment", "https://example.com/page#top", "https://example.com/page"},
		{"LowercasesHost", "https://EXAMPLE.com/Page", "https://example.com/Page"},
		{"EmptyPathBecomesRoot", "https://example.com", "https://example.com/"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u, err := url.Parse(tc.in)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got := Canonicalize(u); got != tc.want {
				t.Errorf("Canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestValidatorsEmpty(t *testing.T) {
	if !(Validators{}).Empty() {
		t.Error("zero validators should be empty")
	}
	if (Validators{ETag: `"abc"`}).Empty() {
		t.Error("etag-only validators should not be empty")
	}
	if (Validators{LastModified: "Mon, 02 Jan 2006 15:04:05 GMT"}).Empty() {
		t.Error("last-modified-only validators should not be empty")
	}
}

func TestAge(t *testing.T) {
	now := time.Now()
	if got := Age(now.Add(-90*time.Second), now); got != 90 {
		t.Errorf("expected age 90, got %d", got)
	}
	if got := Age(now.Add(time.Minute), now); got != 0 {
		t.Errorf("future timestamps should clamp to 0, got %d", got)
	}
}
