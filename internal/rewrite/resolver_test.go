package rewrite

import (
	"net/url"
	"testing"
)

func testContext(t *testing.T, base string) Context {
	t.Helper()
	u, err := url.Parse(base)
	if err != nil {
		t.Fatalf("parse base: %v", err)
	}
	return NewContext(u)
}

func TestResolve(t *testing.T) {
	base := testContext(t, "https://example.com/blog/post.html")

	cases := []struct {
		name string
		ref  string
		want string
	}{
		{"AbsoluteUnchanged", "https://cdn.example.net/a.js", "https://cdn.example.net/a.js"},
		{"OtherSchemeUnchanged", "ftp://files.example.com/x", "ftp://files.example.com/x"},
		{"ProtocolRelative", "//cdn.example.net/a.js", "https://cdn.example.net/a.js"},
		{"RootRelative", "/assets/style.css", "https://example.com/assets/style.css"},
		{"Relative", "img/logo.png", "https://example.com/blog/img/logo.png"},
		{"FragmentUntouched", "#section-2", "#section-2"},
		{"JavascriptUntouched", "javascript:void(0)", "javascript:void(0)"},
		{"DataUntouched", "data:image/png;base64,iVBOR", "data:image/png;base64,iVBOR"},
		{"EmptyUntouched", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(tc.ref, base); got != tc.want {
				t.Errorf("Resolve(%q) = %q, want %q", tc.ref, got, tc.want)
			}
		})
	}
}

func TestResolveIdempotent(t *testing.T) {
	base := testContext(t, "http://example.com/dir/page")
	refs := []string{"//cdn.example.net/a.js", "/root.css", "rel/img.png", "#frag"}

	for _, ref := range refs {
		once := Resolve(ref, base)
		if twice := Resolve(once, base); twice != once {
			t.Errorf("Resolve not idempotent for %q: %q -> %q", ref, once, twice)
		}
	}
}

func TestNewContext(t *testing.T) {
	t.Run("RootDocument", func(t *testing.T) {
		c := testContext(t, "https://example.com/")
		if c.Origin != "https://example.com" || c.Dir != "/" {
			t.Errorf("unexpected context %+v", c)
		}
	})

	t.Run("NestedDocument", func(t *testing.T) {
		c := testContext(t, "https://example.com/a/b/page.html")
		if c.Dir != "/a/b/" {
			t.Errorf("expected dir /a/b/, got %q", c.Dir)
		}
	})
}
