// Package rewrite provides the URL resolver and the document
// rewrite/injection pipeline. Everything here is pure string transformation;
// no network or cache access.
package rewrite

import (
	"net/url"
	"path"
	"strings"
)

// Context is the base a relative reference is resolved against. It is built
// once per document and used only transiently during rewriting.
type Context struct {
	// Scheme is the base scheme, without the "://".
	Scheme string
	// Origin is scheme://host.
	Origin string
	// Dir is the directory portion of the base path, always starting and
	// ending with "/".
	Dir string
}

// NewContext derives a rewrite context from an absolute document URL.
func NewContext(u *url.URL) Context {
	dir := path.Dir(u.Path)
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return Context{
		Scheme: u.Scheme,
		Origin: u.Scheme + "://" + u.Host,
		Dir:    dir,
	}
}

// Resolve turns a possibly relative reference into an absolute URL against
// base. Fragment-only, javascript: and data: references pass through
// untouched, as do already-absolute URLs, which makes Resolve idempotent.
func Resolve(ref string, base Context) string {
	switch {
	case ref == "" ||
		strings.HasPrefix(ref, "#") ||
		strings.HasPrefix(ref, "javascript:") ||
		strings.HasPrefix(ref, "data:"):
		return ref

	case strings.HasPrefix(ref, "//"):
		return base.Scheme + ":" + ref

	case hasScheme(ref):
		return ref

	case strings.HasPrefix(ref, "/"):
		return base.Origin + ref

	default:
		return base.Origin + base.Dir + ref
	}
}

// hasScheme reports whether ref begins with a URL scheme ("name:"), per
// RFC 3986: ALPHA *( ALPHA / DIGIT / "+" / "-" / "." ) followed by ":".
func hasScheme(ref string) bool {
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c == ':':
			return i > 0
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return false
}
