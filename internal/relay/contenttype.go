// Package relay provides the fetch orchestrator: the state machine spanning
// the document cache, the origin fetcher, the classification client and
// cache, and the rewrite pipeline.
package relay

import (
	"net/url"
	"path"
	"strings"
)

// resourceExts are file extensions that identify non-document resources.
// Checked before any cache work so resource requests never waste cache
// lookups or classification calls.
var resourceExts = map[string]struct{}{
	".avif": {}, ".bmp": {}, ".css": {}, ".eot": {}, ".gif": {},
	".ico": {}, ".jpeg": {}, ".jpg": {}, ".js": {}, ".json": {},
	".map": {}, ".mjs": {}, ".mp3": {}, ".mp4": {}, ".otf": {},
	".pdf": {}, ".png": {}, ".svg": {}, ".ttf": {}, ".wasm": {},
	".webm": {}, ".webp": {}, ".woff": {}, ".woff2": {}, ".xml": {},
}

// looksLikeResource reports whether the URL path has a resource-like
// extension.
func looksLikeResource(u *url.URL) bool {
	ext := strings.ToLower(path.Ext(u.Path))
	_, ok := resourceExts[ext]
	return ok
}

// isHTML reports whether a response content type is a rewritable document.
// An absent content type is treated as HTML: origins that omit it are almost
// always serving pages, and rewriting is harmless for text.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}
