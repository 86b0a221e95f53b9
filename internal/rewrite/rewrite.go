package rewrite

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"edgerelay/internal/core"
)

// SegmentsGlobal is the well-known browser global the injected script block
// assigns the serialized segments to.
const SegmentsGlobal = "window.__edgeSegments"

// injectionMarker tags the injected script block so a second pass over
// already-rewritten output never double-injects.
const injectionMarker = `data-edge-segments="1"`

var (
	// Resource-bearing attributes whose value starts protocol-relative.
	attrRe = regexp.MustCompile(`(?i)\b(src|href|poster|action)(\s*=\s*)(["'])//`)

	// srcset holds comma-separated candidates, each possibly
	// protocol-relative.
	srcsetRe = regexp.MustCompile(`(?i)\b(srcset)(\s*=\s*)(["'])([^"']*)(["'])`)

	// CSS url() and @import occurrences, inline or in <style> blocks.
	cssURLRe    = regexp.MustCompile(`(?i)\burl\(\s*(['"]?)//`)
	cssImportRe = regexp.MustCompile(`(?i)@import\s+(['"])//`)
)

// Rewrite injects the segments script block and fixes protocol-relative
// resource references so they keep loading from the original origin instead
// of being misrouted through the relay. Running Rewrite on its own output is
// a no-op: the injection is marker-guarded and rewritten URLs no longer match
// the protocol-relative patterns.
func Rewrite(html string, base Context, segs core.Segments) string {
	out := rewriteProtocolRelative(html, base.Scheme)
	return inject(out, segs)
}

// rewriteProtocolRelative prefixes "//host/..." references with the base
// scheme. Absolute URLs, fragment links and javascript:/data: URIs never
// match the patterns, so they are untouched by construction.
func rewriteProtocolRelative(html, scheme string) string {
	out := attrRe.ReplaceAllString(html, "${1}${2}${3}"+scheme+"://")
	out = cssURLRe.ReplaceAllString(out, "url(${1}"+scheme+"://")
	out = cssImportRe.ReplaceAllString(out, "@import ${1}"+scheme+"://")

	out = srcsetRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := srcsetRe.FindStringSubmatch(m)
		candidates := strings.Split(sub[4], ",")
		for i, c := range candidates {
			trimmed := strings.TrimLeft(c, " \t\n")
			if strings.HasPrefix(trimmed, "//") {
				indent := c[:len(c)-len(trimmed)]
				candidates[i] = indent + scheme + ":" + trimmed
			}
		}
		return sub[1] + sub[2] + sub[3] + strings.Join(candidates, ",") + sub[5]
	})

	return out
}

// inject inserts the segments script block at the document's head insertion
// point. The serialized object always contains the global slot, even when
// empty, so page consumers can rely on its presence.
func inject(html string, segs core.Segments) string {
	if strings.Contains(html, injectionMarker) {
		return html
	}

	payload, err := json.Marshal(segs.Normalize())
	if err != nil {
		// Segments are plain string maps; this cannot normally fail.
		slog.Warn("failed to serialize segments for injection", "error", err)
		payload = []byte(`{"` + core.GlobalSlot + `":[]}`)
	}

	block := `<script ` + injectionMarker + `>` + SegmentsGlobal + ` = ` + string(payload) + `;</script>`
	at := insertionPoint(html)
	return html[:at] + block + html[at:]
}

// insertionPoint picks exactly one offset for the injected block, in priority
// order: inside an existing <head>, after <html>, after the doctype
// declaration, else the start of the document. This guarantees injected
// content always precedes body content.
func insertionPoint(html string) int {
	if at := afterTag(html, "<head"); at >= 0 {
		return at
	}
	if at := afterTag(html, "<html"); at >= 0 {
		return at
	}
	if at := afterTag(html, "<!doctype"); at >= 0 {
		return at
	}
	return 0
}

// afterTag returns the offset just past the closing ">" of the first
// case-insensitive occurrence of prefix, or -1. The character after the
// prefix must terminate the tag name, so "<head" does not match "<header>".
func afterTag(html, prefix string) int {
	lower := strings.ToLower(html)
	from := 0
	for {
		i := strings.Index(lower[from:], prefix)
		if i < 0 {
			return -1
		}
		i += from

		rest := i + len(prefix)
		if rest < len(lower) {
			c := lower[rest]
			if c != '>' && c != ' ' && c != '\t' && c != '\n' && c != '\r' {
				from = rest
				continue
			}
		}

		end := strings.IndexByte(html[i:], '>')
		if end < 0 {
			return -1
		}
		return i + end + 1
	}
}
