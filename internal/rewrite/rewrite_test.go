package rewrite

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgerelay/internal/core"
)

func htmlBase(t *testing.T) Context {
	t.Helper()
	u, err := url.Parse("https://example.com/")
	require.NoError(t, err)
	return NewContext(u)
}

func TestRewriteInjection(t *testing.T) {
	segs := core.Segments{core.GlobalSlot: {"IAB1"}}

	t.Run("InsideHead", func(t *testing.T) {
		html := `<!DOCTYPE html><html><head><title>t</title></head><body></body></html>`
		out := Rewrite(html, htmlBase(t), segs)

		assert.Contains(t, out, SegmentsGlobal+` = {"global":["IAB1"]};`)
		// Injected immediately after the opening head tag.
		assert.True(t, strings.Index(out, "<script") > strings.Index(out, "<head"))
		assert.True(t, strings.Index(out, "<script") < strings.Index(out, "<title"))
	})

	t.Run("HeadWithAttributes", func(t *testing.T) {
		html := `<html><head lang="en"><title>t</title></head></html>`
		out := Rewrite(html, htmlBase(t), segs)
		assert.True(t, strings.Index(out, "<script") > strings.Index(out, `lang="en"`))
	})

	t.Run("AfterHTMLWhenNoHead", func(t *testing.T) {
		html := `<html><body>hi</body></html>`
		out := Rewrite(html, htmlBase(t), segs)
		assert.True(t, strings.HasPrefix(out, `<html><script`))
	})

	t.Run("AfterDoctypeWhenNoHTMLTag", func(t *testing.T) {
		html := `<!DOCTYPE html><p>bare</p>`
		out := Rewrite(html, htmlBase(t), segs)
		assert.True(t, strings.HasPrefix(out, `<!DOCTYPE html><script`))
	})

	t.Run("PrependAsLastResort", func(t *testing.T) {
		html := `<p>fragment</p>`
		out := Rewrite(html, htmlBase(t), segs)
		assert.True(t, strings.HasPrefix(out, `<script`))
	})

	t.Run("HeaderTagIsNotHead", func(t *testing.T) {
		html := `<html><body><header>x</header></body></html>`
		out := Rewrite(html, htmlBase(t), segs)
		// Must pick the <html> insertion point, not the <header> element.
		assert.True(t, strings.HasPrefix(out, `<html><script`))
	})

	t.Run("EmptySegmentsStillInjected", func(t *testing.T) {
		html := `<html><head></head></html>`
		out := Rewrite(html, htmlBase(t), core.NewSegments())
		assert.Contains(t, out, `{"global":[]}`)
	})

	t.Run("NilSegmentsStillInjected", func(t *testing.T) {
		html := `<html><head></head></html>`
		out := Rewrite(html, htmlBase(t), nil)
		assert.Contains(t, out, `{"global":[]}`)
	})
}

func TestRewriteProtocolRelative(t *testing.T) {
	base := htmlBase(t)

	t.Run("CommonAttributes", func(t *testing.T) {
		html := `<img src="//cdn.example.net/a.png"><a href='//example.org/x'>x</a>` +
			`<video poster="//cdn.example.net/p.jpg"></video><form action="//example.com/post">`
		out := Rewrite(html, base, nil)

		assert.Contains(t, out, `src="https://cdn.example.net/a.png"`)
		assert.Contains(t, out, `href='https://example.org/x'`)
		assert.Contains(t, out, `poster="https://cdn.example.net/p.jpg"`)
		assert.Contains(t, out, `action="https://example.com/post"`)
	})

	t.Run("Srcset", func(t *testing.T) {
		html := `<img srcset="//cdn.example.net/a.png 1x, //cdn.example.net/b.png 2x">`
		out := Rewrite(html, base, nil)
		assert.Contains(t, out, `srcset="https://cdn.example.net/a.png 1x, https://cdn.example.net/b.png 2x"`)
	})

	t.Run("CSSURLAndImport", func(t *testing.T) {
		html := `<style>body{background:url(//cdn.example.net/bg.png)}` +
			`@import "//cdn.example.net/theme.css";</style>`
		out := Rewrite(html, base, nil)
		assert.Contains(t, out, `url(https://cdn.example.net/bg.png)`)
		assert.Contains(t, out, `@import "https://cdn.example.net/theme.css"`)
	})

	t.Run("AbsoluteAndSpecialUntouched", func(t *testing.T) {
		html := `<a href="https://other.example/x">a</a>` +
			`<a href="#frag">f</a>` +
			`<a href="javascript:void(0)">j</a>` +
			`<img src="data:image/png;base64,AAAA">`
		out := Rewrite(html, base, nil)

		assert.Contains(t, out, `href="https://other.example/x"`)
		assert.Contains(t, out, `href="#frag"`)
		assert.Contains(t, out, `href="javascript:void(0)"`)
		assert.Contains(t, out, `src="data:image/png;base64,AAAA"`)
	})

	t.Run("BaseSchemeRespected", func(t *testing.T) {
		u, err := url.Parse("http://plain.example.com/")
		require.NoError(t, err)
		out := Rewrite(`<img src="//cdn.example.net/a.png">`, NewContext(u), nil)
		assert.Contains(t, out, `src="http://cdn.example.net/a.png"`)
	})
}

func TestRewriteIdempotence(t *testing.T) {
	html := `<!DOCTYPE html><html><head><title>t</title></head><body>` +
		`<img src="//cdn.example.net/a.png">` +
		`<img srcset="//cdn.example.net/a.png 1x, //cdn.example.net/b.png 2x">` +
		`<style>body{background:url(//cdn.example.net/bg.png)}</style>` +
		`</body></html>`
	segs := core.Segments{core.GlobalSlot: {"IAB1", "IAB3"}}
	base := htmlBase(t)

	once := Rewrite(html, base, segs)
	twice := Rewrite(once, base, segs)

	assert.Equal(t, once, twice, "second rewrite pass must be byte-identical")
	assert.Equal(t, 1, strings.Count(twice, SegmentsGlobal), "segments block must not be duplicated")
}
