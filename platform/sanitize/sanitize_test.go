package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextStripsTagsAndKeepsLines(t *testing.T) {
	assert.Equal(t, "Day 1: Ubud\nDay 2: Kuta", Text("<b>Day 1: Ubud</b>\nDay 2: Kuta  "))
	assert.Equal(t, "hi", Text("&lt;b&gt;hi&lt;/b&gt;"))
	assert.NotContains(t, Text("&lt;script&gt;alert(1)&lt;/script&gt;"), "<script")
}

func TestTextKeepsComparisonSigns(t *testing.T) {
	assert.Equal(t, "a < b and c > d", Text("a < b and c > d"))
	assert.Equal(t, "Tom & Jerry's", Text("Tom & Jerry's"))
}

func TestLineCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "Acme Travels Pvt", Line("  Acme \t Travels\nPvt "))
}

func TestTextPtr(t *testing.T) {
	assert.Nil(t, TextPtr(nil))
	in := " <i>x</i> "
	assert.Equal(t, "x", *TextPtr(&in))
}

func TestRichTextKeepsFormatting(t *testing.T) {
	itinerary := "<h2>Day 1</h2><ul><li><b>Ubud</b> &amp; rice terraces</li></ul>"
	assert.Equal(t, itinerary, RichText(itinerary))

	img := RichText(`<img src="https://cdn.example.com/ubud.jpg">`)
	assert.Contains(t, img, `src="https://cdn.example.com/ubud.jpg"`)
}

func TestRichTextRemovesScripts(t *testing.T) {
	out := RichText(`<p onclick="steal()">Day 1</p><script>alert(1)</script><a href="javascript:alert(1)">x</a>`)
	assert.Contains(t, out, "Day 1")
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "javascript:")
}

func TestHTMLToText(t *testing.T) {
	got := HTMLToText("<h2>Day 1</h2><ul><li><b>Ubud</b> &amp; rice terraces</li><li>Kuta</li></ul>")
	assert.Equal(t, "Day 1\n- Ubud & rice terraces\n- Kuta", got)
}
