package htmltext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMentions(t *testing.T) {
	html := `<p>Hey <span data-type="mention" data-id="carol@example.com" data-label="Carol Danvers"></span>` +
		` and <span data-type="mention" data-id="dave@example.com"></span>, see attached.</p>`

	mentions := ExtractMentions(html)
	assert.Equal(t, []Mention{
		{Email: "carol@example.com", FullName: "Carol Danvers"},
		{Email: "dave@example.com"},
	}, mentions)
}

func TestExtractMentions_IgnoresNonMentionSpans(t *testing.T) {
	html := `<p><span data-type="highlight" data-id="x">bold claim</span>` +
		`<span data-type="mention" data-id="">anonymous</span></p>`
	assert.Empty(t, ExtractMentions(html))
}

func TestExtractMentions_EmptyAndMalformedInput(t *testing.T) {
	assert.Nil(t, ExtractMentions(""))
	assert.Empty(t, ExtractMentions(`<p>plain text, no mentions`))
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "spoke with them today", StripTags("<p>spoke with <b>them</b> today</p>"))
	assert.Equal(t, "", StripTags(""))
	assert.Equal(t, "plain", StripTags("plain"))
}

func TestSnippet_TruncatesOnRunes(t *testing.T) {
	short := Snippet("<p>quick note</p>", 140)
	assert.Equal(t, "quick note", short)

	long := Snippet("<p>"+strings.Repeat("a", 200)+"</p>", 140)
	assert.Len(t, []rune(long), 140)
	assert.True(t, strings.HasSuffix(long, "..."))

	wide := Snippet(strings.Repeat("ü", 10), 8)
	assert.Equal(t, strings.Repeat("ü", 5)+"...", wide)
}

func TestSnippet_TinyMaxLen(t *testing.T) {
	assert.Equal(t, "", Snippet("hello", 0))
	assert.Equal(t, "", Snippet("hello", -1))
	assert.Equal(t, "he", Snippet("hello", 2))
	assert.Equal(t, "hel", Snippet("hello", 3))
	assert.Equal(t, "hi", Snippet("hi", 2))
}
