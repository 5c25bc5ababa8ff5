// Package htmltext extracts structured data from comment HTML.
//
// Comments are authored in a rich-text editor that encodes user mentions as
// <span data-type="mention" data-id="<email>" data-label="<name>"> elements.
package htmltext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Mention is a user mention found in comment HTML
type Mention struct {
	Email    string
	FullName string
}

// ExtractMentions returns the mentions encoded in the given HTML fragment.
// Malformed HTML yields no mentions rather than an error.
func ExtractMentions(html string) []Mention {
	if html == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var mentions []Mention
	doc.Find(`span[data-type="mention"]`).Each(func(_ int, s *goquery.Selection) {
		email, ok := s.Attr("data-id")
		if !ok || email == "" {
			return
		}
		mentions = append(mentions, Mention{
			Email:    email,
			FullName: s.AttrOr("data-label", ""),
		})
	})
	return mentions
}

// StripTags returns the plain text content of an HTML fragment.
func StripTags(html string) string {
	if html == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.TrimSpace(doc.Text())
}

// Snippet strips tags and truncates the text to at most maxLen runes,
// appending an ellipsis when truncated.
func Snippet(html string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	text := StripTags(html)
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
