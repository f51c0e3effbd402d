// Package htmlstrip converts HTML email bodies to plain text.
package htmlstrip

import (
	"strings"

	"golang.org/x/net/html"
)

// discardContent lists elements whose text is never user-visible prose.
var discardContent = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"head":     true,
	"title":    true,
}

// blockLevel lists elements that imply a word break around their text.
var blockLevel = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "tr": true, "td": true, "th": true, "blockquote": true,
	"pre": true, "section": true, "article": true, "header": true,
	"footer": true, "hr": true,
}

// Text tokenizes the HTML and returns its visible text with whitespace
// collapsed to single spaces. Malformed HTML never fails; the tokenizer
// yields whatever text it can before the error token.
func Text(src string) string {
	tz := html.NewTokenizer(strings.NewReader(src))

	var sb strings.Builder
	discardDepth := 0
	pendingSpace := false

	flushWord := func(word string) {
		if word == "" {
			return
		}
		if pendingSpace && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(word)
		pendingSpace = false
	}

	for {
		switch tz.Next() {
		case html.ErrorToken:
			return sb.String()

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tz.TagName()
			tag := string(name)
			if discardContent[tag] {
				discardDepth++
			}
			if blockLevel[tag] {
				pendingSpace = true
			}

		case html.EndTagToken:
			name, _ := tz.TagName()
			tag := string(name)
			if discardContent[tag] && discardDepth > 0 {
				discardDepth--
			}
			if blockLevel[tag] {
				pendingSpace = true
			}

		case html.TextToken:
			text := string(tz.Text())
			if discardDepth > 0 {
				continue
			}
			// Whitespace at the node edges separates it from neighbours.
			if len(text) > 0 && isSpace(text[0]) {
				pendingSpace = true
			}
			for i, word := range strings.Fields(text) {
				if i > 0 {
					pendingSpace = true
				}
				flushWord(word)
			}
			if len(text) > 0 && isSpace(text[len(text)-1]) {
				pendingSpace = true
			}
		}
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}
