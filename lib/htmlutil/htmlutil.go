package htmlutil

import (
	"bytes"
	"strings"
	"unicode"

	"corossync/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// LooksLikeHtml reports whether a response body is an html document rather than
// the data it was supposed to be.
func LooksLikeHtml(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	return bytes.HasPrefix(bytes.TrimSpace(body), []byte("<"))
}

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// Summarize describes an html page in one line: its title, or the start of its
// visible text when it has none. It returns "" when nothing readable is found.
func Summarize(body []byte, max int) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	title := removeNonPrintable(textutil.CollapseSpaces(doc.Find("title").First().Text()))
	if title != "" {
		return truncate(title, max)
	}

	doc.Find("script, style, noscript").Remove()
	text := removeNonPrintable(textutil.CollapseSpaces(doc.Find("body").Text()))
	return truncate(text, max)
}
