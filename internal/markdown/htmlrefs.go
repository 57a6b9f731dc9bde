package markdown

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// scanHTML extracts references from inline HTML: <a href> becomes a link
// reference and <img src> an image reference. Code regions are masked first
// so tags inside fences or code spans are not reported.
func scanHTML(source []byte, file string) []Reference {
	masked := strings.Join(maskedLines(source), "\n")

	z := html.NewTokenizer(strings.NewReader(masked))
	line := 1
	var refs []Reference

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := append([]byte(nil), z.Raw()...)

		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			tok := z.Token()
			switch tok.Data {
			case "a":
				if href := attrValue(tok, "href"); href != "" {
					refs = append(refs, Reference{Kind: KindLink, Target: href, Line: line, File: file})
				}
			case "img":
				if src := attrValue(tok, "src"); src != "" {
					refs = append(refs, Reference{Kind: KindImage, Text: attrValue(tok, "alt"), Target: src, Line: line, File: file})
				}
			}
		}

		line += bytes.Count(raw, []byte{'\n'})
	}

	return refs
}

func attrValue(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
