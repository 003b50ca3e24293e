package scrape

import (
	"bytes"
	"mime"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// noiseSelector matches elements whose text is never brand copy.
const noiseSelector = "script, style, nav, footer, header, noscript, iframe"

var blankRuns = regexp.MustCompile(`\n{3,}`)

// decodeBody converts body to UTF-8. A charset declared in the
// Content-Type header wins; otherwise the document is sniffed.
func decodeBody(body []byte, contentType string) []byte {
	enc, name := declaredEncoding(contentType)
	if enc == nil {
		var certain bool
		enc, name, certain = charset.DetermineEncoding(body, contentType)
		if !certain && utf8.Valid(body) {
			return body
		}
	}
	if enc == nil || name == "utf-8" {
		return body
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return out
}

func declaredEncoding(contentType string) (encoding.Encoding, string) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil || params["charset"] == "" {
		return nil, ""
	}
	enc, err := htmlindex.Get(params["charset"])
	if err != nil {
		return nil, ""
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		return nil, ""
	}
	return enc, name
}

// ExtractText returns the visible text of an HTML document, one stripped
// text node per line, with runs of blank lines collapsed.
func ExtractText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	doc.Find(noiseSelector).Remove()

	var lines []string
	for _, n := range doc.Nodes {
		collectText(n, &lines)
	}
	text := strings.Join(lines, "\n")
	return blankRuns.ReplaceAllString(text, "\n\n"), nil
}

func collectText(n *html.Node, lines *[]string) {
	if n.Type == html.TextNode {
		if s := strings.TrimSpace(n.Data); s != "" {
			*lines = append(*lines, s)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, lines)
	}
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
