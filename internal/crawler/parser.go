package crawler

import (
	"bytes"
	"mime"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// normalizeFlags is the purell normalization applied to every link so
// that equivalent spellings map onto one frontier entry.
const normalizeFlags = purell.FlagsSafe | purell.FlagRemoveFragment

// charsetPrescanLimit bounds how much of the document is searched for a
// meta charset declaration.
const charsetPrescanLimit = 4096

// Parser extracts the title and outgoing links of one HTML page.
type Parser struct {
	// pageURL is the URL the document was fetched from.
	pageURL *url.URL
}

// ParseResult contains the information SiteCrawler needs from a page.
type ParseResult struct {
	// Title is the whitespace-collapsed text of the first <title>.
	Title string

	// Links are absolute, normalized http(s) URLs in document order,
	// without duplicates.
	Links []string

	// Charset is the name of the encoding the document was decoded with.
	Charset string
}

// NewParser creates a parser for a document fetched from pageURL.
func NewParser(pageURL string) (*Parser, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	return &Parser{pageURL: u}, nil
}

// Parse decodes body and extracts title and links. contentType is the
// Content-Type response header; its charset is used only when the document
// itself declares none.
func (p *Parser) Parse(body []byte, contentType string) (*ParseResult, error) {
	enc, name := detectEncoding(body, contentType)
	reader := transform.NewReader(bytes.NewReader(body), enc.NewDecoder())

	doc, err := html.Parse(reader)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links:   make([]string, 0),
		Charset: name,
	}

	base := p.pageURL
	var (
		baseSeen  bool
		titleSeen bool
		rawLinks  []string
	)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if !titleSeen {
					titleSeen = true
					result.Title = collapseSpace(textContent(n))
				}
			case "base":
				if href := strings.TrimSpace(getAttr(n, "href")); href != "" && !baseSeen {
					baseSeen = true
					if u, err := p.pageURL.Parse(href); err == nil {
						base = u
					}
				}
			case "a", "area":
				if href, ok := lookupAttr(n, "href"); ok {
					rawLinks = append(rawLinks, href)
				}
			case "frame", "iframe":
				if src, ok := lookupAttr(n, "src"); ok {
					rawLinks = append(rawLinks, src)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	seen := make(map[string]struct{}, len(rawLinks))
	for _, raw := range rawLinks {
		link, ok := ResolveLink(base, raw)
		if !ok {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		result.Links = append(result.Links, link)
	}

	return result, nil
}

// ResolveLink resolves ref against base and normalizes the result. It
// reports false for empty references, javascript: targets, non-http(s)
// schemes and unparseable values.
func ResolveLink(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || hasPrefixFold(ref, "javascript:") {
		return "", false
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(u)

	scheme := strings.ToLower(resolved.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	if resolved.Host == "" {
		return "", false
	}

	resolved.Fragment = ""
	resolved.RawFragment = ""
	if resolved.Path == "" {
		resolved.Path = "/"
		resolved.RawPath = ""
	}
	return purell.NormalizeURL(resolved, normalizeFlags), true
}

// detectEncoding picks the document encoding: an in-document meta
// declaration first, then the Content-Type charset, then UTF-8.
func detectEncoding(body []byte, contentType string) (encoding.Encoding, string) {
	if label := metaCharset(body); label != "" {
		if enc, name := charset.Lookup(label); enc != nil {
			return enc, name
		}
	}
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if enc, name := charset.Lookup(params["charset"]); enc != nil {
			return enc, name
		}
	}
	return unicode.UTF8, "utf-8"
}

// metaCharset scans the start of the document for <meta charset> or
// <meta http-equiv="content-type" content="...; charset=...">.
func metaCharset(body []byte) string {
	if len(body) > charsetPrescanLimit {
		body = body[:charsetPrescanLimit]
	}
	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) == "body" {
				return ""
			}
			if string(name) != "meta" || !hasAttr {
				continue
			}
			var (
				cs, content string
				httpEquiv   bool
			)
			for {
				key, val, more := z.TagAttr()
				switch strings.ToLower(string(key)) {
				case "charset":
					cs = strings.TrimSpace(string(val))
				case "http-equiv":
					httpEquiv = strings.EqualFold(strings.TrimSpace(string(val)), "content-type")
				case "content":
					content = string(val)
				}
				if !more {
					break
				}
			}
			if cs != "" {
				return cs
			}
			if httpEquiv && content != "" {
				if _, params, err := mime.ParseMediaType(content); err == nil && params["charset"] != "" {
					return params["charset"]
				}
			}
		}
	}
}

// textContent concatenates the text nodes below n.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}
