// CLAUDE:SUMMARY Converts a captured page to Markdown: isolate <body>, sanitise, render links/images with absolute URLs.
// Package docconv turns the HTML of a visited page into a portable Markdown
// document. The body subtree is isolated first (whole document when there
// is no body), scripts and styles are stripped by a sanitising policy that
// keeps links and images, and the result is rendered with link and image
// references resolved against the page URL.
package docconv

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Converter renders page HTML to Markdown. Safe for sequential reuse.
type Converter struct {
	md     *converter.Converter
	policy *bluemonday.Policy
}

// New creates a Converter with the commonmark and table plugins.
func New() *Converter {
	return &Converter{
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Convert isolates the body of pageHTML and returns it as Markdown.
// Relative link and image references are resolved against pageURL.
func (c *Converter) Convert(pageHTML, pageURL string) (string, error) {
	body, err := Body(pageHTML)
	if err != nil {
		return "", err
	}
	clean := c.policy.Sanitize(body)

	md, err := c.md.ConvertString(clean, converter.WithDomain(pageURL))
	if err != nil {
		return "", fmt.Errorf("docconv: convert: %w", err)
	}
	return strings.TrimSpace(md) + "\n", nil
}

// Body returns the serialised <body> subtree of doc, or the whole document
// when no body element exists.
func Body(doc string) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("docconv: parse: %w", err)
	}

	target := findBody(root)
	if target == nil {
		target = root
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, target); err != nil {
		return "", fmt.Errorf("docconv: render: %w", err)
	}
	return buf.String(), nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

// FileName derives the artifact name for a page: the lowercased host with
// dots replaced by underscores, plus ".md". The port is dropped.
//
//	https://www.example.com/privacy → www_example_com.md
func FileName(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("docconv: parse url: %w", err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("docconv: no host in %q", pageURL)
	}
	return strings.ReplaceAll(host, ".", "_") + ".md", nil
}
