// Package html provides a Normaliser for HTML documents and fetched web
// pages. Page chrome is removed, the remaining markup is converted to
// markdown, and the markdown is reduced to readable text.
package html

import (
	"context"
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/markdown"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedTypes returns the document types this normaliser handles.
func (n *Normaliser) SupportedTypes() []domain.DocumentType {
	return []domain.DocumentType{domain.DocumentTypeWebPage}
}

// Normalise extracts the readable text of an HTML page.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	page, err := plaintext.Decode(raw.Content)
	if err != nil {
		return nil, err
	}

	title := extractTitle(page, raw.Name)

	md, err := htmltomarkdown.ConvertString(removeChrome(page))
	if err != nil {
		return nil, fmt.Errorf("%w: convert html: %w", domain.ErrInvalidInput, err)
	}

	return &driven.NormaliseResult{
		Title:   title,
		Content: unescape(markdown.Strip(md)),
	}, nil
}

// Pre-compiled regular expressions for HTML parsing performance.
var (
	titleTag     = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	htmlComments = regexp.MustCompile(`(?s)<!--.*?-->`)
	mdEscapes    = regexp.MustCompile("\\\\([\\\\`*_{}\\[\\]()#+\\-.!|>~])")

	// chromeTags are removed innermost first so a nav inside a header
	// does not end the header match early.
	chromeTags = chromePatterns("script", "style", "noscript", "svg", "iframe", "form", "nav", "aside", "header", "footer")
)

func chromePatterns(tags ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(tags))
	for i, tag := range tags {
		patterns[i] = regexp.MustCompile(`(?is)<` + tag + `\b[^>]*>.*?</` + tag + `\s*>`)
	}
	return patterns
}

// removeChrome drops elements that never carry page content.
func removeChrome(page string) string {
	page = htmlComments.ReplaceAllString(page, "")
	for _, re := range chromeTags {
		page = re.ReplaceAllString(page, "")
	}
	return page
}

// unescape removes the backslashes the markdown converter adds before
// punctuation.
func unescape(s string) string {
	return mdEscapes.ReplaceAllString(s, "$1")
}

// extractTitle returns the <title> text or a title derived from the name.
func extractTitle(page, name string) string {
	if m := titleTag.FindStringSubmatch(page); len(m) > 1 {
		if title := strings.TrimSpace(html.UnescapeString(m[1])); title != "" {
			return title
		}
	}

	filename := filepath.Base(strings.TrimRight(name, "/"))
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	return strings.ReplaceAll(filename, "-", " ")
}
