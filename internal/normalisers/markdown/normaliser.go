// Package markdown extracts readable text from markdown documents.
package markdown

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles markdown documents.
type Normaliser struct{}

// New creates a new markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedTypes returns the document types this normaliser handles.
func (n *Normaliser) SupportedTypes() []domain.DocumentType {
	return []domain.DocumentType{domain.DocumentTypeMarkdown}
}

// Normalise strips markdown syntax while keeping headings, list items and
// code as text.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content, err := plaintext.Decode(raw.Content)
	if err != nil {
		return nil, err
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")

	body, frontTitle := splitFrontMatter(content)

	title := frontTitle
	if title == "" {
		title = firstHeading(body)
	}
	if title == "" {
		title = titleFromName(raw.Name)
	}

	return &driven.NormaliseResult{
		Title:   title,
		Content: Strip(body),
	}, nil
}

// Pre-compiled regular expressions for markdown parsing performance.
var (
	frontMatter   = regexp.MustCompile(`(?s)\A---\n(.*?)\n---\n?`)
	frontTitle    = regexp.MustCompile(`(?m)^title:\s*["']?(.*?)["']?\s*$`)
	codeFence     = regexp.MustCompile("(?m)^[ \t]*(```|~~~).*$")
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	images        = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	links         = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	refLinks      = regexp.MustCompile(`(?m)^\s*\[[^\]]+\]:\s+\S+.*$`)
	headings      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquotes   = regexp.MustCompile(`(?m)^>\s?`)
	horizontal    = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	listMarkers   = regexp.MustCompile(`(?m)^([ \t]*)[-*+][ \t]+`)
	strong        = regexp.MustCompile(`(\*\*|__)(.+?)(\*\*|__)`)
	emphasis      = regexp.MustCompile(`(^|[^\w*])\*([^*\n]+)\*`)
	inlineCode    = regexp.MustCompile("`([^`]+)`")
	tableDivider  = regexp.MustCompile(`(?m)^[ \t]*\|?([ \t]*:?-+:?[ \t]*\|)+[ \t]*(:?-+:?)?[ \t]*(\n|$)`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// Strip removes markdown formatting, leaving the readable text.
func Strip(content string) string {
	content = htmlComments.ReplaceAllString(content, "")
	content = codeFence.ReplaceAllString(content, "")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = refLinks.ReplaceAllString(content, "")
	content = headings.ReplaceAllString(content, "")
	content = blockquotes.ReplaceAllString(content, "")
	content = horizontal.ReplaceAllString(content, "")
	content = tableDivider.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "$1")
	content = strong.ReplaceAllString(content, "$2")
	content = emphasis.ReplaceAllString(content, "$1$2")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

// splitFrontMatter removes a leading YAML block and returns its title.
func splitFrontMatter(content string) (string, string) {
	m := frontMatter.FindStringSubmatchIndex(content)
	if m == nil {
		return content, ""
	}
	var title string
	if t := frontTitle.FindStringSubmatch(content[m[2]:m[3]]); t != nil {
		title = strings.TrimSpace(t[1])
	}
	return content[m[1]:], title
}

// firstHeading returns the text of the first level-one heading.
func firstHeading(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return ""
}

func titleFromName(name string) string {
	filename := filepath.Base(name)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	return strings.ReplaceAll(filename, "-", " ")
}
