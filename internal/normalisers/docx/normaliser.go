// Package docx extracts text from Word documents, including table cells.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// maxPartSize bounds a single decompressed archive member.
const maxPartSize = 64 << 20

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedTypes returns the document types this normaliser handles.
func (n *Normaliser) SupportedTypes() []domain.DocumentType {
	return []domain.DocumentType{domain.DocumentTypeDOCX}
}

// Normalise extracts paragraphs and table rows from word/document.xml.
// Paragraphs are separated by blank lines; table cells are joined with " | ".
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx archive: %w", domain.ErrInvalidInput, err)
	}

	body, err := readPart(reader, "word/document.xml")
	if err != nil {
		return nil, err
	}

	content, err := parseDocumentXML(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse document.xml: %w", domain.ErrInvalidInput, err)
	}

	return &driven.NormaliseResult{
		Title:   extractTitle(reader, raw.Name),
		Content: content,
	}, nil
}

// readPart returns the decompressed content of one archive member.
func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %w", domain.ErrInvalidInput, name, err)
		}
		defer rc.Close()

		content, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", domain.ErrInvalidInput, name, err)
		}
		if len(content) > maxPartSize {
			return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrTooLarge, name, maxPartSize)
		}
		return content, nil
	}
	return nil, fmt.Errorf("%w: missing %s", domain.ErrInvalidInput, name)
}

// textCollector accumulates paragraphs and table rows while walking the
// document XML.
type textCollector struct {
	parts      []string
	para       strings.Builder
	inText     bool
	tableDepth int
	row        []string
	cell       []string
}

func (c *textCollector) start(name string) {
	switch name {
	case "t":
		c.inText = true
	case "tab":
		c.para.WriteByte(' ')
	case "br", "cr":
		c.para.WriteByte('\n')
	case "tbl":
		c.tableDepth++
	case "tr":
		if c.tableDepth == 1 {
			c.row = c.row[:0]
		}
	case "tc":
		if c.tableDepth == 1 {
			c.cell = c.cell[:0]
		}
	}
}

func (c *textCollector) end(name string) {
	switch name {
	case "t":
		c.inText = false
	case "p":
		text := strings.TrimSpace(c.para.String())
		c.para.Reset()
		if text == "" {
			return
		}
		if c.tableDepth > 0 {
			c.cell = append(c.cell, text)
		} else {
			c.parts = append(c.parts, text)
		}
	case "tc":
		if c.tableDepth == 1 {
			if cell := strings.Join(c.cell, " "); cell != "" {
				c.row = append(c.row, cell)
			}
		}
	case "tr":
		if c.tableDepth == 1 && len(c.row) > 0 {
			c.parts = append(c.parts, strings.Join(c.row, " | "))
		}
	case "tbl":
		c.tableDepth--
	}
}

// parseDocumentXML extracts the readable text of word/document.xml.
func parseDocumentXML(content []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))
	var c textCollector

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			c.start(el.Name.Local)
		case xml.EndElement:
			c.end(el.Name.Local)
		case xml.CharData:
			if c.inText {
				c.para.Write(el)
			}
		}
	}

	return strings.Join(c.parts, "\n\n"), nil
}

// coreXML represents the structure of docProps/core.xml.
type coreXML struct {
	Title string `xml:"title"`
}

// extractTitle reads the title from docProps/core.xml or falls back to the filename.
func extractTitle(reader *zip.Reader, name string) string {
	if content, err := readPart(reader, "docProps/core.xml"); err == nil {
		var core coreXML
		if err := xml.Unmarshal(content, &core); err == nil && strings.TrimSpace(core.Title) != "" {
			return strings.TrimSpace(core.Title)
		}
	}

	filename := filepath.Base(name)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	return strings.ReplaceAll(filename, "-", " ")
}
