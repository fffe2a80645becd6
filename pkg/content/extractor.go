package content

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

var errEmptyHTML = errors.New("empty HTML content")

// Extractor turns feed-supplied HTML into plain text.
type Extractor interface {
	ExtractText(htmlContent string) (string, error)
}

// DefaultExtractor implements Extractor with ShowNotes.
type DefaultExtractor struct{}

// NewDefaultExtractor creates a new default extractor
func NewDefaultExtractor() *DefaultExtractor {
	return &DefaultExtractor{}
}

// ExtractText extracts show notes using ShowNotes
func (e *DefaultExtractor) ExtractText(htmlContent string) (string, error) {
	return ShowNotes(htmlContent)
}

// ShowNotes converts an item description into plain text.
//
// Feed descriptions are usually fragments ("<p>..</p><ul>..</ul>") which readability scores
// poorly, so fragments go straight to goquery. Whole documents try readability first and fall
// back to goquery.
func ShowNotes(htmlContent string) (string, error) {
	htmlContent = strings.TrimSpace(htmlContent)
	if htmlContent == "" {
		return "", errEmptyHTML
	}

	if isDocument(htmlContent) {
		if text, err := ExtractText(htmlContent); err == nil && text != "" {
			return text, nil
		}
	}

	return fragmentText(htmlContent)
}

// ExtractText extracts the main text of a full HTML page
func ExtractText(htmlContent string) (string, error) {
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}

	return normalizeLines(article.TextContent), nil
}

// fragmentText renders an HTML fragment as text, one line per block element.
func fragmentText(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, li, div, h1, h2, h3, h4, h5, h6, tr, blockquote").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return normalizeLines(doc.Text()), nil
}

func isDocument(htmlContent string) bool {
	lower := strings.ToLower(htmlContent)
	return strings.Contains(lower, "<html") || strings.Contains(lower, "<body")
}

// normalizeLines collapses whitespace inside each line and drops blank lines.
func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
