package pdfrender

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// LocalRenderer is the fallback used when no external rendering service is
// configured. It strips markup and lays the text content out with gofpdf, so
// development environments still produce a real, non-empty PDF artifact.
type LocalRenderer struct{}

// NewLocalRenderer constructs the fallback renderer.
func NewLocalRenderer() *LocalRenderer {
	return &LocalRenderer{}
}

var (
	tagPattern    = regexp.MustCompile(`(?s)<style.*?</style>|<script.*?</script>|<[^>]+>`)
	spacePattern  = regexp.MustCompile(`[ \t]+`)
	blankLines    = regexp.MustCompile(`\n{3,}`)
	blockBoundary = regexp.MustCompile(`(?i)</(p|div|tr|h[1-6]|li|table|section)>|<br\s*/?>`)
)

// Render converts the HTML body into a plain-text PDF.
func (r *LocalRenderer) Render(_ context.Context, html string, opts PageOptions) ([]byte, error) {
	format := opts.Format
	if format == "" {
		format = "A4"
	}
	pdf := gofpdf.New("P", "mm", format, "")
	pdf.SetMargins(12, 14, 12)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 10)

	for _, line := range extractLines(html) {
		pdf.MultiCell(0, 5, line, "", "L", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, &RenderError{Cause: fmt.Errorf("render fallback pdf: %w", err)}
	}
	return buf.Bytes(), nil
}

func extractLines(html string) []string {
	text := blockBoundary.ReplaceAllString(html, "\n")
	text = tagPattern.ReplaceAllString(text, " ")
	text = strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'").Replace(text)
	text = spacePattern.ReplaceAllString(text, " ")
	text = blankLines.ReplaceAllString(text, "\n\n")

	lines := make([]string, 0, 32)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		lines = append(lines, " ")
	}
	return lines
}
