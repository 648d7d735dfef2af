package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/furqan899/safelift-ai/pkg/models"
)

// Section is one data type's contribution to the PDF summary.
type Section struct {
	Name  string
	Count int
}

// Renderer writes the export summary to a file. Two implementations exist:
// a real PDF renderer and a plain-text fallback used when PDF rendering is
// switched off. Both write to the same .pdf path.
type Renderer interface {
	Render(path string, sections []Section) error
}

// NewRenderer selects the summary renderer. Anything other than "text"
// gets the real PDF renderer.
func NewRenderer(kind string) Renderer {
	if kind == "text" {
		return &TextRenderer{}
	}
	return &PDFRenderer{}
}

// PDFExporter writes a summary document listing each requested data type
// with its record count. Records are drained through the collectors only
// to count them.
type PDFExporter struct {
	MediaRoot string
	Renderer  Renderer
}

func (e *PDFExporter) Export(ctx context.Context, job *models.ExportJob, collectors []Collector) (string, int64, error) {
	dir, err := ensureJobDir(e.MediaRoot, job.ID)
	if err != nil {
		return "", 0, err
	}

	sections := make([]Section, 0, len(collectors))
	for _, c := range collectors {
		count := 0
		if err := c.Collect(ctx, func(Record) error {
			count++
			return nil
		}); err != nil {
			return "", 0, fmt.Errorf("collecting %s: %w", c.Name(), err)
		}
		sections = append(sections, Section{Name: c.Name(), Count: count})
	}

	name := fmt.Sprintf("export_%s.pdf", job.ID)
	path := filepath.Join(dir, name)
	if err := e.Renderer.Render(path, sections); err != nil {
		return "", 0, err
	}

	size, err := fileSize(path)
	if err != nil {
		return "", 0, err
	}
	return filepath.Join(jobRelDir(job.ID), name), size, nil
}

// PDFRenderer produces a real PDF summary page.
type PDFRenderer struct{}

func (r *PDFRenderer) Render(path string, sections []Section) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 10, "Safelift Export Summary")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	for _, s := range sections {
		pdf.Cell(0, 6, fmt.Sprintf("%s: %d records", titleCase(s.Name), s.Count))
		pdf.Ln(6)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	return nil
}

// TextRenderer is the degraded-mode summary: plain text under the .pdf
// extension, used when PDF rendering is disabled.
type TextRenderer struct{}

func (r *TextRenderer) Render(path string, sections []Section) error {
	var b strings.Builder
	b.WriteString("PDF rendering is disabled. Plain text summary follows.\n")
	for _, s := range sections {
		fmt.Fprintf(&b, "\n== %s (%d records) ==\n", strings.ToUpper(s.Name), s.Count)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing text summary: %w", err)
	}
	return nil
}

func titleCase(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
