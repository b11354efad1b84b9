package export

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"carbon-scribe/onboarding-tracker/internal/audit"
)

// PDFOptions configures PDF generation
type PDFOptions struct {
	Title          string
	PageSize       string
	Orientation    string // portrait, landscape
	FontFamily     string
	FontSize       float64
	HeaderColor    [3]int
	AlternateColor [3]int
	Margin         float64
	Now            func() time.Time
}

// DefaultPDFOptions returns default PDF options
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		Title:          "Onboarding history",
		PageSize:       "A4",
		Orientation:    "landscape",
		FontFamily:     "Arial",
		FontSize:       9,
		HeaderColor:    [3]int{68, 114, 196},
		AlternateColor: [3]int{242, 242, 242},
		Margin:         15,
		Now:            time.Now,
	}
}

// PDFGenerator renders audit entries as a paginated table
type PDFGenerator struct {
	pdf     *gofpdf.Fpdf
	options PDFOptions
}

// NewPDFGenerator creates a new PDF generator
func NewPDFGenerator(options PDFOptions) *PDFGenerator {
	orientation := "P"
	if options.Orientation == "landscape" {
		orientation = "L"
	}

	pdf := gofpdf.New(orientation, "mm", options.PageSize, "")
	pdf.SetMargins(options.Margin, options.Margin, options.Margin)
	pdf.SetAutoPageBreak(false, options.Margin)

	g := &PDFGenerator{pdf: pdf, options: options}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(options.FontFamily, "", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	return g
}

// Render lays out the title block and the entry table
func (g *PDFGenerator) Render(entries []*audit.Entry) {
	g.pdf.AddPage()

	g.pdf.SetFont(g.options.FontFamily, "B", 16)
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.CellFormat(0, 10, g.options.Title, "", 1, "C", false, 0, "")

	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	g.pdf.SetTextColor(128, 128, 128)
	generated := fmt.Sprintf("Generated: %s  Entries: %d", g.options.Now().UTC().Format(time.DateTime), len(entries))
	g.pdf.CellFormat(0, 6, generated, "", 1, "R", false, 0, "")
	g.pdf.Ln(4)

	widths := g.columnWidths()
	g.tableHeader(widths)

	_, pageHeight := g.pdf.GetPageSize()
	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	for i, entry := range entries {
		if g.pdf.GetY()+7 > pageHeight-g.options.Margin-8 {
			g.pdf.AddPage()
			g.tableHeader(widths)
			g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
		}

		if i%2 == 1 {
			c := g.options.AlternateColor
			g.pdf.SetFillColor(c[0], c[1], c[2])
		} else {
			g.pdf.SetFillColor(255, 255, 255)
		}
		g.pdf.SetTextColor(0, 0, 0)

		for j, col := range Columns {
			val := formatValue(col.Value(entry), time.DateTime)
			g.pdf.CellFormat(widths[j], 7, g.truncate(val, widths[j]), "1", 0, "L", true, 0, "")
		}
		g.pdf.Ln(-1)
	}
}

func (g *PDFGenerator) tableHeader(widths []float64) {
	c := g.options.HeaderColor
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize+1)
	g.pdf.SetFillColor(c[0], c[1], c[2])
	g.pdf.SetTextColor(255, 255, 255)
	for i, label := range labels() {
		g.pdf.CellFormat(widths[i], 8, label, "1", 0, "C", true, 0, "")
	}
	g.pdf.Ln(-1)
}

// columnWidths gives the time and session columns double weight
func (g *PDFGenerator) columnWidths() []float64 {
	pageWidth, _ := g.pdf.GetPageSize()
	available := pageWidth - 2*g.options.Margin

	weights := make([]float64, len(Columns))
	total := 0.0
	for i, col := range Columns {
		weights[i] = 1
		if col.Key == "created_at" || col.Key == "session_key" {
			weights[i] = 2
		}
		total += weights[i]
	}

	widths := make([]float64, len(Columns))
	for i, w := range weights {
		widths[i] = available * w / total
	}
	return widths
}

func (g *PDFGenerator) truncate(val string, width float64) string {
	if g.pdf.GetStringWidth(val) <= width-2 {
		return val
	}
	runes := []rune(val)
	for len(runes) > 0 && g.pdf.GetStringWidth(string(runes)+"...") > width-2 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

// Write writes the PDF to a writer
func (g *PDFGenerator) Write(w io.Writer) error {
	return g.pdf.Output(w)
}

// WritePDF writes entries to w as a PDF table under title
func WritePDF(w io.Writer, title string, entries []*audit.Entry) error {
	options := DefaultPDFOptions()
	if title != "" {
		options.Title = title
	}

	g := NewPDFGenerator(options)
	g.Render(entries)
	if err := g.Write(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}
