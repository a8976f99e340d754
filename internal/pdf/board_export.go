package pdf

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"internboard/internal/models"
)

const fontName = "Helvetica"

// BoardExporter renders the internship board as an A4 PDF.
type BoardExporter struct {
	Title string
}

func NewBoardExporter() *BoardExporter {
	return &BoardExporter{Title: "Internship Board"}
}

func (e *BoardExporter) Render(w io.Writer, items []models.Internship, generatedAt time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(e.Title, false)
	pdf.SetAuthor("internboard", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontName, "", 9)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont(fontName, "B", 18)
	pdf.CellFormat(0, 10, tr(e.Title), "", 1, "C", false, 0, "")
	pdf.SetFont(fontName, "", 10)
	sub := fmt.Sprintf("%d open listings, generated %s", len(items), generatedAt.UTC().Format("02 Jan 2006 15:04 MST"))
	pdf.CellFormat(0, 6, sub, "", 1, "C", false, 0, "")
	hr(pdf)

	if len(items) == 0 {
		pdf.Ln(4)
		pdf.SetFont(fontName, "I", 11)
		pdf.CellFormat(0, 6, "No internships posted yet.", "", 1, "L", false, 0, "")
	}

	for _, in := range items {
		sectionTitle(pdf, tr(in.Company))
		kvLine(pdf, "Batch", tr(in.Batch))
		kvLine(pdf, "Deadline", in.Deadline.Format("02 Jan 2006"))
		kvLine(pdf, "Apply", tr(in.Link))
		pdf.SetFont(fontName, "", 10)
		pdf.MultiCell(0, 5, tr(in.Description), "", "L", false)
		pdf.Ln(1)
		hr(pdf)
	}

	return pdf.Output(w)
}

func sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(fontName, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(fontName, "", 11)
}

func kvLine(pdf *gofpdf.Fpdf, key, val string) {
	pdf.SetFont(fontName, "B", 10)
	pdf.CellFormat(30, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(fontName, "", 10)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}
