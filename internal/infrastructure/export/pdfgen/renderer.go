package pdfgen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
	"time"

	_ "image/gif"
	_ "image/png"

	"github.com/jung-kurt/gofpdf"
	ledongthuc "github.com/ledongthuc/pdf"
	_ "golang.org/x/image/webp"

	"medvault/internal/core/domain"
)

// A4 in points, fixed margins. The drawable area between the top and bottom
// margin is all the pagination algorithm ever reasons about.
const (
	pageWidth    = 595.28
	pageHeight   = 841.89
	margin       = 40.0
	bottomMargin = 40.0
	contentWidth = pageWidth - 2*margin

	bodyFontSize    = 10.0
	tableFontSize   = 9.0
	lineHeight      = 14.0
	tableLineHeight = 11.0

	fineJPEGQuality   = 70
	coarseJPEGQuality = 40

	// Above this document count the appendix images are re-compressed at the
	// coarser quality, trading fidelity for output size and render time.
	DefaultCompressThreshold = 25
)

// Renderer produces the fixed-page (PDF) export: title block, the three
// narrative sections, the index table, and one appendix unit per document on
// its own page. Pagination is explicit: auto page break is disabled and
// every block checks remaining vertical space first. The check is local and
// greedy; it never looks ahead, so a heading can land at a page bottom.
type Renderer struct {
	compressThreshold int
}

func New(compressThreshold int) *Renderer {
	if compressThreshold <= 0 {
		compressThreshold = DefaultCompressThreshold
	}
	return &Renderer{compressThreshold: compressThreshold}
}

func (r *Renderer) Render(
	ctx context.Context,
	profile domain.PatientProfile,
	report domain.Report,
	docs []domain.Document,
) ([]byte, error) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle("Medical Record Report", true)
	pdf.SetAutoPageBreak(false, 0)

	p := &layout{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	p.addPage()

	r.writeTitleBlock(p, profile)

	sections := []struct {
		heading string
		body    string
	}{
		{"Medical History", report.History},
		{"Synthesis", report.Synthesis},
		{"Observations", report.Observations},
	}
	for _, s := range sections {
		p.heading(s.heading)
		p.paragraph(s.body)
		p.space(10)
	}

	r.writeIndexTable(p, docs)

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("export cancelled: %w", err)
		}
		if err := r.writeAppendixUnit(p, doc, i, len(docs)); err != nil {
			return nil, err
		}
	}

	if pdf.Err() {
		return nil, fmt.Errorf("render pdf: %w", pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) writeTitleBlock(p *layout, profile domain.PatientProfile) {
	p.pdf.SetFont("Helvetica", "B", 18)
	p.ensure(26)
	p.pdf.Text(margin, p.y+18, p.tr("Medical Record Report"))
	p.y += 26

	p.pdf.SetFont("Helvetica", "", bodyFontSize)
	meta := fmt.Sprintf("%s  |  born %s  |  %s", profile.Name, profile.DateOfBirth, profile.Gender)
	p.ensure(lineHeight)
	p.pdf.Text(margin, p.y+bodyFontSize, p.tr(meta))
	p.y += lineHeight

	p.pdf.SetFont("Helvetica", "", 8)
	p.pdf.SetTextColor(120, 120, 120)
	p.ensure(lineHeight)
	p.pdf.Text(margin, p.y+8, p.tr("Generated "+time.Now().Format("2006-01-02")))
	p.pdf.SetTextColor(0, 0, 0)
	p.y += lineHeight + 10
}

func (r *Renderer) writeIndexTable(p *layout, docs []domain.Document) {
	p.heading("Document Index")

	const (
		colSeq  = 34.0
		colDate = 74.0
		colCat  = 104.0
	)
	colSum := contentWidth - colSeq - colDate - colCat
	xSeq := margin
	xDate := xSeq + colSeq
	xCat := xDate + colDate
	xSum := xCat + colCat

	p.pdf.SetFont("Helvetica", "B", tableFontSize)
	p.ensure(tableLineHeight + 6)
	base := p.y + tableFontSize
	p.pdf.Text(xSeq, base, "#")
	p.pdf.Text(xDate, base, "Date")
	p.pdf.Text(xCat, base, "Category")
	p.pdf.Text(xSum, base, "Summary")
	p.y += tableLineHeight + 2
	p.pdf.SetDrawColor(60, 60, 60)
	p.pdf.Line(margin, p.y, margin+contentWidth, p.y)
	p.y += 4

	p.pdf.SetFont("Helvetica", "", tableFontSize)
	p.pdf.SetDrawColor(200, 200, 200)
	for i, doc := range docs {
		summary := doc.Summary
		if doc.Duplicate {
			summary += " (duplicate)"
		}
		sumLines := p.pdf.SplitLines([]byte(p.tr(summary)), colSum-6)
		n := len(sumLines)
		if n < 1 {
			n = 1
		}
		rowH := float64(n)*tableLineHeight + 6
		p.ensure(rowH)

		rowBase := p.y + tableFontSize
		p.pdf.Text(xSeq, rowBase, fmt.Sprintf("%d", i+1))
		p.pdf.Text(xDate, rowBase, displayDate(doc.Date))
		p.pdf.Text(xCat, rowBase, p.tr(string(doc.Category)))
		for j, line := range sumLines {
			p.pdf.Text(xSum, rowBase+float64(j)*tableLineHeight, string(line))
		}
		p.y += rowH - 2
		p.pdf.Line(margin, p.y, margin+contentWidth, p.y)
		p.y += 2
	}
	p.pdf.SetDrawColor(0, 0, 0)
}

// writeAppendixUnit forces every document onto its own fresh page. This is a
// hard rule of the format, not a space optimization.
func (r *Renderer) writeAppendixUnit(p *layout, doc domain.Document, index, total int) error {
	p.addPage()

	p.heading(fmt.Sprintf("Appendix %d: %s", index+1, doc.Filename))

	meta := fmt.Sprintf("%s  |  %s", displayDate(doc.Date), doc.Category)
	if doc.Duplicate {
		meta += "  |  duplicate"
	}
	p.pdf.SetFont("Helvetica", "", tableFontSize)
	p.pdf.SetTextColor(120, 120, 120)
	p.ensure(lineHeight)
	p.pdf.Text(margin, p.y+tableFontSize, p.tr(meta))
	p.pdf.SetTextColor(0, 0, 0)
	p.y += lineHeight + 6

	switch {
	case strings.HasPrefix(doc.MimeType, "image/"):
		return r.drawAppendixImage(p, doc, index, total)
	case doc.MimeType == "application/pdf":
		p.paragraph(pdfPlaceholder(doc))
		return nil
	default:
		p.paragraph("No preview is available for this document type. Refer to the original file.")
		return nil
	}
}

func (r *Renderer) drawAppendixImage(p *layout, doc domain.Document, index, total int) error {
	img, _, err := image.Decode(bytes.NewReader(doc.Payload))
	if err != nil {
		return fmt.Errorf("decode appendix image %s: %w", doc.Filename, err)
	}

	quality := fineJPEGQuality
	if total > r.compressThreshold {
		quality = coarseJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("encode appendix image %s: %w", doc.Filename, err)
	}

	availH := pageHeight - bottomMargin - p.y
	bounds := img.Bounds()
	w, h := fitRect(float64(bounds.Dx()), float64(bounds.Dy()), contentWidth, availH)
	x := margin + (contentWidth-w)/2

	name := fmt.Sprintf("appendix-%d", index)
	opts := gofpdf.ImageOptions{ImageType: "JPG"}
	p.pdf.RegisterImageOptionsReader(name, opts, &buf)
	p.pdf.ImageOptions(name, x, p.y, w, h, false, opts, 0, "")
	p.y += h
	return nil
}

func pdfPlaceholder(doc domain.Document) string {
	reader, err := ledongthuc.NewReader(bytes.NewReader(doc.Payload), int64(len(doc.Payload)))
	if err != nil {
		return "PDF document. Refer to the original file."
	}
	pages := reader.NumPage()
	if pages == 1 {
		return "PDF document, 1 page. Refer to the original file."
	}
	return fmt.Sprintf("PDF document, %d pages. Refer to the original file.", pages)
}

func displayDate(date string) string {
	if date == "" {
		return "N/A"
	}
	return date
}

// fitRect scales a box uniformly to fit maxW x maxH, never upscaling.
func fitRect(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	if w <= maxW && h <= maxH {
		return w, h
	}
	scale := maxW / w
	if s := maxH / h; s < scale {
		scale = s
	}
	return w * scale, h * scale
}

// layout carries the running vertical cursor for the greedy pagination.
type layout struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
	y   float64
}

func (p *layout) addPage() {
	p.pdf.AddPage()
	p.y = margin
}

// ensure starts a new page when the next block of height h does not fit in
// the remaining drawable area.
func (p *layout) ensure(h float64) {
	if p.y+h > pageHeight-bottomMargin {
		p.addPage()
	}
}

func (p *layout) heading(text string) {
	p.pdf.SetFont("Helvetica", "B", 13)
	p.ensure(24)
	p.pdf.Text(margin, p.y+13, p.tr(text))
	p.y += 24
}

func (p *layout) paragraph(text string) {
	p.pdf.SetFont("Helvetica", "", bodyFontSize)
	for _, para := range strings.Split(text, "\n") {
		if strings.TrimSpace(para) == "" {
			p.space(lineHeight / 2)
			continue
		}
		for _, line := range p.pdf.SplitLines([]byte(p.tr(para)), contentWidth) {
			p.ensure(lineHeight)
			p.pdf.Text(margin, p.y+bodyFontSize, string(line))
			p.y += lineHeight
		}
	}
}

func (p *layout) space(h float64) {
	p.y += h
}
