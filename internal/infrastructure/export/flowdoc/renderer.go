// Package flowdoc renders the flow-document export: a single Word-compatible
// HTML document with no manual pagination. The consuming word processor does
// its own page layout; the renderer only emits explicit forced section
// breaks before the appendix section and before each appendix unit.
package flowdoc

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"strings"
	"time"

	"medvault/internal/core/domain"
)

type Renderer struct{}

func New() *Renderer {
	return &Renderer{}
}

type indexRow struct {
	Seq       int
	Date      string
	Category  string
	Summary   string
	Duplicate bool
}

type appendixUnit struct {
	Seq         int
	Filename    string
	Date        string
	Category    string
	Duplicate   bool
	ImageSrc    template.URL
	Placeholder string
}

type documentData struct {
	Title       string
	Profile     domain.PatientProfile
	Report      domain.Report
	GeneratedAt string
	Rows        []indexRow
	Appendix    []appendixUnit
}

func (r *Renderer) Render(
	ctx context.Context,
	profile domain.PatientProfile,
	report domain.Report,
	docs []domain.Document,
) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("export cancelled: %w", err)
	}

	data := documentData{
		Title:       "Medical Record Report",
		Profile:     profile,
		Report:      report,
		GeneratedAt: time.Now().Format("2006-01-02"),
		Rows:        make([]indexRow, 0, len(docs)),
		Appendix:    make([]appendixUnit, 0, len(docs)),
	}

	// One pass builds index rows and appendix units together so both carry
	// the identical order handed in by the caller.
	for i, doc := range docs {
		data.Rows = append(data.Rows, indexRow{
			Seq:       i + 1,
			Date:      displayDate(doc.Date),
			Category:  string(doc.Category),
			Summary:   doc.Summary,
			Duplicate: doc.Duplicate,
		})

		unit := appendixUnit{
			Seq:       i + 1,
			Filename:  doc.Filename,
			Date:      displayDate(doc.Date),
			Category:  string(doc.Category),
			Duplicate: doc.Duplicate,
		}
		if strings.HasPrefix(doc.MimeType, "image/") {
			// Natural size, no additional scaling: the normalizer already
			// bounded the image on the way in.
			unit.ImageSrc = template.URL(fmt.Sprintf(
				"data:%s;base64,%s",
				doc.MimeType,
				base64.StdEncoding.EncodeToString(doc.Payload),
			))
		} else {
			unit.Placeholder = "No inline preview for this document type. Refer to the original file."
		}
		data.Appendix = append(data.Appendix, unit)
	}

	var buf bytes.Buffer
	if err := flowTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute flow template: %w", err)
	}
	return buf.Bytes(), nil
}

func displayDate(date string) string {
	if date == "" {
		return "N/A"
	}
	return date
}

var flowTemplate = template.Must(template.New("flowdoc").Parse(`<html xmlns:o="urn:schemas-microsoft-com:office:office" xmlns:w="urn:schemas-microsoft-com:office:word">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<!--[if gte mso 9]><xml><w:WordDocument><w:View>Print</w:View></w:WordDocument></xml><![endif]-->
<style>
body { font-family: Georgia, serif; font-size: 12pt; }
h1 { font-size: 20pt; margin-bottom: 2pt; }
h2 { font-size: 14pt; margin-top: 18pt; }
p.meta { color: #666666; font-size: 10pt; }
table.index { border-collapse: collapse; width: 100%; }
table.index th, table.index td { border: 1pt solid #999999; padding: 4pt; font-size: 10pt; text-align: left; vertical-align: top; }
img.appendix { border: 1pt solid #999999; }
br.section-break { page-break-before: always; mso-special-character: line-break; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">{{.Profile.Name}} | born {{.Profile.DateOfBirth}} | {{.Profile.Gender}} | generated {{.GeneratedAt}}</p>

<h2>Medical History</h2>
<p>{{.Report.History}}</p>

<h2>Synthesis</h2>
<p>{{.Report.Synthesis}}</p>

<h2>Observations</h2>
<p>{{.Report.Observations}}</p>

<h2>Document Index</h2>
<table class="index">
<tr><th>#</th><th>Date</th><th>Category</th><th>Summary</th></tr>
{{range .Rows}}<tr><td>{{.Seq}}</td><td>{{.Date}}</td><td>{{.Category}}</td><td>{{.Summary}}{{if .Duplicate}} (duplicate){{end}}</td></tr>
{{end}}</table>

<br class="section-break">
<h2>Appendix</h2>
{{range .Appendix}}<br class="section-break">
<h2>Appendix {{.Seq}}: {{.Filename}}</h2>
<p class="meta">{{.Date}} | {{.Category}}{{if .Duplicate}} | duplicate{{end}}</p>
{{if .ImageSrc}}<img class="appendix" src="{{.ImageSrc}}" alt="{{.Filename}}">
{{else}}<p>{{.Placeholder}}</p>
{{end}}{{end}}</body>
</html>
`))
