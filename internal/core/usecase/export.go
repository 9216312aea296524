package usecase

import (
	"context"
	"strings"

	"medvault/internal/core/domain"
	"medvault/internal/core/ports"
)

// ExportArtifacts is the result of one export pass: both encodings, named
// deterministically from the patient name.
type ExportArtifacts struct {
	PDFName  string
	PDF      []byte
	FlowName string
	Flow     []byte
}

// ExportReportUseCase renders the report into the fixed-page and the
// flow-document encodings. The chronological ordering is computed once here
// and handed to both renderers so index and appendix agree across encodings.
type ExportReportUseCase struct {
	fixedPage ports.ExportRenderer
	flowDoc   ports.ExportRenderer
}

func NewExportReportUseCase(fixedPage, flowDoc ports.ExportRenderer) *ExportReportUseCase {
	return &ExportReportUseCase{fixedPage: fixedPage, flowDoc: flowDoc}
}

func (uc *ExportReportUseCase) Export(
	ctx context.Context,
	profile domain.PatientProfile,
	report domain.Report,
	docs []domain.Document,
) (ExportArtifacts, error) {
	timeline := AssembleTimeline(docs)

	pdfBytes, err := uc.fixedPage.Render(ctx, profile, report, timeline.Ordered)
	if err != nil {
		return ExportArtifacts{}, domain.WrapError(domain.ErrExport, "render fixed-page export", err)
	}

	flowBytes, err := uc.flowDoc.Render(ctx, profile, report, timeline.Ordered)
	if err != nil {
		return ExportArtifacts{}, domain.WrapError(domain.ErrExport, "render flow-document export", err)
	}

	base := exportBaseName(profile.Name)
	return ExportArtifacts{
		PDFName:  base + "_medical_report.pdf",
		PDF:      pdfBytes,
		FlowName: base + "_medical_report.doc",
		Flow:     flowBytes,
	}, nil
}

func exportBaseName(name string) string {
	base := strings.TrimSpace(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "patient"
	}
	return base
}
