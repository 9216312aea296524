package usecase

import (
	"context"
	"strings"

	"medvault/internal/core/domain"
	"medvault/internal/core/ports"
)

// UnknownDateSentinel replaces an absent date in the serialized timeline so
// the synthesis service sees an explicit marker rather than an empty field.
const UnknownDateSentinel = "Unknown"

// SynthesizeReportUseCase serializes the active timeline and obtains the
// three-part narrative from the synthesis service.
type SynthesizeReportUseCase struct {
	synthesizer ports.Synthesizer
}

func NewSynthesizeReportUseCase(synthesizer ports.Synthesizer) *SynthesizeReportUseCase {
	return &SynthesizeReportUseCase{synthesizer: synthesizer}
}

// SerializeTimeline renders one `date|category|summary` line per document in
// the order given. Callers pass Timeline.Active so duplicates are already
// filtered and the order is final.
func SerializeTimeline(docs []domain.Document) string {
	var b strings.Builder
	for i, doc := range docs {
		if i > 0 {
			b.WriteByte('\n')
		}
		date := doc.Date
		if date == "" {
			date = UnknownDateSentinel
		}
		b.WriteString(date)
		b.WriteByte('|')
		b.WriteString(string(doc.Category))
		b.WriteByte('|')
		b.WriteString(doc.Summary)
	}
	return b.String()
}

func (uc *SynthesizeReportUseCase) SynthesizeReport(ctx context.Context, docs []domain.Document) (domain.Report, error) {
	timeline := AssembleTimeline(docs)
	serialized := SerializeTimeline(timeline.Active)

	report, err := uc.synthesizer.Synthesize(ctx, serialized)
	if err != nil {
		return domain.Report{}, domain.WrapError(domain.ErrSynthesis, "synthesize report", err)
	}
	return report, nil
}
