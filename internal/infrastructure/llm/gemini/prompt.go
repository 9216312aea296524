package gemini

import "fmt"

func classificationInstruction(count int) string {
	return fmt.Sprintf(`You are a medical document classifier.
You receive %d documents in order. Return a strict JSON array with exactly %d elements, one per document, in the same order.
Each element is an object with keys:
date (string "YYYY-MM-DD" of the document, omit or empty string when no date is present),
category (one of: "lab result", "imaging study", "prescription", "clinical note", "other"),
summary (one sentence describing the document),
duplicate (boolean, true when the document's content duplicates an earlier document in this request),
duplicate_of (integer index of the duplicated document, only when duplicate is true).
No markdown, no extra keys, no commentary.`, count, count)
}

func synthesisInstruction(timeline string) string {
	return fmt.Sprintf(`You are a physician writing a structured medical report.
Below is a patient's chronological record, one document per line in the form date|category|summary ("Unknown" means the date is not known).

%s

Return a strict JSON object with exactly three string keys:
history (the medical history narrative),
summary (a synthesis of the current state),
prognosis (observations and outlook).
No markdown, no extra keys.`, timeline)
}
