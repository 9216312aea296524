package domain

// Gender is the closed set used by the patient profile.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// PatientProfile identifies the person the record belongs to. It is created
// once at session start, persisted independently of documents, and replaced
// wholesale, never mutated field by field.
type PatientProfile struct {
	Name        string `yaml:"name" json:"name"`
	DateOfBirth string `yaml:"date_of_birth" json:"date_of_birth"`
	Gender      Gender `yaml:"gender" json:"gender"`
}

// Report is the three-part narrative returned by the synthesis service.
// It is immutable and never persisted; a new one is generated on demand from
// the current document set.
type Report struct {
	History      string `json:"history"`
	Synthesis    string `json:"synthesis"`
	Observations string `json:"observations"`
}
