package models

import "time"

// DateLayout is the calendar-day format used for event dates.
const DateLayout = "2006-01-02"

// SubjectKind distinguishes student and staff conduct events.
type SubjectKind string

const (
	SubjectStudent SubjectKind = "STUDENT"
	SubjectStaff   SubjectKind = "STAFF"
)

// Catalog returns the scoring catalog that applies to the subject kind.
func (k SubjectKind) Catalog() Catalog {
	if k == SubjectStaff {
		return CatalogStaff
	}
	return CatalogStudent
}

// ConductEvent is a single recorded commendation or demerit. Points, class and
// boarding type are snapshots taken at write time.
type ConductEvent struct {
	ID               int64        `json:"id"`
	Kind             SubjectKind  `json:"kind"`
	Date             string       `json:"date"`
	ReporterUsername string       `json:"reporter_username"`
	SubjectClass     string       `json:"subject_class,omitempty"`
	SubjectName      string       `json:"subject_name"`
	CriterionContent string       `json:"criterion"`
	Points           int          `json:"points"`
	BoardingType     BoardingType `json:"boarding_type,omitempty"`
	Note             string       `json:"note,omitempty"`
	RecordedAt       time.Time    `json:"recorded_at"`
}

// EventFilter narrows ledger queries. Empty fields match everything.
type EventFilter struct {
	Kind              SubjectKind
	Class             string
	SubjectName       string
	Reporter          string
	Date              string
	CriterionContains string
	BoardingType      BoardingType
}
