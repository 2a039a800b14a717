package models

import "time"

// PlanStatus is the submission status computed when a plan is filed.
type PlanStatus string

const (
	PlanOnTime    PlanStatus = "ON_TIME"
	PlanLate      PlanStatus = "LATE"
	PlanSubmitted PlanStatus = "SUBMITTED"
)

// PlanSubmission records one weekly lesson plan hand-in.
type PlanSubmission struct {
	ID                int64      `json:"id"`
	Week              string     `json:"week"`
	TeacherFullName   string     `json:"teacher_full_name"`
	ClassName         string     `json:"class_name"`
	SubmittedAt       time.Time  `json:"submitted_at"`
	Status            PlanStatus `json:"status"`
	ArtifactReference string     `json:"artifact_reference"`
	Note              string     `json:"note,omitempty"`
}

// PlanFilter narrows plan log queries.
type PlanFilter struct {
	Teacher string
	Class   string
	Status  PlanStatus
	Week    string
}
