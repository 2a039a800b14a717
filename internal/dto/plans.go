package dto

import "time"

// SubmitPlanRequest captures POST /plans payload.
type SubmitPlanRequest struct {
	Week              string `json:"week" form:"week" validate:"required"`
	ArtifactReference string `json:"artifactReference" form:"artifactReference" validate:"required,max=1024"`
	Note              string `json:"note,omitempty" form:"note" validate:"max=500"`
}

// PlanQuery binds GET /plans filters.
type PlanQuery struct {
	Teacher string `form:"teacher"`
	Class   string `form:"class"`
	Status  string `form:"status"`
	Week    string `form:"week"`
}

// ArtifactLink points at a downloadable plan artifact.
type ArtifactLink struct {
	PlanID    int64      `json:"planId"`
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
