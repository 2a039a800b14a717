package dto

import "github.com/noah-isme/sma-merit-api/internal/models"

// RecordStudentEventRequest captures POST /events/students payload.
type RecordStudentEventRequest struct {
	StudentID string `json:"studentId" validate:"required"`
	Criterion string `json:"criterion" validate:"required"`
	Date      string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Note      string `json:"note,omitempty" validate:"max=500"`
}

// RecordStaffEventRequest captures POST /events/staff payload.
type RecordStaffEventRequest struct {
	Username  string `json:"username" validate:"required"`
	Criterion string `json:"criterion" validate:"required"`
	Date      string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Note      string `json:"note,omitempty" validate:"max=500"`
}

// EventQuery binds GET /events filters.
type EventQuery struct {
	Kind         string `form:"kind"`
	Class        string `form:"class"`
	Name         string `form:"name"`
	Reporter     string `form:"reporter"`
	Date         string `form:"date"`
	Criterion    string `form:"criterion"`
	BoardingType string `form:"boardingType"`
	Format       string `form:"format"`
}

// Filter converts the query into a ledger filter.
func (q EventQuery) Filter() models.EventFilter {
	return models.EventFilter{
		Kind:              models.SubjectKind(q.Kind),
		Class:             q.Class,
		SubjectName:       q.Name,
		Reporter:          q.Reporter,
		Date:              q.Date,
		CriterionContains: q.Criterion,
		BoardingType:      models.BoardingType(q.BoardingType),
	}
}

// NetScoreResponse is returned by GET /events/net-score.
type NetScoreResponse struct {
	NetScore int                `json:"netScore"`
	Filter   models.EventFilter `json:"filter"`
}
