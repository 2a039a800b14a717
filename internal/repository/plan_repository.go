package repository

import (
	"context"
	"time"

	"github.com/noah-isme/sma-merit-api/internal/models"
	appErrors "github.com/noah-isme/sma-merit-api/pkg/errors"
	"github.com/noah-isme/sma-merit-api/pkg/tablestore"
)

// PlanRepository is the append-only lesson plan submission log.
type PlanRepository struct {
	store tablestore.Transport
}

// NewPlanRepository constructs a PlanRepository.
func NewPlanRepository(store tablestore.Transport) *PlanRepository {
	return &PlanRepository{store: store}
}

// Append stores a submission and assigns its identifier.
func (r *PlanRepository) Append(ctx context.Context, plan *models.PlanSubmission) (int64, error) {
	values := []string{
		plan.Week,
		plan.TeacherFullName,
		plan.ClassName,
		plan.SubmittedAt.Format(time.RFC3339),
		string(plan.Status),
		plan.ArtifactReference,
		plan.Note,
	}
	seq, err := r.store.AppendRow(ctx, TablePlanSubmissions, values)
	if err != nil {
		return 0, storageErr(err, "append", TablePlanSubmissions)
	}
	plan.ID = seq
	return seq, nil
}

// Query returns submissions matching the filter in append order.
func (r *PlanRepository) Query(ctx context.Context, filter models.PlanFilter) ([]models.PlanSubmission, error) {
	rows, err := r.store.ReadAll(ctx, TablePlanSubmissions)
	if err != nil {
		return nil, storageErr(err, "read", TablePlanSubmissions)
	}

	plans := make([]models.PlanSubmission, 0, len(rows))
	for _, row := range rows {
		plan, err := decodePlan(row)
		if err != nil {
			return nil, decodeErr(err, TablePlanSubmissions, row.Seq)
		}
		if filter.Teacher != "" && plan.TeacherFullName != filter.Teacher {
			continue
		}
		if filter.Class != "" && plan.ClassName != filter.Class {
			continue
		}
		if filter.Status != "" && plan.Status != filter.Status {
			continue
		}
		if filter.Week != "" && plan.Week != filter.Week {
			continue
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// FindByID returns a single submission.
func (r *PlanRepository) FindByID(ctx context.Context, id int64) (*models.PlanSubmission, error) {
	plans, err := r.Query(ctx, models.PlanFilter{})
	if err != nil {
		return nil, err
	}
	for i := range plans {
		if plans[i].ID == id {
			return &plans[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "plan submission not found")
}

func decodePlan(row tablestore.Row) (models.PlanSubmission, error) {
	plan := models.PlanSubmission{
		ID:                row.Seq,
		Week:              row.Get("week"),
		TeacherFullName:   row.Get("teacher_full_name"),
		ClassName:         row.Get("class_name"),
		Status:            models.PlanStatus(row.Get("status")),
		ArtifactReference: row.Get("artifact_reference"),
		Note:              row.Get("note"),
	}
	if raw := row.Get("submitted_at"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return models.PlanSubmission{}, err
		}
		plan.SubmittedAt = ts
	}
	return plan, nil
}
