package repository

import (
	"fmt"
	"strconv"

	appErrors "github.com/noah-isme/sma-merit-api/pkg/errors"
	"github.com/noah-isme/sma-merit-api/pkg/tablestore"
)

// Logical tables backing the catalog, ledger and plan log.
const (
	TableStudents        = "students"
	TableStaff           = "staff"
	TableStudentCriteria = "student_criteria"
	TableStaffCriteria   = "staff_criteria"
	TableConductEvents   = "conduct_events"
	TablePlanSubmissions = "plan_submissions"
)

var (
	studentColumns   = []string{"id", "name", "class", "boarding_type", "gender"}
	staffColumns     = []string{"username", "password", "full_name", "role", "homeroom_class"}
	criterionColumns = []string{"content", "points", "affects_meal_count"}
	eventColumns     = []string{"date", "reporter_username", "kind", "subject_class", "subject_name", "criterion_content", "points", "boarding_type", "note", "recorded_at"}
	planColumns      = []string{"week", "teacher_full_name", "class_name", "submitted_at", "status", "artifact_reference", "note"}
)

// Schema declares every table the repositories read and append to.
func Schema() tablestore.Schema {
	return tablestore.NewSchema(
		tablestore.Table{Name: TableStudents, Columns: studentColumns},
		tablestore.Table{Name: TableStaff, Columns: staffColumns},
		tablestore.Table{Name: TableStudentCriteria, Columns: criterionColumns},
		tablestore.Table{Name: TableStaffCriteria, Columns: criterionColumns},
		tablestore.Table{Name: TableConductEvents, Columns: eventColumns},
		tablestore.Table{Name: TablePlanSubmissions, Columns: planColumns},
	)
}

func storageErr(err error, op, table string) error {
	return appErrors.Storage(err, op, table)
}

func decodeErr(err error, table string, seq int64) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("decode %s row %d", table, seq))
}

func parseInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
