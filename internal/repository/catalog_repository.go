package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/sma-merit-api/internal/models"
	appErrors "github.com/noah-isme/sma-merit-api/pkg/errors"
	"github.com/noah-isme/sma-merit-api/pkg/seed"
	"github.com/noah-isme/sma-merit-api/pkg/tablestore"
)

// CatalogRepository reads the students, staff and scoring catalogs.
type CatalogRepository struct {
	store          tablestore.Transport
	absenceKeyword string
}

// NewCatalogRepository constructs a CatalogRepository. Criteria stored without
// an explicit meal flag are flagged when their label contains absenceKeyword.
func NewCatalogRepository(store tablestore.Transport, absenceKeyword string) *CatalogRepository {
	return &CatalogRepository{store: store, absenceKeyword: absenceKeyword}
}

// AbsenceKeyword returns the keyword used to derive meal-affecting criteria.
func (r *CatalogRepository) AbsenceKeyword() string {
	return r.absenceKeyword
}

// Students returns all students in catalog order.
func (r *CatalogRepository) Students(ctx context.Context) ([]models.Student, error) {
	rows, err := r.store.ReadAll(ctx, TableStudents)
	if err != nil {
		return nil, storageErr(err, "read", TableStudents)
	}
	students := make([]models.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, models.Student{
			ID:           row.Get("id"),
			Name:         row.Get("name"),
			Class:        row.Get("class"),
			BoardingType: models.BoardingType(row.Get("boarding_type")),
			Gender:       row.Get("gender"),
		})
	}
	return students, nil
}

// Staff returns all staff members in catalog order.
func (r *CatalogRepository) Staff(ctx context.Context) ([]models.Staff, error) {
	rows, err := r.store.ReadAll(ctx, TableStaff)
	if err != nil {
		return nil, storageErr(err, "read", TableStaff)
	}
	staff := make([]models.Staff, 0, len(rows))
	for _, row := range rows {
		staff = append(staff, models.Staff{
			Username:      row.Get("username"),
			Password:      row.Get("password"),
			FullName:      row.Get("full_name"),
			Role:          models.StaffRole(row.Get("role")),
			HomeroomClass: row.Get("homeroom_class"),
		})
	}
	return staff, nil
}

// Criteria returns the rules of a catalog. When a label repeats, the first
// occurrence wins.
func (r *CatalogRepository) Criteria(ctx context.Context, catalog models.Catalog) ([]models.Criterion, error) {
	table, err := criteriaTable(catalog)
	if err != nil {
		return nil, err
	}
	rows, err := r.store.ReadAll(ctx, table)
	if err != nil {
		return nil, storageErr(err, "read", table)
	}

	seen := make(map[string]struct{}, len(rows))
	criteria := make([]models.Criterion, 0, len(rows))
	for _, row := range rows {
		content := row.Get("content")
		if _, dup := seen[content]; dup {
			continue
		}
		points, err := parseInt(row.Get("points"))
		if err != nil {
			return nil, decodeErr(err, table, row.Seq)
		}
		affects, err := r.affectsMealCount(content, row.Get("affects_meal_count"))
		if err != nil {
			return nil, decodeErr(err, table, row.Seq)
		}
		seen[content] = struct{}{}
		criteria = append(criteria, models.Criterion{
			Content:          content,
			Points:           points,
			AffectsMealCount: affects,
			Catalog:          catalog,
		})
	}
	return criteria, nil
}

// FindCriterion looks up a rule by its exact label.
func (r *CatalogRepository) FindCriterion(ctx context.Context, catalog models.Catalog, content string) (*models.Criterion, error) {
	criteria, err := r.Criteria(ctx, catalog)
	if err != nil {
		return nil, err
	}
	for i := range criteria {
		if criteria[i].Content == content {
			return &criteria[i], nil
		}
	}
	table, _ := criteriaTable(catalog)
	return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("criterion %q not found in %s", content, table))
}

// FindStudent looks up a student by identifier.
func (r *CatalogRepository) FindStudent(ctx context.Context, id string) (*models.Student, error) {
	students, err := r.Students(ctx)
	if err != nil {
		return nil, err
	}
	for i := range students {
		if students[i].ID == id {
			return &students[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %q not found in %s", id, TableStudents))
}

// FindStaff looks up a staff member by username.
func (r *CatalogRepository) FindStaff(ctx context.Context, username string) (*models.Staff, error) {
	staff, err := r.Staff(ctx)
	if err != nil {
		return nil, err
	}
	for i := range staff {
		if staff[i].Username == username {
			return &staff[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("staff %q not found in %s", username, TableStaff))
}

// Classes returns the distinct class labels of enrolled students, sorted.
func (r *CatalogRepository) Classes(ctx context.Context) ([]string, error) {
	students, err := r.Students(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, s := range students {
		if s.Class != "" {
			set[s.Class] = struct{}{}
		}
	}
	classes := make([]string, 0, len(set))
	for c := range set {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	return classes, nil
}

// Provision appends the seed document into every catalog table that is still
// empty and reports how many rows were written. Tables that already hold rows
// are left untouched.
func (r *CatalogRepository) Provision(ctx context.Context, doc *seed.Document) (int, error) {
	if err := doc.Validate(); err != nil {
		return 0, err
	}

	batches := []struct {
		table string
		rows  [][]string
	}{
		{TableStudents, studentRows(doc.Students)},
		{TableStaff, staffRows(doc.Staff)},
		{TableStudentCriteria, criterionRows(doc.StudentCriteria)},
		{TableStaffCriteria, criterionRows(doc.StaffCriteria)},
	}

	empty := make(map[string]bool, len(batches))
	for _, batch := range batches {
		existing, err := r.store.ReadAll(ctx, batch.table)
		if err != nil {
			return 0, storageErr(err, "read", batch.table)
		}
		empty[batch.table] = len(existing) == 0
	}
	if empty[TableStaff] && !empty[TableStudents] {
		if err := r.checkHomerooms(ctx, doc.Staff); err != nil {
			return 0, err
		}
	}

	written := 0
	for _, batch := range batches {
		if !empty[batch.table] {
			continue
		}
		for _, values := range batch.rows {
			if _, err := r.store.AppendRow(ctx, batch.table, values); err != nil {
				return written, storageErr(err, "append", batch.table)
			}
			written++
		}
	}
	return written, nil
}

// checkHomerooms verifies seeded staff against the classes already stored,
// since the seed's own students will not be written.
func (r *CatalogRepository) checkHomerooms(ctx context.Context, staff []models.Staff) error {
	classes, err := r.Classes(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		known[c] = struct{}{}
	}
	for _, s := range staff {
		if s.HomeroomClass == "" {
			continue
		}
		if _, ok := known[s.HomeroomClass]; !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("seed: staff %q homeroom class %q has no students in %s", s.Username, s.HomeroomClass, TableStudents))
		}
	}
	return nil
}

func (r *CatalogRepository) affectsMealCount(content, raw string) (bool, error) {
	if strings.TrimSpace(raw) == "" {
		return MentionsAbsence(content, r.absenceKeyword), nil
	}
	return strconv.ParseBool(strings.TrimSpace(raw))
}

// MentionsAbsence reports whether a criterion label contains the absence keyword.
func MentionsAbsence(content, keyword string) bool {
	if keyword == "" {
		return false
	}
	return strings.Contains(strings.ToLower(content), strings.ToLower(keyword))
}

func criteriaTable(catalog models.Catalog) (string, error) {
	switch catalog {
	case models.CatalogStudent:
		return TableStudentCriteria, nil
	case models.CatalogStaff:
		return TableStaffCriteria, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "unknown catalog "+string(catalog))
}

func studentRows(students []models.Student) [][]string {
	rows := make([][]string, 0, len(students))
	for _, s := range students {
		rows = append(rows, []string{s.ID, s.Name, s.Class, string(s.BoardingType), s.Gender})
	}
	return rows
}

func staffRows(staff []models.Staff) [][]string {
	rows := make([][]string, 0, len(staff))
	for _, s := range staff {
		rows = append(rows, []string{s.Username, s.Password, s.FullName, string(s.Role), s.HomeroomClass})
	}
	return rows
}

func criterionRows(criteria []seed.Criterion) [][]string {
	rows := make([][]string, 0, len(criteria))
	for _, c := range criteria {
		flag := ""
		if c.AffectsMealCount != nil {
			flag = strconv.FormatBool(*c.AffectsMealCount)
		}
		rows = append(rows, []string{c.Content, strconv.Itoa(c.Points), flag})
	}
	return rows
}
