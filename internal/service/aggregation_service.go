package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-merit-api/internal/models"
	appErrors "github.com/noah-isme/sma-merit-api/pkg/errors"
)

type aggregationCatalog interface {
	Students(ctx context.Context) ([]models.Student, error)
	Staff(ctx context.Context) ([]models.Staff, error)
	Classes(ctx context.Context) ([]string, error)
	Criteria(ctx context.Context, catalog models.Catalog) ([]models.Criterion, error)
}

type aggregationEvents interface {
	Query(ctx context.Context, filter models.EventFilter) ([]models.ConductEvent, error)
}

type aggregationPlans interface {
	Query(ctx context.Context, filter models.PlanFilter) ([]models.PlanSubmission, error)
}

// AggregationService computes rankings, teacher statistics and meal counts
// from the catalog and the ledger, optionally through the Redis cache.
type AggregationService struct {
	catalog        aggregationCatalog
	events         aggregationEvents
	plans          aggregationPlans
	cache          *CacheService
	logger         *zap.Logger
	absenceKeyword string
	location       *time.Location
	now            func() time.Time
}

// NewAggregationService constructs an AggregationService. Events whose
// criterion is no longer in the catalog count as absences when their label
// contains absenceKeyword.
func NewAggregationService(catalog aggregationCatalog, events aggregationEvents, plans aggregationPlans, cache *CacheService, logger *zap.Logger, absenceKeyword string, location *time.Location) *AggregationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &AggregationService{
		catalog:        catalog,
		events:         events,
		plans:          plans,
		cache:          cache,
		logger:         logger,
		absenceKeyword: absenceKeyword,
		location:       location,
		now:            time.Now,
	}
}

// ClassRanking returns every known class ranked by net score. The boolean
// indicates whether the data originated from cache.
func (s *AggregationService) ClassRanking(ctx context.Context) ([]models.ClassScore, bool, error) {
	var ranking []models.ClassScore
	hit, err := s.cached(ctx, []string{"ranking"}, &ranking, func() (interface{}, error) {
		r, err := s.computeRanking(ctx)
		ranking = r
		return r, err
	})
	return ranking, hit, err
}

// TeacherStats returns late submissions and class net score per non-admin
// staff member, in catalog order.
func (s *AggregationService) TeacherStats(ctx context.Context) ([]models.TeacherStat, bool, error) {
	var stats []models.TeacherStat
	hit, err := s.cached(ctx, []string{"teachers"}, &stats, func() (interface{}, error) {
		r, err := s.computeTeacherStats(ctx)
		stats = r
		return r, err
	})
	return stats, hit, err
}

// MealCount returns the meals to prepare per boarding type on date. An empty
// date means today in the configured timezone.
func (s *AggregationService) MealCount(ctx context.Context, date string) (*models.MealReport, bool, error) {
	if date == "" {
		date = s.now().In(s.location).Format(models.DateLayout)
	} else if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
	}

	var report models.MealReport
	hit, err := s.cached(ctx, []string{"meals", date}, &report, func() (interface{}, error) {
		r, err := s.computeMealCount(ctx, date)
		if r != nil {
			report = *r
		}
		return r, err
	})
	if err != nil {
		return nil, false, err
	}
	return &report, hit, nil
}

// cached serves a projection keyed by the generation read before computing.
// An append that lands mid-computation bumps the generation, so the stale
// result is stored under a key no later read will ask for.
func (s *AggregationService) cached(ctx context.Context, parts []string, dest interface{}, compute func() (interface{}, error)) (bool, error) {
	generation, ok := s.cache.AggregationGeneration(ctx)
	if !ok {
		_, err := compute()
		return false, err
	}
	key := makeAggregationCacheKey(append([]string{strconv.FormatInt(generation, 10)}, parts...)...)
	if hit, err := s.cache.Get(ctx, key, dest); err == nil && hit {
		return true, nil
	}
	value, err := compute()
	if err != nil {
		return false, err
	}
	if current, ok := s.cache.AggregationGeneration(ctx); !ok || current != generation {
		return false, nil
	}
	if err := s.cache.Set(ctx, key, value, 0); err != nil {
		s.logger.Warn("cache aggregation", zap.String("key", key), zap.Error(err))
	}
	return false, nil
}

func (s *AggregationService) computeRanking(ctx context.Context) ([]models.ClassScore, error) {
	classes, err := s.catalog.Classes(ctx)
	if err != nil {
		return nil, err
	}
	events, err := s.events.Query(ctx, models.EventFilter{Kind: models.SubjectStudent})
	if err != nil {
		return nil, err
	}

	scores := make(map[string]*models.ClassScore, len(classes))
	for _, class := range classes {
		scores[class] = &models.ClassScore{Class: class}
	}
	for _, e := range events {
		if e.SubjectClass == "" {
			continue
		}
		row, ok := scores[e.SubjectClass]
		if !ok {
			row = &models.ClassScore{Class: e.SubjectClass}
			scores[e.SubjectClass] = row
		}
		row.NetScore += e.Points
		row.Events++
	}

	ranking := make([]models.ClassScore, 0, len(scores))
	for _, row := range scores {
		ranking = append(ranking, *row)
	}
	sort.Slice(ranking, func(i, j int) bool { return ranking[i].Class < ranking[j].Class })
	sort.SliceStable(ranking, func(i, j int) bool { return ranking[i].NetScore > ranking[j].NetScore })
	for i := range ranking {
		ranking[i].Rank = i + 1
	}
	return ranking, nil
}

func (s *AggregationService) computeTeacherStats(ctx context.Context) ([]models.TeacherStat, error) {
	staff, err := s.catalog.Staff(ctx)
	if err != nil {
		return nil, err
	}
	late, err := s.plans.Query(ctx, models.PlanFilter{Status: models.PlanLate})
	if err != nil {
		return nil, err
	}
	events, err := s.events.Query(ctx, models.EventFilter{Kind: models.SubjectStudent})
	if err != nil {
		return nil, err
	}

	lateByTeacher := make(map[string]int)
	for _, p := range late {
		lateByTeacher[p.TeacherFullName]++
	}
	scoreByClass := make(map[string]int)
	for _, e := range events {
		scoreByClass[e.SubjectClass] += e.Points
	}

	stats := make([]models.TeacherStat, 0, len(staff))
	for _, member := range staff {
		if member.Role == models.RoleAdmin {
			continue
		}
		stat := models.TeacherStat{
			Username:        member.Username,
			FullName:        member.FullName,
			Role:            member.Role,
			HomeroomClass:   member.HomeroomClass,
			LateSubmissions: lateByTeacher[member.FullName],
		}
		if member.HomeroomClass != "" {
			stat.ClassDeduction = scoreByClass[member.HomeroomClass]
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

func (s *AggregationService) computeMealCount(ctx context.Context, date string) (*models.MealReport, error) {
	students, err := s.catalog.Students(ctx)
	if err != nil {
		return nil, err
	}
	criteria, err := s.catalog.Criteria(ctx, models.CatalogStudent)
	if err != nil {
		return nil, err
	}
	events, err := s.events.Query(ctx, models.EventFilter{Kind: models.SubjectStudent, Date: date})
	if err != nil {
		return nil, err
	}

	flagged := make(map[string]bool, len(criteria))
	for _, c := range criteria {
		flagged[c.Content] = c.AffectsMealCount
	}

	enrolled := make(map[models.BoardingType]int)
	for _, st := range students {
		enrolled[st.BoardingType]++
	}
	absent := make(map[models.BoardingType]int)
	for _, e := range events {
		if s.affectsMeals(e.CriterionContent, flagged) {
			absent[e.BoardingType]++
		}
	}

	report := &models.MealReport{Date: date, Total: models.MealCount{BoardingType: "TOTAL"}}
	for _, bt := range models.BoardingTypes {
		row := models.MealCount{
			BoardingType: bt,
			Enrolled:     enrolled[bt],
			AbsentToday:  absent[bt],
			Meals:        enrolled[bt] - absent[bt],
		}
		if row.Meals < 0 {
			s.logger.Warn("meal count below zero",
				zap.String("date", date),
				zap.String("boarding_type", string(bt)),
				zap.Int("enrolled", row.Enrolled),
				zap.Int("absent", row.AbsentToday),
			)
		}
		report.Counts = append(report.Counts, row)
		report.Total.Enrolled += row.Enrolled
		report.Total.AbsentToday += row.AbsentToday
		report.Total.Meals += row.Meals
	}
	return report, nil
}

func (s *AggregationService) affectsMeals(content string, flagged map[string]bool) bool {
	if flag, ok := flagged[content]; ok {
		return flag
	}
	return s.absenceKeyword != "" && strings.Contains(strings.ToLower(content), strings.ToLower(s.absenceKeyword))
}

func makeAggregationCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.WriteString("aggregation")
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}

// ProjectionName validates a report name used by the CLI and exports.
func ProjectionName(raw string) (string, error) {
	switch strings.ToLower(raw) {
	case "ranking", "class-ranking":
		return "ranking", nil
	case "teachers", "teacher-stats":
		return "teachers", nil
	case "meals", "meal-count":
		return "meals", nil
	}
	return "", fmt.Errorf("unknown report %q", raw)
}
