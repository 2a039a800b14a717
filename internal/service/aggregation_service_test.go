package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-merit-api/internal/dto"
	"github.com/noah-isme/sma-merit-api/internal/models"
	"github.com/noah-isme/sma-merit-api/internal/repository"
	appErrors "github.com/noah-isme/sma-merit-api/pkg/errors"
	"github.com/noah-isme/sma-merit-api/pkg/seed"
	"github.com/noah-isme/sma-merit-api/pkg/tablestore"
)

func TestClassRankingScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appendRaw(t, f, models.ConductEvent{Kind: models.SubjectStudent, SubjectClass: "10A1", Points: -5, CriterionContent: "Absent (Morning)"})
	appendRaw(t, f, models.ConductEvent{Kind: models.SubjectStudent, SubjectClass: "10A1", Points: 3, CriterionContent: "Helping Classmates"})
	appendRaw(t, f, models.ConductEvent{Kind: models.SubjectStudent, SubjectClass: "10A2", Points: 1, CriterionContent: "Helping Classmates"})

	ranking, cached, err := f.agg.ClassRanking(ctx)
	require.NoError(t, err)
	assert.False(t, cached)

	classes := make([]string, 0, len(ranking))
	for _, r := range ranking {
		classes = append(classes, r.Class)
	}
	assert.Equal(t, []string{"10A2", "11A1", "12A1", "10A1"}, classes)
	assert.Equal(t, 1, ranking[0].NetScore)
	assert.Equal(t, -2, ranking[3].NetScore)
	assert.Equal(t, 4, ranking[3].Rank)
	assert.Equal(t, 2, ranking[3].Events)
}

func TestClassRankingIncludesClassesOnlyInLedger(t *testing.T) {
	f := newFixture(t)
	appendRaw(t, f, models.ConductEvent{Kind: models.SubjectStudent, SubjectClass: "9Z", Points: 4})

	ranking, _, err := f.agg.ClassRanking(context.Background())
	require.NoError(t, err)
	require.Len(t, ranking, 5)
	assert.Equal(t, "9Z", ranking[0].Class)
}

func TestAggregationCacheInvalidatedByAppend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, cached, err := f.agg.ClassRanking(ctx)
	require.NoError(t, err)
	assert.False(t, cached)
	_, cached, err = f.agg.ClassRanking(ctx)
	require.NoError(t, err)
	assert.True(t, cached)

	_, err = f.ledger.RecordStudentEvent(ctx, dto.RecordStudentEventRequest{StudentID: "HS003", Criterion: "Helping Classmates"}, proctorActor)
	require.NoError(t, err)
	assert.Positive(t, f.cacheRepo.evicted)

	ranking, cached, err := f.agg.ClassRanking(ctx)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "10A2", ranking[0].Class)
	assert.Equal(t, 2, ranking[0].NetScore)
}

type pausedEvents struct {
	aggregationEvents
	once    sync.Once
	reached chan struct{}
	release chan struct{}
}

func (p *pausedEvents) Query(ctx context.Context, filter models.EventFilter) ([]models.ConductEvent, error) {
	events, err := p.aggregationEvents.Query(ctx, filter)
	p.once.Do(func() {
		close(p.reached)
		<-p.release
	})
	return events, err
}

func TestAggregationCacheIgnoresResultComputedBeforeAppend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	paused := &pausedEvents{aggregationEvents: f.events, reached: make(chan struct{}), release: make(chan struct{})}
	reader := NewAggregationService(f.catalog, paused, f.plans, f.cache, nil, "Absent", f.agg.location)

	done := make(chan error, 1)
	go func() {
		_, _, err := reader.ClassRanking(ctx)
		done <- err
	}()
	<-paused.reached

	_, err := f.ledger.RecordStudentEvent(ctx, dto.RecordStudentEventRequest{StudentID: "HS003", Criterion: "Helping Classmates"}, proctorActor)
	require.NoError(t, err)
	close(paused.release)
	require.NoError(t, <-done)

	ranking, cached, err := f.agg.ClassRanking(ctx)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "10A2", ranking[0].Class)
	assert.Equal(t, 2, ranking[0].NetScore)

	_, cached, err = f.agg.ClassRanking(ctx)
	require.NoError(t, err)
	assert.True(t, cached)
}

func TestTeacherStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appendRaw(t, f, models.ConductEvent{Kind: models.SubjectStudent, SubjectClass: "10A1", Points: -5})
	appendRaw(t, f, models.ConductEvent{Kind: models.SubjectStudent, SubjectClass: "11A1", Points: 2})
	for _, p := range []models.PlanSubmission{
		{Week: "Week 1", TeacherFullName: "Ms. Nguyen Thi Lan", Status: models.PlanLate},
		{Week: "Week 2", TeacherFullName: "Ms. Nguyen Thi Lan", Status: models.PlanLate},
		{Week: "Week 1", TeacherFullName: "Mr. Tran Minh", Status: models.PlanOnTime},
	} {
		plan := p
		_, err := f.plans.Append(ctx, &plan)
		require.NoError(t, err)
	}

	stats, _, err := f.agg.TeacherStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 4)

	byUser := make(map[string]models.TeacherStat)
	for _, s := range stats {
		byUser[s.Username] = s
	}
	assert.NotContains(t, byUser, "admin")
	assert.Equal(t, 2, byUser["gv01"].LateSubmissions)
	assert.Equal(t, -5, byUser["gv01"].ClassDeduction)
	assert.Equal(t, 0, byUser["gv02"].LateSubmissions)
	assert.Equal(t, 2, byUser["gv02"].ClassDeduction)
	assert.Equal(t, 0, byUser["gt01"].ClassDeduction)
	assert.Equal(t, "gv01", stats[0].Username)
}

func TestMealCountScenario(t *testing.T) {
	store := tablestore.NewMemory(repository.Schema())
	catalog := repository.NewCatalogRepository(store, "Absent")
	flag := true
	doc := &seed.Document{StudentCriteria: []seed.Criterion{
		{Content: "Absent (Morning)", Points: -5, AffectsMealCount: &flag},
		{Content: "Late Arrival", Points: -2},
	}}
	for i := 0; i < 150; i++ {
		doc.Students = append(doc.Students, models.Student{ID: fmt.Sprintf("B%03d", i), Name: "Boarder", Class: "10A1", BoardingType: models.BoardingFull})
	}
	doc.Students = append(doc.Students, models.Student{ID: "H001", Name: "Half", Class: "10A1", BoardingType: models.BoardingHalf})
	_, err := catalog.Provision(context.Background(), doc)
	require.NoError(t, err)

	events := repository.NewEventRepository(store)
	agg := NewAggregationService(catalog, events, repository.NewPlanRepository(store), nil, nil, "Absent", nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := events.Append(ctx, &models.ConductEvent{Kind: models.SubjectStudent, Date: "2024-10-07", CriterionContent: "Absent (Morning)", BoardingType: models.BoardingFull, Points: -5})
		require.NoError(t, err)
	}
	_, err = events.Append(ctx, &models.ConductEvent{Kind: models.SubjectStudent, Date: "2024-10-07", CriterionContent: "Late Arrival", BoardingType: models.BoardingFull, Points: -2})
	require.NoError(t, err)
	_, err = events.Append(ctx, &models.ConductEvent{Kind: models.SubjectStudent, Date: "2024-10-06", CriterionContent: "Absent (Morning)", BoardingType: models.BoardingFull, Points: -5})
	require.NoError(t, err)

	report, _, err := agg.MealCount(ctx, "2024-10-07")
	require.NoError(t, err)
	require.Len(t, report.Counts, 3)
	assert.Equal(t, models.BoardingFull, report.Counts[0].BoardingType)
	assert.Equal(t, 150, report.Counts[0].Enrolled)
	assert.Equal(t, 3, report.Counts[0].AbsentToday)
	assert.Equal(t, 147, report.Counts[0].Meals)
	assert.Equal(t, 1, report.Counts[1].Meals)
	assert.Equal(t, 0, report.Counts[2].Meals)
	assert.Equal(t, 148, report.Total.Meals)
}

func TestMealCountCanGoNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		appendRaw(t, f, models.ConductEvent{Kind: models.SubjectStudent, Date: "2024-10-07", CriterionContent: "Absent (Afternoon)", BoardingType: models.BoardingTwoShift, Points: -5})
	}
	appendRaw(t, f, models.ConductEvent{Kind: models.SubjectStudent, Date: "2024-10-07", CriterionContent: "Absent (retired label)", BoardingType: models.BoardingHalf, Points: -1})

	report, _, err := f.agg.MealCount(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2024-10-07", report.Date)
	assert.Equal(t, 1, report.Counts[2].Enrolled)
	assert.Equal(t, -2, report.Counts[2].Meals)
	assert.Equal(t, 1, report.Counts[1].AbsentToday)

	_, _, err = f.agg.MealCount(ctx, "yesterday")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func appendRaw(t *testing.T, f *fixture, event models.ConductEvent) {
	t.Helper()
	_, err := f.events.Append(context.Background(), &event)
	require.NoError(t, err)
}
