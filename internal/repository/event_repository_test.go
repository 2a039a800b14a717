package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-merit-api/internal/models"
	appErrors "github.com/noah-isme/sma-merit-api/pkg/errors"
	"github.com/noah-isme/sma-merit-api/pkg/tablestore"
)

func appendEvents(t *testing.T, repo *EventRepository, events ...models.ConductEvent) {
	t.Helper()
	for i := range events {
		_, err := repo.Append(context.Background(), &events[i])
		require.NoError(t, err)
	}
}

func TestEventRepositoryAppendAssignsIncreasingIDs(t *testing.T) {
	repo := NewEventRepository(tablestore.NewMemory(Schema()))
	ctx := context.Background()

	first := models.ConductEvent{Kind: models.SubjectStudent, Date: "2024-10-07", SubjectName: "Le Thi Hoa", SubjectClass: "10A1", CriterionContent: "Late Arrival", Points: -2}
	second := first
	id1, err := repo.Append(ctx, &first)
	require.NoError(t, err)
	id2, err := repo.Append(ctx, &second)
	require.NoError(t, err)

	assert.Greater(t, id2, id1)
	assert.Equal(t, id1, first.ID)
	assert.False(t, first.RecordedAt.IsZero())

	events, err := repo.Query(ctx, models.EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, id1, events[0].ID)
	assert.Equal(t, -2, events[1].Points)
}

func TestEventRepositoryQueryFilters(t *testing.T) {
	repo := NewEventRepository(tablestore.NewMemory(Schema()))
	appendEvents(t, repo,
		models.ConductEvent{Kind: models.SubjectStudent, Date: "2024-10-07", ReporterUsername: "gv01", SubjectClass: "10A1", SubjectName: "Le Thi Hoa", CriterionContent: "Absent (Morning)", Points: -5, BoardingType: models.BoardingHalf},
		models.ConductEvent{Kind: models.SubjectStudent, Date: "2024-10-08", ReporterUsername: "gt01", SubjectClass: "10A2", SubjectName: "Tran Van Nam", CriterionContent: "Helping Classmates", Points: 2, BoardingType: models.BoardingTwoShift},
		models.ConductEvent{Kind: models.SubjectStaff, Date: "2024-10-07", ReporterUsername: "admin", SubjectName: "Mr. Tran Minh", CriterionContent: "Missed Duty", Points: -3},
	)
	ctx := context.Background()

	cases := []struct {
		name   string
		filter models.EventFilter
		want   int
	}{
		{"kind", models.EventFilter{Kind: models.SubjectStaff}, 1},
		{"class", models.EventFilter{Class: "10A1"}, 1},
		{"name substring", models.EventFilter{SubjectName: "tran"}, 2},
		{"reporter", models.EventFilter{Reporter: "gt01"}, 1},
		{"date", models.EventFilter{Date: "2024-10-07"}, 2},
		{"criterion substring", models.EventFilter{CriterionContains: "absent"}, 1},
		{"boarding", models.EventFilter{BoardingType: models.BoardingTwoShift}, 1},
		{"combined", models.EventFilter{Kind: models.SubjectStudent, Date: "2024-10-07"}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, err := repo.Query(ctx, tc.filter)
			require.NoError(t, err)
			assert.Len(t, events, tc.want)
		})
	}

	sum, err := repo.SumPoints(ctx, models.EventFilter{Kind: models.SubjectStudent})
	require.NoError(t, err)
	assert.Equal(t, -3, sum)
}

func TestEventRepositoryDecodeFailure(t *testing.T) {
	store := tablestore.NewMemory(Schema())
	_, err := store.AppendRow(context.Background(), TableConductEvents, []string{"2024-10-07", "gv01", "STUDENT", "10A1", "Hoa", "Late Arrival", "minus two", "", "", ""})
	require.NoError(t, err)

	_, err = NewEventRepository(store).Query(context.Background(), models.EventFilter{})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestEventRepositoryAppendStorageFailure(t *testing.T) {
	_, err := NewEventRepository(failingTransport{}).Append(context.Background(), &models.ConductEvent{})
	assert.ErrorIs(t, err, appErrors.ErrStorageUnavailable)
}
