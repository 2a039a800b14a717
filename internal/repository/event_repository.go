package repository

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/sma-merit-api/internal/models"
	"github.com/noah-isme/sma-merit-api/pkg/tablestore"
)

// EventRepository is the append-only conduct ledger.
type EventRepository struct {
	store tablestore.Transport
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(store tablestore.Transport) *EventRepository {
	return &EventRepository{store: store}
}

// Append records a conduct event and assigns its identifier.
func (r *EventRepository) Append(ctx context.Context, event *models.ConductEvent) (int64, error) {
	if event.RecordedAt.IsZero() {
		event.RecordedAt = time.Now().UTC()
	}
	values := []string{
		event.Date,
		event.ReporterUsername,
		string(event.Kind),
		event.SubjectClass,
		event.SubjectName,
		event.CriterionContent,
		strconv.Itoa(event.Points),
		string(event.BoardingType),
		event.Note,
		event.RecordedAt.Format(time.RFC3339Nano),
	}
	seq, err := r.store.AppendRow(ctx, TableConductEvents, values)
	if err != nil {
		return 0, storageErr(err, "append", TableConductEvents)
	}
	event.ID = seq
	return seq, nil
}

// Query returns events matching the filter in append order.
func (r *EventRepository) Query(ctx context.Context, filter models.EventFilter) ([]models.ConductEvent, error) {
	rows, err := r.store.ReadAll(ctx, TableConductEvents)
	if err != nil {
		return nil, storageErr(err, "read", TableConductEvents)
	}

	events := make([]models.ConductEvent, 0, len(rows))
	for _, row := range rows {
		event, err := decodeEvent(row)
		if err != nil {
			return nil, decodeErr(err, TableConductEvents, row.Seq)
		}
		if matchesEvent(event, filter) {
			events = append(events, event)
		}
	}
	return events, nil
}

// SumPoints returns the net score of the events matching the filter.
func (r *EventRepository) SumPoints(ctx context.Context, filter models.EventFilter) (int, error) {
	events, err := r.Query(ctx, filter)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, e := range events {
		total += e.Points
	}
	return total, nil
}

func decodeEvent(row tablestore.Row) (models.ConductEvent, error) {
	points, err := parseInt(row.Get("points"))
	if err != nil {
		return models.ConductEvent{}, err
	}
	kind := models.SubjectKind(row.Get("kind"))
	if kind == "" {
		kind = models.SubjectStudent
	}
	event := models.ConductEvent{
		ID:               row.Seq,
		Kind:             kind,
		Date:             row.Get("date"),
		ReporterUsername: row.Get("reporter_username"),
		SubjectClass:     row.Get("subject_class"),
		SubjectName:      row.Get("subject_name"),
		CriterionContent: row.Get("criterion_content"),
		Points:           points,
		BoardingType:     models.BoardingType(row.Get("boarding_type")),
		Note:             row.Get("note"),
	}
	if raw := row.Get("recorded_at"); raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			event.RecordedAt = ts
		}
	}
	return event, nil
}

func matchesEvent(e models.ConductEvent, f models.EventFilter) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Class != "" && e.SubjectClass != f.Class {
		return false
	}
	if f.Reporter != "" && e.ReporterUsername != f.Reporter {
		return false
	}
	if f.Date != "" && e.Date != f.Date {
		return false
	}
	if f.BoardingType != "" && e.BoardingType != f.BoardingType {
		return false
	}
	if f.SubjectName != "" && !containsFold(e.SubjectName, f.SubjectName) {
		return false
	}
	if f.CriterionContains != "" && !containsFold(e.CriterionContent, f.CriterionContains) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
