package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-merit-api/internal/dto"
	"github.com/noah-isme/sma-merit-api/internal/models"
	appErrors "github.com/noah-isme/sma-merit-api/pkg/errors"
	"github.com/noah-isme/sma-merit-api/pkg/logger"
)

type ledgerCatalog interface {
	FindStudent(ctx context.Context, id string) (*models.Student, error)
	FindStaff(ctx context.Context, username string) (*models.Staff, error)
}

type eventLedger interface {
	Append(ctx context.Context, event *models.ConductEvent) (int64, error)
	Query(ctx context.Context, filter models.EventFilter) ([]models.ConductEvent, error)
	SumPoints(ctx context.Context, filter models.EventFilter) (int, error)
}

type criterionResolver interface {
	Criterion(ctx context.Context, catalog models.Catalog, content string) (*models.Criterion, error)
}

// LedgerService records and reads conduct events on behalf of signed-in staff.
type LedgerService struct {
	catalog   ledgerCatalog
	events    eventLedger
	resolver  criterionResolver
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time
}

// NewLedgerService constructs a LedgerService. Event dates default to the
// current day in location.
func NewLedgerService(catalog ledgerCatalog, events eventLedger, resolver criterionResolver, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, location *time.Location) *LedgerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &LedgerService{
		catalog:   catalog,
		events:    events,
		resolver:  resolver,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		location:  location,
		now:       time.Now,
	}
}

// RecordStudentEvent appends a conduct event for a student. Homeroom teachers
// may only record for their own class.
func (s *LedgerService) RecordStudentEvent(ctx context.Context, req dto.RecordStudentEventRequest, actor models.Staff) (*models.ConductEvent, error) {
	if err := requireRole(actor, models.RoleAdmin, models.RoleHomeroom, models.RoleProctor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student event payload")
	}

	student, err := s.catalog.FindStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleHomeroom && student.Class != actor.HomeroomClass {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "homeroom teachers may only record events for their own class")
	}

	criterion, err := s.resolver.Criterion(ctx, models.CatalogStudent, req.Criterion)
	if err != nil {
		return nil, err
	}

	event := &models.ConductEvent{
		Kind:             models.SubjectStudent,
		Date:             s.eventDate(req.Date),
		ReporterUsername: actor.Username,
		SubjectClass:     student.Class,
		SubjectName:      student.Name,
		CriterionContent: criterion.Content,
		Points:           criterion.Points,
		BoardingType:     student.BoardingType,
		Note:             req.Note,
	}
	return s.append(ctx, event)
}

// RecordStaffEvent appends a conduct event against a staff member. Only
// administrators may evaluate staff.
func (s *LedgerService) RecordStaffEvent(ctx context.Context, req dto.RecordStaffEventRequest, actor models.Staff) (*models.ConductEvent, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid staff event payload")
	}

	subject, err := s.catalog.FindStaff(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	criterion, err := s.resolver.Criterion(ctx, models.CatalogStaff, req.Criterion)
	if err != nil {
		return nil, err
	}

	event := &models.ConductEvent{
		Kind:             models.SubjectStaff,
		Date:             s.eventDate(req.Date),
		ReporterUsername: actor.Username,
		SubjectName:      subject.FullName,
		CriterionContent: criterion.Content,
		Points:           criterion.Points,
		Note:             req.Note,
	}
	return s.append(ctx, event)
}

// ListEvents returns ledger entries visible to the actor.
func (s *LedgerService) ListEvents(ctx context.Context, filter models.EventFilter, actor models.Staff) ([]models.ConductEvent, error) {
	scoped, err := scopeEventFilter(filter, actor)
	if err != nil {
		return nil, err
	}
	return s.events.Query(ctx, scoped)
}

// NetScore sums the signed points of the events visible to the actor.
func (s *LedgerService) NetScore(ctx context.Context, filter models.EventFilter, actor models.Staff) (int, models.EventFilter, error) {
	scoped, err := scopeEventFilter(filter, actor)
	if err != nil {
		return 0, filter, err
	}
	total, err := s.events.SumPoints(ctx, scoped)
	if err != nil {
		return 0, scoped, err
	}
	return total, scoped, nil
}

func (s *LedgerService) append(ctx context.Context, event *models.ConductEvent) (*models.ConductEvent, error) {
	event.RecordedAt = s.now().UTC()
	if _, err := s.events.Append(ctx, event); err != nil {
		return nil, err
	}
	s.metrics.RecordLedgerEvent(event.Kind, event.Points)
	if err := s.cache.InvalidateAggregations(ctx); err != nil {
		logger.FromContext(ctx, s.logger).Error("aggregation cache not invalidated", zap.Int64("event_id", event.ID), zap.Error(err))
	}

	logger.FromContext(ctx, s.logger).Info("conduct event recorded",
		zap.Int64("event_id", event.ID),
		zap.String("kind", string(event.Kind)),
		zap.String("reporter", event.ReporterUsername),
		zap.String("subject", event.SubjectName),
		zap.String("class", event.SubjectClass),
		zap.String("criterion", event.CriterionContent),
		zap.Int("points", event.Points),
	)
	return event, nil
}

func (s *LedgerService) eventDate(requested string) string {
	if requested != "" {
		return requested
	}
	return s.now().In(s.location).Format(models.DateLayout)
}

// scopeEventFilter pins homeroom teachers to their class. Staff events are
// visible to administrators only.
func scopeEventFilter(filter models.EventFilter, actor models.Staff) (models.EventFilter, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return filter, nil
	case models.RoleHomeroom, models.RoleProctor:
	default:
		return filter, appErrors.Clone(appErrors.ErrForbidden, "role "+string(actor.Role)+" may not read the ledger")
	}

	if filter.Kind == models.SubjectStaff {
		return filter, appErrors.Clone(appErrors.ErrForbidden, "staff evaluations are restricted to administrators")
	}
	filter.Kind = models.SubjectStudent
	if actor.Role == models.RoleHomeroom {
		if actor.HomeroomClass == "" {
			return filter, appErrors.Clone(appErrors.ErrForbidden, "no homeroom class assigned")
		}
		if filter.Class != "" && filter.Class != actor.HomeroomClass {
			return filter, appErrors.Clone(appErrors.ErrForbidden, "homeroom teachers may only read their own class")
		}
		filter.Class = actor.HomeroomClass
	}
	return filter, nil
}
