package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-merit-api/internal/dto"
	"github.com/noah-isme/sma-merit-api/internal/models"
	appErrors "github.com/noah-isme/sma-merit-api/pkg/errors"
	"github.com/noah-isme/sma-merit-api/pkg/logger"
	"github.com/noah-isme/sma-merit-api/pkg/storage"
)

type planLog interface {
	Append(ctx context.Context, plan *models.PlanSubmission) (int64, error)
	Query(ctx context.Context, filter models.PlanFilter) ([]models.PlanSubmission, error)
	FindByID(ctx context.Context, id int64) (*models.PlanSubmission, error)
}

type artifactStore interface {
	SaveUpload(originalName string, r io.Reader) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
}

type artifactSigner interface {
	Generate(ownerID int64, name string) (string, time.Time, error)
	Parse(token string) (int64, string, error)
}

// PlanConfig tunes plan submissions.
type PlanConfig struct {
	Weeks        int
	DownloadPath string
}

// PlanService files weekly lesson plans and serves their artifacts.
type PlanService struct {
	plans     planLog
	policy    StatusPolicy
	artifacts artifactStore
	signer    artifactSigner
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       PlanConfig
	now       func() time.Time
}

// NewPlanService constructs a PlanService.
func NewPlanService(plans planLog, policy StatusPolicy, artifacts artifactStore, signer artifactSigner, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg PlanConfig) *PlanService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil {
		policy = AlwaysOnTimePolicy{}
	}
	if cfg.Weeks <= 0 {
		cfg.Weeks = 20
	}
	if cfg.DownloadPath == "" {
		cfg.DownloadPath = "/api/v1/artifacts"
	}
	return &PlanService{
		plans:     plans,
		policy:    policy,
		artifacts: artifacts,
		signer:    signer,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Submit files a lesson plan for the actor's homeroom class. The status is
// computed once, at submission time.
func (s *PlanService) Submit(ctx context.Context, req dto.SubmitPlanRequest, actor models.Staff) (*models.PlanSubmission, error) {
	if err := requireRole(actor, models.RoleHomeroom); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid plan submission payload")
	}
	week, label, err := ParseWeekLabel(req.Week, s.cfg.Weeks)
	if err != nil {
		return nil, err
	}

	submittedAt := s.now().UTC()
	plan := &models.PlanSubmission{
		Week:              label,
		TeacherFullName:   actor.FullName,
		ClassName:         actor.HomeroomClass,
		SubmittedAt:       submittedAt,
		Status:            s.policy.Status(week, submittedAt),
		ArtifactReference: req.ArtifactReference,
		Note:              req.Note,
	}
	if _, err := s.plans.Append(ctx, plan); err != nil {
		return nil, err
	}

	s.metrics.RecordPlanSubmission(plan.Status)
	if err := s.cache.InvalidateAggregations(ctx); err != nil {
		logger.FromContext(ctx, s.logger).Error("aggregation cache not invalidated", zap.Int64("plan_id", plan.ID), zap.Error(err))
	}
	logger.FromContext(ctx, s.logger).Info("lesson plan submitted",
		zap.Int64("plan_id", plan.ID),
		zap.String("teacher", plan.TeacherFullName),
		zap.String("week", plan.Week),
		zap.String("status", string(plan.Status)),
	)
	return plan, nil
}

// SubmitUpload stores an uploaded artifact and files it as a plan. The stored
// file is removed again when the submission is rejected.
func (s *PlanService) SubmitUpload(ctx context.Context, req dto.SubmitPlanRequest, filename string, body io.Reader, actor models.Staff) (*models.PlanSubmission, error) {
	if err := requireRole(actor, models.RoleHomeroom); err != nil {
		return nil, err
	}
	if s.artifacts == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "artifact storage not configured")
	}
	if _, _, err := ParseWeekLabel(req.Week, s.cfg.Weeks); err != nil {
		return nil, err
	}

	name, err := s.artifacts.SaveUpload(filename, body)
	if err != nil {
		if errors.Is(err, storage.ErrExtensionNotAllowed) || errors.Is(err, storage.ErrFileTooLarge) {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store plan artifact")
	}

	req.ArtifactReference = name
	plan, err := s.Submit(ctx, req, actor)
	if err != nil {
		if delErr := s.artifacts.Delete(name); delErr != nil {
			s.logger.Warn("orphaned plan artifact", zap.String("artifact", name), zap.Error(delErr))
		}
		return nil, err
	}
	return plan, nil
}

// ListPlans returns submissions visible to the actor. Homeroom teachers only
// see their own.
func (s *PlanService) ListPlans(ctx context.Context, filter models.PlanFilter, actor models.Staff) ([]models.PlanSubmission, error) {
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleHomeroom:
		filter.Teacher = actor.FullName
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role "+string(actor.Role)+" may not read plan submissions")
	}
	return s.plans.Query(ctx, filter)
}

// ArtifactLink returns a download link for a plan's artifact. External links
// are returned as-is; stored files get a signed, expiring token.
func (s *PlanService) ArtifactLink(ctx context.Context, id int64, actor models.Staff) (*dto.ArtifactLink, error) {
	plan, err := s.plans.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canSeePlan(plan, actor); err != nil {
		return nil, err
	}

	ref := plan.ArtifactReference
	if isExternalReference(ref) {
		return &dto.ArtifactLink{PlanID: plan.ID, URL: ref}, nil
	}
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "artifact signing not configured")
	}
	token, expiresAt, err := s.signer.Generate(plan.ID, ref)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign artifact link")
	}
	return &dto.ArtifactLink{
		PlanID:    plan.ID,
		URL:       fmt.Sprintf("%s/%s", strings.TrimRight(s.cfg.DownloadPath, "/"), token),
		ExpiresAt: &expiresAt,
	}, nil
}

// OpenArtifact resolves a signed token to the stored file. The caller closes
// the returned file.
func (s *PlanService) OpenArtifact(ctx context.Context, token string) (*os.File, string, error) {
	if s.signer == nil || s.artifacts == nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "artifact not found")
	}
	planID, name, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download link")
	}
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, "", err
	}
	if plan.ArtifactReference != name {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "artifact not found")
	}
	file, err := s.artifacts.Open(name)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "artifact not found")
	}
	return file, downloadName(plan, name), nil
}

func canSeePlan(plan *models.PlanSubmission, actor models.Staff) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleHomeroom:
		if plan.TeacherFullName == actor.FullName {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "plan belongs to another teacher")
}

func isExternalReference(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func downloadName(plan *models.PlanSubmission, stored string) string {
	ext := ""
	if idx := strings.LastIndex(stored, "."); idx >= 0 {
		ext = stored[idx:]
	}
	class := plan.ClassName
	if class == "" {
		class = "plan"
	}
	return fmt.Sprintf("%s-%s%s", class, strings.ReplaceAll(plan.Week, " ", ""), ext)
}
