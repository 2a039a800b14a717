package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-merit-api/internal/models"
	appErrors "github.com/noah-isme/sma-merit-api/pkg/errors"
	"github.com/noah-isme/sma-merit-api/pkg/seed"
)

type catalogStore interface {
	Students(ctx context.Context) ([]models.Student, error)
	Staff(ctx context.Context) ([]models.Staff, error)
	Classes(ctx context.Context) ([]string, error)
	Criteria(ctx context.Context, catalog models.Catalog) ([]models.Criterion, error)
	Provision(ctx context.Context, doc *seed.Document) (int, error)
}

// CatalogService exposes the reference data used by the entry forms.
type CatalogService struct {
	store  catalogStore
	cache  *CacheService
	logger *zap.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(store catalogStore, cache *CacheService, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{store: store, cache: cache, logger: logger}
}

// Students lists students, optionally restricted to one class.
func (s *CatalogService) Students(ctx context.Context, class string) ([]models.Student, error) {
	students, err := s.store.Students(ctx)
	if err != nil || class == "" {
		return students, err
	}
	filtered := make([]models.Student, 0, len(students))
	for _, st := range students {
		if st.Class == class {
			filtered = append(filtered, st)
		}
	}
	return filtered, nil
}

// Classes lists class labels.
func (s *CatalogService) Classes(ctx context.Context) ([]string, error) {
	return s.store.Classes(ctx)
}

// Staff lists staff members without their credentials.
func (s *CatalogService) Staff(ctx context.Context) ([]models.Staff, error) {
	staff, err := s.store.Staff(ctx)
	if err != nil {
		return nil, err
	}
	for i := range staff {
		staff[i].Password = ""
	}
	return staff, nil
}

// Criteria lists the rules of a catalog.
func (s *CatalogService) Criteria(ctx context.Context, catalog models.Catalog) ([]models.Criterion, error) {
	if !catalog.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "catalog must be STUDENT or STAFF")
	}
	return s.store.Criteria(ctx, catalog)
}

// Provision writes the seed into empty catalog tables.
func (s *CatalogService) Provision(ctx context.Context, doc *seed.Document) (int, error) {
	written, err := s.store.Provision(ctx, doc)
	if err != nil {
		return written, err
	}
	if written > 0 {
		s.logger.Info("catalog provisioned", zap.Int("rows", written))
		if err := s.cache.InvalidateAggregations(ctx); err != nil {
			s.logger.Warn("aggregation cache not invalidated after provisioning", zap.Error(err))
		}
	}
	return written, nil
}
