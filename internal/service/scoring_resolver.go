package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/sma-merit-api/internal/models"
	appErrors "github.com/noah-isme/sma-merit-api/pkg/errors"
)

type criterionLookup interface {
	FindCriterion(ctx context.Context, catalog models.Catalog, content string) (*models.Criterion, error)
}

// ScoringResolver maps criterion labels to the signed points recorded on the
// ledger. A label missing from the catalog is an error, never zero points.
type ScoringResolver struct {
	catalog criterionLookup
}

// NewScoringResolver constructs a ScoringResolver.
func NewScoringResolver(catalog criterionLookup) *ScoringResolver {
	return &ScoringResolver{catalog: catalog}
}

// Resolve returns the signed points of a criterion.
func (r *ScoringResolver) Resolve(ctx context.Context, catalog models.Catalog, content string) (int, error) {
	criterion, err := r.Criterion(ctx, catalog, content)
	if err != nil {
		return 0, err
	}
	return criterion.Points, nil
}

// Criterion returns the full catalog entry for a label.
func (r *ScoringResolver) Criterion(ctx context.Context, catalog models.Catalog, content string) (*models.Criterion, error) {
	criterion, err := r.catalog.FindCriterion(ctx, catalog, content)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrUnknownCriterion, fmt.Sprintf("unknown %s criterion %q", catalogLabel(catalog), content))
		}
		return nil, err
	}
	return criterion, nil
}

func catalogLabel(catalog models.Catalog) string {
	if catalog == models.CatalogStaff {
		return "staff"
	}
	return "student"
}
