package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-merit-api/internal/models"
	appErrors "github.com/noah-isme/sma-merit-api/pkg/errors"
	"github.com/noah-isme/sma-merit-api/pkg/response"
)

type catalogService interface {
	Students(ctx context.Context, class string) ([]models.Student, error)
	Classes(ctx context.Context) ([]string, error)
	Staff(ctx context.Context) ([]models.Staff, error)
	Criteria(ctx context.Context, catalog models.Catalog) ([]models.Criterion, error)
}

// CatalogHandler exposes read-only reference data.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(svc catalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// Students godoc
// @Summary List students
// @Tags Catalog
// @Produce json
// @Param class query string false "Class filter"
// @Success 200 {object} response.Envelope
// @Router /catalog/students [get]
func (h *CatalogHandler) Students(c *gin.Context) {
	students, err := h.service.Students(c.Request.Context(), c.Query("class"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, map[string]interface{}{"total": len(students)})
}

// Classes godoc
// @Summary List class labels
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/classes [get]
func (h *CatalogHandler) Classes(c *gin.Context) {
	classes, err := h.service.Classes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// Staff godoc
// @Summary List staff members
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /catalog/staff [get]
func (h *CatalogHandler) Staff(c *gin.Context) {
	staff, err := h.service.Staff(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, staff, nil)
}

// Criteria godoc
// @Summary List scoring criteria of a catalog
// @Tags Catalog
// @Produce json
// @Param catalog path string true "STUDENT or STAFF"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /catalog/criteria/{catalog} [get]
func (h *CatalogHandler) Criteria(c *gin.Context) {
	catalog := models.Catalog(strings.ToUpper(c.Param("catalog")))
	if !catalog.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "catalog must be STUDENT or STAFF"))
		return
	}
	criteria, err := h.service.Criteria(c.Request.Context(), catalog)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, criteria, nil)
}
