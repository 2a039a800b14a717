package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-merit-api/internal/dto"
	"github.com/noah-isme/sma-merit-api/internal/models"
	appErrors "github.com/noah-isme/sma-merit-api/pkg/errors"
	"github.com/noah-isme/sma-merit-api/pkg/response"
)

type planService interface {
	Submit(ctx context.Context, req dto.SubmitPlanRequest, actor models.Staff) (*models.PlanSubmission, error)
	SubmitUpload(ctx context.Context, req dto.SubmitPlanRequest, filename string, body io.Reader, actor models.Staff) (*models.PlanSubmission, error)
	ListPlans(ctx context.Context, filter models.PlanFilter, actor models.Staff) ([]models.PlanSubmission, error)
	ArtifactLink(ctx context.Context, id int64, actor models.Staff) (*dto.ArtifactLink, error)
	OpenArtifact(ctx context.Context, token string) (*os.File, string, error)
}

// PlanHandler exposes the lesson plan submission log.
type PlanHandler struct {
	service planService
}

// NewPlanHandler constructs the handler.
func NewPlanHandler(svc planService) *PlanHandler {
	return &PlanHandler{service: svc}
}

// Submit godoc
// @Summary Submit a weekly lesson plan by reference
// @Tags Plans
// @Accept json
// @Produce json
// @Param payload body dto.SubmitPlanRequest true "Plan payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /plans [post]
func (h *PlanHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SubmitPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid plan payload"))
		return
	}
	plan, err := h.service.Submit(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, plan)
}

// Upload godoc
// @Summary Submit a weekly lesson plan file
// @Tags Plans
// @Accept multipart/form-data
// @Produce json
// @Param week formData string true "Week label, e.g. Week 3"
// @Param note formData string false "Note"
// @Param file formData file true "Plan document"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /plans/upload [post]
func (h *PlanHandler) Upload(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload"))
		return
	}
	defer file.Close()

	req := dto.SubmitPlanRequest{Week: c.PostForm("week"), Note: c.PostForm("note")}
	plan, err := h.service.SubmitUpload(c.Request.Context(), req, header.Filename, file, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, plan)
}

// List godoc
// @Summary List lesson plan submissions
// @Tags Plans
// @Produce json
// @Param teacher query string false "Teacher full name"
// @Param class query string false "Class"
// @Param status query string false "ON_TIME, LATE or SUBMITTED"
// @Param week query string false "Week label"
// @Success 200 {object} response.Envelope
// @Router /plans [get]
func (h *PlanHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.PlanQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	filter := models.PlanFilter{
		Teacher: query.Teacher,
		Class:   query.Class,
		Status:  models.PlanStatus(query.Status),
		Week:    query.Week,
	}
	plans, err := h.service.ListPlans(c.Request.Context(), filter, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plans, map[string]interface{}{"total": len(plans)})
}

// Link godoc
// @Summary Get a download link for a plan artifact
// @Tags Plans
// @Produce json
// @Param id path int true "Plan ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /plans/{id}/link [get]
func (h *PlanHandler) Link(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "plan id must be a positive integer"))
		return
	}
	link, err := h.service.ArtifactLink(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Download a plan artifact through a signed token
// @Tags Plans
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /artifacts/{token} [get]
func (h *PlanHandler) Download(c *gin.Context) {
	file, name, err := h.service.OpenArtifact(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read artifact"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}
