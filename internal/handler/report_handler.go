package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-merit-api/internal/middleware"
	"github.com/noah-isme/sma-merit-api/internal/models"
	"github.com/noah-isme/sma-merit-api/internal/service"
	"github.com/noah-isme/sma-merit-api/pkg/export"
	"github.com/noah-isme/sma-merit-api/pkg/response"
)

type aggregationService interface {
	ClassRanking(ctx context.Context) ([]models.ClassScore, bool, error)
	TeacherStats(ctx context.Context) ([]models.TeacherStat, bool, error)
	MealCount(ctx context.Context, date string) (*models.MealReport, bool, error)
}

// ReportHandler exposes the aggregation projections.
type ReportHandler struct {
	service aggregationService
}

// NewReportHandler constructs handler.
func NewReportHandler(svc aggregationService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// ClassRanking godoc
// @Summary Class emulation ranking
// @Description Net points per class, highest first
// @Tags Reports
// @Produce json
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /reports/class-ranking [get]
func (h *ReportHandler) ClassRanking(c *gin.Context) {
	format, ok := exportFormat(c)
	if !ok {
		return
	}
	ranking, cached, err := h.service.ClassRanking(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if format != export.FormatJSON {
		sendDataset(c, format, service.RankingDataset(ranking), "class-ranking")
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, ranking, middleware.ExtractMeta(c))
}

// TeacherStats godoc
// @Summary Per-teacher late submissions and class deductions
// @Tags Reports
// @Produce json
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /reports/teacher-stats [get]
func (h *ReportHandler) TeacherStats(c *gin.Context) {
	format, ok := exportFormat(c)
	if !ok {
		return
	}
	stats, cached, err := h.service.TeacherStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if format != export.FormatJSON {
		sendDataset(c, format, service.TeacherStatsDataset(stats), "teacher-stats")
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, stats, middleware.ExtractMeta(c))
}

// MealCount godoc
// @Summary Meals to prepare per boarding type
// @Tags Reports
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports/meal-count [get]
func (h *ReportHandler) MealCount(c *gin.Context) {
	format, ok := exportFormat(c)
	if !ok {
		return
	}
	report, cached, err := h.service.MealCount(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if format != export.FormatJSON {
		sendDataset(c, format, service.MealDataset(report), "meal-count-"+strings.ReplaceAll(report.Date, "-", ""))
		return
	}
	middleware.SetCacheHit(c, cached)
	middleware.SetMeta(c, "date", report.Date)
	response.JSON(c, http.StatusOK, report, middleware.ExtractMeta(c))
}
