package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-merit-api/internal/dto"
	"github.com/noah-isme/sma-merit-api/internal/models"
	"github.com/noah-isme/sma-merit-api/internal/service"
	appErrors "github.com/noah-isme/sma-merit-api/pkg/errors"
	"github.com/noah-isme/sma-merit-api/pkg/export"
	"github.com/noah-isme/sma-merit-api/pkg/response"
)

type ledgerService interface {
	RecordStudentEvent(ctx context.Context, req dto.RecordStudentEventRequest, actor models.Staff) (*models.ConductEvent, error)
	RecordStaffEvent(ctx context.Context, req dto.RecordStaffEventRequest, actor models.Staff) (*models.ConductEvent, error)
	ListEvents(ctx context.Context, filter models.EventFilter, actor models.Staff) ([]models.ConductEvent, error)
	NetScore(ctx context.Context, filter models.EventFilter, actor models.Staff) (int, models.EventFilter, error)
}

// EventHandler exposes the conduct event ledger.
type EventHandler struct {
	service ledgerService
}

// NewEventHandler constructs the handler.
func NewEventHandler(svc ledgerService) *EventHandler {
	return &EventHandler{service: svc}
}

// RecordStudent godoc
// @Summary Record a student conduct event
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body dto.RecordStudentEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /events/students [post]
func (h *EventHandler) RecordStudent(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.RecordStudentEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}
	event, err := h.service.RecordStudentEvent(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// RecordStaff godoc
// @Summary Record a staff conduct event
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body dto.RecordStaffEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /events/staff [post]
func (h *EventHandler) RecordStaff(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.RecordStaffEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}
	event, err := h.service.RecordStaffEvent(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// List godoc
// @Summary Query the event ledger
// @Tags Events
// @Produce json
// @Param kind query string false "STUDENT or STAFF"
// @Param class query string false "Class"
// @Param name query string false "Subject name contains"
// @Param reporter query string false "Reporter username"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Param criterion query string false "Criterion contains"
// @Param boardingType query string false "Boarding type"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	h.list(c, export.FormatJSON)
}

// Export godoc
// @Summary Export the event ledger
// @Tags Events
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /events/export [get]
func (h *EventHandler) Export(c *gin.Context) {
	h.list(c, export.FormatCSV)
}

func (h *EventHandler) list(c *gin.Context, fallback export.Format) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.EventQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	format := fallback
	if strings.TrimSpace(query.Format) != "" {
		parsed, err := export.ParseFormat(query.Format)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error()))
			return
		}
		format = parsed
	}

	events, err := h.service.ListEvents(c.Request.Context(), query.Filter(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	if format != export.FormatJSON {
		sendDataset(c, format, service.EventsDataset(events), "events-"+time.Now().Format("20060102"))
		return
	}
	response.JSON(c, http.StatusOK, events, map[string]interface{}{"total": len(events)})
}

// NetScore godoc
// @Summary Sum of points over a filtered slice of the ledger
// @Tags Events
// @Produce json
// @Param class query string false "Class"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /events/net-score [get]
func (h *EventHandler) NetScore(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.EventQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	total, applied, err := h.service.NetScore(c.Request.Context(), query.Filter(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NetScoreResponse{NetScore: total, Filter: applied}, nil)
}
