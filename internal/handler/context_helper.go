package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-merit-api/internal/middleware"
	"github.com/noah-isme/sma-merit-api/internal/models"
	appErrors "github.com/noah-isme/sma-merit-api/pkg/errors"
	"github.com/noah-isme/sma-merit-api/pkg/export"
	"github.com/noah-isme/sma-merit-api/pkg/response"
)

// actorFromContext returns the authenticated staff member, writing a 401 when absent.
func actorFromContext(c *gin.Context) (models.Staff, bool) {
	actor, ok := middleware.CurrentStaff(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Staff{}, false
	}
	return actor, true
}

// exportFormat reads ?format=, writing a 400 for unsupported values.
func exportFormat(c *gin.Context) (export.Format, bool) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error()))
		return "", false
	}
	return format, true
}

// sendDataset renders the dataset in a file format and streams it as an attachment.
func sendDataset(c *gin.Context, format export.Format, data export.Dataset, basename string) {
	renderer, err := export.RendererFor(format)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error()))
		return
	}
	body, err := renderer.Render(data)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export"))
		return
	}
	response.Attachment(c, fmt.Sprintf("%s.%s", basename, format), format.ContentType(), body)
}
