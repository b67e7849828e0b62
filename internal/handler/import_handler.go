package handler

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bgpnc/members-api/internal/service"
	appErrors "github.com/bgpnc/members-api/pkg/errors"
	"github.com/bgpnc/members-api/pkg/response"
	"github.com/bgpnc/members-api/pkg/tabular"
)

// ImportHandler exposes the bulk member import endpoint.
type ImportHandler struct {
	registration *service.RegistrationService
	metrics      *service.MetricsService
	maxFileSize  int64
}

// NewImportHandler constructs ImportHandler.
func NewImportHandler(registration *service.RegistrationService, metrics *service.MetricsService, maxFileSize int64) *ImportHandler {
	if maxFileSize <= 0 {
		maxFileSize = 5 << 20
	}
	return &ImportHandler{registration: registration, metrics: metrics, maxFileSize: maxFileSize}
}

// Import godoc
// @Summary Bulk import members from a CSV or XLSX file
// @Tags Members
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Import file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /members/import [post]
func (h *ImportHandler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "import file is required"))
		return
	}
	if fileHeader.Size > h.maxFileSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("file exceeds the %d byte limit", h.maxFileSize)))
		return
	}

	var format tabular.Format
	switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
	case ".csv":
		format = tabular.FormatCSV
	case ".xlsx":
		format = tabular.FormatXLSX
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "only .csv and .xlsx files are supported"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not open uploaded file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not read uploaded file"))
		return
	}

	result, err := h.registration.BulkImport(c.Request.Context(), data, format, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordImportRows(result.Success, result.Failed)
	response.JSON(c, http.StatusOK, result, nil)
}
