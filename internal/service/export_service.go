package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/bgpnc/members-api/internal/models"
	appErrors "github.com/bgpnc/members-api/pkg/errors"
	"github.com/bgpnc/members-api/pkg/export"
)

// ExportFormat enumerates downloadable roster encodings.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
	ExportPDF  ExportFormat = "pdf"
)

type exportRowProvider interface {
	ExportRows(ctx context.Context, status models.MemberStatus) ([]models.MemberSummary, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheetName string) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult is a rendered roster ready to stream to the client.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders the member roster as CSV, XLSX or PDF.
type ExportService struct {
	repo    exportRowProvider
	audit   auditRecorder
	csv     csvRenderer
	xlsx    xlsxRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(repo exportRowProvider, audit auditRecorder, logger *zap.Logger, timeout time.Duration) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ExportService{
		repo:    repo,
		audit:   audit,
		csv:     export.NewCSVExporter(),
		xlsx:    export.NewXLSXExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
	}
}

// Export renders the roster in the requested format, optionally filtered by
// status, and records a data export audit entry.
func (s *ExportService) Export(ctx context.Context, format ExportFormat, status models.MemberStatus, meta RequestMeta) (*ExportResult, error) {
	if status != "" && !models.ValidStatus(status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "invalid member status")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	members, err := s.repo.ExportRows(ctx, status)
	if err != nil {
		return nil, storageFailure(err, "failed to load members for export")
	}
	dataset := buildRosterDataset(members)

	var payload []byte
	var contentType string
	switch format {
	case ExportCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportXLSX:
		payload, err = s.xlsx.Render(dataset, "Members")
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ExportPDF:
		payload, err = s.pdf.Render(dataset, "Member Directory")
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	details, _ := json.Marshal(map[string]interface{}{"format": format, "status": status, "rows": len(members)})
	entry := &models.ActivityLog{
		UserID:     meta.UserID,
		Action:     models.ActionDataExport,
		EntityType: "members",
		Details:    details,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record export audit entry", zap.Error(err))
	}

	filename := fmt.Sprintf("members_%s.%s", s.now().UTC().Format("20060102_150405"), format)
	return &ExportResult{Filename: filename, ContentType: contentType, Payload: payload}, nil
}

func buildRosterDataset(members []models.MemberSummary) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"First Name", "Last Name", "Email", "Phone", "City", "State", "Status", "Join Date", "Children"},
	}
	for _, m := range members {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"First Name": m.FirstName,
			"Last Name":  m.LastName,
			"Email":      m.Email,
			"Phone":      m.Phone,
			"City":       m.City,
			"State":      m.State,
			"Status":     string(m.Status),
			"Join Date":  m.JoinDate.Format(dateLayout),
			"Children":   strconv.Itoa(m.ChildrenCount),
		})
	}
	return dataset
}
