package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bgpnc/members-api/internal/models"
	appErrors "github.com/bgpnc/members-api/pkg/errors"
)

type mockExportRepo struct {
	members    []models.MemberSummary
	lastStatus models.MemberStatus
	err        error
}

func (m *mockExportRepo) ExportRows(ctx context.Context, status models.MemberStatus) ([]models.MemberSummary, error) {
	m.lastStatus = status
	if m.err != nil {
		return nil, m.err
	}
	return m.members, nil
}

func exportFixture() *mockExportRepo {
	return &mockExportRepo{members: []models.MemberSummary{
		{Member: models.Member{FirstName: "John", LastName: "Smith", Email: "john@example.com", Phone: "9195550123",
			City: "Charlotte", State: "NC", Status: models.StatusActive, JoinDate: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)}, ChildrenCount: 2},
	}}
}

func TestExportServiceCSV(t *testing.T) {
	repo := exportFixture()
	audit := &mockAudit{}
	svc := NewExportService(repo, audit, zap.NewNop(), time.Second)

	result, err := svc.Export(context.Background(), ExportCSV, models.StatusActive, RequestMeta{})
	require.NoError(t, err)

	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))
	assert.Contains(t, string(result.Payload), "john@example.com")
	assert.Contains(t, string(result.Payload), "2026-01-15")
	assert.Equal(t, models.StatusActive, repo.lastStatus)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.ActionDataExport, audit.entries[0].Action)
}

func TestExportServiceXLSX(t *testing.T) {
	svc := NewExportService(exportFixture(), &mockAudit{}, zap.NewNop(), time.Second)

	result, err := svc.Export(context.Background(), ExportXLSX, "", RequestMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Payload)
	assert.True(t, strings.HasSuffix(result.Filename, ".xlsx"))
}

func TestExportServicePDF(t *testing.T) {
	svc := NewExportService(exportFixture(), &mockAudit{}, zap.NewNop(), time.Second)

	result, err := svc.Export(context.Background(), ExportPDF, "", RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Payload), "%PDF"))
}

func TestExportServiceUnsupportedFormat(t *testing.T) {
	svc := NewExportService(exportFixture(), &mockAudit{}, zap.NewNop(), time.Second)

	_, err := svc.Export(context.Background(), "docx", "", RequestMeta{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidArgument))
}

func TestExportServiceInvalidStatus(t *testing.T) {
	svc := NewExportService(exportFixture(), &mockAudit{}, zap.NewNop(), time.Second)

	_, err := svc.Export(context.Background(), ExportCSV, "archived", RequestMeta{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidArgument))
}
