package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bgpnc/members-api/internal/models"
	"github.com/bgpnc/members-api/internal/repository"
	"github.com/bgpnc/members-api/internal/service"
	"github.com/bgpnc/members-api/pkg/response"
)

type fakeMemberStore struct {
	emails   map[string]bool
	children int
	entries  []models.ActivityLog
}

func (f *fakeMemberStore) CreateWithChildren(ctx context.Context, member *models.Member, children []models.Child, entry *models.ActivityLog) error {
	if f.emails == nil {
		f.emails = make(map[string]bool)
	}
	if f.emails[member.Email] {
		return repository.ErrDuplicateEmail
	}
	f.emails[member.Email] = true
	member.ID = "member-1"
	f.children += len(children)
	f.entries = append(f.entries, *entry)
	return nil
}

func newRegistrationHandler(store *fakeMemberStore) *RegistrationHandler {
	svc := service.NewRegistrationService(store, nil, nil, zap.NewNop(), time.Second, 100)
	return NewRegistrationHandler(svc, nil)
}

func registrationBody() map[string]interface{} {
	return map[string]interface{}{
		"first_name":     "John",
		"last_name":      "Smith",
		"email":          "john@example.com",
		"phone":          "9195550123",
		"date_of_birth":  "1990-05-20",
		"street_address": "456 Oak Street",
		"city":           "Charlotte",
		"state":          "NC",
		"zip_code":       "28202",
	}
}

func postJSON(t *testing.T, handler gin.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler(c)
	return w
}

func TestRegistrationHandlerRegister(t *testing.T) {
	store := &fakeMemberStore{}
	handler := newRegistrationHandler(store)

	w := postJSON(t, handler.Register, "/members/register", registrationBody())
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, "member-1", data["member_id"])
	assert.Len(t, store.entries, 1)
}

func TestRegistrationHandlerValidationError(t *testing.T) {
	handler := newRegistrationHandler(&fakeMemberStore{})

	body := registrationBody()
	body["email"] = "not-an-email"
	w := postJSON(t, handler.Register, "/members/register", body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
	require.Len(t, envelope.Error.Fields, 1)
	assert.Equal(t, "email", envelope.Error.Fields[0].Field)
}

func TestRegistrationHandlerDuplicate(t *testing.T) {
	store := &fakeMemberStore{}
	handler := newRegistrationHandler(store)

	w := postJSON(t, handler.Register, "/members/register", registrationBody())
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, handler.Register, "/members/register", registrationBody())
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "ALREADY_EXISTS", envelope.Error.Code)
}

func TestImportHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &fakeMemberStore{}
	svc := service.NewRegistrationService(store, nil, nil, zap.NewNop(), time.Second, 100)
	handler := NewImportHandler(svc, nil, 1<<20)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "members.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("first_name,last_name,email,phone,date_of_birth,street_address,city,state,zip_code\n" +
		"John,Smith,john@example.com,9195550123,1990-05-20,456 Oak Street,Charlotte,NC,28202\n" +
		"Jane,Doe,bad-email,9195550124,1985-01-15,789 Pine Street,Raleigh,NC,27601\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/members/import", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.Request = req

	handler.Import(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.BulkImportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 1, envelope.Data.Success)
	assert.Equal(t, 1, envelope.Data.Failed)
	require.Len(t, envelope.Data.Errors, 1)
	assert.Equal(t, 2, envelope.Data.Errors[0].Row)
}

func TestImportHandlerRejectsUnknownExtension(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewRegistrationService(&fakeMemberStore{}, nil, nil, zap.NewNop(), time.Second, 100)
	handler := NewImportHandler(svc, nil, 1<<20)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "members.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("irrelevant"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/members/import", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.Request = req

	handler.Import(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
