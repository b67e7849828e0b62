package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bgpnc/members-api/internal/models"
	"github.com/bgpnc/members-api/internal/repository"
	appErrors "github.com/bgpnc/members-api/pkg/errors"
	"github.com/bgpnc/members-api/pkg/tabular"
)

type mockMemberCreator struct {
	members  []models.Member
	children []models.Child
	entries  []models.ActivityLog
	emails   map[string]bool
	err      error
}

func (m *mockMemberCreator) CreateWithChildren(ctx context.Context, member *models.Member, children []models.Child, entry *models.ActivityLog) error {
	if m.err != nil {
		return m.err
	}
	if m.emails == nil {
		m.emails = make(map[string]bool)
	}
	if m.emails[member.Email] {
		return repository.ErrDuplicateEmail
	}
	m.emails[member.Email] = true
	member.ID = "member-" + member.Email
	m.members = append(m.members, *member)
	m.children = append(m.children, children...)
	m.entries = append(m.entries, *entry)
	return nil
}

type mockNotifier struct {
	emails []string
}

func (m *mockNotifier) SendWelcome(email, firstName string) {
	m.emails = append(m.emails, email)
}

func validSubmission() RegistrationSubmission {
	return RegistrationSubmission{
		FirstName:     "John",
		LastName:      "Smith",
		Email:         "John.Smith@example.com",
		Phone:         "9195550123",
		DateOfBirth:   "1990-05-20",
		StreetAddress: "456 Oak Street",
		City:          "Charlotte",
		State:         "nc",
		ZipCode:       "28202",
	}
}

func newRegistrationService(repo memberCreator, notifier WelcomeNotifier) *RegistrationService {
	return NewRegistrationService(repo, validator.New(), notifier, zap.NewNop(), time.Second, 100)
}

func TestRegistrationValidateCollectsAllErrors(t *testing.T) {
	svc := newRegistrationService(&mockMemberCreator{}, nil)

	fieldErrs := svc.Validate(RegistrationSubmission{
		FirstName: "J",
		Email:     "not-an-email",
		Phone:     "123",
		State:     "North Carolina",
		ZipCode:   "2820",
	})

	fields := make(map[string]string)
	for _, fe := range fieldErrs {
		fields[fe.Field] = fe.Message
	}
	assert.Equal(t, "First name must be between 2 and 50 characters", fields["first_name"])
	assert.Equal(t, "Last name is required", fields["last_name"])
	assert.Equal(t, "Invalid email format", fields["email"])
	assert.Equal(t, "Phone number must be between 10 and 20 characters", fields["phone"])
	assert.Contains(t, fields, "date_of_birth")
	assert.Contains(t, fields, "street_address")
	assert.Contains(t, fields, "city")
	assert.Equal(t, "State must be a 2-letter code", fields["state"])
	assert.Equal(t, "Invalid zip code format", fields["zip_code"])
}

func TestRegistrationValidateOptionalFields(t *testing.T) {
	svc := newRegistrationService(&mockMemberCreator{}, nil)

	sub := validSubmission()
	sub.MaritalStatus = "complicated"
	sub.BaptismDate = "not-a-date"
	fieldErrs := svc.Validate(sub)

	fields := make(map[string]string)
	for _, fe := range fieldErrs {
		fields[fe.Field] = fe.Message
	}
	assert.Len(t, fieldErrs, 2)
	assert.Equal(t, "Invalid marital status", fields["marital_status"])
	assert.Equal(t, "Invalid baptism date", fields["baptism_date"])
}

func TestAgeAtCalendarExact(t *testing.T) {
	dob := time.Date(2000, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 23, ageAt(dob, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 24, ageAt(dob, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestMapSubmissionDefaultsAndChildren(t *testing.T) {
	svc := newRegistrationService(&mockMemberCreator{}, nil)

	sub := validSubmission()
	consent := true
	sub.ParentalConsent = &consent
	sub.Children = []ChildSubmission{
		{Name: "Timmy", DateOfBirth: "2015-06-01"},
		{Name: "   "},
		{Name: ""},
	}
	member, children := svc.MapSubmission(sub, models.RegistrationOnline)

	assert.Equal(t, "john.smith@example.com", member.Email)
	assert.Equal(t, "NC", member.State)
	assert.True(t, member.EmailConsent)
	assert.False(t, member.PhotoConsent)
	assert.False(t, member.SocialMediaConsent)
	assert.Equal(t, models.StatusNewMember, member.Status)
	assert.Equal(t, models.RegistrationOnline, member.RegistrationMethod)

	require.Len(t, children, 1)
	assert.Equal(t, "Timmy", children[0].Name)
	assert.True(t, children[0].ParentalConsent)
}

func TestMapSubmissionExplicitConsents(t *testing.T) {
	svc := newRegistrationService(&mockMemberCreator{}, nil)

	sub := validSubmission()
	yes, no := true, false
	sub.PhotoConsent = &yes
	sub.EmailConsent = &no
	member, _ := svc.MapSubmission(sub, models.RegistrationOnline)

	assert.True(t, member.PhotoConsent)
	assert.False(t, member.EmailConsent)
}

func TestRegistrationRegister(t *testing.T) {
	repo := &mockMemberCreator{}
	notifier := &mockNotifier{}
	svc := newRegistrationService(repo, notifier)

	id, err := svc.Register(context.Background(), validSubmission(), RequestMeta{IPAddress: "127.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Len(t, repo.entries, 1)
	assert.Equal(t, models.ActionRegistration, repo.entries[0].Action)
	assert.Equal(t, []string{"john.smith@example.com"}, notifier.emails)
}

func TestRegistrationRegisterValidationFailed(t *testing.T) {
	repo := &mockMemberCreator{}
	svc := newRegistrationService(repo, nil)

	_, err := svc.Register(context.Background(), RegistrationSubmission{}, RequestMeta{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, repo.members)
	assert.Empty(t, repo.entries)
}

func TestRegistrationRegisterDuplicateEmail(t *testing.T) {
	repo := &mockMemberCreator{}
	svc := newRegistrationService(repo, nil)

	_, err := svc.Register(context.Background(), validSubmission(), RequestMeta{})
	require.NoError(t, err)

	second := validSubmission()
	second.Email = "  JOHN.SMITH@example.com " // normalises to the same address
	second.Children = []ChildSubmission{{Name: "Timmy"}}
	_, err = svc.Register(context.Background(), second, RequestMeta{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyExists))
	assert.Empty(t, repo.children)
	assert.Len(t, repo.entries, 1)
}

func TestRegistrationRegisterStorageUnavailable(t *testing.T) {
	repo := &mockMemberCreator{err: errors.New("connection refused")}
	notifier := &mockNotifier{}
	svc := newRegistrationService(repo, notifier)

	_, err := svc.Register(context.Background(), validSubmission(), RequestMeta{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrStorageUnavailable))
	assert.Empty(t, notifier.emails)
}

func TestBulkImportMixedRows(t *testing.T) {
	repo := &mockMemberCreator{}
	svc := newRegistrationService(repo, nil)

	csvData := []byte("first_name,last_name,email,phone,date_of_birth,street_address,city,state,zip_code\n" +
		"John,Smith,john@example.com,9195550123,1990-05-20,456 Oak Street,Charlotte,NC,28202\n" +
		"Jane,Doe,bad-email,9195550124,1985-01-15,789 Pine Street,Raleigh,NC,27601\n" +
		"Bob,Jones,bob@example.com,9195550125,1978-11-02,12 Elm Street,Durham,NC,27701\n")

	result, err := svc.BulkImport(context.Background(), csvData, tabular.FormatCSV, RequestMeta{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Success)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Equal(t, "Invalid email format", result.Errors[0].Error)

	require.Len(t, repo.members, 2)
	assert.Equal(t, models.RegistrationImport, repo.members[0].RegistrationMethod)
}

func TestBulkImportSendsNoWelcomeEmail(t *testing.T) {
	repo := &mockMemberCreator{}
	notifier := &mockNotifier{}
	svc := newRegistrationService(repo, notifier)

	csvData := []byte("first_name,last_name,email,phone,date_of_birth,street_address,city,state,zip_code\n" +
		"John,Smith,john@example.com,9195550123,1990-05-20,456 Oak Street,Charlotte,NC,28202\n")

	result, err := svc.BulkImport(context.Background(), csvData, tabular.FormatCSV, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.Empty(t, notifier.emails)
}

func TestBulkImportDuplicateWithinBatch(t *testing.T) {
	repo := &mockMemberCreator{}
	svc := newRegistrationService(repo, nil)

	csvData := []byte("first_name,last_name,email,phone,date_of_birth,street_address,city,state,zip_code\n" +
		"John,Smith,a@x.com,9195550123,1990-05-20,456 Oak Street,Charlotte,NC,28202\n" +
		"Jane,Doe,a@x.com,9195550124,1985-01-15,789 Pine Street,Raleigh,NC,27601\n")

	result, err := svc.BulkImport(context.Background(), csvData, tabular.FormatCSV, RequestMeta{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Error, "already registered")
}

func TestBulkImportEmptyFile(t *testing.T) {
	svc := newRegistrationService(&mockMemberCreator{}, nil)

	result, err := svc.BulkImport(context.Background(), []byte(""), tabular.FormatCSV, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Success)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Errors)
}

func TestBulkImportRowLimit(t *testing.T) {
	svc := NewRegistrationService(&mockMemberCreator{}, validator.New(), nil, zap.NewNop(), time.Second, 1)

	csvData := []byte("first_name,email\nJohn,a@x.com\nJane,b@x.com\n")
	_, err := svc.BulkImport(context.Background(), csvData, tabular.FormatCSV, RequestMeta{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidArgument))
}
