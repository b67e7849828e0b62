package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bgpnc/members-api/internal/models"
	appErrors "github.com/bgpnc/members-api/pkg/errors"
)

type mockMemberRepo struct {
	members map[string]models.Member
	entries []models.ActivityLog
	deleted []string
	err     error
}

func (m *mockMemberRepo) List(ctx context.Context, filter models.MemberFilter) ([]models.MemberSummary, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	summaries := make([]models.MemberSummary, 0, len(m.members))
	for _, member := range m.members {
		summaries = append(summaries, models.MemberSummary{Member: member})
	}
	return summaries, len(summaries), nil
}

func (m *mockMemberRepo) FindByID(ctx context.Context, id string) (*models.MemberDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	if member, ok := m.members[id]; ok {
		return &models.MemberDetail{Member: member}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockMemberRepo) Update(ctx context.Context, member *models.Member, entry *models.ActivityLog) error {
	if m.err != nil {
		return m.err
	}
	m.members[member.ID] = *member
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockMemberRepo) Delete(ctx context.Context, id string, entry *models.ActivityLog) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.members[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.members, id)
	m.deleted = append(m.deleted, id)
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockMemberRepo) UpdateStatus(ctx context.Context, id string, status models.MemberStatus, entry *models.ActivityLog) error {
	if m.err != nil {
		return m.err
	}
	member, ok := m.members[id]
	if !ok {
		return sql.ErrNoRows
	}
	member.Status = status
	m.members[id] = member
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockMemberRepo) BulkUpdateStatus(ctx context.Context, ids []string, status models.MemberStatus, entry *models.ActivityLog) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	affected := 0
	for _, id := range ids {
		if member, ok := m.members[id]; ok {
			member.Status = status
			m.members[id] = member
			affected++
		}
	}
	m.entries = append(m.entries, *entry)
	return affected, nil
}

func seedMemberRepo() *mockMemberRepo {
	return &mockMemberRepo{members: map[string]models.Member{
		"m1": {ID: "m1", FirstName: "John", LastName: "Smith", Email: "john@example.com", Status: models.StatusNewMember},
		"m2": {ID: "m2", FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Status: models.StatusActive},
	}}
}

func newMemberService(repo memberRepository) *MemberService {
	return NewMemberService(repo, validator.New(), zap.NewNop(), time.Second)
}

func TestMemberServiceGetNotFound(t *testing.T) {
	svc := newMemberService(seedMemberRepo())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestMemberServiceUpdate(t *testing.T) {
	repo := seedMemberRepo()
	svc := newMemberService(repo)

	detail, err := svc.Update(context.Background(), "m1", UpdateMemberRequest{
		FirstName:     "Johnny",
		LastName:      "Smith",
		Email:         "Johnny@example.com",
		Phone:         "9195550123",
		DateOfBirth:   "1990-05-20",
		StreetAddress: "456 Oak Street",
		City:          "Charlotte",
		State:         "nc",
		ZipCode:       "28202",
		EmailConsent:  true,
		Status:        "active",
	}, RequestMeta{})
	require.NoError(t, err)

	assert.Equal(t, "Johnny", detail.FirstName)
	assert.Equal(t, "johnny@example.com", detail.Email)
	assert.Equal(t, "NC", detail.State)
	assert.Equal(t, models.StatusActive, detail.Status)
	require.Len(t, repo.entries, 1)
	assert.Equal(t, models.ActionMemberUpdate, repo.entries[0].Action)
}

func TestMemberServiceUpdateInvalidStatus(t *testing.T) {
	svc := newMemberService(seedMemberRepo())

	_, err := svc.Update(context.Background(), "m1", UpdateMemberRequest{
		FirstName:     "Johnny",
		LastName:      "Smith",
		Email:         "johnny@example.com",
		Phone:         "9195550123",
		DateOfBirth:   "1990-05-20",
		StreetAddress: "456 Oak Street",
		City:          "Charlotte",
		State:         "NC",
		ZipCode:       "28202",
		Status:        "archived",
	}, RequestMeta{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidArgument))
}

func TestMemberServiceDelete(t *testing.T) {
	repo := seedMemberRepo()
	svc := newMemberService(repo)

	require.NoError(t, svc.Delete(context.Background(), "m1", RequestMeta{}))
	assert.NotContains(t, repo.members, "m1")

	err := svc.Delete(context.Background(), "m1", RequestMeta{})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestMemberServiceUpdateStatusIdempotent(t *testing.T) {
	repo := seedMemberRepo()
	svc := newMemberService(repo)

	require.NoError(t, svc.UpdateStatus(context.Background(), "m1", models.StatusActive, RequestMeta{}))
	require.NoError(t, svc.UpdateStatus(context.Background(), "m1", models.StatusActive, RequestMeta{}))

	assert.Equal(t, models.StatusActive, repo.members["m1"].Status)
	assert.Len(t, repo.entries, 2)
}

func TestMemberServiceUpdateStatusInvalid(t *testing.T) {
	repo := seedMemberRepo()
	svc := newMemberService(repo)

	err := svc.UpdateStatus(context.Background(), "m1", "archived", RequestMeta{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidArgument))
	assert.Empty(t, repo.entries)
}

func TestMemberServiceUpdateStatusNotFound(t *testing.T) {
	svc := newMemberService(seedMemberRepo())

	err := svc.UpdateStatus(context.Background(), "missing", models.StatusActive, RequestMeta{})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestMemberServiceBulkUpdateStatus(t *testing.T) {
	repo := seedMemberRepo()
	svc := newMemberService(repo)

	affected, err := svc.BulkUpdateStatus(context.Background(), []string{"m1", "m2"}, models.StatusInactive, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, 2, affected)
	assert.Equal(t, models.StatusInactive, repo.members["m1"].Status)
	require.Len(t, repo.entries, 1)
	assert.Equal(t, models.ActionBulkStatusUpdate, repo.entries[0].Action)
}

func TestMemberServiceBulkUpdateStatusEmptyIDs(t *testing.T) {
	repo := seedMemberRepo()
	svc := newMemberService(repo)

	_, err := svc.BulkUpdateStatus(context.Background(), nil, models.StatusActive, RequestMeta{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidArgument))
	assert.Empty(t, repo.entries)
}

func TestMemberServiceListStorageFailure(t *testing.T) {
	svc := newMemberService(&mockMemberRepo{err: sql.ErrConnDone})

	_, _, err := svc.List(context.Background(), models.MemberFilter{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrStorageUnavailable))
}
