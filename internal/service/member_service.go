package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bgpnc/members-api/internal/models"
	"github.com/bgpnc/members-api/internal/repository"
	appErrors "github.com/bgpnc/members-api/pkg/errors"
)

type memberRepository interface {
	List(ctx context.Context, filter models.MemberFilter) ([]models.MemberSummary, int, error)
	FindByID(ctx context.Context, id string) (*models.MemberDetail, error)
	Update(ctx context.Context, member *models.Member, entry *models.ActivityLog) error
	Delete(ctx context.Context, id string, entry *models.ActivityLog) error
	UpdateStatus(ctx context.Context, id string, status models.MemberStatus, entry *models.ActivityLog) error
	BulkUpdateStatus(ctx context.Context, ids []string, status models.MemberStatus, entry *models.ActivityLog) (int, error)
}

// UpdateMemberRequest is the fixed set of member fields an admin may edit.
// Anything outside this struct cannot be mutated through the API.
type UpdateMemberRequest struct {
	FirstName          string  `json:"first_name" validate:"required,min=2,max=50"`
	LastName           string  `json:"last_name" validate:"required,min=2,max=50"`
	Email              string  `json:"email" validate:"required,email"`
	Phone              string  `json:"phone" validate:"required,min=10,max=20"`
	DateOfBirth        string  `json:"date_of_birth" validate:"required"`
	StreetAddress      string  `json:"street_address" validate:"required,min=5,max=100"`
	City               string  `json:"city" validate:"required,min=2,max=50"`
	State              string  `json:"state" validate:"required,len=2,alpha"`
	ZipCode            string  `json:"zip_code" validate:"required"`
	BaptismDate        *string `json:"baptism_date"`
	MaritalStatus      *string `json:"marital_status"`
	SpouseName         *string `json:"spouse_name" validate:"omitempty,max=100"`
	ReferralSource     *string `json:"referral_source"`
	PhotoConsent       bool    `json:"photo_consent"`
	SocialMediaConsent bool    `json:"social_media_consent"`
	EmailConsent       bool    `json:"email_consent"`
	Status             string  `json:"member_status" validate:"required"`
}

// MemberService covers admin member management: listing, detail, edits,
// deletion and the status ledger.
type MemberService struct {
	repo      memberRepository
	validator *validator.Validate
	logger    *zap.Logger
	timeout   time.Duration
}

// NewMemberService constructs the member service.
func NewMemberService(repo memberRepository, validate *validator.Validate, logger *zap.Logger, timeout time.Duration) *MemberService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MemberService{repo: repo, validator: validate, logger: logger, timeout: timeout}
}

// List returns members matching the filter with pagination metadata.
func (s *MemberService) List(ctx context.Context, filter models.MemberFilter) ([]models.MemberSummary, *models.Pagination, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	members, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, storageFailure(err, "failed to list members")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 25
	}
	return members, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one member with its children.
func (s *MemberService) Get(ctx context.Context, id string) (*models.MemberDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return nil, storageFailure(err, "failed to load member")
	}
	return detail, nil
}

// Update applies the allow-listed fields to an existing member.
func (s *MemberService) Update(ctx context.Context, id string, req UpdateMemberRequest, meta RequestMeta) (*models.MemberDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid member payload")
	}
	status := models.MemberStatus(req.Status)
	if !models.ValidStatus(status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "invalid member status")
	}
	dob, err := time.Parse(dateLayout, req.DateOfBirth)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date of birth")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return nil, storageFailure(err, "failed to load member")
	}

	member := detail.Member
	member.FirstName = strings.TrimSpace(req.FirstName)
	member.LastName = strings.TrimSpace(req.LastName)
	member.Email = strings.ToLower(strings.TrimSpace(req.Email))
	member.Phone = strings.TrimSpace(req.Phone)
	member.DateOfBirth = dob
	member.StreetAddress = strings.TrimSpace(req.StreetAddress)
	member.City = strings.TrimSpace(req.City)
	member.State = strings.ToUpper(strings.TrimSpace(req.State))
	member.ZipCode = strings.TrimSpace(req.ZipCode)
	member.MaritalStatus = req.MaritalStatus
	member.SpouseName = req.SpouseName
	member.ReferralSource = req.ReferralSource
	member.PhotoConsent = req.PhotoConsent
	member.SocialMediaConsent = req.SocialMediaConsent
	member.EmailConsent = req.EmailConsent
	member.Status = status
	if req.BaptismDate != nil && *req.BaptismDate != "" {
		parsed, err := time.Parse(dateLayout, *req.BaptismDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid baptism date")
		}
		member.BaptismDate = &parsed
	} else {
		member.BaptismDate = nil
	}

	entry := auditEntry(models.ActionMemberUpdate, meta, map[string]interface{}{"email": member.Email})
	if err := s.repo.Update(ctx, &member, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "email already registered")
		}
		return nil, storageFailure(err, "failed to update member")
	}

	detail.Member = member
	return detail, nil
}

// Delete removes a member; children are removed with it.
func (s *MemberService) Delete(ctx context.Context, id string, meta RequestMeta) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entry := auditEntry(models.ActionMemberDelete, meta, nil)
	if err := s.repo.Delete(ctx, id, entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return storageFailure(err, "failed to delete member")
	}
	return nil
}

// UpdateStatus transitions one member's status. Any status may move to any
// other; every call appends its own audit entry.
func (s *MemberService) UpdateStatus(ctx context.Context, id string, status models.MemberStatus, meta RequestMeta) error {
	if !models.ValidStatus(status) {
		return appErrors.Clone(appErrors.ErrInvalidArgument, "invalid member status")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entry := auditEntry(models.ActionStatusUpdate, meta, map[string]interface{}{"status": status})
	if err := s.repo.UpdateStatus(ctx, id, status, entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return storageFailure(err, "failed to update status")
	}
	return nil
}

// BulkUpdateStatus transitions many members in one atomic statement with a
// single audit entry. Rejected before any storage access when the id list
// is empty or the status unknown.
func (s *MemberService) BulkUpdateStatus(ctx context.Context, ids []string, status models.MemberStatus, meta RequestMeta) (int, error) {
	if len(ids) == 0 {
		return 0, appErrors.Clone(appErrors.ErrInvalidArgument, "member id list is empty")
	}
	if !models.ValidStatus(status) {
		return 0, appErrors.Clone(appErrors.ErrInvalidArgument, "invalid member status")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entry := auditEntry(models.ActionBulkStatusUpdate, meta, map[string]interface{}{"member_ids": ids, "status": status})
	affected, err := s.repo.BulkUpdateStatus(ctx, ids, status, entry)
	if err != nil {
		return 0, storageFailure(err, "failed to update statuses")
	}

	s.logger.Info("bulk status update",
		zap.Int("requested", len(ids)),
		zap.Int("affected", affected),
		zap.String("status", string(status)))
	return affected, nil
}

func auditEntry(action string, meta RequestMeta, details map[string]interface{}) *models.ActivityLog {
	entry := &models.ActivityLog{
		UserID:    meta.UserID,
		Action:    action,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if details != nil {
		entry.Details, _ = json.Marshal(details)
	}
	return entry
}

func storageFailure(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, message)
}
