package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bgpnc/members-api/internal/models"
)

type activityLister interface {
	List(ctx context.Context, page, pageSize int) ([]models.ActivityLogDetail, int, error)
}

// ActivityService exposes the read side of the audit trail.
type ActivityService struct {
	repo    activityLister
	logger  *zap.Logger
	timeout time.Duration
}

// NewActivityService constructs an ActivityService.
func NewActivityService(repo activityLister, logger *zap.Logger, timeout time.Duration) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ActivityService{repo: repo, logger: logger, timeout: timeout}
}

// List returns audit entries newest first.
func (s *ActivityService) List(ctx context.Context, page, pageSize int) ([]models.ActivityLogDetail, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entries, total, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		return nil, nil, storageFailure(err, "failed to list activity logs")
	}
	return entries, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}
