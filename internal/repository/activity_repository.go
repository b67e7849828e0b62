package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/bgpnc/members-api/internal/models"
)

// ActivityRepository provides access to the append-only audit trail.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create appends one entry outside any larger transaction. Mutations that
// need atomicity with their data change write the entry inside their own
// transaction instead.
func (r *ActivityRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return insertActivity(ctx, r.db, entry)
}

// List returns entries newest-first joined with the acting user.
func (r *ActivityRepository) List(ctx context.Context, page, pageSize int) ([]models.ActivityLogDetail, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT al.*, u.username, u.full_name
        FROM activity_logs al
        LEFT JOIN users u ON u.id = al.user_id
        ORDER BY al.created_at DESC LIMIT %d OFFSET %d`, pageSize, offset)

	var entries []models.ActivityLogDetail
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, 0, fmt.Errorf("list activity logs: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM activity_logs"); err != nil {
		return nil, 0, fmt.Errorf("count activity logs: %w", err)
	}
	return entries, total, nil
}
