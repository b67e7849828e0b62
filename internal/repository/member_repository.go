package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bgpnc/members-api/internal/models"
)

// ErrDuplicateEmail signals a unique-constraint conflict on the member email.
var ErrDuplicateEmail = errors.New("email already registered")

const memberColumns = `id, first_name, last_name, email, phone, date_of_birth, street_address, city, state, zip_code,
        baptism_date, marital_status, spouse_name, referral_source, photo_consent, social_media_consent, email_consent,
        member_status, registration_method, join_date, created_at, updated_at`

const memberInsert = `INSERT INTO members (id, first_name, last_name, email, phone, date_of_birth, street_address, city, state, zip_code,
        baptism_date, marital_status, spouse_name, referral_source, photo_consent, social_media_consent, email_consent,
        member_status, registration_method, join_date, created_at, updated_at)
        VALUES (:id, :first_name, :last_name, :email, :phone, :date_of_birth, :street_address, :city, :state, :zip_code,
        :baptism_date, :marital_status, :spouse_name, :referral_source, :photo_consent, :social_media_consent, :email_consent,
        :member_status, :registration_method, :join_date, :created_at, :updated_at)`

// MemberRepository manages persistence for member and children records.
type MemberRepository struct {
	db *sqlx.DB
}

// NewMemberRepository constructs a MemberRepository.
func NewMemberRepository(db *sqlx.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// CreateWithChildren persists one member, its children and one activity log
// entry inside a single transaction. All three succeed together or none
// persist. A unique-email conflict surfaces as ErrDuplicateEmail.
func (r *MemberRepository) CreateWithChildren(ctx context.Context, member *models.Member, children []models.Child, entry *models.ActivityLog) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registration: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if member.JoinDate.IsZero() {
		member.JoinDate = now
	}
	member.CreatedAt = now
	member.UpdatedAt = now

	if _, err := tx.NamedExecContext(ctx, memberInsert, member); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert member: %w", err)
	}

	const childInsert = `INSERT INTO children (id, parent_id, name, date_of_birth, gender, parental_consent, created_at)
        VALUES (:id, :parent_id, :name, :date_of_birth, :gender, :parental_consent, :created_at)`
	for i := range children {
		children[i].ID = uuid.NewString()
		children[i].ParentID = member.ID
		children[i].CreatedAt = now
		if _, err := tx.NamedExecContext(ctx, childInsert, &children[i]); err != nil {
			return fmt.Errorf("insert child: %w", err)
		}
	}

	entry.EntityType = "member"
	entry.EntityID = &member.ID
	if err := insertActivity(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit registration: %w", err)
	}
	return nil
}

// List returns members matching the provided filters with children counts.
func (r *MemberRepository) List(ctx context.Context, filter models.MemberFilter) ([]models.MemberSummary, int, error) {
	base := "FROM members m LEFT JOIN children c ON c.parent_id = m.id"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(m.first_name) LIKE $%d OR LOWER(m.last_name) LIKE $%d OR LOWER(m.email) LIKE $%d OR m.phone LIKE $%d)",
			idx, idx, idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("m.member_status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"last_name":  "m.last_name",
		"join_date":  "m.join_date",
		"created_at": "m.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "m.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 25
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT m.*, COUNT(c.id) AS children_count %s GROUP BY m.id ORDER BY %s %s LIMIT %d OFFSET %d`,
		base, column, order, size, offset)

	var members []models.MemberSummary
	if err := r.db.SelectContext(ctx, &members, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list members: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(DISTINCT m.id) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count members: %w", err)
	}
	return members, total, nil
}

// FindByID fetches a member and its children.
func (r *MemberRepository) FindByID(ctx context.Context, id string) (*models.MemberDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM members WHERE id = $1", memberColumns)
	var detail models.MemberDetail
	if err := r.db.GetContext(ctx, &detail.Member, query, id); err != nil {
		return nil, err
	}

	const childQuery = `SELECT id, parent_id, name, date_of_birth, gender, parental_consent, created_at
        FROM children WHERE parent_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &detail.Children, childQuery, id); err != nil {
		return nil, fmt.Errorf("load children: %w", err)
	}
	return &detail, nil
}

// Update modifies the allow-listed member fields and logs the change.
func (r *MemberRepository) Update(ctx context.Context, member *models.Member, entry *models.ActivityLog) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	member.UpdatedAt = time.Now().UTC()
	const query = `UPDATE members SET first_name = :first_name, last_name = :last_name, email = :email, phone = :phone,
        date_of_birth = :date_of_birth, street_address = :street_address, city = :city, state = :state, zip_code = :zip_code,
        baptism_date = :baptism_date, marital_status = :marital_status, spouse_name = :spouse_name, referral_source = :referral_source,
        photo_consent = :photo_consent, social_media_consent = :social_media_consent, email_consent = :email_consent,
        member_status = :member_status, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, member); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("update member: %w", err)
	}

	entry.EntityType = "member"
	entry.EntityID = &member.ID
	if err := insertActivity(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	return nil
}

// Delete removes a member, logging a snapshot first. Children rows are
// removed by the ON DELETE CASCADE constraint.
func (r *MemberRepository) Delete(ctx context.Context, id string, entry *models.ActivityLog) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	entry.EntityType = "member"
	entry.EntityID = &id
	if err := insertActivity(ctx, tx, entry); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM members WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// UpdateStatus changes one member's status and appends one audit entry.
func (r *MemberRepository) UpdateStatus(ctx context.Context, id string, status models.MemberStatus, entry *models.ActivityLog) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx, "UPDATE members SET member_status = $2, updated_at = $3 WHERE id = $1",
		id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	entry.EntityType = "member"
	entry.EntityID = &id
	if err := insertActivity(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status update: %w", err)
	}
	return nil
}

// BulkUpdateStatus applies one status to all ids in a single statement plus
// one audit entry, atomically.
func (r *MemberRepository) BulkUpdateStatus(ctx context.Context, ids []string, status models.MemberStatus, entry *models.ActivityLog) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bulk status update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx, "UPDATE members SET member_status = $1, updated_at = $2 WHERE id = ANY($3)",
		status, time.Now().UTC(), pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("bulk update status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk update status: %w", err)
	}

	entry.EntityType = "members"
	if err := insertActivity(ctx, tx, entry); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bulk status update: %w", err)
	}
	return int(affected), nil
}

// ExportRows returns members with children counts for export, optionally
// filtered by status, ordered by last then first name.
func (r *MemberRepository) ExportRows(ctx context.Context, status models.MemberStatus) ([]models.MemberSummary, error) {
	query := `SELECT m.*, COUNT(c.id) AS children_count FROM members m LEFT JOIN children c ON c.parent_id = m.id`
	var args []interface{}
	if status != "" {
		query += " WHERE m.member_status = $1"
		args = append(args, status)
	}
	query += " GROUP BY m.id ORDER BY m.last_name, m.first_name"

	var members []models.MemberSummary
	if err := r.db.SelectContext(ctx, &members, query, args...); err != nil {
		return nil, fmt.Errorf("export members: %w", err)
	}
	return members, nil
}

func insertActivity(ctx context.Context, tx sqlx.ExtContext, entry *models.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO activity_logs (id, user_id, action, entity_type, entity_id, details, ip_address, user_agent, created_at)
        VALUES (:id, :user_id, :action, :entity_type, :entity_id, :details, :ip_address, :user_agent, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, entry); err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
