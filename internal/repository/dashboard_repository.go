package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/bgpnc/members-api/internal/models"
)

// DashboardRepository runs the aggregate queries behind the admin dashboard
// and analytics views.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs a DashboardRepository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Stats gathers the headline counts for the dashboard.
func (r *DashboardRepository) Stats(ctx context.Context) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	if err := r.db.GetContext(ctx, &stats.TotalMembers, "SELECT COUNT(*) FROM members"); err != nil {
		return nil, fmt.Errorf("total members: %w", err)
	}

	const newThisMonth = `SELECT COUNT(*) FROM members WHERE date_trunc('month', join_date) = date_trunc('month', CURRENT_DATE)`
	if err := r.db.GetContext(ctx, &stats.NewThisMonth, newThisMonth); err != nil {
		return nil, fmt.Errorf("new this month: %w", err)
	}

	var statusCounts []models.BucketCount
	const byStatus = `SELECT member_status AS label, COUNT(*) AS count FROM members GROUP BY member_status`
	if err := r.db.SelectContext(ctx, &statusCounts, byStatus); err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	for _, row := range statusCounts {
		switch models.MemberStatus(row.Label) {
		case models.StatusNewMember:
			stats.NewMembers = row.Count
		case models.StatusActive:
			stats.ActiveMembers = row.Count
		case models.StatusInactive:
			stats.InactiveMembers = row.Count
		}
	}

	var consent struct {
		Photo       int `db:"photo"`
		SocialMedia int `db:"social_media"`
		Email       int `db:"email"`
		Total       int `db:"total"`
	}
	const consentQuery = `SELECT
        COUNT(*) FILTER (WHERE photo_consent) AS photo,
        COUNT(*) FILTER (WHERE social_media_consent) AS social_media,
        COUNT(*) FILTER (WHERE email_consent) AS email,
        COUNT(*) AS total
        FROM members`
	if err := r.db.GetContext(ctx, &consent, consentQuery); err != nil {
		return nil, fmt.Errorf("consent counts: %w", err)
	}
	if consent.Total > 0 {
		stats.ConsentRates = models.ConsentRates{
			Photo:       consent.Photo * 100 / consent.Total,
			SocialMedia: consent.SocialMedia * 100 / consent.Total,
			Email:       consent.Email * 100 / consent.Total,
		}
	}

	const recent = `SELECT m.*, COUNT(c.id) AS children_count
        FROM members m LEFT JOIN children c ON c.parent_id = m.id
        GROUP BY m.id ORDER BY m.created_at DESC LIMIT 10`
	if err := r.db.SelectContext(ctx, &stats.RecentMembers, recent); err != nil {
		return nil, fmt.Errorf("recent members: %w", err)
	}

	return stats, nil
}

// Growth returns daily registration counts for the trailing number of days.
func (r *DashboardRepository) Growth(ctx context.Context, days int) ([]models.GrowthPoint, error) {
	const query = `SELECT to_char(join_date::date, 'YYYY-MM-DD') AS date, COUNT(*) AS new_members
        FROM members
        WHERE join_date >= CURRENT_DATE - $1 * INTERVAL '1 day'
        GROUP BY join_date::date ORDER BY join_date::date`
	var points []models.GrowthPoint
	if err := r.db.SelectContext(ctx, &points, query, days); err != nil {
		return nil, fmt.Errorf("growth: %w", err)
	}
	return points, nil
}

// AgeGroups buckets members by age at query time.
func (r *DashboardRepository) AgeGroups(ctx context.Context) ([]models.BucketCount, error) {
	const query = `SELECT CASE
            WHEN EXTRACT(YEAR FROM age(date_of_birth)) < 18 THEN 'Under 18'
            WHEN EXTRACT(YEAR FROM age(date_of_birth)) BETWEEN 18 AND 25 THEN '18-25'
            WHEN EXTRACT(YEAR FROM age(date_of_birth)) BETWEEN 26 AND 35 THEN '26-35'
            WHEN EXTRACT(YEAR FROM age(date_of_birth)) BETWEEN 36 AND 45 THEN '36-45'
            WHEN EXTRACT(YEAR FROM age(date_of_birth)) BETWEEN 46 AND 55 THEN '46-55'
            WHEN EXTRACT(YEAR FROM age(date_of_birth)) BETWEEN 56 AND 65 THEN '56-65'
            ELSE 'Over 65'
        END AS label, COUNT(*) AS count
        FROM members GROUP BY label ORDER BY label`
	var buckets []models.BucketCount
	if err := r.db.SelectContext(ctx, &buckets, query); err != nil {
		return nil, fmt.Errorf("age groups: %w", err)
	}
	return buckets, nil
}

// ReferralSources counts members per referral source.
func (r *DashboardRepository) ReferralSources(ctx context.Context) ([]models.BucketCount, error) {
	const query = `SELECT COALESCE(referral_source, 'Not specified') AS label, COUNT(*) AS count
        FROM members GROUP BY referral_source ORDER BY count DESC`
	var buckets []models.BucketCount
	if err := r.db.SelectContext(ctx, &buckets, query); err != nil {
		return nil, fmt.Errorf("referral sources: %w", err)
	}
	return buckets, nil
}

// MaritalStatuses counts members per marital status.
func (r *DashboardRepository) MaritalStatuses(ctx context.Context) ([]models.BucketCount, error) {
	const query = `SELECT COALESCE(marital_status, 'Not specified') AS label, COUNT(*) AS count
        FROM members GROUP BY marital_status`
	var buckets []models.BucketCount
	if err := r.db.SelectContext(ctx, &buckets, query); err != nil {
		return nil, fmt.Errorf("marital statuses: %w", err)
	}
	return buckets, nil
}

// FamilyStats summarises children counts per member household.
func (r *DashboardRepository) FamilyStats(ctx context.Context) (*models.FamilyStats, error) {
	const query = `SELECT COALESCE(AVG(child_count), 0) AS avg_children,
        COALESCE(MAX(child_count), 0) AS max_children,
        COUNT(*) FILTER (WHERE child_count > 0) AS families_with_children
        FROM (SELECT m.id, COUNT(c.id) AS child_count
              FROM members m LEFT JOIN children c ON c.parent_id = m.id
              GROUP BY m.id) AS family_data`
	var stats models.FamilyStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("family stats: %w", err)
	}
	return &stats, nil
}
