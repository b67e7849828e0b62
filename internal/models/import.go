package models

// RowError attributes a bulk import failure to its 1-indexed source row.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// BulkImportResult summarises one import call. It is returned to the caller
// and never persisted.
type BulkImportResult struct {
	Success int        `json:"success"`
	Failed  int        `json:"failed"`
	Errors  []RowError `json:"errors"`
}

// DashboardStats aggregates directory counts for the admin landing page.
type DashboardStats struct {
	TotalMembers    int             `json:"total_members"`
	NewThisMonth    int             `json:"new_this_month"`
	NewMembers      int             `json:"new_members"`
	ActiveMembers   int             `json:"active_members"`
	InactiveMembers int             `json:"inactive_members"`
	ConsentRates    ConsentRates    `json:"consent_rates"`
	RecentMembers   []MemberSummary `json:"recent_members"`
}

// ConsentRates are percentages of members that granted each consent.
type ConsentRates struct {
	Photo       int `json:"photo"`
	SocialMedia int `json:"social_media"`
	Email       int `json:"email"`
}

// GrowthPoint is one day of new registrations.
type GrowthPoint struct {
	Date       string `db:"date" json:"date"`
	NewMembers int    `db:"new_members" json:"new_members"`
}

// BucketCount is a generic labelled count used by analytics breakdowns.
type BucketCount struct {
	Label string `db:"label" json:"label"`
	Count int    `db:"count" json:"count"`
}

// FamilyStats summarises children per member household.
type FamilyStats struct {
	AverageChildren      float64 `db:"avg_children" json:"average_children"`
	MaxChildren          int     `db:"max_children" json:"max_children"`
	FamiliesWithChildren int     `db:"families_with_children" json:"families_with_children"`
}

// Analytics bundles the admin analytics view.
type Analytics struct {
	Growth         []GrowthPoint `json:"growth"`
	AgeGroups      []BucketCount `json:"age_groups"`
	ReferralSource []BucketCount `json:"referral_sources"`
	MaritalStatus  []BucketCount `json:"marital_status"`
	Family         FamilyStats   `json:"family"`
}
