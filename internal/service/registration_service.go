package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bgpnc/members-api/internal/models"
	"github.com/bgpnc/members-api/internal/repository"
	appErrors "github.com/bgpnc/members-api/pkg/errors"
	"github.com/bgpnc/members-api/pkg/tabular"
)

const dateLayout = "2006-01-02"

var (
	nameRe  = regexp.MustCompile(`^[a-zA-Z' -]+$`)
	phoneRe = regexp.MustCompile(`^[0-9+() -]+$`)
	stateRe = regexp.MustCompile(`^[a-zA-Z]{2}$`)
	zipRe   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

type memberCreator interface {
	CreateWithChildren(ctx context.Context, member *models.Member, children []models.Child, entry *models.ActivityLog) error
}

// WelcomeNotifier delivers the post-registration greeting. Implementations
// are best-effort: delivery failures never affect the committed registration.
type WelcomeNotifier interface {
	SendWelcome(email, firstName string)
}

// ChildSubmission is one dependent entry on a registration form.
type ChildSubmission struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
}

// RegistrationSubmission is a raw registration payload before validation.
// Dates arrive as YYYY-MM-DD strings; consent flags are pointers so an
// absent flag is distinguishable from an explicit false.
type RegistrationSubmission struct {
	FirstName          string            `json:"first_name"`
	LastName           string            `json:"last_name"`
	Email              string            `json:"email"`
	Phone              string            `json:"phone"`
	DateOfBirth        string            `json:"date_of_birth"`
	StreetAddress      string            `json:"street_address"`
	City               string            `json:"city"`
	State              string            `json:"state"`
	ZipCode            string            `json:"zip_code"`
	BaptismDate        string            `json:"baptism_date"`
	MaritalStatus      string            `json:"marital_status"`
	SpouseName         string            `json:"spouse_name"`
	ReferralSource     string            `json:"referral_source"`
	PhotoConsent       *bool             `json:"photo_consent"`
	SocialMediaConsent *bool             `json:"social_media_consent"`
	EmailConsent       *bool             `json:"email_consent"`
	ParentalConsent    *bool             `json:"parental_consent"`
	Children           []ChildSubmission `json:"children"`
}

// RequestMeta carries caller context recorded in the audit trail.
type RequestMeta struct {
	UserID    *string
	IPAddress string
	UserAgent string
}

// RegistrationService runs the registration pipeline: field validation,
// mapping into persisted records, the atomic insert, and bulk import.
type RegistrationService struct {
	repo      memberCreator
	validator *validator.Validate
	notifier  WelcomeNotifier
	logger    *zap.Logger
	timeout   time.Duration
	maxRows   int
}

// NewRegistrationService constructs the registration service.
func NewRegistrationService(repo memberCreator, validate *validator.Validate, notifier WelcomeNotifier, logger *zap.Logger, timeout time.Duration, maxRows int) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if maxRows <= 0 {
		maxRows = 1000
	}
	return &RegistrationService{repo: repo, validator: validate, notifier: notifier, logger: logger, timeout: timeout, maxRows: maxRows}
}

// Validate checks every field rule independently and returns all violations
// at once, or nil when the submission is acceptable.
func (s *RegistrationService) Validate(sub RegistrationSubmission) []appErrors.FieldError {
	var fieldErrs []appErrors.FieldError
	add := func(field, message string) {
		fieldErrs = append(fieldErrs, appErrors.FieldError{Field: field, Message: message})
	}

	checkName := func(field, label, value string) {
		value = strings.TrimSpace(value)
		switch {
		case value == "":
			add(field, label+" is required")
		case len(value) < 2 || len(value) > 50:
			add(field, label+" must be between 2 and 50 characters")
		case !nameRe.MatchString(value):
			add(field, label+" contains invalid characters")
		}
	}
	checkName("first_name", "First name", sub.FirstName)
	checkName("last_name", "Last name", sub.LastName)

	email := strings.TrimSpace(sub.Email)
	if email == "" {
		add("email", "Email is required")
	} else if s.validator.Var(email, "email") != nil {
		add("email", "Invalid email format")
	}

	phone := strings.TrimSpace(sub.Phone)
	switch {
	case phone == "":
		add("phone", "Phone number is required")
	case len(phone) < 10 || len(phone) > 20:
		add("phone", "Phone number must be between 10 and 20 characters")
	case !phoneRe.MatchString(phone):
		add("phone", "Phone number contains invalid characters")
	}

	dob := strings.TrimSpace(sub.DateOfBirth)
	if dob == "" {
		add("date_of_birth", "Date of birth is required")
	} else if parsed, err := time.Parse(dateLayout, dob); err != nil {
		add("date_of_birth", "Invalid date of birth")
	} else if age := ageAt(parsed, time.Now()); age < 0 || age > 120 {
		add("date_of_birth", "Date of birth is out of range")
	}

	street := strings.TrimSpace(sub.StreetAddress)
	switch {
	case street == "":
		add("street_address", "Street address is required")
	case len(street) < 5 || len(street) > 100:
		add("street_address", "Street address must be between 5 and 100 characters")
	}

	city := strings.TrimSpace(sub.City)
	switch {
	case city == "":
		add("city", "City is required")
	case len(city) < 2 || len(city) > 50:
		add("city", "City must be between 2 and 50 characters")
	}

	if state := strings.TrimSpace(sub.State); !stateRe.MatchString(state) {
		add("state", "State must be a 2-letter code")
	}
	if zip := strings.TrimSpace(sub.ZipCode); !zipRe.MatchString(zip) {
		add("zip_code", "Invalid zip code format")
	}

	if marital := strings.TrimSpace(sub.MaritalStatus); marital != "" && !models.MaritalStatuses[strings.ToLower(marital)] {
		add("marital_status", "Invalid marital status")
	}
	if len(strings.TrimSpace(sub.SpouseName)) > 100 {
		add("spouse_name", "Spouse name must be at most 100 characters")
	}
	if baptism := strings.TrimSpace(sub.BaptismDate); baptism != "" {
		if _, err := time.Parse(dateLayout, baptism); err != nil {
			add("baptism_date", "Invalid baptism date")
		}
	}

	return fieldErrs
}

// MapSubmission converts a validated submission into the persisted member
// and child records. Pure: no identifiers or timestamps are assigned here.
// Children without a name are dropped, consent flags take their documented
// defaults (email true, photo and social media false) when absent.
func (s *RegistrationService) MapSubmission(sub RegistrationSubmission, method string) (*models.Member, []models.Child) {
	member := &models.Member{
		FirstName:          strings.TrimSpace(sub.FirstName),
		LastName:           strings.TrimSpace(sub.LastName),
		Email:              strings.ToLower(strings.TrimSpace(sub.Email)),
		Phone:              strings.TrimSpace(sub.Phone),
		StreetAddress:      strings.TrimSpace(sub.StreetAddress),
		City:               strings.TrimSpace(sub.City),
		State:              strings.ToUpper(strings.TrimSpace(sub.State)),
		ZipCode:            strings.TrimSpace(sub.ZipCode),
		PhotoConsent:       boolOr(sub.PhotoConsent, false),
		SocialMediaConsent: boolOr(sub.SocialMediaConsent, false),
		EmailConsent:       boolOr(sub.EmailConsent, true),
		Status:             models.StatusNewMember,
		RegistrationMethod: method,
	}
	if parsed, err := time.Parse(dateLayout, strings.TrimSpace(sub.DateOfBirth)); err == nil {
		member.DateOfBirth = parsed
	}
	if baptism := strings.TrimSpace(sub.BaptismDate); baptism != "" {
		if parsed, err := time.Parse(dateLayout, baptism); err == nil {
			member.BaptismDate = &parsed
		}
	}
	if marital := strings.ToLower(strings.TrimSpace(sub.MaritalStatus)); marital != "" {
		member.MaritalStatus = &marital
	}
	if spouse := strings.TrimSpace(sub.SpouseName); spouse != "" {
		member.SpouseName = &spouse
	}
	if referral := strings.TrimSpace(sub.ReferralSource); referral != "" {
		member.ReferralSource = &referral
	}

	var children []models.Child
	parentalConsent := boolOr(sub.ParentalConsent, false)
	for _, c := range sub.Children {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		child := models.Child{Name: name, ParentalConsent: parentalConsent}
		if dob := strings.TrimSpace(c.DateOfBirth); dob != "" {
			if parsed, err := time.Parse(dateLayout, dob); err == nil {
				child.DateOfBirth = &parsed
			}
		}
		if gender := strings.TrimSpace(c.Gender); gender != "" {
			child.Gender = &gender
		}
		children = append(children, child)
	}
	return member, children
}

// Register validates, maps and atomically persists one submission. On
// success the welcome notification is handed off after commit and the new
// member id is returned.
func (s *RegistrationService) Register(ctx context.Context, sub RegistrationSubmission, meta RequestMeta) (string, error) {
	return s.register(ctx, sub, meta, models.RegistrationOnline)
}

func (s *RegistrationService) register(ctx context.Context, sub RegistrationSubmission, meta RequestMeta, method string) (string, error) {
	if fieldErrs := s.Validate(sub); len(fieldErrs) > 0 {
		return "", appErrors.WithFields(appErrors.ErrValidation, fieldErrs)
	}

	member, children := s.MapSubmission(sub, method)

	details, _ := json.Marshal(map[string]string{"origin": method, "email": member.Email})
	entry := &models.ActivityLog{
		UserID:    meta.UserID,
		Action:    models.ActionRegistration,
		Details:   details,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.CreateWithChildren(ctx, member, children, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return "", appErrors.WithFields(appErrors.Clone(appErrors.ErrAlreadyExists, "email already registered"),
				[]appErrors.FieldError{{Field: "email", Message: "Email already registered"}})
		}
		s.logger.Error("registration storage failure", zap.String("email", member.Email), zap.Error(err))
		return "", appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status,
			"registration could not be saved")
	}

	// Only the public form triggers a welcome email; imports load
	// historical data.
	if s.notifier != nil && method == models.RegistrationOnline {
		s.notifier.SendWelcome(member.Email, member.FirstName)
	}
	s.logger.Info("member registered",
		zap.String("member_id", member.ID),
		zap.String("method", method))
	return member.ID, nil
}

// BulkImport parses a CSV or XLSX file and registers every row
// independently. A failing row is recorded with its 1-based position and
// processing continues; the pipeline never aborts early.
func (s *RegistrationService) BulkImport(ctx context.Context, data []byte, format tabular.Format, meta RequestMeta) (*models.BulkImportResult, error) {
	rows, err := tabular.Parse(data, format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidArgument.Code, appErrors.ErrInvalidArgument.Status,
			"could not parse import file")
	}
	if len(rows) > s.maxRows {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument,
			fmt.Sprintf("import file exceeds the %d row limit", s.maxRows))
	}

	result := &models.BulkImportResult{Errors: []models.RowError{}}
	for _, row := range rows {
		sub := submissionFromRow(row)
		if _, err := s.register(ctx, sub, meta, models.RegistrationImport); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, models.RowError{Row: row.Index, Error: rowErrorMessage(err)})
			continue
		}
		result.Success++
	}

	s.logger.Info("bulk import finished",
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed))
	return result, nil
}

func submissionFromRow(row tabular.Row) RegistrationSubmission {
	sub := RegistrationSubmission{
		FirstName:      row.Get("first_name"),
		LastName:       row.Get("last_name"),
		Email:          row.Get("email"),
		Phone:          row.Get("phone"),
		DateOfBirth:    row.Get("date_of_birth"),
		StreetAddress:  row.Get("street_address"),
		City:           row.Get("city"),
		State:          row.Get("state"),
		ZipCode:        row.Get("zip_code"),
		BaptismDate:    row.Get("baptism_date"),
		MaritalStatus:  row.Get("marital_status"),
		SpouseName:     row.Get("spouse_name"),
		ReferralSource: row.Get("referral_source"),
	}
	if v, ok := parseBool(row.Get("photo_consent")); ok {
		sub.PhotoConsent = &v
	}
	if v, ok := parseBool(row.Get("social_media_consent")); ok {
		sub.SocialMediaConsent = &v
	}
	if v, ok := parseBool(row.Get("email_consent")); ok {
		sub.EmailConsent = &v
	}
	if v, ok := parseBool(row.Get("parental_consent")); ok {
		sub.ParentalConsent = &v
	}
	return sub
}

// rowErrorMessage flattens a pipeline error into the single line reported
// per import row. Validation failures list the field messages joined with
// "; " so a row with one bad field reads as that field's message alone.
func rowErrorMessage(err error) string {
	appErr := appErrors.FromError(err)
	if len(appErr.Fields) > 0 {
		messages := make([]string, len(appErr.Fields))
		for i, f := range appErr.Fields {
			messages[i] = f.Message
		}
		return strings.Join(messages, "; ")
	}
	return appErr.Message
}

// ageAt computes whole years between dob and now using calendar fields, so
// a birthday later in the year has not yet added a year.
func ageAt(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func parseBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "y", "1":
		return true, true
	case "false", "no", "n", "0":
		return false, true
	}
	return false, false
}
