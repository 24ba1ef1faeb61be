package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"transitadmin/internal/activity"
	"transitadmin/internal/config"
	"transitadmin/internal/errs"
	"transitadmin/internal/metrics"
	"transitadmin/internal/models"
	"transitadmin/internal/repository"
)

var ErrReasonRequired = &errs.ValidationError{Fields: map[string]string{"reason": "rejection reason is required"}}

// VerificationService owns the lifecycle of submitted discount IDs.
//
// Lifecycle operations report false with a nil error when the record does
// not exist or its type/state does not admit the operation; nothing is
// written in that case.
type VerificationService struct {
	verifications *repository.VerificationRepository
	activity      activity.Log
	metrics       *metrics.Metrics
	validityYears int
	log           zerolog.Logger
	now           func() time.Time
}

func NewVerificationService(
	verifications *repository.VerificationRepository,
	activityLog activity.Log,
	m *metrics.Metrics,
	cfg config.VerificationConfig,
	log zerolog.Logger,
) *VerificationService {
	years := cfg.ValidityYears
	if years <= 0 {
		years = 1
	}
	if activityLog == nil {
		activityLog = activity.Nop{}
	}
	return &VerificationService{
		verifications: verifications,
		activity:      activityLog,
		metrics:       m,
		validityYears: years,
		log:           log,
		now:           time.Now,
	}
}

// Accept marks the record valid. Without an explicit expiration date the
// default validity is applied whatever the ID type; senior and PWD IDs also
// count acceptance as a revalidation.
func (s *VerificationService) Accept(ctx context.Context, id string, expirationDate *time.Time) (bool, error) {
	now := s.now()
	return s.apply(ctx, "accept", id, func(v *models.Verification) bool {
		v.Status = models.VerificationStatusValid
		v.RejectionReason = ""
		v.ApprovedDate = timePtr(now)

		expires := now.AddDate(s.validityYears, 0, 0)
		if expirationDate != nil {
			expires = *expirationDate
		}
		v.ExpirationDate = timePtr(expires)

		if v.IDType.Revalidated() {
			v.LastRevalidationDate = timePtr(now)
			v.NeedsRevalidation = false
		}
		return true
	})
}

// Reject stores reason verbatim. A blank reason is refused before any
// lookup happens.
func (s *VerificationService) Reject(ctx context.Context, id string, reason string) (bool, error) {
	if strings.TrimSpace(reason) == "" {
		return false, ErrReasonRequired
	}
	return s.apply(ctx, "reject", id, func(v *models.Verification) bool {
		v.Status = models.VerificationStatusRejected
		v.RejectionReason = reason
		return true
	})
}

// UpdateExpirationDate overwrites a student ID's expiration date whatever
// its status.
func (s *VerificationService) UpdateExpirationDate(ctx context.Context, id string, date time.Time) (bool, error) {
	return s.apply(ctx, "update_expiration", id, func(v *models.Verification) bool {
		if v.IDType != models.IDTypeStudent {
			return false
		}
		v.ExpirationDate = timePtr(date)
		return true
	})
}

func (s *VerificationService) Revalidate(ctx context.Context, id string) (bool, error) {
	now := s.now()
	return s.apply(ctx, "revalidate", id, func(v *models.Verification) bool {
		if !v.IDType.Revalidated() {
			return false
		}
		v.LastRevalidationDate = timePtr(now)
		v.NeedsRevalidation = false
		return true
	})
}

func (s *VerificationService) MarkForRevalidation(ctx context.Context, id string) (bool, error) {
	return s.apply(ctx, "mark_revalidation", id, func(v *models.Verification) bool {
		if !v.IDType.Revalidated() {
			return false
		}
		v.NeedsRevalidation = true
		return true
	})
}

// NotifyAboutExpiration records that the holder of a valid student ID was
// told about expiry. Status is left as is.
func (s *VerificationService) NotifyAboutExpiration(ctx context.Context, id string) (bool, error) {
	now := s.now()
	return s.apply(ctx, "notify_expiration", id, func(v *models.Verification) bool {
		if v.IDType != models.IDTypeStudent || v.Status != models.VerificationStatusValid {
			return false
		}
		v.UserNotified = true
		v.NotificationDate = timePtr(now)
		return true
	})
}

// Invalidate is the administrative override out of valid, e.g. for an ID
// found to be forged after approval.
func (s *VerificationService) Invalidate(ctx context.Context, id string, reason string) (bool, error) {
	ok, err := s.verifications.UpdateByID(ctx, id, func(v *models.Verification) bool {
		if v.Status != models.VerificationStatusValid {
			return false
		}
		v.Status = models.VerificationStatusInvalid
		return true
	})
	if err != nil {
		return false, fmt.Errorf("invalidate verification %s: %w", id, err)
	}
	if !ok {
		return false, nil
	}
	s.metrics.IncTransition("invalidate")
	details := "verification " + id + " invalidated"
	if reason = strings.TrimSpace(reason); reason != "" {
		details += ": " + reason
	}
	s.record(ctx, "verification.invalidate", details, activity.LevelWarning)
	return true, nil
}

func (s *VerificationService) apply(ctx context.Context, op string, id string, fn func(v *models.Verification) bool) (bool, error) {
	ok, err := s.verifications.UpdateByID(ctx, id, fn)
	if err != nil {
		return false, fmt.Errorf("%s verification %s: %w", op, id, err)
	}
	if !ok {
		s.log.Debug().Str("verification_id", id).Str("operation", op).Msg("verification operation not applied")
		return false, nil
	}
	s.metrics.IncTransition(op)
	s.record(ctx, "verification."+op, "verification "+id, activity.LevelInfo)
	return true, nil
}

func (s *VerificationService) record(ctx context.Context, action, details string, level activity.Level) {
	if err := s.activity.Record(ctx, activity.Entry{Action: action, Details: details, Level: level}); err != nil {
		s.log.Warn().Err(err).Str("action", action).Msg("record activity failed")
	}
}

func (s *VerificationService) Get(ctx context.Context, id string) (models.Verification, error) {
	return s.verifications.GetByID(ctx, id)
}

type VerificationFilter struct {
	Status         models.VerificationStatus
	IDType         models.IDType
	OrganizationID string
	// Owner matches records uploaded by or on behalf of an account.
	Owner string
	// Search matches idNumber or uploaderName, case-insensitively.
	Search string
}

func (f VerificationFilter) match(v models.Verification) bool {
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if f.IDType != "" && v.IDType != f.IDType {
		return false
	}
	if f.OrganizationID != "" && v.OrganizationID != f.OrganizationID {
		return false
	}
	if f.Owner != "" && v.OrganizationID != f.Owner && v.UploaderID != f.Owner {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(v.IDNumber), q) && !strings.Contains(strings.ToLower(v.UploaderName), q) {
			return false
		}
	}
	return true
}

// List returns matching records in submission order.
func (s *VerificationService) List(ctx context.Context, filter VerificationFilter) ([]models.Verification, error) {
	all, err := s.verifications.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Verification, 0, len(all))
	for _, v := range all {
		if filter.match(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *VerificationService) ListByOrganization(ctx context.Context, organizationID string) ([]models.Verification, error) {
	return s.List(ctx, VerificationFilter{OrganizationID: organizationID})
}

// ListOwnedBy returns the submissions an account can see as its own: those
// it uploaded and those filed under it as an organization.
func (s *VerificationService) ListOwnedBy(ctx context.Context, ownerID string) ([]models.Verification, error) {
	return s.List(ctx, VerificationFilter{Owner: ownerID})
}

// NeedingAttention returns expired valid student IDs first, then valid
// senior/PWD IDs flagged for revalidation, each block in stored order.
func (s *VerificationService) NeedingAttention(ctx context.Context) ([]models.Verification, error) {
	all, err := s.verifications.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	expired, due := splitAttention(all, now)
	return append(expired, due...), nil
}

func splitAttention(all []models.Verification, now time.Time) (expired, due []models.Verification) {
	expired = make([]models.Verification, 0)
	due = make([]models.Verification, 0)
	for _, v := range all {
		switch {
		case v.ExpiredValidStudent(now):
			expired = append(expired, v)
		case v.DueForRevalidation():
			due = append(due, v)
		}
	}
	return expired, due
}

func (s *VerificationService) ExpiredStudentIDs(ctx context.Context) ([]string, error) {
	all, err := s.verifications.List(ctx)
	if err != nil {
		return nil, err
	}
	expired, _ := splitAttention(all, s.now())
	return idsOf(expired), nil
}

func (s *VerificationService) IDsNeedingRevalidation(ctx context.Context) ([]string, error) {
	all, err := s.verifications.List(ctx)
	if err != nil {
		return nil, err
	}
	_, due := splitAttention(all, s.now())
	return idsOf(due), nil
}

func (s *VerificationService) IDsNeedingAttention(ctx context.Context) ([]string, error) {
	items, err := s.NeedingAttention(ctx)
	if err != nil {
		return nil, err
	}
	return idsOf(items), nil
}

func idsOf(items []models.Verification) []string {
	out := make([]string, 0, len(items))
	for _, v := range items {
		out = append(out, v.ID)
	}
	return out
}

type VerificationStats struct {
	Total             int `json:"total"`
	Pending           int `json:"pending"`
	Valid             int `json:"valid"`
	Rejected          int `json:"rejected"`
	Invalid           int `json:"invalid"`
	Expired           int `json:"expired"`
	NeedsRevalidation int `json:"needsRevalidation"`
	NeedsAttention    int `json:"needsAttention"`
}

func (s *VerificationService) Stats(ctx context.Context) (VerificationStats, error) {
	all, err := s.verifications.List(ctx)
	if err != nil {
		return VerificationStats{}, err
	}
	now := s.now()
	stats := VerificationStats{Total: len(all)}
	for _, v := range all {
		switch v.Status {
		case models.VerificationStatusPending:
			stats.Pending++
		case models.VerificationStatusValid:
			stats.Valid++
		case models.VerificationStatusRejected:
			stats.Rejected++
		case models.VerificationStatusInvalid:
			stats.Invalid++
		}
		if v.ExpiredValidStudent(now) {
			stats.Expired++
		}
		if v.DueForRevalidation() {
			stats.NeedsRevalidation++
		}
	}
	stats.NeedsAttention = stats.Expired + stats.NeedsRevalidation
	s.metrics.SetAttention(stats.NeedsAttention)
	return stats, nil
}

// SweepRevalidation flags valid senior/PWD IDs whose last revalidation (or
// approval, for records never revalidated) is older than interval. It
// returns the number of records flagged.
func (s *VerificationService) SweepRevalidation(ctx context.Context, interval time.Duration) (int, error) {
	if interval <= 0 {
		return 0, errs.InvalidOperation("revalidation interval must be positive")
	}
	cutoff := s.now().Add(-interval)
	var flagged []string
	err := s.verifications.Mutate(ctx, func(items []models.Verification) ([]models.Verification, bool, error) {
		flagged = flagged[:0]
		for i := range items {
			v := &items[i]
			if !v.IDType.Revalidated() || v.Status != models.VerificationStatusValid || v.NeedsRevalidation {
				continue
			}
			if revalidationBase(*v).Before(cutoff) {
				v.NeedsRevalidation = true
				flagged = append(flagged, v.ID)
			}
		}
		return items, len(flagged) > 0, nil
	})
	if err != nil {
		return 0, fmt.Errorf("revalidation sweep: %w", err)
	}
	for _, id := range flagged {
		s.metrics.IncTransition("mark_revalidation")
		s.record(ctx, "verification.mark_revalidation", "verification "+id+" due for revalidation", activity.LevelInfo)
	}
	s.log.Info().Int("flagged", len(flagged)).Msg("revalidation sweep finished")
	return len(flagged), nil
}

func revalidationBase(v models.Verification) time.Time {
	switch {
	case v.LastRevalidationDate != nil:
		return *v.LastRevalidationDate
	case v.ApprovedDate != nil:
		return *v.ApprovedDate
	}
	return v.Timestamp
}

// SweepExpiryNotices notifies every expired valid student ID holder that
// has not been notified yet.
func (s *VerificationService) SweepExpiryNotices(ctx context.Context) (int, error) {
	now := s.now()
	var notified []string
	err := s.verifications.Mutate(ctx, func(items []models.Verification) ([]models.Verification, bool, error) {
		notified = notified[:0]
		for i := range items {
			v := &items[i]
			if !v.ExpiredValidStudent(now) || v.UserNotified {
				continue
			}
			v.UserNotified = true
			v.NotificationDate = timePtr(now)
			notified = append(notified, v.ID)
		}
		return items, len(notified) > 0, nil
	})
	if err != nil {
		return 0, fmt.Errorf("expiry notice sweep: %w", err)
	}
	for _, id := range notified {
		s.metrics.IncTransition("notify_expiration")
		s.record(ctx, "verification.notify_expiration", "verification "+id+" holder notified of expiry", activity.LevelInfo)
	}
	s.log.Info().Int("notified", len(notified)).Msg("expiry notice sweep finished")
	return len(notified), nil
}

// create appends a new record; used by submission.
func (s *VerificationService) create(ctx context.Context, v models.Verification) error {
	if err := s.verifications.Create(ctx, v); err != nil {
		return fmt.Errorf("create verification: %w", err)
	}
	s.metrics.IncTransition("submit")
	s.record(ctx, "verification.submit", fmt.Sprintf("%s ID %s submitted by %s", v.IDType, v.IDNumber, v.UploaderName), activity.LevelInfo)
	return nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
