package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transitadmin/internal/errs"
	"transitadmin/internal/models"
)

func TestAcceptExpiredStudentScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedVerifications(t, models.Verification{ID: "v1", IDType: models.IDTypeStudent, Status: models.VerificationStatusPending})

	ok, err := f.verify.Accept(ctx, "v1", ptr(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.True(t, ok)

	v := f.get(t, "v1")
	assert.True(t, v.IsExpired(f.now))
	assert.Equal(t, models.VerificationStatusValid, v.Status)

	ok, err = f.verify.NotifyAboutExpiration(ctx, "v1")
	require.NoError(t, err)
	require.True(t, ok)

	v = f.get(t, "v1")
	assert.True(t, v.UserNotified)
	require.NotNil(t, v.NotificationDate)
	assert.True(t, v.NotificationDate.Equal(f.now))
	assert.Equal(t, models.VerificationStatusValid, v.Status, "notification never changes status")
}

func TestAcceptDefaultExpirationForEveryType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, idType := range []models.IDType{models.IDTypeStudent, models.IDTypeSenior, models.IDTypePWD, models.IDTypeOther} {
		id := "v-" + string(idType)
		f.seedVerifications(t, models.Verification{ID: id, IDType: idType, Status: models.VerificationStatusPending})

		ok, err := f.verify.Accept(ctx, id, nil)
		require.NoError(t, err)
		require.True(t, ok)

		v := f.get(t, id)
		require.NotNil(t, v.ExpirationDate, idType)
		assert.WithinDuration(t, f.now.AddDate(1, 0, 0), *v.ExpirationDate, time.Second, idType)
		require.NotNil(t, v.ApprovedDate)
		assert.True(t, v.ApprovedDate.Equal(f.now))
		assert.Equal(t, models.VerificationStatusValid, v.Status)
	}
}

func TestAcceptRevalidatesSeniorAndPWD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := f.now.AddDate(-2, 0, 0)
	f.seedVerifications(t,
		models.Verification{ID: "s1", IDType: models.IDTypeSenior, Status: models.VerificationStatusValid, NeedsRevalidation: true, LastRevalidationDate: &old},
		models.Verification{ID: "p1", IDType: models.IDTypePWD, Status: models.VerificationStatusPending, NeedsRevalidation: true},
		models.Verification{ID: "st", IDType: models.IDTypeStudent, Status: models.VerificationStatusPending},
	)

	for _, id := range []string{"s1", "p1"} {
		ok, err := f.verify.Accept(ctx, id, nil)
		require.NoError(t, err)
		require.True(t, ok)

		v := f.get(t, id)
		assert.False(t, v.NeedsRevalidation)
		require.NotNil(t, v.LastRevalidationDate)
		assert.True(t, v.LastRevalidationDate.Equal(f.now))
	}

	ok, err := f.verify.Accept(ctx, "st", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, f.get(t, "st").LastRevalidationDate, "students are not revalidated")
}

func TestAcceptMissingRecord(t *testing.T) {
	f := newFixture(t)
	ok, err := f.verify.Accept(context.Background(), "nope", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedVerifications(t, models.Verification{ID: "v1", IDType: models.IDTypeStudent, Status: models.VerificationStatusPending})

	reason := "  Photo is blurry; please re-upload  "
	ok, err := f.verify.Reject(ctx, "v1", reason)
	require.NoError(t, err)
	require.True(t, ok)

	v := f.get(t, "v1")
	assert.Equal(t, models.VerificationStatusRejected, v.Status)
	assert.Equal(t, reason, v.RejectionReason, "reason round-trips verbatim")

	_, err = f.verify.Reject(ctx, "v1", "   ")
	assert.ErrorIs(t, err, ErrReasonRequired)
	assert.True(t, errs.IsValidation(err))

	ok, err = f.verify.Reject(ctx, "missing", "bad")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.verify.Accept(ctx, "v1", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, f.get(t, "v1").RejectionReason, "reason only lives on rejected records")
}

func TestUpdateExpirationDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedVerifications(t,
		models.Verification{ID: "st", IDType: models.IDTypeStudent, Status: models.VerificationStatusRejected},
		models.Verification{ID: "sr", IDType: models.IDTypeSenior, Status: models.VerificationStatusValid},
	)
	next := f.now.AddDate(0, 6, 0)

	ok, err := f.verify.UpdateExpirationDate(ctx, "st", next)
	require.NoError(t, err)
	require.True(t, ok, "no status precondition")
	assert.True(t, f.get(t, "st").ExpirationDate.Equal(next))

	before := f.get(t, "sr")
	ok, err = f.verify.UpdateExpirationDate(ctx, "sr", next)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, before, f.get(t, "sr"), "non-student records are untouched")
}

func TestRevalidationOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedVerifications(t,
		models.Verification{ID: "pwd", IDType: models.IDTypePWD, Status: models.VerificationStatusValid},
		models.Verification{ID: "st", IDType: models.IDTypeStudent, Status: models.VerificationStatusValid},
	)

	ok, err := f.verify.MarkForRevalidation(ctx, "pwd")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, f.get(t, "pwd").NeedsRevalidation)

	ok, err = f.verify.Revalidate(ctx, "pwd")
	require.NoError(t, err)
	require.True(t, ok)
	v := f.get(t, "pwd")
	assert.False(t, v.NeedsRevalidation)
	assert.True(t, v.LastRevalidationDate.Equal(f.now))

	for _, op := range []func(context.Context, string) (bool, error){f.verify.MarkForRevalidation, f.verify.Revalidate} {
		ok, err = op(ctx, "st")
		require.NoError(t, err)
		assert.False(t, ok, "students have no revalidation cycle")
	}
}

func TestNotifyAboutExpirationRequiresValidStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedVerifications(t,
		models.Verification{ID: "pending", IDType: models.IDTypeStudent, Status: models.VerificationStatusPending},
		models.Verification{ID: "senior", IDType: models.IDTypeSenior, Status: models.VerificationStatusValid},
	)

	for _, id := range []string{"pending", "senior", "missing"} {
		ok, err := f.verify.NotifyAboutExpiration(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok, id)
	}
	assert.False(t, f.get(t, "pending").UserNotified)
}

func TestInvalidateOnlyFromValid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedVerifications(t,
		models.Verification{ID: "valid", IDType: models.IDTypeOther, Status: models.VerificationStatusValid},
		models.Verification{ID: "pending", IDType: models.IDTypeOther, Status: models.VerificationStatusPending},
	)

	ok, err := f.verify.Invalidate(ctx, "valid", "forged")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.VerificationStatusInvalid, f.get(t, "valid").Status)

	ok, err = f.verify.Invalidate(ctx, "pending", "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, models.VerificationStatusPending, f.get(t, "pending").Status)
}

func TestAttentionQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	past := f.now.AddDate(0, -1, 0)
	future := f.now.AddDate(0, 1, 0)

	f.seedVerifications(t,
		models.Verification{ID: "rev1", IDType: models.IDTypeSenior, Status: models.VerificationStatusValid, NeedsRevalidation: true},
		models.Verification{ID: "exp1", IDType: models.IDTypeStudent, Status: models.VerificationStatusValid, ExpirationDate: &past},
		models.Verification{ID: "fresh", IDType: models.IDTypeStudent, Status: models.VerificationStatusValid, ExpirationDate: &future},
		models.Verification{ID: "rev-pending", IDType: models.IDTypePWD, Status: models.VerificationStatusPending, NeedsRevalidation: true},
		models.Verification{ID: "exp-rejected", IDType: models.IDTypeStudent, Status: models.VerificationStatusRejected, ExpirationDate: &past},
		models.Verification{ID: "rev2", IDType: models.IDTypePWD, Status: models.VerificationStatusValid, NeedsRevalidation: true},
		models.Verification{ID: "exp2", IDType: models.IDTypeStudent, Status: models.VerificationStatusValid, ExpirationDate: &past},
	)

	ids, err := f.verify.IDsNeedingAttention(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"exp1", "exp2", "rev1", "rev2"}, ids, "expired block first, then revalidation block, each in stored order")

	expired, err := f.verify.ExpiredStudentIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"exp1", "exp2"}, expired)

	due, err := f.verify.IDsNeedingRevalidation(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"rev1", "rev2"}, due)

	_, err = f.verify.Revalidate(ctx, "rev1")
	require.NoError(t, err)
	_, err = f.verify.UpdateExpirationDate(ctx, "exp2", future)
	require.NoError(t, err)

	ids, err = f.verify.IDsNeedingAttention(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"exp1", "rev2"}, ids)

	items, err := f.verify.NeedingAttention(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, v := range items {
		assert.True(t, v.IsAttentionWorthy(f.now))
	}
}

func TestListAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	past := f.now.AddDate(0, 0, -1)
	f.seedVerifications(t,
		models.Verification{ID: "a", IDNumber: "STU-001", IDType: models.IDTypeStudent, Status: models.VerificationStatusPending, UploaderName: "Ana Cruz", OrganizationID: "org1"},
		models.Verification{ID: "b", IDNumber: "SNR-002", IDType: models.IDTypeSenior, Status: models.VerificationStatusValid, NeedsRevalidation: true, OrganizationID: "org2"},
		models.Verification{ID: "c", IDNumber: "STU-003", IDType: models.IDTypeStudent, Status: models.VerificationStatusValid, ExpirationDate: &past, OrganizationID: "org1"},
		models.Verification{ID: "d", IDNumber: "PWD-004", IDType: models.IDTypePWD, Status: models.VerificationStatusRejected, UploaderID: "ind1"},
		models.Verification{ID: "e", IDNumber: "OTH-005", IDType: models.IDTypeOther, Status: models.VerificationStatusInvalid},
	)

	list, err := f.verify.List(ctx, VerificationFilter{IDType: models.IDTypeStudent})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, idsOf(list))

	list, err = f.verify.List(ctx, VerificationFilter{Search: "ana"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, idsOf(list))

	list, err = f.verify.List(ctx, VerificationFilter{Search: "snr"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, idsOf(list))

	list, err = f.verify.ListByOrganization(ctx, "org1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, idsOf(list))

	list, err = f.verify.ListOwnedBy(ctx, "ind1")
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, idsOf(list), "accounts outside a fleet own what they uploaded")
	list, err = f.verify.ListOwnedBy(ctx, "org1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, idsOf(list))

	stats, err := f.verify.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, VerificationStats{
		Total: 5, Pending: 1, Valid: 2, Rejected: 1, Invalid: 1,
		Expired: 1, NeedsRevalidation: 1, NeedsAttention: 2,
	}, stats)
}

func TestSweepRevalidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	longAgo := f.now.AddDate(-2, 0, 0)
	recent := f.now.AddDate(0, -1, 0)

	f.seedVerifications(t,
		models.Verification{ID: "old-senior", IDType: models.IDTypeSenior, Status: models.VerificationStatusValid, LastRevalidationDate: &longAgo},
		models.Verification{ID: "old-approved", IDType: models.IDTypePWD, Status: models.VerificationStatusValid, ApprovedDate: &longAgo},
		models.Verification{ID: "recent", IDType: models.IDTypePWD, Status: models.VerificationStatusValid, LastRevalidationDate: &recent},
		models.Verification{ID: "old-pending", IDType: models.IDTypeSenior, Status: models.VerificationStatusPending, LastRevalidationDate: &longAgo},
		models.Verification{ID: "old-student", IDType: models.IDTypeStudent, Status: models.VerificationStatusValid, ApprovedDate: &longAgo},
	)

	n, err := f.verify.SweepRevalidation(ctx, 365*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	due, err := f.verify.IDsNeedingRevalidation(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"old-senior", "old-approved"}, due)

	n, err = f.verify.SweepRevalidation(ctx, 365*24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n, "already flagged records are not counted again")

	_, err = f.verify.SweepRevalidation(ctx, 0)
	assert.ErrorIs(t, err, errs.ErrInvalidOperation)
}

func TestSweepExpiryNotices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	past := f.now.AddDate(0, 0, -3)
	future := f.now.AddDate(0, 0, 3)

	f.seedVerifications(t,
		models.Verification{ID: "expired", IDType: models.IDTypeStudent, Status: models.VerificationStatusValid, ExpirationDate: &past},
		models.Verification{ID: "notified", IDType: models.IDTypeStudent, Status: models.VerificationStatusValid, ExpirationDate: &past, UserNotified: true},
		models.Verification{ID: "current", IDType: models.IDTypeStudent, Status: models.VerificationStatusValid, ExpirationDate: &future},
	)

	n, err := f.verify.SweepExpiryNotices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v := f.get(t, "expired")
	assert.True(t, v.UserNotified)
	assert.Equal(t, models.VerificationStatusValid, v.Status)
	assert.False(t, f.get(t, "current").UserNotified)

	n, err = f.verify.SweepExpiryNotices(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
