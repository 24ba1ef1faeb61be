package models

import (
	"encoding/json"
	"time"
)

type IDType string

const (
	IDTypeStudent IDType = "student"
	IDTypeSenior  IDType = "senior"
	IDTypePWD     IDType = "pwd"
	IDTypeOther   IDType = "other"
)

func (t IDType) Valid() bool {
	switch t {
	case IDTypeStudent, IDTypeSenior, IDTypePWD, IDTypeOther:
		return true
	}
	return false
}

// Revalidated reports whether the ID kind is tracked by periodic
// revalidation instead of an expiration date.
func (t IDType) Revalidated() bool {
	return t == IDTypeSenior || t == IDTypePWD
}

type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusValid    VerificationStatus = "valid"
	VerificationStatusRejected VerificationStatus = "rejected"
	VerificationStatusInvalid  VerificationStatus = "invalid"
)

func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationStatusPending, VerificationStatusValid, VerificationStatusRejected, VerificationStatusInvalid:
		return true
	}
	return false
}

// Verification is one submitted discount ID and its review outcome.
//
// ExpirationDate only means something for student IDs; LastRevalidationDate
// and NeedsRevalidation only for senior and PWD IDs. Expiry is never stored
// as a status: an expired student ID stays valid and is surfaced through
// IsExpired.
type Verification struct {
	ID                   string             `json:"id"`
	IDNumber             string             `json:"idNumber"`
	IDType               IDType             `json:"idType"`
	Status               VerificationStatus `json:"status"`
	ImageURLs            []string           `json:"imageUrls,omitempty"`
	UploaderID           string             `json:"uploaderId"`
	UploaderName         string             `json:"uploaderName"`
	OrganizationID       string             `json:"organizationId"`
	Timestamp            time.Time          `json:"timestamp"`
	RejectionReason      string             `json:"rejectionReason,omitempty"`
	ExpirationDate       *time.Time         `json:"expirationDate,omitempty"`
	LastRevalidationDate *time.Time         `json:"lastRevalidationDate,omitempty"`
	NeedsRevalidation    bool               `json:"needsRevalidation,omitempty"`
	UserNotified         bool               `json:"userNotified,omitempty"`
	NotificationDate     *time.Time         `json:"notificationDate,omitempty"`
	ApprovedDate         *time.Time         `json:"approvedDate,omitempty"`
}

type verificationJSON Verification

// UnmarshalJSON accepts records written before multi-image uploads, which
// carried a single imageUrl.
func (v *Verification) UnmarshalJSON(data []byte) error {
	var raw struct {
		verificationJSON
		ImageURL string `json:"imageUrl,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = Verification(raw.verificationJSON)
	if len(v.ImageURLs) == 0 && raw.ImageURL != "" {
		v.ImageURLs = []string{raw.ImageURL}
	}
	return nil
}

// IsExpired is true for a student ID whose expiration date has passed.
func (v Verification) IsExpired(now time.Time) bool {
	return v.IDType == IDTypeStudent && v.ExpirationDate != nil && v.ExpirationDate.Before(now)
}

// IsAttentionWorthy is true when an operator has to act on the record:
// an expired student ID, or a valid senior/PWD ID flagged for revalidation.
func (v Verification) IsAttentionWorthy(now time.Time) bool {
	if v.IsExpired(now) {
		return true
	}
	return v.IDType.Revalidated() && v.Status == VerificationStatusValid && v.NeedsRevalidation
}

// ExpiredValidStudent is the attention-queue membership test for the
// expiry block: expired and still valid.
func (v Verification) ExpiredValidStudent(now time.Time) bool {
	return v.Status == VerificationStatusValid && v.IsExpired(now)
}

// DueForRevalidation is the attention-queue membership test for the
// revalidation block.
func (v Verification) DueForRevalidation() bool {
	return v.IDType.Revalidated() && v.Status == VerificationStatusValid && v.NeedsRevalidation
}
