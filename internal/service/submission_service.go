package service

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"transitadmin/internal/errs"
	"transitadmin/internal/ids"
	"transitadmin/internal/media/sniffer"
	"transitadmin/internal/models"
)

const maxEvidenceFiles = 5

var ErrEvidenceStoreUnavailable = errs.InvalidOperation("evidence storage is not configured")

// EvidenceStore persists uploaded ID images and returns a URL for each.
type EvidenceStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
}

type EvidenceFile struct {
	Name   string
	Header http.Header
	Data   []byte
}

type SubmitInput struct {
	IDNumber string
	IDType   models.IDType
	Uploader models.Session
	Files    []EvidenceFile
	// ImageURLs are already-hosted images, kept ahead of uploaded files.
	ImageURLs []string
}

// SubmissionService creates pending verifications from uploaded evidence.
type SubmissionService struct {
	verifications *VerificationService
	store         EvidenceStore
	log           zerolog.Logger
	now           func() time.Time
}

// NewSubmissionService accepts a nil store; submissions must then carry
// pre-hosted image URLs only.
func NewSubmissionService(verifications *VerificationService, store EvidenceStore, log zerolog.Logger) *SubmissionService {
	return &SubmissionService{
		verifications: verifications,
		store:         store,
		log:           log,
		now:           time.Now,
	}
}

func (s *SubmissionService) Submit(ctx context.Context, input SubmitInput) (models.Verification, error) {
	input.IDNumber = strings.TrimSpace(input.IDNumber)

	var check errs.Validation
	if input.IDNumber == "" {
		check.Add("idNumber", "ID number is required")
	}
	if !input.IDType.Valid() {
		check.Add("idType", "must be one of student, senior, pwd, other")
	}
	if input.Uploader.ID == "" {
		check.Add("uploader", "uploader is required")
	}
	total := len(input.Files) + len(input.ImageURLs)
	if total == 0 {
		check.Add("images", "at least one image is required")
	}
	if total > maxEvidenceFiles {
		check.Add("images", fmt.Sprintf("at most %d images", maxEvidenceFiles))
	}

	detected := make([]sniffer.Result, len(input.Files))
	for i, f := range input.Files {
		res, err := sniffer.DetectHead(head(f.Data))
		if err != nil {
			check.Add(fmt.Sprintf("images[%d]", i), "must be a JPEG, PNG, WebP or PDF file")
			continue
		}
		if declared := sniffer.DeclaredType(f.Header); declared != "" && declared != res.MIME {
			check.Add(fmt.Sprintf("images[%d]", i), fmt.Sprintf("content type mismatch: declared %s, actual %s", declared, res.MIME))
			continue
		}
		detected[i] = res
	}
	if err := check.Err(); err != nil {
		return models.Verification{}, err
	}
	if len(input.Files) > 0 && s.store == nil {
		return models.Verification{}, ErrEvidenceStoreUnavailable
	}

	now := s.now().UTC()
	record := models.Verification{
		ID:             ids.New(),
		IDNumber:       input.IDNumber,
		IDType:         input.IDType,
		Status:         models.VerificationStatusPending,
		ImageURLs:      append([]string{}, input.ImageURLs...),
		UploaderID:     input.Uploader.ID,
		UploaderName:   input.Uploader.Name,
		OrganizationID: input.Uploader.OrganizationID,
		Timestamp:      now,
	}

	uploaded := make([]string, 0, len(input.Files))
	for i, f := range input.Files {
		key := objectKey(now, record.ID, i, detected[i].Ext())
		url, err := s.store.Put(ctx, key, f.Data, detected[i].MIME)
		if err != nil {
			s.cleanup(ctx, uploaded)
			return models.Verification{}, fmt.Errorf("store evidence: %w", err)
		}
		uploaded = append(uploaded, key)
		record.ImageURLs = append(record.ImageURLs, url)
	}

	if err := s.verifications.create(ctx, record); err != nil {
		s.cleanup(ctx, uploaded)
		return models.Verification{}, err
	}

	s.log.Info().
		Str("verification_id", record.ID).
		Str("uploader_id", record.UploaderID).
		Int("images", len(record.ImageURLs)).
		Msg("verification submitted")
	return record, nil
}

func (s *SubmissionService) cleanup(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.store.Remove(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("object_key", key).Msg("remove orphaned evidence failed")
		}
	}
}

func objectKey(now time.Time, verificationID string, index int, ext string) string {
	return path.Join("verifications", now.Format("2006/01/02"), verificationID, fmt.Sprintf("%02d.%s", index, ext))
}

func head(data []byte) []byte {
	if len(data) > 512 {
		return data[:512]
	}
	return data
}
