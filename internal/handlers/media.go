package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"transitadmin/internal/middleware"
	"transitadmin/internal/models"
	"transitadmin/internal/service"
)

const defaultMaxUploadMB = 10

// SubmitVerification accepts a multipart form with idNumber, idType, any
// number of "images" file parts and optional pre-hosted "imageUrl" values.
func (h HandlerSet) SubmitVerification(c *gin.Context) {
	session, _ := middleware.CurrentSession(c)

	maxBytes := int64(defaultMaxUploadMB) << 20
	if h.cfg != nil && h.cfg.HTTP.MaxUploadMB > 0 {
		maxBytes = h.cfg.HTTP.MaxUploadMB << 20
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart_form_required"})
		return
	}

	files := make([]service.EvidenceFile, 0, len(form.File["images"]))
	for _, header := range form.File["images"] {
		f, err := header.Open()
		if err != nil {
			badRequest(c, fmt.Errorf("open %s: %w", header.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			badRequest(c, fmt.Errorf("read %s: %w", header.Filename, err))
			return
		}
		files = append(files, service.EvidenceFile{
			Name:   header.Filename,
			Header: http.Header(header.Header),
			Data:   data,
		})
	}

	v, err := h.submissions.Submit(c.Request.Context(), service.SubmitInput{
		IDNumber:  c.PostForm("idNumber"),
		IDType:    models.IDType(c.PostForm("idType")),
		Uploader:  session,
		Files:     files,
		ImageURLs: form.Value["imageUrl"],
	})
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", session.ID).Msg("verification submission failed")
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, v)
}

// MyVerifications lists the caller's own submissions. Fleet drivers see
// everything filed under their organization.
func (h HandlerSet) MyVerifications(c *gin.Context) {
	session, _ := middleware.CurrentSession(c)
	owner := session.OrganizationID
	if owner == "" {
		owner = session.ID
	}

	items, err := h.verifications.ListOwnedBy(c.Request.Context(), owner)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
