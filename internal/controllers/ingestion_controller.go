// Package controllers – IngestionController
//
// IngestionController drives one document upload job through its lifecycle:
//
//	Idle → Selected → Uploading → Succeeded
//	                           ↘ Failed → Idle (via Reset)
//
// Selection validates locally (MIME allow-list, size cap) before any network
// traffic; an invalid pick lands in Failed immediately. Succeeded is terminal
// for the job, but a new selection always starts a fresh job. Error banners
// are transient and clear themselves after a fixed interval. After Close, an
// in-flight upload's outcome is discarded without mutating the job.
package controllers

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/maventax/maven-client/internal/api"
	"github.com/maventax/maven-client/internal/domain"
)

// UploadAPI is the slice of the REST client the ingestion job depends on.
type UploadAPI interface {
	Upload(ctx context.Context, in api.UploadInput) (*api.UploadResponse, error)
	DocumentStatus(ctx context.Context, id int64) (*api.ProcessingStatus, error)
}

// IngestState is the lifecycle phase of the current upload job.
type IngestState int

const (
	IngestIdle IngestState = iota
	IngestSelected
	IngestUploading
	IngestSucceeded
	IngestFailed
)

// String returns a stable lower-case name for the state.
func (s IngestState) String() string {
	switch s {
	case IngestIdle:
		return "idle"
	case IngestSelected:
		return "selected"
	case IngestUploading:
		return "uploading"
	case IngestSucceeded:
		return "succeeded"
	case IngestFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FileSelection describes the validated file of the current job.
type FileSelection struct {
	Filename     string
	MimeType     string
	Size         int64
	DocumentType string
}

// initialComplianceScore is the baseline shown before any upload; each
// successful ingestion nudges it up by compliancePerUpload, capped at 100.
const (
	initialComplianceScore = 94
	compliancePerUpload    = 3
)

// IngestionController owns one upload job at a time. Safe for concurrent use.
type IngestionController struct {
	api       UploadAPI
	log       zerolog.Logger
	maxBytes  int64
	bannerTTL time.Duration
	// startTimer schedules the banner expiry; replaced in tests.
	startTimer func(d time.Duration, f func()) *time.Timer

	mu         sync.Mutex
	closed     bool
	state      IngestState
	sel        FileSelection
	progress   int
	compliance int
	documentID int64
	banner     string
	bannerGen  int
	notice     string
	noticeGen  int
}

// NewIngestionController constructs a controller in the Idle state.
// maxBytes <= 0 disables the size cap; bannerTTL <= 0 makes banners sticky.
func NewIngestionController(uploadAPI UploadAPI, maxBytes int64, bannerTTL time.Duration, log zerolog.Logger) *IngestionController {
	return &IngestionController{
		api:        uploadAPI,
		log:        log,
		maxBytes:   maxBytes,
		bannerTTL:  bannerTTL,
		startTimer: time.AfterFunc,
		compliance: initialComplianceScore,
	}
}

// SelectFile validates a file pick and starts a fresh job for it. An invalid
// pick moves the job to Failed without any network traffic. Selecting while an
// upload is in flight fails with ErrBusy.
func (c *IngestionController) SelectFile(filename, mimeType string, size int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.state == IngestUploading {
		return ErrBusy
	}

	// Every selection is a fresh job; prior results are discarded.
	c.documentID = 0
	c.progress = 0
	c.clearNoticeLocked()

	if !AllowedMimeType(mimeType) {
		c.state = IngestFailed
		c.setBannerLocked("This file type is not supported. Upload a PDF, image, or spreadsheet.")
		return ErrInvalidFileType
	}
	if c.maxBytes > 0 && size > c.maxBytes {
		c.state = IngestFailed
		c.setBannerLocked("This file is too large to upload.")
		return ErrFileTooLarge
	}

	c.sel = FileSelection{
		Filename:     filename,
		MimeType:     mimeType,
		Size:         size,
		DocumentType: SuggestDocumentType(filename, mimeType),
	}
	c.state = IngestSelected
	c.clearBannerLocked()
	return nil
}

// SetDocumentType overrides the suggested classification of the current
// selection.
func (c *IngestionController) SetDocumentType(t string) error {
	if !domain.ValidDocumentType(t) {
		return ErrInvalidFileType
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != IngestSelected {
		return ErrNotSelected
	}
	c.sel.DocumentType = t
	return nil
}

// Upload transfers the selected file, relaying transfer progress into the
// job. On success the job is Succeeded and the compliance score advances; on
// failure it is Failed with progress reset and a transient banner.
func (c *IngestionController) Upload(ctx context.Context, content io.Reader) (int64, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, ErrClosed
	}
	switch c.state {
	case IngestUploading:
		c.mu.Unlock()
		return 0, ErrBusy
	case IngestSucceeded:
		c.mu.Unlock()
		return 0, ErrUploadFinished
	case IngestSelected:
		// proceed
	default:
		c.mu.Unlock()
		return 0, ErrNotSelected
	}
	c.state = IngestUploading
	c.progress = 0
	sel := c.sel
	c.mu.Unlock()

	tr := otel.Tracer("controllers/Ingestion")
	ctx, span := tr.Start(ctx, "Upload",
		trace.WithAttributes(
			attribute.String("document.type", sel.DocumentType),
			attribute.Int64("document.size", sel.Size),
		),
	)
	defer span.End()

	resp, err := c.api.Upload(ctx, api.UploadInput{
		Filename:     sel.Filename,
		MimeType:     sel.MimeType,
		Content:      content,
		DocumentType: sel.DocumentType,
		Progress:     c.setProgress,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		// The view is gone; discard the outcome without touching the job.
		return 0, ErrClosed
	}
	if err != nil {
		c.state = IngestFailed
		c.progress = 0
		c.setBannerLocked(uploadBannerText(err))
		c.log.Warn().Err(err).Str("filename", sel.Filename).Msg("upload failed")
		return 0, err
	}
	c.state = IngestSucceeded
	c.progress = 100
	c.documentID = resp.DocumentID
	c.compliance += compliancePerUpload
	if c.compliance > 100 {
		c.compliance = 100
	}
	c.clearBannerLocked()
	c.setNoticeLocked("Document uploaded. Processing has started.")
	c.log.Info().Int64("document_id", resp.DocumentID).Str("filename", resp.Filename).Msg("upload accepted")
	return resp.DocumentID, nil
}

// Close detaches the controller. An in-flight upload completes silently
// without transitioning the job; later operations fail with ErrClosed.
func (c *IngestionController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Reset returns a Failed job to Idle. It is a no-op in every other state.
func (c *IngestionController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state != IngestFailed {
		return
	}
	c.state = IngestIdle
	c.sel = FileSelection{}
	c.progress = 0
	c.clearBannerLocked()
	c.clearNoticeLocked()
}

// ProcessingStatus polls the server-side pipeline for the uploaded document.
func (c *IngestionController) ProcessingStatus(ctx context.Context) (*api.ProcessingStatus, error) {
	c.mu.Lock()
	id := c.documentID
	state := c.state
	c.mu.Unlock()
	if state != IngestSucceeded || id == 0 {
		return nil, ErrNotSelected
	}
	return c.api.DocumentStatus(ctx, id)
}

// State returns the current lifecycle phase.
func (c *IngestionController) State() IngestState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Selection returns the current file selection.
func (c *IngestionController) Selection() FileSelection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel
}

// Progress returns the last reported transfer percentage in [0,100].
func (c *IngestionController) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// ComplianceScore returns the running score shown next to the upload panel.
func (c *IngestionController) ComplianceScore() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compliance
}

// DocumentID returns the server id of the uploaded document, or 0 before
// success.
func (c *IngestionController) DocumentID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.documentID
}

// Banner returns the current transient error text, or "".
func (c *IngestionController) Banner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

// Notice returns the current transient success text, or "".
func (c *IngestionController) Notice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notice
}

// setProgress relays percentages from the transfer into the job. Stale
// reports arriving after the job left Uploading are dropped.
func (c *IngestionController) setProgress(pct int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state != IngestUploading {
		return
	}
	c.progress = pct
}

// setBannerLocked installs banner text and schedules its expiry. Caller holds
// mu. The generation counter keeps an expired timer from clearing a newer
// banner.
func (c *IngestionController) setBannerLocked(text string) {
	c.banner = text
	c.bannerGen++
	if c.bannerTTL <= 0 {
		return
	}
	gen := c.bannerGen
	c.startTimer(c.bannerTTL, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.closed && c.bannerGen == gen {
			c.banner = ""
		}
	})
}

func (c *IngestionController) clearBannerLocked() {
	c.banner = ""
	c.bannerGen++
}

func (c *IngestionController) clearNoticeLocked() {
	c.notice = ""
	c.noticeGen++
}

// setNoticeLocked mirrors setBannerLocked for success text. Caller holds mu.
func (c *IngestionController) setNoticeLocked(text string) {
	c.notice = text
	c.noticeGen++
	if c.bannerTTL <= 0 {
		return
	}
	gen := c.noticeGen
	c.startTimer(c.bannerTTL, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.closed && c.noticeGen == gen {
			c.notice = ""
		}
	})
}

// uploadBannerText maps an upload failure to banner copy.
func uploadBannerText(err error) string {
	var ae *api.Error
	if errors.As(err, &ae) {
		return ae.UserMessage()
	}
	return "Upload failed. Please try again."
}
