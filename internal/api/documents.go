// Package api – document ingestion and library endpoints.
//
// Upload sends multipart form data ({file, document_type}) and reports
// transfer progress through a callback; everything else is plain JSON over
// the shared pipeline.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/maventax/maven-client/internal/domain"
)

// UploadInput describes one file handed to Upload.
type UploadInput struct {
	Filename     string
	MimeType     string
	Content      io.Reader
	DocumentType string
	// Progress, when non-nil, receives monotonically increasing percentages
	// in [0,100] as the request body is transmitted. 100 is always reported
	// before Upload returns successfully.
	Progress func(pct int)
}

// UploadResponse is the server's synchronous acceptance of an upload.
// Processing continues asynchronously; poll DocumentStatus for completion.
type UploadResponse struct {
	DocumentID int64  `json:"document_id"`
	Filename   string `json:"filename"`
}

// ListParams filter and paginate the document library. Zero values are
// omitted from the query.
type ListParams struct {
	Search     string
	Type       string
	TimePeriod string
	Page       int
	PageSize   int
}

// DocumentPage is one page of the library plus the corpus-wide match count.
type DocumentPage struct {
	Results []domain.DocumentRecord `json:"results"`
	Count   int64                   `json:"count"`
}

// ProcessingStatus is the poll target for an ingested document.
type ProcessingStatus struct {
	Status      string `json:"status"`
	IsProcessed bool   `json:"is_processed"`
}

// Upload transfers one document. The whole multipart body is assembled in
// memory first (uploads are capped well below available memory by the
// controller) so that progress can be derived from exact byte counts.
func (c *Client) Upload(ctx context.Context, in UploadInput) (*UploadResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, in.Filename))
	hdr.Set("Content-Type", in.MimeType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, newValidationError("upload body could not be built: " + err.Error())
	}
	if _, err := io.Copy(part, in.Content); err != nil {
		return nil, newValidationError("file could not be read: " + err.Error())
	}
	if err := mw.WriteField("document_type", in.DocumentType); err != nil {
		return nil, newValidationError("upload body could not be built: " + err.Error())
	}
	if err := mw.Close(); err != nil {
		return nil, newValidationError("upload body could not be built: " + err.Error())
	}

	reader := newProgressReader(&body, int64(body.Len()), in.Progress)
	req, err := c.newRequest(ctx, http.MethodPost, "documents/upload/", nil, reader, true)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.ContentLength = reader.total

	var out UploadResponse
	if err := c.roundTrip(req, "documents.upload", &out, true, c.uploadc); err != nil {
		return nil, err
	}
	// The body was fully sent by the time a response arrived, but a nil-safe
	// final tick guarantees 100 is observed even for empty files.
	reader.finish()
	return &out, nil
}

// ListDocuments fetches one page of the library matching params.
func (c *Client) ListDocuments(ctx context.Context, params ListParams) (*DocumentPage, error) {
	q := url.Values{}
	if params.Search != "" {
		q.Set("search", params.Search)
	}
	if params.Type != "" {
		q.Set("type", params.Type)
	}
	if params.TimePeriod != "" {
		q.Set("time_period", params.TimePeriod)
	}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(params.PageSize))
	}
	var out DocumentPage
	if err := c.call(ctx, "documents.list", http.MethodGet, "documents/", q, nil, &out, true); err != nil {
		return nil, err
	}
	if out.Results == nil {
		out.Results = []domain.DocumentRecord{}
	}
	return &out, nil
}

// Document fetches one record including its extraction/analysis payloads.
func (c *Client) Document(ctx context.Context, id int64) (*domain.DocumentRecord, error) {
	var out domain.DocumentRecord
	path := fmt.Sprintf("documents/%d/", id)
	if err := c.call(ctx, "documents.detail", http.MethodGet, path, nil, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// DocumentStatus polls the processing state of one document.
func (c *Client) DocumentStatus(ctx context.Context, id int64) (*ProcessingStatus, error) {
	var out ProcessingStatus
	path := fmt.Sprintf("documents/%d/status/", id)
	if err := c.call(ctx, "documents.status", http.MethodGet, path, nil, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// DocumentStats fetches corpus-wide counts for the authenticated user.
func (c *Client) DocumentStats(ctx context.Context) (*domain.DocumentStats, error) {
	var out domain.DocumentStats
	if err := c.call(ctx, "documents.stats", http.MethodGet, "documents/stats/", nil, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// BulkDelete removes the given documents in one batch request. The backend
// reports a single aggregate result; there is no partial success.
func (c *Client) BulkDelete(ctx context.Context, ids []int64) error {
	body := struct {
		DocumentIDs []int64 `json:"document_ids"`
	}{DocumentIDs: ids}
	return c.call(ctx, "documents.bulk_delete", http.MethodPost, "documents/bulk-delete/", nil, body, nil, true)
}
