// Package controllers – CollectionController
//
// CollectionController owns the paginated, filterable view of the user's
// document library plus the selection used for bulk operations.
//
// Conventions:
//   - The server page is the source of truth: Refresh replaces the page
//     wholesale, and a failed fetch leaves the previous page intact.
//   - Selection only ever references rows on the current page; after a
//     refresh it is intersected with the new page's ids.
//   - A page index beyond the final page is clamped to the last valid page
//     and refetched once, which covers deleting the tail of the library.
//   - Bulk deletion is all-or-nothing; a failure leaves both the page and the
//     selection untouched.
//   - After Close, responses to in-flight fetches are discarded and the view
//     is left as it was.
package controllers

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/maventax/maven-client/internal/api"
	"github.com/maventax/maven-client/internal/domain"
	"github.com/maventax/maven-client/internal/utils"
)

// LibraryAPI is the slice of the REST client the collection depends on.
type LibraryAPI interface {
	ListDocuments(ctx context.Context, params api.ListParams) (*api.DocumentPage, error)
	Document(ctx context.Context, id int64) (*domain.DocumentRecord, error)
	DocumentStats(ctx context.Context) (*domain.DocumentStats, error)
	BulkDelete(ctx context.Context, ids []int64) error
}

// CollectionSnapshot is a point-in-time copy of the library view.
type CollectionSnapshot struct {
	Documents  []domain.DocumentRecord
	Page       int
	TotalPages int
	Count      int64
	Selected   []int64
	Search     string
	Type       string
	TimePeriod string
	Stats      *domain.DocumentStats
}

// CollectionController drives the document library view. Safe for concurrent
// use.
type CollectionController struct {
	api      LibraryAPI
	log      zerolog.Logger
	pageSize int

	mu         sync.Mutex
	closed     bool
	docs       []domain.DocumentRecord
	page       int
	count      int64
	selected   map[int64]struct{}
	search     string
	docType    string
	timePeriod string
	stats      *domain.DocumentStats
}

// NewCollectionController constructs an empty view on page 1.
func NewCollectionController(libraryAPI LibraryAPI, pageSize int, log zerolog.Logger) *CollectionController {
	if pageSize < 1 {
		pageSize = 10
	}
	return &CollectionController{
		api:      libraryAPI,
		log:      log,
		pageSize: pageSize,
		page:     1,
		selected: make(map[int64]struct{}),
	}
}

// Refresh fetches the current page with the current filters and replaces the
// view. When the page index has run past the end of the listing it is clamped
// to the last valid page and fetched once more. On failure the previous view
// is left intact.
func (c *CollectionController) Refresh(ctx context.Context) error {
	tr := otel.Tracer("controllers/Collection")
	ctx, span := tr.Start(ctx, "Refresh")
	defer span.End()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	params := api.ListParams{
		Search:     c.search,
		Type:       c.docType,
		TimePeriod: c.timePeriod,
		Page:       c.page,
		PageSize:   c.pageSize,
	}
	c.mu.Unlock()

	page, err := c.api.ListDocuments(ctx, params)
	if err != nil {
		return err
	}

	total := utils.TotalPages(page.Count, c.pageSize)
	if clamped := utils.ClampPage(params.Page, total); clamped != params.Page {
		span.SetAttributes(attribute.Int("page.clamped_to", clamped))
		params.Page = clamped
		if page, err = c.api.ListDocuments(ctx, params); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		// The view is gone; keep the stale page rather than mutate it.
		return ErrClosed
	}
	c.docs = page.Results
	c.count = page.Count
	c.page = params.Page
	c.intersectSelectionLocked()
	return nil
}

// RefreshStats refetches the corpus-wide counters.
func (c *CollectionController) RefreshStats(ctx context.Context) error {
	stats, err := c.api.DocumentStats(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.stats = stats
	return nil
}

// Detail fetches one record including its extraction and analysis payloads.
func (c *CollectionController) Detail(ctx context.Context, id int64) (*domain.DocumentRecord, error) {
	return c.api.Document(ctx, id)
}

// SetSearch installs a search filter and rewinds to page 1. The caller
// follows with Refresh.
func (c *CollectionController) SetSearch(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.search == q {
		return
	}
	c.search = q
	c.page = 1
}

// SetType installs a document-type filter and rewinds to page 1.
func (c *CollectionController) SetType(t string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.docType == t {
		return
	}
	c.docType = t
	c.page = 1
}

// SetTimePeriod installs a time-period filter and rewinds to page 1.
func (c *CollectionController) SetTimePeriod(p string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timePeriod == p {
		return
	}
	c.timePeriod = p
	c.page = 1
}

// SetPage moves to page n (1-based). Values below 1 pin to 1; values beyond
// the end are corrected by the next Refresh.
func (c *CollectionController) SetPage(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 1 {
		n = 1
	}
	c.page = n
}

// ToggleSelect flips the selection of id and reports the resulting state.
// Ids not on the current page are ignored.
func (c *CollectionController) ToggleSelect(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.onPageLocked(id) {
		return false
	}
	if _, ok := c.selected[id]; ok {
		delete(c.selected, id)
		return false
	}
	c.selected[id] = struct{}{}
	return true
}

// SelectAll selects every row on the current page.
func (c *CollectionController) SelectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.docs {
		c.selected[d.ID] = struct{}{}
	}
}

// ClearSelection empties the selection.
func (c *CollectionController) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = make(map[int64]struct{})
}

// SelectedIDs returns the selected ids in ascending order.
func (c *CollectionController) SelectedIDs() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedIDsLocked()
}

// BulkDelete removes the selected documents in one batch. confirm, when
// non-nil, is asked once with the selection size and may veto the operation.
// On success the view is refreshed and the stats recounted; on failure the
// page and the selection are left exactly as they were.
func (c *CollectionController) BulkDelete(ctx context.Context, confirm func(count int) bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	ids := c.selectedIDsLocked()
	c.mu.Unlock()
	if len(ids) == 0 {
		return ErrNothingSelected
	}
	if confirm != nil && !confirm(len(ids)) {
		return ErrConfirmationDeclined
	}

	tr := otel.Tracer("controllers/Collection")
	ctx, span := tr.Start(ctx, "BulkDelete",
		trace.WithAttributes(attribute.Int("documents.count", len(ids))))
	defer span.End()

	if err := c.api.BulkDelete(ctx, ids); err != nil {
		c.log.Warn().Err(err).Ints64("ids", ids).Msg("bulk delete failed")
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.selected = make(map[int64]struct{})
	c.mu.Unlock()
	c.log.Info().Ints64("ids", ids).Msg("documents deleted")

	if err := c.Refresh(ctx); err != nil {
		return err
	}
	if err := c.RefreshStats(ctx); err != nil {
		// The listing is already consistent; a stale counter is tolerable.
		c.log.Warn().Err(err).Msg("stats recount failed after delete")
	}
	return nil
}

// Close detaches the controller. Responses to in-flight fetches are
// discarded; later operations fail with ErrClosed.
func (c *CollectionController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Snapshot copies the view state for rendering.
func (c *CollectionController) Snapshot() CollectionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	docs := make([]domain.DocumentRecord, len(c.docs))
	copy(docs, c.docs)
	var stats *domain.DocumentStats
	if c.stats != nil {
		s := *c.stats
		stats = &s
	}
	return CollectionSnapshot{
		Documents:  docs,
		Page:       c.page,
		TotalPages: utils.TotalPages(c.count, c.pageSize),
		Count:      c.count,
		Selected:   c.selectedIDsLocked(),
		Search:     c.search,
		Type:       c.docType,
		TimePeriod: c.timePeriod,
		Stats:      stats,
	}
}

// intersectSelectionLocked drops selected ids that are no longer on the
// current page. Caller holds mu.
func (c *CollectionController) intersectSelectionLocked() {
	for id := range c.selected {
		if !c.onPageLocked(id) {
			delete(c.selected, id)
		}
	}
}

func (c *CollectionController) onPageLocked(id int64) bool {
	for _, d := range c.docs {
		if d.ID == id {
			return true
		}
	}
	return false
}

func (c *CollectionController) selectedIDsLocked() []int64 {
	ids := make([]int64, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
