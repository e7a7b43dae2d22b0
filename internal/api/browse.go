// Package api – directory and dashboard reads.
//
// These are plain fetch-and-render surfaces with no client-side state
// machine; payloads beyond the partner list shape are passed through
// opaquely.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// PartnerParams filter the partner firm directory.
type PartnerParams struct {
	Search string
	State  string
	Page   int
}

// PartnerFirm is one entry in the partner directory listing.
type PartnerFirm struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	State          string `json:"state"`
	Specialization string `json:"specialization"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
}

// PartnerPage is one page of the partner directory.
type PartnerPage struct {
	Results []PartnerFirm `json:"results"`
	Count   int64         `json:"count"`
}

// Partners fetches a page of partner firms matching params.
func (c *Client) Partners(ctx context.Context, params PartnerParams) (*PartnerPage, error) {
	q := url.Values{}
	if params.Search != "" {
		q.Set("search", params.Search)
	}
	if params.State != "" {
		q.Set("state", params.State)
	}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	var out PartnerPage
	if err := c.call(ctx, "partners.list", http.MethodGet, "partners/", q, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Partner fetches one partner firm's full details.
func (c *Client) Partner(ctx context.Context, id int64) (json.RawMessage, error) {
	var out json.RawMessage
	path := "partners/" + strconv.FormatInt(id, 10) + "/"
	if err := c.call(ctx, "partners.detail", http.MethodGet, path, nil, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// Dashboard fetches the aggregate dashboard document for the authenticated
// user.
func (c *Client) Dashboard(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.call(ctx, "dashboard.fetch", http.MethodGet, "dashboard/", nil, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}
