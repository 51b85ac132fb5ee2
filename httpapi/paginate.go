package httpapi

import (
	"context"
	"encoding/json"
	"net/url"
)

// Pagination is the normalized paging metadata attached to every [Page].
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// Page is a normalized list response.
type Page struct {
	Data       json.RawMessage `json:"data"`
	Pagination Pagination      `json:"pagination"`
}

// GetPaginated fetches a list endpoint and normalizes the backend's response
// into one [Page] shape. The backend is inconsistent about list envelopes;
// four shapes are tolerated (full data+pagination envelope, bare array,
// data-only wrapper, success envelope). Anything else is an adapter bug and
// fails loudly with a SERVER_ERROR instead of returning an empty page.
func (c *Client) GetPaginated(ctx context.Context, endpoint string, params url.Values, opts ...RequestOption) (*Page, error) {
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}

	res, err := c.Get(ctx, endpoint, opts...)
	if err != nil {
		return nil, err
	}
	return normalizePage(res.Data)
}

func normalizePage(raw json.RawMessage) (*Page, error) {
	// Shape 1: {data: [], pagination: {}}
	var full struct {
		Data       json.RawMessage `json:"data"`
		Pagination *Pagination     `json:"pagination"`
	}
	if err := json.Unmarshal(raw, &full); err == nil && full.Data != nil && full.Pagination != nil {
		return &Page{Data: full.Data, Pagination: *full.Pagination}, nil
	}

	// Shape 2: bare array.
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		return syntheticPage(raw, len(items)), nil
	}

	// Shapes 3 and 4: {data: []} with no pagination, or {success, data: []}.
	// Both reduce to a data field holding an array.
	if full.Data != nil {
		if err := json.Unmarshal(full.Data, &items); err == nil {
			return syntheticPage(full.Data, len(items)), nil
		}
	}

	return nil, &Error{Code: CodeServer, Message: "unrecognized list payload"}
}

func syntheticPage(data json.RawMessage, count int) *Page {
	return &Page{
		Data: data,
		Pagination: Pagination{
			Page:       1,
			Limit:      count,
			Total:      count,
			TotalPages: 1,
			HasNext:    false,
			HasPrev:    false,
		},
	}
}
