package feishu

import (
	"context"
	"net/http"
)

type searchRequest struct {
	Query      string        `json:"query"`
	SearchType string        `json:"search_type"`
	Count      int           `json:"count"`
	Filter     *searchFilter `json:"filter,omitempty"`
}

type searchFilter struct {
	DocumentFormats []string `json:"document_formats"`
}

type searchResponse struct {
	Items []SearchResult `json:"items"`
}

// SearchDocuments searches documents visible to the credential by keyword.
// docType narrows the hits to one format, e.g. "docx" or "wiki"; empty means
// all formats. count caps the number of hits; zero or negative uses 20.
func (c *Client) SearchDocuments(ctx context.Context, query, docType string, count int) ([]SearchResult, error) {
	if query == "" {
		return nil, &ValidationError{Msg: "search query is empty"}
	}
	if count <= 0 {
		count = 20
	}

	body := searchRequest{
		Query:      query,
		SearchType: "document",
		Count:      count,
	}
	if docType != "" {
		body.Filter = &searchFilter{DocumentFormats: []string{docType}}
	}

	var data searchResponse
	if err := c.do(ctx, http.MethodPost, "/search/v2/message", nil, body, &data); err != nil {
		return nil, err
	}
	return data.Items, nil
}
