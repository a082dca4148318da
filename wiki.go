package feishu

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/feishudocs/feishu.go/pkg/constants"
)

type wikiSpacePage struct {
	Items     []WikiSpace `json:"items"`
	PageToken string      `json:"page_token"`
	HasMore   bool        `json:"has_more"`
}

// ListWikiSpaces returns every wiki space visible to the credential.
func (c *Client) ListWikiSpaces(ctx context.Context) ([]WikiSpace, error) {
	var all []WikiSpace
	pageToken := ""

	for range constants.MaxPageIterations {
		q := url.Values{}
		q.Set("page_size", strconv.Itoa(constants.MaxPageSize))
		if pageToken != "" {
			q.Set("page_token", pageToken)
		}

		var page wikiSpacePage
		if err := c.do(ctx, http.MethodGet, "/wiki/v2/spaces", q, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Items...)

		if !page.HasMore || page.PageToken == "" {
			return all, nil
		}
		if page.PageToken == pageToken {
			return nil, constants.ErrPageLoop
		}
		pageToken = page.PageToken
	}
	return nil, constants.ErrPageLoop
}

// CreateWikiNode creates a document node in a wiki space. An empty
// parentNodeToken puts the node at the space root. The returned node carries
// the obj_token of the backing document, which is what the block operations
// take as documentID.
func (c *Client) CreateWikiNode(ctx context.Context, spaceID, title, parentNodeToken string) (*WikiNode, error) {
	body := map[string]string{
		"obj_type": "docx",
		"title":    title,
	}
	if parentNodeToken != "" {
		body["parent_node_token"] = parentNodeToken
	}

	var data struct {
		Node WikiNode `json:"node"`
	}
	path := fmt.Sprintf("/wiki/v2/spaces/%s/nodes", spaceID)
	if err := c.do(ctx, http.MethodPost, path, nil, body, &data); err != nil {
		return nil, err
	}
	return &data.Node, nil
}

type wikiNodePage struct {
	Items     []WikiNode `json:"items"`
	PageToken string     `json:"page_token"`
	HasMore   bool       `json:"has_more"`
}

// ListWikiNodes returns the child nodes under parentNodeToken, or the space's
// top-level nodes when it is empty.
func (c *Client) ListWikiNodes(ctx context.Context, spaceID, parentNodeToken string) ([]WikiNode, error) {
	var all []WikiNode
	pageToken := ""

	for range constants.MaxPageIterations {
		q := url.Values{}
		q.Set("page_size", strconv.Itoa(constants.MaxPageSize))
		if parentNodeToken != "" {
			q.Set("parent_node_token", parentNodeToken)
		}
		if pageToken != "" {
			q.Set("page_token", pageToken)
		}

		var page wikiNodePage
		path := fmt.Sprintf("/wiki/v2/spaces/%s/nodes", spaceID)
		if err := c.do(ctx, http.MethodGet, path, q, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Items...)

		if !page.HasMore || page.PageToken == "" {
			return all, nil
		}
		if page.PageToken == pageToken {
			return nil, constants.ErrPageLoop
		}
		pageToken = page.PageToken
	}
	return nil, constants.ErrPageLoop
}
