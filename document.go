package feishu

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/feishudocs/feishu.go/pkg/constants"
)

// CreateDocument creates an empty document, optionally inside a Drive folder,
// and returns its id. The id doubles as the root page block's id.
func (c *Client) CreateDocument(ctx context.Context, title, folderToken string) (string, error) {
	body := map[string]string{"title": title}
	if folderToken != "" {
		body["folder_token"] = folderToken
	}

	var data struct {
		Document Document `json:"document"`
	}
	if err := c.do(ctx, http.MethodPost, "/docx/v1/documents/", nil, body, &data); err != nil {
		return "", err
	}
	return data.Document.DocumentID, nil
}

// GetDocumentInfo returns document metadata. It is the cheapest existence and
// permission probe before an edit.
func (c *Client) GetDocumentInfo(ctx context.Context, documentID string) (*Document, error) {
	var data struct {
		Document Document `json:"document"`
	}
	if err := c.do(ctx, http.MethodGet, "/docx/v1/documents/"+documentID, nil, nil, &data); err != nil {
		return nil, err
	}
	return &data.Document, nil
}

// BlockPage is one page of a block-children listing.
type BlockPage struct {
	Items     []Block `json:"items"`
	PageToken string  `json:"page_token"`
	HasMore   bool    `json:"has_more"`
}

// GetBlockChildren fetches one page of the immediate children of blockID at
// the latest revision. An empty blockID means the document root.
func (c *Client) GetBlockChildren(ctx context.Context, documentID, blockID, pageToken string, pageSize int) (*BlockPage, error) {
	if blockID == "" {
		blockID = documentID
	}
	if pageSize <= 0 || pageSize > constants.MaxPageSize {
		pageSize = constants.MaxPageSize
	}

	q := url.Values{}
	q.Set("document_revision_id", "-1")
	q.Set("page_size", strconv.Itoa(pageSize))
	if pageToken != "" {
		q.Set("page_token", pageToken)
	}

	var page BlockPage
	path := fmt.Sprintf("/docx/v1/documents/%s/blocks/%s/children", documentID, blockID)
	if err := c.do(ctx, http.MethodGet, path, q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetAllBlockChildren pages through every immediate child of blockID,
// preserving order. The loop stops on an empty or absent continuation token
// and refuses to spin if the store echoes the same token back.
func (c *Client) GetAllBlockChildren(ctx context.Context, documentID, blockID string) ([]Block, error) {
	var all []Block
	pageToken := ""

	for range constants.MaxPageIterations {
		page, err := c.GetBlockChildren(ctx, documentID, blockID, pageToken, constants.MaxPageSize)
		if err != nil {
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

// GetBlockTree fetches the complete block tree of a document, rooted at the
// page block whose id equals the document id. Sibling order is the order the
// store returned. Nesting is bounded at MaxTreeDepth to guard against
// pathological documents.
func (c *Client) GetBlockTree(ctx context.Context, documentID string) (*BlockNode, error) {
	root := &BlockNode{Block: Block{BlockID: documentID, BlockType: BlockTypePage}}
	if err := c.fillChildren(ctx, documentID, root, 0); err != nil {
		return nil, err
	}
	return root, nil
}

func (c *Client) fillChildren(ctx context.Context, documentID string, node *BlockNode, depth int) error {
	if depth >= constants.MaxTreeDepth {
		return constants.ErrTreeTooDeep
	}

	children, err := c.GetAllBlockChildren(ctx, documentID, node.BlockID)
	if err != nil {
		return err
	}

	node.Children = make([]*BlockNode, 0, len(children))
	for i := range children {
		child := &BlockNode{Block: children[i]}
		node.Children = append(node.Children, child)
		if len(child.ChildIDs) > 0 {
			if err := c.fillChildren(ctx, documentID, child, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
