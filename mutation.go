package feishu

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/feishudocs/feishu.go/pkg/constants"
)

type createChildrenRequest struct {
	Children []Block `json:"children"`
	Index    int     `json:"index"`
}

type createChildrenResponse struct {
	Blocks []Block `json:"blocks"`
}

type batchCreateEntry struct {
	ParentBlockID string  `json:"parent_block_id"`
	Children      []Block `json:"children"`
	Index         int     `json:"index"`
}

type batchCreateRequest struct {
	Requests []batchCreateEntry `json:"requests"`
}

// CreateChildren creates blocks under parentID starting at index; index -1
// appends. A single block goes out as one direct creation call; more are
// partitioned into consecutive chunks of at most MaxChildrenPerBatch, each
// submitted as one batch call. Chunks are submitted strictly in input order
// and never in parallel: with index -1 every chunk appends to the current
// end, so reordering would scramble the final document order.
func (c *Client) CreateChildren(ctx context.Context, documentID, parentID string, blocks []Block, index int) ([]string, error) {
	if parentID == "" {
		parentID = documentID
	}
	if len(blocks) == 0 {
		return nil, nil
	}
	if len(blocks) == 1 {
		return c.createChildrenCall(ctx, documentID, parentID, blocks, index)
	}

	var ids []string
	for start := 0; start < len(blocks); start += constants.MaxChildrenPerBatch {
		end := start + constants.MaxChildrenPerBatch
		if end > len(blocks) {
			end = len(blocks)
		}
		chunkIndex := index
		if index >= 0 {
			// Later chunks land after the ones already inserted.
			chunkIndex = index + start
		}
		got, err := c.batchCreateCall(ctx, documentID, parentID, blocks[start:end], chunkIndex)
		if err != nil {
			return ids, err
		}
		ids = append(ids, got...)
	}
	return ids, nil
}

func (c *Client) createChildrenCall(ctx context.Context, documentID, parentID string, blocks []Block, index int) ([]string, error) {
	path := fmt.Sprintf("/docx/v1/documents/%s/blocks/%s/children", documentID, parentID)
	var data createChildrenResponse
	err := c.do(ctx, http.MethodPost, path, nil, createChildrenRequest{Children: blocks, Index: index}, &data)
	if err != nil {
		return nil, err
	}
	return blockIDs(data.Blocks), nil
}

func (c *Client) batchCreateCall(ctx context.Context, documentID, parentID string, blocks []Block, index int) ([]string, error) {
	if len(blocks) > constants.MaxChildrenPerBatch {
		return nil, &ValidationError{Msg: fmt.Sprintf("batch of %d children exceeds the ceiling of %d", len(blocks), constants.MaxChildrenPerBatch)}
	}

	path := fmt.Sprintf("/docx/v1/documents/%s/blocks/batch_create", documentID)
	body := batchCreateRequest{Requests: []batchCreateEntry{{
		ParentBlockID: parentID,
		Children:      blocks,
		Index:         index,
	}}}

	var data createChildrenResponse
	if err := c.do(ctx, http.MethodPost, path, nil, body, &data); err != nil {
		return nil, err
	}
	return blockIDs(data.Blocks), nil
}

// BlockInsertion pairs a block with its position in the final document.
type BlockInsertion struct {
	Block Block
	Index int
}

// InsertAtPositions inserts blocks at explicit positions under parentID.
// Positions are final-document indices, not positions within this call, so
// insertions are normalized to ascending order before submission; inserting a
// later block at a smaller index would shift every sibling after it.
// Each insertion is its own single-child creation call.
func (c *Client) InsertAtPositions(ctx context.Context, documentID, parentID string, insertions []BlockInsertion) ([]string, error) {
	if parentID == "" {
		parentID = documentID
	}

	sorted := make([]BlockInsertion, len(insertions))
	copy(sorted, insertions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	var ids []string
	for _, ins := range sorted {
		got, err := c.createChildrenCall(ctx, documentID, parentID, []Block{ins.Block}, ins.Index)
		if err != nil {
			return ids, err
		}
		ids = append(ids, got...)
	}
	return ids, nil
}

// UpdateBlock replaces the content of an existing block. The payload's type
// must match the block's declared type; the store rejects a mismatch.
func (c *Client) UpdateBlock(ctx context.Context, documentID, blockID string, block Block) error {
	path := fmt.Sprintf("/docx/v1/documents/%s/blocks/%s", documentID, blockID)
	return c.do(ctx, http.MethodPatch, path, nil, block, nil)
}

// DeleteBlock deletes a block. The store reports not-found on a second
// delete; callers that want idempotence can treat IsNotFound as success.
func (c *Client) DeleteBlock(ctx context.Context, documentID, blockID string) error {
	path := fmt.Sprintf("/docx/v1/documents/%s/blocks/%s", documentID, blockID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func blockIDs(blocks []Block) []string {
	ids := make([]string, 0, len(blocks))
	for i := range blocks {
		ids = append(ids, blocks[i].BlockID)
	}
	return ids
}
