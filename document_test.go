package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feishudocs/feishu.go/internal/fakelark"
	"github.com/feishudocs/feishu.go/pkg/constants"
)

func TestCreateDocumentAndGetInfo(t *testing.T) {
	c, _ := newTestClient(t)

	docID, err := c.CreateDocument(context.Background(), "meeting notes", "")
	require.NoError(t, err)
	require.NotEmpty(t, docID)

	info, err := c.GetDocumentInfo(context.Background(), docID)
	require.NoError(t, err)
	assert.Equal(t, docID, info.DocumentID)
	assert.Equal(t, "meeting notes", info.Title)
	assert.Equal(t, 1, info.RevisionID)
}

func TestGetDocumentInfoNotFound(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.GetDocumentInfo(context.Background(), "doxcnmissing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestGetAllBlockChildrenPagesInOrder(t *testing.T) {
	c, srv := newTestClient(t)
	docID := srv.AddDocument("doc")

	contents := make([]string, 230)
	for i := range contents {
		contents[i] = fmt.Sprintf("paragraph %03d", i)
	}
	seeded := srv.AddBlocks(docID, "", contents...)

	blocks, err := c.GetAllBlockChildren(context.Background(), docID, "")
	require.NoError(t, err)
	require.Len(t, blocks, len(seeded))
	// Three pages at the maximum page size.
	assert.Equal(t, 3, srv.RequestCount(http.MethodGet, "/docx/v1/documents/"+docID+"/blocks/"))

	for i, b := range blocks {
		assert.Equal(t, seeded[i], b.BlockID)
		assert.Equal(t, contents[i], b.PlainText())
	}
}

func TestGetAllBlockChildrenEmptyParent(t *testing.T) {
	c, srv := newTestClient(t)
	docID := srv.AddDocument("doc")

	blocks, err := c.GetAllBlockChildren(context.Background(), docID, "")
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestPaginationLoopGuard(t *testing.T) {
	c, srv := newTestClient(t)
	docID := srv.AddDocument("doc")

	stuck, _ := json.Marshal(map[string]any{
		"code": 0, "msg": "ok",
		"data": map[string]any{"items": []any{}, "has_more": true, "page_token": "stuck"},
	})
	srv.Script(http.MethodGet, "/docx/v1/documents/"+docID+"/blocks/",
		fakelark.ScriptedResponse{Body: stuck},
		fakelark.ScriptedResponse{Body: stuck},
	)

	_, err := c.GetAllBlockChildren(context.Background(), docID, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, constants.ErrPageLoop)
}

func TestGetBlockTree(t *testing.T) {
	c, srv := newTestClient(t)
	docID := srv.AddDocument("doc")

	top := srv.AddBlocks(docID, "", "intro", "body", "outro")
	nested := srv.AddBlocks(docID, top[1], "detail one", "detail two")

	tree, err := c.GetBlockTree(context.Background(), docID)
	require.NoError(t, err)

	assert.Equal(t, docID, tree.BlockID)
	assert.Equal(t, BlockTypePage, tree.BlockType)
	require.Len(t, tree.Children, 3)
	assert.Equal(t, "intro", tree.Children[0].PlainText())
	assert.Equal(t, "outro", tree.Children[2].PlainText())

	mid := tree.Children[1]
	require.Len(t, mid.Children, 2)
	assert.Equal(t, nested[0], mid.Children[0].BlockID)
	assert.Equal(t, "detail two", mid.Children[1].PlainText())

	// Depth-first walk visits parents before children, siblings in order.
	var visited []string
	tree.Walk(func(n *BlockNode) { visited = append(visited, n.PlainText()) })
	assert.Equal(t, []string{"", "intro", "body", "detail one", "detail two", "outro"}, visited)
}

func TestUnknownBlockTypeStaysOpaque(t *testing.T) {
	c, srv := newTestClient(t)
	docID := srv.AddDocument("doc")
	srv.AddRawBlock(docID, "", "gadget", json.RawMessage(`{"vendor":"acme","pins":[1,2,3]}`))

	blocks, err := c.GetAllBlockChildren(context.Background(), docID, "")
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	b := blocks[0]
	assert.Equal(t, BlockType("gadget"), b.BlockType)
	assert.False(t, b.BlockType.Known())
	require.NotEmpty(t, b.Raw)

	// The raw payload survives a marshal round trip unchanged.
	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, string(b.Raw), string(out))
	assert.Contains(t, string(out), `"vendor":"acme"`)
}

func TestTreeDepthCeiling(t *testing.T) {
	c, srv := newTestClient(t)
	docID := srv.AddDocument("doc")

	parent := ""
	for range constants.MaxTreeDepth + 5 {
		parent = srv.AddBlocks(docID, parent, "nested")[0]
	}

	_, err := c.GetBlockTree(context.Background(), docID)
	require.Error(t, err)
	assert.ErrorIs(t, err, constants.ErrTreeTooDeep)
}

func TestRevisionUnchangedByReads(t *testing.T) {
	c, srv := newTestClient(t)
	docID := srv.AddDocument("doc")
	srv.AddBlocks(docID, "", "alpha")
	before := srv.Revision(docID)

	_, err := c.GetBlockTree(context.Background(), docID)
	require.NoError(t, err)
	_, err = c.GetAllBlockChildren(context.Background(), docID, "")
	require.NoError(t, err)

	assert.Equal(t, before, srv.Revision(docID))
}
