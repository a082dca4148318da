package feishu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListWikiSpaces(t *testing.T) {
	c, srv := newTestClient(t)
	srv.AddWikiSpace("engineering")
	srv.AddWikiSpace("product")

	spaces, err := c.ListWikiSpaces(context.Background())
	require.NoError(t, err)
	require.Len(t, spaces, 2)
	assert.Equal(t, "engineering", spaces[0].Name)
	assert.NotEmpty(t, spaces[0].SpaceID)
}

func TestCreateWikiNodeBacksADocument(t *testing.T) {
	c, srv := newTestClient(t)
	spaceID := srv.AddWikiSpace("engineering")

	node, err := c.CreateWikiNode(context.Background(), spaceID, "runbook", "")
	require.NoError(t, err)
	assert.NotEmpty(t, node.NodeToken)
	assert.Equal(t, "docx", node.ObjType)
	assert.Equal(t, "runbook", node.Title)

	// The obj token is a live document id usable with the block operations.
	info, err := c.GetDocumentInfo(context.Background(), node.ObjToken)
	require.NoError(t, err)
	assert.Equal(t, "runbook", info.Title)

	ids, err := c.CreateChildren(context.Background(), node.ObjToken, "", textBlocks(t, 1), -1)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestListWikiNodesFiltersByParent(t *testing.T) {
	c, srv := newTestClient(t)
	spaceID := srv.AddWikiSpace("engineering")

	root, err := c.CreateWikiNode(context.Background(), spaceID, "root", "")
	require.NoError(t, err)
	_, err = c.CreateWikiNode(context.Background(), spaceID, "child a", root.NodeToken)
	require.NoError(t, err)
	_, err = c.CreateWikiNode(context.Background(), spaceID, "child b", root.NodeToken)
	require.NoError(t, err)

	top, err := c.ListWikiNodes(context.Background(), spaceID, "")
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "root", top[0].Title)

	children, err := c.ListWikiNodes(context.Background(), spaceID, root.NodeToken)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "child a", children[0].Title)
	assert.Equal(t, "child b", children[1].Title)
}
