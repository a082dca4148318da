package feishu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchDocuments(t *testing.T) {
	c, srv := newTestClient(t)
	srv.AddSearchHit("doxcn001", "docx", "Quarterly planning")
	srv.AddSearchHit("doxcn002", "docx", "Planning checklist")
	srv.AddSearchHit("wikcn003", "wiki", "Planning wiki page")

	hits, err := c.SearchDocuments(context.Background(), "planning", "", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 3)

	hits, err = c.SearchDocuments(context.Background(), "planning", "wiki", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "wikcn003", hits[0].DocsToken)
	assert.Equal(t, "wiki", hits[0].DocsType)
}

func TestSearchDocumentsCountCap(t *testing.T) {
	c, srv := newTestClient(t)
	srv.AddSearchHit("doxcn001", "docx", "note one")
	srv.AddSearchHit("doxcn002", "docx", "note two")
	srv.AddSearchHit("doxcn003", "docx", "note three")

	hits, err := c.SearchDocuments(context.Background(), "note", "", 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearchDocumentsNoMatch(t *testing.T) {
	c, srv := newTestClient(t)
	srv.AddSearchHit("doxcn001", "docx", "unrelated")

	hits, err := c.SearchDocuments(context.Background(), "zebra", "", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchDocumentsRejectsEmptyQuery(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.SearchDocuments(context.Background(), "", "", 0)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}
