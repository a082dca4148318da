package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// GetWhiteboardNodes returns the drawing nodes of a whiteboard. Node schemas
// vary by shape and evolve server-side, so they are returned opaque; the
// whiteboard id is the token of a canvas block. Creating a whiteboard goes
// through the canvas block itself (see Whiteboard).
func (c *Client) GetWhiteboardNodes(ctx context.Context, whiteboardID string) ([]json.RawMessage, error) {
	var data struct {
		Nodes []json.RawMessage `json:"nodes"`
	}
	path := fmt.Sprintf("/board/v1/whiteboards/%s/nodes", whiteboardID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &data); err != nil {
		return nil, err
	}
	return data.Nodes, nil
}
