package feishu

import (
	"encoding/json"
)

// BlockType identifies the content schema carried by a Block. The vocabulary
// is closed; types the client does not know decode into an opaque Block that
// keeps the raw payload (see Block.Raw).
type BlockType string

const (
	BlockTypePage      BlockType = "page"
	BlockTypeText      BlockType = "text"
	BlockTypeHeading   BlockType = "heading1"
	BlockTypeBullet    BlockType = "bullet"
	BlockTypeOrdered   BlockType = "ordered"
	BlockTypeCode      BlockType = "code"
	BlockTypeImage     BlockType = "image"
	BlockTypeEquation  BlockType = "equation"
	BlockTypeTable     BlockType = "table"
	BlockTypeTableCell BlockType = "table_cell"
	BlockTypeCanvas    BlockType = "canvas"
)

// Known reports whether t is part of the closed vocabulary.
func (t BlockType) Known() bool {
	switch t {
	case BlockTypePage, BlockTypeText, BlockTypeHeading, BlockTypeBullet,
		BlockTypeOrdered, BlockTypeCode, BlockTypeImage, BlockTypeEquation,
		BlockTypeTable, BlockTypeTableCell, BlockTypeCanvas:
		return true
	}
	return false
}

// TextElementStyle holds the inline style flags of a text run.
type TextElementStyle struct {
	Bold          bool   `json:"bold,omitempty"`
	Italic        bool   `json:"italic,omitempty"`
	Underline     bool   `json:"underline,omitempty"`
	Strikethrough bool   `json:"strikethrough,omitempty"`
	InlineCode    bool   `json:"inline_code,omitempty"`
	TextColor     string `json:"text_color,omitempty"`
	Background    string `json:"background,omitempty"`
}

// Mention references a user inside a text run.
type Mention struct {
	UserID string `json:"user_id"`
	Type   string `json:"type"`
}

// TextRun is one styled run of text.
type TextRun struct {
	Content string            `json:"content"`
	Style   *TextElementStyle `json:"text_element_style,omitempty"`
	Mention *Mention          `json:"mention,omitempty"`
}

// TextElement wraps a run the way the wire format nests it.
type TextElement struct {
	TextRun *TextRun `json:"text_run,omitempty"`
}

// TextPayload is the content of text, bullet, ordered, equation and
// table_cell blocks: an ordered sequence of styled runs.
type TextPayload struct {
	Elements []TextElement `json:"elements"`
}

// HeadingPayload carries the heading level alongside its runs.
type HeadingPayload struct {
	Level    int           `json:"level"`
	Elements []TextElement `json:"elements"`
}

// CodePayload carries the highlight language alongside its runs.
type CodePayload struct {
	Language string        `json:"language"`
	Elements []TextElement `json:"elements"`
}

// ImagePayload references an uploaded media file by its token.
type ImagePayload struct {
	Token string `json:"token"`
}

// TablePayload holds the table dimensions. Cells are separate table_cell
// blocks referenced from the cell id grid.
type TablePayload struct {
	Rows    int      `json:"rows"`
	Columns int      `json:"columns"`
	Cells   []string `json:"cells,omitempty"`
}

// CanvasPayload holds opaque whiteboard elements.
type CanvasPayload struct {
	Elements []json.RawMessage `json:"elements"`
}

// Block is the atomic content unit of a document. Exactly one payload field
// matching BlockType is set; the others are nil. A document forms a tree
// rooted at a page block whose id equals the document id, and child order is
// the document's visual order.
type Block struct {
	BlockID   string    `json:"block_id,omitempty"`
	ParentID  string    `json:"parent_id,omitempty"`
	BlockType BlockType `json:"block_type"`
	ChildIDs  []string  `json:"children,omitempty"`

	Page      *TextPayload    `json:"page,omitempty"`
	Text      *TextPayload    `json:"text,omitempty"`
	Heading   *HeadingPayload `json:"heading,omitempty"`
	Bullet    *TextPayload    `json:"bullet,omitempty"`
	Ordered   *TextPayload    `json:"ordered,omitempty"`
	Code      *CodePayload    `json:"code,omitempty"`
	Image     *ImagePayload   `json:"image,omitempty"`
	Equation  *TextPayload    `json:"equation,omitempty"`
	Table     *TablePayload   `json:"table,omitempty"`
	TableCell *TextPayload    `json:"table_cell,omitempty"`
	Canvas    *CanvasPayload  `json:"canvas,omitempty"`

	// Raw holds the complete wire payload for block types outside the known
	// vocabulary, so a new remote type never fails a tree fetch and survives
	// a round trip unchanged.
	Raw json.RawMessage `json:"-"`
}

func (b *Block) UnmarshalJSON(data []byte) error {
	type alias Block
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*b = Block(a)
	if !b.BlockType.Known() {
		b.Raw = append([]byte(nil), data...)
	}
	return nil
}

func (b Block) MarshalJSON() ([]byte, error) {
	if len(b.Raw) > 0 {
		return b.Raw, nil
	}
	type alias Block
	return json.Marshal(alias(b))
}

// PlainText concatenates the contents of the block's text runs, if any.
func (b Block) PlainText() string {
	var payload *TextPayload
	switch b.BlockType {
	case BlockTypeText:
		payload = b.Text
	case BlockTypeBullet:
		payload = b.Bullet
	case BlockTypeOrdered:
		payload = b.Ordered
	case BlockTypeEquation:
		payload = b.Equation
	case BlockTypeTableCell:
		payload = b.TableCell
	case BlockTypePage:
		payload = b.Page
	case BlockTypeHeading:
		if b.Heading == nil {
			return ""
		}
		payload = &TextPayload{Elements: b.Heading.Elements}
	case BlockTypeCode:
		if b.Code == nil {
			return ""
		}
		payload = &TextPayload{Elements: b.Code.Elements}
	}
	if payload == nil {
		return ""
	}
	out := ""
	for _, el := range payload.Elements {
		if el.TextRun != nil {
			out += el.TextRun.Content
		}
	}
	return out
}

// BlockNode is a Block with its fetched children attached in document order.
type BlockNode struct {
	Block
	Children []*BlockNode
}

// Walk visits the node and every descendant in depth-first document order.
func (n *BlockNode) Walk(visit func(*BlockNode)) {
	visit(n)
	for _, child := range n.Children {
		child.Walk(visit)
	}
}

// Document is the metadata of a document, used as an existence and permission
// probe before edits.
type Document struct {
	DocumentID string `json:"document_id"`
	RevisionID int    `json:"revision_id"`
	Title      string `json:"title"`
	OwnerID    string `json:"owner_id,omitempty"`
	CreateTime int64  `json:"create_time,omitempty"`
	UpdateTime int64  `json:"update_time,omitempty"`
}

// WikiNode wraps a document inside a Wiki space. NodeToken positions the node
// in the hierarchy; ObjToken is the backing document id used for content
// edits and never changes after creation.
type WikiNode struct {
	NodeToken       string `json:"node_token"`
	ObjToken        string `json:"obj_token"`
	ObjType         string `json:"obj_type"`
	ParentNodeToken string `json:"parent_node_token,omitempty"`
	Title           string `json:"title"`
	HasChild        bool   `json:"has_child,omitempty"`
}

// WikiSpace is one Wiki space visible to the app.
type WikiSpace struct {
	SpaceID     string `json:"space_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// DriveFile is one entry of a Drive folder listing.
type DriveFile struct {
	Token       string `json:"token"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	ParentToken string `json:"parent_token,omitempty"`
	URL         string `json:"url,omitempty"`
}

// FolderMeta describes the app's root Drive folder.
type FolderMeta struct {
	Token  string `json:"token"`
	ID     string `json:"id"`
	UserID string `json:"user_id,omitempty"`
}

// SearchResult is one hit of a document search.
type SearchResult struct {
	DocsToken string `json:"docs_token"`
	DocsType  string `json:"docs_type"`
	Title     string `json:"title"`
	OwnerID   string `json:"owner_id,omitempty"`
}
