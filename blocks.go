package feishu

import (
	"fmt"
)

// Colors is the closed palette accepted for text color and background
// highlights.
var Colors = []string{"gray", "brown", "orange", "yellow", "green", "blue", "purple"}

// CodeLanguages are the highlight languages the store accepts.
var CodeLanguages = []string{
	"python", "javascript", "java", "c", "cpp", "go", "rust",
	"typescript", "php", "ruby", "swift", "kotlin", "scala",
	"csharp", "fsharp", "vb", "html", "css", "sql", "bash",
	"shell", "powershell", "json", "yaml", "xml", "markdown",
	"latex", "r", "matlab", "perl", "lua", "dart", "elixir",
	"haskell", "julia", "ocaml", "scheme", "clojure", "groovy",
}

// TextOption styles a text run.
type TextOption func(*TextElementStyle)

func Bold() TextOption          { return func(s *TextElementStyle) { s.Bold = true } }
func Italic() TextOption        { return func(s *TextElementStyle) { s.Italic = true } }
func Underline() TextOption     { return func(s *TextElementStyle) { s.Underline = true } }
func Strikethrough() TextOption { return func(s *TextElementStyle) { s.Strikethrough = true } }
func InlineCode() TextOption    { return func(s *TextElementStyle) { s.InlineCode = true } }

// TextColor sets the run's color; it must come from Colors.
func TextColor(color string) TextOption {
	return func(s *TextElementStyle) { s.TextColor = color }
}

// Background sets the run's highlight; it must come from Colors.
func Background(color string) TextOption {
	return func(s *TextElementStyle) { s.Background = color }
}

// Run builds one styled text element.
func Run(content string, opts ...TextOption) (TextElement, error) {
	style := &TextElementStyle{}
	for _, opt := range opts {
		opt(style)
	}
	if err := validateStyle(style); err != nil {
		return TextElement{}, err
	}
	if *style == (TextElementStyle{}) {
		style = nil
	}
	return TextElement{TextRun: &TextRun{Content: content, Style: style}}, nil
}

// MentionRun builds a text element that mentions a user.
func MentionRun(userID string) TextElement {
	return TextElement{TextRun: &TextRun{
		Content: "@" + userID,
		Mention: &Mention{UserID: userID, Type: "user"},
	}}
}

// Text builds a text block holding a single styled run.
func Text(content string, opts ...TextOption) (Block, error) {
	el, err := Run(content, opts...)
	if err != nil {
		return Block{}, err
	}
	return Block{BlockType: BlockTypeText, Text: &TextPayload{Elements: []TextElement{el}}}, nil
}

// TextMulti builds a text block from pre-built elements, for mixed styling
// within one paragraph.
func TextMulti(elements ...TextElement) Block {
	return Block{BlockType: BlockTypeText, Text: &TextPayload{Elements: elements}}
}

// Heading builds a heading block. Levels 1 through 9 are valid.
func Heading(level int, content string, opts ...TextOption) (Block, error) {
	if level < 1 || level > 9 {
		return Block{}, &ValidationError{Msg: fmt.Sprintf("heading level %d out of range 1-9", level)}
	}
	el, err := Run(content, opts...)
	if err != nil {
		return Block{}, err
	}
	return Block{BlockType: BlockTypeHeading, Heading: &HeadingPayload{
		Level:    level,
		Elements: []TextElement{el},
	}}, nil
}

// Heading1 builds a bold level-1 heading.
func Heading1(content string) Block {
	b, _ := Heading(1, content, Bold())
	return b
}

// Heading2 builds a bold level-2 heading.
func Heading2(content string) Block {
	b, _ := Heading(2, content, Bold())
	return b
}

// Heading3 builds a bold level-3 heading.
func Heading3(content string) Block {
	b, _ := Heading(3, content, Bold())
	return b
}

// Bullet builds a bullet list item.
func Bullet(content string, opts ...TextOption) (Block, error) {
	el, err := Run(content, opts...)
	if err != nil {
		return Block{}, err
	}
	return Block{BlockType: BlockTypeBullet, Bullet: &TextPayload{Elements: []TextElement{el}}}, nil
}

// Ordered builds an ordered list item.
func Ordered(content string, opts ...TextOption) (Block, error) {
	el, err := Run(content, opts...)
	if err != nil {
		return Block{}, err
	}
	return Block{BlockType: BlockTypeOrdered, Ordered: &TextPayload{Elements: []TextElement{el}}}, nil
}

// Code builds a code block in the given highlight language.
func Code(language, content string) (Block, error) {
	if !contains(CodeLanguages, language) {
		return Block{}, &ValidationError{Msg: "unsupported code language: " + language}
	}
	return Block{BlockType: BlockTypeCode, Code: &CodePayload{
		Language: language,
		Elements: []TextElement{{TextRun: &TextRun{Content: content}}},
	}}, nil
}

// Image builds an image block referencing an uploaded media token.
func Image(token string) Block {
	return Block{BlockType: BlockTypeImage, Image: &ImagePayload{Token: token}}
}

// Equation builds a LaTeX equation block.
func Equation(latex string) Block {
	return Block{BlockType: BlockTypeEquation, Equation: &TextPayload{
		Elements: []TextElement{{TextRun: &TextRun{Content: latex}}},
	}}
}

// Table builds an empty table of the given dimensions. Cell content goes in
// afterwards by updating the generated table_cell blocks.
func Table(rows, columns int) (Block, error) {
	if rows < 1 || columns < 1 {
		return Block{}, &ValidationError{Msg: "table rows and columns must be positive"}
	}
	return Block{BlockType: BlockTypeTable, Table: &TablePayload{Rows: rows, Columns: columns}}, nil
}

// TableCell builds cell content for UpdateBlock. Header cells become
// headings.
func TableCell(content string, header bool) Block {
	if header {
		return Heading1(content)
	}
	b, _ := Text(content)
	return b
}

// Whiteboard builds an empty whiteboard block.
func Whiteboard() Block {
	return Block{BlockType: BlockTypeCanvas, Canvas: &CanvasPayload{}}
}

// Divider builds a visual separator.
func Divider() Block {
	b, _ := Text("---")
	return b
}

// Quote builds a quoted paragraph.
func Quote(content string) Block {
	b, _ := Text("> "+content, Italic(), TextColor("gray"))
	return b
}

// Todo builds a checkbox-style list item.
func Todo(content string, checked bool) Block {
	prefix := "[ ] "
	if checked {
		prefix = "[x] "
	}
	b, _ := Bullet(prefix + content)
	return b
}

// Callout builds a highlighted alert paragraph, optionally led by an emoji.
func Callout(content, emoji, background string) (Block, error) {
	if background == "" {
		background = "yellow"
	}
	if emoji != "" {
		content = emoji + " " + content
	}
	return Text(content, Background(background))
}

func validateStyle(s *TextElementStyle) error {
	if s.TextColor != "" && !contains(Colors, s.TextColor) {
		return &ValidationError{Msg: "invalid text color: " + s.TextColor}
	}
	if s.Background != "" && !contains(Colors, s.Background) {
		return &ValidationError{Msg: "invalid background color: " + s.Background}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
