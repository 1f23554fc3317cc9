// Package blocks models the editor's block tree. Node is the wire form
// exchanged with the editor; Block is its typed view.
package blocks

import (
	"encoding/json"
	"strings"

	"github.com/starford/gtdspace/internal/field"
	"github.com/starford/gtdspace/internal/marker"
)

// Node is an editor block as exchanged over the wire.
type Node struct {
	ID       string          `json:"id,omitempty"`
	Type     string          `json:"type"`
	Props    map[string]any  `json:"props,omitempty"`
	Content  json.RawMessage `json:"content,omitempty"`
	Children []Node          `json:"children,omitempty"`
}

// Block is a typed block. Unknown editor types are Opaque.
type Block interface {
	// Kind is the editor block type.
	Kind() string
	// BlockID is the editor id, possibly empty.
	BlockID() string
	// Node returns the wire form.
	Node() Node
}

// sourceProp carries the raw Markdown of flattened blocks through the editor.
const sourceProp = "source"

// Editor block types.
const (
	TypeParagraph = "paragraph"
	TypeHeading   = "heading"
	TypeBullet    = "bulletListItem"
	TypeNumbered  = "numberedListItem"
	TypeCheck     = "checkListItem"
	TypeCode      = "codeBlock"
	TypeTable     = "table"
	TypeQuote     = "quote"
)

// Paragraph is a run of inline text. Text is the raw Markdown source.
type Paragraph struct {
	ID    string
	Text  string
	Props map[string]any
}

func (Paragraph) Kind() string      { return TypeParagraph }
func (p Paragraph) BlockID() string { return p.ID }

func (p Paragraph) Node() Node {
	return Node{ID: p.ID, Type: TypeParagraph, Props: p.Props, Content: inline(p.Text)}
}

// Heading is an ATX or setext heading.
type Heading struct {
	ID    string
	Level int
	Text  string
	Props map[string]any
}

func (Heading) Kind() string      { return TypeHeading }
func (h Heading) BlockID() string { return h.ID }

func (h Heading) Node() Node {
	props := copyProps(h.Props)
	props["level"] = h.Level
	return Node{ID: h.ID, Type: TypeHeading, Props: props, Content: inline(h.Text)}
}

// ListStyle distinguishes list item flavours.
type ListStyle string

const (
	Bullet   ListStyle = "bullet"
	Numbered ListStyle = "numbered"
	Check    ListStyle = "check"
)

var listTypes = map[ListStyle]string{Bullet: TypeBullet, Numbered: TypeNumbered, Check: TypeCheck}

// ListItem is one list entry; nested lists are Children. Source is the raw
// Markdown of a top level item whose content the block model flattens.
type ListItem struct {
	ID       string
	Style    ListStyle
	Checked  bool
	Text     string
	Children []Block
	Source   string
	Props    map[string]any
}

func (l ListItem) Kind() string    { return listTypes[l.Style] }
func (l ListItem) BlockID() string { return l.ID }

func (l ListItem) Node() Node {
	props := copyProps(l.Props)
	if l.Style == Check {
		props["checked"] = l.Checked
	}
	if l.Source != "" {
		props[sourceProp] = l.Source
	}
	n := Node{ID: l.ID, Type: l.Kind(), Props: props, Content: inline(l.Text)}
	for _, c := range l.Children {
		n.Children = append(n.Children, c.Node())
	}
	return n
}

// CodeBlock is fenced or indented code.
type CodeBlock struct {
	ID       string
	Language string
	Code     string
	Props    map[string]any
}

func (CodeBlock) Kind() string      { return TypeCode }
func (c CodeBlock) BlockID() string { return c.ID }

func (c CodeBlock) Node() Node {
	props := copyProps(c.Props)
	if c.Language != "" {
		props["language"] = c.Language
	}
	return Node{ID: c.ID, Type: TypeCode, Props: props, Content: inline(c.Code)}
}

// Table holds raw cell source; the first row is the header.
type Table struct {
	ID    string
	Rows  [][]string
	Align []string
	Props map[string]any
}

func (Table) Kind() string      { return TypeTable }
func (t Table) BlockID() string { return t.ID }

type tableContent struct {
	Type string     `json:"type"`
	Rows []tableRow `json:"rows"`
}

type tableRow struct {
	Cells []json.RawMessage `json:"cells"`
}

func (t Table) Node() Node {
	tc := tableContent{Type: "tableContent", Rows: make([]tableRow, len(t.Rows))}
	for i, row := range t.Rows {
		cells := make([]json.RawMessage, len(row))
		for j, c := range row {
			cells[j] = inline(c)
		}
		tc.Rows[i] = tableRow{Cells: cells}
	}
	raw, _ := json.Marshal(tc)
	props := copyProps(t.Props)
	if len(t.Align) > 0 {
		props["align"] = append([]string{}, t.Align...)
	}
	return Node{ID: t.ID, Type: TypeTable, Props: props, Content: raw}
}

// Quote is a block quote flattened to its text. Source is the raw Markdown
// it was parsed from.
type Quote struct {
	ID     string
	Text   string
	Source string
	Props  map[string]any
}

func (Quote) Kind() string      { return TypeQuote }
func (q Quote) BlockID() string { return q.ID }

func (q Quote) Node() Node {
	props := copyProps(q.Props)
	if q.Source != "" {
		props[sourceProp] = q.Source
	}
	return Node{ID: q.ID, Type: TypeQuote, Props: props, Content: inline(q.Text)}
}

// FieldBlock is a custom block carrying a decoded marker. Source is the
// marker text it was built from, empty for blocks created in the editor.
type FieldBlock struct {
	ID     string
	Field  field.Field
	Source string
}

func (f FieldBlock) Kind() string    { return f.Field.Name() }
func (f FieldBlock) BlockID() string { return f.ID }

func (f FieldBlock) Node() Node {
	return Node{ID: f.ID, Type: f.Field.Name(), Props: field.Props(f.Field)}
}

// Opaque is a block of a type this package does not model. It is carried
// through unchanged.
type Opaque struct {
	Raw Node
}

func (o Opaque) Kind() string    { return o.Raw.Type }
func (o Opaque) BlockID() string { return o.Raw.ID }
func (o Opaque) Node() Node      { return o.Raw }

// Text returns the plain inline text of a block, or "".
func Text(b Block) string {
	switch v := b.(type) {
	case Paragraph:
		return v.Text
	case Heading:
		return v.Text
	case ListItem:
		return v.Text
	case CodeBlock:
		return v.Code
	case Quote:
		return v.Text
	case FieldBlock:
		return v.Field.Marker()
	case Opaque:
		return InlineText(v.Raw.Content)
	}
	return ""
}

// FromNode converts a wire node to its typed block.
func FromNode(n Node) Block {
	props := withoutKeys(n.Props, "level", "checked", "language", "align", sourceProp)
	source, _ := n.Props[sourceProp].(string)
	switch n.Type {
	case TypeParagraph:
		return Paragraph{ID: n.ID, Text: InlineText(n.Content), Props: props}
	case TypeHeading:
		return Heading{ID: n.ID, Level: intProp(n.Props, "level", 1), Text: InlineText(n.Content), Props: props}
	case TypeBullet, TypeNumbered, TypeCheck:
		item := ListItem{ID: n.ID, Style: Bullet, Text: InlineText(n.Content), Source: source, Props: props}
		switch n.Type {
		case TypeNumbered:
			item.Style = Numbered
		case TypeCheck:
			item.Style = Check
			item.Checked, _ = n.Props["checked"].(bool)
		}
		for _, c := range n.Children {
			item.Children = append(item.Children, FromNode(c))
		}
		return item
	case TypeCode:
		lang, _ := n.Props["language"].(string)
		return CodeBlock{ID: n.ID, Language: lang, Code: InlineText(n.Content), Props: props}
	case TypeTable:
		return tableFromNode(n, props)
	case TypeQuote:
		return Quote{ID: n.ID, Text: InlineText(n.Content), Source: source, Props: props}
	}
	if _, ok := marker.KindOf(n.Type); ok {
		if f, ok := field.FromProps(n.Type, n.Props); ok {
			return FieldBlock{ID: n.ID, Field: f}
		}
	}
	return Opaque{Raw: n}
}

// FromNodes converts a wire tree.
func FromNodes(ns []Node) []Block {
	out := make([]Block, len(ns))
	for i, n := range ns {
		out[i] = FromNode(n)
	}
	return out
}

// Nodes converts blocks to their wire form.
func Nodes(bs []Block) []Node {
	out := make([]Node, len(bs))
	for i, b := range bs {
		out[i] = b.Node()
	}
	return out
}

func tableFromNode(n Node, props map[string]any) Block {
	var tc tableContent
	if err := json.Unmarshal(n.Content, &tc); err != nil || tc.Type != "tableContent" {
		return Opaque{Raw: n}
	}
	t := Table{ID: n.ID, Props: props}
	for _, r := range tc.Rows {
		row := make([]string, len(r.Cells))
		for i, c := range r.Cells {
			row[i] = InlineText(c)
		}
		t.Rows = append(t.Rows, row)
	}
	switch align := n.Props["align"].(type) {
	case []string:
		t.Align = append(t.Align, align...)
	case []any:
		for _, a := range align {
			s, _ := a.(string)
			t.Align = append(t.Align, s)
		}
	}
	return t
}

type textNode struct {
	Type   string         `json:"type"`
	Text   string         `json:"text"`
	Styles map[string]any `json:"styles"`
}

func inline(text string) json.RawMessage {
	if text == "" {
		return json.RawMessage("[]")
	}
	raw, _ := json.Marshal([]textNode{{Type: "text", Text: text, Styles: map[string]any{}}})
	return raw
}

// InlineText flattens editor inline content (a string, text nodes, links
// with nested content) to a string.
func InlineText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	var b strings.Builder
	collectText(&b, v)
	return b.String()
}

func collectText(b *strings.Builder, v any) {
	switch t := v.(type) {
	case string:
		b.WriteString(t)
	case []any:
		for _, item := range t {
			collectText(b, item)
		}
	case map[string]any:
		if s, ok := t["text"].(string); ok {
			b.WriteString(s)
			return
		}
		if c, ok := t["content"]; ok {
			collectText(b, c)
		}
	}
}

func copyProps(p map[string]any) map[string]any {
	out := make(map[string]any, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	return out
}

func withoutKeys(p map[string]any, keys ...string) map[string]any {
	if len(p) == 0 {
		return nil
	}
	out := copyProps(p)
	for _, k := range keys {
		delete(out, k)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func intProp(p map[string]any, key string, def int) int {
	switch v := p[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return def
}
