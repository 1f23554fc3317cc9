package blocks

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

var idSpace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("gtdspace.blocks"))

// NewID returns a stable block id for seed.
func NewID(seed string) string {
	return uuid.NewSHA1(idSpace, []byte(seed)).String()
}

var taskPrefixRe = regexp.MustCompile(`^\[([ xX])\][ \t]+`)

// Parse converts Markdown to blocks. Inline text keeps its raw source so
// markers and escapes survive verbatim. Ids derive from position and text,
// so parsing the same source twice yields the same tree.
//
// Quotes and list items that the block model flattens also carry their raw
// source, and top level link reference definitions become paragraphs at
// the position they were defined.
func Parse(src string) []Block {
	source := []byte(src)
	pc := parser.NewContext()
	doc := md.Parser().Parse(text.NewReader(source), parser.WithContext(pc))
	b := &builder{source: source}
	defs := linkDefs(source, pc)

	var top []ast.Node
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		top = append(top, n)
	}
	starts := make([]int, len(top))
	for i, n := range top {
		starts[i] = -1
		if pos, ok := startOf(n); ok {
			starts[i] = pos
		}
	}
	for i, n := range top {
		if starts[i] >= 0 {
			for len(defs) > 0 && defs[0].pos < starts[i] {
				b.out = append(b.out, b.linkDef(defs[0]))
				defs = defs[1:]
			}
		}
		b.limit = len(source)
		for _, s := range starts[i+1:] {
			if s >= 0 {
				b.limit = lineStart(source, s)
				break
			}
		}
		b.out = append(b.out, b.block(n)...)
	}
	for _, d := range defs {
		b.out = append(b.out, b.linkDef(d))
	}
	return b.out
}

type builder struct {
	source []byte
	seq    int
	out    []Block
	// limit is the source offset where the next top level block begins.
	limit int
	// depth counts enclosing quotes.
	depth int
}

func (b *builder) linkDef(d linkDef) Block {
	return Paragraph{ID: b.id(TypeParagraph, d.text), Text: d.text}
}

func (b *builder) id(kind, text string) string {
	b.seq++
	return NewID(strconv.Itoa(b.seq) + "\x00" + kind + "\x00" + text)
}

func (b *builder) block(n ast.Node) []Block {
	switch v := n.(type) {
	case *ast.Heading:
		t := b.lines(v)
		return []Block{Heading{ID: b.id(TypeHeading, t), Level: v.Level, Text: t}}
	case *ast.Paragraph, *ast.TextBlock:
		t := b.lines(v)
		return []Block{Paragraph{ID: b.id(TypeParagraph, t), Text: t}}
	case *ast.ThematicBreak:
		return []Block{Paragraph{ID: b.id(TypeParagraph, "---"), Text: "---"}}
	case *ast.HTMLBlock:
		t := b.lines(v)
		if v.HasClosure() {
			closure := strings.TrimRight(string(v.ClosureLine.Value(b.source)), " \t\r\n")
			if t == "" {
				t = closure
			} else {
				t += "\n" + closure
			}
		}
		return []Block{Paragraph{ID: b.id(TypeParagraph, t), Text: t}}
	case *ast.FencedCodeBlock:
		code := b.code(v)
		return []Block{CodeBlock{ID: b.id(TypeCode, code), Language: string(v.Language(b.source)), Code: code}}
	case *ast.CodeBlock:
		code := b.code(v)
		return []Block{CodeBlock{ID: b.id(TypeCode, code), Code: code}}
	case *ast.Blockquote:
		var source string
		if b.depth == 0 {
			source = quoteSource(b.source, v, b.limit)
		}
		b.depth++
		var parts []string
		for c := v.FirstChild(); c != nil; c = c.NextSibling() {
			for _, inner := range b.block(c) {
				parts = append(parts, Text(inner))
			}
		}
		b.depth--
		t := strings.Join(parts, "\n\n")
		return []Block{Quote{ID: b.id(TypeQuote, t), Text: t, Source: source}}
	case *ast.List:
		items, _ := b.list(v, b.depth == 0, b.limit)
		return items
	case *extast.Table:
		return []Block{b.table(v)}
	}
	if t := b.lines(n); t != "" {
		return []Block{Paragraph{ID: b.id(TypeParagraph, t), Text: t}}
	}
	return nil
}

// list converts the items of l. Top level items that lose content to the
// block model keep their raw source. lossy reports whether any item did.
func (b *builder) list(l *ast.List, top bool, limit int) (out []Block, lossy bool) {
	for c := l.FirstChild(); c != nil; c = c.NextSibling() {
		li, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		item := ListItem{Style: Bullet}
		if l.IsOrdered() {
			item.Style = Numbered
		}
		itemLimit := limit
		if next := li.NextSibling(); next != nil {
			if pos, ok := startOf(next); ok {
				itemLimit = lineStart(b.source, pos)
			}
		}
		var parts []string
		itemLossy := false
		for gc := li.FirstChild(); gc != nil; gc = gc.NextSibling() {
			if sub, ok := gc.(*ast.List); ok {
				children, subLossy := b.list(sub, false, itemLimit)
				item.Children = append(item.Children, children...)
				itemLossy = itemLossy || subLossy
				continue
			}
			switch gc.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				if len(parts) > 0 {
					itemLossy = true
				}
			default:
				itemLossy = true
			}
			for _, inner := range b.block(gc) {
				parts = append(parts, Text(inner))
			}
		}
		item.Text = strings.Join(parts, "\n")
		if m := taskPrefixRe.FindStringSubmatch(item.Text); m != nil && item.Style == Bullet {
			item.Style = Check
			item.Checked = m[1] != " "
			item.Text = item.Text[len(m[0]):]
		}
		if top && itemLossy {
			item.Source = itemSource(b.source, li, itemLimit)
		}
		lossy = lossy || itemLossy
		item.ID = b.id(string(item.Style), item.Text)
		out = append(out, item)
	}
	return out, lossy
}

func (b *builder) table(t *extast.Table) Block {
	tbl := Table{}
	for _, a := range t.Alignments {
		switch a {
		case extast.AlignLeft, extast.AlignRight, extast.AlignCenter:
			tbl.Align = append(tbl.Align, a.String())
		default:
			tbl.Align = append(tbl.Align, "")
		}
	}
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, b.cell(cell))
		}
		tbl.Rows = append(tbl.Rows, cells)
	}
	var seed strings.Builder
	for _, r := range tbl.Rows {
		seed.WriteString(strings.Join(r, "|"))
		seed.WriteByte('\n')
	}
	tbl.ID = b.id(TypeTable, seed.String())
	return tbl
}

func (b *builder) cell(n ast.Node) string {
	if t := b.lines(n); t != "" {
		return t
	}
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(b.source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

func (b *builder) lines(n ast.Node) string {
	if n.Type() == ast.TypeInline {
		return ""
	}
	var buf bytes.Buffer
	ls := n.Lines()
	for i := 0; i < ls.Len(); i++ {
		seg := ls.At(i)
		buf.Write(seg.Value(b.source))
	}
	return strings.TrimRight(buf.String(), " \t\r\n")
}

func (b *builder) code(n ast.Node) string {
	var buf bytes.Buffer
	ls := n.Lines()
	for i := 0; i < ls.Len(); i++ {
		seg := ls.At(i)
		buf.Write(seg.Value(b.source))
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
