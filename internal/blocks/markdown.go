package blocks

import (
	"strconv"
	"strings"
)

// Markdown writes blocks back to Markdown. Consecutive list items stay in
// one tight list; every other block is separated by a blank line. Field
// blocks are written as their marker. Quotes and list items still matching
// their raw source are written as that source.
func Markdown(bs []Block) string {
	var b strings.Builder
	var prev Block
	ordinal := 0
	for _, blk := range bs {
		if isEmpty(blk) {
			continue
		}
		item, isItem := blk.(ListItem)
		prevItem, prevIsItem := prev.(ListItem)
		switch {
		case prev == nil:
		case isItem && prevIsItem:
			b.WriteString("\n")
		default:
			b.WriteString("\n\n")
		}
		if isItem {
			if !prevIsItem || prevItem.Style != Numbered || item.Style != Numbered {
				ordinal = 0
			}
			ordinal++
		}
		switch src, ok := unedited(blk); {
		case ok:
			b.WriteString(src)
		case isItem:
			writeItem(&b, item, "", ordinal)
		default:
			writeBlock(&b, blk)
		}
		prev = blk
	}
	if b.Len() == 0 {
		return ""
	}
	return b.String() + "\n"
}

// unedited returns the raw source of a quote or list item when parsing that
// source still yields the block's content.
func unedited(blk Block) (string, bool) {
	switch v := blk.(type) {
	case Quote:
		if v.Source == "" {
			return "", false
		}
		if bs := Parse(v.Source); len(bs) == 1 {
			if q, ok := bs[0].(Quote); ok && q.Text == v.Text {
				return v.Source, true
			}
		}
	case ListItem:
		if v.Source == "" {
			return "", false
		}
		if bs := Parse(v.Source); len(bs) == 1 {
			if item, ok := bs[0].(ListItem); ok && sameItem(item, v) {
				return v.Source, true
			}
		}
	}
	return "", false
}

func sameItem(a, b ListItem) bool {
	if a.Style != b.Style || a.Checked != b.Checked || a.Text != b.Text || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		ca, okA := a.Children[i].(ListItem)
		cb, okB := b.Children[i].(ListItem)
		if okA != okB {
			return false
		}
		if okA {
			if !sameItem(ca, cb) {
				return false
			}
			continue
		}
		if a.Children[i].Kind() != b.Children[i].Kind() || Text(a.Children[i]) != Text(b.Children[i]) {
			return false
		}
	}
	return true
}

func isEmpty(blk Block) bool {
	switch v := blk.(type) {
	case Paragraph:
		return strings.TrimSpace(v.Text) == ""
	case Opaque:
		return strings.TrimSpace(InlineText(v.Raw.Content)) == ""
	}
	return false
}

func writeBlock(b *strings.Builder, blk Block) {
	switch v := blk.(type) {
	case Heading:
		level := min(max(v.Level, 1), 6)
		b.WriteString(strings.Repeat("#", level) + " " + v.Text)
	case CodeBlock:
		fence := codeFence(v.Code)
		b.WriteString(fence + v.Language + "\n" + v.Code + "\n" + fence)
	case Table:
		writeTable(b, v)
	case Quote:
		lines := strings.Split(v.Text, "\n")
		for i, l := range lines {
			if i > 0 {
				b.WriteString("\n")
			}
			if l == "" {
				b.WriteString(">")
				continue
			}
			b.WriteString("> " + l)
		}
	default:
		b.WriteString(Text(blk))
	}
}

func writeItem(b *strings.Builder, item ListItem, indent string, ordinal int) {
	bullet := "- "
	switch item.Style {
	case Numbered:
		bullet = strconv.Itoa(ordinal) + ". "
	case Check:
		if item.Checked {
			bullet = "- [x] "
		} else {
			bullet = "- [ ] "
		}
	}
	cont := indent + strings.Repeat(" ", len(bullet))
	for i, l := range strings.Split(item.Text, "\n") {
		if i == 0 {
			b.WriteString(indent + bullet + l)
			continue
		}
		b.WriteString("\n" + cont + l)
	}
	childIndent := indent + strings.Repeat(" ", min(len(bullet), 4))
	if item.Style == Check {
		childIndent = indent + "  "
	}
	n := 0
	for _, c := range item.Children {
		b.WriteString("\n")
		if ci, ok := c.(ListItem); ok {
			n++
			writeItem(b, ci, childIndent, n)
			continue
		}
		b.WriteString(childIndent + Text(c))
	}
}

func codeFence(code string) string {
	longest, run := 0, 0
	for _, r := range code {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}

func writeTable(b *strings.Builder, t Table) {
	if len(t.Rows) == 0 {
		return
	}
	width := 0
	for _, r := range t.Rows {
		width = max(width, len(r))
	}
	row := func(cells []string) {
		b.WriteString("|")
		for i := 0; i < width; i++ {
			c := ""
			if i < len(cells) {
				c = cells[i]
			}
			b.WriteString(" " + c + " |")
		}
	}
	row(t.Rows[0])
	b.WriteString("\n|")
	for i := 0; i < width; i++ {
		align := ""
		if i < len(t.Align) {
			align = t.Align[i]
		}
		switch align {
		case "left":
			b.WriteString(" :--- |")
		case "right":
			b.WriteString(" ---: |")
		case "center":
			b.WriteString(" :---: |")
		default:
			b.WriteString(" --- |")
		}
	}
	for _, r := range t.Rows[1:] {
		b.WriteString("\n")
		row(r)
	}
}
