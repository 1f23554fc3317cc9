package blocks

import (
	"bytes"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
)

var (
	quoteLineRe = regexp.MustCompile(`^ {0,3}>`)
	bulletRe    = regexp.MustCompile(`^( {0,3})([-+*]|\d{1,9}[.)])( +|$)`)
	breakRe     = regexp.MustCompile(`^ {0,3}([-*_])( *[-*_]){2,} *$`)
)

// startOf returns the source offset of the first line owned by n or one of
// its descendants.
func startOf(n ast.Node) (int, bool) {
	pos, found := 0, false
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || c.Type() == ast.TypeInline {
			return ast.WalkContinue, nil
		}
		if fc, ok := c.(*ast.FencedCodeBlock); ok && fc.Info != nil {
			pos, found = fc.Info.Segment.Start, true
			return ast.WalkStop, nil
		}
		if ls := c.Lines(); ls.Len() > 0 {
			pos, found = ls.At(0).Start, true
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return pos, found
}

func lineStart(src []byte, pos int) int {
	return bytes.LastIndexByte(src[:pos], '\n') + 1
}

// span returns the lines of src from the line holding pos while keep accepts
// them, without trailing blank lines. limit bounds the scan.
func span(src []byte, pos, limit int, keep func(line string, prevBlank bool) bool) string {
	start := lineStart(src, pos)
	end := start
	prevBlank := false
	for cur := start; cur < limit; {
		next := limit
		if i := bytes.IndexByte(src[cur:limit], '\n'); i >= 0 {
			next = cur + i + 1
		}
		line := strings.TrimRight(string(src[cur:next]), "\r\n")
		if cur != start && !keep(line, prevBlank) {
			break
		}
		isBlank := strings.TrimSpace(line) == ""
		if !isBlank {
			end = cur + len(line)
		}
		prevBlank = isBlank
		cur = next
	}
	return string(src[start:end])
}

// quoteSource returns the raw lines of a block quote.
func quoteSource(src []byte, q *ast.Blockquote, limit int) string {
	pos, ok := startOf(q)
	if !ok {
		return ""
	}
	return span(src, pos, limit, func(line string, prevBlank bool) bool {
		if quoteLineRe.MatchString(line) {
			return true
		}
		return strings.TrimSpace(line) != "" && !prevBlank && !breakRe.MatchString(line)
	})
}

// itemSource returns the raw lines of a top level list item: its marker
// line and every following line that is blank, indented to the item's
// content or a lazy continuation.
func itemSource(src []byte, li *ast.ListItem, limit int) string {
	pos, ok := startOf(li)
	if !ok {
		return ""
	}
	first := src[lineStart(src, pos):]
	if i := bytes.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	m := bulletRe.FindSubmatch(first)
	if m == nil {
		return ""
	}
	indent := len(m[1]) + len(m[2]) + 1
	if n := len(m[3]); n > 0 && n <= 4 {
		indent = len(m[1]) + len(m[2]) + n
	}
	return span(src, pos, limit, func(line string, prevBlank bool) bool {
		if strings.TrimSpace(line) == "" || indentWidth(line) >= indent {
			return true
		}
		return !prevBlank && !bulletRe.MatchString(line) && !breakRe.MatchString(line)
	})
}

func indentWidth(line string) int {
	w := 0
	for _, r := range line {
		switch r {
		case ' ':
			w++
		case '\t':
			w += 4 - w%4
		default:
			return w
		}
	}
	return w
}

// linkDef is a top level link reference definition goldmark consumed while
// parsing.
type linkDef struct {
	pos  int
	text string
}

// linkDefs returns the link reference definitions of pc that sit at the top
// level of src, in source order. Definitions nested in quotes or list items
// are kept by their container's source.
func linkDefs(src []byte, pc parser.Context) []linkDef {
	var out []linkDef
	for _, ref := range pc.References() {
		label := string(ref.Label())
		re, err := regexp.Compile(`(?m)^ {0,3}\[` + regexp.QuoteMeta(label) + `\]:`)
		if err != nil {
			continue
		}
		loc := re.FindIndex(src)
		if loc == nil {
			continue
		}
		out = append(out, linkDef{pos: loc[0], text: formatLinkDef(ref)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].pos < out[j].pos })
	return out
}

func formatLinkDef(ref parser.Reference) string {
	dest := string(ref.Destination())
	if dest == "" || strings.ContainsAny(dest, " \t") {
		dest = "<" + dest + ">"
	}
	s := "[" + string(ref.Label()) + "]: " + dest
	if title := ref.Title(); len(title) > 0 {
		s += ` "` + strings.ReplaceAll(string(title), `"`, `\"`) + `"`
	}
	return s
}
