package blocks

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/gtdspace/internal/field"
)

const sample = "# Title\n\n" +
	"Hello *world* \\[x\\]\n\n" +
	"[!singleselect:status:waiting]\n\n" +
	"- a\n- [x] b\n  - nested\n\n" +
	"1. one\n2. two\n\n" +
	"```go\nfmt.Println()\n```\n\n" +
	"| A | B |\n|---|:-:|\n| 1 | 2 |\n\n" +
	"> quote\n\n" +
	"---\n"

func kinds(bs []Block) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Kind()
	}
	return out
}

func TestParse(t *testing.T) {
	bs := Parse(sample)
	want := []string{
		TypeHeading, TypeParagraph, TypeParagraph,
		TypeBullet, TypeCheck, TypeNumbered, TypeNumbered,
		TypeCode, TypeTable, TypeQuote, TypeParagraph,
	}
	if diff := cmp.Diff(want, kinds(bs)); diff != "" {
		t.Fatalf("kinds (-want +got):\n%s", diff)
	}

	if p := bs[1].(Paragraph); p.Text != `Hello *world* \[x\]` {
		t.Errorf("paragraph source = %q", p.Text)
	}
	if p := bs[2].(Paragraph); p.Text != "[!singleselect:status:waiting]" {
		t.Errorf("marker paragraph = %q", p.Text)
	}
	check := bs[4].(ListItem)
	if !check.Checked || check.Text != "b" || len(check.Children) != 1 {
		t.Errorf("check item = %+v", check)
	}
	tbl := bs[8].(Table)
	if diff := cmp.Diff([][]string{{"A", "B"}, {"1", "2"}}, tbl.Rows); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"", "center"}, tbl.Align); diff != "" {
		t.Errorf("align (-want +got):\n%s", diff)
	}
	if code := bs[7].(CodeBlock); code.Language != "go" || code.Code != "fmt.Println()" {
		t.Errorf("code = %+v", code)
	}
}

func TestParse_StableIDs(t *testing.T) {
	a, b := Parse(sample), Parse(sample)
	for i := range a {
		if a[i].BlockID() == "" || a[i].BlockID() != b[i].BlockID() {
			t.Errorf("block %d ids differ: %q vs %q", i, a[i].BlockID(), b[i].BlockID())
		}
	}
}

func TestMarkdownRoundTrip(t *testing.T) {
	first := Parse(sample)
	again := Parse(Markdown(first))
	if diff := cmp.Diff(first, again); diff != "" {
		t.Errorf("parse(markdown(parse(x))) (-want +got):\n%s", diff)
	}
}

func TestMarkdownKeepsSource(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"quoted list", "> - a\n> - b\n"},
		{"quoted code", "> note\n>\n> ```\n> x\n> ```\n"},
		{"link reference definition", "See [docs][d].\n\n[d]: https://example.com\n"},
		{"definition before paragraph", "[d]: https://example.com \"Docs\"\n\nSee [d].\n"},
		{"fenced code in list item", "- item\n\n  ```\n  code\n  ```\n"},
		{"loose item between items", "- a\n- b\n\n  more\n- c\n"},
		{"quote before rule", "> q\n\n---\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Markdown(Parse(tt.src)); got != tt.src {
				t.Errorf("markdown(parse(x)):\n got %q\nwant %q", got, tt.src)
			}
		})
	}
}

func TestMarkdownEditedQuoteIgnoresSource(t *testing.T) {
	bs := Parse("> - a\n> - b\n")
	q := bs[0].(Quote)
	q.Text = "changed"
	if got := Markdown([]Block{q}); got != "> changed\n" {
		t.Errorf("got %q", got)
	}
}

func TestMarkdownEditedItemIgnoresSource(t *testing.T) {
	bs := Parse("- item\n\n  ```\n  code\n  ```\n")
	item := bs[0].(ListItem)
	if item.Source == "" {
		t.Fatal("lossy item has no source")
	}
	item.Checked, item.Style = true, Check
	if got := Markdown([]Block{item}); got != "- [x] item\n      code\n" {
		t.Errorf("got %q", got)
	}
}

func TestSourceSurvivesNodes(t *testing.T) {
	src := "> - a\n> - b\n\n- item\n\n  ```\n  code\n  ```\n"
	raw, err := json.Marshal(Nodes(Parse(src)))
	if err != nil {
		t.Fatal(err)
	}
	var nodes []Node
	if err := json.Unmarshal(raw, &nodes); err != nil {
		t.Fatal(err)
	}
	if got := Markdown(FromNodes(nodes)); got != src {
		t.Errorf("got %q, want %q", got, src)
	}
}

func TestLegacyHTMLBlockKeptAsParagraph(t *testing.T) {
	src := `<div data-checkbox='{"type":"habit-status","checked":true}' class="checkbox-block">Complete</div>` + "\n"
	bs := Parse(src)
	if len(bs) != 1 {
		t.Fatalf("len = %d", len(bs))
	}
	if p, ok := bs[0].(Paragraph); !ok || p.Text+"\n" != src {
		t.Errorf("block = %#v", bs[0])
	}
}

func TestNodeJSONRoundTrip(t *testing.T) {
	bs := Parse(sample)
	bs = append(bs, FieldBlock{ID: "f1", Field: field.NewReferenceList("areas-references", []string{"Areas/A.md"})})
	bs = append(bs, Opaque{Raw: Node{ID: "img", Type: "image", Props: map[string]any{"url": "x.png"}}})

	raw, err := json.Marshal(Nodes(bs))
	if err != nil {
		t.Fatal(err)
	}
	var nodes []Node
	if err := json.Unmarshal(raw, &nodes); err != nil {
		t.Fatal(err)
	}
	got := FromNodes(nodes)
	if diff := cmp.Diff(bs, got); diff != "" {
		t.Errorf("roundtrip (-want +got):\n%s", diff)
	}
}

func TestFromNode_UnknownIsOpaque(t *testing.T) {
	n := Node{ID: "x", Type: "video", Props: map[string]any{"src": "a.mp4"}}
	b := FromNode(n)
	if _, ok := b.(Opaque); !ok {
		t.Fatalf("got %T, want Opaque", b)
	}
	if diff := cmp.Diff(n, b.Node()); diff != "" {
		t.Errorf("opaque node changed (-want +got):\n%s", diff)
	}
}

func TestInlineText(t *testing.T) {
	raw := json.RawMessage(`[{"type":"text","text":"see "},{"type":"link","href":"u","content":[{"type":"text","text":"here"}]}]`)
	if got := InlineText(raw); got != "see here" {
		t.Errorf("InlineText = %q", got)
	}
}
