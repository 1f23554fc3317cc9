package field

import (
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMarkerRoundTrip(t *testing.T) {
	fields := []Field{
		SingleSelect{Type: "project-status", Value: "waiting"},
		SingleSelect{Type: "effort", Value: "extra-large"},
		SingleSelect{Type: "custom-select", Value: "blue-team"},
		MultiSelect{Type: "tags", Values: []string{"home", "a,b", "x [y]"}},
		Checkbox{Type: "habit-status", Checked: true},
		Checkbox{Type: "habit-status", Checked: false},
		DateTime{Type: "due_date", Value: "2025-06-01"},
		DateTime{Type: "focus_date_time", Value: "2025-06-01T09:30:00+02:00"},
		NewReferenceList("references", []string{"Projects/Foo.md", "Projects/Bar.md"}),
		NewReferenceList("areas-references", []string{"Areas of Focus/Health & [Fitness].md"}),
		NewReferenceList("goals-references", nil),
		ListView{List: "projects-list"},
		ListView{List: "actions-list", Param: "waiting"},
	}
	for _, f := range fields {
		got, ok := Decode(f.Marker())
		if !ok {
			t.Errorf("Decode(%q) failed", f.Marker())
			continue
		}
		if diff := cmp.Diff(f, got); diff != "" {
			t.Errorf("marker roundtrip %q (-want +got):\n%s", f.Marker(), diff)
		}
		if again := got.Marker(); again != f.Marker() {
			t.Errorf("re-encode = %q, want %q", again, f.Marker())
		}
	}
}

func TestLegacyRoundTrip(t *testing.T) {
	fields := []Field{
		SingleSelect{Type: "status", Value: "completed"},
		MultiSelect{Type: "contexts", Values: []string{"@home", "@phone"}},
		Checkbox{Type: "habit-status", Checked: true},
		DateTime{Type: "due_date", Value: "2024-01-01"},
		NewReferenceList("projects-references", []string{"Projects/A.md"}),
	}
	for _, f := range fields {
		got, ok := Decode(f.HTML())
		if !ok {
			t.Errorf("Decode(%q) failed", f.HTML())
			continue
		}
		if diff := cmp.Diff(f, got); diff != "" {
			t.Errorf("legacy roundtrip %q (-want +got):\n%s", f.HTML(), diff)
		}
	}
}

func TestHTMLEscapesScript(t *testing.T) {
	f := MultiSelect{Type: "tags", Values: []string{"<script>alert(1)</script>"}}
	for _, out := range []string{f.HTML(), f.Marker()} {
		if strings.Contains(strings.ToLower(out), "<script>") {
			t.Errorf("output contains a literal script tag: %s", out)
		}
	}
	got, ok := Decode(f.HTML())
	if !ok {
		t.Fatal("decode failed")
	}
	if diff := cmp.Diff(Field(f), got); diff != "" {
		t.Errorf("value not preserved (-want +got):\n%s", diff)
	}
}

func TestDecodePaths_AllEncodings(t *testing.T) {
	want := []string{"Projects/Foo.md", "Projects/Bar.md"}
	jsonForm := `["Projects/Foo.md","Projects/Bar.md"]`
	urlForm := url.QueryEscape(jsonForm)
	doubleForm := url.QueryEscape(urlForm)
	csvForm := "Projects/Foo.md,Projects/Bar.md"

	for _, payload := range []string{jsonForm, urlForm, doubleForm, csvForm} {
		f, ok := Decode("[!projects-references:" + payload + "]")
		if !ok {
			t.Errorf("payload %q not decoded", payload)
			continue
		}
		if diff := cmp.Diff(want, f.(ReferenceList).Paths); diff != "" {
			t.Errorf("payload %q (-want +got):\n%s", payload, diff)
		}
	}
}

func TestDecodePaths_Normalises(t *testing.T) {
	got := DecodePaths(`" Projects\Foo.md ", 'Projects/Foo.md', , Projects/Bar.md`)
	want := []string{"Projects/Foo.md", "Projects/Bar.md"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if got := DecodePaths("%%%"); len(got) != 1 {
		t.Errorf("garbage payload = %v, want it kept as a single CSV entry", got)
	}
	if got := DecodePaths(""); got == nil || len(got) != 0 {
		t.Errorf("empty payload = %#v, want empty slice", got)
	}
}

func TestEncodePaths_UnsafeIsPercentEncoded(t *testing.T) {
	enc := EncodePaths([]string{"Areas/[draft].md"})
	if strings.ContainsAny(enc, "[]") {
		t.Errorf("encoded payload contains brackets: %s", enc)
	}
	if enc := EncodePaths([]string{"Projects/A.md"}); enc != `["Projects/A.md"]` {
		t.Errorf("safe payload = %s", enc)
	}
}

func TestHabitStatusSelectBecomesCheckbox(t *testing.T) {
	cases := map[string]bool{
		"[!singleselect:habit-status:complete]": true,
		"[!singleselect:habit-status:true]":     true,
		"[!singleselect:habit-status:todo]":     false,
		`<div data-singleselect='{"type":"habit-status","value":"complete"}' class="singleselect-block">Complete</div>`: true,
	}
	for in, checked := range cases {
		f, ok := Decode(in)
		if !ok {
			t.Errorf("Decode(%q) failed", in)
			continue
		}
		cb, isCheckbox := f.(Checkbox)
		if !isCheckbox {
			t.Errorf("Decode(%q) = %T, want Checkbox", in, f)
			continue
		}
		if cb.Type != "habit-status" || cb.Checked != checked {
			t.Errorf("Decode(%q) = %+v", in, cb)
		}
	}
}

func TestCheckboxGarbageIsFalse(t *testing.T) {
	f, _ := Decode("[!checkbox:habit-status:yes]")
	if f.(Checkbox).Checked {
		t.Error("non-literal payload decoded as checked")
	}
}

func TestNormalizeSelect(t *testing.T) {
	cases := []struct {
		typ, raw, want string
	}{
		{"project-status", "Not Started", "in-progress"},
		{"project-status", "On Hold", "waiting"},
		{"area-status", "On Hold", "on-hold"},
		{"status", "Done", "completed"},
		{"status", "nonsense", "in-progress"},
		{"effort", "", "medium"},
		{"habit-frequency", "Every Other Day", "every-other-day"},
		{"vision-horizon", "5 Years", "5-years"},
		{"my-select", "Blue Team", "blue-team"},
	}
	for _, c := range cases {
		if got := NormalizeSelect(c.typ, c.raw); got != c.want {
			t.Errorf("NormalizeSelect(%q, %q) = %q, want %q", c.typ, c.raw, got, c.want)
		}
	}
}

func TestDateTime(t *testing.T) {
	if (DateTime{Type: "due_date", Value: "2025-01-01"}).HasTime() {
		t.Error("date-only value reported a time")
	}
	if !(DateTime{Type: "due_date", Value: "2025-01-01T10:00"}).HasTime() {
		t.Error("inferred time missing")
	}
	if !(DateTime{Type: "created_date_time", Value: "2025-01-01"}).HasTime() {
		t.Error("_time suffix should win over inference")
	}
	f, _ := Decode("[!datetime:due_date:tomorrow]")
	if v := f.(DateTime).Value; v != "" {
		t.Errorf("invalid date decoded to %q, want empty", v)
	}
}

func TestPropsRoundTrip(t *testing.T) {
	fields := []Field{
		SingleSelect{Type: "goal-status", Value: "waiting"},
		MultiSelect{Type: "tags", Values: []string{"a", "b"}},
		Checkbox{Type: "habit-status", Checked: true},
		DateTime{Type: "due_date", Value: "2025-06-01"},
		NewReferenceList("vision-references", []string{"Vision/V.md"}),
		ListView{List: "actions-list", Param: "completed"},
		ListView{List: "projects-areas-list"},
	}
	for _, f := range fields {
		got, ok := FromProps(f.Name(), Props(f))
		if !ok {
			t.Errorf("FromProps(%s) failed", f.Name())
			continue
		}
		if diff := cmp.Diff(f, got); diff != "" {
			t.Errorf("props roundtrip %s (-want +got):\n%s", f.Name(), diff)
		}
	}
}

func TestFromProps_JSONShapes(t *testing.T) {
	f, ok := FromProps("references", map[string]any{"paths": []any{"A.md", "A.md", `B\c.md`}})
	if !ok {
		t.Fatal("FromProps failed")
	}
	if diff := cmp.Diff([]string{"A.md", "B/c.md"}, f.(ReferenceList).Paths); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	f, _ = FromProps("multiselect", map[string]any{"type": "tags", "value": "x, y,,x"})
	if diff := cmp.Diff([]string{"x", "y"}, f.(MultiSelect).Values); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestLabel(t *testing.T) {
	if got := Label("in-progress"); got != "In Progress" {
		t.Errorf("Label = %q", got)
	}
}
