// Package reconcile aligns marker-annotated Markdown with the editor's block
// tree. The forward pass turns paragraphs made of markers into field blocks;
// the backward pass writes field blocks back as marker paragraphs.
package reconcile

import (
	"html"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/starford/gtdspace/internal/blocks"
	"github.com/starford/gtdspace/internal/field"
	"github.com/starford/gtdspace/internal/marker"
)

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithCache sets the reconciliation cache. A nil cache disables caching.
func WithCache(c *Cache) Option {
	return func(r *Reconciler) { r.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// Reconciler runs the forward and backward passes.
type Reconciler struct {
	cache  *Cache
	logger *slog.Logger
}

// New returns a Reconciler with a default cache.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{
		cache:  NewCache(DefaultCacheTTL, DefaultCacheMaxEntries),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Deserialize parses text and runs the forward pass.
func (r *Reconciler) Deserialize(text string) []blocks.Block {
	return r.Process(blocks.Parse(text), text)
}

// Serialize runs the backward pass and writes Markdown.
func (r *Reconciler) Serialize(bs []blocks.Block) string {
	return blocks.Markdown(Backward(bs))
}

// Process replaces marker paragraphs in bs with field blocks. original is
// the text bs was parsed from.
func (r *Reconciler) Process(bs []blocks.Block, original string) []blocks.Block {
	tokens := marker.Scan(original)
	key := CacheKey(len(bs), tokens, original)
	if r.cache != nil {
		if out, ok := r.cache.Get(key); ok {
			r.logger.Debug("reconcile: cache hit", "key", key)
			return out
		}
	}
	out := forward(bs, tokens)
	if r.cache != nil {
		r.cache.Put(key, out)
	}
	r.logger.Debug("reconcile: processed", "key", key, "in", len(bs), "out", len(out), "markers", len(tokens))
	return out
}

// forward is the uncached forward pass.
func forward(bs []blocks.Block, tokens []marker.Token) []blocks.Block {
	byKind := make(map[marker.Kind][]marker.Token)
	emptyRefs := 0
	for _, t := range tokens {
		byKind[t.Kind] = append(byKind[t.Kind], t)
		if t.Name == string(marker.References) && !t.Legacy && strings.TrimSpace(t.Payload) == "" {
			emptyRefs++
		}
	}

	var h historyTracker
	out := make([]blocks.Block, 0, len(bs))
	for _, b := range bs {
		if h.next(b) == stateHistory {
			out = append(out, b)
			continue
		}
		switch v := b.(type) {
		case blocks.Paragraph:
			for _, c := range convertParagraph(v, byKind) {
				if fb, ok := c.(blocks.FieldBlock); ok && isTableArtifact(fb) {
					continue
				}
				out = append(out, c)
			}
		case blocks.FieldBlock:
			if isArtifact(v) {
				if emptyRefs == 0 {
					continue
				}
				emptyRefs--
			}
			out = append(out, v)
		default:
			out = append(out, b)
		}
	}
	return out
}

func isSeparator(s string) bool {
	switch strings.TrimSpace(s) {
	case "---", "***", "___":
		return true
	}
	return false
}

func convertParagraph(p blocks.Paragraph, byKind map[marker.Kind][]marker.Token) []blocks.Block {
	if isSeparator(p.Text) {
		return []blocks.Block{p}
	}
	if fbs, ok := splitMarkers(p); ok {
		return fbs
	}
	if fb, ok := matchExact(p, byKind); ok {
		return []blocks.Block{fb}
	}
	return []blocks.Block{p}
}

// splitMarkers converts a paragraph that holds nothing but markers into one
// field block per marker.
func splitMarkers(p blocks.Paragraph) ([]blocks.Block, bool) {
	toks := marker.Scan(p.Text)
	if len(toks) == 0 || !blank(marker.Strip(p.Text, toks)) {
		return nil, false
	}
	out := make([]blocks.Block, 0, len(toks))
	for i, tok := range toks {
		f, ok := field.FromToken(tok)
		if !ok {
			return nil, false
		}
		id := p.ID
		if len(toks) > 1 {
			id = blocks.NewID(p.ID + "\x00" + strconv.Itoa(i) + "\x00" + tok.Text)
		}
		out = append(out, blocks.FieldBlock{ID: id, Field: f, Source: tok.Text})
	}
	return out, true
}

// matchExact replaces a paragraph whose trimmed text equals one of the
// markers found in the original text, trying kinds in marker.Kinds order.
func matchExact(p blocks.Paragraph, byKind map[marker.Kind][]marker.Token) (blocks.Block, bool) {
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return nil, false
	}
	unescaped := html.UnescapeString(text)
	for _, kind := range marker.Kinds {
		for _, tok := range byKind[kind] {
			if tok.Text != text && html.UnescapeString(tok.Text) != unescaped {
				continue
			}
			if f, ok := field.FromToken(tok); ok {
				return blocks.FieldBlock{ID: p.ID, Field: f, Source: tok.Text}, true
			}
		}
	}
	return nil, false
}

// isArtifact reports whether a field block is an empty generic references
// block left behind by a horizontal rule or a table separator.
func isArtifact(fb blocks.FieldBlock) bool {
	payload, ok := referencesPayload(fb)
	return ok && (payload == "" || field.LooksLikeTableSeparator(payload))
}

// isTableArtifact reports whether a field block is a generic references
// marker whose payload is a table rule such as "|---|---|".
func isTableArtifact(fb blocks.FieldBlock) bool {
	payload, ok := referencesPayload(fb)
	return ok && field.LooksLikeTableSeparator(payload)
}

func referencesPayload(fb blocks.FieldBlock) (string, bool) {
	rl, ok := fb.Field.(field.ReferenceList)
	if !ok || rl.Group != string(marker.References) {
		return "", false
	}
	payload := strings.Join(rl.Paths, ",")
	if fb.Source != "" {
		payload = strings.TrimSuffix(strings.TrimPrefix(fb.Source, "[!references:"), "]")
	}
	return strings.TrimSpace(payload), true
}

func blank(s string) bool {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || isZeroWidth(r)
	}) == ""
}

func isZeroWidth(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
		return true
	}
	return false
}

// Backward replaces every field block with a paragraph holding its marker.
func Backward(bs []blocks.Block) []blocks.Block {
	out := make([]blocks.Block, len(bs))
	for i, b := range bs {
		switch v := b.(type) {
		case blocks.FieldBlock:
			out[i] = blocks.Paragraph{ID: v.ID, Text: v.Field.Marker()}
		case blocks.ListItem:
			v.Children = Backward(v.Children)
			out[i] = v
		default:
			out[i] = b
		}
	}
	return out
}

// PatchField rewrites the n-th marker (zero based) holding the same field
// slot as f, leaving the rest of text untouched. Markers inside History
// sections are not counted.
func PatchField(text string, f field.Field, occurrence int) (string, bool) {
	id := field.Identity(f)
	spans := historySpans(text)
	n := 0
	for _, tok := range marker.Scan(text) {
		if inSpans(tok.Start, spans) {
			continue
		}
		cur, ok := field.FromToken(tok)
		if !ok || field.Identity(cur) != id {
			continue
		}
		if n == occurrence {
			return text[:tok.Start] + f.Marker() + text[tok.End:], true
		}
		n++
	}
	return text, false
}

// Fields returns the field blocks of a processed tree in order.
func Fields(bs []blocks.Block) []blocks.FieldBlock {
	var out []blocks.FieldBlock
	for _, b := range bs {
		if fb, ok := b.(blocks.FieldBlock); ok {
			out = append(out, fb)
		}
	}
	return out
}
