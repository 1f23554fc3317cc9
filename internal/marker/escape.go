package marker

import (
	"html"
	"strings"
)

var payloadEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&#34;",
	"'", "&#39;",
	"[", "&#91;",
	"]", "&#93;",
	",", "&#44;",
)

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"(", `\(`,
	")", `\)`,
	"|", `\|`,
	"#", `\#`,
)

var markdownUnescaper = strings.NewReplacer(
	`\\`, `\`,
	`\*`, "*",
	`\_`, "_",
	"\\`", "`",
	`\[`, "[",
	`\]`, "]",
	`\(`, "(",
	`\)`, ")",
	`\|`, "|",
	`\#`, "#",
)

// EscapeHTML escapes & < > " ' for attribute values and inline HTML text.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}

// EscapePayload escapes a value for a marker payload position. Besides the
// HTML specials it encodes brackets and commas so a value can never close
// the marker or split a CSV list.
func EscapePayload(s string) string {
	return payloadEscaper.Replace(s)
}

// UnescapePayload reverses EscapePayload and any other HTML entity.
func UnescapePayload(s string) string {
	return html.UnescapeString(s)
}

// EscapeMarkdown backslash-escapes Markdown-significant characters.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// UnescapeMarkdown reverses EscapeMarkdown.
func UnescapeMarkdown(s string) string {
	return markdownUnescaper.Replace(s)
}

// EscapeText prepares an arbitrary user string (a title) for interpolation
// into generated Markdown.
func EscapeText(s string) string {
	return EscapeHTML(EscapeMarkdown(s))
}

// UnescapeText reverses EscapeText.
func UnescapeText(s string) string {
	return UnescapeMarkdown(html.UnescapeString(s))
}
