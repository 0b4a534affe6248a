package delivery

import (
	"strings"
	"unicode/utf16"
)

const (
	// CaptionLimit is the longest media caption the chat API accepts.
	CaptionLimit = 1024
	// MessageLimit is the longest plain text message the chat API accepts.
	MessageLimit = 4096

	TruncationMarker = "\n...(truncated)"

	openFence  = "```\n"
	closeFence = "\n```"
	// both fences with their newlines
	fenceOverhead = len(openFence) + len(closeFence)

	ParseModeMarkdownV2 = "MarkdownV2"
)

// BuildCaption wraps text in a MarkdownV2 code block, escaping the characters
// the block treats specially. When the wrapped caption would be longer than
// CaptionLimit the text is cut so it fits and ends with TruncationMarker.
// The second return reports whether it was cut.
func BuildCaption(text string) (string, bool) {
	escaped := escapeCode(text)
	if Length(escaped)+fenceOverhead <= CaptionLimit {
		return openFence + escaped + closeFence, false
	}
	inner := cut(text, CaptionLimit-fenceOverhead-Length(TruncationMarker), true) + TruncationMarker
	return openFence + inner + closeFence, true
}

// PlainCaption is the unformatted caption used when the formatted one is rejected.
func PlainCaption(text string) string {
	return fitPlain(text, CaptionLimit)
}

// PlainMessage fits text into one plain message.
func PlainMessage(text string) string {
	return fitPlain(text, MessageLimit)
}

// Length counts s in UTF-16 code units, the unit the chat API limits are in.
func Length(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

func fitPlain(text string, limit int) string {
	if Length(text) <= limit {
		return text
	}
	return cut(text, limit-Length(TruncationMarker), false) + TruncationMarker
}

// cut returns the longest prefix of text, escaped if asked, that fits in
// budget code units. Runes and escape sequences are never split.
func cut(text string, budget int, escape bool) string {
	var sb strings.Builder
	used := 0
	for _, r := range text {
		n := utf16.RuneLen(r)
		if escape && isCodeSpecial(r) {
			n++
		}
		if used+n > budget {
			break
		}
		if escape && isCodeSpecial(r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
		used += n
	}
	return sb.String()
}

// Inside pre and code entities only ` and \ must be escaped.
func escapeCode(text string) string {
	if !strings.ContainsAny(text, "`\\") {
		return text
	}
	var sb strings.Builder
	sb.Grow(len(text) + 8)
	for _, r := range text {
		if isCodeSpecial(r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func isCodeSpecial(r rune) bool {
	return r == '`' || r == '\\'
}
