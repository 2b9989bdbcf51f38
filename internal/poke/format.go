package poke

import (
	"net/http"
	"strings"

	logx "github.com/arcuru/pokem/pkg/logx"
)

// Format is the outbound message rendering.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatPlain    Format = "plain"
)

// PickFormat chooses the send format: an explicit per-call "format" header
// wins, then the deployment default, then markdown. Unknown values are
// logged and fall back to markdown.
func PickFormat(header http.Header, deflt string, log logx.Logger) Format {
	format := deflt
	if format == "" {
		format = string(FormatMarkdown)
	}
	if h := header.Get("format"); h != "" {
		format = h
	}
	switch strings.ToLower(format) {
	case string(FormatMarkdown):
		return FormatMarkdown
	case string(FormatPlain):
		return FormatPlain
	default:
		log.Warn("unknown message format, sending markdown", logx.String("format", format))
		return FormatMarkdown
	}
}
