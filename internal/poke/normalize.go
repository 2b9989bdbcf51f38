package poke

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Header variants accepted for each field, probed in order. Mirrors the wire
// format of the deployed service, including the single-letter shorthands.
var (
	titleHeaders    = []string{"x-title", "title", "ti", "t"}
	messageHeaders  = []string{"x-message", "message", "m"}
	priorityHeaders = []string{"x-priority", "priority", "prio", "p"}
	tagsHeaders     = []string{"x-tags", "tags", "tag", "ta"}
)

// RawRequest is the transport-independent view of one inbound HTTP poke.
type RawRequest struct {
	// Path is the percent-decoded URL path; the topic is its trimmed form.
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Normalize turns an inbound call into one canonical Notification.
//
// A JSON object body containing "message" is used verbatim (priority still
// clamped). Otherwise each field is derived independently, first match wins:
// query parameter, then header variants, then (for the message only) the raw
// body text. The topic always comes from the URL path, never body or headers.
//
// The only failure is undecodable body bytes.
func Normalize(r RawRequest) (Notification, error) {
	if !utf8.Valid(r.Body) {
		return Notification{}, fmt.Errorf("%w: body is not valid UTF-8", ErrMalformedRequest)
	}
	body := string(r.Body)
	topic := strings.TrimPrefix(r.Path, "/")

	if n, ok := fromJSON(body); ok {
		n.Topic = topic
		return n, nil
	}

	query := lowerKeys(r.Query)

	n := Notification{
		Topic:   topic,
		Title:   firstOf(query, r.Header, "title", titleHeaders),
		Message: body,
	}
	if msg := firstOf(query, r.Header, "message", messageHeaders); msg != "" {
		n.Message = msg
	}
	n.Priority = ParsePriority(firstOf(query, r.Header, "priority", priorityHeaders))
	if tags := firstOf(query, r.Header, "tags", tagsHeaders); tags != "" {
		n.Tags = strings.Split(tags, ",")
	}
	return n, nil
}

// fromJSON accepts the body as a complete notification if it is a JSON
// object carrying a message.
func fromJSON(body string) (Notification, bool) {
	var n Notification
	if err := json.Unmarshal([]byte(body), &n); err != nil {
		return Notification{}, false
	}
	if n.Message == "" {
		return Notification{}, false
	}
	if n.Priority != 0 {
		n.Priority = clampPriority(n.Priority)
	}
	return n, true
}

func firstOf(query map[string]string, header http.Header, queryKey string, headerKeys []string) string {
	if v, ok := query[queryKey]; ok {
		return v
	}
	for _, k := range headerKeys {
		if v := header.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// lowerKeys flattens query values to a case-insensitive single-value map,
// matching how the deployed service reads its query string.
func lowerKeys(q url.Values) map[string]string {
	out := make(map[string]string, len(q))
	for k, vs := range q {
		if len(vs) == 0 {
			continue
		}
		key := strings.ToLower(k)
		if _, exists := out[key]; !exists {
			out[key] = vs[0]
		}
	}
	return out
}
