package poke

import (
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"testing"
)

func rawReq(path string, query url.Values, header http.Header, body string) RawRequest {
	if query == nil {
		query = url.Values{}
	}
	if header == nil {
		header = http.Header{}
	}
	return RawRequest{Path: path, Query: query, Header: header, Body: []byte(body)}
}

func TestNormalizeBodyOnly(t *testing.T) {
	t.Parallel()
	n, err := Normalize(rawReq("/ops", nil, nil, "disk full"))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := Notification{Topic: "ops", Message: "disk full", Priority: 3}
	if !reflect.DeepEqual(n, want) {
		t.Fatalf("got %+v, want %+v", n, want)
	}
}

func TestNormalizePrecedence(t *testing.T) {
	t.Parallel()
	q := url.Values{"message": {"from query"}, "Priority": {"high"}}
	h := http.Header{}
	h.Set("message", "from header")
	h.Set("title", "Header Title")

	n, err := Normalize(rawReq("/ops", q, h, "from body"))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if n.Message != "from query" {
		t.Errorf("Message = %q, want query to win over header and body", n.Message)
	}
	if n.Title != "Header Title" {
		t.Errorf("Title = %q, want header fallback", n.Title)
	}
	if n.Priority != 4 {
		t.Errorf("Priority = %d, want 4 (query is case-insensitive)", n.Priority)
	}
}

func TestNormalizeHeaderVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		key   string
		check func(Notification) bool
	}{
		{name: "x-title", key: "x-title", check: func(n Notification) bool { return n.Title == "v" }},
		{name: "short title", key: "t", check: func(n Notification) bool { return n.Title == "v" }},
		{name: "short message", key: "m", check: func(n Notification) bool { return n.Message == "v" }},
		{name: "prio", key: "prio", check: func(n Notification) bool { return n.Priority == 3 }},
		{name: "short tags", key: "ta", check: func(n Notification) bool { return len(n.Tags) == 1 && n.Tags[0] == "v" }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			h.Set(tt.key, "v")
			n, err := Normalize(rawReq("/x", nil, h, ""))
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if !tt.check(n) {
				t.Fatalf("header %q not honored: %+v", tt.key, n)
			}
		})
	}
}

func TestNormalizeTagsSplit(t *testing.T) {
	t.Parallel()
	h := http.Header{}
	h.Set("tags", "warning,skull")
	n, err := Normalize(rawReq("/x", nil, h, "boom"))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !reflect.DeepEqual(n.Tags, []string{"warning", "skull"}) {
		t.Fatalf("Tags = %v", n.Tags)
	}
}

func TestNormalizeJSONBody(t *testing.T) {
	t.Parallel()
	body := `{"message":"json msg","title":"J","priority":9,"tags":["tada"]}`
	n, err := Normalize(rawReq("/ops", nil, nil, body))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if n.Topic != "ops" {
		t.Errorf("Topic = %q, want it taken from the path even for JSON", n.Topic)
	}
	if n.Message != "json msg" || n.Title != "J" {
		t.Errorf("unexpected fields: %+v", n)
	}
	if n.Priority != 5 {
		t.Errorf("Priority = %d, want clamped to 5", n.Priority)
	}
}

func TestNormalizeJSONWithoutMessageIsPlainBody(t *testing.T) {
	t.Parallel()
	body := `{"title":"only a title"}`
	n, err := Normalize(rawReq("/ops", nil, nil, body))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	// Not a usable JSON notification, so the raw text becomes the message.
	if n.Message != body {
		t.Fatalf("Message = %q, want the raw body", n.Message)
	}
}

func TestNormalizeJSONWithTrailingDataIsPlainBody(t *testing.T) {
	t.Parallel()
	body := `{"message":"hi"} and then some`
	n, err := Normalize(rawReq("/ops", nil, nil, body))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	// A leading JSON object does not make the body a JSON notification;
	// anything after it means the whole text is the message.
	if n.Message != body {
		t.Fatalf("Message = %q, want the raw body", n.Message)
	}
}

func TestNormalizeRejectsBinaryBody(t *testing.T) {
	t.Parallel()
	r := RawRequest{Path: "/x", Query: url.Values{}, Header: http.Header{}, Body: []byte{0xff, 0xfe}}
	if _, err := Normalize(r); !errors.Is(err, ErrMalformedRequest) {
		t.Fatalf("err = %v, want ErrMalformedRequest", err)
	}
}
