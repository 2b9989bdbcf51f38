package matrix

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"

	logx "github.com/arcuru/pokem/pkg/logx"
)

// tagServer stubs the homeserver tag endpoints and records what it saw.
type tagServer struct {
	mu    sync.Mutex
	calls []string
}

func (s *tagServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/rooms/") {
			t.Errorf("unexpected request path %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		s.mu.Lock()
		s.calls = append(s.calls, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			w.Write([]byte(`{"tags":{"dev.pokem.block":{},"m.favourite":{"order":0.5}}}`))
			return
		}
		w.Write([]byte(`{}`))
	}
}

func testRoom(t *testing.T, srv *httptest.Server) *room {
	t.Helper()
	cli, err := mautrix.NewClient(srv.URL, id.UserID("@pokem:example.org"), "tok")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c := &Client{
		cli:   cli,
		log:   logx.Nop(),
		rooms: make(map[id.RoomID]*roomState),
		ready: make(chan struct{}),
	}
	return &room{c: c, id: id.RoomID("!r:example.org")}
}

func TestRoomTagRoundTrip(t *testing.T) {
	t.Parallel()

	ts := &tagServer{}
	srv := httptest.NewServer(ts.handler(t))
	defer srv.Close()

	r := testRoom(t, srv)
	ctx := context.Background()

	if err := r.AddTag(ctx, "dev.pokem.block"); err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	if err := r.RemoveTag(ctx, "dev.pokem.block"); err != nil {
		t.Fatalf("RemoveTag: %v", err)
	}
	tags, err := r.Tags(ctx)
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	sort.Strings(tags)
	want := []string{"dev.pokem.block", "m.favourite"}
	if len(tags) != len(want) || tags[0] != want[0] || tags[1] != want[1] {
		t.Fatalf("Tags = %v, want %v", tags, want)
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	if len(ts.calls) != 3 {
		t.Fatalf("got %d requests, want 3: %v", len(ts.calls), ts.calls)
	}
	const tagPath = "/user/@pokem:example.org/rooms/!r:example.org/tags/dev.pokem.block"
	if got := ts.calls[0]; !strings.HasPrefix(got, "PUT ") || !strings.HasSuffix(got, tagPath) {
		t.Errorf("add call = %q, want PUT ...%s", got, tagPath)
	}
	if got := ts.calls[1]; !strings.HasPrefix(got, "DELETE ") || !strings.HasSuffix(got, tagPath) {
		t.Errorf("remove call = %q, want DELETE ...%s", got, tagPath)
	}
	if got := ts.calls[2]; !strings.HasPrefix(got, "GET ") || !strings.HasSuffix(got, "/tags") {
		t.Errorf("list call = %q, want GET .../tags", got)
	}
}
