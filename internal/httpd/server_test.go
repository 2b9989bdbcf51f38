package httpd

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arcuru/pokem/internal/poke"
	"github.com/arcuru/pokem/internal/roomcfg"
	"github.com/arcuru/pokem/internal/transport/transporttest"
	logx "github.com/arcuru/pokem/pkg/logx"
)

func newTestServer(t *testing.T, cfg Config, client *transporttest.Client, nicknames map[string]string) *httptest.Server {
	t.Helper()
	pipeline := &poke.Pipeline{
		Client: client,
		Store:  roomcfg.NewStore(logx.Nop()),
		Log:    logx.Nop(),
	}
	s := New(cfg, pipeline, func() map[string]string { return nicknames }, logx.Nop())
	ts := httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(ts.Close)
	return ts
}

func TestGetServesForm(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Config{}, transporttest.NewClient(), nil)

	resp, err := http.Get(ts.URL + "/anything")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 even for unknown rooms", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Pok'em!") {
		t.Fatal("form page not served")
	}
}

func TestPostDelivers(t *testing.T) {
	t.Parallel()
	client := transporttest.NewClient()
	room := client.AddRoom(transporttest.NewRoom("!ops:example.org"))
	ts := newTestServer(t, Config{}, client, map[string]string{"ops": "!ops:example.org"})

	resp, err := http.Post(ts.URL+"/ops", "text/plain", strings.NewReader("disk full"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "OK" {
		t.Fatalf("response = %d %q, want 200 OK", resp.StatusCode, body)
	}

	sent := room.Sent()
	if len(sent) != 1 || sent[0].Body != "disk full" {
		t.Fatalf("sent = %+v", sent)
	}
}

func TestPostUrgentQueryEscalates(t *testing.T) {
	t.Parallel()
	client := transporttest.NewClient()
	client.AddRoom(transporttest.NewRoom("!ops:example.org"))
	pager := client.AddRoom(transporttest.NewRoom("!pager:example.org"))
	ts := newTestServer(t, Config{}, client, map[string]string{
		"ops":        "!ops:example.org",
		"ops-urgent": "!pager:example.org",
	})

	resp, err := http.Post(ts.URL+"/ops?message=disk+full&priority=urgent", "text/plain", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if sent := pager.Sent(); len(sent) != 1 || sent[0].Body != "disk full" {
		t.Fatalf("pager sent = %+v, want the escalation room poked", sent)
	}
}

func TestPostUrgentWithoutEscalationMentionsRoom(t *testing.T) {
	t.Parallel()
	client := transporttest.NewClient()
	room := client.AddRoom(transporttest.NewRoom("!ops:example.org"))
	ts := newTestServer(t, Config{}, client, map[string]string{"ops": "!ops:example.org"})

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/ops", strings.NewReader("paging"))
	req.Header.Set("priority", "5")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()

	if sent := room.Sent(); len(sent) != 1 || !sent[0].MentionRoom {
		t.Fatalf("sent = %+v, want a room-wide mention", sent)
	}
}

func TestPostUnknownRoomFails(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Config{}, transporttest.NewClient(), nil)

	resp, err := http.Post(ts.URL+"/nowhere", "text/plain", strings.NewReader("hi"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusNotFound || string(body) != "Failed to send message" {
		t.Fatalf("response = %d %q", resp.StatusCode, body)
	}
}

func TestPostBlockedRoomLooksLikeSuccess(t *testing.T) {
	t.Parallel()
	client := transporttest.NewClient()
	room := client.AddRoom(transporttest.NewRoom("!blocked:example.org"))
	room.SeedTag(roomcfg.TagBlock)
	ts := newTestServer(t, Config{}, client, nil)

	resp, err := http.Post(ts.URL+"/!blocked:example.org", "text/plain", strings.NewReader("hi"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, blocked rooms must not be probeable", resp.StatusCode)
	}
	if len(room.Sent()) != 0 {
		t.Fatal("message delivered to a blocked room")
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	client := transporttest.NewClient()
	client.AddRoom(transporttest.NewRoom("!ops:example.org"))
	ts := newTestServer(t, Config{RatePerSec: 1}, client, map[string]string{"ops": "!ops:example.org"})

	limited := false
	for i := 0; i < 5; i++ {
		resp, err := http.Post(ts.URL+"/ops", "text/plain", strings.NewReader("x"))
		if err != nil {
			t.Fatalf("POST #%d: %v", i, err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Fatal("burst of pokes was never rate limited")
	}
}

func TestIPLimiterDisabled(t *testing.T) {
	t.Parallel()
	var l *ipLimiter
	for i := 0; i < 100; i++ {
		if !l.Allow("10.0.0.1:1234") {
			t.Fatal("nil limiter must allow everything")
		}
	}
}
