package poke

import (
	"testing"

	"github.com/arcuru/pokem/internal/transport/transporttest"
)

func TestResolveTopic(t *testing.T) {
	t.Parallel()
	nicknames := map[string]string{
		"ops":        "!ops:example.org",
		"ops-urgent": "!pager:example.org",
		"backups":    "!backups:example.org",
	}
	tests := []struct {
		name        string
		topic       string
		urgent      bool
		wantTarget  string
		wantMention bool
	}{
		{name: "plain nickname", topic: "ops", wantTarget: "!ops:example.org"},
		{name: "urgent with escalation room", topic: "ops", urgent: true, wantTarget: "!pager:example.org"},
		{name: "urgent without escalation mentions room", topic: "backups", urgent: true, wantTarget: "!backups:example.org", wantMention: true},
		{name: "unknown topic passes through", topic: "!raw:example.org", wantTarget: "!raw:example.org"},
		{name: "unknown urgent topic mentions room", topic: "!raw:example.org", urgent: true, wantTarget: "!raw:example.org", wantMention: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			target, mention := ResolveTopic(nicknames, tt.topic, tt.urgent)
			if target != tt.wantTarget || mention != tt.wantMention {
				t.Fatalf("ResolveTopic(%q, urgent=%v) = (%q, %v), want (%q, %v)",
					tt.topic, tt.urgent, target, mention, tt.wantTarget, tt.wantMention)
			}
		})
	}
}

func TestResolveRoom(t *testing.T) {
	t.Parallel()
	client := transporttest.NewClient()
	byID := client.AddRoom(transporttest.NewRoom("!direct:example.org"))
	aliased := client.AddRoom(transporttest.NewRoom("!aliased:example.org"))
	aliased.Canonical = "#ops:example.org"
	alted := client.AddRoom(transporttest.NewRoom("!alted:example.org"))
	alted.Canonical = "#main:example.org"
	alted.Alts = []string{"#alerts:example.org"}

	tests := []struct {
		name   string
		input  string
		want   *transporttest.Room
		wantOK bool
	}{
		{name: "room id", input: "!direct:example.org", want: byID, wantOK: true},
		{name: "unknown room id", input: "!nope:example.org"},
		{name: "user id refused", input: "@alice:example.org"},
		{name: "canonical alias", input: "#ops:example.org", want: aliased, wantOK: true},
		{name: "alias without hash", input: "ops:example.org", want: aliased, wantOK: true},
		{name: "alternate alias", input: "#alerts:example.org", want: alted, wantOK: true},
		{name: "bare name is not alias shaped", input: "ops"},
		{name: "empty", input: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			room, ok := ResolveRoom(client, tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ResolveRoom(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if tt.wantOK && room.ID() != tt.want.ID() {
				t.Fatalf("ResolveRoom(%q) = %s, want %s", tt.input, room.ID(), tt.want.ID())
			}
		})
	}
}

func TestResolveRoomSkipsUnjoined(t *testing.T) {
	t.Parallel()
	client := transporttest.NewClient()
	r := client.AddRoom(transporttest.NewRoom("!left:example.org"))
	r.Canonical = "#gone:example.org"
	r.SetMembership("left")

	if _, ok := ResolveRoom(client, "#gone:example.org"); ok {
		t.Fatal("alias scan matched a room the session has left")
	}
	// Direct id lookup still works: invited rooms must be reachable for the
	// join-wait to run.
	if _, ok := ResolveRoom(client, "!left:example.org"); !ok {
		t.Fatal("id lookup should not depend on membership")
	}
}
