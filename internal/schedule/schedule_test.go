package schedule

import (
	"testing"
	"time"

	"github.com/arcuru/pokem/internal/config"
	"github.com/arcuru/pokem/internal/poke"
	"github.com/arcuru/pokem/internal/roomcfg"
	"github.com/arcuru/pokem/internal/transport/transporttest"
	logx "github.com/arcuru/pokem/pkg/logx"
)

func newRunner(client *transporttest.Client) *Runner {
	pipeline := &poke.Pipeline{
		Client: client,
		Store:  roomcfg.NewStore(logx.Nop()),
		Log:    logx.Nop(),
	}
	nicknames := func() map[string]string {
		return map[string]string{"ops": "!ops:example.org"}
	}
	return New(pipeline, nicknames, logx.Nop())
}

func TestApplySkipsBadSpecs(t *testing.T) {
	t.Parallel()
	r := newRunner(transporttest.NewClient())
	defer r.Stop()

	r.Apply([]config.ScheduleConfig{
		{Name: "broken", Cron: "not a cron spec", Room: "ops", Message: "x"},
	})
	if r.cron != nil {
		t.Fatal("engine started with zero valid schedules")
	}

	r.Apply([]config.ScheduleConfig{
		{Name: "broken", Cron: "nope", Room: "ops", Message: "x"},
		{Name: "ok", Cron: "@every 1h", Room: "ops", Message: "x"},
	})
	if r.cron == nil {
		t.Fatal("valid schedule should survive a broken sibling")
	}
}

func TestApplyReplacesSchedules(t *testing.T) {
	t.Parallel()
	r := newRunner(transporttest.NewClient())

	r.Apply([]config.ScheduleConfig{{Name: "a", Cron: "@every 1h", Room: "ops", Message: "x"}})
	first := r.cron
	r.Apply([]config.ScheduleConfig{{Name: "b", Cron: "@every 2h", Room: "ops", Message: "y"}})
	if r.cron == first {
		t.Fatal("Apply should build a fresh engine")
	}

	r.Apply(nil)
	if r.cron != nil {
		t.Fatal("empty schedule set should stop the engine")
	}
}

func TestFireDelivers(t *testing.T) {
	t.Parallel()
	client := transporttest.NewClient()
	room := client.AddRoom(transporttest.NewRoom("!ops:example.org"))
	r := newRunner(client)

	r.fire(config.ScheduleConfig{Name: "standup", Room: "ops", Message: "Standup time"})

	sent := room.Sent()
	if len(sent) != 1 || sent[0].Body != "Standup time" {
		t.Fatalf("sent = %+v", sent)
	}
	if sent[0].MentionRoom {
		t.Error("default priority must not mention the room")
	}
}

func TestFireUrgentMentionsRoom(t *testing.T) {
	t.Parallel()
	client := transporttest.NewClient()
	room := client.AddRoom(transporttest.NewRoom("!ops:example.org"))
	r := newRunner(client)

	r.fire(config.ScheduleConfig{Name: "page", Room: "ops", Message: "on fire", Priority: 5})

	// No ops-urgent nickname configured, so an urgent schedule pages the
	// whole room instead.
	if sent := room.Sent(); len(sent) != 1 || !sent[0].MentionRoom {
		t.Fatalf("sent = %+v", sent)
	}
}

func TestScheduledFiring(t *testing.T) {
	t.Parallel()
	client := transporttest.NewClient()
	room := client.AddRoom(transporttest.NewRoom("!ops:example.org"))
	r := newRunner(client)
	defer r.Stop()

	r.Apply([]config.ScheduleConfig{
		{Name: "fast", Cron: "@every 100ms", Room: "ops", Message: "tick"},
	})

	deadline := time.After(3 * time.Second)
	for len(room.Sent()) == 0 {
		select {
		case <-deadline:
			t.Fatal("schedule never fired")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
