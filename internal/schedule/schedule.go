// Package schedule dispatches recurring pokes from config through the
// delivery pipeline.
package schedule

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/arcuru/pokem/internal/config"
	"github.com/arcuru/pokem/internal/poke"
	logx "github.com/arcuru/pokem/pkg/logx"
)

// Runner owns the cron engine. Apply replaces the whole schedule set, which
// keeps config reload trivial at the cost of re-parsing every entry.
type Runner struct {
	mu        sync.Mutex
	cron      *cron.Cron
	pipeline  *poke.Pipeline
	nicknames func() map[string]string
	log       logx.Logger
}

func New(pipeline *poke.Pipeline, nicknames func() map[string]string, log logx.Logger) *Runner {
	if nicknames == nil {
		nicknames = func() map[string]string { return nil }
	}
	return &Runner{
		pipeline:  pipeline,
		nicknames: nicknames,
		log:       log.With(logx.String("comp", "schedule")),
	}
}

// Apply swaps in a new schedule set. Entries with an unparseable cron spec
// are skipped with a warning; the rest still run.
func (r *Runner) Apply(entries []config.ScheduleConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()
	if len(entries) == 0 {
		return
	}

	c := cron.New()
	installed := 0
	for _, e := range entries {
		e := e
		if _, err := c.AddFunc(e.Cron, func() { r.fire(e) }); err != nil {
			r.log.Warn("bad cron spec, schedule skipped",
				logx.String("name", e.Name), logx.String("cron", e.Cron), logx.Err(err))
			continue
		}
		installed++
	}
	if installed == 0 {
		return
	}
	r.cron = c
	c.Start()
	r.log.Info("schedules installed", logx.Int("count", installed))
}

// Stop halts the engine, waiting for an in-flight run to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Runner) stopLocked() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.cron = nil
}

func (r *Runner) fire(e config.ScheduleConfig) {
	n := poke.Notification{
		Topic:    e.Room,
		Message:  e.Message,
		Priority: e.Priority,
	}
	target, mention := poke.ResolveTopic(r.nicknames(), e.Room, n.Urgent())
	d := poke.Delivery{
		Topic:       e.Room,
		Target:      target,
		Message:     n.Body(),
		MentionRoom: mention,
	}
	if err := r.pipeline.Deliver(context.Background(), d); err != nil {
		r.log.Error("scheduled poke failed", logx.String("name", e.Name), logx.Err(err))
		return
	}
	r.log.Info("scheduled poke sent", logx.String("name", e.Name))
}
