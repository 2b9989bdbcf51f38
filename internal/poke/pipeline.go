package poke

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/arcuru/pokem/internal/roomcfg"
	"github.com/arcuru/pokem/internal/storage"
	"github.com/arcuru/pokem/internal/transport"
	logx "github.com/arcuru/pokem/pkg/logx"
)

// exampleRoom is the public demo room; sends to it always pass the policy
// gate so the hosted instance can be tried without setup.
const exampleRoom = transport.RoomID("!JYrjsPjErpFSDdpwpI:jackson.dev")

const (
	joinWaitInitial = 2 * time.Second
	joinWaitCeiling = 60 * time.Second
)

// Clock abstracts time for the join-wait loop so tests can simulate the
// bounded backoff without real delays.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RealClock returns the wall-clock implementation.
func RealClock() Clock { return realClock{} }

// Delivery is one send through the pipeline.
type Delivery struct {
	// Topic is the original notification topic, kept for the audit trail.
	Topic string
	// Target is the resolved room reference: id, alias or bare alias name.
	Target string
	// Header carries the per-call auth and format headers. Empty for
	// chat-command and scheduled pokes.
	Header http.Header
	// Message is the fully rendered body.
	Message string
	// MentionRoom requests a room-wide mention annotation.
	MentionRoom bool
}

// Pipeline drives a poke from a resolved target to a room send:
// Resolving -> AwaitingJoin -> Authorizing -> Formatting -> Sending.
type Pipeline struct {
	Client transport.Client
	Store  roomcfg.Store

	// DefaultFormat is the deployment-wide send format.
	DefaultFormat string
	// RoomSizeLimit refuses sends to rooms with more active members.
	// 0 means unlimited.
	RoomSizeLimit int

	Clock Clock
	Audit storage.Store
	Log   logx.Logger
}

// Deliver runs one poke to completion. There is no cancellation once the
// send has started; the only timeout is the join-wait ceiling.
//
// A policy refusal (blocked room, member ceiling) is deliberately silent:
// the delivery is dropped, logged and audited, and the caller sees success,
// so probing a room's configuration from outside is not possible.
func (p *Pipeline) Deliver(ctx context.Context, d Delivery) error {
	log := p.Log.With(logx.String("room", d.Target), logx.String("topic", d.Topic))

	room, ok := ResolveRoom(p.Client, d.Target)
	if !ok {
		log.Error("failed to find room")
		p.audit(ctx, d, "", ErrRoomNotFound)
		return fmt.Errorf("%w: %s", ErrRoomNotFound, d.Target)
	}
	roomID := string(room.ID())
	log = p.Log.With(logx.String("room", roomID), logx.String("topic", d.Topic))

	if err := p.awaitJoin(ctx, room); err != nil {
		log.Error("room invite was not accepted in time", logx.Err(err))
		p.audit(ctx, d, roomID, err)
		return err
	}

	cfg := p.Store.Get(ctx, room)
	msg, err := ValidateAuth(cfg, d.Header, d.Message)
	if err != nil {
		log.Warn("poke failed authentication")
		p.audit(ctx, d, roomID, err)
		return err
	}

	out := transport.Message{
		Body:        msg,
		Markdown:    PickFormat(d.Header, p.DefaultFormat, log) == FormatMarkdown,
		MentionRoom: d.MentionRoom,
	}

	if !p.canMessage(ctx, room, cfg) {
		log.Warn("send refused by policy")
		p.audit(ctx, d, roomID, ErrSendRejected)
		return nil
	}

	if err := room.Send(ctx, out); err != nil {
		log.Error("failed to send message", logx.Err(err))
		p.audit(ctx, d, roomID, err)
		return fmt.Errorf("send to %s: %w", roomID, err)
	}

	log.Info("poke delivered", logx.Bool("mention", d.MentionRoom))
	p.audit(ctx, d, roomID, nil)
	return nil
}

// awaitJoin waits out a pending invite with doubling backoff, starting at
// 2s. Once the next delay would exceed 60s the delivery fails instead.
func (p *Pipeline) awaitJoin(ctx context.Context, room transport.Room) error {
	clock := p.Clock
	if clock == nil {
		clock = realClock{}
	}
	delay := joinWaitInitial
	for room.Membership() == transport.MembershipInvited {
		if delay > joinWaitCeiling {
			return ErrJoinTimeout
		}
		if err := clock.Sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}
	return nil
}

// canMessage is the send-allowed policy: the example room always passes; a
// blocked room is refused; a room over the member ceiling is refused
// independent of the block flag.
func (p *Pipeline) canMessage(ctx context.Context, room transport.Room, cfg roomcfg.Config) bool {
	if room.ID() == exampleRoom {
		return true
	}
	if p.RoomSizeLimit > 0 {
		n, err := room.ActiveMembers(ctx)
		if err != nil {
			p.Log.Warn("member count unavailable", logx.String("room", string(room.ID())), logx.Err(err))
		} else if n > p.RoomSizeLimit {
			p.Log.Warn("room exceeds size limit",
				logx.String("room", string(room.ID())),
				logx.Int("members", n), logx.Int("limit", p.RoomSizeLimit))
			return false
		}
	}
	if cfg.Block {
		p.Log.Warn("blocked from sending to room", logx.String("room", string(room.ID())))
		return false
	}
	return true
}

// CanMessage reports whether the policy allows messaging the room, reading
// its config fresh. Used by the chat command surface before replying.
func (p *Pipeline) CanMessage(ctx context.Context, room transport.Room) bool {
	return p.canMessage(ctx, room, p.Store.Get(ctx, room))
}

func (p *Pipeline) audit(ctx context.Context, d Delivery, roomID string, cause error) {
	if p.Audit == nil {
		return
	}
	e := storage.DeliveryEntry{
		At:      time.Now(),
		Topic:   d.Topic,
		Target:  d.Target,
		RoomID:  roomID,
		Mention: d.MentionRoom,
		OK:      cause == nil,
	}
	if cause != nil {
		e.Cause = causeLabel(cause)
	}
	// Best-effort: a lost audit row never fails a delivery.
	if err := p.Audit.AppendDelivery(ctx, e); err != nil {
		p.Log.Debug("audit append failed", logx.Err(err))
	}
}

func causeLabel(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, ErrJoinTimeout):
		return "join_timeout"
	case errors.Is(err, ErrAuthRejected):
		return "auth_rejected"
	case errors.Is(err, ErrSendRejected):
		return "send_rejected"
	case errors.Is(err, ErrMalformedRequest):
		return "malformed_request"
	default:
		return "send_failed"
	}
}
