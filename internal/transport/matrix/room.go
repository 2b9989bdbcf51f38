package matrix

import (
	"context"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/format"
	"maunium.net/go/mautrix/id"

	"github.com/arcuru/pokem/internal/transport"
)

// room is a thin handle; all state lives on the client.
type room struct {
	c  *Client
	id id.RoomID
}

func (r *room) ID() transport.RoomID { return transport.RoomID(r.id) }

func (r *room) CanonicalAlias() string {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	if st, ok := r.c.rooms[r.id]; ok {
		return st.canonicalAlias
	}
	return ""
}

func (r *room) AltAliases() []string {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	if st, ok := r.c.rooms[r.id]; ok {
		out := make([]string, len(st.altAliases))
		copy(out, st.altAliases)
		return out
	}
	return nil
}

func (r *room) Membership() transport.Membership {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	if st, ok := r.c.rooms[r.id]; ok && st.membership != "" {
		return st.membership
	}
	return transport.MembershipLeft
}

func (r *room) ActiveMembers(ctx context.Context) (int, error) {
	resp, err := r.c.cli.JoinedMembers(ctx, r.id)
	if err != nil {
		return 0, err
	}
	return len(resp.Joined), nil
}

func (r *room) Tags(ctx context.Context) ([]string, error) {
	resp, err := r.c.cli.GetTags(ctx, r.id)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(resp.Tags))
	for tag := range resp.Tags {
		out = append(out, string(tag))
	}
	return out, nil
}

func (r *room) AddTag(ctx context.Context, tag string) error {
	return r.c.cli.AddTag(ctx, r.id, tag, 0)
}

func (r *room) RemoveTag(ctx context.Context, tag string) error {
	return r.c.cli.RemoveTag(ctx, r.id, tag)
}

func (r *room) Send(ctx context.Context, msg transport.Message) error {
	var content event.MessageEventContent
	if msg.Markdown {
		content = format.RenderMarkdown(msg.Body, true, false)
	} else {
		content = event.MessageEventContent{
			MsgType: event.MsgText,
			Body:    msg.Body,
		}
	}
	if msg.MentionRoom {
		content.Mentions = &event.Mentions{Room: true}
	}
	_, err := r.c.cli.SendMessageEvent(ctx, r.id, event.EventMessage, &content)
	return err
}
