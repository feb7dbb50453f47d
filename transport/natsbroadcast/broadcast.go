package natsbroadcast

import (
	"context"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/oakhollow/supervise/supervisor"
)

// broadcast is the NATS-backed supervisor.Broadcast implementation. Each
// instance owns one subject, derived from its identifier, that it
// subscribes to on construction and publishes wire-encodable control
// messages to on Send.
type broadcast struct {
	id      supervisor.Identifier
	subject string
	conn    *nats.Conn
	sub     *nats.Subscription
	inbox   chan supervisor.ControlMessage
	parent  supervisor.Broadcast

	mu       sync.Mutex
	children map[supervisor.Identifier]supervisor.Broadcast
	closed   bool
}

func newBroadcast(conn *nats.Conn, parent supervisor.Broadcast) supervisor.Broadcast {
	id := supervisor.NewIdentifier()
	b := &broadcast{
		id:       id,
		subject:  "supervise.ctrl." + id.String(),
		conn:     conn,
		inbox:    make(chan supervisor.ControlMessage, 64),
		parent:   parent,
		children: make(map[supervisor.Identifier]supervisor.Broadcast),
	}
	sub, err := conn.Subscribe(b.subject, b.onMessage)
	if err != nil {
		// Subscription failure leaves the inbox permanently empty; Send
		// still succeeds (NATS publish to a subject with no subscriber is
		// not an error), so surface the problem the same way a closed
		// inbox would: nothing is ever delivered. Deploy still works,
		// since it bypasses the wire entirely.
		return b
	}
	b.sub = sub
	return b
}

func (b *broadcast) onMessage(msg *nats.Msg) {
	ctrl, err := decode(msg.Data)
	if err != nil {
		return
	}
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}
	select {
	case b.inbox <- ctrl:
	default:
	}
}

func (b *broadcast) ID() supervisor.Identifier { return b.id }

func (b *broadcast) Inbox() <-chan supervisor.ControlMessage { return b.inbox }

func (b *broadcast) Send(ctx context.Context, msg supervisor.ControlMessage) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return supervisor.ErrInboxClosed
	}

	if deploy, ok := msg.(supervisor.Deploy); ok {
		select {
		case b.inbox <- deploy:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	data, err := encode(msg)
	if err != nil {
		return err
	}
	return b.conn.Publish(b.subject, data)
}

func (b *broadcast) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	close(b.inbox)
}

func (b *broadcast) Register(child supervisor.Broadcast) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.children[child.ID()] = child
}

func (b *broadcast) Unregister(id supervisor.Identifier) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.children, id)
}

func (b *broadcast) child(id supervisor.Identifier) (supervisor.Broadcast, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.children[id]
	return c, ok
}

func (b *broadcast) allChildren() []supervisor.Broadcast {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]supervisor.Broadcast, 0, len(b.children))
	for _, c := range b.children {
		out = append(out, c)
	}
	return out
}

func (b *broadcast) SendToChild(ctx context.Context, id supervisor.Identifier, msg supervisor.ControlMessage) error {
	c, ok := b.child(id)
	if !ok {
		return supervisor.ErrUnknownSubject
	}
	return c.Send(ctx, msg)
}

func (b *broadcast) SendToAll(ctx context.Context, msg supervisor.ControlMessage) error {
	for _, c := range b.allChildren() {
		if err := c.Send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *broadcast) StopAll(ctx context.Context) error {
	return b.SendToAll(ctx, supervisor.Stop{From: 0})
}

func (b *broadcast) KillAll(ctx context.Context) error {
	return b.SendToAll(ctx, supervisor.Kill{From: 0})
}

func (b *broadcast) NotifyStopped(ctx context.Context) {
	if b.parent == nil {
		return
	}
	_ = b.parent.Send(ctx, supervisor.Stopped{ID: b.id})
}

func (b *broadcast) NotifyFaulted(ctx context.Context) {
	if b.parent == nil {
		return
	}
	_ = b.parent.Send(ctx, supervisor.Faulted{ID: b.id})
}
