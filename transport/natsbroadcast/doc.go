// Package natsbroadcast is an alternative to the supervisor package's
// default in-process channel transport, backed by an embedded NATS server.
// Every wire-representable control message — Start, Stop, Kill,
// SuperviseWith, Message, Stopped, Faulted, Prune — is marshalled onto a
// per-broadcast NATS subject and delivered back through the same
// connection's subscription, genuinely exercising the publish/subscribe
// path rather than shortcutting it.
//
// Deploy is the one message this transport cannot put on the wire: it
// carries a live supervisor.Supervised value — a running goroutine behind
// an interface, not data — so there is nothing meaningful to marshal.
// Deploy is delivered in-process, the same way the default transport
// delivers it; see codec.go.
package natsbroadcast
