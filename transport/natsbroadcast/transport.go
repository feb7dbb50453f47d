package natsbroadcast

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/oakhollow/supervise/supervisor"
)

// Transport owns one embedded, in-process NATS server and the connection
// every Broadcast it creates publishes and subscribes through. A
// supervision tree normally shares a single Transport across every
// supervisor and group in it.
type Transport struct {
	server *server.Server
	conn   *nats.Conn
}

// New starts an embedded NATS server that listens on no network socket —
// only in-process connections are possible — and connects to it.
func New() (*Transport, error) {
	ns, err := server.NewServer(&server.Options{
		DontListen: true,
	})
	if err != nil {
		return nil, fmt.Errorf("natsbroadcast: creating embedded server: %w", err)
	}
	ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("natsbroadcast: embedded server did not become ready")
	}

	conn, err := nats.Connect("", nats.InProcessServer(ns))
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("natsbroadcast: connecting to embedded server: %w", err)
	}

	return &Transport{server: ns, conn: conn}, nil
}

// Close closes the connection and shuts down the embedded server. It
// should only be called after every Broadcast created from this Transport
// has itself been closed.
func (t *Transport) Close() {
	t.conn.Close()
	t.server.Shutdown()
}

// Factory returns a supervisor.WithBroadcastFactory-compatible function
// that builds Broadcasts on this Transport's connection.
func (t *Transport) Factory() func(parent supervisor.Broadcast) supervisor.Broadcast {
	return func(parent supervisor.Broadcast) supervisor.Broadcast {
		return newBroadcast(t.conn, parent)
	}
}
