package natsbroadcast

import (
	"context"
	"testing"
	"time"

	"github.com/oakhollow/supervise/supervisor"
)

func Test_TransportRoundTripsControlMessages(t *testing.T) {
	transport, err := New()
	if err != nil {
		t.Fatalf("unexpected error starting embedded transport: %v", err)
	}
	defer transport.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	factory := transport.Factory()
	root := factory(nil)
	defer root.Close()

	child := factory(root)
	root.Register(child)
	defer child.Close()

	if err := root.SendToChild(ctx, child.ID(), supervisor.Start{}); err != nil {
		t.Fatalf("unexpected error sending Start: %v", err)
	}

	select {
	case msg := <-child.Inbox():
		if _, ok := msg.(supervisor.Start); !ok {
			t.Fatalf("expected to receive a Start message, got %T", msg)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("child never received the Start message over NATS")
	}
}

func Test_TransportDeliversDeployInProcess(t *testing.T) {
	transport, err := New()
	if err != nil {
		t.Fatalf("unexpected error starting embedded transport: %v", err)
	}
	defer transport.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	factory := transport.Factory()
	root := factory(nil)
	defer root.Close()

	sup := supervisor.New(supervisor.WithBroadcastFactory(factory))
	deploy := supervisor.Deploy{Subject: supervisor.AsSupervised(sup)}

	if err := root.Send(ctx, deploy); err != nil {
		t.Fatalf("unexpected error sending Deploy: %v", err)
	}

	select {
	case msg := <-root.Inbox():
		if _, ok := msg.(supervisor.Deploy); !ok {
			t.Fatalf("expected to receive the Deploy message back in-process, got %T", msg)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("Deploy was not delivered through the in-process shortcut")
	}
}

func Test_EncodeRejectsDeploy(t *testing.T) {
	sup := supervisor.New()
	_, err := encode(supervisor.Deploy{Subject: supervisor.AsSupervised(sup)})
	if err != errNotWireEncodable {
		t.Fatalf("expected errNotWireEncodable, got %v", err)
	}
}

func Test_CodecRoundTripsStopAndKill(t *testing.T) {
	for _, msg := range []supervisor.ControlMessage{
		supervisor.Stop{From: 2},
		supervisor.Kill{From: 3},
	} {
		data, err := encode(msg)
		if err != nil {
			t.Fatalf("unexpected error encoding %T: %v", msg, err)
		}
		decoded, err := decode(data)
		if err != nil {
			t.Fatalf("unexpected error decoding %T: %v", msg, err)
		}
		if decoded != msg {
			t.Fatalf("round trip mismatch: sent %#v, got %#v", msg, decoded)
		}
	}
}
