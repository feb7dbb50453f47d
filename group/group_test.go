package group

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/oakhollow/supervise/supervisor"
)

type testWorker struct {
	mailbox       chan Envelope
	mu            sync.Mutex
	handled       []any
	initCalled    int
	terminateCall int
	panicOnHandle bool
}

func (w *testWorker) Mailbox() <-chan Envelope { return w.mailbox }

func (w *testWorker) Handle(ctx context.Context, payload any) {
	if w.panicOnHandle {
		panic("handle panic")
	}
	w.mu.Lock()
	w.handled = append(w.handled, payload)
	w.mu.Unlock()
}

func (w *testWorker) Init(ctx context.Context) error {
	w.initCalled++
	return nil
}

func (w *testWorker) Terminate(ctx context.Context) {
	w.terminateCall++
}

func Test_GroupProcessesMailboxMessages(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	worker := &testWorker{mailbox: make(chan Envelope, 2)}
	bcast := supervisor.NewChannelBroadcast(nil)
	g := New(bcast, func() Worker { return worker })

	handle := g.Launch(ctx)
	_ = bcast.Send(ctx, supervisor.Start{})
	time.Sleep(20 * time.Millisecond)

	worker.mailbox <- Envelope{Payload: "hello"}
	worker.mailbox <- Envelope{Control: MessageStop}

	handle.Await(ctx)

	worker.mu.Lock()
	defer worker.mu.Unlock()
	if len(worker.handled) != 1 {
		t.Fatalf("expected 1 message handled, got %d", len(worker.handled))
	}
	if worker.initCalled != 1 {
		t.Fatalf("expected Init to be called once, got %d", worker.initCalled)
	}
	if worker.terminateCall != 1 {
		t.Fatalf("expected Terminate to be called once, got %d", worker.terminateCall)
	}
}

func Test_GroupBuffersControlMessagesBeforeStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	worker := &testWorker{mailbox: make(chan Envelope, 1)}
	bcast := supervisor.NewChannelBroadcast(nil)
	g := New(bcast, func() Worker { return worker })

	handle := g.Launch(ctx)
	_ = bcast.Send(ctx, supervisor.Stop{})
	time.Sleep(20 * time.Millisecond)

	_ = bcast.Send(ctx, supervisor.Start{})

	terminal, ok := handle.Await(ctx)
	if !ok || terminal == nil {
		t.Fatal("expected group to terminate once started and buffered Stop replayed")
	}
}

func Test_GroupRecoversPanicAndNotifiesFaulted(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	worker := &testWorker{mailbox: make(chan Envelope, 1), panicOnHandle: true}
	parent := supervisor.NewChannelBroadcast(nil)
	child := supervisor.NewChannelBroadcast(parent)
	parent.Register(child)
	g := New(child, func() Worker { return worker })

	handle := g.Launch(ctx)
	_ = child.Send(ctx, supervisor.Start{})
	worker.mailbox <- Envelope{Payload: "boom"}

	terminal, ok := handle.Await(ctx)
	if !ok || terminal == nil {
		t.Fatal("expected group to terminate after a panic")
	}

	select {
	case msg := <-parent.Inbox():
		if _, isFault := msg.(supervisor.Faulted); !isFault {
			t.Fatalf("expected parent to observe Faulted, got %T", msg)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("parent never observed a Faulted notification")
	}
}

func Test_GroupDeliversBroadcastMessageToWorker(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	worker := &testWorker{mailbox: make(chan Envelope, 1)}
	bcast := supervisor.NewChannelBroadcast(nil)
	g := New(bcast, func() Worker { return worker })

	handle := g.Launch(ctx)
	_ = bcast.Send(ctx, supervisor.Start{})
	_ = bcast.Send(ctx, supervisor.Message{Payload: "fan-out"})
	time.Sleep(20 * time.Millisecond)

	_ = bcast.Send(ctx, supervisor.Kill{})
	handle.Await(ctx)

	worker.mu.Lock()
	defer worker.mu.Unlock()
	if len(worker.handled) != 1 || worker.handled[0] != "fan-out" {
		t.Fatalf("expected worker to handle the broadcast payload, got %v", worker.handled)
	}
}

func Test_GroupResetProducesFreshWorkerInstance(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	calls := 0
	bcast := supervisor.NewChannelBroadcast(nil)
	g := New(bcast, func() Worker {
		calls++
		return &testWorker{mailbox: make(chan Envelope, 1)}
	})

	fresh, err := g.Reset(ctx, supervisor.NewChannelBroadcast(nil))
	if err != nil {
		t.Fatalf("unexpected error resetting group: %v", err)
	}
	if fresh.ID() == g.ID() {
		t.Fatal("expected reset to produce a new identifier")
	}

	handle := fresh.Launch(ctx)
	_ = fresh.Broadcast().Send(ctx, supervisor.Start{})
	_ = fresh.Broadcast().Send(ctx, supervisor.Kill{})
	handle.Await(ctx)

	if calls != 1 {
		t.Fatalf("expected the factory to be invoked once by Launch, got %d", calls)
	}
}
