package consumer

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

// fakeQueueServer records registrations
type fakeQueueServer struct {
	queues []string
	err    error
}

func (f *fakeQueueServer) Consume(queue string, handler MessageHandler) error {
	if f.err != nil {
		return f.err
	}
	f.queues = append(f.queues, queue)
	return nil
}

func noop(ctx context.Context, payload []byte) error { return nil }

func TestSetup_RegistersOnlyEnabled(t *testing.T) {
	server := &fakeQueueServer{}
	descriptors := []Descriptor{
		{Queue: "orders", Handler: noop, Enabled: true},
		{Queue: "emails", Handler: noop, Enabled: false},
		{Queue: "events", Handler: noop, Enabled: true},
	}

	if err := Setup(server, descriptors, zap.NewNop()); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if len(server.queues) != 2 {
		t.Fatalf("registered %d queues, want 2", len(server.queues))
	}
	if server.queues[0] != "orders" || server.queues[1] != "events" {
		t.Errorf("registered queues = %v, want [orders events]", server.queues)
	}
}

func TestSetup_Empty(t *testing.T) {
	server := &fakeQueueServer{}
	if err := Setup(server, nil, zap.NewNop()); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if len(server.queues) != 0 {
		t.Errorf("registered %d queues, want 0", len(server.queues))
	}
}

func TestSetup_PropagatesError(t *testing.T) {
	wantErr := errors.New("broker down")
	server := &fakeQueueServer{err: wantErr}
	descriptors := []Descriptor{{Queue: "orders", Handler: noop, Enabled: true}}

	if err := Setup(server, descriptors, zap.NewNop()); !errors.Is(err, wantErr) {
		t.Errorf("Setup() error = %v, want %v", err, wantErr)
	}
}
