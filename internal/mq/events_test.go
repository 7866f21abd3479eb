package mq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Provisioner/internal/domain"
)

type published struct {
	exchange   Exchange
	routingKey RoutingKey
	msg        *Message
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange, routingKey, msg})
	return nil
}

func testRun() *domain.Run {
	return domain.NewRun([]domain.Step{
		{Name: "update", Command: []string{"apt-get", "update"}},
		{Name: "install", Command: []string{"apt-get", "install", "-y", "git"}},
	}, "/ws")
}

// --- EventSink Tests ---

func TestEventSink_PublishesLifecycle(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewEventSink(pub)
	ctx := context.Background()

	run := testRun()
	run.MarkRunning()
	if err := sink.RunStarted(ctx, run); err != nil {
		t.Fatalf("RunStarted: %v", err)
	}

	step := run.Step(1)
	step.MarkRunning()
	step.MarkFailed(100, "E: broken packages", "step 1 failed")
	if err := sink.StepFinished(ctx, run, step); err != nil {
		t.Fatalf("StepFinished: %v", err)
	}

	run.MarkFailed(1, 100, "step 1 failed")
	if err := sink.RunFinished(ctx, run); err != nil {
		t.Fatalf("RunFinished: %v", err)
	}

	if len(pub.sent) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(pub.sent))
	}

	wantKeys := []RoutingKey{RoutingKeyRunStarted, RoutingKeyStepFinished, RoutingKeyRunFinished}
	wantTypes := []MessageType{MessageTypeRunStarted, MessageTypeStepFinished, MessageTypeRunFinished}
	for i, p := range pub.sent {
		if p.exchange != ExchangeEvents {
			t.Errorf("message %d: expected exchange %s, got %s", i, ExchangeEvents, p.exchange)
		}
		if p.routingKey != wantKeys[i] {
			t.Errorf("message %d: expected routing key %s, got %s", i, wantKeys[i], p.routingKey)
		}
		if p.msg.Type != wantTypes[i] {
			t.Errorf("message %d: expected type %s, got %s", i, wantTypes[i], p.msg.Type)
		}
		if p.msg.ID == "" {
			t.Errorf("message %d: empty ID", i)
		}
	}

	// Routing key совпадает с типом сообщения
	for _, p := range pub.sent {
		if string(p.routingKey) != string(p.msg.Type) {
			t.Errorf("routing key %s does not match type %s", p.routingKey, p.msg.Type)
		}
	}

	started := pub.sent[0].msg.Payload.(RunStartedPayload)
	if len(started.Steps) != 2 || started.Steps[1] != "install" {
		t.Errorf("unexpected step names: %v", started.Steps)
	}

	finished := pub.sent[2].msg.Payload.(RunFinishedPayload)
	if finished.FailedStep != 1 || finished.ExitCode != 100 || finished.Status != domain.RunStatusFailed {
		t.Errorf("unexpected run.finished payload: %+v", finished)
	}
}

func TestEventSink_StepPayloadOmitsOutput(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewEventSink(pub)

	run := testRun()
	step := run.Step(2)
	step.MarkRunning()
	step.MarkSucceeded("lots of apt output")

	if err := sink.StepFinished(context.Background(), run, step); err != nil {
		t.Fatalf("StepFinished: %v", err)
	}

	body, err := json.Marshal(pub.sent[0].msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Payload map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded.Payload["output"]; ok {
		t.Error("step.finished should not carry command output")
	}
	if decoded.Payload["index"] != float64(2) {
		t.Errorf("expected index 2, got %v", decoded.Payload["index"])
	}
	if decoded.Payload["status"] != "SUCCEEDED" {
		t.Errorf("expected SUCCEEDED, got %v", decoded.Payload["status"])
	}
}

func TestEventSink_PropagatesError(t *testing.T) {
	boom := errors.New("channel closed")
	sink := NewEventSink(&fakePublisher{err: boom})

	if err := sink.RunStarted(context.Background(), testRun()); !errors.Is(err, boom) {
		t.Errorf("expected publisher error, got %v", err)
	}
}

// --- Connection Tests ---

func TestConnection_WithChannel_NoChannel(t *testing.T) {
	c := &Connection{closedCh: make(chan struct{})}

	called := false
	err := c.WithChannel(context.Background(), func(_ *amqp.Channel) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrNoChannel) {
		t.Errorf("expected ErrNoChannel, got %v", err)
	}
	if called {
		t.Error("fn should not be called without a channel")
	}
}

func TestConnection_CloseIdempotent(t *testing.T) {
	c := &Connection{closedCh: make(chan struct{})}

	if err := c.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if c.IsConnected() {
		t.Error("closed connection should not report connected")
	}
}

func testConnection() *Connection {
	return &Connection{
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		retryDelay: time.Millisecond,
		closedCh:   make(chan struct{}),
	}
}

func TestConnection_InstallAfterClose(t *testing.T) {
	c := testConnection()
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// reconnect, завершившийся после Close, не должен оставить соединение
	if c.install(nil, nil) {
		t.Error("install should refuse after Close")
	}
	if c.conn != nil || c.channel != nil {
		t.Error("closed connection must not hold a conn or channel")
	}
}

func TestConnection_ReopenChannel_RetriesUntilOpen(t *testing.T) {
	c := testConnection()
	want := &amqp.Channel{}

	attempts := 0
	open := func() (*amqp.Channel, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("channel busy")
		}
		return want, nil
	}

	if !c.reopenChannel(open) {
		t.Fatal("expected channel to be reopened")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}

	var got *amqp.Channel
	if err := c.WithChannel(context.Background(), func(ch *amqp.Channel) error {
		got = ch
		return nil
	}); err != nil {
		t.Fatalf("WithChannel: %v", err)
	}
	if got != want {
		t.Error("WithChannel should use the reopened channel")
	}
}

func TestConnection_ReopenChannel_ConnectionGone(t *testing.T) {
	c := testConnection()

	attempts := 0
	open := func() (*amqp.Channel, error) {
		attempts++
		return nil, amqp.ErrClosed
	}

	// Соединение тоже упало: нужен полный reconnect
	if c.reopenChannel(open) {
		t.Error("reopen should fail when the connection is closed")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestConnection_ReopenChannel_StopsOnClose(t *testing.T) {
	c := testConnection()
	_ = c.Close()

	open := func() (*amqp.Channel, error) {
		t.Error("open should not be called after Close")
		return nil, nil
	}
	if c.reopenChannel(open) {
		t.Error("reopen should stop after Close")
	}
}
