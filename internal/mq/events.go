package mq

import (
	"context"

	"github.com/google/uuid"

	"github.com/shaiso/Provisioner/internal/domain"
)

// RunStartedPayload — payload события run.started.
type RunStartedPayload struct {
	RunID   uuid.UUID `json:"run_id"`
	Workdir string    `json:"workdir"`
	Steps   []string  `json:"steps"`
	DryRun  bool      `json:"dry_run,omitempty"`
}

// StepFinishedPayload — payload события step.finished.
type StepFinishedPayload struct {
	RunID      uuid.UUID         `json:"run_id"`
	Index      int               `json:"index"`
	Name       string            `json:"name"`
	Status     domain.StepStatus `json:"status"`
	ExitCode   int               `json:"exit_code"`
	DurationMs int64             `json:"duration_ms"`
	Error      string            `json:"error,omitempty"`
}

// RunFinishedPayload — payload события run.finished.
type RunFinishedPayload struct {
	RunID      uuid.UUID        `json:"run_id"`
	Status     domain.RunStatus `json:"status"`
	FailedStep int              `json:"failed_step,omitempty"`
	ExitCode   int              `json:"exit_code"`
	DurationMs int64            `json:"duration_ms"`
	Error      string           `json:"error,omitempty"`
}

// MessagePublisher — то, что нужно EventSink от Publisher.
type MessagePublisher interface {
	Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error
}

// EventSink публикует ход run в обменник provisioner.events.
// Реализует orchestrator.Observer.
type EventSink struct {
	pub MessagePublisher
}

// NewEventSink создаёт новый EventSink.
func NewEventSink(pub MessagePublisher) *EventSink {
	return &EventSink{pub: pub}
}

// RunStarted публикует run.started.
func (s *EventSink) RunStarted(ctx context.Context, run *domain.Run) error {
	names := make([]string, len(run.Steps))
	for i, step := range run.Steps {
		names[i] = step.Name
	}

	msg := newMessage(MessageTypeRunStarted, RunStartedPayload{
		RunID:   run.ID,
		Workdir: run.Workdir,
		Steps:   names,
		DryRun:  run.DryRun,
	})
	return s.pub.Publish(ctx, ExchangeEvents, RoutingKeyRunStarted, msg)
}

// StepFinished публикует step.finished. Вывод команды в событие не входит.
func (s *EventSink) StepFinished(ctx context.Context, run *domain.Run, step *domain.StepResult) error {
	msg := newMessage(MessageTypeStepFinished, StepFinishedPayload{
		RunID:      run.ID,
		Index:      step.Index,
		Name:       step.Name,
		Status:     step.Status,
		ExitCode:   step.ExitCode,
		DurationMs: step.Duration().Milliseconds(),
		Error:      step.Error,
	})
	return s.pub.Publish(ctx, ExchangeEvents, RoutingKeyStepFinished, msg)
}

// RunFinished публикует run.finished.
func (s *EventSink) RunFinished(ctx context.Context, run *domain.Run) error {
	msg := newMessage(MessageTypeRunFinished, RunFinishedPayload{
		RunID:      run.ID,
		Status:     run.Status,
		FailedStep: run.FailedStep,
		ExitCode:   run.ExitCode,
		DurationMs: run.Duration().Milliseconds(),
		Error:      run.Error,
	})
	return s.pub.Publish(ctx, ExchangeEvents, RoutingKeyRunFinished, msg)
}
