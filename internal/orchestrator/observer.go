package orchestrator

import (
	"context"

	"github.com/shaiso/Provisioner/internal/domain"
)

// Observer получает уведомления о ходе run.
//
// Реализации: repo.Journal (PostgreSQL), mq.EventSink (RabbitMQ),
// telemetry.Metrics (Prometheus), report.Writer (blob). Для пропущенных шагов StepFinished
// не вызывается — их статус виден в RunFinished.
type Observer interface {
	RunStarted(ctx context.Context, run *domain.Run) error
	StepFinished(ctx context.Context, run *domain.Run, step *domain.StepResult) error
	RunFinished(ctx context.Context, run *domain.Run) error
}
