package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/Provisioner/internal/domain"
)

const metricsNamespace = "provisioner"

// Metrics собирает Prometheus метрики выполнения pipeline.
//
// Реализует orchestrator.Observer. Использует собственный Registry,
// чтобы в textfile попадали только метрики provisioner'а.
type Metrics struct {
	registry *prometheus.Registry

	stepDuration *prometheus.HistogramVec
	stepsTotal   *prometheus.CounterVec
	runsTotal    *prometheus.CounterVec
	lastExitCode prometheus.Gauge
	lastSuccess  prometheus.Gauge
}

// NewMetrics создаёт и регистрирует метрики.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of provisioning steps.",
			// От секунд (mv, rm) до часа (make -j8 для marian).
			Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
		}, []string{"step", "status"}),
		stepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "steps_total",
			Help:      "Provisioning steps by final status.",
		}, []string{"status"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Provisioning runs by final status.",
		}, []string{"status"}),
		lastExitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_exit_code",
			Help:      "Exit code of the last provisioning run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful provisioning run.",
		}),
	}

	m.registry.MustRegister(
		m.stepDuration,
		m.stepsTotal,
		m.runsTotal,
		m.lastExitCode,
		m.lastSuccess,
	)

	return m
}

// Registry возвращает registry с метриками.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RunStarted ничего не записывает: метрики run фиксируются по завершении.
func (m *Metrics) RunStarted(context.Context, *domain.Run) error {
	return nil
}

// StepFinished записывает длительность и статус шага.
func (m *Metrics) StepFinished(_ context.Context, _ *domain.Run, step *domain.StepResult) error {
	status := string(step.Status)
	m.stepsTotal.WithLabelValues(status).Inc()
	m.stepDuration.WithLabelValues(step.Name, status).Observe(step.Duration().Seconds())
	return nil
}

// RunFinished записывает итог run. Пропущенные шаги учитываются здесь,
// так как для них StepFinished не вызывается.
func (m *Metrics) RunFinished(_ context.Context, run *domain.Run) error {
	if skipped := run.CountByStatus(domain.StepStatusSkipped); skipped > 0 {
		m.stepsTotal.WithLabelValues(string(domain.StepStatusSkipped)).Add(float64(skipped))
	}

	m.runsTotal.WithLabelValues(string(run.Status)).Inc()
	m.lastExitCode.Set(float64(run.ExitCode))
	if run.Status == domain.RunStatusSucceeded && run.FinishedAt != nil {
		m.lastSuccess.Set(float64(run.FinishedAt.Unix()))
	}
	return nil
}

// WriteTextfile сохраняет метрики в формате node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
