package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Provisioner/internal/domain"
	"github.com/shaiso/Provisioner/internal/executor"
	"github.com/shaiso/Provisioner/internal/telemetry"
)

// notifyTimeout — сколько ждать одного наблюдателя (запись в БД, публикация).
const notifyTimeout = 5 * time.Second

// Orchestrator выполняет список шагов строго последовательно.
//
// Для каждого шага:
//   - переходит в его рабочую директорию (Workspace.Enter) и
//     восстанавливает предыдущую после шага при любом исходе
//   - запускает команду через Executor
//   - фиксирует код выхода и вывод
//
// Первый упавший шаг без ContinueOnFailure останавливает run;
// оставшиеся шаги помечаются SKIPPED и не запускаются.
type Orchestrator struct {
	executor  executor.Executor
	workspace *Workspace
	observers []Observer
	dryRun    bool
	logger    *slog.Logger
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Executor — исполнитель команд (обязателен).
	Executor executor.Executor

	// Workspace — корень и текущая директория (обязателен).
	Workspace *Workspace

	// Observers — наблюдатели за ходом run (журнал, события, метрики).
	Observers []Observer

	// DryRun — помечает run как dry-run (команды не выполняются).
	DryRun bool

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		executor:  cfg.Executor,
		workspace: cfg.Workspace,
		observers: cfg.Observers,
		dryRun:    cfg.DryRun,
		logger:    logger,
	}
}

// Run выполняет шаги по порядку и возвращает итоговый run.
//
// При успехе всех шагов возвращает run в статусе SUCCEEDED и nil.
// При падении шага возвращает run в статусе FAILED и *StepError.
// Если шаги не прошли валидацию, возвращает ErrInvalidSteps и nil run:
// ни одна команда не запускается.
func (o *Orchestrator) Run(ctx context.Context, steps []domain.Step) (*domain.Run, error) {
	if err := domain.ValidateSteps(steps); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSteps, err)
	}

	run := domain.NewRun(steps, o.workspace.Root())
	run.DryRun = o.dryRun

	logger := telemetry.WithRunID(o.logger, run.ID.String())
	logger.Info("provisioning started",
		"steps", len(steps),
		"workdir", run.Workdir,
		"dry_run", run.DryRun,
	)

	run.MarkRunning()
	o.notify(ctx, logger, "run_started", func(ctx context.Context, obs Observer) error {
		return obs.RunStarted(ctx, run)
	})

	for i, step := range steps {
		index := i + 1
		stepErr := o.runStep(ctx, logger, run, index, step)
		if stepErr == nil {
			continue
		}

		if step.ContinueOnFailure && !errors.Is(stepErr, ErrInterrupted) {
			telemetry.WithStep(logger, index, step.Name).Warn("best-effort step failed, continuing",
				"exit_code", stepErr.ExitCode,
				"category", stepErr.Category,
			)
			continue
		}

		run.MarkFailed(index, stepErr.ExitCode, stepErr.Error())
		logger.Error("provisioning failed",
			"failed_step", index,
			"exit_code", stepErr.ExitCode,
			"category", stepErr.Category,
			"duration", run.Duration(),
		)
		o.finish(ctx, logger, run)
		return run, stepErr
	}

	run.MarkSucceeded()
	logger.Info("provisioning succeeded",
		"duration", run.Duration(),
		"failed_best_effort", run.CountByStatus(domain.StepStatusFailed),
	)
	o.finish(ctx, logger, run)
	return run, nil
}

// runStep выполняет один шаг. Возвращает nil при успехе.
func (o *Orchestrator) runStep(ctx context.Context, logger *slog.Logger, run *domain.Run, index int, step domain.Step) *StepError {
	result := run.Step(index)
	stepLogger := telemetry.WithStep(logger, index, step.Name)

	restore := o.workspace.Enter(step.Dir)
	defer restore()

	result.MarkRunning()

	// Сигнал пришёл между шагами — следующий не запускаем.
	if ctx.Err() != nil {
		stepErr := &StepError{
			Index:    index,
			Name:     step.Name,
			ExitCode: ExitCodeInterrupted,
			Category: ErrInterrupted,
		}
		result.MarkFailed(stepErr.ExitCode, "", stepErr.Error())
		o.notifyStep(ctx, stepLogger, run, result)
		return stepErr
	}

	stepLogger.Info("step started",
		"command", step.CommandLine(),
		"dir", o.workspace.Current(),
	)

	execResult, err := o.executor.Execute(ctx, &executor.Request{
		Step:  step,
		Index: index,
		Dir:   o.workspace.Current(),
	})
	if execResult == nil {
		execResult = &executor.Result{ExitCode: executor.ExitCodeNotStarted}
	}
	if err != nil {
		stepLogger.Debug("executor error", "error", err)
		if execResult.ExitCode == 0 {
			execResult.ExitCode = executor.ExitCodeNotStarted
		}
		if execResult.Output == "" {
			execResult.Output = err.Error()
		}
	}

	if err == nil && execResult.Succeeded() {
		result.MarkSucceeded(execResult.Output)
		stepLogger.Info("step succeeded", "duration", result.Duration())
		o.notifyStep(ctx, stepLogger, run, result)
		return nil
	}

	stepErr := &StepError{
		Index:    index,
		Name:     step.Name,
		ExitCode: execResult.ExitCode,
		Output:   execResult.Output,
		Category: Classify(step, execResult),
	}
	if ctx.Err() != nil {
		stepErr.ExitCode = ExitCodeInterrupted
		stepErr.Category = ErrInterrupted
	}

	result.MarkFailed(stepErr.ExitCode, stepErr.Output, stepErr.Error())
	stepLogger.Error("step failed",
		"exit_code", stepErr.ExitCode,
		"category", stepErr.Category,
		"duration", result.Duration(),
	)
	o.notifyStep(ctx, stepLogger, run, result)
	return stepErr
}

func (o *Orchestrator) notifyStep(ctx context.Context, logger *slog.Logger, run *domain.Run, step *domain.StepResult) {
	o.notify(ctx, logger, "step_finished", func(ctx context.Context, obs Observer) error {
		return obs.StepFinished(ctx, run, step)
	})
}

func (o *Orchestrator) finish(ctx context.Context, logger *slog.Logger, run *domain.Run) {
	o.notify(ctx, logger, "run_finished", func(ctx context.Context, obs Observer) error {
		return obs.RunFinished(ctx, run)
	})
}

// notify вызывает fn для каждого наблюдателя.
//
// Ошибки наблюдателей логируются и не влияют на исход run.
// Контекст отвязан от отмены, чтобы итог прерванного run тоже был записан.
func (o *Orchestrator) notify(ctx context.Context, logger *slog.Logger, event string, fn func(context.Context, Observer) error) {
	base := context.WithoutCancel(ctx)
	for _, obs := range o.observers {
		nctx, cancel := context.WithTimeout(base, notifyTimeout)
		if err := fn(nctx, obs); err != nil {
			logger.Warn("observer failed",
				"event", event,
				"observer", fmt.Sprintf("%T", obs),
				"error", err,
			)
		}
		cancel()
	}
}
