package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Provisioner/internal/domain"
	"github.com/shaiso/Provisioner/internal/executor"
	"github.com/shaiso/Provisioner/internal/mq"
	"github.com/shaiso/Provisioner/internal/orchestrator"
	"github.com/shaiso/Provisioner/internal/report"
	"github.com/shaiso/Provisioner/internal/repo"
	"github.com/shaiso/Provisioner/internal/steps"
	"github.com/shaiso/Provisioner/internal/telemetry"
)

// ExitCodeError — команда завершилась с заданным кодом выхода.
// main передаёт Code в os.Exit.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	return e.Err.Error()
}

func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// Options — глобальные флаги CLI.
type Options struct {
	Workdir      string
	DryRun       bool
	JSON         bool
	MetricsFile  string
	ReportURL    string
	ReportPrefix string
	StepsFile    string
}

// LoadSteps возвращает встроенный список шагов или список из --steps.
func LoadSteps(opts *Options) ([]domain.Step, error) {
	if opts.StepsFile == "" {
		return steps.Provisioning(), nil
	}
	return steps.LoadFile(opts.StepsFile)
}

// NewRunCmd создаёт команду run.
func NewRunCmd(optsFn func() *Options, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the provisioning pipeline",
		Args:  cobra.NoArgs,
		RunE:  RunAction(optsFn, outputFn),
	}
}

// RunAction — RunE команды run. Корневая команда без аргументов
// использует его же.
func RunAction(optsFn func() *Options, outputFn func() *Output) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		opts := optsFn()
		pipeline, err := LoadSteps(opts)
		if err != nil {
			return err
		}
		return RunPipeline(cmd.Context(), pipeline, opts, outputFn())
	}
}

// RunPipeline выполняет шаги и печатает итог.
//
// Журнал (DB_URL), события (RABBITMQ_URL) и отчёт (--report-url)
// подключаются, если настроены. Недоступные БД и брокер только
// логируются, а вот bucket отчёта, явно заданный флагом, обязан открыться.
//
// При неудачном run возвращает *ExitCodeError с кодом упавшего шага.
func RunPipeline(ctx context.Context, pipeline []domain.Step, opts *Options, out *Output) error {
	logger := telemetry.FromContext(ctx)

	workspace, err := orchestrator.NewWorkspace(opts.Workdir)
	if err != nil {
		return err
	}

	metrics := telemetry.NewMetrics()
	observers := []orchestrator.Observer{metrics}

	extra, cleanup, err := connectObservers(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer cleanup()
	observers = append(observers, extra...)

	orch := orchestrator.New(orchestrator.Config{
		Executor:  newExecutor(opts, out),
		Workspace: workspace,
		Observers: observers,
		DryRun:    opts.DryRun,
		Logger:    logger,
	})

	run, runErr := orch.Run(ctx, pipeline)
	if run == nil {
		return runErr
	}

	out.Summary(run)

	if opts.MetricsFile != "" {
		if err := metrics.WriteTextfile(opts.MetricsFile); err != nil {
			logger.Warn("failed to write metrics textfile", "path", opts.MetricsFile, "error", err)
		}
	}

	if runErr != nil {
		return &ExitCodeError{Code: run.ExitCode, Err: runErr}
	}
	return nil
}

// newExecutor выбирает исполнитель. В JSON-режиме вывод команд
// уходит в stderr, чтобы stdout оставался валидным JSON.
func newExecutor(opts *Options, out *Output) executor.Executor {
	if opts.DryRun {
		if out.jsonMode {
			return &executor.DryRunExecutor{Out: out.errW}
		}
		return &executor.DryRunExecutor{Out: out.w}
	}

	ce := executor.NewCommandExecutor()
	if out.jsonMode {
		ce.Stdout = os.Stderr
	}
	return ce
}

// connectObservers подключает необязательных наблюдателей.
// cleanup закрывает всё открытое и безопасен для повторного вызова.
func connectObservers(ctx context.Context, opts *Options, logger *slog.Logger) ([]orchestrator.Observer, func(), error) {
	var observers []orchestrator.Observer
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		closers = nil
	}

	if opts.ReportURL != "" {
		bucket, err := report.Open(ctx, opts.ReportURL)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() { _ = bucket.Close() })

		writer, err := report.NewWriter(bucket, opts.ReportPrefix)
		if err != nil {
			cleanup()
			return nil, cleanup, err
		}
		observers = append(observers, writer)
	}

	// Dry-run не пишет в журнал и не шлёт события: ничего не выполнялось.
	if opts.DryRun {
		return observers, cleanup, nil
	}

	pool, err := repo.NewPool(ctx)
	switch {
	case errors.Is(err, repo.ErrNotConfigured):
		logger.Debug("run journal disabled", "reason", err)
	case err != nil:
		logger.Warn("run journal unavailable", "error", err)
	default:
		closers = append(closers, pool.Close)
		if err := repo.EnsureSchema(ctx, pool); err != nil {
			logger.Warn("run journal schema failed", "error", err)
		} else {
			observers = append(observers, repo.NewJournal(pool))
		}
	}

	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		conn, err := mq.NewConnection(url, logger)
		if err != nil {
			logger.Warn("event publishing unavailable", "error", err)
		} else {
			closers = append(closers, func() { _ = conn.Close() })
			if err := mq.SetupTopology(ctx, conn); err != nil {
				logger.Warn("event topology setup failed", "error", err)
			} else {
				observers = append(observers, mq.NewEventSink(mq.NewPublisher(conn, logger)))
			}
		}
	}

	return observers, cleanup, nil
}

// ExitCode возвращает код выхода процесса для ошибки, вернувшейся из cobra.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ece *ExitCodeError
	if errors.As(err, &ece) {
		return ece.Code
	}
	return 1
}
