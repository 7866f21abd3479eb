// Provisioner — готовит GPU-хост к обучению marian:
// CUDA toolkit, драйвер, protobuf, сборка marian и sacreBLEU.
//
// Использование:
//
//	provisioner [--workdir DIR] [--steps FILE] [--dry-run] [--json] [command]
//
// Без команды выполняет pipeline; код выхода процесса равен коду
// упавшего шага (0 при успехе, 130 при прерывании).
//
// Команды:
//
//	run      Выполнить pipeline
//	plan     Показать шаги без выполнения
//	history  Runs из журнала (нужен DB_URL)
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/Provisioner/internal/cli"
	"github.com/shaiso/Provisioner/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	logger := telemetry.SetupLogger()

	// SIGINT/SIGTERM прерывают текущую команду; итог run всё равно записывается
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = telemetry.WithLogger(ctx, logger)

	opts := &cli.Options{}

	optsFn := func() *cli.Options { return opts }
	outputFn := func() *cli.Output { return cli.NewOutput(opts.JSON) }

	rootCmd := &cobra.Command{
		Use:           "provisioner",
		Short:         "Provision a GPU host for marian training",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          cli.RunAction(optsFn, outputFn),
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.Workdir, "workdir", ".", "Workspace root for all steps")
	flags.StringVar(&opts.StepsFile, "steps", "", "Load steps from a JSON file instead of the built-in list")
	flags.BoolVar(&opts.DryRun, "dry-run", false, "Print the commands without running them")
	flags.BoolVar(&opts.JSON, "json", false, "Output in JSON format")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	flags.StringVar(&opts.ReportURL, "report-url", os.Getenv("PROVISIONER_REPORT_URL"), "Bucket URL for the JSON run report (file://, s3://, gs://)")
	flags.StringVar(&opts.ReportPrefix, "report-prefix", "", "Key prefix for run reports inside the bucket")

	rootCmd.AddCommand(
		cli.NewRunCmd(optsFn, outputFn),
		cli.NewPlanCmd(optsFn, outputFn),
		cli.NewHistoryCmd(cli.OpenJournal, outputFn),
	)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	// Неудачный run уже напечатал итог
	var exitErr *cli.ExitCodeError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}
