package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/Provisioner/internal/domain"
	"github.com/shaiso/Provisioner/internal/repo"
)

// RunStore — чтение журнала runs.
type RunStore interface {
	List(ctx context.Context, limit int) ([]domain.Run, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
}

// NewHistoryCmd создаёт команду history.
//
//	provisioner history [--limit N]   последние runs
//	provisioner history RUN_ID        run с результатами шагов
//
// storeFn открывает журнал и возвращает функцию закрытия.
func NewHistoryCmd(storeFn func(ctx context.Context) (RunStore, func(), error), outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "Show past runs from the run journal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			store, closeFn, err := storeFn(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if len(args) == 1 {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid run id %q: %w", args[0], err)
				}
				run, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("get run %s: %w", id, err)
				}
				printRun(out, run)
				return nil
			}

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printRuns(out, runs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs")

	return cmd
}

// OpenJournal открывает журнал по DB_URL.
func OpenJournal(ctx context.Context) (RunStore, func(), error) {
	pool, err := repo.NewPool(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open run journal: %w", err)
	}
	return repo.NewJournal(pool), pool.Close, nil
}

func printRuns(out *Output, runs []domain.Run) {
	headers := []string{"ID", "CREATED", "DURATION", "FAILED_STEP", "EXIT", "STATUS"}
	rows := make([][]string, len(runs))
	for i, r := range runs {
		failed := "-"
		if r.FailedStep > 0 {
			failed = strconv.Itoa(r.FailedStep)
		}
		rows[i] = []string{
			r.ID.String(),
			r.CreatedAt.Format(time.DateTime),
			formatDuration(r.Duration()),
			failed,
			strconv.Itoa(r.ExitCode),
			out.Status(string(r.Status)),
		}
	}
	out.Print(headers, rows, runs)
}

func printRun(out *Output, run *domain.Run) {
	if out.jsonMode {
		out.JSON(run)
		return
	}

	fmt.Fprintf(out.w, "Run:     %s\n", run.ID)
	fmt.Fprintf(out.w, "Status:  %s\n", out.Status(string(run.Status)))
	fmt.Fprintf(out.w, "Workdir: %s\n", run.Workdir)
	if run.Error != "" {
		fmt.Fprintf(out.w, "Error:   %s\n", run.Error)
	}
	fmt.Fprintln(out.w)

	out.Steps(run.Steps)
}
