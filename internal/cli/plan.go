package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/Provisioner/internal/domain"
	"github.com/shaiso/Provisioner/internal/orchestrator"
)

// PlanEntry — строка плана: шаг и директория, в которой он выполнится.
type PlanEntry struct {
	Index             int      `json:"index"`
	Name              string   `json:"name"`
	Dir               string   `json:"dir"`
	Command           []string `json:"command"`
	ContinueOnFailure bool     `json:"continue_on_failure,omitempty"`
}

// BuildPlan проверяет шаги и разрешает их директории относительно workspace.
func BuildPlan(steps []domain.Step, workspace *orchestrator.Workspace) ([]PlanEntry, error) {
	if err := domain.ValidateSteps(steps); err != nil {
		return nil, fmt.Errorf("%w: %w", orchestrator.ErrInvalidSteps, err)
	}

	plan := make([]PlanEntry, len(steps))
	for i, s := range steps {
		plan[i] = PlanEntry{
			Index:             i + 1,
			Name:              s.Name,
			Dir:               workspace.Resolve(s.Dir),
			Command:           s.Command,
			ContinueOnFailure: s.ContinueOnFailure,
		}
	}
	return plan, nil
}

// NewPlanCmd создаёт команду plan: печатает шаги без выполнения.
func NewPlanCmd(optsFn func() *Options, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show the provisioning steps without running them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			opts := optsFn()

			workspace, err := orchestrator.NewWorkspace(opts.Workdir)
			if err != nil {
				return err
			}

			steps, err := LoadSteps(opts)
			if err != nil {
				return err
			}
			plan, err := BuildPlan(steps, workspace)
			if err != nil {
				return err
			}

			headers := []string{"#", "NAME", "DIR", "COMMAND"}
			rows := make([][]string, len(plan))
			for i, p := range plan {
				name := p.Name
				if p.ContinueOnFailure {
					name += " (best-effort)"
				}
				rows[i] = []string{strconv.Itoa(p.Index), name, p.Dir, steps[i].CommandLine()}
			}

			out.Print(headers, rows, plan)
			return nil
		},
	}
}
