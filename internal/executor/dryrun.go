package executor

import (
	"context"
	"fmt"
	"io"
	"os"
)

// DryRunExecutor печатает команды вместо выполнения.
type DryRunExecutor struct {
	// Out — куда печатать. nil — os.Stdout.
	Out io.Writer
}

// Execute печатает команду шага и возвращает успешный результат.
func (e *DryRunExecutor) Execute(_ context.Context, req *Request) (*Result, error) {
	out := e.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "[%02d] (cd %s) %s\n", req.Index, req.Dir, req.Step.CommandLine())
	return &Result{}, nil
}
