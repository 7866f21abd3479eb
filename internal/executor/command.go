package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

const (
	// defaultCaptureLimit — сколько последних байт вывода сохраняется в Result.
	defaultCaptureLimit = 64 * 1024

	// waitDelay — сколько ждать закрытия pipe'ов после отмены:
	// дочерние процессы make могут держать stdout открытым.
	waitDelay = 5 * time.Second
)

// CommandExecutor запускает внешнюю команду и ждёт её завершения.
//
// stdout и stderr команды транслируются как есть в Stdout/Stderr
// (по умолчанию — терминал), а хвост вывода сохраняется в Result.Output.
type CommandExecutor struct {
	// Stdout — куда транслировать stdout команды. nil — os.Stdout.
	Stdout io.Writer

	// Stderr — куда транслировать stderr команды. nil — os.Stderr.
	Stderr io.Writer

	// CaptureLimit — размер сохраняемого хвоста вывода. 0 — 64 KiB.
	CaptureLimit int
}

// NewCommandExecutor создаёт CommandExecutor, пишущий в терминал.
func NewCommandExecutor() *CommandExecutor {
	return &CommandExecutor{}
}

// Execute выполняет команду шага в req.Dir.
func (e *CommandExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	if len(req.Step.Command) == 0 || req.Step.Command[0] == "" {
		return nil, fmt.Errorf("%w: step %q", ErrEmptyCommand, req.Step.Name)
	}

	start := time.Now()

	limit := e.CaptureLimit
	if limit <= 0 {
		limit = defaultCaptureLimit
	}
	captured := newTailBuffer(limit)

	stdout := e.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := e.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	cmd := exec.CommandContext(ctx, req.Step.Command[0], req.Step.Command[1:]...)
	cmd.Dir = req.Dir
	cmd.Stdin = nil
	cmd.Stdout = io.MultiWriter(stdout, captured)
	cmd.Stderr = io.MultiWriter(stderr, captured)
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	result := &Result{
		Output:   captured.String(),
		Duration: time.Since(start),
	}

	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitCode(exitErr)
		return result, nil
	}

	// Процесс не стартовал: бинарника нет, директория не существует и т.п.
	result.ExitCode = ExitCodeNotStarted
	result.Output += err.Error()
	return result, fmt.Errorf("%w: %s: %v", ErrStartFailed, req.Step.Command[0], err)
}

// exitCode извлекает код выхода. Для процесса, убитого сигналом,
// возвращает 128+signal, как это делает shell.
func exitCode(err *exec.ExitError) int {
	if code := err.ExitCode(); code >= 0 {
		return code
	}
	if ws, ok := err.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return 1
}
