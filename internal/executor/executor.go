package executor

import (
	"context"
	"errors"
	"time"

	"github.com/shaiso/Provisioner/internal/domain"
)

// Ошибки executor'ов.
var (
	// ErrEmptyCommand — у шага нет команды.
	ErrEmptyCommand = errors.New("empty command")

	// ErrStartFailed — процесс не удалось запустить (нет бинарника, нет прав).
	ErrStartFailed = errors.New("command failed to start")
)

// ExitCodeNotStarted — код выхода для команды, которая не запустилась.
// Совпадает с тем, что возвращает shell для "command not found".
const ExitCodeNotStarted = 127

// Executor — интерфейс для выполнения команды шага.
//
// Ненулевой код выхода не является ошибкой: он возвращается в Result.
// error зарезервирован для случаев, когда команду не удалось запустить.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Result, error)
}

// Request — входные данные для выполнения шага.
type Request struct {
	// Step — определение шага.
	Step domain.Step

	// Index — номер шага (с 1).
	Index int

	// Dir — абсолютная рабочая директория, уже разрешённая через Workspace.
	Dir string
}

// Result — результат выполнения команды.
type Result struct {
	// ExitCode — код выхода процесса.
	ExitCode int

	// Output — хвост объединённого stdout/stderr.
	Output string

	// Duration — время выполнения.
	Duration time.Duration
}

// Succeeded возвращает true, если команда завершилась с кодом 0.
func (r *Result) Succeeded() bool {
	return r.ExitCode == 0
}
