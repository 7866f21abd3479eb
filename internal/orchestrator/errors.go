package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shaiso/Provisioner/internal/domain"
	"github.com/shaiso/Provisioner/internal/executor"
)

// Ошибки оркестратора.
var (
	// ErrInvalidSteps — список шагов не прошёл валидацию.
	ErrInvalidSteps = errors.New("invalid steps")

	// ErrNetworkFailure — загрузка или clone не удались.
	ErrNetworkFailure = errors.New("network failure")

	// ErrPermissionDenied — не хватает прав (sudo не выдан).
	ErrPermissionDenied = errors.New("permission denied")

	// ErrPackageConflict — конфликт зависимостей или версий в пакетном менеджере.
	ErrPackageConflict = errors.New("package conflict")

	// ErrBuildFailure — ошибка конфигурации или компиляции.
	ErrBuildFailure = errors.New("build failure")

	// ErrFileSystemError — нет директории, нет места на диске и т.п.
	ErrFileSystemError = errors.New("filesystem error")

	// ErrInterrupted — выполнение прервано сигналом.
	ErrInterrupted = errors.New("interrupted")
)

// ExitCodeInterrupted — код выхода при прерывании по SIGINT.
const ExitCodeInterrupted = 130

// aptExitCode — код, с которым apt-get завершается при ошибке разрешения пакетов.
const aptExitCode = 100

// StepError — шаг, остановивший run.
//
// Output содержит исходный вывод команды без изменений.
type StepError struct {
	Index    int
	Name     string
	ExitCode int
	Output   string

	// Category — одна из ошибок таксономии (ErrNetworkFailure и т.д.).
	Category error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s) failed with exit code %d: %v",
		e.Index, e.Name, e.ExitCode, e.Category)
}

func (e *StepError) Unwrap() error {
	return e.Category
}

var (
	permissionMarkers = []string{
		"permission denied",
		"are you root",
		"a password is required",
		"is not in the sudoers file",
		"operation not permitted",
	}
	packageMarkers = []string{
		"unmet dependencies",
		"held broken packages",
		"dependency problems",
		"conflicts with",
		"unable to locate package",
		"dpkg was interrupted",
	}
	filesystemMarkers = []string{
		"no such file or directory",
		"no space left on device",
		"read-only file system",
		"file exists",
	}
)

// Classify определяет категорию ошибки упавшего шага.
//
// Сначала проверяется вывод команды (права, пакеты, файловая система),
// затем категория выбирается по типу шага.
func Classify(step domain.Step, result *executor.Result) error {
	output := ""
	exitCode := 0
	if result != nil {
		output = strings.ToLower(result.Output)
		exitCode = result.ExitCode
	}

	switch {
	case containsAny(output, permissionMarkers):
		return ErrPermissionDenied
	case step.Kind == domain.StepKindInstall && (exitCode == aptExitCode || containsAny(output, packageMarkers)):
		return ErrPackageConflict
	case containsAny(output, filesystemMarkers):
		return ErrFileSystemError
	}

	switch step.Kind {
	case domain.StepKindFetch, domain.StepKindClone:
		return ErrNetworkFailure
	case domain.StepKindConfigure, domain.StepKindCompile:
		return ErrBuildFailure
	case domain.StepKindInstall:
		return ErrPackageConflict
	default:
		return ErrFileSystemError
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
