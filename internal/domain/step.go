package domain

import (
	"fmt"
	"strings"
)

// StepKind — категория внешней команды.
//
// Используется для классификации ошибок: неудачный fetch — скорее всего
// сетевая проблема, неудачный compile — ошибка сборки.
type StepKind string

const (
	// StepKindFetch — загрузка файла по сети (wget).
	StepKindFetch StepKind = "fetch"

	// StepKindInstall — работа с пакетным менеджером (dpkg, apt-get).
	StepKindInstall StepKind = "install"

	// StepKindFilesystem — операции с файлами (mv, cp, rm, mkdir).
	StepKindFilesystem StepKind = "filesystem"

	// StepKindClone — клонирование git-репозитория.
	StepKindClone StepKind = "clone"

	// StepKindConfigure — конфигурация сборки (cmake).
	StepKindConfigure StepKind = "configure"

	// StepKindCompile — компиляция (make).
	StepKindCompile StepKind = "compile"
)

// Step — один шаг provisioning pipeline: вызов внешней команды.
//
// Шаги определяются один раз при старте и не изменяются.
// Порядок шагов в списке значим.
type Step struct {
	// Name — человекочитаемое имя шага.
	Name string `json:"name"`

	// Command — исполняемый файл и аргументы. Не может быть пустым.
	Command []string `json:"command"`

	// Dir — рабочая директория шага относительно корня workspace
	// (или абсолютный путь). Пустая строка — текущая директория.
	Dir string `json:"dir,omitempty"`

	// ContinueOnFailure — best-effort шаг: падение логируется,
	// но не останавливает pipeline.
	ContinueOnFailure bool `json:"continue_on_failure,omitempty"`

	// Kind — категория команды.
	Kind StepKind `json:"kind"`
}

// CommandLine возвращает команду одной строкой (для логов и вывода).
func (s Step) CommandLine() string {
	parts := make([]string, len(s.Command))
	for i, arg := range s.Command {
		if arg == "" || strings.ContainsAny(arg, " \t\"'*") {
			parts[i] = `"` + strings.ReplaceAll(arg, `"`, `\"`) + `"`
			continue
		}
		parts[i] = arg
	}
	return strings.Join(parts, " ")
}

// ValidateSteps проверяет входные ограничения pipeline:
// список не пуст, у каждого шага есть исполняемый файл.
func ValidateSteps(steps []Step) error {
	if len(steps) == 0 {
		return ErrNoSteps
	}
	for i, s := range steps {
		if len(s.Command) == 0 || s.Command[0] == "" {
			return fmt.Errorf("%w: step %d (%s)", ErrEmptyCommand, i+1, s.Name)
		}
	}
	return nil
}
