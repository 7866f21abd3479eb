package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run — один запуск provisioning pipeline.
//
// Run создаётся при каждом вызове CLI и содержит результат
// каждого шага в порядке их определения.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// Workdir — корень workspace, относительно которого выполнялись шаги.
	Workdir string `json:"workdir"`

	// DryRun — команды только печатались, но не выполнялись.
	DryRun bool `json:"dry_run,omitempty"`

	// Steps — результаты шагов, по одному на каждый Step.
	Steps []StepResult `json:"steps"`

	// FailedStep — номер (с 1) шага, остановившего run. 0, если такого нет.
	FailedStep int `json:"failed_step,omitempty"`

	// ExitCode — итоговый код выхода: 0 при успехе,
	// иначе код упавшего шага.
	ExitCode int `json:"exit_code"`

	// StartedAt — время начала выполнения (когда статус стал RUNNING).
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст ошибки, если run завершился с FAILED.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// NewRun создаёт run в статусе PENDING с результатами PENDING для всех шагов.
func NewRun(steps []Step, workdir string) *Run {
	results := make([]StepResult, len(steps))
	for i, s := range steps {
		results[i] = StepResult{
			Index:  i + 1,
			Name:   s.Name,
			Status: StepStatusPending,
		}
	}
	return &Run{
		ID:        uuid.New(),
		Status:    RunStatusPending,
		Workdir:   workdir,
		Steps:     results,
		CreatedAt: time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run завершён (в любом статусе).
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// Step возвращает результат шага по номеру (с 1) или nil.
func (r *Run) Step(index int) *StepResult {
	if index < 1 || index > len(r.Steps) {
		return nil
	}
	return &r.Steps[index-1]
}

// CountByStatus возвращает количество шагов в указанном статусе.
func (r *Run) CountByStatus(status StepStatus) int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == status {
			n++
		}
	}
	return n
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkSucceeded переводит run в статус SUCCEEDED.
func (r *Run) MarkSucceeded() {
	now := time.Now()
	r.Status = RunStatusSucceeded
	r.FinishedAt = &now
	r.ExitCode = 0
}

// MarkFailed переводит run в статус FAILED на шаге index (с 1).
// Все шаги, которые ещё не начинались, помечаются SKIPPED.
func (r *Run) MarkFailed(index, exitCode int, err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.FailedStep = index
	r.ExitCode = exitCode
	r.Error = err

	for i := range r.Steps {
		if r.Steps[i].Status == StepStatusPending {
			r.Steps[i].MarkSkipped()
		}
	}
}

// StepResult — итог выполнения одного шага.
type StepResult struct {
	// Index — номер шага (с 1).
	Index int `json:"index"`

	// Name — имя шага (копия Step.Name).
	Name string `json:"name"`

	// Status — текущий статус шага.
	Status StepStatus `json:"status"`

	// ExitCode — код выхода команды.
	ExitCode int `json:"exit_code"`

	// Output — хвост объединённого stdout/stderr команды.
	Output string `json:"output,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст ошибки при неудаче.
	Error string `json:"error,omitempty"`
}

// Duration возвращает продолжительность выполнения.
func (s *StepResult) Duration() time.Duration {
	if s.StartedAt == nil || s.FinishedAt == nil {
		return 0
	}
	return s.FinishedAt.Sub(*s.StartedAt)
}

// MarkRunning переводит шаг в статус RUNNING.
func (s *StepResult) MarkRunning() {
	now := time.Now()
	s.Status = StepStatusRunning
	s.StartedAt = &now
}

// MarkSucceeded переводит шаг в статус SUCCEEDED.
func (s *StepResult) MarkSucceeded(output string) {
	now := time.Now()
	s.Status = StepStatusSucceeded
	s.FinishedAt = &now
	s.ExitCode = 0
	s.Output = output
}

// MarkFailed переводит шаг в статус FAILED с кодом выхода и ошибкой.
func (s *StepResult) MarkFailed(exitCode int, output, err string) {
	now := time.Now()
	s.Status = StepStatusFailed
	s.FinishedAt = &now
	s.ExitCode = exitCode
	s.Output = output
	s.Error = err
}

// MarkSkipped переводит шаг в статус SKIPPED.
func (s *StepResult) MarkSkipped() {
	s.Status = StepStatusSkipped
}
