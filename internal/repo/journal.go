package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shaiso/Provisioner/internal/domain"
)

// maxStoredOutput — сколько байт хвоста вывода шага сохраняется в БД.
const maxStoredOutput = 8 * 1024

// DB — подмножество *pgxpool.Pool, нужное журналу.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Journal — журнал runs в PostgreSQL.
//
// Реализует orchestrator.Observer: run и его шаги записываются
// по ходу выполнения, так что прерванный run тоже виден в истории.
type Journal struct {
	db DB
}

// NewJournal создаёт новый Journal.
func NewJournal(db DB) *Journal {
	return &Journal{db: db}
}

// RunStarted создаёт запись run и записи всех шагов в статусе PENDING.
func (j *Journal) RunStarted(ctx context.Context, run *domain.Run) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO provision_runs (id, status, workdir, dry_run, started_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.Status, run.Workdir, run.DryRun, run.StartedAt, run.CreatedAt)

	for _, s := range run.Steps {
		batch.Queue(`
			INSERT INTO provision_steps (run_id, idx, name, status)
			VALUES ($1, $2, $3, $4)
		`, run.ID, s.Index, s.Name, s.Status)
	}

	br := j.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
	}
	return nil
}

// StepFinished обновляет запись шага.
func (j *Journal) StepFinished(ctx context.Context, run *domain.Run, step *domain.StepResult) error {
	query := `
		UPDATE provision_steps
		SET status = $3, exit_code = $4, output = $5, error = $6, started_at = $7, finished_at = $8
		WHERE run_id = $1 AND idx = $2
	`
	result, err := j.db.Exec(ctx, query,
		run.ID,
		step.Index,
		step.Status,
		step.ExitCode,
		nullString(tail(step.Output, maxStoredOutput)),
		nullString(step.Error),
		step.StartedAt,
		step.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update step: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RunFinished записывает итог run и помечает невыполненные шаги SKIPPED.
func (j *Journal) RunFinished(ctx context.Context, run *domain.Run) error {
	query := `
		UPDATE provision_runs
		SET status = $2, failed_step = $3, exit_code = $4, error = $5, finished_at = $6
		WHERE id = $1
	`
	result, err := j.db.Exec(ctx, query,
		run.ID,
		run.Status,
		nullInt(run.FailedStep),
		run.ExitCode,
		nullString(run.Error),
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = j.db.Exec(ctx, `
		UPDATE provision_steps SET status = $2
		WHERE run_id = $1 AND status = $3
	`, run.ID, domain.StepStatusSkipped, domain.StepStatusPending)
	if err != nil {
		return fmt.Errorf("mark skipped steps: %w", err)
	}
	return nil
}

// List возвращает последние runs (без шагов), новые первыми.
func (j *Journal) List(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, status, workdir, dry_run, failed_step, exit_code, error,
		       started_at, finished_at, created_at
		FROM provision_runs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := j.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetByID возвращает run вместе с шагами.
func (j *Journal) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `
		SELECT id, status, workdir, dry_run, failed_step, exit_code, error,
		       started_at, finished_at, created_at
		FROM provision_runs
		WHERE id = $1
	`
	run, err := scanRun(j.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	rows, err := j.db.Query(ctx, `
		SELECT idx, name, status, exit_code, output, error, started_at, finished_at
		FROM provision_steps
		WHERE run_id = $1
		ORDER BY idx
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s domain.StepResult
		var output, stepError *string
		if err := rows.Scan(
			&s.Index,
			&s.Name,
			&s.Status,
			&s.ExitCode,
			&output,
			&stepError,
			&s.StartedAt,
			&s.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		s.Output = derefString(output)
		s.Error = derefString(stepError)
		run.Steps = append(run.Steps, s)
	}
	return run, rows.Err()
}

// --- Helpers ---

// scanRun сканирует одну строку в Run. pgx.Rows тоже реализует pgx.Row.
func scanRun(row pgx.Row) (*domain.Run, error) {
	var run domain.Run
	var failedStep *int
	var runError *string
	var startedAt, finishedAt *time.Time

	err := row.Scan(
		&run.ID,
		&run.Status,
		&run.Workdir,
		&run.DryRun,
		&failedStep,
		&run.ExitCode,
		&runError,
		&startedAt,
		&finishedAt,
		&run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if failedStep != nil {
		run.FailedStep = *failedStep
	}
	run.Error = derefString(runError)
	run.StartedAt = startedAt
	run.FinishedAt = finishedAt

	return &run, nil
}

// nullString возвращает nil для пустой строки.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullInt возвращает nil для нуля.
func nullInt(i int) *int {
	if i == 0 {
		return nil
	}
	return &i
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// tail возвращает последние limit байт строки. Обрезанный
// посередине UTF-8 символ и NUL отбрасываются: text в PostgreSQL их не примет.
func tail(s string, limit int) string {
	if len(s) > limit {
		s = s[len(s)-limit:]
	}
	return strings.ReplaceAll(strings.ToValidUTF8(s, ""), "\x00", "")
}
