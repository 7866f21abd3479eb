package repo

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shaiso/Provisioner/internal/domain"
)

// fakeDB записывает выполненные запросы.
type fakeDB struct {
	execs    []execCall
	batched  int
	affected int64
	err      error
}

type execCall struct {
	sql  string
	args []any
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag("UPDATE " + strconv.FormatInt(f.affected, 10)), nil
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func (f *fakeDB) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	f.batched = b.Len()
	return &fakeBatch{err: f.err}
}

type fakeBatch struct {
	err error
}

func (b *fakeBatch) Exec() (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("INSERT 0 1"), b.err
}
func (b *fakeBatch) Query() (pgx.Rows, error) { return nil, b.err }
func (b *fakeBatch) QueryRow() pgx.Row        { return nil }
func (b *fakeBatch) Close() error             { return nil }

func newRun() *domain.Run {
	run := domain.NewRun([]domain.Step{
		{Name: "fetch", Command: []string{"wget"}},
		{Name: "install", Command: []string{"dpkg"}},
	}, "/ws")
	run.MarkRunning()
	return run
}

func TestJournal_RunStarted_InsertsRunAndSteps(t *testing.T) {
	db := &fakeDB{affected: 1}
	j := NewJournal(db)

	if err := j.RunStarted(context.Background(), newRun()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 1 run + 2 шага
	if db.batched != 3 {
		t.Errorf("expected 3 batched inserts, got %d", db.batched)
	}
}

func TestJournal_RunStarted_Error(t *testing.T) {
	db := &fakeDB{err: errors.New("connection refused")}
	j := NewJournal(db)

	err := j.RunStarted(context.Background(), newRun())
	if err == nil || !strings.Contains(err.Error(), "insert run") {
		t.Errorf("expected wrapped insert error, got %v", err)
	}
}

func TestJournal_StepFinished(t *testing.T) {
	db := &fakeDB{affected: 1}
	j := NewJournal(db)
	run := newRun()
	run.Steps[0].MarkRunning()
	run.Steps[0].MarkFailed(8, "ERROR 404", "network failure")

	if err := j.StepFinished(context.Background(), run, &run.Steps[0]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(db.execs) != 1 {
		t.Fatalf("expected 1 exec, got %d", len(db.execs))
	}
	args := db.execs[0].args
	if args[1] != 1 || args[2] != domain.StepStatusFailed || args[3] != 8 {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestJournal_StepFinished_StripsNUL(t *testing.T) {
	db := &fakeDB{affected: 1}
	j := NewJournal(db)
	run := newRun()
	run.Steps[1].MarkRunning()
	// Бинарный вывод (например, progress bar dpkg) может содержать NUL
	run.Steps[1].MarkSucceeded("unpacking\x00\x00 done")

	if err := j.StepFinished(context.Background(), run, &run.Steps[1]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output, ok := db.execs[0].args[4].(*string)
	if !ok || output == nil {
		t.Fatalf("expected output argument, got %v", db.execs[0].args[4])
	}
	if *output != "unpacking done" {
		t.Errorf("expected NUL bytes stripped, got %q", *output)
	}
}

func TestJournal_StepFinished_NotFound(t *testing.T) {
	db := &fakeDB{affected: 0}
	j := NewJournal(db)
	run := newRun()

	err := j.StepFinished(context.Background(), run, &run.Steps[0])
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestJournal_RunFinished_MarksSkipped(t *testing.T) {
	db := &fakeDB{affected: 1}
	j := NewJournal(db)
	run := newRun()
	run.MarkFailed(1, 8, "network failure")

	if err := j.RunFinished(context.Background(), run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(db.execs) != 2 {
		t.Fatalf("expected 2 execs, got %d", len(db.execs))
	}
	if !strings.Contains(db.execs[1].sql, "UPDATE provision_steps") {
		t.Errorf("second exec should mark skipped steps, got %q", db.execs[1].sql)
	}
}

func TestTail(t *testing.T) {
	if got := tail("abcdef", 3); got != "def" {
		t.Errorf("expected 'def', got %q", got)
	}
	if got := tail("ab", 3); got != "ab" {
		t.Errorf("expected 'ab', got %q", got)
	}
	// "é" занимает 2 байта: обрезанный байт отбрасывается
	if got := tail("xé", 1); got != "" {
		t.Errorf("expected invalid UTF-8 to be dropped, got %q", got)
	}
	if got := tail("a\x00b", 10); got != "ab" {
		t.Errorf("expected NUL to be dropped, got %q", got)
	}
}

func TestNullHelpers(t *testing.T) {
	if nullString("") != nil || *nullString("x") != "x" {
		t.Error("nullString mismatch")
	}
	if nullInt(0) != nil || *nullInt(4) != 4 {
		t.Error("nullInt mismatch")
	}
	if derefString(nil) != "" {
		t.Error("derefString(nil) should be empty")
	}
}
