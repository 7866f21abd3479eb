package executor

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/Provisioner/internal/domain"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

// --- CommandExecutor Tests ---

func TestCommandExecutor_Success(t *testing.T) {
	requireUnix(t)

	var stdout bytes.Buffer
	e := &CommandExecutor{Stdout: &stdout, Stderr: &stdout}
	req := &Request{
		Index: 1,
		Step:  domain.Step{Name: "echo", Command: []string{"sh", "-c", "echo hello"}},
		Dir:   t.TempDir(),
	}

	result, err := e.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Succeeded() {
		t.Errorf("expected exit 0, got %d", result.ExitCode)
	}
	if strings.TrimSpace(result.Output) != "hello" {
		t.Errorf("expected captured output 'hello', got %q", result.Output)
	}
	// Вывод транслируется без изменений
	if strings.TrimSpace(stdout.String()) != "hello" {
		t.Errorf("expected streamed output 'hello', got %q", stdout.String())
	}
}

func TestCommandExecutor_NonZeroExit(t *testing.T) {
	requireUnix(t)

	var sink bytes.Buffer
	e := &CommandExecutor{Stdout: &sink, Stderr: &sink}
	req := &Request{
		Index: 4,
		Step:  domain.Step{Name: "fail", Command: []string{"sh", "-c", "echo oops >&2; exit 100"}},
		Dir:   t.TempDir(),
	}

	result, err := e.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("non-zero exit should not be an error: %v", err)
	}
	if result.ExitCode != 100 {
		t.Errorf("expected exit 100, got %d", result.ExitCode)
	}
	if !strings.Contains(result.Output, "oops") {
		t.Errorf("stderr should be captured, got %q", result.Output)
	}
}

func TestCommandExecutor_RunsInDir(t *testing.T) {
	requireUnix(t)

	dir := t.TempDir()
	var sink bytes.Buffer
	e := &CommandExecutor{Stdout: &sink, Stderr: &sink}
	req := &Request{
		Step: domain.Step{Name: "touch", Command: []string{"sh", "-c", "touch marker && ls"}},
		Dir:  dir,
	}

	result, err := e.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Output, "marker") {
		t.Errorf("command should run in %s, output %q", dir, result.Output)
	}
}

func TestCommandExecutor_NotStarted(t *testing.T) {
	e := &CommandExecutor{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	req := &Request{
		Step: domain.Step{Name: "missing", Command: []string{"definitely-not-a-real-binary-xyz"}},
		Dir:  t.TempDir(),
	}

	result, err := e.Execute(context.Background(), req)
	if !errors.Is(err, ErrStartFailed) {
		t.Fatalf("expected ErrStartFailed, got %v", err)
	}
	if result == nil || result.ExitCode != ExitCodeNotStarted {
		t.Errorf("expected exit code %d, got %+v", ExitCodeNotStarted, result)
	}
}

func TestCommandExecutor_EmptyCommand(t *testing.T) {
	e := NewCommandExecutor()
	_, err := e.Execute(context.Background(), &Request{Step: domain.Step{Name: "empty"}})
	if !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("expected ErrEmptyCommand, got %v", err)
	}
}

func TestCommandExecutor_Cancelled(t *testing.T) {
	requireUnix(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	e := &CommandExecutor{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	req := &Request{
		Step: domain.Step{Name: "sleep", Command: []string{"sleep", "5"}},
		Dir:  t.TempDir(),
	}

	start := time.Now()
	result, err := e.Execute(ctx, req)
	if err != nil {
		t.Fatalf("killed process should report an exit code, got error %v", err)
	}
	if result.Succeeded() {
		t.Error("killed process should not succeed")
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("cancellation took too long: %v", time.Since(start))
	}
}

// --- tailBuffer Tests ---

func TestTailBuffer_KeepsTail(t *testing.T) {
	b := newTailBuffer(5)
	b.Write([]byte("abc"))
	b.Write([]byte("defg"))
	if b.String() != "cdefg" {
		t.Errorf("expected 'cdefg', got %q", b.String())
	}

	b.Write([]byte("0123456789"))
	if b.String() != "56789" {
		t.Errorf("expected '56789', got %q", b.String())
	}
}

// --- DryRunExecutor / Recorder Tests ---

func TestDryRunExecutor(t *testing.T) {
	var out bytes.Buffer
	e := &DryRunExecutor{Out: &out}
	req := &Request{
		Index: 13,
		Step:  domain.Step{Command: []string{"cmake", "..", "-DUSE_SENTENCEPIECE=ON"}},
		Dir:   "/ws/marian/build",
	}

	result, err := e.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Succeeded() {
		t.Error("dry run should always succeed")
	}
	want := "[13] (cd /ws/marian/build) cmake .. -DUSE_SENTENCEPIECE=ON\n"
	if out.String() != want {
		t.Errorf("expected %q, got %q", want, out.String())
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{ExitCodes: map[int]int{2: 7}}

	for i := 1; i <= 2; i++ {
		req := &Request{Index: i, Step: domain.Step{Name: "s", Command: []string{"true"}}, Dir: "/x"}
		res, err := r.Execute(context.Background(), req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if i == 2 && res.ExitCode != 7 {
			t.Errorf("expected scripted exit 7, got %d", res.ExitCode)
		}
	}

	if len(r.Invocations()) != 2 {
		t.Errorf("expected 2 invocations, got %d", len(r.Invocations()))
	}
}
