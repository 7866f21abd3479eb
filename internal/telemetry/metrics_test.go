package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/shaiso/Provisioner/internal/domain"
)

func finishedRun(t *testing.T) *domain.Run {
	t.Helper()

	run := domain.NewRun([]domain.Step{
		{Name: "fetch", Command: []string{"wget"}},
		{Name: "install", Command: []string{"dpkg"}},
		{Name: "build", Command: []string{"make"}},
	}, "/ws")
	run.MarkRunning()
	run.Steps[0].MarkRunning()
	run.Steps[0].MarkSucceeded("")
	run.Steps[1].MarkRunning()
	run.Steps[1].MarkFailed(100, "", "exit 100")
	run.MarkFailed(2, 100, "exit 100")
	return run
}

func TestMetrics_RecordsRun(t *testing.T) {
	m := NewMetrics()
	ctx := context.Background()
	run := finishedRun(t)

	_ = m.RunStarted(ctx, run)
	_ = m.StepFinished(ctx, run, &run.Steps[0])
	_ = m.StepFinished(ctx, run, &run.Steps[1])
	_ = m.RunFinished(ctx, run)

	if v := testutil.ToFloat64(m.stepsTotal.WithLabelValues("SUCCEEDED")); v != 1 {
		t.Errorf("expected 1 succeeded step, got %v", v)
	}
	if v := testutil.ToFloat64(m.stepsTotal.WithLabelValues("FAILED")); v != 1 {
		t.Errorf("expected 1 failed step, got %v", v)
	}
	if v := testutil.ToFloat64(m.stepsTotal.WithLabelValues("SKIPPED")); v != 1 {
		t.Errorf("expected 1 skipped step, got %v", v)
	}
	if v := testutil.ToFloat64(m.runsTotal.WithLabelValues("FAILED")); v != 1 {
		t.Errorf("expected 1 failed run, got %v", v)
	}
	if v := testutil.ToFloat64(m.lastExitCode); v != 100 {
		t.Errorf("expected last exit code 100, got %v", v)
	}
	// Успешного run не было
	if v := testutil.ToFloat64(m.lastSuccess); v != 0 {
		t.Errorf("last success should be unset, got %v", v)
	}
}

func TestMetrics_LastSuccess(t *testing.T) {
	m := NewMetrics()
	run := domain.NewRun([]domain.Step{{Name: "a", Command: []string{"true"}}}, "/ws")
	run.MarkRunning()
	run.MarkSucceeded()

	_ = m.RunFinished(context.Background(), run)

	got := testutil.ToFloat64(m.lastSuccess)
	if got < float64(time.Now().Add(-time.Minute).Unix()) {
		t.Errorf("expected recent success timestamp, got %v", got)
	}
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	run := finishedRun(t)
	_ = m.RunFinished(context.Background(), run)

	path := filepath.Join(t.TempDir(), "provisioner.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "provisioner_last_run_exit_code 100") {
		t.Errorf("textfile should contain exit code gauge, got:\n%s", data)
	}
}
