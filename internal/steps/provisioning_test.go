package steps

import "testing"

func TestProvisioning_Valid(t *testing.T) {
	steps := Provisioning()

	if len(steps) != 15 {
		t.Fatalf("expected 15 steps, got %d", len(steps))
	}
	if err := Validate(steps); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	for i, s := range steps {
		if s.Kind == "" {
			t.Errorf("step %d (%s) has no kind", i+1, s.Name)
		}
		// Все шаги fail-fast
		if s.ContinueOnFailure {
			t.Errorf("step %d (%s) should not be best-effort", i+1, s.Name)
		}
	}
}

func TestProvisioning_BuildDirs(t *testing.T) {
	steps := Provisioning()

	if steps[11].Dir != "marian" {
		t.Errorf("step 12 should run in marian, got %q", steps[11].Dir)
	}
	for _, i := range []int{12, 13} {
		if steps[i].Dir != "marian/build" {
			t.Errorf("step %d should run in marian/build, got %q", i+1, steps[i].Dir)
		}
	}
	if steps[14].Dir != "" {
		t.Errorf("sacreBLEU clone should run in workspace root, got %q", steps[14].Dir)
	}
}

func TestProvisioning_ReturnsFreshSlice(t *testing.T) {
	a := Provisioning()
	a[0].Command[0] = "curl"

	b := Provisioning()
	if b[0].Command[0] != "wget" {
		t.Error("Provisioning should not share state between calls")
	}
}
