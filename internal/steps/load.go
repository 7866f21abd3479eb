package steps

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/shaiso/Provisioner/internal/domain"
)

// Допустимые kind шагов. Пустой kind разрешён: ошибка такого шага
// классифицируется только по выводу команды.
var validKinds = map[domain.StepKind]bool{
	domain.StepKindFetch:      true,
	domain.StepKindInstall:    true,
	domain.StepKindFilesystem: true,
	domain.StepKindClone:      true,
	domain.StepKindConfigure:  true,
	domain.StepKindCompile:    true,
}

// File — формат файла шагов (--steps).
type File struct {
	Steps []domain.Step `json:"steps"`
}

// LoadFile читает список шагов из JSON-файла.
func LoadFile(path string) ([]domain.Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read steps file: %w", err)
	}
	steps, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return steps, nil
}

// Load разбирает и проверяет список шагов в формате File.
// Неизвестные поля считаются ошибкой.
func Load(r io.Reader) ([]domain.Step, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode steps: %w", err)
	}

	if err := Validate(f.Steps); err != nil {
		return nil, err
	}
	return f.Steps, nil
}

// Validate выполняет полную валидацию списка шагов.
//
// Проверяет:
// - входные ограничения pipeline (domain.ValidateSteps)
// - наличие и уникальность имён
// - корректность kind
func Validate(steps []domain.Step) error {
	if err := domain.ValidateSteps(steps); err != nil {
		return err
	}

	names := make(map[string]int, len(steps))
	for i, s := range steps {
		index := i + 1

		if s.Name == "" {
			return NewValidationError(index, "name", "step has empty name", ErrEmptyName)
		}
		if prev, ok := names[s.Name]; ok {
			return NewValidationError(index, "name",
				fmt.Sprintf("duplicate step name %q (first used by step %d)", s.Name, prev), ErrDuplicateName)
		}
		names[s.Name] = index

		if s.Kind != "" && !validKinds[s.Kind] {
			return NewValidationError(index, "kind",
				fmt.Sprintf("unknown step kind: %s", s.Kind), ErrUnknownKind)
		}
	}
	return nil
}
