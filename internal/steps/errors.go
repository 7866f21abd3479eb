package steps

import (
	"errors"
	"fmt"
)

// Ошибки файла шагов.
var (
	// ErrEmptyName — у шага нет имени.
	ErrEmptyName = errors.New("step has empty name")

	// ErrDuplicateName — несколько шагов с одинаковым именем.
	ErrDuplicateName = errors.New("duplicate step name")

	// ErrUnknownKind — неизвестный kind шага.
	ErrUnknownKind = errors.New("unknown step kind")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	Index   int    // номер шага (с 1)
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Index > 0 {
		return fmt.Sprintf("step %d: %s", e.Index, e.Message)
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(index int, field, message string, err error) *ValidationError {
	return &ValidationError{
		Index:   index,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
