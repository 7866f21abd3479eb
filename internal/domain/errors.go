package domain

import "errors"

// Ошибки валидации шагов.
var (
	// ErrNoSteps — список шагов пуст.
	ErrNoSteps = errors.New("no steps defined")

	// ErrEmptyCommand — у шага пустая команда.
	ErrEmptyCommand = errors.New("step command is empty")
)
