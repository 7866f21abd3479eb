package executor

import (
	"context"
	"sync"
)

// Invocation — один вызов, зафиксированный Recorder.
type Invocation struct {
	Index   int
	Name    string
	Command []string
	Dir     string
}

// Recorder — Executor, который ничего не запускает, а записывает вызовы.
//
// Коды выхода задаются по номеру шага через ExitCodes; шаги без
// записи завершаются с кодом 0. Observe, если задан, вызывается перед
// возвратом результата.
type Recorder struct {
	// ExitCodes — код выхода по номеру шага (с 1).
	ExitCodes map[int]int

	// Outputs — вывод по номеру шага.
	Outputs map[int]string

	// Observe — хук, вызываемый для каждого вызова.
	Observe func(inv Invocation)

	mu          sync.Mutex
	invocations []Invocation
}

// Execute записывает вызов и возвращает заданный код выхода.
func (r *Recorder) Execute(_ context.Context, req *Request) (*Result, error) {
	inv := Invocation{
		Index:   req.Index,
		Name:    req.Step.Name,
		Command: append([]string(nil), req.Step.Command...),
		Dir:     req.Dir,
	}

	r.mu.Lock()
	r.invocations = append(r.invocations, inv)
	r.mu.Unlock()

	if r.Observe != nil {
		r.Observe(inv)
	}

	return &Result{
		ExitCode: r.ExitCodes[req.Index],
		Output:   r.Outputs[req.Index],
	}, nil
}

// Invocations возвращает копию записанных вызовов в порядке выполнения.
func (r *Recorder) Invocations() []Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Invocation(nil), r.invocations...)
}
