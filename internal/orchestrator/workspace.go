package orchestrator

import (
	"fmt"
	"path/filepath"
)

// Workspace — текущая рабочая директория pipeline как явное значение.
//
// Процессная cwd не меняется: шаги получают директорию через
// executor.Request.Dir.
type Workspace struct {
	root    string
	current string
}

// NewWorkspace создаёт Workspace с корнем root.
func NewWorkspace(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	return &Workspace{root: abs, current: abs}, nil
}

// Root возвращает корень workspace.
func (w *Workspace) Root() string {
	return w.root
}

// Current возвращает текущую директорию.
func (w *Workspace) Current() string {
	return w.current
}

// Resolve превращает директорию шага в абсолютный путь.
// Относительные пути считаются от корня, а не от текущей директории.
func (w *Workspace) Resolve(dir string) string {
	if dir == "" {
		return w.current
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(w.root, dir)
}

// Enter переходит в dir и возвращает функцию, восстанавливающую
// предыдущую директорию. Пустой dir оставляет текущую директорию.
//
//	restore := ws.Enter(step.Dir)
//	defer restore()
func (w *Workspace) Enter(dir string) (restore func()) {
	prev := w.current
	w.current = w.Resolve(dir)
	return func() {
		w.current = prev
	}
}
