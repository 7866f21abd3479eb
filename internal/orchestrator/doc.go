// Package orchestrator выполняет provisioning pipeline.
//
// Orchestrator отвечает за:
//   - Валидацию списка шагов до начала выполнения
//   - Последовательный запуск шагов, каждого ровно один раз
//   - Смену рабочей директории через Workspace (без os.Chdir)
//   - Остановку на первом упавшем шаге, если он не best-effort
//   - Классификацию ошибок (сеть, права, пакеты, сборка, файловая система)
//   - Уведомление наблюдателей (журнал, события, метрики)
//
// Параллельного выполнения и retry нет: каждый следующий шаг
// зависит от результата предыдущих (сборка — от clone и установки CUDA).
package orchestrator
