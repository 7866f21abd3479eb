// Package cli реализует команды provisioner.
//
// # Команды
//
//   - run (и корневая команда без аргументов) — выполняет pipeline
//   - plan — печатает шаги и их директории без выполнения
//   - history — runs из журнала PostgreSQL
//
// Каждая команда создаётся фабричной функцией (NewRunCmd и т.д.),
// принимающей замыкания stepsFn, optsFn и outputFn: они вызываются после
// парсинга PersistentFlags.
//
// # Output
//
// Данные (таблицы, JSON) выводятся в stdout, сообщения — в stderr.
// С --json stdout содержит только JSON: вывод команд pipeline тоже
// уходит в stderr, так что работает provisioner --json | jq .
//
// Статусы раскрашиваются через fatih/color, если stdout — терминал.
// NO_COLOR отключает цвет.
//
// # Код выхода
//
// RunPipeline возвращает *ExitCodeError с кодом упавшего шага;
// ExitCode превращает ошибку cobra в код для os.Exit.
package cli
