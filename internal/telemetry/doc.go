// Package telemetry обеспечивает наблюдаемость provisioner'а.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики шагов и runs
//
// Метрики не отдаются по HTTP: provisioner — короткоживущий процесс,
// поэтому они пишутся в textfile для node_exporter (--metrics-file).
package telemetry
