// Package metrics provides Prometheus metrics for the GC log engine.
//
// The engine reports:
//   - Lines read, split by whether any parser recognized them
//   - Per-line parser errors
//   - Events emitted, by category and type
//   - Pause durations, by category
//
// Metrics are registered on a caller supplied registry so that several
// engines in one process never collide. A dedicated HTTP server exposes
// them on /metrics.
//
// Usage:
//
//	reg := prometheus.NewRegistry()
//	engine, err := gclog.NewEngine(gclog.WithMetrics(reg))
//
//	srv := metrics.NewServer(":9100", reg, logger)
//	if err := srv.Start(); err != nil {
//	    return err
//	}
package metrics
