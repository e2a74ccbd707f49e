// Package observability provides structured logging, Prometheus metrics, health
// probes, graceful shutdown and OpenTelemetry tracing.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("port", 5000).Info("Server started")
//
// Request-scoped logging (request_id and user_id are attached by middleware):
//
//	observability.FromContext(ctx).WithError(err).Error("Toggle failed")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//	observability.RegisterMetricsEndpoint(router, registry)
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(store, redisClient, version)
//	observability.RegisterHealthRoutes(router, checker)
//
// /health/live always answers 200. /health and /health/ready answer 503 when the
// store cannot be pinged; an unreachable redis only degrades the status.
//
// # Shutdown
//
//	sm := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
//	sm.RegisterShutdownFunc("store", store.Close)
//	err := sm.WaitForShutdown(ctx)
//
// # OpenTelemetry
//
//	tp, err := observability.InitOTel(ctx, otelCfg, logger)
//	defer observability.ShutdownOTel(ctx, tp)
package observability
