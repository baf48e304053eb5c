package providers

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do/v2"

	"github.com/bestreads/bestreads-server/internal/config"
	"github.com/bestreads/bestreads-server/internal/logger"
	"github.com/bestreads/bestreads-server/internal/metrics"
	"github.com/bestreads/bestreads-server/internal/sse"
	"github.com/bestreads/bestreads-server/internal/store"
)

// MetricsHandle pairs the collector with the registry it is served from.
type MetricsHandle struct {
	*metrics.Collector
	Registry *prometheus.Registry
}

// ProvideMetrics provides the Prometheus collector.
func ProvideMetrics(i do.Injector) (*MetricsHandle, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &MetricsHandle{
		Collector: metrics.NewCollector(reg),
		Registry:  reg,
	}, nil
}

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Manager.Shutdown(ctx)
	h.cancel()
	return err
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	metricsHandle := do.MustInvoke[*MetricsHandle](i)

	manager := sse.NewManager(log.Logger, sse.Options{
		ClientBuffer:      cfg.SSE.ClientBuffer,
		HeartbeatInterval: cfg.SSE.HeartbeatInterval,
		Observer:          metricsHandle.Collector,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started",
		"client_buffer", cfg.SSE.ClientBuffer,
		"heartbeat", cfg.SSE.HeartbeatInterval,
	)

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the database store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	metricsHandle := do.MustInvoke[*MetricsHandle](i)

	dbPath := cfg.Data.DatabasePath()
	db, err := store.New(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}
	db.SetObserver(metricsHandle.Collector)

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}
