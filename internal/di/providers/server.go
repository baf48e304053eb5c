package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/bestreads/bestreads-server/internal/api"
	"github.com/bestreads/bestreads-server/internal/config"
	"github.com/bestreads/bestreads-server/internal/logger"
	"github.com/bestreads/bestreads-server/internal/ratelimit"
	"github.com/bestreads/bestreads-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	limiter *ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.limiter.Stop()
	return err
}

// ProvideHTTPServer provides the HTTP server and starts it in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	metricsHandle := do.MustInvoke[*MetricsHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Auth:     do.MustInvoke[*service.AuthService](i),
		User:     do.MustInvoke[*service.UserService](i),
		Shelf:    do.MustInvoke[*service.ShelfService](i),
		Progress: do.MustInvoke[*service.ProgressService](i),
		Social:   do.MustInvoke[*service.SocialService](i),
		Activity: do.MustInvoke[*service.ActivityService](i),
		Book:     do.MustInvoke[*service.BookService](i),
		Review:   do.MustInvoke[*service.ReviewService](i),
		Search:   do.MustInvoke[*service.SearchService](i),
	}

	limiter := ratelimit.PerMinute(cfg.RateLimit.AuthPerMinute, cfg.RateLimit.AuthBurst)

	opts := api.Options{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		Metrics:         metricsHandle.Collector,
		AuthRateLimiter: limiter,
		AccessLog:       !cfg.IsProduction(),
	}
	if cfg.Metrics.Enabled {
		opts.Gatherer = metricsHandle.Registry
	}

	handler := api.NewServer(storeHandle.Store, services, sseHandle.Manager, opts, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, limiter: limiter}, nil
}
