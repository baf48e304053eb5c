package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// rateLimitAuth rejects register and login attempts once a client IP
// exhausts its budget. Other operations pass through untouched.
func (s *Server) rateLimitAuth(ctx huma.Context, next func(huma.Context)) {
	if s.authRateLimiter == nil || !hasTag(ctx.Operation(), tagAuth) {
		next(ctx)
		return
	}

	key := getClientIP(ctx)
	if !s.authRateLimiter.Allow(key) {
		s.logger.Warn("rate limit exceeded",
			slog.String("ip", key),
			slog.String("path", ctx.URL().Path))
		ctx.SetHeader("Retry-After", "60")
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, "Too many requests. Please try again later.")
		return
	}
	next(ctx)
}

func hasTag(op *huma.Operation, tag string) bool {
	if op == nil {
		return false
	}
	for _, t := range op.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// getClientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers before falling back to RemoteAddr.
func getClientIP(ctx huma.Context) string {
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return xri
	}

	ip := ctx.RemoteAddr()
	if i := strings.LastIndexByte(ip, ':'); i >= 0 {
		return ip[:i]
	}
	return ip
}
