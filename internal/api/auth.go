package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"fleetbook/internal/auth"
	"fleetbook/internal/config"
	"fleetbook/internal/models"

	"golang.org/x/time/rate"
)

type contextKey string

const principalContextKey contextKey = "principal"

// HTTPAuth resolves API keys to principals and rate-limits per key.
type HTTPAuth struct {
	cfg       config.APIConfig
	directory *auth.Directory
	limiters  sync.Map // map[string]*rate.Limiter
}

func NewHTTPAuth(cfg config.APIConfig, directory *auth.Directory) *HTTPAuth {
	return &HTTPAuth{cfg: cfg, directory: directory}
}

// Wrap authenticates the request and stores the principal in the context.
func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := strings.TrimSpace(r.Header.Get(a.headerAPIKey()))
		principal, err := a.directory.Resolve(apiKey)
		if err != nil {
			writeAppError(w, err)
			return
		}

		if err := a.checkRateLimit(r, apiKey); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PrincipalFromContext returns the authenticated principal stored by Wrap.
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(models.Principal)
	return p, ok
}

func (a *HTTPAuth) headerAPIKey() string {
	header := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if header == "" {
		header = "x-api-key"
	}
	return header
}

func (a *HTTPAuth) checkRateLimit(r *http.Request, apiKey string) error {
	if a.cfg.RateLimit.RPS <= 0 {
		return nil
	}

	key := apiKey
	if key == "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err == nil && host != "" {
			key = host
		} else {
			key = "unknown"
		}
	}

	if !a.getLimiter(key).Allow() {
		return fmt.Errorf("rate limit exceeded")
	}
	return nil
}

func (a *HTTPAuth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}
