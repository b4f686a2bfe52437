package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fedinode/fedinode/activitypub"
	ap "github.com/fedinode/fedinode/internal/activitypub"
	"github.com/fedinode/fedinode/internal/httpx"
	"github.com/fedinode/fedinode/wellknown"
	"github.com/fedinode/fedinode/workers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/group"
	"golang.org/x/time/rate"
)

type ServeCmd struct {
	Addr string `help:"address to listen" default:":8080" env:"FEDINODE_ADDR"`

	DeliveryTimeout    time.Duration `help:"timeout of each outbound delivery" default:"10s" env:"FEDINODE_DELIVERY_TIMEOUT"`
	RedeliveryInterval time.Duration `help:"interval between redelivery passes" default:"30s" env:"FEDINODE_REDELIVERY_INTERVAL"`
	RedeliveryAttempts int           `help:"maximum redelivery attempts per failure" default:"3" env:"FEDINODE_REDELIVERY_ATTEMPTS"`

	PolicyMode    string   `help:"inbox URL policy, allowlist or blocklist" enum:"allowlist,blocklist" default:"allowlist" env:"FEDINODE_POLICY_MODE"`
	PolicyDomains []string `help:"domains the inbox URL policy applies to" default:"example.com,another-allowed-domain.com" env:"FEDINODE_POLICY_DOMAINS"`

	RateLimit    float64 `help:"inbox requests per second per remote address" default:"10" env:"FEDINODE_RATE_LIMIT"`
	RateBurst    int     `help:"inbox request burst per remote address" default:"20" env:"FEDINODE_RATE_BURST"`
	MaxBodyBytes int64   `help:"largest inbox request body accepted" default:"1048576" env:"FEDINODE_MAX_BODY_BYTES"`
}

func (s *ServeCmd) Validate() error {
	if s.DeliveryTimeout <= 0 {
		return errors.New("delivery timeout must be positive")
	}
	if s.RedeliveryInterval <= 0 {
		return errors.New("redelivery interval must be positive")
	}
	return nil
}

func (s *ServeCmd) Run(ctx *Context) error {
	db, err := ctx.openDB()
	if err != nil {
		return err
	}

	policy := &ap.Policy{
		Mode:    ap.PolicyMode(s.PolicyMode),
		Domains: s.PolicyDomains,
	}
	env := ctx.newEnv(db, policy, ap.WithTimeout(s.DeliveryTimeout))
	envFn := func(*http.Request) *activitypub.Env { return env }
	limiter := httpx.NewRateLimiter(rate.Limit(s.RateLimit), s.RateBurst)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpx.RequestLogger(ctx.Logger))
	r.Use(middleware.Recoverer)

	r.Route("/users/{username}", activitypub.Routes(envFn, limiter.Middleware, httpx.MaxBytes(s.MaxBodyBytes)))

	r.Route("/.well-known", func(r chi.Router) {
		r.Get("/webfinger", httpx.HandlerFunc(envFn, wellknown.WebfingerShow))
		r.Get("/nodeinfo", httpx.HandlerFunc(envFn, wellknown.NodeInfoIndex))
	})
	r.Get("/nodeinfo/{version}", httpx.HandlerFunc(envFn, wellknown.NodeInfoShow))

	r.Get("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, "User-agent: *\nDisallow: /")
	})

	walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		route = strings.Replace(route, "/*/", "/", -1)
		ctx.Logger.Debug("route", "method", method, "route", route)
		return nil
	}
	if err := chi.Walk(r, walkFunc); err != nil {
		ctx.Logger.Warn("walk routes", "err", err)
	}

	svr := &http.Server{
		Addr:         s.Addr,
		Handler:      r,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g := group.New(sigCtx)
	g.Add(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			svr.Shutdown(shutdownCtx)
		}()
		env.Log().Info("listening", "addr", s.Addr)
		if err := svr.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Add(workers.NewRedeliveryProcessor(env, s.RedeliveryInterval, s.RedeliveryAttempts))
	return g.Wait()
}
