package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"TodoApp/internal/auth"
	"TodoApp/internal/cache"
	"TodoApp/internal/config"
	"TodoApp/internal/handlers"
	"TodoApp/internal/ratelimit"
	"TodoApp/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type App struct {
	cfg    config.Config
	log    *slog.Logger
	db     *pgxpool.Pool
	redis  *redis.Client
	router *gin.Engine
	stop   context.CancelFunc
}

// New connects every backing service and builds the router.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	rdb, err := newRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.redis = rdb

	st, err := a.openStores(ctx)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	gov, err := a.newGovernor()
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	sessions := auth.NewStore(rdb, cfg.Session.TTL.Duration())
	opts := []service.Option{service.WithLogger(log)}
	if ttl := cfg.Redis.CacheTTL.Duration(); ttl > 0 {
		opts = append(opts, service.WithCache(cache.NewTodoCache(rdb, ttl)))
	}
	todoSvc := service.NewTodoService(auth.ContextAuthenticator{}, gov, st.todos, opts...)
	userSvc := service.NewUserService(st.users)

	a.router = newRouter(cfg, routes{
		sessions: sessions,
		auth:     handlers.NewAuthHandler(sessions, userSvc, cfg.HTTP.CookieSecure),
		todos:    handlers.NewTodoHandler(todoSvc),
		ready:    a.ready,
	})
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Close stops background work and releases connections. ctx bounds how long
// it waits for checked-out Postgres connections to come back.
func (a *App) Close(ctx context.Context) error {
	if a.stop != nil {
		a.stop()
	}
	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if a.db != nil {
		if err := closeWithin(ctx, a.db.Close); err != nil {
			errs = append(errs, fmt.Errorf("postgres close: %w", err))
		}
	}
	return errors.Join(errs...)
}

// closeWithin runs closeFn and gives up waiting once ctx is done.
func closeWithin(ctx context.Context, closeFn func()) error {
	done := make(chan struct{})
	go func() {
		closeFn()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ready pings the backing services for the health endpoint.
func (a *App) ready(ctx context.Context) error {
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if a.db != nil {
		if err := a.db.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	return nil
}

func (a *App) newGovernor() (ratelimit.Governor, error) {
	policies, err := ratePolicies(a.cfg.Rate)
	if err != nil {
		return nil, err
	}
	if a.cfg.Rate.Backend == config.RateRedis {
		return ratelimit.NewRedisGovernor(a.redis, policies), nil
	}
	g := ratelimit.NewMemoryGovernor(policies)
	ctx, cancel := context.WithCancel(context.Background())
	a.stop = cancel
	g.StartJanitor(ctx)
	return g, nil
}

// ratePolicies layers the policy file and then the env overrides over the defaults.
func ratePolicies(rc config.RateConfig) (ratelimit.Policies, error) {
	p := ratelimit.DefaultPolicies()
	if rc.PolicyFile != "" {
		fromFile, err := ratelimit.LoadPolicyFile(rc.PolicyFile)
		if err != nil {
			return nil, err
		}
		p = p.Merge(fromFile)
	}

	env := ratelimit.Policies{}
	override := func(class string, perMinute float64, burst int) {
		if perMinute <= 0 && burst <= 0 {
			return
		}
		pol := p[class]
		if perMinute > 0 {
			pol.Rate = perMinute
			pol.Period = time.Minute
		}
		if burst > 0 {
			pol.Capacity = burst
		}
		env[class] = pol
	}
	override(ratelimit.ClassCreateTodo, rc.CreatePerMinute, rc.CreateBurst)
	override(ratelimit.ClassUpdateTodo, rc.UpdatePerMinute, rc.UpdateBurst)
	override(ratelimit.ClassDeleteTodo, rc.DeletePerMinute, rc.DeleteBurst)

	p = p.Merge(env)
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("rate policies: %w", err)
	}
	return p, nil
}

func newRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}

func newRouter(cfg config.Config, rt routes) *gin.Engine {
	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.HTTP.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Cookie"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Retry-After"},
		AllowCredentials: !allowsAnyOrigin(cfg.HTTP.CORSOrigins),
		MaxAge:           12 * time.Hour,
	}))

	Setup(r, cfg, rt)
	return r
}

// cors rejects credentials together with a wildcard origin.
func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
