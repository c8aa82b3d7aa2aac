// Package app drives the node lifecycle: ordered init hooks, the run hook
// bound to OS signals, and a single-shot fallback used for shutdown.
package app

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akyaiy/rdata-node/internal/core/corestate"
	"github.com/akyaiy/rdata-node/internal/engine/config"
)

type (
	InitHook     func(cs *corestate.CoreState, x *AppX)
	RunHook      func(ctx context.Context, cs *corestate.CoreState, x *AppX) error
	FallbackHook func(ctx context.Context, cs *corestate.CoreState, x *AppX)
)

type AppContract interface {
	InitialHooks(fn ...InitHook)
	Run(fn RunHook)
	Fallback(fn FallbackHook)

	CallFallback(ctx context.Context)
}

type App struct {
	initHooks []InitHook
	fallback  FallbackHook

	Corestate *corestate.CoreState
	AppX      *AppX

	// exit is replaced in tests
	exit         func(code int)
	fallbackOnce sync.Once
}

// AppX carries what hooks share: configuration and both loggers. Log is
// the plain console logger used before SLog is configured.
type AppX struct {
	Config *config.Compositor
	Log    *log.Logger
	SLog   *slog.Logger
}

func New() *App {
	return &App{
		AppX: &AppX{
			Log:  log.Default(),
			SLog: slog.Default(),
		},
		Corestate: &corestate.CoreState{},
		exit:      os.Exit,
	}
}

func (a *App) InitialHooks(fn ...InitHook) {
	a.initHooks = append(a.initHooks, fn...)
}

func (a *App) Fallback(fn FallbackHook) {
	a.fallback = fn
}

// Run executes the init hooks in order, then fn with a context cancelled on
// SIGINT, SIGTERM or SIGQUIT. A panic in fn triggers the fallback and exits 1.
func (a *App) Run(fn RunHook) {
	for _, hook := range a.initHooks {
		hook(a.Corestate, a.AppX)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := a.run(ctx, fn); err != nil {
		a.AppX.Log.Printf("fatal in run: %v", err)
		a.CallFallback(ctx)
		a.exit(1)
	}
}

func (a *App) run(ctx context.Context, fn RunHook) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.AppX.Log.Printf("PANIC recovered: %v", r)
			a.CallFallback(ctx)
			a.exit(1)
		}
	}()
	if fn == nil {
		return nil
	}
	return fn(ctx, a.Corestate, a.AppX)
}

// CallFallback runs the fallback hook at most once.
func (a *App) CallFallback(ctx context.Context) {
	a.fallbackOnce.Do(func() {
		if a.fallback != nil {
			a.fallback(ctx, a.Corestate, a.AppX)
		}
	})
}
