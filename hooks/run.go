package hooks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/akyaiy/rdata-node/internal/core/corestate"
	"github.com/akyaiy/rdata-node/internal/core/run_manager"
	"github.com/akyaiy/rdata-node/internal/core/utils"
	"github.com/akyaiy/rdata-node/internal/discovery"
	"github.com/akyaiy/rdata-node/internal/engine/app"
	"github.com/akyaiy/rdata-node/internal/engine/config"
	"github.com/akyaiy/rdata-node/internal/engine/logs"
	"github.com/akyaiy/rdata-node/internal/server/auth"
	"github.com/akyaiy/rdata-node/internal/server/gateway"
	"github.com/akyaiy/rdata-node/internal/server/methods"
	"github.com/akyaiy/rdata-node/internal/server/registry"
	"github.com/akyaiy/rdata-node/internal/server/scripts"
	"github.com/akyaiy/rdata-node/internal/server/session"
	"github.com/akyaiy/rdata-node/internal/server/ws"
	"github.com/akyaiy/rdata-node/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"
)

var nodeApp = app.New()

func Run(cmd *cobra.Command, args []string) {
	nodeApp.InitialHooks(
		Init0Hook, Init1Hook, Init2Hook,
		Init3Hook, Init4Hook, Init5Hook,
		Init6Hook,
	)

	nodeApp.Run(RunHook)
}

// buildRegistry binds the built-in methods and every script under com_dir.
func buildRegistry(x *app.AppX, store *storage.Store, sm *session.SessionManager, registrar *discovery.Registrar) (*registry.Registry, error) {
	rpcConf := x.Config.Conf.RPC
	b := registry.NewBuilder(gateway.ReservedMethods(utils.SafeFetch(rpcConf.AuthMethod, ""))...)

	var reg *registry.Registry
	if err := methods.RegisterSystem(b, func() []string { return reg.Names() }); err != nil {
		return nil, err
	}
	if err := methods.RegisterKV(b, store); err != nil {
		return nil, err
	}
	if registrar != nil {
		if err := methods.RegisterNodes(b, registrar); err != nil {
			return nil, err
		}
	}

	comDir := utils.SafeFetch(rpcConf.ComDir, "./com/")
	if _, err := os.Stat(comDir); err == nil {
		names, err := scripts.Register(b, scripts.Options{
			Dir: comDir,
			Log: x.SLog,
			DB:  store,
			Subject: func(c *session.Client) string {
				if id, ok := sm.Identity(c); ok {
					return id.Subject
				}
				return ""
			},
		})
		if err != nil {
			return nil, err
		}
		x.SLog.Info("scripts loaded", slog.String("dir", comDir), slog.Int("count", len(names)))
	} else {
		x.SLog.Warn("script directory is not available", slog.String("dir", comDir), slog.String("err", err.Error()))
	}

	reg = b.Build()
	return reg, nil
}

func newRouter(cs *corestate.CoreState, x *app.AppX, wsHandler http.Handler) http.Handler {
	srvConf := x.Config.Conf.HTTPServer

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   utils.SafeFetch(srvConf.AllowedOrigins, []string{"*"}),
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Sec-WebSocket-Protocol"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Get(config.HealthRoute, func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSON(w, map[string]string{"status": "ok", "node": cs.NodeUUID})
	})
	r.Handle(utils.SafeFetch(srvConf.WSPath, "/ws"), wsHandler)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSONError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func RunHook(ctx context.Context, cs *corestate.CoreState, x *app.AppX) error {
	ctxMain, cancelMain := context.WithCancel(ctx)
	defer cancelMain()

	conf := x.Config.Conf
	srvConf := conf.HTTPServer

	// replaced once the server is built
	nodeApp.Fallback(func(context.Context, *corestate.CoreState, *app.AppX) {
		_ = RunManager.Clean()
	})

	_, err := RunManager.Watch(ctxMain, run_manager.LockFileName, time.Second, func() {
		x.Log.Printf("run.lock was touched")
		cancelMain()
	})
	if err != nil {
		x.Log.Printf("watch error: %s", err)
	}

	store, err := storage.Open(utils.SafeFetch(conf.Storage.SQLitePath, "./db/node.db"))
	if err != nil {
		return err
	}

	sessionManager := session.New(utils.SafeFetch(srvConf.SessionTTL, 30*time.Minute))
	sessionManager.StartCleanup(ctxMain, 5*time.Second)

	var registrar *discovery.Registrar
	if conf.Discovery != nil && utils.SafeFetch(conf.Discovery.Enabled, false) {
		registrar, err = discovery.New(discovery.Options{
			Endpoints:   utils.SafeFetch(conf.Discovery.Endpoints, nil),
			Prefix:      utils.SafeFetch(conf.Discovery.Prefix, "/rdata/nodes"),
			TTL:         utils.SafeFetch(conf.Discovery.TTL, 10*time.Second),
			DialTimeout: utils.SafeFetch(conf.Discovery.DialTimeout, 5*time.Second),
			Log:         x.SLog,
		})
		if err != nil {
			x.Log.Printf("%s: Discovery is disabled: %s", logs.PrintError(), err.Error())
		}
	}

	reg, err := buildRegistry(x, store, sessionManager, registrar)
	if err != nil {
		store.Close()
		if registrar != nil {
			registrar.Close()
		}
		return fmt.Errorf("method registry: %w", err)
	}

	verifier, err := auth.FromConfig(ctxMain, conf.Auth)
	if err != nil {
		store.Close()
		if registrar != nil {
			registrar.Close()
		}
		return fmt.Errorf("auth: %w", err)
	}

	gw := gateway.InitGateway(&gateway.GatewayServerInit{
		Log:            x.SLog,
		Registry:       reg,
		Sessions:       sessionManager,
		Verifier:       verifier,
		AuthMethod:     utils.SafeFetch(conf.RPC.AuthMethod, ""),
		HandlerTimeout: utils.SafeFetch(conf.RPC.HandlerTimeout, 0),
	})

	wsServer := ws.New(ws.Options{
		Log:            x.SLog,
		Gateway:        gw,
		Sessions:       sessionManager,
		AllowedOrigins: utils.SafeFetch(srvConf.AllowedOrigins, []string{"*"}),
		MaxMessageSize: utils.SafeFetch(srvConf.MaxMessageSize, 1<<20),
		PingInterval:   utils.SafeFetch(srvConf.PingInterval, 30*time.Second),
		WriteTimeout:   utils.SafeFetch(srvConf.WriteTimeout, 10*time.Second),
		AllowAnonymous: utils.SafeFetch(conf.Auth.AllowAnonymous, false),
	})

	addr := net.JoinHostPort(utils.SafeFetch(srvConf.Address, "0.0.0.0"), utils.SafeFetch(srvConf.Port, "8080"))
	wsPath := utils.SafeFetch(srvConf.WSPath, "/ws")
	tlsEnabled := utils.SafeFetch(conf.TLS.TlsEnabled, false)

	srv := &http.Server{
		Addr:        addr,
		Handler:     newRouter(cs, x, wsServer),
		ReadTimeout: utils.SafeFetch(srvConf.ReadTimeout, 5*time.Second),
		IdleTimeout: utils.SafeFetch(srvConf.IdleTimeout, 60*time.Second),
		ErrorLog: log.New(&logs.SlogWriter{
			Logger: x.SLog,
			Level:  slog.LevelError,
		}, "", 0),
	}

	nodeApp.Fallback(func(ctx context.Context, cs *corestate.CoreState, x *app.AppX) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if registrar != nil {
			if err := registrar.Deregister(shutdownCtx); err != nil {
				x.Log.Printf("%s: Failed to leave discovery: %s", logs.PrintError(), err.Error())
			}
			registrar.Close()
		}

		if err := srv.Shutdown(shutdownCtx); err != nil {
			x.Log.Printf("%s: Failed to stop the server gracefully: %s", logs.PrintError(), err.Error())
		} else {
			x.Log.Printf("Server stopped gracefully")
		}
		if err := wsServer.Shutdown(shutdownCtx); err != nil {
			x.Log.Printf("%s: Connections did not drain: %s", logs.PrintError(), err.Error())
		}

		x.Log.Println("Cleaning up...")
		if err := store.Close(); err != nil {
			x.Log.Printf("%s: Storage close error: %s", logs.PrintError(), err.Error())
		}
		if err := RunManager.Clean(); err != nil {
			x.Log.Printf("%s: Cleanup error: %s", logs.PrintError(), err.Error())
		}
		x.Log.Println("bye!")
	})

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		x.Log.Printf("%s: Failed to start listener: %s", logs.PrintError(), err.Error())
		nodeApp.CallFallback(ctx)
		return nil
	}
	limitedListener := netutil.LimitListener(listener, utils.SafeFetch(srvConf.MaxConnections, 100))

	go func() {
		defer utils.CatchPanicWithCancel(cancelMain)
		var err error
		if tlsEnabled {
			x.Log.Printf("Serving on %s with TLS... (wss://%s%s)", addr, addr, wsPath)
			err = srv.ServeTLS(limitedListener, utils.SafeFetch(conf.TLS.CertFile, ""), utils.SafeFetch(conf.TLS.KeyFile, ""))
		} else {
			x.Log.Printf("Serving on %s... (ws://%s%s)", addr, addr, wsPath)
			err = srv.Serve(limitedListener)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			x.Log.Printf("%s: Failed to serve: %s", logs.PrintError(), err.Error())
			cancelMain()
		}
	}()

	if registrar != nil {
		hostname, _ := os.Hostname()
		inst := discovery.Instance{
			NodeID: cs.NodeUUID,
			URL: discovery.AdvertiseURL(
				utils.SafeFetch(conf.Discovery.AdvertiseURL, ""),
				utils.SafeFetch(srvConf.Address, ""),
				utils.SafeFetch(srvConf.Port, "8080"),
				wsPath, tlsEnabled, hostname,
			),
			Version:   cs.NodeVersion,
			StartedAt: cs.StartTimestampUnix,
		}
		go func() {
			defer utils.CatchPanicWithCancel(cancelMain)
			if err := registrar.Register(ctxMain, inst); err != nil {
				x.SLog.Error("discovery registration failed", slog.String("err", err.Error()))
			}
		}()
	}

	<-ctxMain.Done()
	nodeApp.CallFallback(ctx)
	return nil
}
