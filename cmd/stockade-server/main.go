package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"stockade/internal/app/admin"
	"stockade/internal/config"
	"stockade/internal/jail"
	"stockade/internal/logging"
	"stockade/internal/mcpserver"
	"stockade/internal/redisstore"
	"stockade/internal/scheduler"
	"stockade/internal/store"
	httptransport "stockade/internal/transport/http"
	"stockade/internal/tree"
	"stockade/internal/world"
	"stockade/internal/ws"
)

// backend bundles the tree backend with the optional Postgres store used for
// the journal.
type backend struct {
	tree    tree.Backend
	pinger  httptransport.Pinger
	pg      *store.Store
	closers []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(cfg.Log); err != nil {
		panic(err)
	}
	defer func() { _ = logging.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg.Server)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Server.StorageBackend).Msg("storage init failed")
	}
	defer be.close()

	spawns, err := cfg.Jail.Spawns()
	if err != nil {
		log.Fatal().Err(err).Msg("parse world spawns failed")
	}
	w := world.New(cfg.Jail.DefaultWorld, spawns)
	sched := scheduler.New()
	trees := tree.NewStore(be.tree)

	deps := jail.Deps{
		Storage:   trees,
		World:     w,
		Notifier:  w,
		Scheduler: sched,
	}
	var events admin.EventLister
	if be.pg != nil {
		deps.Journal = be.pg
		events = be.pg
	}
	reg := jail.NewRegistry(deps, jail.Options{
		RootNamespace:    cfg.Jail.RootNamespace,
		RootFacility:     cfg.Jail.RootFacility,
		ReturnDelay:      scheduler.Ticks(cfg.Jail.ReturnDelayTicks),
		LateReleaseDelay: scheduler.Ticks(cfg.Jail.LateReleaseDelayTicks),
		WardenPeriod:     scheduler.Ticks(cfg.Jail.WardenPeriodTicks),
		WardenJitter:     scheduler.Ticks(cfg.Jail.WardenJitterTicks),
		Owners:           cfg.Jail.FacilityOwners,
	})
	w.SetHooks(reg.Hooks())
	// The loop is not running yet, so the registry is started here directly.
	if err := reg.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("jail registry start failed")
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		sched.Run(loopCtx, time.Duration(cfg.Jail.TickMS)*time.Millisecond)
	}()

	svc := admin.NewService(reg, sched, events)
	wsSrv := ws.NewServer(w, sched)
	r := httptransport.NewRouter(httptransport.RouterConfig{
		Admin:       svc,
		AdminAPIKey: cfg.Server.AdminAPIKey,
		Storage:     be.pinger,
		MCP:         mcpserver.New(svc).Handler(),
		WS:          http.HandlerFunc(wsSrv.HandleWS),
	})
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	if err := sched.Call(shutdownCtx, reg.Stop); err != nil {
		log.Warn().Err(err).Msg("registry stop")
	}
	stopLoop()
	<-loopDone
	trees.Wait()
	log.Info().Msg("stopped")
}

func openBackend(ctx context.Context, cfg config.ServerConfig) (*backend, error) {
	be := &backend{}
	if cfg.PostgresDSN != "" {
		st, err := store.New(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		be.closers = append(be.closers, st.Close)
		if err := st.Ping(ctx); err != nil {
			be.close()
			return nil, err
		}
		be.pg = st
	}

	switch cfg.StorageBackend {
	case config.BackendPostgres:
		be.tree, be.pinger = be.pg, be.pg
	case config.BackendRedis:
		rb, err := redisstore.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
		if err != nil {
			be.close()
			return nil, err
		}
		be.closers = append(be.closers, func() { _ = rb.Close() })
		be.tree, be.pinger = rb, rb
	default:
		fb, err := tree.NewFileBackend(filepath.Clean(cfg.StateDir))
		if err != nil {
			be.close()
			return nil, err
		}
		be.tree = fb
	}
	log.Info().
		Str("backend", cfg.StorageBackend).
		Bool("journal", be.pg != nil).
		Msg("storage ready")
	return be, nil
}
