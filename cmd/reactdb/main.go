package main

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"reactdb/internal/reconcile"
	"reactdb/pkg/api"
	"reactdb/pkg/auth"
	"reactdb/pkg/banner"
	"reactdb/pkg/config"
	"reactdb/pkg/dedup"
	"reactdb/pkg/engine"
	"reactdb/pkg/keyboard"
	"reactdb/pkg/logger"
	"reactdb/pkg/shutdown"
	"reactdb/pkg/store"
	"reactdb/pkg/validation"
	"reactdb/pkg/writer"
)

// build metadata - set via ldflags during build/release
var version = "dev"

func main() {
	_ = godotenv.Load(".env")
	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()

	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])
	cfg, envUsed, err := config.LoadEffective(cfgPath)
	if err != nil {
		shutdown.Abort("failed to load config", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	// flags win over config/env when explicitly provided
	addr := cfg.Addr()
	if setFlags["addr"] {
		addr = addrVal
	}
	dbPath := dbVal
	if !setFlags["db"] && cfg.Storage.DBPath != "" {
		dbPath = cfg.Storage.DBPath
	}

	sources := "defaults"
	if envUsed {
		sources = "config+env"
	}
	banner.Print(addr, cfg.CallbackAddr(), dbPath, sources, version)

	if err := store.Open(dbPath); err != nil {
		shutdown.Abort("failed to open pebble", err)
	}

	if err := logger.AttachAuditFileSink(filepath.Join(dbPath, "state", "audit")); err != nil {
		logger.Warn("audit_sink_unavailable", "error", err)
	}

	types := cfg.Types()
	allowed := make([]string, 0, len(types))
	for _, t := range types {
		allowed = append(allowed, t.Name)
	}
	validation.SetRules(validation.Rules{AllowedTypes: allowed})

	guard := dedup.NewGuard(cfg.Dedup.TTL)
	renderer := keyboard.NewRenderer(types, cfg.Reactions.AckMaxLen)
	w := writer.New(writer.StoreFunc(store.SaveRecord), writer.Policy{
		MaxAttempts:     cfg.Writer.MaxAttempts,
		InitialInterval: cfg.Writer.InitialInterval,
		MaxInterval:     cfg.Writer.MaxInterval,
	})
	eng := engine.New(guard, engine.PebbleStorage(), w, renderer)

	cancelReconciler, err := reconcile.Start(context.Background(), *cfg)
	if err != nil {
		shutdown.Abort("failed to start reconciler", err)
	}

	keys := auth.NewKeys(cfg.Security.APIKeys.Backend, cfg.Security.APIKeys.AllowUnauth)

	srv := &http.Server{Addr: addr, Handler: api.Handler(eng, keys)}
	go func() {
		logger.Info("http_listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http_server_failed", "error", err)
		}
	}()

	var fastSrv *fasthttp.Server
	if cbAddr := cfg.CallbackAddr(); cbAddr != "" {
		fastSrv = &fasthttp.Server{Handler: api.FastHandler(eng, keys)}
		go func() {
			logger.Info("callback_listening", "addr", cbAddr)
			if err := fastSrv.ListenAndServe(cbAddr); err != nil {
				logger.Error("callback_server_failed", "error", err)
			}
		}()
	}

	shutdown.Wait(
		func() { cancelReconciler() },
		func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		},
		func() {
			if fastSrv != nil {
				_ = fastSrv.Shutdown()
			}
		},
		func() {
			if err := store.Close(); err != nil {
				logger.Error("store_close_failed", "error", err)
			}
		},
	)
	logger.Info("shutdown_complete")
}
