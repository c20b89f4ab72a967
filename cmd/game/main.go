package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pefman/quantum-battleships/internal/api"
	"github.com/pefman/quantum-battleships/internal/config"
	"github.com/pefman/quantum-battleships/internal/logs"
	"github.com/pefman/quantum-battleships/internal/server"
)

// Build metadata injected via -ldflags at build time
var (
	buildVersion = "dev"
	buildTime    = ""
)

func main() {
	var cfg config.GameServer
	if err := config.ParseEnv(&cfg); err != nil {
		panic(err)
	}
	log := logs.Init("game", cfg.Log)
	defer logs.Sync()

	rules, err := config.LoadRules(cfg.RulesFile, log)
	if err != nil {
		logs.Fatal("load rules", zap.Error(err))
	}
	logs.Debug("rules loaded", zap.String("file", cfg.RulesFile))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := server.Options{
		Rules:     rules,
		Log:       log,
		BotDelay:  400 * time.Millisecond,
		Version:   buildVersion,
		BuildTime: buildTime,
	}
	if cfg.RecordsAPIBase != "" {
		records := api.NewClient(cfg.RecordsAPIBase)
		opts.Records = records
		opts.Archive = records
	}
	srv := server.New(ctx, opts)

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logs.Warn("shutdown", zap.Error(err))
		}
	}()

	r := rules.Current()
	logs.Info("quantum battleships game server listening",
		zap.String("addr", httpSrv.Addr),
		zap.String("records_api", cfg.RecordsAPIBase),
		zap.Int("board_size", r.BoardSize),
		zap.Int("ships_per_player", r.ShipsPerPlayer),
		zap.String("sampler", r.Sampler),
		zap.String("version", buildVersion),
	)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logs.Fatal("listen", zap.Error(err))
	}
	logs.Info("game server stopped")
}
