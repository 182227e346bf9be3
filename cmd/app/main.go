package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fbarrueco/crimson-city-life/internal/app"
	"github.com/fbarrueco/crimson-city-life/internal/infra"
	"github.com/fbarrueco/crimson-city-life/internal/server"
	"github.com/fbarrueco/crimson-city-life/internal/strategy"
)

func main() {
	defer infra.Recover()

	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bootstrap.Initialize(ctx); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	cfg := bootstrap.Config
	infra.PrintBanner(cfg)

	// 2. Feed server (read-only book/trade stream)
	var feed *server.Server
	if cfg.Server.Enabled {
		feed = server.NewServer(bootstrap.Engine, cfg.Server.Addr)
		go func() {
			if err := feed.Start(); err != nil {
				slog.Error("Feed server failed", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := feed.Shutdown(shutdownCtx); err != nil {
				slog.Error("Feed shutdown failed", slog.Any("error", err))
			}
		}()
	}

	// 3. Session wiring and first-run city liquidity
	session := app.NewSession(bootstrap, feed)
	session.SeedCityOrders(rand.New(rand.NewSource(time.Now().UnixNano())))
	for _, c := range bootstrap.Engine.Catalog() {
		session.AttachDealers(strategy.NewTrendDealer("marco", c.ID, 3, 8, 25))
	}

	// 4. Periodic snapshots
	go session.RunSnapshots(ctx)

	slog.InfoContext(ctx, "✨ Crimson City market fully operational. Press Ctrl+C to exit.")

	<-ctx.Done()

	if err := bootstrap.SaveSnapshot(); err != nil {
		slog.Error("Final snapshot failed", slog.Any("error", err))
	}
	slog.Info("👋 Shutting down gracefully...")
}
