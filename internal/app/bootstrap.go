package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fbarrueco/crimson-city-life/internal/domain"
	"github.com/fbarrueco/crimson-city-life/internal/infra"
	"github.com/fbarrueco/crimson-city-life/internal/market"
	"github.com/fbarrueco/crimson-city-life/internal/storage"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config    *infra.Config
	Store     *storage.MarketStore
	Engine    *market.Engine
	Trader    *domain.Trader
	Snapshots *storage.SnapshotManager

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization: config, logger,
// workspace, single-instance lock, SQLite store, and state recovery.
func (b *Bootstrap) Initialize(ctx context.Context) error {
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data")
	logDir := filepath.Join(workDir, "logs")
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := infra.EnsureDir(logDir); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}

	infra.NewLogger(cfg.Logging.Level, logDir)
	slog.Info("🚀 Bootstrapping Crimson City market...")

	// Block multi-process access to the same database.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	dbPath := filepath.Join(dataDir, "market.db")
	store, err := storage.NewMarketStore(dbPath)
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("✅ MarketStore initialized (WAL-mode)", "path", dbPath)

	engine, err := market.NewEngine(cfg.Market, domain.DefaultCatalog())
	if err != nil {
		return err
	}
	b.Engine = engine

	if err := b.recoverState(ctx); err != nil {
		return err
	}

	b.Snapshots = storage.NewSnapshotManager(filepath.Join(workDir, "snapshots"))
	return nil
}

// recoverState reloads the trader, the resting orders, and the ledger
// from the store into a fresh engine.
func (b *Bootstrap) recoverState(ctx context.Context) error {
	trader, err := b.Store.LoadTrader(ctx, b.Config.Trader.ID)
	if err != nil {
		return fmt.Errorf("failed to load trader: %w", err)
	}
	if trader == nil {
		trader = domain.NewTrader(b.Config.Trader.ID, b.Config.Trader.StartingCash)
		slog.Info("👤 New trader created", "id", trader.ID, "cash", trader.Cash)
	} else {
		slog.Info("👤 Trader recovered", "id", trader.ID, "cash", trader.Cash)
	}
	b.Trader = trader

	orders, err := b.Store.LoadOrders(ctx)
	if err != nil {
		return fmt.Errorf("failed to load orders: %w", err)
	}
	for _, o := range orders {
		if _, err := b.Engine.SeedOrder(o); err != nil {
			slog.Warn("skipping unrecoverable order", "id", o.ID, "error", err)
		}
	}

	txs, err := b.Store.LoadTransactions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}
	b.Engine.LoadLedger(txs)

	slog.Info("✅ State recovered", "orders", len(orders), "transactions", len(txs))
	return nil
}

// SaveSnapshot writes a JSON snapshot of the current market state and
// trims old ones.
func (b *Bootstrap) SaveSnapshot() error {
	snap := storage.CreateSnapshot(b.Trader, b.Engine.RestingOrders(), b.Engine.LedgerTransactions())
	if err := b.Snapshots.Save(snap); err != nil {
		return err
	}
	return b.Snapshots.Cleanup(b.Config.Snapshot.Keep)
}

// Close releases the store and the instance lock.
func (b *Bootstrap) Close() {
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			slog.Error("failed to close store", "error", err)
		}
	}
	if b.unlock != nil {
		b.unlock()
	}
}
