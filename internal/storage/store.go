package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/glebarez/go-sqlite"

	"github.com/fbarrueco/crimson-city-life/internal/domain"
	"github.com/fbarrueco/crimson-city-life/internal/market"
)

// MarketStore persists the marketplace state (resting orders, transaction
// ledger, trader) in SQLite. The marketplace core stays in memory; the host
// application owns this store and applies each match result through it.
type MarketStore struct {
	db *sql.DB
}

// NewMarketStore opens the SQLite database with WAL mode enabled and creates
// the schema if missing.
func NewMarketStore(dbPath string) (*MarketStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			commodity_id TEXT NOT NULL,
			side TEXT NOT NULL,
			kind TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			limit_price REAL NOT NULL,
			trader_id TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			seq INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			commodity_id TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			price REAL NOT NULL,
			ts INTEGER NOT NULL,
			buyer TEXT NOT NULL,
			seller TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tx_commodity_ts ON transactions (commodity_id, ts);`,
		`CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &MarketStore{db: db}, nil
}

// SaveOrder inserts or replaces a resting order.
func (s *MarketStore) SaveOrder(ctx context.Context, o domain.Order) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (id, commodity_id, side, kind, quantity, limit_price, trader_id, created_at, seq)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET quantity=excluded.quantity`,
		o.ID, o.CommodityID, o.Side, o.Kind, o.Quantity, o.LimitPrice, o.TraderID, o.CreatedUnixM, o.Seq,
	)
	if err != nil {
		return fmt.Errorf("failed to save order %s: %w", o.ID, err)
	}
	return nil
}

// DeleteOrder removes a fully consumed order.
func (s *MarketStore) DeleteOrder(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete order %s: %w", id, err)
	}
	return nil
}

// LoadOrders returns all resting orders in arrival order.
func (s *MarketStore) LoadOrders(ctx context.Context) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, commodity_id, side, kind, quantity, limit_price, trader_id, created_at, seq FROM orders ORDER BY seq ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.CommodityID, &o.Side, &o.Kind, &o.Quantity, &o.LimitPrice, &o.TraderID, &o.CreatedUnixM, &o.Seq); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// SaveTransaction appends an executed trade.
func (s *MarketStore) SaveTransaction(ctx context.Context, tx domain.Transaction) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO transactions (id, commodity_id, quantity, price, ts, buyer, seller) VALUES (?, ?, ?, ?, ?, ?, ?)",
		tx.ID, tx.CommodityID, tx.Quantity, tx.Price, tx.TsUnixM, tx.Buyer.String(), tx.Seller.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to save transaction %s: %w", tx.ID, err)
	}
	return nil
}

// LoadTransactions returns all retained transactions, oldest first.
func (s *MarketStore) LoadTransactions(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, commodity_id, quantity, price, ts, buyer, seller FROM transactions ORDER BY ts ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var buyer, seller string
		if err := rows.Scan(&tx.ID, &tx.CommodityID, &tx.Quantity, &tx.Price, &tx.TsUnixM, &buyer, &seller); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Buyer = domain.PartyFromLabel(buyer)
		tx.Seller = domain.PartyFromLabel(seller)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// PruneTransactions drops everything beyond the newest keep entries per
// commodity, oldest first. Mirrors the in-memory ledger retention.
func (s *MarketStore) PruneTransactions(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM transactions WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY commodity_id ORDER BY ts DESC, id DESC
				) AS rn FROM transactions
			) WHERE rn > ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune transactions: %w", err)
	}
	return res.RowsAffected()
}

// SaveTrader persists the trader state as a metadata record.
func (s *MarketStore) SaveTrader(ctx context.Context, trader *domain.Trader, ts int64) error {
	data, err := json.Marshal(trader)
	if err != nil {
		return fmt.Errorf("failed to marshal trader: %w", err)
	}
	return s.upsertMetadata(ctx, "trader:"+trader.ID, string(data), ts)
}

// LoadTrader restores a trader by id. Returns nil when none is stored.
func (s *MarketStore) LoadTrader(ctx context.Context, id string) (*domain.Trader, error) {
	val, err := s.getMetadata(ctx, "trader:"+id)
	if err != nil || val == "" {
		return nil, err
	}
	var trader domain.Trader
	if err := json.Unmarshal([]byte(val), &trader); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trader %s: %w", id, err)
	}
	return &trader, nil
}

// ApplyResult persists the full effect of one match atomically: book
// removals and reductions, the new resting order, executed transactions and
// the updated trader. One SQL transaction, all or nothing.
func (s *MarketStore) ApplyResult(ctx context.Context, res market.Result, ts int64) error {
	if res.Rejected() {
		return nil // rejections have no effects to persist
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	for _, id := range res.Removed {
		if _, err := sqlTx.ExecContext(ctx, "DELETE FROM orders WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete order %s: %w", id, err)
		}
	}
	for _, o := range res.Reduced {
		if _, err := sqlTx.ExecContext(ctx, "UPDATE orders SET quantity = ? WHERE id = ?", o.Quantity, o.ID); err != nil {
			return fmt.Errorf("failed to reduce order %s: %w", o.ID, err)
		}
	}
	if o := res.Resting; o != nil {
		_, err := sqlTx.ExecContext(ctx,
			`INSERT INTO orders (id, commodity_id, side, kind, quantity, limit_price, trader_id, created_at, seq)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, o.CommodityID, o.Side, o.Kind, o.Quantity, o.LimitPrice, o.TraderID, o.CreatedUnixM, o.Seq)
		if err != nil {
			return fmt.Errorf("failed to insert resting order: %w", err)
		}
	}
	for _, tx := range res.Transactions {
		_, err := sqlTx.ExecContext(ctx,
			"INSERT INTO transactions (id, commodity_id, quantity, price, ts, buyer, seller) VALUES (?, ?, ?, ?, ?, ?, ?)",
			tx.ID, tx.CommodityID, tx.Quantity, tx.Price, tx.TsUnixM, tx.Buyer.String(), tx.Seller.String())
		if err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
	}
	if res.Trader != nil {
		data, err := json.Marshal(res.Trader)
		if err != nil {
			return fmt.Errorf("failed to marshal trader: %w", err)
		}
		_, err = sqlTx.ExecContext(ctx,
			"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
			"trader:"+res.Trader.ID, string(data), ts)
		if err != nil {
			return fmt.Errorf("failed to save trader: %w", err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit result: %w", err)
	}
	return nil
}

func (s *MarketStore) upsertMetadata(ctx context.Context, key, value string, ts int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, ts,
	)
	return err
}

func (s *MarketStore) getMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Close closes the database connection.
func (s *MarketStore) Close() error {
	return s.db.Close()
}
