package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fbarrueco/crimson-city-life/internal/domain"
)

// Snapshot is a point-in-time JSON capture of the whole marketplace state:
// plain records only, round-trippable through any storage the host uses.
type Snapshot struct {
	TsUnix       int64                `json:"ts"`
	Trader       *domain.Trader       `json:"trader"`
	Orders       []domain.Order       `json:"orders"`
	Transactions []domain.Transaction `json:"transactions"`
}

// SnapshotManager saves and loads marketplace snapshots as JSON files.
// Useful for exports and debugging alongside the SQLite store.
type SnapshotManager struct {
	dir string
}

// NewSnapshotManager creates a snapshot manager over a directory.
func NewSnapshotManager(dir string) *SnapshotManager {
	return &SnapshotManager{dir: dir}
}

// Save writes a snapshot to disk.
func (sm *SnapshotManager) Save(snap *Snapshot) error {
	if err := os.MkdirAll(sm.dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	filename := fmt.Sprintf("snapshot_%d.json", snap.TsUnix)
	path := filepath.Join(sm.dir, filename)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	slog.Info("Snapshot saved", slog.Int64("ts", snap.TsUnix), slog.String("path", path))
	return nil
}

// LoadLatest loads the most recent snapshot from disk.
// Returns nil if no snapshot exists.
func (sm *SnapshotManager) LoadLatest() (*Snapshot, error) {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot dir: %w", err)
	}

	var latestPath string
	var latestTs int64

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var ts int64
		if _, err := fmt.Sscanf(entry.Name(), "snapshot_%d.json", &ts); err != nil {
			continue
		}
		if ts > latestTs {
			latestTs = ts
			latestPath = filepath.Join(sm.dir, entry.Name())
		}
	}

	if latestPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(latestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	slog.Info("Snapshot loaded", slog.Int64("ts", snap.TsUnix), slog.String("path", latestPath))
	return &snap, nil
}

// CreateSnapshot assembles a snapshot from current state, copying slices so
// later mutation cannot leak in.
func CreateSnapshot(trader *domain.Trader, orders []domain.Order, txs []domain.Transaction) *Snapshot {
	ordersCopy := make([]domain.Order, len(orders))
	copy(ordersCopy, orders)
	txsCopy := make([]domain.Transaction, len(txs))
	copy(txsCopy, txs)

	return &Snapshot{
		TsUnix:       time.Now().Unix(),
		Trader:       trader.Clone(),
		Orders:       ordersCopy,
		Transactions: txsCopy,
	}
}

// Cleanup removes old snapshots, keeping only the latest N.
func (sm *SnapshotManager) Cleanup(keepCount int) error {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		return err
	}

	type snapFile struct {
		path string
		ts   int64
	}
	var files []snapFile

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var ts int64
		if _, err := fmt.Sscanf(entry.Name(), "snapshot_%d.json", &ts); err == nil {
			files = append(files, snapFile{path: filepath.Join(sm.dir, entry.Name()), ts: ts})
		}
	}

	if len(files) <= keepCount {
		return nil
	}

	// Newest first (small N, simple sort)
	for i := 0; i < len(files); i++ {
		for j := i + 1; j < len(files); j++ {
			if files[j].ts > files[i].ts {
				files[i], files[j] = files[j], files[i]
			}
		}
	}

	for i := keepCount; i < len(files); i++ {
		if err := os.Remove(files[i].path); err != nil {
			slog.Warn("Failed to remove old snapshot", slog.String("path", files[i].path))
		}
	}
	return nil
}
