package main

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"shardthief.gg/internal/persistence/indexdb"
	"shardthief.gg/internal/sim/session"
	"shardthief.gg/internal/sim/tuning"
)

type runtimeIndex interface {
	session.TickLogger
	session.Sink
	Close() error
	UpsertTuning(tune tuning.Tuning) error
	Stats() indexdb.Stats
	Rounds(ctx context.Context, limit int) ([]indexdb.RoundRow, error)
}

func openRuntimeIndex(cfg serverConfig, logger *log.Logger) (runtimeIndex, error) {
	if cfg.DisableDB {
		return nil, nil
	}
	switch cfg.IndexBackend {
	case "none", "off", "disabled":
		return nil, nil
	case "", "sqlite":
		return indexdb.OpenSQLite(filepath.Join(cfg.DataDir, "index", "rounds.sqlite"), logger)
	default:
		return nil, fmt.Errorf("unsupported SHARD_INDEX_BACKEND: %s", cfg.IndexBackend)
	}
}
