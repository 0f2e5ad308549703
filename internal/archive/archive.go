package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/pkg/config"
	"github.com/ark-poiop/dkwjawj-renew/pkg/database"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
	"github.com/ark-poiop/dkwjawj-renew/pkg/redis"
)

const dateLayout = "2006-01-02"

// Envelope is the stored form of one snapshot
type Envelope struct {
	Date        string                    `json:"date"`
	DataType    contracts.BriefingType    `json:"data_type"`
	CollectedAt time.Time                 `json:"collected_at"`
	Snapshot    *contracts.MarketSnapshot `json:"snapshot"`
}

// New builds the configured archive backend, with Redis in front of Latest.
// postgres 백엔드는 db 가 필요
func New(ctx context.Context, cfg *config.Config, db *database.DB, rdb *redis.Client, log *logger.Logger) (contracts.SnapshotArchive, error) {
	var store contracts.SnapshotArchive
	switch cfg.Archive.Backend {
	case "file":
		fs, err := NewFileStore(cfg.Archive.Dir, cfg.Location(), log)
		if err != nil {
			return nil, err
		}
		store = fs
	case "postgres":
		if db == nil {
			return nil, contracts.NewConfigurationError("postgres archive requires a database connection")
		}
		if err := db.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate archive schema: %w", err)
		}
		store = NewPostgresStore(db.Pool, cfg.Location(), log)
	default:
		return nil, contracts.NewConfigurationError("unknown archive backend %q", cfg.Archive.Backend)
	}

	if rdb != nil && rdb.Enabled() {
		return NewCached(store, redis.NewCache(rdb, "briefing"), cfg.Location(), log), nil
	}
	return store, nil
}

func tradeDate(snap *contracts.MarketSnapshot, loc *time.Location) string {
	return snap.CollectedAt.In(loc).Format(dateLayout)
}

func checkSnapshot(snap *contracts.MarketSnapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot")
	}
	if !snap.BriefingType.Valid() {
		return fmt.Errorf("snapshot %s has no valid briefing type (%q)", snap.RunID, snap.BriefingType)
	}
	if snap.CollectedAt.IsZero() {
		return fmt.Errorf("snapshot %s has no collection time", snap.RunID)
	}
	return nil
}
