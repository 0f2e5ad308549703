package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
)

// PostgresStore keeps snapshots in briefing.snapshots (JSONB payload)
type PostgresStore struct {
	db     *pgxpool.Pool
	loc    *time.Location
	logger *logger.Logger
}

// NewPostgresStore creates a new PostgresStore instance
func NewPostgresStore(db *pgxpool.Pool, loc *time.Location, log *logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		loc:    loc,
		logger: log.WithField("module", "archive"),
	}
}

// Save upserts the snapshot for its (date, type)
func (s *PostgresStore) Save(ctx context.Context, snap *contracts.MarketSnapshot) error {
	if err := checkSnapshot(snap); err != nil {
		return err
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO briefing.snapshots (
			trade_date,
			briefing_type,
			run_id,
			collected_at,
			live_count,
			backup_count,
			complete,
			payload
		) VALUES ($1::date, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (trade_date, briefing_type) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			collected_at = EXCLUDED.collected_at,
			live_count = EXCLUDED.live_count,
			backup_count = EXCLUDED.backup_count,
			complete = EXCLUDED.complete,
			payload = EXCLUDED.payload
	`

	_, err = s.db.Exec(ctx, query,
		tradeDate(snap, s.loc),
		string(snap.BriefingType),
		snap.RunID,
		snap.CollectedAt,
		snap.LiveCount,
		snap.BackupCount,
		snap.Complete,
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"briefing_type": snap.BriefingType,
		"run_id":        snap.RunID,
	}).Info("Snapshot saved")
	return nil
}

// Load reads the snapshot of date (in the archive zone) and type
func (s *PostgresStore) Load(ctx context.Context, date time.Time, bt contracts.BriefingType) (*contracts.MarketSnapshot, error) {
	query := `
		SELECT payload
		FROM briefing.snapshots
		WHERE trade_date = $1::date AND briefing_type = $2
	`
	return s.queryOne(ctx, query, date.In(s.loc).Format(dateLayout), string(bt))
}

// Latest returns the most recent snapshot of type bt
func (s *PostgresStore) Latest(ctx context.Context, bt contracts.BriefingType) (*contracts.MarketSnapshot, error) {
	query := `
		SELECT payload
		FROM briefing.snapshots
		WHERE briefing_type = $1
		ORDER BY trade_date DESC
		LIMIT 1
	`
	return s.queryOne(ctx, query, string(bt))
}

func (s *PostgresStore) queryOne(ctx context.Context, query string, args ...interface{}) (*contracts.MarketSnapshot, error) {
	var payload []byte
	err := s.db.QueryRow(ctx, query, args...).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}

	var snap contracts.MarketSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// List returns every stored snapshot, oldest first
func (s *PostgresStore) List(ctx context.Context) ([]contracts.ArchiveEntry, error) {
	query := `
		SELECT to_char(trade_date, 'YYYY-MM-DD'), briefing_type, collected_at, live_count, backup_count
		FROM briefing.snapshots
		ORDER BY trade_date, collected_at
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var entries []contracts.ArchiveEntry
	for rows.Next() {
		var e contracts.ArchiveEntry
		var bt string
		if err := rows.Scan(&e.Date, &bt, &e.CollectedAt, &e.LiveCount, &e.BackupCount); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		e.BriefingType = contracts.BriefingType(bt)
		e.Location = fmt.Sprintf("briefing.snapshots/%s/%s", e.Date, bt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Cleanup removes snapshots older than retentionDays before now
func (s *PostgresStore) Cleanup(ctx context.Context, retentionDays int, now time.Time) (int, error) {
	cutoff := now.In(s.loc).AddDate(0, 0, -retentionDays).Format(dateLayout)

	tag, err := s.db.Exec(ctx, `DELETE FROM briefing.snapshots WHERE trade_date < $1::date`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete snapshots: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
