package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
)

// FileStore keeps one JSON file per (date, briefing type)
// <dir>/<YYYY-MM-DD>_<briefing_type>.json
type FileStore struct {
	dir    string
	loc    *time.Location
	logger *logger.Logger
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string, loc *time.Location, log *logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &FileStore{
		dir:    dir,
		loc:    loc,
		logger: log.WithField("module", "archive"),
	}, nil
}

func (s *FileStore) path(date string, bt contracts.BriefingType) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", date, bt))
}

// Save writes the snapshot atomically (temp file + rename), replacing any earlier run
func (s *FileStore) Save(ctx context.Context, snap *contracts.MarketSnapshot) error {
	if err := checkSnapshot(snap); err != nil {
		return err
	}

	date := tradeDate(snap, s.loc)
	env := Envelope{
		Date:        date,
		DataType:    snap.BriefingType,
		CollectedAt: snap.CollectedAt,
		Snapshot:    snap,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	target := s.path(date, snap.BriefingType)
	tmp, err := os.CreateTemp(s.dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename snapshot: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"path":   target,
		"run_id": snap.RunID,
	}).Info("Snapshot saved")
	return nil
}

// Load reads the snapshot of date (in the archive zone) and type
func (s *FileStore) Load(ctx context.Context, date time.Time, bt contracts.BriefingType) (*contracts.MarketSnapshot, error) {
	env, err := s.read(s.path(date.In(s.loc).Format(dateLayout), bt))
	if err != nil {
		return nil, err
	}
	return env.Snapshot, nil
}

// Latest returns the most recent snapshot of type bt
func (s *FileStore) Latest(ctx context.Context, bt contracts.BriefingType) (*contracts.MarketSnapshot, error) {
	entries, err := s.scan()
	if err != nil {
		return nil, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].BriefingType == bt {
			env, err := s.read(entries[i].Location)
			if err != nil {
				return nil, err
			}
			return env.Snapshot, nil
		}
	}
	return nil, contracts.ErrSnapshotNotFound
}

// List returns every stored snapshot, oldest first
func (s *FileStore) List(ctx context.Context) ([]contracts.ArchiveEntry, error) {
	entries, err := s.scan()
	if err != nil {
		return nil, err
	}
	for i := range entries {
		env, err := s.read(entries[i].Location)
		if err != nil {
			s.logger.WithError(err).WithField("path", entries[i].Location).Warn("Skipping unreadable snapshot")
			continue
		}
		entries[i].CollectedAt = env.CollectedAt
		if env.Snapshot != nil {
			entries[i].LiveCount = env.Snapshot.LiveCount
			entries[i].BackupCount = env.Snapshot.BackupCount
		}
	}
	return entries, nil
}

// Cleanup removes snapshots older than retentionDays before now
func (s *FileStore) Cleanup(ctx context.Context, retentionDays int, now time.Time) (int, error) {
	cutoff := now.In(s.loc).AddDate(0, 0, -retentionDays).Format(dateLayout)

	entries, err := s.scan()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if e.Date >= cutoff {
			continue
		}
		if err := os.Remove(e.Location); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("remove %s: %w", e.Location, err)
		}
		removed++
	}

	if removed > 0 {
		s.logger.WithFields(map[string]interface{}{
			"removed": removed,
			"cutoff":  cutoff,
		}).Info("Archive cleanup completed")
	}
	return removed, nil
}

// scan lists archive files by name, sorted by (date, type)
func (s *FileStore) scan() ([]contracts.ArchiveEntry, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read archive dir: %w", err)
	}

	var entries []contracts.ArchiveEntry
	for _, f := range files {
		date, bt, ok := parseName(f.Name())
		if f.IsDir() || !ok {
			continue
		}
		entries = append(entries, contracts.ArchiveEntry{
			Date:         date,
			BriefingType: bt,
			Location:     filepath.Join(s.dir, f.Name()),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date < entries[j].Date
		}
		return slotOrder(entries[i].BriefingType) < slotOrder(entries[j].BriefingType)
	})
	return entries, nil
}

func (s *FileStore) read(path string) (*Envelope, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, contracts.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", filepath.Base(path), err)
	}
	if env.Snapshot == nil {
		return nil, fmt.Errorf("decode snapshot %s: empty envelope", filepath.Base(path))
	}
	return &env, nil
}

// parseName splits "2025-03-14_kr_close.json"
func parseName(name string) (string, contracts.BriefingType, bool) {
	if !strings.HasSuffix(name, ".json") || len(name) < len(dateLayout)+2 {
		return "", "", false
	}
	date := name[:len(dateLayout)]
	if _, err := time.Parse(dateLayout, date); err != nil || name[len(dateLayout)] != '_' {
		return "", "", false
	}
	bt := contracts.BriefingType(strings.TrimSuffix(name[len(dateLayout)+1:], ".json"))
	if !bt.Valid() {
		return "", "", false
	}
	return date, bt, true
}

// slotOrder orders types within one day by schedule
func slotOrder(bt contracts.BriefingType) int {
	for i, t := range contracts.AllBriefingTypes() {
		if t == bt {
			return i
		}
	}
	return len(contracts.AllBriefingTypes())
}
