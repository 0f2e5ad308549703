package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "스냅샷 아카이브 관리",
	Long: `저장된 시장 스냅샷을 조회하거나 정리합니다.

Subcommands:
  list     - 저장된 스냅샷 목록
  show     - 특정 스냅샷 출력 (JSON)
  cleanup  - 보관 기간이 지난 스냅샷 삭제

Example:
  go run ./cmd/briefing archive list
  go run ./cmd/briefing archive show kr_close --date 2025-06-10
  go run ./cmd/briefing archive cleanup --days 30`,
}

var (
	archiveListCmd = &cobra.Command{
		Use:   "list",
		Short: "저장된 스냅샷 목록",
		RunE:  listArchive,
	}

	archiveShowCmd = &cobra.Command{
		Use:   "show [briefing_type]",
		Short: "스냅샷 출력 (기본값: 최신)",
		Args:  cobra.ExactArgs(1),
		RunE:  showArchive,
	}

	archiveCleanupCmd = &cobra.Command{
		Use:   "cleanup",
		Short: "보관 기간이 지난 스냅샷 삭제",
		RunE:  cleanupArchive,
	}
)

var (
	archiveDate string
	archiveDays int
)

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveShowCmd)
	archiveCmd.AddCommand(archiveCleanupCmd)

	// Flags
	archiveShowCmd.Flags().StringVar(&archiveDate, "date", "", "거래일 (YYYY-MM-DD, 기본값: 최신)")
	archiveCleanupCmd.Flags().IntVar(&archiveDays, "days", 0, "보관 일수 (기본값: ARCHIVE_RETENTION_DAYS)")
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func listArchive(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	a, err := newArchiveOnly(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.archive.List(ctx)
	if err != nil {
		return fmt.Errorf("list archive: %w", err)
	}

	if len(entries) == 0 {
		PrintInfo("No snapshots archived")
		return nil
	}

	widths := []int{10, 12, 20, 6, 6}
	PrintTableHeader([]string{"Date", "Type", "Collected", "Live", "Backup"}, widths)
	for _, e := range entries {
		PrintTableRow([]string{
			e.Date,
			string(e.BriefingType),
			e.CollectedAt.In(a.cfg.Location()).Format(dateTimeLayout),
			fmt.Sprintf("%d", e.LiveCount),
			fmt.Sprintf("%d", e.BackupCount),
		}, widths)
	}
	fmt.Printf("\nTotal: %d\n", len(entries))

	return nil
}

func showArchive(cmd *cobra.Command, args []string) error {
	bt := contracts.BriefingType(args[0])
	if !bt.Valid() {
		return contracts.NewConfigurationError("unknown briefing type %q", args[0])
	}

	ctx := commandContext(cmd)
	a, err := newArchiveOnly(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var snap *contracts.MarketSnapshot
	if archiveDate == "" {
		snap, err = a.archive.Latest(ctx, bt)
	} else {
		date, perr := time.ParseInLocation("2006-01-02", archiveDate, a.cfg.Location())
		if perr != nil {
			return fmt.Errorf("parse --date: %w", perr)
		}
		snap, err = a.archive.Load(ctx, date, bt)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", bt, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func cleanupArchive(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	a, err := newArchiveOnly(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	days := archiveDays
	if days <= 0 {
		days = a.cfg.Archive.RetentionDays
	}

	removed, err := a.archive.Cleanup(ctx, days, time.Now())
	if err != nil {
		return fmt.Errorf("cleanup archive: %w", err)
	}

	PrintSuccess(fmt.Sprintf("Removed %d snapshots older than %d days", removed, days))
	return nil
}
