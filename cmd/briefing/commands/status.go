package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/internal/selector"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "시스템 상태 조회",
	Long: `현재 슬롯, 장 운영 여부, 설정, 최근 스냅샷을 표시합니다.

표시 정보:
- 현재 시각(KST)과 자동 선택되는 브리핑 유형
- 국내/미국 장 운영 여부
- 어댑터/게시 설정 상태
- 유형별 최근 저장 스냅샷

Example:
  go run ./cmd/briefing status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	loc := a.selector.Location()
	now := time.Now().In(loc)
	current := a.selector.Select(now)

	PrintHeader("Market Briefing Status")
	PrintKeyValue("Now", now.Format(dateTimeLayout+" MST"), 14)
	PrintKeyValue("Current slot", fmt.Sprintf("%s (%s)", current, current.Title()), 14)
	PrintKeyValue("Korea open", yesNo(selector.KoreaMarketOpen(now, loc)), 14)
	PrintKeyValue("US open", yesNo(selector.USMarketOpen(now, loc)), 14)

	PrintHeader("Configuration")
	PrintKeyValue("Env", a.cfg.Env, 14)
	PrintKeyValue("KIS", yesNo(a.cfg.KIS.Configured()), 14)
	PrintKeyValue("Threads", yesNo(a.cfg.Threads.Configured()), 14)
	PrintKeyValue("Dry run", yesNo(a.publisher.Simulated()), 14)
	PrintKeyValue("Archive", fmt.Sprintf("%s (%d days)", a.cfg.Archive.Backend, a.cfg.Archive.RetentionDays), 14)
	PrintKeyValue("Redis", yesNo(a.redis.Enabled()), 14)
	PrintKeyValue("Universe", fmt.Sprintf("%d instruments (%s)", a.universe.Len(), a.universe.Hash()[:12]), 14)
	PrintKeyValue("Run budget", a.cfg.Briefing.RunBudget.String(), 14)
	PrintKeyValue("Workers", fmt.Sprintf("%d", a.cfg.Briefing.Workers), 14)
	PrintKeyValue("Tracing", yesNo(a.tracer.Enabled()), 14)

	PrintHeader("Latest Snapshots")
	widths := []int{12, 8, 22, 6, 6}
	PrintTableHeader([]string{"Type", "Slot", "Collected", "Live", "Backup"}, widths)
	for _, bt := range contracts.AllBriefingTypes() {
		snap, err := a.archive.Latest(ctx, bt)
		if errors.Is(err, contracts.ErrSnapshotNotFound) {
			PrintTableRow([]string{string(bt), bt.Slot(), "-", "-", "-"}, widths)
			continue
		}
		if err != nil {
			return fmt.Errorf("latest %s: %w", bt, err)
		}
		PrintTableRow([]string{
			string(bt),
			bt.Slot(),
			snap.CollectedAt.In(loc).Format(dateTimeLayout),
			fmt.Sprintf("%d", snap.LiveCount),
			fmt.Sprintf("%d", snap.BackupCount),
		}, widths)
	}
	fmt.Println()

	return nil
}
