package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/internal/pipeline"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "브리핑 1회 실행",
	Long: `지정한 슬롯의 브리핑을 1회 실행합니다.

슬롯:
  07:00  미국 마켓 마감 브리핑 (us_close)
  08:00  한국시장 프리뷰 (kr_preview)
  12:00  한국시장 오전장 브리핑 (kr_midday)
  15:40  한국시장 마감 브리핑 (kr_close)
  19:00  미국 시장 프리뷰 (us_preview)
  now    현재 시각 기준 자동 선택
  all    다섯 슬롯 모두 순서대로

Example:
  go run ./cmd/briefing run --slot now
  go run ./cmd/briefing run --slot 15:40 --save --publish
  go run ./cmd/briefing run --slot all --json`,
	RunE: runBriefing,
}

var (
	runSlot    string
	runTopic   string
	runSave    bool
	runPublish bool
	runJSON    bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	// Flags
	runCmd.Flags().StringVar(&runSlot, "slot", "now", "슬롯 (07:00|08:00|12:00|15:40|19:00|now|all 또는 유형 이름)")
	runCmd.Flags().StringVar(&runTopic, "topic", "", "브리핑 주제 (기본값: 유형별 주제)")
	runCmd.Flags().BoolVar(&runSave, "save", false, "스냅샷 저장")
	runCmd.Flags().BoolVar(&runPublish, "publish", false, "Threads 게시")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "JSON 출력")
}

func runBriefing(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	slots := []string{runSlot}
	if strings.EqualFold(runSlot, "all") {
		slots = slots[:0]
		for _, bt := range contracts.AllBriefingTypes() {
			slots = append(slots, string(bt))
		}
	}

	opts := pipeline.Options{
		Topic:   runTopic,
		Save:    runSave,
		Publish: runPublish,
	}

	reports := make([]*pipeline.Report, 0, len(slots))
	for _, slot := range slots {
		report, err := a.briefer.Brief(ctx, slot, opts)
		if err != nil {
			return fmt.Errorf("brief %s: %w", slot, err)
		}
		reports = append(reports, report)

		if !runJSON {
			printReport(report)
		}
	}

	if runJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if len(reports) == 1 {
			return enc.Encode(reports[0])
		}
		return enc.Encode(reports)
	}

	return nil
}

func printReport(r *pipeline.Report) {
	PrintHeader(fmt.Sprintf("%s (%s)", r.BriefingType.Title(), r.BriefingType))
	PrintKeyValue("Run ID", r.RunID, 10)
	PrintKeyValue("Collected", r.Snapshot.CollectedAt.Format(dateTimeLayout), 10)
	PrintKeyValue("Live", fmt.Sprintf("%d (%.0f%%)", r.Snapshot.LiveCount, r.Snapshot.LiveRatio()*100), 10)
	PrintKeyValue("Backup", fmt.Sprintf("%d", r.Snapshot.BackupCount), 10)
	PrintSeparator()

	// Per-instrument provenance
	widths := []int{10, 14, 12, 12}
	PrintTableHeader([]string{"Symbol", "Source", "Price", "Change"}, widths)
	for _, symbol := range r.Snapshot.Symbols() {
		q, _ := r.Snapshot.Quote(symbol)
		PrintTableRow([]string{
			symbol,
			q.Source,
			fmt.Sprintf("%.2f", q.Price),
			fmt.Sprintf("%+.2f%%", q.ChangePct),
		}, widths)
	}
	PrintSeparator()

	fmt.Println(r.Text)
	PrintSeparator()

	if r.Saved {
		PrintSuccess("Snapshot saved")
	}
	if r.Publish != nil {
		if r.Publish.Simulated {
			PrintInfo("Simulated post: " + r.Publish.PostID)
		} else {
			PrintSuccess("Published: " + r.Publish.PostID)
		}
	}
	for _, w := range r.Warnings {
		PrintWarning(w)
	}
}
