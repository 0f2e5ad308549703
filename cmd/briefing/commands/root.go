package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
	dryRun  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "briefing",
	Short: "시장 브리핑 자동화 - 수집, 선택, 게시",
	Long: `Market Briefing CLI

시간대별 시장 브리핑 파이프라인.
KIS(국내) / Yahoo(해외) 실시간 시세를 수집하고, 실패 시 백업 데이터로 대체합니다.

Usage:
  go run ./cmd/briefing [command]

Examples:
  go run ./cmd/briefing run --slot now
  go run ./cmd/briefing run --slot 15:40 --save --publish
  go run ./cmd/briefing status
  go run ./cmd/briefing archive list
  go run ./cmd/briefing scheduler start
  go run ./cmd/briefing serve`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (LOG_LEVEL=debug)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "게시하지 않고 시뮬레이션 (BRIEFING_DRY_RUN)")
}
