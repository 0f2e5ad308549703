package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ark-poiop/dkwjawj-renew/internal/pipeline"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/briefing scheduler start --publish
  go run ./cmd/briefing scheduler list
  go run ./cmd/briefing scheduler run briefing_kr_close`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다. (KST)

등록되는 작업:
- briefing_us_close: 매일 07:00
- briefing_kr_preview: 매일 08:00
- briefing_kr_midday: 매일 12:00
- briefing_kr_close: 매일 15:40
- briefing_us_preview: 매일 19:00
- archive_cleanup: 매일 03:00

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

var (
	schedulerSave    bool
	schedulerPublish bool
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	// Flags
	schedulerCmd.PersistentFlags().BoolVar(&schedulerSave, "save", true, "스냅샷 저장")
	schedulerCmd.PersistentFlags().BoolVar(&schedulerPublish, "publish", false, "Threads 게시")
}

func schedulerOptions() pipeline.Options {
	return pipeline.Options{
		Save:    schedulerSave,
		Publish: schedulerPublish,
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Market Briefing Scheduler ===")

	a, err := newApp(commandContext(cmd))
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.newScheduler(schedulerOptions())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// Start scheduler
	sched.Start()

	fmt.Println()
	PrintSuccess("Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %-22s next: %s\n", jobName, sched.NextRun(jobName).Format(dateTimeLayout))
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(commandContext(cmd))
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.newScheduler(schedulerOptions())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	stats := sched.GetJobStats()
	widths := []int{22, 16}
	PrintTableHeader([]string{"Job", "Schedule (KST)"}, widths)
	for _, jobName := range sched.GetAllJobs() {
		PrintTableRow([]string{jobName, stats[jobName].Schedule}, widths)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	a, err := newApp(commandContext(cmd))
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.newScheduler(schedulerOptions())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	result, err := sched.RunJobSync(jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !result.Success {
		PrintError(fmt.Sprintf("%s failed after %d attempts: %s", jobName, result.Attempts, result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}

	PrintSuccess(fmt.Sprintf("%s completed in %s", jobName, result.Duration))
	return nil
}
