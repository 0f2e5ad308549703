package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ark-poiop/dkwjawj-renew/internal/api"
	"github.com/ark-poiop/dkwjawj-renew/internal/api/handlers"
	"github.com/ark-poiop/dkwjawj-renew/internal/scheduler"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                  - Health check
  GET  /metrics                 - Prometheus metrics
  GET  /api/status              - 현재 슬롯 / 장 운영 여부
  GET  /api/snapshots           - 저장된 스냅샷 목록
  GET  /api/snapshots/latest    - 최신 스냅샷 (?type=kr_close)
  POST /api/briefings/{slot}    - 브리핑 실행
  GET  /api/publish/history     - 게시 이력

Example:
  go run ./cmd/briefing serve
  go run ./cmd/briefing serve --port 8080 --with-scheduler`,
	RunE: runServe,
}

var (
	servePort          string
	serveWithScheduler bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (기본값: API_PORT)")
	serveCmd.Flags().BoolVar(&serveWithScheduler, "with-scheduler", false, "스케줄러 함께 실행")
	serveCmd.Flags().BoolVar(&schedulerPublish, "publish", false, "스케줄 작업에서 Threads 게시")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Market Briefing API Server ===")

	a, err := newApp(commandContext(cmd))
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if servePort != "" {
		a.cfg.Port = servePort
	}

	var sched *scheduler.Scheduler
	if serveWithScheduler {
		sched, err = a.newScheduler(schedulerOptions())
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
	}

	briefingHandler := handlers.NewBriefingHandler(a.briefer, a.archive, a.publisher, a.selector, a.log)
	router := api.NewRouter(briefingHandler, a.metrics, a.log)
	server := api.New(a.cfg, a.log, router)

	// Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal or server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if sched != nil {
			sched.Stop()
		}
		return err
	}

	a.log.Info("Shutting down server...")

	if sched != nil {
		sched.Stop()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
