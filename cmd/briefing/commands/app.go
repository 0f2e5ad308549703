package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ark-poiop/dkwjawj-renew/internal/acquisition"
	"github.com/ark-poiop/dkwjawj-renew/internal/archive"
	"github.com/ark-poiop/dkwjawj-renew/internal/backup"
	"github.com/ark-poiop/dkwjawj-renew/internal/briefing"
	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/internal/external/kis"
	"github.com/ark-poiop/dkwjawj-renew/internal/external/naver"
	"github.com/ark-poiop/dkwjawj-renew/internal/external/rss"
	"github.com/ark-poiop/dkwjawj-renew/internal/external/threads"
	"github.com/ark-poiop/dkwjawj-renew/internal/external/yahoo"
	"github.com/ark-poiop/dkwjawj-renew/internal/headlines"
	"github.com/ark-poiop/dkwjawj-renew/internal/pipeline"
	"github.com/ark-poiop/dkwjawj-renew/internal/quality"
	"github.com/ark-poiop/dkwjawj-renew/internal/scheduler"
	"github.com/ark-poiop/dkwjawj-renew/internal/scheduler/jobs"
	"github.com/ark-poiop/dkwjawj-renew/internal/selector"
	"github.com/ark-poiop/dkwjawj-renew/internal/universe"
	"github.com/ark-poiop/dkwjawj-renew/pkg/config"
	"github.com/ark-poiop/dkwjawj-renew/pkg/database"
	"github.com/ark-poiop/dkwjawj-renew/pkg/httputil"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
	"github.com/ark-poiop/dkwjawj-renew/pkg/metrics"
	"github.com/ark-poiop/dkwjawj-renew/pkg/redis"
	"github.com/ark-poiop/dkwjawj-renew/pkg/tracing"
)

const headlineTimeout = 5 * time.Second

// app holds every collaborator the commands share
// ⭐ SSOT: 의존성 조립은 이 파일에서만
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	redis     *redis.Client
	db        *database.DB
	tracer    *tracing.Provider
	metrics   *metrics.Recorder
	selector  *selector.Selector
	universe  *universe.Universe
	archive   contracts.SnapshotArchive
	publisher *threads.Publisher
	briefer   *pipeline.Briefer
}

// loadConfig loads configuration and applies global flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if dryRun {
		cfg.Briefing.DryRun = true
	}
	return cfg, nil
}

// newApp wires the full pipeline from configuration
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	// 2. Initialize logger
	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log}

	// 3. Tracing (stdout exporter, TRACING_ENABLED)
	a.tracer, err = tracing.Init(ctx, cfg, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// 4. Redis (optional)
	a.redis, err = redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		a.redis = redis.Disabled()
	}

	// 5. Database (postgres archive only)
	if cfg.Archive.Backend == "postgres" {
		a.db, err = database.New(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
	}

	// 6. Universe
	a.universe, err = loadUniverse(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	// 7. Metrics
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	// 8. Source adapters
	limiter := redis.NewRateLimiter(a.redis, "briefing")
	kisClient := kis.NewClient(cfg.KIS, limited(httputil.NewForAdapter(cfg, log), limiter, redis.KISRateLimit), log)
	yahooClient := yahoo.NewClient(cfg.Yahoo.BaseURL, limited(httputil.NewForAdapter(cfg, log), limiter, redis.YahooRateLimit), log)

	if !kisClient.Configured() {
		log.Warn("KIS credentials missing, domestic quotes will come from backup data")
	}

	// 9. Acquisition strategy
	a.selector = selector.New(cfg.Location())
	validator := quality.NewValidator(quality.Config{
		SegmentProviders: map[contracts.Segment][]string{
			contracts.SegmentDomestic:      {kisClient.Provider()},
			contracts.SegmentInternational: {yahooClient.Provider()},
		},
	})
	strategy := acquisition.NewStrategy(
		[]contracts.QuoteSource{kisClient, yahooClient},
		validator,
		backup.NewGenerator(cfg.Location()),
		a.metrics,
		acquisition.Config{
			Workers:        cfg.Briefing.Workers,
			AdapterTimeout: cfg.Briefing.AdapterTimeout,
			Minimums: map[contracts.Segment]int{
				contracts.SegmentDomestic:      cfg.Briefing.MinDomestic,
				contracts.SegmentInternational: cfg.Briefing.MinInternational,
			},
		},
		log,
	)
	p := pipeline.New(a.selector, a.universe, strategy, cfg.Briefing.RunBudget, log, pipeline.WithMetrics(a.metrics))

	// 10. Headlines
	naverHTTP := limited(httputil.NewWithTimeout(cfg, log, headlineTimeout).DisableRetry(), limiter, redis.NaverRateLimit)
	collector := headlines.NewCollector(
		[]contracts.HeadlineSource{
			naver.NewClient(cfg.Naver.BaseURL, naverHTTP, log),
			rss.NewClient(cfg.RSS.Feeds, httputil.NewWithTimeout(cfg, log, headlineTimeout).DisableRetry(), log),
		},
		redis.NewCache(a.redis, "briefing"),
		headlineTimeout,
		log,
	)

	// 11. Archive
	a.archive, err = archive.New(ctx, cfg, a.db, a.redis, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init archive: %w", err)
	}

	// 12. Publisher
	a.publisher = threads.NewPublisher(
		threads.NewClient(cfg.Threads, httputil.New(cfg, log), log),
		cfg.Briefing.DryRun,
		log,
	)

	a.briefer = pipeline.NewBriefer(p, briefing.NewGenerator(), collector, a.archive, a.publisher, a.metrics, log)
	return a, nil
}

// newScheduler registers the five slot jobs and archive cleanup
func (a *app) newScheduler(opts pipeline.Options) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.cfg.Location(), a.log)

	for _, job := range jobs.NewBriefingJobs(a.briefer, opts, a.log) {
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}
	if err := sched.AddJob(jobs.NewArchiveCleanupJob(a.archive, a.cfg.Archive.RetentionDays, a.log)); err != nil {
		return nil, err
	}

	return sched, nil
}

// Close releases connections and flushes spans
func (a *app) Close() {
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.log.WithError(err).Warn("Failed to flush traces")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}

// newArchiveOnly wires just the archive (archive commands skip adapters)
func newArchiveOnly(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log}

	a.redis, err = redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		a.redis = redis.Disabled()
	}

	if cfg.Archive.Backend == "postgres" {
		a.db, err = database.New(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
	}

	a.archive, err = archive.New(ctx, cfg, a.db, a.redis, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init archive: %w", err)
	}
	return a, nil
}

func loadUniverse(cfg *config.Config) (*universe.Universe, error) {
	if cfg.Briefing.UniverseFile == "" {
		u, err := universe.Default()
		if err != nil {
			return nil, fmt.Errorf("load default universe: %w", err)
		}
		return u, nil
	}

	u, err := universe.Load(cfg.Briefing.UniverseFile)
	if err != nil {
		return nil, fmt.Errorf("load universe %s: %w", cfg.Briefing.UniverseFile, err)
	}
	return u, nil
}

// limited attaches the shared Redis window and a same-rate local bucket for when Redis is off
func limited(c *httputil.Client, limiter *redis.RateLimiter, rl redis.RateLimitConfig) *httputil.Client {
	perSecond := float64(rl.Limit) / rl.Window.Seconds()
	return c.WithRateLimiter(limiter, rl).WithLocalLimiter(perSecond, rl.Limit)
}
