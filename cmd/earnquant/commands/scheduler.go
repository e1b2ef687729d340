package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joonho/earnquant/internal/external/fmp"
	"github.com/joonho/earnquant/internal/marketdata"
	"github.com/joonho/earnquant/internal/scheduler"
	"github.com/joonho/earnquant/internal/scheduler/jobs"
	"github.com/joonho/earnquant/pkg/config"
	"github.com/joonho/earnquant/pkg/database"
	"github.com/joonho/earnquant/pkg/httputil"
	"github.com/joonho/earnquant/pkg/logger"
	"github.com/joonho/earnquant/pkg/redis"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage the job scheduler",
	Long: `Starts the scheduler daemon or manages its jobs.

Registered jobs:
- price_sync: weekdays after the close (recent bars and market days)

Subcommands:
  start   - start the scheduler
  list    - list registered jobs
  run     - run one job immediately

Example:
  go run ./cmd/earnquant scheduler start
  go run ./cmd/earnquant scheduler run price_sync`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== earnquant Scheduler ===")

	sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	fmt.Println("Job started (running in background)")
	return nil
}

func initScheduler() (*scheduler.Scheduler, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	httpClient := httputil.New(cfg, log).WithRateLimiter(
		redis.NewRateLimiter(redisClient, "earnquant"),
		redis.RateLimitConfig{Key: "fmp", Limit: int(cfg.FMP.RatePerSecond * 60), Window: time.Minute},
	)
	client := fmp.NewClient(cfg, httpClient, redis.NewCache(redisClient, "earnquant"), log)

	barRepo := marketdata.NewBarRepository(db.Pool)
	marketRepo := marketdata.NewMarketRepository(db.Pool)
	signalRepo := marketdata.NewSignalRepository(db.Pool)

	sched := scheduler.New(log)
	sched.AddJob(jobs.NewPriceSyncJob(client, barRepo, marketRepo, signalRepo, log))

	return sched, nil
}
