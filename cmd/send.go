package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmehdipour/wa-bulk-sender/internal/config"
	"github.com/jmehdipour/wa-bulk-sender/internal/db"
	"github.com/jmehdipour/wa-bulk-sender/internal/driver"
	"github.com/jmehdipour/wa-bulk-sender/internal/driver/whatsapp"
	apphttp "github.com/jmehdipour/wa-bulk-sender/internal/http"
	"github.com/jmehdipour/wa-bulk-sender/internal/kafka"
	"github.com/jmehdipour/wa-bulk-sender/internal/lock"
	"github.com/jmehdipour/wa-bulk-sender/internal/metrics"
	"github.com/jmehdipour/wa-bulk-sender/internal/model"
	"github.com/jmehdipour/wa-bulk-sender/internal/pacing"
	"github.com/jmehdipour/wa-bulk-sender/internal/recipients"
	"github.com/jmehdipour/wa-bulk-sender/internal/report"
	"github.com/jmehdipour/wa-bulk-sender/internal/repository"
	"github.com/jmehdipour/wa-bulk-sender/internal/util"
	"github.com/jmehdipour/wa-bulk-sender/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type sendFlags struct {
	numbers    string
	message    string
	headless   bool
	delayMin   float64
	delayMax   float64
	dryRun     bool
	reportOut  string
	statusAddr string
	normalize  bool
	profileDir string
}

func newSendCmd() *cobra.Command {
	var f sendFlags

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one message to every recipient in a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			f.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			if strings.TrimSpace(f.message) == "" {
				return fmt.Errorf("%w: message is empty", config.ErrInvalid)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runSend(ctx, cmd.OutOrStdout(), cfg, f, log)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.numbers, "numbers", "n", "", "path to text file with one phone number per line")
	fl.StringVarP(&f.message, "message", "m", "", "message text to send")
	fl.BoolVar(&f.headless, "headless", false, "run the browser without a window (needs a logged-in profile)")
	fl.Float64Var(&f.delayMin, "delay-min", 2, "minimum seconds between messages")
	fl.Float64Var(&f.delayMax, "delay-max", 5, "maximum seconds between messages")
	fl.BoolVar(&f.dryRun, "dry-run", false, "log what would be sent without opening a browser")
	fl.StringVar(&f.reportOut, "report-out", "", "write the JSON report to this path (- for stdout)")
	fl.StringVar(&f.statusAddr, "status-addr", "", "serve /healthz, /metrics and /v1/progress on this address")
	fl.BoolVar(&f.normalize, "normalize", false, "normalize numbers to international format")
	fl.StringVar(&f.profileDir, "profile-dir", "", "Chrome user data dir that keeps the WhatsApp login")
	_ = cmd.MarkFlagRequired("numbers")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

// apply lets explicitly set flags win over config and env.
func (f sendFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fl := cmd.Flags()
	if fl.Changed("headless") {
		cfg.WhatsApp.Headless = f.headless
	}
	if fl.Changed("delay-min") {
		cfg.Pacing.DelayMin = seconds(f.delayMin)
	}
	if fl.Changed("delay-max") {
		cfg.Pacing.DelayMax = seconds(f.delayMax)
	}
	if fl.Changed("status-addr") {
		cfg.HTTP.Addr = f.statusAddr
	}
	if fl.Changed("normalize") {
		cfg.Recipients.Normalize = f.normalize
	}
	if fl.Changed("profile-dir") {
		cfg.WhatsApp.ProfileDir = f.profileDir
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// sinks holds the optional outputs opened before a run.
type sinks struct {
	runs     repository.RunsRepository
	outcomes repository.CHOutcomesRepository
	rdb      *redis.Client
	pub      *kafka.Publisher

	closers []func() error
}

func openSinks(cfg config.Config, log *zap.Logger) (*sinks, error) {
	s := &sinks{}

	if cfg.MySQL.Enabled {
		mysqlDB, err := db.OpenMySQL(cfg.MySQL)
		if err != nil {
			s.close(log)
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		s.closers = append(s.closers, mysqlDB.Close)
		s.runs = repository.NewRunsRepository(mysqlDB)
	}
	if cfg.ClickHouse.Enabled {
		chDB, err := db.OpenClickHouse(cfg.ClickHouse)
		if err != nil {
			s.close(log)
			return nil, fmt.Errorf("open clickhouse: %w", err)
		}
		s.closers = append(s.closers, chDB.Close)
		s.outcomes = repository.NewCHOutcomesRepository(chDB)
	}
	if cfg.Redis.Enabled {
		rdb, err := db.NewRedisClient(cfg.Redis)
		if err != nil {
			s.close(log)
			return nil, fmt.Errorf("open redis: %w", err)
		}
		s.closers = append(s.closers, rdb.Close)
		s.rdb = rdb
	}
	if cfg.Kafka.Enabled {
		s.pub = kafka.NewPublisherFromConfig(kafka.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}, log)
		s.closers = append(s.closers, s.pub.Close)
	}

	return s, nil
}

func (s *sinks) close(log *zap.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Warn("close sink", zap.Error(err))
		}
	}
}

func runSend(ctx context.Context, out io.Writer, cfg config.Config, f sendFlags, log *zap.Logger) error {
	delay := model.DelayRange{Min: cfg.Pacing.DelayMin, Max: cfg.Pacing.DelayMax}
	if err := delay.Validate(); err != nil {
		return err
	}

	var opts []recipients.Option
	if cfg.Recipients.Normalize {
		opts = append(opts, recipients.Normalize(cfg.Recipients.CountryCode))
	}
	list, err := recipients.LoadFile(f.numbers, opts...)
	if err != nil {
		return err
	}

	runID := util.NewID()
	log = log.With(zap.String("run_id", runID))

	if len(list) == 0 {
		log.Warn("no recipients to process", zap.String("file", f.numbers))
		empty := model.NewSendReport(runID, f.message, 0)
		empty.StartedAt = time.Now()
		empty.FinishedAt = empty.StartedAt
		return finish(out, empty, f, log)
	}

	s, err := openSinks(cfg, log)
	if err != nil {
		return err
	}
	defer s.close(log)

	if s.rdb != nil {
		sess, err := lock.Acquire(ctx, s.rdb, cfg.Redis.LockKey, runID, cfg.Redis.LockTTL)
		if err != nil {
			return err
		}
		lockCtx, cancelLock := context.WithCancel(ctx)
		go sess.KeepAlive(lockCtx, log)
		defer func() {
			cancelLock()
			relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := sess.Release(relCtx); err != nil {
				log.Warn("release session lock", zap.Error(err))
			}
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.MustRegister(reg)

	var observers []worker.Observer
	if cfg.HTTP.Addr != "" {
		progress := apphttp.NewProgress()
		observers = append(observers, progress)

		srv := apphttp.NewServer(progress, reg, log)
		go func() {
			if err := srv.Start(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("status server", zap.Error(err))
			}
		}()
		defer func() {
			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shCtx)
		}()
	}
	if s.pub != nil {
		observers = append(observers, s.pub)
	}

	start := func(ctx context.Context) (driver.UIDriver, error) {
		if f.dryRun {
			return driver.NewDryRun(log), nil
		}
		opts := whatsapp.OptionsFromConfig(cfg.WhatsApp, cfg.Pacing)
		opts.Log = log
		return whatsapp.New(ctx, opts)
	}

	var rep *model.SendReport
	err = driver.Use(ctx, start, func(d driver.UIDriver) error {
		sender := worker.NewSender(d, delay, log)
		sender.Observers = observers
		if cfg.Pacing.Cooldown.FailThreshold > 0 {
			sender.Cooldown = pacing.NewCooldown(cfg.Pacing.Cooldown.FailThreshold, cfg.Pacing.Cooldown.Pause)
		}

		var err error
		rep, err = sender.Run(ctx, runID, list, f.message)
		return err
	})
	if rep == nil {
		return err
	}
	if err != nil {
		// the run finished; a close failure only deserves a warning
		log.Warn("driver shutdown", zap.Error(err))
	}

	archive(context.WithoutCancel(ctx), s, rep, log)
	return finish(out, rep, f, log)
}

// archive writes the finished report to the enabled stores; failures are logged.
func archive(ctx context.Context, s *sinks, rep *model.SendReport, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if s.runs != nil {
		if err := s.runs.Save(ctx, rep); err != nil {
			log.Error("archive run to mysql", zap.Error(err))
		}
	}
	if s.outcomes != nil {
		rows := make([]model.OutcomeRow, 0, len(rep.Entries))
		for _, e := range rep.Entries {
			rows = append(rows, model.NewOutcomeRow(rep.RunID, e))
		}
		if err := s.outcomes.InsertBatch(ctx, rows); err != nil {
			log.Error("archive outcomes to clickhouse", zap.Error(err))
		}
	}
}

func finish(out io.Writer, rep *model.SendReport, f sendFlags, log *zap.Logger) error {
	if err := report.WriteSummary(out, rep); err != nil {
		return err
	}
	if f.reportOut != "" {
		if err := report.SaveJSON(f.reportOut, rep); err != nil {
			log.Error("write json report", zap.String("path", f.reportOut), zap.Error(err))
		}
	}
	return nil
}
