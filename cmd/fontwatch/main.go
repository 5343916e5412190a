package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"fontwatch/internal/config"
	"fontwatch/internal/errors"
	"fontwatch/internal/font"
	"fontwatch/internal/logger"
	"fontwatch/internal/metrics"
	"fontwatch/internal/sim"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug().Msg("Config loaded")
}

func main() {
	errFactory := errors.New()

	if len(cfg.Fonts) == 0 {
		logger.FatalWithCode(errFactory.New(errors.ErrNoFontsGiven)).
			Msg("Pass --font or set fonts in fontwatch.toml")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	metricsCfg := metrics.DefaultConfig()
	metricsCfg.Enabled = cfg.Metrics
	metricsCfg.DBPath = cfg.MetricsDB

	collector, err := metrics.NewService(metricsCfg, logger.Default())
	if err != nil {
		logger.FatalWithCode(errFactory.Wrap(errors.ErrInitMetrics, err)).
			Msg("failed to initialize metrics")
	}

	inactive := runWatches(ctx, collector)

	if err := collector.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close metrics")
	}

	if inactive > 0 {
		os.Exit(1)
	}
}

func runWatches(ctx context.Context, collector metrics.Collector) int {
	clock := font.SystemClock{}
	env := sim.New(clock, sim.Options{
		Fonts:     simFonts(cfg.Simulate),
		WebkitBug: cfg.WebkitBug,
	})

	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	interval := time.Duration(cfg.IntervalMs) * time.Millisecond

	var wg sync.WaitGroup
	var inactive atomic.Int32

	for _, spec := range cfg.Fonts {
		family, variation := config.ParseFont(spec)
		wg.Add(1)

		var watcher *font.Watcher
		startedAt := time.Now()

		watcher, err := font.NewWatcher(env, clock, font.TimerScheduler{}, font.Config{
			Family:            family,
			Variation:         variation,
			TestString:        cfg.TestString,
			Timeout:           timeout,
			Interval:          interval,
			WebkitFallbackBug: cfg.WebkitBug,
		}, func(family, variation string, status font.Status) {
			defer wg.Done()

			if status == font.StatusInactive {
				inactive.Add(1)
			}

			logger.Info().
				Str("family", family).
				Str("variation", variation).
				Str("status", status.String()).
				Int64("duration_ms", time.Since(startedAt).Milliseconds()).
				Msg("")

			snapshot := &metrics.DetectionSnapshot{
				Timestamp:  time.Now(),
				Family:     family,
				Variation:  variation,
				Status:     status.String(),
				DurationMs: time.Since(startedAt).Milliseconds(),
				Polls:      watcher.Polls(),
				TimeoutMs:  timeout.Milliseconds(),
				IntervalMs: interval.Milliseconds(),
				WebkitBug:  cfg.WebkitBug,
				TestString: cfg.TestString,
			}
			if err := collector.Record(ctx, snapshot); err != nil {
				logger.Error().Err(err).Msg("failed to record detection")
			}
		})
		if err != nil {
			logger.FatalWithCode(errors.New().Wrap(errors.ErrWatchFont, err)).
				Msg("failed to start font watch")
		}
		watcher.Start()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("Interrupted before all watches finished.")
	case <-done:
	}

	return int(inactive.Load())
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func simFonts(specs []config.SimFont) []sim.FontSpec {
	fonts := make([]sim.FontSpec, 0, len(specs))
	for _, s := range specs {
		fonts = append(fonts, sim.FontSpec{
			Family: s.Family,
			Width:  s.Width,
			Height: s.Height,
			Delay:  time.Duration(s.DelayMs) * time.Millisecond,
			Fail:   s.Fail,
		})
	}

	return fonts
}
