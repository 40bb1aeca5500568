package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os/signal"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/eapache/queue"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/iobufs/internal/cli/output"
	"github.com/marmos91/iobufs/internal/cli/timeutil"
	"github.com/marmos91/iobufs/internal/logger"
	"github.com/marmos91/iobufs/internal/telemetry"
	"github.com/marmos91/iobufs/pkg/buffer"
	"github.com/marmos91/iobufs/pkg/bufpool"
	"github.com/marmos91/iobufs/pkg/config"
	"github.com/marmos91/iobufs/pkg/metrics"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/iobufs/pkg/metrics/prometheus"
)

// ErrDoubleCheckout is returned when the pool hands one buffer to two
// holders at the same time.
var ErrDoubleCheckout = errors.New("buffer checked out twice")

var (
	soakWorkers     int
	soakDuration    time.Duration
	soakHold        int
	soakMetricsPort int
	soakProfile     bool
)

var soakCmd = &cobra.Command{
	Use:   "soak",
	Short: "Run concurrent checkout/release load against a pool",
	Long: `Build a pool from the configuration and hammer it from several workers.

Each worker checks out header, body and odd-sized buffers, fills them with a
random amount of data and holds them in a FIFO of --hold buffers before
releasing the oldest. Every checkout is tracked so a buffer handed to two
holders at once fails the run.

The background inspector runs for the whole soak, and edits to the config
file's pool tunables are applied live.

Examples:
  # Ten seconds on every CPU
  iobufs soak

  # Expose Prometheus metrics while running
  iobufs soak --duration 5m --metrics-port 9090

  # Force a direct memory downgrade
  IOBUFS_POOL_DIRECT_BUDGET=256KiB iobufs soak`,
	RunE: runSoak,
}

func init() {
	soakCmd.Flags().IntVarP(&soakWorkers, "workers", "w", runtime.NumCPU(), "Number of concurrent workers")
	soakCmd.Flags().DurationVarP(&soakDuration, "duration", "d", 10*time.Second, "How long to run")
	soakCmd.Flags().IntVar(&soakHold, "hold", 16, "Buffers each worker holds before releasing")
	soakCmd.Flags().IntVar(&soakMetricsPort, "metrics-port", 0, "Serve Prometheus metrics on this port (overrides metrics.port)")
	soakCmd.Flags().BoolVar(&soakProfile, "profile", false, "Enable Pyroscope profiling (overrides profiling.enabled)")
}

func runSoak(cmd *cobra.Command, args []string) error {
	if soakWorkers < 1 {
		return fmt.Errorf("--workers must be at least 1")
	}
	if soakHold < 0 {
		return fmt.Errorf("--hold must not be negative")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if soakMetricsPort > 0 {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Port = soakMetricsPort
	}
	if soakProfile {
		cfg.Profiling.Enabled = true
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolCfg := cfg.Pool.ToBufpool()
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		defer metrics.Reset()
		poolCfg.Metrics = metrics.NewPoolMetrics()
	}

	pool := bufpool.New(poolCfg)

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Profiling.Enabled,
		ServiceName:    "iobufs",
		ServiceVersion: Version,
		Endpoint:       cfg.Profiling.Endpoint,
		ProfileTypes:   cfg.Profiling.ProfileTypes,
		Tags:           map[string]string{"pool_id": pool.ID()},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("Profiling shutdown error", logger.Err(err))
		}
	}()

	if cfg.Metrics.Enabled {
		srv := startMetricsServer(cfg.Metrics.Port)
		defer shutdownMetricsServer(srv)
	}

	pool.Start(ctx)
	defer pool.Stop()

	if path := configSource(); path != "" {
		watchCtx, cancelWatch := context.WithCancel(ctx)
		defer cancelWatch()
		go func() {
			err := config.Watch(watchCtx, path, func(c *config.Config) {
				logger.SetLevel(c.Logging.Level)
				pool.ApplyTunables(c.Pool.Tunables())
			})
			if err != nil {
				logger.Warn("Config watch stopped", logger.Path(path), logger.Err(err))
			}
		}()
	}

	logger.Info("Soak started",
		logger.PoolID(pool.ID()),
		"workers", soakWorkers,
		"duration", soakDuration,
		"hold", soakHold,
	)

	s := newSoak(pool, soakHold)
	start := time.Now()
	runErr := s.run(ctx, soakWorkers, soakDuration)

	stats := pool.Report()
	printer := output.NewPrinter(cmd.OutOrStdout(), output.FormatTable, false)
	if err := output.PrintKeyValues(printer.Writer(), s.summary(stats, time.Since(start))); err != nil {
		return err
	}

	if runErr != nil {
		printer.Warning(fmt.Sprintf("Soak failed: %v", runErr))
		return runErr
	}
	printer.Success("Soak passed: no buffer was handed out twice")
	return nil
}

// soak drives concurrent traffic against a pool and tracks ownership of
// every checked-out buffer.
type soak struct {
	pool *bufpool.Pool
	hold int

	owners sync.Map // buffer.Buffer -> worker id

	checkouts atomic.Int64
	releases  atomic.Int64
	written   atomic.Int64
}

func newSoak(pool *bufpool.Pool, hold int) *soak {
	return &soak{pool: pool, hold: hold}
}

// run starts workers and blocks until d elapses, ctx is cancelled or a
// worker fails. Buffers still held are released before returning.
func (s *soak) run(ctx context.Context, workers int, d time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for id := 0; id < workers; id++ {
		g.Go(func() error {
			return s.worker(gctx, id)
		})
	}
	return g.Wait()
}

func (s *soak) worker(ctx context.Context, id int) error {
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(id)))
	held := queue.New()
	defer func() {
		for held.Length() > 0 {
			s.release(held.Remove().(buffer.Buffer))
		}
	}()

	payload := make([]byte, 64<<10)
	for i := range payload {
		payload[i] = byte(i)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		b, err := s.checkout(rng)
		if err != nil {
			return err
		}
		if prev, loaded := s.owners.LoadOrStore(b, id); loaded {
			return fmt.Errorf("%w: %T held by worker %d, handed to worker %d", ErrDoubleCheckout, b, prev, id)
		}
		if b.Len() != 0 {
			return fmt.Errorf("checked out %s buffer with %d stale bytes", b.Kind(), b.Len())
		}

		n := rng.IntN(b.Capacity() + 1)
		if err := fill(b, payload[:min(n, len(payload))]); err != nil {
			return err
		}
		s.written.Add(int64(b.Len()))

		held.Add(b)
		for held.Length() > s.hold {
			s.release(held.Remove().(buffer.Buffer))
		}
	}
}

func (s *soak) checkout(rng *rand.Rand) (buffer.Buffer, error) {
	s.checkouts.Add(1)
	switch r := rng.IntN(10); {
	case r < 4:
		return s.pool.CheckoutHeader()
	case r < 8:
		return s.pool.CheckoutBody()
	default:
		return s.pool.Checkout(1 + rng.IntN(32<<10))
	}
}

// release gives up ownership before the pool can hand the buffer out again.
func (s *soak) release(b buffer.Buffer) {
	s.owners.Delete(b)
	s.pool.Release(b)
	s.releases.Add(1)
}

func (s *soak) summary(stats bufpool.Stats, elapsed time.Duration) [][2]string {
	return [][2]string{
		{"Elapsed", timeutil.FormatDuration(elapsed)},
		{"Checkouts", strconv.FormatInt(s.checkouts.Load(), 10)},
		{"Checkout rate", timeutil.FormatRate(s.checkouts.Load(), elapsed)},
		{"Releases", strconv.FormatInt(s.releases.Load(), 10)},
		{"Bytes written", strconv.FormatInt(s.written.Load(), 10)},
		{"Pooled (headers/bodies/others)", fmt.Sprintf("%d/%d/%d", stats.Headers, stats.Bodies, stats.Others)},
		{"Pooled total", fmt.Sprintf("%d/%d", stats.Total, stats.MaxPooled)},
		{"Header usage", fmt.Sprintf("%.1f%% (%d samples)", stats.HeaderUsage, stats.HeaderSamples)},
		{"Body usage", fmt.Sprintf("%.1f%% (%d samples)", stats.BodyUsage, stats.BodySamples)},
		{"Header kind", stats.HeaderKind.String()},
		{"Body kind", stats.BodyKind.String()},
		{"Direct bytes", strconv.FormatInt(stats.DirectBytes, 10)},
	}
}

// fill writes data into b. Every buffer kind accepts writes.
func fill(b buffer.Buffer, data []byte) error {
	w, ok := b.(io.Writer)
	if !ok {
		return fmt.Errorf("%T does not accept writes", b)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("fill %s buffer: %w", b.Kind(), err)
	}
	return nil
}

func startMetricsServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Metrics server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server error", logger.Err(err))
		}
	}()
	return srv
}

func shutdownMetricsServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Metrics server shutdown error", logger.Err(err))
	}
}
