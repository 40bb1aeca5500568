package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/iobufs/internal/cli/output"
	"github.com/marmos91/iobufs/pkg/buffer"
	"github.com/marmos91/iobufs/pkg/bufpool"
)

var (
	countersOutput    string
	countersDowngrade bool
)

var countersCmd = &cobra.Command{
	Use:   "counters",
	Short: "Run a deterministic reuse scenario and print pool counters",
	Long: `Run a fixed sequence of checkouts and releases against a fresh pool and
print the queue counters after each phase.

The default scenario uses the configured pool: 10 headers and 10 bodies are
checked out and released twice, then 30 and 30.

With --downgrade a pool with 1KiB heap headers, 1KiB direct bodies, a 50
buffer cap and a 40KiB direct budget is driven on a simulated clock through
idle sweeps and a direct-to-heap downgrade.

Examples:
  iobufs counters
  iobufs counters --downgrade -o json`,
	RunE: runCounters,
}

func init() {
	countersCmd.Flags().StringVarP(&countersOutput, "output", "o", "table", "Output format (table|json|yaml)")
	countersCmd.Flags().BoolVar(&countersDowngrade, "downgrade", false, "Run the direct budget and idle eviction scenario")
}

func runCounters(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(countersOutput)
	if err != nil {
		return err
	}

	var report phaseReport
	if countersDowngrade {
		report, err = runDowngradeScenario()
	} else {
		cfg, lerr := loadConfig()
		if lerr != nil {
			return lerr
		}
		if err := InitLogger(cfg); err != nil {
			return err
		}
		report, err = runReuseScenario(bufpool.New(cfg.Pool.ToBufpool()))
	}
	if err != nil {
		return err
	}

	return output.NewPrinter(cmd.OutOrStdout(), format, false).Print(report)
}

// phase is the pool state after one scenario step.
type phase struct {
	Name     string             `json:"phase" yaml:"phase"`
	Counters bufpool.Counters   `json:"counters" yaml:"counters"`
	BodyKind buffer.StorageKind `json:"body_kind" yaml:"body_kind"`
	Direct   int64              `json:"direct_bytes" yaml:"direct_bytes"`
}

type phaseReport []phase

func (r *phaseReport) record(p *bufpool.Pool, name string) {
	s := p.Stats()
	*r = append(*r, phase{
		Name:     name,
		Counters: s.Counters,
		BodyKind: s.BodyKind,
		Direct:   s.DirectBytes,
	})
}

func (r phaseReport) Headers() []string {
	return []string{"Phase", "Headers", "Bodies", "Others", "Total", "Body kind", "Direct bytes"}
}

func (r phaseReport) Rows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, ph := range r {
		rows = append(rows, []string{
			ph.Name,
			strconv.Itoa(ph.Counters.Headers),
			strconv.Itoa(ph.Counters.Bodies),
			strconv.Itoa(ph.Counters.Others),
			strconv.Itoa(ph.Counters.Total),
			ph.BodyKind.String(),
			strconv.FormatInt(ph.Direct, 10),
		})
	}
	return rows
}

func runReuseScenario(p *bufpool.Pool) (phaseReport, error) {
	var report phaseReport
	report.record(p, "new")

	for _, n := range []int{10, 10, 30} {
		if err := cycle(p, n); err != nil {
			return nil, err
		}
		report.record(p, fmt.Sprintf("cycle %d+%d", n, n))
	}
	return report, nil
}

// cycle checks out n headers and n bodies and then releases all of them.
func cycle(p *bufpool.Pool, n int) error {
	held := make([]buffer.Buffer, 0, 2*n)
	defer func() {
		for _, b := range held {
			p.Release(b)
		}
	}()

	for i := 0; i < n; i++ {
		h, err := p.CheckoutHeader()
		if err != nil {
			return fmt.Errorf("checkout header: %w", err)
		}
		held = append(held, h)

		b, err := p.CheckoutBody()
		if err != nil {
			return fmt.Errorf("checkout body: %w", err)
		}
		held = append(held, b)
	}
	return nil
}

// manualClock is advanced explicitly so idle sweeps are reproducible.
type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func downgradeConfig(clock *manualClock) *bufpool.Config {
	return &bufpool.Config{
		Types: buffer.Types{
			HeaderKind: buffer.KindByteArray,
			HeaderSize: 1024,
			BodyKind:   buffer.KindDirect,
			BodySize:   1024,
			OtherKind:  buffer.KindIndirect,
		},
		MaxPooled: 50,
		Tunables: bufpool.Tunables{
			DirectBudgetKB: 40,
			IdleEviction:   true,
			SweepInterval:  20 * time.Second,
			IdleThreshold:  40 * time.Second,
		},
		Now: clock.Now,
	}
}

func runDowngradeScenario() (phaseReport, error) {
	clock := &manualClock{now: time.Unix(0, 0)}
	p := bufpool.New(downgradeConfig(clock))

	var report phaseReport
	for _, n := range []int{10, 10, 30} {
		if err := cycle(p, n); err != nil {
			return nil, err
		}
		report.record(p, fmt.Sprintf("cycle %d+%d", n, n))
	}

	// Younger than the threshold: nothing goes.
	clock.Advance(30 * time.Second)
	p.Sweep()
	report.record(p, "sweep +30s")

	// Heap headers age out; the direct body queue is not walked.
	clock.Advance(60 * time.Second)
	p.Sweep()
	report.record(p, "sweep +90s")

	payload := make([]byte, 1024)
	held := make([]buffer.Buffer, 0, 43)
	for i := 0; i < 43; i++ {
		b, err := p.CheckoutBody()
		if err != nil {
			return nil, fmt.Errorf("checkout body: %w", err)
		}
		held = append(held, b)
		if err := fill(b, payload); err != nil {
			return nil, err
		}
	}
	report.record(p, "checkout 43 bodies")

	for _, b := range held {
		p.Release(b)
	}
	report.record(p, "release 43 bodies")

	// Bodies are heap now, so the queue is walked and only the heap
	// buffers are evicted.
	clock.Advance(60 * time.Second)
	p.Sweep()
	report.record(p, "sweep +150s")

	return report, nil
}
