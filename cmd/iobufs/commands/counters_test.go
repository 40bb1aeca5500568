package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/iobufs/pkg/buffer"
	"github.com/marmos91/iobufs/pkg/bufpool"
)

func counts(headers, bodies, others, total int) bufpool.Counters {
	return bufpool.Counters{Headers: headers, Bodies: bodies, Others: others, Total: total}
}

// ============================================================================
// Scenario Tests
// ============================================================================

func TestReuseScenario(t *testing.T) {
	p := bufpool.New(&bufpool.Config{
		Types: buffer.Types{
			HeaderKind: buffer.KindByteArray,
			HeaderSize: 1024,
			BodyKind:   buffer.KindByteArray,
			BodySize:   2048,
			OtherKind:  buffer.KindByteArray,
		},
		MaxPooled: 1024,
	})

	report, err := runReuseScenario(p)
	require.NoError(t, err)
	require.Len(t, report, 4)

	assert.Equal(t, counts(0, 0, 0, 0), report[0].Counters)
	assert.Equal(t, counts(10, 10, 0, 20), report[1].Counters)
	assert.Equal(t, counts(10, 10, 0, 20), report[2].Counters)
	assert.Equal(t, counts(30, 30, 0, 60), report[3].Counters)
}

func TestDowngradeScenario(t *testing.T) {
	report, err := runDowngradeScenario()
	require.NoError(t, err)
	require.Len(t, report, 8)

	want := []struct {
		name     string
		counters bufpool.Counters
	}{
		{"cycle 10+10", counts(10, 10, 0, 20)},
		{"cycle 10+10", counts(10, 10, 0, 20)},
		{"cycle 30+30", counts(25, 25, 0, 50)},
		{"sweep +30s", counts(25, 25, 0, 50)},
		{"sweep +90s", counts(0, 25, 0, 25)},
		{"checkout 43 bodies", counts(0, 0, 0, 0)},
		{"release 43 bodies", counts(0, 43, 0, 43)},
		{"sweep +150s", counts(0, 35, 0, 35)},
	}
	for i, w := range want {
		assert.Equal(t, w.name, report[i].Name)
		assert.Equal(t, w.counters, report[i].Counters, w.name)
	}

	assert.Equal(t, buffer.KindDirect, report[4].BodyKind)
	assert.Equal(t, buffer.KindByteArray, report[5].BodyKind)
	assert.Equal(t, int64(40*1024), report[7].Direct)
}

func TestPhaseReportTable(t *testing.T) {
	report := phaseReport{
		{Name: "cycle 10+10", Counters: counts(10, 10, 0, 20), BodyKind: buffer.KindDirect, Direct: 10240},
	}

	require.Len(t, report.Rows(), 1)
	assert.Equal(t, []string{"cycle 10+10", "10", "10", "0", "20", "direct", "10240"}, report.Rows()[0])
	assert.Len(t, report.Headers(), len(report.Rows()[0]))
}

// ============================================================================
// Command Tests
// ============================================================================

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := GetRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestCommands(t *testing.T) {
	t.Run("VersionShort", func(t *testing.T) {
		Version = "1.2.3"
		out := execute(t, "version", "--short")
		assert.Equal(t, "1.2.3\n", out)
	})

	t.Run("CountersDowngradeJSON", func(t *testing.T) {
		out := execute(t, "counters", "--downgrade", "-o", "json")
		assert.Contains(t, out, `"phase": "sweep +150s"`)
		assert.Contains(t, out, `"body_kind": "byte_array"`)
	})

	t.Run("ConfigShowJSON", func(t *testing.T) {
		t.Setenv("IOBUFS_POOL_DIRECT_BUDGET", "40KiB")
		out := execute(t, "config", "show", "-o", "json", "--config", t.TempDir()+"/missing.yaml")
		assert.Contains(t, out, `"DirectBudget": "40KiB"`)
		assert.Contains(t, out, `"Kind": "direct"`)
	})
}
