//go:build linux

package proc

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockTicksAndPageSize(t *testing.T) {
	// Defaults (no env overrides)
	t.Setenv("CLK_TCK", "")
	t.Setenv("PAGE_SIZE", "")
	assert.Greater(t, ClockTicks(), 0, "ClockTicks must be > 0")
	assert.Greater(t, PageSize(), 0, "PageSize must be > 0")

	// Env overrides (use weird-but-valid values)
	t.Setenv("CLK_TCK", "250")
	t.Setenv("PAGE_SIZE", "16384")
	assert.Equal(t, 250, ClockTicks())
	assert.Equal(t, 16384, PageSize())
}

func TestReadProcStat_Self(t *testing.T) {
	me := os.Getpid()
	st, err := ReadProcStat(me)
	require.NoError(t, err)
	assert.NotEmpty(t, st.Comm)
	assert.False(t, st.Zombie())

	// Take a second sample to ensure counters do not go backwards
	time.Sleep(5 * time.Millisecond)
	st2, err := ReadProcStat(me)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, st2.UTime, st.UTime)
	assert.GreaterOrEqual(t, st2.STime, st.STime)
}

func TestReadProcStat_NoSuchPid(t *testing.T) {
	_, err := ReadProcStat(99999999)
	require.Error(t, err)
}

func TestReadProcStat_CommMatchesProcComm(t *testing.T) {
	// comm may contain spaces; the parser splits on the last ") ".
	b, err := os.ReadFile("/proc/self/comm")
	require.NoError(t, err)
	st, err := ReadProcStat(os.Getpid())
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(string(b)), st.Comm)
}

func TestReadProcRSS_Self(t *testing.T) {
	rss, err := ReadProcRSS(os.Getpid())
	// On very minimal kernels without smaps_rollup and statm, this would fail,
	// but that’s extremely unlikely. If it does, mark as skip.
	if err != nil {
		t.Skipf("skipping: unable to read RSS for self: %v", err)
	}
	assert.Greater(t, rss, uint64(0))
}

func TestReadProcRSS_NoSuchPid(t *testing.T) {
	_, err := ReadProcRSS(99999999)
	require.ErrorIs(t, err, ErrNoRSS)
}

func TestReadSystemCPU(t *testing.T) {
	a0, t0, err := ReadSystemCPU()
	require.NoError(t, err)
	assert.Greater(t, t0, uint64(0))
	assert.GreaterOrEqual(t, t0, a0)

	time.Sleep(10 * time.Millisecond)
	a1, t1, err := ReadSystemCPU()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, a1, a0)
	assert.GreaterOrEqual(t, t1, t0)
}
