//go:build linux

package proc

import (
	"context"
	"os"
	"testing"

	"github.com/prometheus/procfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deeksh1tha/Energy-Audit/pkg/types"
)

func TestHandle_NetCounters(t *testing.T) {
	t.Run("self_matches_net_dev", func(t *testing.T) {
		p, err := procfs.NewProc(os.Getpid())
		require.NoError(t, err)
		dev, err := p.NetDev()
		if err != nil {
			t.Skipf("no net/dev: %v", err)
		}
		var before types.Bytes
		for name, line := range dev {
			if name != "lo" {
				before += types.ToBytes(line.RxBytes)
			}
		}

		h := &Handle{pid: os.Getpid()}
		rx, _ := h.netCounters(context.Background())
		// counters only grow between the two reads
		assert.GreaterOrEqual(t, rx, before)
	})

	t.Run("gone_pid_reads_zero", func(t *testing.T) {
		h := &Handle{pid: 99999999}
		rx, tx := h.netCounters(context.Background())
		assert.Zero(t, rx)
		assert.Zero(t, tx)
	})
}
