package proc

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalk(t *testing.T) {
	kids := map[int][]int{
		1:  {10, 20},
		10: {11},
		11: {12},
		20: {},
		99: {100},
	}
	assert.Equal(t, []int{1, 10, 20, 11, 12}, walk(1, kids))
	assert.Equal(t, []int{12}, walk(12, kids), "leaf")

	// a cycle in a stale table must not loop
	assert.Equal(t, []int{5, 6}, walk(5, map[int][]int{5: {6}, 6: {5}}))
}

func TestTree_IncludesGrandchildren(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh(1)")
	}
	// sh -> sleep, sh -> sh -> sleep; the first leaf is reached before the grandchild
	cmd := exec.Command("sh", "-c", `sleep 30 & sh -c "sleep 30; true" & wait`)
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start sh(1): %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	root := cmd.Process.Pid
	var pids []int
	require.Eventually(t, func() bool {
		var err error
		pids, err = Tree(context.Background(), root)
		return err == nil && len(pids) >= 4
	}, 5*time.Second, 20*time.Millisecond, "want root, two children and a grandchild")

	assert.Equal(t, root, pids[0], "root first")
	t.Logf("tree of %d: %v", root, pids)
}

func TestTree_IncludesChildOfSelf(t *testing.T) {
	cmd := exec.Command("sleep", "5")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start sleep(1): %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	pids, err := Tree(context.Background(), os.Getpid())
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pids[0])
	assert.Contains(t, pids, cmd.Process.Pid)
}

func TestTree_MissingRoot(t *testing.T) {
	_, err := Tree(context.Background(), 99999999)
	assert.ErrorIs(t, err, ErrProcessNotFound)
}

func TestTrees(t *testing.T) {
	t.Run("skips_dead_roots", func(t *testing.T) {
		pids, err := Trees(context.Background(), []int{99999999, os.Getpid()})
		require.NoError(t, err)
		assert.Contains(t, pids, os.Getpid())
		assert.IsIncreasing(t, pids)
	})
	t.Run("all_dead", func(t *testing.T) {
		_, err := Trees(context.Background(), []int{99999999})
		assert.ErrorIs(t, err, ErrProcessNotFound)
	})
}
