//go:build linux

package cgroup

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Detect(t *testing.T) {
	ver, str, err := Detect()
	require.NoError(t, err)
	assert.NotEmpty(t, str)

	t.Logf("detected %s: %s", ver, str)
}

func TestMounts_Version(t *testing.T) {
	assert.Equal(t, Unsupported, Mounts{}.Version())
	assert.Equal(t, V1, Mounts{V1: []string{"/sys/fs/cgroup/cpu"}}.Version())
	assert.Equal(t, V2, Mounts{V2: []string{"/sys/fs/cgroup"}}.Version())
	assert.Equal(t, Hybrid, Mounts{V1: []string{"/a"}, V2: []string{"/b"}}.Version())
	assert.Equal(t, "cgroup2 on /b", Mounts{V2: []string{"/b"}}.String())
}

func TestParseProcs(t *testing.T) {
	t.Run("sorted_unique", func(t *testing.T) {
		got, err := ParseProcs(strings.NewReader("30\n4\n\n30\n12\n"))
		require.NoError(t, err)
		assert.Equal(t, []int{4, 12, 30}, got)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := ParseProcs(strings.NewReader("4\nabc\n"))
		assert.Error(t, err)
	})
	t.Run("empty", func(t *testing.T) {
		got, err := ParseProcs(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestMounts_Procs(t *testing.T) {
	v2, v1 := t.TempDir(), t.TempDir()
	write := func(root, rel, body string) {
		dir := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "cgroup.procs"), []byte(body), 0o644))
	}
	write(v2, "system.slice/api.service", "200\n100\n")
	write(v1, "system.slice/api.service", "999\n")
	write(v1, "legacy", "7\n")

	m := Mounts{V2: []string{v2}, V1: []string{v1}}

	t.Run("unified_first", func(t *testing.T) {
		got, err := m.Procs("/system.slice/api.service")
		require.NoError(t, err)
		assert.Equal(t, []int{100, 200}, got)
	})
	t.Run("v1_fallback", func(t *testing.T) {
		got, err := m.Procs("legacy")
		require.NoError(t, err)
		assert.Equal(t, []int{7}, got)
	})
	t.Run("missing", func(t *testing.T) {
		_, err := m.Procs("/nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
	t.Run("no_escape", func(t *testing.T) {
		_, err := m.Procs("../../" + strconv.Itoa(os.Getpid()))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
