package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deeksh1tha/Energy-Audit/pkg/carbon"
	"github.com/Deeksh1tha/Energy-Audit/pkg/system/proc"
)

func validCollectOpts() collectOpts {
	return collectOpts{
		interval:       time.Second,
		sampleTimeout:  500 * time.Millisecond,
		limit:          0.9,
		wCPU:           0.5,
		wMem:           0.5,
		intensity:      carbon.DefaultIntensity,
		carbonRefresh:  time.Minute,
		rescan:         time.Second,
		streamInterval: time.Second,
	}
}

func TestCollectOpts_Validate(t *testing.T) {
	o := validCollectOpts()
	require.NoError(t, o.validate())

	cases := map[string]func(*collectOpts){
		"zero_interval":    func(o *collectOpts) { o.interval = 0 },
		"zero_timeout":     func(o *collectOpts) { o.sampleTimeout = 0 },
		"cap_above_one":    func(o *collectOpts) { o.limit = 1.5 },
		"cap_zero":         func(o *collectOpts) { o.limit = 0 },
		"negative_weight":  func(o *collectOpts) { o.wCPU = -1 },
		"zero_weights":     func(o *collectOpts) { o.wCPU, o.wMem = 0, 0 },
		"ema_out_of_range": func(o *collectOpts) { o.ema = 2 },
		"negative_carbon":  func(o *collectOpts) { o.intensity = -1 },
		"file_no_refresh":  func(o *collectOpts) { o.carbonFile, o.carbonRefresh = "x", 0 },
		"zero_rescan":      func(o *collectOpts) { o.rescan = 0 },
		"zero_stream":      func(o *collectOpts) { o.streamInterval = 0 },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			o := validCollectOpts()
			mut(&o)
			assert.Error(t, o.validate())
		})
	}

	t.Run("no_cap_ignores_cap_value", func(t *testing.T) {
		o := validCollectOpts()
		o.noCap, o.limit = true, 7
		assert.NoError(t, o.validate())
	})
}

func TestCollectOpts_BaseIntensity(t *testing.T) {
	o := validCollectOpts()
	o.intensity = 321
	v, err := o.baseIntensity()
	require.NoError(t, err)
	assert.Equal(t, 321.0, v)

	o.carbonSource = "Natural-Gas"
	v, err = o.baseIntensity()
	require.NoError(t, err)
	assert.Equal(t, 490.0, v)

	o.carbonSource = "peat"
	_, err = o.baseIntensity()
	assert.ErrorIs(t, err, carbon.ErrUnknownSource)
}

func TestCollectOpts_Config(t *testing.T) {
	o := validCollectOpts()
	o.noCap, o.noCarbon = true, true
	cfg := o.config()
	assert.Equal(t, time.Second, cfg.Interval)
	assert.True(t, cfg.DisableCap)
	assert.True(t, cfg.DisableCarbon)
	assert.Equal(t, 0.9, cfg.Cap)
}

func TestDefaultServiceName(t *testing.T) {
	a, b := defaultServiceName(), defaultServiceName()
	assert.True(t, strings.HasPrefix(a, "service-"))
	assert.Len(t, a, len("service-")+6)
	assert.NotEqual(t, a, b)
}

func TestSetupLogging(t *testing.T) {
	assert.NoError(t, setupLogging("debug", "json"))
	assert.NoError(t, setupLogging("warn", "text"))
	assert.Error(t, setupLogging("loud", "text"))
	assert.Error(t, setupLogging("info", "xml"))
}

func TestEnvDefault(t *testing.T) {
	newCmd := func() (*cobra.Command, *string) {
		var v string
		c := &cobra.Command{Use: "x"}
		c.Flags().StringVar(&v, "pid-dir", "flag-default", "")
		return c, &v
	}

	t.Run("env_used_when_flag_unset", func(t *testing.T) {
		t.Setenv(_envPIDDir, "/from/env")
		c, v := newCmd()
		require.NoError(t, c.Flags().Parse(nil))
		envDefault(c, "pid-dir", _envPIDDir, v)
		assert.Equal(t, "/from/env", *v)
	})
	t.Run("flag_wins", func(t *testing.T) {
		t.Setenv(_envPIDDir, "/from/env")
		c, v := newCmd()
		require.NoError(t, c.Flags().Parse([]string{"--pid-dir", "/from/flag"}))
		envDefault(c, "pid-dir", _envPIDDir, v)
		assert.Equal(t, "/from/flag", *v)
	})
	t.Run("empty_env_ignored", func(t *testing.T) {
		t.Setenv(_envPIDDir, "")
		c, v := newCmd()
		require.NoError(t, c.Flags().Parse(nil))
		envDefault(c, "pid-dir", _envPIDDir, v)
		assert.Equal(t, "flag-default", *v)
	})
}

func TestLivePIDs(t *testing.T) {
	ctx := context.Background()
	self := os.Getpid()

	got, err := livePIDs(ctx, []int{99999999, self, self}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{self}, got)

	_, err = livePIDs(ctx, []int{99999999}, false, []string{"/no/such/cgroup"})
	assert.ErrorIs(t, err, proc.ErrProcessNotFound)
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "collect")
	assert.Contains(t, names, "report")
}

func TestRunReport_LogsOnce(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	o := reportOpts{
		name:       "api",
		timeout:    200 * time.Millisecond,
		ingestAddr: "127.0.0.1:1", // nothing listens; the pid file carries the report
		pidDir:     t.TempDir(),
	}
	require.NoError(t, runReport(context.Background(), o, []string{strconv.Itoa(os.Getpid())}))

	assert.Equal(t, 1, strings.Count(buf.String(), "msg=reported"), buf.String())
	_, err := os.Stat(filepath.Join(o.pidDir, "api.json"))
	assert.NoError(t, err)
}
