package options

import (
	"context"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nspcc-dev/thor-go/pkg/config"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
	"go.uber.org/zap/zapcore"
)

func TestGetTimeoutContext(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		start := time.Now()
		set := flag.NewFlagSet("flagSet", flag.ExitOnError)
		ctx := cli.NewContext(cli.NewApp(), set, nil)
		actualCtx, _ := GetTimeoutContext(ctx)
		end := time.Now()
		dl, _ := actualCtx.Deadline()
		require.True(t, start.Before(dl) && dl.Before(end.Add(DefaultTimeout)))
	})

	t.Run("set", func(t *testing.T) {
		start := time.Now()
		set := flag.NewFlagSet("flagSet", flag.ExitOnError)
		set.Duration("timeout", time.Duration(20), "")
		ctx := cli.NewContext(cli.NewApp(), set, nil)
		actualCtx, _ := GetTimeoutContext(ctx)
		end := time.Now()
		dl, _ := actualCtx.Deadline()
		require.True(t, start.Before(dl) && dl.Before(end.Add(time.Nanosecond*20)))
	})

	t.Run("await", func(t *testing.T) {
		start := time.Now()
		set := flag.NewFlagSet("flagSet", flag.ExitOnError)
		set.Bool("await", true, "")
		ctx := cli.NewContext(cli.NewApp(), set, nil)
		actualCtx, _ := GetTimeoutContext(ctx)
		dl, _ := actualCtx.Deadline()
		require.True(t, dl.After(start.Add(DefaultTimeout)))
	})
}

func TestGetRPCClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/blocks/0" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"number":0,"id":"0x00000000c05a20fbca2bf6ae3affba6af4a74b800b585bf7a4988aba7aea69f6","parentID":"0xffffffff00000000000000000000000000000000000000000000000000000000","timestamp":1526400000,"gasLimit":10000000,"transactions":[]}`))
	}))
	t.Cleanup(srv.Close)

	t.Run("flag", func(t *testing.T) {
		set := flag.NewFlagSet("flagSet", flag.ExitOnError)
		set.String(RPCEndpointFlag, srv.URL, "")
		ctx := cli.NewContext(cli.NewApp(), set, nil)
		gctx, cancel := GetTimeoutContext(ctx)
		defer cancel()
		c, err := GetRPCClient(gctx, ctx)
		require.Nil(t, err)
		defer c.Close()
		tag, cerr := c.ChainTag()
		require.NoError(t, cerr)
		require.Equal(t, uint8(246), tag)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(config.EndpointEnv, srv.URL)
		set := flag.NewFlagSet("flagSet", flag.ExitOnError)
		ctx := cli.NewContext(cli.NewApp(), set, nil)
		c, err := GetRPCClient(context.Background(), ctx)
		require.Nil(t, err)
		c.Close()
	})

	t.Run("bad config", func(t *testing.T) {
		set := flag.NewFlagSet("flagSet", flag.ExitOnError)
		set.String("config-file", filepath.Join(t.TempDir(), "nope.yml"), "")
		ctx := cli.NewContext(cli.NewApp(), set, nil)
		_, err := GetRPCClient(context.Background(), ctx)
		require.NotNil(t, err)
		require.Equal(t, 1, err.ExitCode())
	})
}

func TestGetAccFromContext(t *testing.T) {
	set := flag.NewFlagSet("flagSet", flag.ExitOnError)
	set.String("keystore", "", "")
	ctx := cli.NewContext(cli.NewApp(), set, nil)
	_, err := GetAccFromContext(ctx, "keystore")
	require.ErrorIs(t, err, errNoKeystore)

	require.NoError(t, set.Set("keystore", filepath.Join(t.TempDir(), "nope.json")))
	_, err = GetAccFromContext(ctx, "keystore")
	require.Error(t, err)
}

func TestHandleLoggingParams(t *testing.T) {
	d := t.TempDir()
	testLog := filepath.Join(d, "file.log")

	t.Run("logdir is a file", func(t *testing.T) {
		logfile := filepath.Join(d, "logdir")
		require.NoError(t, os.WriteFile(logfile, []byte{1, 2, 3}, os.ModePerm))
		cfg := config.Logger{
			LogPath: filepath.Join(logfile, "file.log"),
		}
		_, lvl, err := HandleLoggingParams(false, cfg)
		require.Error(t, err)
		require.Nil(t, lvl)
	})

	t.Run("invalid level", func(t *testing.T) {
		cfg := config.Logger{
			LogPath:  testLog,
			LogLevel: "qwerty",
		}
		_, lvl, err := HandleLoggingParams(false, cfg)
		require.Error(t, err)
		require.Nil(t, lvl)
	})

	t.Run("default", func(t *testing.T) {
		cfg := config.Logger{
			LogPath: testLog,
		}
		logger, lvl, err := HandleLoggingParams(false, cfg)
		require.NoError(t, err)
		t.Cleanup(func() {
			require.NoError(t, logger.Sync())
		})
		require.Equal(t, zapcore.InfoLevel, lvl.Level())
		require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
		require.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("warn", func(t *testing.T) {
		cfg := config.Logger{
			LogPath:  testLog,
			LogLevel: "warn",
		}
		logger, lvl, err := HandleLoggingParams(false, cfg)
		require.NoError(t, err)
		t.Cleanup(func() {
			require.NoError(t, logger.Sync())
		})
		require.Equal(t, zapcore.WarnLevel, lvl.Level())
		require.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	})

	t.Run("debug", func(t *testing.T) {
		cfg := config.Logger{
			LogPath:     testLog,
			LogLevel:    "warn",
			LogEncoding: "json",
		}
		logger, lvl, err := HandleLoggingParams(true, cfg)
		require.NoError(t, err)
		t.Cleanup(func() {
			require.NoError(t, logger.Sync())
		})
		require.Equal(t, zapcore.DebugLevel, lvl.Level())
		require.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	})
}
