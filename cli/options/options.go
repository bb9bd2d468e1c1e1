/*
Package options contains a set of common CLI options and helper functions to use them.
*/
package options

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nspcc-dev/thor-go/cli/input"
	"github.com/nspcc-dev/thor-go/pkg/config"
	"github.com/nspcc-dev/thor-go/pkg/keystore"
	"github.com/nspcc-dev/thor-go/pkg/rpcclient"
	"github.com/nspcc-dev/thor-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/thor-go/pkg/rpcclient/waiter"
	"github.com/nspcc-dev/thor-go/pkg/wallet"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// DefaultTimeout is the default timeout used for RPC requests.
	DefaultTimeout = 10 * time.Second
	// DefaultAwaitableTimeout is the default timeout used for RPC requests that
	// require transaction awaiting. It is set to the approximate time of
	// three VeChainThor blocks.
	DefaultAwaitableTimeout = 3 * 10 * time.Second
)

// RPCEndpointFlag is a long flag name for an RPC endpoint. It can be used to
// check for flag presence in the context.
const RPCEndpointFlag = "rpc-endpoint"

// PasswordEnv is the environment variable keystore password is taken from
// when set, no prompt happens then.
const PasswordEnv = "THOR_KEYSTORE_PASSWORD"

// RPC is a set of flags used for RPC connections (endpoint and timeout).
var RPC = []cli.Flag{
	cli.StringFlag{
		Name:  RPCEndpointFlag + ", r",
		Usage: "Thor node REST address (overrides configuration and THOR_ENDPOINT)",
	},
	cli.DurationFlag{
		Name:  "timeout, s",
		Value: DefaultTimeout,
		Usage: "Timeout for the operation",
	},
	ConfigFile,
}

// Keystore is a set of flags used to get the signing account.
var Keystore = []cli.Flag{
	cli.StringFlag{
		Name:  "keystore, k",
		Usage: "keystore file with the key for transaction signing",
	},
	cli.StringFlag{
		Name:  "delegator",
		Usage: "keystore file of the gas payer (enables fee delegation)",
	},
}

// Revision is a flag for commands working with historic state.
var Revision = cli.StringFlag{
	Name:  "revision",
	Usage: "block revision to use (number, ID, 'best', 'justified' or 'finalized')",
}

// ConfigFile is a flag for commands that use thor-go configuration file.
var ConfigFile = cli.StringFlag{
	Name:  "config-file",
	Usage: "path to the configuration file (defaults and environment are used if not set)",
}

// Debug is a flag for commands that allow debug logging.
var Debug = cli.BoolFlag{
	Name:  "debug, d",
	Usage: "enable debug logging (LOTS of output, overrides configuration)",
}

var (
	errNoKeystore = errors.New("no keystore specified, use option '--keystore' or '-k'")
)

// GetTimeoutContext returns a context.Context with the default or a user-set timeout.
func GetTimeoutContext(ctx *cli.Context) (context.Context, func()) {
	dur := ctx.Duration("timeout")
	if dur == 0 {
		dur = DefaultTimeout
	}
	if !ctx.IsSet("timeout") && ctx.Bool("await") {
		dur = DefaultAwaitableTimeout
	}
	return context.WithTimeout(context.Background(), dur)
}

// GetConfigFromContext loads the configuration file given with --config-file
// or returns defaults with environment overrides applied.
func GetConfigFromContext(ctx *cli.Context) (config.Config, error) {
	if path := ctx.String("config-file"); len(path) != 0 {
		return config.Load(path)
	}
	return config.LoadDefault()
}

// GetRPCClient returns an initialized RPC client instance for the given
// Context. Endpoint flag has priority over configuration.
func GetRPCClient(gctx context.Context, ctx *cli.Context) (*rpcclient.Client, cli.ExitCoder) {
	cfg, err := GetConfigFromContext(ctx)
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}
	return newRPCClient(gctx, ctx, cfg)
}

func newRPCClient(gctx context.Context, ctx *cli.Context, cfg config.Config) (*rpcclient.Client, cli.ExitCoder) {
	endpoint := ctx.String(RPCEndpointFlag)
	if len(endpoint) == 0 {
		endpoint = cfg.Client.Endpoint
	}
	c, err := rpcclient.New(gctx, endpoint, ClientOptions(cfg.Client))
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}
	err = c.Init()
	if err != nil {
		c.Close()
		return nil, cli.NewExitError(err, 1)
	}
	return c, nil
}

// ClientOptions converts client configuration into rpcclient options.
func ClientOptions(cfg config.Client) rpcclient.Options {
	return rpcclient.Options{
		DialTimeout:     cfg.DialTimeout,
		RequestTimeout:  cfg.RequestTimeout,
		MaxConnsPerHost: cfg.MaxConnsPerHost,
		PollInterval:    cfg.PollInterval,
		RetryCount:      cfg.RetryCount,
	}
}

// GetRPCWithActor returns an RPC client instance and Actor instance for the
// given context. Signing accounts are taken from --keystore and --delegator.
func GetRPCWithActor(gctx context.Context, ctx *cli.Context) (*rpcclient.Client, *actor.Actor, cli.ExitCoder) {
	acc, err := GetAccFromContext(ctx, "keystore")
	if err != nil {
		return nil, nil, cli.NewExitError(err, 1)
	}
	var opts actor.Options
	if len(ctx.String("delegator")) != 0 {
		opts.Delegator, err = GetAccFromContext(ctx, "delegator")
		if err != nil {
			return nil, nil, cli.NewExitError(fmt.Errorf("delegator: %w", err), 1)
		}
	}
	cfg, err := GetConfigFromContext(ctx)
	if err != nil {
		return nil, nil, cli.NewExitError(err, 1)
	}
	c, exitErr := newRPCClient(gctx, ctx, cfg)
	if exitErr != nil {
		return nil, nil, exitErr
	}
	opts.Waiter = waiter.Config{PollConfig: waiter.PollConfig{
		PollInterval: cfg.Client.PollInterval,
		RetryCount:   cfg.Client.RetryCount,
	}}
	a, err := actor.New(c, acc, opts)
	if err != nil {
		c.Close()
		return nil, nil, cli.NewExitError(fmt.Errorf("failed to create Actor: %w", err), 1)
	}
	return c, a, nil
}

// GetAccFromContext reads keystore file from the given flag and unlocks it
// with the password from PasswordEnv or the one requested from user.
func GetAccFromContext(ctx *cli.Context, flag string) (*wallet.Account, error) {
	path := ctx.String(flag)
	if len(path) == 0 {
		return nil, errNoKeystore
	}
	rec, err := keystore.ReadFile(path)
	if err != nil {
		return nil, err
	}
	acc, err := wallet.NewAccountFromKeystore(rec)
	if err != nil {
		return nil, err
	}
	pass, ok := os.LookupEnv(PasswordEnv)
	if !ok {
		pass, err = input.ReadPassword(fmt.Sprintf("Enter %s password > ", acc.Address.Hex()))
		if err != nil {
			return nil, fmt.Errorf("error reading password: %w", err)
		}
	}
	err = acc.Decrypt(strings.TrimRight(pass, "\n"))
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// HandleLoggingParams reads logging parameters.
// If a user selected debug level -- function enables it.
// If logPath is configured -- function creates a dir and a file for logging.
func HandleLoggingParams(debug bool, cfg config.Logger) (*zap.Logger, *zap.AtomicLevel, error) {
	var (
		level = zapcore.InfoLevel
		err   error
	)
	if len(cfg.LogLevel) > 0 {
		level, err = zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("log setting: %w", err)
		}
	}
	if debug {
		level = zapcore.DebugLevel
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.LogTimestamp != nil && !*cfg.LogTimestamp {
		cc.EncoderConfig.TimeKey = ""
	}
	cc.Encoding = "console"
	if cfg.LogEncoding != "" {
		cc.Encoding = cfg.LogEncoding
	}
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil

	if logPath := cfg.LogPath; logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("could not create dir for logger: %w", err)
		}
		cc.OutputPaths = []string{logPath}
	}

	log, err := cc.Build()
	return log, &cc.Level, err
}
