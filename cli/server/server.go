package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nspcc-dev/thor-go/cli/options"
	"github.com/nspcc-dev/thor-go/pkg/config"
	"github.com/nspcc-dev/thor-go/pkg/rpcclient"
	"github.com/nspcc-dev/thor-go/pkg/services/metrics"
	"github.com/nspcc-dev/thor-go/pkg/services/rpcproxy"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// NewCommands returns 'proxy' command.
func NewCommands() []cli.Command {
	flags := []cli.Flag{
		options.ConfigFile,
		options.Debug,
		cli.StringFlag{
			Name:  options.RPCEndpointFlag + ", r",
			Usage: "Thor node REST address (overrides configuration and THOR_ENDPOINT)",
		},
		cli.StringSliceFlag{
			Name:  "address, a",
			Usage: "address to listen on in the form of host:port (overrides configuration, can be repeated)",
		},
	}
	return []cli.Command{{
		Name:      "proxy",
		Usage:     "Start Ethereum JSON-RPC proxy for a Thor node",
		UsageText: "thor-go proxy [--config-file file] [-r endpoint] [-a address] [-d]",
		Action:    startProxy,
		Flags:     flags,
	}}
}

// getConfigFromContext returns configuration with command line overrides
// applied.
func getConfigFromContext(ctx *cli.Context) (config.Config, error) {
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return cfg, err
	}
	if endpoint := ctx.String(options.RPCEndpointFlag); len(endpoint) != 0 {
		cfg.Client.Endpoint = endpoint
	}
	if addrs := ctx.StringSlice("address"); len(addrs) != 0 {
		cfg.Proxy.Addresses = addrs
	}
	// The command is useless without the proxy.
	cfg.Proxy.Enabled = true
	if len(cfg.Proxy.GetAddresses()) == 0 {
		return cfg, errors.New("no proxy addresses configured, use --address")
	}
	return cfg, nil
}

func startProxy(ctx *cli.Context) error {
	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	log, _, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.Logger)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = log.Sync() }()

	grace, cancel := context.WithCancel(newGraceContext())
	defer cancel()

	copts := options.ClientOptions(cfg.Client)
	copts.Logger = log
	c, err := rpcclient.New(grace, cfg.Client.Endpoint, copts)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer c.Close()
	if err := c.Init(); err != nil {
		return cli.NewExitError(fmt.Errorf("can't connect to %s: %w", cfg.Client.Endpoint, err), 1)
	}
	log.Info("connected to node", zap.String("endpoint", c.Endpoint()))

	errChan := make(chan error, len(cfg.Proxy.GetAddresses()))
	proxy, err := rpcproxy.New(c, cfg.Proxy, log, errChan)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	prometheus := metrics.NewPrometheusService(cfg.Prometheus, log)
	if err := prometheus.Start(); err != nil {
		return cli.NewExitError(fmt.Errorf("failed to start Prometheus service: %w", err), 1)
	}
	defer prometheus.ShutDown()

	proxy.Start()
	defer proxy.Shutdown()

	select {
	case err := <-errChan:
		return cli.NewExitError(fmt.Errorf("proxy error: %w", err), 1)
	case <-grace.Done():
		log.Info("shutting down")
	}
	return nil
}

// newGraceContext returns a context that is canceled on SIGINT or SIGTERM.
func newGraceContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()
	return ctx
}
