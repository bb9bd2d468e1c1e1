package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/nspcc-dev/thor-go/cli/query"
	"github.com/nspcc-dev/thor-go/cli/server"
	"github.com/nspcc-dev/thor-go/cli/txcmd"
	"github.com/nspcc-dev/thor-go/cli/wallet"
	"github.com/nspcc-dev/thor-go/pkg/config"
	"github.com/urfave/cli"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "thor-go\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates a thor-go instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "thor-go"
	ctl.Version = config.Version
	ctl.Usage = "Go client for VeChainThor"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, wallet.NewCommands()...)
	ctl.Commands = append(ctl.Commands, query.NewCommands()...)
	ctl.Commands = append(ctl.Commands, txcmd.NewCommands()...)
	ctl.Commands = append(ctl.Commands, server.NewCommands()...)
	return ctl
}
