package txcmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/nspcc-dev/thor-go/cli/input"
	"github.com/nspcc-dev/thor-go/cli/options"
	"github.com/nspcc-dev/thor-go/pkg/core/transaction"
	"github.com/nspcc-dev/thor-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/thor-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/thor-go/pkg/rpcclient/waiter"
	"github.com/nspcc-dev/thor-go/pkg/thorest"
	"github.com/nspcc-dev/thor-go/pkg/thorest/result"
	"github.com/urfave/cli"
)

var errNoClauses = errors.New("no clauses given, use <to>[:<value>[:<data>]] arguments")

// NewCommands returns 'tx' command.
func NewCommands() []cli.Command {
	sendFlags := append([]cli.Flag{
		cli.Uint64Flag{
			Name:  "gas, g",
			Usage: "gas limit, estimated via simulation if not set",
		},
		cli.UintFlag{
			Name:  "gas-price-coef",
			Usage: "gas price coefficient (0-255)",
		},
		cli.UintFlag{
			Name:  "expiration",
			Usage: "number of blocks the transaction is valid for (32 by default)",
		},
		cli.StringFlag{
			Name:  "depends-on",
			Usage: "ID of the transaction this one depends on",
		},
		cli.BoolFlag{
			Name:  "await",
			Usage: "wait for the transaction to be included into a block",
		},
		cli.BoolFlag{
			Name:  "force",
			Usage: "don't ask for confirmation",
		},
	}, options.Keystore...)
	sendFlags = append(sendFlags, options.RPC...)
	simulateFlags := append([]cli.Flag{
		cli.StringFlag{
			Name:  "caller",
			Usage: "address to simulate clauses from",
		},
		options.Revision,
	}, options.RPC...)
	return []cli.Command{{
		Name:  "tx",
		Usage: "Create, send and track transactions",
		Subcommands: []cli.Command{
			{
				Name:      "send",
				Usage:     "Create, sign and send a transaction",
				UsageText: "thor-go tx send -k keystore [--delegator keystore] [-g gas] [--await] <to>[:<value>[:<data>]] ...",
				Description: `Creates a transaction with the given clauses, signs it with the
   key from the keystore and sends it to the node. Each clause is given as
   <to>[:<value>[:<data>]] where to is the recipient address (empty for
   contract deployment), value is a decimal or 0x-prefixed hex amount of wei
   and data is 0x-prefixed hex input. Gas is estimated if not set.
`,
				Action: sendTx,
				Flags:  sendFlags,
			},
			{
				Name:      "wait",
				Usage:     "Wait for the transaction receipt",
				UsageText: "thor-go tx wait <id> -r endpoint [-s timeout]",
				Action:    waitTx,
				Flags:     options.RPC,
			},
			{
				Name:      "simulate",
				Usage:     "Simulate clauses execution",
				UsageText: "thor-go tx simulate [--caller address] [--revision rev] <to>[:<value>[:<data>]] ...",
				Action:    simulateTx,
				Flags:     simulateFlags,
			},
		},
	}}
}

// parseClause parses <to>[:<value>[:<data>]].
func parseClause(s string) (transaction.Clause, error) {
	var cl transaction.Clause
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return cl, fmt.Errorf("invalid clause %q", s)
	}
	if len(parts[0]) != 0 {
		if !common.IsHexAddress(parts[0]) {
			return cl, fmt.Errorf("invalid clause recipient %q", parts[0])
		}
		to := common.HexToAddress(parts[0])
		cl.To = &to
	}
	if len(parts) > 1 && len(parts[1]) != 0 {
		v, err := transaction.ParseValue(parts[1])
		if err != nil {
			return cl, err
		}
		cl.Value = v
	}
	if len(parts) > 2 && len(parts[2]) != 0 {
		data, err := hexutil.Decode(parts[2])
		if err != nil {
			return cl, fmt.Errorf("invalid clause data: %w", err)
		}
		cl.Data = data
	}
	if cl.To == nil && len(cl.Data) == 0 {
		return cl, fmt.Errorf("clause %q has neither recipient nor code", s)
	}
	return cl, nil
}

func parseClauses(ctx *cli.Context) ([]transaction.Clause, error) {
	args := ctx.Args()
	if len(args) == 0 {
		return nil, errNoClauses
	}
	res := make([]transaction.Clause, 0, len(args))
	for _, a := range args {
		cl, err := parseClause(a)
		if err != nil {
			return nil, err
		}
		res = append(res, cl)
	}
	return res, nil
}

func bodyOptions(ctx *cli.Context) (*actor.BodyOptions, error) {
	opts := new(actor.BodyOptions)
	if ctx.IsSet("gas-price-coef") {
		coef := ctx.Uint("gas-price-coef")
		if coef > 255 {
			return nil, fmt.Errorf("gas price coefficient %d is out of range", coef)
		}
		c := uint8(coef)
		opts.GasPriceCoef = &c
	}
	if ctx.IsSet("expiration") {
		exp := uint32(ctx.Uint("expiration"))
		opts.Expiration = &exp
	}
	if dep := ctx.String("depends-on"); len(dep) != 0 {
		if err := transaction.AssertValidID("tx send", dep); err != nil {
			return nil, err
		}
		h := common.HexToHash(dep)
		opts.DependsOn = &h
	}
	return opts, nil
}

func sendTx(ctx *cli.Context) error {
	clauses, err := parseClauses(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	bopts, err := bodyOptions(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	c, act, exitErr := options.GetRPCWithActor(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	tx, err := act.MakeTuned(ctx.Uint64("gas"), bopts, nil, clauses...)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if !ctx.Bool("force") {
		if err := confirmTx(ctx, tx); err != nil {
			return cli.NewExitError(err, 1)
		}
	}
	id, err := act.Send(tx)
	if !ctx.Bool("await") {
		if err != nil {
			return cli.NewExitError(fmt.Errorf("failed to send transaction: %w", err), 1)
		}
		fmt.Fprintln(ctx.App.Writer, id.Hex())
		return nil
	}
	res, err := act.WaitContext(gctx, id, err)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("failed to send transaction: %w", err), 1)
	}
	fmt.Fprintln(ctx.App.Writer, id.Hex())
	return dumpReceipt(ctx, res)
}

func confirmTx(ctx *cli.Context, tx *transaction.Transaction) error {
	origin, err := tx.Origin()
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "Origin: %s\nClauses: %d\nGas: %d\n", origin.Hex(), len(tx.Clauses), tx.Gas)
	ans, err := input.ReadLine("Send transaction? [y/N] > ")
	if err != nil {
		return err
	}
	ans = strings.ToLower(strings.TrimSpace(ans))
	if ans != "y" && ans != "yes" {
		return errors.New("transaction was not sent")
	}
	return nil
}

func waitTx(ctx *cli.Context) error {
	args := ctx.Args()
	if len(args) != 1 {
		return cli.NewExitError("exactly one transaction ID is required", 1)
	}

	// The timeout limits waiting only, requests use the client defaults.
	c, exitErr := options.GetRPCClient(context.Background(), ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	res, err := c.WaitForTransaction(c.Context(), args[0], &waiter.WaitOptions{Timeout: ctx.Duration("timeout")})
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if res == nil {
		return cli.NewExitError(fmt.Errorf("transaction %s is not included in %s", args[0], ctx.Duration("timeout")), 1)
	}
	return dumpReceipt(ctx, res)
}

func simulateTx(ctx *cli.Context) error {
	clauses, err := parseClauses(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	var caller *common.Address
	if s := ctx.String("caller"); len(s) != 0 {
		if !common.IsHexAddress(s) {
			return cli.NewExitError(fmt.Errorf("invalid caller %q", s), 1)
		}
		a := common.HexToAddress(s)
		caller = &a
	}
	var sopts *thorest.SimulateOptions
	if rev := ctx.String("revision"); len(rev) != 0 {
		sopts = &thorest.SimulateOptions{Revision: &rev}
	}

	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	res, err := invoker.New(c, caller).SimulateTransaction(clauses, sopts)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	for i := range res {
		if res[i].Reverted {
			if reason := invoker.RevertReason(res[i].Data); len(reason) != 0 {
				fmt.Fprintf(ctx.App.ErrWriter, "clause #%d reverted: %s\n", i, reason)
			}
		}
	}
	return dumpJSON(ctx, res)
}

func dumpReceipt(ctx *cli.Context, res *result.Receipt) error {
	if res.Reverted {
		fmt.Fprintf(ctx.App.Writer, "Reverted, gas used: %d\n", res.GasUsed)
	} else {
		fmt.Fprintf(ctx.App.Writer, "Success, gas used: %d\n", res.GasUsed)
	}
	return dumpJSON(ctx, res)
}

func dumpJSON(ctx *cli.Context, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, string(data))
	return nil
}
