package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/thor-go/cli/options"
	"github.com/nspcc-dev/thor-go/pkg/thorest"
	"github.com/nspcc-dev/thor-go/pkg/thorest/result"
	"github.com/urfave/cli"
)

// NewCommands returns 'query' command.
func NewCommands() []cli.Command {
	queryTxFlags := append([]cli.Flag{
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "Output full tx info and execution outputs",
		},
		cli.BoolFlag{
			Name:  "pending",
			Usage: "Look for the transaction in the mempool too",
		},
	}, options.RPC...)
	revisionFlags := append([]cli.Flag{options.Revision}, options.RPC...)
	return []cli.Command{{
		Name:  "query",
		Usage: "Query data from the node",
		Subcommands: []cli.Command{
			{
				Name:      "tx",
				Usage:     "Query transaction status",
				UsageText: "thor-go query tx <id> -r endpoint [-s timeout] [-v] [--pending]",
				Action:    queryTx,
				Flags:     queryTxFlags,
			},
			{
				Name:      "receipt",
				Usage:     "Query transaction receipt",
				UsageText: "thor-go query receipt <id> -r endpoint [-s timeout]",
				Action:    queryReceipt,
				Flags:     options.RPC,
			},
			{
				Name:      "account",
				Usage:     "Query account balance and energy",
				UsageText: "thor-go query account <address> -r endpoint [-s timeout] [--revision rev]",
				Action:    queryAccount,
				Flags:     revisionFlags,
			},
			{
				Name:      "block",
				Usage:     "Query block (best by default)",
				UsageText: "thor-go query block [revision] -r endpoint [-s timeout]",
				Action:    queryBlock,
				Flags:     options.RPC,
			},
		},
	}}
}

func txIDArg(ctx *cli.Context) (string, error) {
	args := ctx.Args()
	if len(args) == 0 {
		return "", errors.New("transaction ID is missing")
	}
	if len(args) > 1 {
		return "", errors.New("only one transaction ID is accepted")
	}
	return args[0], nil
}

func queryTx(ctx *cli.Context) error {
	id, err := txIDArg(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	var opts *thorest.GetTransactionOptions
	if ctx.Bool("pending") {
		pending := true
		opts = &thorest.GetTransactionOptions{Pending: &pending}
	}
	tx, err := c.GetTransaction(id, opts)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if tx == nil {
		return cli.NewExitError(fmt.Errorf("transaction %s is not found", id), 1)
	}

	var res *result.Receipt
	if tx.Meta != nil {
		res, err = c.GetTransactionReceipt(id, nil)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
	}

	dumpTransaction(ctx, tx, res)
	return nil
}

func dumpTransaction(ctx *cli.Context, tx *result.TransactionDetail, res *result.Receipt) {
	verbose := ctx.Bool("verbose")
	buf := bytes.NewBuffer(nil)

	// Ignore the errors below because `Write` to buffer doesn't return error.
	tw := tabwriter.NewWriter(buf, 0, 4, 4, '\t', 0)
	_, _ = tw.Write([]byte("ID:\t" + tx.ID.Hex() + "\n"))
	_, _ = tw.Write([]byte(fmt.Sprintf("OnChain:\t%t\n", tx.Meta != nil)))
	if tx.Meta == nil {
		_, _ = tw.Write([]byte("BlockRef:\t" + tx.BlockRef.String() + "\n"))
		_, _ = tw.Write([]byte("Expiration:\t" + strconv.FormatUint(uint64(tx.Expiration), 10) + "\n"))
	} else {
		_, _ = tw.Write([]byte("BlockID:\t" + tx.Meta.BlockID.Hex() + "\n"))
		_, _ = tw.Write([]byte("BlockNumber:\t" + strconv.FormatUint(uint64(tx.Meta.BlockNumber), 10) + "\n"))
	}
	if res != nil {
		_, _ = tw.Write([]byte(fmt.Sprintf("Success:\t%t\n", !res.Reverted)))
	}
	if verbose {
		_, _ = tw.Write([]byte("Origin:\t" + tx.Origin.Hex() + "\n"))
		if tx.Delegator != nil {
			_, _ = tw.Write([]byte("Delegator:\t" + tx.Delegator.Hex() + "\n"))
		}
		_, _ = tw.Write([]byte("Gas:\t" + strconv.FormatUint(tx.Gas, 10) + "\n"))
		_, _ = tw.Write([]byte("GasPriceCoef:\t" + strconv.FormatUint(uint64(tx.GasPriceCoef), 10) + "\n"))
		for i, cl := range tx.Clauses {
			to := "<contract creation>"
			if cl.To != nil {
				to = cl.To.Hex()
			}
			_, _ = tw.Write([]byte(fmt.Sprintf("Clause #%d:\t%s %s VET, %d bytes of data\n", i, to, cl.ValueOrZero(), len(cl.Data))))
		}
		if res != nil {
			_, _ = tw.Write([]byte("GasUsed:\t" + strconv.FormatUint(res.GasUsed, 10) + "\n"))
			_, _ = tw.Write([]byte("GasPayer:\t" + res.GasPayer.Hex() + "\n"))
			_, _ = tw.Write([]byte("Paid:\t" + bigString(res.Paid.ToInt()) + "\n"))
		}
	}
	_ = tw.Flush()
	fmt.Fprint(ctx.App.Writer, buf.String())
}

func bigString(b *big.Int) string {
	if b == nil {
		return "0"
	}
	return b.String()
}

func queryReceipt(ctx *cli.Context) error {
	id, err := txIDArg(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	res, err := c.GetTransactionReceipt(id, nil)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if res == nil {
		return cli.NewExitError(fmt.Errorf("receipt for %s is not found", id), 1)
	}
	return dumpJSON(ctx, res)
}

func queryAccount(ctx *cli.Context) error {
	args := ctx.Args()
	if len(args) != 1 {
		return cli.NewExitError("exactly one address is required", 1)
	}
	if !common.IsHexAddress(args[0]) {
		return cli.NewExitError(fmt.Errorf("invalid address %q", args[0]), 1)
	}
	addr := common.HexToAddress(args[0])
	var rev *string
	if r := ctx.String("revision"); len(r) != 0 {
		rev = &r
	}

	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	acc, err := c.GetAccount(addr, rev)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	buf := bytes.NewBuffer(nil)
	tw := tabwriter.NewWriter(buf, 0, 4, 4, '\t', 0)
	_, _ = tw.Write([]byte("Address:\t" + addr.Hex() + "\n"))
	_, _ = tw.Write([]byte("Balance:\t" + bigString(acc.Balance.ToInt()) + "\n"))
	_, _ = tw.Write([]byte("Energy:\t" + bigString(acc.Energy.ToInt()) + "\n"))
	_, _ = tw.Write([]byte(fmt.Sprintf("Contract:\t%t\n", acc.HasCode)))
	_ = tw.Flush()
	fmt.Fprint(ctx.App.Writer, buf.String())
	return nil
}

func queryBlock(ctx *cli.Context) error {
	args := ctx.Args()
	rev := thorest.RevisionBest
	switch len(args) {
	case 0:
	case 1:
		rev = args[0]
	default:
		return cli.NewExitError("only one revision is accepted", 1)
	}

	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	b, err := c.GetBlock(rev)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if b == nil {
		return cli.NewExitError(fmt.Errorf("block %s is not found", rev), 1)
	}
	return dumpJSON(ctx, b)
}

func dumpJSON(ctx *cli.Context, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, string(data))
	return nil
}
