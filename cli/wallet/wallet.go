package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/nspcc-dev/thor-go/cli/input"
	"github.com/nspcc-dev/thor-go/cli/options"
	"github.com/nspcc-dev/thor-go/pkg/crypto/keys"
	"github.com/nspcc-dev/thor-go/pkg/keystore"
	"github.com/nspcc-dev/thor-go/pkg/wallet"
	"github.com/urfave/cli"
)

var errNoPath = errors.New("keystore file path is mandatory and should be passed using (--keystore, -k) flag")

// NewCommands returns 'wallet' command.
func NewCommands() []cli.Command {
	keystoreFlag := cli.StringFlag{
		Name:  "keystore, k",
		Usage: "path to the keystore file",
	}
	return []cli.Command{{
		Name:  "wallet",
		Usage: "create, open and check keystores",
		Subcommands: []cli.Command{{
			Name:  "keystore",
			Usage: "work with Web3 Secret Storage (keystore v3) files",
			Subcommands: []cli.Command{
				{
					Name:      "create",
					Usage:     "create a new key and store it encrypted",
					UsageText: "create -k path [--light] [--key hex]",
					Action:    createKeystore,
					Flags: []cli.Flag{
						keystoreFlag,
						cli.BoolFlag{
							Name:  "light",
							Usage: "use light scrypt parameters (faster, but less secure)",
						},
						cli.StringFlag{
							Name:  "key",
							Usage: "hex-encoded private key to import instead of generating a new one",
						},
						cli.BoolFlag{
							Name:  "force",
							Usage: "overwrite an existing file",
						},
					},
				},
				{
					Name:      "decrypt",
					Usage:     "decrypt keystore and print the address (and the key if asked)",
					UsageText: "decrypt -k path [--show-key]",
					Action:    decryptKeystore,
					Flags: []cli.Flag{
						keystoreFlag,
						cli.BoolFlag{
							Name:  "show-key",
							Usage: "print decrypted private key",
						},
					},
				},
				{
					Name:      "check",
					Usage:     "check keystore structure without decrypting it",
					UsageText: "check -k path",
					Action:    checkKeystore,
					Flags:     []cli.Flag{keystoreFlag},
				},
			},
		}},
	}}
}

func getPassword(prompt string) (string, error) {
	if pass, ok := os.LookupEnv(options.PasswordEnv); ok {
		return pass, nil
	}
	return input.ReadPassword(prompt)
}

func createKeystore(ctx *cli.Context) error {
	path := ctx.String("keystore")
	if len(path) == 0 {
		return cli.NewExitError(errNoPath, 1)
	}
	if _, err := os.Stat(path); err == nil && !ctx.Bool("force") {
		return cli.NewExitError(fmt.Errorf("file %s already exists, use --force to overwrite", path), 1)
	}

	var (
		acc *wallet.Account
		err error
	)
	if k := ctx.String("key"); len(k) != 0 {
		acc, err = accountFromHex(k)
	} else {
		acc, err = wallet.NewAccount()
	}
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer acc.Close()

	var pass string
	if p, ok := os.LookupEnv(options.PasswordEnv); ok {
		pass = p
	} else {
		pass, err = input.ConfirmPassword("Enter password > ")
		if err != nil {
			return cli.NewExitError(err, 1)
		}
	}
	params := keystore.StandardScryptParams()
	if ctx.Bool("light") {
		params = keystore.LightScryptParams()
	}
	if err := acc.Encrypt(pass, params); err != nil {
		return cli.NewExitError(err, 1)
	}
	if err := keystore.WriteFile(path, acc.Keystore); err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, acc.Address.Hex())
	return nil
}

func decryptKeystore(ctx *cli.Context) error {
	acc, err := readAccount(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	pass, err := getPassword(fmt.Sprintf("Enter %s password > ", acc.Address.Hex()))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if err := acc.Decrypt(pass); err != nil {
		return cli.NewExitError(err, 1)
	}
	defer acc.Close()

	fmt.Fprintln(ctx.App.Writer, acc.Address.Hex())
	if ctx.Bool("show-key") {
		fmt.Fprintln(ctx.App.Writer, hex.EncodeToString(acc.PrivateKey().Bytes()))
	}
	return nil
}

func checkKeystore(ctx *cli.Context) error {
	acc, err := readAccount(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintf(ctx.App.Writer, "%s: valid keystore v%d\n", acc.Address.Hex(), acc.Keystore.Version)
	return nil
}

func readAccount(ctx *cli.Context) (*wallet.Account, error) {
	path := ctx.String("keystore")
	if len(path) == 0 {
		return nil, errNoPath
	}
	rec, err := keystore.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return wallet.NewAccountFromKeystore(rec)
}

func accountFromHex(s string) (*wallet.Account, error) {
	k, err := keys.NewPrivateKeyFromHex(s)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return wallet.NewAccountFromPrivateKey(k), nil
}
