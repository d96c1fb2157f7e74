package main

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/ZilDuck/nft-marketplace/internal/client"
	"github.com/ZilDuck/nft-marketplace/internal/config"
	"github.com/ZilDuck/nft-marketplace/internal/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

var (
	ErrInvalidArgument = xerrors.New("invalid argument")
	ErrMissingAccount  = xerrors.New("--account (or MARKET_ACCOUNT) must be a non-zero address")
)

func main() {
	config.Init()

	app := &cli.App{
		Name:  "marketctl",
		Usage: "talk to a running marketplace daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api", Value: "http://localhost:5000", EnvVars: []string{"MARKET_API"}, Usage: "marketplace api url"},
			&cli.StringFlag{Name: "account", EnvVars: []string{"MARKET_ACCOUNT"}, Usage: "address to act as"},
		},
		Commands: []*cli.Command{
			{Name: "contracts", Usage: "Show the deployed contracts", Action: contracts},
			{Name: "mint", Usage: "Mint a token", ArgsUsage: "<uri>", Action: mint},
			{
				Name:      "approve",
				Usage:     "Approve an operator for all of the account's tokens",
				ArgsUsage: "<operator>",
				Action:    approve,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "revoke", Usage: "Revoke the approval instead"},
				},
			},
			{Name: "list", Usage: "List a token for sale", ArgsUsage: "<nft> <tokenId> <price>", Action: list},
			{Name: "buy", Usage: "Buy an item for its total price", ArgsUsage: "<itemId>", Action: buy},
			{Name: "items", Usage: "Show every listing", Action: items},
			{Name: "item", Usage: "Show a listing", ArgsUsage: "<itemId>", Action: item},
			{Name: "price", Usage: "Show the total price of an item", ArgsUsage: "<itemId>", Action: price},
			{Name: "balance", Usage: "Show an account balance", ArgsUsage: "[address]", Action: balance},
			{Name: "market", Usage: "Show unsold items with metadata", Action: market},
			{Name: "listed", Usage: "Show the account's listed and sold items", Action: listed},
			{Name: "purchases", Usage: "Show the account's purchases", Action: purchases},
		},
	}

	if err := app.Run(os.Args); err != nil {
		zap.L().With(zap.Error(err)).Fatal("marketctl failed")
	}
}

func newClient(c *cli.Context) *client.Client {
	return client.New(c.String("api"), common.Address{}, log.Printf())
}

// accountClient is used by every command that acts as, or reads for, the
// account.
func accountClient(c *cli.Context) (*client.Client, error) {
	account, err := parseAccount(c.String("account"))
	if err != nil {
		return nil, err
	}

	return client.New(c.String("api"), account, log.Printf()), nil
}

func parseAccount(value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, ErrMissingAccount
	}
	account := common.HexToAddress(value)
	if account == (common.Address{}) {
		return common.Address{}, ErrMissingAccount
	}

	return account, nil
}

func contracts(c *cli.Context) error {
	resp, err := newClient(c).Contracts(c.Context)
	return output(resp, err)
}

func mint(c *cli.Context) error {
	if c.NArg() != 1 {
		return xerrors.Errorf("mint <uri>: %w", ErrInvalidArgument)
	}
	cl, err := accountClient(c)
	if err != nil {
		return err
	}
	resp, err := cl.Mint(c.Context, c.Args().First())
	return output(resp, err)
}

func approve(c *cli.Context) error {
	operator, err := addressArg(c, 0)
	if err != nil {
		return err
	}
	cl, err := accountClient(c)
	if err != nil {
		return err
	}
	resp, err := cl.SetApprovalForAll(c.Context, operator, !c.Bool("revoke"))
	return output(resp, err)
}

func list(c *cli.Context) error {
	if c.NArg() != 3 {
		return xerrors.Errorf("list <nft> <tokenId> <price>: %w", ErrInvalidArgument)
	}
	nft, err := addressArg(c, 0)
	if err != nil {
		return err
	}
	tokenId, err := idArg(c, 1)
	if err != nil {
		return err
	}
	cl, err := accountClient(c)
	if err != nil {
		return err
	}
	resp, err := cl.ListItem(c.Context, nft, tokenId, c.Args().Get(2))
	return output(resp, err)
}

func buy(c *cli.Context) error {
	itemId, err := idArg(c, 0)
	if err != nil {
		return err
	}
	cl, err := accountClient(c)
	if err != nil {
		return err
	}
	resp, err := cl.Buy(c.Context, itemId)
	return output(resp, err)
}

func items(c *cli.Context) error {
	resp, err := newClient(c).Items(c.Context)
	return output(resp, err)
}

func item(c *cli.Context) error {
	itemId, err := idArg(c, 0)
	if err != nil {
		return err
	}
	resp, err := newClient(c).Item(c.Context, itemId)
	return output(resp, err)
}

func price(c *cli.Context) error {
	itemId, err := idArg(c, 0)
	if err != nil {
		return err
	}
	resp, err := newClient(c).TotalPrice(c.Context, itemId)
	return output(resp, err)
}

func balance(c *cli.Context) error {
	if c.NArg() > 0 {
		addr, err := addressArg(c, 0)
		if err != nil {
			return err
		}
		resp, err := newClient(c).Balance(c.Context, addr)
		return output(resp, err)
	}

	cl, err := accountClient(c)
	if err != nil {
		return err
	}
	resp, err := cl.Balance(c.Context, cl.Account())
	return output(resp, err)
}

func market(c *cli.Context) error {
	resp, err := newClient(c).MarketItems(c.Context)
	return output(resp, err)
}

func listed(c *cli.Context) error {
	cl, err := accountClient(c)
	if err != nil {
		return err
	}
	resp, err := cl.ListedItems(c.Context, cl.Account())
	return output(resp, err)
}

func purchases(c *cli.Context) error {
	cl, err := accountClient(c)
	if err != nil {
		return err
	}
	resp, err := cl.Purchases(c.Context, cl.Account())
	return output(resp, err)
}

func addressArg(c *cli.Context, i int) (common.Address, error) {
	value := c.Args().Get(i)
	if !common.IsHexAddress(value) {
		return common.Address{}, xerrors.Errorf("address %q: %w", value, ErrInvalidArgument)
	}
	return common.HexToAddress(value), nil
}

func idArg(c *cli.Context, i int) (uint64, error) {
	value := c.Args().Get(i)
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, xerrors.Errorf("id %q: %w", value, ErrInvalidArgument)
	}
	return id, nil
}

func output(v interface{}, err error) error {
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
