package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var walletCmd = cli.Command{
	Name:  "wallet",
	Usage: "manage the tracked wallets",
	Subcommands: []*cli.Command{
		{
			Name:  "add",
			Usage: "start tracking a public address",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "address",
					Usage:    "the public address to track",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "chain",
					Usage:    "the chain the address lives on, ie. ethereum",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "label",
					Usage: "a human friendly name for the wallet",
				},
			},
			Action: walletAddAction,
		},
		{
			Name:   "list",
			Usage:  "list the tracked wallets",
			Action: walletListAction,
		},
		{
			Name:  "remove",
			Usage: "stop tracking a wallet, keeping its transactions",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Usage:    "the id of the wallet to remove",
					Required: true,
				},
			},
			Action: walletRemoveAction,
		},
		{
			Name:  "set-provider",
			Usage: "attach provider API credentials to a wallet",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Usage:    "the id of the wallet",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "provider",
					Usage:    "the provider name, ie. etherscan",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "api-key",
					Usage:    "the provider API key",
					Required: true,
				},
			},
			Action: walletSetProviderAction,
		},
	},
}

func walletAddAction(ctx *cli.Context) error {
	env, err := openUnlockedEnv()
	if err != nil {
		return err
	}
	defer env.close()

	wallet, err := env.acctSvc.AddWallet(
		ctx.String("address"), ctx.String("chain"), ctx.String("label"),
	)
	if err != nil {
		return err
	}

	printJSON(wallet)
	return nil
}

func walletListAction(ctx *cli.Context) error {
	env, err := openUnlockedEnv()
	if err != nil {
		return err
	}
	defer env.close()

	wallets, err := env.acctSvc.ListWallets()
	if err != nil {
		return err
	}

	// Never print the raw API keys back.
	for i := range wallets {
		wallets[i].APIKey = ""
	}
	printJSON(wallets)
	return nil
}

func walletRemoveAction(ctx *cli.Context) error {
	env, err := openUnlockedEnv()
	if err != nil {
		return err
	}
	defer env.close()

	if err := env.acctSvc.RemoveWallet(ctx.String("id")); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Wallet is removed")
	return nil
}

func walletSetProviderAction(ctx *cli.Context) error {
	env, err := openUnlockedEnv()
	if err != nil {
		return err
	}
	defer env.close()

	err = env.acctSvc.SetWalletProvider(
		ctx.String("id"), ctx.String("provider"), ctx.String("api-key"),
	)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Provider credentials are set")
	return nil
}
