package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

var priceCmd = cli.Command{
	Name:  "price",
	Usage: "manage the local cache of market prices",
	Subcommands: []*cli.Command{
		{
			Name:  "set",
			Usage: "cache the current EUR price of an asset",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "asset",
					Usage:    "the asset symbol, ie. BTC",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "price",
					Usage:    "the EUR price per unit",
					Required: true,
				},
			},
			Action: priceSetAction,
		},
		{
			Name:   "list",
			Usage:  "list the cached prices",
			Action: priceListAction,
		},
		{
			Name:  "remove",
			Usage: "drop an asset from the price cache",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "asset",
					Usage:    "the asset symbol to drop",
					Required: true,
				},
			},
			Action: priceRemoveAction,
		},
	},
}

func priceSetAction(ctx *cli.Context) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.close()

	price, err := decimal.NewFromString(ctx.String("price"))
	if err != nil || price.IsNegative() {
		return fmt.Errorf("invalid price: %s", ctx.String("price"))
	}

	if err := env.prices.SetPrice(ctx.String("asset"), price); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Price is cached")
	return nil
}

func priceListAction(ctx *cli.Context) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.close()

	quotes, err := env.prices.AllQuotes()
	if err != nil {
		return err
	}

	printJSON(quotes)
	return nil
}

func priceRemoveAction(ctx *cli.Context) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.close()

	if err := env.prices.RemovePrice(ctx.String("asset")); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Price is removed")
	return nil
}
