package main

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

var reportCmd = cli.Command{
	Name:  "report",
	Usage: "compute gain reports over the ledger",
	Subcommands: []*cli.Command{
		{
			Name:  "gains",
			Usage: "realized gains and losses per sale",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "year",
					Usage: "restrict to one tax year, 0 for all",
				},
				&cli.StringFlag{
					Name:  "method",
					Usage: "the lot consumption method (fifo, lifo, hifo), the configured one if omitted",
				},
			},
			Action: reportGainsAction,
		},
		{
			Name:   "unrealized",
			Usage:  "unrealized gains at current cached prices",
			Action: reportUnrealizedAction,
		},
		{
			Name:   "holdings",
			Usage:  "current per-asset holdings from ledger replay",
			Action: reportHoldingsAction,
		},
		{
			Name:   "snapshot",
			Usage:  "value the portfolio now and append it to the history",
			Action: reportSnapshotAction,
		},
		{
			Name:   "history",
			Usage:  "list the snapshot history",
			Action: reportHistoryAction,
		},
	},
}

func reportGainsAction(ctx *cli.Context) error {
	env, err := openUnlockedEnv()
	if err != nil {
		return err
	}
	defer env.close()

	report, err := env.taxSvc.RealizedReport(ctx.Int("year"), ctx.String("method"))
	if err != nil {
		return err
	}

	printJSON(report)
	fmt.Println()
	fmt.Printf("Total gains:  %s\n", eur(report.TotalGains))
	fmt.Printf("Total losses: %s\n", eur(report.TotalLosses))
	return nil
}

func reportUnrealizedAction(ctx *cli.Context) error {
	env, err := openUnlockedEnv()
	if err != nil {
		return err
	}
	defer env.close()

	positions, err := env.taxSvc.UnrealizedReport()
	if err != nil {
		return err
	}

	printJSON(positions)

	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(p.UnrealizedGainLoss)
	}
	fmt.Println()
	fmt.Printf("Total unrealized: %s\n", eur(total))
	return nil
}

func reportHoldingsAction(ctx *cli.Context) error {
	env, err := openUnlockedEnv()
	if err != nil {
		return err
	}
	defer env.close()

	holdings, err := env.txSvc.Holdings()
	if err != nil {
		return err
	}

	printJSON(holdings)

	value, err := env.taxSvc.PortfolioValue()
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Printf("Portfolio value: %s\n", eur(value))
	return nil
}

func reportSnapshotAction(ctx *cli.Context) error {
	env, err := openUnlockedEnv()
	if err != nil {
		return err
	}
	defer env.close()

	snapshot, err := env.taxSvc.SnapshotPortfolio()
	if err != nil {
		return err
	}

	printJSON(snapshot)
	fmt.Println()
	fmt.Printf("Portfolio value: %s\n", eur(snapshot.TotalValueEUR))
	return nil
}

func reportHistoryAction(ctx *cli.Context) error {
	env, err := openUnlockedEnv()
	if err != nil {
		return err
	}
	defer env.close()

	history, err := env.taxSvc.SnapshotHistory()
	if err != nil {
		return err
	}

	printJSON(history)
	return nil
}

// eur renders a decimal EUR amount with the proper currency formatting,
// rounding to cents for display only.
func eur(amount decimal.Decimal) string {
	return money.New(amount.Shift(2).Round(0).IntPart(), money.EUR).Display()
}
