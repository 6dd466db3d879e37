package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/cryptofolio/cryptofolio-daemon/internal/core/domain"
)

var txCmd = cli.Command{
	Name:  "tx",
	Usage: "manage the transaction ledger",
	Subcommands: []*cli.Command{
		{
			Name:  "add",
			Usage: "record a manual transaction",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "wallet",
					Usage:    "the id of the wallet the transaction belongs to",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "type",
					Usage:    "one of buy, sell, transfer, stake, airdrop",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "asset",
					Usage:    "the asset symbol, ie. BTC",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "amount",
					Usage:    "the asset amount",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "value",
					Usage: "the total EUR valuation, 0 if unknown",
					Value: "0",
				},
				&cli.Int64Flag{
					Name:  "timestamp",
					Usage: "the unix millisecond timestamp, now if omitted",
				},
			},
			Action: txAddAction,
		},
		{
			Name:  "list",
			Usage: "list the ledger, oldest first",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "wallet",
					Usage: "restrict to one wallet id",
				},
			},
			Action: txListAction,
		},
		{
			Name:  "delete",
			Usage: "delete a manual transaction",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Usage:    "the id of the transaction to delete",
					Required: true,
				},
			},
			Action: txDeleteAction,
		},
		{
			Name:  "import",
			Usage: "append transactions from a JSON file, deduplicating by hash",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "file",
					Usage:    "path of a JSON array of transactions",
					Required: true,
				},
			},
			Action: txImportAction,
		},
	},
}

func txAddAction(ctx *cli.Context) error {
	env, err := openUnlockedEnv()
	if err != nil {
		return err
	}
	defer env.close()

	txType, err := domain.ParseTxType(ctx.String("type"))
	if err != nil {
		return err
	}
	amount, err := decimal.NewFromString(ctx.String("amount"))
	if err != nil {
		return fmt.Errorf("invalid amount: %s", ctx.String("amount"))
	}
	value, err := decimal.NewFromString(ctx.String("value"))
	if err != nil {
		return fmt.Errorf("invalid value: %s", ctx.String("value"))
	}

	tx, err := env.txSvc.AddManual(
		ctx.String("wallet"), txType, ctx.String("asset"),
		amount, value, ctx.Int64("timestamp"),
	)
	if err != nil {
		return err
	}

	printJSON(tx)
	return nil
}

func txListAction(ctx *cli.Context) error {
	env, err := openUnlockedEnv()
	if err != nil {
		return err
	}
	defer env.close()

	var txs []domain.Transaction
	if walletID := ctx.String("wallet"); len(walletID) > 0 {
		txs, err = env.txSvc.WalletTransactions(walletID)
	} else {
		txs, err = env.txSvc.ListTransactions()
	}
	if err != nil {
		return err
	}

	printJSON(txs)
	return nil
}

func txDeleteAction(ctx *cli.Context) error {
	env, err := openUnlockedEnv()
	if err != nil {
		return err
	}
	defer env.close()

	if err := env.txSvc.DeleteManual(ctx.String("id")); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Transaction is deleted")
	return nil
}

func txImportAction(ctx *cli.Context) error {
	env, err := openUnlockedEnv()
	if err != nil {
		return err
	}
	defer env.close()

	raw, err := os.ReadFile(ctx.String("file"))
	if err != nil {
		return err
	}
	var txs []domain.Transaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		return fmt.Errorf("parsing %s: %w", ctx.String("file"), err)
	}

	added, err := env.txSvc.ImportTransactions(txs)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Imported %d new transactions\n", added)
	return nil
}
