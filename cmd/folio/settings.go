package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var settingsCmd = cli.Command{
	Name:  "settings",
	Usage: "show and update the user preferences",
	Subcommands: []*cli.Command{
		{
			Name:   "show",
			Usage:  "print the current preferences",
			Action: settingsShowAction,
		},
		{
			Name:  "set-method",
			Usage: "set the lot consumption method (fifo, lifo, hifo)",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "method",
					Usage:    "the method to use from now on",
					Required: true,
				},
			},
			Action: settingsSetMethodAction,
		},
		{
			Name:  "hide-asset",
			Usage: "exclude an asset (spam, dust) from holdings and valuations",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "asset",
					Usage:    "the asset symbol to hide",
					Required: true,
				},
			},
			Action: settingsHideAssetAction,
		},
		{
			Name:  "unhide-asset",
			Usage: "bring a hidden asset back",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "asset",
					Usage:    "the asset symbol to unhide",
					Required: true,
				},
			},
			Action: settingsUnhideAssetAction,
		},
	},
}

func settingsShowAction(ctx *cli.Context) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.close()

	settings, err := env.acctSvc.Settings()
	if err != nil {
		return err
	}
	hidden, err := env.acctSvc.HiddenAssets()
	if err != nil {
		return err
	}

	printJSON(map[string]interface{}{
		"settings":     settings,
		"hiddenAssets": hidden,
	})
	return nil
}

func settingsSetMethodAction(ctx *cli.Context) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.close()

	settings, err := env.acctSvc.Settings()
	if err != nil {
		return err
	}
	settings.CostBasisMethod = ctx.String("method")
	if err := env.acctSvc.UpdateSettings(settings); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Cost basis method is updated")
	return nil
}

func settingsHideAssetAction(ctx *cli.Context) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.close()

	if err := env.acctSvc.HideAsset(ctx.String("asset")); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Asset is hidden")
	return nil
}

func settingsUnhideAssetAction(ctx *cli.Context) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.close()

	if err := env.acctSvc.UnhideAsset(ctx.String("asset")); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Asset is unhidden")
	return nil
}
