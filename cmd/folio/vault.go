package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var vaultCmd = cli.Command{
	Name:  "vault",
	Usage: "manage the encryption vault protecting the local state",
	Subcommands: []*cli.Command{
		{
			Name:   "init",
			Usage:  "create the vault with a new passphrase",
			Action: vaultInitAction,
		},
		{
			Name:   "status",
			Usage:  "show whether the vault is initialized",
			Action: vaultStatusAction,
		},
		{
			Name:   "change-password",
			Usage:  "re-encrypt the whole state under a new passphrase",
			Action: vaultChangePasswordAction,
		},
	},
}

func vaultInitAction(ctx *cli.Context) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.close()

	if env.vaultSvc.IsInitialized() {
		return fmt.Errorf("vault is already initialized")
	}

	passphrase, err := promptNewPassphrase("Passphrase")
	if err != nil {
		return err
	}
	if err := env.vaultSvc.Setup(passphrase); err != nil {
		return err
	}
	if err := env.acctSvc.SetOnboarded(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Vault is initialized")
	return nil
}

func vaultStatusAction(ctx *cli.Context) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.close()

	printJSON(map[string]interface{}{
		"initialized": env.vaultSvc.IsInitialized(),
	})
	return nil
}

func vaultChangePasswordAction(ctx *cli.Context) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.close()

	current, err := promptPassphrase("Current passphrase")
	if err != nil {
		return err
	}
	if err := env.vaultSvc.Unlock(current); err != nil {
		return err
	}

	next, err := promptNewPassphrase("New passphrase")
	if err != nil {
		return err
	}
	if err := env.vaultSvc.ChangePassphrase(current, next); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Passphrase is updated")
	return nil
}
