package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/cryptofolio/cryptofolio-daemon/internal/core/application"
)

var backupCmd = cli.Command{
	Name:  "backup",
	Usage: "export and import portable encrypted backups",
	Subcommands: []*cli.Command{
		{
			Name:  "create",
			Usage: "export the whole state encrypted under a backup passphrase",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "output",
					Usage:    "path of the backup file to write",
					Required: true,
				},
			},
			Action: backupCreateAction,
		},
		{
			Name:  "restore",
			Usage: "replace the whole state with a backup file's contents",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "file",
					Usage:    "path of the backup file to restore",
					Required: true,
				},
			},
			Action: backupRestoreAction,
		},
	},
}

func backupCreateAction(ctx *cli.Context) error {
	env, err := openUnlockedEnv()
	if err != nil {
		return err
	}
	defer env.close()

	passphrase, err := promptNewPassphrase("Backup passphrase")
	if err != nil {
		return err
	}

	backupSvc := application.NewBackupService(env.store, env.vaultOpts...)
	raw, err := backupSvc.Create(passphrase)
	if err != nil {
		return err
	}

	if err := os.WriteFile(ctx.String("output"), raw, 0600); err != nil {
		return fmt.Errorf("writing backup file: %w", err)
	}

	fmt.Println()
	fmt.Printf("Backup written to %s\n", ctx.String("output"))
	return nil
}

func backupRestoreAction(ctx *cli.Context) error {
	env, err := openUnlockedEnv()
	if err != nil {
		return err
	}
	defer env.close()

	raw, err := os.ReadFile(ctx.String("file"))
	if err != nil {
		return err
	}

	passphrase, err := promptPassphrase("Backup passphrase")
	if err != nil {
		return err
	}

	backupSvc := application.NewBackupService(env.store, env.vaultOpts...)
	if err := backupSvc.Restore(raw, passphrase); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Backup is restored")
	return nil
}
