package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/lightningnetwork/lnd/ticker"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/cryptofolio/cryptofolio-daemon/internal/config"
	"github.com/cryptofolio/cryptofolio-daemon/internal/core/application"
	"github.com/cryptofolio/cryptofolio-daemon/internal/core/domain"
	"github.com/cryptofolio/cryptofolio-daemon/internal/core/ports"
	"github.com/cryptofolio/cryptofolio-daemon/internal/infrastructure/pricestore"
	kvbadger "github.com/cryptofolio/cryptofolio-daemon/internal/infrastructure/storage/badger"
	kvbolt "github.com/cryptofolio/cryptofolio-daemon/internal/infrastructure/storage/bolt"
	kvinmemory "github.com/cryptofolio/cryptofolio-daemon/internal/infrastructure/storage/inmemory"
	"github.com/cryptofolio/cryptofolio-daemon/pkg/securestore"
	"github.com/cryptofolio/cryptofolio-daemon/pkg/vault"
)

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "folio CLI"
	app.Usage = "Command line interface for the cryptofolio portfolio and tax tracker"
	app.Before = func(ctx *cli.Context) error {
		if err := config.InitConfig(); err != nil {
			return err
		}
		log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))
		return nil
	}
	app.Commands = append(
		app.Commands,
		&vaultCmd,
		&walletCmd,
		&txCmd,
		&reportCmd,
		&priceCmd,
		&backupCmd,
		&settingsCmd,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

// appEnv is the service graph a command runs against. Every command opens its
// own env and closes it before returning.
type appEnv struct {
	db        ports.KVStore
	store     *securestore.SecureStore
	prices    pricestore.PriceStore
	vaultOpts []vault.Option
	vaultSvc  *application.VaultService
	acctSvc   *application.AccountService
	txSvc     *application.TransactionService
	taxSvc    *application.TaxService
	locker    *application.AutoLocker
}

func (e *appEnv) close() {
	if e.locker != nil {
		e.locker.Stop()
	}
	e.store.Close()
	if err := e.db.Close(); err != nil {
		log.WithError(err).Warn("closing db")
	}
	e.prices.Close()
}

// noSyncSource stands in when no provider adapter is configured. Wallet sync
// is served by transaction imports instead.
type noSyncSource struct{}

func (noSyncSource) FetchTransactions(
	_ context.Context, _ domain.Wallet,
) ([]domain.Transaction, error) {
	return nil, errors.New("no sync provider configured")
}

func (noSyncSource) FetchHoldings(
	_ context.Context, _ domain.Wallet,
) (map[string]decimal.Decimal, error) {
	return nil, errors.New("no sync provider configured")
}

func openEnv() (*appEnv, error) {
	db, err := openSubstrate()
	if err != nil {
		return nil, err
	}

	prices, err := pricestore.NewPriceStore(config.GetPricesDir(), nil)
	if err != nil {
		db.Close()
		return nil, err
	}

	store := securestore.NewSecureStore(db, securestore.Options{
		Policy:         config.GetRecoveryPolicy(),
		EncryptedKinds: domain.EncryptedKinds(),
		PlainKinds:     domain.PlainKinds(),
	})

	var vaultOpts []vault.Option
	if iterations := config.GetInt(config.KDFIterationsKey); iterations > 0 {
		vaultOpts = append(vaultOpts, vault.WithIterations(iterations))
	}

	vaultSvc := application.NewVaultService(store, vaultOpts...)
	acctSvc := application.NewAccountService(store)
	txSvc := application.NewTransactionService(store, acctSvc, noSyncSource{})
	taxSvc := application.NewTaxService(store, acctSvc, txSvc, prices, noSyncSource{})

	return &appEnv{
		db:        db,
		store:     store,
		prices:    prices,
		vaultOpts: vaultOpts,
		vaultSvc:  vaultSvc,
		acctSvc:   acctSvc,
		txSvc:     txSvc,
		taxSvc:    taxSvc,
	}, nil
}

// openUnlockedEnv opens the env and unlocks the vault, prompting for the
// passphrase.
func openUnlockedEnv() (*appEnv, error) {
	env, err := openEnv()
	if err != nil {
		return nil, err
	}

	if !env.vaultSvc.IsInitialized() {
		env.close()
		return nil, errors.New("vault not initialized: run 'vault init' first")
	}

	passphrase, err := promptPassphrase("Passphrase")
	if err != nil {
		env.close()
		return nil, err
	}
	if err := env.vaultSvc.Unlock(passphrase); err != nil {
		env.close()
		return nil, err
	}
	env.locker = startAutoLocker(env.vaultSvc)
	return env, nil
}

// startAutoLocker starts the inactivity watcher with the configured timeout,
// so the vault never stays unlocked past it even in long-running commands.
func startAutoLocker(vaultSvc *application.VaultService) *application.AutoLocker {
	timeout := config.GetAutoLockTimeout()

	interval := timeout / 4
	if interval <= 0 || interval > 30*time.Second {
		interval = 30 * time.Second
	}

	locker := application.NewAutoLocker(vaultSvc, timeout, ticker.New(interval))
	locker.Start()
	return locker
}

func openSubstrate() (ports.KVStore, error) {
	switch config.GetString(config.DBTypeKey) {
	case config.DBBolt:
		return kvbolt.NewKVStore(config.GetDBDir(), "folio.db")
	case config.DBInMemory:
		return kvinmemory.NewKVStore(), nil
	default:
		return kvbadger.NewKVStore(config.GetDBDir(), nil)
	}
}

func promptPassphrase(label string) (string, error) {
	fmt.Printf("%s: ", label)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(raw), nil
}

func promptNewPassphrase(label string) (string, error) {
	passphrase, err := promptPassphrase(label)
	if err != nil {
		return "", err
	}
	confirmation, err := promptPassphrase("Confirm " + label)
	if err != nil {
		return "", err
	}
	if passphrase != confirmation {
		return "", errors.New("passphrases do not match")
	}
	return passphrase, nil
}

func printJSON(resp interface{}) {
	jsonStr, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		fmt.Println("unable to decode response: ", err)
		return
	}
	fmt.Println(string(jsonStr))
}

func fatal(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "[folio] %v\n", err)
	os.Exit(1)
}
