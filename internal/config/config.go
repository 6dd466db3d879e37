package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"

	"github.com/cryptofolio/cryptofolio-daemon/internal/core/domain"
	"github.com/cryptofolio/cryptofolio-daemon/pkg/securestore"
)

const (
	// DatadirKey is the local data directory where the encrypted state lives
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// DBTypeKey is used to switch the storage substrate between those supported
	DBTypeKey = "DB_TYPE"
	// AutoLockTimeoutKey is the inactivity duration (ie. 15m) after which the
	// vault locks itself, 0 to disable
	AutoLockTimeoutKey = "AUTO_LOCK_TIMEOUT"
	// KDFIterationsKey overrides the PBKDF2 iteration count, 0 for the default
	KDFIterationsKey = "KDF_ITERATIONS"
	// RecoveryPolicyKey decides what happens when a stored category cannot be
	// decrypted or validated: reset or fail
	RecoveryPolicyKey = "RECOVERY_POLICY"
	// CostBasisMethodKey is the initial lot consumption method (fifo, lifo, hifo)
	CostBasisMethodKey = "COST_BASIS_METHOD"

	// DBBadger and the other db types are the supported DBTypeKey values.
	DBBadger   = "badger"
	DBBolt     = "bolt"
	DBInMemory = "inmemory"

	RecoveryReset = "reset"
	RecoveryFail  = "fail"

	DbLocation     = "db"
	PricesLocation = "prices"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("cryptofolio", false)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("FOLIO")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(DBTypeKey, DBBadger)
	vip.SetDefault(AutoLockTimeoutKey, 15*time.Minute)
	vip.SetDefault(KDFIterationsKey, 0)
	vip.SetDefault(RecoveryPolicyKey, RecoveryReset)
	vip.SetDefault(CostBasisMethodKey, domain.FIFO.String())

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

// GetDBDir returns the directory of the main storage substrate. Empty for the
// in-memory substrate.
func GetDBDir() string {
	if GetString(DBTypeKey) == DBInMemory {
		return ""
	}
	return filepath.Join(GetDatadir(), DbLocation)
}

// GetPricesDir returns the directory of the local price cache. Empty for the
// in-memory substrate.
func GetPricesDir() string {
	if GetString(DBTypeKey) == DBInMemory {
		return ""
	}
	return filepath.Join(GetDatadir(), PricesLocation)
}

// GetRecoveryPolicy maps the configured policy name to its storage-layer
// value.
func GetRecoveryPolicy() securestore.RecoveryPolicy {
	if GetString(RecoveryPolicyKey) == RecoveryFail {
		return securestore.FailClosed
	}
	return securestore.ResetToDefault
}

// GetAutoLockTimeout returns the configured inactivity timeout, 0 when
// auto-lock is disabled.
func GetAutoLockTimeout() time.Duration {
	timeout := GetDuration(AutoLockTimeoutKey)
	if timeout <= 0 {
		return 0
	}
	return timeout
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	switch dbType := GetString(DBTypeKey); dbType {
	case DBBadger, DBBolt, DBInMemory:
	default:
		return fmt.Errorf("unsupported db type %s", dbType)
	}

	switch policy := GetString(RecoveryPolicyKey); policy {
	case RecoveryReset, RecoveryFail:
	default:
		return fmt.Errorf("unsupported recovery policy %s", policy)
	}

	if _, err := domain.ParseMethod(GetString(CostBasisMethodKey)); err != nil {
		return fmt.Errorf("unsupported cost basis method %s", GetString(CostBasisMethodKey))
	}

	if iterations := GetInt(KDFIterationsKey); iterations < 0 {
		return fmt.Errorf("%s must be non-negative", KDFIterationsKey)
	}

	return nil
}

func initDatadir() error {
	if GetString(DBTypeKey) == DBInMemory {
		return nil
	}

	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
		return err
	}
	return makeDirectoryIfNotExists(filepath.Join(datadir, PricesLocation))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
