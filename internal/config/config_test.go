package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cryptofolio/cryptofolio-daemon/pkg/securestore"
)

func TestInitConfigDefaults(t *testing.T) {
	t.Setenv("FOLIO_DATADIR", t.TempDir())

	require.NoError(t, InitConfig())

	require.Equal(t, DBBadger, GetString(DBTypeKey))
	require.Equal(t, 15*time.Minute, GetAutoLockTimeout())
	require.Equal(t, securestore.ResetToDefault, GetRecoveryPolicy())
	require.Equal(t, filepath.Join(GetDatadir(), DbLocation), GetDBDir())
	require.Equal(t, filepath.Join(GetDatadir(), PricesLocation), GetPricesDir())
}

func TestAutoLockTimeoutDuration(t *testing.T) {
	t.Setenv("FOLIO_DATADIR", t.TempDir())
	t.Setenv("FOLIO_AUTO_LOCK_TIMEOUT", "90s")

	require.NoError(t, InitConfig())
	require.Equal(t, 90*time.Second, GetAutoLockTimeout())
}

func TestInitConfigFromEnv(t *testing.T) {
	t.Setenv("FOLIO_DATADIR", t.TempDir())
	t.Setenv("FOLIO_DB_TYPE", DBInMemory)
	t.Setenv("FOLIO_AUTO_LOCK_TIMEOUT", "0")
	t.Setenv("FOLIO_RECOVERY_POLICY", RecoveryFail)

	require.NoError(t, InitConfig())

	require.Equal(t, DBInMemory, GetString(DBTypeKey))
	require.Empty(t, GetDBDir())
	require.Empty(t, GetPricesDir())
	require.Zero(t, GetAutoLockTimeout())
	require.Equal(t, securestore.FailClosed, GetRecoveryPolicy())
}

func TestInitConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad db type", "FOLIO_DB_TYPE", "postgres"},
		{"bad recovery policy", "FOLIO_RECOVERY_POLICY", "panic"},
		{"bad cost basis method", "FOLIO_COST_BASIS_METHOD", "acb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("FOLIO_DATADIR", t.TempDir())
			t.Setenv(tt.key, tt.value)
			require.Error(t, InitConfig())
		})
	}
}
