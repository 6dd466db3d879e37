package backup_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cryptofolio/cryptofolio-daemon/pkg/backup"
	"github.com/cryptofolio/cryptofolio-daemon/pkg/vault"
)

var testIterations = vault.WithIterations(500)

func testCollections() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		"wallets":      json.RawMessage(`[{"id":"w1","address":"0x1","chain":"ethereum"}]`),
		"transactions": json.RawMessage(`[{"id":"t1","walletId":"w1","asset":"ETH"}]`),
		"settings":     json.RawMessage(`{"currency":"EUR"}`),
	}
}

func TestBackupRoundTrip(t *testing.T) {
	file, err := backup.Create(testCollections(), "pass1234", testIterations)
	require.NoError(t, err)
	require.Equal(t, backup.FileVersion, file.Version)
	require.Greater(t, file.CreatedAt, int64(0))

	restored, err := backup.Restore(file, "pass1234")
	require.NoError(t, err)

	want := testCollections()
	require.Len(t, restored, len(want))
	for key, data := range want {
		require.JSONEq(t, string(data), string(restored[key]))
	}
}

func TestRestoreWrongPassphrase(t *testing.T) {
	file, err := backup.Create(testCollections(), "pass1234", testIterations)
	require.NoError(t, err)

	_, err = backup.Restore(file, "wrongpass")
	require.ErrorIs(t, err, vault.ErrInvalidPassphrase)
}

func TestBackupIsIndependentOfDeviceVault(t *testing.T) {
	first, err := backup.Create(testCollections(), "pass1234", testIterations)
	require.NoError(t, err)
	second, err := backup.Create(testCollections(), "pass1234", testIterations)
	require.NoError(t, err)

	// A fresh salt per backup: same passphrase, different key material.
	require.NotEqual(t, first.Meta.Salt, second.Meta.Salt)
}

func TestParse(t *testing.T) {
	file, err := backup.Create(testCollections(), "pass1234", testIterations)
	require.NoError(t, err)
	raw, err := json.Marshal(file)
	require.NoError(t, err)

	parsed, err := backup.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, file.Meta, parsed.Meta)

	restored, err := backup.Restore(parsed, "pass1234")
	require.NoError(t, err)
	require.Contains(t, restored, "wallets")
}

func TestParseInvalidFiles(t *testing.T) {
	valid, err := backup.Create(testCollections(), "pass1234", testIterations)
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  func() []byte
	}{
		{
			name: "not json",
			raw:  func() []byte { return []byte("not a backup") },
		},
		{
			name: "missing version",
			raw: func() []byte {
				f := *valid
				f.Version = 0
				raw, _ := json.Marshal(f)
				return raw
			},
		},
		{
			name: "missing meta",
			raw: func() []byte {
				f := *valid
				f.Meta = vault.Meta{}
				raw, _ := json.Marshal(f)
				return raw
			},
		},
		{
			name: "malformed payload",
			raw: func() []byte {
				f := *valid
				f.Payload.IV = "tooshort"
				raw, _ := json.Marshal(f)
				return raw
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := backup.Parse(tt.raw())
			require.ErrorIs(t, err, backup.ErrInvalidBackupFile)
		})
	}
}
