package vault_test

import (
	"testing"

	"github.com/cryptofolio/cryptofolio-daemon/pkg/vault"
	"github.com/stretchr/testify/require"
)

var testIterations = vault.WithIterations(1000)

func TestCreateUnlock(t *testing.T) {
	u, sentinel, err := vault.Create("correct horse battery", testIterations)
	require.NoError(t, err)
	require.NotNil(t, u)
	require.False(t, u.IsLocked())

	meta := u.Meta()
	require.Equal(t, vault.MetaVersion, meta.Version)
	require.NotEmpty(t, meta.Salt)
	require.Equal(t, "PBKDF2", meta.KDF.Name)
	require.Equal(t, 1000, meta.KDF.Iterations)

	unlocked, err := vault.Unlock(meta, sentinel, "correct horse battery")
	require.NoError(t, err)
	require.True(t, vault.KeyEqual(u, unlocked))
}

func TestFailingCreate(t *testing.T) {
	tests := []struct {
		name        string
		passphrase  string
		expectedErr error
	}{
		{
			name:        "empty passphrase",
			passphrase:  "",
			expectedErr: vault.ErrWeakPassphrase,
		},
		{
			name:        "short passphrase",
			passphrase:  "1234567",
			expectedErr: vault.ErrWeakPassphrase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := vault.Create(tt.passphrase, testIterations)
			require.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestFailingUnlock(t *testing.T) {
	u, sentinel, err := vault.Create("pass1234", testIterations)
	require.NoError(t, err)

	_, err = vault.Unlock(u.Meta(), sentinel, "wrongpass")
	require.ErrorIs(t, err, vault.ErrInvalidPassphrase)

	// Corrupted sentinel must be indistinguishable from a wrong passphrase.
	corrupted := sentinel
	corrupted.Ciphertext = sentinel.Ciphertext[:len(sentinel.Ciphertext)-8] + "AAAAAAA="
	_, err = vault.Unlock(u.Meta(), corrupted, "pass1234")
	require.ErrorIs(t, err, vault.ErrInvalidPassphrase)
}

func TestUnsupportedMeta(t *testing.T) {
	u, sentinel, err := vault.Create("pass1234", testIterations)
	require.NoError(t, err)

	meta := u.Meta()
	meta.KDF.Name = "ARGON2ID"
	_, err = vault.Unlock(meta, sentinel, "pass1234")
	require.ErrorIs(t, err, vault.ErrCryptoUnavailable)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	u, _, err := vault.Create("pass1234", testIterations)
	require.NoError(t, err)

	type blob struct {
		Name   string   `json:"name"`
		Assets []string `json:"assets"`
	}
	in := blob{Name: "main", Assets: []string{"BTC", "ETH"}}

	payload, err := u.Encrypt(in)
	require.NoError(t, err)
	require.Equal(t, vault.PayloadVersion, payload.Version)

	var out blob
	err = u.Decrypt(payload, &out)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestUniqueIV(t *testing.T) {
	u, _, err := vault.Create("pass1234", testIterations)
	require.NoError(t, err)

	first, err := u.Encrypt("same plaintext")
	require.NoError(t, err)
	second, err := u.Encrypt("same plaintext")
	require.NoError(t, err)

	require.NotEqual(t, first.IV, second.IV)
	require.NotEqual(t, first.Ciphertext, second.Ciphertext)
}

func TestDecryptWithDifferentKey(t *testing.T) {
	alice, _, err := vault.Create("pass1234", testIterations)
	require.NoError(t, err)
	bob, _, err := vault.Create("pass1234", testIterations)
	require.NoError(t, err)

	payload, err := alice.Encrypt("secret")
	require.NoError(t, err)

	// Same passphrase but different salt, hence a different key.
	var out string
	err = bob.Decrypt(payload, &out)
	require.ErrorIs(t, err, vault.ErrTamperedData)
}

func TestTamperedCiphertext(t *testing.T) {
	u, _, err := vault.Create("pass1234", testIterations)
	require.NoError(t, err)

	payload, err := u.Encrypt(map[string]int{"answer": 42})
	require.NoError(t, err)

	payload.Ciphertext = "x" + payload.Ciphertext[1:]
	var out map[string]int
	err = u.Decrypt(payload, &out)
	require.Error(t, err)
	require.Empty(t, out)
}

func TestLock(t *testing.T) {
	u, _, err := vault.Create("pass1234", testIterations)
	require.NoError(t, err)

	payload, err := u.Encrypt("before lock")
	require.NoError(t, err)

	u.Lock()
	require.True(t, u.IsLocked())

	_, err = u.Encrypt("after lock")
	require.ErrorIs(t, err, vault.ErrLocked)

	var out string
	err = u.Decrypt(payload, &out)
	require.ErrorIs(t, err, vault.ErrLocked)
}

func TestChangePassphrase(t *testing.T) {
	u, _, err := vault.Create("pass1234", testIterations)
	require.NoError(t, err)

	rekeyed, sentinel, err := u.ChangePassphrase("newpass5678", testIterations)
	require.NoError(t, err)
	require.NotEqual(t, u.Meta().Salt, rekeyed.Meta().Salt)

	unlocked, err := vault.Unlock(rekeyed.Meta(), sentinel, "newpass5678")
	require.NoError(t, err)
	require.True(t, vault.KeyEqual(rekeyed, unlocked))
}
