package securestore_test

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cryptofolio/cryptofolio-daemon/pkg/schema"
	"github.com/cryptofolio/cryptofolio-daemon/pkg/securestore"
	"github.com/cryptofolio/cryptofolio-daemon/pkg/vault"
)

type fakeSubstrate struct {
	mtx  sync.RWMutex
	data map[string][]byte
}

func newFakeSubstrate() *fakeSubstrate {
	return &fakeSubstrate{data: map[string][]byte{}}
}

func (f *fakeSubstrate) Get(key string) ([]byte, error) {
	f.mtx.RLock()
	defer f.mtx.RUnlock()
	value, ok := f.data[key]
	if !ok {
		return nil, securestore.ErrKeyNotFound
	}
	return append([]byte{}, value...), nil
}

func (f *fakeSubstrate) Put(key string, value []byte) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.data[key] = append([]byte{}, value...)
	return nil
}

func (f *fakeSubstrate) Delete(key string) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeSubstrate) Close() error { return nil }

type walletEntry struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

var (
	walletsKind = schema.Kind{
		Name:    "wallets",
		Version: 1,
		Validate: func(data json.RawMessage) error {
			var list []walletEntry
			if err := json.Unmarshal(data, &list); err != nil {
				return err
			}
			for _, w := range list {
				if w.ID == "" {
					return fmt.Errorf("missing id")
				}
			}
			return nil
		},
		Default: func() interface{} { return []walletEntry{} },
	}
	txsKind = schema.Kind{
		Name:    "transactions",
		Version: 1,
		Validate: func(data json.RawMessage) error {
			var list []map[string]interface{}
			return json.Unmarshal(data, &list)
		},
		Default: func() interface{} { return []map[string]interface{}{} },
	}
	settingsKind = schema.Kind{
		Name:    "settings",
		Version: 1,
		Validate: func(data json.RawMessage) error {
			var s map[string]interface{}
			return json.Unmarshal(data, &s)
		},
		Default: func() interface{} { return map[string]interface{}{"currency": "EUR"} },
	}
)

func storeOptions(policy securestore.RecoveryPolicy) securestore.Options {
	return securestore.Options{
		Policy: policy,
		EncryptedKinds: map[string]schema.Kind{
			"wallets":      walletsKind,
			"transactions": txsKind,
		},
		PlainKinds: map[string]schema.Kind{
			"settings": settingsKind,
		},
	}
}

func newUnlockedVault(t *testing.T) *vault.Unlocked {
	t.Helper()
	vlt, _, err := vault.Create("pass1234", vault.WithIterations(500))
	require.NoError(t, err)
	return vlt
}

func TestInitializeEmpty(t *testing.T) {
	store := securestore.NewSecureStore(newFakeSubstrate(), storeOptions(securestore.ResetToDefault))
	t.Cleanup(store.Close)

	require.NoError(t, store.Initialize(newUnlockedVault(t)))

	var wallets []walletEntry
	require.NoError(t, store.Read("wallets", &wallets))
	require.Empty(t, wallets)
}

func TestWriteReadSameTick(t *testing.T) {
	store := securestore.NewSecureStore(newFakeSubstrate(), storeOptions(securestore.ResetToDefault))
	t.Cleanup(store.Close)
	require.NoError(t, store.Initialize(newUnlockedVault(t)))

	done, err := store.Write("wallets", []walletEntry{{ID: "a", Address: "0x1"}})
	require.NoError(t, err)

	// The cache is updated synchronously: the read observes the write without
	// waiting for the disk landing.
	var wallets []walletEntry
	require.NoError(t, store.Read("wallets", &wallets))
	require.Len(t, wallets, 1)

	require.NoError(t, <-done)
}

func TestPersistedStateIsEncrypted(t *testing.T) {
	db := newFakeSubstrate()
	store := securestore.NewSecureStore(db, storeOptions(securestore.ResetToDefault))
	t.Cleanup(store.Close)

	vlt := newUnlockedVault(t)
	require.NoError(t, store.Initialize(vlt))

	done, err := store.Write("wallets", []walletEntry{{ID: "a", Address: "0x1"}})
	require.NoError(t, err)
	require.NoError(t, <-done)

	blob, err := db.Get("wallets")
	require.NoError(t, err)

	var payload vault.EncryptedPayload
	require.NoError(t, json.Unmarshal(blob, &payload))
	require.NoError(t, payload.Validate())
	require.NotContains(t, string(blob), "0x1")

	// A fresh store over the same substrate and vault sees the value.
	reopened := securestore.NewSecureStore(db, storeOptions(securestore.ResetToDefault))
	t.Cleanup(reopened.Close)
	require.NoError(t, reopened.Initialize(vlt))

	var wallets []walletEntry
	require.NoError(t, reopened.Read("wallets", &wallets))
	require.Equal(t, []walletEntry{{ID: "a", Address: "0x1"}}, wallets)
}

func TestLegacyPlaintextMigration(t *testing.T) {
	db := newFakeSubstrate()
	require.NoError(t, db.Put("wallets", []byte(`[{"id":"legacy","address":"0x9"}]`)))

	store := securestore.NewSecureStore(db, storeOptions(securestore.ResetToDefault))
	t.Cleanup(store.Close)
	require.NoError(t, store.Initialize(newUnlockedVault(t)))

	var wallets []walletEntry
	require.NoError(t, store.Read("wallets", &wallets))
	require.Equal(t, "legacy", wallets[0].ID)

	// The migration re-encrypts the legacy value in the background.
	require.Eventually(t, func() bool {
		blob, err := db.Get("wallets")
		if err != nil {
			return false
		}
		var payload vault.EncryptedPayload
		return json.Unmarshal(blob, &payload) == nil && payload.Validate() == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCorruptionResetsSingleCategory(t *testing.T) {
	db := newFakeSubstrate()
	vlt := newUnlockedVault(t)

	// Persist a healthy transactions category and a corrupted wallets one.
	seed := securestore.NewSecureStore(db, storeOptions(securestore.ResetToDefault))
	require.NoError(t, seed.Initialize(vlt))
	done, err := seed.Write("transactions", []map[string]interface{}{{"id": "t1"}})
	require.NoError(t, err)
	require.NoError(t, <-done)
	seed.Close()

	tampered, err := vlt.Encrypt([]walletEntry{{ID: "a", Address: "0x1"}})
	require.NoError(t, err)
	tampered.Ciphertext = "x" + tampered.Ciphertext[1:]
	blob, err := json.Marshal(tampered)
	require.NoError(t, err)
	require.NoError(t, db.Put("wallets", blob))

	store := securestore.NewSecureStore(db, storeOptions(securestore.ResetToDefault))
	t.Cleanup(store.Close)
	require.NoError(t, store.Initialize(vlt))

	// Wallets reset to default, transactions untouched: the failure does not
	// cascade across categories.
	var wallets []walletEntry
	require.NoError(t, store.Read("wallets", &wallets))
	require.Empty(t, wallets)

	var txs []map[string]interface{}
	require.NoError(t, store.Read("transactions", &txs))
	require.Len(t, txs, 1)
}

func TestFailClosedPolicy(t *testing.T) {
	db := newFakeSubstrate()
	vlt := newUnlockedVault(t)
	require.NoError(t, db.Put("wallets", []byte(`{"version":1,"iv":"AAAAAAAAAAAAAAAA","ciphertext":"AAAA"}`)))

	store := securestore.NewSecureStore(db, storeOptions(securestore.FailClosed))
	t.Cleanup(store.Close)

	err := store.Initialize(vlt)
	require.Error(t, err)
}

func TestVaultLockedSemantics(t *testing.T) {
	store := securestore.NewSecureStore(newFakeSubstrate(), storeOptions(securestore.ResetToDefault))
	t.Cleanup(store.Close)

	// Not initialized yet: everything encrypted is locked.
	var wallets []walletEntry
	require.ErrorIs(t, store.Read("wallets", &wallets), securestore.ErrVaultLocked)

	_, err := store.Write("wallets", []walletEntry{{ID: "a"}})
	require.ErrorIs(t, err, securestore.ErrVaultLocked)

	require.NoError(t, store.Initialize(newUnlockedVault(t)))
	require.NoError(t, store.Read("wallets", &wallets))

	store.Clear()
	require.ErrorIs(t, store.Read("wallets", &wallets), securestore.ErrVaultLocked)
	require.True(t, store.IsLocked())
}

func TestPlainKeysWithoutVault(t *testing.T) {
	store := securestore.NewSecureStore(newFakeSubstrate(), storeOptions(securestore.ResetToDefault))
	t.Cleanup(store.Close)

	// No vault: plain keys are still readable and writable.
	var settings map[string]interface{}
	require.NoError(t, store.Read("settings", &settings))
	require.Equal(t, "EUR", settings["currency"])

	done, err := store.Write("settings", map[string]interface{}{"currency": "USD"})
	require.NoError(t, err)
	require.NoError(t, <-done)

	require.NoError(t, store.Read("settings", &settings))
	require.Equal(t, "USD", settings["currency"])
}

func TestUnknownKey(t *testing.T) {
	store := securestore.NewSecureStore(newFakeSubstrate(), storeOptions(securestore.ResetToDefault))
	t.Cleanup(store.Close)
	require.NoError(t, store.Initialize(newUnlockedVault(t)))

	var out interface{}
	require.ErrorIs(t, store.Read("nope", &out), securestore.ErrUnknownKey)
	_, err := store.Write("nope", 1)
	require.ErrorIs(t, err, securestore.ErrUnknownKey)
}

func TestWriteOrderOnDisk(t *testing.T) {
	db := newFakeSubstrate()
	store := securestore.NewSecureStore(db, storeOptions(securestore.ResetToDefault))
	t.Cleanup(store.Close)

	vlt := newUnlockedVault(t)
	require.NoError(t, store.Initialize(vlt))

	var last <-chan error
	for i := 0; i < 10; i++ {
		done, err := store.Write("wallets", []walletEntry{{ID: fmt.Sprintf("w%d", i), Address: "0x1"}})
		require.NoError(t, err)
		last = done
	}
	require.NoError(t, <-last)

	// The writer queue serializes encryption and persistence: the last
	// logical write is the one on disk.
	reopened := securestore.NewSecureStore(db, storeOptions(securestore.ResetToDefault))
	t.Cleanup(reopened.Close)
	require.NoError(t, reopened.Initialize(vlt))

	var wallets []walletEntry
	require.NoError(t, reopened.Read("wallets", &wallets))
	require.Equal(t, "w9", wallets[0].ID)
}

func TestSnapshotRestore(t *testing.T) {
	store := securestore.NewSecureStore(newFakeSubstrate(), storeOptions(securestore.ResetToDefault))
	t.Cleanup(store.Close)
	require.NoError(t, store.Initialize(newUnlockedVault(t)))

	done, err := store.Write("wallets", []walletEntry{{ID: "a", Address: "0x1"}})
	require.NoError(t, err)
	require.NoError(t, <-done)

	snapshot, err := store.Snapshot()
	require.NoError(t, err)
	require.Contains(t, snapshot, "wallets")
	require.Contains(t, snapshot, "transactions")
	require.Contains(t, snapshot, "settings")

	// Restore into a brand new store with its own vault.
	restored := securestore.NewSecureStore(newFakeSubstrate(), storeOptions(securestore.ResetToDefault))
	t.Cleanup(restored.Close)
	require.NoError(t, restored.Initialize(newUnlockedVault(t)))
	require.NoError(t, restored.Restore(snapshot))

	var wallets []walletEntry
	require.NoError(t, restored.Read("wallets", &wallets))
	require.Equal(t, []walletEntry{{ID: "a", Address: "0x1"}}, wallets)
}
