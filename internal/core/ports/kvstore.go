package ports

import "github.com/cryptofolio/cryptofolio-daemon/pkg/securestore"

// KVStore is the synchronous key-value substrate the secure storage layer is
// built atop. Defined by the securestore package; aliased here so the
// infrastructure implementations depend on ports like every other adapter.
type KVStore = securestore.KVStore

// ErrKeyNotFound is returned by KVStore.Get when the key has no value.
var ErrKeyNotFound = securestore.ErrKeyNotFound
