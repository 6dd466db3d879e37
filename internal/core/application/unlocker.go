package application

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lightningnetwork/lnd/ticker"
	log "github.com/sirupsen/logrus"
)

// AutoLocker locks the vault after a period of inactivity. Activity is
// reported with Touch by whatever surface serves the user; the ticker is
// injectable so tests can force ticks.
type AutoLocker struct {
	vaultSvc *VaultService
	timeout  time.Duration
	ticker   ticker.Ticker

	lastActivity int64

	startOnce sync.Once
	stopOnce  sync.Once
	quit      chan struct{}
	wg        sync.WaitGroup
}

// NewAutoLocker returns an auto-locker firing after the given inactivity
// timeout. A timeout of zero disables it.
func NewAutoLocker(vaultSvc *VaultService, timeout time.Duration, t ticker.Ticker) *AutoLocker {
	return &AutoLocker{
		vaultSvc: vaultSvc,
		timeout:  timeout,
		ticker:   t,
		quit:     make(chan struct{}),
	}
}

// Start begins watching for inactivity.
func (a *AutoLocker) Start() {
	if a.timeout <= 0 {
		return
	}
	a.startOnce.Do(func() {
		a.Touch()
		a.ticker.Resume()
		a.wg.Add(1)
		go a.watch()
	})
}

// Stop halts the watcher. It does not lock the vault.
func (a *AutoLocker) Stop() {
	a.stopOnce.Do(func() {
		close(a.quit)
		a.ticker.Stop()
	})
	a.wg.Wait()
}

// Touch records user activity, pushing the lock deadline forward.
func (a *AutoLocker) Touch() {
	atomic.StoreInt64(&a.lastActivity, time.Now().UnixNano())
}

func (a *AutoLocker) watch() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ticker.Ticks():
			if a.vaultSvc.IsLocked() {
				continue
			}
			last := time.Unix(0, atomic.LoadInt64(&a.lastActivity))
			if time.Since(last) >= a.timeout {
				log.Debug("inactivity timeout reached, locking vault")
				a.vaultSvc.Lock()
			}
		case <-a.quit:
			return
		}
	}
}
