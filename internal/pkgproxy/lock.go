package pkgproxy

import (
	"errors"
	"os"
	"time"
)

const lockPoll = 50 * time.Millisecond

var errLockTimeout = errors.New("timed out waiting for the lock")

// acquireLock takes an exclusive OS lock on path, polling until timeout
// while another process holds it. The lock dies with its holder, so a lock
// file left behind by a killed process does not block anyone. The returned
// func releases the lock; the file itself stays.
func acquireLock(path string, timeout time.Duration) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	for {
		ok, err := tryLock(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		if ok {
			return func() {
				_ = unlockFile(f)
				_ = f.Close()
			}, nil
		}
		if !time.Now().Before(deadline) {
			_ = f.Close()
			return nil, errLockTimeout
		}
		time.Sleep(lockPoll)
	}
}
