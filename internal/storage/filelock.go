package storage

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

// slotLockWait bounds how long a save waits for another process holding
// the same slot, such as a running `settle run`.
var slotLockWait = 5 * time.Second

const slotLockPoll = 25 * time.Millisecond

// slotLock is an exclusive flock on a slot's .lock file.
type slotLock struct {
	f *os.File
}

// lockSlot takes the lock at path, polling until wait has elapsed. It
// returns ErrSlotBusy if the lock is still held by then.
func lockSlot(path string, wait time.Duration) (*slotLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening slot lock: %w", err)
	}

	deadline := time.Now().Add(wait)
	for {
		err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			return &slotLock{f: f}, nil
		}
		if !errors.Is(err, syscall.EWOULDBLOCK) {
			_ = f.Close()
			return nil, fmt.Errorf("locking slot: %w", err)
		}
		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, ErrSlotBusy
		}
		time.Sleep(slotLockPoll)
	}
}

func (l *slotLock) release() error {
	defer func() { _ = l.f.Close() }()
	return syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
}
