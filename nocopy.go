package fetchwork

// noCopy flags types that must not be copied after first use. It
// implements sync.Locker so `go vet -copylocks` reports improper
// copies, the same trick sync.Mutex uses.
type noCopy struct{}

// Lock is a no-op implementation of sync.Locker.Lock.
func (*noCopy) Lock() {}

// Unlock is a no-op implementation of sync.Locker.Unlock.
func (*noCopy) Unlock() {}
