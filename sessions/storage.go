package sessions

import "context"

// DefaultKey is the application-wide storage key of the auth record.
const DefaultKey = "hr_admin_auth"

// Storage is the raw key-value backend behind a Store. Set must replace the
// value in one step so readers never observe a partial write.
type Storage interface {
	// Get returns the stored bytes and whether the key exists.
	Get(ctx context.Context, key string) (data []byte, found bool, err error)

	// Set overwrites the value stored under key.
	Set(ctx context.Context, key string, data []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Watcher is implemented by storages shared between processes. Watch blocks
// until ctx ends, calling onChange whenever another writer changes key.
type Watcher interface {
	Watch(ctx context.Context, key string, onChange func()) error
}
