package config

type StorageBackend string

const (
	StorageFile   StorageBackend = "file"
	StorageRedis  StorageBackend = "redis"
	StorageMemory StorageBackend = "memory"
)

type SessionConfig interface {
	GetStorageBackend() StorageBackend
	GetStorageKey() string
	GetSessionPassphrase() string
	GetRedisURL() string
}

type Session struct {
	Storage    string `yaml:"storage" env:"SESSION_STORAGE" env-default:"file"`
	Key        string `yaml:"key" env:"SESSION_KEY" env-default:"hr_admin_auth"`
	Passphrase string `yaml:"passphrase" env:"SESSION_PASSPHRASE"`
	RedisURL   string `yaml:"redis_url" env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
}

var _ SessionConfig = Session{}

func (s Session) GetStorageBackend() StorageBackend {
	switch b := StorageBackend(s.Storage); b {
	case StorageFile, StorageRedis, StorageMemory:
		return b
	default:
		return StorageFile
	}
}

func (s Session) GetStorageKey() string {
	return s.Key
}

// GetSessionPassphrase returns the passphrase used to seal the session file.
// Empty disables sealing.
func (s Session) GetSessionPassphrase() string {
	return s.Passphrase
}

func (s Session) GetRedisURL() string {
	return s.RedisURL
}
