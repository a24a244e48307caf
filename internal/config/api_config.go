package config

import (
	"strings"
	"time"
)

type APIConfig interface {
	GetAPIURL() string
	GetRequestTimeout() time.Duration
	GetRefreshTimeout() time.Duration
}

type API struct {
	URL            string        `yaml:"url" env:"HR_API_URL" env-default:"http://localhost:3000/api"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"30s"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout" env:"REFRESH_TIMEOUT" env-default:"10s"`
}

var _ APIConfig = API{}

// GetAPIURL returns the API base URL without a trailing slash.
func (a API) GetAPIURL() string {
	return strings.TrimRight(a.URL, "/")
}

func (a API) GetRequestTimeout() time.Duration {
	return a.RequestTimeout
}

// GetRefreshTimeout bounds a single call to the refresh endpoint. Requests
// queued behind a refresh wait at most this long for its outcome.
func (a API) GetRefreshTimeout() time.Duration {
	if a.RefreshTimeout <= 0 {
		return 10 * time.Second
	}
	return a.RefreshTimeout
}
