package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/fatih/color"
	"github.com/jrsteele09/go-hr-admin/apiclient"
	"github.com/jrsteele09/go-hr-admin/auth"
	"github.com/jrsteele09/go-hr-admin/hrapi"
	"github.com/jrsteele09/go-hr-admin/internal/config"
	"github.com/jrsteele09/go-hr-admin/sessions"
	"github.com/jrsteele09/go-hr-admin/sessions/filestorage"
	"github.com/jrsteele09/go-hr-admin/sessions/memstorage"
	"github.com/jrsteele09/go-hr-admin/sessions/redisstorage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

// app wires the configured storage, client and services for one command.
type app struct {
	cfg    config.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	registry  *prometheus.Registry
	store     *sessions.Store
	client    *apiclient.Client
	auth      *auth.Service
	analytics *hrapi.AnalyticsService
	timeOff   *hrapi.TimeOffService

	closers []func() error
}

func newApp(ctx context.Context, c config.Config, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	a := &app{
		cfg:      c,
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector())

	storage, err := a.newStorage(c)
	if err != nil {
		return nil, err
	}
	a.store = sessions.NewStore(storage, c.GetStorageKey())

	a.client = apiclient.New(c.GetAPIURL(), a.store,
		apiclient.WithHTTPClient(&http.Client{Timeout: c.GetRequestTimeout()}),
		apiclient.WithRefreshTimeout(c.GetRefreshTimeout()),
		apiclient.WithMetrics(apiclient.NewMetrics(a.registry)),
		apiclient.WithSessionExpiredHandler(a.sessionExpired),
	)

	a.auth, err = auth.New(ctx, a.client, a.store)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		a.auth.Close()
		return nil
	})

	a.analytics = hrapi.NewAnalyticsService(a.client)
	a.timeOff = hrapi.NewTimeOffService(a.client)
	return a, nil
}

func (a *app) newStorage(c config.Config) (sessions.Storage, error) {
	switch c.GetStorageBackend() {
	case config.StorageMemory:
		return memstorage.New(), nil
	case config.StorageRedis:
		rs, err := redisstorage.NewFromURL(c.GetRedisURL(), "")
		if err != nil {
			return nil, fmt.Errorf("[app newStorage] %w", err)
		}
		a.closers = append(a.closers, rs.Close)
		return rs, nil
	default:
		fs, err := filestorage.New(c.GetDataFolder(), filestorage.WithPassphrase(c.GetSessionPassphrase()))
		if err != nil {
			return nil, fmt.Errorf("[app newStorage] %w", err)
		}
		return fs, nil
	}
}

// sessionExpired is where a browser would be sent back to the login page.
func (a *app) sessionExpired(err error) {
	log.Debug().Err(err).Msg("Session expired")
	color.New(color.FgRed).Fprintln(a.stderr, "session expired, run `hradmin login`")
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Err(err).Msg("Failed to close")
		}
	}
	a.closers = nil
}
