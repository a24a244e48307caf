package redisstorage_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-hr-admin/sessions"
	"github.com/jrsteele09/go-hr-admin/sessions/redisstorage"
	"github.com/jrsteele09/go-hr-admin/users"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newStorage(t *testing.T, mr *miniredis.Miniredis) *redisstorage.RedisStorage {
	t.Helper()
	s := redisstorage.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	s := newStorage(t, mr)

	_, found, err := s.Get(ctx, "auth")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, s.Set(ctx, "auth", []byte(`{"x":1}`)))
	data, found, err := s.Get(ctx, "auth")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, `{"x":1}`, string(data))

	raw, err := mr.Get("hradmin:auth")
	require.NoError(t, err)
	require.Equal(t, `{"x":1}`, raw)

	require.NoError(t, s.Delete(ctx, "auth"))
	_, found, err = s.Get(ctx, "auth")
	require.NoError(t, err)
	require.False(t, found)
}

func TestNewFromURL(t *testing.T) {
	_, err := redisstorage.NewFromURL("not a url", "")
	require.Error(t, err)

	mr := miniredis.RunT(t)
	s, err := redisstorage.NewFromURL("redis://"+mr.Addr()+"/0", "hr:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set(context.Background(), "auth", []byte("v")))
	require.True(t, mr.Exists("hr:auth"))
}

func TestWatchSeesOtherInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	local := sessions.NewStore(newStorage(t, mr), "")
	remote := sessions.NewStore(newStorage(t, mr), "")

	var localChanges, remoteChanges atomic.Int32
	local.Subscribe(func() { localChanges.Add(1) })
	remote.Subscribe(func() { remoteChanges.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- remote.Watch(ctx) }()

	user := &users.User{ID: "u-1", Role: users.RoleManager}
	session := &sessions.Session{AccessToken: "a", RefreshToken: "r"}

	// Keep writing until the subscription is live.
	require.Eventually(t, func() bool {
		_ = local.Save(context.Background(), user, session)
		return remoteChanges.Load() > 0
	}, 2*time.Second, 20*time.Millisecond)

	rec, err := remote.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "u-1", rec.User.ID)
	require.Positive(t, localChanges.Load())

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchIgnoresOwnWrites(t *testing.T) {
	mr := miniredis.RunT(t)
	storage := newStorage(t, mr)
	other := newStorage(t, mr)

	var own atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = storage.Watch(ctx, "auth", func() { own.Add(1) }) }()

	// A write from another instance proves the subscription is live.
	var seen atomic.Int32
	go func() { _ = other.Watch(ctx, "auth", func() { seen.Add(1) }) }()
	require.Eventually(t, func() bool {
		_ = storage.Set(context.Background(), "auth", []byte("v"))
		return seen.Load() > 0
	}, 2*time.Second, 20*time.Millisecond)

	require.Zero(t, own.Load())
}
