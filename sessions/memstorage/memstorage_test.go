package memstorage_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-hr-admin/sessions/memstorage"
	"github.com/stretchr/testify/require"
)

func TestMemStorageCopiesValues(t *testing.T) {
	ctx := context.Background()
	m := memstorage.New()

	in := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", in))
	in[0] = 'x'

	out, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "abc", string(out))

	out[0] = 'y'
	again, _, _ := m.Get(ctx, "k")
	require.Equal(t, "abc", string(again))

	require.NoError(t, m.Delete(ctx, "k"))
	_, found, err = m.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, found)
}
