package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"roster/internal/docstore"
	"roster/internal/docstore/docstoretest"
)

func TestConformanceInMemory(t *testing.T) {
	suite.Run(t, &docstoretest.Suite{
		NewSubstrate: func(t *testing.T) docstore.Substrate {
			s, err := Open()
			require.NoError(t, err)
			return s
		},
	})
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(WithDataDir(dir), WithGCInterval(0))
	require.NoError(t, err)
	require.NoError(t, s.CreateIfAbsent(ctx, "111", docstore.Document{"personId": "111", "firstName": "Ana"}))
	require.NoError(t, s.Close())

	reopened, err := Open(WithDataDir(dir), WithGCInterval(0))
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Get(ctx, "111")
	require.NoError(t, err)
	require.Equal(t, "Ana", got["firstName"])

	err = reopened.CreateIfAbsent(ctx, "111", docstore.Document{"personId": "111"})
	require.ErrorIs(t, err, docstore.ErrAlreadyExists)
}

func TestPingAfterClose(t *testing.T) {
	s, err := Open()
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.Error(t, s.Ping(context.Background()))
}
