package storageserver

import (
	"context"
	"testing"

	"github.com/nicolagi/distfs/internal/dfspath"
	"github.com/nicolagi/distfs/internal/rmi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeReadWrite(t *testing.T) {
	srv := New(t.TempDir())
	ctx := context.Background()
	p := dfspath.MustParse("/f")

	created, err := srv.Create(ctx, p)
	require.NoError(t, err)
	require.True(t, created)

	size, err := srv.Size(ctx, p)
	require.NoError(t, err)
	assert.Zero(t, size)

	data, err := srv.Read(ctx, p, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, data)

	require.NoError(t, srv.Write(ctx, p, 0, []byte("test data")))
	size, err = srv.Size(ctx, p)
	require.NoError(t, err)
	assert.EqualValues(t, 9, size)

	data, err = srv.Read(ctx, p, 0, 9)
	require.NoError(t, err)
	assert.Equal(t, "test data", string(data))

	require.NoError(t, srv.Write(ctx, p, 10, []byte("test data")))
	size, err = srv.Size(ctx, p)
	require.NoError(t, err)
	assert.EqualValues(t, 19, size)
}

func TestReadPastEOFIsOutOfBounds(t *testing.T) {
	srv := New(t.TempDir())
	ctx := context.Background()
	p := dfspath.MustParse("/f")
	_, err := srv.Create(ctx, p)
	require.NoError(t, err)
	require.NoError(t, srv.Write(ctx, p, 0, []byte("abc")))

	_, err = srv.Read(ctx, p, 0, 4)
	assert.ErrorIs(t, err, rmi.ErrOutOfBounds)

	_, err = srv.Read(ctx, p, -1, 1)
	assert.ErrorIs(t, err, rmi.ErrOutOfBounds)
}

func TestSizeReadWriteOnMissingFile(t *testing.T) {
	srv := New(t.TempDir())
	ctx := context.Background()
	p := dfspath.MustParse("/missing")

	_, err := srv.Size(ctx, p)
	assert.ErrorIs(t, err, rmi.ErrFileNotFound)
	_, err = srv.Read(ctx, p, 0, 1)
	assert.ErrorIs(t, err, rmi.ErrFileNotFound)
	err = srv.Write(ctx, p, 0, []byte("x"))
	assert.ErrorIs(t, err, rmi.ErrFileNotFound)
}

func TestCreateMakesParentDirectoriesAndRejectsConflicts(t *testing.T) {
	srv := New(t.TempDir())
	ctx := context.Background()
	p := dfspath.MustParse("/a/b/c")

	created, err := srv.Create(ctx, p)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = srv.Create(ctx, p)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestCreateRejectsRoot(t *testing.T) {
	srv := New(t.TempDir())
	created, err := srv.Create(context.Background(), dfspath.Root())
	require.NoError(t, err)
	assert.False(t, created)
}

func TestDeleteFileAndDirectory(t *testing.T) {
	srv := New(t.TempDir())
	ctx := context.Background()

	deleted, err := srv.Delete(ctx, dfspath.MustParse("/missing"))
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = srv.Create(ctx, dfspath.MustParse("/a/b"))
	require.NoError(t, err)

	deleted, err = srv.Delete(ctx, dfspath.MustParse("/a"))
	require.NoError(t, err)
	assert.True(t, deleted)

	isDirRoot, err := srv.Size(ctx, dfspath.MustParse("/a/b"))
	assert.Zero(t, isDirRoot)
	assert.Error(t, err)
}

func TestDeleteRejectsRoot(t *testing.T) {
	srv := New(t.TempDir())
	_, err := srv.Delete(context.Background(), dfspath.Root())
	assert.ErrorIs(t, err, rmi.ErrInvalidArgument)
}
