package rmi

import (
	"context"
	"sync"
	"testing"

	"github.com/fortytw2/leaktest"
	"github.com/nicolagi/distfs/internal/dfspath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStorage is a minimal in-memory Storage implementation, used only to
// exercise the skeleton/stub transport, not storage semantics.
type memStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStorage() *memStorage { return &memStorage{data: make(map[string][]byte)} }

func (m *memStorage) Size(ctx context.Context, p dfspath.Path) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.data[p.String()])), nil
}

func (m *memStorage) Read(ctx context.Context, p dfspath.Path, offset, length int64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.data[p.String()]
	return d[offset : offset+length], nil
}

func (m *memStorage) Write(ctx context.Context, p dfspath.Path, offset int64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := p.String()
	buf := m.data[key]
	need := int(offset) + len(data)
	if need > len(buf) {
		grown := make([]byte, need)
		copy(grown, buf)
		buf = grown
	}
	copy(buf[offset:], data)
	m.data[key] = buf
	return nil
}

func TestSkeletonStubRoundTrip(t *testing.T) {
	defer leaktest.Check(t)()

	skeleton, err := NewSkeleton(StorageName, NewStorageFacade(newMemStorage()), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, skeleton.Start())
	defer skeleton.Stop()
	require.NotNil(t, skeleton.Addr())

	stub := ClientStub{Network: "tcp", Address: skeleton.Addr().String()}
	ctx := context.Background()
	p := dfspath.MustParse("/f")

	require.NoError(t, stub.Write(ctx, p, 0, []byte("hello")))
	size, err := stub.Size(ctx, p)
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)
	data, err := stub.Read(ctx, p, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestSkeletonStartTwiceFails(t *testing.T) {
	defer leaktest.Check(t)()
	skeleton, err := NewSkeleton(StorageName+"2", NewStorageFacade(newMemStorage()), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, skeleton.Start())
	defer skeleton.Stop()

	err = skeleton.Start()
	assert.ErrorIs(t, err, ErrServerState)
}

func TestSkeletonStopIsIdempotent(t *testing.T) {
	defer leaktest.Check(t)()
	skeleton, err := NewSkeleton(StorageName+"3", NewStorageFacade(newMemStorage()), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, skeleton.Start())
	skeleton.Stop()
	skeleton.Stop()
}

func TestSkeletonStoppedHookFiresOnStop(t *testing.T) {
	defer leaktest.Check(t)()
	skeleton, err := NewSkeleton(StorageName+"4", NewStorageFacade(newMemStorage()), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	skeleton.Stopped = func(err error) { done <- err }
	require.NoError(t, skeleton.Start())
	skeleton.Stop()
	assert.NoError(t, <-done)
}

func TestUnregisteredMethodDecodesAsMethodNotFound(t *testing.T) {
	defer leaktest.Check(t)()
	skeleton, err := NewSkeleton(StorageName+"5", NewStorageFacade(newMemStorage()), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, skeleton.Start())
	defer skeleton.Stop()

	var reply SizeReply
	err = call("tcp", skeleton.Addr().String(), StorageName+"5.Bogus", &SizeArgs{}, &reply)
	assert.ErrorIs(t, err, ErrMethodNotFound)
}
