package nameserver

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/fortytw2/leaktest"
	"github.com/nicolagi/distfs/internal/dfspath"
	"github.com/nicolagi/distfs/internal/rmi"
	"github.com/nicolagi/distfs/internal/storageserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReplicationAndInvalidation reproduces the replication scenario end
// to end, over real TCP loopback connections: with two storage servers
// registered, repeated shared lock/unlock cycles on a file owned by one
// of them trigger exactly one replication copy to the other, and a
// subsequent exclusive lock invalidates that replica.
func TestReplicationAndInvalidation(t *testing.T) {
	defer leaktest.Check(t)()

	policy := NewPolicy()
	policy.M = 3
	policy.Alpha = 1
	server := New(policy)

	registrationSkeleton, err := rmi.NewSkeleton(rmi.RegistrationName, rmi.NewRegistrationFacade(server), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, registrationSkeleton.Start())
	defer registrationSkeleton.Stop()
	registration := rmi.RegistrationStub{Network: "tcp", Address: registrationSkeleton.Addr().String()}

	owner := startStorageServer(t, registration)
	replicaTarget := startStorageServer(t, registration)

	ctx := context.Background()
	stats := server.Stats()
	assert.Equal(t, 2, stats.RegisteredServers)

	created, err := server.CreateFile(ctx, dfspath.MustParse("/file"))
	require.NoError(t, err)
	require.True(t, created)

	for i := 0; i < 3; i++ {
		require.NoError(t, server.Lock(ctx, dfspath.MustParse("/file"), false))
		require.NoError(t, server.Unlock(ctx, dfspath.MustParse("/file"), false))
	}

	node := server.tree.Lookup(dfspath.MustParse("/file"))
	require.NotNil(t, node)
	replicas := server.tree.Replicas(node)
	require.Len(t, replicas, 1)

	var replicatedTo *storedServer
	for _, s := range []*storedServer{owner, replicaTarget} {
		if s.pair != node.Owner && s.pair == replicas[0] {
			replicatedTo = s
		}
	}
	require.NotNil(t, replicatedTo)
	_, err = ioutil.ReadFile(filepath.Join(replicatedTo.root, "file"))
	assert.NoError(t, err)

	require.NoError(t, server.Lock(ctx, dfspath.MustParse("/file"), true))
	require.NoError(t, server.Unlock(ctx, dfspath.MustParse("/file"), true))

	assert.Empty(t, server.tree.Replicas(node))
	_, err = ioutil.ReadFile(filepath.Join(replicatedTo.root, "file"))
	assert.Error(t, err)
}

type storedServer struct {
	root string
	pair rmi.StoragePair
	srv  *storageserver.Server
}

func startStorageServer(t *testing.T, registration rmi.RegistrationStub) *storedServer {
	t.Helper()
	root := t.TempDir()
	srv := storageserver.New(root)
	require.NoError(t, srv.Start("127.0.0.1", registration))
	t.Cleanup(srv.Stop)
	return &storedServer{root: root, pair: srv.Pair(), srv: srv}
}
