package nameserver

import (
	"context"
	"math"
	"math/rand"

	"github.com/nicolagi/distfs/internal/nametree"
	"github.com/nicolagi/distfs/internal/rmi"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Default policy tunables (spec §9: "the values given are from the
// source").
const (
	DefaultReplicationThreshold = 20
	DefaultReplicationFraction  = 0.2
	DefaultMaxReplicas          = 20
)

// replicationConcurrency bounds how many copy/delete RPCs a single
// replication or invalidation round issues at once, following the
// bounded-semaphore fan-out the tree package uses for loading children
// concurrently.
const replicationConcurrency = 8

// Policy is the naming server's replication/invalidation policy, factored
// out of the lock path itself (spec §9: "factor them into a single policy
// object invoked at the moment of successful acquisition on a file node,
// keeping the lock itself generic").
type Policy struct {
	// M is the shared-acquisition access count that triggers replication.
	M int
	// Alpha scales M: each time the threshold is crossed, up to
	// ceil(Alpha*M) eligible servers are replicated to.
	Alpha float64
	// MaxReplicas caps the size of a file's replica set.
	MaxReplicas int
}

// NewPolicy returns a Policy with the spec's documented default tunables.
func NewPolicy() *Policy {
	return &Policy{
		M:           DefaultReplicationThreshold,
		Alpha:       DefaultReplicationFraction,
		MaxReplicas: DefaultMaxReplicas,
	}
}

// OnSharedAcquire runs whenever a shared lock is acquired on a file node:
// it increments the access counter and, if the threshold is crossed,
// triggers replication. Replication failures are logged but never
// returned: replication is best-effort (spec §7).
func (p *Policy) OnSharedAcquire(ctx context.Context, tree *nametree.Tree, n *nametree.Node, registry *Registry) {
	if !tree.IncrementAccesses(n, p.M) {
		return
	}
	p.replicate(ctx, tree, n, registry)
}

// OnExclusiveAcquire runs whenever an exclusive lock is acquired on a file
// node: it resets the access counter and invalidates every current
// replica. An invalidation failure is returned wrapped in ErrServerState,
// aborting the triggering lock call, per spec §7.
func (p *Policy) OnExclusiveAcquire(ctx context.Context, tree *nametree.Tree, n *nametree.Node) error {
	tree.ResetAccesses(n)
	return p.invalidate(ctx, tree, n)
}

func (p *Policy) replicate(ctx context.Context, tree *nametree.Tree, n *nametree.Node, registry *Registry) {
	existing := tree.Replicas(n)
	room := p.MaxReplicas - len(existing)
	if room <= 0 {
		return
	}
	excluded := make(map[rmi.StoragePair]struct{}, len(existing)+1)
	excluded[n.Owner] = struct{}{}
	for _, r := range existing {
		excluded[r] = struct{}{}
	}
	var candidates []rmi.StoragePair
	for _, pair := range registry.All() {
		if _, skip := excluded[pair]; !skip {
			candidates = append(candidates, pair)
		}
	}
	if len(candidates) == 0 {
		return
	}
	rand.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	want := int(math.Ceil(p.Alpha * float64(p.M)))
	if want > room {
		want = room
	}
	if want > len(candidates) {
		want = len(candidates)
	}
	targets := candidates[:want]

	path := n.Path
	owner := n.Owner.Client
	sem := make(chan struct{}, replicationConcurrency)
	g, gctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		target := target
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			copied, err := target.Command.Copy(gctx, path, owner)
			if err != nil {
				log.WithError(err).WithField("path", path).WithField("target", target).Warn("replication copy failed")
				return nil
			}
			if copied {
				tree.AddReplica(n, target)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Policy) invalidate(ctx context.Context, tree *nametree.Tree, n *nametree.Node) error {
	replicas := tree.Replicas(n)
	if len(replicas) == 0 {
		return nil
	}
	path := n.Path
	sem := make(chan struct{}, replicationConcurrency)
	g, gctx := errgroup.WithContext(ctx)
	for _, replica := range replicas {
		replica := replica
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			deleted, err := replica.Command.Delete(gctx, path)
			if err != nil {
				log.WithError(err).WithField("path", path).WithField("replica", replica).Warn("invalidation delete failed")
				return errors.Wrapf(rmi.ErrServerState, "invalidate %s on %s: %v", path, replica, err)
			}
			if deleted {
				tree.RemoveReplica(n, replica)
			}
			return nil
		})
	}
	return g.Wait()
}
