// Package nameserver implements the naming server's service and
// registration interfaces on top of internal/nametree: the hierarchical
// locking discipline, replication/invalidation trigger, file/directory
// creation with storage-server selection, delete fan-out, and
// storage-server registration with duplicate reconciliation.
package nameserver

import (
	"context"
	"math/rand"
	"sync"

	"github.com/nicolagi/distfs/internal/dfspath"
	"github.com/nicolagi/distfs/internal/nametree"
	"github.com/nicolagi/distfs/internal/rmi"
	"github.com/nicolagi/distfs/internal/rwlock"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// deleteConcurrency bounds how many owner/replica delete RPCs a single
// Delete call issues at once.
const deleteConcurrency = 8

// Server implements rmi.Service and rmi.Registration over a single
// in-memory directory tree (spec §4.5). A Server is safe for concurrent
// calls: structural tree mutation is serialized internally by the tree,
// and the registry is guarded by registryMu.
type Server struct {
	tree     *nametree.Tree
	registry *Registry
	policy   *Policy

	registryMu sync.Mutex
}

var (
	_ rmi.Service      = (*Server)(nil)
	_ rmi.Registration = (*Server)(nil)
)

// New returns a naming server with an empty tree and registry. A nil
// policy falls back to NewPolicy's defaults.
func New(policy *Policy) *Server {
	if policy == nil {
		policy = NewPolicy()
	}
	return &Server{
		tree:     nametree.New(),
		registry: NewRegistry(),
		policy:   policy,
	}
}

// Lock implements the hierarchical locking discipline of spec §4.5:
// shared locks on every ancestor of p, then the requested mode on p
// itself, acquired strictly root-to-leaf. On success, a shared
// acquisition of a file node runs the replication trigger; an exclusive
// acquisition runs invalidation, which can itself fail the call.
func (s *Server) Lock(ctx context.Context, p dfspath.Path, exclusive bool) error {
	if s.tree.Lookup(p) == nil {
		return errors.Wrapf(rmi.ErrFileNotFound, "lock: %s", p)
	}
	chain := dfspath.Chain(p)
	acquired := make([]*acquisition, 0, len(chain))
	release := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i].lock.Release(acquired[i].exclusive)
		}
	}
	for i, ancestor := range chain {
		mode := i == len(chain)-1 && exclusive
		lock := s.tree.LockFor(ancestor)
		if err := lock.Acquire(ctx, mode); err != nil {
			release()
			return err
		}
		acquired = append(acquired, &acquisition{lock: lock, exclusive: mode})
	}

	n := s.tree.Lookup(p)
	if n != nil && !n.IsDirectory() {
		if exclusive {
			if err := s.policy.OnExclusiveAcquire(ctx, s.tree, n); err != nil {
				release()
				return err
			}
		} else {
			s.registryMu.Lock()
			registered := NewRegistry()
			for _, pair := range s.registry.All() {
				registered.Add(pair)
			}
			s.registryMu.Unlock()
			s.policy.OnSharedAcquire(ctx, s.tree, n, registered)
		}
	}
	return nil
}

type acquisition struct {
	lock      *rwlock.Lock
	exclusive bool
}

// Unlock releases p's lock and every ancestor's shared lock, root last,
// mirroring a prior Lock call of the same mode. Per spec §4.5/§6, unlock
// of a path that was never locked fails with ErrInvalidArgument rather
// than silently releasing: the per-path lock table is populated lazily,
// so a path nobody has ever locked has no recorded lock to release, and
// releasing a fresh, never-acquired lock would drive its reader count
// negative.
func (s *Server) Unlock(ctx context.Context, p dfspath.Path, exclusive bool) error {
	if s.tree.Lookup(p) == nil {
		return errors.Wrapf(rmi.ErrInvalidArgument, "unlock: unknown path %s", p)
	}
	chain := dfspath.Chain(p)
	locks := make([]*rwlock.Lock, len(chain))
	for i, ancestor := range chain {
		lock, ok := s.tree.ExistingLockFor(ancestor)
		if !ok {
			return errors.Wrapf(rmi.ErrInvalidArgument, "unlock: %s: not previously locked", p)
		}
		locks[i] = lock
	}
	for i := len(chain) - 1; i >= 0; i-- {
		mode := i == len(chain)-1 && exclusive
		locks[i].Release(mode)
	}
	return nil
}

// IsDirectory reports whether p resolves to a directory node.
func (s *Server) IsDirectory(ctx context.Context, p dfspath.Path) (bool, error) {
	n := s.tree.Lookup(p)
	if n == nil {
		return false, errors.Wrapf(rmi.ErrFileNotFound, "isDirectory: %s", p)
	}
	return n.IsDirectory(), nil
}

// List returns the child names of directory d.
func (s *Server) List(ctx context.Context, d dfspath.Path) ([]string, error) {
	names, ok := s.tree.ChildNames(d)
	if !ok {
		return nil, errors.Wrapf(rmi.ErrFileNotFound, "list: %s", d)
	}
	return names, nil
}

// CreateFile creates an empty file at p, owned by a uniformly chosen
// registered storage server, per spec §4.5.
func (s *Server) CreateFile(ctx context.Context, p dfspath.Path) (bool, error) {
	if p.IsRoot() {
		return false, nil
	}
	parentPath, err := p.Parent()
	if err != nil {
		return false, err
	}
	parent := s.tree.Lookup(parentPath)
	if parent == nil || !parent.IsDirectory() {
		return false, errors.Wrapf(rmi.ErrFileNotFound, "createFile: parent of %s", p)
	}
	if s.tree.Lookup(p) != nil {
		return false, nil
	}

	s.registryMu.Lock()
	if s.registry.Len() == 0 {
		s.registryMu.Unlock()
		return false, errors.Wrap(rmi.ErrServerState, "createFile: no storage servers registered")
	}
	pick := s.registry.At(rand.Intn(s.registry.Len()))
	s.registryMu.Unlock()

	created, err := pick.Command.Create(ctx, p)
	if err != nil {
		return false, err
	}
	if created {
		s.tree.InsertFile(parent, p, pick)
	}
	return created, nil
}

// CreateDirectory creates an empty directory at d.
func (s *Server) CreateDirectory(ctx context.Context, d dfspath.Path) (bool, error) {
	if d.IsRoot() {
		return false, nil
	}
	parentPath, err := d.Parent()
	if err != nil {
		return false, err
	}
	parent := s.tree.Lookup(parentPath)
	if parent == nil || !parent.IsDirectory() {
		return false, errors.Wrapf(rmi.ErrFileNotFound, "createDirectory: parent of %s", d)
	}
	if s.tree.Lookup(d) != nil {
		return false, nil
	}
	_, created := s.tree.InsertDirectory(parent, d)
	return created, nil
}

// Delete removes p (file or directory subtree), issuing a delete RPC to
// the owner and every replica of each file descendant before detaching
// the subtree from its parent. Per spec §9's resolution of an
// underspecified case, it returns true only if every one of those RPCs
// both succeeded and reported the file as actually removed.
func (s *Server) Delete(ctx context.Context, p dfspath.Path) (bool, error) {
	if p.IsRoot() {
		return false, errors.Wrap(rmi.ErrFileNotFound, "delete: root")
	}
	n := s.tree.Lookup(p)
	if n == nil {
		return false, errors.Wrapf(rmi.ErrFileNotFound, "delete: %s", p)
	}

	files := s.tree.FileDescendants(p)
	var mu sync.Mutex
	ok := true
	sem := make(chan struct{}, deleteConcurrency)
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range files {
		path := f.Path
		targets := append([]rmi.StoragePair{f.Owner}, s.tree.Replicas(f)...)
		for _, target := range targets {
			target := target
			g.Go(func() error {
				sem <- struct{}{}
				defer func() { <-sem }()
				deleted, err := target.Command.Delete(gctx, path)
				if err != nil || !deleted {
					mu.Lock()
					ok = false
					mu.Unlock()
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	s.tree.Remove(p)
	return ok, nil
}

// GetStorage returns the client stub of the storage server owning file p.
func (s *Server) GetStorage(ctx context.Context, p dfspath.Path) (rmi.ClientStub, error) {
	n := s.tree.Lookup(p)
	if n == nil || n.IsDirectory() {
		return rmi.ClientStub{}, errors.Wrapf(rmi.ErrFileNotFound, "getStorage: %s", p)
	}
	return n.Owner.Client, nil
}

// Register implements the naming server's registration handshake (spec
// §4.5): it records pair as a registered storage server and walks files
// into the tree, reporting every path that could not be inserted because
// it, or an ancestor of it, already existed.
func (s *Server) Register(ctx context.Context, pair rmi.StoragePair, files []dfspath.Path) ([]dfspath.Path, error) {
	var zeroClient rmi.ClientStub
	var zeroCommand rmi.CommandStub
	if pair.Client == zeroClient || pair.Command == zeroCommand {
		return nil, errors.Wrap(rmi.ErrInvalidArgument, "register: empty stub pair")
	}

	s.registryMu.Lock()
	if s.registry.Contains(pair) {
		s.registryMu.Unlock()
		return nil, errors.Wrapf(rmi.ErrAlreadyRegistered, "register: %s", pair)
	}
	s.registry.Add(pair)
	s.registryMu.Unlock()

	var duplicates []dfspath.Path
	for _, f := range files {
		if f.IsRoot() {
			continue
		}
		parentPath, err := f.Parent()
		if err != nil {
			duplicates = append(duplicates, f)
			continue
		}
		parent, err := s.tree.EnsureDirectories(parentPath)
		if err != nil {
			duplicates = append(duplicates, f)
			continue
		}
		if _, created := s.tree.InsertFile(parent, f, pair); !created {
			duplicates = append(duplicates, f)
		}
	}
	return duplicates, nil
}

// Stats is a diagnostic snapshot of the server's state, not part of the
// RMI-exposed surface.
type Stats struct {
	RegisteredServers int
}

// Stats reports a point-in-time snapshot for operational visibility.
func (s *Server) Stats() Stats {
	s.registryMu.Lock()
	defer s.registryMu.Unlock()
	return Stats{RegisteredServers: s.registry.Len()}
}
