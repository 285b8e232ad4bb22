package nametree

import (
	"sync"

	"github.com/nicolagi/distfs/internal/dfspath"
	"github.com/nicolagi/distfs/internal/rmi"
	"github.com/nicolagi/distfs/internal/rwlock"
	"github.com/pkg/errors"
)

// ErrNotEmpty reports a directory that is not empty. No function in this
// package returns it.
var ErrNotEmpty = errors.New("directory not empty")

// Tree is the naming server's single global directory tree (spec §4.5):
// a root node plus a lazily populated, concurrency-safe table of per-path
// locks. Structural mutation (inserting or removing a node, changing a
// file's owner/replica set/access counter) happens only under mu, the
// "short critical section" spec §5 calls for; the per-path rwlock.Lock
// values in Locks implement the caller-visible locking protocol and are a
// separate concern from this mutex.
type Tree struct {
	mu   sync.Mutex
	root *Node

	Locks sync.Map // path.String() -> *rwlock.Lock, populated lazily (spec §4.4/§9)
}

// New returns a tree containing only the root directory.
func New() *Tree {
	return &Tree{root: newDirectory(dfspath.Root())}
}

// Lookup walks from the root along p's components and returns the node
// found there, or nil if any component is missing.
func (t *Tree) Lookup(p dfspath.Path) *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lookupLocked(p)
}

func (t *Tree) lookupLocked(p dfspath.Path) *Node {
	n := t.root
	for _, c := range p.Components() {
		if !n.IsDirectory() {
			return nil
		}
		next, ok := n.Children[c]
		if !ok {
			return nil
		}
		n = next
	}
	return n
}

// ChildNames returns the unordered set of a directory's child component
// names, or ok=false if d does not resolve to a directory.
func (t *Tree) ChildNames(d dfspath.Path) (names []string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.lookupLocked(d)
	if n == nil || !n.IsDirectory() {
		return nil, false
	}
	names = make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	return names, true
}

// EnsureDirectories walks from the root along p's components, creating any
// missing directory nodes along the way. It fails if an existing ancestor
// is a file rather than a directory.
func (t *Tree) EnsureDirectories(p dfspath.Path) (*Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.root
	cur := dfspath.Root()
	for _, c := range p.Components() {
		if !n.IsDirectory() {
			return nil, errors.Wrapf(rmi.ErrFileNotFound, "%s is not a directory", cur)
		}
		var err error
		cur, err = dfspath.Child(cur, c)
		if err != nil {
			return nil, err
		}
		next, ok := n.Children[c]
		if !ok {
			next = newDirectory(cur)
			n.Children[c] = next
		}
		n = next
	}
	if !n.IsDirectory() {
		return nil, errors.Wrapf(rmi.ErrFileNotFound, "%s is not a directory", cur)
	}
	return n, nil
}

// InsertFile inserts a new file node at p, owned by owner, as a child of
// parent (which must already be a directory resolved by the caller).
// created is false, and the tree is unchanged, if p already exists.
func (t *Tree) InsertFile(parent *Node, p dfspath.Path, owner rmi.StoragePair) (node *Node, created bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	name, _ := p.Last()
	if existing, ok := parent.Children[name]; ok {
		return existing, false
	}
	n := newFile(p, owner)
	parent.Children[name] = n
	return n, true
}

// InsertDirectory inserts a new, empty directory node at p as a child of
// parent. created is false, and the tree is unchanged, if p already
// exists.
func (t *Tree) InsertDirectory(parent *Node, p dfspath.Path) (node *Node, created bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	name, _ := p.Last()
	if existing, ok := parent.Children[name]; ok {
		return existing, false
	}
	n := newDirectory(p)
	parent.Children[name] = n
	return n, true
}

// Remove detaches the node at p from its parent's children map. It is a
// no-op if p does not resolve to a node with a parent (i.e. the root).
func (t *Tree) Remove(p dfspath.Path) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p.IsRoot() {
		return
	}
	parentPath, err := p.Parent()
	if err != nil {
		return
	}
	parent := t.lookupLocked(parentPath)
	if parent == nil {
		return
	}
	name, _ := p.Last()
	delete(parent.Children, name)
}

// FileDescendants returns every file node at or beneath p: p itself if it
// is a file, or every file found by a recursive walk if it is a directory.
// Returns nil if p does not resolve to a node.
func (t *Tree) FileDescendants(p dfspath.Path) []*Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.lookupLocked(p)
	if n == nil {
		return nil
	}
	var out []*Node
	var walk func(*Node)
	walk = func(n *Node) {
		if !n.IsDirectory() {
			out = append(out, n)
			return
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(n)
	return out
}

// IncrementAccesses increments a file node's access counter and reports
// whether it has just reached threshold, resetting it to zero in that
// case, per spec §4.5's replication trigger.
func (t *Tree) IncrementAccesses(n *Node, threshold int) (crossed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n.Accesses++
	if n.Accesses >= threshold {
		n.Accesses = 0
		return true
	}
	return false
}

// ResetAccesses zeroes a file node's access counter, per spec §4.5's
// invalidation trigger on exclusive acquisition.
func (t *Tree) ResetAccesses(n *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n.Accesses = 0
}

// Replicas returns a snapshot of a file node's current replica set.
func (t *Tree) Replicas(n *Node) []rmi.StoragePair {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]rmi.StoragePair, 0, len(n.Replicas))
	for r := range n.Replicas {
		out = append(out, r)
	}
	return out
}

// AddReplica records pair as holding a replica of n's file, unless pair is
// n's owner or already a replica.
func (t *Tree) AddReplica(n *Node, pair rmi.StoragePair) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pair == n.Owner {
		return
	}
	n.Replicas[pair] = struct{}{}
}

// ClearReplicas removes every replica from n's replica set (spec §4.5
// invalidation: "The owner stub pair retains the sole authoritative
// copy").
func (t *Tree) ClearReplicas(n *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n.Replicas = make(map[rmi.StoragePair]struct{})
}

// RemoveReplica removes a single pair from n's replica set, e.g. after a
// successful invalidation delete.
func (t *Tree) RemoveReplica(n *Node, pair rmi.StoragePair) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(n.Replicas, pair)
}

// LockFor returns the rwlock.Lock for path p, creating it on first use.
func (t *Tree) LockFor(p dfspath.Path) *rwlock.Lock {
	v, _ := t.Locks.LoadOrStore(p.String(), new(rwlock.Lock))
	return v.(*rwlock.Lock)
}

// ExistingLockFor returns the rwlock.Lock already on record for path p,
// without creating one. ok is false if p's lock has never been obtained
// via LockFor, i.e. p has never been the target (or an ancestor of the
// target) of a successful Lock call.
func (t *Tree) ExistingLockFor(p dfspath.Path) (lock *rwlock.Lock, ok bool) {
	v, ok := t.Locks.Load(p.String())
	if !ok {
		return nil, false
	}
	return v.(*rwlock.Lock), true
}
