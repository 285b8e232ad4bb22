// Package nametree implements the naming server's in-memory directory
// tree: path nodes each carrying, for files, the owning storage-server
// stub pair, a replica set, and an access counter (spec §3), plus the
// per-path lock table of spec §4.4/§4.5.
package nametree

import (
	"github.com/nicolagi/distfs/internal/dfspath"
	"github.com/nicolagi/distfs/internal/rmi"
)

// Kind distinguishes a directory node from a file node.
type Kind int

const (
	KindDirectory Kind = iota
	KindFile
)

// Node is one element of the directory tree. Fields are only ever mutated
// while the owning Tree's structural mutex is held (see Tree), never
// directly.
type Node struct {
	Path Path

	Kind     Kind
	Children map[string]*Node      // directories only
	Owner    rmi.StoragePair        // files only
	Replicas map[rmi.StoragePair]struct{} // files only, disjoint from {Owner}
	Accesses int                    // files only
}

// Path is an alias kept local to this package's exported surface so callers
// don't need to import dfspath just to read a Node's path.
type Path = dfspath.Path

func newDirectory(p Path) *Node {
	return &Node{Path: p, Kind: KindDirectory, Children: make(map[string]*Node)}
}

func newFile(p Path, owner rmi.StoragePair) *Node {
	return &Node{Path: p, Kind: KindFile, Owner: owner, Replicas: make(map[rmi.StoragePair]struct{})}
}

// IsDirectory reports whether n is a directory node (including the root,
// which is always a directory per spec §9).
func (n *Node) IsDirectory() bool { return n.Kind == KindDirectory }
