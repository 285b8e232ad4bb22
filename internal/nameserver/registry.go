package nameserver

import "github.com/nicolagi/distfs/internal/rmi"

// Registry is the naming server's insertion-ordered set of registered
// storage-server stub pairs (spec §9: "keep an insertion-ordered structure
// plus a hash index", needed so createFile's uniform random pick has
// something indexable to pick from).
type Registry struct {
	pairs []rmi.StoragePair
	index map[rmi.StoragePair]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[rmi.StoragePair]int)}
}

// Contains reports whether pair is already registered.
func (r *Registry) Contains(pair rmi.StoragePair) bool {
	_, ok := r.index[pair]
	return ok
}

// Add records pair as registered. Callers must check Contains first; Add
// does not itself reject duplicates.
func (r *Registry) Add(pair rmi.StoragePair) {
	r.index[pair] = len(r.pairs)
	r.pairs = append(r.pairs, pair)
}

// Len returns the number of registered servers.
func (r *Registry) Len() int { return len(r.pairs) }

// At returns the i'th registered server in registration order.
func (r *Registry) At(i int) rmi.StoragePair { return r.pairs[i] }

// All returns a snapshot of every registered server, in registration
// order.
func (r *Registry) All() []rmi.StoragePair {
	return append([]rmi.StoragePair(nil), r.pairs...)
}
