// Package rmi implements the length-prefixed remote-method-invocation
// transport of spec §4.2: declared interfaces become dynamically dispatched
// net/rpc services, reached through hand-written client proxies ("stubs")
// that marshal calls and either return a value, raise one of the
// interface's declared errors, or wrap any other failure in
// ErrNetworkError.
//
// This package declares the four remote interfaces of spec §6 in their
// idiomatic Go shape (context.Context first argument, typed errors) and
// provides, for each, a pair of adapters: a *Facade that exposes a local
// implementation over net/rpc (grounded on the teacher's
// internal/storage/rpc.go StoreService/RemoteStore split), and a *Stub
// value type that is the client-side proxy.
package rmi

import (
	"context"

	"github.com/nicolagi/distfs/internal/dfspath"
)

// Service is the naming server's client-facing interface.
type Service interface {
	Lock(ctx context.Context, p dfspath.Path, exclusive bool) error
	Unlock(ctx context.Context, p dfspath.Path, exclusive bool) error
	IsDirectory(ctx context.Context, p dfspath.Path) (bool, error)
	List(ctx context.Context, p dfspath.Path) ([]string, error)
	CreateFile(ctx context.Context, p dfspath.Path) (bool, error)
	CreateDirectory(ctx context.Context, p dfspath.Path) (bool, error)
	Delete(ctx context.Context, p dfspath.Path) (bool, error)
	GetStorage(ctx context.Context, p dfspath.Path) (ClientStub, error)
}

// Registration is the naming server's registration-facing interface.
type Registration interface {
	Register(ctx context.Context, pair StoragePair, files []dfspath.Path) ([]dfspath.Path, error)
}

// Storage is a storage server's client-facing, byte-range interface.
type Storage interface {
	Size(ctx context.Context, p dfspath.Path) (int64, error)
	Read(ctx context.Context, p dfspath.Path, offset, length int64) ([]byte, error)
	Write(ctx context.Context, p dfspath.Path, offset int64, data []byte) error
}

// Command is a storage server's administrative interface.
type Command interface {
	Create(ctx context.Context, p dfspath.Path) (bool, error)
	Delete(ctx context.Context, p dfspath.Path) (bool, error)
	Copy(ctx context.Context, p dfspath.Path, peer ClientStub) (bool, error)
}

// ClientStub is the network identity of a storage server's client surface:
// a handle into a remote process, carrying no local state beyond the
// address it targets. Two ClientStub values are equal, hashable (directly
// usable as a map key) and printable without ever contacting the network,
// per spec §4.2 and §3.
type ClientStub struct {
	Network string
	Address string
}

// CommandStub is the network identity of a storage server's command
// surface. See ClientStub.
type CommandStub struct {
	Network string
	Address string
}

// ServiceStub is the network identity of the naming server's client
// surface.
type ServiceStub struct {
	Network string
	Address string
}

// RegistrationStub is the network identity of the naming server's
// registration surface.
type RegistrationStub struct {
	Network string
	Address string
}

// StoragePair bundles the two stubs that together identify one storage
// server process, as spec §3 requires. It is itself comparable and
// hashable since both fields are plain comparable structs.
type StoragePair struct {
	Client  ClientStub
	Command CommandStub
}

func (s StoragePair) String() string {
	return s.Client.String()
}
