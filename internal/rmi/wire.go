package rmi

import (
	"context"

	"github.com/nicolagi/distfs/internal/dfspath"
)

// The structs below are the (method-name, parameter-types, arguments)
// framing of spec §4.2, realized as net/rpc's required
// func(Args, *Reply) error shape. net/rpc's service-method name doubles as
// the declared (name, parameter-types) pair, since every method here has
// exactly one concrete argument type; gob's self-describing wire encoding
// supplies the "length-prefixed binary serialization" spec §6 calls for.

type LockArgs struct {
	Path      dfspath.Path
	Exclusive bool
}
type LockReply struct{}

type UnlockArgs struct {
	Path      dfspath.Path
	Exclusive bool
}
type UnlockReply struct{}

type IsDirectoryArgs struct{ Path dfspath.Path }
type IsDirectoryReply struct{ IsDirectory bool }

type ListArgs struct{ Path dfspath.Path }
type ListReply struct{ Names []string }

type CreateFileArgs struct{ Path dfspath.Path }
type CreateFileReply struct{ Created bool }

type CreateDirectoryArgs struct{ Path dfspath.Path }
type CreateDirectoryReply struct{ Created bool }

type DeleteArgs struct{ Path dfspath.Path }
type DeleteReply struct{ Deleted bool }

type GetStorageArgs struct{ Path dfspath.Path }
type GetStorageReply struct{ Client ClientStub }

type RegisterArgs struct {
	Pair  StoragePair
	Files []dfspath.Path
}
type RegisterReply struct{ Duplicates []dfspath.Path }

type SizeArgs struct{ Path dfspath.Path }
type SizeReply struct{ Size int64 }

type ReadArgs struct {
	Path   dfspath.Path
	Offset int64
	Length int64
}
type ReadReply struct{ Data []byte }

type WriteArgs struct {
	Path   dfspath.Path
	Offset int64
	Data   []byte
}
type WriteReply struct{}

type CreateArgs struct{ Path dfspath.Path }
type CreateReply struct{ Created bool }

type CopyArgs struct {
	Path dfspath.Path
	Peer ClientStub
}
type CopyReply struct{ Copied bool }

// ServiceFacade adapts a Service implementation to the net/rpc calling
// convention, exactly as the teacher's StoreService
// (internal/storage/rpc.go) adapts a Store.
type ServiceFacade struct {
	delegate Service
}

func NewServiceFacade(delegate Service) *ServiceFacade {
	return &ServiceFacade{delegate: delegate}
}

func (f *ServiceFacade) Lock(args *LockArgs, reply *LockReply) error {
	return wireError(f.delegate.Lock(context.Background(), args.Path, args.Exclusive))
}

func (f *ServiceFacade) Unlock(args *UnlockArgs, reply *UnlockReply) error {
	return wireError(f.delegate.Unlock(context.Background(), args.Path, args.Exclusive))
}

func (f *ServiceFacade) IsDirectory(args *IsDirectoryArgs, reply *IsDirectoryReply) error {
	v, err := f.delegate.IsDirectory(context.Background(), args.Path)
	reply.IsDirectory = v
	return wireError(err)
}

func (f *ServiceFacade) List(args *ListArgs, reply *ListReply) error {
	v, err := f.delegate.List(context.Background(), args.Path)
	reply.Names = v
	return wireError(err)
}

func (f *ServiceFacade) CreateFile(args *CreateFileArgs, reply *CreateFileReply) error {
	v, err := f.delegate.CreateFile(context.Background(), args.Path)
	reply.Created = v
	return wireError(err)
}

func (f *ServiceFacade) CreateDirectory(args *CreateDirectoryArgs, reply *CreateDirectoryReply) error {
	v, err := f.delegate.CreateDirectory(context.Background(), args.Path)
	reply.Created = v
	return wireError(err)
}

func (f *ServiceFacade) Delete(args *DeleteArgs, reply *DeleteReply) error {
	v, err := f.delegate.Delete(context.Background(), args.Path)
	reply.Deleted = v
	return wireError(err)
}

func (f *ServiceFacade) GetStorage(args *GetStorageArgs, reply *GetStorageReply) error {
	v, err := f.delegate.GetStorage(context.Background(), args.Path)
	reply.Client = v
	return wireError(err)
}

// RegistrationFacade adapts a Registration implementation to net/rpc.
type RegistrationFacade struct {
	delegate Registration
}

func NewRegistrationFacade(delegate Registration) *RegistrationFacade {
	return &RegistrationFacade{delegate: delegate}
}

func (f *RegistrationFacade) Register(args *RegisterArgs, reply *RegisterReply) error {
	v, err := f.delegate.Register(context.Background(), args.Pair, args.Files)
	reply.Duplicates = v
	return wireError(err)
}

// StorageFacade adapts a Storage implementation to net/rpc.
type StorageFacade struct {
	delegate Storage
}

func NewStorageFacade(delegate Storage) *StorageFacade {
	return &StorageFacade{delegate: delegate}
}

func (f *StorageFacade) Size(args *SizeArgs, reply *SizeReply) error {
	v, err := f.delegate.Size(context.Background(), args.Path)
	reply.Size = v
	return wireError(err)
}

func (f *StorageFacade) Read(args *ReadArgs, reply *ReadReply) error {
	v, err := f.delegate.Read(context.Background(), args.Path, args.Offset, args.Length)
	reply.Data = v
	return wireError(err)
}

func (f *StorageFacade) Write(args *WriteArgs, reply *WriteReply) error {
	return wireError(f.delegate.Write(context.Background(), args.Path, args.Offset, args.Data))
}

// CommandFacade adapts a Command implementation to net/rpc.
type CommandFacade struct {
	delegate Command
}

func NewCommandFacade(delegate Command) *CommandFacade {
	return &CommandFacade{delegate: delegate}
}

func (f *CommandFacade) Create(args *CreateArgs, reply *CreateReply) error {
	v, err := f.delegate.Create(context.Background(), args.Path)
	reply.Created = v
	return wireError(err)
}

func (f *CommandFacade) Delete(args *DeleteArgs, reply *DeleteReply) error {
	v, err := f.delegate.Delete(context.Background(), args.Path)
	reply.Deleted = v
	return wireError(err)
}

func (f *CommandFacade) Copy(args *CopyArgs, reply *CopyReply) error {
	v, err := f.delegate.Copy(context.Background(), args.Path, args.Peer)
	reply.Copied = v
	return wireError(err)
}
