package rmi

import (
	"context"
	"net"
	"net/rpc"

	"github.com/nicolagi/distfs/internal/dfspath"
	"github.com/pkg/errors"
)

// Service names under which each facade is registered with net/rpc, and
// which prefix every wire method name (spec §6).
const (
	ServiceName      = "Service"
	RegistrationName = "Registration"
	StorageName      = "Storage"
	CommandName      = "Command"
)

// call performs one RMI exchange per spec §4.2: dial, send, read reply,
// close. Connections are per-call and never reused or pooled, matching
// "Connections are per-call, closed on reply" (spec §6) exactly — unlike a
// bare net/rpc client, which multiplexes many calls over one persistent
// connection.
func call(network, address, serviceMethod string, args, reply interface{}) error {
	conn, err := net.Dial(network, address)
	if err != nil {
		return errors.Wrap(ErrNetworkError, err.Error())
	}
	client := rpc.NewClient(conn)
	defer func() { _ = client.Close() }()
	if err := client.Call(serviceMethod, args, reply); err != nil {
		_, decoded := Decode(err)
		return decoded
	}
	return nil
}

func (s ClientStub) String() string { return s.Network + "!" + s.Address }

var _ Storage = ClientStub{}

func (s ClientStub) Size(ctx context.Context, p dfspath.Path) (int64, error) {
	var reply SizeReply
	err := call(s.Network, s.Address, StorageName+".Size", &SizeArgs{Path: p}, &reply)
	return reply.Size, err
}

func (s ClientStub) Read(ctx context.Context, p dfspath.Path, offset, length int64) ([]byte, error) {
	var reply ReadReply
	err := call(s.Network, s.Address, StorageName+".Read", &ReadArgs{Path: p, Offset: offset, Length: length}, &reply)
	return reply.Data, err
}

func (s ClientStub) Write(ctx context.Context, p dfspath.Path, offset int64, data []byte) error {
	var reply WriteReply
	return call(s.Network, s.Address, StorageName+".Write", &WriteArgs{Path: p, Offset: offset, Data: data}, &reply)
}

func (s CommandStub) String() string { return s.Network + "!" + s.Address }

var _ Command = CommandStub{}

func (s CommandStub) Create(ctx context.Context, p dfspath.Path) (bool, error) {
	var reply CreateReply
	err := call(s.Network, s.Address, CommandName+".Create", &CreateArgs{Path: p}, &reply)
	return reply.Created, err
}

func (s CommandStub) Delete(ctx context.Context, p dfspath.Path) (bool, error) {
	var reply DeleteReply
	err := call(s.Network, s.Address, CommandName+".Delete", &DeleteArgs{Path: p}, &reply)
	return reply.Deleted, err
}

func (s CommandStub) Copy(ctx context.Context, p dfspath.Path, peer ClientStub) (bool, error) {
	var reply CopyReply
	err := call(s.Network, s.Address, CommandName+".Copy", &CopyArgs{Path: p, Peer: peer}, &reply)
	return reply.Copied, err
}

func (s ServiceStub) String() string { return s.Network + "!" + s.Address }

var _ Service = ServiceStub{}

func (s ServiceStub) Lock(ctx context.Context, p dfspath.Path, exclusive bool) error {
	var reply LockReply
	return call(s.Network, s.Address, ServiceName+".Lock", &LockArgs{Path: p, Exclusive: exclusive}, &reply)
}

func (s ServiceStub) Unlock(ctx context.Context, p dfspath.Path, exclusive bool) error {
	var reply UnlockReply
	return call(s.Network, s.Address, ServiceName+".Unlock", &UnlockArgs{Path: p, Exclusive: exclusive}, &reply)
}

func (s ServiceStub) IsDirectory(ctx context.Context, p dfspath.Path) (bool, error) {
	var reply IsDirectoryReply
	err := call(s.Network, s.Address, ServiceName+".IsDirectory", &IsDirectoryArgs{Path: p}, &reply)
	return reply.IsDirectory, err
}

func (s ServiceStub) List(ctx context.Context, p dfspath.Path) ([]string, error) {
	var reply ListReply
	err := call(s.Network, s.Address, ServiceName+".List", &ListArgs{Path: p}, &reply)
	return reply.Names, err
}

func (s ServiceStub) CreateFile(ctx context.Context, p dfspath.Path) (bool, error) {
	var reply CreateFileReply
	err := call(s.Network, s.Address, ServiceName+".CreateFile", &CreateFileArgs{Path: p}, &reply)
	return reply.Created, err
}

func (s ServiceStub) CreateDirectory(ctx context.Context, p dfspath.Path) (bool, error) {
	var reply CreateDirectoryReply
	err := call(s.Network, s.Address, ServiceName+".CreateDirectory", &CreateDirectoryArgs{Path: p}, &reply)
	return reply.Created, err
}

func (s ServiceStub) Delete(ctx context.Context, p dfspath.Path) (bool, error) {
	var reply DeleteReply
	err := call(s.Network, s.Address, ServiceName+".Delete", &DeleteArgs{Path: p}, &reply)
	return reply.Deleted, err
}

func (s ServiceStub) GetStorage(ctx context.Context, p dfspath.Path) (ClientStub, error) {
	var reply GetStorageReply
	err := call(s.Network, s.Address, ServiceName+".GetStorage", &GetStorageArgs{Path: p}, &reply)
	return reply.Client, err
}

func (s RegistrationStub) String() string { return s.Network + "!" + s.Address }

var _ Registration = RegistrationStub{}

func (s RegistrationStub) Register(ctx context.Context, pair StoragePair, files []dfspath.Path) ([]dfspath.Path, error) {
	var reply RegisterReply
	err := call(s.Network, s.Address, RegistrationName+".Register", &RegisterArgs{Pair: pair, Files: files}, &reply)
	return reply.Duplicates, err
}
