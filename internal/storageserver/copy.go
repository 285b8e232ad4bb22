package storageserver

import (
	"context"
	"os"
	"path/filepath"

	"github.com/nicolagi/distfs/internal/dfspath"
	"github.com/nicolagi/distfs/internal/rmi"
	"github.com/pkg/errors"
)

// copyPageSize bounds peak memory during Copy regardless of file size,
// grounded on the teacher's internal/storage/paired.go idiom of reading a
// remote log in fixed-size pages at known offsets.
const copyPageSize = 1 << 20 // 1 MiB

// Copy asks peer for the size of p, creates or truncates the local file,
// then fetches the contents from peer in bounded read calls, writing each
// page as it arrives. It rejects the root path.
func (s *Server) Copy(ctx context.Context, p dfspath.Path, peer rmi.ClientStub) (bool, error) {
	if p.IsRoot() {
		return false, errors.Wrap(rmi.ErrInvalidArgument, "copy: root")
	}
	size, err := peer.Size(ctx, p)
	if err != nil {
		return false, err
	}

	name := s.pathFor(p)
	if err := os.MkdirAll(filepath.Dir(name), 0777); err != nil {
		return false, errors.Wrap(rmi.ErrIO, err.Error())
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return false, errors.Wrap(rmi.ErrIO, err.Error())
	}
	defer func() { _ = f.Close() }()

	for offset := int64(0); offset < size; {
		length := int64(copyPageSize)
		if remaining := size - offset; remaining < length {
			length = remaining
		}
		page, err := peer.Read(ctx, p, offset, length)
		if err != nil {
			return false, err
		}
		if _, err := f.WriteAt(page, offset); err != nil {
			return false, errors.Wrap(rmi.ErrIO, err.Error())
		}
		offset += length
	}
	return true, nil
}
