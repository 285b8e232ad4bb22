// Package storageserver implements a storage server: byte-range file
// access rooted at a local directory, an administrative command surface
// (create/delete/copy), and the one-time registration handshake with the
// naming server on startup (spec §4.3).
package storageserver

import (
	"context"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/nicolagi/distfs/internal/dfspath"
	"github.com/nicolagi/distfs/internal/rmi"
	"github.com/pkg/errors"
)

// Server is a storage server. Every size/read/write opens its own file
// handle per call (os.OpenFile + ReadAt/WriteAt), deliberately avoiding a
// persistent handle cache: concurrent calls on the same file are left to
// the OS, per spec §5.
type Server struct {
	root string

	mu              sync.Mutex
	clientSkeleton  *rmi.Skeleton
	commandSkeleton *rmi.Skeleton
	started         bool
	failed          bool
	pair            rmi.StoragePair
}

var (
	_ rmi.Storage = (*Server)(nil)
	_ rmi.Command = (*Server)(nil)
)

// New returns a storage server rooted at root. root need not exist yet;
// existence is checked by Start.
func New(root string) *Server {
	return &Server{root: root}
}

func (s *Server) pathFor(p dfspath.Path) string {
	return p.ToFile(s.root)
}

// Size returns the length of the file at p.
func (s *Server) Size(ctx context.Context, p dfspath.Path) (int64, error) {
	fi, err := os.Stat(s.pathFor(p))
	if os.IsNotExist(err) {
		return 0, errors.Wrapf(rmi.ErrFileNotFound, "size: %s", p)
	}
	if err != nil {
		return 0, errors.Wrap(rmi.ErrIO, err.Error())
	}
	if fi.IsDir() {
		return 0, errors.Wrapf(rmi.ErrFileNotFound, "size: %s is a directory", p)
	}
	return fi.Size(), nil
}

// Read returns exactly length bytes from p starting at offset.
func (s *Server) Read(ctx context.Context, p dfspath.Path, offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, errors.Wrapf(rmi.ErrOutOfBounds, "read: %s: offset=%d length=%d", p, offset, length)
	}
	f, err := os.Open(s.pathFor(p))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(rmi.ErrFileNotFound, "read: %s", p)
	}
	if err != nil {
		return nil, errors.Wrap(rmi.ErrIO, err.Error())
	}
	defer func() { _ = f.Close() }()
	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(rmi.ErrIO, err.Error())
	}
	if fi.IsDir() {
		return nil, errors.Wrapf(rmi.ErrFileNotFound, "read: %s is a directory", p)
	}
	if offset+length > fi.Size() {
		return nil, errors.Wrapf(rmi.ErrOutOfBounds, "read: %s: offset=%d length=%d size=%d", p, offset, length, fi.Size())
	}
	buf := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(io.NewSectionReader(f, offset, length), buf); err != nil {
			return nil, errors.Wrap(rmi.ErrIO, err.Error())
		}
	}
	return buf, nil
}

// Write writes data at offset into p, extending (with a zero-filled hole
// if necessary) the file if the write starts past its current end.
func (s *Server) Write(ctx context.Context, p dfspath.Path, offset int64, data []byte) error {
	if offset < 0 {
		return errors.Wrapf(rmi.ErrOutOfBounds, "write: %s: offset=%d", p, offset)
	}
	name := s.pathFor(p)
	fi, statErr := os.Stat(name)
	if statErr == nil && fi.IsDir() {
		return errors.Wrapf(rmi.ErrFileNotFound, "write: %s is a directory", p)
	}
	if os.IsNotExist(statErr) {
		return errors.Wrapf(rmi.ErrFileNotFound, "write: %s", p)
	}
	if statErr != nil {
		return errors.Wrap(rmi.ErrIO, statErr.Error())
	}
	f, err := os.OpenFile(name, os.O_WRONLY, 0)
	if err != nil {
		return errors.Wrap(rmi.ErrIO, err.Error())
	}
	defer func() { _ = f.Close() }()
	if len(data) == 0 {
		return nil
	}
	if _, err := f.WriteAt(data, offset); err != nil {
		return errors.Wrap(rmi.ErrIO, err.Error())
	}
	return nil
}

// Create creates an empty file at p, making parent directories as
// needed. It rejects the root path. A pre-existing path or an I/O
// failure reports false, not an error, per spec §4.3.
func (s *Server) Create(ctx context.Context, p dfspath.Path) (bool, error) {
	if p.IsRoot() {
		return false, nil
	}
	name := s.pathFor(p)
	if _, err := os.Stat(name); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(name), 0777); err != nil {
		return false, nil
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0666)
	if err != nil {
		return false, nil
	}
	_ = f.Close()
	return true, nil
}

// Delete deletes the file at p, or recursively deletes the directory at
// p. It rejects the root path.
func (s *Server) Delete(ctx context.Context, p dfspath.Path) (bool, error) {
	if p.IsRoot() {
		return false, errors.Wrap(rmi.ErrInvalidArgument, "delete: root")
	}
	name := s.pathFor(p)
	if _, err := os.Stat(name); os.IsNotExist(err) {
		return false, nil
	}
	if err := os.RemoveAll(name); err != nil {
		return false, errors.Wrap(rmi.ErrIO, err.Error())
	}
	return true, nil
}

// pruneEmptyAncestors removes name's parent directory, and its parent in
// turn, bottom-up, stopping at root (exclusive) or at the first
// non-empty directory.
func pruneEmptyAncestors(root, name string) {
	dir := filepath.Dir(name)
	for {
		if dir == root || len(dir) <= len(root) {
			return
		}
		entries, err := ioutil.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
