package storageserver

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/nicolagi/distfs/internal/dfspath"
	"github.com/nicolagi/distfs/internal/rmi"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Start validates the local root, binds the client and command skeletons
// on OS-assigned ports, registers with the naming server, then executes
// any duplicate-deletion instructions it returns, pruning now-empty
// ancestor directories (spec §4.3). Start is not idempotent: a second
// call, or a call after a failed one, returns ErrServerState.
func (s *Server) Start(host string, naming rmi.RegistrationStub) error {
	s.mu.Lock()
	if s.started || s.failed {
		s.mu.Unlock()
		return errors.Wrap(rmi.ErrServerState, "storageserver: already started")
	}
	fi, err := os.Stat(s.root)
	if err != nil || !fi.IsDir() {
		s.failed = true
		s.mu.Unlock()
		return errors.Wrapf(rmi.ErrFileNotFound, "storageserver: root %s", s.root)
	}

	clientSkeleton, err := rmi.NewSkeleton(rmi.StorageName, rmi.NewStorageFacade(s), "tcp", ":0")
	if err != nil {
		s.failed = true
		s.mu.Unlock()
		return err
	}
	if err := clientSkeleton.Start(); err != nil {
		s.failed = true
		s.mu.Unlock()
		return err
	}

	commandSkeleton, err := rmi.NewSkeleton(rmi.CommandName, rmi.NewCommandFacade(s), "tcp", ":0")
	if err != nil {
		s.failed = true
		clientSkeleton.Stop()
		s.mu.Unlock()
		return err
	}
	if err := commandSkeleton.Start(); err != nil {
		s.failed = true
		clientSkeleton.Stop()
		s.mu.Unlock()
		return err
	}

	s.clientSkeleton = clientSkeleton
	s.commandSkeleton = commandSkeleton
	s.started = true
	s.mu.Unlock()

	clientStub := rmi.ClientStub{Network: "tcp", Address: fmt.Sprintf("%s:%d", host, portOf(clientSkeleton))}
	commandStub := rmi.CommandStub{Network: "tcp", Address: fmt.Sprintf("%s:%d", host, portOf(commandSkeleton))}
	pair := rmi.StoragePair{Client: clientStub, Command: commandStub}

	files, err := dfspath.List(s.root)
	if err != nil {
		return errors.Wrap(rmi.ErrIO, err.Error())
	}

	duplicates, err := naming.Register(context.Background(), pair, files)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.pair = pair
	s.mu.Unlock()
	for _, p := range duplicates {
		name := p.ToFile(s.root)
		if err := os.Remove(name); err != nil {
			log.WithError(err).WithField("path", p).Warn("storageserver: failed to remove duplicate file")
			continue
		}
		pruneEmptyAncestors(s.root, filepath.Clean(name))
	}
	return nil
}

// Stop stops both skeletons. Stop is idempotent.
func (s *Server) Stop() {
	s.mu.Lock()
	clientSkeleton, commandSkeleton := s.clientSkeleton, s.commandSkeleton
	s.mu.Unlock()
	if clientSkeleton != nil {
		clientSkeleton.Stop()
	}
	if commandSkeleton != nil {
		commandSkeleton.Stop()
	}
}

// Pair returns the stub pair this server registered with, the zero value
// before Start has completed registration.
func (s *Server) Pair() rmi.StoragePair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair
}

func portOf(sk *rmi.Skeleton) int {
	addr := sk.Addr()
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}
