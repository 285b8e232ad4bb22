package rmi

import (
	"io"
	"net"
	"net/rpc"
	"sync"

	"github.com/pkg/errors"
)

// Skeleton is the server side of the RMI transport (spec §4.2): it owns a
// listening socket and, for each accepted connection, a fresh worker that
// performs one request/reply exchange then closes. A skeleton may be
// started at most once and, once stopped, may not be restarted.
type Skeleton struct {
	Network string
	Address string

	// ListenError is invoked when Accept fails; returning false stops the
	// accept loop (the default, nil hook, always stops).
	ListenError func(error) bool
	// ServiceError is invoked when a single exchange's framing fails for a
	// reason other than the peer simply hanging up.
	ServiceError func(error)
	// Stopped is invoked exactly once, when the skeleton fully stops: err
	// is nil after a normal Stop(), non-nil if the listener failed.
	Stopped func(error)

	server *rpc.Server

	mu       sync.Mutex
	listener net.Listener
	started  bool
	failed   bool
	stopping bool
	wg       sync.WaitGroup
}

// NewSkeleton registers receiver (whose exported methods must have the
// net/rpc shape func(*Args, *Reply) error — see the *Facade types in
// wire.go) under name, ready to bind network/address on Start. Passing a
// ":0"-style address binds an OS-assigned port, discoverable via Addr()
// after Start returns.
func NewSkeleton(name string, receiver interface{}, network, address string) (*Skeleton, error) {
	server := rpc.NewServer()
	if err := server.RegisterName(name, receiver); err != nil {
		return nil, errors.Wrapf(err, "rmi: register %s", name)
	}
	return &Skeleton{Network: network, Address: address, server: server}, nil
}

// Start binds the listening socket and begins accepting connections.
func (s *Skeleton) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.failed {
		return errors.Wrap(ErrServerState, "skeleton already started")
	}
	listener, err := net.Listen(s.Network, s.Address)
	if err != nil {
		s.failed = true
		return errors.Wrap(ErrServerState, err.Error())
	}
	s.listener = listener
	s.started = true
	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the bound listening address, or nil if Start has not
// succeeded.
func (s *Skeleton) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listening socket, causing the accept loop to exit
// cleanly, and waits for in-flight workers to complete their current
// exchange. Stop is idempotent.
func (s *Skeleton) Stop() {
	s.mu.Lock()
	if !s.started || s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	listener := s.listener
	s.mu.Unlock()
	_ = listener.Close()
	s.wg.Wait()
}

func (s *Skeleton) acceptLoop() {
	defer s.wg.Done()
	var stopErr error
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			stopping := s.stopping
			s.mu.Unlock()
			if stopping {
				break
			}
			keepGoing := false
			if s.ListenError != nil {
				keepGoing = s.ListenError(err)
			}
			if !keepGoing {
				stopErr = err
				break
			}
			continue
		}
		s.wg.Add(1)
		go s.serveOne(conn)
	}
	if s.Stopped != nil {
		s.Stopped(stopErr)
	}
}

func (s *Skeleton) serveOne(conn net.Conn) {
	defer s.wg.Done()
	defer func() { _ = conn.Close() }()
	codec := &serviceErrorCodec{
		ServerCodec: rpc.NewServerCodec(conn),
		onError:     s.ServiceError,
	}
	s.server.ServeCodec(codec)
}

// serviceErrorCodec wraps the default gob server codec solely to surface
// per-call framing failures to the skeleton's ServiceError hook; encoding
// itself is untouched.
type serviceErrorCodec struct {
	rpc.ServerCodec
	onError func(error)
}

func (c *serviceErrorCodec) ReadRequestHeader(r *rpc.Request) error {
	err := c.ServerCodec.ReadRequestHeader(r)
	if err != nil && err != io.EOF && c.onError != nil {
		c.onError(err)
	}
	return err
}

func (c *serviceErrorCodec) WriteResponse(r *rpc.Response, body interface{}) error {
	err := c.ServerCodec.WriteResponse(r, body)
	if err != nil && c.onError != nil {
		c.onError(err)
	}
	return err
}
