package rmi

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrorKind tags one of the declared remote failure modes of spec §7, so
// that a typed error can survive the trip across net/rpc, which otherwise
// only preserves err.Error(). This generalizes the teacher's own
// string-matching idiom for remote errors (internal/storage/rpc.go's
// RemoteStore.Get, which maps a "not found" suffix back to ErrNotFound)
// instead of inventing a new wire-exception mechanism.
type ErrorKind int

// The declared remote failure modes of spec §7.
const (
	KindNone ErrorKind = iota
	KindFileNotFound
	KindInvalidArgument
	KindOutOfBounds
	KindIO
	KindServerState
	KindAlreadyRegistered
	KindMethodNotFound
	KindNetworkError
)

var (
	// ErrFileNotFound: path absent, or wrong kind (file vs directory).
	ErrFileNotFound = errors.New("file not found")
	// ErrInvalidArgument: null path, malformed path, unknown path passed to
	// unlock, or copy/delete of root.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrOutOfBounds: negative offset/length, or range exceeding file size
	// on read.
	ErrOutOfBounds = errors.New("out of bounds")
	// ErrIO: host filesystem error.
	ErrIO = errors.New("io error")
	// ErrServerState: no registered storage servers; replica invalidation
	// failed during a write-intent lock; or a skeleton restarted after a
	// failed start.
	ErrServerState = errors.New("server state")
	// ErrAlreadyRegistered: duplicate register of the same stub pair.
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrMethodNotFound: request whose (name, types) matches no declared
	// method.
	ErrMethodNotFound = errors.New("method not found")
	// ErrNetworkError: transport-level failure (connection, marshalling,
	// unexpected server exception).
	ErrNetworkError = errors.New("network error")
)

var kindTags = map[ErrorKind]string{
	KindFileNotFound:      "FileNotFound",
	KindInvalidArgument:   "InvalidArgument",
	KindOutOfBounds:       "OutOfBounds",
	KindIO:                "IO",
	KindServerState:       "ServerState",
	KindAlreadyRegistered: "AlreadyRegistered",
	KindMethodNotFound:    "MethodNotFound",
	KindNetworkError:      "NetworkError",
}

var kindSentinels = map[ErrorKind]error{
	KindFileNotFound:      ErrFileNotFound,
	KindInvalidArgument:   ErrInvalidArgument,
	KindOutOfBounds:       ErrOutOfBounds,
	KindIO:                ErrIO,
	KindServerState:       ErrServerState,
	KindAlreadyRegistered: ErrAlreadyRegistered,
	KindMethodNotFound:    ErrMethodNotFound,
	KindNetworkError:      ErrNetworkError,
}

// orderedKinds fixes a deterministic scan order for Decode so messages that
// happen to match more than one sentinel (they shouldn't, but defensively)
// resolve the same way every time.
var orderedKinds = []ErrorKind{
	KindFileNotFound, KindInvalidArgument, KindOutOfBounds, KindIO,
	KindServerState, KindAlreadyRegistered, KindMethodNotFound, KindNetworkError,
}

const tagSeparator = ": "

// Encode renders err as the wire form carrying kind as a parseable prefix,
// e.g. "FileNotFound: /foo/bar". A nil err encodes to nil.
func Encode(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	tag, ok := kindTags[kind]
	if !ok {
		return err
	}
	return errors.New(tag + tagSeparator + err.Error())
}

// wireError rewrites err, if it wraps one of the declared sentinels, into
// its Encode-d wire form; anything else is returned unchanged and will be
// decoded as ErrNetworkError by the receiving stub, matching spec §7's
// "any other exception" clause.
func wireError(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range orderedKinds {
		if kind == KindNetworkError {
			continue
		}
		if errors.Is(err, kindSentinels[kind]) {
			return Encode(kind, err)
		}
	}
	return err
}

// Decode parses a wire-form error (as received through net/rpc, which
// preserves only err.Error()) back into its kind and a local
// sentinel-wrapped error. Errors net/rpc generates itself for unknown
// methods are also recognized, so a caller sees ErrMethodNotFound rather
// than a generic ErrNetworkError.
func Decode(err error) (ErrorKind, error) {
	if err == nil {
		return KindNone, nil
	}
	msg := err.Error()
	for _, kind := range orderedKinds {
		tag := kindTags[kind]
		prefix := tag + tagSeparator
		if strings.HasPrefix(msg, prefix) {
			detail := strings.TrimPrefix(msg, prefix)
			return kind, errors.Wrap(kindSentinels[kind], detail)
		}
	}
	if strings.Contains(msg, "can't find") {
		return KindMethodNotFound, errors.Wrap(ErrMethodNotFound, msg)
	}
	return KindNetworkError, errors.Wrap(ErrNetworkError, msg)
}
