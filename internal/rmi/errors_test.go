package rmi

import (
	"testing"

	goerrors "errors"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		kind     ErrorKind
		sentinel error
	}{
		{KindFileNotFound, ErrFileNotFound},
		{KindInvalidArgument, ErrInvalidArgument},
		{KindOutOfBounds, ErrOutOfBounds},
		{KindIO, ErrIO},
		{KindServerState, ErrServerState},
		{KindAlreadyRegistered, ErrAlreadyRegistered},
		{KindMethodNotFound, ErrMethodNotFound},
	}
	for _, c := range cases {
		wrapped := errors.Wrap(c.sentinel, "detail")
		wire := wireError(wrapped)
		kind, decoded := Decode(wire)
		assert.Equal(t, c.kind, kind)
		assert.True(t, goerrors.Is(decoded, c.sentinel))
		assert.Contains(t, decoded.Error(), "detail")
	}
}

func TestDecodeNil(t *testing.T) {
	kind, err := Decode(nil)
	assert.Equal(t, KindNone, kind)
	assert.NoError(t, err)
}

func TestEncodeNil(t *testing.T) {
	assert.NoError(t, Encode(KindFileNotFound, nil))
}

func TestWireErrorPassesThroughUndeclaredErrors(t *testing.T) {
	plain := goerrors.New("boom")
	wire := wireError(plain)
	assert.Equal(t, plain, wire)
	kind, decoded := Decode(wire)
	assert.Equal(t, KindNetworkError, kind)
	assert.True(t, goerrors.Is(decoded, ErrNetworkError))
}

func TestDecodeRecognizesNetRPCMethodNotFound(t *testing.T) {
	netrpcErr := goerrors.New(`rpc: can't find method Service.Bogus`)
	kind, decoded := Decode(netrpcErr)
	assert.Equal(t, KindMethodNotFound, kind)
	assert.True(t, goerrors.Is(decoded, ErrMethodNotFound))
}
