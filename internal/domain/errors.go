package domain

import "errors"

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrPeerNotFound       = errors.New("peer not found")
	ErrTransportNotFound  = errors.New("transport not found")
	ErrProducerNotFound   = errors.New("producer not found")
	ErrInvalidDirection   = errors.New("invalid transport direction")
	ErrCannotConsume      = errors.New("cannot consume producer with given capabilities")
	ErrUnsupportedCodec   = errors.New("no matching codec in router capability set")
	ErrGatewayUnavailable = errors.New("media gateway unavailable")
)
