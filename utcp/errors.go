package utcp

import "errors"

// Sentinel errors returned by the public operations. Handshake failures,
// peer resets, user-timeout expiry and FIN are not returned this way —
// they are delivered to a connection's RecvFunc as its err argument
// instead (see RecvFunc).
var (
	ErrInvalidArgument   = errors.New("utcp: invalid argument")
	ErrBadMessage        = errors.New("utcp: bad message")
	ErrAddressInUse      = errors.New("utcp: address in use")
	ErrNotConnected      = errors.New("utcp: not connected")
	ErrBrokenPipe        = errors.New("utcp: broken pipe")
	ErrClosedConn        = errors.New("utcp: operation on closed connection")
	ErrWouldBlock        = errors.New("utcp: would block")
	ErrConnectionRefused = errors.New("utcp: connection refused")
	ErrConnectionReset   = errors.New("utcp: connection reset")
	ErrTimedOut          = errors.New("utcp: timed out")
)
