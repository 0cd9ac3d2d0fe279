package utcp

import (
	"log/slog"
	"time"
)

// Default tunables, applied to zero-valued fields of [HostConfig] and
// [ConnConfig].
const (
	DefaultMTU            = 1000
	DefaultUserTimeout    = 60 * time.Second
	DefaultSndBufSize     = 4096
	DefaultMaxSndBufSize  = 128 * 1024
	timeWaitDuration      = 60 * time.Second
	retransmitInterval    = 1 * time.Second
	noPendingTimerMillis  = 3600 * 1000
)

// HostConfig carries the tunables for a [Host]. A zero-valued field takes
// the documented default; only Egress has no default and must be supplied.
type HostConfig struct {
	// Egress delivers an outbound datagram to the substrate. Required.
	// The host must never be reentered from within a call to Egress.
	Egress EgressFunc
	// Accept is called once per inbound connection whose handshake's
	// final ACK has just arrived. The handler must call Conn.SetRecvFunc
	// to accept the connection and complete the handshake.
	Accept AcceptFunc
	// PreAccept is a cheap filter invoked before a connection record is
	// allocated for an inbound SYN. A false return sends an RST. If nil,
	// inbound SYNs are always accepted at the pre-accept stage.
	PreAccept PreAcceptFunc
	// MTU bounds the payload size of any segment this host emits.
	// Defaults to [DefaultMTU].
	MTU uint16
	// UserTimeout is the handshake deadline: it is armed when a
	// connection is created by Connect or by an inbound SYN and cleared by
	// the first ACK that advances snd.una, normally the handshake's own.
	// It is not re-armed afterwards,
	// so established connections have no idle timeout, and TIME_WAIT uses
	// its own fixed 60 second expiry. Defaults to [DefaultUserTimeout].
	UserTimeout time.Duration
	// Logger receives structured diagnostics. A nil Logger discards all
	// output.
	Logger *slog.Logger
	// UserData is stored on the Host and returned unmodified by
	// Host.UserData; the host never dereferences it.
	UserData any
	// Conn carries the send buffer tunables applied to every connection
	// this host allocates, whether by Connect or by an inbound SYN.
	// Defaults apply like HostConfig's own fields.
	Conn ConnConfig
}

// ConnConfig carries the tunables for a single connection's send buffer.
// Defaults apply like HostConfig.
type ConnConfig struct {
	// SndBufSize is the initial send buffer capacity. Defaults to
	// [DefaultSndBufSize].
	SndBufSize int
	// MaxSndBufSize bounds how large the send buffer may grow.
	// Defaults to [DefaultMaxSndBufSize].
	MaxSndBufSize int
}

func (c *HostConfig) withDefaults() HostConfig {
	out := *c
	if out.MTU == 0 {
		out.MTU = DefaultMTU
	}
	if out.UserTimeout == 0 {
		out.UserTimeout = DefaultUserTimeout
	}
	out.Conn = out.Conn.withDefaults()
	return out
}

func (c ConnConfig) withDefaults() ConnConfig {
	if c.SndBufSize == 0 {
		c.SndBufSize = DefaultSndBufSize
	}
	if c.MaxSndBufSize == 0 {
		c.MaxSndBufSize = DefaultMaxSndBufSize
	}
	if c.MaxSndBufSize < c.SndBufSize {
		c.MaxSndBufSize = c.SndBufSize
	}
	return c
}
