package utcp

import "time"

// zeroTime is the unarmed sentinel for Conn's timer fields.
var zeroTime time.Time

// sendSpace is the Send Sequence Space (RFC 793 §3.2): sequence numbers
// corresponding to locally originated data.
type sendSpace struct {
	iss  Value // initial send sequence number, chosen at connection creation
	una  Value // oldest unacknowledged sequence number
	nxt  Value // next sequence number to send
	last Value // one past the last byte (or queued FIN) the application has enqueued
	wnd  Size  // peer's most recently advertised receive window
	cwnd Size  // self-imposed congestion window
}

// recvSpace is the Receive Sequence Space: sequence numbers corresponding
// to data received from the peer.
type recvSpace struct {
	irs Value // peer's initial sequence number
	nxt Value // next sequence number expected from the peer
	wnd Size  // locally advertised receive window
}

// Conn is one end of a connection, identified within its Host by the
// endpoint pair (src, dst). A Conn must not be used from more than one
// goroutine at a time without external synchronization — see the doc
// comment on Host.
type Conn struct {
	host *Host // non-owning handle back to the owning Host

	src, dst uint16
	state    State

	snd sendSpace
	rcv recvSpace

	sndbuf        []byte
	sndbufused    int // bytes in sndbuf at offsets [0, sndbufused), including unacked and queued-but-unsent
	maxsndbufsize int

	connTimeout time.Time // user timeout / TIME_WAIT expiry; zero means unarmed
	rtrxTimeout time.Time // retransmission timer; zero means unarmed
	dupacks     int

	reapable  bool
	nodelay   bool
	keepalive bool

	recv RecvFunc
	poll PollFunc

	userData any
}

// newConn allocates an unconnected Conn owned by h. Callers must still set
// the initial sequence numbers and state before the Conn is usable.
func newConn(h *Host, src, dst uint16) *Conn {
	cfg := h.connCfg
	return &Conn{
		host:          h,
		src:           src,
		dst:           dst,
		state:         StateClosed,
		sndbuf:        make([]byte, cfg.SndBufSize),
		maxsndbufsize: cfg.MaxSndBufSize,
		rcv:           recvSpace{wnd: Size(h.mtu)},
		snd:           sendSpace{cwnd: Size(h.mtu)},
	}
}

func (c *Conn) armConnTimeout(d time.Duration) {
	c.connTimeout = time.Now().Add(d)
}

// deliver hands b (or a nil payload paired with a cause) to the installed
// RecvFunc. A short return from RecvFunc is a fatal programming error, per
// the state machine's contract — mirrors the original's abort() on a short
// recv_cb return.
func (c *Conn) deliver(b []byte, err error) {
	if c.recv == nil {
		return
	}
	n, rerr := c.recv(c, b, err)
	if b != nil && (n != len(b) || rerr != nil) {
		c.host.logerr("RecvFunc did not consume all bytes", "src", c.src, "dst", c.dst, "n", n, "want", len(b), "err", rerr)
		panic("utcp: RecvFunc did not consume all bytes")
	}
}

// State returns the connection's current lifecycle state.
func (c *Conn) State() State { return c.state }

// UserData returns the opaque value last set by SetUserData, or supplied to
// Host.Connect.
func (c *Conn) UserData() any { return c.userData }

// SetUserData replaces the connection's opaque user value.
func (c *Conn) SetUserData(v any) { c.userData = v }

// SetRecvFunc installs the callback that receives inbound payload bytes
// and half-close/error notifications. Called from within an AcceptFunc on
// a connection still in StateSynReceived, it also completes the
// handshake by moving the connection to StateEstablished — mirroring the
// accept step of the original design, where installing a receive callback
// is the act of accepting the connection.
func (c *Conn) SetRecvFunc(fn RecvFunc) {
	c.recv = fn
	if c.state == StateSynReceived && !c.reapable {
		c.state = StateEstablished
	}
}

// SetPollFunc installs the callback invoked during a timer sweep when send
// buffer headroom crosses half of its configured maximum.
func (c *Conn) SetPollFunc(fn PollFunc) { c.poll = fn }

// NoDelay reports whether Nagle-style coalescing is disabled for this
// connection. The ack engine does not currently implement any coalescing,
// so this flag is presently advisory only.
func (c *Conn) NoDelay() bool { return c.nodelay }

// SetNoDelay sets the no-delay flag.
func (c *Conn) SetNoDelay(v bool) { c.nodelay = v }

// KeepAlive reports whether keepalive probing is requested for this
// connection.
func (c *Conn) KeepAlive() bool { return c.keepalive }

// SetKeepAlive sets the keepalive flag.
func (c *Conn) SetKeepAlive(v bool) { c.keepalive = v }

// SndBuf returns the current send buffer capacity in bytes.
func (c *Conn) SndBuf() int { return len(c.sndbuf) }

// SndBufFree returns the number of bytes of unused headroom below
// maxsndbufsize, i.e. how many more bytes Send would currently accept after
// the buffer grows as far as it is allowed to.
func (c *Conn) SndBufFree() int {
	free := c.maxsndbufsize - c.sndbufused
	if free < 0 {
		free = 0
	}
	return free
}

// SetSndBuf changes the maximum send buffer size. It does not shrink a
// buffer already grown past size.
func (c *Conn) SetSndBuf(size int) {
	c.maxsndbufsize = size
}

// OutQ returns the number of bytes currently queued in the send buffer:
// bytes sent but not yet acknowledged plus bytes not yet sent.
// Acknowledged bytes are dropped from the buffer and are not counted.
func (c *Conn) OutQ() int { return c.sndbufused }
