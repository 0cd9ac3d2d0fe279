package utcp

// EgressFunc delivers an outbound datagram to the substrate. It must
// reliably hand seg to the substrate; its return value, if any, is not
// consulted. Reentering the Host from within an EgressFunc is forbidden.
type EgressFunc func(h *Host, seg []byte)

// PreAcceptFunc is a cheap filter invoked for an inbound SYN before a
// connection record is allocated. A false return causes an RST reply.
type PreAcceptFunc func(h *Host, localPort uint16) bool

// AcceptFunc is called once per inbound connection whose handshake's final
// ACK has just arrived, with c still in StateSynReceived. The handler must
// call [Conn.SetRecvFunc] to accept the connection and complete the
// handshake; if it does not, the connection is torn down with an RST.
type AcceptFunc func(c *Conn, localPort uint16)

// RecvFunc delivers inbound payload bytes, or notifies of half-close or an
// error condition, to the application.
//
// b == nil signals half-close (peer's FIN, err == nil) or an error
// condition (err != nil, one of [ErrConnectionRefused],
// [ErrConnectionReset], or [ErrTimedOut]). Otherwise b holds payload and
// must be fully consumed; a short return is treated as a fatal programming
// error.
type RecvFunc func(c *Conn, b []byte, err error) (int, error)

// PollFunc is invoked during a Host.Timeout sweep when a connection's send
// buffer headroom crosses half of its configured maximum, so the
// application may enqueue more data.
type PollFunc func(c *Conn, writable int)
