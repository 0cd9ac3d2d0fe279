package utcp

// Send enqueues data on c's send buffer and attempts to flush it
// immediately. It accepts bytes only in [StateEstablished] and
// [StateCloseWait]; other live states yield [ErrNotConnected] (never
// handshaked) or [ErrBrokenPipe] (already shut down locally). It returns
// the number of bytes actually accepted, which may be less than len(data)
// if the send buffer is at its configured maximum — in which case, if zero
// bytes were accepted, the error is [ErrWouldBlock].
func (c *Conn) Send(data []byte) (int, error) {
	if c.reapable {
		return 0, ErrClosedConn
	}
	switch c.state {
	case StateClosed, StateSynSent, StateSynReceived:
		return 0, ErrNotConnected
	case StateEstablished, StateCloseWait:
		// accepted below
	default:
		return 0, ErrBrokenPipe
	}
	if len(data) == 0 {
		return 0, nil
	}
	n := c.enqueue(data)
	if n == 0 {
		return 0, ErrWouldBlock
	}
	c.host.ack(c, false)
	return n, nil
}

// Shutdown closes the local-to-remote half of the stream: it queues a FIN
// and transitions toward a closing state. Calling Shutdown twice is a
// no-op the second time, matching the idempotent-shutdown property.
func (c *Conn) Shutdown() error {
	if c.reapable {
		return ErrClosedConn
	}
	switch c.state {
	case StateClosed:
		return nil
	case StateListen, StateSynSent:
		c.state = StateClosed
		return nil
	case StateSynReceived, StateEstablished:
		c.state = StateFinWait1
	case StateFinWait1, StateFinWait2:
		return nil
	case StateCloseWait:
		c.state = StateClosing
	case StateClosing, StateLastAck, StateTimeWait:
		return nil
	}
	c.snd.last = c.snd.last + 1
	c.host.ack(c, false)
	return nil
}

// Close gracefully shuts down c and marks it reapable; the record is freed
// on the next timer sweep once it reaches [StateClosed].
func (c *Conn) Close() error {
	if err := c.Shutdown(); err != nil {
		return err
	}
	c.reapable = true
	return nil
}

// Abort immediately tears down c without a graceful FIN exchange: it marks
// c reapable and transitions to [StateClosed]. A RST is emitted only from
// [StateSynReceived], [StateEstablished], [StateFinWait1], [StateFinWait2]
// and [StateCloseWait]; from any other state the connection is closed
// locally without notifying the peer.
func (c *Conn) Abort() error {
	if c.reapable {
		return ErrClosedConn
	}
	c.reapable = true
	switch c.state {
	case StateClosed:
		return nil
	case StateListen, StateSynSent, StateClosing, StateLastAck, StateTimeWait:
		c.state = StateClosed
		return nil
	case StateSynReceived, StateEstablished, StateFinWait1, StateFinWait2, StateCloseWait:
		c.state = StateClosed
	}
	c.host.emitSegment(c, Header{
		Src: c.src,
		Dst: c.dst,
		Seq: c.snd.nxt,
		Ctl: FlagRST,
	}, nil)
	return nil
}
