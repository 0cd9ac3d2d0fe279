package utcp

import "github.com/soypat/seqs"

// onSegment runs the inbound processing pipeline of a matched segment
// against c: acceptability, ACK validity, RST handling, snd.una
// advancement, SYN processing, new-data delivery, and FIN processing, in
// that order, finishing with one emit step. Each stage can terminate the
// pipeline early by returning.
func (c *Conn) onSegment(hdr Header, payload []byte) {
	h := c.host
	if c.state == StateClosed {
		h.debug("drop: segment for closed connection", "src", c.src, "dst", c.dst)
		return
	}

	// Step 1: acceptability.
	if c.state != StateSynSent && hdr.Seq != c.rcv.nxt {
		h.debug("drop: unacceptable seq", "got", hdr.Seq, "want", c.rcv.nxt)
		if hdr.Ctl.HasAny(FlagRST) {
			return
		}
		h.emitSegment(c, Header{
			Src: c.src,
			Dst: c.dst,
			Ack: c.rcv.nxt,
			Wnd: c.rcv.wnd,
			Ctl: FlagACK,
		}, nil)
		return
	}

	// Step 2: ACK validity.
	if hdr.Ctl.HasAny(FlagACK) && (seqs.LessThan(c.snd.nxt, hdr.Ack) || seqs.LessThan(hdr.Ack, c.snd.una)) {
		h.debug("drop: ack out of range", "ack", hdr.Ack, "una", c.snd.una, "nxt", c.snd.nxt)
		if hdr.Ctl.HasAny(FlagRST) {
			return
		}
		h.emitRST(hdr, len(payload))
		return
	}
	c.snd.wnd = hdr.Wnd

	// Step 3: RST handling.
	if hdr.Ctl.HasAny(FlagRST) {
		c.handleRST(hdr)
		return
	}

	prevRcvNxt := c.rcv.nxt
	wasSynReceived := c.state == StateSynReceived

	// Step 4: advance snd.una.
	advanced := c.advanceUna(hdr, len(payload))

	// Step 5: SYN processing.
	if hdr.Ctl.HasAny(FlagSYN) {
		if !c.handleSYN(hdr, advanced) {
			return
		}
	}

	// Step 6: new data.
	if wasSynReceived {
		if !advanced {
			h.emitRST(hdr, len(payload))
			return
		}
		if h.accept != nil {
			h.accept(c, c.src)
		}
		if c.state != StateEstablished {
			c.state = StateClosed
			c.reapable = true
			h.emitRST(hdr, len(payload))
			return
		}
	}

	if len(payload) > 0 {
		switch c.state {
		case StateEstablished, StateFinWait1, StateFinWait2:
			c.deliver(payload, nil)
			c.rcv.nxt = c.rcv.nxt + Value(len(payload))
		default:
			h.debug("drop: data after fin", "state", c.state)
			h.emitRST(hdr, len(payload))
			return
		}
	}

	// Step 7: FIN processing.
	if hdr.Ctl.HasAny(FlagFIN) {
		if !c.handleFIN(hdr, len(payload)) {
			return
		}
	}

	// Step 8: emit.
	h.ack(c, prevRcvNxt != c.rcv.nxt)
}

// handleRST applies the RST handling table of step 3. It returns having
// already emitted any notification; the caller must not continue
// processing the segment.
func (c *Conn) handleRST(hdr Header) {
	h := c.host
	switch c.state {
	case StateSynSent:
		if !hdr.Ctl.HasAny(FlagACK) {
			return
		}
		c.state = StateClosed
		c.reapable = true
		c.deliver(nil, ErrConnectionRefused)
	case StateSynReceived:
		if hdr.Ctl.HasAny(FlagACK) {
			return
		}
		h.remove(c)
	case StateEstablished, StateFinWait1, StateFinWait2, StateCloseWait:
		if hdr.Ctl.HasAny(FlagACK) {
			return
		}
		c.state = StateClosed
		c.reapable = true
		c.deliver(nil, ErrConnectionReset)
	case StateClosing, StateLastAck, StateTimeWait:
		if hdr.Ctl.HasAny(FlagACK) {
			return
		}
		if c.reapable {
			h.remove(c)
			return
		}
		c.state = StateClosed
	default:
		h.logerr("rst in unexpected state", "state", c.state)
		panic("utcp: rst in unexpected state " + c.state.String())
	}
}

// advanceUna implements step 4: advancing snd.una on a newly-acked range,
// compacting the send buffer, counting duplicate ACKs, growing cwnd, and
// clearing timers. It reports whether snd.una advanced.
func (c *Conn) advanceUna(hdr Header, payloadLen int) bool {
	if !hdr.Ctl.HasAny(FlagACK) {
		return false
	}
	if seqs.LessThan(c.snd.una, hdr.Ack) {
		dataAcked := int(seqs.Sizeof(c.snd.una, hdr.Ack))
		switch c.state {
		case StateSynSent, StateSynReceived:
			dataAcked--
		}
		if dataAcked > 0 {
			c.compact(dataAcked)
		}
		c.snd.una = hdr.Ack
		c.dupacks = 0
		cwnd := c.snd.cwnd + Size(c.host.mtu)
		if cwnd > Size(c.maxsndbufsize) {
			cwnd = Size(c.maxsndbufsize)
		}
		c.snd.cwnd = cwnd

		c.connTimeout = zeroTime
		switch c.state {
		case StateFinWait1:
			if c.snd.una == c.snd.last {
				c.state = StateFinWait2
			}
		case StateClosing:
			if c.snd.una == c.snd.last {
				c.state = StateTimeWait
				c.armConnTimeout(timeWaitDuration)
			}
		}

		if c.snd.una == c.snd.nxt {
			c.rtrxTimeout = zeroTime
		}
		return true
	}
	if payloadLen == 0 {
		c.dupacks++
		// A dupack count of 3 is conventionally the fast-retransmit
		// trigger; this implementation counts it but does not act on it,
		// matching the original's inert hook.
	}
	return false
}

// handleSYN implements step 5. advanced is the result of step 4: in
// SYN_SENT a SYN must also ack our own SYN. It returns false if an RST was
// emitted and the pipeline must stop.
func (c *Conn) handleSYN(hdr Header, advanced bool) bool {
	switch c.state {
	case StateSynSent:
		if !advanced {
			c.host.emitRST(hdr, 0)
			return false
		}
		c.rcv.irs = hdr.Seq
		c.rcv.nxt = hdr.Seq
		c.state = StateEstablished
	default:
		c.host.emitRST(hdr, 0)
		return false
	}
	c.rcv.nxt = c.rcv.nxt + 1
	return true
}

// handleFIN implements step 7. It returns false if an RST was emitted (a
// second FIN) and the pipeline must stop.
func (c *Conn) handleFIN(hdr Header, payloadLen int) bool {
	switch c.state {
	case StateEstablished:
		c.state = StateCloseWait
	case StateFinWait1:
		c.state = StateClosing
	case StateFinWait2:
		c.state = StateTimeWait
		c.armConnTimeout(timeWaitDuration)
	default:
		c.host.emitRST(hdr, payloadLen)
		return false
	}
	c.rcv.nxt = c.rcv.nxt + 1
	c.deliver(nil, nil)
	return true
}
