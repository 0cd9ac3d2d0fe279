package utcp

import "github.com/soypat/seqs"

// retransmit rebuilds and re-emits the earliest unacknowledged segment
// appropriate to c's state. It does not advance any sequence variable and
// does not reset the retransmission timer — the next Host.Timeout sweep
// recomputes it.
func (h *Host) retransmit(c *Conn) {
	if c.state == StateClosed || c.snd.nxt == c.snd.una {
		return
	}

	switch c.state {
	case StateSynSent:
		h.emitSegment(c, Header{
			Src: c.src,
			Dst: c.dst,
			Seq: c.snd.iss,
			Wnd: c.rcv.wnd,
			Ctl: FlagSYN,
		}, nil)

	case StateSynReceived:
		h.emitSegment(c, Header{
			Src: c.src,
			Dst: c.dst,
			Seq: c.snd.iss,
			Ack: c.rcv.nxt,
			Wnd: c.rcv.wnd,
			Ctl: FlagSYN | FlagACK,
		}, nil)

	case StateEstablished, StateFinWait1:
		hdr := Header{
			Src: c.src,
			Dst: c.dst,
			Seq: c.snd.una,
			Ack: c.rcv.nxt,
			Ctl: FlagACK,
		}
		length := int(seqs.Sizeof(c.snd.una, c.snd.nxt))
		if c.state == StateFinWait1 {
			length--
		}
		if length > int(h.mtu) {
			length = int(h.mtu)
		} else if c.state == StateFinWait1 {
			hdr.Ctl |= FlagFIN
		}
		h.emitSegment(c, hdr, c.bufferFrom(0)[:length])

	default:
		// CLOSING, CLOSE_WAIT, LAST_ACK, and TIME_WAIT have no
		// retransmission path implemented.
		h.logerr("unimplemented retransmit state", "state", c.state)
		panic("utcp: unimplemented retransmit state " + c.state.String())
	}
}
