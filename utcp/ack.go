package utcp

import "github.com/soypat/seqs"

// ack builds and emits one or more segments carrying buffered data, an ACK,
// or both, respecting the MTU and congestion window. If there is nothing
// to send and sendAtLeastOne is false, it emits nothing — the common case
// after processing a segment that advanced nothing.
func (h *Host) ack(c *Conn, sendAtLeastOne bool) {
	if seqs.LessThan(c.snd.last, c.snd.nxt) {
		h.logerr("snd.last before snd.nxt", "src", c.src, "dst", c.dst, "last", c.snd.last, "nxt", c.snd.nxt)
		panic("utcp: snd.last before snd.nxt")
	}
	left := int(seqs.Sizeof(c.snd.nxt, c.snd.last))
	cwndLeft := int(c.snd.cwnd) - int(seqs.Sizeof(c.snd.una, c.snd.nxt))
	if cwndLeft < 0 {
		cwndLeft = 0
	}
	if cwndLeft < left {
		left = cwndLeft
	}
	if left == 0 && !sendAtLeastOne {
		return
	}

	mtu := int(h.mtu)
	for {
		seglen := left
		if seglen > mtu {
			seglen = mtu
		}
		hdr := Header{
			Src: c.src,
			Dst: c.dst,
			Seq: c.snd.nxt,
			Ack: c.rcv.nxt,
			Wnd: c.snd.wnd,
			Ctl: FlagACK,
		}
		off := int(seqs.Sizeof(c.snd.una, c.snd.nxt))

		c.snd.nxt = seqs.Add(c.snd.nxt, Size(seglen))
		left -= seglen

		payloadLen := seglen
		if left == 0 && seglen > 0 {
			switch c.state {
			case StateFinWait1, StateClosing:
				hdr.Ctl |= FlagFIN
				payloadLen--
			}
		}
		h.emitSegment(c, hdr, c.bufferFrom(off)[:payloadLen])

		if left <= 0 {
			break
		}
	}
}
