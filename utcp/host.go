package utcp

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/soypat/seqs"
	"golang.org/x/exp/slices"
)

// Host owns a set of connections multiplexed over a single datagram
// substrate. A Host is reentered only through [Host.Recv], [Host.Connect],
// [Host.Timeout], and the Conn operations of connections it owns; none of
// these may be called concurrently against the same Host. There is no
// internal locking — callers must serialize access themselves.
type Host struct {
	conns []*Conn // sorted by (src,dst), see connLess

	mtu         uint16
	userTimeout time.Duration
	connCfg     ConnConfig

	egress    EgressFunc
	accept    AcceptFunc
	preAccept PreAcceptFunc

	userData any
	log      *slog.Logger
}

// NewHost creates a Host from cfg. cfg.Egress must be non-nil.
func NewHost(cfg HostConfig) *Host {
	if cfg.Egress == nil {
		panic("utcp: NewHost: nil Egress callback")
	}
	cfg = cfg.withDefaults()
	return &Host{
		mtu:         cfg.MTU,
		userTimeout: cfg.UserTimeout,
		connCfg:     cfg.Conn,
		egress:      cfg.Egress,
		accept:      cfg.Accept,
		preAccept:   cfg.PreAccept,
		userData:    cfg.UserData,
		log:         cfg.Logger,
	}
}

// MTU returns the maximum payload size, in bytes, of any segment this host
// emits.
func (h *Host) MTU() uint16 { return h.mtu }

// SetMTU changes the host's outbound payload ceiling.
func (h *Host) SetMTU(mtu uint16) { h.mtu = mtu }

// UserTimeout returns the handshake deadline armed on each new connection
// (see [HostConfig.UserTimeout]).
func (h *Host) UserTimeout() time.Duration { return h.userTimeout }

// SetUserTimeout changes the handshake deadline for connections created
// afterwards.
func (h *Host) SetUserTimeout(d time.Duration) { h.userTimeout = d }

// UserData returns the opaque value supplied in HostConfig.UserData.
func (h *Host) UserData() any { return h.userData }

// connKey identifies a connection by its endpoint pair, local first.
type connKey struct {
	src, dst uint16
}

func connLess(a, b connKey) int {
	if a.src != b.src {
		return int(a.src) - int(b.src)
	}
	return int(a.dst) - int(b.dst)
}

func keyOf(c *Conn) connKey { return connKey{c.src, c.dst} }

// find returns the connection with the given (src,dst), or nil.
func (h *Host) find(src, dst uint16) *Conn {
	key := connKey{src, dst}
	i, ok := slices.BinarySearchFunc(h.conns, key, func(c *Conn, k connKey) int {
		return connLess(keyOf(c), k)
	})
	if !ok {
		return nil
	}
	return h.conns[i]
}

// insert adds c to the sorted container. It panics if a connection with the
// same (src,dst) already exists, matching the uniqueness invariant.
func (h *Host) insert(c *Conn) {
	key := keyOf(c)
	i, ok := slices.BinarySearchFunc(h.conns, key, func(c *Conn, k connKey) int {
		return connLess(keyOf(c), k)
	})
	if ok {
		h.logerr("duplicate connection", "src", key.src, "dst", key.dst)
		panic(fmt.Sprintf("utcp: duplicate connection (src=%d,dst=%d)", key.src, key.dst))
	}
	h.conns = slices.Insert(h.conns, i, c)
}

// remove drops c from the sorted container. It is a no-op if c is not
// present (already freed).
func (h *Host) remove(c *Conn) {
	key := keyOf(c)
	i, ok := slices.BinarySearchFunc(h.conns, key, func(c *Conn, k connKey) int {
		return connLess(keyOf(c), k)
	})
	if !ok {
		return
	}
	h.conns = slices.Delete(h.conns, i, i+1)
}

// freePort picks a src identifier with the high bit set, not colliding with
// any connection currently keyed by (src, dst).
func (h *Host) freePort(dst uint16) uint16 {
	for {
		src := uint16(rand.Uint32())
		src |= 0x8000
		if src == 0 {
			continue
		}
		if h.find(src, dst) == nil {
			return src
		}
	}
}

// Connect allocates a connection to dst, sends a SYN, and returns
// immediately in [StateSynSent]. recv is installed as the connection's
// RecvFunc; it may be nil and set later with [Conn.SetRecvFunc].
func (h *Host) Connect(dst uint16, recv RecvFunc, userData any) (*Conn, error) {
	if dst == 0 {
		return nil, ErrInvalidArgument
	}
	src := h.freePort(dst)
	c := newConn(h, src, dst)
	c.recv = recv
	c.userData = userData
	c.snd.iss = Value(rand.Uint32())
	c.snd.una = c.snd.iss
	c.snd.nxt = c.snd.iss + 1
	c.snd.last = c.snd.nxt
	c.snd.wnd = 0
	c.state = StateSynSent
	c.armConnTimeout(h.userTimeout)
	h.insert(c)
	h.info("connect", "src", src, "dst", dst)
	h.emitSegment(c, Header{
		Src: c.src,
		Dst: c.dst,
		Seq: c.snd.iss,
		Ctl: FlagSYN,
		Wnd: Size(h.mtu),
	}, nil)
	return c, nil
}

// Close tears down every connection owned by h. Connections that are not
// reapable are logged as a warning and freed anyway — the caller is
// expected to have closed them first.
func (h *Host) Close() {
	for _, c := range h.conns {
		if !c.reapable {
			h.warn("closing host with live connection", "src", c.src, "dst", c.dst, "state", c.state)
		}
	}
	h.conns = nil
}

// Recv ingests one inbound datagram. It demultiplexes to the owning
// connection (by the header's (dst,src) swapped against the local (src,dst)
// key), handles new-connection SYNs, and otherwise drops or RSTs segments
// matching no connection.
func (h *Host) Recv(b []byte) error {
	hdr, err := ParseHeader(b)
	if err != nil {
		h.debug("drop: bad header", "err", err)
		return fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	payload := b[HeaderSize:]

	c := h.find(hdr.Dst, hdr.Src)
	if c != nil {
		c.onSegment(hdr, payload)
		return nil
	}

	if hdr.Ctl.HasAll(FlagRST) {
		h.debug("drop: unmatched RST")
		return nil
	}
	if hdr.Ctl == FlagSYN {
		if h.accept == nil {
			h.debug("drop: syn with no accept callback installed", "port", hdr.Dst)
			h.emitRST(hdr, 1)
			return nil
		}
		if h.preAccept != nil && !h.preAccept(h, hdr.Dst) {
			h.debug("pre-accept refused", "port", hdr.Dst)
			h.emitRST(hdr, 1)
			return nil
		}
		nc := newConn(h, hdr.Dst, hdr.Src)
		nc.rcv.irs = hdr.Seq
		nc.rcv.nxt = hdr.Seq + 1
		nc.snd.wnd = hdr.Wnd
		nc.snd.iss = Value(rand.Uint32())
		nc.snd.una = nc.snd.iss
		nc.snd.nxt = nc.snd.iss + 1
		nc.snd.last = nc.snd.nxt
		nc.state = StateSynReceived
		nc.armConnTimeout(h.userTimeout)
		h.insert(nc)
		h.debug("syn received, replying syn-ack", "src", nc.src, "dst", nc.dst)
		h.emitSegment(nc, Header{
			Src: nc.src,
			Dst: nc.dst,
			Seq: nc.snd.iss,
			Ack: nc.rcv.nxt,
			Ctl: FlagSYN | FlagACK,
			Wnd: Size(h.mtu),
		}, nil)
		return nil
	}

	h.debug("drop: unmatched segment, replying rst", "src", hdr.Dst, "dst", hdr.Src)
	h.emitRST(hdr, 1)
	return nil
}

// emitSegment marshals hdr and payload into one datagram and hands it to
// the Egress callback.
func (h *Host) emitSegment(c *Conn, hdr Header, payload []byte) {
	seg := make([]byte, HeaderSize+len(payload))
	hdr.Marshal(seg)
	copy(seg[HeaderSize:], payload)
	h.egress(h, seg)
}

// emitRST replies to hdr per the RST emission helper in the state machine
// design: ports swapped, wnd=0; ACK-carrying offenders get a bare RST
// whose seq is hdr.Ack, otherwise a RST|ACK with seq 0 acking
// hdr.Seq+segLen.
func (h *Host) emitRST(hdr Header, segLen int) {
	reply := Header{Src: hdr.Dst, Dst: hdr.Src, Wnd: 0}
	if hdr.Ctl.HasAll(FlagACK) {
		reply.Seq = hdr.Ack
		reply.Ctl = FlagRST
	} else {
		reply.Seq = 0
		reply.Ack = hdr.Seq + Value(segLen)
		reply.Ctl = FlagRST | FlagACK
	}
	seg := make([]byte, HeaderSize)
	reply.Marshal(seg)
	h.egress(h, seg)
}

// Timeout performs one timer sweep: reaps freeable connections, expires
// user timeouts, retransmits, and polls writable connections. It returns
// the number of milliseconds until the earliest next timer is due, capped
// at noPendingTimerMillis when nothing is pending.
func (h *Host) Timeout(now time.Time) int {
	earliest := now.Add(noPendingTimerMillis * time.Millisecond)
	var live []*Conn
	for _, c := range h.conns {
		if c.state == StateClosed {
			if c.reapable {
				h.debug("reaping connection", "src", c.src, "dst", c.dst)
				continue
			}
			// Closed but not yet reapable: the application hasn't called
			// Close/Abort on it yet. Leave its timers untouched until it
			// does — a still-armed TIME_WAIT connTimeout must not fire a
			// second ErrTimedOut against a connection the application
			// already considers gone.
			live = append(live, c)
			continue
		}
		live = append(live, c)

		if !c.connTimeout.IsZero() && !now.Before(c.connTimeout) {
			h.handleUserTimeout(c)
		}
		if !c.rtrxTimeout.IsZero() && !now.Before(c.rtrxTimeout) {
			h.retransmit(c)
		}
		if c.poll != nil && (c.state == StateEstablished || c.state == StateCloseWait) {
			free := c.maxsndbufsize - int(seqs.Sizeof(c.snd.una, c.snd.last))
			if free > c.maxsndbufsize/2 {
				c.poll(c, free)
			}
		}
		if c.snd.nxt != c.snd.una {
			c.rtrxTimeout = now.Add(retransmitInterval)
		} else {
			c.rtrxTimeout = time.Time{}
		}
		if !c.connTimeout.IsZero() && c.connTimeout.Before(earliest) {
			earliest = c.connTimeout
		}
		if !c.rtrxTimeout.IsZero() && c.rtrxTimeout.Before(earliest) {
			earliest = c.rtrxTimeout
		}
	}
	h.conns = live

	ms := int(earliest.Sub(now) / time.Millisecond)
	if ms < 0 {
		ms = 0
	}
	if ms > noPendingTimerMillis {
		ms = noPendingTimerMillis
	}
	return ms
}

// handleUserTimeout fires when a connection's conn_timeout has elapsed:
// either a handshake that never completed or a TIME_WAIT expiry. TIME_WAIT
// is reaped silently; a handshake timeout notifies the application and
// leaves reapable for the application's own Close/Abort call to set,
// matching utcp_timeout's own handling of the user timeout callback.
func (h *Host) handleUserTimeout(c *Conn) {
	c.connTimeout = time.Time{}
	switch c.state {
	case StateTimeWait:
		c.state = StateClosed
		c.reapable = true
		return
	default:
		h.info("user timeout", "src", c.src, "dst", c.dst, "state", c.state)
		c.state = StateClosed
		c.deliver(nil, ErrTimedOut)
	}
}
