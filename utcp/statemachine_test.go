package utcp

import "testing"

// newTestConn builds an established connection on a fresh Host, with all
// outbound segments captured rather than delivered anywhere, so individual
// pipeline steps can be exercised without driving a full handshake.
func newTestConn(mtu uint16) (*Host, *Conn, *[][]byte) {
	var sent [][]byte
	h := NewHost(HostConfig{
		MTU: mtu,
		Egress: func(h *Host, seg []byte) {
			cp := make([]byte, len(seg))
			copy(cp, seg)
			sent = append(sent, cp)
		},
	})
	c := newConn(h, 1, 2)
	c.state = StateEstablished
	c.snd.iss = 100
	c.snd.una = 101
	c.snd.nxt = 101
	c.snd.last = 101
	c.snd.wnd = 4096
	c.rcv.irs = 200
	c.rcv.nxt = 201
	c.rcv.wnd = Size(mtu)
	h.insert(c)
	return h, c, &sent
}

func TestAdvanceUnaGrowsCwnd(t *testing.T) {
	_, c, _ := newTestConn(500)
	c.snd.cwnd = 500
	c.maxsndbufsize = 1200
	c.snd.last = c.snd.una + 300

	hdr := Header{Ctl: FlagACK, Ack: c.snd.una + 100}
	advanced := c.advanceUna(hdr, 100)
	if !advanced {
		t.Fatal("advanceUna reported no advance")
	}
	if c.snd.una != hdr.Ack {
		t.Errorf("snd.una = %v, want %v", c.snd.una, hdr.Ack)
	}
	if c.snd.cwnd != 1000 {
		t.Errorf("cwnd = %v, want 1000 (500+mtu)", c.snd.cwnd)
	}

	// A second advance should clamp at maxsndbufsize rather than keep
	// growing without bound.
	hdr2 := Header{Ctl: FlagACK, Ack: c.snd.una + 100}
	c.advanceUna(hdr2, 100)
	if c.snd.cwnd != 1200 {
		t.Errorf("cwnd = %v, want clamped to maxsndbufsize 1200", c.snd.cwnd)
	}
}

func TestAdvanceUnaCountsDupAcks(t *testing.T) {
	_, c, _ := newTestConn(500)
	hdr := Header{Ctl: FlagACK, Ack: c.snd.una}
	for i := 0; i < 3; i++ {
		advanced := c.advanceUna(hdr, 0)
		if advanced {
			t.Fatal("advanceUna reported advance on a duplicate ack")
		}
	}
	if c.dupacks != 3 {
		t.Errorf("dupacks = %d, want 3", c.dupacks)
	}
}

func TestAdvanceUnaSubtractsSynByte(t *testing.T) {
	_, c, _ := newTestConn(500)
	c.state = StateSynReceived
	c.snd.una = 99
	c.snd.last = 100
	c.sndbufused = 0
	hdr := Header{Ctl: FlagACK, Ack: 100}
	advanced := c.advanceUna(hdr, 0)
	if !advanced {
		t.Fatal("advanceUna reported no advance")
	}
	if c.sndbufused != 0 {
		t.Errorf("sndbufused = %d, want 0 (only the SYN's sequence number was acked)", c.sndbufused)
	}
}

func TestAdvanceUnaFinWait1ToFinWait2(t *testing.T) {
	_, c, _ := newTestConn(500)
	c.state = StateFinWait1
	c.snd.last = c.snd.una + 1 // the queued FIN
	hdr := Header{Ctl: FlagACK, Ack: c.snd.last}
	c.advanceUna(hdr, 0)
	if c.state != StateFinWait2 {
		t.Errorf("state = %v, want FIN_WAIT_2", c.state)
	}
}

func TestAdvanceUnaClosingToTimeWait(t *testing.T) {
	_, c, _ := newTestConn(500)
	c.state = StateClosing
	c.snd.last = c.snd.una + 1
	hdr := Header{Ctl: FlagACK, Ack: c.snd.last}
	c.advanceUna(hdr, 0)
	if c.state != StateTimeWait {
		t.Errorf("state = %v, want TIME_WAIT", c.state)
	}
	if c.connTimeout.IsZero() {
		t.Error("connTimeout not armed entering TIME_WAIT")
	}
}

func TestHandleFINTransitions(t *testing.T) {
	cases := []struct {
		from, to State
	}{
		{StateEstablished, StateCloseWait},
		{StateFinWait1, StateClosing},
		{StateFinWait2, StateTimeWait},
	}
	for _, tc := range cases {
		_, c, _ := newTestConn(500)
		c.state = tc.from
		nxtBefore := c.rcv.nxt
		ok := c.handleFIN(Header{}, 0)
		if !ok {
			t.Errorf("from %v: handleFIN returned false", tc.from)
			continue
		}
		if c.state != tc.to {
			t.Errorf("from %v: state = %v, want %v", tc.from, c.state, tc.to)
		}
		if c.rcv.nxt != nxtBefore+1 {
			t.Errorf("from %v: rcv.nxt did not advance by one", tc.from)
		}
	}
}

func TestHandleFINUnexpectedStateReplies(t *testing.T) {
	_, c, sent := newTestConn(500)
	c.state = StateCloseWait // a second FIN here is unexpected
	ok := c.handleFIN(Header{Src: c.dst, Dst: c.src, Seq: c.rcv.nxt, Ctl: FlagFIN}, 0)
	if ok {
		t.Fatal("handleFIN returned true for an unexpected-state FIN")
	}
	if len(*sent) != 1 {
		t.Fatalf("expected exactly one reply, got %d", len(*sent))
	}
	if c.state != StateCloseWait {
		t.Errorf("state changed to %v, want unchanged CLOSE_WAIT", c.state)
	}
}

func TestHandleRSTSynReceivedSilentlyRemoves(t *testing.T) {
	h, c, _ := newTestConn(500)
	c.state = StateSynReceived
	c.handleRST(Header{Ctl: FlagRST})
	if h.find(c.src, c.dst) != nil {
		t.Error("connection not removed after RST in SYN_RECEIVED")
	}
}

func TestHandleRSTEstablishedNotifies(t *testing.T) {
	_, c, _ := newTestConn(500)
	var gotErr error
	c.recv = func(c *Conn, b []byte, err error) (int, error) {
		gotErr = err
		return 0, nil
	}
	c.handleRST(Header{Ctl: FlagRST})
	if c.state != StateClosed || !c.reapable {
		t.Errorf("state=%v reapable=%v, want CLOSED+reapable", c.state, c.reapable)
	}
	if gotErr != ErrConnectionReset {
		t.Errorf("err = %v, want ErrConnectionReset", gotErr)
	}
}
