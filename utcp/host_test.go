package utcp

import (
	"errors"
	"testing"
	"time"
)

// TestHandshake covers scenario 1: both sides end up ESTABLISHED, the
// accept side's accept callback fires, and the connect side's snd.una has
// moved past its SYN.
func TestHandshake(t *testing.T) {
	accepted := make(chan *Conn, 1)
	p := newPipe(
		HostConfig{},
		HostConfig{
			Accept: func(c *Conn, localPort uint16) {
				c.SetRecvFunc(func(c *Conn, b []byte, err error) (int, error) { return len(b), nil })
				accepted <- c
			},
			PreAccept: func(h *Host, localPort uint16) bool { return true },
		},
	)

	a, err := p.a.Connect(7, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.State() != StateSynSent {
		t.Fatalf("state after Connect = %v, want SYN_SENT", a.State())
	}

	p.drain()

	select {
	case b := <-accepted:
		if b.State() != StateEstablished {
			t.Errorf("accept side state = %v, want ESTABLISHED", b.State())
		}
	default:
		t.Fatal("accept callback never fired")
	}
	if a.State() != StateEstablished {
		t.Errorf("connect side state = %v, want ESTABLISHED", a.State())
	}
	if a.snd.una != a.snd.iss+1 {
		t.Errorf("snd.una = %v, want iss+1 = %v", a.snd.una, a.snd.iss+1)
	}
}

// TestByteDelivery covers scenario 2.
func TestByteDelivery(t *testing.T) {
	var received []byte
	done := make(chan struct{}, 1)
	p := newPipe(HostConfig{}, HostConfig{
		Accept: func(c *Conn, localPort uint16) {
			c.SetRecvFunc(func(c *Conn, b []byte, err error) (int, error) {
				received = append(received, b...)
				done <- struct{}{}
				return len(b), nil
			})
		},
		PreAccept: func(h *Host, localPort uint16) bool { return true },
	})

	a, _ := p.a.Connect(7, nil, nil)
	p.drain()

	n, err := a.Send([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Send = %d, %v", n, err)
	}
	p.drain()

	select {
	case <-done:
	default:
		t.Fatal("recv callback never fired")
	}
	if string(received) != "hello" {
		t.Fatalf("received %q, want %q", received, "hello")
	}
}

// TestGracefulClose covers scenario 3: both sides close and reach CLOSED
// after the TIME_WAIT timer elapses.
func TestGracefulClose(t *testing.T) {
	var bClosed bool
	var bConn *Conn
	p := newPipe(HostConfig{}, HostConfig{
		Accept: func(c *Conn, localPort uint16) {
			bConn = c
			c.SetRecvFunc(func(c *Conn, b []byte, err error) (int, error) {
				if b == nil {
					bClosed = true
					c.Close()
				}
				return len(b), nil
			})
		},
		PreAccept: func(h *Host, localPort uint16) bool { return true },
	})

	a, _ := p.a.Connect(7, nil, nil)
	p.drain()

	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if a.State() != StateFinWait1 {
		t.Fatalf("state after Close = %v, want FIN_WAIT_1", a.State())
	}
	p.drain()

	if !bClosed {
		t.Fatal("peer never observed half-close")
	}
	if bConn.State() != StateTimeWait && bConn.State() != StateClosed {
		t.Fatalf("accept side state = %v, want TIME_WAIT or CLOSED", bConn.State())
	}
	if a.State() != StateTimeWait {
		t.Fatalf("connect side state = %v, want TIME_WAIT", a.State())
	}

	p.elapse(61 * time.Second)
	if a.State() != StateClosed || !a.reapable {
		t.Errorf("connect side after timeout: state=%v reapable=%v", a.State(), a.reapable)
	}
	if bConn.State() != StateClosed || !bConn.reapable {
		t.Errorf("accept side after timeout: state=%v reapable=%v", bConn.State(), bConn.reapable)
	}
}

// TestRetransmission covers scenario 4: a dropped segment is resent
// unchanged after the retransmit timer fires.
func TestRetransmission(t *testing.T) {
	var received []byte
	p := newPipe(HostConfig{}, HostConfig{
		Accept: func(c *Conn, localPort uint16) {
			c.SetRecvFunc(func(c *Conn, b []byte, err error) (int, error) {
				received = append(received, b...)
				return len(b), nil
			})
		},
		PreAccept: func(h *Host, localPort uint16) bool { return true },
	})

	a, _ := p.a.Connect(7, nil, nil)
	p.drain()

	payload := make([]byte, 500)
	for i := range payload {
		payload[i] = byte(i)
	}
	if _, err := a.Send(payload); err != nil {
		t.Fatal(err)
	}

	// Drop the segment instead of delivering it.
	if len(p.aToB) == 0 {
		t.Fatal("expected a queued segment to drop")
	}
	p.aToB = nil

	if received != nil {
		t.Fatal("peer received data before any segment was delivered")
	}

	// The retransmission timer is armed by the first sweep after Send,
	// then fires on a later sweep once the 1s interval has passed.
	p.elapse(10 * time.Millisecond)
	p.elapse(2 * time.Second)
	p.drain()

	if len(received) != len(payload) {
		t.Fatalf("received %d bytes, want %d", len(received), len(payload))
	}
	for i := range payload {
		if received[i] != payload[i] {
			t.Fatalf("byte %d mismatch: got %d, want %d", i, received[i], payload[i])
		}
	}
}

// TestResetOnBadAck covers scenario 5.
func TestResetOnBadAck(t *testing.T) {
	p := newPipe(HostConfig{}, HostConfig{
		Accept: func(c *Conn, localPort uint16) {
			c.SetRecvFunc(func(c *Conn, b []byte, err error) (int, error) { return len(b), nil })
		},
		PreAccept: func(h *Host, localPort uint16) bool { return true },
	})
	a, _ := p.a.Connect(7, nil, nil)
	p.drain()

	bad := Header{Src: a.dst, Dst: a.src, Seq: a.rcv.nxt, Ack: a.snd.nxt + 1000, Ctl: FlagACK}
	buf := make([]byte, HeaderSize)
	bad.Marshal(buf)

	p.aToB = nil
	p.bToA = nil
	p.a.Recv(buf)

	if len(p.aToB) != 1 {
		t.Fatalf("expected exactly one RST reply, got %d segments", len(p.aToB))
	}
	got, err := ParseHeader(p.aToB[0])
	if err != nil {
		t.Fatal(err)
	}
	if got.Ctl != FlagRST || got.Seq != bad.Ack {
		t.Errorf("got %+v, want RST with seq=%v", got, bad.Ack)
	}
}

// TestRefusal covers scenario 6: pre_accept declines and the connect side
// observes ConnectionRefused.
func TestRefusal(t *testing.T) {
	var gotErr error
	p := newPipe(HostConfig{}, HostConfig{
		Accept: func(c *Conn, localPort uint16) {
			t.Error("accept callback fired for a refused connection")
		},
		PreAccept: func(h *Host, localPort uint16) bool { return false },
	})
	a, _ := p.a.Connect(7, func(c *Conn, b []byte, err error) (int, error) {
		gotErr = err
		return 0, nil
	}, nil)
	p.drain()

	if !errors.Is(gotErr, ErrConnectionRefused) {
		t.Fatalf("got err %v, want ErrConnectionRefused", gotErr)
	}
	if a.State() != StateClosed {
		t.Fatalf("state = %v, want CLOSED", a.State())
	}
}
