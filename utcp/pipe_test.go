package utcp

import "time"

// pipe wires two Hosts together through in-memory queues, standing in for
// the unreliable datagram substrate. Segments are not delivered until
// drain is called, so a test can inspect what was queued before choosing
// whether to deliver it (e.g. to simulate a drop).
type pipe struct {
	aToB [][]byte
	bToA [][]byte
	a, b *Host
}

func newPipe(cfgA, cfgB HostConfig) *pipe {
	p := &pipe{}
	cfgA.Egress = func(h *Host, seg []byte) {
		cp := make([]byte, len(seg))
		copy(cp, seg)
		p.aToB = append(p.aToB, cp)
	}
	cfgB.Egress = func(h *Host, seg []byte) {
		cp := make([]byte, len(seg))
		copy(cp, seg)
		p.bToA = append(p.bToA, cp)
	}
	p.a = NewHost(cfgA)
	p.b = NewHost(cfgB)
	return p
}

// drain delivers every currently queued segment in both directions,
// looping until both queues are empty (a segment delivered to one side
// may itself produce a reply queued for delivery back).
func (p *pipe) drain() {
	for len(p.aToB) > 0 || len(p.bToA) > 0 {
		aToB, bToA := p.aToB, p.bToA
		p.aToB, p.bToA = nil, nil
		for _, seg := range aToB {
			p.b.Recv(seg)
		}
		for _, seg := range bToA {
			p.a.Recv(seg)
		}
	}
}

// elapse sweeps both hosts' timers as if d had passed since their
// timers were armed. Timers are armed with real wall-clock time (Connect,
// accept, and the FIN/TIME_WAIT transitions all call time.Now()), so the
// sweep uses time.Now().Add(d) rather than a synthetic clock.
func (p *pipe) elapse(d time.Duration) time.Time {
	now := time.Now().Add(d)
	p.a.Timeout(now)
	p.b.Timeout(now)
	return now
}
