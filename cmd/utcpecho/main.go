// Command utcpecho drives two utcp hosts over an in-process packet queue: a
// client host sends a message to an echo host and waits for the bytes to
// come back, printing progress with structured logging.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/rduan/utcp/utcp"
)

func main() {
	message := flag.String("msg", "hello from utcpecho", "payload to send through the loopback connection")
	mtu := flag.Uint("mtu", utcp.DefaultMTU, "maximum segment payload size in bytes")
	verbose := flag.Bool("v", false, "log at debug level")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	q := newQueue()

	echoDone := make(chan struct{})
	echoHost := utcp.NewHost(utcp.HostConfig{
		Egress:    q.egressFrom(sideEcho),
		MTU:       uint16(*mtu),
		Logger:    logger.With("side", "echo"),
		PreAccept: func(h *utcp.Host, localPort uint16) bool { return true },
		Accept: func(c *utcp.Conn, localPort uint16) {
			c.SetRecvFunc(func(c *utcp.Conn, b []byte, err error) (int, error) {
				if b == nil {
					logger.Info("echo side observed half-close", "err", err)
					c.Close()
					close(echoDone)
					return 0, nil
				}
				n, sendErr := c.Send(b)
				if sendErr != nil {
					log.Fatalf("echo: send back: %v", sendErr)
				}
				return n, nil
			})
		},
	})

	var received []byte
	clientDone := make(chan struct{})
	clientHost := utcp.NewHost(utcp.HostConfig{
		Egress: q.egressFrom(sideClient),
		MTU:    uint16(*mtu),
		Logger: logger.With("side", "client"),
	})

	conn, err := clientHost.Connect(7, func(c *utcp.Conn, b []byte, err error) (int, error) {
		if b == nil {
			logger.Info("client side observed close", "err", err)
			return 0, nil
		}
		received = append(received, b...)
		if len(received) >= len(*message) {
			c.Close()
			close(clientDone)
		}
		return len(b), nil
	}, nil)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}

	hosts := map[side]*utcp.Host{sideClient: clientHost, sideEcho: echoHost}
	q.pump(hosts, 2*time.Second)
	if conn.State() != utcp.StateEstablished {
		log.Fatalf("handshake did not complete, state=%v", conn.State())
	}

	if _, err := conn.Send([]byte(*message)); err != nil {
		log.Fatalf("send: %v", err)
	}
	q.pump(hosts, 2*time.Second)

	select {
	case <-clientDone:
	default:
		log.Fatal("timed out waiting for echo")
	}
	<-echoDone

	logger.Info("round trip complete", "sent", *message, "received", string(received))
}

type side int

const (
	sideClient side = iota
	sideEcho
)

// queue is the datagram substrate stand-in: each side's Egress callback
// appends to the other side's inbox, and pump delivers until both inboxes
// drain, mirroring the pipe helper used in the package's own tests.
type queue struct {
	inbox map[side][][]byte
}

func newQueue() *queue {
	return &queue{inbox: map[side][][]byte{sideClient: nil, sideEcho: nil}}
}

func (q *queue) egressFrom(from side) utcp.EgressFunc {
	to := sideEcho
	if from == sideEcho {
		to = sideClient
	}
	return func(h *utcp.Host, seg []byte) {
		cp := make([]byte, len(seg))
		copy(cp, seg)
		q.inbox[to] = append(q.inbox[to], cp)
	}
}

func (q *queue) pump(hosts map[side]*utcp.Host, timerSlice time.Duration) {
	for len(q.inbox[sideClient]) > 0 || len(q.inbox[sideEcho]) > 0 {
		for s, segs := range q.inbox {
			q.inbox[s] = nil
			for _, seg := range segs {
				hosts[s].Recv(seg)
			}
		}
	}
	now := time.Now().Add(timerSlice)
	for _, h := range hosts {
		h.Timeout(now)
	}
}
