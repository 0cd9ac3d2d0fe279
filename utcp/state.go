package utcp

import "strconv"

// State enumerates the states a connection progresses through during its
// lifetime, per RFC 793 §3.2.
type State uint8

const (
	// StateClosed represents no connection state at all.
	StateClosed State = iota
	// StateListen represents waiting for a connection request from any
	// remote port. Unused by this module: connections are only ever
	// created by Connect or by the host's own SYN handling, never parked
	// in LISTEN themselves — see HostConfig.PreAccept.
	StateListen
	// StateSynSent represents waiting for a matching connection request
	// after having sent a connection request.
	StateSynSent
	// StateSynReceived represents waiting for a confirming connection
	// request acknowledgment after having both received and sent a
	// connection request.
	StateSynReceived
	// StateEstablished represents an open connection; data received can
	// be delivered to the application. The normal state for data
	// transfer.
	StateEstablished
	// StateFinWait1 represents waiting for a connection termination
	// request from the remote side, or an acknowledgment of the
	// termination request previously sent.
	StateFinWait1
	// StateFinWait2 represents waiting for a connection termination
	// request from the remote side.
	StateFinWait2
	// StateCloseWait represents waiting for a connection termination
	// request from the local application.
	StateCloseWait
	// StateClosing represents waiting for a connection termination
	// request acknowledgment from the remote side.
	StateClosing
	// StateLastAck represents waiting for an acknowledgment of the
	// connection termination request previously sent.
	StateLastAck
	// StateTimeWait represents waiting for enough time to pass to be
	// sure the remote side received the acknowledgment of its
	// connection termination request.
	StateTimeWait
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateListen:
		return "LISTEN"
	case StateSynSent:
		return "SYN_SENT"
	case StateSynReceived:
		return "SYN_RECEIVED"
	case StateEstablished:
		return "ESTABLISHED"
	case StateFinWait1:
		return "FIN_WAIT_1"
	case StateFinWait2:
		return "FIN_WAIT_2"
	case StateCloseWait:
		return "CLOSE_WAIT"
	case StateClosing:
		return "CLOSING"
	case StateLastAck:
		return "LAST_ACK"
	case StateTimeWait:
		return "TIME_WAIT"
	default:
		return "STATE(" + strconv.Itoa(int(s)) + ")"
	}
}

// Flags is the set of control bits carried in a segment header.
type Flags uint16

const (
	FlagSYN Flags = 1 << iota
	FlagACK
	FlagFIN
	FlagRST

	// flagsKnown is the union of all flags this module understands; any
	// other bit set in an inbound header's ctl field is a bad message.
	flagsKnown = FlagSYN | FlagACK | FlagFIN | FlagRST
)

// HasAll reports whether all bits in mask are set.
func (f Flags) HasAll(mask Flags) bool { return f&mask == mask }

// HasAny reports whether one or more bits in mask are set.
func (f Flags) HasAny(mask Flags) bool { return f&mask != 0 }

func (f Flags) String() string {
	if f == 0 {
		return "[]"
	}
	var buf [4*4 + 1]byte // "[SYN,ACK,FIN,RST]" is 17 bytes
	n := 0
	buf[n] = '['
	n++
	add := func(name string, bit Flags) {
		if f&bit == 0 {
			return
		}
		if n > 1 {
			buf[n] = ','
			n++
		}
		n += copy(buf[n:], name)
	}
	add("SYN", FlagSYN)
	add("ACK", FlagACK)
	add("FIN", FlagFIN)
	add("RST", FlagRST)
	buf[n] = ']'
	n++
	return string(buf[:n])
}
