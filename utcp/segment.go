package utcp

import (
	"encoding/binary"
	"errors"
)

// HeaderSize is the fixed size in bytes of a wire segment header: two
// 16-bit port fields, three 32-bit sequence-space fields, and two 16-bit
// control fields (2+2+4+4+4+2+2).
const HeaderSize = 20

// ErrShortHeader is returned by ParseHeader when the input is shorter than
// [HeaderSize].
var ErrShortHeader = errors.New("utcp: segment shorter than header")

// ErrBadFlags is returned by ParseHeader when ctl carries bits outside the
// known flag set.
var ErrBadFlags = errors.New("utcp: unknown control bits in segment")

// Header is the wire segment header carried at the start of every datagram
// this module emits or accepts.
//
// Fields are encoded in host byte order (binary.NativeEndian), not network
// byte order: two hosts of differing endianness cannot interoperate.
type Header struct {
	Src uint16 // local connection identifier of the sender
	Dst uint16 // local connection identifier of the sender's peer
	Seq Value  // sequence number of the first payload byte, or of the control flag if no payload
	Ack Value  // next sequence number the sender expects to receive; valid only if Ctl has FlagACK
	Wnd Size   // sender's currently advertised receive window
	Ctl Flags  // SYN/ACK/FIN/RST
	Aux uint16 // reserved, zero on emit, ignored on receive
}

// Marshal encodes h into the first [HeaderSize] bytes of dst. It panics if
// dst is shorter than HeaderSize.
func (h Header) Marshal(dst []byte) {
	_ = dst[HeaderSize-1] // bounds check hint, mirrors Put-style codecs in the corpus
	bo := binary.NativeEndian
	bo.PutUint16(dst[0:2], h.Src)
	bo.PutUint16(dst[2:4], h.Dst)
	bo.PutUint32(dst[4:8], uint32(h.Seq))
	bo.PutUint32(dst[8:12], uint32(h.Ack))
	bo.PutUint32(dst[12:16], uint32(h.Wnd))
	bo.PutUint16(dst[16:18], uint16(h.Ctl))
	bo.PutUint16(dst[18:20], h.Aux)
}

// ParseHeader decodes the first [HeaderSize] bytes of b into a Header. It
// rejects datagrams shorter than the header and datagrams whose Ctl field
// carries bits outside {SYN, ACK, FIN, RST}.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrShortHeader
	}
	bo := binary.NativeEndian
	ctl := Flags(bo.Uint16(b[16:18]))
	if ctl&^flagsKnown != 0 {
		return Header{}, ErrBadFlags
	}
	h := Header{
		Src: bo.Uint16(b[0:2]),
		Dst: bo.Uint16(b[2:4]),
		Seq: Value(bo.Uint32(b[4:8])),
		Ack: Value(bo.Uint32(b[8:12])),
		Wnd: Size(bo.Uint32(b[12:16])),
		Ctl: ctl,
		Aux: bo.Uint16(b[18:20]),
	}
	return h, nil
}
