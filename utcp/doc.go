/*
Package utcp implements a userspace, reliable, ordered byte-stream transport
modeled on TCP (RFC 793), intended to run over an arbitrary unreliable
datagram substrate such as an encrypted tunnel payload.

A [Host] demultiplexes inbound datagrams to [Conn] records and drives the
retransmission and user timers. The host never owns a socket: the caller
supplies an egress function that hands each outbound datagram to whatever
substrate is in use, and a receive callback that is handed inbound payload
bytes. Call [Host.Recv] with each inbound datagram and [Host.Timeout]
periodically; both synchronously invoke whatever callbacks are installed.

The core only guarantees in-order delivery: segments arriving out of
sequence are dropped rather than queued, the same simplification the
reference C implementation makes.
*/
package utcp
