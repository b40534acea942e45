// Package transport implements the router-style socket abstraction the
// reactor polls. Spec §1 treats wire-level framing as out of scope,
// specified only by the interface the core consumes: an ordered sequence
// of byte frames per message with a peer-identity frame. This package
// follows the same newline-delimited, sonic-framed message pattern as
// cmd/broker/transport/uds_transport.go, adapted from a single
// point-to-point UDS connection to a TCP listener multiplexing many
// peers by identity, and from proc.Message to reactor.Message framing.
package transport

import (
	"github.com/cyw0ng95/recodex-broker/internal/reactor"
)

// Socket is what the reactor polls and sends through. A Socket may be a
// router (many peers, one per accepted connection, framed with an
// identity) or a plain connected socket (monitor) with a fixed recipient
// identity.
type Socket interface {
	// Events exposes a channel the poller selects on for readiness.
	// Implementations push onto it (non-blocking) whenever at least one
	// message is buffered for TryReceive.
	Events() <-chan struct{}
	// TryReceive returns the next buffered inbound message, or ok=false
	// if none is currently available.
	TryReceive() (msg reactor.Message, ok bool, err error)
	// Send delivers msg to the peer named by msg.Identity (routers) or
	// to the single connected peer (connected sockets).
	Send(msg reactor.Message) error
	// Close releases the underlying listener/connection.
	Close() error
}
