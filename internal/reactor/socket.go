package reactor

// Socket is the shape the reactor polls: a named origin that buffers
// inbound messages and accepts outbound ones keyed by peer identity.
// Declared locally (rather than imported from internal/transport) so
// internal/transport can depend on reactor.Message without a cycle;
// any internal/transport.Socket implementation satisfies this
// structurally.
type Socket interface {
	Events() <-chan struct{}
	TryReceive() (msg Message, ok bool, err error)
	Send(msg Message) error
	Close() error
}
