package transport

import (
	"bufio"
	"fmt"
	"net"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/cyw0ng95/recodex-broker/internal/brokerrors"
	"github.com/cyw0ng95/recodex-broker/internal/reactor"
)

// wireFrame is the on-the-wire representation of one logical message,
// newline-delimited and sonic-marshaled the way UDSTransport frames
// proc.Message.
type wireFrame struct {
	Data []string `json:"data"`
}

// RouterSocket binds a TCP listener and accepts any number of peers,
// assigning each an opaque identity on connect — mirroring a ZeroMQ
// ROUTER socket's semantics, which is what the original broker's client
// and worker sockets are (spec §1 "typical of router-style sockets").
// An address of "*" binds all interfaces, matching spec §6's default.
type RouterSocket struct {
	listener net.Listener
	log      zerolog.Logger

	mu    sync.Mutex
	conns map[string]net.Conn

	inbox  chan reactor.Message
	events chan struct{}
}

// NewRouterSocket binds address:port and starts accepting connections.
func NewRouterSocket(address string, port uint16, log zerolog.Logger) (*RouterSocket, error) {
	if address == "*" {
		address = ""
	}
	addr := fmt.Sprintf("%s:%d", address, port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: bind router socket %s: %v", brokerrors.ErrBindFailed, addr, err)
	}
	s := &RouterSocket{
		listener: listener,
		log:      log.With().Str("component", "router_socket").Str("address", addr).Logger(),
		conns:    make(map[string]net.Conn),
		inbox:    make(chan reactor.Message, 256),
		events:   make(chan struct{}, 1),
	}
	tuneListener(listener, s.log)
	go s.acceptLoop()
	return s, nil
}

// tuneListener raises the kernel receive buffer on the listening socket so
// a burst of worker/client connects doesn't stall under the default
// buffer size. Best-effort: a tuning failure is logged, never fatal.
func tuneListener(listener net.Listener, log zerolog.Logger) {
	tl, ok := listener.(*net.TCPListener)
	if !ok {
		return
	}
	sc, err := tl.SyscallConn()
	if err != nil {
		return
	}
	_ = sc.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, 1<<20); err != nil {
			log.Debug().Err(err).Msg("could not raise SO_RCVBUF")
		}
	})
}

func (s *RouterSocket) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		identity := uuid.NewString()
		s.mu.Lock()
		s.conns[identity] = conn
		s.mu.Unlock()
		go s.readLoop(identity, conn)
	}
}

func (s *RouterSocket) readLoop(identity string, conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 16*1024*1024)
	for scanner.Scan() {
		var frame wireFrame
		if err := sonic.Unmarshal(scanner.Bytes(), &frame); err != nil {
			s.log.Warn().Err(err).Str("identity", identity).Msg("dropped malformed frame")
			continue
		}
		s.inbox <- reactor.Message{Key: "", Identity: identity, Data: frame.Data}
		s.notify()
	}
	s.mu.Lock()
	delete(s.conns, identity)
	s.mu.Unlock()
}

func (s *RouterSocket) notify() {
	select {
	case s.events <- struct{}{}:
	default:
	}
}

// Events implements Socket.
func (s *RouterSocket) Events() <-chan struct{} { return s.events }

// TryReceive implements Socket.
func (s *RouterSocket) TryReceive() (reactor.Message, bool, error) {
	select {
	case msg := <-s.inbox:
		return msg, true, nil
	default:
		return reactor.Message{}, false, nil
	}
}

// Send implements Socket: writes msg to the connection identified by
// msg.Identity. A send to an identity that has disconnected is logged
// and dropped per spec §4.6's transport failure semantics.
func (s *RouterSocket) Send(msg reactor.Message) error {
	s.mu.Lock()
	conn, ok := s.conns[msg.Identity]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("send to unknown peer %q: %w", msg.Identity, errUnknownPeer)
	}

	data, err := sonic.Marshal(wireFrame{Data: msg.Data})
	if err != nil {
		return fmt.Errorf("marshal outbound frame: %w", err)
	}
	_, err = conn.Write(append(data, '\n'))
	return err
}

// Close implements Socket.
func (s *RouterSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		_ = conn.Close()
	}
	return s.listener.Close()
}

var errUnknownPeer = fmt.Errorf("peer not connected")
