package transport

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"github.com/cyw0ng95/recodex-broker/internal/reactor"
)

// defaultMonitorReconnectDelay mirrors UDSTransport's reconnectDelay
// default (cmd/broker/transport/uds_transport.go).
const defaultMonitorReconnectDelay = 1 * time.Second

// ConnectedSocket wraps a single outbound connection to a fixed peer —
// used for the monitor socket, which the broker connects to rather than
// accepting connections from (spec §4.6: "the monitor is connected-not-
// routed"). Outbound sends ignore msg.Identity.
//
// The monitor is an auxiliary, best-effort progress sink (spec §1, §4.6
// forwards "progress" fire-and-forget): an absent or down monitor must
// never keep the broker from serving workers and clients, mirroring the
// original's ZMQ connect socket, which is lazy and tolerates an absent
// peer. Construction never blocks on or fails because the peer is down —
// it dials in the background and retries with the reconnectDelay
// vocabulary from uds_transport.go, dropping progress frames while
// disconnected.
type ConnectedSocket struct {
	address string
	port    uint16
	log     zerolog.Logger

	reconnectDelay time.Duration

	mu        sync.Mutex
	conn      net.Conn
	connected bool
	inbox     chan reactor.Message

	events chan struct{}
	closed chan struct{}
}

// NewConnectedSocket starts connecting to addr:port over TCP in the
// background and returns immediately; it never fails because the peer is
// absent or unreachable. Use IsConnected to observe connection state.
func NewConnectedSocket(address string, port uint16, log zerolog.Logger) (*ConnectedSocket, error) {
	s := &ConnectedSocket{
		address:        address,
		port:           port,
		log:            log.With().Str("component", "connected_socket").Logger(),
		reconnectDelay: defaultMonitorReconnectDelay,
		inbox:          make(chan reactor.Message, 16),
		events:         make(chan struct{}, 1),
		closed:         make(chan struct{}),
	}
	go s.connectLoop()
	return s, nil
}

// SetReconnectDelay overrides the delay between dial attempts; mirrors
// UDSTransport.SetReconnectOptions.
func (s *ConnectedSocket) SetReconnectDelay(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnectDelay = delay
}

// IsConnected reports whether the monitor peer is currently reachable.
func (s *ConnectedSocket) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// connectLoop dials the peer, retrying with reconnectDelay between
// attempts, until it succeeds or the socket is closed. On a successful
// dial it runs readLoop until the connection drops, then loops again.
func (s *ConnectedSocket) connectLoop() {
	for {
		select {
		case <-s.closed:
			return
		default:
		}

		conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", s.address, s.port))
		if err != nil {
			s.log.Debug().Err(err).Str("address", s.address).Uint16("port", s.port).Msg("monitor dial failed, will retry")
			select {
			case <-s.closed:
				return
			case <-time.After(s.reconnectDelay):
				continue
			}
		}

		s.mu.Lock()
		s.conn = conn
		s.connected = true
		s.mu.Unlock()
		s.log.Info().Str("address", s.address).Uint16("port", s.port).Msg("monitor connected")

		s.readLoop(conn)

		s.mu.Lock()
		s.conn = nil
		s.connected = false
		s.mu.Unlock()

		select {
		case <-s.closed:
			return
		default:
		}
	}
}

// readLoop scans frames off conn until it errs or is closed, then
// returns so connectLoop can redial.
func (s *ConnectedSocket) readLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 16*1024*1024)
	for scanner.Scan() {
		var frame wireFrame
		if err := sonic.Unmarshal(scanner.Bytes(), &frame); err != nil {
			s.log.Warn().Err(err).Msg("dropped malformed frame")
			continue
		}
		s.inbox <- reactor.Message{Data: frame.Data}
		select {
		case s.events <- struct{}{}:
		default:
		}
	}
	if err := scanner.Err(); err != nil {
		s.log.Warn().Err(err).Msg("monitor connection lost, will reconnect")
	}
}

// Events implements Socket.
func (s *ConnectedSocket) Events() <-chan struct{} { return s.events }

// TryReceive implements Socket.
func (s *ConnectedSocket) TryReceive() (reactor.Message, bool, error) {
	select {
	case msg := <-s.inbox:
		return msg, true, nil
	default:
		return reactor.Message{}, false, nil
	}
}

// Send implements Socket; the recipient is always the single peer this
// socket connected to. Frames are fire-and-forget (spec §4.6 "progress"
// forwarding): while the monitor is unreachable the frame is dropped
// rather than blocking or erroring, matching the original's connect
// socket semantics.
func (s *ConnectedSocket) Send(msg reactor.Message) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		s.log.Debug().Msg("monitor disconnected, dropping frame")
		return nil
	}

	data, err := sonic.Marshal(wireFrame{Data: msg.Data})
	if err != nil {
		return fmt.Errorf("marshal outbound frame: %w", err)
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		s.log.Debug().Err(err).Msg("monitor write failed, dropping frame")
		return nil
	}
	return nil
}

// Close implements Socket.
func (s *ConnectedSocket) Close() error {
	close(s.closed)
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}
