package reactor

import (
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPollInterval matches spec §4.5's 100ms poll tick.
const DefaultPollInterval = 100 * time.Millisecond

// Reactor is the single-threaded dispatch loop: it polls a set of named
// sockets plus an internal async-handler hub, routes inbound messages to
// handlers keyed by origin, and emits a synthetic "timer" message every
// poll cycle carrying the elapsed milliseconds since the previous one.
type Reactor struct {
	log          zerolog.Logger
	pollInterval time.Duration

	mu       sync.Mutex
	sockets  map[string]Socket
	handlers map[string][]Handler
	async    map[string]chan Message

	hubOut chan Message

	terminated atomic.Bool
	asyncWG    sync.WaitGroup
}

// New builds a Reactor. pollInterval <= 0 uses DefaultPollInterval.
func New(log zerolog.Logger, pollInterval time.Duration) *Reactor {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Reactor{
		log:          log.With().Str("component", "reactor").Logger(),
		pollInterval: pollInterval,
		sockets:      make(map[string]Socket),
		handlers:     make(map[string][]Handler),
		async:        make(map[string]chan Message),
		hubOut:       make(chan Message, 64),
	}
}

// AddSocket registers a named socket the loop polls for readiness.
func (r *Reactor) AddSocket(key string, s Socket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sockets[key] = s
}

// AddHandler registers h to run synchronously, on the reactor's own
// goroutine, for every message whose Key is key (including the
// synthetic "timer" key).
func (r *Reactor) AddHandler(key string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[key] = append(r.handlers[key], h)
}

// AddAsyncHandler registers h to run on its own goroutine, fed through an
// in-process hub rather than the poll loop itself, so a slow handler (an
// HTTP call, say) never blocks dispatch of other sockets. Messages the
// handler emits via respond() are routed back through the main loop on
// its next iteration, preserving single-threaded dispatch of responses.
func (r *Reactor) AddAsyncHandler(key string, h Handler) {
	ch := make(chan Message, 64)
	r.mu.Lock()
	r.async[key] = ch
	r.mu.Unlock()

	r.asyncWG.Add(1)
	go func() {
		defer r.asyncWG.Done()
		for msg := range ch {
			if len(msg.Data) == 1 && msg.Data[0] == "TERMINATE" {
				return
			}
			h.OnRequest(msg, func(resp Message) { r.hubOut <- resp })
		}
	}()
}

// SendMessage routes msg to whatever msg.Key names: an async handler's
// inbox, a socket's outbound connection, or — if neither is registered —
// any synchronous handlers bound to that key. This is the ResponseFunc
// passed to every synchronous Handler.OnRequest; responses from async
// handlers reach it through the hub on the loop's next iteration.
func (r *Reactor) SendMessage(msg Message) {
	r.mu.Lock()
	asyncCh, isAsync := r.async[msg.Key]
	sock, isSocket := r.sockets[msg.Key]
	r.mu.Unlock()

	switch {
	case isAsync:
		select {
		case asyncCh <- msg:
		default:
			r.log.Warn().Str("key", msg.Key).Msg("async handler inbox full, dropping message")
		}
	case isSocket:
		if err := sock.Send(msg); err != nil {
			r.log.Warn().Err(err).Str("key", msg.Key).Str("identity", msg.Identity).Msg("send failed")
		}
	default:
		r.ProcessMessage(msg)
	}
}

// ProcessMessage runs every synchronous handler registered under
// msg.Key, in registration order.
func (r *Reactor) ProcessMessage(msg Message) {
	r.mu.Lock()
	hs := append([]Handler(nil), r.handlers[msg.Key]...)
	r.mu.Unlock()
	for _, h := range hs {
		h.OnRequest(msg, r.SendMessage)
	}
}

// Terminate requests the loop stop; it exits within one poll interval.
func (r *Reactor) Terminate() {
	r.terminated.Store(true)
}

// StartLoop runs the poll loop until Terminate is called, then shuts
// down async handlers and returns.
func (r *Reactor) StartLoop() {
	lastTick := time.Now()
	for !r.terminated.Load() {
		key, hubMsg, hasHubMsg := r.waitReady(r.pollInterval)
		switch {
		case hasHubMsg:
			r.SendMessage(hubMsg)
			// a hub result may have arrived alongside others already
			// queued; drain the rest without waiting again.
			r.drainHub()
		case key != "":
			r.drain(key)
		}

		now := time.Now()
		elapsedMs := now.Sub(lastTick).Milliseconds()
		lastTick = now
		r.ProcessMessage(Message{Key: "timer", Data: []string{strconv.FormatInt(elapsedMs, 10)}})
	}
	r.shutdownAsync()
}

// drainHub dispatches any further async results already buffered,
// without blocking.
func (r *Reactor) drainHub() {
	for {
		select {
		case msg := <-r.hubOut:
			r.SendMessage(msg)
		default:
			return
		}
	}
}

// drain pulls every currently buffered message off the named socket and
// dispatches each in order.
func (r *Reactor) drain(key string) {
	r.mu.Lock()
	sock := r.sockets[key]
	r.mu.Unlock()
	if sock == nil {
		return
	}
	for {
		msg, ok, err := sock.TryReceive()
		if err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("receive error")
			return
		}
		if !ok {
			return
		}
		msg.Key = key
		r.ProcessMessage(msg)
	}
}

// waitReady blocks until one registered socket's Events channel fires, a
// pending async result arrives, or timeout elapses. When the hub fires,
// the received message is returned directly (reflect.Select already
// consumed it from the channel, so it cannot be re-read by drain).
func (r *Reactor) waitReady(timeout time.Duration) (key string, hubMsg Message, hasHubMsg bool) {
	r.mu.Lock()
	keys := make([]string, 0, len(r.sockets))
	cases := make([]reflect.SelectCase, 0, len(r.sockets)+2)
	for k, s := range r.sockets {
		keys = append(keys, k)
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(s.Events())})
	}
	r.mu.Unlock()

	hubIdx := len(cases)
	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(r.hubOut)})

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	timeoutIdx := len(cases)
	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(timer.C)})

	chosen, recv, recvOK := reflect.Select(cases)
	switch {
	case chosen == timeoutIdx:
		return "", Message{}, false
	case chosen == hubIdx:
		if !recvOK {
			return "", Message{}, false
		}
		return "", recv.Interface().(Message), true
	default:
		return keys[chosen], Message{}, false
	}
}

func (r *Reactor) shutdownAsync() {
	r.mu.Lock()
	chans := make([]chan Message, 0, len(r.async))
	for _, ch := range r.async {
		chans = append(chans, ch)
	}
	r.mu.Unlock()

	for _, ch := range chans {
		ch <- Message{Data: []string{"TERMINATE"}}
		close(ch)
	}
	r.asyncWG.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	for key, s := range r.sockets {
		if err := s.Close(); err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("close failed")
		}
	}
}
