// Package broker implements the protocol state machine described in
// spec §4.6: it subscribes to the "workers", "clients", and "timer"
// reactor keys and drives the worker registry, queue manager, and
// status notifier in response to wire messages. Grounded on the
// original broker_handler::on_request and its process_* methods
// (original_source/src/handlers/broker_handler.cpp).
package broker

import (
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/cyw0ng95/recodex-broker/internal/brokerrors"
	"github.com/cyw0ng95/recodex-broker/internal/headers"
	"github.com/cyw0ng95/recodex-broker/internal/notifier"
	"github.com/cyw0ng95/recodex-broker/internal/queue"
	"github.com/cyw0ng95/recodex-broker/internal/reactor"
	"github.com/cyw0ng95/recodex-broker/internal/request"
	"github.com/cyw0ng95/recodex-broker/internal/workerpool"
)

// Socket keys used both to register the handler and to address
// responses; mirrors broker_connect's KEY_* constants.
const (
	KeyWorkers        = "workers"
	KeyClients        = "clients"
	KeyMonitor        = "monitor"
	KeyTimer          = "timer"
	KeyStatusNotifier = "status_notifier"

	// MonitorIdentity is the fixed recipient identity used for sends to
	// the monitor socket, which is connected-not-routed and so has no
	// real per-connection identity of its own.
	MonitorIdentity = "recodex-monitor"
)

// Handler is the broker's protocol state machine. One instance is
// registered with the reactor under KeyWorkers, KeyClients, and
// KeyTimer.
type Handler struct {
	registry  *workerpool.Registry
	queueMgr  queue.Manager
	log       zerolog.Logger
	maxLive   int
	pingEvery time.Duration

	timers map[*workerpool.Worker]time.Duration
}

// New builds a broker Handler. maxLiveness and pingInterval come from
// configuration (spec §6: max_worker_liveness, worker_ping_interval_ms).
func New(registry *workerpool.Registry, queueMgr queue.Manager, maxLiveness int, pingInterval time.Duration, log zerolog.Logger) *Handler {
	return &Handler{
		registry:  registry,
		queueMgr:  queueMgr,
		log:       log.With().Str("component", "broker_handler").Logger(),
		maxLive:   maxLiveness,
		pingEvery: pingInterval,
		timers:    make(map[*workerpool.Worker]time.Duration),
	}
}

// OnRequest implements reactor.Handler.
func (h *Handler) OnRequest(message reactor.Message, respond reactor.ResponseFunc) {
	n := notifier.NewReactorNotifier(KeyStatusNotifier, respond)

	switch message.Key {
	case KeyWorkers:
		h.onWorkerMessage(message, respond, n)
	case KeyClients:
		h.onClientMessage(message, respond, n)
	case KeyTimer:
		h.onTimer(message, respond, n)
	}
}

func (h *Handler) onWorkerMessage(message reactor.Message, respond reactor.ResponseFunc, n notifier.Notifier) {
	if len(message.Data) == 0 {
		return
	}

	if w := h.registry.FindWorkerByIdentity(message.Identity); w != nil {
		w.Liveness = h.maxLive
		h.timers[w] = 0
	}

	switch message.Data[0] {
	case "init":
		h.processWorkerInit(message, n)
	case "done":
		h.processWorkerDone(message, respond, n)
	case "ping":
		h.processWorkerPing(message, respond)
	case "progress":
		h.processWorkerProgress(message, respond)
	}
}

func (h *Handler) onClientMessage(message reactor.Message, respond reactor.ResponseFunc, n notifier.Notifier) {
	if len(message.Data) == 0 {
		return
	}
	if message.Data[0] == "eval" {
		h.processClientEval(message, respond)
	}
}

// processWorkerInit handles spec §4.6 "init".
func (h *Handler) processWorkerInit(message reactor.Message, n notifier.Notifier) {
	if len(message.Data) < 2 {
		h.log.Warn().Str("identity", message.Identity).Msg("init command without hwgroup argument, dropped")
		return
	}

	hwgroup := message.Data[1]
	advertised := headers.New()
	for _, frame := range message.Data[2:] {
		name, value, ok := headers.ParseFrame(frame)
		if !ok {
			h.log.Warn().Str("frame", frame).Msg("malformed header frame in init, dropped")
			continue
		}
		advertised.Add(name, value)
	}

	if existing := h.registry.FindWorkerByIdentity(message.Identity); existing != nil {
		if existing.HeadersEqual(advertised) {
			return
		}
		n.Error("Received two different INIT messages from the same worker (" + existing.GetDescription() + ")")
		return
	}

	w := workerpool.New(message.Identity, hwgroup, advertised, h.maxLive)
	h.registry.AddWorker(w)
	h.queueMgr.AddWorker(w, nil)
	h.timers[w] = 0

	h.log.Debug().Str("worker", w.GetDescription()).Strs("headers", message.Data[1:]).Msg("added new worker")
}

// processWorkerDone handles spec §4.6 "done".
func (h *Handler) processWorkerDone(message reactor.Message, respond reactor.ResponseFunc, n notifier.Notifier) {
	w := h.registry.FindWorkerByIdentity(message.Identity)
	if w == nil {
		h.log.Warn().Err(brokerrors.ErrUnknownWorker).Str("identity", message.Identity).Msg("'done' dropped")
		return
	}
	if len(message.Data) <= 1 {
		h.log.Error().Str("worker", w.GetDescription()).Msg("'done' without job_id, dropped")
		return
	}

	current := w.Current()
	if current == nil || message.Data[1] != current.JobID {
		h.log.Error().Str("worker", w.GetDescription()).Msg("'done' with mismatched job_id, dropped")
		return
	}

	// a non-OK result notifies and returns without completing the
	// request: it is left parked in current, matching
	// broker_handler.cpp's process_worker_done, which does the same.
	if len(message.Data) == 4 && message.Data[2] != notifier.StatusOK {
		n.JobFailed(message.Data[1], message.Data[3])
		return
	}

	n.JobDone(message.Data[1])
	if next := h.queueMgr.WorkerFinished(w); next != nil {
		respond(reactor.NewMessage(KeyWorkers, w.Identity, next.Data...))
		h.log.Debug().Str("worker", w.GetDescription()).Msg("new job sent from queue")
	} else {
		h.log.Debug().Str("worker", w.GetDescription()).Msg("worker is now free")
	}
}

// processWorkerPing handles spec §4.6 "ping".
func (h *Handler) processWorkerPing(message reactor.Message, respond reactor.ResponseFunc) {
	if h.registry.FindWorkerByIdentity(message.Identity) == nil {
		respond(reactor.NewMessage(KeyWorkers, message.Identity, "intro"))
		return
	}
	respond(reactor.NewMessage(KeyWorkers, message.Identity, "pong"))
}

// processWorkerProgress handles spec §4.6 "progress": strip the command
// frame and forward the rest to the monitor, which is connected-not-
// routed and so always addressed by the fixed MonitorIdentity.
func (h *Handler) processWorkerProgress(message reactor.Message, respond reactor.ResponseFunc) {
	if len(message.Data) < 2 {
		return
	}
	respond(reactor.NewMessage(KeyMonitor, MonitorIdentity, message.Data[1:]...))
}

// processClientEval handles spec §4.6 "eval".
func (h *Handler) processClientEval(message reactor.Message, respond reactor.ResponseFunc) {
	respond(reactor.NewMessage(KeyClients, message.Identity, "ack"))

	if len(message.Data) < 2 {
		h.log.Warn().Msg("eval without job_id, dropped")
		return
	}
	jobID := message.Data[1]

	reqHeaders := headers.New()
	i := 2
	for {
		if i >= len(message.Data) {
			h.log.Warn().Str("job_id", jobID).Msg("unexpected end of message from frontend, dropped")
			return
		}
		frame := message.Data[i]
		if frame == "" {
			i++
			break
		}
		name, value, ok := headers.ParseFrame(frame)
		if !ok {
			h.log.Warn().Str("frame", frame).Msg("malformed header frame in eval, dropped")
			i++
			continue
		}
		reqHeaders.Add(name, value)
		i++
	}
	payload := message.Data[i:]

	req := request.New(reqHeaders, jobID, append([]string{"eval", jobID}, payload...))

	w, enqueued := h.queueMgr.EnqueueRequest(req)
	if !enqueued {
		respond(reactor.NewMessage(KeyClients, message.Identity, "reject"))
		h.log.Error().Str("job_id", jobID).Msg("request rejected, no worker available")
		return
	}

	if w != nil {
		respond(reactor.NewMessage(KeyWorkers, w.Identity, req.Data...))
		h.log.Debug().Str("job_id", jobID).Str("worker", w.GetDescription()).Msg("sent to worker")
		h.registry.DeprioritizeWorker(w)
	} else {
		h.log.Debug().Str("job_id", jobID).Msg("saved to queue")
	}

	respond(reactor.NewMessage(KeyClients, message.Identity, "accept"))
}

// onTimer handles spec §4.6 "timer": liveness decay and worker
// expiration/reassignment.
func (h *Handler) onTimer(message reactor.Message, respond reactor.ResponseFunc, n notifier.Notifier) {
	if len(message.Data) == 0 {
		return
	}
	elapsedMs, err := strconv.ParseInt(message.Data[0], 10, 64)
	if err != nil {
		return
	}
	elapsed := time.Duration(elapsedMs) * time.Millisecond

	var expired []*workerpool.Worker
	for _, w := range h.registry.GetWorkers() {
		h.timers[w] += elapsed
		if h.timers[w] > h.pingEvery {
			w.Liveness--
			h.timers[w] = 0
			if w.Liveness <= 0 {
				expired = append(expired, w)
			}
		}
	}

	for _, w := range expired {
		h.log.Warn().Str("worker", w.GetDescription()).Msg("worker expired")
		desc := w.GetDescription()

		h.registry.RemoveWorker(w)
		pending := h.queueMgr.WorkerTerminated(w)
		delete(h.timers, w)

		var unassigned []*request.Request
		for _, preq := range pending {
			sw, ok := h.queueMgr.EnqueueRequest(preq)
			if !ok {
				unassigned = append(unassigned, preq)
				continue
			}
			if sw != nil {
				respond(reactor.NewMessage(KeyWorkers, sw.Identity, preq.Data...))
			}
		}

		for _, preq := range unassigned {
			n.RejectedJob(preq.JobID, "Worker "+desc+" dieded")
		}
	}
}

var _ reactor.Handler = (*Handler)(nil)
