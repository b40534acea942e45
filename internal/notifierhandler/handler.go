// Package notifierhandler implements the asynchronous status-notifier
// handler: it consumes flat key/value messages emitted by
// notifier.ReactorNotifier and performs the actual HTTP POST to the
// frontend, off the reactor's own goroutine. Grounded on the original
// status_notifier_handler::on_request (original_source/src/handlers/
// status_notifier_handler.cpp): build a URL of config.address[/type[/id]]
// and POST the remaining key/value pairs as form data.
package notifierhandler

import (
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/cyw0ng95/recodex-broker/internal/notifier"
	"github.com/cyw0ng95/recodex-broker/internal/reactor"
)

// Config configures the frontend endpoint this handler posts to.
type Config struct {
	Address  string
	Port     uint16
	Username string
	Password string
}

// Handler is a reactor.Handler meant to be registered with
// Reactor.AddAsyncHandler, so the HTTP round trip it performs never
// blocks dispatch of worker/client/timer messages.
type Handler struct {
	client  *resty.Client
	baseURL string
	log     zerolog.Logger
}

// New builds a notifier Handler.
func New(cfg Config, log zerolog.Logger) *Handler {
	client := resty.New()
	if cfg.Username != "" {
		client.SetBasicAuth(cfg.Username, cfg.Password)
	}
	baseURL := "http://" + cfg.Address
	if cfg.Port != 0 {
		baseURL += ":" + strconv.Itoa(int(cfg.Port))
	}
	return &Handler{client: client, baseURL: baseURL, log: log.With().Str("component", "status_notifier_handler").Logger()}
}

// OnRequest implements reactor.Handler. message.Data is a flat sequence
// of key/value pairs; "type" and "id" route the request, everything else
// becomes POST form data.
func (h *Handler) OnRequest(message reactor.Message, _ reactor.ResponseFunc) {
	var typ, id string
	fields := make(map[string]string)

	data := message.Data
	for i := 0; i+1 < len(data); i += 2 {
		key, value := data[i], data[i+1]
		switch key {
		case notifier.FieldType:
			typ = value
		case notifier.FieldID:
			id = value
		default:
			fields[key] = value
		}
	}

	var route strings.Builder
	route.WriteString(h.baseURL)
	if typ != "" {
		route.WriteByte('/')
		route.WriteString(typ)
	}
	if id != "" {
		route.WriteByte('/')
		route.WriteString(id)
	}

	resp, err := h.client.R().SetFormData(fields).Post(route.String())
	if err != nil {
		h.log.Error().Err(err).Str("route", route.String()).Msg("status notifier request failed")
		return
	}
	if resp.IsError() {
		h.log.Error().Str("route", route.String()).Int("status", resp.StatusCode()).Msg("status notifier rejected by frontend")
	}
}

var _ reactor.Handler = (*Handler)(nil)
