package notifier

import (
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// HTTPConfig configures the direct HTTP status notifier.
type HTTPConfig struct {
	Address  string
	Port     uint16
	Username string
	Password string
}

// HTTPNotifier posts status events directly to the frontend's REST API,
// built with the same resty client-construction style as
// pkg/cve/remote/fetcher.go and pkg/repo/cve.go.
type HTTPNotifier struct {
	client  *resty.Client
	baseURL string
	log     zerolog.Logger
}

// NewHTTPNotifier builds a notifier posting to http://address:port.
func NewHTTPNotifier(cfg HTTPConfig, log zerolog.Logger) *HTTPNotifier {
	client := resty.New()
	if cfg.Username != "" {
		client.SetBasicAuth(cfg.Username, cfg.Password)
	}
	baseURL := "http://" + cfg.Address
	if cfg.Port != 0 {
		baseURL += ":" + strconv.Itoa(int(cfg.Port))
	}
	return &HTTPNotifier{client: client, baseURL: baseURL, log: log.With().Str("component", "http_notifier").Logger()}
}

func (n *HTTPNotifier) post(route string, fields map[string]string) {
	resp, err := n.client.R().SetFormData(fields).Post(n.baseURL + route)
	if err != nil {
		n.log.Error().Err(err).Str("route", route).Msg("status notifier request failed")
		return
	}
	if resp.IsError() {
		n.log.Error().Str("route", route).Int("status", resp.StatusCode()).Msg("status notifier rejected by frontend")
	}
}

// Error posts {"message": desc} to /error.
func (n *HTTPNotifier) Error(desc string) {
	n.post("/error", map[string]string{"message": desc})
}

// JobDone posts {"status": "OK"} to /job-status/{jobID}.
func (n *HTTPNotifier) JobDone(jobID string) {
	n.post("/job-status/"+jobID, map[string]string{"status": "OK"})
}

// JobFailed posts {"status": "FAILED", "message": desc} to /job-status/{jobID}.
func (n *HTTPNotifier) JobFailed(jobID, desc string) {
	n.post("/job-status/"+jobID, map[string]string{"status": "FAILED", "message": desc})
}

// RejectedJob reports a single unassignable job the same way JobFailed does.
func (n *HTTPNotifier) RejectedJob(jobID, desc string) {
	n.JobFailed(jobID, desc)
}

// RejectedJobs reports each unassignable job in turn.
func (n *HTTPNotifier) RejectedJobs(jobIDs []string, desc string) {
	for _, id := range jobIDs {
		n.RejectedJob(id, desc)
	}
}
