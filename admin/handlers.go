package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/storekit/backstop/breaker"
	"github.com/storekit/backstop/health"
	"github.com/storekit/backstop/queue"
)

// circuitResponse is the JSON view of a circuit snapshot.
type circuitResponse struct {
	Service             string     `json:"service"`
	State               string     `json:"state"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
	OpenedAt            *time.Time `json:"opened_at,omitempty"`
	RetryAfterMs        int64      `json:"retry_after_ms,omitempty"`
}

func circuitView(snap breaker.Snapshot) circuitResponse {
	return circuitResponse{
		Service:             snap.Service,
		State:               snap.State.String(),
		ConsecutiveFailures: snap.ConsecutiveFailures,
		LastFailureAt:       snap.LastFailureAt,
		OpenedAt:            snap.OpenedAt,
		RetryAfterMs:        snap.RetryAfter.Milliseconds(),
	}
}

// actionRequest is the body of POST /admin/queues/{service} and
// POST /admin/circuits/{service}.
type actionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
}

// queueActionResponse acknowledges a queue control action with the
// post-action snapshot.
type queueActionResponse struct {
	Action  string         `json:"action"`
	Cleared int            `json:"cleared,omitempty"`
	Queue   queue.Snapshot `json:"queue"`
}

// circuitActionResponse acknowledges a circuit control action with the
// post-action state.
type circuitActionResponse struct {
	Action  string          `json:"action"`
	Circuit circuitResponse `json:"circuit"`
}

func (s *Server) handleListQueues(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queues.AllStatuses())
}

func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	service := r.PathValue("service")
	writeJSON(w, http.StatusOK, s.queues.Status(service))
}

func (s *Server) handleQueueAction(w http.ResponseWriter, r *http.Request) {
	service := r.PathValue("service")

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp := queueActionResponse{Action: req.Action}
	switch req.Action {
	case "pause":
		s.queues.Pause(service)
	case "resume":
		s.queues.Resume(service)
	case "clear":
		reason := req.Reason
		if reason == "" {
			reason = "cleared by operator"
		}
		resp.Cleared = s.queues.Clear(service, reason)
	default:
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("unknown action %q, want pause, resume or clear", req.Action))
		return
	}
	resp.Queue = s.queues.Status(service)

	s.logger.Info("queue action",
		zap.String("service", service),
		zap.String("action", req.Action),
		zap.String("reason", req.Reason))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCircuits(w http.ResponseWriter, r *http.Request) {
	statuses := s.breakers.AllStatuses()
	out := make(map[string]circuitResponse, len(statuses))
	for service, snap := range statuses {
		out[service] = circuitView(snap)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCircuit(w http.ResponseWriter, r *http.Request) {
	service := r.PathValue("service")
	writeJSON(w, http.StatusOK, circuitView(s.breakers.Status(service)))
}

func (s *Server) handleCircuitAction(w http.ResponseWriter, r *http.Request) {
	service := r.PathValue("service")

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Action {
	case "trip":
		reason := req.Reason
		if reason == "" {
			reason = "tripped by operator"
		}
		s.breakers.Trip(r.Context(), service, reason)
	case "reset":
		s.breakers.Reset(service)
	default:
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("unknown action %q, want trip or reset", req.Action))
		return
	}

	s.logger.Info("circuit action",
		zap.String("service", service),
		zap.String("action", req.Action),
		zap.String("reason", req.Reason))
	writeJSON(w, http.StatusOK, circuitActionResponse{
		Action:  req.Action,
		Circuit: circuitView(s.breakers.Status(service)),
	})
}

// routes builds the mux: authenticated control surface under /admin,
// open probe and metrics endpoints beside it.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /admin/queues", s.auth.requireAuth(s.handleListQueues))
	mux.HandleFunc("GET /admin/queues/{service}", s.auth.requireAuth(s.handleGetQueue))
	mux.HandleFunc("POST /admin/queues/{service}", s.auth.requireAuth(s.handleQueueAction))

	mux.HandleFunc("GET /admin/circuits", s.auth.requireAuth(s.handleListCircuits))
	mux.HandleFunc("GET /admin/circuits/{service}", s.auth.requireAuth(s.handleGetCircuit))
	mux.HandleFunc("POST /admin/circuits/{service}", s.auth.requireAuth(s.handleCircuitAction))

	mux.Handle("GET /metrics", promhttp.Handler())

	agg := health.NewAggregator()
	agg.Register("circuits", health.NewBreakerChecker(s.breakers))
	agg.Register("queues", health.NewQueueChecker(s.queues))
	health.RegisterHandlers(mux, agg)

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
