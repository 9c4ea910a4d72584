package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/clusterhealth/copilot/internal/assessment"
	"github.com/clusterhealth/copilot/internal/healthstate"
	"github.com/clusterhealth/copilot/internal/signal"
)

// errorBody is the structured body returned on store unavailability
// and other server-side failures, per §7.
type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, err error) {
	if s.Logger != nil {
		s.Logger.Error(msg, zap.Error(err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

// currentOrIdleState resolves the state to report: the stored
// assessment's state, unless the latest metric snapshot satisfies the
// idle detector, in which case Happy always overrides it (Scenario D).
// Returns the resolved state plus the stored assessment, so callers
// can still surface the rest of its fields.
func (s *Server) currentOrIdleState(r *http.Request) (signal.HealthState, *assessment.Assessment, error) {
	latest, err := s.Assessments.Latest(r.Context())
	if err != nil {
		return "", nil, err
	}

	state := signal.Happy
	if latest != nil {
		state = latest.State
	}

	snapshots, err := s.Snapshots.Recent(r.Context(), 1)
	if err != nil {
		return "", nil, err
	}
	if len(snapshots) > 0 && healthstate.IsIdle(snapshots[0].Primary) {
		state = signal.Happy
	}
	return state, latest, nil
}

// statusResponse is the body for GET /status.
type statusResponse struct {
	State     signal.HealthState `json:"state"`
	Timestamp string             `json:"timestamp,omitempty"`
	Trigger   assessment.Trigger `json:"trigger,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state, latest, err := s.currentOrIdleState(r)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "state store unavailable", err)
		return
	}
	resp := statusResponse{State: state}
	if latest != nil {
		resp.Timestamp = latest.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00")
		resp.Trigger = latest.Trigger
	}
	writeJSON(w, resp)
}

// serviceStatus is one service's contribution to GET /status/services.
type serviceStatus struct {
	Service string             `json:"service"`
	State   signal.HealthState `json:"state"`
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	state, _, err := s.currentOrIdleState(r)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "state store unavailable", err)
		return
	}

	services := []string{"frontend", "history", "matching", "worker", "persistence"}
	out := make([]serviceStatus, 0, len(services))
	for _, name := range services {
		out = append(out, serviceStatus{Service: name, State: state})
	}
	writeJSON(w, out)
}

func (s *Server) handleIssues(w http.ResponseWriter, r *http.Request) {
	_, latest, err := s.currentOrIdleState(r)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "state store unavailable", err)
		return
	}
	if latest == nil {
		writeJSON(w, []assessment.Issue{})
		return
	}
	writeJSON(w, latest.Issues)
}

// summaryResponse is the body for GET /status/summary.
type summaryResponse struct {
	State   signal.HealthState `json:"state"`
	Summary string             `json:"summary"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	state, latest, err := s.currentOrIdleState(r)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "state store unavailable", err)
		return
	}
	resp := summaryResponse{State: state}
	if latest != nil {
		resp.Summary = latest.Summary
	}
	writeJSON(w, resp)
}

// timelineEntry is one entry in GET /status/timeline.
type timelineEntry struct {
	Timestamp string             `json:"timestamp"`
	State     signal.HealthState `json:"state"`
	Trigger   assessment.Trigger `json:"trigger"`
	Summary   string             `json:"summary"`
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	recent, err := s.Assessments.Recent(r.Context(), s.TimelineLimit)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "state store unavailable", err)
		return
	}

	out := make([]timelineEntry, 0, len(recent))
	for _, a := range recent {
		out = append(out, timelineEntry{
			Timestamp: a.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
			State:     a.State,
			Trigger:   a.Trigger,
			Summary:   a.Summary,
		})
	}
	writeJSON(w, out)
}
