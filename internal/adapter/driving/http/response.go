package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/prnotify/internal/application"
	"github.com/ericfisherdev/prnotify/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// ErrorResponse is the standard error response body. Field is set for
// validation failures.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// PRResponse is the JSON representation of a pull request.
type PRResponse struct {
	Key        string `json:"key"`
	Number     int    `json:"number"`
	Repository string `json:"repository"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	URL        string `json:"url"`
}

// CycleResponse is the JSON representation of a completed poll cycle.
type CycleResponse struct {
	ID         string       `json:"id"`
	StartedAt  string       `json:"started_at"`
	DurationMS int64        `json:"duration_ms"`
	Fetched    int          `json:"fetched"`
	Matched    int          `json:"matched"`
	NewlySeen  int          `json:"newly_seen"`
	Suppressed bool         `json:"suppressed"`
	Reason     string       `json:"reason,omitempty"`
	Notified   []PRResponse `json:"notified"`
}

// StatusResponse is the JSON representation of the daemon state the tray
// renders.
type StatusResponse struct {
	Tray           string         `json:"tray"`
	Tooltip        string         `json:"tooltip"`
	Phase          string         `json:"phase"`
	Paused         bool           `json:"paused"`
	Configured     bool           `json:"configured"`
	CanCheckNow    bool           `json:"can_check_now"`
	PresenceActive bool           `json:"presence_active"`
	SeenCount      int            `json:"seen_count"`
	LastError      string         `json:"last_error,omitempty"`
	SnoozeUntil    string         `json:"snooze_until,omitempty"`
	LastCycle      *CycleResponse `json:"last_cycle,omitempty"`
}

// TokenStatusResponse reports whether a token is stored.
type TokenStatusResponse struct {
	Configured bool `json:"configured"`
}

// TokenRequest is the JSON body for the token save and test endpoints.
type TokenRequest struct {
	Token string `json:"token"`
}

// ConnectionResponse is the outcome of a token test.
type ConnectionResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message"`
}

// SnoozeRequest is the JSON body for the snooze endpoint. Duration uses Go
// duration syntax ("30m", "2h").
type SnoozeRequest struct {
	Duration string `json:"duration"`
}

// SnoozeResponse reports the snooze deadline.
type SnoozeResponse struct {
	SnoozeUntil string `json:"snooze_until"`
}

func toPRResponse(pr model.PullRequest) PRResponse {
	return PRResponse{
		Key:        pr.Key(),
		Number:     pr.Number,
		Repository: pr.RepoFullName,
		Title:      pr.Title,
		Author:     pr.Author,
		URL:        pr.URL,
	}
}

// NewCycleResponse converts a cycle result to its JSON representation.
func NewCycleResponse(c application.CycleResult) CycleResponse {
	notified := make([]PRResponse, 0, len(c.Notified))
	for _, pr := range c.Notified {
		notified = append(notified, toPRResponse(pr))
	}

	return CycleResponse{
		ID:         c.ID,
		StartedAt:  c.StartedAt.UTC().Format(time.RFC3339),
		DurationMS: c.Duration.Milliseconds(),
		Fetched:    c.Fetched,
		Matched:    c.Matched,
		NewlySeen:  c.NewlySeen,
		Suppressed: c.Suppressed,
		Reason:     string(c.Reason),
		Notified:   notified,
	}
}

func toStatusResponse(st application.Status, snoozeUntil time.Time) StatusResponse {
	resp := StatusResponse{
		Tray:           string(st.Tray),
		Tooltip:        st.Tooltip,
		Phase:          string(st.Phase),
		Paused:         st.Paused,
		Configured:     st.Configured,
		CanCheckNow:    st.Configured && !st.Paused,
		PresenceActive: st.PresenceActive,
		SeenCount:      st.SeenCount,
		LastError:      st.LastError,
	}
	if !snoozeUntil.IsZero() {
		resp.SnoozeUntil = snoozeUntil.UTC().Format(time.RFC3339)
	}
	if st.LastCycle != nil {
		c := NewCycleResponse(*st.LastCycle)
		resp.LastCycle = &c
	}
	return resp
}
