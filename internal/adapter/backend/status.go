package backend

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// StatusResponse is the JSON body returned by GET /api/v1/status.
type StatusResponse struct {
	Name          string `json:"name"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Connections   struct {
		Active int64 `json:"active"`
		Total  int64 `json:"total"`
	} `json:"connections"`
	MessagesRecv  int64 `json:"messages_recv"`
	RepliesSent   int64 `json:"replies_sent"`
	FragmentsSent int64 `json:"fragments_sent"`
	FeedbackTotal int64 `json:"feedback_total"`
}

// Metrics tracks counters for the status API.
type Metrics struct {
	ConnectionsActive atomic.Int64
	ConnectionsTotal  atomic.Int64
	MessagesRecv      atomic.Int64
	RepliesSent       atomic.Int64
	FragmentsSent     atomic.Int64
	FeedbackTotal     atomic.Int64
}

// statusHandler returns an HTTP handler for GET /api/v1/status.
func statusHandler(startTime time.Time, metrics *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var resp StatusResponse
		resp.Name = "chatwidget-mock-backend"
		resp.UptimeSeconds = int64(time.Since(startTime).Seconds())
		resp.Connections.Active = metrics.ConnectionsActive.Load()
		resp.Connections.Total = metrics.ConnectionsTotal.Load()
		resp.MessagesRecv = metrics.MessagesRecv.Load()
		resp.RepliesSent = metrics.RepliesSent.Load()
		resp.FragmentsSent = metrics.FragmentsSent.Load()
		resp.FeedbackTotal = metrics.FeedbackTotal.Load()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}
