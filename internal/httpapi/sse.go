package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/CaseMark/multi-language-processor/internal/jobs"
)

type streamFrame struct {
	Jobs      []*jobs.ProcessingJob `json:"jobs"`
	Documents int                   `json:"documents"`
}

func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Document count rides along so the client can refresh its listing
	// when a job finishes without polling a second endpoint.
	send := func() bool {
		payload, err := json.Marshal(streamFrame{
			Jobs:      s.queue.List(),
			Documents: s.corpus.Len(),
		})
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send() {
		return
	}

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if !send() {
				return
			}
		}
	}
}
