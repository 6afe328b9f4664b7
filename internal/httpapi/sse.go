package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lingualens/lingualens/internal/explain"
	"github.com/lingualens/lingualens/internal/orchestrator"
)

type sseEvent struct {
	name    string
	payload any
	last    bool
}

// sseNotifier forwards orchestrator notifications to one SSE connection.
// Sends never block; events are dropped once the connection stops reading.
type sseNotifier struct {
	events chan sseEvent
}

func (n *sseNotifier) push(event sseEvent) {
	select {
	case n.events <- event:
	default:
	}
}

func (n *sseNotifier) QuickReady(explain.QuickPayload, bool) {}

func (n *sseNotifier) DeepProgress(requestID string, partial explain.DeepPayload) {
	n.push(sseEvent{name: "progress", payload: partial})
}

func (n *sseNotifier) DeepReady(payload explain.DeepPayload, cached bool) {
	n.push(sseEvent{name: "complete", payload: payload, last: true})
}

func (n *sseNotifier) RequestFailed(requestID string, mode explain.Mode, reason string) {
	n.push(sseEvent{name: "error", payload: map[string]string{"reason": reason}, last: true})
}

func (s *Server) handleExplainDeep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	req, ok := decodeExplainRequest(w, r, explain.ModeDeep)
	if !ok {
		return
	}
	s.applyHeaderCredentials(r)
	s.explainer.Supersede(req.RequestID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	notifier := &sseNotifier{events: make(chan sseEvent, 64)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.explainer.ExplainDeep(r.Context(), req, orchestrator.WithCallNotifier(notifier))
	}()

	send := func(event sseEvent) bool {
		payload, err := json.Marshal(event.payload)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.name, payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	for {
		select {
		case <-r.Context().Done():
			<-done
			return
		case event := <-notifier.events:
			if !send(event) || event.last {
				<-done
				return
			}
		case <-done:
			// Superseded or silent completion: flush whatever is buffered
			// and close the stream instead of holding the connection.
			for {
				select {
				case event := <-notifier.events:
					if !send(event) || event.last {
						return
					}
				default:
					return
				}
			}
		}
	}
}
