package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/anticine/anticine/internal/events"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 1000
	streamBuffer      = 64
)

// queryInt extracts an optional integer from the query string.
func queryInt(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

// requireEvents wraps a handler and returns 503 if the event bus is not
// configured.
func (s *Server) requireEvents(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Events == nil || s.deps.Events.Log() == nil {
			writeError(w, http.StatusServiceUnavailable, "event log is not configured")
			return
		}
		next(w, r)
	}
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultEventLimit)
	offset := queryInt(r, "offset", 0)
	if limit < 0 || offset < 0 {
		writeError(w, http.StatusBadRequest, "limit and offset must be non-negative")
		return
	}
	limit = min(limit, maxEventLimit)

	items, total := s.deps.Events.Log().Recent(limit, offset)
	writeJSON(w, http.StatusOK, eventsResponse{
		errorResponse: ok(),
		Events:        nonNil(items),
		Total:         total,
		Limit:         limit,
		Offset:        offset,
	})
}

func (s *Server) sessionEvents(w http.ResponseWriter, r *http.Request) {
	items := s.deps.Events.Log().ForEntity("session", r.PathValue("id"))
	writeJSON(w, http.StatusOK, eventsResponse{
		errorResponse: ok(),
		Events:        nonNil(items),
		Total:         len(items),
		Limit:         len(items),
	})
}

// streamEvents sends every bus event as a server-sent event until the
// client goes away or the bus closes. ?type= narrows the stream to one
// event type.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	var ch <-chan events.Event
	if typ := r.URL.Query().Get("type"); typ != "" {
		ch = s.deps.Events.Subscribe(typ, streamBuffer)
	} else {
		ch = s.deps.Events.SubscribeAll(streamBuffer)
	}
	defer s.deps.Events.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.log.Warn("event stream not supported", "error", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case e, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				s.log.Error("encode event", "type", e.EventType(), "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.EventType(), data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func nonNil(items []events.RawEvent) []events.RawEvent {
	if items == nil {
		return []events.RawEvent{}
	}
	return items
}
