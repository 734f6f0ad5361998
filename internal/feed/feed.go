// Package feed streams tick snapshots to HTTP clients as server-sent events.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/r3labs/sse/v2"

	"github.com/signalsfoundry/ride-network-sim/internal/logging"
	"github.com/signalsfoundry/ride-network-sim/internal/view"
)

// StreamSnapshot is the stream carrying one JSON view.Snapshot per tick.
// Clients subscribe with GET /events?stream=snapshot.
const StreamSnapshot = "snapshot"

// Server fans snapshots out to SSE subscribers.
type Server struct {
	s   *sse.Server
	log logging.Logger
}

// NewServer creates the server with its snapshot stream ready.
func NewServer(log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	s := &Server{s: sse.New(), log: log}
	s.s.CreateStream(StreamSnapshot)
	return s
}

// Publish sends snap to every subscriber. A full stream buffer drops the
// event rather than blocking the tick.
func (s *Server) Publish(ctx context.Context, snap view.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if !s.s.TryPublish(StreamSnapshot, &sse.Event{Data: data}) {
		s.log.Warn(ctx, "snapshot dropped", logging.Int("tick", snap.Tick))
	}
	return nil
}

// ServeHTTP subscribes the client to the stream named by the stream query
// parameter. A missing or unknown stream is a bad request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stream := r.URL.Query().Get("stream")
	if stream == "" {
		http.Error(w, "missing stream parameter", http.StatusBadRequest)
		return
	}
	if !s.s.StreamExists(stream) {
		http.Error(w, fmt.Sprintf("unknown stream %q", stream), http.StatusBadRequest)
		return
	}
	s.s.ServeHTTP(w, r)
}

// Close ends every subscription.
func (s *Server) Close() {
	s.s.Close()
}
