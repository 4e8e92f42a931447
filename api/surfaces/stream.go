package surfaces

import (
	"encoding/json"
	"fmt"
	"net/http"
	"tableside_server/api/health"
	"time"

	"github.com/MonkyMars/gecho"
)

// StreamSnapshots pushes every new snapshot of a surface as a server-sent
// event until the client goes away.
func (srm *SurfaceRoutesManager) StreamSnapshots(w http.ResponseWriter, r *http.Request) {
	s, ok := srm.surface(w, r)
	if !ok {
		return
	}

	rc := http.NewResponseController(w)
	// The stream outlives the server write timeout
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		srm.logger.Debug("Could not clear write deadline", gecho.Field("error", err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := rc.Flush(); err != nil {
		srm.logger.Error("Streaming unsupported", gecho.Field("error", err))
		return
	}

	snapshots, stop := s.Watch()
	defer stop()

	open := health.OpenStreams.WithLabelValues(s.Name())
	open.Inc()
	defer open.Dec()

	keepAlive := time.NewTicker(srm.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap := <-snapshots:
			data, err := json.Marshal(snap)
			if err != nil {
				srm.logger.Error("Failed to encode snapshot", gecho.Field("surface", s.Name()), gecho.Field("error", err))
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", snap.Version, data); err != nil {
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
