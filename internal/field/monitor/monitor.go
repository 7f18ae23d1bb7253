// Package monitor serves diagnostic views of the render loop over HTTP:
// an HTML dashboard, interactive charts, rendered plot images, and a JSON
// stats endpoint. It reads completed frames only and never blocks the
// renderer.
package monitor

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/jwbonner/advantagescope/internal/applog"
	"github.com/jwbonner/advantagescope/internal/field"
	"github.com/jwbonner/advantagescope/internal/httputil"
	"github.com/jwbonner/advantagescope/internal/version"
)

// DataSource supplies the monitor with rendered output. The renderer
// implements it; tests substitute fixtures.
type DataSource interface {
	LatestFrame() *field.SceneFrame
	Stats() field.Stats
}

// Server handles the HTTP interface for render loop diagnostics.
type Server struct {
	address string
	source  DataSource
	log     *applog.Logger
	server  *http.Server
}

// ServerConfig contains configuration options for the monitor server.
type ServerConfig struct {
	Address string
	Source  DataSource
	Log     *applog.Logger
}

// NewServer creates a monitor server with the provided configuration.
func NewServer(config ServerConfig) *Server {
	s := &Server{
		address: config.Address,
		source:  config.Source,
		log:     config.Log,
	}
	if s.log == nil {
		s.log = applog.Default()
	}

	s.server = &http.Server{
		Addr:    s.address,
		Handler: s.setupRoutes(),
	}

	return s
}

// Start begins the HTTP server in a goroutine and handles graceful shutdown
// when the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		s.log.Infof("monitor server listening on %s", s.address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("monitor server: %v", err)
		}
	}()

	<-ctx.Done()
	s.log.Infof("shutting down monitor server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.Warnf("monitor server shutdown: %v", err)
		// Force close if graceful shutdown fails
		if err := s.server.Close(); err != nil {
			s.log.Warnf("monitor server close: %v", err)
		}
	}

	return nil
}

// setupRoutes configures the HTTP routes and handlers.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/monitor", s.handleDashboard)
	mux.HandleFunc("/monitor/stats", s.handleStats)
	mux.HandleFunc("/monitor/heatmap", s.handleHeatmapChart)
	mux.HandleFunc("/monitor/trails", s.handleTrailsChart)
	mux.HandleFunc("/monitor/trails.png", s.handleTrailsPlot)
	mux.HandleFunc("/monitor/heatmap.png", s.handleHeatmapPlot)
	mux.HandleFunc("/monitor/heatmap.webp", s.handleHeatmapRaster)

	return mux
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "fieldview", "version": "%s", "timestamp": "%s"}`,
		version.Version, time.Now().UTC().Format(time.RFC3339))
}

// statsResponse augments the render counters with the identity of the most
// recent frame so dashboards can tell a stalled loop from an idle one.
type statsResponse struct {
	field.Stats
	FrameSeq  uint64  `json:"frame_seq"`
	FrameTime float64 `json:"frame_time"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	resp := statsResponse{Stats: s.source.Stats()}
	if frame := s.source.LatestFrame(); frame != nil {
		resp.FrameSeq = frame.Seq
		resp.FrameTime = frame.Time
	}
	httputil.WriteJSONOK(w, resp)
}

// handleDashboard renders a simple dashboard with iframes to the charts and
// plot images.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	fieldID := "(none)"
	robotID := "(none)"
	if frame := s.source.LatestFrame(); frame != nil {
		if frame.FieldID != "" {
			fieldID = frame.FieldID
		}
		if frame.RobotID != "" {
			robotID = frame.RobotID
		}
	}

	doc := fmt.Sprintf(dashboardHTML, html.EscapeString(fieldID), html.EscapeString(robotID))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(doc))
}

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
<title>fieldview monitor</title>
<style>
body { background: #1b1b1f; color: #d4d4d8; font-family: sans-serif; margin: 1em; }
iframe { border: 1px solid #3a3a40; background: #101014; }
img { border: 1px solid #3a3a40; background: #fff; margin-right: 8px; }
a { color: #7ab8ff; }
code { color: #9ad1a5; }
</style>
</head>
<body>
<h1>fieldview monitor</h1>
<p>field <code>%s</code> &middot; robot <code>%s</code> &middot; <a href="/monitor/stats">stats</a></p>
<div>
<iframe src="/monitor/heatmap" width="920" height="940"></iframe>
<iframe src="/monitor/trails" width="920" height="940"></iframe>
</div>
<div>
<img src="/monitor/trails.png" alt="robot trails" height="420">
<img src="/monitor/heatmap.png" alt="occupancy heatmap" height="420">
<img src="/monitor/heatmap.webp" alt="occupancy raster" height="420">
</div>
</body>
</html>
`
