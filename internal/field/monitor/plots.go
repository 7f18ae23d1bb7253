package monitor

import (
	"fmt"
	"image/color"
	"net/http"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/jwbonner/advantagescope/internal/httputil"
)

// seriesColors cycles across trail and trajectory lines.
var seriesColors = []color.Color{
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	color.RGBA{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
}

func seriesColor(i int) color.Color {
	return seriesColors[i%len(seriesColors)]
}

// handleTrailsPlot renders robot trails and logged trajectories as a PNG
// line plot. Trails are drawn solid; trajectories dashed.
func (s *Server) handleTrailsPlot(w http.ResponseWriter, r *http.Request) {
	frame := s.source.LatestFrame()
	if frame == nil {
		httputil.NotFound(w, "no frame rendered yet")
		return
	}

	p := plot.New()
	p.Title.Text = "Robot Trails"
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	for i, robot := range frame.Robots {
		pts := make(plotter.XYs, 0, len(robot.Trail)+1)
		for _, tp := range robot.Trail {
			pts = append(pts, plotter.XY{X: tp.X, Y: tp.Y})
		}
		pts = append(pts, plotter.XY{X: robot.Pose.X, Y: robot.Pose.Y})

		line, err := plotter.NewLine(pts)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("trail line: %v", err))
			return
		}
		line.Color = seriesColor(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("robot %d", i), line)
	}

	for i, traj := range frame.Trajectories {
		pts := make(plotter.XYs, 0, len(traj))
		for _, pt := range traj {
			pts = append(pts, plotter.XY{X: pt.X, Y: pt.Y})
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("trajectory line: %v", err))
			return
		}
		line.Color = seriesColor(len(frame.Robots) + i)
		line.Width = vg.Points(1)
		line.Dashes = []vg.Length{vg.Points(3), vg.Points(2)}
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("trajectory %d", i), line)
	}

	p.Legend.Top = true
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	// Pin the axes to the field outline when a field is loaded so the
	// aspect ratio matches the carpet.
	if frame.FieldWidth > 0 && frame.FieldHeight > 0 {
		p.X.Min, p.X.Max = -frame.FieldWidth/2, frame.FieldWidth/2
		p.Y.Min, p.Y.Max = -frame.FieldHeight/2, frame.FieldHeight/2
	}

	s.writePNG(w, p, 10*vg.Inch, 5*vg.Inch)
}

// handleHeatmapPlot renders the binned occupancy heatmap as a PNG.
func (s *Server) handleHeatmapPlot(w http.ResponseWriter, r *http.Request) {
	frame := s.source.LatestFrame()
	if frame == nil {
		httputil.NotFound(w, "no frame rendered yet")
		return
	}

	grid := newHeatGrid(frame.Heatmap, frame.FieldWidth, frame.FieldHeight)

	p := plot.New()
	p.Title.Text = "Occupancy Heatmap"
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	hm := plotter.NewHeatMap(grid, palette.Heat(12, 1))
	p.Add(hm)

	s.writePNG(w, p, 10*vg.Inch, 5*vg.Inch)
}

func (s *Server) writePNG(w http.ResponseWriter, p *plot.Plot, width, height vg.Length) {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render plot: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := wt.WriteTo(w); err != nil {
		s.log.Debugf("write plot: %v", err)
	}
}
