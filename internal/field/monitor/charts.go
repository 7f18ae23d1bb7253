package monitor

import (
	"bytes"
	"fmt"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/jwbonner/advantagescope/internal/httputil"
)

// echartsAssetsPrefix points generated chart pages at the public echarts
// asset bundle so they render without a local static file server.
const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// viridisRange is the colour ramp used by the chart visual maps.
var viridisRange = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// handleHeatmapChart renders a scatter plot (HTML) of the occupancy heatmap
// using go-echarts. Samples are binned into grid cells; the visual map colours
// each cell by visit count.
func (s *Server) handleHeatmapChart(w http.ResponseWriter, r *http.Request) {
	frame := s.source.LatestFrame()
	if frame == nil {
		httputil.NotFound(w, "no frame rendered yet")
		return
	}

	grid := newHeatGrid(frame.Heatmap, frame.FieldWidth, frame.FieldHeight)
	cols, rows := grid.Dims()

	data := make([]opts.ScatterData, 0, len(frame.Heatmap))
	maxAbs := 0.0
	maxCount := 0.0
	for c := 0; c < cols; c++ {
		for row := 0; row < rows; row++ {
			count := grid.Z(c, row)
			if count == 0 {
				continue
			}
			x := grid.X(c)
			y := grid.Y(row)
			if math.Abs(x) > maxAbs {
				maxAbs = math.Abs(x)
			}
			if math.Abs(y) > maxAbs {
				maxAbs = math.Abs(y)
			}
			if count > maxCount {
				maxCount = count
			}
			data = append(data, opts.ScatterData{Value: []interface{}{x, y, count}})
		}
	}

	// Add a small padding so points at the edges are visible
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	if maxCount == 0 {
		maxCount = 1
	}

	// Force a square plot by using equal width/height and symmetric axis ranges
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Occupancy Heatmap", Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Occupancy Heatmap", Subtitle: fmt.Sprintf("frame=%d samples=%d cells=%d", frame.Seq, len(frame.Heatmap), len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxCount),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisRange},
		}),
	)

	scatter.AddSeries("occupancy", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleTrailsChart renders a scatter plot (HTML) of robot trails using
// go-echarts, one series per robot, coloured by sample time.
func (s *Server) handleTrailsChart(w http.ResponseWriter, r *http.Request) {
	frame := s.source.LatestFrame()
	if frame == nil {
		httputil.NotFound(w, "no frame rendered yet")
		return
	}

	maxAbs := 0.0
	minTime := math.Inf(1)
	maxTime := math.Inf(-1)
	series := make([][]opts.ScatterData, len(frame.Robots))
	for i, robot := range frame.Robots {
		data := make([]opts.ScatterData, 0, len(robot.Trail)+1)
		for _, tp := range robot.Trail {
			if math.Abs(tp.X) > maxAbs {
				maxAbs = math.Abs(tp.X)
			}
			if math.Abs(tp.Y) > maxAbs {
				maxAbs = math.Abs(tp.Y)
			}
			if tp.Time < minTime {
				minTime = tp.Time
			}
			if tp.Time > maxTime {
				maxTime = tp.Time
			}
			data = append(data, opts.ScatterData{Value: []interface{}{tp.X, tp.Y, tp.Time}})
		}
		if math.Abs(robot.Pose.X) > maxAbs {
			maxAbs = math.Abs(robot.Pose.X)
		}
		if math.Abs(robot.Pose.Y) > maxAbs {
			maxAbs = math.Abs(robot.Pose.Y)
		}
		data = append(data, opts.ScatterData{Value: []interface{}{robot.Pose.X, robot.Pose.Y, frame.Time}})
		series[i] = data
	}
	if frame.Time < minTime {
		minTime = frame.Time
	}
	if frame.Time > maxTime {
		maxTime = frame.Time
	}
	if maxTime <= minTime {
		maxTime = minTime + 1
	}

	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Robot Trails", Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Robot Trails", Subtitle: fmt.Sprintf("frame=%d robots=%d t=%.2fs", frame.Seq, len(frame.Robots), frame.Time)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(minTime),
			Max:        float32(maxTime),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisRange},
		}),
	)

	for i, data := range series {
		scatter.AddSeries(fmt.Sprintf("robot %d", i), data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	}

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
