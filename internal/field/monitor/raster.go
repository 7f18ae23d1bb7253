package monitor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"
	"net/http"
	"sort"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/stat"

	"github.com/jwbonner/advantagescope/internal/field"
	"github.com/jwbonner/advantagescope/internal/httputil"
)

const (
	// heatCellMeters is the bin size for occupancy counting. It matches the
	// resampling cadence of the heatmap extraction, so one sample advances
	// one cell at typical speeds.
	heatCellMeters = 0.1

	// rasterScale is the upscale factor applied before WebP encoding.
	rasterScale = 8

	// rasterClampQuantile bounds the colour ramp below the busiest cells so
	// a parked robot does not wash out the rest of the field.
	rasterClampQuantile = 0.98
)

// heatGrid bins heatmap samples into fixed square cells. It implements
// plotter.GridXYZ for the PNG heatmap and backs the chart and raster
// handlers. Rows run south to north, columns west to east.
type heatGrid struct {
	minX, minY float64
	cols, rows int
	counts     []float64
}

// newHeatGrid bins points over the field outline when dimensions are known,
// otherwise over the extent of the samples with one meter of margin.
func newHeatGrid(points []field.TimedPoint, width, height float64) *heatGrid {
	minX, minY := -width/2, -height/2
	maxX, maxY := width/2, height/2
	if width <= 0 || height <= 0 {
		minX, minY = math.Inf(1), math.Inf(1)
		maxX, maxY = math.Inf(-1), math.Inf(-1)
		for _, p := range points {
			minX = math.Min(minX, p.X)
			minY = math.Min(minY, p.Y)
			maxX = math.Max(maxX, p.X)
			maxY = math.Max(maxY, p.Y)
		}
		if len(points) == 0 {
			minX, minY, maxX, maxY = -1, -1, 1, 1
		}
		minX, minY = minX-1, minY-1
		maxX, maxY = maxX+1, maxY+1
	}

	g := &heatGrid{
		minX: minX,
		minY: minY,
		cols: int(math.Ceil((maxX - minX) / heatCellMeters)),
		rows: int(math.Ceil((maxY - minY) / heatCellMeters)),
	}
	if g.cols < 1 {
		g.cols = 1
	}
	if g.rows < 1 {
		g.rows = 1
	}
	g.counts = make([]float64, g.cols*g.rows)

	for _, p := range points {
		c := int((p.X - minX) / heatCellMeters)
		r := int((p.Y - minY) / heatCellMeters)
		if c < 0 || c >= g.cols || r < 0 || r >= g.rows {
			continue
		}
		g.counts[r*g.cols+c]++
	}

	return g
}

func (g *heatGrid) Dims() (c, r int) { return g.cols, g.rows }

func (g *heatGrid) Z(c, r int) float64 { return g.counts[r*g.cols+c] }

func (g *heatGrid) X(c int) float64 { return g.minX + (float64(c)+0.5)*heatCellMeters }

func (g *heatGrid) Y(r int) float64 { return g.minY + (float64(r)+0.5)*heatCellMeters }

// clampValue returns the count at the clamp quantile across occupied cells.
// Cells at or above it map to the top of the colour ramp.
func (g *heatGrid) clampValue() float64 {
	occupied := make([]float64, 0, len(g.counts))
	for _, v := range g.counts {
		if v > 0 {
			occupied = append(occupied, v)
		}
	}
	if len(occupied) == 0 {
		return 1
	}
	sort.Float64s(occupied)
	clamp := stat.Quantile(rasterClampQuantile, stat.Empirical, occupied, nil)
	if clamp <= 0 {
		return 1
	}
	return clamp
}

// viridisStops mirrors the chart colour ramp for raster output.
var viridisStops = []color.NRGBA{
	{R: 0x44, G: 0x01, B: 0x54, A: 0xff},
	{R: 0x48, G: 0x27, B: 0x77, A: 0xff},
	{R: 0x3e, G: 0x49, B: 0x89, A: 0xff},
	{R: 0x31, G: 0x68, B: 0x8e, A: 0xff},
	{R: 0x26, G: 0x82, B: 0x8e, A: 0xff},
	{R: 0x1f, G: 0x9e, B: 0x89, A: 0xff},
	{R: 0x35, G: 0xb7, B: 0x79, A: 0xff},
	{R: 0x6e, G: 0xce, B: 0x58, A: 0xff},
	{R: 0xb5, G: 0xde, B: 0x2b, A: 0xff},
	{R: 0xfd, G: 0xe7, B: 0x25, A: 0xff},
}

// viridisColor interpolates the ramp at t in [0, 1].
func viridisColor(t float64) color.NRGBA {
	if t <= 0 {
		return viridisStops[0]
	}
	if t >= 1 {
		return viridisStops[len(viridisStops)-1]
	}
	pos := t * float64(len(viridisStops)-1)
	i := int(pos)
	f := pos - float64(i)
	a, b := viridisStops[i], viridisStops[i+1]
	lerp := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*f + 0.5)
	}
	return color.NRGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 0xff}
}

// handleHeatmapRaster encodes the binned occupancy grid as a WebP image,
// one pixel per cell upscaled with Catmull-Rom filtering.
func (s *Server) handleHeatmapRaster(w http.ResponseWriter, r *http.Request) {
	frame := s.source.LatestFrame()
	if frame == nil {
		httputil.NotFound(w, "no frame rendered yet")
		return
	}

	grid := newHeatGrid(frame.Heatmap, frame.FieldWidth, frame.FieldHeight)
	cols, rows := grid.Dims()
	clamp := grid.clampValue()

	img := image.NewNRGBA(image.Rect(0, 0, cols, rows))
	for c := 0; c < cols; c++ {
		for row := 0; row < rows; row++ {
			t := grid.Z(c, row) / clamp
			if t > 1 {
				t = 1
			}
			// Row zero is the south edge; image rows grow downward.
			img.SetNRGBA(c, rows-1-row, viridisColor(t))
		}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, cols*rasterScale, rows*rasterScale))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, dst, nil); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("webp encode: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	_, _ = w.Write(buf.Bytes())
}
