package report

import (
	"context"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"burtrend/domain/phrase"
	"burtrend/internal/errors"
	"burtrend/internal/logger"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Histogram defaults: 0.1-wide bins over the observed range, clamped to
// [0.5, 3.5] so stray ratios do not stretch the axis.
const (
	BinWidth   = 0.1
	RangeFloor = 0.5
	RangeCeil  = 3.5
)

// Bins is a fixed-width histogram. Values outside [Min, Max] are counted in
// Dropped; the last bin is closed on the right.
type Bins struct {
	Min, Max, Width float64
	Counts          []int
	Dropped         int
}

// Edges returns the len(Counts)+1 bin boundaries
func (b Bins) Edges() []float64 {
	edges := make([]float64, len(b.Counts)+1)
	for i := range edges {
		edges[i] = round10(b.Min + float64(i)*b.Width)
	}
	return edges
}

// Total is the number of binned values
func (b Bins) Total() int {
	total := 0
	for _, c := range b.Counts {
		total += c
	}
	return total
}

// BinValues bins values into width-wide bins starting at the observed
// minimum rounded down to a multiple of width (never below floor) and ending
// at the observed maximum rounded up (never above ceil).
func BinValues(values []float64, width, floor, ceil float64) Bins {
	if len(values) == 0 || width <= 0 {
		return Bins{Width: width}
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	lo = math.Max(floor, round10(math.Floor(lo/width+1e-9)*width))
	hi = math.Min(ceil, round10(math.Ceil(hi/width-1e-9)*width))
	if hi <= lo {
		hi = round10(lo + width)
	}

	n := int(math.Round((hi - lo) / width))
	b := Bins{Min: lo, Max: hi, Width: width, Counts: make([]int, n)}
	for _, v := range values {
		if v < lo || v > hi {
			b.Dropped++
			continue
		}
		i := int(math.Floor((v-lo)/width + 1e-9))
		if i >= n {
			i = n - 1
		}
		b.Counts[i]++
	}
	return b
}

func round10(x float64) float64 {
	return math.Round(x*1e10) / 1e10
}

// PerformerValues holds every BUR value of one performer
type PerformerValues struct {
	Performer string
	Artist    string
	Values    []float64
}

// GroupByPerformer pools phrase values per performer (the solo id prefix),
// ordered by performer.
func GroupByPerformer(phrases []phrase.Phrase) []PerformerValues {
	byName := make(map[string]*PerformerValues)
	for _, p := range phrases {
		name := strings.SplitN(p.Key().SoloID, "_", 2)[0]
		pv, ok := byName[name]
		if !ok {
			pv = &PerformerValues{Performer: name, Artist: p.Artist()}
			byName[name] = pv
		}
		pv.Values = append(pv.Values, p.Values()...)
	}

	out := make([]PerformerValues, 0, len(byName))
	for _, pv := range byName {
		out = append(out, *pv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Performer < out[j].Performer })
	return out
}

// HistogramWriter renders one PNG histogram per performer
type HistogramWriter struct {
	dir    string
	width  vg.Length
	height vg.Length
}

func NewHistogramWriter(dir string) *HistogramWriter {
	return &HistogramWriter{dir: dir, width: 8 * vg.Inch, height: 5 * vg.Inch}
}

// PathFor returns the image path of a performer
func (w *HistogramWriter) PathFor(performer string) string {
	return filepath.Join(w.dir, performer+"_bur_histogram.png")
}

// Write renders every performer and returns the written paths
func (w *HistogramWriter) Write(ctx context.Context, phrases []phrase.Phrase) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, errors.IOError(w.dir, err)
	}

	var paths []string
	for _, pv := range GroupByPerformer(phrases) {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		if len(pv.Values) == 0 {
			continue
		}
		path := w.PathFor(pv.Performer)
		bins := BinValues(pv.Values, BinWidth, RangeFloor, RangeCeil)
		if err := w.Render(pv.Artist, bins, path); err != nil {
			return paths, err
		}
		if bins.Dropped > 0 {
			logger.Warn("values outside histogram range", "performer", pv.Performer, "dropped", bins.Dropped)
		}
		paths = append(paths, path)
	}
	logger.Info("histograms written", "dir", w.dir, "count", len(paths))
	return paths, nil
}

// Render draws bins as a PNG at path
func (w *HistogramWriter) Render(artist string, bins Bins, path string) error {
	p := plot.New()
	p.Title.Text = "BUR Histogram for " + artist
	p.X.Label.Text = "BUR Value"
	p.Y.Label.Text = "Count"

	edges := bins.Edges()
	h := &plotter.Histogram{
		Bins:      make([]plotter.HistogramBin, len(bins.Counts)),
		Width:     bins.Width,
		FillColor: color.RGBA{R: 31, G: 119, B: 180, A: 180},
		LineStyle: plotter.DefaultLineStyle,
	}
	for i, c := range bins.Counts {
		h.Bins[i] = plotter.HistogramBin{Min: edges[i], Max: edges[i+1], Weight: float64(c)}
	}
	p.Add(h)

	p.X.Min, p.X.Max = bins.Min, bins.Max
	ticks := make(plot.ConstantTicks, len(edges))
	for i, e := range edges {
		ticks[i] = plot.Tick{Value: e, Label: strconv.FormatFloat(e, 'f', 1, 64)}
	}
	p.X.Tick.Marker = ticks

	if err := p.Save(w.width, w.height, path); err != nil {
		return errors.IOError(path, err)
	}
	return nil
}
