package surge

import (
	"math"
	"sort"

	"burtrend/domain/stats"
)

// Scanner slides windows of several sizes over a phrase
type Scanner struct {
	Sizes    []int
	Period   int
	MinTau   float64
	Alpha    float64
	FDRAlpha float64
}

// NewScanner builds a scanner from the analysis parameters
func NewScanner(p stats.Params) *Scanner {
	sizes := append([]int(nil), p.WindowSizes...)
	sort.Ints(sizes)
	return &Scanner{
		Sizes:    sizes,
		Period:   p.SeasonalPeriod,
		MinTau:   p.MinTau,
		Alpha:    p.Alpha,
		FDRAlpha: p.FDRAlpha,
	}
}

// Scan holds every window tested on one phrase. Both reporting modes read
// from Windows: the all-windows mode uses the whole slice and the best
// window is an index into it.
type Scan struct {
	N       int            `json:"n"`
	Windows []stats.Window `json:"windows"`

	// BestIndex is the strongest applicable window with |tau| >= MinTau, or -1
	BestIndex int `json:"best_index"`

	// Raw (uncorrected) surge evidence
	HasLocalSurge  bool `json:"has_local_surge"`
	RawSignificant int  `json:"raw_significant"`
}

// Best returns the strongest window, if any
func (s *Scan) Best() (*stats.Window, bool) {
	if s.BestIndex < 0 || s.BestIndex >= len(s.Windows) {
		return nil, false
	}
	return &s.Windows[s.BestIndex], true
}

// Tested counts the applicable windows
func (s *Scan) Tested() int {
	n := 0
	for _, w := range s.Windows {
		if w.Applicable {
			n++
		}
	}
	return n
}

// Scan tests every window of every size that fits in the phrase, sizes
// ascending and starts ascending.
func (sc *Scanner) Scan(values []float64) Scan {
	out := Scan{N: len(values), BestIndex: -1}
	for _, size := range sc.Sizes {
		if size < 2 || size > len(values) {
			continue
		}
		for start := 0; start+size <= len(values); start++ {
			w := SeasonalMannKendall(values[start:start+size], sc.Period)
			w.Start = start
			w.End = start + size - 1
			out.Windows = append(out.Windows, w)
		}
	}

	for i := range out.Windows {
		w := &out.Windows[i]
		if !w.Applicable || math.Abs(w.Tau) < sc.MinTau {
			continue
		}
		if w.PValue < sc.Alpha {
			out.HasLocalSurge = true
			out.RawSignificant++
		}
		if out.BestIndex < 0 || stronger(w, &out.Windows[out.BestIndex]) {
			out.BestIndex = i
		}
	}
	return out
}

// stronger orders windows by |tau|, then lower p, earlier start, smaller size
func stronger(a, b *stats.Window) bool {
	ta, tb := math.Abs(a.Tau), math.Abs(b.Tau)
	if ta != tb {
		return ta > tb
	}
	if a.PValue != b.PValue {
		return a.PValue < b.PValue
	}
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.Size < b.Size
}

// Summary is the post-correction view of a scan
type Summary struct {
	Significant    int           `json:"n_significant_windows_fdr"`
	HasSignificant bool          `json:"significant_local_surge"`
	Strongest      *stats.Window `json:"strongest,omitempty"`
}

// Summarize keeps windows whose corrected p-value is below FDRAlpha and whose
// |tau| reaches MinTau, and picks the strongest of them. Windows without a
// correction annotation are ignored.
func (sc *Scanner) Summarize(scan *Scan) Summary {
	var sum Summary
	for i := range scan.Windows {
		w := &scan.Windows[i]
		if !w.Applicable || w.Correction == nil {
			continue
		}
		if w.Correction.QValue >= sc.FDRAlpha || math.Abs(w.Tau) < sc.MinTau {
			continue
		}
		sum.Significant++
		if sum.Strongest == nil || stronger(w, sum.Strongest) {
			sum.Strongest = w
		}
	}
	sum.HasSignificant = sum.Significant > 0
	return sum
}
