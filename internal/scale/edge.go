package scale

import (
	"image"
	"math"
	"sort"

	"github.com/AnyUserName/pixelsnap-cli/internal/ops"
	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
)

const (
	peakSigma        = 1.5
	minPeaks         = 3
	clusterFraction  = 0.70
	clusterTolerance = 1
)

// Edge is the single-region edge strategy: it looks for periodic peaks in
// the Sobel profiles of the central 75% of the image.
type Edge struct{}

func (Edge) Name() string { return "edge" }

func (Edge) Detect(img *raster.Image) Result {
	mx, my := img.Width/8, img.Height/8
	r := image.Rect(mx, my, img.Width-mx, img.Height-my)
	x, y := detectRegion(img, r)
	return combine(x, y, "edge")
}

// axisPeriod is the period found along one axis and the fraction of peak
// spacings within clusterTolerance of it.
type axisPeriod struct {
	period  int
	support float64
}

// detectRegion returns the per-axis periods found inside r.
func detectRegion(img *raster.Image, r image.Rectangle) (x, y axisPeriod) {
	if r.Dx() < 3 || r.Dy() < 3 {
		return axisPeriod{period: 1}, axisPeriod{period: 1}
	}
	sc := ops.NewScope()
	defer sc.Release()

	cols, rows := ops.SobelProfiles(sc, img, r)
	return profilePeriod(cols), profilePeriod(rows)
}

// combine takes the smaller axis period. Periods exactly one apart go to
// the better supported axis instead, and to the larger on a tie.
func combine(x, y axisPeriod, method string) Result {
	res := Result{Scale: 1, ScaleX: x.period, ScaleY: y.period, Method: method}
	switch {
	case x.period > 1 && y.period > 1:
		res.Scale = min(x.period, y.period)
		if abs(x.period-y.period) == 1 {
			switch {
			case x.support > y.support:
				res.Scale = x.period
			case y.support > x.support:
				res.Scale = y.period
			default:
				res.Scale = max(x.period, y.period)
			}
		}
	case x.period > 1:
		res.Scale = x.period
	case y.period > 1:
		res.Scale = y.period
	}
	return res
}

// profilePeriod finds the dominant spacing between peaks of p. Spacings
// that alternate around the period, as rising and falling edges of a
// blurred image do, are resolved from the distance between every other
// peak.
func profilePeriod(p []float64) axisPeriod {
	peaks := findPeaks(p)
	if len(peaks) < minPeaks {
		return axisPeriod{period: 1}
	}
	spacings := gaps(peaks, 1)
	period, ok := clustered(spacings)
	if !ok {
		period = 0
		if pairs := gaps(peaks, 2); len(pairs) > 0 {
			if m, ok := clustered(pairs); ok && m%2 == 0 {
				period = m / 2
			}
		}
	}
	if period == 0 {
		period = mode(spacings)
	}
	if period < 1 {
		return axisPeriod{period: 1}
	}
	near := 0
	for _, s := range spacings {
		if abs(s-period) <= clusterTolerance {
			near++
		}
	}
	return axisPeriod{period: period, support: float64(near) / float64(len(spacings))}
}

// gaps returns the sorted distances between peaks step apart.
func gaps(peaks []int, step int) []int {
	if len(peaks) <= step {
		return nil
	}
	out := make([]int, 0, len(peaks)-step)
	for i := step; i < len(peaks); i++ {
		out = append(out, peaks[i]-peaks[i-step])
	}
	sort.Ints(out)
	return out
}

// clustered returns the median of sorted vals and whether at least
// clusterFraction of them lie within clusterTolerance of it.
func clustered(vals []int) (int, bool) {
	med := vals[len(vals)/2]
	near := 0
	for _, v := range vals {
		if abs(v-med) <= clusterTolerance {
			near++
		}
	}
	return med, float64(near) >= clusterFraction*float64(len(vals))
}

// findPeaks returns indices of local maxima above mean + 1.5·stddev. On a
// plateau only the first index counts.
func findPeaks(p []float64) []int {
	if len(p) < 3 {
		return nil
	}
	var sum, sq float64
	for _, v := range p {
		sum += v
		sq += v * v
	}
	n := float64(len(p))
	mean := sum / n
	std := math.Sqrt(math.Max(0, sq/n-mean*mean))
	thr := mean + peakSigma*std
	if std == 0 {
		return nil
	}

	var peaks []int
	for i := 0; i < len(p); i++ {
		v := p[i]
		if v <= thr {
			continue
		}
		left := i == 0 || v > p[i-1]
		right := i == len(p)-1 || v >= p[i+1]
		if left && right {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

// mode returns the most frequent value; ties go to the smaller value.
func mode(vals []int) int {
	counts := map[int]int{}
	for _, v := range vals {
		counts[v]++
	}
	best, bestN := 0, 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
