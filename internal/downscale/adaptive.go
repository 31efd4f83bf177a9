package downscale

import (
	"fmt"
	"math"

	"github.com/AnyUserName/pixelsnap-cli/internal/ops"
	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
)

const (
	eps           = 1e-9
	minSingular   = 0.5
	windowSigmas  = 2.0
	colorBinShift = 3 // 5 bits per channel
)

// ContentAdaptive places one anisotropic Gaussian kernel per output pixel
// and refines the kernels with a few EM rounds in Lab space. Each kernel's
// output is the colour bin carrying the most responsibility, not a blend,
// so hard palette edges survive. Alpha is area-resampled separately.
type ContentAdaptive struct {
	Iterations int
	SVD        ops.SVD
}

func (ContentAdaptive) Method() Method         { return MethodContentAdaptive }
func (ContentAdaptive) PreservesPalette() bool { return false }

// kernel is the per-output-pixel state of one EM run. The slice holding
// kernels is rebuilt on every call and never shared.
type kernel struct {
	mu    [2]float64
	cov   ops.Mat2
	inv   ops.Mat2
	color ops.Lab
	voted bool
}

type vote struct {
	bin     int32
	w       float64
	l, a, b float64
}

func (c ContentAdaptive) Downscale(img *raster.Image, scale int) (*raster.Image, error) {
	if c.SVD == nil {
		return nil, ErrSVDUnavailable
	}
	if scale < 1 {
		return nil, fmt.Errorf("downscale: invalid scale %d", scale)
	}
	iters := c.Iterations
	if iters <= 0 {
		iters = 3
	}
	W, H := OutputSize(img.Width, img.Height, scale)
	out := raster.New(W, H)
	if W == 0 || H == 0 {
		return out, nil
	}

	sc := ops.NewScope()
	defer sc.Release()

	w, h := img.Width, img.Height
	n := w * h
	labL, labA, labB := sc.Floats(n), sc.Floats(n), sc.Floats(n)
	bins := make([]int32, n)
	for i := 0; i < n; i++ {
		p := img.Pix[i*4 : i*4+4]
		if p[3] < opaqueAlpha {
			bins[i] = -1
			continue
		}
		lab := ops.RGBToLab(p[0], p[1], p[2])
		labL[i], labA[i], labB[i] = lab.L, lab.A, lab.B
		bins[i] = int32(p[0]>>colorBinShift)<<10 | int32(p[1]>>colorBinShift)<<5 | int32(p[2]>>colorBinShift)
	}

	rx := float64(w) / float64(W)
	ry := float64(h) / float64(H)
	rAvg := (rx + ry) / 2
	maxSingular := math.Max(1.0, 0.5*rAvg)

	kernels := make([]kernel, W*H)
	for ky := 0; ky < H; ky++ {
		for kx := 0; kx < W; kx++ {
			k := &kernels[ky*W+kx]
			k.mu = [2]float64{(float64(kx)+0.5)*rx - 0.5, (float64(ky)+0.5)*ry - 0.5}
			v := (rAvg / 3) * (rAvg / 3)
			k.cov = ops.Mat2{v, 0, 0, v}
			k.inv = k.cov.Inverse(eps)
		}
	}

	total := sc.Floats(n)
	var votes []vote
	for it := 0; it < iters; it++ {
		// E-step: per-pixel sum of kernel weights for normalisation.
		clear(total)
		for i := range kernels {
			k := &kernels[i]
			x0, x1, y0, y1 := k.window(w, h)
			for y := y0; y <= y1; y++ {
				for x := x0; x <= x1; x++ {
					total[y*w+x] += k.weight(x, y)
				}
			}
		}

		// M-step and C-step per kernel.
		for i := range kernels {
			k := &kernels[i]
			x0, x1, y0, y1 := k.window(w, h)
			var sw, sx, sy, sxx, sxy, syy float64
			votes = votes[:0]
			for y := y0; y <= y1; y++ {
				for x := x0; x <= x1; x++ {
					p := y*w + x
					g := k.weight(x, y) / (total[p] + eps)
					if g == 0 {
						continue
					}
					fx, fy := float64(x), float64(y)
					sw += g
					sx += g * fx
					sy += g * fy
					sxx += g * fx * fx
					sxy += g * fx * fy
					syy += g * fy * fy
					if bins[p] >= 0 {
						votes = addVote(votes, bins[p], g, labL[p], labA[p], labB[p])
					}
				}
			}
			if sw < eps {
				continue
			}
			mx, my := sx/sw, sy/sw
			k.mu = [2]float64{mx, my}
			cxy := sxy/sw - mx*my
			k.clamp(ops.Mat2{sxx/sw - mx*mx, cxy, cxy, syy/sw - my*my}, c.SVD, maxSingular)

			if best := heaviest(votes); best >= 0 {
				v := votes[best]
				k.color = ops.Lab{L: v.l / v.w, A: v.a / v.w, B: v.b / v.w}
				k.voted = true
			}
		}
	}

	alpha := ops.ResizeAlpha(img, W, H)
	for i, k := range kernels {
		o := i * 4
		if k.voted {
			out.Pix[o], out.Pix[o+1], out.Pix[o+2] = ops.LabToRGB(k.color)
		}
		out.Pix[o+3] = alpha[i]
	}
	return out, nil
}

// window returns the inclusive pixel box covering ±2σ around the mean.
func (k *kernel) window(w, h int) (x0, x1, y0, y1 int) {
	rx := windowSigmas * math.Sqrt(math.Max(k.cov[0], eps))
	ry := windowSigmas * math.Sqrt(math.Max(k.cov[3], eps))
	x0 = max(0, int(math.Floor(k.mu[0]-rx)))
	x1 = min(w-1, int(math.Ceil(k.mu[0]+rx)))
	y0 = max(0, int(math.Floor(k.mu[1]-ry)))
	y1 = min(h-1, int(math.Ceil(k.mu[1]+ry)))
	return
}

// weight is the unnormalised Gaussian response at pixel (x, y).
func (k *kernel) weight(x, y int) float64 {
	dx := float64(x) - k.mu[0]
	dy := float64(y) - k.mu[1]
	d2 := dx*(k.inv[0]*dx+k.inv[1]*dy) + dy*(k.inv[2]*dx+k.inv[3]*dy)
	return math.Exp(-0.5 * d2)
}

// clamp installs est as the covariance with both singular values bounded
// to [minSingular, maxSingular] and refreshes the inverse. When est cannot
// be factorized the kernel keeps its previous covariance.
func (k *kernel) clamp(est ops.Mat2, svd ops.SVD, maxSingular float64) {
	u, s, _, ok := svd.Factorize(est)
	if !ok {
		return
	}
	for i := range s {
		s[i] = math.Max(minSingular, math.Min(maxSingular, s[i]))
	}
	// The covariance is symmetric positive semi-definite, so U doubles
	// as V and the rebuilt matrix stays PSD.
	k.cov = ops.Compose(u, s, u)
	off := (k.cov[1] + k.cov[2]) / 2
	k.cov[1], k.cov[2] = off, off
	k.inv = k.cov.Inverse(eps)
}

func addVote(votes []vote, bin int32, g, l, a, b float64) []vote {
	for i := range votes {
		if votes[i].bin == bin {
			votes[i].w += g
			votes[i].l += g * l
			votes[i].a += g * a
			votes[i].b += g * b
			return votes
		}
	}
	return append(votes, vote{bin: bin, w: g, l: g * l, a: g * a, b: g * b})
}

// heaviest returns the index of the vote with the largest weight, or -1.
func heaviest(votes []vote) int {
	best := -1
	for i := range votes {
		if votes[i].w <= eps {
			continue
		}
		if best < 0 || votes[i].w > votes[best].w {
			best = i
		}
	}
	return best
}
