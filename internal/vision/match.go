package vision

import (
	"image"
	"image/color"
	"math"
	"sort"
)

// coarseCandidates is how many coarse peaks are refined at full resolution.
const coarseCandidates = 3

// minCoarseSide is the smallest template side worth a coarse pass.
const minCoarseSide = 4

// plane is a grayscale image stored as luminance values in [0, 255].
type plane struct {
	w, h int
	pix  []float64
}

func toPlane(img image.Image) plane {
	b := img.Bounds()
	p := plane{w: b.Dx(), h: b.Dy(), pix: make([]float64, b.Dx()*b.Dy())}

	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			p.pix[y*p.w+x] = float64(g.Y)
		}
	}
	return p
}

// downscale averages f×f blocks. Trailing rows and columns that do not fill
// a block are dropped.
func (p plane) downscale(f int) plane {
	if f <= 1 {
		return p
	}
	out := plane{w: p.w / f, h: p.h / f}
	out.pix = make([]float64, out.w*out.h)

	area := float64(f * f)
	for y := 0; y < out.h; y++ {
		for x := 0; x < out.w; x++ {
			var sum float64
			for dy := 0; dy < f; dy++ {
				row := (y*f + dy) * p.w
				for dx := 0; dx < f; dx++ {
					sum += p.pix[row+x*f+dx]
				}
			}
			out.pix[y*out.w+x] = sum / area
		}
	}
	return out
}

// integral holds summed-area tables of a plane and of its squares, so the
// mean and variance of any window cost four lookups.
type integral struct {
	stride int
	sum    []float64
	sq     []float64
}

func newIntegral(p plane) integral {
	stride := p.w + 1
	ii := integral{
		stride: stride,
		sum:    make([]float64, stride*(p.h+1)),
		sq:     make([]float64, stride*(p.h+1)),
	}
	for y := 0; y < p.h; y++ {
		var rowSum, rowSq float64
		for x := 0; x < p.w; x++ {
			v := p.pix[y*p.w+x]
			rowSum += v
			rowSq += v * v
			i := (y+1)*stride + x + 1
			ii.sum[i] = ii.sum[i-stride] + rowSum
			ii.sq[i] = ii.sq[i-stride] + rowSq
		}
	}
	return ii
}

func (ii integral) window(x, y, w, h int) (sum, sq float64) {
	a := y*ii.stride + x
	b := a + w
	c := (y+h)*ii.stride + x
	d := c + w
	return ii.sum[d] - ii.sum[b] - ii.sum[c] + ii.sum[a],
		ii.sq[d] - ii.sq[b] - ii.sq[c] + ii.sq[a]
}

// kernel is a mean-subtracted template ready for correlation.
type kernel struct {
	w, h int
	zero []float64
	norm float64
}

func newKernel(p plane) kernel {
	k := kernel{w: p.w, h: p.h, zero: make([]float64, len(p.pix))}
	if len(p.pix) == 0 {
		return k
	}

	var mean float64
	for _, v := range p.pix {
		mean += v
	}
	mean /= float64(len(p.pix))

	var ss float64
	for i, v := range p.pix {
		d := v - mean
		k.zero[i] = d
		ss += d * d
	}
	k.norm = math.Sqrt(ss)
	return k
}

// layer is one resolution level of a frame.
type layer struct {
	plane
	ii integral
}

func newLayer(p plane) layer {
	return layer{plane: p, ii: newIntegral(p)}
}

// ncc returns the normalised cross-correlation of k placed at (x, y).
// Flat windows or flat kernels score zero.
func (l layer) ncc(k kernel, x, y int) float64 {
	if k.norm == 0 {
		return 0
	}
	n := float64(k.w * k.h)
	sum, sq := l.ii.window(x, y, k.w, k.h)
	variance := sq - sum*sum/n
	if variance <= 1e-9 {
		return 0
	}

	var dot float64
	for ty := 0; ty < k.h; ty++ {
		row := (y+ty)*l.w + x
		krow := ty * k.w
		for tx := 0; tx < k.w; tx++ {
			dot += l.pix[row+tx] * k.zero[krow+tx]
		}
	}
	return dot / (math.Sqrt(variance) * k.norm)
}

// Match is the best location of a template in a frame.
type Match struct {
	Score float64
	X, Y  int
}

// Frame is a captured screen prepared for repeated template queries.
type Frame struct {
	full   layer
	coarse layer
	scale  int
}

// NewFrame prepares img for matching with a coarse pass downscaled by scale.
func NewFrame(img image.Image, scale int) *Frame {
	if scale < 1 {
		scale = 1
	}
	full := toPlane(img)
	f := &Frame{full: newLayer(full), scale: scale}
	if scale > 1 {
		f.coarse = newLayer(full.downscale(scale))
	}
	return f
}

// Template is a reference image prepared at both resolutions.
type Template struct {
	full   kernel
	coarse kernel
	scale  int
}

// NewTemplate prepares img for matching against frames built with the same scale.
func NewTemplate(img image.Image, scale int) *Template {
	if scale < 1 {
		scale = 1
	}
	full := toPlane(img)
	t := &Template{full: newKernel(full), scale: scale}
	if scale > 1 && full.w/scale >= minCoarseSide && full.h/scale >= minCoarseSide {
		t.coarse = newKernel(full.downscale(scale))
	}
	return t
}

// Match finds the best placement of t in f.
//
// When both sides carry a coarse level the search scans every coarse offset,
// keeps the strongest few peaks and refines each in a ±scale neighbourhood at
// full resolution. Otherwise it scans every full-resolution offset.
func (f *Frame) Match(t *Template) Match {
	if t.full.w == 0 || t.full.h == 0 || t.full.w > f.full.w || t.full.h > f.full.h {
		return Match{}
	}

	if f.scale > 1 && t.scale == f.scale && t.coarse.w > 0 &&
		t.coarse.w <= f.coarse.w && t.coarse.h <= f.coarse.h {
		return f.coarseToFine(t)
	}
	return f.full.scan(t.full, 0, 0, f.full.w-t.full.w, f.full.h-t.full.h)
}

func (f *Frame) coarseToFine(t *Template) Match {
	var peaks []Match
	for y := 0; y <= f.coarse.h-t.coarse.h; y++ {
		for x := 0; x <= f.coarse.w-t.coarse.w; x++ {
			peaks = append(peaks, Match{Score: f.coarse.ncc(t.coarse, x, y), X: x, Y: y})
		}
	}
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].Score > peaks[j].Score })
	if len(peaks) > coarseCandidates {
		peaks = peaks[:coarseCandidates]
	}

	maxX := f.full.w - t.full.w
	maxY := f.full.h - t.full.h

	var best Match
	for _, p := range peaks {
		cx, cy := p.X*f.scale, p.Y*f.scale
		m := f.full.scan(t.full,
			max(0, cx-f.scale), max(0, cy-f.scale),
			min(maxX, cx+f.scale), min(maxY, cy+f.scale),
		)
		if m.Score > best.Score {
			best = m
		}
	}
	return best
}

// scan evaluates every offset in the inclusive box [x0,x1]×[y0,y1].
func (l layer) scan(k kernel, x0, y0, x1, y1 int) Match {
	best := Match{Score: math.Inf(-1)}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if s := l.ncc(k, x, y); s > best.Score {
				best = Match{Score: s, X: x, Y: y}
			}
		}
	}
	if math.IsInf(best.Score, -1) {
		return Match{}
	}
	return best
}
