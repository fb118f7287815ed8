package surface

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// samples holds de-duplicated positions normalised to the unit square.
type samples struct {
	pts                    []point
	vals                   []float64
	xmin, xmax, ymin, ymax float64
	tris                   [][3]int
}

func prepare(x, y, z []float64) (*samples, error) {
	type key struct{ x, y float64 }
	sums := make(map[key]float64)
	counts := make(map[key]int)
	var order []key
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) || math.IsNaN(z[i]) ||
			math.IsInf(x[i], 0) || math.IsInf(y[i], 0) || math.IsInf(z[i], 0) {
			continue
		}
		k := key{x[i], y[i]}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		sums[k] += z[i]
		counts[k]++
	}
	if len(order) < 3 {
		return nil, insufficient("fewer than 3 distinct sample positions", len(order))
	}

	s := &samples{
		xmin: math.Inf(1), xmax: math.Inf(-1),
		ymin: math.Inf(1), ymax: math.Inf(-1),
	}
	for _, k := range order {
		s.xmin, s.xmax = math.Min(s.xmin, k.x), math.Max(s.xmax, k.x)
		s.ymin, s.ymax = math.Min(s.ymin, k.y), math.Max(s.ymax, k.y)
	}
	if s.xmax == s.xmin || s.ymax == s.ymin {
		return nil, insufficient("samples do not span both axes", len(order))
	}

	s.pts = make([]point, len(order))
	s.vals = make([]float64, len(order))
	for i, k := range order {
		s.pts[i] = point{X: (k.x - s.xmin) / (s.xmax - s.xmin), Y: (k.y - s.ymin) / (s.ymax - s.ymin)}
		s.vals[i] = sums[k] / float64(counts[k])
	}
	s.tris = triangulate(s.pts)
	if len(s.tris) == 0 {
		return nil, insufficient("sample positions are collinear", len(order))
	}
	return s, nil
}

func (s *samples) interpolate(opts Options) (*Grid, error) {
	n := opts.Resolution
	grid := &Grid{
		Xs: linspace(s.xmin, s.xmax, n),
		Ys: linspace(s.ymin, s.ymax, n),
		Zs: make([][]float64, n),
	}
	fill := math.NaN()
	if opts.Fill == FillZero {
		fill = 0
	}
	assigned := make([][]bool, n)
	for r := range grid.Zs {
		grid.Zs[r] = make([]float64, n)
		assigned[r] = make([]bool, n)
	}

	var eval func(t [3]int, l [3]float64) float64
	switch opts.Method {
	case MethodCubic:
		eval = newCubic(s).eval
	default:
		eval = func(t [3]int, l [3]float64) float64 {
			return l[0]*s.vals[t[0]] + l[1]*s.vals[t[1]] + l[2]*s.vals[t[2]]
		}
	}

	// Rasterise each triangle over the grid cells inside its bounding box.
	const eps = 1e-9
	step := float64(n - 1)
	for _, t := range s.tris {
		a, b, c := s.pts[t[0]], s.pts[t[1]], s.pts[t[2]]
		c0 := max(int(math.Ceil(math.Min(a.X, math.Min(b.X, c.X))*step-eps)), 0)
		c1 := min(int(math.Floor(math.Max(a.X, math.Max(b.X, c.X))*step+eps)), n-1)
		r0 := max(int(math.Ceil(math.Min(a.Y, math.Min(b.Y, c.Y))*step-eps)), 0)
		r1 := min(int(math.Floor(math.Max(a.Y, math.Max(b.Y, c.Y))*step+eps)), n-1)
		area := orient(a, b, c)
		for r := r0; r <= r1; r++ {
			for col := c0; col <= c1; col++ {
				if assigned[r][col] {
					continue
				}
				p := point{X: float64(col) / step, Y: float64(r) / step}
				l := [3]float64{orient(b, c, p) / area, orient(c, a, p) / area, orient(a, b, p) / area}
				if l[0] < -eps || l[1] < -eps || l[2] < -eps {
					continue
				}
				grid.Zs[r][col] = eval(t, l)
				assigned[r][col] = true
			}
		}
	}

	for r := range grid.Zs {
		for col := range grid.Zs[r] {
			if !assigned[r][col] {
				grid.Zs[r][col] = fill
			}
		}
	}
	return grid, nil
}

// cubic evaluates a cubic Bézier patch per triangle built from the vertex
// values and least-squares vertex gradients. The patch reproduces the
// linear interpolant exactly for planar data and is continuous across edges.
type cubic struct {
	s     *samples
	grads [][2]float64
}

func newCubic(s *samples) *cubic {
	neighbours := make([]map[int]struct{}, len(s.pts))
	for i := range neighbours {
		neighbours[i] = make(map[int]struct{})
	}
	for _, t := range s.tris {
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				if i != j {
					neighbours[t[i]][t[j]] = struct{}{}
				}
			}
		}
	}

	c := &cubic{s: s, grads: make([][2]float64, len(s.pts))}
	for i, set := range neighbours {
		c.grads[i] = c.gradient(i, set)
	}
	return c
}

// gradient fits f(q) − f(p) ≈ g·(q − p) over the neighbours q of vertex p.
func (c *cubic) gradient(i int, set map[int]struct{}) [2]float64 {
	if len(set) < 2 {
		return [2]float64{}
	}
	ids := make([]int, 0, len(set))
	for j := range set {
		ids = append(ids, j)
	}
	sort.Ints(ids)

	p := c.s.pts[i]
	a := mat.NewDense(len(ids), 2, nil)
	b := mat.NewVecDense(len(ids), nil)
	for row, j := range ids {
		q := c.s.pts[j]
		a.Set(row, 0, q.X-p.X)
		a.Set(row, 1, q.Y-p.Y)
		b.SetVec(row, c.s.vals[j]-c.s.vals[i])
	}

	var g mat.VecDense
	if err := g.SolveVec(a, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return [2]float64{}
		}
	}
	gx, gy := g.AtVec(0), g.AtVec(1)
	if math.IsNaN(gx+gy) || math.IsInf(gx+gy, 0) {
		return [2]float64{}
	}
	return [2]float64{gx, gy}
}

func (c *cubic) eval(t [3]int, l [3]float64) float64 {
	s := c.s
	p := [3]point{s.pts[t[0]], s.pts[t[1]], s.pts[t[2]]}
	f := [3]float64{s.vals[t[0]], s.vals[t[1]], s.vals[t[2]]}
	g := [3][2]float64{c.grads[t[0]], c.grads[t[1]], c.grads[t[2]]}

	// edge(i, j) is the control point next to vertex i on the edge to j.
	edge := func(i, j int) float64 {
		return f[i] + (g[i][0]*(p[j].X-p[i].X)+g[i][1]*(p[j].Y-p[i].Y))/3
	}
	b210, b201 := edge(0, 1), edge(0, 2)
	b120, b021 := edge(1, 0), edge(1, 2)
	b102, b012 := edge(2, 0), edge(2, 1)
	e := (b210 + b201 + b120 + b021 + b102 + b012) / 6
	v := (f[0] + f[1] + f[2]) / 3
	b111 := e + (e-v)/2

	u, w, x := l[0], l[1], l[2]
	return u*u*u*f[0] + w*w*w*f[1] + x*x*x*f[2] +
		3*u*u*w*b210 + 3*u*u*x*b201 +
		3*u*w*w*b120 + 3*w*w*x*b021 +
		3*u*x*x*b102 + 3*w*x*x*b012 +
		6*u*w*x*b111
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	out[n-1] = hi
	return out
}
