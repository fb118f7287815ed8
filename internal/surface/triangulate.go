package surface

import (
	"math"

	"github.com/fogleman/delaunay"
)

type point = delaunay.Point

// triangulate returns the Delaunay triangles of pts as vertex triples.
// Degenerate triangles are dropped, so collinear input yields none.
func triangulate(pts []point) [][3]int {
	t, err := delaunay.Triangulate(pts)
	if err != nil {
		return nil
	}
	out := make([][3]int, 0, len(t.Triangles)/3)
	for i := 0; i+2 < len(t.Triangles); i += 3 {
		v := [3]int{t.Triangles[i], t.Triangles[i+1], t.Triangles[i+2]}
		if math.Abs(orient(pts[v[0]], pts[v[1]], pts[v[2]])) < 1e-14 {
			continue
		}
		out = append(out, v)
	}
	return out
}

// orient is positive when c lies to the left of a->b.
func orient(a, b, c point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
