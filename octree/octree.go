// Package octree indexes a static world-space triangle mesh for ray and box queries.
//
// The tree is built once from a flat buffer of 9 floats per triangle and is immutable
// afterwards: queries never touch node state, so one Octree can serve the solver, the
// character controllers and the path finder during the same tick.
package octree

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/akmonengine/strata/geometry"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// DefaultTrianglesPerLeaf is the target fan-out used to derive the maximum depth.
	DefaultTrianglesPerLeaf = 8

	// boundsPadding keeps flat meshes from producing zero-thickness root boxes.
	boundsPadding = 1e-3
)

var ErrInvalidBuffer = errors.New("octree: triangle buffer must hold a positive multiple of 9 floats")

// node is either a leaf (children == nil) or an internal node with exactly 8 children,
// all created together.
type node struct {
	bounds   geometry.AABB
	children *[8]node
	items    []int
}

type Octree struct {
	triangles []float64
	count     int
	maxDepth  int
	root      node
}

type Option func(*config)

type config struct {
	trianglesPerLeaf int
}

// WithTrianglesPerLeaf overrides the fan-out used to compute the maximum depth.
func WithTrianglesPerLeaf(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.trianglesPerLeaf = n
		}
	}
}

// New builds the tree over triangles, a world-space buffer of 9 floats per triangle. The
// buffer is retained and must not be modified afterwards.
func New(triangles []float64, opts ...Option) (*Octree, error) {
	if len(triangles) == 0 || len(triangles)%geometry.FloatsPerTriangle != 0 {
		return nil, fmt.Errorf("%w: got %d floats", ErrInvalidBuffer, len(triangles))
	}

	cfg := config{trianglesPerLeaf: DefaultTrianglesPerLeaf}
	for _, opt := range opts {
		opt(&cfg)
	}

	count := len(triangles) / geometry.FloatsPerTriangle
	o := &Octree{
		triangles: triangles,
		count:     count,
		maxDepth:  MaxDepth(count, cfg.trianglesPerLeaf),
	}

	bounds := geometry.EmptyAABB()
	for i := 0; i < count; i++ {
		bounds.Union(geometry.TriangleAt(triangles, i).Bounds())
	}
	o.root.bounds = bounds.Inflate(boundsPadding)

	for i := 0; i < count; i++ {
		tri := geometry.TriangleAt(triangles, i)
		if !o.addTriangle(&o.root, i, tri, tri.Bounds(), 0) {
			// only degenerate input (NaN coordinates) can be refused by the root
			o.root.items = append(o.root.items, i)
		}
	}

	return o, nil
}

// MaxDepth keeps the leaf fan-out roughly constant: floor(log8(n / perLeaf)) + 1, at least 1.
func MaxDepth(triangleCount, trianglesPerLeaf int) int {
	if trianglesPerLeaf <= 0 {
		trianglesPerLeaf = DefaultTrianglesPerLeaf
	}
	ratio := float64(triangleCount) / float64(trianglesPerLeaf)
	if ratio <= 1 {
		return 1
	}
	return int(math.Log(ratio)/math.Log(8)) + 1
}

// addTriangle stores triangle index at the shallowest node that fully contains it.
func (o *Octree) addTriangle(n *node, index int, tri geometry.Triangle, triBounds geometry.AABB, depth int) bool {
	if depth >= o.maxDepth {
		return false
	}
	if !n.bounds.Overlaps(triBounds) || !geometry.AABBToTriangle(n.bounds, tri) {
		return false
	}
	if depth > 0 && !n.bounds.ContainsAABB(triBounds) {
		return false
	}

	if depth+1 < o.maxDepth {
		if n.children == nil {
			n.children = new([8]node)
			for i := range n.children {
				n.children[i].bounds = n.bounds.Octant(i)
			}
		}
		for i := range n.children {
			if o.addTriangle(&n.children[i], index, tri, triBounds, depth+1) {
				return true
			}
		}
	}

	n.items = append(n.items, index)
	return true
}

// Len returns the number of triangles.
func (o *Octree) Len() int {
	return o.count
}

// MaxDepth returns the depth limit derived from the triangle count.
func (o *Octree) MaxDepth() int {
	return o.maxDepth
}

func (o *Octree) Bounds() geometry.AABB {
	return o.root.bounds
}

// Triangle returns the i-th triangle of the mesh.
func (o *Octree) Triangle(i int) geometry.Triangle {
	return geometry.TriangleAt(o.triangles, i)
}

// QueryAABB appends to out every triangle index stored in a node whose bounds overlap
// box. Results are candidates, callers run exact tests.
func (o *Octree) QueryAABB(box geometry.AABB, out []int) []int {
	return o.query(&o.root, func(bounds geometry.AABB) bool {
		return bounds.Overlaps(box)
	}, out)
}

// QueryRay appends to out every triangle index stored in a node crossed by the ray.
func (o *Octree) QueryRay(origin, direction mgl64.Vec3, out []int) []int {
	return o.query(&o.root, func(bounds geometry.AABB) bool {
		_, _, ok := geometry.RayToAABB(origin, direction, bounds)
		return ok
	}, out)
}

func (o *Octree) query(n *node, accept func(geometry.AABB) bool, out []int) []int {
	if !accept(n.bounds) {
		return out
	}
	out = append(out, n.items...)
	if n.children != nil {
		for i := range n.children {
			out = o.query(&n.children[i], accept, out)
		}
	}
	return out
}

// QueryTriangle returns the indices of the mesh triangles intersecting tri.
func (o *Octree) QueryTriangle(tri geometry.Triangle) []int {
	candidates := o.QueryAABB(tri.Bounds(), nil)
	hits := candidates[:0]
	for _, i := range candidates {
		if _, ok := geometry.TriangleTriangle(o.Triangle(i), tri); ok {
			hits = append(hits, i)
		}
	}
	return hits
}

// Result holds every triangle crossed by a ray, nearest first.
type Result struct {
	First geometry.Hit
	All   []geometry.Hit
}

// Raycast intersects the ray with the mesh. It returns false when nothing is hit.
func (o *Octree) Raycast(origin, direction mgl64.Vec3) (Result, bool) {
	var result Result
	for _, i := range o.QueryRay(origin, direction, nil) {
		tri := o.Triangle(i)
		hit, ok := geometry.RayToTriangle(origin, direction, tri.A, tri.B, tri.C)
		if !ok {
			continue
		}
		hit.Triangle = i
		result.All = append(result.All, hit)
	}

	if len(result.All) == 0 {
		return result, false
	}

	sort.SliceStable(result.All, func(a, b int) bool {
		return result.All[a].Distance < result.All[b].Distance
	})
	result.First = result.All[0]

	return result, true
}

// Stats describes the shape of a built tree.
type Stats struct {
	Nodes    int
	Leaves   int
	MaxDepth int
	// ItemsPerDepth counts the triangles stored at each depth.
	ItemsPerDepth []int
}

func (o *Octree) Stats() Stats {
	s := Stats{MaxDepth: o.maxDepth, ItemsPerDepth: make([]int, o.maxDepth)}
	var walk func(n *node, depth int)
	walk = func(n *node, depth int) {
		s.Nodes++
		s.ItemsPerDepth[depth] += len(n.items)
		if n.children == nil {
			s.Leaves++
			return
		}
		for i := range n.children {
			walk(&n.children[i], depth+1)
		}
	}
	walk(&o.root, 0)
	return s
}
