// Package navigation builds a walkability grid over the static mesh and searches paths
// on it for ground agents.
package navigation

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/strata/geometry"
	"github.com/akmonengine/strata/octree"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrInvalidGrid = errors.New("navigation: invalid grid")
	ErrOutOfBounds = errors.New("navigation: position outside the grid")
	ErrNotWalkable = errors.New("navigation: no walkable cell at position")
	ErrNoPath      = errors.New("navigation: no path")
)

// maxCells bounds the memory of a grid, two bytes per cell.
const maxCells = 1 << 24

// Grid is a voxelization of the static mesh. A cell is solid when a triangle crosses it;
// it is walkable when it is empty, stands on a solid cell and has the agent height clear
// above it.
type Grid struct {
	Origin   mgl64.Vec3
	CellSize float64
	// Clearance is the agent height in cells
	Clearance int

	nx, ny, nz int
	solid      []bool
	walkable   []bool
	mesh       *octree.Octree
}

// Build voxelizes the mesh bounds, padded by half a cell on every side and by the agent
// height on top.
func Build(mesh *octree.Octree, cellSize, agentHeight float64) (*Grid, error) {
	if mesh == nil || mesh.Len() == 0 {
		return nil, fmt.Errorf("%w: empty mesh", ErrInvalidGrid)
	}
	if cellSize <= 0 || agentHeight <= 0 {
		return nil, fmt.Errorf("%w: cell size %v and agent height %v must be positive", ErrInvalidGrid, cellSize, agentHeight)
	}

	bounds := geometry.EmptyAABB()
	for i := 0; i < mesh.Len(); i++ {
		bounds.Union(mesh.Triangle(i).Bounds())
	}

	pad := mgl64.Vec3{cellSize / 2, cellSize / 2, cellSize / 2}
	size := bounds.Max.Sub(bounds.Min).Add(pad.Mul(2))
	g := &Grid{
		Origin:    bounds.Min.Sub(pad),
		CellSize:  cellSize,
		Clearance: int(math.Ceil(agentHeight / cellSize)),
		nx:        int(math.Ceil(size.X()/cellSize)) + 1,
		ny:        int(math.Ceil((size.Y()+agentHeight)/cellSize)) + 1,
		nz:        int(math.Ceil(size.Z()/cellSize)) + 1,
		mesh:      mesh,
	}

	cells := g.nx * g.ny * g.nz
	if cells > maxCells || cells <= 0 {
		return nil, fmt.Errorf("%w: %dx%dx%d cells, reduce the mesh or grow the cell size", ErrInvalidGrid, g.nx, g.ny, g.nz)
	}
	g.solid = make([]bool, cells)
	g.walkable = make([]bool, cells)

	g.voxelize()
	for z := 0; z < g.nz; z++ {
		for y := 1; y < g.ny; y++ {
			for x := 0; x < g.nx; x++ {
				g.walkable[g.index(x, y, z)] = g.isSolid(x, y-1, z) && g.isClear(x, y, z)
			}
		}
	}

	return g, nil
}

func (g *Grid) voxelize() {
	// cells are shrunk a little so that a face lying on a cell boundary marks one cell only
	const shrink = 1e-6

	var candidates []int
	for z := 0; z < g.nz; z++ {
		for y := 0; y < g.ny; y++ {
			for x := 0; x < g.nx; x++ {
				corner := g.Origin.Add(mgl64.Vec3{float64(x), float64(y), float64(z)}.Mul(g.CellSize))
				box := geometry.AABB{
					Min: corner.Add(mgl64.Vec3{shrink, shrink, shrink}),
					Max: corner.Add(mgl64.Vec3{g.CellSize - shrink, g.CellSize - shrink, g.CellSize - shrink}),
				}

				candidates = g.mesh.QueryAABB(box, candidates[:0])
				for _, i := range candidates {
					if geometry.AABBToTriangle(box, g.mesh.Triangle(i)) {
						g.solid[g.index(x, y, z)] = true
						break
					}
				}
			}
		}
	}
}

// Size returns the number of cells along each axis.
func (g *Grid) Size() (int, int, int) {
	return g.nx, g.ny, g.nz
}

// Walkable reports whether the cell holding p is walkable.
func (g *Grid) Walkable(p mgl64.Vec3) bool {
	x, y, z, ok := g.cellOf(p)
	return ok && g.isWalkable(x, y, z)
}

func (g *Grid) index(x, y, z int) int {
	return x + g.nx*(y+g.ny*z)
}

func (g *Grid) inside(x, y, z int) bool {
	return x >= 0 && x < g.nx && y >= 0 && y < g.ny && z >= 0 && z < g.nz
}

func (g *Grid) isSolid(x, y, z int) bool {
	return g.inside(x, y, z) && g.solid[g.index(x, y, z)]
}

func (g *Grid) isWalkable(x, y, z int) bool {
	return g.inside(x, y, z) && g.walkable[g.index(x, y, z)]
}

// isClear checks the agent column starting at y. Cells above the grid are empty.
func (g *Grid) isClear(x, y, z int) bool {
	for k := 0; k < g.Clearance; k++ {
		if g.isSolid(x, y+k, z) {
			return false
		}
	}
	return true
}

func (g *Grid) cellOf(p mgl64.Vec3) (int, int, int, bool) {
	local := p.Sub(g.Origin).Mul(1 / g.CellSize)
	x := int(math.Floor(local.X()))
	y := int(math.Floor(local.Y()))
	z := int(math.Floor(local.Z()))
	return x, y, z, g.inside(x, y, z)
}

// waypoint returns the ground point of a walkable cell: the mesh surface under the cell
// center, or the cell bottom when the ray misses.
func (g *Grid) waypoint(x, y, z int) mgl64.Vec3 {
	center := g.Origin.Add(mgl64.Vec3{float64(x) + 0.5, float64(y) + 0.5, float64(z) + 0.5}.Mul(g.CellSize))
	if result, ok := g.mesh.Raycast(center, mgl64.Vec3{0, -1, 0}); ok && result.First.Distance <= 2*g.CellSize {
		return result.First.Point
	}
	return mgl64.Vec3{center.X(), g.Origin.Y() + float64(y)*g.CellSize, center.Z()}
}
