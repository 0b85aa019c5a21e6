package strata

import (
	"math"
	"slices"

	"github.com/akmonengine/strata/actor"
	"github.com/akmonengine/strata/geometry"
	"github.com/go-gl/mathgl/mgl64"
)

// ============================================================================
// Types
// ============================================================================

// CellKey - Coordonnées d'une cellule dans l'espace 3D
type CellKey struct {
	X, Y, Z int
}

// Cell - Conteneur d'indices de bodies dans une cellule
type Cell struct {
	bodyIndices []int
}

// Pair - Paire de bodies potentiellement en collision, BodyA avant BodyB dans World.Bodies
type Pair struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

// SpatialGrid is a uniform hashed grid used as the body-vs-body broad phase. Distinct
// cells may share a slot; the box overlap test removes the false positives.
type SpatialGrid struct {
	cellSize float64
	cells    []Cell
	cellMask int
}

// ============================================================================
// Constructeur
// ============================================================================

// NewSpatialGrid - Crée une nouvelle grille spatiale, numCells arrondi à la puissance de 2
func NewSpatialGrid(cellSize float64, numCells int) *SpatialGrid {
	numCells = nextPowerOfTwo(numCells)

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].bodyIndices = make([]int, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
	}
}

// nextPowerOfTwo - Arrondit à la puissance de 2 supérieure
func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// bodyBounds is the box used by the grid: every collider, inflated by its margin.
func bodyBounds(body *actor.RigidBody) geometry.AABB {
	box := geometry.EmptyAABB()
	for _, c := range body.Colliders {
		box.Union(c.ComputeAABB(body.Transform).Inflate(c.Margin()))
	}
	return box
}

// Insert - Insère un body dans toutes les cellules qu'il occupe
func (sg *SpatialGrid) Insert(bodyIndex int, body *actor.RigidBody) {
	if len(body.Colliders) == 0 {
		return
	}

	box := bodyBounds(body)
	sg.forEachCell(box, func(cellIdx int) {
		cell := &sg.cells[cellIdx]
		// deux cellules voisines peuvent tomber sur le même slot
		if n := len(cell.bodyIndices); n > 0 && cell.bodyIndices[n-1] == bodyIndex {
			return
		}
		cell.bodyIndices = append(cell.bodyIndices, bodyIndex)
	})
}

func (sg *SpatialGrid) Clear() {
	for i := range sg.cells {
		sg.cells[i].bodyIndices = sg.cells[i].bodyIndices[:0]
	}
}

func (sg *SpatialGrid) SortCells() {
	for i := range sg.cells {
		if len(sg.cells[i].bodyIndices) > 1 {
			slices.Sort(sg.cells[i].bodyIndices)
		}
	}
}

// FindPairs returns every pair of bodies sharing a cell whose boxes overlap. Pairs are
// ordered by the index of BodyA, then of BodyB, and never duplicated.
func (sg *SpatialGrid) FindPairs(bodies []*actor.RigidBody) []Pair {
	pairs := make([]Pair, 0, len(bodies)/2)
	var candidates []int

	// ========== BOUCLE SUR BODIES ==========
	for bodyIdx, bodyA := range bodies {
		if len(bodyA.Colliders) == 0 {
			continue
		}
		boxA := bodyBounds(bodyA)

		candidates = candidates[:0]
		sg.forEachCell(boxA, func(cellIdx int) {
			for _, otherIdx := range sg.cells[cellIdx].bodyIndices {
				// ========== ORDRE DÉTERMINISTE ==========
				if otherIdx > bodyIdx {
					candidates = append(candidates, otherIdx)
				}
			}
		})
		slices.Sort(candidates)
		candidates = slices.Compact(candidates)

		for _, otherIdx := range candidates {
			bodyB := bodies[otherIdx]
			if bodyA.Frozen && bodyB.Frozen {
				continue
			}
			if boxA.Overlaps(bodyBounds(bodyB)) {
				pairs = append(pairs, Pair{BodyA: bodyA, BodyB: bodyB})
			}
		}
	}

	return pairs
}

func (sg *SpatialGrid) forEachCell(box geometry.AABB, fn func(cellIdx int)) {
	minCell := sg.worldToCell(box.Min)
	maxCell := sg.worldToCell(box.Max)

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				fn(sg.hashCell(CellKey{x, y, z}))
			}
		}
	}
}

// worldToCell - Convertit une position monde en coordonnées de cellule
func (sg *SpatialGrid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / sg.cellSize)),
		Y: int(math.Floor(pos.Y() / sg.cellSize)),
		Z: int(math.Floor(pos.Z() / sg.cellSize)),
	}
}

// hashCell - Hash une cellule vers un index dans l'array
func (sg *SpatialGrid) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & sg.cellMask
}

// bruteForcePairs tests every pair of bodies, for worlds without a grid.
func bruteForcePairs(bodies []*actor.RigidBody) []Pair {
	var pairs []Pair
	boxes := make([]geometry.AABB, len(bodies))
	for i, body := range bodies {
		boxes[i] = bodyBounds(body)
	}

	for i := 0; i < len(bodies); i++ {
		if len(bodies[i].Colliders) == 0 {
			continue
		}
		for j := i + 1; j < len(bodies); j++ {
			if len(bodies[j].Colliders) == 0 || (bodies[i].Frozen && bodies[j].Frozen) {
				continue
			}
			if boxes[i].Overlaps(boxes[j]) {
				pairs = append(pairs, Pair{BodyA: bodies[i], BodyB: bodies[j]})
			}
		}
	}

	return pairs
}
