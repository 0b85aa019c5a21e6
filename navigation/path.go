package navigation

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type pathNode struct {
	cell    int
	x, y, z int
	g, h, f float64
	parent  *pathNode
	index   int // for heap
	closed  bool
}

type priorityQueue []*pathNode

func (pq priorityQueue) Len() int { return len(pq) }

// Less breaks ties on the heuristic then on the cell, so equal-cost paths come out the
// same on every run.
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	if pq[i].h != pq[j].h {
		return pq[i].h < pq[j].h
	}
	return pq[i].cell < pq[j].cell
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*pathNode)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	item.index = -1
	*pq = old[:n-1]
	return item
}

// FindPath searches the shortest walkable path between the cells of start and goal with
// A*. Agents move to any of the 8 horizontal neighbors, climbing or dropping one cell at
// most. The path lists the ground point of every cell crossed, start and goal included.
func (g *Grid) FindPath(start, goal mgl64.Vec3) ([]mgl64.Vec3, error) {
	sx, sy, sz, err := g.standingCell(start)
	if err != nil {
		return nil, fmt.Errorf("start %v: %w", start, err)
	}
	gx, gy, gz, err := g.standingCell(goal)
	if err != nil {
		return nil, fmt.Errorf("goal %v: %w", goal, err)
	}

	heuristic := func(x, y, z int) float64 {
		return math.Sqrt(float64((x-gx)*(x-gx) + (y-gy)*(y-gy) + (z-gz)*(z-gz)))
	}

	openSet := &priorityQueue{}
	visited := make(map[int]*pathNode)

	startNode := &pathNode{cell: g.index(sx, sy, sz), x: sx, y: sy, z: sz, h: heuristic(sx, sy, sz)}
	startNode.f = startNode.h
	heap.Push(openSet, startNode)
	visited[startNode.cell] = startNode

	for openSet.Len() > 0 {
		current := heap.Pop(openSet).(*pathNode)
		current.closed = true

		if current.x == gx && current.y == gy && current.z == gz {
			return g.reconstruct(current), nil
		}

		for dz := -1; dz <= 1; dz++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dz == 0 {
					continue
				}
				for _, dy := range [3]int{0, 1, -1} {
					nx, ny, nz := current.x+dx, current.y+dy, current.z+dz
					if !g.canMove(current.x, current.y, current.z, dx, dy, dz) {
						continue
					}

					cell := g.index(nx, ny, nz)
					newG := current.g + math.Sqrt(float64(dx*dx+dy*dy+dz*dz))
					node, exists := visited[cell]
					if exists && (node.closed || newG >= node.g) {
						continue
					}

					if !exists {
						node = &pathNode{cell: cell, x: nx, y: ny, z: nz, h: heuristic(nx, ny, nz)}
						visited[cell] = node
					}
					node.g = newG
					node.f = node.g + node.h
					node.parent = current
					if !exists {
						heap.Push(openSet, node)
					} else {
						// Update priority
						heap.Fix(openSet, node.index)
					}
				}
			}
		}
	}

	return nil, ErrNoPath
}

// standingCell finds the walkable cell of an agent at p. Positions lying on the ground
// fall in the solid cell under the walkable one, so the cell above is tried next.
func (g *Grid) standingCell(p mgl64.Vec3) (int, int, int, error) {
	x, y, z, ok := g.cellOf(p)
	if !ok {
		return 0, 0, 0, ErrOutOfBounds
	}
	for _, dy := range [3]int{0, 1, -1} {
		if g.isWalkable(x, y+dy, z) {
			return x, y + dy, z, nil
		}
	}
	return 0, 0, 0, ErrNotWalkable
}

// canMove checks a single move. The agent column must stay clear over the whole move:
// above the current cell when climbing, above the target when dropping, and on both
// sides of a diagonal.
func (g *Grid) canMove(x, y, z, dx, dy, dz int) bool {
	if !g.isWalkable(x+dx, y+dy, z+dz) {
		return false
	}

	top := max(y, y+dy)
	if dy > 0 && g.isSolid(x, y+g.Clearance, z) {
		return false
	}
	if dy < 0 && g.isSolid(x+dx, y, z+dz) {
		return false
	}
	if dx != 0 && dz != 0 {
		if !g.isClear(x+dx, top, z) || !g.isClear(x, top, z+dz) {
			return false
		}
	}
	return true
}

func (g *Grid) reconstruct(node *pathNode) []mgl64.Vec3 {
	var path []mgl64.Vec3
	for n := node; n != nil; n = n.parent {
		path = append(path, g.waypoint(n.x, n.y, n.z))
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
