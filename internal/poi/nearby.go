package poi

import (
	"github.com/roach88/cellstore/internal/cell"
)

// NearbyCells returns every cell at level whose corner rectangle intersects
// bounds, found by flood fill from the cell containing the center of bounds.
// The result is in breadth-first order from that cell. It is nil when level
// is out of range or the starting cell does not intersect bounds.
func NearbyCells(bounds cell.Bounds, level int) []cell.Cell {
	start, err := cell.CellAt(bounds.Center(), level)
	if err != nil {
		return nil
	}

	var out []cell.Cell
	seen := make(map[cell.ID]bool)
	queue := []cell.Cell{start}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]

		id := c.ID()
		if seen[id] {
			continue
		}
		seen[id] = true

		if !c.Bound().Intersects(bounds) {
			continue
		}
		out = append(out, c)
		for _, n := range c.Neighbors() {
			if !seen[n.ID()] {
				queue = append(queue, n)
			}
		}
	}
	return out
}
