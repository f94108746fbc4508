package world

import "fmt"

// Grid is a fixed-extent occupancy index. Each cell holds the ID of at most
// one occupant, or "" when empty. The grid does not own occupants.
type Grid struct {
	width  int
	height int
	cells  []string
}

// NewGrid creates an empty grid of the given dimensions
func NewGrid(width, height int) *Grid {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &Grid{
		width:  width,
		height: height,
		cells:  make([]string, width*height),
	}
}

// Width returns the number of columns
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows
func (g *Grid) Height() int { return g.height }

// InBounds reports whether the ground projection of p lies on the grid
func (g *Grid) InBounds(p Position) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

func (g *Grid) index(p Position) (int, error) {
	if !g.InBounds(p) {
		return 0, fmt.Errorf("%w: %s outside %dx%d grid", ErrOutOfBounds, p.Ground(), g.width, g.height)
	}
	return p.Y*g.width + p.X, nil
}

// Register places an occupant on an empty cell. It never overwrites an
// existing occupant.
func (g *Grid) Register(p Position, id string) error {
	i, err := g.index(p)
	if err != nil {
		return err
	}
	if g.cells[i] != "" {
		return fmt.Errorf("%w: %s is held by %s", ErrOccupied, p.Ground(), g.cells[i])
	}
	g.cells[i] = id
	return nil
}

// IsOccupied reports whether the cell at p holds an occupant
func (g *Grid) IsOccupied(p Position) (bool, error) {
	i, err := g.index(p)
	if err != nil {
		return false, err
	}
	return g.cells[i] != "", nil
}

// OccupantAt returns the ID registered at p, or "" when the cell is empty
func (g *Grid) OccupantAt(p Position) (string, error) {
	i, err := g.index(p)
	if err != nil {
		return "", err
	}
	return g.cells[i], nil
}

// Clear empties the cell at p if it holds id. Clearing a cell held by a
// different occupant is a no-op.
func (g *Grid) Clear(p Position, id string) {
	i, err := g.index(p)
	if err != nil {
		return
	}
	if g.cells[i] == id {
		g.cells[i] = ""
	}
}

// Relocate moves id from one cell to another as a single step: the
// destination is validated first, then the source is cleared and the
// destination set.
func (g *Grid) Relocate(from, to Position, id string) error {
	dst, err := g.index(to)
	if err != nil {
		return err
	}
	if held := g.cells[dst]; held != "" && held != id {
		return fmt.Errorf("%w: %s is held by %s", ErrOccupied, to.Ground(), held)
	}
	g.Clear(from, id)
	g.cells[dst] = id
	return nil
}

// OccupiedCount returns the number of non-empty cells
func (g *Grid) OccupiedCount() int {
	count := 0
	for _, id := range g.cells {
		if id != "" {
			count++
		}
	}
	return count
}

// Occupied returns every occupied cell keyed by position
func (g *Grid) Occupied() map[Position]string {
	result := make(map[Position]string)
	for i, id := range g.cells {
		if id != "" {
			result[Position{X: i % g.width, Y: i / g.width}] = id
		}
	}
	return result
}
