package model

// Point is a screen or minimap coordinate. X is the column, Y the row,
// matching the (x, y) order the host expects in action arguments.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p offset by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Args encodes p as an action argument.
func (p Point) Args() []int { return []int{p.X, p.Y} }

// Layer is one 2-D feature plane supplied by the host, such as unit type,
// ownership or power. Cells are row-major: Data[row*Cols + col].
type Layer struct {
	Rows int   `json:"rows" jsonschema:"required,minimum=0"`
	Cols int   `json:"cols" jsonschema:"required,minimum=0"`
	Data []int `json:"data" jsonschema:"required"`
}

// NewLayer returns a zeroed rows x cols layer.
func NewLayer(rows, cols int) Layer {
	return Layer{Rows: rows, Cols: cols, Data: make([]int, rows*cols)}
}

// InBounds reports whether (x, y) addresses a cell of the layer.
func (l Layer) InBounds(x, y int) bool {
	return x >= 0 && x < l.Cols && y >= 0 && y < l.Rows && y*l.Cols+x < len(l.Data)
}

// At returns the value at column x, row y.
// Returns 0 for out-of-bounds coordinates.
func (l Layer) At(x, y int) int {
	if !l.InBounds(x, y) {
		return 0
	}
	return l.Data[y*l.Cols+x]
}

// Set writes v at column x, row y. Out-of-bounds writes are ignored.
func (l Layer) Set(x, y, v int) {
	if !l.InBounds(x, y) {
		return
	}
	l.Data[y*l.Cols+x] = v
}

// Where returns every cell equal to v in row-major order.
func (l Layer) Where(v int) []Point {
	if l.Cols <= 0 {
		return nil
	}
	var out []Point
	for i, c := range l.Data {
		if c != v {
			continue
		}
		out = append(out, Point{X: i % l.Cols, Y: i / l.Cols})
	}
	return out
}

// Count returns the number of cells equal to v.
func (l Layer) Count(v int) int {
	n := 0
	for _, c := range l.Data {
		if c == v {
			n++
		}
	}
	return n
}

// First returns the first cell equal to v in row-major order.
func (l Layer) First(v int) (Point, bool) {
	if l.Cols <= 0 {
		return Point{}, false
	}
	for i, c := range l.Data {
		if c == v {
			return Point{X: i % l.Cols, Y: i / l.Cols}, true
		}
	}
	return Point{}, false
}

// Centroid returns the mean column and row of the cells equal to v,
// truncated toward zero. ok is false when no cell matches.
func (l Layer) Centroid(v int) (p Point, ok bool) {
	pts := l.Where(v)
	if len(pts) == 0 {
		return Point{}, false
	}
	var sx, sy int
	for _, pt := range pts {
		sx += pt.X
		sy += pt.Y
	}
	return Point{X: sx / len(pts), Y: sy / len(pts)}, true
}

// MeanRow returns the mean row index of the cells equal to v.
// ok is false when no cell matches.
func (l Layer) MeanRow(v int) (mean float64, ok bool) {
	pts := l.Where(v)
	if len(pts) == 0 {
		return 0, false
	}
	sum := 0
	for _, pt := range pts {
		sum += pt.Y
	}
	return float64(sum) / float64(len(pts)), true
}

// Clamp pulls p inside the layer bounds.
func (l Layer) Clamp(p Point) Point {
	return Point{X: clampInt(p.X, 0, l.Cols-1), Y: clampInt(p.Y, 0, l.Rows-1)}
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
