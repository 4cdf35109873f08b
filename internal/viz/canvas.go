package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/spatial/r2"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Ink selects the colour of a cell. A terminal cell holds eight dots but one
// colour, so the highest ink painted into a cell wins.
type Ink uint8

// Canvas is a braille pixel buffer. Its size in sub-pixels is
// (Width*2) x (Height*4).
type Canvas struct {
	Width, Height int
	Grid          [][]rune
	Ink           [][]Ink
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
		Ink:    make([][]Ink, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		c.Ink[i] = make([]Ink, w)
	}
	c.Clear()
	return c
}

func (c *Canvas) cell(x, y int) (row, col int, ok bool) {
	if x < 0 || y < 0 {
		return 0, 0, false
	}
	col, row = x/2, y/4
	if col >= c.Width || row >= c.Height {
		return 0, 0, false
	}
	return row, col, true
}

// Set lights a sub-pixel with the default ink.
func (c *Canvas) Set(x, y int) { c.Paint(x, y, 0) }

// Paint lights a sub-pixel and raises the cell's ink to at least ink.
func (c *Canvas) Paint(x, y int, ink Ink) {
	row, col, ok := c.cell(x, y)
	if !ok {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
	if ink > c.Ink[row][col] {
		c.Ink[row][col] = ink
	}
}

// Lit reports whether the sub-pixel is set.
func (c *Canvas) Lit(x, y int) bool {
	row, col, ok := c.cell(x, y)
	if !ok {
		return false
	}
	return c.Grid[row][col]&rune(pixelMap[y%4][x%2]) != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
			c.Ink[i][j] = 0
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawCircle outlines a circle of radius r sub-pixels.
func (c *Canvas) DrawCircle(cx, cy int, r float64) {
	n := int(4*math.Pi*r) + 8
	for i := 0; i < n; i++ {
		th := 2 * math.Pi * float64(i) / float64(n)
		c.Set(cx+int(math.Round(r*math.Cos(th))), cy+int(math.Round(r*math.Sin(th))))
	}
}

// FillDisc paints every sub-pixel within r of (cx, cy). A radius below one
// still paints the centre.
func (c *Canvas) FillDisc(cx, cy int, r float64, ink Ink) {
	ri := int(r)
	for dy := -ri; dy <= ri; dy++ {
		for dx := -ri; dx <= ri; dx++ {
			if float64(dx*dx+dy*dy) <= r*r {
				c.Paint(cx+dx, cy+dy, ink)
			}
		}
	}
	c.Paint(cx, cy, ink)
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Render is String with each cell coloured by inks[cell ink]. Runs of equal
// ink share one style.
func (c *Canvas) Render(inks []lipgloss.Color) string {
	var b strings.Builder
	for i, row := range c.Grid {
		start := 0
		for j := 1; j <= len(row); j++ {
			if j < len(row) && c.Ink[i][j] == c.Ink[i][start] {
				continue
			}
			run := string(row[start:j])
			if ink := int(c.Ink[i][start]); ink < len(inks) && inks[ink] != "" {
				run = lipgloss.NewStyle().Foreground(inks[ink]).Render(run)
			}
			b.WriteString(run)
			start = j
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Viewport maps world coordinates onto a canvas, keeping the aspect ratio
// of braille dots square and the origin in the middle.
type Viewport struct {
	Extent     float64
	Cols, Rows int
}

// Scale is sub-pixels per world unit.
func (v Viewport) Scale() float64 {
	if v.Extent <= 0 {
		return 1
	}
	return math.Min(float64(v.Cols*2), float64(v.Rows*4)) / v.Extent
}

// Project returns the sub-pixel under p. y grows upward in world space.
func (v Viewport) Project(p r2.Vec) (int, int) {
	s := v.Scale()
	cx, cy := float64(v.Cols*2)/2, float64(v.Rows*4)/2
	return int(math.Floor(cx + p.X*s)), int(math.Floor(cy - p.Y*s))
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
