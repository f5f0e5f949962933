package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/delaynet/internal/network"
)

type Point struct{ X, Y float64 }

// PhasePortrait holds the activity of unit Y plotted against unit X.
type PhasePortrait struct {
	X, Y   int
	Points []Point
}

func checkUnit(tr *network.Trace, uid int) error {
	if uid < 0 || uid >= len(tr.Units) {
		return fmt.Errorf("unit %d not in trace of %d units", uid, len(tr.Units))
	}
	return nil
}

func NewPhasePortrait(tr *network.Trace, x, y int) (*PhasePortrait, error) {
	for _, uid := range []int{x, y} {
		if err := checkUnit(tr, uid); err != nil {
			return nil, err
		}
	}
	p := &PhasePortrait{X: x, Y: y, Points: make([]Point, len(tr.Times))}
	for s := range tr.Times {
		p.Points[s] = Point{tr.Units[x][s], tr.Units[y][s]}
	}
	return p, nil
}

// NewPoincareSection records (x, y) every time unit cross rises through
// level, interpolating linearly between the two bracketing steps.
func NewPoincareSection(tr *network.Trace, cross int, level float64, x, y int) (*PhasePortrait, error) {
	for _, uid := range []int{cross, x, y} {
		if err := checkUnit(tr, uid); err != nil {
			return nil, err
		}
	}
	p := &PhasePortrait{X: x, Y: y}
	c := tr.Units[cross]
	for s := 1; s < len(c); s++ {
		if c[s-1] < level && c[s] >= level {
			frac := (level - c[s-1]) / (c[s] - c[s-1])
			p.Points = append(p.Points, Point{
				X: lerp(tr.Units[x][s-1], tr.Units[x][s], frac),
				Y: lerp(tr.Units[y][s-1], tr.Units[y][s], frac),
			})
		}
	}
	return p, nil
}

func lerp(a, b, frac float64) float64 { return a + (b-a)*frac }

// ASCII draws the portrait on a width x height character grid, with axes
// where zero is in view.
func (p *PhasePortrait) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 {
		return "no points\n"
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}

	// 10% padding on each side
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, pt := range p.Points {
		col := int((pt.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((pt.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
