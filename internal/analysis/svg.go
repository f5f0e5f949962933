package analysis

import (
	"fmt"
	"strings"
)

// SVG draws the portrait as a single polyline on a dark background.
func (p *PhasePortrait) SVG(width, height int, stroke string) string {
	if p == nil || len(p.Points) < 2 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}
	padX := max((maxX-minX)*0.1, 0.1)
	padY := max((maxY-minY)*0.1, 0.1)
	minX, maxX = minX-padX, maxX+padX
	minY, maxY = minY-padY, maxY+padY

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="`, width, height, width, height, stroke)

	for i, pt := range p.Points {
		x := (pt.X - minX) / (maxX - minX) * float64(width)
		y := float64(height) - (pt.Y-minY)/(maxY-minY)*float64(height)
		cmd := " L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&sb, "%s%.1f,%.1f", cmd, x, y)
	}

	sb.WriteString(`"/>
</svg>
`)
	return sb.String()
}
