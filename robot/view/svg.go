// Package view renders a model snapshot as an SVG document: the cell
// lattice, and the robot translated to its cell with an eye marker
// rotated to its facing. The robot group carries a CSS transition so
// discrete position changes animate smoothly in the browser; correctness
// of motion lives entirely in the state machine.
package view

import (
	"fmt"
	"html/template"
	"io"

	"github.com/maca/robotgrid/robot/engine"
)

var gridTemplate = template.Must(template.New("grid").Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
<style>.robot { transition: transform 120ms linear; }</style>
<rect width="{{.Width}}" height="{{.Height}}" fill="#f4f4f4"/>
{{- range .Cells}}
<rect x="{{.X}}" y="{{.Y}}" width="{{$.CellSize}}" height="{{$.CellSize}}" fill="none" stroke="#c9c9c9" stroke-width="1"/>
{{- end}}
<g class="robot" transform="translate({{.RobotX}} {{.RobotY}})">
<circle cx="{{.Half}}" cy="{{.Half}}" r="{{.BodyR}}" fill="#3a7bd5"/>
<g transform="rotate({{.EyeAngle}} {{.Half}} {{.Half}})">
<circle cx="{{.Half}}" cy="{{.EyeY}}" r="{{.EyeR}}" fill="#ffffff"/>
<circle cx="{{.Half}}" cy="{{.EyeY}}" r="{{.PupilR}}" fill="#1b1b1b"/>
</g>
</g>
</svg>
`))

type cell struct {
	X, Y int
}

type gridView struct {
	Width    int
	Height   int
	CellSize int
	Cells    []cell
	RobotX   int
	RobotY   int
	Half     int
	BodyR    int
	EyeY     int
	EyeR     int
	PupilR   int
	EyeAngle int
}

// eyeAngle maps a facing to the rotation of the eye group. The eye sits
// at the top of the body at angle zero, which is the Up facing.
func eyeAngle(o engine.Orientation) int {
	switch o {
	case engine.Up:
		return 0
	case engine.Right:
		return 90
	case engine.Down:
		return 180
	case engine.Left:
		return 270
	default:
		return 0
	}
}

// Render writes the SVG document for a snapshot.
func Render(w io.Writer, snap engine.Snapshot) error {
	if snap.GridSize <= 0 || snap.CellSize <= 0 {
		return fmt.Errorf("invalid snapshot dimensions %dx%d cells of %dpx",
			snap.GridSize, snap.GridSize, snap.CellSize)
	}

	cs := snap.CellSize
	v := gridView{
		Width:    snap.GridSize * cs,
		Height:   snap.GridSize * cs,
		CellSize: cs,
		RobotX:   snap.Model.Position.X * cs,
		RobotY:   snap.Model.Position.Y * cs,
		Half:     cs / 2,
		BodyR:    cs * 2 / 5,
		EyeY:     cs / 5,
		EyeR:     cs / 8,
		PupilR:   cs / 16,
		EyeAngle: eyeAngle(snap.Model.Facing),
	}
	for y := 0; y < snap.GridSize; y++ {
		for x := 0; x < snap.GridSize; x++ {
			v.Cells = append(v.Cells, cell{X: x * cs, Y: y * cs})
		}
	}

	return gridTemplate.Execute(w, v)
}
