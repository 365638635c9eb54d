package visstream

import (
	"fmt"

	"github.com/google/uuid"
)

type (
	// UUID identifies sessions and workers.
	UUID string

	// Kind of a command.
	Kind uint8

	// Command is one requested change of the visualization state.
	// The set of commands is closed, see the Kind constants.
	Command interface {
		fmt.Stringer
		// Kind returns the command variant.
		Kind() Kind
		command()
	}

	// NewMeshAndSolution replaces the displayed mesh and field.
	// Both objects belong to the receiver once posted.
	NewMeshAndSolution struct {
		Mesh  *Mesh
		Field *Field
	}

	// Screenshot captures the current frame into Path.
	Screenshot struct {
		Path string
	}

	// KeySequence replays key strokes on the viewer.
	KeySequence struct {
		Text string
	}

	// Resize sets the window size.
	Resize struct {
		Width, Height int
	}

	// Retitle sets the window title.
	Retitle struct {
		Title string
	}

	// Pause toggles command processing.
	Pause struct{}

	// ViewAngles sets the view direction in degrees.
	ViewAngles struct {
		Theta, Phi float64
	}

	// Zoom scales the view.
	Zoom struct {
		Factor float64
	}

	// Subdivisions sets the element refinement factors.
	Subdivisions struct {
		Total, Boundary int
	}

	// ValueRange fixes the colour bar range.
	ValueRange struct {
		Min, Max float64
	}

	// Shading selects flat, smooth or cool shading.
	Shading struct {
		Mode string
	}

	// ViewCenter moves the view centre.
	ViewCenter struct {
		X, Y float64
	}

	// Autoscale selects off, on, value or mesh autoscaling.
	Autoscale struct {
		Mode string
	}

	// Palette selects a colour palette.
	Palette struct {
		Index int
	}

	// Camera places the camera: position, direction and up vector.
	Camera struct {
		Params [9]float64
	}

	// Autopause switches autopause on or off.
	Autopause struct {
		Mode string
	}
)

const (
	// KindNone is the zero Kind, no command.
	KindNone Kind = iota
	KindNewMeshAndSolution
	KindScreenshot
	KindKeySequence
	KindResize
	KindRetitle
	KindPause
	KindViewAngles
	KindZoom
	KindSubdivisions
	KindValueRange
	KindShading
	KindViewCenter
	KindAutoscale
	KindPalette
	KindCamera
	KindAutopause
)

var kindNames = [...]string{
	KindNone:               "none",
	KindNewMeshAndSolution: "solution",
	KindScreenshot:         "screenshot",
	KindKeySequence:        "keys",
	KindResize:             "window_size",
	KindRetitle:            "window_title",
	KindPause:              "pause",
	KindViewAngles:         "view",
	KindZoom:               "zoom",
	KindSubdivisions:       "subdivisions",
	KindValueRange:         "valuerange",
	KindShading:            "shading",
	KindViewCenter:         "viewcenter",
	KindAutoscale:          "autoscale",
	KindPalette:            "palette",
	KindCamera:             "camera",
	KindAutopause:          "autopause",
}

// NewUUID creates new UUID.
func NewUUID() UUID {
	return UUID(uuid.New().String())
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Synchronous reports whether posters of this kind wait until the command is applied.
func (k Kind) Synchronous() bool {
	switch k {
	case KindNewMeshAndSolution, KindScreenshot:
		return true
	}

	return false
}

func (NewMeshAndSolution) Kind() Kind { return KindNewMeshAndSolution }
func (Screenshot) Kind() Kind         { return KindScreenshot }
func (KeySequence) Kind() Kind        { return KindKeySequence }
func (Resize) Kind() Kind             { return KindResize }
func (Retitle) Kind() Kind            { return KindRetitle }
func (Pause) Kind() Kind              { return KindPause }
func (ViewAngles) Kind() Kind         { return KindViewAngles }
func (Zoom) Kind() Kind               { return KindZoom }
func (Subdivisions) Kind() Kind       { return KindSubdivisions }
func (ValueRange) Kind() Kind         { return KindValueRange }
func (Shading) Kind() Kind            { return KindShading }
func (ViewCenter) Kind() Kind         { return KindViewCenter }
func (Autoscale) Kind() Kind          { return KindAutoscale }
func (Palette) Kind() Kind            { return KindPalette }
func (Camera) Kind() Kind             { return KindCamera }
func (Autopause) Kind() Kind          { return KindAutopause }

func (NewMeshAndSolution) command() {}
func (Screenshot) command()         {}
func (KeySequence) command()        {}
func (Resize) command()             {}
func (Retitle) command()            {}
func (Pause) command()              {}
func (ViewAngles) command()         {}
func (Zoom) command()               {}
func (Subdivisions) command()       {}
func (ValueRange) command()         {}
func (Shading) command()            {}
func (ViewCenter) command()         {}
func (Autoscale) command()          {}
func (Palette) command()            {}
func (Camera) command()             {}
func (Autopause) command()          {}

func (c NewMeshAndSolution) String() string {
	return fmt.Sprintf("%s[%s, %s]", c.Kind(), c.Mesh, c.Field)
}

func (c Screenshot) String() string   { return fmt.Sprintf("%s %q", c.Kind(), c.Path) }
func (c KeySequence) String() string  { return fmt.Sprintf("%s %q", c.Kind(), c.Text) }
func (c Resize) String() string       { return fmt.Sprintf("%s %d %d", c.Kind(), c.Width, c.Height) }
func (c Retitle) String() string      { return fmt.Sprintf("%s %q", c.Kind(), c.Title) }
func (c Pause) String() string        { return c.Kind().String() }
func (c ViewAngles) String() string   { return fmt.Sprintf("%s %g %g", c.Kind(), c.Theta, c.Phi) }
func (c Zoom) String() string         { return fmt.Sprintf("%s %g", c.Kind(), c.Factor) }
func (c Subdivisions) String() string { return fmt.Sprintf("%s %d %d", c.Kind(), c.Total, c.Boundary) }
func (c ValueRange) String() string   { return fmt.Sprintf("%s %g %g", c.Kind(), c.Min, c.Max) }
func (c Shading) String() string      { return fmt.Sprintf("%s %s", c.Kind(), c.Mode) }
func (c ViewCenter) String() string   { return fmt.Sprintf("%s %g %g", c.Kind(), c.X, c.Y) }
func (c Autoscale) String() string    { return fmt.Sprintf("%s %s", c.Kind(), c.Mode) }
func (c Palette) String() string      { return fmt.Sprintf("%s %d", c.Kind(), c.Index) }
func (c Camera) String() string       { return fmt.Sprintf("%s %v", c.Kind(), c.Params) }
func (c Autopause) String() string    { return fmt.Sprintf("%s %s", c.Kind(), c.Mode) }
