package visstream

import (
	"encoding/json"
	"image"
	"math"

	"github.com/ahmedkamals/visstream/internal/errors"
)

type (
	// ShadingMode of the surface.
	ShadingMode uint8

	// AutoscaleMode decides what is recomputed when new data arrives.
	AutoscaleMode uint8

	// Viewer is the rendering collaborator. Every method is called on the
	// render goroutine only.
	Viewer interface {
		// Resize the window.
		Resize(width, height int) error
		// SetTitle of the window.
		SetTitle(string) error
		// CallKeys runs the handlers bound to the given keys.
		CallKeys(string) error
		// Frame returns the last rendered frame.
		Frame() (image.Image, error)
		// Redraw schedules a new frame of scene.
		Redraw(*Scene)
	}

	// ScreenshotWriter stores a frame into a file.
	ScreenshotWriter func(image.Image, string) error

	// SubdivisionFactors of the element refinement.
	SubdivisionFactors struct {
		Total    int `json:"total"`
		Boundary int `json:"boundary"`
	}

	// ViewState is the plain value part of the scene.
	ViewState struct {
		Width        int                `json:"width"`
		Height       int                `json:"height"`
		Title        string             `json:"title"`
		Theta        float64            `json:"theta"`
		Phi          float64            `json:"phi"`
		Zoom         float64            `json:"zoom"`
		Subdivisions SubdivisionFactors `json:"subdivisions"`
		MinValue     float64            `json:"min_value"`
		MaxValue     float64            `json:"max_value"`
		Shading      ShadingMode        `json:"shading"`
		CenterX      float64            `json:"center_x"`
		CenterY      float64            `json:"center_y"`
		Autoscale    AutoscaleMode      `json:"autoscale"`
		Palette      int                `json:"palette"`
		Camera       *[9]float64        `json:"camera,omitempty"`
		Bounds       Box                `json:"bounds"`
	}

	// Scene is the visualization state read by the renderer. It is owned by
	// the render goroutine: only the Executor mutates it.
	Scene struct {
		ViewState
		Mesh           *Mesh
		Field          *Field
		// KeepAttributes keeps the bounds and the value range of the
		// first data set when new data arrives.
		KeepAttributes bool
		FixOrientation bool
	}
)

const (
	ShadingFlat ShadingMode = iota
	ShadingSmooth
	ShadingCool
)

const (
	AutoscaleOff AutoscaleMode = iota
	AutoscaleOn
	AutoscaleValue
	AutoscaleMesh
)

// minNormalFloat32 is the smallest normal float32.
const minNormalFloat32 = 0x1p-126

var (
	shadingNames   = [...]string{"flat", "smooth", "cool"}
	autoscaleNames = [...]string{"off", "on", "value", "mesh"}
)

// NewScene creates a scene with the default view.
func NewScene(width, height int, title string) *Scene {
	return &Scene{
		ViewState: ViewState{
			Width:        width,
			Height:       height,
			Title:        title,
			Zoom:         1,
			Subdivisions: SubdivisionFactors{Total: 1, Boundary: 1},
			MinValue:     0,
			MaxValue:     1,
			Shading:      ShadingSmooth,
			Autoscale:    AutoscaleOn,
		},
	}
}

// ParseShading converts a shading name.
func ParseShading(name string) (ShadingMode, bool) {
	for mode, modeName := range shadingNames {
		if modeName == name {
			return ShadingMode(mode), true
		}
	}

	return 0, false
}

func (s ShadingMode) String() string {
	if int(s) < len(shadingNames) {
		return shadingNames[s]
	}

	return "unknown"
}

func (s ShadingMode) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseAutoscale converts an autoscale name.
func ParseAutoscale(name string) (AutoscaleMode, bool) {
	for mode, modeName := range autoscaleNames {
		if modeName == name {
			return AutoscaleMode(mode), true
		}
	}

	return 0, false
}

func (a AutoscaleMode) String() string {
	if int(a) < len(autoscaleNames) {
		return autoscaleNames[a]
	}

	return "unknown"
}

func (a AutoscaleMode) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Snapshot copies the view state.
func (s *Scene) Snapshot() ViewState {
	state := s.ViewState
	if s.Camera != nil {
		camera := *s.Camera
		state.Camera = &camera
	}

	return state
}

// autoscale recomputes the bounds and/or the value range as mode asks.
func (s *Scene) autoscale(mode AutoscaleMode) {
	switch mode {
	case AutoscaleOn:
		s.Bounds = s.Mesh.Bounds()
		s.fitValueRange()
	case AutoscaleValue:
		s.fitValueRange()
	case AutoscaleMesh:
		s.Bounds = s.Mesh.Bounds()
	}
}

func (s *Scene) fitValueRange() {
	if s.Field == nil {
		return
	}

	s.MinValue, s.MaxValue = widenRange(s.Field.Range())
}

// widenRange opens up a range too narrow for single precision colouring.
func widenRange(minValue, maxValue float64) (float64, float64) {
	magnitude := math.Max(math.Abs(minValue), math.Abs(maxValue))
	if float32(magnitude) < 100*minNormalFloat32 {
		magnitude = 1e-3
	}

	if maxValue-minValue < 1e-5*magnitude {
		minValue -= 0.49999e-5 * magnitude
		maxValue += 0.50001e-5 * magnitude
	}

	return minValue, maxValue
}

// Marshal returns the JSON encoding of the view state.
func (v ViewState) Marshal() (string, error) {
	const op errors.Operation = "ViewState.Marshal"

	encodedData, err := json.Marshal(v)
	if err != nil {
		return "", errors.E(op, errors.Failure, err)
	}

	return string(encodedData), nil
}
