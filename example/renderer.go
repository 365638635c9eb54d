package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/ahmedkamals/visstream"
	"github.com/ahmedkamals/visstream/internal/errors"
	"golang.org/x/image/colornames"
)

type (
	// headless paints vertex values into an offscreen image. It is only
	// used from the render goroutine.
	headless struct {
		frame  *image.RGBA
		title  string
		logger visstream.Logger
	}
)

const pointRadius = 1

var (
	palettes = [][]color.RGBA{
		{colornames.Navy, colornames.Blue, colornames.Cyan, colornames.Yellow, colornames.Red},
		{colornames.Black, colornames.Darkred, colornames.Orange, colornames.Lightyellow, colornames.White},
		{colornames.Black, colornames.White},
		{colornames.Darkgreen, colornames.Lime, colornames.Yellow},
		{colornames.Purple, colornames.Magenta, colornames.Pink},
	}

	background = colornames.Black
	coolTint   = colornames.Lightsteelblue
)

func newHeadless(width, height int, title string, logger visstream.Logger) *headless {
	return &headless{
		frame:  image.NewRGBA(image.Rect(0, 0, width, height)),
		title:  title,
		logger: logger,
	}
}

func (h *headless) Resize(width, height int) error {
	const op errors.Operation = "headless.Resize"

	if width <= 0 || height <= 0 {
		return errors.E(op, errors.Invalid, errors.Errorf("bad size %dx%d", width, height))
	}

	h.frame = image.NewRGBA(image.Rect(0, 0, width, height))

	return nil
}

func (h *headless) SetTitle(title string) error {
	h.title = title

	return nil
}

// CallKeys has no key bindings to run without a window.
func (h *headless) CallKeys(keys string) error {
	h.logger.Log(fmt.Sprintf("Keys ignored by the headless renderer: %q", keys))

	return nil
}

func (h *headless) Frame() (image.Image, error) {
	frame := image.NewRGBA(h.frame.Bounds())
	draw.Draw(frame, frame.Bounds(), h.frame, image.Point{}, draw.Src)

	return frame, nil
}

func (h *headless) Redraw(scene *visstream.Scene) {
	draw.Draw(h.frame, h.frame.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)

	if scene.Mesh == nil || scene.Field == nil {
		return
	}

	palette := palettes[scene.Palette%len(palettes)]
	span := scene.MaxValue - scene.MinValue
	vdim := scene.Field.VectorDim

	for i, vertex := range scene.Mesh.Vertices {
		x, y, ok := h.project(scene, vertex)
		if !ok || (i+1)*vdim > len(scene.Field.Values) {
			continue
		}

		value := magnitude(scene.Field.Values[i*vdim : (i+1)*vdim])
		t := 0.0
		if span > 0 {
			t = (value - scene.MinValue) / span
		}

		c := interpolate(palette, t)
		switch scene.Shading {
		case visstream.ShadingFlat:
			c = interpolate(palette, math.Round(t*float64(len(palette)-1))/float64(len(palette)-1))
		case visstream.ShadingCool:
			c = blend(c, coolTint)
		}

		for dx := -pointRadius; dx <= pointRadius; dx++ {
			for dy := -pointRadius; dy <= pointRadius; dy++ {
				h.frame.SetRGBA(x+dx, y+dy, c)
			}
		}
	}
}

// project maps a vertex to a pixel. The z axis and the view angles are
// ignored: the headless renderer draws the plan view.
func (h *headless) project(scene *visstream.Scene, vertex []float64) (int, int, bool) {
	bounds := h.frame.Bounds()
	box := scene.Bounds

	position := [2]float64{}
	for axis := 0; axis < 2 && axis < len(vertex); axis++ {
		extent := box.Max[axis] - box.Min[axis]
		if extent <= 0 {
			position[axis] = 0.5
			continue
		}
		position[axis] = (vertex[axis] - box.Min[axis]) / extent
	}

	zoom := scene.Zoom
	if zoom <= 0 {
		zoom = 1
	}

	u := 0.5 + (position[0]-0.5-scene.CenterX)*zoom
	v := 0.5 + (position[1]-0.5-scene.CenterY)*zoom
	if u < 0 || u > 1 || v < 0 || v > 1 {
		return 0, 0, false
	}

	x := bounds.Min.X + int(u*float64(bounds.Dx()-1))
	y := bounds.Max.Y - 1 - int(v*float64(bounds.Dy()-1))

	return x, y, true
}

func magnitude(values []float64) float64 {
	if len(values) == 1 {
		return values[0]
	}

	sum := 0.0
	for _, value := range values {
		sum += value * value
	}

	return math.Sqrt(sum)
}

// interpolate picks the colour at t in [0, 1] along the palette stops.
func interpolate(palette []color.RGBA, t float64) color.RGBA {
	if len(palette) == 1 || math.IsNaN(t) {
		return palette[0]
	}

	t = math.Max(0, math.Min(1, t))
	position := t * float64(len(palette)-1)
	index := int(position)
	if index >= len(palette)-1 {
		return palette[len(palette)-1]
	}

	return lerp(palette[index], palette[index+1], position-float64(index))
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}

	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

func blend(a, b color.RGBA) color.RGBA {
	return lerp(a, b, 0.5)
}
