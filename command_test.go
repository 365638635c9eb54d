package visstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandKinds(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		id          string
		input       Command
		kind        Kind
		text        string
		synchronous bool
	}{
		{"Should describe new data.", newTestMesh(), KindNewMeshAndSolution, "solution[mesh[dim=2, vertices=4, elements=1], field[vdim=1, values=4]]", true},
		{"Should describe a screenshot.", Screenshot{Path: "a.png"}, KindScreenshot, `screenshot "a.png"`, true},
		{"Should describe keys.", KeySequence{Text: "Rj"}, KindKeySequence, `keys "Rj"`, false},
		{"Should describe a resize.", Resize{Width: 4, Height: 3}, KindResize, "window_size 4 3", false},
		{"Should describe a title.", Retitle{Title: "t"}, KindRetitle, `window_title "t"`, false},
		{"Should describe a pause.", Pause{}, KindPause, "pause", false},
		{"Should describe view angles.", ViewAngles{Theta: 1, Phi: 2}, KindViewAngles, "view 1 2", false},
		{"Should describe a zoom.", Zoom{Factor: 1.5}, KindZoom, "zoom 1.5", false},
		{"Should describe subdivisions.", Subdivisions{Total: 2, Boundary: 1}, KindSubdivisions, "subdivisions 2 1", false},
		{"Should describe a value range.", ValueRange{Min: -1, Max: 1}, KindValueRange, "valuerange -1 1", false},
		{"Should describe shading.", Shading{Mode: "flat"}, KindShading, "shading flat", false},
		{"Should describe a view center.", ViewCenter{X: 0.5, Y: 0}, KindViewCenter, "viewcenter 0.5 0", false},
		{"Should describe autoscale.", Autoscale{Mode: "off"}, KindAutoscale, "autoscale off", false},
		{"Should describe a palette.", Palette{Index: 3}, KindPalette, "palette 3", false},
		{"Should describe autopause.", Autopause{Mode: "on"}, KindAutopause, "autopause on", false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.id, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.kind, testCase.input.Kind())
			assert.Equal(t, testCase.text, testCase.input.String())
			assert.Equal(t, testCase.synchronous, testCase.input.Kind().Synchronous())
		})
	}
}

func TestNewUUID(t *testing.T) {
	t.Parallel()

	first, second := NewUUID(), NewUUID()

	assert.Len(t, string(first), 36)
	assert.NotEqual(t, first, second)
}
