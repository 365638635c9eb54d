package visstream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModes(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"flat", "smooth", "cool"} {
		mode, ok := ParseShading(name)
		assert.True(t, ok, name)
		assert.Equal(t, name, mode.String())
	}

	for _, name := range []string{"off", "on", "value", "mesh"} {
		mode, ok := ParseAutoscale(name)
		assert.True(t, ok, name)
		assert.Equal(t, name, mode.String())
	}

	_, ok := ParseShading("phong")
	assert.False(t, ok)
	_, ok = ParseAutoscale("sometimes")
	assert.False(t, ok)

	assert.Equal(t, "unknown", ShadingMode(9).String())
	assert.Equal(t, "unknown", AutoscaleMode(9).String())
}

func TestSnapshotCopiesCamera(t *testing.T) {
	t.Parallel()

	scene := NewScene(100, 50, "snapshot")
	scene.Camera = &[9]float64{1, 2, 3}

	state := scene.Snapshot()
	state.Camera[0] = 42
	state.Zoom = 7

	assert.Equal(t, 1.0, scene.Camera[0])
	assert.Equal(t, 1.0, scene.Zoom)
}

func TestViewStateMarshal(t *testing.T) {
	t.Parallel()

	scene := NewScene(640, 480, "marshal")
	scene.Shading = ShadingCool
	scene.Autoscale = AutoscaleMesh

	encoded, err := scene.Snapshot().Marshal()
	require.NoError(t, err)

	decoded := map[string]interface{}{}
	require.NoError(t, json.Unmarshal([]byte(encoded), &decoded))

	assert.Equal(t, 640.0, decoded["width"])
	assert.Equal(t, "marshal", decoded["title"])
	assert.Equal(t, "cool", decoded["shading"])
	assert.Equal(t, "mesh", decoded["autoscale"])
	assert.NotContains(t, decoded, "camera")
}

func TestWidenRange(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		id       string
		min, max float64
		widened  bool
	}{
		{"Should keep a wide range.", 0, 1, false},
		{"Should widen a constant field.", 5, 5, true},
		{"Should widen a zero field.", 0, 0, true},
		{"Should widen a relatively narrow range.", 1000, 1000.001, true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.id, func(t *testing.T) {
			t.Parallel()

			minValue, maxValue := widenRange(testCase.min, testCase.max)
			if !testCase.widened {
				assert.Equal(t, testCase.min, minValue)
				assert.Equal(t, testCase.max, maxValue)
				return
			}

			assert.Less(t, minValue, testCase.min)
			assert.Greater(t, maxValue, testCase.max)
		})
	}
}

func TestAutoscaleOnNewData(t *testing.T) {
	t.Parallel()

	data := newTestMesh(2, 4, 6, 8)

	testCases := []struct {
		id         string
		mode       AutoscaleMode
		wantBounds bool
		wantRange  bool
	}{
		{"Should fit both when on.", AutoscaleOn, true, true},
		{"Should fit the values only.", AutoscaleValue, false, true},
		{"Should fit the mesh only.", AutoscaleMesh, true, false},
		{"Should fit nothing when off.", AutoscaleOff, false, false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.id, func(t *testing.T) {
			t.Parallel()

			scene := NewScene(10, 10, "autoscale")
			scene.Mesh, scene.Field = data.Mesh, data.Field
			scene.autoscale(testCase.mode)

			assert.Equal(t, testCase.wantBounds, scene.Bounds.Max[0] == 1)
			assert.Equal(t, testCase.wantRange, scene.MinValue == 2 && scene.MaxValue == 8)
		})
	}
}
