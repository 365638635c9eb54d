package visstream

import (
	"context"
	"testing"

	"github.com/ahmedkamals/visstream/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMeshAndSolutionIsVisibleAfterAwait(t *testing.T) {
	t.Parallel()

	mailbox, _ := newTestMailbox()
	executor := newTestExecutor(mailbox)

	ctx, cancel := context.WithCancel(context.Background())
	done := pump(ctx, executor.Executor, mailbox.Signal())
	defer func() {
		cancel()
		<-done
	}()

	data := newTestMesh()
	require.NoError(t, mailbox.PostAndAwaitCompletion(context.Background(), data))

	scene := executor.Scene()
	assert.Same(t, data.Mesh, scene.Mesh)
	assert.Same(t, data.Field, scene.Field)
	assert.Equal(t, 0.0, scene.MinValue)
	assert.Equal(t, 3.0, scene.MaxValue)
	assert.Equal(t, [3]float64{1, 1, 0}, scene.Bounds.Max)
}

func TestApply(t *testing.T) {
	t.Parallel()

	camera := [9]float64{1, 2, 3, 0, 0, 0, 0, 1, 0}

	testCases := []struct {
		id       string
		input    Command
		expected func(*Scene) ViewState
	}{
		{
			"Should resize the window.",
			Resize{Width: 800, Height: 600},
			func(s *Scene) ViewState { s.Width, s.Height = 800, 600; return s.ViewState },
		},
		{
			"Should retitle the window.",
			Retitle{Title: "pressure"},
			func(s *Scene) ViewState { s.Title = "pressure"; return s.ViewState },
		},
		{
			"Should set view angles.",
			ViewAngles{Theta: 30, Phi: 45},
			func(s *Scene) ViewState { s.Theta, s.Phi = 30, 45; return s.ViewState },
		},
		{
			"Should multiply the zoom.",
			Zoom{Factor: 1.5},
			func(s *Scene) ViewState { s.Zoom = 1.5; return s.ViewState },
		},
		{
			"Should set subdivisions.",
			Subdivisions{Total: 4, Boundary: 2},
			func(s *Scene) ViewState { s.Subdivisions = SubdivisionFactors{4, 2}; return s.ViewState },
		},
		{
			"Should set the value range.",
			ValueRange{Min: -1, Max: 5},
			func(s *Scene) ViewState { s.MinValue, s.MaxValue = -1, 5; return s.ViewState },
		},
		{
			"Should set shading.",
			Shading{Mode: "cool"},
			func(s *Scene) ViewState { s.Shading = ShadingCool; return s.ViewState },
		},
		{
			"Should set the view center.",
			ViewCenter{X: 0.25, Y: -0.5},
			func(s *Scene) ViewState { s.CenterX, s.CenterY = 0.25, -0.5; return s.ViewState },
		},
		{
			"Should set autoscale.",
			Autoscale{Mode: "mesh"},
			func(s *Scene) ViewState { s.Autoscale = AutoscaleMesh; return s.ViewState },
		},
		{
			"Should set the palette.",
			Palette{Index: 7},
			func(s *Scene) ViewState { s.Palette = 7; return s.ViewState },
		},
		{
			"Should set the camera.",
			Camera{Params: camera},
			func(s *Scene) ViewState { s.Camera = &camera; return s.ViewState },
		},
		{
			"Should pass keys to the viewer.",
			KeySequence{Text: "mj"},
			func(s *Scene) ViewState { return s.ViewState },
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.id, func(t *testing.T) {
			t.Parallel()

			mailbox, _ := newTestMailbox()
			executor := newTestExecutor(mailbox)

			require.NoError(t, executor.Apply(testCase.input))

			expected := testCase.expected(NewScene(320, 240, "test"))
			assert.Equal(t, expected, executor.Scene().Snapshot())
			assert.Equal(t, ExecIdle, executor.State())
			assert.True(t, executor.logger.contains("Command: "+testCase.input.Kind().String()))
		})
	}
}

func TestApplyFailureLeavesSceneUntouched(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		id    string
		input Command
	}{
		{"Should reject a non positive window size.", Resize{Width: 0, Height: 10}},
		{"Should reject a zero zoom.", Zoom{Factor: 0}},
		{"Should reject an inverted value range.", ValueRange{Min: 2, Max: 1}},
		{"Should reject an unknown shading.", Shading{Mode: "phong"}},
		{"Should reject an unknown autoscale mode.", Autoscale{Mode: "sometimes"}},
		{"Should reject a negative palette.", Palette{Index: -1}},
		{"Should reject non positive subdivisions.", Subdivisions{Total: 0, Boundary: 1}},
		{"Should reject a missing mesh.", NewMeshAndSolution{}},
		{"Should reject a field of the wrong size.", newTestMesh(1, 2)},
	}

	for _, testCase := range testCases {
		t.Run(testCase.id, func(t *testing.T) {
			t.Parallel()

			mailbox, _ := newTestMailbox()
			executor := newTestExecutor(mailbox)
			before := executor.Scene().Snapshot()

			err := executor.Apply(testCase.input)

			assert.True(t, errors.Is(errors.ApplyFailure, err), err)
			assert.Equal(t, before, executor.Scene().Snapshot())
			assert.Nil(t, executor.Scene().Mesh)
		})
	}
}

func TestMismatchedFieldReleasesWaiter(t *testing.T) {
	t.Parallel()

	mailbox, _ := newTestMailbox()
	executor := newTestExecutor(mailbox)

	ctx, cancel := context.WithCancel(context.Background())
	done := pump(ctx, executor.Executor, mailbox.Signal())
	defer func() {
		cancel()
		<-done
	}()

	first := newTestMesh()
	require.NoError(t, mailbox.PostAndAwaitCompletion(context.Background(), first))

	vector := newTestMesh(0, 0, 1, 1, 2, 2, 3, 3)
	vector.Field.VectorDim = 2
	require.NoError(t, mailbox.PostAndAwaitCompletion(context.Background(), vector), "The waiter is released even when apply fails.")

	err := executor.queue.getError()
	assert.True(t, errors.Is(errors.ApplyFailure, err))
	assert.Contains(t, err.Error(), "field type does not match")
	assert.Same(t, first.Field, executor.Scene().Field)
}

func TestValueRangeIsIdempotent(t *testing.T) {
	t.Parallel()

	mailbox, _ := newTestMailbox()
	executor := newTestExecutor(mailbox)
	cmd := ValueRange{Min: -2.5, Max: 7}

	require.NoError(t, executor.Apply(cmd))
	once := executor.Scene().Snapshot()

	require.NoError(t, executor.Apply(cmd))
	assert.Equal(t, once, executor.Scene().Snapshot())
}

func TestScreenshot(t *testing.T) {
	t.Parallel()

	mailbox, _ := newTestMailbox()
	executor := newTestExecutor(mailbox)

	require.NoError(t, executor.Apply(Screenshot{Path: "frame.png"}))
	assert.Equal(t, []string{"frame.png"}, executor.screenshots.written())

	executor.screenshots.err = errors.Errorf("disk full")
	err := executor.Apply(Screenshot{Path: "other.png"})
	assert.True(t, errors.Is(errors.ApplyFailure, err))

	executor.viewer.frameErr = errors.Errorf("no frame yet")
	err = executor.Apply(Screenshot{Path: "third.png"})
	assert.True(t, errors.Is(errors.ApplyFailure, err))
}

func TestAutopauseHaltsPumping(t *testing.T) {
	t.Parallel()

	mailbox, _ := newTestMailbox()
	executor := newTestExecutor(mailbox)

	require.NoError(t, executor.Apply(Autopause{Mode: "on"}))
	assert.Equal(t, ExecPaused, executor.State(), "Switching autopause on pauses immediately.")
	executor.Resume()
	assert.Equal(t, ExecIdle, executor.State())

	require.NoError(t, mailbox.Post(context.Background(), newTestMesh()))
	assert.True(t, executor.PumpOnce())
	assert.Equal(t, ExecPaused, executor.State())

	require.NoError(t, mailbox.Post(context.Background(), Zoom{Factor: 2}))
	for i := 0; i < 3; i++ {
		assert.False(t, executor.PumpOnce(), "A paused executor should not drain.")
	}
	assert.Equal(t, 1.0, executor.Scene().Zoom)

	executor.Resume()
	ready, err := mailbox.Signal().Wait(0)
	require.NoError(t, err)
	assert.True(t, ready, "Resume should wake the render loop.")

	assert.True(t, executor.PumpOnce())
	assert.Equal(t, 2.0, executor.Scene().Zoom)
	assert.Equal(t, ExecIdle, executor.State(), "Only new data triggers autopause.")

	require.NoError(t, executor.Apply(Autopause{Mode: "off"}))
	assert.False(t, executor.Autopause())

	require.NoError(t, executor.Apply(newTestMesh(3, 2, 1, 0)))
	assert.Equal(t, ExecIdle, executor.State())
}

func TestPauseToggles(t *testing.T) {
	t.Parallel()

	mailbox, _ := newTestMailbox()
	executor := newTestExecutor(mailbox)

	require.NoError(t, mailbox.Post(context.Background(), Pause{}))
	assert.True(t, executor.PumpOnce())
	assert.Equal(t, ExecPaused, executor.State())

	require.NoError(t, executor.Apply(Pause{}))
	assert.Equal(t, ExecIdle, executor.State())
}

func TestToggleAutopause(t *testing.T) {
	t.Parallel()

	mailbox, _ := newTestMailbox()
	executor := newTestExecutor(mailbox)

	executor.ToggleAutopause()
	assert.True(t, executor.Autopause())
	assert.Equal(t, ExecPaused, executor.State())
	assert.True(t, executor.logger.contains("Autopause: on"))

	executor.ToggleAutopause()
	assert.False(t, executor.Autopause())
	assert.Equal(t, ExecIdle, executor.State())
}

func TestAutoscaleModes(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		id          string
		mode        string
		expectRange [2]float64
		expectMax   [3]float64
	}{
		{"Should fit everything.", "on", [2]float64{10, 40}, [3]float64{1, 1, 0}},
		{"Should fit the value range only.", "value", [2]float64{10, 40}, [3]float64{}},
		{"Should fit the mesh only.", "mesh", [2]float64{0, 1}, [3]float64{1, 1, 0}},
		{"Should fit nothing.", "off", [2]float64{0, 1}, [3]float64{}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.id, func(t *testing.T) {
			t.Parallel()

			mailbox, _ := newTestMailbox()
			executor := newTestExecutor(mailbox)

			if testCase.mode != "on" {
				require.NoError(t, executor.Apply(Autoscale{Mode: testCase.mode}))
			}
			require.NoError(t, executor.Apply(newTestMesh(10, 20, 30, 40)))

			scene := executor.Scene()
			assert.Equal(t, testCase.expectRange, [2]float64{scene.MinValue, scene.MaxValue})
			assert.Equal(t, testCase.expectMax, scene.Bounds.Max)
		})
	}
}

func TestPanicInViewerIsReported(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		id        string
		input     Command
		autopause bool
		expected  ExecState
	}{
		{"Should report a panic in a key handler.", KeySequence{Text: "q"}, false, ExecIdle},
		{"Should report a panic while drawing new data.", newTestMesh(), false, ExecIdle},
		{"Should autopause after new data that panicked.", newTestMesh(), true, ExecPaused},
	}

	for _, testCase := range testCases {
		t.Run(testCase.id, func(t *testing.T) {
			t.Parallel()

			mailbox, _ := newTestMailbox()
			executor := newTestExecutor(mailbox)
			executor.Executor.viewer = panickingViewer{fakeViewer: newFakeViewer()}

			if testCase.autopause {
				require.NoError(t, executor.Apply(Autopause{Mode: "on"}))
				executor.Resume()
			}

			require.NoError(t, mailbox.Post(context.Background(), testCase.input))
			assert.True(t, executor.PumpOnce())

			err := executor.queue.getError()
			assert.True(t, errors.Is(errors.Panic, err), err)
			assert.Equal(t, testCase.expected, executor.State())
			assert.Equal(t, Ticket(1), mailbox.Completed())
		})
	}
}

func TestKeepAttributes(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		id          string
		keep        bool
		expectRange [2]float64
	}{
		{"Should fit every new data set.", false, [2]float64{100, 400}},
		{"Should keep the range of the first data set.", true, [2]float64{10, 40}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.id, func(t *testing.T) {
			t.Parallel()

			mailbox, _ := newTestMailbox()
			executor := newTestExecutor(mailbox)
			executor.Scene().KeepAttributes = testCase.keep

			require.NoError(t, executor.Apply(newTestMesh(10, 20, 30, 40)))
			scene := executor.Scene()
			assert.Equal(t, [2]float64{10, 40}, [2]float64{scene.MinValue, scene.MaxValue}, "The first data set is always fitted.")
			assert.Equal(t, [3]float64{1, 1, 0}, scene.Bounds.Max)

			next := newTestMesh(100, 200, 300, 400)
			next.Mesh.Vertices = [][]float64{{0, 0}, {2, 0}, {2, 2}, {0, 2}}
			require.NoError(t, executor.Apply(next))

			assert.Same(t, next.Field, scene.Field)
			assert.Equal(t, testCase.expectRange, [2]float64{scene.MinValue, scene.MaxValue})
			if testCase.keep {
				assert.Equal(t, [3]float64{1, 1, 0}, scene.Bounds.Max)
				return
			}
			assert.Equal(t, [3]float64{2, 2, 0}, scene.Bounds.Max)
		})
	}
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	mailbox, _ := newTestMailbox()
	executor := newTestExecutor(mailbox)

	require.NoError(t, mailbox.Post(context.Background(), Zoom{Factor: 3}))
	executor.Shutdown()

	assert.Equal(t, ExecShutdown, executor.State())
	assert.False(t, executor.PumpOnce())
	assert.True(t, errors.Is(errors.Terminated, executor.Apply(Zoom{Factor: 2})))
	assert.Equal(t, 1.0, executor.Scene().Zoom)
}

type panickingViewer struct {
	*fakeViewer
}

func (panickingViewer) CallKeys(string) error {
	panic("viewer exploded")
}

func (panickingViewer) Redraw(*Scene) {
	panic("viewer exploded")
}

func TestExecStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", ExecIdle.String())
	assert.Equal(t, "applying", ExecApplying.String())
	assert.Equal(t, "paused", ExecPaused.String())
	assert.Equal(t, "shutdown", ExecShutdown.String())
}
