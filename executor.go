package visstream

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/ahmedkamals/visstream/internal/errors"
	"github.com/ahmedkamals/visstream/internal/screenshot"
)

type (
	// ExecState is the state of the Executor.
	ExecState uint8

	// Executor drains the mailbox and applies commands to the scene.
	// Every method except State must be called from the render goroutine.
	Executor struct {
		mailbox    Mailbox
		scene      *Scene
		viewer     Viewer
		screenshot ScreenshotWriter
		logger     Logger
		errorQueue ErrorQueue
		applying   atomic.Bool
		paused     atomic.Bool
		autopause  atomic.Bool
		shutdown   atomic.Bool
	}
)

const (
	ExecIdle ExecState = iota
	ExecApplying
	ExecPaused
	ExecShutdown
)

var (
	onOff = [...]string{"off", "on"}
)

func (s ExecState) String() string {
	switch s {
	case ExecApplying:
		return "applying"
	case ExecPaused:
		return "paused"
	case ExecShutdown:
		return "shutdown"
	}

	return "idle"
}

// NewExecutor creates a new Executor. A nil writer stores screenshots with
// the format inferred from the file extension.
func NewExecutor(mailbox Mailbox, scene *Scene, viewer Viewer, writer ScreenshotWriter, logger Logger, errorQueue ErrorQueue) *Executor {
	if writer == nil {
		writer = screenshot.Save
	}

	return &Executor{
		mailbox:    mailbox,
		scene:      scene,
		viewer:     viewer,
		screenshot: writer,
		logger:     logger,
		errorQueue: errorQueue,
	}
}

// State returns the current state, safe from any goroutine.
func (e *Executor) State() ExecState {
	switch {
	case e.shutdown.Load():
		return ExecShutdown
	case e.applying.Load():
		return ExecApplying
	case e.paused.Load():
		return ExecPaused
	}

	return ExecIdle
}

// Scene returns the scene the executor mutates.
func (e *Executor) Scene() *Scene {
	return e.scene
}

// Autopause reports whether autopause is on.
func (e *Executor) Autopause() bool {
	return e.autopause.Load()
}

// PumpOnce applies the pending command, if any. It is a no-op while paused.
// It reports whether a command was drained.
func (e *Executor) PumpOnce() bool {
	const op errors.Operation = "Executor.PumpOnce"

	if e.shutdown.Load() {
		return false
	}

	if err := e.mailbox.Signal().Clear(); err != nil {
		e.errorQueue.Report(errors.E(op, errors.Failure, err))
	}

	if e.paused.Load() {
		return false
	}

	cmd, ticket, ok := e.mailbox.TryDrain()
	if !ok {
		return false
	}
	// The waiter is released even when the command could not be applied.
	defer e.mailbox.Complete(ticket)

	if err := e.execute(cmd); err != nil {
		e.errorQueue.Report(errors.E(op, err))
	}

	return true
}

// Apply applies a command directly, without the mailbox. Used for commands
// raised on the render goroutine itself, which must never post and wait.
func (e *Executor) Apply(cmd Command) error {
	const op errors.Operation = "Executor.Apply"

	if e.shutdown.Load() {
		return errors.E(op, errors.Terminated)
	}

	if cmd == nil {
		return errors.E(op, errors.Invalid)
	}

	return e.execute(cmd)
}

// Resume leaves the paused state.
func (e *Executor) Resume() {
	const op errors.Operation = "Executor.Resume"

	if !e.paused.Swap(false) {
		return
	}
	e.logger.Log("Resumed")

	// A command may have queued while paused.
	if err := e.mailbox.Signal().Notify(); err != nil && !e.mailbox.Terminating() {
		e.errorQueue.Report(errors.E(op, errors.Failure, err))
	}
}

// ToggleAutopause switches autopause; switching it on pauses immediately.
func (e *Executor) ToggleAutopause() {
	e.setAutopause(!e.autopause.Load())
}

// Shutdown moves the executor into its terminal state.
func (e *Executor) Shutdown() {
	e.shutdown.Store(true)
	e.paused.Store(false)
}

func (e *Executor) setAutopause(on bool) {
	e.autopause.Store(on)
	e.logger.Log(fmt.Sprintf("Autopause: %s", onOff[boolIndex(on)]))

	if on {
		e.paused.Store(true)
		return
	}

	e.Resume()
}

func (e *Executor) togglePause() {
	if e.paused.Load() {
		e.Resume()
		return
	}

	e.paused.Store(true)
	e.logger.Log("Paused, resume to continue")
}

// execute applies cmd with panic recovery and handles autopause.
func (e *Executor) execute(cmd Command) (err error) {
	const op errors.Operation = "Executor.execute"

	e.applying.Store(true)
	defer func() {
		e.applying.Store(false)

		recovered := recover()
		if violation, ok := recovered.(error); ok && errors.Is(errors.InvariantViolation, violation) {
			panic(recovered)
		}
		if recovered != nil {
			err = errors.Recovered(op, recovered)
		}

		// New data pauses even when it could not be applied.
		if cmd.Kind() == KindNewMeshAndSolution && e.autopause.Load() {
			e.paused.Store(true)
			e.logger.Log("Autopause: paused after new data, resume to continue")
		}
	}()

	return e.apply(cmd)
}

// apply validates cmd and then mutates the scene. A failing command leaves
// the scene untouched.
func (e *Executor) apply(cmd Command) error {
	const op errors.Operation = "Executor.apply"

	scene := e.scene

	switch cmd := cmd.(type) {
	case NewMeshAndSolution:
		if err := e.checkNewData(cmd); err != nil {
			return errors.E(op, errors.ApplyFailure, err)
		}
		// With KeepAttributes, only the first data set is fitted.
		keep := scene.KeepAttributes && scene.Mesh != nil
		scene.Mesh, scene.Field = cmd.Mesh, cmd.Field
		if !keep {
			scene.autoscale(scene.Autoscale)
		}

	case Screenshot:
		frame, err := e.viewer.Frame()
		if err != nil {
			return errors.E(op, errors.ApplyFailure, err)
		}
		if err := e.screenshot(frame, cmd.Path); err != nil {
			return errors.E(op, errors.ApplyFailure, err)
		}
		e.logger.Log(fmt.Sprintf("Command: screenshot -> %s", cmd.Path))
		return nil

	case KeySequence:
		if err := e.viewer.CallKeys(cmd.Text); err != nil {
			return errors.E(op, errors.ApplyFailure, err)
		}

	case Resize:
		if cmd.Width <= 0 || cmd.Height <= 0 {
			return errors.E(op, errors.ApplyFailure, errors.Errorf("invalid window size %dx%d", cmd.Width, cmd.Height))
		}
		if err := e.viewer.Resize(cmd.Width, cmd.Height); err != nil {
			return errors.E(op, errors.ApplyFailure, err)
		}
		scene.Width, scene.Height = cmd.Width, cmd.Height

	case Retitle:
		if err := e.viewer.SetTitle(cmd.Title); err != nil {
			return errors.E(op, errors.ApplyFailure, err)
		}
		scene.Title = cmd.Title

	case Pause:
		e.togglePause()
		return nil

	case ViewAngles:
		if !finite(cmd.Theta, cmd.Phi) {
			return errors.E(op, errors.ApplyFailure, errors.Errorf("invalid view angles %g %g", cmd.Theta, cmd.Phi))
		}
		scene.Theta, scene.Phi = cmd.Theta, cmd.Phi

	case Zoom:
		if !finite(cmd.Factor) || cmd.Factor <= 0 {
			return errors.E(op, errors.ApplyFailure, errors.Errorf("invalid zoom factor %g", cmd.Factor))
		}
		scene.Zoom *= cmd.Factor

	case Subdivisions:
		if cmd.Total < 1 || cmd.Boundary < 1 {
			return errors.E(op, errors.ApplyFailure, errors.Errorf("invalid subdivisions %d %d", cmd.Total, cmd.Boundary))
		}
		scene.Subdivisions = SubdivisionFactors{Total: cmd.Total, Boundary: cmd.Boundary}

	case ValueRange:
		if !finite(cmd.Min, cmd.Max) || cmd.Min > cmd.Max {
			return errors.E(op, errors.ApplyFailure, errors.Errorf("invalid value range [%g, %g]", cmd.Min, cmd.Max))
		}
		scene.MinValue, scene.MaxValue = cmd.Min, cmd.Max

	case Shading:
		mode, ok := ParseShading(cmd.Mode)
		if !ok {
			return errors.E(op, errors.ApplyFailure, errors.Errorf("unknown shading %q", cmd.Mode))
		}
		scene.Shading = mode

	case ViewCenter:
		if !finite(cmd.X, cmd.Y) {
			return errors.E(op, errors.ApplyFailure, errors.Errorf("invalid view center %g %g", cmd.X, cmd.Y))
		}
		scene.CenterX, scene.CenterY = cmd.X, cmd.Y

	case Autoscale:
		mode, ok := ParseAutoscale(cmd.Mode)
		if !ok {
			return errors.E(op, errors.ApplyFailure, errors.Errorf("unknown autoscale mode %q", cmd.Mode))
		}
		if mode != scene.Autoscale {
			scene.Autoscale = mode
			scene.autoscale(mode)
		}

	case Palette:
		if cmd.Index < 0 {
			return errors.E(op, errors.ApplyFailure, errors.Errorf("invalid palette %d", cmd.Index))
		}
		scene.Palette = cmd.Index

	case Camera:
		if !finite(cmd.Params[:]...) {
			return errors.E(op, errors.ApplyFailure, errors.Errorf("invalid camera %v", cmd.Params))
		}
		camera := cmd.Params
		scene.Camera = &camera

	case Autopause:
		e.setAutopause(cmd.Mode != "off" && cmd.Mode != "0")
		return nil

	default:
		return errors.E(op, errors.Invalid, errors.Errorf("unknown command %T", cmd))
	}

	e.logger.Log(fmt.Sprintf("Command: %s", cmd))
	e.viewer.Redraw(scene)

	return nil
}

// checkNewData verifies the new pair against itself and against the data
// currently shown.
func (e *Executor) checkNewData(cmd NewMeshAndSolution) error {
	if err := cmd.Mesh.Validate(); err != nil {
		return err
	}

	if err := cmd.Field.Validate(cmd.Mesh); err != nil {
		return err
	}

	current := e.scene
	if current.Mesh == nil || current.Field == nil {
		return nil
	}

	if cmd.Mesh.Dimension != current.Mesh.Dimension || cmd.Field.VectorDim != current.Field.VectorDim {
		return errors.Errorf(
			"field type does not match: got dim=%d vdim=%d, showing dim=%d vdim=%d",
			cmd.Mesh.Dimension, cmd.Field.VectorDim, current.Mesh.Dimension, current.Field.VectorDim,
		)
	}

	return nil
}

func finite(values ...float64) bool {
	for _, value := range values {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return false
		}
	}

	return true
}

func boolIndex(b bool) int {
	if b {
		return 1
	}

	return 0
}
