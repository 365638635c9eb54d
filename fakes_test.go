package visstream

import (
	"context"
	"image"
	"image/color"
	"strings"
	"sync"
	"time"

	"github.com/ahmedkamals/visstream/internal/wake"
)

type (
	fakeEventLogger struct {
		logChan chan string
	}

	fakeErrorQueue struct {
		errChan chan error
	}

	fakeViewer struct {
		sync.Mutex
		frame     image.Image
		frameErr  error
		resizeErr error
		keys      []string
		titles    []string
		redraws   int
	}

	fakeScreenshots struct {
		sync.Mutex
		paths []string
		err   error
	}
)

const (
	testBufferSize = 100
	delayTime      = 18 * time.Millisecond
	waitTime       = 2 * time.Second
	tickTime       = 5 * time.Millisecond
)

func newFakeEventLogger(logChan chan string) *fakeEventLogger {
	return &fakeEventLogger{
		logChan: logChan,
	}
}

func (fel *fakeEventLogger) Log(message string) {
	select {
	case fel.logChan <- message:
	// Drop any log message that exceeds the log queue size.
	default:
	}
}

// contains drains the logged lines and reports whether one contains text.
func (fel *fakeEventLogger) contains(text string) bool {
	for {
		select {
		case message := <-fel.logChan:
			if strings.Contains(message, text) {
				return true
			}
		default:
			return false
		}
	}
}

func newFakeErrorQueue(errChan chan error) *fakeErrorQueue {
	return &fakeErrorQueue{
		errChan: errChan,
	}
}

func (feq *fakeErrorQueue) Report(err error) {
	select {
	case feq.errChan <- err:
	// Drop any error message that exceeds the error queue size.
	default:
	}
}

func (feq *fakeErrorQueue) getError() error {
	select {
	case err := <-feq.errChan:
		return err
	case <-time.After(waitTime):
		return nil
	}
}

func (feq *fakeErrorQueue) empty() bool {
	return len(feq.errChan) == 0
}

func newFakeViewer() *fakeViewer {
	frame := image.NewRGBA(image.Rect(0, 0, 2, 2))
	frame.Set(0, 0, color.White)

	return &fakeViewer{frame: frame}
}

func (fv *fakeViewer) Resize(width, height int) error {
	fv.Lock()
	defer fv.Unlock()

	return fv.resizeErr
}

func (fv *fakeViewer) SetTitle(title string) error {
	fv.Lock()
	defer fv.Unlock()

	fv.titles = append(fv.titles, title)

	return nil
}

func (fv *fakeViewer) CallKeys(keys string) error {
	fv.Lock()
	defer fv.Unlock()

	fv.keys = append(fv.keys, keys)

	return nil
}

func (fv *fakeViewer) Frame() (image.Image, error) {
	fv.Lock()
	defer fv.Unlock()

	return fv.frame, fv.frameErr
}

func (fv *fakeViewer) Redraw(*Scene) {
	fv.Lock()
	fv.redraws++
	fv.Unlock()
}

func (fs *fakeScreenshots) write(_ image.Image, path string) error {
	fs.Lock()
	defer fs.Unlock()

	if fs.err != nil {
		return fs.err
	}
	fs.paths = append(fs.paths, path)

	return nil
}

func (fs *fakeScreenshots) written() []string {
	fs.Lock()
	defer fs.Unlock()

	return append([]string(nil), fs.paths...)
}

func newTestMailbox() (Mailbox, *fakeErrorQueue) {
	queue := newFakeErrorQueue(make(chan error, testBufferSize))

	return NewMailbox(wake.NewChan(), queue), queue
}

type testExecutor struct {
	*Executor
	viewer      *fakeViewer
	screenshots *fakeScreenshots
	logger      *fakeEventLogger
	queue       *fakeErrorQueue
}

func newTestExecutor(mailbox Mailbox) *testExecutor {
	viewer := newFakeViewer()
	screenshots := &fakeScreenshots{}
	logger := newFakeEventLogger(make(chan string, testBufferSize))
	queue := newFakeErrorQueue(make(chan error, testBufferSize))

	return &testExecutor{
		Executor:    NewExecutor(mailbox, NewScene(320, 240, "test"), viewer, screenshots.write, logger, queue),
		viewer:      viewer,
		screenshots: screenshots,
		logger:      logger,
		queue:       queue,
	}
}

// pump plays the render loop until ctx is done.
func pump(ctx context.Context, executor *Executor, signal wake.Signal) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)
		for ctx.Err() == nil {
			if _, err := signal.Wait(tickTime); err != nil {
				return
			}
			executor.PumpOnce()
		}
	}()

	return done
}

func newTestMesh(values ...float64) NewMeshAndSolution {
	mesh := &Mesh{
		Dimension: 2,
		Vertices:  [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
		Elements:  [][]int{{0, 1, 2, 3}},
	}

	if len(values) == 0 {
		values = []float64{0, 1, 2, 3}
	}

	return NewMeshAndSolution{
		Mesh:  mesh,
		Field: &Field{VectorDim: 1, Values: values},
	}
}
