package main

import (
	"bufio"
	"context"
	"image"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ahmedkamals/visstream"
	"github.com/ahmedkamals/visstream/internal/errors"
	"github.com/ahmedkamals/visstream/internal/screenshot"
	"github.com/spf13/cobra"
)

type (
	// localAction runs on the render goroutine.
	localAction func(*visstream.Executor)
)

const (
	logQueueSize   = 100
	errorQueueSize = 100
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		flags      = defaultConfig()
		noColor    bool
	)

	cmd := &cobra.Command{
		Use:   "visstream [files...]",
		Short: "Headless viewer fed by visualization streams",
		Long: "visstream reads meshes, solutions and view commands from files, watched files\n" +
			"and TCP connections, and renders them offscreen. Type commands on stdin,\n" +
			"or :resume, :autopause, :state and :quit.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			changed := cmd.Flags().Changed
			if changed("listen") {
				cfg.Listen = flags.Listen
			}
			if changed("watch") {
				cfg.Watch = flags.Watch
			}
			if changed("autopause") {
				cfg.Autopause = flags.Autopause
			}
			if changed("keep-attributes") {
				cfg.KeepAttributes = flags.KeepAttributes
			}
			if changed("fix-orientation") {
				cfg.FixOrientation = flags.FixOrientation
			}
			if changed("width") {
				cfg.Window.Width = flags.Window.Width
			}
			if changed("height") {
				cfg.Window.Height = flags.Window.Height
			}
			if changed("title") {
				cfg.Window.Title = flags.Window.Title
			}
			if changed("pump-interval") {
				cfg.PumpInterval = flags.PumpInterval
			}
			if changed("screenshot-dir") {
				cfg.ScreenshotDir = flags.ScreenshotDir
			}
			if noColor {
				cfg.Color = false
			}
			cfg.Sources = append(cfg.Sources, args...)

			if err := cfg.validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, os.Stdin)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	cmd.Flags().StringVarP(&flags.Listen, "listen", "l", defaultListen, "TCP address to accept streams on, empty to disable")
	cmd.Flags().StringSliceVarP(&flags.Watch, "watch", "w", nil, "files to read again whenever they change")
	cmd.Flags().BoolVarP(&flags.Autopause, "autopause", "a", false, "pause after every new solution")
	cmd.Flags().BoolVar(&flags.KeepAttributes, "keep-attributes", false, "keep the bounds and value range of the first data set")
	cmd.Flags().BoolVar(&flags.FixOrientation, "fix-orientation", false, "reorder clockwise planar elements")
	cmd.Flags().IntVar(&flags.Window.Width, "width", flags.Window.Width, "window width")
	cmd.Flags().IntVar(&flags.Window.Height, "height", flags.Window.Height, "window height")
	cmd.Flags().StringVar(&flags.Window.Title, "title", flags.Window.Title, "window title")
	cmd.Flags().DurationVar(&flags.PumpInterval.Duration, "pump-interval", defaultPumpInterval, "fallback poll interval of the render loop")
	cmd.Flags().StringVar(&flags.ScreenshotDir, "screenshot-dir", "", "directory for relative screenshot paths")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable coloured output")

	return cmd
}

// run owns the render goroutine until ctx is done, then closes the session.
func run(ctx context.Context, cfg Config, stdin io.Reader) error {
	const op errors.Operation = "main.run"

	logChan := make(chan string, logQueueSize)
	errChan := make(chan error, errorQueueSize)

	console := newPrinter(cfg.Color)
	go console.monitorLogMessages(logChan)
	go console.monitorErrors(errChan)

	logger := newEventLogger(logChan)
	errorQueue := newErrorQueue(errChan)

	viewer := newHeadless(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, logger)
	session := visstream.NewSession(viewer, logger, errorQueue, visstream.SessionOptions{
		Width:          cfg.Window.Width,
		Height:         cfg.Window.Height,
		Title:          cfg.Window.Title,
		Autopause:      cfg.Autopause,
		KeepAttributes: cfg.KeepAttributes,
		FixOrientation: cfg.FixOrientation,
		WatchDelay:     cfg.WatchDelay.Duration,
		Screenshot:     screenshotWriter(cfg.ScreenshotDir),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Listen != "" {
		ln, err := net.Listen("tcp", cfg.Listen)
		if err != nil {
			_ = session.Close()
			return errors.E(op, errors.Failure, err)
		}
		go func() {
			if err := session.Serve(ln); err != nil {
				errorQueue.Report(err)
			}
		}()
	}

	for _, path := range cfg.Sources {
		file, err := os.Open(path)
		if err != nil {
			errorQueue.Report(errors.E(op, errors.StreamError, err))
			continue
		}
		if _, err := session.AddSource(path, file); err != nil {
			_ = file.Close()
			errorQueue.Report(err)
		}
	}

	for _, path := range cfg.Watch {
		if err := session.Watch(path); err != nil {
			errorQueue.Report(err)
		}
	}

	local := make(chan localAction, 1)
	go readConsole(ctx, stdin, session, local, cancel, console, errorQueue)

	err := renderLoop(ctx, session, local, cfg.PumpInterval.Duration)

	if closeErr := session.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	// Let the monitors print the last lines.
	<-time.After(10 * time.Millisecond)

	return err
}

// renderLoop is the render goroutine: it wakes on the mailbox signal or
// after interval, runs local actions and pumps one command.
func renderLoop(ctx context.Context, session *visstream.Session, local <-chan localAction, interval time.Duration) error {
	const op errors.Operation = "main.renderLoop"

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	wakeup := session.Mailbox().Signal()
	executor := session.Executor()

	for ctx.Err() == nil {
		if _, err := wakeup.Wait(interval); err != nil {
			return errors.E(op, err)
		}

		select {
		case action := <-local:
			action(executor)
		default:
		}

		executor.PumpOnce()
	}

	return nil
}

// readConsole turns stdin lines into local actions. Lines starting with a
// colon control the viewer, anything else is a stream command applied
// directly on the render goroutine.
func readConsole(ctx context.Context, stdin io.Reader, session *visstream.Session, local chan<- localAction, quit context.CancelFunc, console *printer, errorQueue visstream.ErrorQueue) {
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var action localAction
		switch line {
		case ":quit", ":q":
			quit()
			return
		case ":resume", ":r":
			action = (*visstream.Executor).Resume
		case ":autopause", ":a":
			action = (*visstream.Executor).ToggleAutopause
		case ":state", ":s":
			action = func(executor *visstream.Executor) {
				encoded, err := executor.Scene().Snapshot().Marshal()
				if err != nil {
					errorQueue.Report(err)
					return
				}
				console.state(encoded)
			}
		default:
			cmd, err := visstream.NewStreamParser(strings.NewReader(line), false).Next()
			if err != nil {
				errorQueue.Report(err)
				continue
			}
			action = func(executor *visstream.Executor) {
				if err := executor.Apply(cmd); err != nil {
					errorQueue.Report(err)
				}
			}
		}

		select {
		case local <- action:
		case <-ctx.Done():
			return
		}
		if err := session.Mailbox().Signal().Notify(); err != nil {
			return
		}
	}
}

// screenshotWriter stores relative screenshot paths under dir.
func screenshotWriter(dir string) visstream.ScreenshotWriter {
	if dir == "" {
		return screenshot.Save
	}

	return func(frame image.Image, path string) error {
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}

		return screenshot.Save(frame, path)
	}
}
