package main

import (
	"fmt"
	"os"

	"github.com/ahmedkamals/colorize"
	"github.com/ahmedkamals/visstream"
)

type (
	eventLogger struct {
		logChan chan string
	}

	errorQueue struct {
		errChan chan error
	}

	// printer writes diagnostics to the console.
	printer struct {
		color bool
	}
)

var (
	colorized = colorize.NewColorable(os.Stdout)
)

func newEventLogger(logChan chan string) visstream.Logger {
	return &eventLogger{
		logChan: logChan,
	}
}

func (e *eventLogger) Log(message string) {
	select {
	case e.logChan <- message:
	// Drop any log message that exceeds the log queue size.
	default:
	}
}

func newErrorQueue(errChan chan error) visstream.ErrorQueue {
	return &errorQueue{
		errChan: errChan,
	}
}

func (e *errorQueue) Report(err error) {
	select {
	case e.errChan <- err:
	// Drop any error message that exceeds the error queue size.
	default:
	}
}

func newPrinter(color bool) *printer {
	return &printer{
		color: color,
	}
}

func (p *printer) monitorLogMessages(logChan <-chan string) {
	for message := range logChan {
		if p.color {
			fmt.Println(colorized.Cyan(message))
			continue
		}
		fmt.Println(message)
	}
}

func (p *printer) monitorErrors(errChan <-chan error) {
	for err := range errChan {
		if err == nil {
			continue
		}
		if p.color {
			fmt.Println(colorized.Red(err.Error()))
			continue
		}
		fmt.Println(err.Error())
	}
}

// state prints the view state.
func (p *printer) state(encoded string) {
	if p.color {
		fmt.Printf("%s %s\n", colorized.Green("State:"), encoded)
		return
	}
	fmt.Printf("State: %s\n", encoded)
}
