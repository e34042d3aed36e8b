// Package input provides adapters that load notification stacks to lay out.
package input

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/jmylchreest/stackdraw/internal/model"
)

// InputAdapter fetches notifications from a source.
type InputAdapter interface {
	// Name identifies the source: "dunst", "stdin" or "file".
	Name() string
	Import(ctx context.Context) ([]*model.Notification, error)
}

// daemons maps a notification daemon to the control binary whose presence
// means its history can be read.
var daemons = []struct{ name, bin string }{
	{"dunst", "dunstctl"},
}

// DetectDaemon returns the first notification daemon whose control binary
// is on PATH, or "".
func DetectDaemon() string {
	for _, d := range daemons {
		if _, err := exec.LookPath(d.bin); err == nil {
			return d.name
		}
	}
	return ""
}

// NewAdapter picks the adapter for source: "dunst", "stdin" or "-", or a
// file path. An empty source uses a detected daemon, else stdin.
func NewAdapter(source string) (InputAdapter, error) {
	if source == "" {
		if source = DetectDaemon(); source == "" {
			source = "stdin"
		}
	}

	switch source {
	case "dunst":
		return NewDunstAdapter(), nil
	case "stdin", "-":
		return NewStdinAdapter(), nil
	}

	info, err := os.Stat(source)
	if err != nil {
		return nil, &AdapterError{Source: source, Message: "unknown source", Err: err}
	}
	if info.IsDir() {
		return nil, &AdapterError{Source: source, Message: "source is a directory"}
	}
	return NewFileAdapter(source), nil
}

// AdapterError reports a failure reading a source.
type AdapterError struct {
	Source  string
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Source, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Message, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }
