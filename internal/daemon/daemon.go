package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/stackdraw/internal/adapter/output"
	"github.com/jmylchreest/stackdraw/internal/config"
	"github.com/jmylchreest/stackdraw/internal/draw"
	"github.com/jmylchreest/stackdraw/internal/icon"
	"github.com/jmylchreest/stackdraw/internal/model"
	"github.com/jmylchreest/stackdraw/internal/store"
	"github.com/jmylchreest/stackdraw/internal/surface"
	"github.com/jmylchreest/stackdraw/internal/text"
)

// DefaultTick is the default expiry check interval.
const DefaultTick = 500 * time.Millisecond

// Options configures a Daemon.
type Options struct {
	OutputPath string        // PNG written on every change
	ReportPath string        // JSON geometry report written alongside, optional
	Tick       time.Duration // Expiry check interval
	Scale      float64       // Output scale factor, 0 = 1
}

// ExpireHandler is called for each notification dropped on timeout.
type ExpireHandler func(n *model.Notification)

// RenderHandler is called after every successful render.
type RenderHandler func(frame *draw.Frame)

// Daemon owns the live stack and renders it to an image file.
type Daemon struct {
	mu     sync.Mutex
	logger *slog.Logger
	opts   Options

	stack  *Stack
	output *surface.Headless
	shaper *text.Shaper
	engine *draw.Engine

	onExpire ExpireHandler
	onRender RenderHandler
	history  store.Persistence

	dirty chan struct{}
	now   func() time.Time
}

// New creates a Daemon for settings.
func New(settings *config.Settings, opts Options, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if settings == nil {
		settings = config.DefaultSettings()
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.Scale <= 0 {
		opts.Scale = 1
	}

	d := &Daemon{
		logger: logger,
		opts:   opts,
		stack:  NewStack(settings),
		output: surface.NewHeadless(opts.Scale),
		dirty:  make(chan struct{}, 1),
		now:    time.Now,
	}
	if err := d.rebuild(settings); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Daemon) rebuild(settings *config.Settings) error {
	shaper, err := text.NewShaperFromConfig(settings.Text, d.logger)
	if err != nil {
		return fmt.Errorf("failed to create text shaper: %w", err)
	}
	icons := icon.NewSource(settings.Icons, d.logger)

	// The previous shaper may still serve a render in flight; it is not closed.
	d.mu.Lock()
	d.shaper = shaper
	d.engine = draw.NewEngine(settings, d.output, shaper, icons, d.logger)
	d.mu.Unlock()
	return nil
}

// SetExpireHandler sets the callback for expired notifications.
func (d *Daemon) SetExpireHandler(h ExpireHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onExpire = h
}

// SetRenderHandler sets the callback invoked after each render.
func (d *Daemon) SetRenderHandler(h RenderHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onRender = h
}

// SetHistory sets the log every added notification is appended to.
func (d *Daemon) SetHistory(p store.Persistence) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history = p
}

// SetIdle pauses or resumes timeouts.
func (d *Daemon) SetIdle(idle bool) {
	d.output.SetIdle(idle)
}

// Stack returns the live stack.
func (d *Daemon) Stack() *Stack {
	return d.stack
}

// Add puts n on the stack and schedules a render.
func (d *Daemon) Add(n *model.Notification) {
	if old := d.stack.Add(n, d.now()); old != nil {
		d.logger.Debug("notification replaced", "id", n.ID, "dbus_id", n.DBusID, "replaced", old.ID)
	} else {
		d.logger.Debug("notification added", "id", n.ID, "dbus_id", n.DBusID, "app", n.AppName)
	}

	d.mu.Lock()
	history := d.history
	d.mu.Unlock()
	if history != nil {
		if err := history.Append(n); err != nil {
			d.logger.Warn("failed to log notification", "id", n.ID, "error", err)
		}
	}
	d.markDirty()
}

// Close removes the notification with the given D-Bus id.
func (d *Daemon) Close(dbusID uint32) {
	if n, ok := d.stack.Close(dbusID); ok {
		d.logger.Debug("notification closed", "id", n.ID, "dbus_id", dbusID)
		d.markDirty()
	}
}

// Reload applies new settings: a fresh engine and new urgency timeouts.
func (d *Daemon) Reload(settings *config.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := d.rebuild(settings); err != nil {
		return err
	}
	d.stack.SetSettings(settings)
	d.logger.Info("settings reloaded")
	d.markDirty()
	return nil
}

// Tick drops expired notifications. Nothing expires while the output is idle.
func (d *Daemon) Tick() {
	expired := d.stack.Expire(d.now(), d.output.IsIdle())
	if len(expired) == 0 {
		return
	}

	d.mu.Lock()
	h := d.onExpire
	d.mu.Unlock()

	for _, n := range expired {
		d.logger.Debug("notification expired", "id", n.ID, "dbus_id", n.DBusID)
		if h != nil {
			h(n)
		}
	}
	d.markDirty()
}

// RenderOnce draws the current stack and writes it to the output path.
// An empty stack removes the file and returns a nil frame.
func (d *Daemon) RenderOnce() (*draw.Frame, error) {
	ns := d.stack.Snapshot()

	d.mu.Lock()
	engine := d.engine
	h := d.onRender
	d.mu.Unlock()

	if len(ns) == 0 {
		for _, path := range []string{d.opts.OutputPath, d.opts.ReportPath} {
			if path == "" {
				continue
			}
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to remove %s: %w", path, err)
			}
		}
		return nil, nil
	}

	frame, err := engine.Draw(ns)
	if err != nil {
		return nil, err
	}
	for _, drop := range frame.Dropped {
		d.logger.Warn("notification dropped from stack", "error", drop)
	}

	if d.opts.OutputPath != "" && frame.Dimensions.H > 0 {
		img, ok := frame.Surface.(*surface.Image)
		if !ok {
			return nil, fmt.Errorf("unexpected surface type %T", frame.Surface)
		}
		if err := img.SavePNG(d.opts.OutputPath); err != nil {
			return nil, err
		}
	}

	if d.opts.ReportPath != "" {
		if err := writeReport(d.opts.ReportPath, output.NewReport(frame, ns, engine.Scale())); err != nil {
			return nil, err
		}
	}

	if h != nil {
		h(frame)
	}
	return frame, nil
}

// writeReport writes the JSON geometry report atomically via a temp file.
func writeReport(path string, r *output.Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".stackdraw-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := output.NewJSONFormatter(output.DefaultFormatterOptions()).Format(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write report: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Run renders on every change and checks timeouts until ctx is done.
func (d *Daemon) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.opts.Tick)
	defer ticker.Stop()

	d.markDirty()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.Tick()
		case <-d.dirty:
			frame, err := d.RenderOnce()
			if err != nil {
				d.logger.Error("render failed", "error", err)
				continue
			}
			if frame != nil {
				d.logger.Debug("stack rendered",
					"width", frame.Dimensions.W,
					"height", frame.Dimensions.H,
					"items", len(frame.Placements),
				)
			}
		}
	}
}

// Shutdown releases the text shaper.
func (d *Daemon) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shaper == nil {
		return nil
	}
	err := d.shaper.Close()
	d.shaper = nil
	return err
}

func (d *Daemon) markDirty() {
	select {
	case d.dirty <- struct{}{}:
	default:
	}
}
