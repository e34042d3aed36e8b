package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/stackdraw/internal/adapter/input"
	"github.com/jmylchreest/stackdraw/internal/config"
	"github.com/jmylchreest/stackdraw/internal/core"
	"github.com/jmylchreest/stackdraw/internal/draw"
	"github.com/jmylchreest/stackdraw/internal/icon"
	"github.com/jmylchreest/stackdraw/internal/model"
	"github.com/jmylchreest/stackdraw/internal/surface"
	"github.com/jmylchreest/stackdraw/internal/text"
)

// stackOpts are the input and selection flags shared by the one-shot commands.
type stackOpts struct {
	source string
	filter string
	limit  int
	sort   string
	raw    bool
}

func (o *stackOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.source, "source", "",
		"Notification source (dunst, stdin, or a .json/.yaml file; auto-detects if empty)")
	cmd.Flags().StringVar(&o.filter, "filter", "",
		"Select notifications, e.g. \"app=mail,urgency>=normal,age<1h\"")
	cmd.Flags().IntVarP(&o.limit, "limit", "n", 0,
		"Maximum number of notifications to stack (0 = config default)")
	cmd.Flags().StringVar(&o.sort, "sort", "",
		"Explicit order instead of the stack order: field[:order], field is timestamp, app or urgency")
	cmd.Flags().BoolVar(&o.raw, "raw", false,
		"Keep input order and duplicates; ignore the behavior settings")
}

// loadStack imports notifications and applies the selection and stack behaviour.
func (o *stackOpts) loadStack(s *config.Settings) ([]*model.Notification, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	adapter, err := input.NewAdapter(o.source)
	if err != nil {
		return nil, fmt.Errorf("failed to create adapter: %w", err)
	}
	logger.Debug("fetching notifications", "source", adapter.Name())

	ns, err := adapter.Import(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to import notifications: %w", err)
	}
	logger.Debug("fetched notifications", "count", len(ns))

	sel, err := core.ParseSelector(o.filter, time.Now())
	if err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	ns = core.Select(ns, sel)

	behavior := s.Behavior
	if o.raw {
		behavior = config.BehaviorConfig{}
	}
	if o.limit > 0 {
		behavior.NotificationLimit = o.limit
	}
	if o.sort == "" {
		return core.Prepare(ns, behavior), nil
	}

	order, err := core.ParseSortOptions(o.sort)
	if err != nil {
		return nil, fmt.Errorf("invalid --sort: %w", err)
	}
	limit := behavior.NotificationLimit
	behavior.Sort, behavior.NotificationLimit = false, 0
	ns = core.Prepare(ns, behavior)
	core.Sort(ns, order)
	return core.Limit(ns, limit), nil
}

// newEngine builds a layout engine drawing onto in-memory images.
func newEngine(s *config.Settings) (*draw.Engine, *text.Shaper, error) {
	shaper, err := text.NewShaperFromConfig(s.Text, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create text shaper: %w", err)
	}
	out := surface.NewHeadless(1)
	return draw.NewEngine(s, out, shaper, icon.NewSource(s.Icons, logger), logger), shaper, nil
}

// drawStack runs a full layout and render pass over ns.
func drawStack(s *config.Settings, ns []*model.Notification) (*draw.Frame, *draw.Engine, error) {
	engine, shaper, err := newEngine(s)
	if err != nil {
		return nil, nil, err
	}
	defer shaper.Close()

	frame, err := engine.Draw(ns)
	if err != nil {
		return nil, nil, err
	}
	for _, drop := range frame.Dropped {
		logger.Warn("notification dropped from stack", "error", drop)
	}
	return frame, engine, nil
}
