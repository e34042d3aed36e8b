package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/stackdraw/internal/surface"
)

var renderOpts struct {
	stackOpts
	output string
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the notification stack to a PNG image",
	Long: `Lay out the notification stack and paint it to a PNG image.

Examples:
  # Render the current dunst history
  stackdraw render -o stack.png

  # Render notifications from a file at 2x scale
  stackdraw render --source notifications.yaml --scale 2 -o stack.png

  # Only critical notifications, written to stdout
  stackdraw render --filter urgency=critical -o - > stack.png`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderOpts.register(renderCmd)
	renderCmd.Flags().StringVarP(&renderOpts.output, "output", "o", "stack.png",
		"Output PNG path (- for stdout)")
}

func runRender(cmd *cobra.Command, args []string) error {
	ns, err := renderOpts.loadStack(settings)
	if err != nil {
		return err
	}
	if len(ns) == 0 {
		return fmt.Errorf("no notifications to render")
	}

	frame, _, err := drawStack(settings, ns)
	if err != nil {
		return err
	}
	if frame.Dimensions.H == 0 {
		return fmt.Errorf("every notification was dropped from the stack")
	}

	img, ok := frame.Surface.(*surface.Image)
	if !ok {
		return fmt.Errorf("unexpected surface type %T", frame.Surface)
	}

	if renderOpts.output == "-" {
		return img.WritePNG(os.Stdout)
	}
	if err := img.SavePNG(renderOpts.output); err != nil {
		return err
	}
	logger.Info("stack rendered",
		"path", renderOpts.output,
		"width", frame.Dimensions.W,
		"height", frame.Dimensions.H,
		"items", len(frame.Placements),
	)
	return nil
}
