package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/stackdraw/internal/preview"
)

var previewOpts struct {
	stackOpts
	cellWidth  int
	cellHeight int
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Draw the notification stack in the terminal",
	Long: `Lay out the notification stack and draw an approximation of it in the
terminal, one bordered block per notification in its urgency colours.

Pixel sizes are converted to terminal cells with --cell-width and
--cell-height.`,
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewOpts.register(previewCmd)

	def := preview.DefaultOptions()
	previewCmd.Flags().IntVar(&previewOpts.cellWidth, "cell-width", def.CellWidth,
		"Pixels per terminal column")
	previewCmd.Flags().IntVar(&previewOpts.cellHeight, "cell-height", def.CellHeight,
		"Pixels per terminal row")
}

func runPreview(cmd *cobra.Command, args []string) error {
	ns, err := previewOpts.loadStack(settings)
	if err != nil {
		return err
	}

	engine, shaper, err := newEngine(settings)
	if err != nil {
		return err
	}
	defer shaper.Close()

	out, err := preview.Render(engine, ns, preview.Options{
		CellWidth:  previewOpts.cellWidth,
		CellHeight: previewOpts.cellHeight,
		Now:        time.Now(),
	})
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
