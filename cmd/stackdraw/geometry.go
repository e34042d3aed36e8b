package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/stackdraw/internal/adapter/output"
)

var geometryOpts struct {
	stackOpts
	format   string
	template string
	bodyLen  int
	noTime   bool
}

var geometryCmd = &cobra.Command{
	Use:   "geometry",
	Short: "Print the stack dimensions and per-item placement",
	Long: `Lay out the notification stack and print its geometry: the window size,
the corner radius and the box of every item, its text, icon, separator and
progress bar.

Rectangles are printed as WxH+X+Y in physical pixels.

Examples:
  stackdraw geometry --source notifications.json
  stackdraw geometry --format json | jq '.items[].box'
  stackdraw geometry --template '{{.Index}} {{.Box}} {{.AppName}} ({{.Age}})'`,
	RunE: runGeometry,
}

func init() {
	rootCmd.AddCommand(geometryCmd)
	geometryOpts.register(geometryCmd)

	geometryCmd.Flags().StringVarP(&geometryOpts.format, "format", "f", "plain",
		"Output format (plain, lines, json, yaml)")
	geometryCmd.Flags().StringVar(&geometryOpts.template, "template", "",
		"Custom Go template for each item in plain format")
	geometryCmd.Flags().IntVar(&geometryOpts.bodyLen, "body-length", 60,
		"Maximum body length in plain format (0 = unlimited)")
	geometryCmd.Flags().BoolVar(&geometryOpts.noTime, "no-time", false,
		"Hide relative timestamps")
}

func runGeometry(cmd *cobra.Command, args []string) error {
	opts := output.DefaultFormatterOptions()
	opts.Template = geometryOpts.template
	opts.BodyMaxLen = geometryOpts.bodyLen
	opts.ShowTime = !geometryOpts.noTime

	formatter, err := output.NewFormatter(output.FormatType(geometryOpts.format), opts)
	if err != nil {
		return err
	}

	ns, err := geometryOpts.loadStack(settings)
	if err != nil {
		return err
	}
	frame, engine, err := drawStack(settings, ns)
	if err != nil {
		return err
	}
	return formatter.Format(os.Stdout, output.NewReport(frame, ns, engine.Scale()))
}
