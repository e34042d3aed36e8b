// Package preview renders a laid out stack as styled terminal text.
package preview

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/stackdraw/internal/config"
	"github.com/jmylchreest/stackdraw/internal/draw"
	"github.com/jmylchreest/stackdraw/internal/format"
	"github.com/jmylchreest/stackdraw/internal/markup"
	"github.com/jmylchreest/stackdraw/internal/model"
)

// Options controls how pixels map to terminal cells.
type Options struct {
	CellWidth  int // pixels per column
	CellHeight int // pixels per row
	Now        time.Time
}

// DefaultOptions returns options for a typical 8x16 terminal cell.
func DefaultOptions() Options {
	return Options{CellWidth: 8, CellHeight: 16}
}

// Render lays out ns with e and draws each item as a bordered block whose
// size approximates its pixel geometry. The last line summarises the stack.
func Render(e *draw.Engine, ns []*model.Notification, opts Options) (string, error) {
	if opts.CellWidth <= 0 {
		opts.CellWidth = 8
	}
	if opts.CellHeight <= 0 {
		opts.CellHeight = 16
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	byID := make(map[string]*model.Notification, len(ns))
	for _, n := range ns {
		byID[n.ID] = n
	}

	s := e.Settings()
	var out string
	err := e.WithLayouts(ns, func(set *draw.LayoutSet) error {
		dim := e.CalculateDimensions(set.Layouts)
		placements := e.Placements(set.Layouts, dim)

		var blocks []string
		for i, cl := range set.Layouts {
			if i > 0 && s.Geometry.Gaps {
				for range cells(s.Geometry.GapSize, opts.CellHeight) {
					blocks = append(blocks, "")
				}
			}
			blocks = append(blocks, renderItem(s, cl, placements[i], byID[cl.ID], dim, opts))
		}

		footer := lipgloss.NewStyle().Faint(true).Render(summary(dim, len(set.Layouts), len(set.Errors)))
		blocks = append(blocks, footer)
		out = lipgloss.JoinVertical(lipgloss.Left, blocks...)
		return nil
	})
	return out, err
}

func renderItem(s *config.Settings, cl *draw.ColoredLayout, p draw.Placement, n *model.Notification, dim draw.Dimensions, opts Options) string {
	cols := cells(p.Box.Dx(), opts.CellWidth)
	rows := cells(p.Box.Dy(), opts.CellHeight)
	inner := max(cols-2, 3)

	border := lipgloss.NormalBorder()
	if dim.CornerRadius > 0 {
		border = lipgloss.RoundedBorder()
	}

	style := lipgloss.NewStyle().
		Border(border).
		BorderForeground(lipgloss.Color(config.HexColor(cl.Colors.Frame))).
		Foreground(lipgloss.Color(config.HexColor(cl.Colors.Foreground))).
		Background(lipgloss.Color(config.HexColor(cl.Colors.Background))).
		Padding(0, 1).
		Width(inner).
		Height(max(rows-2, 1))

	var body strings.Builder
	if !p.Icon.Empty() {
		body.WriteString("▣ ")
	}
	body.WriteString(itemText(s, n, opts.Now))
	if !p.Progress.Empty() {
		body.WriteString("\n")
		body.WriteString(progressBar(cl.Progress, max(inner-2-5, 1), cl.Colors.Highlight))
	}

	return style.Render(body.String())
}

func itemText(s *config.Settings, n *model.Notification, now time.Time) string {
	if n == nil {
		return ""
	}
	text := n.TextToRender
	if text == "" {
		text = format.Render(n, format.OptionsFromSettings(s, now))
	}
	return markup.PlainText(markup.Parse(text, markup.ParseMode(s.Text.Markup)))
}

func progressBar(progress, width int, highlight color.NRGBA) string {
	progress = min(max(progress, 0), 100)
	filled := width * progress / 100
	bar := lipgloss.NewStyle().Foreground(lipgloss.Color(config.HexColor(highlight))).
		Render(strings.Repeat("█", filled))
	return bar + strings.Repeat("░", width-filled) + fmt.Sprintf(" %3d%%", progress)
}

func summary(dim draw.Dimensions, items, dropped int) string {
	line := fmt.Sprintf("%dx%d px, %d item(s), corner radius %d", dim.W, dim.H, items, dim.CornerRadius)
	if dropped > 0 {
		line += fmt.Sprintf(", %d dropped", dropped)
	}
	return line
}

// cells converts a pixel length to a rounded cell count, at least 1.
func cells(px, cell int) int {
	return max(1, (px+cell/2)/cell)
}
