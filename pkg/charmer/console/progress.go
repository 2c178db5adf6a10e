// Package console holds small bubbletea widgets shared by openscp-demo.
package console

import (
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	padding  = 2
	maxWidth = 80
)

// ProgressOptions configures an AggregateBar's gradient and sizing.
type ProgressOptions struct {
	GradientColors []string
	Width          int
	Padding        int
}

func DefaultProgressOptions() ProgressOptions {
	return ProgressOptions{
		GradientColors: []string{"#5956e0", "#e86ef6"},
		Width:          maxWidth,
		Padding:        padding,
	}
}

// AggregateBar wraps bubbles/progress.Model as an embeddable widget
// driven by the host model's own Update loop, rather than the
// standalone channel-fed tea.Program a one-shot CLI progress bar would
// use: a TUI that already owns its own Update/View can't spawn a nested
// tea.Program per bar, so the host forwards WindowSizeMsg and
// progress.FrameMsg here and calls SetPercent directly on each tick.
type AggregateBar struct {
	bar     progress.Model
	options ProgressOptions
	percent float64
}

// NewAggregateBar builds a bar with the given options, or
// DefaultProgressOptions if none are given.
func NewAggregateBar(opts ...ProgressOptions) *AggregateBar {
	options := DefaultProgressOptions()
	if len(opts) > 0 {
		options = opts[0]
	}
	return &AggregateBar{
		bar: progress.New(
			progress.WithGradient(options.GradientColors[0], options.GradientColors[1]),
			progress.WithWidth(options.Width),
		),
		options: options,
	}
}

// SetPercent updates the target percentage (0..1) and returns the
// animation command the caller should include in its own tea.Cmd batch.
func (b *AggregateBar) SetPercent(p float64) tea.Cmd {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	b.percent = p
	return b.bar.SetPercent(p)
}

// Update forwards window-resize and the bar's own frame-animation
// messages; any other message is ignored.
func (b *AggregateBar) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		width := msg.Width - b.options.Padding*2 - 4
		if width > b.options.Width {
			width = b.options.Width
		}
		if width > 0 {
			b.bar.Width = width
		}
		return nil
	case progress.FrameMsg:
		model, cmd := b.bar.Update(msg)
		b.bar = model.(progress.Model)
		return cmd
	default:
		return nil
	}
}

// View renders the bar padded per ProgressOptions.
func (b *AggregateBar) View() string {
	pad := strings.Repeat(" ", b.options.Padding)
	return pad + b.bar.View()
}
