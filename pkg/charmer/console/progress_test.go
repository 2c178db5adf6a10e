package console

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestAggregateBarClampsPercent(t *testing.T) {
	b := NewAggregateBar()
	b.SetPercent(1.5)
	assert.Equal(t, 1.0, b.percent)
	b.SetPercent(-1)
	assert.Equal(t, 0.0, b.percent)
}

func TestAggregateBarUpdateAppliesWindowWidth(t *testing.T) {
	b := NewAggregateBar()
	b.Update(tea.WindowSizeMsg{Width: 40, Height: 20})
	assert.LessOrEqual(t, b.bar.Width, DefaultProgressOptions().Width)
	assert.Greater(t, b.bar.Width, 0)
}

func TestAggregateBarViewIsNonEmpty(t *testing.T) {
	b := NewAggregateBar()
	assert.NotEmpty(t, b.View())
}
